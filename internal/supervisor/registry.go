package supervisor

import "sync"

// registry is the only shared mutable state between supervision tasks:
// a mutex-guarded map of live records, one per server id.
type registry struct {
	mu   sync.Mutex
	recs map[string]*Record
}

func newRegistry() *registry {
	return &registry{recs: make(map[string]*Record)}
}

// put registers rec unless its id is already taken. The false return is
// what makes concurrent double-starts lose deterministically.
func (g *registry) put(rec *Record) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.recs[rec.id]; exists {
		return false
	}
	g.recs[rec.id] = rec
	return true
}

func (g *registry) get(id string) *Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recs[id]
}

// remove drops id. Removing an id that is absent (already cleaned up by a
// racing path) is fine.
func (g *registry) remove(id string) {
	g.mu.Lock()
	delete(g.recs, id)
	g.mu.Unlock()
}

func (g *registry) list() []*Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Record, 0, len(g.recs))
	for _, r := range g.recs {
		out = append(out, r)
	}
	return out
}

func (g *registry) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.recs)
}
