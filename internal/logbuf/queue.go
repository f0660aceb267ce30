// Package logbuf provides the bounded, overflow-evicting console buffer kept
// for each supervised server. The producer (log tailer) never blocks: when
// the buffer is full the oldest line is dropped to make room.
package logbuf

import (
	"sync"
	"time"
)

// DefaultCapacity is used when a queue is created with a non-positive capacity.
const DefaultCapacity = 1000

// subscriber channel depth; a slow stream consumer loses lines rather than
// stalling the producer.
const subBuffer = 128

// Line is one captured console line.
type Line struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Queue is a fixed-capacity ring of Lines. Push is single-producer (the
// tailer); reads and subscriptions may come from any goroutine.
type Queue struct {
	mu     sync.Mutex
	buf    []Line
	head   int // index of oldest element
	count  int
	subs   map[int]chan Line
	nextID int
	closed bool
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		buf:  make([]Line, capacity),
		subs: make(map[int]chan Line),
	}
}

func (q *Queue) Cap() int { return len(q.buf) }

// Len returns the number of buffered lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Push appends text stamped with the current time.
func (q *Queue) Push(text string) {
	q.PushLine(Line{At: time.Now(), Text: text})
}

// PushLine appends a line, evicting the oldest when full, and fans the line
// out to live subscribers without ever blocking.
func (q *Queue) PushLine(l Line) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.count == len(q.buf) {
		// full: overwrite the oldest slot
		q.buf[q.head] = l
		q.head = (q.head + 1) % len(q.buf)
	} else {
		q.buf[(q.head+q.count)%len(q.buf)] = l
		q.count++
	}
	for _, ch := range q.subs {
		select {
		case ch <- l:
		default:
			// subscriber is behind; drop for it
		}
	}
	q.mu.Unlock()
}

// TryPop removes and returns the oldest line. The second result is false
// when the queue is empty; there is no blocking variant.
func (q *Queue) TryPop() (Line, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Line{}, false
	}
	l := q.buf[q.head]
	q.buf[q.head] = Line{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return l, true
}

// Tail returns up to n of the most recent lines, oldest first.
// n <= 0 returns everything buffered.
func (q *Queue) Tail(n int) []Line {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > q.count {
		n = q.count
	}
	out := make([]Line, 0, n)
	start := q.count - n
	for i := start; i < q.count; i++ {
		out = append(out, q.buf[(q.head+i)%len(q.buf)])
	}
	return out
}

// Subscribe registers a live consumer. The returned channel receives lines
// pushed after the call and is closed when either cancel is invoked or the
// queue itself is closed. Subscribing again after cancel is always valid.
func (q *Queue) Subscribe() (<-chan Line, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch := make(chan Line, subBuffer)
	if q.closed {
		close(ch)
		return ch, func() {}
	}
	id := q.nextID
	q.nextID++
	q.subs[id] = ch
	cancel := func() {
		q.mu.Lock()
		if c, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(c)
		}
		q.mu.Unlock()
	}
	return ch, cancel
}

// Close ends all subscriptions and rejects further pushes. Buffered lines
// remain readable via Tail/TryPop. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
	q.mu.Unlock()
}
