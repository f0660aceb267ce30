package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/javaward/javaward/internal/launch"
	"github.com/javaward/javaward/internal/logbuf"
	"github.com/javaward/javaward/internal/pidfile"
)

// Mode distinguishes the two record shapes: attached records hold the live
// child handle and its stdio pipes; detached records (restored after a
// supervisor restart) know only the PID and the console log path.
type Mode int

const (
	ModeAttached Mode = iota
	ModeDetached
)

func (m Mode) String() string {
	if m == ModeDetached {
		return "detached"
	}
	return "attached"
}

// StartSpec is the caller-supplied description of one server start. The
// core does not interpret Port/Rcon fields; they ride along into the
// pidfile and Info.
type StartSpec struct {
	ServerID     string
	Command      []string
	Dir          string
	Env          []string
	Port         int
	RconPort     int
	RconPassword string
}

// Record is the in-memory state for one supervised server. It is owned by
// the registry; exactly one record exists per live server id. Status
// writes go through transition/forceTerminal so ordering holds no matter
// which goroutine observed an event first.
type Record struct {
	mu sync.Mutex

	id        string
	mode      Mode
	pid       int
	status    Status
	startedAt time.Time
	exitErr   error

	dir          string
	command      []string
	port         int
	rconPort     int
	rconPassword string
	consolePath  string

	// consoleOffset is where the tailer starts reading the console file:
	// the pre-spawn size for fresh launches, the current size for
	// re-attached ones.
	consoleOffset int64

	queue *logbuf.Queue
	child *launch.Child // attached only

	stopRequested bool

	cancel context.CancelFunc // stops the monitor and tailer tasks

	readyCh  chan struct{} // closed on entering running
	waitDone chan struct{} // closed when the process is known to be gone
	exitOnce sync.Once
	cleanup  sync.Once
}

func newAttachedRecord(spec StartSpec, consolePath string, queueCap int) *Record {
	return &Record{
		id:           spec.ServerID,
		mode:         ModeAttached,
		status:       StatusStarting,
		dir:          spec.Dir,
		command:      append([]string(nil), spec.Command...),
		port:         spec.Port,
		rconPort:     spec.RconPort,
		rconPassword: spec.RconPassword,
		consolePath:  consolePath,
		queue:        logbuf.New(queueCap),
		readyCh:      make(chan struct{}),
		waitDone:     make(chan struct{}),
	}
}

func newDetachedRecord(pf *pidfile.File, dir, consolePath string, queueCap int) *Record {
	r := &Record{
		id:           pf.ServerID,
		mode:         ModeDetached,
		pid:          pf.PID,
		status:       StatusRunning,
		startedAt:    pf.StartedAt,
		dir:          dir,
		command:      append([]string(nil), pf.Command...),
		port:         pf.Port,
		rconPort:     pf.RconPort,
		rconPassword: pf.RconPassword,
		consolePath:  consolePath,
		queue:        logbuf.New(queueCap),
		readyCh:      make(chan struct{}),
		waitDone:     make(chan struct{}),
	}
	close(r.readyCh) // restored servers are running from birth
	return r
}

// bind fills in the spawn result on an attached record.
func (r *Record) bind(child *launch.Child, startedAt time.Time) {
	r.mu.Lock()
	r.child = child
	r.pid = child.Pid()
	r.startedAt = startedAt
	r.mu.Unlock()
}

func (r *Record) ID() string           { return r.id }
func (r *Record) Dir() string          { return r.dir }
func (r *Record) Mode() Mode           { return r.mode }
func (r *Record) Queue() *logbuf.Queue { return r.queue }
func (r *Record) ConsolePath() string  { return r.consolePath }

func (r *Record) PID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pid
}

func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Record) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

func (r *Record) Command() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.command...)
}

// transition applies a forward status move. It returns false when the move
// would go backwards or re-apply the current state, which makes racing
// observers (marker vs stability timer, stop vs crash detection) converge
// without double-notifying.
func (r *Record) transition(to Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if to <= r.status {
		return false
	}
	if r.status.Terminal() {
		return false
	}
	r.status = to
	if to == StatusRunning {
		select {
		case <-r.readyCh:
		default:
			close(r.readyCh)
		}
	}
	return true
}

func (r *Record) SetStopRequested() {
	r.mu.Lock()
	r.stopRequested = true
	r.mu.Unlock()
}

func (r *Record) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRequested
}

// markExited records the exit result and releases everyone waiting on
// waitDone. Safe to call from both the monitor and a racing stop.
func (r *Record) markExited(err error) {
	r.exitOnce.Do(func() {
		r.mu.Lock()
		r.exitErr = err
		r.mu.Unlock()
		close(r.waitDone)
	})
}

func (r *Record) ExitErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitErr
}

// Exited reports whether the process is already known to be gone.
func (r *Record) Exited() bool {
	select {
	case <-r.waitDone:
		return true
	default:
		return false
	}
}

// stdinWriter returns the command channel, or nil for detached records.
func (r *Record) stdinWriter() *launch.Child {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModeDetached || r.child == nil || r.child.Stdin == nil {
		return nil
	}
	return r.child
}
