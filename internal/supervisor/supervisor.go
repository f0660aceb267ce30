// Package supervisor launches, monitors, restores and terminates server
// processes independently of the supervisor's own lifetime. It composes the
// registry, monitor loops, log tailers and the shutdown state machine
// behind one facade.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/javaward/javaward/internal/launch"
	"github.com/javaward/javaward/internal/logbuf"
	"github.com/javaward/javaward/internal/logger"
	"github.com/javaward/javaward/internal/metrics"
	"github.com/javaward/javaward/internal/pidfile"
	"github.com/javaward/javaward/internal/probe"
	"github.com/javaward/javaward/internal/tail"
)

// Defaults applied by normalize.
const (
	DefaultGracefulTimeout = 30 * time.Second
	DefaultForceTimeout    = 10 * time.Second
	DefaultStabilityWindow = 5 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultLogPollInterval = time.Second
	DefaultStopCommand     = "stop"
)

// Options configures a Supervisor. Zero values get sensible defaults; the
// two policy toggles default to off.
type Options struct {
	// AutoSyncOnStartup gates DiscoverAndRestore entirely.
	AutoSyncOnStartup bool
	// KeepServersOnShutdown makes ShutdownAll leave children (and their
	// pidfiles) alone so the next startup can re-attach.
	KeepServersOnShutdown bool
	// AttachStdio keeps a stdin pipe open on spawned servers as the
	// console command channel. When false, spawns read /dev/null and
	// behave like restored servers (no command channel). Output goes to
	// the console file in both cases.
	AttachStdio bool

	GracefulTimeout time.Duration
	ForceTimeout    time.Duration
	StabilityWindow time.Duration
	PollInterval    time.Duration // detached liveness poll
	LogPollInterval time.Duration // detached console poll

	QueueCapacity int
	StopCommand   string // console command for a graceful stop
	ReadyMarker   tail.Marker

	Logger   *slog.Logger
	Notifier Notifier
}

func (o *Options) normalize() {
	if o.GracefulTimeout <= 0 {
		o.GracefulTimeout = DefaultGracefulTimeout
	}
	if o.ForceTimeout <= 0 {
		o.ForceTimeout = DefaultForceTimeout
	}
	if o.StabilityWindow <= 0 {
		o.StabilityWindow = DefaultStabilityWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.LogPollInterval <= 0 {
		o.LogPollInterval = DefaultLogPollInterval
	}
	if o.StopCommand == "" {
		o.StopCommand = DefaultStopCommand
	}
	if o.ReadyMarker.First == "" {
		o.ReadyMarker = tail.Marker{First: "Done", Second: "For help"}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// PreflightFunc validates a start request before any process is created
// (port availability, runtime compatibility, required files). Injected by
// the caller; a non-nil error aborts the start.
type PreflightFunc func(ctx context.Context, spec StartSpec) error

// Info is a point-in-time view of one supervised server.
type Info struct {
	ServerID  string        `json:"server_id"`
	PID       int           `json:"pid"`
	Status    Status        `json:"-"`
	StatusStr string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Uptime    time.Duration `json:"uptime"`
	Mode      Mode          `json:"-"`
	RconPort  int           `json:"rcon_port,omitempty"`
}

// Supervisor is the public facade. Construct once and inject; there are no
// package-level singletons.
type Supervisor struct {
	opts Options
	log  *slog.Logger
	reg  *registry
}

func New(opts Options) *Supervisor {
	opts.normalize()
	return &Supervisor{opts: opts, log: opts.Logger, reg: newRegistry()}
}

// Start validates, spawns and registers one server. At most one record may
// exist per server id: a concurrent or repeated Start loses with a
// StateError before anything is spawned. The call returns after the server
// either reaches running (readiness marker or stability window, whichever
// is first) or dies inside the window (VerificationError).
func (s *Supervisor) Start(ctx context.Context, spec StartSpec, preflight PreflightFunc) error {
	if spec.ServerID == "" {
		return &ValidationError{ServerID: spec.ServerID, Reason: "empty server id"}
	}
	if len(spec.Command) == 0 {
		return &ValidationError{ServerID: spec.ServerID, Reason: "empty command"}
	}
	if spec.Dir == "" {
		return &ValidationError{ServerID: spec.ServerID, Reason: "empty working directory"}
	}
	if spec.Port <= 0 {
		// the pidfile schema requires a port, and a file without one is
		// rejected on read; refusing here keeps every launch restorable
		return &ValidationError{ServerID: spec.ServerID, Reason: "missing server port"}
	}
	if preflight != nil {
		if err := preflight(ctx, spec); err != nil {
			return &ValidationError{ServerID: spec.ServerID, Reason: err.Error(), Err: err}
		}
	}

	consolePath := logger.ConsolePath(spec.Dir)
	rec := newAttachedRecord(spec, consolePath, s.opts.QueueCapacity)
	// the console file persists across runs; everything before this point
	// is a previous run's history and must not be tailed or marker-scanned
	rec.consoleOffset = consoleSize(consolePath)
	if !s.reg.put(rec) {
		return &StateError{Op: "start", ServerID: spec.ServerID, Reason: "already running"}
	}

	child, err := launch.Spawn(launch.Options{
		ServerID:    spec.ServerID,
		Command:     spec.Command,
		Dir:         spec.Dir,
		Env:         spec.Env,
		Interactive: s.opts.AttachStdio,
		ConsolePath: consolePath,
	})
	if err != nil {
		s.reg.remove(spec.ServerID)
		return &LaunchError{ServerID: spec.ServerID, Err: err}
	}
	rec.bind(child, time.Now())
	s.log.Info("server spawned", "server", spec.ServerID, "pid", rec.PID(), "dir", spec.Dir)
	metrics.IncSpawn(spec.ServerID)
	metrics.SetRunningServers(s.reg.size())
	s.notify(rec, StatusStarting)

	s.writePidFile(rec, spec)
	s.startTasks(rec)

	return s.awaitStartup(ctx, rec)
}

// writePidFile persists the process descriptor right after a successful
// spawn. Failure degrades restoration (this instance cannot be re-attached
// after a supervisor crash) but does not fail the launch.
func (s *Supervisor) writePidFile(rec *Record, spec StartSpec) {
	pf := pidfile.File{
		ServerID:     spec.ServerID,
		PID:          rec.PID(),
		Port:         spec.Port,
		StartedAt:    rec.StartedAt(),
		Command:      spec.Command,
		APIVersion:   pidfile.APIVersion,
		RconPort:     spec.RconPort,
		RconPassword: spec.RconPassword,
		StartUnix:    probe.StartTimeUnix(rec.PID()),
	}
	if err := pidfile.Write(spec.Dir, pf); err != nil {
		s.log.Error("pidfile write failed; restore disabled for this instance",
			"server", spec.ServerID, "error", err)
	}
}

// startTasks launches the monitor and tailer pair for rec. Their shared
// context is canceled by cleanup (or by ShutdownAll in keep mode). Both
// modes tail the console file the child writes directly; only the monitor
// strategy differs.
func (s *Supervisor) startTasks(rec *Record) {
	ctx, cancel := context.WithCancel(context.Background())
	rec.cancel = cancel

	t := &tail.Tailer{
		Queue:   rec.queue,
		Marker:  s.opts.ReadyMarker,
		Log:     s.log,
		OnReady: func() { s.markRunning(rec, "readiness marker") },
	}
	if rec.Mode() == ModeDetached {
		// restored servers are already running; no marker needed
		t.OnReady = nil
		go s.monitorDetached(ctx, rec)
	} else {
		go s.monitorAttached(ctx, rec)
	}
	go t.RunFile(ctx, rec.consolePath, s.opts.LogPollInterval, rec.consoleOffset)
}

// consoleSize returns the current console file size, 0 when it does not
// exist yet.
func consoleSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// awaitStartup blocks until the record leaves starting or dies.
func (s *Supervisor) awaitStartup(ctx context.Context, rec *Record) error {
	// the monitor guarantees one of these fires by the stability window;
	// the timer is a safety net only
	safety := time.NewTimer(2*s.opts.StabilityWindow + time.Second)
	defer safety.Stop()
	select {
	case <-rec.readyCh:
		return nil
	case <-rec.waitDone:
		return &VerificationError{ServerID: rec.id, Err: rec.ExitErr()}
	case <-ctx.Done():
		return ctx.Err()
	case <-safety.C:
		return nil
	}
}

// markRunning flips starting → running exactly once per record.
func (s *Supervisor) markRunning(rec *Record, why string) {
	if rec.transition(StatusRunning) {
		s.log.Info("server running", "server", rec.id, "pid", rec.PID(), "via", why)
		metrics.RecordStateTransition(rec.id, StatusStarting.String(), StatusRunning.String())
		s.notify(rec, StatusRunning)
	}
}

// SendCommand writes one line to the server's console. Detached/restored
// servers have no command channel and report ErrUnsupported; whether RCON
// should fill that gap is decided outside this core.
func (s *Supervisor) SendCommand(id, text string) error {
	rec := s.reg.get(id)
	if rec == nil {
		return &StateError{Op: "send command to", ServerID: id, Reason: "not running"}
	}
	child := rec.stdinWriter()
	if child == nil {
		return ErrUnsupported
	}
	if _, err := child.Stdin.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("server %s: console write: %w", id, err)
	}
	return nil
}

// Status reports the current state, with stopped for unknown ids: asking
// about a server that is not supervised is not an error.
func (s *Supervisor) Status(id string) Status {
	rec := s.reg.get(id)
	if rec == nil {
		return StatusStopped
	}
	return rec.Status()
}

// Info returns a snapshot for id, or nil when it is not supervised.
func (s *Supervisor) Info(id string) *Info {
	rec := s.reg.get(id)
	if rec == nil {
		return nil
	}
	st := rec.Status()
	started := rec.StartedAt()
	var up time.Duration
	if !started.IsZero() {
		up = time.Since(started)
	}
	return &Info{
		ServerID:  rec.id,
		PID:       rec.PID(),
		Status:    st,
		StatusStr: st.String(),
		StartedAt: started,
		Uptime:    up,
		Mode:      rec.Mode(),
		RconPort:  rec.rconPort,
	}
}

// List returns infos for every supervised server.
func (s *Supervisor) List() []*Info {
	recs := s.reg.list()
	out := make([]*Info, 0, len(recs))
	for _, rec := range recs {
		if info := s.Info(rec.id); info != nil {
			out = append(out, info)
		}
	}
	return out
}

// TailLogs returns up to maxLines of the most recent console lines for id,
// oldest first. Unknown ids yield an empty slice.
func (s *Supervisor) TailLogs(id string, maxLines int) []string {
	rec := s.reg.get(id)
	if rec == nil {
		return nil
	}
	lines := rec.queue.Tail(maxLines)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// StreamLogs subscribes to the live console of id. The channel delivers
// lines until cancel is called or the record is removed (the channel then
// closes); calling StreamLogs again opens a fresh subscription.
func (s *Supervisor) StreamLogs(id string) (<-chan logbuf.Line, func(), error) {
	rec := s.reg.get(id)
	if rec == nil {
		return nil, nil, &StateError{Op: "stream logs of", ServerID: id, Reason: "not running"}
	}
	ch, cancel := rec.queue.Subscribe()
	return ch, cancel, nil
}

// notify hands a transition to the configured notifier, isolating any
// panic so external status persistence can never crash supervision.
func (s *Supervisor) notify(rec *Record, st Status) {
	n := s.opts.Notifier
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("status notifier panicked", "server", rec.id, "status", st.String(), "panic", r)
		}
	}()
	n.OnStatusChange(rec.id, st)
}
