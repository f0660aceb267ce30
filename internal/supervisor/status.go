package supervisor

// Status is the lifecycle state of a supervised server. Per server the
// sequence only ever moves forward (starting → running → stopping →
// stopped), with error reachable from anywhere; the rank ordering below
// enforces that.
type Status int

const (
	StatusStarting Status = iota
	StatusRunning
	StatusStopping
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s Status) Terminal() bool { return s == StatusStopped || s == StatusError }

// Notifier receives status transitions. The supervisor holds a single
// reference and isolates panics/misbehavior so a notifier can never take
// supervision down. Database persistence of status lives behind this
// interface, outside the core.
type Notifier interface {
	OnStatusChange(serverID string, status Status)
}
