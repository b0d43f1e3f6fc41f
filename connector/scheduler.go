package connector

// Scheduler runs a task on a later turn, after the caller has returned.
type Scheduler interface {
	Defer(task func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(task func())

func (f SchedulerFunc) Defer(task func()) { f(task) }

// GoScheduler runs each deferred task on its own goroutine.
var GoScheduler Scheduler = SchedulerFunc(func(task func()) { go task() })

// FlagStore persists whether the user left a connector connected, so that a
// deliberate disconnect survives restarts.
type FlagStore interface {
	ConnectedFlag(connectorID string) (connected, ok bool)
	SetConnectedFlag(connectorID string, connected bool) error
}
