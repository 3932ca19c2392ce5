package litepool

import "errors"

// Status is the shared lifecycle state of a Pool. It is stored in a single
// atomic so every worker's wake-and-check sees one consistent value.
type Status int32

const (
	// Stopped means no workers are alive. A pool is constructed Stopped
	// and returns to Stopped after Stop.
	Stopped Status = iota

	// Running means workers are draining the task queue.
	Running

	// Paused means workers hold their position: busy workers finish the
	// task they already claimed, then block until Resume or Stop.
	Paused
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyStarted is returned by Start when the pool is not stopped.
	ErrAlreadyStarted = errors.New("pool is already started")

	// ErrAlreadyStopped is returned by Stop when the pool is already stopped.
	ErrAlreadyStopped = errors.New("pool is already stopped")

	// ErrNotRunning is returned by Pause when the pool is stopped or paused.
	ErrNotRunning = errors.New("pool is not running")

	// ErrNotPaused is returned by Resume when there is nothing to resume.
	ErrNotPaused = errors.New("pool is not paused")

	// ErrPanic wraps the recovered value of a task that panicked. The panic
	// is carried in the task's result, never propagated to the worker.
	ErrPanic = errors.New("task panicked")

	// ErrThrottled is returned by Throttle.Submit when the rate limiter
	// has no token available.
	ErrThrottled = errors.New("submission throttled")
)
