package litepool

import (
	"context"
	"sync"
	"time"
)

// EventKind is the lifecycle stage a task event describes.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is one task lifecycle notification. Submitted is recorded by the
// submission front-end; started and completed/failed by the executing worker.
type Event struct {
	TaskID string    `json:"task_id" db:"task_id" msgpack:"task_id"`
	Kind   EventKind `json:"kind" db:"kind" msgpack:"kind"`
	Error  string    `json:"error,omitempty" db:"error" msgpack:"error"`
	At     time.Time `json:"at" db:"at" msgpack:"at"`
}

// A Recorder receives task lifecycle events from the pool. Implementations
// must be safe for concurrent use; Record is called from worker goroutines.
// Recorder failures are logged by the pool and never affect task execution.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// The RecorderFunc type is an adapter to allow the use of ordinary functions
// as a Recorder.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record calls fn(ctx, ev).
func (fn RecorderFunc) Record(ctx context.Context, ev Event) error {
	return fn(ctx, ev)
}

// MemoryRecorder keeps events in memory. Useful for tests and development;
// it never expires anything.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
	byKind map[EventKind]int
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		byKind: make(map[EventKind]int),
	}
}

func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, ev)
	m.byKind[ev.Kind]++
	return nil
}

// Events returns a copy of every recorded event, in arrival order.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (m *MemoryRecorder) Count(kind EventKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKind[kind]
}
