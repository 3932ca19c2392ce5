package litepool

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultMinWorkers is the floor on live workers while the pool runs.
	DefaultMinWorkers = 1

	// DefaultMaxIdleTime is how long an idle worker waits for a task
	// before it becomes eligible to retire.
	DefaultMaxIdleTime = 250 * time.Millisecond

	// DefaultQueueSize is the task channel buffer. Submit blocks once the
	// buffer is full and every worker is busy.
	DefaultQueueSize = 1024

	waitPollInterval = time.Millisecond
)

// Pool is an elastic worker pool. Submissions are executed exactly once, in
// FIFO claim order, on a set of background goroutines that grows on demand up
// to a maximum and shrinks back toward a minimum after an idle timeout.
//
// Three independent locks guard the shared state and are never nested within
// each other: the task channel's own internal lock, the worker registry
// mutex, and the status signal mutex. The control mutex serializes
// Start/Stop/Pause/Resume and sits strictly outside all three.
type Pool struct {
	// channel from which workers claim work
	tasks chan *task

	// registry of live workers, keyed by worker id
	mu      sync.Mutex
	workers map[string]*worker

	// current and idle are mutated under mu but read lock-free by the
	// growth and retirement fast paths; those reads are heuristics only
	// and every decision is re-checked under mu before it commits.
	current atomic.Int64
	idle    atomic.Int64

	// pending counts tasks that are queued or executing, for Wait
	pending atomic.Int64

	minWorkers atomic.Int64
	maxWorkers atomic.Int64
	maxIdle    atomic.Int64 // nanoseconds

	status   atomic.Int32
	signalMu sync.Mutex
	signal   chan struct{} // closed and replaced on every status change

	// ctl serializes the control operations so an auto-starting Submit
	// cannot respawn workers while Stop is still joining the old ones
	ctl sync.Mutex

	wg  sync.WaitGroup
	log *slog.Logger
	rec Recorder
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool's logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithRecorder attaches a task lifecycle recorder, e.g. a journal backend.
func WithRecorder(rec Recorder) Option {
	return func(p *Pool) { p.rec = rec }
}

// WithQueueSize sets the task channel buffer.
func WithQueueSize(size int) Option {
	return func(p *Pool) { p.tasks = make(chan *task, size) }
}

// New returns a pool in the Stopped state with no workers. minWorkers
// defaults to 1, maxWorkers to the host's logical CPU count, and maxIdle to
// 250ms when zero or negative values are given.
func New(minWorkers, maxWorkers int, maxIdle time.Duration, opts ...Option) *Pool {
	if minWorkers <= 0 {
		minWorkers = DefaultMinWorkers
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdleTime
	}

	p := &Pool{
		tasks:   make(chan *task, DefaultQueueSize),
		workers: make(map[string]*worker),
		signal:  make(chan struct{}),
	}
	p.minWorkers.Store(int64(minWorkers))
	p.maxWorkers.Store(int64(maxWorkers))
	p.maxIdle.Store(int64(maxIdle))

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	return p
}

// Start transitions the pool to Running and spawns max(startWorkers,
// MinWorkers()) workers, capped at MaxWorkers(). It returns
// ErrAlreadyStarted if the pool is not stopped.
func (p *Pool) Start(startWorkers int) error {
	p.ctl.Lock()
	defer p.ctl.Unlock()

	if p.Status() != Stopped {
		return ErrAlreadyStarted
	}
	p.setStatus(Running)

	n := startWorkers
	if min := p.effectiveMin(); n < min {
		n = min
	}
	for i := 0; i < n; i++ {
		if !p.createWorker() {
			break
		}
	}

	p.log.Info("pool started", "workers", p.CurrentWorkers())
	return nil
}

// Stop transitions the pool to Stopped, wakes every worker, joins them all
// and abandons whatever is still queued: each worker finishes only the task
// it has already claimed, and the result handles of unclaimed tasks never
// resolve. The pool may be started again afterwards. Returns
// ErrAlreadyStopped if the pool is already stopped.
func (p *Pool) Stop() error {
	p.ctl.Lock()
	defer p.ctl.Unlock()

	if p.Status() == Stopped {
		return ErrAlreadyStopped
	}
	p.setStatus(Stopped)

	// any createWorker that read the old status holds mu across its
	// registration; taking mu once here means every in-flight wg.Add has
	// landed before the join starts, and later ones observe Stopped
	p.mu.Lock()
	p.mu.Unlock()

	// every worker deregisters itself before signalling the wait group
	p.wg.Wait()

	// abandon queued tasks so a later Start begins with an empty queue
	abandoned := 0
	for {
		select {
		case <-p.tasks:
			p.pending.Add(-1)
			abandoned++
		default:
			if abandoned > 0 {
				p.log.Info("abandoned queued tasks on stop", "count", abandoned)
			}
			p.log.Info("pool stopped")
			return nil
		}
	}
}

// Pause makes workers hold their position: busy workers finish the task they
// already claimed, then block with the idle ones until Resume or Stop.
// Submissions keep queueing during a pause. Returns ErrNotRunning if the
// pool is stopped or already paused.
func (p *Pool) Pause() error {
	p.ctl.Lock()
	defer p.ctl.Unlock()

	if p.Status() != Running {
		return ErrNotRunning
	}
	p.setStatus(Paused)
	p.log.Info("pool paused")
	return nil
}

// Resume wakes paused workers and lets them drain the queue again. Returns
// ErrNotPaused if the pool is not paused.
func (p *Pool) Resume() error {
	p.ctl.Lock()
	defer p.ctl.Unlock()

	if p.Status() != Paused {
		return ErrNotPaused
	}
	p.setStatus(Running)
	p.log.Info("pool resumed")
	return nil
}

// Wait blocks until the queue is empty and no worker is executing a task.
// It is a best-effort barrier: a concurrent Submit can add new work right
// after Wait returns.
func (p *Pool) Wait() {
	tick := time.NewTicker(waitPollInterval)
	defer tick.Stop()

	for p.pending.Load() > 0 {
		<-tick.C
	}
}

// Submit binds job into a task, enqueues it and returns its result handle.
// A stopped pool is started implicitly. If no worker is idle and the pool is
// below its maximum, one extra worker is spawned before enqueueing; that
// check is deliberately racy and re-validated under the registry lock, so
// near-simultaneous submissions can at worst waste a spawn attempt, never
// exceed the maximum.
func (p *Pool) Submit(job Job) *Result {
	if p.IsStopped() {
		_ = p.Start(0)
	}

	if p.idle.Load() == 0 && p.current.Load() < p.effectiveMax() {
		p.createWorker()
	}

	t := &task{
		id:  ulid.Make().String(),
		job: job,
		res: newResult(),
	}

	p.pending.Add(1)
	p.record(Event{TaskID: t.id, Kind: EventSubmitted, At: time.Now()})
	p.tasks <- t

	return t.res
}

// SetMinWorkers updates the worker floor. Takes effect on the next
// retirement decision, never retroactively.
func (p *Pool) SetMinWorkers(n int) { p.minWorkers.Store(int64(n)) }

// SetMaxWorkers updates the worker ceiling. Lowering it does not kill excess
// workers; they drain out via the idle timeout.
func (p *Pool) SetMaxWorkers(n int) { p.maxWorkers.Store(int64(n)) }

// SetMaxIdleTime updates how long an idle worker waits before retiring.
func (p *Pool) SetMaxIdleTime(d time.Duration) { p.maxIdle.Store(int64(d)) }

// MinWorkers returns the configured worker floor.
func (p *Pool) MinWorkers() int { return int(p.minWorkers.Load()) }

// MaxWorkers returns the configured worker ceiling.
func (p *Pool) MaxWorkers() int { return int(p.maxWorkers.Load()) }

// MaxIdleTime returns the configured idle timeout.
func (p *Pool) MaxIdleTime() time.Duration { return time.Duration(p.maxIdle.Load()) }

// CurrentWorkers returns a snapshot of the live worker count.
func (p *Pool) CurrentWorkers() int { return int(p.current.Load()) }

// IdleWorkers returns a snapshot of the idle worker count.
func (p *Pool) IdleWorkers() int { return int(p.idle.Load()) }

// Status returns the pool's lifecycle state.
func (p *Pool) Status() Status { return Status(p.status.Load()) }

// IsStarted reports whether the pool is running or paused.
func (p *Pool) IsStarted() bool { return p.Status() != Stopped }

// IsStopped reports whether the pool is stopped.
func (p *Pool) IsStopped() bool { return p.Status() == Stopped }

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Status  Status
	Current int
	Idle    int
	Queued  int
	Min     int
	Max     int
}

// Stats returns a snapshot of the pool's counters and configuration.
func (p *Pool) Stats() Stats {
	return Stats{
		Status:  p.Status(),
		Current: p.CurrentWorkers(),
		Idle:    p.IdleWorkers(),
		Queued:  len(p.tasks),
		Min:     p.MinWorkers(),
		Max:     p.MaxWorkers(),
	}
}

// effectiveMin clamps the floor to the ceiling when they are configured
// inconsistently; the ceiling wins.
func (p *Pool) effectiveMin() int {
	min, max := p.MinWorkers(), p.MaxWorkers()
	if min > max {
		return max
	}
	return min
}

func (p *Pool) effectiveMax() int64 { return p.maxWorkers.Load() }

// setStatus flips the shared status and broadcasts by closing the current
// signal channel and replacing it. Every waiting worker wakes, re-checks the
// status and adjusts.
func (p *Pool) setStatus(s Status) {
	p.signalMu.Lock()
	p.status.Store(int32(s))
	close(p.signal)
	p.signal = make(chan struct{})
	p.signalMu.Unlock()
}

func (p *Pool) statusSignal() <-chan struct{} {
	p.signalMu.Lock()
	defer p.signalMu.Unlock()
	return p.signal
}

// createWorker spawns and registers one worker starting idle. The bound is
// re-checked under the registry lock, making the lock-free check in Submit
// safe to race.
func (p *Pool) createWorker() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Status() == Stopped {
		return false
	}
	if p.current.Load() >= p.effectiveMax() {
		return false
	}

	w := &worker{
		id:        ulid.Make().String(),
		pool:      p,
		idle:      true,
		startTime: time.Now(),
	}
	p.workers[w.id] = w
	p.current.Add(1)
	p.idle.Add(1)
	p.wg.Add(1)
	go w.run()

	return true
}

// tryRetire deregisters w if the pool is still above its worker floor.
// Called by an idle worker whose timeout elapsed; the floor is re-checked
// under the registry lock.
func (p *Pool) tryRetire(w *worker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current.Load() <= int64(p.effectiveMin()) {
		return false
	}
	p.deregister(w)
	return true
}

// removeWorker deregisters w unconditionally, on stop or pause teardown.
func (p *Pool) removeWorker(w *worker) {
	p.mu.Lock()
	p.deregister(w)
	p.mu.Unlock()
}

// deregister must be called with mu held.
func (p *Pool) deregister(w *worker) {
	if _, ok := p.workers[w.id]; !ok {
		return
	}
	delete(p.workers, w.id)
	w.stopTime = time.Now()
	p.current.Add(-1)
	if w.idle {
		w.idle = false
		p.idle.Add(-1)
	}
}

func (p *Pool) record(ev Event) {
	if p.rec == nil {
		return
	}
	if err := p.rec.Record(context.Background(), ev); err != nil {
		p.log.Error(err.Error(), "task_id", ev.TaskID, "event", string(ev.Kind))
	}
}
