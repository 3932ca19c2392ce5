package litepool

import (
	"fmt"
	"time"
)

// worker is a single background goroutine that claims and executes tasks.
// Its idle flag is only ever touched by its own goroutine; the pool reads
// the aggregate idle counter instead.
type worker struct {
	// the worker id
	id string

	pool *Pool

	// whether this worker currently counts toward the pool's idle counter
	idle bool

	startTime time.Time
	stopTime  time.Time
}

// run is the per-worker state machine: wait for a task with an idle timeout,
// execute it, retire on timeout when the pool is above its minimum, and
// follow the pool status on every wake.
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.log.Info(fmt.Sprintf("worker %s started", w.id))

	timer := time.NewTimer(w.pool.MaxIdleTime())
	defer timer.Stop()

	for {
		switch w.pool.Status() {
		case Stopped:
			w.retire("pool stopped")
			return
		case Paused:
			w.setIdle(false)
			w.awaitResume()
			continue
		}

		w.setIdle(true)

		// grab the status signal before re-checking status, so a flip
		// between the check and the select below is never lost
		signal := w.pool.statusSignal()
		if w.pool.Status() != Running {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.pool.MaxIdleTime())

		select {
		case t := <-w.pool.tasks:
			w.setIdle(false)
			w.execute(t)
		case <-signal:
			// status changed, loop around and re-check
		case <-timer.C:
			if w.pool.tryRetire(w) {
				w.pool.log.Info(fmt.Sprintf("worker %s retired after %s idle", w.id, w.pool.MaxIdleTime()))
				return
			}
		}
	}
}

func (w *worker) execute(t *task) {
	p := w.pool
	defer p.pending.Add(-1)

	p.record(Event{TaskID: t.id, Kind: EventStarted, At: time.Now()})

	t.run()

	if _, err := t.res.Get(); err != nil {
		p.record(Event{TaskID: t.id, Kind: EventFailed, Error: err.Error(), At: time.Now()})
		return
	}
	p.record(Event{TaskID: t.id, Kind: EventCompleted, At: time.Now()})
}

// awaitResume blocks until the pool leaves the paused state. A paused worker
// counts toward the live worker count but not toward the idle counter.
func (w *worker) awaitResume() {
	signal := w.pool.statusSignal()
	if w.pool.Status() == Paused {
		<-signal
	}
}

func (w *worker) setIdle(idle bool) {
	if w.idle == idle {
		return
	}
	w.idle = idle
	if idle {
		w.pool.idle.Add(1)
	} else {
		w.pool.idle.Add(-1)
	}
}

func (w *worker) retire(reason string) {
	w.pool.removeWorker(w)
	w.pool.log.Info(fmt.Sprintf("worker %s stopped: %s", w.id, reason))
}
