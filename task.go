package litepool

import (
	"fmt"
	"sync"
)

// Job is a bound, zero-argument unit of work. Capture any arguments in the
// closure at submission time; the pool never evaluates anything lazily.
type Job func() (any, error)

// Result is the one-shot handle returned by Submit. It resolves exactly once,
// when the executing worker returns a value or an error (a panic inside the
// job is captured as an error wrapping ErrPanic). Tasks still queued when the
// pool is stopped are abandoned and their results never resolve.
type Result struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Done returns a channel that is closed once the result is ready.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Get blocks until the result is ready and returns the job's value or error.
func (r *Result) Get() (any, error) {
	<-r.done
	return r.value, r.err
}

func (r *Result) resolve(value any, err error) {
	r.once.Do(func() {
		r.value = value
		r.err = err
		close(r.done)
	})
}

// task pairs a job with its id and result handle. It is owned by the task
// channel until exactly one worker claims it.
type task struct {
	id  string
	job Job
	res *Result
}

func (t *task) run() {
	defer func() {
		if v := recover(); v != nil {
			t.res.resolve(nil, fmt.Errorf("%w: %v", ErrPanic, v))
		}
	}()

	value, err := t.job()
	t.res.resolve(value, err)
}
