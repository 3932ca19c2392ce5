// Package litepool is an elastic worker pool. Submitted jobs run exactly
// once, in FIFO claim order, on background goroutines that grow on demand up
// to a configured maximum and shrink back toward a minimum after an idle
// timeout. The pool can be paused, resumed, stopped and restarted, and every
// submission returns a one-shot result handle.
//
//	p := litepool.New(1, 4, 250*time.Millisecond)
//	res := p.Submit(func() (any, error) {
//		return compute(), nil
//	})
//	v, err := res.Get()
//
// Task lifecycle events can be mirrored into a journal (in-memory, SQLite or
// Redis backed) by attaching a Recorder with WithRecorder.
package litepool
