package litepool

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle is a token-bucket gate in front of a pool's submission path, for
// callers that need to cap how fast work enters the queue.
type Throttle struct {
	pool *Pool
	lim  *rate.Limiter
}

// NewThrottle wraps p with a limiter allowing rps submissions per second
// with the given burst.
func NewThrottle(p *Pool, rps float64, burst int) *Throttle {
	return &Throttle{
		pool: p,
		lim:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Submit enqueues job if a token is available, otherwise it returns
// ErrThrottled without touching the pool.
func (t *Throttle) Submit(job Job) (*Result, error) {
	if !t.lim.Allow() {
		return nil, ErrThrottled
	}
	return t.pool.Submit(job), nil
}

// SubmitWait blocks until a token is available or ctx is done, then
// enqueues job.
func (t *Throttle) SubmitWait(ctx context.Context, job Job) (*Result, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return t.pool.Submit(job), nil
}
