package redis

import (
	"context"
	"strings"
	"time"

	"github.com/lennsky/litepool"
	"github.com/lennsky/litepool/packer"
	"github.com/redis/go-redis/v9"
)

// Recorder is a Redis-backed task journal. Per-kind counters accumulate in a
// hash and the per-task event stream lives in a list that expires after ttl;
// the counters are cumulative and never expire.
type Recorder struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
}

type Option func(*Recorder)

func WithPrefix(prefix string) Option {
	return func(r *Recorder) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

func WithTTL(d time.Duration) Option {
	return func(r *Recorder) { r.ttl = d }
}

func NewRecorder(rdb *redis.Client, opts ...Option) *Recorder {
	r := &Recorder{
		rdb:    rdb,
		prefix: "litepool:journal",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements litepool.Recorder.
func (r *Recorder) Record(ctx context.Context, ev litepool.Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	raw, err := packer.EncodeEvent(&ev)
	if err != nil {
		return err
	}

	taskKey := r.prefix + ":task:" + ev.TaskID

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":totals", string(ev.Kind), 1)
	pipe.RPush(ctx, taskKey, raw)
	if r.ttl > 0 {
		pipe.Expire(ctx, taskKey, r.ttl)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative per-kind event counters.
func (r *Recorder) Totals(ctx context.Context) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, r.prefix+":totals").Result()
}

// TaskEvents returns the recorded event stream for a task, oldest first.
func (r *Recorder) TaskEvents(ctx context.Context, taskID string) ([]litepool.Event, error) {
	rows, err := r.rdb.LRange(ctx, r.prefix+":task:"+taskID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]litepool.Event, 0, len(rows))
	for _, raw := range rows {
		ev, err := packer.DecodeEvent([]byte(raw))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}
