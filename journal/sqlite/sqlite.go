package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lennsky/litepool"
	"github.com/lennsky/litepool/packer"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

var createTaskEvents = `create table if not exists task_events (
		id TEXT not null primary key,
		task_id TEXT not null,
		kind TEXT not null,
		error TEXT not null default '',
		payload BLOB,
		created_at TEXT not null default (strftime('%Y-%m-%dT%H:%M:%fZ'))
	) strict;`

var insertTaskEvent = `INSERT INTO task_events (id, task_id, kind, error, payload) VALUES ($1, $2, $3, $4, $5)`

var selectTaskEvents = `SELECT payload FROM task_events WHERE task_id = $1 ORDER BY rowid`

// Sqlite is a durable task journal: every pool lifecycle event becomes a row,
// with the full event stored msgpack-encoded alongside the indexed columns.
type Sqlite struct {
	logger *slog.Logger
	db     *sqlx.DB
}

func NewSqlite(dbPath string, logger *slog.Logger) (*Sqlite, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?cache=shared&mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, err
	}

	_, err = db.Exec("PRAGMA journal_size_limit = 67108864;")
	if err != nil {
		return nil, err
	}

	s := &Sqlite{db: db, logger: logger}

	err = s.inTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err = tx.ExecContext(context.Background(), createTaskEvents)
		return err
	})

	return s, err
}

// Record implements litepool.Recorder.
func (s *Sqlite) Record(ctx context.Context, ev litepool.Event) error {
	raw, err := packer.EncodeEvent(&ev)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, insertTaskEvent, ulid.Make().String(), ev.TaskID, string(ev.Kind), ev.Error, raw)
		return err
	})
}

// TaskEvents returns every recorded event for a task, in insertion order.
func (s *Sqlite) TaskEvents(ctx context.Context, taskID string) ([]litepool.Event, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows, selectTaskEvents, taskID); err != nil {
		return nil, err
	}

	events := make([]litepool.Event, 0, len(rows))
	for _, raw := range rows {
		ev, err := packer.DecodeEvent(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func (s *Sqlite) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v: %w", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
