package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lennsky/litepool"
	"github.com/stretchr/testify/require"
)

var slogger = slog.New(slog.NewTextHandler(os.Stdout, nil))

func newTestJournal(t *testing.T) *Sqlite {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "litepool.db")
	s, err := NewSqlite(dbPath, slogger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestSqlite_RecordAndReadBack(t *testing.T) {
	ctx := context.Background()
	s := newTestJournal(t)

	taskID := "01HV2Z0000000000000000TASK"
	events := []litepool.Event{
		{TaskID: taskID, Kind: litepool.EventSubmitted, At: time.Now().UTC()},
		{TaskID: taskID, Kind: litepool.EventStarted, At: time.Now().UTC()},
		{TaskID: taskID, Kind: litepool.EventFailed, Error: "boom", At: time.Now().UTC()},
	}
	for _, ev := range events {
		require.NoError(t, s.Record(ctx, ev))
	}

	got, err := s.TaskEvents(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, litepool.EventSubmitted, got[0].Kind)
	require.Equal(t, litepool.EventStarted, got[1].Kind)
	require.Equal(t, litepool.EventFailed, got[2].Kind)
	require.Equal(t, "boom", got[2].Error)

	other, err := s.TaskEvents(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestSqlite_JournalsPoolLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestJournal(t)

	p := litepool.New(1, 2, 0, litepool.WithLogger(slogger), litepool.WithRecorder(s))
	defer func() { require.NoError(t, p.Stop()) }()

	res := p.Submit(func() (any, error) { return "ok", nil })
	_, err := res.Get()
	require.NoError(t, err)
	p.Wait()

	var rows []string
	require.NoError(t, s.db.SelectContext(ctx, &rows, `SELECT kind FROM task_events ORDER BY rowid`))
	require.Equal(t, []string{"submitted", "started", "completed"}, rows)
}
