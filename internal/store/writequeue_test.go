package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scevolution/ladder/internal/models"
)

// fakeJob counts attempts and fails the first FailTimes applications.
type fakeJob struct {
	Name      string `json:"name"`
	FailTimes int    `json:"fail_times"`
	attempts  *int
	order     *[]string
}

func (j fakeJob) Kind() string   { return j.Name }
func (j fakeJob) MatchID() int64 { return 0 }

func (j fakeJob) Apply(ctx context.Context, db *sqlx.DB) error {
	*j.attempts++
	if j.order != nil {
		*j.order = append(*j.order, j.Name)
	}
	if *j.attempts <= j.FailTimes {
		return errors.New("simulated failure")
	}
	return nil
}

func fastBackoffs() []time.Duration {
	return []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
}

func TestWriteQueueAppliesInOrder(t *testing.T) {
	q := NewWriteQueue(nil, 16, fastBackoffs(), filepath.Join(t.TempDir(), "dead.jsonl"))

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		attempts := 0
		q.Enqueue(fakeJob{Name: name, attempts: &attempts, order: &order})
	}
	q.Drain()

	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestWriteQueueRetriesThenSucceeds(t *testing.T) {
	q := NewWriteQueue(nil, 16, fastBackoffs(), filepath.Join(t.TempDir(), "dead.jsonl"))

	attempts := 0
	q.Enqueue(fakeJob{Name: "flaky", FailTimes: 2, attempts: &attempts})
	q.Drain()

	assert.Equal(t, 3, attempts)
}

func TestWriteQueueDeadLettersAfterRetries(t *testing.T) {
	deadPath := filepath.Join(t.TempDir(), "dead.jsonl")
	q := NewWriteQueue(nil, 16, fastBackoffs(), deadPath)

	attempts := 0
	q.Enqueue(fakeJob{Name: "doomed", FailTimes: 100, attempts: &attempts})
	q.Drain()

	// 1 initial attempt + one per backoff.
	assert.Equal(t, 4, attempts)

	raw, err := os.ReadFile(deadPath)
	require.NoError(t, err)
	var rec struct {
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "doomed", rec.Kind)
	assert.Equal(t, "simulated failure", rec.Error)
}

func TestWriteQueueFullNeverBlocks(t *testing.T) {
	deadPath := filepath.Join(t.TempDir(), "dead.jsonl")
	q := NewWriteQueue(nil, 1, fastBackoffs(), deadPath)

	a, b := 0, 0
	q.Enqueue(fakeJob{Name: "kept", attempts: &a})
	// No consumer running: the second enqueue must dead-letter, not block.
	q.Enqueue(fakeJob{Name: "overflow", attempts: &b})

	assert.Equal(t, 1, q.Depth())
	raw, err := os.ReadFile(deadPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"overflow"`)
	assert.Contains(t, string(raw), "write queue full")
}

func TestWriteQueueDepthWarningRearms(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	q := NewWriteQueue(nil, 5, fastBackoffs(), filepath.Join(t.TempDir(), "dead.jsonl"))

	fill := func() {
		for i := 0; i < 5; i++ {
			attempts := 0
			q.Enqueue(fakeJob{Name: "bulk", attempts: &attempts})
		}
	}

	fill() // last enqueue sees the 80% threshold and warns
	q.Drain()
	fill() // first enqueue after the drain re-arms, last warns again
	q.Drain()

	warnings := strings.Count(buf.String(), "80% threshold")
	require.Equal(t, 2, warnings, "warning must recur after the queue drains and refills")
}

func TestWriteQueueConsumerAppliesAcrossStart(t *testing.T) {
	q := NewWriteQueue(nil, 16, fastBackoffs(), filepath.Join(t.TempDir(), "dead.jsonl"))
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	attempts := 0
	q.Enqueue(fakeJob{Name: "live", attempts: &attempts})

	deadline := time.After(2 * time.Second)
	for attempts == 0 {
		select {
		case <-deadline:
			t.Fatal("consumer never applied the job")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	q.Drain()
}

func TestInsertCommandCallJobSQL(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "sqlmock")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO command_calls").
		WithArgs(int64(42), "queue_enter", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := InsertCommandCallJob{Call: models.CommandCall{DiscordUID: 42, Command: "queue_enter", At: at}}
	require.NoError(t, job.Apply(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMatchJobMissingRow(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "sqlmock")

	mock.ExpectExec("UPDATE matches_1v1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	job := UpdateMatchJob{Match: models.Match{ID: 7}}
	err = job.Apply(context.Background(), db)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
