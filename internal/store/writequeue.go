package store

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// WriteQueue is the bounded FIFO between the hot store and the durable
// SQL store. One consumer goroutine applies jobs in enqueue order, so all
// writes for a given match id land in issue order. Producers never block:
// a full queue routes the job straight to the dead-letter log.
type WriteQueue struct {
	db       *sqlx.DB
	jobs     chan Job
	backoffs []time.Duration

	deadLetterPath string
	deadMu         sync.Mutex

	warnAt int
	warnMu sync.Mutex
	warned bool

	wg sync.WaitGroup
}

// deadLetterRecord is one appended line in the dead-letter log.
type deadLetterRecord struct {
	Kind    string          `json:"kind"`
	MatchID int64           `json:"match_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	At      time.Time       `json:"at"`
}

// NewWriteQueue creates a queue of the given depth. backoffs are the
// retry delays between attempts; after they are exhausted the job is
// dead-lettered and the consumer moves on.
func NewWriteQueue(db *sqlx.DB, depth int, backoffs []time.Duration, deadLetterPath string) *WriteQueue {
	if depth <= 0 {
		depth = 10000
	}
	if len(backoffs) == 0 {
		backoffs = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}
	}
	return &WriteQueue{
		db:             db,
		jobs:           make(chan Job, depth),
		backoffs:       backoffs,
		deadLetterPath: deadLetterPath,
		warnAt:         depth * 8 / 10,
	}
}

// Enqueue hands a job to the consumer. Never blocks. The depth warning
// re-arms once the consumer works the queue back under the threshold.
func (q *WriteQueue) Enqueue(job Job) {
	depth := len(q.jobs)
	q.warnMu.Lock()
	switch {
	case depth >= q.warnAt && !q.warned:
		q.warned = true
		log.Printf("[WRITEQ] Queue at %d/%d jobs (80%% threshold); durable store is falling behind", depth, cap(q.jobs))
	case depth < q.warnAt && q.warned:
		q.warned = false
	}
	q.warnMu.Unlock()
	select {
	case q.jobs <- job:
	default:
		log.Printf("[WRITEQ] Queue full, dead-lettering %s job", job.Kind())
		q.deadLetter(job, "write queue full")
	}
}

// Depth returns the number of jobs waiting to be applied.
func (q *WriteQueue) Depth() int {
	return len(q.jobs)
}

// Start launches the single consumer goroutine.
func (q *WriteQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		log.Printf("[WRITEQ] Consumer started (depth=%d)", cap(q.jobs))
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WRITEQ] Consumer stopping (%d jobs left unapplied)", len(q.jobs))
				return
			case job := <-q.jobs:
				q.apply(ctx, job)
			}
		}
	}()
}

// Drain applies every queued job and stops the consumer. Used at
// graceful shutdown, after Start's context has been cancelled.
func (q *WriteQueue) Drain() {
	q.wg.Wait()
	for {
		select {
		case job := <-q.jobs:
			q.apply(context.Background(), job)
		default:
			log.Printf("[WRITEQ] Drained")
			return
		}
	}
}

// apply runs a job with retries. PersistenceFailure never propagates to
// the producer; the terminal failure goes to the dead-letter log and the
// consumer continues.
func (q *WriteQueue) apply(ctx context.Context, job Job) {
	var err error
	for attempt := 0; ; attempt++ {
		err = job.Apply(ctx, q.db)
		if err == nil {
			return
		}
		if attempt >= len(q.backoffs) {
			break
		}
		log.Printf("[WRITEQ] %s failed (attempt %d/%d): %v", job.Kind(), attempt+1, len(q.backoffs)+1, err)
		select {
		case <-ctx.Done():
			q.deadLetter(job, "shutdown during retry: "+err.Error())
			return
		case <-time.After(q.backoffs[attempt]):
		}
	}
	log.Printf("[WRITEQ] %s failed permanently: %v", job.Kind(), err)
	q.deadLetter(job, err.Error())
}

// deadLetter appends the job payload and terminal error to the log file.
func (q *WriteQueue) deadLetter(job Job, cause string) {
	payload, merr := json.Marshal(job)
	if merr != nil {
		payload = []byte(`{}`)
	}
	rec := deadLetterRecord{
		Kind:    job.Kind(),
		MatchID: job.MatchID(),
		Payload: payload,
		Error:   cause,
		At:      time.Now().UTC(),
	}
	line, merr := json.Marshal(rec)
	if merr != nil {
		log.Printf("[WRITEQ] Failed to marshal dead-letter record: %v", merr)
		return
	}

	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	f, err := os.OpenFile(q.deadLetterPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[WRITEQ] Failed to open dead-letter log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("[WRITEQ] Failed to append dead-letter record: %v", err)
	}
}
