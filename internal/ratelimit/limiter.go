// Package ratelimit spaces out low-priority outbound presenter calls.
// Critical notifications (match found, confirmation prompts) bypass it;
// only bulk fan-outs, abort embeds and reminders go through here, so a
// full queue drops the job rather than blocking the caller.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

// Limiter drains a bounded queue on a single worker, invoking each job
// at least MinDelay after the previous one. The worker starts lazily on
// the first submission.
type Limiter struct {
	MinDelay time.Duration

	jobs chan func()

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a limiter with the given queue capacity and minimum
// spacing between jobs.
func New(queueSize int, minDelay time.Duration) *Limiter {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if minDelay <= 0 {
		minDelay = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		MinDelay: minDelay,
		jobs:     make(chan func(), queueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Submit queues a job, fire-and-forget. Returns false when the queue is
// full and the job was dropped.
func (l *Limiter) Submit(job func()) bool {
	l.startOnce.Do(func() { go l.run() })
	select {
	case l.jobs <- job:
		return true
	default:
		log.Printf("[RATELIMIT] Queue full (%d), dropping job", cap(l.jobs))
		return false
	}
}

// Depth returns the number of queued jobs.
func (l *Limiter) Depth() int {
	return len(l.jobs)
}

// Close stops the worker. Queued jobs are discarded.
func (l *Limiter) Close() {
	l.startOnce.Do(func() { go l.run() })
	l.cancel()
	<-l.done
}

func (l *Limiter) run() {
	defer close(l.done)
	log.Printf("[RATELIMIT] Worker started (min delay %v)", l.MinDelay)
	for {
		select {
		case <-l.ctx.Done():
			log.Printf("[RATELIMIT] Worker stopped (%d jobs dropped)", len(l.jobs))
			return
		case job := <-l.jobs:
			runJob(job)
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(l.MinDelay):
			}
		}
	}
}

// runJob isolates panics so one bad presenter call cannot kill the worker.
func runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[RATELIMIT] Job panicked: %v", r)
		}
	}()
	job()
}
