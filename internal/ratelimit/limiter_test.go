package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestSubmitRunsJobs(t *testing.T) {
	l := New(8, time.Millisecond)
	defer l.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		ok := l.Submit(func() {
			mu.Lock()
			got = append(got, i)
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
		})
		if !ok {
			t.Fatalf("Submit %d rejected", i)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Errorf("jobs ran out of order: %v", got)
			break
		}
	}
}

func TestSubmitEnforcesSpacing(t *testing.T) {
	const delay = 30 * time.Millisecond
	l := New(8, delay)
	defer l.Close()

	var mu sync.Mutex
	var stamps []time.Time
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		l.Submit(func() {
			mu.Lock()
			stamps = append(stamps, time.Now())
			if len(stamps) == 3 {
				close(done)
			}
			mu.Unlock()
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < delay {
			t.Errorf("jobs %d and %d only %v apart, want >= %v", i-1, i, gap, delay)
		}
	}
}

func TestSubmitDropsWhenFull(t *testing.T) {
	l := New(1, time.Hour) // worker blocks on the spacing sleep
	defer l.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	l.Submit(func() {
		close(started)
		<-block
	})
	<-started
	close(block)

	// The worker is now sleeping for an hour; fill the queue.
	if !l.Submit(func() {}) {
		t.Fatal("first queued job rejected")
	}
	if l.Submit(func() {}) {
		t.Error("expected drop when queue is full")
	}
	if l.Depth() != 1 {
		t.Errorf("Depth = %d, want 1", l.Depth())
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	l := New(8, time.Millisecond)
	defer l.Close()

	done := make(chan struct{})
	l.Submit(func() { panic("bad presenter") })
	l.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a panicking job")
	}
}
