package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddJobFires(t *testing.T) {
	var calls atomic.Int32
	sched := New(nil)

	err := sched.AddJob("digest", "@every 1s", func(ctx context.Context) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	if err := sched.Start(ctx); err != context.DeadlineExceeded {
		t.Errorf("Start returned %v", err)
	}

	if calls.Load() == 0 {
		t.Error("expected at least one call")
	}
}

func TestJobReceivesSchedulerContext(t *testing.T) {
	done := make(chan error, 1)
	sched := New(nil)
	sched.AddJob("ctx", "@every 1s", func(ctx context.Context) {
		select {
		case done <- ctx.Err():
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Start(ctx)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("job context already done: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestPanickingJobDoesNotStopScheduler(t *testing.T) {
	var calls atomic.Int32
	sched := New(nil)
	sched.AddJob("boom", "@every 1s", func(context.Context) {
		calls.Add(1)
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	sched.Start(ctx)

	if calls.Load() < 2 {
		t.Errorf("expected repeated runs, got %d", calls.Load())
	}
}

func TestReplaceAndRemove(t *testing.T) {
	sched := New(nil)
	noop := func(context.Context) {}

	sched.AddJob("purge", "@hourly", noop)
	sched.AddJob("digest", "0 9 * * 1-5", noop)
	sched.AddJob("purge", "@every 5m", noop)

	if got := sched.Jobs(); len(got) != 2 || got[0] != "digest" || got[1] != "purge" {
		t.Errorf("Jobs = %v", got)
	}
	if _, ok := sched.Next("purge"); ok {
		t.Error("Next should be unknown before Start")
	}

	sched.RemoveJob("purge")
	sched.RemoveJob("ghost")
	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}
}

func TestInvalidSchedule(t *testing.T) {
	sched := New(nil)
	err := sched.AddJob("digest", "invalid-cron", func(context.Context) {})
	if err == nil {
		t.Error("expected error for invalid schedule")
	}
}
