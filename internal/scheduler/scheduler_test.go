package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"*/5 * * * *", "0 3 * * 1", "@hourly", "@every 10m"}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("expected %q to be valid, got %v", expr, err)
		}
	}

	invalid := []string{"", "* * *", "61 * * * *", "@sometimes"}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("expected %q to be invalid", expr)
		}
	}
}

func TestNextDue(t *testing.T) {
	from := time.Date(2024, 3, 10, 12, 7, 30, 0, time.UTC)

	next, err := NextDue("*/15 * * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 10, 12, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}

	next, err = NextDue("@every 1h", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := from.Add(time.Hour); !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}

	if _, err := NextDue("bogus", from); err == nil {
		t.Error("expected error")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Expr: "@hourly"}); !errors.Is(err, ErrNoJob) {
		t.Errorf("expected ErrNoJob, got %v", err)
	}

	job := func(context.Context) error { return nil }
	if _, err := New(Config{Expr: "nope", Job: job}); err == nil {
		t.Error("expected error for bad expression")
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	sched, err := New(Config{
		Expr:       "@yearly",
		RunOnStart: true,
		Job: func(context.Context) error {
			ran <- struct{}{}
			return errors.New("logged, not fatal")
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run on start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_WaitsForOnStartRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	sched, err := New(Config{
		Expr:       "@yearly",
		RunOnStart: true,
		Job: func(context.Context) error {
			close(started)
			time.Sleep(300 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run on start")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if !finished.Load() {
		t.Error("Run returned before the on-start job finished")
	}
}
