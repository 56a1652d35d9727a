package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context) error { return nil })
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunImmediateCycle(t *testing.T) {
	s := New(Options{Interval: time.Hour, Immediate: true}, zerolog.Nop())

	var cycles atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = s.Run(ctx, func(ctx context.Context) error {
			cycles.Add(1)
			cancel()
			return nil
		})
	}()

	deadline := time.Now().Add(time.Second)
	for cycles.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("immediate cycle never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunSurvivesCycleErrors(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	var cycles atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = s.Run(ctx, func(ctx context.Context) error {
			if cycles.Add(1) >= 3 {
				cancel()
			}
			return errors.New("cycle failed")
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for cycles.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("loop must keep ticking through failures, got %d cycles", cycles.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
