package tools

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestFanOutPartialFailure(t *testing.T) {
	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	// Items 0-2 fail, 3-9 succeed.
	outcome, err := FanOut(context.Background(), items, 10, 3, func(ctx context.Context, n int) (string, error) {
		if n < 3 {
			return "", fmt.Errorf("item %d unavailable", n)
		}
		return fmt.Sprintf("transcript-%d", n), nil
	})
	if err != nil {
		t.Fatalf("partial failure must not fail the batch: %v", err)
	}

	if len(outcome.Succeeded) != 7 {
		t.Errorf("expected 7 successes, got %d", len(outcome.Succeeded))
	}
	if len(outcome.Failed) != 3 {
		t.Errorf("expected 3 failures, got %d", len(outcome.Failed))
	}
	if warnings := outcome.Warnings(); len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", warnings)
	}
}

func TestFanOutTotalFailure(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	outcome, err := FanOut(context.Background(), items, 10, 3, func(ctx context.Context, n int) (string, error) {
		return "", errors.New("service down")
	})

	var total *BatchTotalFailure
	if !errors.As(err, &total) {
		t.Fatalf("expected BatchTotalFailure, got %v", err)
	}
	if total.Total != 10 {
		t.Errorf("expected total 10, got %d", total.Total)
	}
	if len(outcome.Succeeded) != 0 {
		t.Errorf("expected no successes, got %d", len(outcome.Succeeded))
	}
}

func TestFanOutTruncatesPastCap(t *testing.T) {
	items := make([]int, 15)
	var executed atomic.Int64

	outcome, err := FanOut(context.Background(), items, 10, 3, func(ctx context.Context, n int) (int, error) {
		executed.Add(1)
		return n, nil
	})
	if err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}

	if executed.Load() != 10 {
		t.Errorf("expected 10 executions after truncation, got %d", executed.Load())
	}
	if outcome.Truncated != 5 {
		t.Errorf("expected 5 truncated items, got %d", outcome.Truncated)
	}
}

func TestFanOutBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64

	items := make([]int, 20)
	_, err := FanOut(context.Background(), items, 20, 4, func(ctx context.Context, n int) (int, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		return n, nil
	})
	if err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}

	if peak.Load() > 4 {
		t.Errorf("concurrency bound exceeded: peak %d", peak.Load())
	}
}

func TestFanOutEmptyBatch(t *testing.T) {
	outcome, err := FanOut(context.Background(), nil, 10, 3, func(ctx context.Context, n int) (int, error) {
		t.Fatal("op must not run for an empty batch")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("empty batch must not error: %v", err)
	}
	if len(outcome.Succeeded) != 0 || len(outcome.Failed) != 0 {
		t.Error("expected empty outcome")
	}
}
