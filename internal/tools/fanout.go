package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ItemOutcome is the result-or-error of one fan-out item.
type ItemOutcome[T, R any] struct {
	Item   T
	Result R
	Err    error
}

// BatchOutcome aggregates a fan-out run. Partial success is the expected
// case for this class of tool: callers get the successful subset plus a
// warning list and must distinguish it from total failure.
type BatchOutcome[T, R any] struct {
	Succeeded []ItemOutcome[T, R]
	Failed    []ItemOutcome[T, R]
	// Truncated counts items silently dropped past the batch cap.
	Truncated int
}

// Warnings renders one human-readable line per failed item.
func (o *BatchOutcome[T, R]) Warnings() []string {
	warnings := make([]string, 0, len(o.Failed))
	for _, f := range o.Failed {
		warnings = append(warnings, fmt.Sprintf("%v: %v", f.Item, f.Err))
	}
	return warnings
}

// BatchTotalFailure is returned when every item in a fan-out failed.
type BatchTotalFailure struct {
	Total    int
	Failures []string
}

func (e *BatchTotalFailure) Error() string {
	const representative = 3
	shown := e.Failures
	if len(shown) > representative {
		shown = shown[:representative]
	}
	return fmt.Sprintf("all %d batch items failed: %s", e.Total, strings.Join(shown, "; "))
}

// FanOut runs op over up to maxItems of items with at most concurrency
// in-flight at once. Excess items are dropped from the batch, not errored.
// One item's failure never aborts its siblings. With zero successes the
// batch fails with an aggregate error; with one or more it succeeds.
func FanOut[T, R any](ctx context.Context, items []T, maxItems, concurrency int, op func(ctx context.Context, item T) (R, error)) (*BatchOutcome[T, R], error) {
	outcome := &BatchOutcome[T, R]{}

	if len(items) > maxItems {
		outcome.Truncated = len(items) - maxItems
		items = items[:maxItems]
	}
	if len(items) == 0 {
		return outcome, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]ItemOutcome[T, R], len(items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i] = ItemOutcome[T, R]{Item: item, Err: err}
				return
			}

			result, err := op(ctx, item)
			results[i] = ItemOutcome[T, R]{Item: item, Result: result, Err: err}
		}(i, item)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			outcome.Failed = append(outcome.Failed, r)
		} else {
			outcome.Succeeded = append(outcome.Succeeded, r)
		}
	}

	if len(outcome.Succeeded) == 0 {
		return outcome, &BatchTotalFailure{Total: len(items), Failures: outcome.Warnings()}
	}
	return outcome, nil
}
