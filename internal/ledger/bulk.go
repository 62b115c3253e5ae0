package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ItemFailure is one failed item of a bulk operation.
type ItemFailure struct {
	ID  string
	Err error
}

// BulkResult summarizes a best-effort fan-out.
type BulkResult struct {
	Op        string
	Total     int
	Succeeded []string
	Failures  []ItemFailure
}

// Failed returns the number of failed items.
func (r BulkResult) Failed() int { return len(r.Failures) }

// Summary is the single message reported for the whole operation.
func (r BulkResult) Summary() string {
	switch {
	case r.Total == 0:
		return fmt.Sprintf("%s: nothing to do", r.Op)
	case len(r.Failures) == 0:
		return fmt.Sprintf("%s: %d of %d done", r.Op, len(r.Succeeded), r.Total)
	default:
		return fmt.Sprintf("%s: %d of %d done, %d failed", r.Op, len(r.Succeeded), r.Total, len(r.Failures))
	}
}

// Err returns a *BulkError when any item failed.
func (r BulkResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &BulkError{Result: r}
}

// fanOut runs fn for every item with at most limit in flight. Failures never
// cancel the remaining items.
func fanOut[T any](ctx context.Context, limit int, op string, items []T, id func(T) string, fn func(context.Context, T) error) BulkResult {
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			errs[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{Op: op, Total: len(items)}
	for i, err := range errs {
		if err != nil {
			res.Failures = append(res.Failures, ItemFailure{ID: id(items[i]), Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, id(items[i]))
	}
	return res
}

// bulk is fanOut bound to a book's concurrency, observer and logger.
func bulk[T any](ctx context.Context, b *Book, op string, items []T, id func(T) string, fn func(context.Context, T) error) BulkResult {
	res := fanOut(ctx, b.l.concurrency, op, items, id, fn)
	b.l.observer.BulkCompleted(op, len(res.Succeeded), res.Failed())
	if res.Failed() > 0 {
		b.l.logger.Warn("Bulk operation partially failed",
			"household_id", b.household, "op", op, "succeeded", len(res.Succeeded), "failed", res.Failed(),
			"error", res.Failures[0].Err)
	}
	return res
}
