package worker

import (
	"context"

	"golang.org/x/time/rate"
)

type FailurePolicy int

const (
	// FailurePolicyPartialOutput records a failed item and moves on to the next one.
	FailurePolicyPartialOutput FailurePolicy = iota
	// FailurePolicyFailFast stops at the first failed item and discards all output.
	FailurePolicyFailFast
)

func (p FailurePolicy) String() string {
	switch p {
	case FailurePolicyFailFast:
		return "fail-fast"
	default:
		return "partial-output"
	}
}

type Options struct {
	// RateLimitRPS paces item starts. Set to <=0 to disable.
	RateLimitRPS float64

	FailurePolicy FailurePolicy
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Index  int
	Input  In
	Output Out
	Err    error
}

// ProcessFn handles the item at index. Items are handed over one at a time, in order.
type ProcessFn[In any, Out any] func(ctx context.Context, index int, in In) (Out, error)

// ProcessAll runs the processor over all input items sequentially.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor ProcessFn[In, Out],
	opts Options,
) ([]Result[In, Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback runs the processor over all input items and invokes onResult
// after each item completes. Output is index-aligned with items.
//
// Under FailurePolicyFailFast the first item error is returned with a nil result slice.
// A non-nil error from onResult stops the run the same way regardless of policy.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor ProcessFn[In, Out],
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res := processOne(ctx, i, item, processor)
		out[i] = res

		if res.Err != nil && opts.FailurePolicy == FailurePolicyFailFast {
			return nil, res.Err
		}
		if onResult != nil {
			if err := onResult(res); err != nil {
				return nil, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func processOne[In any, Out any](ctx context.Context, index int, item In, processor ProcessFn[In, Out]) Result[In, Out] {
	res, err := processor(ctx, index, item)
	return Result[In, Out]{
		Index:  index,
		Input:  item,
		Output: res,
		Err:    err,
	}
}
