package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// withTimeout bounds one external call. A zero timeout leaves ctx unchanged.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// transferBudget bounds a call that moves size bytes: op for each round trip
// plus the time rate bytes per second needs for the payload. A zero op leaves
// the call unbounded.
func transferBudget(op time.Duration, rate, size int64, calls int) time.Duration {
	if op <= 0 {
		return 0
	}
	d := time.Duration(max(calls, 1)) * op
	if rate > 0 && size > 0 {
		d += time.Duration(float64(size) / float64(rate) * float64(time.Second))
	}
	return d
}

// timeoutErr marks deadline expiry as common.ErrTimeout so callers can retry.
func timeoutErr(err error) error {
	if err == nil || errors.Is(err, common.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrTimeout, err)
	}
	return err
}
