package httpx

import (
	"context"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/logging"
)

// Compensation undoes one side effect of a failed multi-service operation.
type Compensation struct {
	Name string
	Run  func(ctx context.Context) error
	// OnFailure, when set, is told about a compensation that failed.
	OnFailure func(ctx context.Context, err error)
}

// Compensate runs each compensation once, in order, on a context detached
// from ctx's cancellation and bounded by timeout. It returns the number of
// compensations that failed.
func Compensate(ctx context.Context, log logging.Logger, timeout time.Duration, compensations ...Compensation) int {
	failed := 0
	for _, c := range compensations {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err := c.Run(cctx)
		cancel()
		if err == nil {
			log.Info(ctx, "compensation done", "step", c.Name)
			continue
		}

		failed++
		log.Error(ctx, "compensation failed", "step", c.Name, "error", err)
		if c.OnFailure != nil {
			c.OnFailure(context.WithoutCancel(ctx), err)
		}
	}
	return failed
}
