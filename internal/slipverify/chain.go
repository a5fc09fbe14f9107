package slipverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/guard"
)

// Chain tries backends in priority order until one verifies the slip.
// Transient failures fall through to the next backend; a terminal verdict
// (fraud, definitively invalid) stops the chain immediately. Each backend
// sits behind a circuit breaker so a provider outage stops costing a
// timeout per request.
type Chain struct {
	backends []Backend
	breaker  *guard.CircuitBreaker
	timeout  time.Duration
	logger   *slog.Logger
}

// NewChain builds a verification chain. Backends are tried in the order
// given.
func NewChain(backends []Backend, breaker *guard.CircuitBreaker, timeout time.Duration, logger *slog.Logger) *Chain {
	return &Chain{backends: backends, breaker: breaker, timeout: timeout, logger: logger}
}

// Verify runs the slip through the chain. When every backend fails
// transiently the joined diagnostics come back inside
// domain.ErrSlipUnverifiable; a terminal verdict comes back as
// domain.ErrSlipRejected.
func (c *Chain) Verify(ctx context.Context, image []byte) (*Result, error) {
	if len(image) == 0 {
		return nil, domain.ErrValidation("slip image is empty")
	}

	var failures []error
	for _, backend := range c.backends {
		name := backend.Name()

		if gr := c.breaker.Check(ctx, name); !gr.Allowed {
			c.logger.Warn("slip backend skipped", "backend", name, "reason", gr.Reason)
			failures = append(failures, TransientError(name, errors.New(gr.Reason)))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result, err := backend.Verify(callCtx, image)
		cancel()

		if err == nil {
			c.breaker.RecordSuccess(name)
			result.Provider = name
			c.logger.Info("slip verified", "backend", name, "trans_ref", result.TransRef)
			return result, nil
		}

		var verr *Error
		if errors.As(err, &verr) && verr.Terminal {
			// A verdict about the slip, not the provider. No point asking
			// anyone else.
			c.breaker.RecordSuccess(name)
			c.logger.Warn("slip rejected", "backend", name, "error", verr.Err)
			return nil, domain.ErrSlipRejected(fmt.Sprintf("%s rejected slip: %v", name, verr.Err))
		}

		c.breaker.RecordFailure(name)
		c.logger.Warn("slip backend failed", "backend", name, "error", err)
		failures = append(failures, err)
	}

	return nil, domain.ErrSlipUnverifiable(errors.Join(failures...))
}
