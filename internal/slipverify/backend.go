// Package slipverify checks bank transfer slips against third-party
// verification providers. Providers are tried in priority order; each one
// normalizes its own response schema to a common Result.
package slipverify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Result is the normalized outcome of a verified slip, regardless of which
// provider produced it.
type Result struct {
	// ReceiverName is the account holder that received the transfer.
	ReceiverName string
	// SenderName is the account holder that sent it, when the provider
	// reports one.
	SenderName string
	// TransRef is the bank's transaction reference, unique per transfer.
	TransRef string
	// Amount is the transferred amount.
	Amount decimal.Decimal
	// Provider names the backend that verified the slip.
	Provider string
}

// Backend verifies one slip image against one provider.
type Backend interface {
	// Name identifies the backend in logs and diagnostics.
	Name() string
	// Verify checks the slip image. A *Error return carries whether the
	// failure is terminal (provider says the slip is fraudulent or
	// definitively invalid) or transient (timeout, outage, unreadable).
	Verify(ctx context.Context, image []byte) (*Result, error)
}

// Error is a verification failure from one backend. Terminal failures are
// verdicts about the slip itself and stop the chain; transient failures are
// about the provider and let the chain continue.
type Error struct {
	Provider string
	Terminal bool
	Err      error
}

func (e *Error) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Provider, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TerminalError marks a definitive verdict against the slip.
func TerminalError(provider string, err error) *Error {
	return &Error{Provider: provider, Terminal: true, Err: err}
}

// TransientError marks a provider-side failure worth retrying elsewhere.
func TransientError(provider string, err error) *Error {
	return &Error{Provider: provider, Terminal: false, Err: err}
}
