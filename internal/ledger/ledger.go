// Package ledger owns every wallet balance mutation. All commands run inside
// a caller-supplied pgx.Tx, take row locks in deterministic order, and apply
// signed deltas that the database refuses to let go negative.
package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/repository"
)

// Engine provides the foundational wallet operations:
//  1. LockWalletForUpdate — row-level pessimistic lock
//  2. ApplyDelta — atomic signed balance mutation, never negative
// plus the three composed commands (reserve, compensate, topup credit).
type Engine struct {
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	topups       repository.WalletTopupRepository
	outbox       repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	wallets repository.WalletRepository,
	transactions repository.TransactionRepository,
	topups repository.WalletTopupRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		wallets:      wallets,
		transactions: transactions,
		topups:       topups,
		outbox:       outbox,
	}
}

// LockWalletForUpdate acquires a row-level lock and returns the wallet.
// Must be called within a transaction.
func (e *Engine) LockWalletForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := e.wallets.LockForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrNotFound("wallet", walletID.String())
	}
	return wallet, nil
}

// ApplyDelta adds a signed amount to a wallet balance. A debit that would
// overdraw the wallet is rejected with no mutation.
func (e *Engine) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	return e.wallets.ApplyDelta(ctx, tx, walletID, delta)
}

// lockBoth locks two distinct wallets in byte order of their IDs, so two
// purchases touching the same pair cannot deadlock. Returns the wallets in
// the order requested, not lock order.
func (e *Engine) lockBoth(ctx context.Context, tx pgx.Tx, first, second uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	a, b := first, second
	swapped := false
	if bytes.Compare(b[:], a[:]) < 0 {
		a, b = b, a
		swapped = true
	}

	wa, err := e.LockWalletForUpdate(ctx, tx, a)
	if err != nil {
		return nil, nil, err
	}
	wb, err := e.LockWalletForUpdate(ctx, tx, b)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		return wb, wa, nil
	}
	return wa, wb, nil
}
