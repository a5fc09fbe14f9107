package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditline/platform/internal/domain"
)

// CompensateResult is the outcome of a compensating transaction.
type CompensateResult struct {
	Transaction   *domain.Transaction
	PayerWallet   *domain.Wallet
	PartnerWallet *domain.Wallet
}

// ExecuteCompensate reverses the reserve-phase debits after a failed
// upstream call: credit back the exact amounts, mark the transaction FAILED.
// Credits cannot overdraw, so the only failure modes are infrastructural —
// the caller retries until this commits.
func (e *Engine) ExecuteCompensate(ctx context.Context, tx pgx.Tx, params domain.CompensateParams) (*CompensateResult, error) {
	var payer, partner *domain.Wallet
	var err error

	if params.PartnerIsPayer() {
		if _, err = e.LockWalletForUpdate(ctx, tx, params.PartnerWalletID); err != nil {
			return nil, fmt.Errorf("compensate: %w", err)
		}
		partner, err = e.ApplyDelta(ctx, tx, params.PartnerWalletID, params.BaseCost)
		if err != nil {
			return nil, fmt.Errorf("compensate partner credit: %w", err)
		}
		payer = partner
	} else {
		if _, _, err = e.lockBoth(ctx, tx, params.PayerWalletID, params.PartnerWalletID); err != nil {
			return nil, fmt.Errorf("compensate: %w", err)
		}
		payer, err = e.ApplyDelta(ctx, tx, params.PayerWalletID, params.SellPrice)
		if err != nil {
			return nil, fmt.Errorf("compensate payer credit: %w", err)
		}
		partner, err = e.ApplyDelta(ctx, tx, params.PartnerWalletID, params.BaseCost)
		if err != nil {
			return nil, fmt.Errorf("compensate partner credit: %w", err)
		}
	}

	reason := params.FailureReason
	record, err := e.transactions.Finalize(ctx, tx, params.TransactionID, domain.TxFailed, nil, &reason)
	if err != nil {
		return nil, fmt.Errorf("compensate finalize: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewTopupFailedEvent(record, reason)); err != nil {
		return nil, fmt.Errorf("compensate outbox: %w", err)
	}

	return &CompensateResult{Transaction: record, PayerWallet: payer, PartnerWallet: partner}, nil
}

// ExecuteSettle finalizes a PENDING transaction to SUCCESS with the provider
// reference, inside the caller's transaction.
func (e *Engine) ExecuteSettle(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, providerTxnID string) (*domain.Transaction, error) {
	record, err := e.transactions.Finalize(ctx, tx, transactionID, domain.TxSuccess, &providerTxnID, nil)
	if err != nil {
		return nil, fmt.Errorf("settle finalize: %w", err)
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewTopupSettledEvent(record)); err != nil {
		return nil, fmt.Errorf("settle outbox: %w", err)
	}
	return record, nil
}
