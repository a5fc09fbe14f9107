package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/creditline/platform/internal/domain"
)

// ReserveResult is the outcome of the reserve phase.
type ReserveResult struct {
	Transaction   *domain.Transaction
	PayerWallet   *domain.Wallet
	PartnerWallet *domain.Wallet
}

// ExecuteReserve runs the all-or-nothing reserve phase of a purchase inside
// the caller's transaction: debit the payer wallet by sellPrice, debit the
// partner wallet by baseCost (skipped when the partner is the payer), and
// insert the PENDING transaction row. Either every write commits or none
// does.
func (e *Engine) ExecuteReserve(ctx context.Context, tx pgx.Tx, params domain.ReserveParams) (*ReserveResult, error) {
	if err := domain.ValidatePositiveAmount(params.SellPrice); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositiveAmount(params.BaseCost); err != nil {
		return nil, err
	}

	var payer, partner *domain.Wallet
	var err error
	if params.PartnerIsPayer() {
		_, err = e.LockWalletForUpdate(ctx, tx, params.PartnerWalletID)
	} else {
		_, _, err = e.lockBoth(ctx, tx, params.PayerWalletID, params.PartnerWalletID)
	}
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}

	if params.PartnerIsPayer() {
		// B2B path: the partner pays its own base cost, nothing else moves.
		partner, err = e.ApplyDelta(ctx, tx, params.PartnerWalletID, params.BaseCost.Neg())
		if err != nil {
			return nil, wrapDebit(err, domain.ErrInsufficientPartnerBalance())
		}
		payer = partner
	} else {
		payer, err = e.ApplyDelta(ctx, tx, params.PayerWalletID, params.SellPrice.Neg())
		if err != nil {
			return nil, wrapDebit(err, domain.ErrInsufficientCustomerBalance())
		}
		partner, err = e.ApplyDelta(ctx, tx, params.PartnerWalletID, params.BaseCost.Neg())
		if err != nil {
			return nil, wrapDebit(err, domain.ErrInsufficientPartnerBalance())
		}
	}

	record := &domain.Transaction{
		ID:            params.TransactionID,
		PartnerID:     params.PartnerID,
		CustomerID:    params.CustomerID,
		ItemID:        params.ItemID,
		BaseCost:      params.BaseCost,
		ProviderPrice: params.ProviderPrice,
		SellPrice:     params.SellPrice,
		Status:        domain.TxPending,
		TargetRef:     params.TargetRef,
		ServerRef:     strPtr(params.ServerRef),
	}
	if err := e.transactions.Insert(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("reserve insert: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewTopupRequestedEvent(record)); err != nil {
		return nil, fmt.Errorf("reserve outbox: %w", err)
	}

	return &ReserveResult{Transaction: record, PayerWallet: payer, PartnerWallet: partner}, nil
}

// wrapDebit maps a ledger-level insufficient-balance rejection to the
// side-specific error the caller reports; anything else passes through.
func wrapDebit(err error, sideErr *domain.AppError) error {
	if appErr, ok := err.(*domain.AppError); ok && appErr.Code == "INSUFFICIENT_BALANCE" {
		return sideErr
	}
	return err
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
