package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditline/platform/internal/domain"
)

// TopupCreditResult is the outcome of a slip-funded wallet credit.
type TopupCreditResult struct {
	Topup         *domain.WalletTopup
	PartnerWallet *domain.Wallet
}

// ExecuteTopupCredit records a verified slip and credits the partner wallet
// in one unit. The wallet_topups insert goes first: if the slip's bank
// reference was already redeemed, the unique index rejects it before any
// balance moves.
func (e *Engine) ExecuteTopupCredit(ctx context.Context, tx pgx.Tx, params domain.TopupCreditParams) (*TopupCreditResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}
	if params.ProviderTxnRef == "" {
		return nil, domain.ErrSlipRejected("slip has no bank transaction reference")
	}

	topup := &domain.WalletTopup{
		ID:             uuid.New(),
		PartnerID:      params.PartnerID,
		Amount:         params.Amount,
		Status:         domain.TxSuccess,
		ProviderTxnRef: params.ProviderTxnRef,
		SenderName:     strPtr(params.SenderName),
	}
	if err := e.topups.Insert(ctx, tx, topup); err != nil {
		return nil, err
	}

	if _, err := e.LockWalletForUpdate(ctx, tx, params.PartnerWalletID); err != nil {
		return nil, fmt.Errorf("topup credit: %w", err)
	}
	wallet, err := e.ApplyDelta(ctx, tx, params.PartnerWalletID, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("topup credit: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewWalletCreditedEvent(topup)); err != nil {
		return nil, fmt.Errorf("topup outbox: %w", err)
	}

	return &TopupCreditResult{Topup: topup, PartnerWallet: wallet}, nil
}
