package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/guard"
	"github.com/creditline/platform/internal/ledger"
	"github.com/creditline/platform/internal/repository"
	"github.com/creditline/platform/internal/slipverify"
)

// WalletTopupService credits partner wallets from verified bank transfer
// slips. The verification chain settles what the slip says; this service
// settles whether the platform accepts it.
type WalletTopupService struct {
	pool             *pgxpool.Pool
	verifier         *slipverify.Chain
	engine           *ledger.Engine
	partners         repository.PartnerRepository
	limiter          *guard.RateLimiter
	merchantVariants []string
	logger           *slog.Logger
}

// NewWalletTopupService creates a WalletTopupService. merchantVariants are
// the accepted spellings of the platform's receiving account name.
func NewWalletTopupService(
	pool *pgxpool.Pool,
	verifier *slipverify.Chain,
	engine *ledger.Engine,
	partners repository.PartnerRepository,
	limiter *guard.RateLimiter,
	merchantVariants []string,
	logger *slog.Logger,
) *WalletTopupService {
	return &WalletTopupService{
		pool:             pool,
		verifier:         verifier,
		engine:           engine,
		partners:         partners,
		limiter:          limiter,
		merchantVariants: merchantVariants,
		logger:           logger,
	}
}

// TopupFromSlip verifies the slip image and credits the partner wallet.
func (s *WalletTopupService) TopupFromSlip(ctx context.Context, partnerID uuid.UUID, image []byte) (*domain.WalletTopup, error) {
	if gr := s.limiter.Check(ctx, partnerID.String()); !gr.Allowed {
		return nil, &domain.AppError{Code: "RATE_LIMITED", Message: gr.Reason, Status: 429}
	}

	partner, err := s.partners.FindByID(ctx, s.pool, partnerID)
	if err != nil {
		return nil, domain.ErrInternal("find partner", err)
	}
	if partner == nil {
		return nil, domain.ErrNotFound("partner", partnerID.String())
	}

	verified, err := s.verifier.Verify(ctx, image)
	if err != nil {
		return nil, err
	}

	if err := s.checkSlip(verified); err != nil {
		s.logger.Warn("slip failed business checks",
			"partner_id", partnerID, "trans_ref", verified.TransRef, "error", err)
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecuteTopupCredit(ctx, tx, domain.TopupCreditParams{
		PartnerID:       partnerID,
		PartnerWalletID: partner.WalletID,
		Amount:          verified.Amount,
		ProviderTxnRef:  verified.TransRef,
		SenderName:      verified.SenderName,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit topup", err)
	}

	s.logger.Info("wallet topped up from slip",
		"partner_id", partnerID,
		"trans_ref", verified.TransRef,
		"amount", verified.Amount,
		"verified_by", verified.Provider)
	return result.Topup, nil
}

// checkSlip enforces the business rules on top of a technically valid slip:
// money actually moved, to us, with a traceable reference.
func (s *WalletTopupService) checkSlip(verified *slipverify.Result) error {
	if verified.TransRef == "" {
		return domain.ErrSlipRejected("slip has no transaction reference")
	}
	if !verified.Amount.IsPositive() {
		return domain.ErrSlipRejected("slip amount is not positive")
	}
	if !slipverify.MatchesReceiver(verified.ReceiverName, s.merchantVariants) {
		return domain.ErrSlipRejected(fmt.Sprintf("receiver %q is not the platform account", verified.ReceiverName))
	}
	return nil
}
