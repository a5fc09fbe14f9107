package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/provider"
	"github.com/creditline/platform/internal/repository"
)

// WalletService serves the read side: balances, transaction history, and
// the operator views over stuck transactions and the provider float.
type WalletService struct {
	pool     *pgxpool.Pool
	wallets  repository.WalletRepository
	partners repository.PartnerRepository
	txRepo   repository.TransactionRepository
	upstream *provider.UpstreamClient
	logger   *slog.Logger

	pendingSweepAge time.Duration
}

// NewWalletService creates a WalletService.
func NewWalletService(
	pool *pgxpool.Pool,
	wallets repository.WalletRepository,
	partners repository.PartnerRepository,
	txRepo repository.TransactionRepository,
	upstream *provider.UpstreamClient,
	logger *slog.Logger,
	pendingSweepAge time.Duration,
) *WalletService {
	return &WalletService{
		pool:            pool,
		wallets:         wallets,
		partners:        partners,
		txRepo:          txRepo,
		upstream:        upstream,
		logger:          logger,
		pendingSweepAge: pendingSweepAge,
	}
}

// PartnerBalance returns the wallet of the given partner.
func (s *WalletService) PartnerBalance(ctx context.Context, partnerID uuid.UUID) (*domain.Wallet, error) {
	partner, err := s.partners.FindByID(ctx, s.pool, partnerID)
	if err != nil {
		return nil, domain.ErrInternal("find partner", err)
	}
	if partner == nil {
		return nil, domain.ErrNotFound("partner", partnerID.String())
	}

	wallet, err := s.wallets.FindByID(ctx, s.pool, partner.WalletID)
	if err != nil {
		return nil, domain.ErrInternal("find wallet", err)
	}
	if wallet == nil {
		return nil, domain.ErrNotFound("wallet", partner.WalletID.String())
	}
	return wallet, nil
}

// ListTransactions returns a partner's transactions, newest first. The
// returned cursor is empty when the page was the last one.
func (s *WalletService) ListTransactions(ctx context.Context, partnerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Cursors are transaction IDs; reject garbage here instead of letting
	// Postgres fail the uuid cast.
	if cursor != nil {
		if _, err := uuid.Parse(*cursor); err != nil {
			return nil, "", domain.ErrValidation("invalid cursor")
		}
	}

	// Fetch one extra row to know whether a next page exists.
	rows, err := s.txRepo.ListByPartner(ctx, s.pool, partnerID, cursor, limit+1)
	if err != nil {
		return nil, "", domain.ErrInternal("list transactions", err)
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		next = rows[limit-1].ID.String()
	}
	return rows, next, nil
}

// ListStalePending returns PENDING transactions old enough to need the
// reconciliation sweep.
func (s *WalletService) ListStalePending(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	cutoff := time.Now().Add(-s.pendingSweepAge)
	rows, err := s.txRepo.ListStalePending(ctx, s.pool, cutoff, limit)
	if err != nil {
		return nil, domain.ErrInternal("list stale pending", err)
	}
	return rows, nil
}

// UpstreamBalance reports the provider-side float for the operator.
func (s *WalletService) UpstreamBalance(ctx context.Context) (*provider.Balance, error) {
	return s.upstream.GetBalance(ctx)
}
