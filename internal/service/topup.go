package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/ledger"
	"github.com/creditline/platform/internal/pricing"
	"github.com/creditline/platform/internal/provider"
	"github.com/creditline/platform/internal/repository"
)

// TopupService orchestrates a purchase: reserve funds, call the upstream
// provider, then settle or compensate. The provider call happens outside
// any database transaction so a slow provider never holds row locks.
type TopupService struct {
	pool      *pgxpool.Pool
	upstream  *provider.UpstreamClient
	engine    *ledger.Engine
	wallets   repository.WalletRepository
	partners  repository.PartnerRepository
	customers repository.CustomerRepository
	txRepo    repository.TransactionRepository
	catalog   repository.CatalogRepository
	resolver  *pricing.Resolver
	logger    *slog.Logger

	compensateMaxAttempts int
	compensateBackoff     time.Duration
}

// NewTopupService creates a TopupService.
func NewTopupService(
	pool *pgxpool.Pool,
	upstream *provider.UpstreamClient,
	engine *ledger.Engine,
	wallets repository.WalletRepository,
	partners repository.PartnerRepository,
	customers repository.CustomerRepository,
	txRepo repository.TransactionRepository,
	catalog repository.CatalogRepository,
	resolver *pricing.Resolver,
	logger *slog.Logger,
	compensateMaxAttempts int,
	compensateBackoff time.Duration,
) *TopupService {
	return &TopupService{
		pool:                  pool,
		upstream:              upstream,
		engine:                engine,
		wallets:               wallets,
		partners:              partners,
		customers:             customers,
		txRepo:                txRepo,
		catalog:               catalog,
		resolver:              resolver,
		logger:                logger,
		compensateMaxAttempts: compensateMaxAttempts,
		compensateBackoff:     compensateBackoff,
	}
}

// PurchaseRequest is one top-up order. CustomerID is nil on the B2B path,
// where the partner both orders and pays.
type PurchaseRequest struct {
	PartnerID  uuid.UUID
	CustomerID *uuid.UUID
	ItemID     uuid.UUID
	TargetRef  string
	ServerRef  string
}

// PurchaseResult is returned to the caller after the saga finishes.
type PurchaseResult struct {
	Transaction      *domain.Transaction
	RemainingBalance decimal.Decimal
}

// Purchase runs the full top-up saga.
func (s *TopupService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := domain.ValidateTargetRef(req.TargetRef); err != nil {
		return nil, err
	}

	plan, err := s.preparePurchase(ctx, req)
	if err != nil {
		return nil, err
	}

	// Phase 1: reserve. Both debits, the PENDING row and the outbox event
	// commit atomically.
	reserved, err := s.reserve(ctx, plan)
	if err != nil {
		return nil, err
	}

	// Phase 2: provider call, outside any transaction. The transaction ID
	// doubles as the provider-side dest_ref so retries and callbacks always
	// correlate.
	payment, err := s.upstream.SubmitPayment(ctx, provider.PaymentRequest{
		Category:  plan.code.Category,
		Company:   plan.code.Company,
		Amount:    plan.providerPrice,
		TargetRef: req.TargetRef,
		ServerRef: req.ServerRef,
		DestRef:   plan.transactionID.String(),
	})
	if err != nil {
		s.logger.Warn("upstream payment failed, compensating",
			"transaction_id", plan.transactionID, "error", err)
		if cerr := s.compensate(ctx, plan, err.Error()); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	// Phase 3: settle, detached from the request context. The money already
	// moved upstream; a caller disconnect must not stop the finalize. A
	// write failure here leaves the row PENDING for the reconciliation
	// sweep, because retrying the saga is not an option.
	record, err := s.settle(context.WithoutCancel(ctx), plan.transactionID, payment.ProviderTxnID)
	if err != nil {
		s.logger.Error("reconciliation gap: provider settled but finalize failed",
			"transaction_id", plan.transactionID,
			"provider_txn_id", payment.ProviderTxnID,
			"error", err)
		return nil, domain.ErrInternal("finalize settled transaction", err)
	}

	s.logger.Info("topup settled",
		"transaction_id", record.ID,
		"item", plan.code.String(),
		"provider_txn_id", payment.ProviderTxnID)
	// The payer balance from the reserve commit is the post-purchase value;
	// settle touches only the transaction row.
	return &PurchaseResult{Transaction: record, RemainingBalance: reserved.PayerWallet.Balance}, nil
}

// purchasePlan carries everything resolved during precondition checks.
type purchasePlan struct {
	transactionID   uuid.UUID
	code            domain.ProductCode
	item            *domain.CatalogItem
	req             PurchaseRequest
	payerWalletID   uuid.UUID
	partnerWalletID uuid.UUID
	sellPrice       decimal.Decimal
	baseCost        decimal.Decimal
	providerPrice   decimal.Decimal
}

// preparePurchase runs the advisory precondition checks and resolves every
// amount. Reads happen outside the reserve transaction; the ledger's
// guarded debits re-enforce balance sufficiency inside it.
func (s *TopupService) preparePurchase(ctx context.Context, req PurchaseRequest) (*purchasePlan, error) {
	item, err := s.catalog.FindItemByID(ctx, s.pool, req.ItemID)
	if err != nil {
		return nil, domain.ErrInternal("find item", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound("item", req.ItemID.String())
	}
	if item.Status != domain.ItemActive {
		return nil, domain.ErrItemUnavailable(item.Code, item.Status)
	}

	code, err := domain.ParseProductCode(item.Code)
	if err != nil {
		return nil, domain.ErrInternal("catalog item has malformed code", err)
	}

	partner, err := s.partners.FindByID(ctx, s.pool, req.PartnerID)
	if err != nil {
		return nil, domain.ErrInternal("find partner", err)
	}
	if partner == nil {
		return nil, domain.ErrNotFound("partner", req.PartnerID.String())
	}

	sellPrice, err := s.resolveSellPrice(ctx, req.PartnerID, item)
	if err != nil {
		return nil, err
	}

	plan := &purchasePlan{
		transactionID:   uuid.New(),
		code:            code,
		item:            item,
		req:             req,
		partnerWalletID: partner.WalletID,
		sellPrice:       sellPrice,
		baseCost:        item.BaseCost,
		providerPrice:   item.ProviderPrice,
	}

	if req.CustomerID == nil {
		// B2B: partner wallet pays its own base cost.
		plan.payerWalletID = partner.WalletID
		if err := s.checkBalance(ctx, partner.WalletID, item.BaseCost, domain.ErrInsufficientPartnerBalance()); err != nil {
			return nil, err
		}
		return plan, nil
	}

	customer, err := s.customers.FindByID(ctx, s.pool, *req.CustomerID)
	if err != nil {
		return nil, domain.ErrInternal("find customer", err)
	}
	if customer == nil {
		return nil, domain.ErrNotFound("customer", req.CustomerID.String())
	}
	plan.payerWalletID = customer.WalletID

	if err := s.checkBalance(ctx, customer.WalletID, sellPrice, domain.ErrInsufficientCustomerBalance()); err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, partner.WalletID, item.BaseCost, domain.ErrInsufficientPartnerBalance()); err != nil {
		return nil, err
	}
	return plan, nil
}

// resolveSellPrice prefers the partner's negotiated override, falling back
// to the default markup over base cost.
func (s *TopupService) resolveSellPrice(ctx context.Context, partnerID uuid.UUID, item *domain.CatalogItem) (decimal.Decimal, error) {
	override, err := s.catalog.FindOverride(ctx, s.pool, partnerID, item.ID)
	if err != nil {
		return decimal.Zero, domain.ErrInternal("find price override", err)
	}
	if override != nil {
		return override.SellPrice, nil
	}
	return pricing.DefaultPartnerSellPrice(item.BaseCost), nil
}

func (s *TopupService) checkBalance(ctx context.Context, walletID uuid.UUID, need decimal.Decimal, insufficient *domain.AppError) error {
	wallet, err := s.wallets.FindByID(ctx, s.pool, walletID)
	if err != nil {
		return domain.ErrInternal("find wallet", err)
	}
	if wallet == nil {
		return domain.ErrNotFound("wallet", walletID.String())
	}
	if wallet.Balance.LessThan(need) {
		return insufficient
	}
	return nil
}

func (s *TopupService) reserve(ctx context.Context, plan *purchasePlan) (*ledger.ReserveResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecuteReserve(ctx, tx, domain.ReserveParams{
		TransactionID:   plan.transactionID,
		PartnerID:       plan.req.PartnerID,
		CustomerID:      plan.req.CustomerID,
		ItemID:          plan.item.ID,
		PayerWalletID:   plan.payerWalletID,
		PartnerWalletID: plan.partnerWalletID,
		SellPrice:       plan.sellPrice,
		BaseCost:        plan.baseCost,
		ProviderPrice:   plan.providerPrice,
		TargetRef:       plan.req.TargetRef,
		ServerRef:       plan.req.ServerRef,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit reserve", err)
	}
	return result, nil
}

func (s *TopupService) settle(ctx context.Context, transactionID uuid.UUID, providerTxnID string) (*domain.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	record, err := s.engine.ExecuteSettle(ctx, tx, transactionID, providerTxnID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit settle", err)
	}
	return record, nil
}

// compensate refunds the reserve with at-least-once retries. Exhausting the
// attempts leaves the row PENDING with funds held; that needs an operator,
// so it logs at error level with everything they need.
func (s *TopupService) compensate(ctx context.Context, plan *purchasePlan, reason string) error {
	// The refund must not die with the request. A caller disconnect is the
	// usual companion of the upstream failure that got us here, and the
	// database is typically still healthy.
	ctx = context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.compensateMaxAttempts; attempt++ {
		lastErr = s.tryCompensate(ctx, plan, reason)
		if lastErr == nil {
			return nil
		}
		s.logger.Warn("compensation attempt failed",
			"transaction_id", plan.transactionID, "attempt", attempt, "error", lastErr)

		if attempt < s.compensateMaxAttempts {
			time.Sleep(s.compensateBackoff * time.Duration(attempt))
		}
	}

	s.logger.Error("compensation exhausted, funds held on PENDING transaction",
		"transaction_id", plan.transactionID,
		"payer_wallet_id", plan.payerWalletID,
		"partner_wallet_id", plan.partnerWalletID,
		"error", lastErr)
	return domain.ErrInternal("compensate reserved funds", lastErr)
}

func (s *TopupService) tryCompensate(ctx context.Context, plan *purchasePlan, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = s.engine.ExecuteCompensate(ctx, tx, domain.CompensateParams{
		TransactionID:   plan.transactionID,
		PayerWalletID:   plan.payerWalletID,
		PartnerWalletID: plan.partnerWalletID,
		SellPrice:       plan.sellPrice,
		BaseCost:        plan.baseCost,
		FailureReason:   reason,
	})
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
