package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// WalletRepository provides access to wallet rows. Balance mutations go
// through ApplyDelta only, and only the ledger engine calls it.
type WalletRepository interface {
	// FindByID returns a wallet by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wallet, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the wallet.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)

	// Create inserts a new wallet.
	Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error

	// ApplyDelta adds a signed amount to the balance with server-side
	// arithmetic. The statement refuses to take the balance negative; a
	// rejected debit returns domain.ErrInsufficientBalance and mutates
	// nothing.
	ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error)
}

// PartnerRepository provides access to partner accounts.
type PartnerRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Partner, error)
	Create(ctx context.Context, db DBTX, partner *domain.Partner) error
}

// CustomerRepository provides access to customer accounts.
type CustomerRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Customer, error)
	Create(ctx context.Context, db DBTX, customer *domain.Customer) error
}

// TransactionRepository persists top-up transactions.
type TransactionRepository interface {
	// Insert creates a transaction row; the caller sets the status.
	Insert(ctx context.Context, db DBTX, tx *domain.Transaction) error

	// FindByID returns a transaction by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// Finalize moves a PENDING transaction to a terminal status. Guarded by
	// WHERE status = 'PENDING'; finalizing an already-terminal transaction
	// returns domain.ErrNotFound-like failure so illegal transitions surface.
	Finalize(ctx context.Context, db DBTX, id uuid.UUID, status domain.TxStatus, providerTxnID, failureReason *string) (*domain.Transaction, error)

	// BackfillProviderRef records a late provider reference without touching
	// the status.
	BackfillProviderRef(ctx context.Context, db DBTX, id uuid.UUID, providerTxnID string) error

	// ListByPartner returns a partner's transactions, newest first, with
	// cursor pagination.
	ListByPartner(ctx context.Context, db DBTX, partnerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error)

	// ListStalePending returns PENDING transactions older than the cutoff,
	// for the external reconciliation sweep.
	ListStalePending(ctx context.Context, db DBTX, olderThan time.Time, limit int) ([]domain.Transaction, error)
}

// WalletTopupRepository persists slip-funded wallet credits.
type WalletTopupRepository interface {
	// Insert creates a SUCCESS wallet-topup row. A duplicate provider
	// reference violates the unique index and comes back as
	// domain.ErrDuplicateSlip.
	Insert(ctx context.Context, db DBTX, topup *domain.WalletTopup) error

	// FindByProviderRef looks a topup up by its bank reference.
	FindByProviderRef(ctx context.Context, db DBTX, providerTxnRef string) (*domain.WalletTopup, error)
}

// CatalogRepository provides access to catalog items and price overrides.
type CatalogRepository interface {
	FindItemByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.CatalogItem, error)
	FindItemByCode(ctx context.Context, db DBTX, code string) (*domain.CatalogItem, error)
	ListItems(ctx context.Context, db DBTX) ([]domain.CatalogItem, error)

	// UpsertItem writes a synced item keyed by its code.
	UpsertItem(ctx context.Context, db DBTX, item *domain.CatalogItem) error

	// FindOverride returns a partner's price override for an item, or nil.
	FindOverride(ctx context.Context, db DBTX, partnerID, itemID uuid.UUID) (*domain.PriceOverride, error)

	// UpsertOverride writes a partner price override.
	UpsertOverride(ctx context.Context, db DBTX, override *domain.PriceOverride) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// state change it describes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
