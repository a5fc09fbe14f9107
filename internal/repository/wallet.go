package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/infra"
)

type walletRepo struct{}

// NewWalletRepository returns a pgx-backed WalletRepository.
func NewWalletRepository() WalletRepository {
	return &walletRepo{}
}

func (r *walletRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wallet, error) {
	row := db.QueryRow(ctx, `
		SELECT id, kind, owner_id, balance, created_at, updated_at
		FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (r *walletRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, kind, owner_id, balance, created_at, updated_at
		FROM wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row)
}

func (r *walletRepo) Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wallets (id, kind, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		wallet.ID,
		string(wallet.Kind),
		wallet.OwnerID,
		infra.DecimalToNumeric(wallet.Balance),
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// ApplyDelta mutates the balance with server-side arithmetic. The WHERE
// clause refuses any delta that would go negative, so the check and the
// mutation are one atomic statement even without the row lock.
func (r *walletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING id, kind, owner_id, balance, created_at, updated_at`,
		infra.DecimalToNumeric(delta), walletID)

	wallet, err := scanWallet(row)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		// Either the wallet is gone or the debit would overdraw it.
		// Distinguish so callers report the right thing.
		existing, ferr := r.findInTx(ctx, tx, walletID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, domain.ErrNotFound("wallet", walletID.String())
		}
		return nil, domain.ErrInsufficientBalance(walletID.String())
	}
	return wallet, nil
}

func (r *walletRepo) findInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, kind, owner_id, balance, created_at, updated_at
		FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var kind string
	var balNum pgtype.Numeric
	err := row.Scan(&w.ID, &kind, &w.OwnerID, &balNum, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	w.Kind = domain.WalletKind(kind)

	w.Balance, err = infra.NumericToDecimal(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &w, nil
}
