package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/infra"
)

// uniqueViolation is the PostgreSQL error code for a unique index breach.
const uniqueViolation = "23505"

type walletTopupRepo struct{}

// NewWalletTopupRepository returns a pgx-backed WalletTopupRepository.
func NewWalletTopupRepository() WalletTopupRepository {
	return &walletTopupRepo{}
}

// Insert writes the SUCCESS row for a verified slip. The unique index on
// provider_txn_ref is the replay guard: when two requests race on the same
// slip, exactly one insert commits and the other maps to ErrDuplicateSlip
// here, with no read-then-write window.
func (r *walletTopupRepo) Insert(ctx context.Context, db DBTX, topup *domain.WalletTopup) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wallet_topups (id, partner_id, amount, status, provider_txn_ref, sender_name)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		topup.ID,
		topup.PartnerID,
		infra.DecimalToNumeric(topup.Amount),
		string(topup.Status),
		topup.ProviderTxnRef,
		topup.SenderName,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateSlip(topup.ProviderTxnRef)
		}
		return fmt.Errorf("insert wallet topup: %w", err)
	}
	return nil
}

func (r *walletTopupRepo) FindByProviderRef(ctx context.Context, db DBTX, providerTxnRef string) (*domain.WalletTopup, error) {
	row := db.QueryRow(ctx, `
		SELECT id, partner_id, amount, status, provider_txn_ref, sender_name, created_at
		FROM wallet_topups WHERE provider_txn_ref = $1`, providerTxnRef)
	return scanWalletTopup(row)
}

func scanWalletTopup(row pgx.Row) (*domain.WalletTopup, error) {
	var t domain.WalletTopup
	var status string
	var amount pgtype.Numeric
	err := row.Scan(&t.ID, &t.PartnerID, &amount, &status, &t.ProviderTxnRef, &t.SenderName, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet topup: %w", err)
	}
	t.Status = domain.TxStatus(status)

	if t.Amount, err = infra.NumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &t, nil
}
