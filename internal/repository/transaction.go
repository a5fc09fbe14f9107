package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/infra"
)

const txColumns = `id, partner_id, customer_id, item_id, base_cost, provider_price, sell_price,
		       status, provider_txn_id, failure_reason, target_ref, server_ref, created_at, updated_at`

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

func (r *transactionRepo) Insert(ctx context.Context, db DBTX, tx *domain.Transaction) error {
	_, err := db.Exec(ctx, `
		INSERT INTO topup_transactions
		  (id, partner_id, customer_id, item_id, base_cost, provider_price, sell_price,
		   status, target_ref, server_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tx.ID,
		tx.PartnerID,
		tx.CustomerID,
		tx.ItemID,
		infra.DecimalToNumeric(tx.BaseCost),
		infra.DecimalToNumeric(tx.ProviderPrice),
		infra.DecimalToNumeric(tx.SellPrice),
		string(tx.Status),
		tx.TargetRef,
		tx.ServerRef,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM topup_transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// Finalize applies PENDING -> terminal. The status guard in the WHERE clause
// is what makes a second finalize (or a finalize after compensation already
// won) a visible failure instead of a silent overwrite.
func (r *transactionRepo) Finalize(ctx context.Context, db DBTX, id uuid.UUID, status domain.TxStatus, providerTxnID, failureReason *string) (*domain.Transaction, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("finalize to non-terminal status %s", status)
	}

	row := db.QueryRow(ctx, `
		UPDATE topup_transactions
		SET status = $2, provider_txn_id = $3, failure_reason = $4, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+txColumns, id, string(status), providerTxnID, failureReason)

	tx, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction %s is not pending", id)
	}
	return tx, nil
}

func (r *transactionRepo) BackfillProviderRef(ctx context.Context, db DBTX, id uuid.UUID, providerTxnID string) error {
	tag, err := db.Exec(ctx, `
		UPDATE topup_transactions
		SET provider_txn_id = $2, updated_at = now()
		WHERE id = $1`, id, providerTxnID)
	if err != nil {
		return fmt.Errorf("backfill provider ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("transaction", id.String())
	}
	return nil
}

func (r *transactionRepo) ListByPartner(ctx context.Context, db DBTX, partnerID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		// Keyset pagination: the cursor is the last row of the previous
		// page, excluded here.
		rows, err = db.Query(ctx, `
			SELECT `+txColumns+`
			FROM topup_transactions
			WHERE partner_id = $1
			  AND (created_at, id) < ((SELECT created_at, id FROM topup_transactions WHERE id = $2))
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, partnerID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+txColumns+`
			FROM topup_transactions
			WHERE partner_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, partnerID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepo) ListStalePending(ctx context.Context, db DBTX, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.Query(ctx, `
		SELECT `+txColumns+`
		FROM topup_transactions
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var status string
	var baseCost, providerPrice, sellPrice pgtype.Numeric
	err := row.Scan(
		&t.ID, &t.PartnerID, &t.CustomerID, &t.ItemID,
		&baseCost, &providerPrice, &sellPrice,
		&status, &t.ProviderTxnID, &t.FailureReason,
		&t.TargetRef, &t.ServerRef, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Status = domain.TxStatus(status)

	if t.BaseCost, err = infra.NumericToDecimal(baseCost); err != nil {
		return nil, fmt.Errorf("convert base_cost: %w", err)
	}
	if t.ProviderPrice, err = infra.NumericToDecimal(providerPrice); err != nil {
		return nil, fmt.Errorf("convert provider_price: %w", err)
	}
	if t.SellPrice, err = infra.NumericToDecimal(sellPrice); err != nil {
		return nil, fmt.Errorf("convert sell_price: %w", err)
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
