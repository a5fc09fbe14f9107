package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditline/platform/internal/domain"
)

type partnerRepo struct{}

// NewPartnerRepository returns a pgx-backed PartnerRepository.
func NewPartnerRepository() PartnerRepository {
	return &partnerRepo{}
}

func (r *partnerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Partner, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, wallet_id, created_at
		FROM partners WHERE id = $1`, id)

	var p domain.Partner
	err := row.Scan(&p.ID, &p.Name, &p.WalletID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan partner: %w", err)
	}
	return &p, nil
}

func (r *partnerRepo) Create(ctx context.Context, db DBTX, partner *domain.Partner) error {
	_, err := db.Exec(ctx, `
		INSERT INTO partners (id, name, wallet_id) VALUES ($1, $2, $3)`,
		partner.ID, partner.Name, partner.WalletID)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

type customerRepo struct{}

// NewCustomerRepository returns a pgx-backed CustomerRepository.
func NewCustomerRepository() CustomerRepository {
	return &customerRepo{}
}

func (r *customerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Customer, error) {
	row := db.QueryRow(ctx, `
		SELECT id, partner_id, name, wallet_id, created_at
		FROM customers WHERE id = $1`, id)

	var c domain.Customer
	err := row.Scan(&c.ID, &c.PartnerID, &c.Name, &c.WalletID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

func (r *customerRepo) Create(ctx context.Context, db DBTX, customer *domain.Customer) error {
	_, err := db.Exec(ctx, `
		INSERT INTO customers (id, partner_id, name, wallet_id) VALUES ($1, $2, $3, $4)`,
		customer.ID, customer.PartnerID, customer.Name, customer.WalletID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}
