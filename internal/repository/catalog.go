package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/infra"
)

const itemColumns = `id, code, category, company, face_value, provider_price, base_cost,
		       status, rate_version, created_at, updated_at`

type catalogRepo struct{}

// NewCatalogRepository returns a pgx-backed CatalogRepository.
func NewCatalogRepository() CatalogRepository {
	return &catalogRepo{}
}

func (r *catalogRepo) FindItemByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.CatalogItem, error) {
	row := db.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM catalog_items WHERE id = $1`, id)
	return scanItem(row)
}

func (r *catalogRepo) FindItemByCode(ctx context.Context, db DBTX, code string) (*domain.CatalogItem, error) {
	row := db.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM catalog_items WHERE code = $1`, code)
	return scanItem(row)
}

func (r *catalogRepo) ListItems(ctx context.Context, db DBTX) ([]domain.CatalogItem, error) {
	rows, err := db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM catalog_items ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("query catalog items: %w", err)
	}
	defer rows.Close()

	var out []domain.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}
	return out, nil
}

func (r *catalogRepo) UpsertItem(ctx context.Context, db DBTX, item *domain.CatalogItem) error {
	_, err := db.Exec(ctx, `
		INSERT INTO catalog_items
		  (id, code, category, company, face_value, provider_price, base_cost, status, rate_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
		  provider_price = EXCLUDED.provider_price,
		  base_cost      = EXCLUDED.base_cost,
		  status         = EXCLUDED.status,
		  rate_version   = EXCLUDED.rate_version,
		  updated_at     = now()`,
		item.ID,
		item.Code,
		string(item.Category),
		item.Company,
		infra.DecimalToNumeric(item.FaceValue),
		infra.DecimalToNumeric(item.ProviderPrice),
		infra.DecimalToNumeric(item.BaseCost),
		string(item.Status),
		item.RateVersion,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog item: %w", err)
	}
	return nil
}

func (r *catalogRepo) FindOverride(ctx context.Context, db DBTX, partnerID, itemID uuid.UUID) (*domain.PriceOverride, error) {
	row := db.QueryRow(ctx, `
		SELECT partner_id, item_id, sell_price, updated_at
		FROM partner_price_overrides
		WHERE partner_id = $1 AND item_id = $2`, partnerID, itemID)

	var o domain.PriceOverride
	var sellPrice pgtype.Numeric
	err := row.Scan(&o.PartnerID, &o.ItemID, &sellPrice, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan price override: %w", err)
	}
	if o.SellPrice, err = infra.NumericToDecimal(sellPrice); err != nil {
		return nil, fmt.Errorf("convert sell_price: %w", err)
	}
	return &o, nil
}

func (r *catalogRepo) UpsertOverride(ctx context.Context, db DBTX, override *domain.PriceOverride) error {
	_, err := db.Exec(ctx, `
		INSERT INTO partner_price_overrides (partner_id, item_id, sell_price, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (partner_id, item_id) DO UPDATE SET
		  sell_price = EXCLUDED.sell_price,
		  updated_at = now()`,
		override.PartnerID,
		override.ItemID,
		infra.DecimalToNumeric(override.SellPrice),
	)
	if err != nil {
		return fmt.Errorf("upsert price override: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (*domain.CatalogItem, error) {
	var i domain.CatalogItem
	var category, status string
	var faceValue, providerPrice, baseCost pgtype.Numeric
	err := row.Scan(
		&i.ID, &i.Code, &category, &i.Company,
		&faceValue, &providerPrice, &baseCost,
		&status, &i.RateVersion, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan catalog item: %w", err)
	}
	i.Category = domain.Category(category)
	i.Status = domain.ItemStatus(status)

	if i.FaceValue, err = infra.NumericToDecimal(faceValue); err != nil {
		return nil, fmt.Errorf("convert face_value: %w", err)
	}
	if i.ProviderPrice, err = infra.NumericToDecimal(providerPrice); err != nil {
		return nil, fmt.Errorf("convert provider_price: %w", err)
	}
	if i.BaseCost, err = infra.NumericToDecimal(baseCost); err != nil {
		return nil, fmt.Errorf("convert base_cost: %w", err)
	}
	return &i, nil
}
