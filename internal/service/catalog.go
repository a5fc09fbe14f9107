package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
	"github.com/creditline/platform/internal/pricing"
	"github.com/creditline/platform/internal/repository"
)

// CatalogService maintains the sellable item catalog. Sync recomputes every
// item's prices from the current rate table so a rate change rolls out in
// one pass.
type CatalogService struct {
	pool     *pgxpool.Pool
	catalog  repository.CatalogRepository
	resolver *pricing.Resolver
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(pool *pgxpool.Pool, catalog repository.CatalogRepository, resolver *pricing.Resolver, logger *slog.Logger) *CatalogService {
	return &CatalogService{pool: pool, catalog: catalog, resolver: resolver, logger: logger}
}

// SyncResult reports one catalog sync pass.
type SyncResult struct {
	Synced      int      `json:"synced"`
	Rejected    []string `json:"rejected,omitempty"`
	RateVersion string   `json:"rate_version"`
}

// Sync upserts catalog items for the given product codes, pricing each one
// from the rate table. Malformed codes are reported, not fatal.
func (s *CatalogService) Sync(ctx context.Context, codes []string) (*SyncResult, error) {
	result := &SyncResult{RateVersion: s.resolver.RateVersion()}

	for _, raw := range codes {
		code, err := domain.ParseProductCode(raw)
		if err != nil {
			s.logger.Warn("catalog sync skipped malformed code", "code", raw, "error", err)
			result.Rejected = append(result.Rejected, raw)
			continue
		}

		providerPrice, baseCost := s.resolver.ItemPrices(code)

		existing, err := s.catalog.FindItemByCode(ctx, s.pool, code.String())
		if err != nil {
			return nil, domain.ErrInternal("find item", err)
		}

		item := &domain.CatalogItem{
			ID:            uuid.New(),
			Code:          code.String(),
			Category:      code.Category,
			Company:       code.Company,
			FaceValue:     code.FaceValue,
			ProviderPrice: providerPrice,
			BaseCost:      baseCost,
			Status:        domain.ItemActive,
			RateVersion:   s.resolver.RateVersion(),
			UpdatedAt:     time.Now(),
		}
		if existing != nil {
			item.ID = existing.ID
			item.Status = existing.Status
			item.CreatedAt = existing.CreatedAt
		} else {
			item.CreatedAt = item.UpdatedAt
		}

		if err := s.catalog.UpsertItem(ctx, s.pool, item); err != nil {
			return nil, domain.ErrInternal("upsert item", err)
		}
		result.Synced++
	}

	s.logger.Info("catalog synced",
		"synced", result.Synced,
		"rejected", len(result.Rejected),
		"rate_version", result.RateVersion)
	return result, nil
}

// ListItems returns the full catalog.
func (s *CatalogService) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := s.catalog.ListItems(ctx, s.pool)
	if err != nil {
		return nil, domain.ErrInternal("list items", err)
	}
	return items, nil
}

// SetOverride records a partner's negotiated sell price for an item.
func (s *CatalogService) SetOverride(ctx context.Context, partnerID, itemID uuid.UUID, sellPrice decimal.Decimal) error {
	if err := domain.ValidatePositiveAmount(sellPrice); err != nil {
		return err
	}
	item, err := s.catalog.FindItemByID(ctx, s.pool, itemID)
	if err != nil {
		return domain.ErrInternal("find item", err)
	}
	if item == nil {
		return domain.ErrNotFound("item", itemID.String())
	}
	if sellPrice.LessThan(item.BaseCost) {
		return domain.ErrValidation("sell price below base cost")
	}
	return s.catalog.UpsertOverride(ctx, s.pool, &domain.PriceOverride{
		PartnerID: partnerID,
		ItemID:    itemID,
		SellPrice: sellPrice,
		UpdatedAt: time.Now(),
	})
}
