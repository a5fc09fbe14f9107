package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
)

// moneyPlaces is the precision persisted prices are rounded to.
const moneyPlaces = 2

// defaultPartnerMarkup is the fallback resale markup applied at purchase
// time for partners without a price override.
var defaultPartnerMarkup = decimal.RequireFromString("1.10")

// Resolver turns face values into persisted prices using one table version.
type Resolver struct {
	table *Table
}

// NewResolver creates a Resolver over the given rate table.
func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// RateVersion is the version stamped onto synced catalog items.
func (r *Resolver) RateVersion() string { return r.table.Version() }

// ItemPrices derives the two persisted prices of a catalog item:
// providerPrice (platform's upstream cost) and baseCost (partner's cost).
// Called at catalog-sync time only; purchases read the stored values.
func (r *Resolver) ItemPrices(code domain.ProductCode) (providerPrice, baseCost decimal.Decimal) {
	rate := r.table.Resolve(code)
	providerPrice = code.FaceValue.Mul(rate.Cost).Round(moneyPlaces)
	baseCost = code.FaceValue.Mul(rate.Price).Round(moneyPlaces)
	return providerPrice, baseCost
}

// DefaultPartnerSellPrice is the purchase-time fallback resale price for a
// partner without an override: +10% over base cost, rounded up to a whole
// currency unit.
func DefaultPartnerSellPrice(baseCost decimal.Decimal) decimal.Decimal {
	return baseCost.Mul(defaultPartnerMarkup).Ceil()
}
