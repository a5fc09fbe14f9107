package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the sale state of a catalog item.
type ItemStatus string

const (
	ItemActive      ItemStatus = "ACTIVE"
	ItemInactive    ItemStatus = "INACTIVE"
	ItemMaintenance ItemStatus = "MAINTENANCE"
)

// CatalogItem is a sellable game/top-up product. ProviderPrice and BaseCost
// are derived from FaceValue by the pricing resolver once at catalog-sync
// time and persisted, so purchase-time prices stay stable even if the rate
// table later changes.
type CatalogItem struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"` // canonical "category_company_faceValue"
	Category      Category        `json:"category"`
	Company       string          `json:"company"`
	FaceValue     decimal.Decimal `json:"face_value"`
	ProviderPrice decimal.Decimal `json:"provider_price"` // what the platform pays upstream
	BaseCost      decimal.Decimal `json:"base_cost"`      // what a partner pays the platform
	Status        ItemStatus      `json:"status"`
	RateVersion   string          `json:"rate_version"` // rate table version the prices came from
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductCode returns the typed form of the item's code fields.
func (i CatalogItem) ProductCode() ProductCode {
	return ProductCode{Category: i.Category, Company: i.Company, FaceValue: i.FaceValue}
}

// PriceOverride is a partner-configured resale price for one item. When
// present it supersedes the default markup over BaseCost.
type PriceOverride struct {
	PartnerID uuid.UUID       `json:"partner_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	SellPrice decimal.Decimal `json:"sell_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}
