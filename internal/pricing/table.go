// Package pricing derives provider cost and resale price ratios from product
// codes. Everything here is pure: given the same table version and code, the
// same ratios come back, bit for bit.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/creditline/platform/internal/domain"
)

// ratioPlaces is the fixed precision both ratios are rounded to before use,
// so persisted prices are deterministic and auditable.
const ratioPlaces = 4

// Rate is the resolved (costRatio, priceRatio) pair for one product.
// costRatio is the fraction of face value the platform pays upstream;
// priceRatio is the fraction a partner pays the platform.
type Rate struct {
	Cost  decimal.Decimal
	Price decimal.Decimal
}

// TableConfig describes one immutable rate table version.
type TableConfig struct {
	Version string

	// Special maps a full product code or a bare company code to its
	// negotiated discount. Full-code entries win over company entries.
	Special map[string]decimal.Decimal

	// CategoryDiscount is the per-category default discount.
	CategoryDiscount map[domain.Category]decimal.Decimal

	// DefaultDiscount applies when nothing else matches.
	DefaultDiscount decimal.Decimal

	// AdminMargin is the fixed spread added to costRatio to form priceRatio.
	AdminMargin decimal.Decimal

	// CappedCategories lists categories whose priceRatio is capped at 1.0,
	// so partners never pay above face value on low-margin products.
	CappedCategories []domain.Category
}

// Table is an immutable, versioned rate lookup. Rate changes create a new
// Table rather than mutating one in place, so in-flight catalog syncs see a
// consistent version throughout.
type Table struct {
	version          string
	special          map[string]decimal.Decimal
	categoryDiscount map[domain.Category]decimal.Decimal
	defaultDiscount  decimal.Decimal
	adminMargin      decimal.Decimal
	capped           map[domain.Category]bool
}

// NewTable builds a Table from cfg, copying all maps.
func NewTable(cfg TableConfig) *Table {
	t := &Table{
		version:          cfg.Version,
		special:          make(map[string]decimal.Decimal, len(cfg.Special)),
		categoryDiscount: make(map[domain.Category]decimal.Decimal, len(cfg.CategoryDiscount)),
		defaultDiscount:  cfg.DefaultDiscount,
		adminMargin:      cfg.AdminMargin,
		capped:           make(map[domain.Category]bool, len(cfg.CappedCategories)),
	}
	for k, v := range cfg.Special {
		t.special[k] = v
	}
	for k, v := range cfg.CategoryDiscount {
		t.categoryDiscount[k] = v
	}
	for _, c := range cfg.CappedCategories {
		t.capped[c] = true
	}
	return t
}

// Version identifies the table for audit records.
func (t *Table) Version() string { return t.version }

// Resolve returns the rate for a product code. Priority order, first match
// wins:
//  1. full product code in the special table
//  2. company code in the special table
//  3. per-category default
//  4. global default
func (t *Table) Resolve(code domain.ProductCode) Rate {
	discount, ok := t.special[code.String()]
	if !ok {
		discount, ok = t.special[code.Company]
	}
	if !ok {
		discount, ok = t.categoryDiscount[code.Category]
	}
	if !ok {
		discount = t.defaultDiscount
	}

	one := decimal.NewFromInt(1)
	cost := one.Sub(discount).Round(ratioPlaces)
	price := cost.Add(t.adminMargin)
	if t.capped[code.Category] && price.GreaterThan(one) {
		price = one
	}
	return Rate{Cost: cost, Price: price.Round(ratioPlaces)}
}

// DefaultTable returns the historically tuned production rates.
func DefaultTable() *Table {
	d := decimal.RequireFromString
	return NewTable(TableConfig{
		Version: "2024-07",
		Special: map[string]decimal.Decimal{
			// Negotiated per-company discounts.
			"FREEFIRE": d("0.05"),
			"ROV":      d("0.04"),
			"PUBGM":    d("0.045"),
			"TMWALLET": d("0.035"),
			// TMWALLET's company code doubles as a cash-card product; the
			// 50-unit card carries its own rate.
			"cashcard_TMWALLET_50": d("0.02"),
		},
		CategoryDiscount: map[domain.Category]decimal.Decimal{
			domain.CategoryMobileTopup: d("0.02"),
			domain.CategoryGameTopup:   d("0.03"),
			domain.CategoryCashCard:    d("0.025"),
			domain.CategoryBillPay:     d("0.01"),
		},
		DefaultDiscount:  d("0.01"),
		AdminMargin:      d("0.015"),
		CappedCategories: []domain.Category{domain.CategoryMobileTopup, domain.CategoryBillPay},
	})
}
