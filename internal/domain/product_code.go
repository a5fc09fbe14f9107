package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the upstream product category of a catalog item.
type Category string

const (
	CategoryMobileTopup Category = "mtopup"
	CategoryGameTopup   Category = "gtopup"
	CategoryCashCard    Category = "cashcard"
	CategoryBillPay     Category = "billpay"
)

// KnownCategories lists every category the upstream provider accepts.
var KnownCategories = []Category{
	CategoryMobileTopup,
	CategoryGameTopup,
	CategoryCashCard,
	CategoryBillPay,
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	for _, k := range KnownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// ProductCode is the typed form of a catalog item code such as
// "gtopup_FREEFIRE_100". It is parsed once at the catalog boundary; nothing
// downstream re-parses the raw string.
type ProductCode struct {
	Category  Category
	Company   string
	FaceValue decimal.Decimal
}

// String reassembles the canonical code.
func (p ProductCode) String() string {
	return fmt.Sprintf("%s_%s_%s", p.Category, p.Company, p.FaceValue.String())
}

// ParseProductCode parses a raw "category_company_faceValue" code. It fails
// loudly on any unexpected shape rather than guessing.
func ParseProductCode(raw string) (ProductCode, error) {
	parts := strings.Split(raw, "_")
	if len(parts) != 3 {
		return ProductCode{}, ErrValidation(fmt.Sprintf("product code %q: want category_company_faceValue", raw))
	}

	cat := Category(parts[0])
	if !ValidCategory(cat) {
		return ProductCode{}, ErrValidation(fmt.Sprintf("product code %q: unknown category %q", raw, parts[0]))
	}

	company := parts[1]
	if company == "" {
		return ProductCode{}, ErrValidation(fmt.Sprintf("product code %q: empty company", raw))
	}

	face, err := decimal.NewFromString(parts[2])
	if err != nil {
		return ProductCode{}, ErrValidation(fmt.Sprintf("product code %q: bad face value %q", raw, parts[2]))
	}
	if !face.IsPositive() {
		return ProductCode{}, ErrValidation(fmt.Sprintf("product code %q: face value must be positive", raw))
	}

	return ProductCode{Category: cat, Company: company, FaceValue: face}, nil
}
