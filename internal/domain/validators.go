package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var targetRefRegex = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// ValidatePositiveAmount checks that a money amount is strictly positive.
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrValidation(fmt.Sprintf("amount must be positive, got %s", amount))
	}
	return nil
}

// ValidateTargetRef checks the player/account reference sent upstream.
func ValidateTargetRef(ref string) error {
	if ref == "" {
		return ErrValidation("player reference is required")
	}
	if !targetRefRegex.MatchString(ref) {
		return ErrValidation("player reference contains invalid characters")
	}
	return nil
}
