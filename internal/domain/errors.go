package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

// ErrItemUnavailable covers inactive or maintenance catalog items.
func ErrItemUnavailable(code string, status ItemStatus) *AppError {
	return &AppError{
		Code:    "ITEM_UNAVAILABLE",
		Message: fmt.Sprintf("item %s is %s", code, status),
		Status:  400,
	}
}

// ErrInsufficientCustomerBalance is the payer-side precondition failure.
func ErrInsufficientCustomerBalance() *AppError {
	return &AppError{Code: "INSUFFICIENT_CUSTOMER_BALANCE", Message: "customer wallet balance too low", Status: 400}
}

// ErrInsufficientPartnerBalance is the reseller-side precondition failure.
func ErrInsufficientPartnerBalance() *AppError {
	return &AppError{Code: "INSUFFICIENT_PARTNER_BALANCE", Message: "partner wallet balance too low", Status: 400}
}

// ErrInsufficientBalance is the ledger-level rejection, raised when a debit
// would take a wallet below zero.
func ErrInsufficientBalance(walletID string) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: fmt.Sprintf("wallet %s has insufficient balance", walletID),
		Status:  400,
	}
}

// ErrUpstreamFailure wraps a non-accepted or unreachable upstream provider.
// The provider's own message rides along for diagnostics; credentials never
// appear in it.
func ErrUpstreamFailure(msg string, cause error) *AppError {
	return &AppError{Code: "UPSTREAM_FAILURE", Message: msg, Status: 502, Cause: cause}
}

// ErrDuplicateSlip is raised when a slip's bank reference was already used.
func ErrDuplicateSlip(transRef string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_SLIP",
		Message: fmt.Sprintf("slip %s has already been redeemed", transRef),
		Status:  409,
	}
}

// ErrSlipRejected covers slips that verified fine technically but failed a
// business check (wrong receiver, zero amount, missing reference).
func ErrSlipRejected(msg string) *AppError {
	return &AppError{Code: "SLIP_REJECTED", Message: msg, Status: 400}
}

// ErrSlipUnverifiable means every verifier backend failed or rejected the slip.
func ErrSlipUnverifiable(cause error) *AppError {
	return &AppError{Code: "SLIP_UNVERIFIABLE", Message: "slip could not be verified", Status: 502, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
