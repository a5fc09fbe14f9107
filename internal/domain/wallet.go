package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind distinguishes the two ledger sides a wallet can belong to.
type WalletKind string

const (
	WalletPartner  WalletKind = "partner"
	WalletCustomer WalletKind = "customer"
)

// Wallet is a spendable balance row. The balance is a fixed-point decimal and
// never goes negative; every mutation is a signed delta applied by the ledger
// engine under a row lock.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Kind      WalletKind      `json:"kind"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Partner is a reseller account. It owns a wallet and resells catalog items
// to its own customers, optionally with per-item price overrides.
type Partner struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	WalletID  uuid.UUID `json:"wallet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is an end buyer under a partner, with its own wallet.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partner_id"`
	Name      string    `json:"name"`
	WalletID  uuid.UUID `json:"wallet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReserveParams is the input to the atomic reserve phase of a purchase:
// debit the payer, debit the partner (unless the payer is the partner), and
// insert the PENDING transaction, all in one database transaction.
type ReserveParams struct {
	TransactionID uuid.UUID
	PartnerID     uuid.UUID
	CustomerID    *uuid.UUID // nil on the partner B2B path
	ItemID        uuid.UUID

	PayerWalletID   uuid.UUID
	PartnerWalletID uuid.UUID

	SellPrice     decimal.Decimal // debited from the payer wallet
	BaseCost      decimal.Decimal // debited from the partner wallet
	ProviderPrice decimal.Decimal // platform's upstream cost, recorded only

	TargetRef string // player ID at the game company
	ServerRef string // optional game server
}

// PartnerIsPayer reports whether the reserve debits a single wallet (the B2B
// path, where the partner buys for its own account).
func (p ReserveParams) PartnerIsPayer() bool {
	return p.PayerWalletID == p.PartnerWalletID
}

// CompensateParams reverses the exact debits of a reserve whose upstream call
// failed, and marks the transaction FAILED.
type CompensateParams struct {
	TransactionID   uuid.UUID
	PayerWalletID   uuid.UUID
	PartnerWalletID uuid.UUID
	SellPrice       decimal.Decimal
	BaseCost        decimal.Decimal
	FailureReason   string
}

// PartnerIsPayer mirrors ReserveParams.PartnerIsPayer for the reversal.
func (p CompensateParams) PartnerIsPayer() bool {
	return p.PayerWalletID == p.PartnerWalletID
}

// TopupCreditParams credits a partner wallet from a verified payment slip.
// The slip's bank reference is the uniqueness key.
type TopupCreditParams struct {
	PartnerID       uuid.UUID
	PartnerWalletID uuid.UUID
	Amount          decimal.Decimal
	ProviderTxnRef  string
	SenderName      string
}
