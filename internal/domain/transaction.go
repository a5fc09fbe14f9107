package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxStatus is the settlement state of a top-up transaction.
// PENDING is the only non-terminal state; SUCCESS and FAILED are final.
type TxStatus string

const (
	TxPending TxStatus = "PENDING"
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

// Terminal reports whether the status admits no further transition.
func (s TxStatus) Terminal() bool { return s == TxSuccess || s == TxFailed }

// Transaction is the audited record of one game-credit purchase.
// It is created PENDING in the same database transaction as the wallet
// debits, finalized to SUCCESS or FAILED by the orchestrator, and never
// deleted. ProviderTxnID is set only on a successful upstream call; a late
// backfill of that reference never changes the status.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	PartnerID     uuid.UUID       `json:"partner_id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"` // nil for B2B API purchases
	ItemID        uuid.UUID       `json:"item_id"`
	BaseCost      decimal.Decimal `json:"base_cost"`      // partner's cost
	ProviderPrice decimal.Decimal `json:"provider_price"` // platform's upstream cost
	SellPrice     decimal.Decimal `json:"sell_price"`     // what the payer was charged
	Status        TxStatus        `json:"status"`
	ProviderTxnID *string         `json:"provider_txn_id,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	TargetRef     string          `json:"target_ref"`
	ServerRef     *string         `json:"server_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WalletTopup is the money-in record for a verified payment slip. Slip
// verification is synchronous and all-or-nothing, so rows exist only in
// SUCCESS state. ProviderTxnRef carries a unique index; a replayed slip is
// rejected by the database, not by a read-then-write check.
type WalletTopup struct {
	ID             uuid.UUID       `json:"id"`
	PartnerID      uuid.UUID       `json:"partner_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         TxStatus        `json:"status"`
	ProviderTxnRef string          `json:"provider_txn_ref"`
	SenderName     *string         `json:"sender_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
