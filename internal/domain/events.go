package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate and event type constants for the outbox feed.
const (
	AggregateTopup  = "topup"
	AggregateWallet = "wallet"

	EventTopupRequested = "topup.requested"
	EventTopupSettled   = "topup.settled"
	EventTopupFailed    = "topup.failed"
	EventWalletCredited = "wallet.credited"
)

// OutboxDraft is an event staged in the event_outbox table, written in the
// same database transaction as the state change it describes and published
// to Kafka by the outbox poller.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTopupRequestedEvent marks the reserve-phase commit of a purchase.
func NewTopupRequestedEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTopup,
		AggregateID:   tx.ID.String(),
		EventType:     EventTopupRequested,
		PartitionKey:  tx.PartnerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTopupSettledEvent marks a successful upstream settlement.
func NewTopupSettledEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTopup,
		AggregateID:   tx.ID.String(),
		EventType:     EventTopupSettled,
		PartitionKey:  tx.PartnerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTopupFailedEvent marks a compensated purchase.
func NewTopupFailedEvent(tx *Transaction, reason string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"transaction": tx,
		"reason":      reason,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTopup,
		AggregateID:   tx.ID.String(),
		EventType:     EventTopupFailed,
		PartitionKey:  tx.PartnerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewWalletCreditedEvent marks a slip-funded partner wallet credit.
func NewWalletCreditedEvent(topup *WalletTopup) OutboxDraft {
	payload, _ := json.Marshal(topup)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   topup.PartnerID.String(),
		EventType:     EventWalletCredited,
		PartitionKey:  topup.PartnerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
