package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettlementTopic is the Kafka topic carrying all outbox events.
const SettlementTopic = "settlement.events"

// OutboxPoller polls the event_outbox table and publishes events to Kafka.
type OutboxPoller struct {
	pool      *pgxpool.Pool
	producer  *KafkaProducer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(pool *pgxpool.Pool, producer *KafkaProducer, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		pool:      pool,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if err := p.poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

func (p *OutboxPoller) poll(ctx context.Context) error {
	rows, err := p.pool.Query(ctx, `
		SELECT event_id, event_type, partition_key, payload
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1`, p.batchSize)
	if err != nil {
		return err
	}
	defer rows.Close()

	type outboxEvent struct {
		EventID      uuid.UUID
		EventType    string
		PartitionKey string
		Payload      json.RawMessage
	}

	var events []outboxEvent
	for rows.Next() {
		var e outboxEvent
		if err := rows.Scan(&e.EventID, &e.EventType, &e.PartitionKey, &e.Payload); err != nil {
			return err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	var published []uuid.UUID
	for _, e := range events {
		envelope, _ := json.Marshal(map[string]interface{}{
			"event_id":   e.EventID,
			"event_type": e.EventType,
			"payload":    e.Payload,
		})
		if err := p.producer.Publish(ctx, SettlementTopic, []byte(e.PartitionKey), envelope); err != nil {
			p.logger.Error("publish outbox event", "event_id", e.EventID, "error", err)
			break
		}
		published = append(published, e.EventID)
	}

	if len(published) == 0 {
		return nil
	}

	_, err = p.pool.Exec(ctx, `
		UPDATE event_outbox SET published_at = now()
		WHERE event_id = ANY($1)`, published)
	if err != nil {
		return err
	}

	p.logger.Debug("outbox events published", "count", len(published))
	return nil
}
