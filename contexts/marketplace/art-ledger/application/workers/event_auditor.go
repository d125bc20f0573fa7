package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"
)

const defaultAuditConsumerGroup = "art-ledger-audit-cg"

// EventAuditor consumes published ledger events and writes one structured
// audit line per event. Redelivered events are skipped when Dedup is set.
type EventAuditor struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.IdempotencyStore
	Clock         ports.Clock
	Topic         string
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (a EventAuditor) Start(ctx context.Context) error {
	topic := a.Topic
	if topic == "" {
		topic = DefaultLedgerEventsTopic
	}
	group := a.ConsumerGroup
	if group == "" {
		group = defaultAuditConsumerGroup
	}
	return a.Subscriber.Subscribe(ctx, topic, group, a.Handle)
}

func (a EventAuditor) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(a.Logger)
	if err := event.Validate(); err != nil {
		logger.Warn("ledger event rejected by auditor",
			"event", "ledger_audit_event_invalid",
			"module", "marketplace/art-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if a.Clock != nil {
		now = a.Clock.Now().UTC()
	}

	if a.Dedup != nil {
		key := "audit:" + event.EventID
		hash := hashEventData(event.Data)
		record, found, err := a.Dedup.GetRecord(ctx, key, now)
		if err != nil {
			return err
		}
		if found {
			if record.RequestHash != hash {
				return domainerrors.ErrIdempotencyKeyConflict
			}
			logger.Debug("ledger event already audited",
				"event", "ledger_audit_event_replayed",
				"module", "marketplace/art-ledger",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
		if err := a.Dedup.PutRecord(ctx, ports.IdempotencyRecord{
			Key:         key,
			RequestHash: hash,
			ExpiresAt:   now.Add(a.dedupTTL()),
		}); err != nil {
			return err
		}
	}

	logger.Info("ledger event audited",
		"event", "ledger_audit_event_recorded",
		"module", "marketplace/art-ledger",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"occurred_at", event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"data", string(event.Data),
	)
	return nil
}

func (a EventAuditor) dedupTTL() time.Duration {
	if a.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return a.DedupTTL
}

func hashEventData(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
