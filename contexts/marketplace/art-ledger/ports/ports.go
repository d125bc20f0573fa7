package ports

import (
	"context"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	contractsv1 "atelier/contracts/gen/events/v1"
)

// PurchasePlan computes a settlement from the ledger and listing as they are
// inside the repository write boundary.
type PurchasePlan func(ledger entities.Ledger, listing entities.Listing) (entities.Settlement, EventEnvelope, error)

// WithdrawalPlan computes a withdrawal from the ledger as it is inside the
// repository write boundary.
type WithdrawalPlan func(ledger entities.Ledger) (entities.Withdrawal, EventEnvelope, error)

// LedgerRepository owns persistence and transaction boundaries for ledger writes.
// Every write commits state, transfer requests and the outbox event together or
// not at all.
type LedgerRepository interface {
	// CreateLedger fails with ErrAlreadyInitialized when a ledger exists.
	CreateLedger(ctx context.Context, ledger entities.Ledger, event EventEnvelope) error
	// GetLedger fails with ErrNotInitialized before CreateLedger.
	GetLedger(ctx context.Context) (entities.Ledger, error)
	// PutListingWithOutbox inserts or replaces the artist's listing.
	PutListingWithOutbox(ctx context.Context, listing entities.Listing, event EventEnvelope) error
	// SettlePurchase locks the ledger, loads the artist's listing and runs plan.
	// On success the listing is removed, the commission accrued and the
	// settlement transfers recorded. Nothing is written when plan fails.
	SettlePurchase(ctx context.Context, artist string, plan PurchasePlan) (entities.Settlement, error)
	// WithdrawCommission locks the ledger and runs plan. On success the accrued
	// commission is reset and the withdrawal transfer recorded.
	WithdrawCommission(ctx context.Context, plan WithdrawalPlan) (entities.Withdrawal, error)
}

// ListingRepository is the read side of the listings table.
type ListingRepository interface {
	GetListing(ctx context.Context, artist string) (entities.Listing, error)
	ListListings(ctx context.Context, limit int, offset int) ([]entities.Listing, error)
	CountListings(ctx context.Context) (int, error)
}

// TransferRepository models the transfer outbox drained by the transfer relay.
type TransferRepository interface {
	ListPendingTransfers(ctx context.Context, limit int) ([]entities.Transfer, error)
	MarkTransferExecuted(ctx context.Context, transferID string, executedAt time.Time) error
	ListTransfersByRecipient(ctx context.Context, recipient string, limit int) ([]entities.Transfer, error)
}

// ValueTransferer is the runtime capability that moves value between accounts.
// Implementations must treat TransferID as an idempotency key.
type ValueTransferer interface {
	Transfer(ctx context.Context, transfer entities.Transfer) error
}

// IdempotencyRecord captures dedupe metadata for payable requests.
type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of timestamps and TTLs.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts settlement/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the ledger outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
