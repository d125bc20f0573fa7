package commands

import (
	"encoding/json"
	"time"

	"atelier/contexts/marketplace/art-ledger/ports"
	contractsv1 "atelier/contracts/gen/events/v1"
)

const (
	EventLedgerInitialized   = "ledger.initialized"
	EventArtListed           = "ledger.art_listed"
	EventArtPurchased        = "ledger.art_purchased"
	EventCommissionWithdrawn = "ledger.commission_withdrawn"
	sourceService            = "art-ledger"
	partitionByArtist        = "artist"
	partitionByOwner         = "owner"
)

func newLedgerEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    contractsv1.CurrentSchemaVersion,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
