package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CurrentSchemaVersion is the envelope version written by this module.
const CurrentSchemaVersion = 1

var ErrInvalidEnvelope = errors.New("event envelope is invalid")

// Envelope is the canonical, versioned event envelope for cross-runtime use.
// Fields are append-only; consumers ignore what they do not know.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate reports whether the envelope carries the fields every consumer
// relies on for routing and dedupe.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.EventID) == "" ||
		strings.TrimSpace(e.EventType) == "" ||
		strings.TrimSpace(e.SourceService) == "" ||
		e.SchemaVersion <= 0 ||
		e.OccurredAt.IsZero() {
		return ErrInvalidEnvelope
	}
	if !json.Valid(e.Data) {
		return ErrInvalidEnvelope
	}
	return nil
}
