package postgresadapter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestParseAmountAcceptsIntegralNumerics(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "0"},
		{raw: "0", want: "0"},
		{raw: " 42 ", want: "42"},
		{raw: "100.000", want: "100"},
		{raw: "1000000000000000000000000", want: "1000000000000000000000000"},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.raw)
		if err != nil {
			t.Fatalf("parseAmount(%q): unexpected error %v", tc.raw, err)
		}
		if got.String() != tc.want {
			t.Fatalf("parseAmount(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseAmountRejectsFractionsAndNegatives(t *testing.T) {
	for _, raw := range []string{"1.5", "-3", "abc"} {
		if _, err := parseAmount(raw); err == nil {
			t.Fatalf("parseAmount(%q): expected error", raw)
		}
	}
}

func TestLedgerModelRoundTrip(t *testing.T) {
	now := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)
	ledger, err := entities.NewLedger("owner", 15, now)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ledger.AccruedCommission = big.NewInt(77)

	row := ledgerModelFromEntity(ledger)
	if row.LedgerID != defaultLedgerID || row.AccruedCommission != "77" {
		t.Fatalf("unexpected row: %+v", row)
	}
	got, err := row.toEntity()
	if err != nil {
		t.Fatalf("to entity: %v", err)
	}
	bigComparer := cmp.Comparer(func(a, b big.Int) bool { return a.Equals(b) })
	if diff := cmp.Diff(ledger, got, bigComparer); diff != "" {
		t.Fatalf("ledger mismatch (-want +got):\n%s", diff)
	}
}

func TestTransferModelKeepsExecutionTime(t *testing.T) {
	requested := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	transfer := entities.NewTransfer("settle-1", entities.TransferKindArtistShare, "alice", big.NewInt(90), requested)
	row := transferModelFromEntity(transfer)
	if row.TransferID != "settle-1:"+string(entities.TransferKindArtistShare) {
		t.Fatalf("unexpected transfer id %q", row.TransferID)
	}
	if row.ExecutedAt != nil || row.RequestedAt.Location() != time.UTC {
		t.Fatalf("unexpected timestamps: %+v", row)
	}

	executed := requested.Add(time.Minute)
	row.ExecutedAt = &executed
	row.Status = string(entities.TransferStatusExecuted)
	got, err := row.toEntity()
	if err != nil {
		t.Fatalf("to entity: %v", err)
	}
	if got.ExecutedAt == nil || !got.ExecutedAt.Equal(executed) || got.Status != entities.TransferStatusExecuted {
		t.Fatalf("unexpected transfer: %+v", got)
	}
	if !got.Amount.Equals(big.NewInt(90)) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
}

func TestOutboxModelFromEnvelope(t *testing.T) {
	now := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)
	row, err := outboxModelFromEnvelope(ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "ledger.art_listed",
		PartitionKey: "alice",
		OccurredAt:   now,
		Data:         []byte(`{"artist":"alice"}`),
	})
	if err != nil {
		t.Fatalf("outbox model: %v", err)
	}
	if row.Status != outboxStatusPending || row.OutboxID != "evt-1" || !row.CreatedAt.Equal(now) {
		t.Fatalf("unexpected row: %+v", row)
	}
	message := row.toMessage()
	if message.PartitionKey != "alice" || len(message.Payload) == 0 {
		t.Fatalf("unexpected message: %+v", message)
	}

	if _, err := outboxModelFromEnvelope(ports.EventEnvelope{EventType: "ledger.art_listed"}); err == nil {
		t.Fatalf("expected error for envelope without id")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error is not a unique violation")
	}
}
