package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

func event(id string, now time.Time) ports.EventEnvelope {
	return ports.EventEnvelope{EventID: id, EventType: "ledger.test", OccurredAt: now, Data: []byte(`{}`)}
}

func initializedStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	store := NewStore()
	ledger, err := entities.NewLedger("owner", 10, now)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := store.CreateLedger(context.Background(), ledger, event("evt-init", now)); err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return store
}

func TestCreateLedgerOnlyOnce(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	store := initializedStore(t, now)
	ledger, _ := entities.NewLedger("other", 50, now)
	if err := store.CreateLedger(context.Background(), ledger, event("evt-2", now)); !errors.Is(err, domainerrors.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 0)
	if len(pending) != 1 {
		t.Fatalf("rejected create must not write outbox, got %d rows", len(pending))
	}
}

func TestListListingsOrdersByArtistAndPages(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store := initializedStore(t, now)
	for i, artist := range []string{"carol", "alice", "bob"} {
		listing, err := entities.NewListing(artist, []byte{0x01}, []byte{0x02}, big.NewInt(int64(i+1)), now)
		if err != nil {
			t.Fatalf("new listing: %v", err)
		}
		if err := store.PutListingWithOutbox(ctx, listing, event("evt-"+artist, now)); err != nil {
			t.Fatalf("put listing: %v", err)
		}
	}

	page, err := store.ListListings(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(page) != 2 || page[0].Artist != "bob" || page[1].Artist != "carol" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if empty, _ := store.ListListings(ctx, 10, 5); len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}

func TestSettlePurchaseWritesNothingWhenPlanFails(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store := initializedStore(t, now)
	listing, _ := entities.NewListing("alice", []byte{0x01}, []byte{0x02}, big.NewInt(100), now)
	if err := store.PutListingWithOutbox(ctx, listing, event("evt-list", now)); err != nil {
		t.Fatalf("put listing: %v", err)
	}

	planErr := errors.New("plan rejected")
	_, err := store.SettlePurchase(ctx, "alice", func(entities.Ledger, entities.Listing) (entities.Settlement, ports.EventEnvelope, error) {
		return entities.Settlement{}, ports.EventEnvelope{}, planErr
	})
	if !errors.Is(err, planErr) {
		t.Fatalf("expected plan error, got %v", err)
	}
	if _, err := store.GetListing(ctx, "alice"); err != nil {
		t.Fatalf("listing must survive failed settlement: %v", err)
	}
	pending, _ := store.ListPendingOutbox(ctx, 0)
	if len(pending) != 2 {
		t.Fatalf("expected only init and list events, got %d", len(pending))
	}

	if _, err := store.SettlePurchase(ctx, "nobody", nil); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected listing not found, got %v", err)
	}
}

func TestWithdrawCommissionRejectsDuplicateTransferID(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store := initializedStore(t, now)
	plan := func(ledger entities.Ledger) (entities.Withdrawal, ports.EventEnvelope, error) {
		transfer := entities.NewTransfer("wd-1", entities.TransferKindCommissionWithdrawal, ledger.Owner, big.Zero(), now)
		return entities.Withdrawal{
			WithdrawalID: "wd-1",
			Owner:        ledger.Owner,
			Amount:       big.Zero(),
			WithdrawnAt:  now,
			Transfer:     transfer,
		}, event("evt-wd", now), nil
	}
	if _, err := store.WithdrawCommission(ctx, plan); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	if _, err := store.WithdrawCommission(ctx, plan); !errors.Is(err, domainerrors.ErrRepositoryInvariantBroke) {
		t.Fatalf("expected invariant error for reused transfer id, got %v", err)
	}
}

func TestIdempotencyRecordExpiresAgainstCallerClock(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	store := NewStore()
	record := ports.IdempotencyRecord{
		Key:             "idem-1",
		RequestHash:     "hash-a",
		ResponsePayload: []byte(`{"ok":true}`),
		ExpiresAt:       now.Add(time.Hour),
	}
	if err := store.PutRecord(ctx, record); err != nil {
		t.Fatalf("put record: %v", err)
	}
	if _, found, _ := store.GetRecord(ctx, "idem-1", now.Add(30*time.Minute)); !found {
		t.Fatal("expected record before expiry")
	}
	conflicting := record
	conflicting.RequestHash = "hash-b"
	if err := store.PutRecord(ctx, conflicting); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, found, _ := store.GetRecord(ctx, "idem-1", now.Add(2*time.Hour)); found {
		t.Fatal("expected record to be expired")
	}
}
