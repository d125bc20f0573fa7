package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"atelier/contexts/marketplace/art-ledger/application/commands"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/go-cmp/cmp"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	return store
}

func TestBoltStoreRunsMarketplaceScenarioAndSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store := openTestStore(t, path)
	clock := fixedClock{now: time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)}

	initialize := commands.InitializeLedgerUseCase{Ledger: store, Clock: clock, IDGenerator: store}
	listArt := commands.ListArtUseCase{Ledger: store, Clock: clock, IDGenerator: store}
	buyArt := commands.BuyArtUseCase{Ledger: store, Idempotency: store, Clock: clock, IDGenerator: store}
	withdraw := commands.WithdrawCommissionUseCase{Ledger: store, Idempotency: store, Clock: clock, IDGenerator: store}

	if _, err := initialize.Execute(ctx, commands.InitializeLedgerCommand{Owner: "owner", CommissionRatePercent: 10}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := listArt.Execute(ctx, commands.ListArtCommand{
		Caller:             "A",
		Artist:             "A",
		OriginalAssetHash:  []byte{0xde, 0xad},
		ProtectedAssetHash: []byte{0xbe, 0xef},
		Price:              big.NewInt(100),
	}); err != nil {
		t.Fatalf("list art: %v", err)
	}
	if _, err := buyArt.Execute(ctx, commands.BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(99)}); !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("expected insufficient payment, got %v", err)
	}
	bought, err := buyArt.Execute(ctx, commands.BuyArtCommand{
		Caller:         "B",
		Artist:         "A",
		Payment:        big.NewInt(100),
		IdempotencyKey: "buy-1",
	})
	if err != nil {
		t.Fatalf("buy art: %v", err)
	}
	if _, err := buyArt.Execute(ctx, commands.BuyArtCommand{Caller: "C", Artist: "A", Payment: big.NewInt(100)}); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected listing not found, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store = openTestStore(t, path)
	defer store.Close()
	withdraw.Ledger, withdraw.Idempotency, withdraw.IDGenerator = store, store, store
	buyArt.Ledger, buyArt.Idempotency, buyArt.IDGenerator = store, store, store

	replayed, err := buyArt.Execute(ctx, commands.BuyArtCommand{
		Caller:         "B",
		Artist:         "A",
		Payment:        big.NewInt(100),
		IdempotencyKey: "buy-1",
	})
	if err != nil {
		t.Fatalf("replay after reopen: %v", err)
	}
	if !replayed.Replayed || replayed.Settlement.SettlementID != bought.Settlement.SettlementID {
		t.Fatalf("expected replay of settlement %s, got %+v", bought.Settlement.SettlementID, replayed)
	}

	ledger, err := store.GetLedger(ctx)
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	if !ledger.AccruedCommission.Equals(big.NewInt(10)) {
		t.Fatalf("expected accrued commission 10 after reopen, got %s", ledger.AccruedCommission)
	}
	result, err := withdraw.Execute(ctx, commands.WithdrawCommissionCommand{Caller: "owner", Owner: "owner"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !result.Withdrawal.Amount.Equals(big.NewInt(10)) {
		t.Fatalf("expected withdrawal of 10, got %s", result.Withdrawal.Amount)
	}

	pending, err := store.ListPendingTransfers(ctx, 0)
	if err != nil {
		t.Fatalf("list pending transfers: %v", err)
	}
	got := make([]string, 0, len(pending))
	for _, transfer := range pending {
		got = append(got, transfer.Recipient+"="+transfer.Amount.String())
	}
	if diff := cmp.Diff([]string{"A=90", "owner=10"}, got); diff != "" {
		t.Fatalf("unexpected pending transfers (-want +got):\n%s", diff)
	}
}

func TestBoltStoreListsPagesAndMarksTransfers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer store.Close()
	now := time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.GetListing(ctx, "alice"); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected listing not found, got %v", err)
	}
	listing, _ := entities.NewListing("alice", []byte{0x01}, []byte{0x02}, big.NewInt(5), now)
	if err := store.PutListingWithOutbox(ctx, listing, testEvent("evt-list", now)); !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}

	ledger, _ := entities.NewLedger("owner", 20, now)
	if err := store.CreateLedger(ctx, ledger, testEvent("evt-init", now)); err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	for _, artist := range []string{"dave", "alice", "carol", "bob"} {
		listing, _ := entities.NewListing(artist, []byte{0x01}, []byte{0x02}, big.NewInt(5), now)
		if err := store.PutListingWithOutbox(ctx, listing, testEvent("evt-"+artist, now)); err != nil {
			t.Fatalf("put listing %s: %v", artist, err)
		}
	}
	page, err := store.ListListings(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(page) != 2 || page[0].Artist != "bob" || page[1].Artist != "carol" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if count, _ := store.CountListings(ctx); count != 4 {
		t.Fatalf("expected 4 listings, got %d", count)
	}

	outbox, err := store.ListPendingOutbox(ctx, 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(outbox) != 5 || outbox[0].OutboxID != "evt-init" {
		t.Fatalf("expected outbox in insertion order, got %+v", outbox)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-init", now); err != nil {
		t.Fatalf("mark outbox: %v", err)
	}
	if outbox, _ = store.ListPendingOutbox(ctx, 0); len(outbox) != 4 {
		t.Fatalf("expected 4 pending after publish, got %d", len(outbox))
	}

	if err := store.MarkTransferExecuted(ctx, "missing", now); !errors.Is(err, domainerrors.ErrTransferNotFound) {
		t.Fatalf("expected transfer not found, got %v", err)
	}
}

func testEvent(id string, now time.Time) ports.EventEnvelope {
	return ports.EventEnvelope{EventID: id, EventType: "ledger.test", OccurredAt: now, Data: []byte(`{}`)}
}
