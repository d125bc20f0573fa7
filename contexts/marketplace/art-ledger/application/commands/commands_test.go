package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"atelier/contexts/marketplace/art-ledger/adapters/memory"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/go-cmp/cmp"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type sequenceIDs struct {
	next int
}

func (g *sequenceIDs) NewID(_ context.Context) (string, error) {
	g.next++
	return fmt.Sprintf("id-%03d", g.next), nil
}

type commandFixture struct {
	store      *memory.Store
	initialize InitializeLedgerUseCase
	listArt    ListArtUseCase
	buyArt     BuyArtUseCase
	withdraw   WithdrawCommissionUseCase
}

func newCommandFixture() commandFixture {
	store := memory.NewStore()
	clock := fixedClock{now: time.Date(2026, time.April, 2, 12, 0, 0, 0, time.UTC)}
	ids := &sequenceIDs{}
	return commandFixture{
		store:      store,
		initialize: InitializeLedgerUseCase{Ledger: store, Clock: clock, IDGenerator: ids},
		listArt:    ListArtUseCase{Ledger: store, Clock: clock, IDGenerator: ids},
		buyArt: BuyArtUseCase{
			Ledger:         store,
			Idempotency:    store,
			Clock:          clock,
			IDGenerator:    ids,
			IdempotencyTTL: time.Hour,
		},
		withdraw: WithdrawCommissionUseCase{
			Ledger:         store,
			Idempotency:    store,
			Clock:          clock,
			IDGenerator:    ids,
			IdempotencyTTL: time.Hour,
		},
	}
}

func (f commandFixture) mustInitialize(t *testing.T, rate uint64) {
	t.Helper()
	if _, err := f.initialize.Execute(context.Background(), InitializeLedgerCommand{
		Owner:                 "owner",
		CommissionRatePercent: rate,
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (f commandFixture) mustList(t *testing.T, artist string, price int64) {
	t.Helper()
	if _, err := f.listArt.Execute(context.Background(), ListArtCommand{
		Caller:             artist,
		Artist:             artist,
		OriginalAssetHash:  []byte{0xaa},
		ProtectedAssetHash: []byte{0xbb},
		Price:              big.NewInt(price),
	}); err != nil {
		t.Fatalf("list art for %s: %v", artist, err)
	}
}

func bigIntComparer() cmp.Option {
	return cmp.Comparer(func(a, b big.Int) bool {
		return a.Equals(b)
	})
}

func TestMarketplaceLedgerEndToEndScenario(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)

	bought, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(100)})
	if err != nil {
		t.Fatalf("buy art: %v", err)
	}
	if len(bought.Settlement.Transfers) != 1 {
		t.Fatalf("expected exactly one transfer, got %d", len(bought.Settlement.Transfers))
	}
	transfer := bought.Settlement.Transfers[0]
	if transfer.Recipient != "A" || !transfer.Amount.Equals(big.NewInt(90)) {
		t.Fatalf("expected 90 to A, got %s to %s", transfer.Amount, transfer.Recipient)
	}
	ledger, err := f.store.GetLedger(ctx)
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	if !ledger.AccruedCommission.Equals(big.NewInt(10)) {
		t.Fatalf("expected accrued commission 10, got %s", ledger.AccruedCommission)
	}

	if _, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(100)}); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected listing not found on second purchase, got %v", err)
	}

	withdrawn, err := f.withdraw.Execute(ctx, WithdrawCommissionCommand{Caller: "owner", Owner: "owner"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Withdrawal.Transfer.Recipient != "owner" || !withdrawn.Withdrawal.Amount.Equals(big.NewInt(10)) {
		t.Fatalf("unexpected withdrawal: %+v", withdrawn.Withdrawal)
	}
	ledger, _ = f.store.GetLedger(ctx)
	if !ledger.AccruedCommission.IsZero() {
		t.Fatalf("expected accrued commission reset, got %s", ledger.AccruedCommission)
	}

	again, err := f.withdraw.Execute(ctx, WithdrawCommissionCommand{Caller: "owner", Owner: "owner"})
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if !again.Withdrawal.Amount.IsZero() {
		t.Fatalf("expected zero second withdrawal, got %s", again.Withdrawal.Amount)
	}
}

func TestInitializeTwiceKeepsOriginalRate(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)

	_, err := f.initialize.Execute(ctx, InitializeLedgerCommand{Owner: "other", CommissionRatePercent: 50})
	if !errors.Is(err, domainerrors.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	ledger, _ := f.store.GetLedger(ctx)
	if ledger.CommissionRatePercent != 10 || ledger.Owner != "owner" {
		t.Fatalf("ledger changed by rejected initialize: %+v", ledger)
	}
}

func TestInitializeRejectsRateAboveHundred(t *testing.T) {
	f := newCommandFixture()
	_, err := f.initialize.Execute(context.Background(), InitializeLedgerCommand{Owner: "owner", CommissionRatePercent: 150})
	if !errors.Is(err, domainerrors.ErrInvalidCommissionRate) {
		t.Fatalf("expected invalid commission rate, got %v", err)
	}
	if _, err := f.store.GetLedger(context.Background()); !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("rejected initialize must not create a ledger, got %v", err)
	}
}

func TestOperationsRequireInitializedLedger(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()

	_, err := f.listArt.Execute(ctx, ListArtCommand{
		Caller:             "A",
		Artist:             "A",
		OriginalAssetHash:  []byte{0x01},
		ProtectedAssetHash: []byte{0x02},
		Price:              big.NewInt(1),
	})
	if !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("list art: expected not initialized, got %v", err)
	}
	if _, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(1)}); !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("buy art: expected not initialized, got %v", err)
	}
	if _, err := f.withdraw.Execute(ctx, WithdrawCommissionCommand{Caller: "owner", Owner: "owner"}); !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("withdraw: expected not initialized, got %v", err)
	}
}

func TestListArtRequiresArtistAsCaller(t *testing.T) {
	f := newCommandFixture()
	f.mustInitialize(t, 10)

	_, err := f.listArt.Execute(context.Background(), ListArtCommand{
		Caller:             "mallory",
		Artist:             "A",
		OriginalAssetHash:  []byte{0x01},
		ProtectedAssetHash: []byte{0x02},
		Price:              big.NewInt(1),
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if count, _ := f.store.CountListings(context.Background()); count != 0 {
		t.Fatalf("expected no listings, got %d", count)
	}
}

func TestListArtOverwritesExistingListing(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)
	f.mustList(t, "A", 250)

	listing, err := f.store.GetListing(ctx, "A")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if !listing.Price.Equals(big.NewInt(250)) {
		t.Fatalf("expected last write to win, got price %s", listing.Price)
	}
	if count, _ := f.store.CountListings(ctx); count != 1 {
		t.Fatalf("expected one listing per artist, got %d", count)
	}
}

func TestInsufficientPaymentLeavesStateUntouched(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)

	ledgerBefore, _ := f.store.GetLedger(ctx)
	listingsBefore, _ := f.store.ListListings(ctx, 0, 0)

	_, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(99)})
	if !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("expected insufficient payment, got %v", err)
	}

	ledgerAfter, _ := f.store.GetLedger(ctx)
	listingsAfter, _ := f.store.ListListings(ctx, 0, 0)
	if diff := cmp.Diff(ledgerBefore, ledgerAfter, bigIntComparer()); diff != "" {
		t.Fatalf("ledger mutated by failed purchase (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(listingsBefore, listingsAfter, bigIntComparer()); diff != "" {
		t.Fatalf("listings mutated by failed purchase (-before +after):\n%s", diff)
	}
	pending, _ := f.store.ListPendingTransfers(ctx, 0)
	if len(pending) != 0 {
		t.Fatalf("expected no transfer requests, got %d", len(pending))
	}
}

func TestBuyArtRefundsExcessUnlessRetained(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)

	result, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(130)})
	if err != nil {
		t.Fatalf("buy art: %v", err)
	}
	if len(result.Settlement.Transfers) != 2 {
		t.Fatalf("expected artist share and refund, got %d transfers", len(result.Settlement.Transfers))
	}
	refund := result.Settlement.Transfers[1]
	if refund.Kind != entities.TransferKindExcessRefund || refund.Recipient != "B" || !refund.Amount.Equals(big.NewInt(30)) {
		t.Fatalf("unexpected refund transfer: %+v", refund)
	}

	f.mustList(t, "C", 100)
	f.buyArt.RetainExcessPayment = true
	retained, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "C", Payment: big.NewInt(130)})
	if err != nil {
		t.Fatalf("buy art with retained excess: %v", err)
	}
	if len(retained.Settlement.Transfers) != 1 || !retained.Settlement.Excess.Equals(big.NewInt(30)) {
		t.Fatalf("expected excess to stay with the ledger, got %+v", retained.Settlement)
	}
	ledger, _ := f.store.GetLedger(ctx)
	if !ledger.AccruedCommission.Equals(big.NewInt(20)) {
		t.Fatalf("excess must not count as commission, got %s", ledger.AccruedCommission)
	}
}

func TestBuyArtReplaysIdempotentRequest(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)

	cmd := BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(100), IdempotencyKey: "idem-buy-1"}
	first, err := f.buyArt.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("first buy: %v", err)
	}
	second, err := f.buyArt.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("replayed buy: %v", err)
	}
	if !second.Replayed || second.Settlement.SettlementID != first.Settlement.SettlementID {
		t.Fatalf("expected replay of %s, got %+v", first.Settlement.SettlementID, second)
	}
	if diff := cmp.Diff(first.Settlement, second.Settlement, bigIntComparer()); diff != "" {
		t.Fatalf("replayed settlement differs (-first +second):\n%s", diff)
	}
	pending, _ := f.store.ListPendingTransfers(ctx, 0)
	if len(pending) != 1 {
		t.Fatalf("replay must not record transfers again, got %d", len(pending))
	}

	cmd.Payment = big.NewInt(120)
	if _, err := f.buyArt.Execute(ctx, cmd); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestWithdrawCommissionRequiresStoredOwner(t *testing.T) {
	f := newCommandFixture()
	ctx := context.Background()
	f.mustInitialize(t, 10)
	f.mustList(t, "A", 100)
	if _, err := f.buyArt.Execute(ctx, BuyArtCommand{Caller: "B", Artist: "A", Payment: big.NewInt(100)}); err != nil {
		t.Fatalf("buy art: %v", err)
	}

	cases := []WithdrawCommissionCommand{
		{Caller: "mallory", Owner: "mallory"},
		{Caller: "mallory", Owner: "owner"},
		{Caller: "owner", Owner: "mallory"},
	}
	for _, cmd := range cases {
		if _, err := f.withdraw.Execute(ctx, cmd); !errors.Is(err, domainerrors.ErrUnauthorized) {
			t.Fatalf("caller=%s owner=%s: expected unauthorized, got %v", cmd.Caller, cmd.Owner, err)
		}
	}
	ledger, _ := f.store.GetLedger(ctx)
	if !ledger.AccruedCommission.Equals(big.NewInt(10)) {
		t.Fatalf("rejected withdrawals must keep commission, got %s", ledger.AccruedCommission)
	}
}

func TestBuyArtAcceptsArtistAsBuyer(t *testing.T) {
	f := newCommandFixture()
	f.mustInitialize(t, 25)
	f.mustList(t, "A", 40)

	result, err := f.buyArt.Execute(context.Background(), BuyArtCommand{Caller: "A", Artist: "A", Payment: big.NewInt(40)})
	if err != nil {
		t.Fatalf("artist buying own listing: %v", err)
	}
	if !result.Settlement.Commission.Equals(big.NewInt(10)) || !result.Settlement.ArtistShare.Equals(big.NewInt(30)) {
		t.Fatalf("unexpected split: commission=%s share=%s", result.Settlement.Commission, result.Settlement.ArtistShare)
	}
}
