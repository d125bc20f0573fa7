package artledger

import (
	"context"
	"errors"
	"testing"

	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"
	httptransport "atelier/contexts/marketplace/art-ledger/transport/http"

	"github.com/google/go-cmp/cmp"
)

type capturedEvent struct {
	Topic     string
	EventType string
	Partition string
}

type capturingPublisher struct {
	events []capturedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.events = append(p.events, capturedEvent{
		Topic:     topic,
		EventType: event.EventType,
		Partition: event.PartitionKey,
	})
	return nil
}

func TestArtLedgerMarketplaceFlow(t *testing.T) {
	publisher := &capturingPublisher{}
	module := NewInMemoryModule(publisher, nil)
	ctx := context.Background()

	if _, err := module.Handler.GetLedgerHandler(ctx); !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("expected not initialized before setup, got %v", err)
	}
	if _, err := module.Handler.InitializeLedgerHandler(ctx, httptransport.InitializeLedgerRequest{
		Owner:                 "gallery",
		CommissionRatePercent: 10,
	}); err != nil {
		t.Fatalf("initialize ledger failed: %v", err)
	}

	listing, err := module.Handler.ListArtHandler(ctx, "artist_a", "artist_a", httptransport.ListArtRequest{
		OriginalAssetHash:  "0xdeadbeef",
		ProtectedAssetHash: "cafebabe",
		Price:              "100",
	})
	if err != nil {
		t.Fatalf("list art failed: %v", err)
	}
	if listing.Data.OriginalAssetHash != "deadbeef" || listing.Data.Price != "100" {
		t.Fatalf("unexpected listing: %+v", listing.Data)
	}

	if _, err := module.Handler.ListArtHandler(ctx, "artist_b", "artist_a", httptransport.ListArtRequest{
		OriginalAssetHash:  "00",
		ProtectedAssetHash: "00",
		Price:              "1",
	}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized listing on behalf of another artist, got %v", err)
	}

	purchase, err := module.Handler.BuyArtHandler(ctx, "buyer_b", "idem-buy-1", "artist_a", httptransport.BuyArtRequest{
		AttachedPayment: "150",
	})
	if err != nil {
		t.Fatalf("buy art failed: %v", err)
	}
	if purchase.Data.Commission != "10" || purchase.Data.ArtistShare != "90" || purchase.Data.Excess != "50" {
		t.Fatalf("unexpected settlement amounts: %+v", purchase.Data)
	}
	replay, err := module.Handler.BuyArtHandler(ctx, "buyer_b", "idem-buy-1", "artist_a", httptransport.BuyArtRequest{
		AttachedPayment: "150",
	})
	if err != nil {
		t.Fatalf("replayed buy art failed: %v", err)
	}
	if !replay.Replayed || replay.Data.SettlementID != purchase.Data.SettlementID {
		t.Fatalf("expected replay of %s, got %+v", purchase.Data.SettlementID, replay)
	}
	if _, err := module.Handler.GetListingHandler(ctx, "artist_a"); !errors.Is(err, domainerrors.ErrListingNotFound) {
		t.Fatalf("expected sold listing to be removed, got %v", err)
	}

	if _, err := module.Handler.WithdrawCommissionHandler(ctx, "buyer_b", "", httptransport.WithdrawCommissionRequest{
		Owner: "gallery",
	}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized withdrawal, got %v", err)
	}
	withdrawal, err := module.Handler.WithdrawCommissionHandler(ctx, "gallery", "idem-withdraw-1", httptransport.WithdrawCommissionRequest{
		Owner: "gallery",
	})
	if err != nil {
		t.Fatalf("withdraw commission failed: %v", err)
	}
	if withdrawal.Data.Amount != "10" {
		t.Fatalf("expected withdrawal of 10, got %s", withdrawal.Data.Amount)
	}

	summary, err := module.Handler.GetLedgerHandler(ctx)
	if err != nil {
		t.Fatalf("get ledger failed: %v", err)
	}
	if summary.Data.AccruedCommission != "0" || summary.Data.ListingCount != 0 {
		t.Fatalf("unexpected ledger summary: %+v", summary.Data)
	}

	if err := module.TransferRelay.RunOnce(ctx); err != nil {
		t.Fatalf("transfer relay failed: %v", err)
	}
	executed := make([]string, 0)
	for _, transfer := range module.Transferer.Executed() {
		executed = append(executed, transfer.Recipient+"="+transfer.Amount.String())
	}
	if diff := cmp.Diff([]string{"artist_a=90", "buyer_b=50", "gallery=10"}, executed); diff != "" {
		t.Fatalf("unexpected executed transfers (-want +got):\n%s", diff)
	}
	artistTransfers, err := module.Handler.ListTransfersHandler(ctx, "artist_a", 0)
	if err != nil {
		t.Fatalf("list transfers failed: %v", err)
	}
	if len(artistTransfers.Data) != 1 || artistTransfers.Data[0].Status != "executed" {
		t.Fatalf("expected one executed transfer for artist, got %+v", artistTransfers.Data)
	}

	if err := module.OutboxRelay.RunOnce(ctx); err != nil {
		t.Fatalf("outbox relay failed: %v", err)
	}
	want := []capturedEvent{
		{Topic: "ledger.events", EventType: "ledger.initialized", Partition: "gallery"},
		{Topic: "ledger.events", EventType: "ledger.art_listed", Partition: "artist_a"},
		{Topic: "ledger.events", EventType: "ledger.art_purchased", Partition: "artist_a"},
		{Topic: "ledger.events", EventType: "ledger.commission_withdrawn", Partition: "gallery"},
	}
	if diff := cmp.Diff(want, publisher.events); diff != "" {
		t.Fatalf("unexpected published events (-want +got):\n%s", diff)
	}
}

func TestArtLedgerRejectsMalformedAmounts(t *testing.T) {
	module := NewInMemoryModule(nil, nil)
	ctx := context.Background()

	if _, err := module.Handler.InitializeLedgerHandler(ctx, httptransport.InitializeLedgerRequest{
		Owner:                 "gallery",
		CommissionRatePercent: 5,
	}); err != nil {
		t.Fatalf("initialize ledger failed: %v", err)
	}
	for _, price := range []string{"", "-1", "1.5", "ten"} {
		_, err := module.Handler.ListArtHandler(ctx, "artist_a", "artist_a", httptransport.ListArtRequest{
			OriginalAssetHash:  "aa",
			ProtectedAssetHash: "bb",
			Price:              price,
		})
		if !errors.Is(err, domainerrors.ErrInvalidInput) {
			t.Fatalf("price %q: expected invalid input, got %v", price, err)
		}
	}
	if _, err := module.Handler.ListArtHandler(ctx, "artist_a", "artist_a", httptransport.ListArtRequest{
		OriginalAssetHash:  "not-hex",
		ProtectedAssetHash: "bb",
		Price:              "1",
	}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for bad hash, got %v", err)
	}
}
