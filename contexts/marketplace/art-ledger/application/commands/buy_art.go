package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/domain/services"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

type BuyArtCommand struct {
	Caller         string
	Artist         string
	Payment        big.Int
	IdempotencyKey string
}

type BuyArtUseCase struct {
	Ledger              ports.LedgerRepository
	Idempotency         ports.IdempotencyStore
	Clock               ports.Clock
	IDGenerator         ports.IDGenerator
	IdempotencyTTL      time.Duration
	RetainExcessPayment bool
	Logger              *slog.Logger
}

type BuyArtResult struct {
	Settlement entities.Settlement
	Replayed   bool
}

// Execute settles a purchase of the artist's listing with the payment attached
// by the caller. Any caller may buy, the artist included.
func (uc BuyArtUseCase) Execute(ctx context.Context, cmd BuyArtCommand) (BuyArtResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	buyer := strings.TrimSpace(cmd.Caller)
	artist := strings.TrimSpace(cmd.Artist)
	if buyer == "" || artist == "" || cmd.Payment.Nil() || cmd.Payment.Sign() < 0 {
		return BuyArtResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.Clock.Now().UTC()
	requestHash := hashPayload(map[string]any{
		"operation": "buy_art",
		"caller":    buyer,
		"artist":    artist,
		"payment":   cmd.Payment.String(),
	})
	if raw, found, err := lookupReplay(ctx, uc.Idempotency, cmd.IdempotencyKey, requestHash, now); err != nil {
		return BuyArtResult{}, err
	} else if found {
		var payload settlementReplayPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return BuyArtResult{}, err
		}
		return BuyArtResult{Settlement: payload.toEntity(), Replayed: true}, nil
	}

	settlementID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return BuyArtResult{}, err
	}
	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return BuyArtResult{}, err
	}

	settlement, err := uc.Ledger.SettlePurchase(ctx, artist, func(
		ledger entities.Ledger,
		listing entities.Listing,
	) (entities.Settlement, ports.EventEnvelope, error) {
		settlement, err := services.SettlePurchase(ledger, listing, services.PurchaseInput{
			SettlementID: strings.TrimSpace(settlementID),
			Buyer:        buyer,
			Payment:      cmd.Payment,
			RetainExcess: uc.RetainExcessPayment,
			Now:          now,
		})
		if err != nil {
			return entities.Settlement{}, ports.EventEnvelope{}, err
		}
		envelope, err := newLedgerEnvelope(
			strings.TrimSpace(eventID),
			EventArtPurchased,
			partitionByArtist,
			listing.Artist,
			now,
			purchaseEventData(settlement),
		)
		if err != nil {
			return entities.Settlement{}, ports.EventEnvelope{}, err
		}
		return settlement, envelope, nil
	})
	if err != nil {
		logger.Warn("art purchase rejected",
			"event", "ledger_art_purchase_rejected",
			"module", "marketplace/art-ledger",
			"layer", "application",
			"buyer", buyer,
			"artist", artist,
			"error", err.Error(),
		)
		return BuyArtResult{}, err
	}

	if err := storeReplay(
		ctx,
		uc.Idempotency,
		cmd.IdempotencyKey,
		requestHash,
		toSettlementReplay(settlement),
		now.Add(resolveTTL(uc.IdempotencyTTL)),
	); err != nil {
		return BuyArtResult{}, err
	}

	logger.Info("art purchased",
		"event", "ledger_art_purchased",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"settlement_id", settlement.SettlementID,
		"buyer", settlement.Buyer,
		"artist", settlement.Listing.Artist,
		"price", settlement.Listing.Price.String(),
		"commission", settlement.Commission.String(),
		"transfer_count", len(settlement.Transfers),
	)
	return BuyArtResult{Settlement: settlement}, nil
}

func purchaseEventData(settlement entities.Settlement) map[string]any {
	transferIDs := make([]string, 0, len(settlement.Transfers))
	for _, transfer := range settlement.Transfers {
		transferIDs = append(transferIDs, transfer.TransferID)
	}
	return map[string]any{
		"settlement_id": settlement.SettlementID,
		"buyer":         settlement.Buyer,
		"artist":        settlement.Listing.Artist,
		"price":         settlement.Listing.Price.String(),
		"payment":       settlement.Payment.String(),
		"commission":    settlement.Commission.String(),
		"artist_share":  settlement.ArtistShare.String(),
		"excess":        settlement.Excess.String(),
		"transfer_ids":  transferIDs,
		"settled_at":    settlement.SettledAt.Format(time.RFC3339Nano),
	}
}
