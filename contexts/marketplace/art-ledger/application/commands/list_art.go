package commands

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/domain/services"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

type ListArtCommand struct {
	Caller             string
	Artist             string
	OriginalAssetHash  []byte
	ProtectedAssetHash []byte
	Price              big.Int
}

type ListArtUseCase struct {
	Ledger      ports.LedgerRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute inserts the artist's listing, replacing any earlier one.
func (uc ListArtUseCase) Execute(ctx context.Context, cmd ListArtCommand) (entities.Listing, error) {
	logger := application.ResolveLogger(uc.Logger)

	if _, err := uc.Ledger.GetLedger(ctx); err != nil {
		return entities.Listing{}, err
	}
	if err := services.AuthorizeListing(cmd.Caller, cmd.Artist); err != nil {
		logger.Warn("listing rejected for caller",
			"event", "ledger_listing_unauthorized",
			"module", "marketplace/art-ledger",
			"layer", "application",
			"caller", strings.TrimSpace(cmd.Caller),
			"artist", strings.TrimSpace(cmd.Artist),
		)
		return entities.Listing{}, err
	}

	now := uc.Clock.Now().UTC()
	listing, err := entities.NewListing(cmd.Artist, cmd.OriginalAssetHash, cmd.ProtectedAssetHash, cmd.Price, now)
	if err != nil {
		return entities.Listing{}, err
	}

	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Listing{}, err
	}
	envelope, err := newLedgerEnvelope(
		strings.TrimSpace(eventID),
		EventArtListed,
		partitionByArtist,
		listing.Artist,
		now,
		map[string]any{
			"artist":               listing.Artist,
			"original_asset_hash":  hex.EncodeToString(listing.OriginalAssetHash),
			"protected_asset_hash": hex.EncodeToString(listing.ProtectedAssetHash),
			"price":                listing.Price.String(),
			"listed_at":            now.Format(time.RFC3339Nano),
		},
	)
	if err != nil {
		return entities.Listing{}, err
	}
	if err := uc.Ledger.PutListingWithOutbox(ctx, listing, envelope); err != nil {
		return entities.Listing{}, err
	}

	logger.Info("art listed",
		"event", "ledger_art_listed",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"artist", listing.Artist,
		"price", listing.Price.String(),
	)
	return listing, nil
}
