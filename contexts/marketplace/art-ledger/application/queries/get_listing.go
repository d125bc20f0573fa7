package queries

import (
	"context"
	"strings"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type GetListingUseCase struct {
	Ledger   ports.LedgerRepository
	Listings ports.ListingRepository
}

func (uc GetListingUseCase) Execute(ctx context.Context, artist string) (entities.Listing, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return entities.Listing{}, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Ledger.GetLedger(ctx); err != nil {
		return entities.Listing{}, err
	}
	return uc.Listings.GetListing(ctx, artist)
}
