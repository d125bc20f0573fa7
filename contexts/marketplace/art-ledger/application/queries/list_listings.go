package queries

import (
	"context"
	"log/slog"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/ports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ListListingsQuery struct {
	Limit  int
	Offset int
}

type ListListingsUseCase struct {
	Ledger   ports.LedgerRepository
	Listings ports.ListingRepository
	Logger   *slog.Logger
}

// Execute pages through active listings ordered by artist.
func (uc ListListingsUseCase) Execute(ctx context.Context, query ListListingsQuery) ([]entities.Listing, error) {
	logger := application.ResolveLogger(uc.Logger)
	if _, err := uc.Ledger.GetLedger(ctx); err != nil {
		return nil, err
	}
	limit := clampLimit(query.Limit)
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	items, err := uc.Listings.ListListings(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	logger.Debug("listings listed",
		"event", "ledger_listings_listed",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"count", len(items),
	)
	return items, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
