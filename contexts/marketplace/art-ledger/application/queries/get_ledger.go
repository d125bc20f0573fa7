package queries

import (
	"context"
	"log/slog"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type LedgerSummary struct {
	Ledger       entities.Ledger
	ListingCount int
}

type GetLedgerUseCase struct {
	Ledger   ports.LedgerRepository
	Listings ports.ListingRepository
	Logger   *slog.Logger
}

func (uc GetLedgerUseCase) Execute(ctx context.Context) (LedgerSummary, error) {
	logger := application.ResolveLogger(uc.Logger)
	ledger, err := uc.Ledger.GetLedger(ctx)
	if err != nil {
		return LedgerSummary{}, err
	}
	count, err := uc.Listings.CountListings(ctx)
	if err != nil {
		return LedgerSummary{}, err
	}
	logger.Debug("ledger summary loaded",
		"event", "ledger_summary_loaded",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"listing_count", count,
	)
	return LedgerSummary{Ledger: ledger, ListingCount: count}, nil
}
