package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type InitializeLedgerCommand struct {
	Owner                 string
	CommissionRatePercent uint64
}

type InitializeLedgerUseCase struct {
	Ledger      ports.LedgerRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc InitializeLedgerUseCase) Execute(ctx context.Context, cmd InitializeLedgerCommand) (entities.Ledger, error) {
	logger := application.ResolveLogger(uc.Logger)

	if _, err := uc.Ledger.GetLedger(ctx); err == nil {
		return entities.Ledger{}, domainerrors.ErrAlreadyInitialized
	} else if !errors.Is(err, domainerrors.ErrNotInitialized) {
		return entities.Ledger{}, err
	}

	now := uc.Clock.Now().UTC()
	ledger, err := entities.NewLedger(cmd.Owner, cmd.CommissionRatePercent, now)
	if err != nil {
		return entities.Ledger{}, err
	}

	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Ledger{}, err
	}
	envelope, err := newLedgerEnvelope(
		strings.TrimSpace(eventID),
		EventLedgerInitialized,
		partitionByOwner,
		ledger.Owner,
		now,
		map[string]any{
			"owner":                   ledger.Owner,
			"commission_rate_percent": ledger.CommissionRatePercent,
			"initialized_at":          now.Format(time.RFC3339Nano),
		},
	)
	if err != nil {
		return entities.Ledger{}, err
	}
	if err := uc.Ledger.CreateLedger(ctx, ledger, envelope); err != nil {
		return entities.Ledger{}, err
	}

	logger.Info("ledger initialized",
		"event", "ledger_initialized",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"owner", ledger.Owner,
		"commission_rate_percent", ledger.CommissionRatePercent,
	)
	return ledger, nil
}
