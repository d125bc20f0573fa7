package queries

import (
	"context"
	"strings"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type ListTransfersQuery struct {
	Recipient string
	Limit     int
}

type ListTransfersUseCase struct {
	Ledger    ports.LedgerRepository
	Transfers ports.TransferRepository
}

func (uc ListTransfersUseCase) Execute(ctx context.Context, query ListTransfersQuery) ([]entities.Transfer, error) {
	recipient := strings.TrimSpace(query.Recipient)
	if recipient == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Ledger.GetLedger(ctx); err != nil {
		return nil, err
	}
	return uc.Transfers.ListTransfersByRecipient(ctx, recipient, clampLimit(query.Limit))
}
