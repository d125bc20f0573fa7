package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/ports"
)

// TransferRelay executes pending transfer requests through the runtime's
// ValueTransferer. A failed request stays pending for the next cycle.
type TransferRelay struct {
	Transfers  ports.TransferRepository
	Transferer ports.ValueTransferer
	Clock      ports.Clock
	BatchSize  int
	Logger     *slog.Logger
}

func (r TransferRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Transfers.ListPendingTransfers(ctx, limit)
	if err != nil {
		logger.Error("ledger transfer list failed",
			"event", "ledger_transfer_list_failed",
			"module", "marketplace/art-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var failures []error
	executed := 0
	for _, transfer := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Transferer.Transfer(ctx, transfer); err != nil {
			logger.Warn("ledger transfer execution failed",
				"event", "ledger_transfer_failed",
				"module", "marketplace/art-ledger",
				"layer", "worker",
				"transfer_id", transfer.TransferID,
				"recipient", transfer.Recipient,
				"amount", transfer.Amount.String(),
				"error", err.Error(),
			)
			failures = append(failures, fmt.Errorf("transfer %s: %w", transfer.TransferID, err))
			continue
		}

		now := time.Now().UTC()
		if r.Clock != nil {
			now = r.Clock.Now().UTC()
		}
		if err := r.Transfers.MarkTransferExecuted(ctx, transfer.TransferID, now); err != nil {
			logger.Error("ledger transfer mark executed failed",
				"event", "ledger_transfer_mark_executed_failed",
				"module", "marketplace/art-ledger",
				"layer", "worker",
				"transfer_id", transfer.TransferID,
				"error", err.Error(),
			)
			return err
		}
		executed++
	}

	if len(pending) > 0 {
		logger.Info("ledger transfer relay cycle completed",
			"event", "ledger_transfer_relay_completed",
			"module", "marketplace/art-ledger",
			"layer", "worker",
			"executed_count", executed,
			"failed_count", len(failures),
		)
	}
	return errors.Join(failures...)
}
