package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
)

var ErrInvalidTransfer = errors.New("transfer is invalid")

// LoggingTransferer settles transfers by writing them to the structured log.
// It stands in for a payment rail in local and single-node deployments and
// ignores transfer ids it has already seen in this process.
type LoggingTransferer struct {
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewLoggingTransferer(logger *slog.Logger) *LoggingTransferer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingTransferer{
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

func (t *LoggingTransferer) Transfer(ctx context.Context, transfer entities.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(transfer.TransferID) == "" || strings.TrimSpace(transfer.Recipient) == "" {
		return ErrInvalidTransfer
	}
	if transfer.Amount.Nil() || transfer.Amount.Sign() < 0 {
		return ErrInvalidTransfer
	}

	t.mu.Lock()
	_, duplicate := t.seen[transfer.TransferID]
	t.seen[transfer.TransferID] = struct{}{}
	t.mu.Unlock()
	if duplicate {
		return nil
	}

	t.logger.Info("value transfer executed",
		"event", "payments_transfer_executed",
		"module", "internal/platform/payments",
		"layer", "platform",
		"transfer_id", transfer.TransferID,
		"recipient", transfer.Recipient,
		"amount", transfer.Amount.String(),
		"kind", string(transfer.Kind),
		"reference_id", transfer.ReferenceID,
	)
	return nil
}
