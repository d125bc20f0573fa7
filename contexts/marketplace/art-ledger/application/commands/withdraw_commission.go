package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/domain/services"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type WithdrawCommissionCommand struct {
	Caller         string
	Owner          string
	IdempotencyKey string
}

type WithdrawCommissionUseCase struct {
	Ledger         ports.LedgerRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

type WithdrawCommissionResult struct {
	Withdrawal entities.Withdrawal
	Replayed   bool
}

func (uc WithdrawCommissionUseCase) Execute(
	ctx context.Context,
	cmd WithdrawCommissionCommand,
) (WithdrawCommissionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	owner := strings.TrimSpace(cmd.Owner)

	now := uc.Clock.Now().UTC()
	requestHash := hashPayload(map[string]any{
		"operation": "withdraw_commission",
		"caller":    caller,
		"owner":     owner,
	})
	if raw, found, err := lookupReplay(ctx, uc.Idempotency, cmd.IdempotencyKey, requestHash, now); err != nil {
		return WithdrawCommissionResult{}, err
	} else if found {
		var payload withdrawalReplayPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return WithdrawCommissionResult{}, err
		}
		return WithdrawCommissionResult{Withdrawal: payload.toEntity(), Replayed: true}, nil
	}

	withdrawalID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return WithdrawCommissionResult{}, err
	}
	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return WithdrawCommissionResult{}, err
	}

	withdrawal, err := uc.Ledger.WithdrawCommission(ctx, func(
		ledger entities.Ledger,
	) (entities.Withdrawal, ports.EventEnvelope, error) {
		withdrawal, err := services.WithdrawCommission(ledger, strings.TrimSpace(withdrawalID), caller, owner, now)
		if err != nil {
			return entities.Withdrawal{}, ports.EventEnvelope{}, err
		}
		envelope, err := newLedgerEnvelope(
			strings.TrimSpace(eventID),
			EventCommissionWithdrawn,
			partitionByOwner,
			withdrawal.Owner,
			now,
			map[string]any{
				"withdrawal_id": withdrawal.WithdrawalID,
				"owner":         withdrawal.Owner,
				"amount":        withdrawal.Amount.String(),
				"transfer_id":   withdrawal.Transfer.TransferID,
				"withdrawn_at":  now.Format(time.RFC3339Nano),
			},
		)
		if err != nil {
			return entities.Withdrawal{}, ports.EventEnvelope{}, err
		}
		return withdrawal, envelope, nil
	})
	if err != nil {
		logger.Warn("commission withdrawal rejected",
			"event", "ledger_commission_withdrawal_rejected",
			"module", "marketplace/art-ledger",
			"layer", "application",
			"caller", caller,
			"error", err.Error(),
		)
		return WithdrawCommissionResult{}, err
	}

	if err := storeReplay(
		ctx,
		uc.Idempotency,
		cmd.IdempotencyKey,
		requestHash,
		toWithdrawalReplay(withdrawal),
		now.Add(resolveTTL(uc.IdempotencyTTL)),
	); err != nil {
		return WithdrawCommissionResult{}, err
	}

	logger.Info("commission withdrawn",
		"event", "ledger_commission_withdrawn",
		"module", "marketplace/art-ledger",
		"layer", "application",
		"withdrawal_id", withdrawal.WithdrawalID,
		"owner", withdrawal.Owner,
		"amount", withdrawal.Amount.String(),
	)
	return WithdrawCommissionResult{Withdrawal: withdrawal}, nil
}
