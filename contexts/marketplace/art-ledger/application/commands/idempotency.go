package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

type transferReplayPayload struct {
	TransferID  string                  `json:"transfer_id"`
	Recipient   string                  `json:"recipient"`
	Amount      big.Int                 `json:"amount"`
	Kind        entities.TransferKind   `json:"kind"`
	ReferenceID string                  `json:"reference_id"`
	Status      entities.TransferStatus `json:"status"`
	RequestedAt time.Time               `json:"requested_at"`
}

type settlementReplayPayload struct {
	SettlementID       string                  `json:"settlement_id"`
	Buyer              string                  `json:"buyer"`
	Artist             string                  `json:"artist"`
	OriginalAssetHash  []byte                  `json:"original_asset_hash"`
	ProtectedAssetHash []byte                  `json:"protected_asset_hash"`
	Price              big.Int                 `json:"price"`
	ListedAt           time.Time               `json:"listed_at"`
	Payment            big.Int                 `json:"payment"`
	Commission         big.Int                 `json:"commission"`
	ArtistShare        big.Int                 `json:"artist_share"`
	Excess             big.Int                 `json:"excess"`
	SettledAt          time.Time               `json:"settled_at"`
	Transfers          []transferReplayPayload `json:"transfers"`
}

type withdrawalReplayPayload struct {
	WithdrawalID string                `json:"withdrawal_id"`
	Owner        string                `json:"owner"`
	Amount       big.Int               `json:"amount"`
	WithdrawnAt  time.Time             `json:"withdrawn_at"`
	Transfer     transferReplayPayload `json:"transfer"`
}

// lookupReplay returns the stored response for key when the request matches.
// An empty key disables deduplication.
func lookupReplay(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	now time.Time,
) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || store == nil {
		return nil, false, nil
	}
	record, found, err := store.GetRecord(ctx, key, now)
	if err != nil || !found {
		return nil, false, err
	}
	if record.RequestHash != requestHash {
		return nil, false, domainerrors.ErrIdempotencyKeyConflict
	}
	return record.ResponsePayload, true, nil
}

func storeReplay(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	payload any,
	expiresAt time.Time,
) error {
	key = strings.TrimSpace(key)
	if key == "" || store == nil {
		return nil
	}
	serialized, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return store.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             key,
		RequestHash:     requestHash,
		ResponsePayload: serialized,
		ExpiresAt:       expiresAt,
	})
}

func resolveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultIdempotencyTTL
	}
	return ttl
}

func hashPayload(payload map[string]any) string {
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func toTransferReplay(transfer entities.Transfer) transferReplayPayload {
	return transferReplayPayload{
		TransferID:  transfer.TransferID,
		Recipient:   transfer.Recipient,
		Amount:      transfer.Amount,
		Kind:        transfer.Kind,
		ReferenceID: transfer.ReferenceID,
		Status:      transfer.Status,
		RequestedAt: transfer.RequestedAt,
	}
}

func (p transferReplayPayload) toEntity() entities.Transfer {
	return entities.Transfer{
		TransferID:  p.TransferID,
		Recipient:   p.Recipient,
		Amount:      p.Amount,
		Kind:        p.Kind,
		ReferenceID: p.ReferenceID,
		Status:      p.Status,
		RequestedAt: p.RequestedAt,
	}
}

func toSettlementReplay(settlement entities.Settlement) settlementReplayPayload {
	transfers := make([]transferReplayPayload, 0, len(settlement.Transfers))
	for _, transfer := range settlement.Transfers {
		transfers = append(transfers, toTransferReplay(transfer))
	}
	return settlementReplayPayload{
		SettlementID:       settlement.SettlementID,
		Buyer:              settlement.Buyer,
		Artist:             settlement.Listing.Artist,
		OriginalAssetHash:  settlement.Listing.OriginalAssetHash,
		ProtectedAssetHash: settlement.Listing.ProtectedAssetHash,
		Price:              settlement.Listing.Price,
		ListedAt:           settlement.Listing.ListedAt,
		Payment:            settlement.Payment,
		Commission:         settlement.Commission,
		ArtistShare:        settlement.ArtistShare,
		Excess:             settlement.Excess,
		SettledAt:          settlement.SettledAt,
		Transfers:          transfers,
	}
}

func (p settlementReplayPayload) toEntity() entities.Settlement {
	transfers := make([]entities.Transfer, 0, len(p.Transfers))
	for _, transfer := range p.Transfers {
		transfers = append(transfers, transfer.toEntity())
	}
	return entities.Settlement{
		SettlementID: p.SettlementID,
		Buyer:        p.Buyer,
		Listing: entities.Listing{
			Artist:             p.Artist,
			OriginalAssetHash:  p.OriginalAssetHash,
			ProtectedAssetHash: p.ProtectedAssetHash,
			Price:              p.Price,
			ListedAt:           p.ListedAt,
		},
		Payment:     p.Payment,
		Commission:  p.Commission,
		ArtistShare: p.ArtistShare,
		Excess:      p.Excess,
		SettledAt:   p.SettledAt,
		Transfers:   transfers,
	}
}

func toWithdrawalReplay(withdrawal entities.Withdrawal) withdrawalReplayPayload {
	return withdrawalReplayPayload{
		WithdrawalID: withdrawal.WithdrawalID,
		Owner:        withdrawal.Owner,
		Amount:       withdrawal.Amount,
		WithdrawnAt:  withdrawal.WithdrawnAt,
		Transfer:     toTransferReplay(withdrawal.Transfer),
	}
}

func (p withdrawalReplayPayload) toEntity() entities.Withdrawal {
	return entities.Withdrawal{
		WithdrawalID: p.WithdrawalID,
		Owner:        p.Owner,
		Amount:       p.Amount,
		WithdrawnAt:  p.WithdrawnAt,
		Transfer:     p.Transfer.toEntity(),
	}
}
