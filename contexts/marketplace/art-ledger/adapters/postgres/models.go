package postgresadapter

import (
	"fmt"
	"strings"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

const defaultLedgerID = "default"

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type ledgerModel struct {
	LedgerID              string    `gorm:"column:ledger_id;primaryKey"`
	Owner                 string    `gorm:"column:owner;not null"`
	CommissionRatePercent uint64    `gorm:"column:commission_rate_percent;not null"`
	AccruedCommission     string    `gorm:"column:accrued_commission;type:numeric(78,0);not null"`
	InitializedAt         time.Time `gorm:"column:initialized_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (ledgerModel) TableName() string {
	return "art_ledger"
}

type listingModel struct {
	Artist             string    `gorm:"column:artist;primaryKey"`
	OriginalAssetHash  []byte    `gorm:"column:original_asset_hash;not null"`
	ProtectedAssetHash []byte    `gorm:"column:protected_asset_hash;not null"`
	Price              string    `gorm:"column:price;type:numeric(78,0);not null"`
	ListedAt           time.Time `gorm:"column:listed_at"`
}

func (listingModel) TableName() string {
	return "art_listings"
}

type transferModel struct {
	TransferID  string     `gorm:"column:transfer_id;primaryKey"`
	Recipient   string     `gorm:"column:recipient;index"`
	Amount      string     `gorm:"column:amount;type:numeric(78,0);not null"`
	Kind        string     `gorm:"column:kind"`
	ReferenceID string     `gorm:"column:reference_id;index"`
	Status      string     `gorm:"column:status;index"`
	RequestedAt time.Time  `gorm:"column:requested_at"`
	ExecutedAt  *time.Time `gorm:"column:executed_at"`
}

func (transferModel) TableName() string {
	return "art_transfers"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "art_ledger_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "art_ledger_outbox"
}

func ledgerModelFromEntity(ledger entities.Ledger) ledgerModel {
	return ledgerModel{
		LedgerID:              defaultLedgerID,
		Owner:                 strings.TrimSpace(ledger.Owner),
		CommissionRatePercent: ledger.CommissionRatePercent,
		AccruedCommission:     formatAmount(ledger.AccruedCommission),
		InitializedAt:         ledger.InitializedAt.UTC(),
		UpdatedAt:             ledger.UpdatedAt.UTC(),
	}
}

func (m ledgerModel) toEntity() (entities.Ledger, error) {
	accrued, err := parseAmount(m.AccruedCommission)
	if err != nil {
		return entities.Ledger{}, fmt.Errorf("ledger accrued commission: %w", err)
	}
	return entities.Ledger{
		Owner:                 m.Owner,
		CommissionRatePercent: m.CommissionRatePercent,
		AccruedCommission:     accrued,
		InitializedAt:         m.InitializedAt.UTC(),
		UpdatedAt:             m.UpdatedAt.UTC(),
	}, nil
}

func listingModelFromEntity(listing entities.Listing) listingModel {
	return listingModel{
		Artist:             strings.TrimSpace(listing.Artist),
		OriginalAssetHash:  append([]byte(nil), listing.OriginalAssetHash...),
		ProtectedAssetHash: append([]byte(nil), listing.ProtectedAssetHash...),
		Price:              formatAmount(listing.Price),
		ListedAt:           listing.ListedAt.UTC(),
	}
}

func (m listingModel) toEntity() (entities.Listing, error) {
	price, err := parseAmount(m.Price)
	if err != nil {
		return entities.Listing{}, fmt.Errorf("listing %s price: %w", m.Artist, err)
	}
	return entities.Listing{
		Artist:             m.Artist,
		OriginalAssetHash:  append([]byte(nil), m.OriginalAssetHash...),
		ProtectedAssetHash: append([]byte(nil), m.ProtectedAssetHash...),
		Price:              price,
		ListedAt:           m.ListedAt.UTC(),
	}, nil
}

func transferModelFromEntity(transfer entities.Transfer) transferModel {
	return transferModel{
		TransferID:  strings.TrimSpace(transfer.TransferID),
		Recipient:   strings.TrimSpace(transfer.Recipient),
		Amount:      formatAmount(transfer.Amount),
		Kind:        string(transfer.Kind),
		ReferenceID: strings.TrimSpace(transfer.ReferenceID),
		Status:      string(transfer.Status),
		RequestedAt: transfer.RequestedAt.UTC(),
		ExecutedAt:  normalizeOptionalTime(transfer.ExecutedAt),
	}
}

func (m transferModel) toEntity() (entities.Transfer, error) {
	amount, err := parseAmount(m.Amount)
	if err != nil {
		return entities.Transfer{}, fmt.Errorf("transfer %s amount: %w", m.TransferID, err)
	}
	return entities.Transfer{
		TransferID:  m.TransferID,
		Recipient:   m.Recipient,
		Amount:      amount,
		Kind:        entities.TransferKind(m.Kind),
		ReferenceID: m.ReferenceID,
		Status:      entities.TransferStatus(m.Status),
		RequestedAt: m.RequestedAt.UTC(),
		ExecutedAt:  normalizeOptionalTime(m.ExecutedAt),
	}, nil
}

func (m outboxModel) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func formatAmount(value big.Int) string {
	if value.Nil() {
		return "0"
	}
	return value.String()
}

// parseAmount reads a NUMERIC(78,0) column. Postgres may render integral
// numerics with a trailing ".0" scale depending on how the column was created.
func parseAmount(raw string) (big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.Zero(), nil
	}
	if whole, fraction, found := strings.Cut(raw, "."); found {
		if strings.Trim(fraction, "0") != "" {
			return big.Int{}, fmt.Errorf("amount %q is not integral", raw)
		}
		raw = whole
	}
	value, err := big.FromString(raw)
	if err != nil {
		return big.Int{}, err
	}
	if value.Sign() < 0 {
		return big.Int{}, fmt.Errorf("amount %q is negative", raw)
	}
	return value, nil
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
