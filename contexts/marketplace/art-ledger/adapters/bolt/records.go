package bolt

import (
	"encoding/binary"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	"atelier/contexts/marketplace/art-ledger/ports"

	"github.com/filecoin-project/go-state-types/big"
)

var (
	bucketLedger      = []byte("ledger")
	bucketListings    = []byte("listings")
	bucketTransfers   = []byte("transfers")
	bucketTransferIDs = []byte("transfer_ids")
	bucketOutbox      = []byte("outbox")
	bucketIdempotency = []byte("idempotency")

	allBuckets = [][]byte{
		bucketLedger,
		bucketListings,
		bucketTransfers,
		bucketTransferIDs,
		bucketOutbox,
		bucketIdempotency,
	}

	ledgerKey = []byte("default")
)

type ledgerRecord struct {
	Owner                 string    `json:"owner"`
	CommissionRatePercent uint64    `json:"commission_rate_percent"`
	AccruedCommission     big.Int   `json:"accrued_commission"`
	InitializedAt         time.Time `json:"initialized_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type listingRecord struct {
	Artist             string    `json:"artist"`
	OriginalAssetHash  []byte    `json:"original_asset_hash"`
	ProtectedAssetHash []byte    `json:"protected_asset_hash"`
	Price              big.Int   `json:"price"`
	ListedAt           time.Time `json:"listed_at"`
}

type transferRecord struct {
	TransferID  string     `json:"transfer_id"`
	Recipient   string     `json:"recipient"`
	Amount      big.Int    `json:"amount"`
	Kind        string     `json:"kind"`
	ReferenceID string     `json:"reference_id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
}

type outboxRecord struct {
	OutboxID     string     `json:"outbox_id"`
	EventType    string     `json:"event_type"`
	PartitionKey string     `json:"partition_key"`
	Payload      []byte     `json:"payload"`
	CreatedAt    time.Time  `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

type idempotencyRecord struct {
	Key             string    `json:"key"`
	RequestHash     string    `json:"request_hash"`
	ResponsePayload []byte    `json:"response_payload"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func fromLedger(ledger entities.Ledger) ledgerRecord {
	return ledgerRecord{
		Owner:                 ledger.Owner,
		CommissionRatePercent: ledger.CommissionRatePercent,
		AccruedCommission:     ledger.AccruedCommission,
		InitializedAt:         ledger.InitializedAt.UTC(),
		UpdatedAt:             ledger.UpdatedAt.UTC(),
	}
}

func (r ledgerRecord) toEntity() entities.Ledger {
	accrued := r.AccruedCommission
	if accrued.Nil() {
		accrued = big.Zero()
	}
	return entities.Ledger{
		Owner:                 r.Owner,
		CommissionRatePercent: r.CommissionRatePercent,
		AccruedCommission:     accrued,
		InitializedAt:         r.InitializedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

func fromListing(listing entities.Listing) listingRecord {
	return listingRecord{
		Artist:             listing.Artist,
		OriginalAssetHash:  listing.OriginalAssetHash,
		ProtectedAssetHash: listing.ProtectedAssetHash,
		Price:              listing.Price,
		ListedAt:           listing.ListedAt.UTC(),
	}
}

func (r listingRecord) toEntity() entities.Listing {
	return entities.Listing{
		Artist:             r.Artist,
		OriginalAssetHash:  r.OriginalAssetHash,
		ProtectedAssetHash: r.ProtectedAssetHash,
		Price:              r.Price,
		ListedAt:           r.ListedAt.UTC(),
	}
}

func fromTransfer(transfer entities.Transfer) transferRecord {
	return transferRecord{
		TransferID:  transfer.TransferID,
		Recipient:   transfer.Recipient,
		Amount:      transfer.Amount,
		Kind:        string(transfer.Kind),
		ReferenceID: transfer.ReferenceID,
		Status:      string(transfer.Status),
		RequestedAt: transfer.RequestedAt.UTC(),
		ExecutedAt:  transfer.ExecutedAt,
	}
}

func (r transferRecord) toEntity() entities.Transfer {
	return entities.Transfer{
		TransferID:  r.TransferID,
		Recipient:   r.Recipient,
		Amount:      r.Amount,
		Kind:        entities.TransferKind(r.Kind),
		ReferenceID: r.ReferenceID,
		Status:      entities.TransferStatus(r.Status),
		RequestedAt: r.RequestedAt.UTC(),
		ExecutedAt:  r.ExecutedAt,
	}
}

func (r outboxRecord) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     r.OutboxID,
		EventType:    r.EventType,
		PartitionKey: r.PartitionKey,
		Payload:      r.Payload,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// sequenceKey keeps bucket iteration in insertion order.
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
