package entities

import (
	"time"

	"github.com/filecoin-project/go-state-types/big"
)

type TransferKind string

const (
	TransferKindArtistShare          TransferKind = "artist_share"
	TransferKindExcessRefund         TransferKind = "excess_refund"
	TransferKindCommissionWithdrawal TransferKind = "commission_withdrawal"
)

type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusExecuted TransferStatus = "executed"
)

// Transfer is a value transfer the ledger asks the runtime to execute. It is
// committed together with the state change that produced it.
type Transfer struct {
	TransferID  string
	Recipient   string
	Amount      big.Int
	Kind        TransferKind
	ReferenceID string
	Status      TransferStatus
	RequestedAt time.Time
	ExecutedAt  *time.Time
}

// NewTransfer derives the transfer id from the settlement or withdrawal that
// requested it, so a replayed request always maps to the same transfer.
func NewTransfer(referenceID string, kind TransferKind, recipient string, amount big.Int, requestedAt time.Time) Transfer {
	return Transfer{
		TransferID:  referenceID + ":" + string(kind),
		Recipient:   recipient,
		Amount:      amount,
		Kind:        kind,
		ReferenceID: referenceID,
		Status:      TransferStatusPending,
		RequestedAt: requestedAt.UTC(),
	}
}
