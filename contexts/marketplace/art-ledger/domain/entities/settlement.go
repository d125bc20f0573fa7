package entities

import (
	"time"

	"github.com/filecoin-project/go-state-types/big"
)

// Settlement is the outcome of buying a listing.
type Settlement struct {
	SettlementID string
	Buyer        string
	Listing      Listing
	Payment      big.Int
	Commission   big.Int
	ArtistShare  big.Int
	Excess       big.Int
	SettledAt    time.Time
	Transfers    []Transfer
}

// Withdrawal is the outcome of the owner collecting the accrued commission.
type Withdrawal struct {
	WithdrawalID string
	Owner        string
	Amount       big.Int
	WithdrawnAt  time.Time
	Transfer     Transfer
}
