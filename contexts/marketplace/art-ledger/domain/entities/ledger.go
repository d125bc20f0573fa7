package entities

import (
	"strings"
	"time"

	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"

	"github.com/filecoin-project/go-state-types/big"
)

// MaxCommissionRatePercent bounds the rate accepted at initialization so the
// artist share of a sale can never go negative.
const MaxCommissionRatePercent uint64 = 100

// Ledger is the marketplace-wide settlement record. Listings are owned by the
// same ledger but stored per artist by the repository.
type Ledger struct {
	Owner                 string
	CommissionRatePercent uint64
	AccruedCommission     big.Int
	InitializedAt         time.Time
	UpdatedAt             time.Time
}

func NewLedger(owner string, commissionRatePercent uint64, now time.Time) (Ledger, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Ledger{}, domainerrors.ErrInvalidInput
	}
	if commissionRatePercent > MaxCommissionRatePercent {
		return Ledger{}, domainerrors.ErrInvalidCommissionRate
	}

	return Ledger{
		Owner:                 owner,
		CommissionRatePercent: commissionRatePercent,
		AccruedCommission:     big.Zero(),
		InitializedAt:         now.UTC(),
		UpdatedAt:             now.UTC(),
	}, nil
}

func (l Ledger) IsOwner(identity string) bool {
	return strings.TrimSpace(identity) != "" && strings.TrimSpace(identity) == l.Owner
}

// ApplySettlement accrues the commission taken by a completed purchase.
func (l *Ledger) ApplySettlement(settlement Settlement) {
	l.AccruedCommission = big.Add(l.AccruedCommission, settlement.Commission)
	l.UpdatedAt = settlement.SettledAt.UTC()
}

// ApplyWithdrawal resets the accrued commission after the owner withdrew it.
func (l *Ledger) ApplyWithdrawal(withdrawal Withdrawal) {
	l.AccruedCommission = big.Zero()
	l.UpdatedAt = withdrawal.WithdrawnAt.UTC()
}
