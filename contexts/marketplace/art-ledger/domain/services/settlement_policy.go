package services

import (
	"strings"
	"time"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"

	"github.com/filecoin-project/go-state-types/big"
)

var hundred = big.NewInt(100)

// SplitPrice returns floor(price*rate/100) as the commission and the remainder
// as the artist share. The two always sum to price.
func SplitPrice(price big.Int, commissionRatePercent uint64) (commission big.Int, artistShare big.Int) {
	commission = big.Div(big.Mul(price, big.NewIntUnsigned(commissionRatePercent)), hundred)
	artistShare = big.Sub(price, commission)
	return commission, artistShare
}

// AuthorizeListing only lets artists list on their own behalf.
func AuthorizeListing(caller string, artist string) error {
	caller = strings.TrimSpace(caller)
	if caller == "" || caller != strings.TrimSpace(artist) {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

type PurchaseInput struct {
	SettlementID string
	Buyer        string
	Payment      big.Int
	RetainExcess bool
	Now          time.Time
}

// SettlePurchase validates a purchase against the current listing and computes
// the resulting commission and transfers. It does not modify ledger; callers
// commit the returned settlement atomically.
func SettlePurchase(ledger entities.Ledger, listing entities.Listing, input PurchaseInput) (entities.Settlement, error) {
	if strings.TrimSpace(input.SettlementID) == "" || strings.TrimSpace(input.Buyer) == "" {
		return entities.Settlement{}, domainerrors.ErrInvalidInput
	}
	if input.Payment.Nil() || input.Payment.Sign() < 0 {
		return entities.Settlement{}, domainerrors.ErrInvalidInput
	}
	if input.Payment.LessThan(listing.Price) {
		return entities.Settlement{}, domainerrors.ErrInsufficientPayment
	}

	now := input.Now.UTC()
	commission, artistShare := SplitPrice(listing.Price, ledger.CommissionRatePercent)
	excess := big.Sub(input.Payment, listing.Price)

	transfers := []entities.Transfer{
		entities.NewTransfer(input.SettlementID, entities.TransferKindArtistShare, listing.Artist, artistShare, now),
	}
	if excess.Sign() > 0 && !input.RetainExcess {
		transfers = append(transfers,
			entities.NewTransfer(input.SettlementID, entities.TransferKindExcessRefund, strings.TrimSpace(input.Buyer), excess, now),
		)
	}

	return entities.Settlement{
		SettlementID: input.SettlementID,
		Buyer:        strings.TrimSpace(input.Buyer),
		Listing:      listing.Clone(),
		Payment:      input.Payment,
		Commission:   commission,
		ArtistShare:  artistShare,
		Excess:       excess,
		SettledAt:    now,
		Transfers:    transfers,
	}, nil
}

// WithdrawCommission authorizes the caller against the owner stored at
// initialization. The asserted owner must match too, so a caller cannot name
// themselves as owner.
func WithdrawCommission(
	ledger entities.Ledger,
	withdrawalID string,
	caller string,
	owner string,
	now time.Time,
) (entities.Withdrawal, error) {
	if strings.TrimSpace(withdrawalID) == "" {
		return entities.Withdrawal{}, domainerrors.ErrInvalidInput
	}
	if !ledger.IsOwner(caller) || !ledger.IsOwner(owner) {
		return entities.Withdrawal{}, domainerrors.ErrUnauthorized
	}

	amount := ledger.AccruedCommission
	if amount.Nil() {
		amount = big.Zero()
	}
	return entities.Withdrawal{
		WithdrawalID: withdrawalID,
		Owner:        ledger.Owner,
		Amount:       amount,
		WithdrawnAt:  now.UTC(),
		Transfer: entities.NewTransfer(
			withdrawalID,
			entities.TransferKindCommissionWithdrawal,
			ledger.Owner,
			amount,
			now,
		),
	}, nil
}
