package entities

import (
	"bytes"
	"strings"
	"time"

	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"

	"github.com/filecoin-project/go-state-types/big"
)

// Listing is an artist's active offer. The ledger keeps at most one per artist.
type Listing struct {
	Artist             string
	OriginalAssetHash  []byte
	ProtectedAssetHash []byte
	Price              big.Int
	ListedAt           time.Time
}

func NewListing(
	artist string,
	originalAssetHash []byte,
	protectedAssetHash []byte,
	price big.Int,
	listedAt time.Time,
) (Listing, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" || len(originalAssetHash) == 0 || len(protectedAssetHash) == 0 {
		return Listing{}, domainerrors.ErrInvalidInput
	}
	if price.Nil() || price.Sign() < 0 {
		return Listing{}, domainerrors.ErrInvalidInput
	}

	return Listing{
		Artist:             artist,
		OriginalAssetHash:  bytes.Clone(originalAssetHash),
		ProtectedAssetHash: bytes.Clone(protectedAssetHash),
		Price:              price,
		ListedAt:           listedAt.UTC(),
	}, nil
}

// Clone returns a copy that shares no hash buffers with l.
func (l Listing) Clone() Listing {
	l.OriginalAssetHash = bytes.Clone(l.OriginalAssetHash)
	l.ProtectedAssetHash = bytes.Clone(l.ProtectedAssetHash)
	return l
}
