package httpadapter

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	application "atelier/contexts/marketplace/art-ledger/application"
	"atelier/contexts/marketplace/art-ledger/application/commands"
	"atelier/contexts/marketplace/art-ledger/application/queries"
	"atelier/contexts/marketplace/art-ledger/domain/entities"
	domainerrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	httptransport "atelier/contexts/marketplace/art-ledger/transport/http"

	"github.com/filecoin-project/go-state-types/big"
)

type Handler struct {
	InitializeLedger   commands.InitializeLedgerUseCase
	ListArt            commands.ListArtUseCase
	BuyArt             commands.BuyArtUseCase
	WithdrawCommission commands.WithdrawCommissionUseCase
	GetLedger          queries.GetLedgerUseCase
	GetListing         queries.GetListingUseCase
	ListListings       queries.ListListingsUseCase
	ListTransfers      queries.ListTransfersUseCase
	Logger             *slog.Logger
}

// InitializeLedgerHandler godoc
// @Summary Initialize the marketplace ledger
// @Description Creates the ledger once with its owner and commission rate.
// @Tags art-ledger
// @Accept json
// @Produce json
// @Param request body httptransport.InitializeLedgerRequest true "Ledger owner and rate"
// @Success 201 {object} httptransport.LedgerResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/initialize [post]
func (h Handler) InitializeLedgerHandler(
	ctx context.Context,
	req httptransport.InitializeLedgerRequest,
) (httptransport.LedgerResponse, error) {
	ledger, err := h.InitializeLedger.Execute(ctx, commands.InitializeLedgerCommand{
		Owner:                 req.Owner,
		CommissionRatePercent: req.CommissionRatePercent,
	})
	if err != nil {
		return httptransport.LedgerResponse{}, err
	}
	return httptransport.LedgerResponse{
		Status: "success",
		Data:   mapLedger(ledger, 0),
	}, nil
}

// GetLedgerHandler godoc
// @Summary Get ledger summary
// @Tags art-ledger
// @Produce json
// @Success 200 {object} httptransport.LedgerResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger [get]
func (h Handler) GetLedgerHandler(ctx context.Context) (httptransport.LedgerResponse, error) {
	summary, err := h.GetLedger.Execute(ctx)
	if err != nil {
		return httptransport.LedgerResponse{}, err
	}
	return httptransport.LedgerResponse{
		Status: "success",
		Data:   mapLedger(summary.Ledger, summary.ListingCount),
	}, nil
}

// ListArtHandler godoc
// @Summary List or relist an artwork
// @Description Stores the caller's single listing. Last write wins.
// @Tags art-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Authenticated caller"
// @Param artist path string true "Artist account"
// @Param request body httptransport.ListArtRequest true "Hex asset hashes and decimal price"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/listings/{artist} [put]
func (h Handler) ListArtHandler(
	ctx context.Context,
	callerID string,
	artist string,
	req httptransport.ListArtRequest,
) (httptransport.ListingResponse, error) {
	original, err := decodeHash(req.OriginalAssetHash)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	protected, err := decodeHash(req.ProtectedAssetHash)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	price, err := ParseAmount(req.Price)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	listing, err := h.ListArt.Execute(ctx, commands.ListArtCommand{
		Caller:             callerID,
		Artist:             artist,
		OriginalAssetHash:  original,
		ProtectedAssetHash: protected,
		Price:              price,
	})
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Status: "success", Data: mapListing(listing)}, nil
}

// GetListingHandler godoc
// @Summary Get an artist's listing
// @Tags art-ledger
// @Produce json
// @Param artist path string true "Artist account"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/ledger/listings/{artist} [get]
func (h Handler) GetListingHandler(ctx context.Context, artist string) (httptransport.ListingResponse, error) {
	listing, err := h.GetListing.Execute(ctx, artist)
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Status: "success", Data: mapListing(listing)}, nil
}

// ListListingsHandler godoc
// @Summary List open listings ordered by artist
// @Tags art-ledger
// @Produce json
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} httptransport.ListListingsResponse
// @Router /v1/ledger/listings [get]
func (h Handler) ListListingsHandler(
	ctx context.Context,
	limit int,
	offset int,
) (httptransport.ListListingsResponse, error) {
	items, err := h.ListListings.Execute(ctx, queries.ListListingsQuery{Limit: limit, Offset: offset})
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}
	data := make([]httptransport.ListingDTO, 0, len(items))
	for _, item := range items {
		data = append(data, mapListing(item))
	}
	return httptransport.ListListingsResponse{Status: "success", Data: data}, nil
}

// BuyArtHandler godoc
// @Summary Buy an artwork
// @Description Settles the listing, accrues commission and records the artist payout.
// @Tags art-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Authenticated caller"
// @Param Idempotency-Key header string false "Replay protection key"
// @Param artist path string true "Artist account"
// @Param request body httptransport.BuyArtRequest true "Attached payment"
// @Success 200 {object} httptransport.BuyArtResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/listings/{artist}/purchase [post]
func (h Handler) BuyArtHandler(
	ctx context.Context,
	callerID string,
	idempotencyKey string,
	artist string,
	req httptransport.BuyArtRequest,
) (httptransport.BuyArtResponse, error) {
	payment, err := ParseAmount(req.AttachedPayment)
	if err != nil {
		return httptransport.BuyArtResponse{}, err
	}
	result, err := h.BuyArt.Execute(ctx, commands.BuyArtCommand{
		Caller:         callerID,
		Artist:         artist,
		Payment:        payment,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.BuyArtResponse{}, err
	}
	if result.Replayed {
		application.ResolveLogger(h.Logger).Debug("art purchase replayed",
			"event", "ledger_art_purchase_replayed",
			"module", "marketplace/art-ledger",
			"layer", "adapter",
			"settlement_id", result.Settlement.SettlementID,
		)
	}
	return httptransport.BuyArtResponse{
		Status:   "success",
		Replayed: result.Replayed,
		Data:     mapSettlement(result.Settlement),
	}, nil
}

// WithdrawCommissionHandler godoc
// @Summary Withdraw accrued commission
// @Tags art-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Authenticated caller"
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body httptransport.WithdrawCommissionRequest true "Asserted owner"
// @Success 200 {object} httptransport.WithdrawCommissionResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/ledger/commission/withdraw [post]
func (h Handler) WithdrawCommissionHandler(
	ctx context.Context,
	callerID string,
	idempotencyKey string,
	req httptransport.WithdrawCommissionRequest,
) (httptransport.WithdrawCommissionResponse, error) {
	result, err := h.WithdrawCommission.Execute(ctx, commands.WithdrawCommissionCommand{
		Caller:         callerID,
		Owner:          req.Owner,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.WithdrawCommissionResponse{}, err
	}
	return httptransport.WithdrawCommissionResponse{
		Status:   "success",
		Replayed: result.Replayed,
		Data: httptransport.WithdrawalDTO{
			WithdrawalID: result.Withdrawal.WithdrawalID,
			Owner:        result.Withdrawal.Owner,
			Amount:       result.Withdrawal.Amount.String(),
			WithdrawnAt:  result.Withdrawal.WithdrawnAt.UTC().Format(time.RFC3339),
			Transfer:     mapTransfer(result.Withdrawal.Transfer),
		},
	}, nil
}

// ListTransfersHandler godoc
// @Summary List transfers recorded for a recipient
// @Tags art-ledger
// @Produce json
// @Param recipient query string true "Recipient account"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} httptransport.ListTransfersResponse
// @Router /v1/ledger/transfers [get]
func (h Handler) ListTransfersHandler(
	ctx context.Context,
	recipient string,
	limit int,
) (httptransport.ListTransfersResponse, error) {
	items, err := h.ListTransfers.Execute(ctx, queries.ListTransfersQuery{Recipient: recipient, Limit: limit})
	if err != nil {
		return httptransport.ListTransfersResponse{}, err
	}
	data := make([]httptransport.TransferDTO, 0, len(items))
	for _, item := range items {
		data = append(data, mapTransfer(item))
	}
	return httptransport.ListTransfersResponse{Status: "success", Data: data}, nil
}

// ParseAmount reads a non-negative base-10 integer amount.
func ParseAmount(raw string) (big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.Int{}, domainerrors.ErrInvalidInput
	}
	value, err := big.FromString(raw)
	if err != nil || value.Sign() < 0 {
		return big.Int{}, domainerrors.ErrInvalidInput
	}
	return value, nil
}

func decodeHash(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) == 0 {
		return nil, domainerrors.ErrInvalidInput
	}
	return decoded, nil
}

func mapLedger(ledger entities.Ledger, listingCount int) httptransport.LedgerDTO {
	return httptransport.LedgerDTO{
		Owner:                 ledger.Owner,
		CommissionRatePercent: ledger.CommissionRatePercent,
		AccruedCommission:     ledger.AccruedCommission.String(),
		ListingCount:          listingCount,
		InitializedAt:         ledger.InitializedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             ledger.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapListing(listing entities.Listing) httptransport.ListingDTO {
	return httptransport.ListingDTO{
		Artist:             listing.Artist,
		OriginalAssetHash:  hex.EncodeToString(listing.OriginalAssetHash),
		ProtectedAssetHash: hex.EncodeToString(listing.ProtectedAssetHash),
		Price:              listing.Price.String(),
		ListedAt:           listing.ListedAt.UTC().Format(time.RFC3339),
	}
}

func mapSettlement(settlement entities.Settlement) httptransport.SettlementDTO {
	transfers := make([]httptransport.TransferDTO, 0, len(settlement.Transfers))
	for _, transfer := range settlement.Transfers {
		transfers = append(transfers, mapTransfer(transfer))
	}
	return httptransport.SettlementDTO{
		SettlementID: settlement.SettlementID,
		Buyer:        settlement.Buyer,
		Artist:       settlement.Listing.Artist,
		Price:        settlement.Listing.Price.String(),
		Payment:      settlement.Payment.String(),
		Commission:   settlement.Commission.String(),
		ArtistShare:  settlement.ArtistShare.String(),
		Excess:       settlement.Excess.String(),
		SettledAt:    settlement.SettledAt.UTC().Format(time.RFC3339),
		Transfers:    transfers,
	}
}

func mapTransfer(transfer entities.Transfer) httptransport.TransferDTO {
	dto := httptransport.TransferDTO{
		TransferID:  transfer.TransferID,
		Recipient:   transfer.Recipient,
		Amount:      transfer.Amount.String(),
		Kind:        string(transfer.Kind),
		ReferenceID: transfer.ReferenceID,
		Status:      string(transfer.Status),
		RequestedAt: transfer.RequestedAt.UTC().Format(time.RFC3339),
	}
	if transfer.ExecutedAt != nil {
		dto.ExecutedAt = transfer.ExecutedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
