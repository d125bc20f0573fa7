package http

// Amounts travel as base-10 strings so values beyond 64 bits survive JSON.
// Asset hashes travel as lowercase hex.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitializeLedgerRequest struct {
	Owner                 string `json:"owner"`
	CommissionRatePercent uint64 `json:"commission_rate_percent"`
}

type LedgerDTO struct {
	Owner                 string `json:"owner"`
	CommissionRatePercent uint64 `json:"commission_rate_percent"`
	AccruedCommission     string `json:"accrued_commission"`
	ListingCount          int    `json:"listing_count"`
	InitializedAt         string `json:"initialized_at"`
	UpdatedAt             string `json:"updated_at"`
}

type LedgerResponse struct {
	Status string    `json:"status"`
	Data   LedgerDTO `json:"data"`
}

type ListArtRequest struct {
	OriginalAssetHash  string `json:"original_asset_hash"`
	ProtectedAssetHash string `json:"protected_asset_hash"`
	Price              string `json:"price"`
}

type ListingDTO struct {
	Artist             string `json:"artist"`
	OriginalAssetHash  string `json:"original_asset_hash"`
	ProtectedAssetHash string `json:"protected_asset_hash"`
	Price              string `json:"price"`
	ListedAt           string `json:"listed_at"`
}

type ListingResponse struct {
	Status string     `json:"status"`
	Data   ListingDTO `json:"data"`
}

type ListListingsResponse struct {
	Status string       `json:"status"`
	Data   []ListingDTO `json:"data"`
}

type BuyArtRequest struct {
	AttachedPayment string `json:"attached_payment"`
}

type TransferDTO struct {
	TransferID  string `json:"transfer_id"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	ExecutedAt  string `json:"executed_at,omitempty"`
}

type SettlementDTO struct {
	SettlementID string        `json:"settlement_id"`
	Buyer        string        `json:"buyer"`
	Artist       string        `json:"artist"`
	Price        string        `json:"price"`
	Payment      string        `json:"payment"`
	Commission   string        `json:"commission"`
	ArtistShare  string        `json:"artist_share"`
	Excess       string        `json:"excess"`
	SettledAt    string        `json:"settled_at"`
	Transfers    []TransferDTO `json:"transfers"`
}

type BuyArtResponse struct {
	Status   string        `json:"status"`
	Replayed bool          `json:"replayed"`
	Data     SettlementDTO `json:"data"`
}

type WithdrawCommissionRequest struct {
	Owner string `json:"owner"`
}

type WithdrawalDTO struct {
	WithdrawalID string      `json:"withdrawal_id"`
	Owner        string      `json:"owner"`
	Amount       string      `json:"amount"`
	WithdrawnAt  string      `json:"withdrawn_at"`
	Transfer     TransferDTO `json:"transfer"`
}

type WithdrawCommissionResponse struct {
	Status   string        `json:"status"`
	Replayed bool          `json:"replayed"`
	Data     WithdrawalDTO `json:"data"`
}

type ListTransfersResponse struct {
	Status string        `json:"status"`
	Data   []TransferDTO `json:"data"`
}
