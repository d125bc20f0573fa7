package errors

import "errors"

var (
	ErrAlreadyInitialized       = errors.New("ledger already initialized")
	ErrNotInitialized           = errors.New("ledger not initialized")
	ErrListingNotFound          = errors.New("listing not found")
	ErrInsufficientPayment      = errors.New("attached payment is below listing price")
	ErrUnauthorized             = errors.New("caller is not authorized for this operation")
	ErrInvalidInput             = errors.New("ledger input is invalid")
	ErrInvalidCommissionRate    = errors.New("commission rate must be between 0 and 100 percent")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key reused with different request")
	ErrTransferNotFound         = errors.New("transfer request not found")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
