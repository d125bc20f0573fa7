package artledger

import (
	"log/slog"
	"time"

	httpadapter "atelier/contexts/marketplace/art-ledger/adapters/http"
	"atelier/contexts/marketplace/art-ledger/adapters/memory"
	"atelier/contexts/marketplace/art-ledger/application/commands"
	"atelier/contexts/marketplace/art-ledger/application/queries"
	"atelier/contexts/marketplace/art-ledger/application/workers"
	"atelier/contexts/marketplace/art-ledger/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	OutboxRelay   workers.OutboxRelay
	TransferRelay workers.TransferRelay
	Store         *memory.Store
	Transferer    *memory.Transferer
}

type Dependencies struct {
	Ledger              ports.LedgerRepository
	Listings            ports.ListingRepository
	Transfers           ports.TransferRepository
	Outbox              ports.OutboxRepository
	Idempotency         ports.IdempotencyStore
	Clock               ports.Clock
	IDGenerator         ports.IDGenerator
	Transferer          ports.ValueTransferer
	Publisher           ports.EventPublisher
	EventsTopic         string
	IdempotencyTTL      time.Duration
	RetainExcessPayment bool
	Logger              *slog.Logger
}

func NewModule(deps Dependencies) Module {
	initializeLedger := commands.InitializeLedgerUseCase{
		Ledger:      deps.Ledger,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	listArt := commands.ListArtUseCase{
		Ledger:      deps.Ledger,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	buyArt := commands.BuyArtUseCase{
		Ledger:              deps.Ledger,
		Idempotency:         deps.Idempotency,
		Clock:               deps.Clock,
		IDGenerator:         deps.IDGenerator,
		IdempotencyTTL:      deps.IdempotencyTTL,
		RetainExcessPayment: deps.RetainExcessPayment,
		Logger:              deps.Logger,
	}
	withdrawCommission := commands.WithdrawCommissionUseCase{
		Ledger:         deps.Ledger,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			InitializeLedger:   initializeLedger,
			ListArt:            listArt,
			BuyArt:             buyArt,
			WithdrawCommission: withdrawCommission,
			GetLedger: queries.GetLedgerUseCase{
				Ledger:   deps.Ledger,
				Listings: deps.Listings,
				Logger:   deps.Logger,
			},
			GetListing: queries.GetListingUseCase{
				Ledger:   deps.Ledger,
				Listings: deps.Listings,
			},
			ListListings: queries.ListListingsUseCase{
				Ledger:   deps.Ledger,
				Listings: deps.Listings,
				Logger:   deps.Logger,
			},
			ListTransfers: queries.ListTransfersUseCase{
				Ledger:    deps.Ledger,
				Transfers: deps.Transfers,
			},
			Logger: deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Topic:     deps.EventsTopic,
			Logger:    deps.Logger,
		},
		TransferRelay: workers.TransferRelay{
			Transfers:  deps.Transfers,
			Transferer: deps.Transferer,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Publisher may be nil
// when the caller never runs the outbox relay.
func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	transferer := memory.NewTransferer()
	module := NewModule(Dependencies{
		Ledger:         store,
		Listings:       store,
		Transfers:      store,
		Outbox:         store,
		Idempotency:    store,
		Clock:          store,
		IDGenerator:    store,
		Transferer:     transferer,
		Publisher:      publisher,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Transferer = transferer
	return module
}
