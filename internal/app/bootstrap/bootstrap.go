package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	artledger "atelier/contexts/marketplace/art-ledger"
	boltadapter "atelier/contexts/marketplace/art-ledger/adapters/bolt"
	"atelier/contexts/marketplace/art-ledger/adapters/memory"
	postgresadapter "atelier/contexts/marketplace/art-ledger/adapters/postgres"
	"atelier/contexts/marketplace/art-ledger/application/workers"
	"atelier/internal/platform/config"
	"atelier/internal/platform/db"
	"atelier/internal/platform/httpserver"
	"atelier/internal/platform/messaging"
	"atelier/internal/platform/payments"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	relays  *relayLoop
	closers []func() error
	logger  *slog.Logger
}

type WorkerApp struct {
	relays  *relayLoop
	closers []func() error
	logger  *slog.Logger
}

type relayLoop struct {
	outboxRelay   workers.OutboxRelay
	transferRelay workers.TransferRelay
	auditor       workers.EventAuditor
	pollInterval  time.Duration
	logger        *slog.Logger
}

type ledgerRuntime struct {
	module  artledger.Module
	bus     *messaging.Kafka
	closers []func() error
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, os.Stderr).With("service", cfg.ServiceName, "process", "api")

	runtime, err := buildLedgerRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		server:  httpserver.New(runtime.module, logger, normalizeAddr(cfg.HTTPPort)),
		closers: runtime.closers,
		logger:  logger,
	}
	// The memory and bolt backends cannot be shared with a second process, so
	// the relays run next to the HTTP server.
	if cfg.LedgerBackend != config.BackendPostgres {
		app.relays = newRelayLoop(cfg, runtime, logger)
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, os.Stderr).With("service", cfg.ServiceName, "process", "worker")
	if cfg.LedgerBackend != config.BackendPostgres {
		return nil, fmt.Errorf("worker process requires the postgres backend, got %q; the api process runs relays for %s", cfg.LedgerBackend, cfg.LedgerBackend)
	}

	runtime, err := buildLedgerRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		relays:  newRelayLoop(cfg, runtime, logger),
		closers: runtime.closers,
		logger:  logger,
	}, nil
}

// NewLogger builds the process logger from LOG_FORMAT (json or text) and
// LOG_LEVEL (debug, info, warn or error).
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLedgerRuntime(cfg config.Config, logger *slog.Logger) (ledgerRuntime, error) {
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return ledgerRuntime{}, err
	}
	deps := artledger.Dependencies{
		Transferer:          payments.NewLoggingTransferer(logger),
		Publisher:           bus,
		EventsTopic:         workers.DefaultLedgerEventsTopic,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		RetainExcessPayment: cfg.RetainExcessPayment,
		Logger:              logger,
	}

	var closers []func() error
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		pg, err := db.Connect(cfg.PostgresDSN, db.ConnectOptions{Logger: logger})
		if err != nil {
			return ledgerRuntime{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = repo.Migrate(ctx)
		cancel()
		if err != nil {
			_ = pg.Close()
			return ledgerRuntime{}, fmt.Errorf("migrate ledger schema: %w", err)
		}
		deps.Ledger, deps.Listings, deps.Transfers, deps.Outbox, deps.Idempotency = repo, repo, repo, repo, repo
		deps.Clock = postgresadapter.SystemClock{}
		deps.IDGenerator = postgresadapter.UUIDGenerator{}
		closers = append(closers, pg.Close)
	case config.BackendBolt:
		store, err := boltadapter.Open(cfg.BoltPath, logger)
		if err != nil {
			return ledgerRuntime{}, err
		}
		deps.Ledger, deps.Listings, deps.Transfers, deps.Outbox, deps.Idempotency = store, store, store, store, store
		deps.Clock, deps.IDGenerator = store, store
		closers = append(closers, store.Close)
	default:
		store := memory.NewStore()
		deps.Ledger, deps.Listings, deps.Transfers, deps.Outbox, deps.Idempotency = store, store, store, store, store
		deps.Clock, deps.IDGenerator = store, store
	}

	logger.Info("ledger runtime built",
		"event", "bootstrap_ledger_runtime_built",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"backend", cfg.LedgerBackend,
		"brokers", strings.Join(bus.Brokers(), ","),
	)
	return ledgerRuntime{
		module:  artledger.NewModule(deps),
		bus:     bus,
		closers: closers,
	}, nil
}

func newRelayLoop(cfg config.Config, runtime ledgerRuntime, logger *slog.Logger) *relayLoop {
	outboxRelay := runtime.module.OutboxRelay
	outboxRelay.BatchSize = cfg.WorkerBatchSize
	transferRelay := runtime.module.TransferRelay
	transferRelay.BatchSize = cfg.WorkerBatchSize
	return &relayLoop{
		outboxRelay:   outboxRelay,
		transferRelay: transferRelay,
		auditor: workers.EventAuditor{
			Subscriber: runtime.bus,
			Dedup:      memory.NewStore(),
			Topic:      outboxRelay.Topic,
			Logger:     logger,
		},
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"embedded_relays", a.relays != nil,
		)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	if a.relays != nil {
		go func() {
			errs <- a.relays.run(ctx)
		}()
	}
	go func() {
		errs <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return a.server.Shutdown(shutdownCtx)
}

func (a *APIApp) Close() error {
	return closeAll(a.closers)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	return w.relays.run(ctx)
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers)
}

func (l *relayLoop) run(ctx context.Context) error {
	if err := l.auditor.Start(ctx); err != nil {
		return err
	}

	interval := l.pollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("ledger relays started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", interval.String(),
	)

	for {
		// Relay failures are logged by the relays and retried next tick.
		if err := l.transferRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("transfer relay cycle incomplete",
				"event", "bootstrap_transfer_relay_incomplete",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := l.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("outbox relay cycle incomplete",
				"event", "bootstrap_outbox_relay_incomplete",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
