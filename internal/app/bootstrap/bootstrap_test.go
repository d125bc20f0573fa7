package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ledgerhttp "atelier/contexts/marketplace/art-ledger/transport/http"
	"atelier/internal/platform/config"
)

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Config{LogFormat: "text", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "event", "bootstrap_test")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "event=bootstrap_test") {
		t.Fatalf("unexpected text log output: %q", out)
	}

	buf.Reset()
	NewLogger(config.Config{}, &buf).Info("json line")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output by default, got %q", buf.String())
	}
	if parseLevel("debug") != slog.LevelDebug || parseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9000":  ":9000",
		":7000": ":7000",
	}
	for raw, want := range cases {
		if got := normalizeAddr(raw); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCloseAllRunsInReverseAndJoinsErrors(t *testing.T) {
	var order []string
	failure := errors.New("close failed")
	err := closeAll([]func() error{
		func() error {
			order = append(order, "first")
			return nil
		},
		func() error {
			order = append(order, "second")
			return failure
		},
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Fatalf("unexpected close order %v", order)
	}
}

func TestBoltRuntimeRunsRelaysAgainstLedger(t *testing.T) {
	cfg := config.Config{
		LedgerBackend:      config.BackendBolt,
		BoltPath:           filepath.Join(t.TempDir(), "ledger.db"),
		IdempotencyTTL:     time.Hour,
		WorkerPollInterval: 10 * time.Millisecond,
		WorkerBatchSize:    10,
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	runtime, err := buildLedgerRuntime(cfg, logger)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer func() {
		if err := closeAll(runtime.closers); err != nil {
			t.Fatalf("close runtime: %v", err)
		}
	}()

	ctx := context.Background()
	handler := runtime.module.Handler
	if _, err := handler.InitializeLedgerHandler(ctx, ledgerhttp.InitializeLedgerRequest{Owner: "gallery", CommissionRatePercent: 20}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := handler.ListArtHandler(ctx, "artist", "artist", ledgerhttp.ListArtRequest{
		OriginalAssetHash:  "01",
		ProtectedAssetHash: "02",
		Price:              "50",
	}); err != nil {
		t.Fatalf("list art: %v", err)
	}
	if _, err := handler.BuyArtHandler(ctx, "buyer", "", "artist", ledgerhttp.BuyArtRequest{AttachedPayment: "50"}); err != nil {
		t.Fatalf("buy art: %v", err)
	}

	loop := newRelayLoop(cfg, runtime, logger)
	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if err := loop.run(runCtx); err != nil {
		t.Fatalf("relay loop: %v", err)
	}

	transfers, err := handler.ListTransfersHandler(ctx, "artist", 0)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(transfers.Data) != 1 || transfers.Data[0].Status != "executed" || transfers.Data[0].Amount != "40" {
		t.Fatalf("expected executed artist payout of 40, got %+v", transfers.Data)
	}
}
