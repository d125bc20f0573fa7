package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	artledger "atelier/contexts/marketplace/art-ledger"
	boltadapter "atelier/contexts/marketplace/art-ledger/adapters/bolt"
	ledgerhttp "atelier/contexts/marketplace/art-ledger/transport/http"
	"atelier/internal/platform/payments"

	"github.com/urfave/cli/v2"
)

// ledgerctl operates a ledger kept in a local bbolt file.
func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}

type ledgerctl struct {
	out    io.Writer
	logOut io.Writer
	store  *boltadapter.Store
	module artledger.Module
}

func newApp(out io.Writer, logOut io.Writer) *cli.App {
	ctl := &ledgerctl{out: out, logOut: logOut}
	return &cli.App{
		Name:  "ledgerctl",
		Usage: "operate the art marketplace ledger stored in a bbolt file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "atelier-ledger.db", EnvVars: []string{"BOLT_PATH"}, Usage: "path to the ledger database file"},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "retain-excess", EnvVars: []string{"LEDGER_RETAIN_EXCESS_PAYMENT"}, Usage: "keep overpayments instead of refunding them"},
		},
		Before: ctl.open,
		After:  ctl.close,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "initialize the ledger once",
				Action: ctl.initialize,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Required: true, Usage: "marketplace owner account"},
					&cli.Uint64Flag{Name: "rate", Required: true, Usage: "commission rate percent (0-100)"},
				},
			},
			{
				Name:   "list",
				Usage:  "list or relist the caller's artwork",
				Action: ctl.listArt,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caller", Required: true, Usage: "authenticated caller"},
					&cli.StringFlag{Name: "artist", Usage: "artist account (defaults to caller)"},
					&cli.StringFlag{Name: "original", Required: true, Usage: "original asset hash, hex"},
					&cli.StringFlag{Name: "protected", Required: true, Usage: "protected asset hash, hex"},
					&cli.StringFlag{Name: "price", Required: true, Usage: "price as a base-10 integer"},
				},
			},
			{
				Name:   "buy",
				Usage:  "buy an artist's listing",
				Action: ctl.buyArt,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caller", Required: true, Usage: "authenticated caller"},
					&cli.StringFlag{Name: "artist", Required: true, Usage: "artist account"},
					&cli.StringFlag{Name: "payment", Required: true, Usage: "attached payment as a base-10 integer"},
					&cli.StringFlag{Name: "idempotency-key", Usage: "replay protection key"},
				},
			},
			{
				Name:   "withdraw",
				Usage:  "withdraw the accrued commission",
				Action: ctl.withdraw,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caller", Required: true, Usage: "authenticated caller"},
					&cli.StringFlag{Name: "owner", Required: true, Usage: "asserted marketplace owner"},
					&cli.StringFlag{Name: "idempotency-key", Usage: "replay protection key"},
				},
			},
			{
				Name:   "show",
				Usage:  "print the ledger summary",
				Action: ctl.show,
			},
			{
				Name:   "listings",
				Usage:  "print open listings ordered by artist",
				Action: ctl.listings,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.IntFlag{Name: "offset"},
				},
			},
			{
				Name:   "transfers",
				Usage:  "print transfers recorded for a recipient",
				Action: ctl.transfers,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "recipient", Required: true},
					&cli.IntFlag{Name: "limit"},
				},
			},
			{
				Name:   "settle",
				Usage:  "execute pending transfers through the logging transferer",
				Action: ctl.settle,
			},
		},
	}
}

func (c *ledgerctl) open(cctx *cli.Context) error {
	if cctx.Args().Len() == 0 {
		return nil
	}
	logger := slog.New(slog.NewTextHandler(c.logOut, &slog.HandlerOptions{Level: parseLevel(cctx.String("log-level"))}))
	store, err := boltadapter.Open(cctx.String("db"), logger)
	if err != nil {
		return err
	}
	c.store = store
	c.module = artledger.NewModule(artledger.Dependencies{
		Ledger:              store,
		Listings:            store,
		Transfers:           store,
		Outbox:              store,
		Idempotency:         store,
		Clock:               store,
		IDGenerator:         store,
		Transferer:          payments.NewLoggingTransferer(logger),
		RetainExcessPayment: cctx.Bool("retain-excess"),
		Logger:              logger,
	})
	return nil
}

func (c *ledgerctl) close(_ *cli.Context) error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *ledgerctl) initialize(cctx *cli.Context) error {
	resp, err := c.module.Handler.InitializeLedgerHandler(cctx.Context, ledgerhttp.InitializeLedgerRequest{
		Owner:                 cctx.String("owner"),
		CommissionRatePercent: cctx.Uint64("rate"),
	})
	return c.print(resp, err)
}

func (c *ledgerctl) listArt(cctx *cli.Context) error {
	artist := cctx.String("artist")
	if strings.TrimSpace(artist) == "" {
		artist = cctx.String("caller")
	}
	resp, err := c.module.Handler.ListArtHandler(cctx.Context, cctx.String("caller"), artist, ledgerhttp.ListArtRequest{
		OriginalAssetHash:  cctx.String("original"),
		ProtectedAssetHash: cctx.String("protected"),
		Price:              cctx.String("price"),
	})
	return c.print(resp, err)
}

func (c *ledgerctl) buyArt(cctx *cli.Context) error {
	resp, err := c.module.Handler.BuyArtHandler(
		cctx.Context,
		cctx.String("caller"),
		cctx.String("idempotency-key"),
		cctx.String("artist"),
		ledgerhttp.BuyArtRequest{AttachedPayment: cctx.String("payment")},
	)
	return c.print(resp, err)
}

func (c *ledgerctl) withdraw(cctx *cli.Context) error {
	resp, err := c.module.Handler.WithdrawCommissionHandler(
		cctx.Context,
		cctx.String("caller"),
		cctx.String("idempotency-key"),
		ledgerhttp.WithdrawCommissionRequest{Owner: cctx.String("owner")},
	)
	return c.print(resp, err)
}

func (c *ledgerctl) show(cctx *cli.Context) error {
	resp, err := c.module.Handler.GetLedgerHandler(cctx.Context)
	return c.print(resp, err)
}

func (c *ledgerctl) listings(cctx *cli.Context) error {
	resp, err := c.module.Handler.ListListingsHandler(cctx.Context, cctx.Int("limit"), cctx.Int("offset"))
	return c.print(resp, err)
}

func (c *ledgerctl) transfers(cctx *cli.Context) error {
	resp, err := c.module.Handler.ListTransfersHandler(cctx.Context, cctx.String("recipient"), cctx.Int("limit"))
	return c.print(resp, err)
}

func (c *ledgerctl) settle(cctx *cli.Context) error {
	ctx := cctx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.module.TransferRelay.RunOnce(ctx); err != nil {
		return err
	}
	pending, err := c.store.ListPendingTransfers(ctx, 0)
	if err != nil {
		return err
	}
	return c.print(map[string]any{"status": "success", "pending_transfers": len(pending)}, nil)
}

func (c *ledgerctl) print(payload any, err error) error {
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelWarn
	}
	return level
}
