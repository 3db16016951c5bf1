// Command storefront runs the shop from the terminal: it browses the
// catalog, edits the cart and places orders against the configured device
// and session stores.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/spice-storefront/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	lg, err := newLogger(cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "logger:", err)
		return 1
	}
	defer func() { _ = lg.Sync() }()
	ctx = zctx.Base(ctx, lg)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		lg.Error("Open storefront", zap.Error(err))
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	// A fresh session gets its token before any command runs.
	if _, err := a.Cart.EnsureToken(ctx); err != nil {
		lg.Warn("Ensure session token", zap.Error(err))
	}

	if err := execute(ctx, a, args, stdout); err != nil {
		report(stderr, err)
		return 1
	}
	return 0
}

func newLogger(cfg app.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse level %q", cfg.Level)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	lg, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return lg, nil
}

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: storefront <command> [arguments]

Catalog:
  products [-q query] [-category name]   list products
  categories                             list categories
  bulk-price <id> <kg>                   unit price for an order weight

Cart:
  add <id> [qty]                         add a product (default 1)
  remove <id>                            remove a product
  set <id> <qty>                         change a quantity, 0 removes
  cart                                   show the cart
  clear                                  empty the cart
  token                                  print the session token

Orders:
  checkout -name ... -email ... -phone ... -address ... -city ... -postal ... [-country ...] [-token ...]
  orders                                 list placed orders
  orders export -out file.gz             write order history
  orders import file.gz...               merge order history

  doctor                                 check storage backends

Configuration is read from storefront.yaml, /etc/storefront/config.yaml and
STOREFRONT_* environment variables.
`)
}
