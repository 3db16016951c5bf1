// Package app wires the storefront: storage backends, cart, checkout and
// health checks.
package app

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/spice-storefront/internal/catalog"
	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
	"github.com/xenking/spice-storefront/internal/mailer"
	"github.com/xenking/spice-storefront/internal/repository"
	"github.com/xenking/spice-storefront/internal/storage"
	"github.com/xenking/spice-storefront/internal/storage/file"
	"github.com/xenking/spice-storefront/internal/storage/memory"
	"github.com/xenking/spice-storefront/internal/storage/postgres"
	"github.com/xenking/spice-storefront/internal/storage/redis"
	"github.com/xenking/spice-storefront/pkg/event"
	"github.com/xenking/spice-storefront/pkg/health"
)

const (
	probeKey     = "storefront_health_probe"
	checkTimeout = 5 * time.Second
)

// App is an opened storefront. Close releases its backends.
type App struct {
	Config   *Config
	Catalog  *catalog.Catalog
	Bus      *event.Bus
	Cart     *cart.Service
	Renderer *order.Renderer
	Checkout *order.Checkout
	Orders   order.Repository
	Health   *health.Health

	closers []func()
}

// Option configures Open.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
	notifier      order.Notifier
}

// WithMeterProvider sets the provider for cart and order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithNotifier replaces the SMTP mailer built from Config.Mail.
func WithNotifier(n order.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

type backend struct {
	store  storage.Store
	orders order.Repository
	checks map[string]health.CheckFunc
	close  func()
}

// Open connects the device and session stores concurrently and builds the
// services on top of them.
func Open(ctx context.Context, cfg *Config, opts ...Option) (_ *App, err error) {
	o := options{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	lg := zctx.From(ctx)
	lg.Debug("Opening storefront",
		zap.String("device", cfg.Device.Driver),
		zap.String("session", cfg.Session.Driver),
	)

	var device, session backend
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if device, err = openDevice(gctx, cfg.Device); err != nil {
			return errors.Wrap(err, "open device store")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if session, err = openSession(gctx, cfg.Session); err != nil {
			return errors.Wrap(err, "open session store")
		}
		return nil
	})
	waitErr := g.Wait()

	a := &App{Config: cfg, Health: health.New()}
	for _, b := range []backend{device, session} {
		if b.close != nil {
			a.closers = append(a.closers, b.close)
		}
	}
	if waitErr != nil {
		a.Close()
		return nil, waitErr
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	addChecks(a.Health, "device", device.checks)
	addChecks(a.Health, "session", session.checks)

	if a.Catalog, err = catalog.Default(); err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a.Bus = event.NewBus()
	a.Cart, err = cart.NewService(
		repository.NewCartRepository(device.store),
		repository.NewTokenRepository(session.store),
		a.Bus,
		cart.WithMeterProvider(o.meterProvider),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart service")
	}

	builder, err := order.NewBuilder(a.Cart,
		order.WithDefaultCountry(cfg.Shop.Country),
		order.WithBuilderMeterProvider(o.meterProvider),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order builder")
	}
	a.Renderer = order.NewRenderer(order.RendererConfig{
		StoreName:     cfg.Shop.Name,
		Currency:      cfg.Shop.Currency,
		BusinessPhone: cfg.Shop.BusinessPhone,
		MessagingHost: cfg.Shop.MessagingHost,
		DateLayout:    cfg.Shop.DateLayout,
		Location:      loc,
	})

	notifier := o.notifier
	if notifier == nil && cfg.Mail.Host != "" {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			TLS:      cfg.Mail.TLS,
		}, a.Renderer)
		if err != nil {
			return nil, errors.Wrap(err, "create mailer")
		}
		notifier = m
	}

	a.Orders = device.orders
	a.Checkout = order.NewCheckout(builder, a.Orders, a.Cart, a.Renderer, notifier)
	return a, nil
}

// Close releases every backend. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openDevice(ctx context.Context, cfg DeviceConfig) (backend, error) {
	switch cfg.Driver {
	case DriverMemory:
		s := memory.New(memory.Options{MaxBytes: int(cfg.MaxBytes)})
		return storeBackend(s, nil), nil
	case DriverFile:
		s, err := file.New(cfg.Dir, file.Options{MaxBytes: cfg.MaxBytes})
		if err != nil {
			return backend{}, err
		}
		b := storeBackend(s, nil)
		b.checks["dir"] = health.DirWritableCheck(s.Dir())
		return b, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return backend{}, errors.Wrap(err, "run migrations")
		}
		b := storeBackend(postgres.NewStore(pool, cfg.Profile), pool.Close)
		b.orders = repository.NewPostgresOrderRepository(pool, cfg.Profile)
		b.checks["postgres"] = health.PingCheck(pool)
		return b, nil
	default:
		return backend{}, errors.Errorf("unknown device driver %q", cfg.Driver)
	}
}

func openSession(ctx context.Context, cfg SessionConfig) (backend, error) {
	switch cfg.Driver {
	case DriverMemory:
		return storeBackend(memory.New(memory.Options{}), nil), nil
	case DriverFile:
		s, err := file.New(cfg.Dir, file.Options{})
		if err != nil {
			return backend{}, err
		}
		b := storeBackend(s, nil)
		b.checks["dir"] = health.DirWritableCheck(s.Dir())
		return b, nil
	case DriverRedis:
		client, err := redis.Connect(ctx, redis.Options{
			URL:      cfg.RedisURL,
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return backend{}, err
		}
		closeClient := func() { _ = client.Close() }
		return storeBackend(redis.NewStore(client, cfg.ID, cfg.TTL), closeClient), nil
	default:
		return backend{}, errors.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func addChecks(h *health.Health, prefix string, checks map[string]health.CheckFunc) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddCheck(prefix+"."+name, checkTimeout, checks[name])
	}
}

func storeBackend(s storage.Store, closeFn func()) backend {
	return backend{
		store:  s,
		orders: repository.NewOrderRepository(s),
		checks: map[string]health.CheckFunc{
			"roundtrip": health.RoundTripCheck(s, probeKey),
		},
		close: closeFn,
	}
}
