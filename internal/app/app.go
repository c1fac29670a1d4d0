// Package app wires the freddy client together from configuration: the REST
// clients of both backends, the shared query cache, the dialog host, the
// health registry and the observability providers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/peluware/freddy/internal/products"
	"github.com/peluware/freddy/internal/sales"
	"github.com/peluware/freddy/pkg/config"
	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/dialog"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/health"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/observability/metrics"
	"github.com/peluware/freddy/pkg/observability/tracing"
	"github.com/peluware/freddy/pkg/query"
	"github.com/peluware/freddy/pkg/rest"
	"github.com/peluware/freddy/pkg/server"
	"github.com/peluware/freddy/pkg/table"
	"github.com/peluware/freddy/pkg/version"
)

// SlowResponse marks a backend health check as degraded.
const SlowResponse = 2 * time.Second

// App holds the wired services of one freddy process.
type App struct {
	Config *config.Config
	Log    logger.Logger

	Products      products.Service
	Sales         sales.Service
	ProductsCache *query.Client[crud.Page[products.Product]]
	SalesCache    *query.Client[crud.Page[sales.Sale]]

	Dialogs  *dialog.Channel
	Notifier entitycrud.Notifier
	Health   *health.Registry
	Metrics  *metrics.Registry

	store  query.Store
	tracer *tracing.TracerProvider
}

// Option customizes New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	notifier   entitycrud.Notifier
	dialogs    *dialog.Channel
}

// WithHTTPClient replaces the default HTTP client of both backends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithNotifier replaces the log notifier.
func WithNotifier(n entitycrud.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithDialogs uses an existing dialog channel as the surface host.
func WithDialogs(c *dialog.Channel) Option {
	return func(o *options) { o.dialogs = c }
}

// New builds an App from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log = logger.OrNop(log)
	info := version.Current(cfg.Service.Name)

	tracer, err := tracing.NewTracerProvider(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: info.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Dialogs:  o.dialogs,
		Notifier: o.notifier,
		Health:   health.NewRegistry(),
		Metrics:  metrics.NewRegistry(),
		tracer:   tracer,
	}
	if a.Dialogs == nil {
		a.Dialogs = dialog.NewChannel(dialog.DefaultCapacity, log)
	}
	if a.Notifier == nil {
		a.Notifier = entitycrud.NewLogNotifier(log)
	}

	productsClient, err := newRESTClient(cfg, cfg.API.ProductsURL, info.UserAgent(), log.With("backend", products.CacheKey), o.httpClient)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("products backend: %w", err)
	}
	salesClient, err := newRESTClient(cfg, cfg.API.SalesURL, info.UserAgent(), log.With("backend", sales.CacheKey), o.httpClient)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("sales backend: %w", err)
	}
	a.Products = products.NewService(productsClient)
	a.Sales = sales.NewService(salesClient)

	store, system, err := newStore(ctx, cfg.Cache)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.store = store
	cacheOpts := query.Options{
		Store:     store,
		StaleTime: cfg.Cache.StaleTime,
		CacheTime: cfg.Cache.CacheTime,
		System:    system,
		Logger:    log.With("cache", system),
	}
	a.ProductsCache = query.NewClient[crud.Page[products.Product]](cacheOpts)
	a.SalesCache = query.NewClient[crud.Page[sales.Sale]](cacheOpts)

	a.Health.Register(health.NewResourceChecker[products.Product](products.CacheKey, a.Products, cfg.API.Timeout, SlowResponse))
	a.Health.Register(health.NewResourceChecker[sales.Sale](sales.CacheKey, a.Sales, cfg.API.Timeout, SlowResponse))
	if pinger, ok := store.(health.Pinger); ok {
		a.Health.Register(health.NewPingChecker("cache", pinger, cfg.Cache.OperationTimeout))
	}

	log.Debug("app initialized",
		"products_url", cfg.API.ProductsURL,
		"sales_url", cfg.API.SalesURL,
		"cache", system,
		"tracing", cfg.Tracing.Enabled,
	)
	return a, nil
}

func newRESTClient(cfg *config.Config, baseURL, userAgent string, log logger.Logger, httpClient *http.Client) (*rest.Client, error) {
	opts := []rest.Option{rest.WithLogger(log)}
	if httpClient != nil {
		opts = append(opts, rest.WithHTTPClient(httpClient))
	}
	return rest.NewClient(rest.Config{
		BaseURL:      baseURL,
		Timeout:      cfg.API.Timeout,
		Retry:        cfg.API.Retry,
		RateLimit:    cfg.API.RateLimit,
		Burst:        cfg.API.Burst,
		MaxFailures:  cfg.Resilience.MaxFailures,
		ResetTimeout: cfg.Resilience.ResetTimeout,
		UserAgent:    userAgent,
	}, opts...)
}

func newStore(ctx context.Context, cfg config.CacheConfig) (query.Store, string, error) {
	switch cfg.Type {
	case "", config.CacheTypeInMemory:
		return query.NewInMemoryStore(), config.CacheTypeInMemory, nil
	case config.CacheTypeRedis:
		store, err := query.NewRedisStore(ctx, query.RedisConfig{
			URL:              cfg.URL,
			MaxConns:         cfg.MaxConns,
			OperationTimeout: cfg.OperationTimeout,
			Prefix:           cfg.Prefix,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create redis cache: %w", err)
		}
		return store, config.CacheTypeRedis, nil
	default:
		return nil, "", fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
}

// ScreenSettings seeds a table from the configured defaults.
type ScreenSettings struct {
	// Page is the zero-based initial page
	Page     int
	PageSize int
	Sorting  []table.SortingEntry
	Search   string
	Filters  []table.ColumnFilter
}

func (a *App) initialState(s ScreenSettings) table.State {
	size := s.PageSize
	if size <= 0 {
		size = a.Config.Table.PageSize
	}
	return table.State{
		Pagination:    table.Pagination{Index: s.Page, Size: size},
		Sorting:       s.Sorting,
		ColumnFilters: s.Filters,
		GlobalFilter:  s.Search,
	}
}

// ProductsCrud builds the products screen on the shared cache and dialog host.
func (a *App) ProductsCrud(s ScreenSettings, onChange func(table.Snapshot[products.Product])) (*entitycrud.Crud[products.Product, products.ProductDto, int64], error) {
	opts := products.CrudOptions(a.Products, products.Settings{
		InitialState:   a.initialState(s),
		SearchDebounce: a.Config.Table.SearchDebounce,
		Cache:          a.ProductsCache,
		OnChange:       onChange,
	})
	opts.Notifier = a.Notifier
	opts.Host = a.Dialogs
	opts.Logger = a.Log.With("screen", products.CacheKey)
	return entitycrud.New(opts)
}

// SalesCrud builds the sales screen. Creating a sale invalidates the cached
// product pages since stock changed.
func (a *App) SalesCrud(s ScreenSettings, onChange func(table.Snapshot[sales.Sale])) (*entitycrud.Crud[sales.Sale, sales.SaleDto, string], error) {
	opts := sales.CrudOptions(a.Sales, sales.Settings{
		InitialState:   a.initialState(s),
		SearchDebounce: a.Config.Table.SearchDebounce,
		Cache:          a.SalesCache,
		OnChange:       onChange,
		Products:       a.ProductsCache,
	})
	opts.Notifier = a.Notifier
	opts.Host = a.Dialogs
	opts.Logger = a.Log.With("screen", sales.CacheKey)
	return entitycrud.New(opts)
}

// ServeManagement serves the health and metrics endpoints until ctx is done.
// It returns nil at once when metrics are disabled.
func (a *App) ServeManagement(ctx context.Context) error {
	if !a.Config.Metrics.Enabled {
		return nil
	}
	srv := server.NewManagementServer(a.Config.Metrics, a.Log.With("server", "management"), a.Health, a.Metrics)
	return srv.Start(ctx)
}

// Close closes the dialog host, the cache store and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dialogs != nil {
		a.Dialogs.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache store: %w", err))
		}
		a.store = nil
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
		a.tracer = nil
	}
	return errors.Join(errs...)
}
