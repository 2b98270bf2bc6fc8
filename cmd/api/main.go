package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"marketapi/docs"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/config"
	"marketapi/internal/database"
	"marketapi/internal/database/migration"
	handlers "marketapi/internal/http/handler"
	"marketapi/internal/http/middleware"
	"marketapi/internal/logger"
	"marketapi/internal/metrics"
	"marketapi/internal/otel"
	"marketapi/internal/reindex"
	"marketapi/internal/repository/postgres"
	"marketapi/internal/search"
	"marketapi/internal/service"
	"marketapi/internal/storage"
)

const serviceName = "marketapi"

// @title Market API
// @version 1.0
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(serviceName, "info")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// PostgreSQL is the source of truth; the API does not start without it.
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	store := postgres.NewStore(db)
	jobs := postgres.NewSyncJobPostgres(db)

	var cacheLayer *cache.Layer
	if cfg.CacheEnabled() {
		rdb := cache.Open(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		cacheLayer = cache.New(rdb, map[string]time.Duration{
			"shop":      cfg.Cache.ShopTTL,
			"item":      cfg.Cache.ItemTTL,
			"inventory": cfg.Cache.InventoryTTL,
			"session":   cfg.Cache.SessionTTL,
		}, m, log)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, point cache disabled")
	}

	index := search.NewClient(cfg.Search.URL, cfg.Search.APIKey, cfg.Search.Timeout)
	// The index is derived state; the API serves without it and a reindex repairs it.
	if err := index.EnsureCollections(ctx); err != nil {
		log.Warn().Err(err).Msg("search collections not ensured")
	}
	mirror := search.NewMirror(index, cfg.Search.Workers, cfg.Search.QueueSize, cfg.Search.Timeout, m, log)

	opts := reindex.Options{BatchSize: cfg.Reindex.BatchSize, StaleAfter: cfg.Reindex.StaleAfter}
	if cfg.ArchiveEnabled() {
		archive, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize report archive")
		}
		opts.Archive = archive
	}
	bulk := search.NewClient(cfg.Search.URL, cfg.Search.APIKey, cfg.Search.ImportTimeout)
	coordinator := reindex.New(store, jobs, bulk, opts, m, log)

	gate := auth.NewGate(store.Sessions, cacheLayer, m, log)
	deps := service.Deps{Store: store, Cache: cacheLayer, Mirror: mirror, Index: index, Log: log}

	h := &handlers.Handler{
		Shops:     service.NewShopService(deps),
		Items:     service.NewItemService(deps),
		Inventory: service.NewInventoryService(deps),
		Accounts:  service.NewAccountService(deps, gate, service.SessionTTLs{Default: cfg.Session.TTL, Long: cfg.Session.LongTTL}),
		Search:    service.NewSearchService(deps),
		Stats:     service.NewStatsService(deps),
		Reindex:   coordinator,
		Health: []handlers.HealthCheck{
			{Name: "database", Ping: db.PingContext},
			{Name: "cache", Ping: cacheLayer.Ping, Optional: true},
			{Name: "search", Ping: index.Health, Optional: true},
		},
		Cookie:    auth.CookieOptions{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		Session:   gate.RequireSession(cfg.Session.CookieName),
		RateLimit: cfg.RateLimit,
	}

	app := newApp(h, httpMetrics, reg, log)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	drain, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := coordinator.Close(drain); err != nil {
		log.Warn().Err(err).Msg("reindex did not stop in time")
	}
	if err := mirror.Close(drain); err != nil {
		log.Warn().Err(err).Msg("mirror queue not drained")
	}
	if err := shutdownTracing(drain); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
}

func newApp(h *handlers.Handler, httpMetrics *middleware.PrometheusMiddleware, reg *prometheus.Registry, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	// RequestID runs first so every later layer (and the error body) sees it.
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware(otelfiber.WithServerName(serviceName)))
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Logger(log))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, h)
	return app
}
