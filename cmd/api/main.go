package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	ulimiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/kasapos/backend-kasa/internal/analytics"
	"github.com/kasapos/backend-kasa/internal/auth"
	"github.com/kasapos/backend-kasa/internal/cart"
	"github.com/kasapos/backend-kasa/internal/catalog"
	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/config"
	"github.com/kasapos/backend-kasa/internal/db"
	"github.com/kasapos/backend-kasa/internal/health"
	"github.com/kasapos/backend-kasa/internal/lock"
	"github.com/kasapos/backend-kasa/internal/menu"
	"github.com/kasapos/backend-kasa/internal/obs"
	"github.com/kasapos/backend-kasa/internal/security"
	"github.com/kasapos/backend-kasa/internal/settlement"
	"github.com/kasapos/backend-kasa/internal/stock"
	"github.com/kasapos/backend-kasa/internal/store/postgres"
	"github.com/kasapos/backend-kasa/internal/timeentry"
	"github.com/kasapos/backend-kasa/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kasa")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: "kasa-api",
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "kasa-api")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	redisClient := mustInitRedis(cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	st := postgres.New(pool)
	validate := validator.New()

	authSvc, err := auth.NewService(auth.Config{
		Store:           st,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
		ClockSkew:       cfg.ClockSkew,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, ulimiter.StoreOptions{
		Prefix: "kasa:ratelimit",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	loginLimiter := ulimiter.New(limiterStore, ulimiter.Rate{
		Period: cfg.LoginRateWindow,
		Limit:  int64(cfg.LoginRateLimit),
	})

	authHandler := &auth.Handler{
		Svc:          authSvc,
		Validate:     validate,
		LoginLimiter: loginLimiter,
		Attempts:     obs.LoginAttemptsTotal,
	}
	authMw := auth.Middleware{Svc: authSvc}

	userHandler := &user.Handler{Svc: &user.Service{St: st}, Validate: validate}
	catalogHandler := &catalog.Handler{Svc: &catalog.Service{St: st}, Validate: validate}
	stockHandler := &stock.Handler{
		Svc: &stock.Service{St: st, Adjustments: obs.StockAdjustmentsTotal},
	}
	cartHandler := &cart.Handler{
		Svc: &cart.Service{
			St:        st,
			Completed: obs.CartsCompletedTotal,
			Mutations: obs.CartMutationsTotal,
		},
	}
	settlementSvc := &settlement.Service{
		St:            st,
		Locker:        lock.Locker{R: redisClient},
		LockTTL:       cfg.SettlementLockTTL,
		CompletedOnly: cfg.SettlementCompletedOnly,
		DaysClosed:    obs.DaysClosedTotal,
		Duration:      obs.SettlementDuration,
	}
	settlementHandler := &settlement.Handler{Svc: settlementSvc}
	analyticsHandler := &analytics.Handler{Svc: &analytics.Service{
		St:  st,
		R:   redisClient,
		TTL: cfg.AnalyticsCacheTTL,
	}}
	menuHandler := &menu.Handler{Svc: &menu.Service{St: st}, Validate: validate}
	timeHandler := &timeentry.Handler{Svc: &timeentry.Service{St: st}, Validate: validate}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURITY_HEADERS_ENABLED", true),
		EnableHSTS: envBool("SECURITY_HSTS_ENABLED", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/public/menu", menuHandler.Public)

		v.Route("/auth", func(a chi.Router) {
			a.Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.Group(func(protected chi.Router) {
				protected.Use(authMw.RequireAuth)
				protected.Get("/me", authHandler.Me)
				protected.Post("/password", authHandler.ChangePassword)
			})
		})

		v.Group(func(staff chi.Router) {
			staff.Use(authMw.RequireAuth)

			staff.Route("/categories", func(c chi.Router) {
				c.Get("/", catalogHandler.ListCategories)
				c.Get("/{id}", catalogHandler.GetCategory)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Post("/", catalogHandler.CreateCategory)
					m.Patch("/{id}", catalogHandler.UpdateCategory)
					m.Delete("/{id}", catalogHandler.DeleteCategory)
				})
			})

			staff.Route("/items", func(c chi.Router) {
				c.Get("/", catalogHandler.ListItems)
				c.Get("/{id}", catalogHandler.GetItem)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Post("/", catalogHandler.CreateItem)
					m.Patch("/{id}", catalogHandler.UpdateItem)
					m.Delete("/{id}", catalogHandler.DeleteItem)
				})
			})

			staff.Route("/stock", func(c chi.Router) {
				c.Get("/", stockHandler.List)
				c.Get("/grouped", stockHandler.Grouped)
				c.Get("/{itemId}", stockHandler.Get)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Put("/{itemId}", stockHandler.SetQuantity)
					m.Post("/{itemId}/adjust", stockHandler.Adjust)
				})
			})

			staff.Route("/carts", func(c chi.Router) {
				c.Post("/", cartHandler.Create)
				c.Get("/desks", cartHandler.ListDesks)
				c.Get("/desks/{deskNumber}", cartHandler.GetByDesk)
				c.Get("/{id}", cartHandler.Get)
				c.Patch("/{id}/desk", cartHandler.SetDeskNumber)
				c.Post("/{id}/items", cartHandler.AddItem)
				c.Patch("/{id}/items/{itemId}", cartHandler.UpdateItem)
				c.Delete("/{id}/items/{itemId}", cartHandler.ReturnItem)
				c.Delete("/{id}/items", cartHandler.ClearItems)
				c.Post("/{id}/complete", cartHandler.Complete)
				c.Delete("/{id}", cartHandler.Delete)
			})

			staff.Route("/accounts", func(c chi.Router) {
				c.Get("/", settlementHandler.List)
				c.Get("/summary", settlementHandler.Summary)
				c.Get("/by-date", settlementHandler.GetByDate)
				c.Get("/{id}", settlementHandler.Get)
				c.Post("/close", settlementHandler.Close)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Post("/open", settlementHandler.Open)
				})
			})

			staff.Route("/analytics", func(an chi.Router) {
				an.Use(auth.RequireManager)
				an.Get("/items", analyticsHandler.ItemSales)
				an.Get("/top-sellers", analyticsHandler.TopSellers)
				an.Get("/categories", analyticsHandler.SalesByCategory)
			})

			staff.Route("/menu", func(c chi.Router) {
				c.Get("/", menuHandler.List)
				c.Get("/{id}", menuHandler.Get)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Post("/", menuHandler.Create)
					m.Patch("/{id}", menuHandler.Update)
					m.Delete("/{id}", menuHandler.Delete)
				})
			})

			staff.Route("/time-entries", func(c chi.Router) {
				c.Post("/", timeHandler.Create)
				c.Get("/mine", timeHandler.ListMine)
				c.Get("/{id}", timeHandler.Get)
				c.Group(func(m chi.Router) {
					m.Use(auth.RequireManager)
					m.Get("/", timeHandler.ListRange)
					m.Post("/{id}/review", timeHandler.Review)
				})
			})

			staff.Route("/users", func(c chi.Router) {
				c.Use(auth.RequireRole(common.RoleAdmin))
				c.Get("/", userHandler.List)
				c.Post("/", userHandler.Create)
				c.Get("/{id}", userHandler.Get)
				c.Patch("/{id}", userHandler.Update)
				c.Patch("/{id}/status", userHandler.SetStatus)
				c.Post("/{id}/password", userHandler.ResetPassword)
				c.Delete("/{id}", userHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("drain server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func mustInitRedis(cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
