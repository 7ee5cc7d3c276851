package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/comptamatch/backend-compta/internal/analytics"
	"github.com/comptamatch/backend-compta/internal/auth"
	"github.com/comptamatch/backend-compta/internal/cart"
	"github.com/comptamatch/backend-compta/internal/catalog"
	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/config"
	"github.com/comptamatch/backend-compta/internal/content"
	"github.com/comptamatch/backend-compta/internal/dashboard"
	"github.com/comptamatch/backend-compta/internal/health"
	"github.com/comptamatch/backend-compta/internal/obs"
	"github.com/comptamatch/backend-compta/internal/order"
	"github.com/comptamatch/backend-compta/internal/promo"
	"github.com/comptamatch/backend-compta/internal/security"
	"github.com/comptamatch/backend-compta/internal/store"
	"github.com/comptamatch/backend-compta/internal/stream"
	"github.com/comptamatch/backend-compta/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "compta")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "compta-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
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

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "compta-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	st := store.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	catalogSvc := &catalog.Service{Q: st, Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL)}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}
	catalogAdmin := &catalog.AdminHandler{S: st, Svc: catalogSvc, Validate: validate}

	promoSvc := &promo.Service{Q: st}
	promoAdmin := &promo.Handler{S: st, Svc: promoSvc, Validate: validate}

	cartSvc := &cart.Service{Q: st, Promo: promoSvc}
	cartHandler := &cart.Handler{Svc: cartSvc, Log: logger}

	hub := stream.NewHub(0)
	streamHandler := &stream.Handler{Hub: hub, Log: logger}

	orderSvc := &order.Service{Q: st, DB: pool, Stream: hub}
	orderHandler := &order.Handler{S: st, Svc: orderSvc, Cart: cartSvc, Log: logger}
	paymentWebhook := &order.Webhook{
		S:         st,
		Svc:       orderSvc,
		Secret:    cfg.PaymentWebhookSecret,
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Log:       logger,
	}

	dashboardSvc := &dashboard.Service{
		Q:             st,
		R:             redisClient,
		TTL:           cfg.DashboardCacheTTL,
		TestAccountID: lookupTestAccount(ctx, st, cfg.TestAccountEmail, logger),
	}
	dashboardHandler := &dashboard.Handler{Svc: dashboardSvc, Log: logger}

	analyticsHandler := &analytics.Handler{Client: taskClient, Queue: cfg.EventQueueName, Log: logger}

	authSvc := &auth.Service{
		Q:          st,
		Sessions:   redisClient,
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
	authHandler := &auth.Handler{
		Svc:      authSvc,
		Validate: validate,
		Cookie: auth.CookieConfig{
			Name:     cfg.RefreshCookieName,
			Domain:   cfg.RefreshCookieDomain,
			Secure:   cfg.RefreshCookieSecure,
			SameSite: cfg.RefreshCookieSameSite,
		},
		Log: logger,
	}
	authMiddleware := &auth.Middleware{Service: authSvc}

	contentSvc := &content.Service{Q: st}
	contentHandler := &content.Handler{Svc: contentSvc, Log: logger}
	contentAdmin := &content.AdminHandler{Svc: contentSvc, Validate: validate, Log: logger}

	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	publicLimiter := newPublicLimiter(limiterStore, cfg.RateLimitPublicRPM)

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
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyMaxBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", newPprofMux())
	}

	healthHandler := health.Handler{
		Pool:    pool,
		Redis:   redisClient,
		Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(public chi.Router) {
			public.Use(publicLimiter.Handler)

			public.Get("/products", catalogHandler.Products)
			public.Get("/products/{slug}", catalogHandler.ProductDetail)
			public.Get("/categories", catalogHandler.Categories)
			public.Get("/pages/{slug}", contentHandler.Page)
			public.Get("/plans", contentHandler.Plans)

			public.Post("/cart/apply-promo", cartHandler.ApplyPromo)
			public.Post("/cart/remove-promo", cartHandler.RemovePromo)

			public.Post("/events", analyticsHandler.Ingest)

			public.Route("/auth", func(a chi.Router) {
				a.Post("/register", authHandler.Register)
				a.Post("/login", authHandler.Login)
				a.Post("/refresh", authHandler.Refresh)
				a.Post("/logout", authHandler.Logout)
				a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
			})
		})

		v.Get("/stream/homepage", streamHandler.Homepage)

		v.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.Post("/checkout", orderHandler.Checkout)
			protected.Get("/orders", orderHandler.List)
			protected.Get("/orders/{id}", orderHandler.Get)
		})

		v.Post("/webhooks/payment", paymentWebhook.Handle)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(auth.RequireRole(auth.RoleAdmin))

			admin.Get("/dashboard", dashboardHandler.Stats)

			admin.Post("/products", catalogAdmin.CreateProduct)
			admin.Put("/products/{id}", catalogAdmin.UpdateProduct)
			admin.Delete("/products/{id}", catalogAdmin.DeactivateProduct)
			admin.Post("/categories", catalogAdmin.CreateCategory)

			admin.Post("/promos", promoAdmin.Create)
			admin.Put("/promos/{code}", promoAdmin.Update)
			admin.Get("/promos", promoAdmin.List)
			admin.Post("/promos/preview", promoAdmin.Preview)

			admin.Get("/pages", contentAdmin.ListPages)
			admin.Put("/pages", contentAdmin.SavePage)
			admin.Delete("/pages/{slug}", contentAdmin.DeletePage)
			admin.Put("/plans", contentAdmin.SavePlan)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// lookupTestAccount resolves the internal demo account excluded from
// dashboard statistics. A missing account is not an error.
func lookupTestAccount(ctx context.Context, st *store.Store, email string, logger zerolog.Logger) pgtype.UUID {
	if strings.TrimSpace(email) == "" {
		return pgtype.UUID{}
	}
	u, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Warn().Err(err).Str("email", email).Msg("test account not found")
		return pgtype.UUID{}
	}
	return u.ID
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// newPublicLimiter keys the public quota on the caller address so that
// requests forwarded through a proxy are counted per client, not per hop.
func newPublicLimiter(store limiter.Store, rpm int) *mhttp.Middleware {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(rpm)}
	return mhttp.NewMiddleware(limiter.New(store, rate), mhttp.WithKeyGetter(func(r *http.Request) string {
		return common.ClientIP(r)
	}))
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

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}
