package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/featureflags"
	"github.com/elebur/VoteAPI/internal/handler"
	"github.com/elebur/VoteAPI/internal/infrastructure/logger"
	"github.com/elebur/VoteAPI/internal/infrastructure/redis"
	"github.com/elebur/VoteAPI/internal/observability/metrics"
	"github.com/elebur/VoteAPI/internal/observability/tracing"
	"github.com/elebur/VoteAPI/internal/reliability/circuitbreaker"
	"github.com/elebur/VoteAPI/internal/reliability/retry"
	"github.com/elebur/VoteAPI/internal/repository"
	"github.com/elebur/VoteAPI/internal/repository/memstore"
	"github.com/elebur/VoteAPI/internal/security"
	"github.com/elebur/VoteAPI/internal/security/audit"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/security/ratelimit"
	"github.com/elebur/VoteAPI/internal/service"
	"github.com/elebur/VoteAPI/internal/worker"
	"github.com/elebur/VoteAPI/pkg/config"
	"github.com/elebur/VoteAPI/pkg/database"
)

const (
	tokenMaxRequests = 10
	tokenWindow      = time.Minute
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	log.Info("starting VoteAPI server",
		slog.String("environment", cfg.Environment),
		slog.String("database", cfg.DatabaseType),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Storage
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	// 5. Optional Redis for the shared rate limit window
	fallbackLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer fallbackLimiter.Stop()
	var limiter ratelimit.Allower = fallbackLimiter
	var redisPinger handler.Pinger
	if cfg.RedisAddr != "" {
		redisClient, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, rate limiting per process", slog.String("error", err.Error()))
		} else {
			defer redisClient.Close()
			redisPinger = redisClient

			breaker := circuitbreaker.New(5, 2, 30*time.Second)
			breaker.OnStateChange(func(from, to circuitbreaker.State) {
				metrics.ObserveBreakerTransition("redis", to.String())
				log.Warn("redis circuit breaker transition",
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			})
			limiter = ratelimit.NewRedisLimiter(redisClient, fallbackLimiter, breaker, cfg.RateLimitRequests, cfg.RateLimitWindow, log)
		}
	}
	if cfg.RateLimitRequests <= 0 {
		limiter = nil
	}

	// 6. Services
	calendar := service.Calendar{Location: cfg.Location}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.ServiceName, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(store, tokens, log)
	voteService := service.NewVoteService(store, calendar, log)
	restaurantService := service.NewRestaurantService(store, cfg.RestaurantCacheTTL, log)

	janitor := worker.NewJanitor(cfg.RestaurantCacheTTL, log)
	janitor.Register("restaurant_cache", func(context.Context) (int, error) {
		return restaurantService.PurgeCache(), nil
	})
	go janitor.Start(ctx)

	// 7. Handlers and routes
	deps := handler.Dependencies{
		Auth:             authService,
		Employees:        service.NewEmployeeService(store, log),
		Restaurants:      restaurantService,
		Menus:            service.NewMenuService(store, calendar, log),
		Votes:            voteService,
		Authz:            security.NewAuthorizationService(log),
		Audit:            audit.NewLogger(log),
		Limiter:          limiter,
		TokenLimiter:     ratelimit.NewLimiter(tokenMaxRequests, tokenWindow),
		TokenMaxRequests: tokenMaxRequests,
		TokenWindow:      tokenWindow,
		Health:           handler.NewHealthHandler(store, redisPinger, log),
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		Logger:           log,
	}
	defer deps.TokenLimiter.Stop()

	flags := featureflags.New(cfg.FeatureFlags)
	if flags.Enabled(featureflags.LiveResults) {
		deps.Results = handler.NewResultsStreamHandler(voteService, cfg.ResultsStreamInterval, cfg.CORSAllowedOrigins, log)
	}

	rootHandler := otelhttp.NewHandler(handler.NewRouter(deps), "voteapi",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)

	// 8. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           rootHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("time_zone", cfg.Location.String()),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
		slog.Bool("live_results", deps.Results != nil),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openStore returns the configured backend and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Store, func(), error) {
	if cfg.DatabaseType == config.DatabaseMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver:          cfg.DatabaseType,
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectRetry:    retry.DefaultPolicy(),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	closeFn := func() {
		if err := pool.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
	return repository.NewSQLStore(pool.GetDB(), pool.Driver(), log), closeFn, nil
}
