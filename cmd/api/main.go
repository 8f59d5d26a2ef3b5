package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"upiguard/internal/api"
	"upiguard/internal/api/handlers"
	apimiddleware "upiguard/internal/api/middleware"
	"upiguard/internal/config"
	"upiguard/internal/domain/services"
	"upiguard/internal/grpc/healthcheck"
	"upiguard/internal/infrastructure/cache"
	"upiguard/internal/infrastructure/database"
	"upiguard/internal/infrastructure/database/repository"
	"upiguard/internal/infrastructure/memory"
	"upiguard/internal/infrastructure/resilience"
	"upiguard/internal/metrics"
	"upiguard/internal/streaming"
	"upiguard/pkg/logger"
)

// stores groups the persistence ports the services consume
type stores struct {
	blacklist services.BlacklistStore
	history   services.TransactionHistory
	profiles  services.ProfileStore
	contacts  services.ContactStore
}

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting UPI fraud engine")

	if len(cfg.Auth.APIKeys) == 0 {
		log.Warn().Msg("no API keys configured, any non-empty bearer key is accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := healthcheck.NewChecker(log)

	db, st := initStorage(ctx, cfg, log)
	if db != nil {
		defer db.Close()
		checker.Add("postgres", db.Ping)
		go metrics.StartPoolStatsCollector(ctx, db.Pool(), 15*time.Second)
	} else {
		go metrics.StartPoolStatsCollector(ctx, nil, 15*time.Second)
	}

	var (
		verdicts services.VerdictCache
		limiter  apimiddleware.RateLimitChecker
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, using in-process cache without rate limiting")
		} else {
			defer redisCache.Close()
			verdicts = redisCache
			limiter = redisCache
			checker.Add("redis", redisCache.Ping)
		}
	}
	if verdicts == nil {
		memCache := cache.NewMemory()
		defer memCache.Close()
		verdicts = memCache
	}

	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, alerts stay in-process")
			natsPublisher = nil
		} else {
			defer natsPublisher.Close()
			checker.Add("nats", func(context.Context) error {
				if !natsPublisher.IsConnected() {
					return errors.New("nats disconnected")
				}
				return nil
			})
		}
	}

	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()
	wsHub := streaming.NewWebSocketHub(eventBus, log)
	go wsHub.Run(ctx)
	publisher := streaming.NewPublisher(eventBus)

	breaker := func(name string) *resilience.Breaker {
		return resilience.NewBreaker(resilience.Settings{
			Name:        name,
			Timeout:     cfg.Risk.BreakerTimeout,
			MinRequests: cfg.Risk.BreakerMinReqs,
		}, log)
	}

	rules := services.DefaultPhishingRules().
		WithBrands(cfg.Phishing.ExtraBrands...).
		WithShorteners(cfg.Phishing.ExtraShorteners...)

	blacklistService := services.NewBlacklistService(st.blacklist, verdicts, breaker("blacklist"),
		publisher, cfg.Risk.BlockCacheTTL, log)
	urlService := services.NewURLService(services.NewPhishingAnalyzer(rules), blacklistService, verdicts, publisher,
		services.URLServiceConfig{
			VerdictTTL: cfg.Risk.URLCacheTTL,
			BlockedTTL: cfg.Risk.BlockCacheTTL,
			FailClosed: cfg.Risk.FailClosed,
		}, log)
	transactionService := services.NewTransactionService(services.NewTransactionAnalyzer(), blacklistService,
		st.history, st.profiles, st.contacts, publisher,
		services.TransactionBreakers{
			History:  breaker("history"),
			Profile:  breaker("profile"),
			Contacts: breaker("contacts"),
		},
		services.TransactionServiceConfig{
			FailClosed:   cfg.Risk.FailClosed,
			HistoryLimit: cfg.Risk.HistoryLimit,
		}, log)
	contactService := services.NewContactService(st.contacts, log)

	h := handlers.NewHandlers(handlers.Dependencies{
		URLs:         urlService,
		Transactions: transactionService,
		Contacts:     contactService,
		Blacklist:    blacklistService,
		Health:       checker,
		Hub:          wsHub,
		Version:      cfg.App.Version,
		Logger:       log,
	})

	router := api.NewRouter(*cfg, h, limiter, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()
	checker.Register(grpcServer)
	go checker.Run(ctx, 15*time.Second)

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC health server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}

func newLogger(cfg *config.Config) *logger.Logger {
	if cfg.Logger.Level == "" {
		if cfg.IsProduction() {
			return logger.NewProduction()
		}
		return logger.NewDevelopment()
	}

	lc := logger.DefaultConfig()
	lc.Level = cfg.Logger.Level
	if cfg.Logger.Format != "" {
		lc.Format = cfg.Logger.Format
	}
	if cfg.Logger.TimeFormat != "" {
		lc.TimeFormat = cfg.Logger.TimeFormat
	}
	lc.File = cfg.Logger.File
	lc.MaxSizeMB = cfg.Logger.MaxSizeMB
	lc.MaxBackups = cfg.Logger.MaxBackups
	lc.MaxAgeDays = cfg.Logger.MaxAgeDays
	return logger.New(lc)
}

// initStorage connects to PostgreSQL when enabled and falls back to the
// in-memory store otherwise. The returned db is nil on fallback.
func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, stores) {
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err == nil {
			repos := repository.NewRepositories(db)
			log.Info().Msg("repositories initialized with database")
			return db, stores{
				blacklist: repos.Blacklist,
				history:   repos.Transactions,
				profiles:  repos.Profiles,
				contacts:  repos.Contacts,
			}
		}
		log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing with in-memory store")
	}

	store := memory.NewStore()
	return nil, stores{blacklist: store, history: store, profiles: store, contacts: store}
}
