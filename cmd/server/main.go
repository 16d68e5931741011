package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skillpath-labs/skillpath/internal/ai"
	"github.com/skillpath-labs/skillpath/internal/certificate"
	"github.com/skillpath-labs/skillpath/internal/curriculum"
	"github.com/skillpath-labs/skillpath/internal/generator"
	"github.com/skillpath-labs/skillpath/internal/httpapi"
	"github.com/skillpath-labs/skillpath/internal/payment"
	"github.com/skillpath-labs/skillpath/internal/platform/cache"
	"github.com/skillpath-labs/skillpath/internal/platform/config"
	"github.com/skillpath-labs/skillpath/internal/platform/database"
	"github.com/skillpath-labs/skillpath/internal/progress"
	"github.com/skillpath-labs/skillpath/internal/report"
	"github.com/skillpath-labs/skillpath/internal/store"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.ApplySchema(ctx, db.Pool); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	var st store.Store = pg

	var budget ai.BudgetChecker
	var cacheClient *cache.Cache
	if cfg.Cache.URL != "" {
		cacheClient, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer cacheClient.Close()

		st = store.WithCurriculumCache(pg, cacheClient.Client, logger)
		if cfg.Generation.TokenBudget > 0 {
			budget = ai.NewRedisBudget(cacheClient.Client, cfg.Generation.TokenBudget, 24*time.Hour)
		}
	} else if cfg.Generation.TokenBudget > 0 {
		slog.Warn("token budget configured without cache, budget enforcement disabled")
	}

	router := ai.NewRouter()
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey,
			ai.WithOpenRouterReferer(cfg.AI.OpenRouter.Referer)))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if !cfg.HasAIProvider() {
		slog.Warn("no generation backend configured, all content will be fallback content")
	}

	genOpts := []generator.Option{
		generator.WithMaxAttempts(cfg.Generation.MaxAttempts),
		generator.WithBaseDelay(time.Duration(cfg.Generation.BaseDelayMs) * time.Millisecond),
		generator.WithModel(cfg.AI.OpenRouter.Model),
		generator.WithLogger(logger),
	}
	if budget != nil {
		genOpts = append(genOpts, generator.WithBudget(budget))
	}
	gen := generator.New(router, genOpts...)

	hub := httpapi.NewHub(logger)
	prog := progress.NewService(st, progress.WithNotifier(hub), progress.WithLogger(logger))
	cs := curriculum.NewService(gen, st, logger)
	certs := certificate.NewService(prog, st, logger)

	priceWei, _ := new(big.Int).SetString(cfg.Payment.CertPriceWei, 10)
	verifier := payment.NewVerifier(
		payment.NewRPCClient(cfg.Payment.RPCURL),
		st,
		cfg.Payment.MerchantAddress,
		payment.WithPriceWei(priceWei),
		payment.WithVerifierLogger(logger),
	)

	srv := httpapi.NewServer(cs, prog, certs, verifier, report.NewExporter(st), st,
		httpapi.WithHub(hub),
		httpapi.WithServerLogger(logger),
		httpapi.WithReadyCheck(func(ctx context.Context) error {
			if err := db.HealthCheck(ctx); err != nil {
				return err
			}
			if cacheClient != nil {
				return cacheClient.HealthCheck(ctx)
			}
			return nil
		}),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from config. Unknown levels fall back
// to info, unknown formats to JSON.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
