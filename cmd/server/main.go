package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/laithharzallah/Laithstool-sub001/internal/cache"
	"github.com/laithharzallah/Laithstool-sub001/internal/config"
	"github.com/laithharzallah/Laithstool-sub001/internal/handlers"
	"github.com/laithharzallah/Laithstool-sub001/internal/news"
	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
	"github.com/laithharzallah/Laithstool-sub001/internal/registry"
	"github.com/laithharzallah/Laithstool-sub001/internal/router"
	"github.com/laithharzallah/Laithstool-sub001/internal/sanctions"
	"github.com/laithharzallah/Laithstool-sub001/internal/screen"
	"github.com/laithharzallah/Laithstool-sub001/internal/summarize"
)

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	serverCfg := config.GetServerConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(serverCfg.LogLevel),
	}))
	slog.SetDefault(logger)

	providerCfg := config.GetProviderConfig()
	if missing := providerCfg.MissingKeys(); len(missing) > 0 {
		logger.Warn("providers without credentials run disabled", "missing", missing)
	}

	cacheCfg := config.GetCacheConfig()
	store := cache.New()
	store.StartSweeper(context.Background(), cacheCfg.SweepInterval)

	memoOpts := []cache.Option{
		cache.WithTTLPolicy(map[string]time.Duration{
			screen.OpCompany:        cacheCfg.CompanyTTL,
			screen.OpIndividual:     cacheCfg.IndividualTTL,
			screen.OpRegistryLookup: cacheCfg.RegistryLookupTTL,
			screen.OpRegistrySearch: cacheCfg.RegistrySearchTTL,
		}),
	}
	if cacheCfg.CacheErrors {
		memoOpts = append(memoOpts, cache.WithErrorCaching())
	}
	if cacheCfg.SingleFlight {
		memoOpts = append(memoOpts, cache.WithSingleFlight())
	}

	limiter := ratelimit.NewRegistry(map[string]ratelimit.Limit{
		news.ProviderCSE:   {PerSecond: 2, Burst: 10},
		registry.Provider:  {PerSecond: 5, Burst: 10},
		sanctions.Provider: {PerSecond: 1, Burst: 3},
	})

	screener := screen.New(screen.Config{
		Memo: cache.NewMemo(store, memoOpts...),
		Registry: registry.New(registry.Config{
			APIKey:  providerCfg.DARTAPIKey,
			BaseURL: providerCfg.DARTBaseURL,
			Limiter: limiter,
			Logger:  logger,
		}),
		News: news.NewSearcher(news.Config{
			GoogleAPIKey: providerCfg.GoogleAPIKey,
			GoogleCSEID:  providerCfg.GoogleCSEID,
			MaxResults:   providerCfg.NewsMaxResults,
			Limiter:      limiter,
			Logger:       logger,
		}),
		Model: summarize.New(summarize.Config{
			APIKey:  providerCfg.OpenAIAPIKey,
			Model:   providerCfg.OpenAIModel,
			BaseURL: providerCfg.OpenAIBaseURL,
			Logger:  logger,
		}),
		Watchlist: sanctions.New(sanctions.Config{
			APIKey:  providerCfg.DilisenseAPIKey,
			BaseURL: providerCfg.DilisenseBaseURL,
			Limiter: limiter,
			Logger:  logger,
		}),
		Logger: logger,
	})

	r := router.New(router.Config{
		Handler: handlers.New(handlers.Config{
			Screener: screener,
			Tasks:    screen.NewTaskStore(logger),
			Cache:    store,
			Logger:   logger,
		}),
		Logger: logger,
		APIKey: serverCfg.APIKey,
	})

	logger.Info("server starting", "addr", serverCfg.ListenAddr)
	if err := r.Run(serverCfg.ListenAddr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
