package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hushenglang/investment-dashboard/internal/config"
	"github.com/hushenglang/investment-dashboard/internal/lock"
	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/macro/providers"
	"github.com/hushenglang/investment-dashboard/internal/store"
)

// application holds the wired service and the resources to release on exit.
type application struct {
	service *macro.Service
	closers []func() error
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildApplication(ctx context.Context, cfg *config.AppConfig) (*application, error) {
	app := &application{}

	repo, err := openRepository(cfg.Database, app)
	if err != nil {
		return nil, err
	}

	src, err := buildSources(cfg.Providers)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	locker, err := buildLocker(ctx, cfg.Redis, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.service = macro.NewService(repo, src, macro.ServiceConfig{
		LatestDatePolicy: macro.LatestDatePolicy(cfg.Macro.LatestDatePolicy),
		LookbackDays:     cfg.Macro.LookbackDays,
		Locker:           locker,
		LockTTL:          cfg.Macro.FetchLockTTL,
	})
	return app, nil
}

func openRepository(cfg config.DatabaseConfig, app *application) (macro.Repository, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}

	db, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.closers = append(app.closers, func() error { return store.Close(db) })
	return store.NewIndicatorRepository(db), nil
}

func buildSources(cfg config.ProvidersConfig) (macro.Sources, error) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	backoff := providers.DefaultBackoff(cfg.MaxRetries)

	fred, err := providers.NewFredClient(httpClient, cfg.FredAPIKey, backoff)
	if err != nil {
		return macro.Sources{}, fmt.Errorf("fred client: %w", err)
	}
	te, err := providers.NewTradingEconomicsClient(httpClient, cfg.TradingEconomicsAPIKey, backoff)
	if err != nil {
		return macro.Sources{}, fmt.Errorf("trading economics client: %w", err)
	}

	return macro.Sources{
		Economic: fred,
		Country:  te,
		Market:   providers.NewYahooFinanceClient(httpClient, backoff),
	}, nil
}

func buildLocker(ctx context.Context, cfg config.RedisConfig, app *application) (macro.Locker, error) {
	if cfg.Addr == "" {
		return lock.NewLocalLocker(), nil
	}

	rdb, err := lock.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, rdb.Close)
	return lock.NewRedisLocker(rdb), nil
}
