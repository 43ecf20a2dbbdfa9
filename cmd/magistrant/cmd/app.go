package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"magistrant/internal/components/chrono"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/scrapers/kpfu"
	"magistrant/internal/service"
	"magistrant/internal/store"
)

// signalContext returns a context that lives until Ctrl+C or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("shutting down")
		cancel()
	}()

	return ctx
}

// app is everything a command needs to answer plan requests.
type app struct {
	config Config
	tel    telemetry.API
	otel   telemetry.Telemetry
	store  store.Backend
	plans  *service.PlanService
}

func openApp(ctx context.Context) (*app, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	tel := telemetry.SlogAPI{}
	otel, err := telemetry.Setup(ctx, "magistrant", config.Telemetry)
	if err != nil {
		return nil, err
	}

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, errors.Join(err, otel.Shutdown(ctx))
	}
	backend, err := store.Open(ctx, config.Store, tel, clock)
	if err != nil {
		return nil, errors.Join(err, otel.Shutdown(ctx))
	}

	plans := service.NewPlanService(service.PlanServiceOptions{
		Store:             backend,
		Launch:            kpfu.NewLauncher(config.Portal, tel),
		Layout:            config.Layout,
		CacheEmptyResults: config.Cache.CacheEmptyResults,
		Tel:               tel,
	})

	return &app{
		config: config,
		tel:    tel,
		otel:   otel,
		store:  backend,
		plans:  plans,
	}, nil
}

func (a *app) Close() {
	err := a.store.Close()
	if err != nil {
		slog.Warn("close store", "err", err.Error())
	}
	err = a.otel.Shutdown(context.Background())
	if err != nil {
		slog.Warn("shutdown telemetry", "err", err.Error())
	}
}
