package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"walletnote/internal/amqp"
	"walletnote/internal/backend"
	"walletnote/internal/cli"
	"walletnote/internal/records"
	"walletnote/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(slog.Default(), "Configuration validation failed", err)
	}

	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.MirrorBackend == "" {
		cli.Fatal(logger.Logger, "Mirror worker needs MIRROR_BACKEND", errors.New("no mirror backend configured"))
	}
	logger.Info("Starting walletnote-mirror",
		"primary", cfg.DataBackend,
		"mirror", cfg.MirrorBackend)

	ctx, stop := cli.SignalContext(context.Background(), logger.Logger)
	defer stop()

	factory := backend.NewFactory(logger.Logger)

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid mirror configuration", err)
	}
	mirror, err := factory.OpenStore(ctx, mirrorCfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to open mirror store", err)
	}
	defer mirror.Close()

	// The primary is only read, to catch up on events missed while down.
	// An in-memory primary lives in another process and cannot be read.
	var source records.Store
	if cfg.DataBackend != string(backend.MemoryBackend) {
		primaryCfg, err := backend.FromAppConfig(cfg)
		if err == nil {
			source, err = factory.OpenStore(ctx, primaryCfg)
		}
		if err != nil {
			logger.Warn("Primary store unavailable, reconciliation disabled", "error", err)
			source = nil
		} else {
			defer source.Close()
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror)

	if source != nil {
		if _, _, err := w.Reconcile(ctx, source); err != nil {
			logger.Error("Startup reconciliation failed", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := client.ConsumeExpenseEvents(gctx, func(ev *amqp.ExpenseEvent) error {
			return w.HandleEvent(gctx, ev)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if source != nil {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.MirrorReconcileInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if _, _, err := w.Reconcile(gctx, source); err != nil {
						logger.Error("Periodic reconciliation failed", "error", err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Mirror worker stopped", "error", err)
	}

	s := w.Stats()
	logger.Info("Mirror worker shutdown complete",
		"added", s.Added,
		"deleted", s.Deleted,
		"skipped", s.Skipped)
}
