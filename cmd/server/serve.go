package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/metrics"
	"github.com/JonMunkholm/records/internal/web"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully, letting in-flight uploads finish.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, closeStore, err := openStore(ctx, cfg, cfg.Store.AutoMigrate)
	if err != nil {
		return err
	}
	defer closeStore()

	m, err := metrics.New()
	if err != nil {
		return err
	}

	service := core.NewService(gw,
		core.WithRecorder(m),
		core.WithPersistTimeout(cfg.Upload.PersistTimeout),
	)
	server := web.NewServer(service, cfg, web.WithMetrics(m))

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"store", cfg.Store.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := m.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
