// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/petadopt/petadopt/internal/auth"
	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/internal/store"
)

const (
	// mailDrainTimeout bounds how long shutdown waits for queued email.
	mailDrainTimeout = 10 * time.Second
	// sessionPruneInterval is how often serve removes expired sessions.
	sessionPruneInterval = time.Hour
	readHeaderTimeout    = 10 * time.Second
	readinessTimeout     = 2 * time.Second
)

// serveFlagKeys maps serve flags to config keys.
var serveFlagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "metrics.addr",
	"base-url":     "auth.base_url",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"auto-migrate": "database.auto_migrate",
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the PetAdopt web server together with the metrics and health
endpoints. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("base-url", defaults.Auth.BaseURL, "public base URL used in email links")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().Bool("auto-migrate", defaults.Database.AutoMigrate, "apply pending migrations on startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	logger := setupLogging(cfg)
	logger.Info("starting petadopt", "addr", cfg.Server.Addr, "version", version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Pool())
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	a, err := buildApp(cfg, pool, store.ReadinessCheck(pool, readinessTimeout), logger)
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), mailDrainTimeout)
		defer drainCancel()
		if err := a.dispatcher.Close(drainCtx); err != nil {
			logger.Warn("mail queue not fully drained", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		obsErrChan, err := a.obs.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", a.obs.Addr())
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	httpErrChan := make(chan error, 1)
	go func() {
		defer close(httpErrChan)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrChan <- err
		}
	}()
	go monitorServerErrors(ctx, cancel, httpErrChan, "http")
	go pruneSessions(ctx, a.auth, sessionPruneInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("PetAdopt listening on " + listener.Addr().String())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if cfg.Metrics.Addr != "" {
		if err := a.obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// pruneSessions deletes expired sessions every interval until ctx ends.
func pruneSessions(ctx context.Context, svc *auth.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.PruneSessions(ctx); err != nil {
				slog.WarnContext(ctx, "session prune failed", "error", err)
			}
		}
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It returns
// when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
