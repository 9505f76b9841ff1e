// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alcove-web/alcove/internal/auth"
	authpg "github.com/alcove-web/alcove/internal/auth/postgres"
	"github.com/alcove-web/alcove/internal/config"
	"github.com/alcove-web/alcove/internal/logging"
	"github.com/alcove-web/alcove/internal/observability"
	"github.com/alcove-web/alcove/internal/store"
	"github.com/alcove-web/alcove/internal/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	readinessTimeout  = 2 * time.Second
)

// NewServeCmd creates the serve subcommand with all flags configured.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Start the HTTP gateway: the public pages, the credential forms, and the
session-gated protected area.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("http-addr", defaults.HTTPAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().Int("bcrypt-cost", defaults.BcryptCost, "password hashing work factor")
	cmd.Flags().Bool("auto-migrate", false, "apply pending schema migrations at startup")
	cmd.Flags().Bool("debug", false, "enable HTTP framework debug mode")

	return cmd
}

// runServe starts the gateway process.
func runServe(ctx context.Context, cfg config.Config) error {
	logging.SetDefault("alcove", version, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting gateway",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"log_format", cfg.LogFormat,
	)

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		slog.Info("schema migrations applied")
	}

	users := authpg.NewUserRepository(st.Pool())
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	service, err := auth.NewService(users, hasher)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	codec, err := auth.NewIdentityCodec(users)
	if err != nil {
		return fmt.Errorf("failed to create identity codec: %w", err)
	}
	throttle := auth.NewThrottle(auth.ThrottleConfig{})

	// Observability server is optional; readiness follows database health.
	var metrics *observability.Metrics
	var obs *observability.Server
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer cancel()
			return st.Ping(pingCtx) == nil
		})
		if _, err := obs.Start(); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := obs.Stop(stopCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		metrics = obs.Metrics()
	}

	server, err := web.New(web.Options{
		SessionSecret: cfg.SessionSecret,
		Debug:         cfg.Debug,
		Service:       service,
		Codec:         codec,
		Throttle:      throttle,
		Metrics:       metrics,
		Logger:        slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	slog.Info("gateway listening", "addr", cfg.HTTPAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	slog.Info("gateway stopped")
	return nil
}

// migrateUp applies all pending migrations against the database.
func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return migrator.Up()
}
