package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlark/userauth/internal/callback"
	"github.com/openlark/userauth/internal/clientcache"
	"github.com/openlark/userauth/internal/config"
	"github.com/openlark/userauth/internal/oauth"
)

// shutdownTimeout bounds graceful shutdown so a stuck exchange cannot keep
// the process alive.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth callback server",
		Long: `Serve the authorization callback endpoint along with health and
metrics endpoints. The config file is watched; credential rotation takes
effect without a restart and invalidates cached clients for the rotated
accounts.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	name, acct, err := selectAccount(cfg)
	if err != nil {
		return err
	}

	flowCfg, ok := acct.FlowConfig()
	if !ok {
		return fmt.Errorf("user authorization is not enabled for account %q", name)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	flow := oauth.NewFlow(store, defaultHTTPClient(), logger)
	caches := clientcache.New(flow, defaultHTTPClient(), logger)

	// The live handler is swapped on config reload so rotated credentials
	// apply to in-flight traffic without a restart.
	var handler atomic.Pointer[callback.Handler]
	handler.Store(callback.NewHandler(flow, flowCfg, logger, nil))

	router := callback.NewRouter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Load().ServeHTTP(w, r)
	}), cfg.Server.CallbackPath, store)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewHolder(cfg, cfgPath)

	go func() {
		err := config.Watch(ctx, holder, logger, func(old, updated *config.Config) {
			for _, rotated := range config.RotatedAccounts(old, updated) {
				caches.Invalidate(rotated)
				logger.Info("invalidated cached clients after credential rotation",
					slog.String("account", rotated),
				)
			}

			acct, ok := updated.Accounts[name]
			if !ok {
				logger.Warn("serving account removed from config, keeping previous credentials",
					slog.String("account", name),
				)

				return
			}

			if newCfg, ok := acct.FlowConfig(); ok {
				handler.Store(callback.NewHandler(flow, newCfg, logger, nil))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watch stopped", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("callback server listening",
			slog.String("addr", cfg.Server.Listen),
			slog.String("path", cfg.Server.CallbackPath),
		)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("callback server: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}
