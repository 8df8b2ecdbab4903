// Command userauth manages per-user Feishu/Lark OAuth tokens: it serves the
// authorization callback, inspects the token store, and prints authorize
// URLs for users who still need to grant access.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlark/userauth/internal/config"
	"github.com/openlark/userauth/internal/tokenstore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagAccount    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout bounds every upstream call so a hung exchange never
// blocks a CLI command indefinitely.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the fully-assembled root command. Called once from
// main() and from command tests.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "userauth",
		Short:   "Feishu/Lark user OAuth token manager",
		Long:    "Manage per-user OAuth tokens for Feishu/Lark bot accounts: serve the authorization callback, inspect stored tokens, and generate authorize URLs.",
		Version: version,
		// Silence cobra's default error/usage printing — main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagAccount, "account", "", "account name from the config file")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newUsersCmd())
	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// buildLogger creates an slog.Logger at a level chosen by the CLI flags.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the config path (flag wins over default location) and
// loads it, falling back to defaults when no file exists.
func loadConfig() (*config.Config, string, error) {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	return cfg, path, nil
}

// openStore opens the token store described by the config.
func openStore(cfg *config.Config, logger *slog.Logger) (*tokenstore.Store, error) {
	buffer, err := cfg.RefreshBufferDuration()
	if err != nil {
		return nil, fmt.Errorf("refresh buffer: %w", err)
	}

	store, err := tokenstore.Open(cfg.Storage.TokenPath, buffer, logger)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	return store, nil
}

// selectAccount picks the account named by --account, or the sole configured
// account when the flag is unset.
func selectAccount(cfg *config.Config) (string, config.AccountConfig, error) {
	if flagAccount != "" {
		acct, ok := cfg.Accounts[flagAccount]
		if !ok {
			return "", config.AccountConfig{}, fmt.Errorf("account %q not found in config", flagAccount)
		}

		return flagAccount, acct, nil
	}

	if len(cfg.Accounts) == 1 {
		for name, acct := range cfg.Accounts {
			return name, acct, nil
		}
	}

	return "", config.AccountConfig{}, fmt.Errorf("no account selected: configure exactly one account or pass --account (have %d)", len(cfg.Accounts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
