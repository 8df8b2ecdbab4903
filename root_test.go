package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlark/userauth/internal/config"
)

// newRootCmd() binds flags via StringVar/BoolVar, which resets the global
// flag variables. Tests set globals AFTER building the command, or go
// through cmd.SetArgs() + Execute() and let cobra parse.

func resetFlags(t *testing.T) {
	t.Helper()

	oldConfig := flagConfigPath
	oldAccount := flagAccount
	oldJSON := flagJSON
	oldVerbose := flagVerbose
	oldQuiet := flagQuiet

	t.Cleanup(func() {
		flagConfigPath = oldConfig
		flagAccount = oldAccount
		flagJSON = oldJSON
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
	})
}

func TestBuildLogger_Default(t *testing.T) {
	resetFlags(t)
	flagVerbose = false
	flagQuiet = false

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Verbose(t *testing.T) {
	resetFlags(t)
	flagVerbose = true
	flagQuiet = false

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Quiet(t *testing.T) {
	resetFlags(t)
	flagVerbose = false
	flagQuiet = true

	logger := buildLogger()

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestLoadConfig_FlagPathWins(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen = "127.0.0.1:7777"
`), 0o600))

	flagConfigPath = path

	cfg, gotPath, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, "127.0.0.1:7777", cfg.Server.Listen)
}

func TestSelectAccount_SoleAccountImplied(t *testing.T) {
	resetFlags(t)
	flagAccount = ""

	cfg := config.DefaultConfig()
	cfg.Accounts["main"] = config.AccountConfig{AppID: "cli_1", AppSecret: "s"}

	name, acct, err := selectAccount(cfg)
	require.NoError(t, err)
	assert.Equal(t, "main", name)
	assert.Equal(t, "cli_1", acct.AppID)
}

func TestSelectAccount_FlagSelectsAmongMany(t *testing.T) {
	resetFlags(t)
	flagAccount = "second"

	cfg := config.DefaultConfig()
	cfg.Accounts["first"] = config.AccountConfig{AppID: "cli_1", AppSecret: "s"}
	cfg.Accounts["second"] = config.AccountConfig{AppID: "cli_2", AppSecret: "s"}

	name, acct, err := selectAccount(cfg)
	require.NoError(t, err)
	assert.Equal(t, "second", name)
	assert.Equal(t, "cli_2", acct.AppID)
}

func TestSelectAccount_AmbiguousWithoutFlag(t *testing.T) {
	resetFlags(t)
	flagAccount = ""

	cfg := config.DefaultConfig()
	cfg.Accounts["first"] = config.AccountConfig{AppID: "cli_1", AppSecret: "s"}
	cfg.Accounts["second"] = config.AccountConfig{AppID: "cli_2", AppSecret: "s"}

	_, _, err := selectAccount(cfg)
	assert.Error(t, err)
}

func TestSelectAccount_UnknownName(t *testing.T) {
	resetFlags(t)
	flagAccount = "missing"

	cfg := config.DefaultConfig()

	_, _, err := selectAccount(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"stats", "users", "auth-url", "serve"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
