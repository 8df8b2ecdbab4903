// Package config implements TOML configuration loading and validation for
// the user-auth service: storage location, callback server settings, and
// per-account (tenant) credentials with their OAuth sections.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/openlark/userauth/internal/oauth"
	"github.com/openlark/userauth/internal/tokenstore"
)

// Application directory name used for config and data paths.
const appName = "userauth"

const (
	configFileName = "config.toml"
	tokenFileName  = "user-tokens.json"
)

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	Storage  StorageConfig            `toml:"storage"`
	Server   ServerConfig             `toml:"server"`
	Accounts map[string]AccountConfig `toml:"account"`
}

// StorageConfig locates the persisted token map and sets the proactive
// refresh lead time.
type StorageConfig struct {
	TokenPath     string `toml:"token_path"`
	RefreshBuffer string `toml:"refresh_buffer"`
}

// ServerConfig configures the OAuth callback listener.
type ServerConfig struct {
	Listen       string `toml:"listen"`
	CallbackPath string `toml:"callback_path"`
}

// AccountConfig is one tenant's application registration.
type AccountConfig struct {
	AppID     string      `toml:"app_id"`
	AppSecret string      `toml:"app_secret"`
	Domain    string      `toml:"domain"`
	OAuth     OAuthConfig `toml:"oauth"`
}

// OAuthConfig is the per-account user-authorization section.
type OAuthConfig struct {
	Enabled     bool     `toml:"enabled"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// FlowConfig assembles the account into an oauth.Config. Returns false when
// user authorization is disabled or the account is missing credentials or
// a redirect URI.
func (a AccountConfig) FlowConfig() (oauth.Config, bool) {
	if !a.OAuth.Enabled || a.OAuth.RedirectURI == "" || a.AppID == "" || a.AppSecret == "" {
		return oauth.Config{}, false
	}

	return oauth.Config{
		AppID:       a.AppID,
		AppSecret:   a.AppSecret,
		Domain:      a.Domain,
		RedirectURI: a.OAuth.RedirectURI,
		Scopes:      a.OAuth.Scopes,
	}, true
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			TokenPath:     DefaultTokenPath(),
			RefreshBuffer: tokenstore.DefaultRefreshBuffer.String(),
		},
		Server: ServerConfig{
			Listen:       "127.0.0.1:8089",
			CallbackPath: "/oauth/callback",
		},
		Accounts: map[string]AccountConfig{},
	}
}

// RefreshBufferDuration parses the configured refresh buffer. Validation
// has already rejected unparsable values.
func (c *Config) RefreshBufferDuration() (time.Duration, error) {
	return time.ParseDuration(c.Storage.RefreshBuffer)
}

// DefaultConfigPath returns the default config file location, honoring
// XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, configFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", appName, configFileName)
}

// DefaultTokenPath returns the default token file location, honoring
// XDG_DATA_HOME.
func DefaultTokenPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, tokenFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".local", "share", appName, tokenFileName)
}
