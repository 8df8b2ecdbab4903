package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrNotFound indicates the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Load reads and validates the config file at path. Unknown keys are an
// error so that typos surface immediately instead of silently falling back
// to defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := checkUnknownKeys(md); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the built-in defaults when the
// file does not exist. Any other failure is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		return DefaultConfig(), nil
	}

	return cfg, err
}

// Validate checks cross-field constraints after decoding.
func (c *Config) Validate() error {
	if c.Storage.RefreshBuffer != "" {
		d, err := time.ParseDuration(c.Storage.RefreshBuffer)
		if err != nil {
			return fmt.Errorf("storage.refresh_buffer: %w", err)
		}

		if d < 0 {
			return fmt.Errorf("storage.refresh_buffer must not be negative, got %s", d)
		}
	}

	for name, acct := range c.Accounts {
		if acct.AppID == "" {
			return fmt.Errorf("account.%s: app_id is required", name)
		}

		if acct.AppSecret == "" {
			return fmt.Errorf("account.%s: app_secret is required", name)
		}

		if acct.OAuth.Enabled && acct.OAuth.RedirectURI == "" {
			return fmt.Errorf("account.%s: oauth.redirect_uri is required when oauth is enabled", name)
		}
	}

	return nil
}

// checkUnknownKeys rejects keys the decoder could not map onto the Config
// struct.
func checkUnknownKeys(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	return fmt.Errorf("unknown key(s): %s", strings.Join(keys, ", "))
}
