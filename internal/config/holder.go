package config

import "sync"

// Holder provides concurrency-safe access to the current configuration and
// supports hot replacement after a reload.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded config. path records where it came
// from so reloads read the same file.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Current returns the active config. Callers must not mutate it.
func (h *Holder) Current() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file location backing this holder.
func (h *Holder) Path() string {
	return h.path
}

// Replace swaps in a new config and returns the previous one.
func (h *Holder) Replace(cfg *Config) *Config {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.cfg
	h.cfg = cfg

	return old
}

// Account looks up one account by name in the active config.
func (h *Holder) Account(name string) (AccountConfig, bool) {
	cfg := h.Current()
	acct, ok := cfg.Accounts[name]

	return acct, ok
}
