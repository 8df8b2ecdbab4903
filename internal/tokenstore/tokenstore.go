// Package tokenstore holds one user token record per openID, backed by a
// single JSON file. The in-memory map is the source of truth for the process
// lifetime; disk persistence is best-effort. Records whose refresh token has
// expired are evicted lazily on the read path, never by a background sweep.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FilePerms restricts the token file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the storage directory.
const DirPerms = 0o700

// DefaultRefreshBuffer is the lead time before access-token expiry at which
// proactive refresh triggers.
const DefaultRefreshBuffer = 5 * time.Minute

// ErrStorageUnavailable indicates the storage directory or file cannot be
// created or written. Load-time corruption degrades to an empty cache
// instead; only an uncreatable directory aborts Open.
var ErrStorageUnavailable = errors.New("tokenstore: storage unavailable")

// UserToken is one user's token pair with absolute expiry instants.
// JSON field names match the persisted layout.
type UserToken struct {
	OpenID                string    `json:"openId"`
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	Scope                 string    `json:"scope,omitempty"`
	TokenType             string    `json:"tokenType,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Stats classifies every stored record by the same time-relative rules as
// Get and NeedsRefresh. Diagnostic only; computing it never evicts.
type Stats struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	NeedsRefresh int `json:"needsRefresh"`
	Expired      int `json:"expired"`
}

// Store owns the persisted token map. All operations serialize through one
// mutex; every mutation is a read-modify-write-then-persist unit.
type Store struct {
	mu            sync.Mutex
	path          string
	refreshBuffer time.Duration
	tokens        map[string]UserToken
	logger        *slog.Logger

	// now is the clock. Tests override it for deterministic expiry checks.
	now func() time.Time
}

// Open acquires the storage directory (created 0700 if absent) and loads any
// existing persisted map. A corrupt or unreadable file degrades to an empty
// cache with a logged warning. refreshBuffer <= 0 selects the default.
func Open(path string, refreshBuffer time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if refreshBuffer <= 0 {
		refreshBuffer = DefaultRefreshBuffer
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return nil, fmt.Errorf("%w: creating directory %s: %w", ErrStorageUnavailable, dir, err)
	}

	s := &Store{
		path:          path,
		refreshBuffer: refreshBuffer,
		tokens:        make(map[string]UserToken),
		logger:        logger,
		now:           time.Now,
	}

	s.load()

	return s, nil
}

// load reads the persisted map into memory. Never fails: a missing file
// means a fresh store, a corrupt file means re-authorization for everyone.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}

	if err != nil {
		s.logger.Warn("token file unreadable, starting with empty cache",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return
	}

	var tokens map[string]UserToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		s.logger.Warn("token file corrupt, starting with empty cache",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return
	}

	s.tokens = tokens
	if s.tokens == nil {
		s.tokens = make(map[string]UserToken)
	}

	s.logger.Info("loaded token store",
		slog.String("path", s.path),
		slog.Int("tokens", len(s.tokens)),
	)
}

// Get returns the record for openID. A record whose refresh token has
// expired at call time is evicted (deleted and the deletion persisted) and
// reported absent — absent always means never authorized or lapsed.
func (s *Store) Get(openID string) (UserToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[openID]
	if !ok {
		return UserToken{}, false
	}

	if !s.now().Before(tok.RefreshTokenExpiresAt) {
		delete(s.tokens, openID)
		s.persistLocked()

		s.logger.Info("evicted expired token",
			slog.String("open_id", openID),
		)

		return UserToken{}, false
	}

	return tok, true
}

// Has reports whether openID has a valid (or refreshable) token.
func (s *Store) Has(openID string) bool {
	_, ok := s.Get(openID)
	return ok
}

// Set overwrites any existing record for the token's openID, stamps
// UpdatedAt, and persists the whole map. A persistence failure is logged
// but the in-memory write stands.
func (s *Store) Set(tok UserToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok.UpdatedAt = s.now()
	s.tokens[tok.OpenID] = tok
	s.persistLocked()
}

// Remove deletes the record for openID and persists.
func (s *Store) Remove(openID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, openID)
	s.persistLocked()
}

// NeedsRefresh reports whether a valid record exists whose access token is
// inside the refresh window: now >= accessTokenExpiresAt - refreshBuffer.
func (s *Store) NeedsRefresh(openID string) bool {
	tok, ok := s.Get(openID)
	if !ok {
		return false
	}

	return !s.now().Before(tok.AccessTokenExpiresAt.Add(-s.refreshBuffer))
}

// List returns all stored records sorted by openID. Unlike Get it does not
// evict; expired records appear until something reads them individually.
func (s *Store) List() []UserToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]UserToken, 0, len(s.tokens))
	for _, tok := range s.tokens {
		out = append(out, tok)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OpenID < out[j].OpenID })

	return out
}

// Stats classifies every record in a single pass without mutating state.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	st := Stats{Total: len(s.tokens)}

	for _, tok := range s.tokens {
		switch {
		case !now.Before(tok.RefreshTokenExpiresAt):
			st.Expired++
		case !now.Before(tok.AccessTokenExpiresAt.Add(-s.refreshBuffer)):
			st.NeedsRefresh++
		default:
			st.Valid++
		}
	}

	return st
}

// RefreshBuffer returns the configured proactive-refresh lead time.
func (s *Store) RefreshBuffer() time.Duration {
	return s.refreshBuffer
}

// persistLocked writes the whole map to disk atomically (temp file in the
// same directory, fsync, rename). Failures are logged, not propagated:
// in-memory state is authoritative and durability is best-effort.
// Caller must hold s.mu.
func (s *Store) persistLocked() {
	if err := s.writeFile(); err != nil {
		s.logger.Warn("failed to persist token store",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) writeFile() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStorageUnavailable, err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: setting permissions: %w", ErrStorageUnavailable, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing: %w", ErrStorageUnavailable, err)
	}

	// Flush to stable storage before rename so a crash between close and
	// rename cannot leave a partial file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing: %w", ErrStorageUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing: %w", ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: renaming: %w", ErrStorageUnavailable, err)
	}

	success = true

	return nil
}
