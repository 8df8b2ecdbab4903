// Package clientcache caches API client handles across calls: one cache
// keyed by tenant (app-credential clients) and one keyed by tenant:openID
// (user-identity clients). Entries carry the provenance they were built
// from; any mismatch forces a rebuild, so credential rotation and token
// refresh never leave a stale client in use. Entries are disposable
// projections — the token store and tenant config remain authoritative.
package clientcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openlark/userauth/internal/larkapi"
	"github.com/openlark/userauth/internal/oauth"
)

// ErrNotConfigured indicates a tenant is missing its app credentials.
var ErrNotConfigured = errors.New("clientcache: tenant credentials not configured")

// userClientLifetime is the coarse expiry estimate recorded on user-cache
// entries. Diagnostic only; validity is always the token comparison.
const userClientLifetime = 2 * time.Hour

type tenantEntry struct {
	client *larkapi.Client

	// provenance: the exact credential tuple the client was built from.
	appID     string
	appSecret string
	domain    string
}

type userEntry struct {
	client *larkapi.BoundClient

	// provenance: the access token the client was built with.
	accessToken string
	expiresAt   time.Time
}

// Caches owns both client maps. Constructed per service instance, never
// package-level, so tests get isolated caches.
type Caches struct {
	mu      sync.Mutex
	tenants map[string]tenantEntry
	users   map[string]userEntry

	flow       *oauth.Flow
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates empty caches. flow resolves user access tokens (refreshing as
// needed); httpClient is handed to every client built here.
func New(flow *oauth.Flow, httpClient *http.Client, logger *slog.Logger) *Caches {
	if logger == nil {
		logger = slog.Default()
	}

	return &Caches{
		tenants:    make(map[string]tenantEntry),
		users:      make(map[string]userEntry),
		flow:       flow,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Tenant returns the cached app-credential client for tenantID, rebuilding
// if the stored credential tuple differs from the requested one.
func (c *Caches) Tenant(tenantID string, cfg oauth.Config) (*larkapi.Client, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("%w: tenant %q", ErrNotConfigured, tenantID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.tenants[tenantID]
	if ok && entry.appID == cfg.AppID && entry.appSecret == cfg.AppSecret && entry.domain == cfg.Domain {
		return entry.client, nil
	}

	client := larkapi.NewClient(cfg.Domain, c.httpClient, c.logger)
	c.tenants[tenantID] = tenantEntry{
		client:    client,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		domain:    cfg.Domain,
	}

	c.logger.Debug("built tenant client", slog.String("tenant", tenantID))

	return client, nil
}

// User returns a client bound to the user's current access token, or absent
// if the user has no valid token (callers fall back to the tenant client or
// send an authorization prompt). A cached client is reused only while the
// live token still equals its provenance; a refreshed token forces rebuild.
func (c *Caches) User(ctx context.Context, tenantID, openID string, cfg oauth.Config) (*larkapi.BoundClient, bool) {
	key := userKey(tenantID, openID)

	accessToken, ok := c.flow.ValidAccessToken(ctx, cfg, openID)
	if !ok {
		c.mu.Lock()
		delete(c.users, key)
		c.mu.Unlock()

		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.users[key]
	if ok && entry.accessToken == accessToken {
		return entry.client, true
	}

	client := larkapi.NewClient(cfg.Domain, c.httpClient, c.logger).WithBearer(accessToken)
	c.users[key] = userEntry{
		client:      client,
		accessToken: accessToken,
		expiresAt:   time.Now().Add(userClientLifetime),
	}

	c.logger.Debug("built user client",
		slog.String("tenant", tenantID),
		slog.String("open_id", openID),
	)

	return client, true
}

// Invalidate removes one tenant's client and cascades to every user entry
// belonging to that tenant, so no per-user client outlives credentials that
// no longer apply.
func (c *Caches) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tenants, tenantID)

	prefix := tenantID + ":"
	for key := range c.users {
		if strings.HasPrefix(key, prefix) {
			delete(c.users, key)
		}
	}
}

// InvalidateAll clears both caches.
func (c *Caches) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tenants = make(map[string]tenantEntry)
	c.users = make(map[string]userEntry)
}

// Sizes reports entry counts for diagnostics.
func (c *Caches) Sizes() (tenants, users int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tenants), len(c.users)
}

func userKey(tenantID, openID string) string {
	return tenantID + ":" + openID
}
