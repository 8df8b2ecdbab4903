// Package oauth runs the per-user authorization-code flow against the
// Feishu/Lark open platform: building authorization URLs, exchanging codes,
// refreshing token pairs before expiry, and handing consumers the single
// valid-access-token read path.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openlark/userauth/internal/larkapi"
	"github.com/openlark/userauth/internal/tokenstore"
)

const authorizePath = "/open-apis/authen/v1/authorize"

// ErrMissingOpenID is returned by ExchangeCode when neither the upstream
// response nor the state-carried hint identifies the user. Storing a token
// under an empty key would mask a real failure, so the exchange fails
// instead. Wraps larkapi.ErrUpstreamAuth.
var ErrMissingOpenID = fmt.Errorf("oauth: upstream response omitted open_id: %w", larkapi.ErrUpstreamAuth)

// Config is one tenant's static OAuth configuration. Immutable; one value
// serves any number of exchange and refresh calls.
type Config struct {
	AppID       string
	AppSecret   string
	Domain      string
	RedirectURI string
	Scopes      []string
}

// Configured reports whether the tenant has everything needed to run the
// authorization flow.
func (c Config) Configured() bool {
	return c.AppID != "" && c.AppSecret != "" && c.RedirectURI != ""
}

// AuthorizeURL builds the URL the user visits to authorize. Pure function:
// identical inputs produce identical URLs. state is caller-supplied opaque
// data, used to round-trip the target user identity through the redirect.
func AuthorizeURL(cfg Config, state string) string {
	params := url.Values{
		"app_id":       {cfg.AppID},
		"redirect_uri": {cfg.RedirectURI},
		"scope":        {strings.Join(cfg.Scopes, " ")},
		"state":        {state},
	}

	return larkapi.BaseURL(cfg.Domain) + authorizePath + "?" + params.Encode()
}

// Flow orchestrates token acquisition and refresh against one token store.
type Flow struct {
	store      *tokenstore.Store
	httpClient *http.Client
	logger     *slog.Logger

	// refreshGroup coalesces concurrent refreshes per openID into one
	// in-flight upstream call shared by all waiters.
	refreshGroup singleflight.Group

	now func() time.Time
}

// NewFlow creates a Flow backed by the given store. httpClient may be nil
// (http.DefaultClient); its timeout policy governs all upstream calls.
func NewFlow(store *tokenstore.Store, httpClient *http.Client, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Store returns the token store this flow persists into.
func (f *Flow) Store() *tokenstore.Store {
	return f.store
}

func (f *Flow) apiClient(cfg Config) *larkapi.Client {
	return larkapi.NewClient(cfg.Domain, f.httpClient, f.logger)
}

// ExchangeCode trades an authorization code for a user token pair and
// persists it. openIDHint is the identity round-tripped through the state
// parameter; it backfills the record when the upstream omits open_id. If
// both are empty the exchange fails with ErrMissingOpenID and nothing is
// stored. Codes are one-time-use upstream: a second call with the same code
// surfaces the upstream rejection, it is never swallowed.
func (f *Flow) ExchangeCode(ctx context.Context, cfg Config, code, openIDHint string) (tokenstore.UserToken, error) {
	api := f.apiClient(cfg)

	appToken, err := api.AppAccessToken(ctx, cfg.AppID, cfg.AppSecret)
	if err != nil {
		return tokenstore.UserToken{}, fmt.Errorf("oauth: obtaining app credential: %w", err)
	}

	data, err := api.ExchangeCode(ctx, appToken, code)
	if err != nil {
		return tokenstore.UserToken{}, fmt.Errorf("oauth: exchanging code: %w", err)
	}

	openID := data.OpenID
	if openID == "" {
		openID = openIDHint
	}

	if openID == "" {
		return tokenstore.UserToken{}, ErrMissingOpenID
	}

	now := f.now()
	tok := tokenstore.UserToken{
		OpenID:                openID,
		AccessToken:           data.AccessToken,
		RefreshToken:          data.RefreshToken,
		AccessTokenExpiresAt:  now.Add(time.Duration(data.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(time.Duration(data.RefreshExpiresIn) * time.Second),
		Scope:                 data.Scope,
		TokenType:             data.TokenType,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	f.store.Set(tok)

	f.logger.Info("user authorized",
		slog.String("open_id", openID),
		slog.Time("access_expires", tok.AccessTokenExpiresAt),
	)

	return tok, nil
}

// Refresh mints a new token pair from the stored refresh token. Absent
// record means no network call. An upstream failure is logged and reported
// as absent without deleting the existing record — eviction is keyed on
// refresh-token expiry only, never on a failed refresh attempt. Concurrent
// refreshes for the same openID share one upstream round-trip.
func (f *Flow) Refresh(ctx context.Context, cfg Config, openID string) (tokenstore.UserToken, bool) {
	type result struct {
		tok tokenstore.UserToken
		ok  bool
	}

	v, _, _ := f.refreshGroup.Do(openID, func() (any, error) {
		tok, ok := f.refreshOnce(ctx, cfg, openID)
		return result{tok: tok, ok: ok}, nil
	})

	res := v.(result)

	return res.tok, res.ok
}

func (f *Flow) refreshOnce(ctx context.Context, cfg Config, openID string) (tokenstore.UserToken, bool) {
	existing, ok := f.store.Get(openID)
	if !ok {
		return tokenstore.UserToken{}, false
	}

	api := f.apiClient(cfg)

	appToken, err := api.AppAccessToken(ctx, cfg.AppID, cfg.AppSecret)
	if err != nil {
		f.logger.Warn("refresh failed obtaining app credential",
			slog.String("open_id", openID),
			slog.String("error", err.Error()),
		)

		return tokenstore.UserToken{}, false
	}

	data, err := api.RefreshToken(ctx, appToken, existing.RefreshToken)
	if err != nil {
		f.logger.Warn("refresh rejected by upstream",
			slog.String("open_id", openID),
			slog.String("error", err.Error()),
		)

		return tokenstore.UserToken{}, false
	}

	now := f.now()
	scope := data.Scope
	if scope == "" {
		scope = existing.Scope
	}

	tok := tokenstore.UserToken{
		OpenID:                openID,
		AccessToken:           data.AccessToken,
		RefreshToken:          data.RefreshToken,
		AccessTokenExpiresAt:  now.Add(time.Duration(data.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(time.Duration(data.RefreshExpiresIn) * time.Second),
		Scope:                 scope,
		TokenType:             data.TokenType,
		CreatedAt:             existing.CreatedAt,
		UpdatedAt:             now,
	}

	f.store.Set(tok)

	f.logger.Info("token refreshed",
		slog.String("open_id", openID),
		slog.Time("access_expires", tok.AccessTokenExpiresAt),
	)

	return tok, true
}

// ValidAccessToken is the single read path for consumers: absent record
// means no token; a record inside the refresh window is refreshed first and
// the new access token returned (absent if the refresh failed); otherwise
// the current access token is returned unchanged.
func (f *Flow) ValidAccessToken(ctx context.Context, cfg Config, openID string) (string, bool) {
	tok, ok := f.store.Get(openID)
	if !ok {
		return "", false
	}

	if f.store.NeedsRefresh(openID) {
		refreshed, ok := f.Refresh(ctx, cfg, openID)
		if !ok {
			return "", false
		}

		return refreshed.AccessToken, true
	}

	return tok.AccessToken, true
}
