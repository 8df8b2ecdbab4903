package larkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const userAgent = "openlark-userauth/0.1"

// Upstream auth endpoints. Fixed paths on every domain.
const (
	appTokenPath = "/open-apis/auth/v3/app_access_token/internal"
	exchangePath = "/open-apis/authen/v1/oidc/access_token"
	refreshPath  = "/open-apis/authen/v1/oidc/refresh_access_token"
)

// Client issues requests against one Feishu/Lark API base URL.
// It handles envelope decoding; retry policy belongs to the injected
// *http.Client (per scope, the transport's timeout policy governs).
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given domain selector (see BaseURL).
func NewClient(domain string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    BaseURL(domain),
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the resolved API base URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is the generic {code, msg, data} envelope. Data is left raw so
// per-resource callers can decode into their own types.
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TokenData is the payload of both the code-exchange and refresh endpoints.
type TokenData struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope,omitempty"`
	OpenID           string `json:"open_id,omitempty"`
	UnionID          string `json:"union_id,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	TenantKey        string `json:"tenant_key,omitempty"`
}

// AppAccessToken obtains an application-level credential for the tenant.
// The app token endpoint is the one envelope that carries its payload at the
// top level rather than under data.
func (c *Client) AppAccessToken(ctx context.Context, appID, appSecret string) (string, error) {
	body := map[string]string{
		"app_id":     appID,
		"app_secret": appSecret,
	}

	raw, err := c.postJSON(ctx, appTokenPath, "", body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Code           int    `json:"code"`
		Msg            string `json:"msg"`
		AppAccessToken string `json:"app_access_token"`
		Expire         int64  `json:"expire"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("larkapi: decoding app token response: %w", err)
	}

	if parsed.Code != 0 || parsed.AppAccessToken == "" {
		return "", &APIError{Op: "app_access_token", Code: parsed.Code, Msg: parsed.Msg}
	}

	return parsed.AppAccessToken, nil
}

// ExchangeCode trades a one-time authorization code for a user token pair,
// authenticated with the app-level bearer credential.
func (c *Client) ExchangeCode(ctx context.Context, appToken, code string) (*TokenData, error) {
	body := map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	}

	return c.tokenCall(ctx, "exchange_code", exchangePath, appToken, body)
}

// RefreshToken mints a new user token pair from a refresh token,
// authenticated with the app-level bearer credential.
func (c *Client) RefreshToken(ctx context.Context, appToken, refreshToken string) (*TokenData, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	return c.tokenCall(ctx, "refresh_token", refreshPath, appToken, body)
}

// tokenCall runs one of the two user-token endpoints and decodes the shared
// TokenData payload.
func (c *Client) tokenCall(ctx context.Context, op, path, appToken string, body any) (*TokenData, error) {
	raw, err := c.postJSON(ctx, path, appToken, body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Code int        `json:"code"`
		Msg  string     `json:"msg"`
		Data *TokenData `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("larkapi: decoding %s response: %w", op, err)
	}

	if parsed.Code != 0 || parsed.Data == nil {
		return nil, &APIError{Op: op, Code: parsed.Code, Msg: parsed.Msg}
	}

	return parsed.Data, nil
}

// Do issues an authenticated request and decodes the response envelope.
// The path is appended to the base URL; query may be nil; a non-nil body is
// JSON-encoded. Envelope codes are returned to the caller undecoded into an
// error because per-resource wrappers own that check.
func (c *Client) Do(ctx context.Context, method, path, bearer string, query url.Values, body any) (*Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("larkapi: encoding request body: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("larkapi: creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("larkapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("larkapi: reading response: %w", err)
	}

	var env Response
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("larkapi: decoding %s %s response: %w", method, path, err)
	}

	c.logger.Debug("api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("code", env.Code),
	)

	return &env, nil
}

// Get issues an authenticated GET against the given path.
func (c *Client) Get(ctx context.Context, bearer, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, bearer, query, nil)
}

// Post issues an authenticated POST with a JSON body against the given path.
func (c *Client) Post(ctx context.Context, bearer, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, bearer, nil, body)
}

// postJSON posts a JSON body and returns the raw response bytes. The auth
// endpoints decode their own envelopes because their shapes differ.
func (c *Client) postJSON(ctx context.Context, path, bearer string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("larkapi: encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("larkapi: creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("larkapi: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("larkapi: reading response: %w", err)
	}

	c.logger.Debug("auth endpoint call",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return raw, nil
}
