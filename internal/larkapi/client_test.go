package larkapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{"feishu", DomainFeishu, "https://open.feishu.cn"},
		{"lark", DomainLark, "https://open.larksuite.com"},
		{"empty defaults to feishu", "", "https://open.feishu.cn"},
		{"custom passthrough", "https://lark.example.com", "https://lark.example.com"},
		{"custom trailing slash trimmed", "https://lark.example.com/", "https://lark.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURL(tt.domain))
		})
	}
}

func TestAppAccessToken_TopLevelPayload(t *testing.T) {
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, appTokenPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Payload sits at the top level on this endpoint, not under data.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok", "app_access_token": "app-token", "expire": 7200,
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	tok, err := c.AppAccessToken(context.Background(), "cli_app", "secret")
	require.NoError(t, err)
	assert.Equal(t, "app-token", tok)
	assert.Equal(t, map[string]string{"app_id": "cli_app", "app_secret": "secret"}, gotBody)
}

func TestAppAccessToken_NonZeroCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// HTTP 200 with a non-zero envelope code is still a failure.
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 10003, "msg": "invalid app_secret"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	_, err := c.AppAccessToken(context.Background(), "cli_app", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 10003, apiErr.Code)
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestExchangeCode_SendsAppBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, exchangePath, r.URL.Path)
		require.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "authorization_code", body["grant_type"])
		require.Equal(t, "code-123", body["code"])

		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok", "data": map[string]any{
			"access_token":       "at",
			"refresh_token":      "rt",
			"token_type":         "Bearer",
			"expires_in":         7200,
			"refresh_expires_in": 2592000,
			"open_id":            "ou_alice",
		}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	data, err := c.ExchangeCode(context.Background(), "app-token", "code-123")
	require.NoError(t, err)
	assert.Equal(t, "at", data.AccessToken)
	assert.Equal(t, "rt", data.RefreshToken)
	assert.Equal(t, int64(7200), data.ExpiresIn)
	assert.Equal(t, "ou_alice", data.OpenID)
}

func TestRefreshToken_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, refreshPath, r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 20037, "msg": "refresh token expired"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	_, err := c.RefreshToken(context.Background(), "app-token", "rt-old")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "refresh_token", apiErr.Op)
	assert.Equal(t, 20037, apiErr.Code)
}

func TestTokenCall_MissingDataIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// code 0 without a data payload is malformed and must not succeed.
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	_, err := c.ExchangeCode(context.Background(), "app-token", "code-123")
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestDo_QueryAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/docx/v1/documents", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok", "data": map[string]any{"items": []any{}}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	resp, err := c.Get(context.Background(), "user-token", "/open-apis/docx/v1/documents", url.Values{"page_size": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, resp.Data)
}

func TestDo_EnvelopeCodePassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 99991663, "msg": "permission denied"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client(), discardLogger())

	// Per-resource callers own the envelope check on generic calls.
	resp, err := c.Post(context.Background(), "user-token", "/open-apis/im/v1/messages", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 99991663, resp.Code)
}

func TestBoundClient_CarriesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok"})
	}))
	t.Cleanup(srv.Close)

	bound := NewClient(srv.URL, srv.Client(), discardLogger()).WithBearer("user-token")

	resp, err := bound.Get(context.Background(), "/open-apis/authen/v1/user_info", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
}
