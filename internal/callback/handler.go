// Package callback receives the OAuth redirect after a user authorizes,
// exchanges the code for a token pair, and renders the browser-facing
// result. The state query parameter round-trips the user's openID so the
// exchange can fall back to it when the upstream omits the identity.
package callback

import (
	"html"
	"log/slog"
	"net/http"

	"github.com/openlark/userauth/internal/oauth"
)

// Result reports one callback's outcome to the optional hook, e.g. so the
// bot can confirm in the originating chat.
type Result struct {
	Success bool
	OpenID  string
	Err     error
}

// Handler serves the OAuth redirect endpoint for one tenant.
type Handler struct {
	flow     *oauth.Flow
	cfg      oauth.Config
	logger   *slog.Logger
	onResult func(Result)
}

// NewHandler creates the callback handler. onResult may be nil.
func NewHandler(flow *oauth.Flow, cfg oauth.Config, logger *slog.Logger, onResult func(Result)) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		flow:     flow,
		cfg:      cfg,
		logger:   logger,
		onResult: onResult,
	}
}

// ServeHTTP consumes code and state from the redirect GET. Exactly two
// user-visible outcomes: a success acknowledgment, or a failure page with
// an escaped diagnostic — upstream error text is never rendered raw.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		h.fail(w, http.StatusBadRequest, "missing authorization code", nil)
		return
	}

	tok, err := h.flow.ExchangeCode(r.Context(), h.cfg, code, state)
	if err != nil {
		h.logger.Warn("oauth callback exchange failed",
			slog.String("error", err.Error()),
		)

		h.fail(w, http.StatusInternalServerError, err.Error(), err)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(successPage))

	if h.onResult != nil {
		h.onResult(Result{Success: true, OpenID: tok.OpenID})
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(errorPage(html.EscapeString(msg))))

	if h.onResult != nil {
		h.onResult(Result{Success: false, Err: err})
	}
}
