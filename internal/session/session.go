// Package session derives an end-user identity and authorization status
// from an opaque session key. Only direct-message and user-scoped sessions
// carry a single owning user; group sessions resolve to nobody and
// authorization is not applicable there.
package session

import (
	"regexp"

	"github.com/openlark/userauth/internal/oauth"
	"github.com/openlark/userauth/internal/tokenstore"
)

// Session keys embed the identity after a dm or user marker, e.g.
// "agent:main:feishu:dm:ou_abc123". The marker match is case-insensitive;
// the identifier body is not.
var (
	dmPattern   = regexp.MustCompile(`(?i:feishu:dm:)(ou_[a-z0-9]+)`)
	userPattern = regexp.MustCompile(`(?i:feishu:user:)(ou_[a-z0-9]+)`)
	dmMarker    = regexp.MustCompile(`(?i)feishu:dm:`)
)

// ExtractOpenID returns the user identity embedded in a session key, if
// any. DM keys are checked first, then user-scoped keys.
func ExtractOpenID(sessionKey string) (string, bool) {
	if m := dmPattern.FindStringSubmatch(sessionKey); m != nil {
		return m[1], true
	}

	if m := userPattern.FindStringSubmatch(sessionKey); m != nil {
		return m[1], true
	}

	return "", false
}

// IsDirectMessage reports whether the session key is a DM session.
func IsDirectMessage(sessionKey string) bool {
	return dmMarker.MatchString(sessionKey)
}

// State classifies the outcome of an authorization check.
type State int

const (
	// NotApplicable means the session has no single owning user, so
	// per-user authorization is meaningless. Not an error.
	NotApplicable State = iota

	// Authorized means the user holds a valid (or refreshable) token.
	Authorized

	// NeedsAuth means the user must authorize first; Status.Card carries a
	// ready-to-send prompt.
	NeedsAuth
)

// Status is the result of CheckAuthorization.
type Status struct {
	State  State
	OpenID string
	Card   *oauth.Card
}

// Resolver answers authorization questions by reading through the token
// store.
type Resolver struct {
	store *tokenstore.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *tokenstore.Store) *Resolver {
	return &Resolver{store: store}
}

// CheckAuthorization resolves the session key to an identity and reports
// whether that user may call the API as themselves. When authorization is
// missing the returned status carries an authorization card for the
// session's user, built from cfg.
func (r *Resolver) CheckAuthorization(sessionKey string, cfg oauth.Config, locale string) Status {
	openID, ok := ExtractOpenID(sessionKey)
	if !ok {
		return Status{State: NotApplicable}
	}

	if r.store.Has(openID) {
		return Status{State: Authorized, OpenID: openID}
	}

	card := oauth.AuthCard(cfg, openID, locale)

	return Status{State: NeedsAuth, OpenID: openID, Card: &card}
}

// FirstAuthorizedUser returns the first stored user (by openID order) who
// still holds a valid token. Fallback for flows with no session context.
func (r *Resolver) FirstAuthorizedUser() (string, bool) {
	for _, tok := range r.store.List() {
		if r.store.Has(tok.OpenID) {
			return tok.OpenID, true
		}
	}

	return "", false
}
