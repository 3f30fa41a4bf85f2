// Package gate decides, per request, whether the current identity may reach
// a protected handler. The profile is re-read on every request so a freshly
// rejected account loses access immediately; nothing here is cached.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ran-group/shiftdesk/internal/auth"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/httpapi/respond"
)

// ProfileSource is the read side the gate needs; *profiles.Repo satisfies it.
type ProfileSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*profiles.Profile, error)
}

type Gate struct {
	tokens   *auth.TokenManager
	profiles ProfileSource
	log      *slog.Logger
}

func New(tokens *auth.TokenManager, source ProfileSource, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, profiles: source, log: log}
}

type options struct {
	minRole      profiles.Role
	allowPending bool
}

type Option func(*options)

// MinRole rejects profiles strictly below min in the role ordering.
func MinRole(min profiles.Role) Option {
	return func(o *options) { o.minRole = min }
}

// AllowPending lets pending accounts through (the status/me endpoint needs
// this: it is what tells the user they are still pending).
func AllowPending() Option {
	return func(o *options) { o.allowPending = true }
}

type identityKey struct{}

// Identity is what a protected handler gets from the request context.
type Identity struct {
	UserID  uuid.UUID
	Profile *profiles.Profile
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithIdentity attaches an identity to the context the way Protect does.
// Handler tests use it to act as an already-gated caller.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Protect wraps next with the access decision chain: token -> fresh profile
// -> status -> role. On a profile read error the account is treated as
// pending (fail closed) rather than letting the request through.
func (g *Gate) Protect(next http.Handler, opts ...Option) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := g.authenticate(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}

		p, err := g.profiles.GetByUserID(r.Context(), userID)
		if err != nil {
			g.log.Error("profile fetch failed, failing closed", "user_id", userID, "err", err)
			respond.Error(w, http.StatusForbidden, "status_pending", "account is pending review")
			return
		}

		switch p.Status {
		case profiles.StatusApproved:
		case profiles.StatusRejected:
			respond.Error(w, http.StatusForbidden, "status_rejected", "account was rejected: "+p.RejectedReason)
			return
		default:
			// pending, or anything unrecognized, is treated as pending
			if !o.allowPending {
				respond.Error(w, http.StatusForbidden, "status_pending", "account is pending review")
				return
			}
		}

		if o.minRole != "" && !p.Role.AtLeast(o.minRole) {
			respond.Error(w, http.StatusForbidden, "role_insufficient", "your role does not allow this view")
			return
		}

		ctx := WithIdentity(r.Context(), Identity{UserID: userID, Profile: p})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) authenticate(r *http.Request) (uuid.UUID, bool) {
	raw := bearerToken(r.Header.Get("Authorization"))
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := g.tokens.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
