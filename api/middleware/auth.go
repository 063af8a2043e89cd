package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/communityhub/marketplace-backend/api/responses"
	"github.com/communityhub/marketplace-backend/internal/policy"
	pkgAuth "github.com/communityhub/marketplace-backend/pkg/auth"
	"github.com/communityhub/marketplace-backend/pkg/auth/session"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

const testingHeader = "X-Testing"

// TestActorID identifies the synthetic master used by the local test bypass.
var TestActorID = uuid.MustParse("00000000-0000-0000-0000-00000000face")

// TestBypass gates the loopback X-Testing shortcut.
type TestBypass struct {
	enabled bool
}

// NewTestBypass enables the bypass only for dev environments that opt in.
func NewTestBypass(app config.AppConfig, flags config.FeatureFlagsConfig) TestBypass {
	return TestBypass{enabled: strings.EqualFold(app.Env, "dev") && flags.AllowTestBypass}
}

func (b TestBypass) applies(r *http.Request) bool {
	if !b.enabled || !strings.EqualFold(strings.TrimSpace(r.Header.Get(testingHeader)), "true") {
		return false
	}
	// RemoteAddr only; forwarding headers are caller controlled.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ActorResolver reloads the caller from the user store.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (policy.Actor, error)
}

// Auth validates a bearer token and seeds the request context with the actor.
// With a resolver, role and community come from the user row rather than the
// token claims, so account changes apply before the token is refreshed.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, actors ActorResolver, bypass TestBypass, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass.applies(r) {
				actor := policy.Actor{UserID: TestActorID, Role: enums.UserRoleMaster}
				ctx := WithActor(r.Context(), actor)
				if logg != nil {
					ctx = logg.WithField(logg.WithActor(ctx, actor.UserID, string(actor.Role), nil), "test_bypass", true)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			actor := policy.Actor{UserID: claims.UserID, Role: claims.Role, CommunityID: claims.CommunityID}
			if actors != nil {
				actor, err = actors.ResolveActor(r.Context(), claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID, string(actor.Role), actor.CommunityID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
