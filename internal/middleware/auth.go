package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/identity"
	"github.com/segyhp/layaway-engine/pkg/response"
)

// TokenParser turns a bearer token into the actor it was issued to.
type TokenParser interface {
	Parse(token string) (domain.Actor, error)
}

// Authenticate requires a valid bearer token and stores its actor in the
// request context.
func Authenticate(tokens TokenParser, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authentication required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			actor, err := tokens.Parse(parts[1])
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
		})
	}
}

// RequireCapability rejects requests whose actor lacks capability.
func RequireCapability(authz identity.Authorizer, capability identity.Capability) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := identity.ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Authentication required")
				return
			}
			if !authz.Can(actor, capability) {
				response.Forbidden(w, "Missing capability "+string(capability))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
