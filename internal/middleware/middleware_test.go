package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/identity"
	"github.com/segyhp/layaway-engine/internal/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRouter(tokens *identity.Tokens, capability identity.Capability) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger(logger.Discard()))

	api := router.PathPrefix("/api").Subrouter()
	api.Use(Authenticate(tokens, logger.Discard()))

	guarded := api.PathPrefix("/plans").Subrouter()
	guarded.Use(RequireCapability(identity.NewRoleAuthorizer(), capability))
	guarded.HandleFunc("/{id}", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := identity.ActorFromContext(r.Context())
		w.Header().Set("X-Actor", actor.ID)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	return router
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	tokens := identity.NewTokens(testSecret, "layaway-engine")
	admin, err := tokens.Sign(domain.Actor{ID: "u-admin", Role: identity.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	cashier, err := tokens.Sign(domain.Actor{ID: "u-cashier", Role: identity.RoleCashier}, time.Hour)
	require.NoError(t, err)
	expired, err := tokens.Sign(domain.Actor{ID: "u-admin", Role: identity.RoleAdmin}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedActor  string
	}{
		{name: "no header", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + admin, expectedStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", expectedStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized},
		{name: "cashier cannot purge", header: "Bearer " + cashier, expectedStatus: http.StatusForbidden},
		{name: "admin can purge", header: "Bearer " + admin, expectedStatus: http.StatusNoContent, expectedActor: "u-admin"},
	}

	router := newRouter(tokens, identity.CapPlansPurge)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/plans/abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedActor, rr.Header().Get("X-Actor"))
		})
	}
}

func TestRequireCapability_NoActor(t *testing.T) {
	handler := RequireCapability(identity.NewRoleAuthorizer(), identity.CapPlansRead)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without an actor")
		}),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plans", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequestLogger_DefaultsStatus(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RequestLogger(logger.Discard()))
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}
