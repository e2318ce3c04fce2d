package handler

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/identity"
	"github.com/segyhp/layaway-engine/internal/middleware"
)

type RouterConfig struct {
	Installments   *InstallmentHandler
	Health         *HealthHandler
	Tokens         middleware.TokenParser
	Authorizer     identity.Authorizer
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// NewRouter wires probes and metrics at the root and the authenticated API
// under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(cfg.Logger))

	router.HandleFunc("/health", cfg.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", cfg.Health.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Authenticate(cfg.Tokens, cfg.Logger))
	cfg.Installments.RegisterRoutes(api, cfg.Authorizer)

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(router)
}
