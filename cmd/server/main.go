package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/database"
	"github.com/segyhp/layaway-engine/internal/handler"
	"github.com/segyhp/layaway-engine/internal/identity"
	"github.com/segyhp/layaway-engine/internal/logger"
	"github.com/segyhp/layaway-engine/internal/repository"
	"github.com/segyhp/layaway-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		logrus.Fatalf("Invalid auth configuration: %v", err)
	}

	log := logger.New(cfg.Logging)

	// Initialize database
	db, err := database.Connect(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Initialize summary cache
	summaryCache, redisCache, err := cache.FromConfig(cfg.Redis, cfg.RedisAddr())
	if err != nil {
		log.WithError(err).Warn("Invalid Redis configuration, summary cache disabled")
	}
	var cachePinger handler.CachePinger
	if redisCache != nil {
		defer redisCache.Close()
		cachePinger = redisCache

		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis unreachable at startup")
		}
		cancel()
	}

	// Initialize repositories and services
	planRepo := repository.NewPlanRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	installmentService := service.NewInstallmentService(planRepo, catalogRepo, summaryCache, cfg, log)
	reportService := service.NewReportService(planRepo, summaryCache, cfg, log)

	router := handler.NewRouter(handler.RouterConfig{
		Installments:   handler.NewInstallmentHandler(installmentService, reportService, log),
		Health:         handler.NewHealthHandler(db, cachePinger, cfg.GetHealthTimeout()),
		Tokens:         identity.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Authorizer:     identity.NewRoleAuthorizer(),
		AllowedOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
		Logger:         log,
	})

	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
