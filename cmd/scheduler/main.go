package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/database"
	"github.com/segyhp/layaway-engine/internal/logger"
	"github.com/segyhp/layaway-engine/internal/repository"
	"github.com/segyhp/layaway-engine/internal/scheduler"
	"github.com/segyhp/layaway-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.Info("Starting layaway scheduler...")

	db, err := database.Connect(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	summaryCache, redisCache, err := cache.FromConfig(cfg.Redis, cfg.RedisAddr())
	if err != nil {
		log.WithError(err).Warn("Invalid Redis configuration, summary cache disabled")
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	installmentService := service.NewInstallmentService(
		repository.NewPlanRepository(db),
		repository.NewCatalogRepository(db),
		summaryCache,
		cfg,
		log,
	)

	// Initialize cron scheduler
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.SchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := scheduler.NewJobs(installmentService, log).Register(c, cfg); err != nil {
		log.WithError(err).Fatal("Failed to schedule jobs")
	}

	// Start the scheduler
	c.Start()
	log.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
