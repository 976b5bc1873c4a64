package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/config"
	"coinzy/internal/database"
	"coinzy/internal/handlers"
	"coinzy/internal/progress"
	"coinzy/internal/realtime"
	"coinzy/internal/repository"
	"coinzy/internal/scheduler"
	"coinzy/internal/security"
	"coinzy/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	handlers.SetCurrentStep(handlers.StepConfig)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}
	handlers.CompleteStep(handlers.StepConfig)

	// Initialize database with config (supports sqlite, postgres, mysql)
	handlers.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)
	handlers.CompleteStep(handlers.StepDatabase)

	// Run migrations
	handlers.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
	handlers.CompleteStep(handlers.StepMigrations)

	handlers.SetCurrentStep(handlers.StepCatalog)
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d questions, %d missions, %d achievements",
		len(cat.Questions), len(cat.Missions), len(cat.Achievements))
	handlers.CompleteStep(handlers.StepCatalog)

	// Initialize repositories
	handlers.SetCurrentStep(handlers.StepServices)
	progressRepo := repository.NewProgressRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	hub := realtime.NewHub()
	defer hub.Close()

	progressService := service.NewProgressService(progressRepo, cat, progress.WithLocation(loc)).
		WithNotifications(contactRepo, emailService).
		WithPublisher(hub).
		WithDebug(cfg.Debug)

	tokens, err := security.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize tokens: %v", err)
	}
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()
	handlers.CompleteStep(handlers.StepServices)

	handlers.SetCurrentStep(handlers.StepScheduler)
	sched := scheduler.NewScheduler(ctx, progressService, loc)
	if err := sched.RegisterAll(cfg.DailyResetCron, cfg.InterestCron); err != nil {
		log.Fatalf("Failed to register scheduled jobs: %v", err)
	}
	sched.Start()
	defer sched.Stop()
	handlers.CompleteStep(handlers.StepScheduler)

	// Initialize handlers
	middleware := handlers.NewMiddleware(tokens, limiter, cfg.Debug)
	progressHandler := handlers.NewProgressHandler(progressService, hub, cfg.Debug)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	progressHandler.Register(mux, middleware)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()
	handlers.MarkReady()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
		os.Exit(1)
	}
}
