package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/loanserve/backend/internal/config"
	"github.com/loanserve/backend/internal/handler"
	"github.com/loanserve/backend/internal/mailer"
	"github.com/loanserve/backend/internal/repository"
	"github.com/loanserve/backend/internal/scheduler"
	"github.com/loanserve/backend/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Setup structured logger
	var logHandler slog.Handler
	if cfg.IsProduction() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Initialize repositories
	ruleRepo := repository.NewRuleRepository(db)
	batchStore := repository.NewBatchStore(db)

	// Initialize services
	ruleService := service.NewRuleService(ruleRepo)

	sender := mailer.NewResendSender(cfg.ResendAPIKey, cfg.FromEmail)
	notifier := mailer.NewReminderMailer(sender)
	dispatcher := service.NewBatchDispatcher(
		&batchStoreAdapter{store: batchStore},
		notifier,
		cfg.ReminderBatchSize,
		cfg.SendTimeout,
	)

	// Initialize handlers
	ruleHandler := handler.NewNotificationRuleHandler(ruleService)
	batchHandler := handler.NewBatchHandler(dispatcher)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	// CORS - allow frontend origin from env or default
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Cron-Secret"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Batch trigger for external cron services, guarded by shared secret
	r.Group(func(r chi.Router) {
		r.Use(handler.CronAuth(cfg.CronSecret))
		r.Post("/api/reminders/run", batchHandler.Run)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(handler.AuthMiddleware(cfg.JWTSecret))

		// Notification rules
		r.Post("/api/notification-rules", ruleHandler.Create)
		r.Put("/api/notification-rules/{id}", ruleHandler.Update)
		r.Delete("/api/notification-rules/{id}", ruleHandler.Delete)
		r.Get("/api/notification-rules/user/{userId}", ruleHandler.ListByUser)
		r.Get("/api/notification-rules/settings/{userId}", ruleHandler.GetSettings)
		r.Put("/api/notification-rules/settings", ruleHandler.UpsertSettings)
	})

	// Initialize and start the in-process reminder scheduler
	var reminderScheduler *scheduler.Scheduler
	if cfg.ReminderEnabled {
		schedCfg := scheduler.Config{
			Schedule: cfg.ReminderSchedule,
			Timeout:  cfg.ReminderTimeout,
			Enabled:  cfg.ReminderEnabled,
		}
		reminderScheduler = scheduler.New(schedCfg, dispatcher, logger)
		if err := reminderScheduler.Start(); err != nil {
			logger.Error("Failed to start reminder scheduler", slog.String("error", err.Error()))
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Create server
	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		// Stop scheduler first so no batch run is cut off mid-transaction
		if reminderScheduler != nil {
			ctx := reminderScheduler.Stop()
			<-ctx.Done()
			logger.Info("Reminder scheduler stopped")
		}

		// Shutdown HTTP server
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Server failed: %v", err)
	}
}

// batchStoreAdapter adapts repository.BatchStore to service.BatchStoreInterface.
type batchStoreAdapter struct {
	store *repository.BatchStore
}

func (a *batchStoreAdapter) Begin(ctx context.Context) (service.BatchUnitOfWork, error) {
	tx, err := a.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
