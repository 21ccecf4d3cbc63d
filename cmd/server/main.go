package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepmate/interview/internal/analysis"
	"prepmate/interview/internal/config"
	"prepmate/interview/internal/handlers"
	"prepmate/interview/internal/interview"
	"prepmate/interview/internal/jobs"
	"prepmate/interview/internal/llm"
	_ "prepmate/interview/internal/llm/gemini"
	"prepmate/interview/internal/metrics"
	"prepmate/interview/internal/planner"
	"prepmate/interview/internal/progress"
	"prepmate/interview/internal/prompts"
	"prepmate/interview/internal/routers"
	"prepmate/interview/internal/store"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler, sessionHandler *handlers.SessionHandler, profileHandler *handlers.ProfileHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.MetricsRoutes(router)
	routers.InterviewRoutes(router, interviewHandler)
	routers.SessionRoutes(router, sessionHandler)
	routers.ProfileRoutes(router, profileHandler)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// initDatabase opens the configured database. Postgres in production,
// sqlite for local development.
func initDatabase() (*gorm.DB, error) {
	switch driver := getEnv("DB_DRIVER", "postgres"); driver {
	case "postgres":
		host := getEnv("POSTGRES_HOST", "localhost")
		user := getEnv("POSTGRES_USER", "postgres")
		password := getEnv("POSTGRES_PASSWORD", "postgres")
		dbname := getEnv("POSTGRES_DB", "postgres")
		port := getEnv("POSTGRES_PORT", "5432")
		sslmode := getEnv("POSTGRES_SSLMODE", "disable")

		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			host, user, password, dbname, port, sslmode)
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(getEnv("SQLITE_PATH", "interview.db")), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", driver)
	}
}

func main() {
	// .env is optional; environment variables win in containers
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded", zap.String("provider", cfg.Provider))

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	provider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize LLM provider", zap.Error(err))
	}

	db, err := initDatabase()
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	st, err := store.NewStore(db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	planBuilder := planner.NewPlanner(provider, promptManager, st, logger)

	ability := analysis.NewAbilityService(st, provider, promptManager, cfg.ProfileCooldown, cfg.ProfileRecentWindow, logger)
	analyzer := analysis.NewAnalyzer(st, provider, promptManager, ability, logger)
	analyzer.Start()

	estimator := progress.NewHeuristic(progress.Config{
		RunLength:     cfg.EstimatorRunLength,
		ContentPrefix: cfg.EstimatorContentPrefix,
		MinTopicLen:   cfg.EstimatorMinTopicLen,
		LightMatchLen: cfg.EstimatorLightMatchLen,
		FollowUpFloor: cfg.EstimatorFollowUpFloor,
		ForcedStops:   cfg.EstimatorForcedStops,
	})

	controller := interview.NewController(
		st, provider, promptManager,
		estimator, planBuilder, analyzer,
		interview.Caps{MaxFollowUps: cfg.MaxFollowUps, MaxClarifies: cfg.MaxClarifies},
		logger,
	)

	refresher := jobs.NewProfileRefresherJob(st, ability, &jobs.RefresherConfig{
		Schedule: cfg.ProfileRefreshCron,
		Enabled:  cfg.ProfileRefreshEnable,
	}, logger)
	if err := refresher.Start(); err != nil {
		logger.Error("Failed to start profile refresher job", zap.Error(err))
	}

	interviewHandler := handlers.NewInterviewHandler(controller, st, logger)
	sessionHandler := handlers.NewSessionHandler(st, logger)
	profileHandler := handlers.NewProfileHandler(st, ability, logger)
	healthHandler := handlers.NewHealthHandler(provider, promptManager, st)

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	router.Use(metrics.Middleware())

	registerRoutes(router, interviewHandler, sessionHandler, profileHandler, healthHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port

	// no WriteTimeout: interview turns stream over SSE
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	refresher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// drain background work before exit
	analyzer.Stop()
	planBuilder.Wait()

	logger.Info("Interview service exited")
}
