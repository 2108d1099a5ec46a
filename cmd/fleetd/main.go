package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"uav-fleet-backend/config"
	"uav-fleet-backend/internal/api"
	"uav-fleet-backend/internal/db"
	"uav-fleet-backend/internal/docking"
	"uav-fleet-backend/internal/geofence"
	"uav-fleet-backend/internal/notification"
	"uav-fleet-backend/internal/retention"
	"uav-fleet-backend/internal/store"
	"uav-fleet-backend/internal/tracker"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "fleetd ", log.LstdFlags)

	// Load .env overlay, then configuration
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Geofence evaluator with the active fence set
	evaluator := geofence.NewEvaluator(appStore)
	if err := evaluator.Reload(ctx); err != nil {
		logger.Fatalf("failed to load geofences: %v", err)
	}
	logger.Printf("geofence evaluator loaded %d active fences", evaluator.FenceCount())

	// Docking coordinator with slot membership rebuilt from active sessions
	coordinator := docking.NewCoordinator(appStore, cfg.Hibernate.PodCapacity)
	if err := coordinator.LoadStations(ctx); err != nil {
		logger.Fatalf("failed to load stations: %v", err)
	}

	// Violation alert worker pool
	alertPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	alertPool.Start(ctx)

	trk := tracker.New(appStore, evaluator, alertPool)

	// History retention runs in the background
	retentionSvc := retention.NewService(cfg, appStore)
	go retentionSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(cfg, appStore, coordinator, trk, evaluator, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
