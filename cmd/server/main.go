package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"ridehail/internal/api"
	"ridehail/internal/api/handlers"
	"ridehail/internal/auth"
	"ridehail/internal/config"
	"ridehail/internal/events"
	"ridehail/internal/events/rabbitmq"
	"ridehail/internal/events/ws"
	"ridehail/internal/lifecycle"
	"ridehail/internal/repository"
	"ridehail/internal/repository/memory"
	"ridehail/internal/repository/postgres"
	"ridehail/internal/repository/sqlite"
	"ridehail/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close storage: %v", err)
		}
	}()

	// Initialize event delivery
	hub := ws.NewHub()
	publishers := events.Fanout{events.NewLogPublisher(), hub}
	if cfg.Messaging.AMQPURL != "" {
		conn, err := rabbitmq.Dial(ctx, cfg.Messaging.AMQPURL, cfg.Messaging.ConnectAttempts, cfg.Messaging.ConnectBackoff)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		publisher, err := rabbitmq.NewPublisher(conn.Channel, cfg.Messaging.Exchange)
		if err != nil {
			log.Fatalf("Failed to set up publisher: %v", err)
		}
		publishers = append(publishers, publisher)

		consumer, err := rabbitmq.NewConsumer(conn.Channel, cfg.Messaging.Exchange, cfg.Messaging.Queue,
			[]string{string(events.TypeRideCreated)}, rabbitmq.LogRideCreated)
		if err != nil {
			log.Fatalf("Failed to set up consumer: %v", err)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Consumer stopped: %v", err)
			}
		}()
	}

	// Initialize services
	dispatcher := lifecycle.NewDispatcher(store.Rides, store.Riders, store.Drivers)
	rideService := services.NewRideService(store, dispatcher, publishers)

	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to set up tokens: %v", err)
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		log.Printf("Using the built-in JWT secret; set RIDEHAIL_JWT_SECRET outside local development")
	}

	// Initialize handlers
	var authHandler *handlers.AuthHandler
	if cfg.Auth.AllowTokenIssue {
		log.Printf("POST /auth/token is enabled; do not use this in production")
		authHandler = handlers.NewAuthHandler(tokens, cfg.Auth.TokenTTL)
	}
	router := api.NewRouter(
		handlers.NewRideHandler(rideService, hub),
		handlers.NewDriverHandler(rideService),
		handlers.NewAdminHandler(rideService),
		authHandler,
		tokens,
	)

	// Create Gin engine
	engine := gin.Default()
	router.Setup(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting ride-hailing server on %s (storage=%s)", cfg.Server.Port, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig) (*repository.Store, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StoragePostgres:
		return postgres.Open(ctx, cfg.PostgresDSN, postgres.PoolConfig{MaxConns: cfg.MaxConns})
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
