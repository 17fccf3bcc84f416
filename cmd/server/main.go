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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pasticeri/api/internal/config"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/events"
	"github.com/pasticeri/api/internal/mail"
	"github.com/pasticeri/api/internal/router"
	"github.com/pasticeri/api/internal/service"
	"github.com/pasticeri/api/internal/storage"
	"github.com/pasticeri/api/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	files, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		log.Fatalf("Unable to initialise storage: %v", err)
	}

	renderer, err := mail.NewRenderer(cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Unable to load mail templates: %v", err)
	}
	sender, err := mail.NewSender(cfg.SMTP)
	if err != nil {
		log.Fatalf("Unable to configure mail: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	publisher := events.Multi{hub}
	if cfg.AMQPURL != "" {
		broker, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Printf("WARN: broker events disabled: %v", err)
		} else {
			defer broker.Close()
			publisher = append(publisher, broker)
			log.Printf("Publishing order events to exchange %s", events.OrdersExchange)
		}
	}

	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, files, publisher, service.OrderServiceConfig{
		AdminEmail: cfg.AdminEmail,
		Location:   cfg.Location,
	})

	sweeper := service.NewSweeper(orders, cfg.SweepInterval)
	sweeper.Start(ctx)

	dispatcher := service.NewDispatcher(queries, renderer, sender, service.DispatcherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	})
	dispatcher.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, queries, pool, hub, orders, files),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: http shutdown: %v", err)
	}

	sweeper.Stop()
	dispatcher.Stop()
	log.Println("Server stopped")
}

func runMigrations(source, databaseURL string) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		log.Printf("Database schema at version %d (dirty=%v)", version, dirty)
	}
	return nil
}
