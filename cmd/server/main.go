package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/omega-fast-coder/panoptikon/internal/cart"
	"github.com/omega-fast-coder/panoptikon/internal/catalog"
	"github.com/omega-fast-coder/panoptikon/internal/checkout"
	"github.com/omega-fast-coder/panoptikon/internal/events"
	h "github.com/omega-fast-coder/panoptikon/internal/http"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	CatalogDBPath   string
	MigrationsPath  string
	KafkaBrokers    []string
	ProcessingDelay time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		CatalogDBPath:   getEnv("CATALOG_DB_PATH", "./panoptikon.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/catalog/migrations"),
		ProcessingDelay: 2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if delay := os.Getenv("PROCESSING_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			log.Fatalf("invalid PROCESSING_DELAY %q: %v", delay, err)
		}
		cfg.ProcessingDelay = d
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	// Catalog database
	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	catalogService := catalog.NewService(repo)

	// Cart persistence. Redis being down is not fatal: carts stay
	// in-memory and just lose restart durability.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARNING: redis unreachable at %s: %v", cfg.RedisAddr, err)
	}
	cancel()

	cartStore := cart.NewStore(cart.NewRedisPersister(redisClient))
	defer cartStore.Close()

	// Order events
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		log.Println("KAFKA_BROKERS not set, order events will be dropped")
		publisher = events.NopPublisher{}
	}

	flow := checkout.NewFlow(cartStore, publisher, cfg.ProcessingDelay)
	defer flow.Close()

	router := h.NewRouter(
		h.NewProductHandler(catalogService),
		h.NewCartHandler(cartStore, catalogService),
		h.NewCheckoutHandler(flow),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server stopped")
}
