package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dinehall/ordering/internal/backend"
	"github.com/dinehall/ordering/internal/cache"
	"github.com/dinehall/ordering/internal/cart"
	"github.com/dinehall/ordering/internal/cartstore"
	"github.com/dinehall/ordering/internal/checkout"
	"github.com/dinehall/ordering/internal/events"
	"github.com/dinehall/ordering/internal/httpapi"
)

type Config struct {
	HTTPPort        string
	BackendBaseURL  string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	KafkaBrokers    []string
	Postgres        checkout.Credentials
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "orderingdb"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:   []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		Postgres: checkout.Credentials{
			Host:              getEnv("PG_HOST", "localhost"),
			Port:              getEnvInt("PG_PORT", 5432),
			User:              getEnv("PG_USER", "ordering"),
			Password:          getEnv("PG_PASSWORD", "ordering"),
			DBName:            getEnv("PG_DBNAME", "ordering"),
			MigrationsDirPath: getEnv("PG_MIGRATIONS_DIR", "internal/checkout/migrations"),
		},
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	ctx := context.Background()

	// Durable cart storage
	mongoDB, err := cartstore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	store := cartstore.NewMongoStore(mongoDB)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Cart cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cartCache := cache.NewRedisCache(redisClient)

	cartService := cart.NewService(store, cartCache)

	// Restaurant backend
	api, err := backend.NewClient(cfg.BackendBaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to build backend client: %v", err)
	}

	// Submission journal
	journal, err := checkout.NewPostgresJournal(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer journal.Close()
	if err := journal.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	checkoutService := checkout.NewService(cartService, api, journal)

	// Outbox publisher
	publisher := events.NewPublisher(journal, cfg.KafkaBrokers...)
	defer publisher.Close()
	publisherCtx, cancelPublisher := context.WithCancel(ctx)
	defer cancelPublisher()
	go publisher.Run(publisherCtx)

	cartHandler := httpapi.NewCartHandler(cartService, cfg.RequestTimeout)
	checkoutHandler := httpapi.NewCheckoutHandler(checkoutService, cfg.RequestTimeout)
	orderHandler := httpapi.NewOrderHandler(api, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(httpapi.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddLine)
			r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{item_id}", cartHandler.RemoveLine)
		})
		r.Post("/checkout", checkoutHandler.PlaceOrder)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListMyOrders)
			r.Get("/{order_id}/items", orderHandler.ListOrderItems)
			r.Patch("/{order_id}/status", orderHandler.UpdateStatus)
		})
		r.Get("/menu", orderHandler.ListMenu)
		r.Get("/tables", orderHandler.ListTables)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Ordering gateway starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancelPublisher()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
