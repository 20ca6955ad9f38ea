package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/inboxly/inbox-intel/internal/actionable"
	"github.com/inboxly/inbox-intel/internal/agent"
	"github.com/inboxly/inbox-intel/internal/api"
	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/dedup"
	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/extraction"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/postmark"
	"github.com/inboxly/inbox-intel/internal/ratelimit"
	"github.com/inboxly/inbox-intel/internal/storage"
	"github.com/inboxly/inbox-intel/internal/user"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Inbox Intel server starting (cmd/server/main.go)")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	pingCancel()
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the dedup filter and the rate limiter; without it
	// both fall back to safe in-process behavior.
	var redisClient *redis.Client
	var dedupFilter email.DedupFilter
	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		rctx, rcancel := context.WithTimeout(ctx, 3*time.Second)
		err = redisClient.Ping(rctx).Err()
		rcancel()
		if err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — using in-memory rate limiting", cfg.Redis.URL, err)
			redisClient.Close()
			redisClient = nil
		} else {
			dedupFilter = dedup.New(redisClient, 24*time.Hour)
			limiter = ratelimit.NewRedis(redisClient)
			defer redisClient.Close()
		}
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}

	keys, err := user.NewKeyIssuer(cfg.Auth.APIKeySecret)
	if err != nil {
		log.Fatalf("Failed to initialize API key issuer: %v", err)
	}

	sender := postmark.NewClient(cfg.Postmark)
	if !sender.Enabled() {
		log.Println("Postmark outbound disabled (no server token); welcome emails will not be sent")
	}

	userStore := user.NewStore(db)
	resolver := user.NewResolver(userStore, keys, sender)

	emailStore := email.NewStore(db)
	ingestor := email.NewIngestor(emailStore, blobs, resolver, dedupFilter)

	actionableStore := actionable.NewStore(db)

	// Extraction runs only when Bedrock is configured; the webhook
	// path works either way, emails just stay pending.
	var dispatcher *extraction.Dispatcher
	if cfg.Agents.Enabled {
		invoker, err := agent.NewBedrockInvoker(ctx, cfg.Agents)
		if err != nil {
			log.Fatalf("Failed to initialize Bedrock: %v", err)
		}
		pipeline := extraction.NewPipeline(emailStore, actionableStore, invoker)
		dispatcher = extraction.NewDispatcher(pipeline, cfg.Extraction)
		dispatcher.Start()
		log.Printf("Extraction pipeline started: model=%s workers=%d", cfg.Agents.ModelID, cfg.Extraction.Workers)
	} else {
		log.Println("Extraction agents disabled")
	}

	handlers := api.NewHandlers(db, emailStore, ingestor, actionableStore, userStore, keys, blobs, dispatcher)
	auth := api.NewAuthMiddleware(userStore, keys, limiter, cfg.Auth)
	router := api.SetupRoutes(handlers, auth)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	cancel()
	log.Println("Shutdown complete")
}
