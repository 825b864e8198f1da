package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/crosstalk/debate-app/internal/archive"
	"github.com/crosstalk/debate-app/internal/config"
	"github.com/crosstalk/debate-app/internal/db"
	"github.com/crosstalk/debate-app/internal/hub"
	"github.com/crosstalk/debate-app/internal/messaging"
	"github.com/crosstalk/debate-app/internal/moderation"
	"github.com/crosstalk/debate-app/internal/profile"
	"github.com/crosstalk/debate-app/internal/ratelimit"
	"github.com/crosstalk/debate-app/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// --- PostgreSQL ---
	handle, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := db.Migrate(handle, cfg.MigrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// --- Redis (rate limiting + profile cache) ---
	// Redis is optional: both consumers fail open without it.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	// --- NATS (best-effort lifecycle events) ---
	var publisher *messaging.Publisher
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Name = cfg.NATSName
		publisher, err = messaging.NewPublisher(natsConfig)
		if err != nil {
			log.Printf("NATS unavailable, continuing without events: %v", err)
			publisher = nil
		}
	}

	// --- Moderation ---
	moderationConfig := moderation.DefaultClientConfig()
	moderationConfig.URL = cfg.ModerationURL
	moderationConfig.APIKey = cfg.ModerationAPIKey
	moderator := moderation.NewClient(moderationConfig)

	deps := hub.Deps{
		Profiles:  profile.NewStore(handle, redisClient),
		Moderator: moderator,
		Archive:   archive.NewStore(handle),
		Limiter:   ratelimit.NewLimiter(redisClient),
	}
	if publisher != nil {
		deps.Events = publisher
	}
	h := hub.New(deps)

	serverConfig := ws.DefaultServerConfig()
	serverConfig.ListenAddr = cfg.ListenAddr
	serverConfig.MaxConnections = cfg.MaxConnections
	serverConfig.WriteTimeout = cfg.WriteTimeout

	server := ws.NewServer(serverConfig,
		func(conn *ws.Connection, data []byte) {
			h.HandleMessage(conn, data)
		},
		func(conn *ws.Connection) {
			h.HandleDisconnect(conn)
		},
	)

	log.Printf("Debate matchmaking server starting")
	log.Printf("  listen_addr:     %s", cfg.ListenAddr)
	log.Printf("  max_connections: %d", cfg.MaxConnections)
	log.Printf("  write_timeout:   %s", cfg.WriteTimeout)
	log.Printf("  redis_addr:      %s", cfg.RedisAddr)
	log.Printf("  nats_url:        %s", cfg.NATSURL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if publisher != nil {
			publisher.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if err := handle.Close(); err != nil {
			log.Printf("postgres close error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
