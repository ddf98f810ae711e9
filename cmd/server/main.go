// Command server runs the engage API: customer/segment/campaign CRUD,
// segment preview, and synchronous campaign delivery.
//
// With DATABASE_URL set the repositories run against PostgreSQL;
// without it everything runs in memory, which is enough for local
// development and demos.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/engage/internal/api"
	"github.com/ignite/engage/internal/audience"
	"github.com/ignite/engage/internal/config"
	"github.com/ignite/engage/internal/metrics"
	"github.com/ignite/engage/internal/notify"
	"github.com/ignite/engage/internal/pkg/distlock"
	"github.com/ignite/engage/internal/repository/memory"
	"github.com/ignite/engage/internal/repository/postgres"
	"github.com/ignite/engage/internal/service/campaign"
	"github.com/ignite/engage/internal/service/customer"
	"github.com/ignite/engage/internal/service/delivery"
	"github.com/ignite/engage/internal/service/segments"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat("config/config.yaml"); err == nil {
			configPath = "config/config.yaml"
		}
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db            *sql.DB
		customerRepo  customer.Repository
		segmentRepo   segments.Repository
		campaignRepo  campaign.Repository
		outcomeStore  delivery.OutcomeStore
		logStore      delivery.LogStore
		customerStore audience.CustomerStore
	)
	if cfg.Database.URL != "" {
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		log.Println("[server] Using PostgreSQL repositories")

		cr := postgres.NewCustomerRepo(db)
		mr := postgres.NewMessageRepo(db)
		customerRepo, customerStore = cr, cr
		segmentRepo = postgres.NewSegmentRepo(db)
		campaignRepo = postgres.NewCampaignRepo(db)
		outcomeStore, logStore = mr, mr
	} else {
		log.Println("[server] No DATABASE_URL; using in-memory repositories")

		cr := memory.NewCustomerRepo()
		mr := memory.NewMessageRepo()
		customerRepo, customerStore = cr, cr
		segmentRepo = memory.NewSegmentRepo()
		campaignRepo = memory.NewCampaignRepo()
		outcomeStore, logStore = mr, mr
	}

	// Optional Redis for the cross-instance send lock.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[server] Redis unreachable (%v); falling back to database locking", err)
			redisClient = nil
		} else {
			log.Println("[server] Redis send lock enabled")
		}
	}

	stats := metrics.New()
	hub := notify.NewHub()
	resolver := audience.NewResolver(customerStore)

	seed := cfg.Delivery.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	provider := delivery.NewSimulatedProvider(cfg.Delivery.SuccessRate, seed)

	lockDB := db
	dispatcher := delivery.NewDispatcher(campaignRepo, delivery.NewRecorder(outcomeStore), provider, cfg.Delivery.Workers).
		WithHub(hub).
		WithMetrics(stats).
		WithLocker(func(campaignID string) distlock.DistLock {
			return distlock.ForSend(redisClient, lockDB, campaignID, 10*time.Minute)
		})

	segmentSvc := segments.NewService(segmentRepo, resolver)
	server := api.NewServer(
		campaign.NewService(campaignRepo, segmentSvc, resolver, dispatcher),
		segmentSvc,
		customer.NewService(customerRepo),
		logStore,
		stats,
		cfg.Server.AllowedOrigins,
	).WithPolling(cfg.Polling.Interval(), cfg.Polling.Window())

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("[server] Listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("[server] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] Shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("[server] Stopped")
}
