package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/storeline/backend/internal/cache"
	"github.com/storeline/backend/internal/config"
	"github.com/storeline/backend/internal/database"
	"github.com/storeline/backend/internal/handlers"
	"github.com/storeline/backend/internal/jobs"
	"github.com/storeline/backend/internal/loyalty"
	"github.com/storeline/backend/internal/routes"
	"github.com/storeline/backend/internal/store"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis is a soft dependency: without it every lookup goes to the
	// database, nothing else changes
	var redisClient *redis.Client
	if opts, err := redis.ParseURL(cfg.Redis.URL); err == nil {
		opts.Password = cfg.Redis.Password
		opts.DB = cfg.Redis.DB
		client := redis.NewClient(opts)
		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Printf("Redis unavailable, running without cache: %v", err)
		} else {
			redisClient = client
		}
	} else {
		log.Printf("Invalid redis URL, running without cache: %v", err)
	}

	loyaltyCache := cache.New(redisClient, time.Duration(cfg.Loyalty.CacheTTLSeconds)*time.Second)
	loyaltyStore := store.NewGormStore(db)

	ledger := loyalty.NewLedgerEngine(loyaltyStore, loyaltyCache)
	members := loyalty.NewMembershipManager(loyaltyStore, loyaltyCache)
	programs := loyalty.NewProgramRegistry(loyaltyStore, loyaltyCache)
	redemptions := loyalty.NewRedemptionService(loyaltyStore, ledger)
	expiry := loyalty.NewExpiryProcessor(loyaltyStore, ledger)

	scheduler, err := jobs.ScheduleRecurringJobs(cfg, expiry)
	if err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}

	loyaltyHandler := handlers.NewLoyaltyHandler(members, ledger, redemptions, expiry)
	programHandler := handlers.NewProgramHandler(programs)

	router := routes.SetupRouter(cfg, loyaltyHandler, programHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
