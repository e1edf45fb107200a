package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/scevolution/ladder/internal/admin"
	"github.com/scevolution/ladder/internal/api"
	"github.com/scevolution/ladder/internal/config"
	"github.com/scevolution/ladder/internal/database"
	"github.com/scevolution/ladder/internal/lifecycle"
	"github.com/scevolution/ladder/internal/matchmaking"
	"github.com/scevolution/ladder/internal/middleware"
	"github.com/scevolution/ladder/internal/migrations"
	"github.com/scevolution/ladder/internal/notify"
	"github.com/scevolution/ladder/internal/ratelimit"
	"github.com/scevolution/ladder/internal/rating"
	"github.com/scevolution/ladder/internal/redis"
	"github.com/scevolution/ladder/internal/replay"
	"github.com/scevolution/ladder/internal/store"
	"github.com/scevolution/ladder/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, event bridge disabled: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable writes trail the hot store through a single bounded queue.
	writes := store.NewWriteQueue(db, cfg.WriteQueueDepth, cfg.WriteRetryBackoffs, cfg.DeadLetterPath)
	writes.Start(ctx)

	st := store.New(writes)
	st.SetDefaultAborts(cfg.MaxAborts)
	if err := st.LoadSnapshot(db); err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	rater := rating.NewEngine(cfg.KFactor)

	var bridgePub notify.Publisher
	if bridge := notify.NewRedisBridge(ctx, rdb); bridge != nil {
		bridgePub = bridge
	}
	fanout := notify.New(bridgePub)

	limiter := ratelimit.New(cfg.RateLimitQueue, time.Duration(cfg.RateLimitMinDelayMS)*time.Millisecond)
	defer limiter.Close()

	lifecycleSvc := lifecycle.New(st, rater, fanout, limiter, lifecycle.Timings{
		Confirm:  cfg.ConfirmTimer(),
		Abort:    cfg.AbortTimer(),
		Reminder: cfg.ReminderDelay(),
	})

	matchmaker := matchmaking.New(st, lifecycleSvc)
	go matchmaker.StartWaveWorker(ctx, cfg.WavePeriod())

	adminSvc := admin.NewService(st, rater, lifecycleSvc, matchmaker)

	blobs, err := replay.NewFSBlobStore(cfg.ReplayDir)
	if err != nil {
		log.Fatalf("Failed to init replay storage: %v", err)
	}

	hub := ws.NewHub(fanout)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	api.SetupRoutes(router, api.Deps{
		Store:      st,
		Queue:      matchmaker,
		Lifecycle:  lifecycleSvc,
		Admin:      adminSvc,
		Blobs:      blobs,
		Hub:        hub,
		DB:         db,
		WriteQueue: writes,
		Cfg:        cfg,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting ladder server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// Flush every pending durable write before the process exits.
	writes.Drain()
	log.Println("Shutdown complete")
}
