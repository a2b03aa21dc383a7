package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/textbook-analytics/internal/config"
	"github.com/yungbote/textbook-analytics/internal/data/repos"
	httpSrv "github.com/yungbote/textbook-analytics/internal/http"
	httpH "github.com/yungbote/textbook-analytics/internal/http/handlers"
	httpMW "github.com/yungbote/textbook-analytics/internal/http/middleware"
	"github.com/yungbote/textbook-analytics/internal/observability"
	"github.com/yungbote/textbook-analytics/internal/platform/db"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration file")
	flag.Parse()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed", "error", err)
	}

	ctx := context.Background()
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "textbook-analytics-resultsd",
	})
	if shutdown != nil {
		defer func() { _ = shutdown(ctx) }()
	}

	// Store
	store, err := db.New(cfg.DB.Driver, cfg.DB.DSN, log)
	if err != nil {
		log.Fatal("store init failed", "error", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		log.Fatal("store migration failed", "error", err)
	}
	gdb := store.DB()

	// Optional response cache; the API works without it.
	var rdb *goredis.Client
	if cfg.API.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:        cfg.API.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, serving uncached", "error", err)
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}

	var auth *httpMW.AuthMiddleware
	if cfg.API.AuthEnabled {
		if cfg.API.JWTSecret == "" {
			log.Fatal("auth enabled but no jwt secret configured")
		}
		auth = httpMW.NewAuthMiddleware(log, cfg.API.JWTSecret)
	}

	server := httpSrv.NewServer(httpSrv.RouterConfig{
		ResultsHandler: httpH.NewResultsHandler(
			log,
			repos.NewModelRunRepo(gdb, log),
			repos.NewModelResultRepo(gdb, log),
			repos.NewHeldoutPredictionRepo(gdb, log),
		),
		HealthHandler:   httpH.NewHealthHandler(),
		AuthMiddleware:  auth,
		CacheMiddleware: httpMW.Cache(rdb, 30*time.Second, log),
		CORSOrigins:     cfg.API.CORSOrigins,
	})

	log.Info("results api listening", "addr", cfg.API.Addr)
	if err := server.Run(cfg.API.Addr); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
