package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duosnap/backend/internal/app"
	"github.com/duosnap/backend/internal/cache"
	"github.com/duosnap/backend/internal/config"
	"github.com/duosnap/backend/internal/db"
	"github.com/duosnap/backend/internal/logger"
	"github.com/duosnap/backend/internal/scheduler"
	"github.com/duosnap/backend/internal/server"
	"github.com/duosnap/backend/internal/service/pairing"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Collaborator seams: local stand-ins until chat / feed /
	// notification services are wired up.
	svc := pairing.NewService(
		appCtx,
		pairing.LocalConversationCreator{},
		pairing.LogFeedPublisher{Logger: log},
		pairing.LogReminderSender{Logger: log},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(svc, log,
		cfg.Pairing.MatchHour,
		time.Duration(cfg.Pairing.RecoveryEveryMin)*time.Minute,
	)
	sched.Start(ctx)
	log.Info("scheduler started",
		"match_hour", cfg.Pairing.MatchHour,
		"recovery_every_min", cfg.Pairing.RecoveryEveryMin,
	)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
			log.Error("metrics endpoint failed", "err", err)
		}
	}()

	addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
	log.Info("starting gRPC server", "addr", addr)

	if err := server.StartGRPCServer(cfg); err != nil {
		log.Error("failed to start gRPC server", "err", err)
	}
}
