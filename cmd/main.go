package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/monument-wall/wall-service/config"
	"github.com/monument-wall/wall-service/internal/chain"
	"github.com/monument-wall/wall-service/internal/checkpoint"
	"github.com/monument-wall/wall-service/internal/join"
	"github.com/monument-wall/wall-service/internal/postgres"
	"github.com/monument-wall/wall-service/internal/service"
	"github.com/monument-wall/wall-service/internal/storage"
	httpx "github.com/monument-wall/wall-service/internal/transport/http"
	"github.com/monument-wall/wall-service/internal/transport/ws"
	"github.com/monument-wall/wall-service/internal/wall"
	"github.com/monument-wall/wall-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting wall-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	partRepo := postgres.NewParticipantRepository(db.Pool)
	listener := postgres.NewInsertListener(db.Pool, cfg.Postgres.Channel)

	// --- chain & storage ---
	chainClient := chain.NewRPCClient(
		cfg.Chain.RPCURL,
		cfg.Chain.ContractAddress,
		cfg.Chain.FromAddress,
		chain.WithPollInterval(cfg.ReceiptPollInterval()),
	)
	blobs := storage.NewClient(cfg.Storage.BaseURL, cfg.Storage.Bucket, cfg.Storage.ServiceKey, cfg.StorageTimeout())

	// --- checkpoint / celebration flags ---
	var flags checkpoint.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		flags = checkpoint.NewRedisStore(rdb)
		slog.Info("state store: redis", "addr", cfg.Redis.Addr)
	} else {
		fs, err := checkpoint.NewFileStore(cfg.Wall.StateDir)
		if err != nil {
			log.Fatalf("state dir: %v", err)
		}
		flags = fs
		slog.Info("state store: file", "dir", cfg.Wall.StateDir)
	}

	// --- services ---
	participants := service.NewParticipantService(partRepo, chainClient)
	flows := join.NewCoordinator(participants, chainClient, blobs, flags, cfg.ReceiptTimeout())

	// --- wall state ---
	list := wall.NewList()
	initial, err := partRepo.ListAll(ctx)
	if err != nil {
		log.Fatalf("load participants: %v", err)
	}
	list.Load(initial)
	slog.Info("wall loaded", "placed", list.Len())

	batcher := wall.NewBatcher(list, cfg.FlushInterval())

	// --- WS hub & server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, list, participants, flags, blobs.PublicURL, cfg.Wall.SiteURL)
	batcher.OnFlush(wsServer.BroadcastBatch)

	subscriber := wall.NewSubscriber(listener, batcher, wsServer.BroadcastStatus)
	go batcher.Run(ctx)
	go subscriber.Run(ctx)

	// --- HTTP ---
	handler := httpx.NewHandler(participants, flows, list, blobs.PublicURL)
	router := httpx.NewRouter(handler, wsServer, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // join requests block on receipt polling
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
