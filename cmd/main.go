package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RaikyD/orders-etl-service/internal/application"
	"github.com/RaikyD/orders-etl-service/internal/config"
	"github.com/RaikyD/orders-etl-service/internal/kafka"
	"github.com/RaikyD/orders-etl-service/internal/logger"
	"github.com/RaikyD/orders-etl-service/internal/metrics"
	"github.com/RaikyD/orders-etl-service/internal/migrate"
	"github.com/RaikyD/orders-etl-service/internal/presentation"
	"github.com/RaikyD/orders-etl-service/internal/repository"
)

func main() {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if cfg.MIGRATE_ON_START {
		if err := migrate.Up(cfg.DB_STRING); err != nil {
			logger.Warn("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Wiring
	mets := metrics.NewRegistry()
	repo := repository.NewOrderRepository(pool)

	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
	defer prod.Close()

	proc := application.NewProcessor(repo, mets)
	_ = kafka.StartWorkers(context.Background(), proc, kafka.ConsumerConfig{
		Brokers:   cfg.KAFKA_BROKERS,
		Topic:     cfg.KAFKA_TOPIC,
		GroupID:   cfg.KAFKA_GROUP_ID,
		Workers:   cfg.WORKERS,
		BatchSize: cfg.BATCH_SIZE,
	})

	ingest := application.NewIngestService(prod, mets)
	query := application.NewQueryService(repo)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API
	h := presentation.NewOrdersHandler(ingest, query, prod, repo)
	h.Register(r)
	r.Handle("/metrics", mets.Handler())

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
