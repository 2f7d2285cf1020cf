package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/aggregator"
	"github.com/trogers1052/stock-sentiment-service/internal/badger"
	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/config"
	"github.com/trogers1052/stock-sentiment-service/internal/database"
	"github.com/trogers1052/stock-sentiment-service/internal/kafka"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
	"github.com/trogers1052/stock-sentiment-service/internal/news"
	"github.com/trogers1052/stock-sentiment-service/internal/pipeline"
	"github.com/trogers1052/stock-sentiment-service/internal/push"
	"github.com/trogers1052/stock-sentiment-service/internal/redis"
	"github.com/trogers1052/stock-sentiment-service/internal/sentiment"
	"github.com/trogers1052/stock-sentiment-service/internal/sweeper"
)

// recordStore is implemented by both the postgres and badger backends
type recordStore interface {
	InsertSentiment(ctx context.Context, record *models.SentimentRecord) error
	HeadlineExistsSince(ctx context.Context, symbol, headline string, since time.Time) (bool, error)
	GetSentimentSince(ctx context.Context, symbol string, since time.Time) ([]*models.SentimentRecord, error)
	GetRecentSentiment(ctx context.Context, symbol string, limit int) ([]*models.SentimentRecord, error)
	DeleteSentimentBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// app holds the wired service graph shared by every command
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger

	catalog    *catalog.Catalog
	store      recordStore
	db         *database.DB
	redis      *redis.Client
	producer   *kafka.Producer
	hub        *push.Hub
	fanout     *push.Fanout
	aggregator *aggregator.Aggregator
	pipeline   *pipeline.Pipeline
	sweeper    *sweeper.Sweeper
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	cat, err := loadCatalog(cfg.App.CatalogFile)
	if err != nil {
		return nil, err
	}
	a.catalog = cat
	log.Infow("Loaded stock catalog", "symbols", cat.Len())

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		rc, err := redis.New(cfg.Redis)
		if err != nil {
			log.Warnw("Failed to connect to Redis, continuing without cache", "error", err)
		} else {
			a.redis = rc
			log.Infow("Connected to Redis", "address", cfg.Redis.Address())
		}
	}

	var pipelineOpts []pipeline.Option
	if cfg.Kafka.Enabled {
		a.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		pipelineOpts = append(pipelineOpts, pipeline.WithObserver(a.producer))
		log.Infow("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	a.pipeline = pipeline.New(
		news.NewGoogleNewsClient(cfg.News),
		sentiment.NewScorer(),
		a.store,
		log,
		pipelineOpts...,
	)
	a.aggregator = aggregator.New(a.store, cat, time.Now, log)

	a.hub = push.NewHub(log)
	a.fanout = push.NewFanout(log).Add("websocket", a.hub)
	if a.redis != nil {
		a.fanout.Add("redis", a.redis)
	}
	if a.producer != nil {
		a.fanout.Add("kafka", a.producer)
	}

	a.sweeper = sweeper.New(sweeper.Config{
		Warmup:            cfg.Sweep.Warmup,
		Interval:          cfg.Sweep.Interval,
		SymbolPause:       cfg.Sweep.SymbolPause,
		RetentionInterval: cfg.Sweep.RetentionInterval,
		RetentionMaxAge:   cfg.Sweep.RetentionMaxAge,
	}, cat, a.pipeline, a.aggregator, a.store, log, sweeper.WithBroadcaster(a.fanout))

	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case "badger":
		store, err := badger.Open(a.cfg.Store.BadgerPath)
		if err != nil {
			return fmt.Errorf("failed to open badger store: %w", err)
		}
		a.store = store
		a.log.Infow("Opened badger store", "path", a.cfg.Store.BadgerPath)
	default:
		connStr := a.cfg.Database.ConnectionString()
		db, err := database.New(ctx, connStr)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := runMigrations(a.cfg.Database.MigrationsPath, connStr, a.log); err != nil {
			db.Close()
			return err
		}
		a.db = db
		a.store = db
		a.log.Info("Connected to PostgreSQL database")
	}
	return nil
}

func runMigrations(migrationsPath, databaseURL string, log *zap.SugaredLogger) error {
	applied, err := database.Migrate(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	if applied {
		log.Info("Database migrations applied")
	} else {
		log.Info("No migrations to apply; database is up to date")
	}
	return nil
}

func (a *app) Close() {
	a.hub.Close()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warnw("Error closing Kafka producer", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warnw("Error closing Redis", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warnw("Error closing store", "error", err)
	}
}
