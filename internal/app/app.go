// Package app builds the bridge's collaborators from configuration. The HTTP server and
// the Kafka worker share it so both run the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/wooacry-bridge/internal/config"
	"github.com/joao-fontenele/wooacry-bridge/internal/fulfillment"
	"github.com/joao-fontenele/wooacry-bridge/internal/ledger"
	"github.com/joao-fontenele/wooacry-bridge/internal/messaging"
	"github.com/joao-fontenele/wooacry-bridge/internal/pipeline"
	"github.com/joao-fontenele/wooacry-bridge/internal/shopify"
	"github.com/joao-fontenele/wooacry-bridge/internal/telemetry"
	"github.com/joao-fontenele/wooacry-bridge/internal/wooacry"
)

type App struct {
	Pipeline *pipeline.Service
	Wooacry  *wooacry.Client
	// Shopify and Fulfillment are nil when no Admin API credentials are configured.
	Shopify     *shopify.Client
	Fulfillment *fulfillment.Syncer

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Wooacry, err = wooacry.NewClient(wooacry.Config{
		BaseURL:      cfg.Wooacry.BaseURL,
		ResellerFlag: cfg.Wooacry.ResellerFlag,
		Secret:       cfg.Wooacry.Secret,
		Version:      cfg.Wooacry.Version,
		Timeout:      cfg.Wooacry.Timeout,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("wooacry client: %w", err)
	}

	if cfg.Shopify.Enabled() {
		a.Shopify, err = shopify.NewClient(shopify.Config{
			Store:             cfg.Shopify.Store,
			APIVersion:        cfg.Shopify.APIVersion,
			AccessToken:       cfg.Shopify.AccessToken,
			Timeout:           cfg.Shopify.Timeout,
			RequestsPerSecond: cfg.Shopify.RequestsPerSecond,
			Burst:             cfg.Shopify.Burst,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("shopify client: %w", err)
		}
		a.Fulfillment = fulfillment.NewSyncer(a.Shopify, logger.With("component", "fulfillment"))
	}

	store, err := a.ledger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	locker, err := a.locker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Gateway: a.Wooacry,
		Ledger:  store,
		Locker:  locker,
		Logger:  logger.With("component", "pipeline"),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		a.closers = append(a.closers, producer.Close)
		deps.Publisher = producer
	}

	a.Pipeline, err = pipeline.New(pipeline.Config{CreateTimeout: cfg.Wooacry.CreateTimeout}, deps)
	if err != nil {
		return nil, err
	}

	logger.Info("bridge assembled",
		"ledger", cfg.Ledger.Backend,
		"redis_lock", cfg.Redis.Addr != "",
		"events", deps.Publisher != nil,
		"fulfillment_sync", a.Fulfillment != nil,
	)
	return a, nil
}

func (a *App) ledger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerShopify:
		if a.Shopify == nil {
			return nil, errors.New("shopify ledger needs shopify credentials")
		}
		return ledger.NewShopifyLedger(a.Shopify), nil

	case config.LedgerPostgres:
		db, err := telemetry.OpenDB(ctx, telemetry.DBConfig{
			URL:          cfg.Postgres.URL,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return ledger.NewPostgresLedger(db), nil

	case config.LedgerMemory:
		return ledger.NewMemoryLedger(), nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func (a *App) locker(ctx context.Context, cfg *config.Config) (ledger.Locker, error) {
	if cfg.Redis.Addr == "" {
		return ledger.NopLocker{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return ledger.NewRedisLocker(client, cfg.Redis.LockPrefix), nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
