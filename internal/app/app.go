// Package app assembles the engine and order workflow from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/mlmcommerce/supplychain/internal/cache"
	"github.com/mlmcommerce/supplychain/internal/config"
	"github.com/mlmcommerce/supplychain/internal/db"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
	"github.com/mlmcommerce/supplychain/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const redisPrefix = "mlm:"

type App struct {
	DB       *gorm.DB
	Engine   *service.Engine
	Orders   *service.OrderService
	Registry *prometheus.Registry

	closers []func() error
}

// New connects to the database and the configured cache backend and wires
// every component. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{DB: conn, Registry: prometheus.NewRegistry()}
	if sqlDB, err := conn.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			a.Close()
			return nil, err
		}
	}

	metrics := obs.NewMetrics(a.Registry)
	store, err := a.newStore(ctx, cfg, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	orders := repository.NewOrderRepository(conn)
	commissions := repository.NewCommissionRepository(conn)
	a.Engine = service.NewEngine(
		repository.NewParticipantRepository(conn),
		repository.NewProductRepository(conn),
		commissions,
		store,
		service.Options{
			TeamMaxDepth:       cfg.TeamMaxDepth,
			CommissionMaxDepth: cfg.CommissionMaxDepth,
			Metrics:            metrics,
		},
	)
	a.Orders = service.NewOrderService(a.Engine, orders, commissions, repository.NewTxRunner(conn))
	return a, nil
}

func (a *App) newStore(ctx context.Context, cfg *config.Config, metrics *obs.Metrics) (cache.Store, error) {
	if cfg.CacheBackend != "redis" {
		return cache.NewLookup(cfg.CacheCapacity, cfg.CacheTTL, cache.WithObserver(metrics.CacheEvent)), nil
	}
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)
	obs.Info(ctx, "cache.redis_connected", map[string]any{"addr": cfg.RedisAddr, "db": cfg.RedisDB})
	return cache.NewRedis(client, redisPrefix, cfg.CacheTTL), nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			obs.Warn(context.Background(), "app.close", map[string]any{"error": err.Error()})
		}
	}
	a.closers = nil
}
