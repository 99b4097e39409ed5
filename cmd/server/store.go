package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/records/internal/config"
	"github.com/JonMunkholm/records/internal/store"
	"github.com/JonMunkholm/records/internal/store/memory"
	"github.com/JonMunkholm/records/internal/store/mongo"
	"github.com/JonMunkholm/records/internal/store/postgres"
	"github.com/JonMunkholm/records/internal/store/sqlite"
)

// openGateway connects to the store selected by cfg.Store.Driver.
func openGateway(ctx context.Context, cfg *config.Config) (store.Gateway, error) {
	sc := cfg.Store

	switch sc.Driver {
	case config.DriverPostgres:
		gw, err := postgres.Open(ctx, postgres.Options{
			URL:             sc.URL,
			MaxConns:        int32(sc.MaxConns),
			MinConns:        int32(sc.MinConns),
			MaxConnLifetime: sc.MaxConnLifetime,
			MaxConnIdleTime: sc.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.DriverSQLite:
		gw, err := sqlite.Open(ctx, sc.SQLitePath)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.DriverMongo:
		gw, err := mongo.Open(ctx, mongo.Options{URI: sc.MongoURI, Database: sc.MongoDatabase})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.DriverMemory:
		slog.Warn("using in-memory store, records are lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// migrateGateway applies schema migrations when the store has any.
func migrateGateway(ctx context.Context, gw store.Gateway) error {
	m, ok := gw.(store.Migrator)
	if !ok {
		slog.Debug("store has no migrations")
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	slog.Info("store migrated")
	return nil
}

// openStore opens the configured store and, when enabled, migrates it. The
// returned func closes the store.
func openStore(ctx context.Context, cfg *config.Config, autoMigrate bool) (store.Gateway, func(), error) {
	gw, err := openGateway(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	closeFn := func() {
		if err := gw.Close(); err != nil {
			slog.Warn("could not close store", "error", err)
		}
	}

	if autoMigrate {
		if err := migrateGateway(ctx, gw); err != nil {
			closeFn()
			return nil, nil, err
		}
	}

	slog.Info("connected to store", "driver", cfg.Store.Driver)
	return gw, closeFn, nil
}
