// Package database opens the configured persistence backend and builds the
// record store on top of it.
package database

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/config"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// NewDatabase initializes a GORM sqlite connection and runs migrations.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&types.Order{}, &types.Signal{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// NewStore builds the record store selected by the configuration.
func NewStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "", "sqlite":
		db, err := NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db, cfg.SignalTTL()), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return store.NewRedisStore(client, cfg.SignalTTL()), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
