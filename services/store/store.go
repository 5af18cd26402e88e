// Package store holds the persistence sinks a crawl run writes into. Every
// sink is insert-only and receives the whole ordered result of a run at once.
package store

import (
	"context"
	"fmt"

	"sjsage522/estatecrawler/config"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/pkg/errors"
)

// Open connects to the backend selected by STORE_BACKEND
func Open(ctx context.Context, cfg *config.Config) (crawler.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return NewPostgresStore(ctx, cfg.PGDSN, cfg.PGTable)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoCollectionName)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unknown store backend %q", cfg.StoreBackend), nil)
	}
}

// Opener binds cfg into a per-run store factory
func Opener(cfg *config.Config) crawler.OpenStoreFunc {
	return func(ctx context.Context) (crawler.Store, error) {
		return Open(ctx, cfg)
	}
}
