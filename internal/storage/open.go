package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/jorgepalis/pymedesk/internal/config"
	"github.com/redis/go-redis/v9"
)

// Closer is a Storage that holds resources.
type Closer interface {
	Storage
	io.Closer
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Closer, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedis(client, cfg.Namespace), nil
	case "mongo":
		db, err := ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongo(db, DefaultMongoCollection, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
