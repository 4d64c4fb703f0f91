package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// PriceStorage defines the interface for reading the daily price table
type PriceStorage interface {
	// LoadPrices returns the price rows of the given symbols, all symbols when empty.
	// Rows come back ordered by symbol then date.
	LoadPrices(ctx context.Context, symbols []string) ([]models.PriceBar, error)

	// Close closes the storage connection
	Close() error
}

// ChannelStorage defines the interface for persisting the regression table
type ChannelStorage interface {
	// WriteChannels upserts rows keyed by (symbol, date, max_regression_days)
	WriteChannels(ctx context.Context, rows []models.ChannelRow) error

	// Close closes the storage connection
	Close() error
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// GetJSON leaves dest untouched when key does not exist
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error

	// Close closes the Redis connection
	Close() error
}
