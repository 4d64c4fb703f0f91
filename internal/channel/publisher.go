package channel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/internal/storage"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// PublisherConfig holds configuration for the latest-channel publisher
type PublisherConfig struct {
	KeyPrefix        string        // Prefix for channel keys (default: "channel:")
	TTL              time.Duration // TTL for channel keys (default: 24 hours)
	UpdateChannel    string        // Redis pub/sub channel for updates, empty disables (default: "channels.updated")
	FailureThreshold uint32        // Consecutive failures that open the breaker (default: 5)
	OpenTimeout      time.Duration // Time the breaker stays open (default: 30 seconds)
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		KeyPrefix:        "channel:",
		TTL:              24 * time.Hour,
		UpdateChannel:    "channels.updated",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// ChannelUpdate is the notification sent on the update channel
type ChannelUpdate struct {
	RunID  string `json:"run_id"`
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Key    string `json:"key"`
}

// Publisher writes the latest channel of each symbol to Redis
type Publisher struct {
	redis   storage.RedisClient
	config  PublisherConfig
	breaker *gobreaker.CircuitBreaker
}

// NewPublisher creates a new publisher
func NewPublisher(redis storage.RedisClient, config PublisherConfig) *Publisher {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	threshold := config.FailureThreshold

	settings := gobreaker.Settings{
		Name:    "redis-publisher",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Publisher circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}

	return &Publisher{
		redis:   redis,
		config:  config,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Key returns the Redis key holding the latest channel of symbol
func (p *Publisher) Key(symbol string) string {
	return p.config.KeyPrefix + symbol
}

// PublishLatest stores the most recent row of each symbol in table and
// announces it on the update channel. Rows already cached with identical
// values are skipped and not counted. Failures do not stop the remaining
// symbols; they are joined into the returned error.
func (p *Publisher) PublishLatest(ctx context.Context, table *Table) (int, error) {
	log := logger.WithContext(ctx)

	published, unchanged := 0, 0
	var errs []error
	for _, row := range table.Latest() {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		if row.RunID == "" {
			row.RunID = table.RunID
		}
		written, err := p.breaker.Execute(func() (interface{}, error) {
			return p.publishRow(ctx, row)
		})
		switch {
		case err == nil && !written.(bool):
			unchanged++
			publishTotal.WithLabelValues("unchanged").Inc()
		case err == nil:
			published++
			publishTotal.WithLabelValues("success").Inc()
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			publishTotal.WithLabelValues("rejected").Inc()
			errs = append(errs, fmt.Errorf("publish %s: %w", row.Symbol, err))
		default:
			publishTotal.WithLabelValues("error").Inc()
			log.Warn("Failed to publish channel",
				logger.String("symbol", row.Symbol),
				logger.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf("publish %s: %w", row.Symbol, err))
		}
	}

	log.Info("Published latest channels",
		logger.Int("published", published),
		logger.Int("unchanged", unchanged),
		logger.Int("failed", len(errs)),
	)
	return published, errors.Join(errs...)
}

// publishRow writes row unless the cache already holds the same values.
// It reports whether anything was written.
func (p *Publisher) publishRow(ctx context.Context, row models.ChannelRow) (bool, error) {
	key := p.Key(row.Symbol)
	if p.cached(ctx, key, &row) {
		return false, nil
	}

	if err := p.redis.Set(ctx, key, row, p.config.TTL); err != nil {
		return false, fmt.Errorf("failed to set %s: %w", key, err)
	}
	if p.config.UpdateChannel == "" {
		return true, nil
	}
	update := ChannelUpdate{
		RunID:  row.RunID,
		Symbol: row.Symbol,
		Date:   row.Date.Format(models.DateLayout),
		Key:    key,
	}
	if err := p.redis.Publish(ctx, p.config.UpdateChannel, update); err != nil {
		return false, fmt.Errorf("failed to publish update for %s: %w", row.Symbol, err)
	}
	return true, nil
}

// cached reports whether key holds row with identical rendered values.
// The run id is not compared. A failed read counts as a miss.
func (p *Publisher) cached(ctx context.Context, key string, row *models.ChannelRow) bool {
	var current models.ChannelRow
	if err := p.redis.GetJSON(ctx, key, &current); err != nil {
		logger.Debug("Failed to read cached channel",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		return false
	}
	if current.Symbol == "" {
		return false
	}
	return slices.Equal(FormatRow(&current), FormatRow(row))
}
