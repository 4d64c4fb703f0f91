package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/trend-channel/internal/config"
	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

var (
	storeWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_store_write_total",
			Help: "Total number of channel rows written to Postgres",
		},
		[]string{"status"}, // "success" or "error"
	)

	storeWriteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_store_write_latency_seconds",
			Help:    "Write latency of one channel batch in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)
)

// channelColumns is the column order of the regression table
var channelColumns = []string{
	"run_id", "symbol", "max_regression_days", "date", "earliest_start_date",
	"best_regression_date", "start", "end", "length", "start_ordinal", "end_ordinal",
	"slope", "intercept", "r_value", "p_value", "stderr", "std",
	"line_start_ordinal_x", "line_end_ordinal_x", "line_start_x", "line_end_x",
	"line_start_y", "line_end_y", "line_plus_start_y", "line_plus_end_y",
	"line_minus_start_y", "line_minus_end_y",
}

// channelKey is the upsert key of the regression table
var channelKey = []string{"symbol", "date", "max_regression_days"}

// WriteConfig holds configuration for write operations
type WriteConfig struct {
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// WriteConfigFromDatabaseConfig creates a WriteConfig from DatabaseConfig
func WriteConfigFromDatabaseConfig(dbConfig config.DatabaseConfig) WriteConfig {
	return WriteConfig{
		BatchSize:  dbConfig.WriteBatchSize,
		MaxRetries: dbConfig.MaxRetries,
		RetryDelay: dbConfig.RetryDelay,
	}
}

// TableConfig names the tables and input columns the store reads and writes
type TableConfig struct {
	PriceTable   string
	ChannelTable string
	DateColumn   string
	PriceColumn  string
}

// PostgresStore implements PriceStorage and ChannelStorage on Postgres
type PostgresStore struct {
	db          *sqlx.DB
	tables      TableConfig
	writeConfig WriteConfig
}

// NewPostgresStore opens and pings a Postgres connection pool
func NewPostgresStore(dbConfig config.DatabaseConfig, regConfig config.RegressionConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to Postgres",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	tables := TableConfig{
		PriceTable:   dbConfig.PriceTable,
		ChannelTable: dbConfig.ChannelTable,
		DateColumn:   regConfig.DateColumn,
		PriceColumn:  regConfig.PriceColumn,
	}
	return NewPostgresStoreWithDB(db, tables, WriteConfigFromDatabaseConfig(dbConfig)), nil
}

// NewPostgresStoreWithDB wraps an existing connection pool
func NewPostgresStoreWithDB(db *sqlx.DB, tables TableConfig, writeConfig WriteConfig) *PostgresStore {
	if writeConfig.BatchSize <= 0 {
		writeConfig.BatchSize = 1000
	}
	if writeConfig.MaxRetries <= 0 {
		writeConfig.MaxRetries = 1
	}
	return &PostgresStore{
		db:          db,
		tables:      tables,
		writeConfig: writeConfig,
	}
}

// priceRow is the scan target of LoadPrices; a NULL close becomes NaN
// and is rejected later by PriceBar.Validate.
type priceRow struct {
	Symbol string          `db:"symbol"`
	Date   time.Time       `db:"date"`
	Close  sql.NullFloat64 `db:"close"`
}

// LoadPrices reads the price table, optionally restricted to symbols
func (p *PostgresStore) LoadPrices(ctx context.Context, symbols []string) ([]models.PriceBar, error) {
	dateCol := pq.QuoteIdentifier(p.tables.DateColumn)
	query := fmt.Sprintf(
		`SELECT symbol, %s AS date, %s AS close FROM %s`,
		dateCol,
		pq.QuoteIdentifier(p.tables.PriceColumn),
		quoteTable(p.tables.PriceTable),
	)
	var args []interface{}
	if len(symbols) > 0 {
		query += ` WHERE symbol = ANY($1)`
		args = append(args, pq.Array(symbols))
	}
	query += fmt.Sprintf(` ORDER BY symbol ASC, %s ASC`, dateCol)

	var rows []priceRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}

	bars := make([]models.PriceBar, len(rows))
	for i, r := range rows {
		price := math.NaN()
		if r.Close.Valid {
			price = r.Close.Float64
		}
		bars[i] = models.PriceBar{Symbol: r.Symbol, Date: r.Date, Close: price}
	}

	logger.Debug("Loaded prices",
		logger.Int("rows", len(bars)),
		logger.Int("symbols_requested", len(symbols)),
	)
	return bars, nil
}

// WriteChannels upserts rows in batches, retrying each batch with exponential backoff
func (p *PostgresStore) WriteChannels(ctx context.Context, rows []models.ChannelRow) error {
	for start := 0; start < len(rows); start += p.writeConfig.BatchSize {
		end := start + p.writeConfig.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := p.writeBatch(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// writeBatch writes one batch synchronously with retry logic
func (p *PostgresStore) writeBatch(ctx context.Context, rows []models.ChannelRow) error {
	startTime := time.Now()

	var err error
	for attempt := 0; attempt < p.writeConfig.MaxRetries; attempt++ {
		err = p.upsertChannels(ctx, rows)
		if err == nil {
			break
		}

		if attempt < p.writeConfig.MaxRetries-1 {
			delay := p.writeConfig.RetryDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
			logger.Warn("Failed to write channels, retrying",
				logger.ErrorField(err),
				logger.Int("attempt", attempt+1),
				logger.Int("rows_count", len(rows)),
				logger.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	storeWriteLatency.WithLabelValues("upsert").Observe(time.Since(startTime).Seconds())

	if err != nil {
		storeWriteTotal.WithLabelValues("error").Add(float64(len(rows)))
		logger.Error("Failed to write channels after retries",
			logger.ErrorField(err),
			logger.Int("rows_count", len(rows)),
		)
		return fmt.Errorf("failed to write %d channel rows: %w", len(rows), err)
	}

	storeWriteTotal.WithLabelValues("success").Add(float64(len(rows)))
	logger.Debug("Wrote channels to Postgres",
		logger.Int("count", len(rows)),
		logger.Duration("latency", time.Since(startTime)),
	)
	return nil
}

// upsertChannels inserts rows in one transaction with a prepared named statement
func (p *PostgresStore) upsertChannels(ctx context.Context, rows []models.ChannelRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, p.upsertQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to upsert channel %s %s: %w",
				row.Symbol, row.Date.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) upsertQuery() string {
	cols := make([]string, len(channelColumns))
	params := make([]string, len(channelColumns))
	var updates []string
	isKey := make(map[string]bool, len(channelKey))
	for _, k := range channelKey {
		isKey[k] = true
	}
	for i, c := range channelColumns {
		cols[i] = pq.QuoteIdentifier(c)
		params[i] = ":" + c
		if !isKey[c] {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", cols[i], cols[i]))
		}
	}
	keys := make([]string, len(channelKey))
	for i, k := range channelKey {
		keys[i] = pq.QuoteIdentifier(k)
	}

	return fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		quoteTable(p.tables.ChannelTable),
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		strings.Join(keys, ", "),
		strings.Join(updates, ", "),
	)
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// quoteTable quotes each part of an optionally schema-qualified table name
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

var (
	_ PriceStorage   = (*PostgresStore)(nil)
	_ ChannelStorage = (*PostgresStore)(nil)
)
