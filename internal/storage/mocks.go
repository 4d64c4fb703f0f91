package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// MockPriceStorage is a mock implementation of PriceStorage for testing
type MockPriceStorage struct {
	Bars    []models.PriceBar
	LoadErr error
}

func (m *MockPriceStorage) LoadPrices(ctx context.Context, symbols []string) ([]models.PriceBar, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if len(symbols) == 0 {
		return append([]models.PriceBar(nil), m.Bars...), nil
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	var result []models.PriceBar
	for _, bar := range m.Bars {
		if wanted[bar.Symbol] {
			result = append(result, bar)
		}
	}
	return result, nil
}

func (m *MockPriceStorage) Close() error {
	return nil
}

// MockChannelStorage is a mock implementation of ChannelStorage for testing
type MockChannelStorage struct {
	Rows     []models.ChannelRow
	WriteErr error
}

func (m *MockChannelStorage) WriteChannels(ctx context.Context, rows []models.ChannelRow) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Rows = append(m.Rows, rows...)
	return nil
}

func (m *MockChannelStorage) Close() error {
	return nil
}

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu         sync.Mutex
	Data       map[string]string
	TTLs       map[string]time.Duration
	PubSubData []PubSubMessage
	SetCalls   int
	PublishErr error
	GetErr     error
	SetErr     error
}

// PubSubMessage is a message recorded by MockRedisClient.Publish
type PubSubMessage struct {
	Channel string
	Message string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	value, exists := m.Data[key]
	m.mu.Unlock()
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PubSubData = append(m.PubSubData, PubSubMessage{Channel: channel, Message: string(jsonData)})
	return nil
}

func (m *MockRedisClient) Close() error {
	return nil
}
