package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trogers1052/stock-sentiment-service/internal/config"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	// SnapshotKey holds the last broadcast all-stocks snapshot
	SnapshotKey = "sentiment:snapshot"
	// UpdatesChannel receives every sentiment_update broadcast
	UpdatesChannel = "sentiment:updates"
)

// Client wraps the Redis client with sentiment snapshot operations
type Client struct {
	rdb         *redis.Client
	snapshotTTL time.Duration
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(rdb, cfg.SnapshotTTL), nil
}

// NewWithClient wraps an existing go-redis client
func NewWithClient(rdb *redis.Client, snapshotTTL time.Duration) *Client {
	return &Client{rdb: rdb, snapshotTTL: snapshotTTL}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetSnapshot caches the latest snapshot message
func (c *Client) SetSnapshot(ctx context.Context, update models.SentimentUpdate) error {
	jsonData, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, SnapshotKey, jsonData, c.snapshotTTL).Err()
}

// GetSnapshot returns the cached snapshot, or nil when none is cached
func (c *Client) GetSnapshot(ctx context.Context) (*models.SentimentUpdate, error) {
	jsonData, err := c.rdb.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var update models.SentimentUpdate
	if err := json.Unmarshal(jsonData, &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &update, nil
}

// Publish publishes a message to a channel
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.rdb.Publish(ctx, channel, jsonData).Err()
}

// Broadcast caches the snapshot and publishes it on UpdatesChannel
func (c *Client) Broadcast(ctx context.Context, update models.SentimentUpdate) error {
	if err := c.SetSnapshot(ctx, update); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	if err := c.Publish(ctx, UpdatesChannel, update); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}
