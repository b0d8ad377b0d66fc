package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps go-redis with domain key building and logging.
type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Key format constants.
const (
	keyVoteCounts        = "polls:%s:counts"          // polls:{pollID}:counts
	keyUserVoted         = "votes:user:%s:poll:%s"    // votes:user:{userID}:poll:{pollID}
	keyIdentityBootstrap = "identity:bootstrap:%s"    // identity:bootstrap:{deviceID}
	channelVoteCounts    = "vote_counts:%s"           // pub/sub channel per poll
)

// TTL constants.
const (
	// TTLVoteCounts is short so viewers see fresh aggregates quickly; the
	// pub/sub channel covers the real-time path.
	TTLVoteCounts = 30 * time.Second
	// TTLUserVoted is long since a vote never changes once cast.
	TTLUserVoted = 24 * time.Hour
	// TTLIdentityBootstrap only needs to outlive a burst of concurrent
	// first-load requests from the same device.
	TTLIdentityBootstrap = time.Minute
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(redisURL, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Health checks the Redis connection.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get retrieves a value. Returns redis.Nil-wrapped error on a miss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		c.log.Warn("redis_get failed", zap.String("key", key), zap.Error(err))
	}
	return val, err
}

// IsNil reports whether err is a cache miss.
func IsNil(err error) bool {
	return err == redis.Nil
}

// Set stores a value with a TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		c.log.Warn("redis_set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// SetNX stores a value only if the key does not exist. Returns true when the
// key was set, false when it already existed.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		c.log.Warn("redis_setnx failed", zap.String("key", key), zap.Error(err))
	}
	return ok, err
}

// Exists reports how many of the given keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Publish sends a message on a channel. Used for the vote-count push feed;
// delivery is fire-and-forget.
func (c *Client) Publish(ctx context.Context, channel string, payload interface{}) error {
	err := c.rdb.Publish(ctx, channel, payload).Err()
	if err != nil {
		c.log.Warn("redis_publish failed", zap.String("channel", channel), zap.Error(err))
	}
	return err
}

// Subscribe returns a subscription for the given channels.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}
