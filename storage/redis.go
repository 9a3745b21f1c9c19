package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/qkd-transfer-backend/interfaces"
)

const defaultRedisKeyPrefix = "qkd:ciphertext:"

// RedisBackend implements a storage backend on a Redis server.
// Ciphertexts are stored as plain string values under <prefix><content id hex>,
// optionally with a TTL.
type RedisBackend struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend wraps an existing client. A zero ttl stores keys without expiry.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration, log *slog.Logger) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	opts := client.Options()
	return &RedisBackend{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		log:         log,
		locationURI: fmt.Sprintf("redis://%s/%d?prefix=%s", opts.Addr, opts.DB, prefix),
	}
}

// Fetch retrieves a ciphertext by its content identifier.
func (b *RedisBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrContentNotFound
	} else if err != nil {
		b.log.Error("Failed to read from Redis",
			slog.String("content_id", id.Short()),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Fetched content from Redis",
		slog.String("content_id", id.Short()),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves a ciphertext and returns its content identifier.
func (b *RedisBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	if err := b.client.Set(ctx, b.key(id), data, b.ttl).Err(); err != nil {
		return id, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored content in Redis",
		slog.String("contentID", id.Short()),
		slog.Duration("ttl", b.ttl))

	return id, nil
}

// Available pings the server.
func (b *RedisBackend) Available(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := b.client.Ping(pingCtx).Err(); err != nil {
		b.log.Debug("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", b.client.Options().Addr)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the client's connections.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(id interfaces.ContentID) string {
	return b.prefix + id.String()
}
