package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/config"
	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/serialization"
)

const (
	fieldData    = "data"
	fieldFormat  = "format"
	fieldVersion = "version"
	fieldID      = "id"

	formatHPK = "hpk"
)

// RedisBackend stores the container in a Redis hash under one key. The
// hash holds the encoded bytes alongside their format, format version and
// container id.
type RedisBackend struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	opts   options
}

// NewRedisBackend wraps an existing client. A positive ttl expires the key
// after every commit.
func NewRedisBackend(client redis.UniversalClient, key string, ttl time.Duration, opts ...Option) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("redis backend: client is nil")
	}
	if key == "" {
		return nil, errors.New("redis backend: key is empty")
	}
	return &RedisBackend{client: client, key: key, ttl: ttl, opts: newOptions(opts)}, nil
}

// NewRedisBackendFromConfig creates a client from cfg and wraps it.
func NewRedisBackendFromConfig(cfg config.RedisConfig, opts ...Option) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisBackend(client, cfg.Key, cfg.TTL, opts...)
}

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Location implements Backend. Clients created by redis.NewClient are
// identified by address and database; other clients by identity.
func (b *RedisBackend) Location() string {
	if c, ok := b.client.(*redis.Client); ok {
		o := c.Options()
		return fmt.Sprintf("redis:%s/%d/%s", o.Addr, o.DB, b.key)
	}
	return fmt.Sprintf("redis:%p/%s", b.client, b.key)
}

// Key returns the hash key.
func (b *RedisBackend) Key() string { return b.key }

// Commit implements Backend.
func (b *RedisBackend) Commit(ctx context.Context, root *container.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, header, err := serialization.Marshal(root, b.opts.writerOptions())
	if err != nil {
		return fmt.Errorf("commit %s: %w", b.key, err)
	}

	fields := map[string]any{
		fieldData:    data,
		fieldFormat:  formatHPK,
		fieldVersion: strconv.Itoa(header.FormatVersion),
		fieldID:      header.ID,
	}
	_, err = b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, b.key)
		p.HSet(ctx, b.key, fields)
		if b.ttl > 0 {
			p.Expire(ctx, b.key, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", b.key, err)
	}
	b.opts.logger.Debug("committed container",
		zap.String("key", b.key),
		zap.String("id", header.ID),
		zap.Int("bytes", len(data)))
	return nil
}

// Fetch implements Backend.
func (b *RedisBackend) Fetch(ctx context.Context, writable bool) (*container.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", b.key, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", b.key, container.ErrNotFound)
	}

	if format := result[fieldFormat]; format != formatHPK {
		return nil, fmt.Errorf("fetch %s: %w: format %q", b.key, container.ErrCorruptData, format)
	}
	version, err := strconv.Atoi(result[fieldVersion])
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: version %q", b.key, container.ErrCorruptData, result[fieldVersion])
	}
	if version > serialization.FormatVersion {
		return nil, fmt.Errorf("fetch %s: %w: got %d, expected %d",
			b.key, serialization.ErrUnsupportedVersion, version, serialization.FormatVersion)
	}

	root, header, err := serialization.Decode([]byte(result[fieldData]), b.opts.readerOptions(writable))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", b.key, err)
	}
	if id := result[fieldID]; id != "" && id != header.ID {
		return nil, fmt.Errorf("fetch %s: %w: id %s does not match header %s", b.key, container.ErrCorruptData, id, header.ID)
	}
	return root, nil
}

// Exists implements Backend.
func (b *RedisBackend) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := b.client.Exists(ctx, b.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTL returns the remaining time to live of the key, or a non-positive
// duration when it has none.
func (b *RedisBackend) TTL(ctx context.Context) (time.Duration, error) {
	return b.client.TTL(ctx, b.key).Result()
}

// Delete removes the stored container.
func (b *RedisBackend) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key).Err()
}
