package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/modata-dev/modata/pkg/schema"
)

// RedisStore persists documents in Redis for shared deployments: one key per
// slot, a listing key and a last-opened pointer key.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig configures a Redis connection.
type RedisConfig struct {
	Addr     string // host:port, e.g. "localhost:6379"
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// List returns saved metadata, most recently saved first.
func (s *RedisStore) List(ctx context.Context) ([]Meta, error) {
	data, err := s.client.Get(ctx, keyIndex).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var metas []Meta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return metas, nil
}

// Save stores the document and updates the listing and pointer.
func (s *RedisStore) Save(ctx context.Context, d schema.Diagram) error {
	doc, err := schema.Marshal(d)
	if err != nil {
		return err
	}
	metas, err := s.List(ctx)
	if err != nil {
		return err
	}
	metas = promote(metas, Meta{Name: d.Name, UpdatedAt: d.UpdatedAt})
	idx, err := json.Marshal(metas)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keySlot+d.Name, doc, 0)
	pipe.Set(ctx, keyIndex, idx, 0)
	pipe.Set(ctx, keyLast, d.Name, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns the named document.
func (s *RedisStore) Load(ctx context.Context, name string) (schema.Diagram, error) {
	data, err := s.client.Get(ctx, keySlot+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return schema.Diagram{}, ErrNotFound
	}
	if err != nil {
		return schema.Diagram{}, err
	}
	return schema.Unmarshal(data)
}

// Delete removes the named document and its index entry.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	metas, err := s.List(ctx)
	if err != nil {
		return err
	}
	idx, err := json.Marshal(remove(metas, name))
	if err != nil {
		return err
	}

	last, _ := s.client.Get(ctx, keyLast).Result()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keySlot+name)
	pipe.Set(ctx, keyIndex, idx, 0)
	if last == name {
		pipe.Del(ctx, keyLast)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// SetLastOpened records the last-opened name.
func (s *RedisStore) SetLastOpened(ctx context.Context, name string) error {
	return s.client.Set(ctx, keyLast, name, 0).Err()
}

// LastOpened returns the last-opened name.
func (s *RedisStore) LastOpened(ctx context.Context) (string, error) {
	name, err := s.client.Get(ctx, keyLast).Result()
	if errors.Is(err, redis.Nil) || name == "" {
		return "", ErrNotFound
	}
	return name, err
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
