package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces job keys in Redis.
const DefaultKeyPrefix = "pageocr:job:"

// maxUpdateAttempts bounds the optimistic-lock retries in Update.
const maxUpdateAttempts = 5

// RedisStore keeps jobs in Redis as JSON documents so that several server
// processes can share job state. Expiry uses native key TTLs.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{opts.Addr},
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("jobs: ping redis %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client. The store takes
// ownership and closes the client in Close.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

// Create implements Store.
func (r *RedisStore) Create(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("jobs: marshal job: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(j.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("jobs: create %s: %w", j.ID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	return r.get(ctx, r.client, id)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter, id string) (*Job, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: get %s: %w", id, err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("jobs: unmarshal %s: %w", id, err)
	}
	return &j, nil
}

// Update implements Store. Concurrent writers are detected with WATCH and
// the mutation is retried on conflict.
func (r *RedisStore) Update(ctx context.Context, id string, mutate func(*Job)) (*Job, error) {
	key := r.key(id)
	var out *Job
	txf := func(tx *redis.Tx) error {
		j, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		mutate(j)
		data, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("jobs: marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			out = j
		}
		return err
	}

	for range maxUpdateAttempts {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("jobs: update %s: too many concurrent writers", id)
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("jobs: delete %s: %w", id, err)
	}
	return nil
}

// Expire implements Store.
func (r *RedisStore) Expire(ctx context.Context, id string, d time.Duration) error {
	ok, err := r.client.Expire(ctx, r.key(id), d).Result()
	if err != nil {
		return fmt.Errorf("jobs: expire %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
