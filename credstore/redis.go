package credstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultProfile = "default"

// RedisStore keeps one hash per profile under "<prefix>:cred:<profile>".
type RedisStore struct {
	redis   redis.UniversalClient
	prefix  string
	profile string
}

// NewRedisStore returns a RedisStore. An empty profile becomes "default".
func NewRedisStore(client redis.UniversalClient, prefix, profile string) *RedisStore {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = defaultProfile
	}
	return &RedisStore{
		redis:   client,
		prefix:  prefix,
		profile: profile,
	}
}

// Key returns the hash key this store owns.
func (s *RedisStore) Key() string {
	return s.prefix + ":cred:" + s.profile
}

// Save replaces the hash in one MULTI/EXEC so stale optional fields never survive.
func (s *RedisStore) Save(ctx context.Context, r *Record) error {
	fields, err := Encode(r)
	if err != nil {
		return err
	}

	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	key := s.Key()
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads the hash. A missing key yields (nil, nil).
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.Key()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return Decode(fields)
}

// Clear deletes the hash. Deleting a missing key is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
