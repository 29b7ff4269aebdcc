// Package session provides core.SessionStore implementations for the
// ephemeral state the portal keeps outside the database: registration
// sessions, chat drafts and presence pings.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/GrupoTcc462/StudyMate/core"
)

type redisStore struct {
	client *redis.Client
}

var _ core.SessionStore = (*redisStore)(nil) // interface compliance check

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(conf *core.Config) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "getting key")
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.Wrap(s.client.Set(ctx, key, val, ttl).Err(), "setting key")
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, key).Err(), "deleting key")
}

func (s *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning keys")
	}
	return keys, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
