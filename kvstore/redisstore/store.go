// Package redisstore provides a Redis-backed kvstore.Store for embedders
// that keep shop sessions in shared infrastructure rather than on disk.
package redisstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-shop-client/kvstore"
)

var _ kvstore.Store = (*Store)(nil)

type Store struct {
	client *redis.Client
	prefix string // Optional prefix, e.g. one per storefront user
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) redisKey(key string) string {
	if s.prefix == "" {
		return fmt.Sprintf("shop:%s", key)
	}
	return fmt.Sprintf("%s:shop:%s", s.prefix, key)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", kvstore.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.Get] client.Get")
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return errors.Wrap(err, "[Store.Set] client.Set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, "[Store.Delete] client.Del")
	}
	return nil
}
