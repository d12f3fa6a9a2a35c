// Package redis implements the credential store on Redis. Each user is a
// hash under <prefix>:user:<id>; <prefix>:user:email:<email> maps an email
// to its user ID and is the uniqueness arbiter.
package redis

import (
	"context"
	"fmt"

	"github.com/msomdec/authcore/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "authcore"

// DB wraps a Redis client and implements domain.Database.
type DB struct {
	client *redis.Client
	prefix string
}

// New connects to the Redis server described by redisURL
// (redis://[:password@]host:port/db) and verifies the connection.
func New(ctx context.Context, redisURL string) (*DB, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &DB{client: client, prefix: DefaultKeyPrefix}, nil
}

// Migrate is a no-op; Redis needs no schema.
func (d *DB) Migrate(context.Context) error {
	return nil
}

// Users returns the Redis-backed user repository.
func (d *DB) Users() domain.UserRepository {
	return NewUserRepository(d.client, d.prefix)
}

// Close closes the client connection pool.
func (d *DB) Close() error {
	return d.client.Close()
}
