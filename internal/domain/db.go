package domain

import "context"

// Database defines lifecycle operations for the underlying credential store.
// Each implementation (SQLite, Postgres, Redis) owns its own schema strategy,
// so the backend is swappable without touching the auth service.
type Database interface {
	Migrate(ctx context.Context) error
	Users() UserRepository
	Close() error
}
