package domain

import (
	"context"
	"time"
)

// User represents a registered account. PasswordHash always holds a digest
// produced by a PasswordHasher, never the plaintext.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines persistence operations for users.
//
// FindByEmail returns (nil, nil) when no account matches; absence is not an
// error. Create assigns ID, CreatedAt and UpdatedAt and returns
// ErrDuplicateEmail when the email is already taken, including when a
// concurrent Create won the race.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
