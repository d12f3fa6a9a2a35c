package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/authcore/internal/domain"
	"github.com/redis/go-redis/v9"
)

// createUserLua claims the email index key and writes the user hash in one
// atomic step.
// KEYS[1] = email index key
// KEYS[2] = user hash key
// ARGV    = id, email, name, phone, password_hash, timestamp
//
// Returns 1 on success, 0 when the email is already taken.
var createUserLua = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[2],
  'id', ARGV[1],
  'email', ARGV[2],
  'name', ARGV[3],
  'phone', ARGV[4],
  'password_hash', ARGV[5],
  'created_at', ARGV[6],
  'updated_at', ARGV[6])
return 1
`)

// UserRepository implements domain.UserRepository using Redis.
type UserRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewUserRepository creates a new Redis-backed UserRepository.
func NewUserRepository(client redis.UniversalClient, prefix string) *UserRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &UserRepository{client: client, prefix: prefix}
}

func (r *UserRepository) userKey(id string) string {
	return r.prefix + ":user:" + id
}

func (r *UserRepository) emailKey(email string) string {
	return r.prefix + ":user:email:" + email
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	id := uuid.NewString()
	now := time.Now().UTC()

	created, err := createUserLua.Run(ctx, r.client,
		[]string{r.emailKey(user.Email), r.userKey(id)},
		id, user.Email, user.Name, user.Phone, user.PasswordHash, now.Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if created == 0 {
		return domain.ErrDuplicateEmail
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email index: %w", err)
	}

	user, err := r.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// load returns (nil, nil) when the hash does not exist.
func (r *UserRepository) load(ctx context.Context, id string) (*domain.User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	user := &domain.User{
		ID:           fields["id"],
		Email:        fields["email"],
		Name:         fields["name"],
		Phone:        fields["phone"],
		PasswordHash: fields["password_hash"],
	}
	if user.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return user, nil
}
