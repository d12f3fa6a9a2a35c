package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/msomdec/authcore/internal/domain"
)

// decoyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one hash verification.
const decoyPassword = "decoy-password-for-unknown-accounts"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	Token string
	User  *domain.User
}

// AuthService handles user registration, login, and session token checks.
type AuthService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	tokens *TokenIssuer

	decoyOnce   sync.Once
	decoyDigest string
	decoyErr    error
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new account and returns a session token for it.
// A taken email yields domain.ErrDuplicateEmail whether it is caught by the
// lookup or by the store's uniqueness constraint.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and returns a fresh session token. An unknown
// email and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user == nil {
		if err := s.verifyDecoy(ctx, password); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a session token to its user. Every token failure,
// and a token whose user no longer exists, is domain.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) verifyDecoy(ctx context.Context, password string) error {
	s.decoyOnce.Do(func() {
		s.decoyDigest, s.decoyErr = s.hasher.Hash(context.WithoutCancel(ctx), decoyPassword)
	})
	if s.decoyErr != nil {
		return fmt.Errorf("hash decoy password: %w", s.decoyErr)
	}
	if _, err := s.hasher.Verify(ctx, password, s.decoyDigest); err != nil {
		return fmt.Errorf("verify decoy password: %w", err)
	}
	return nil
}
