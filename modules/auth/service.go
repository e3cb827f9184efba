package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/example/taskboard/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username is empty or too long.
	ErrInvalidUsername = errors.New("username must be 3 to 32 characters")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// AuthService handles accounts and tokens.
type AuthService struct {
	repo   *AccountRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *AccountRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a regular user account and returns a token for it.
func (s *AuthService) Register(_ context.Context, username, email, password string) (string, error) {
	account, err := s.createAccount(username, email, password, domain.RoleUser)
	if err != nil {
		return "", err
	}
	return s.jwt.Generate(account.ID, account.Role)
}

// Login authenticates by username and returns a token.
func (s *AuthService) Login(_ context.Context, username, password string) (string, error) {
	account, err := s.repo.FindByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.jwt.Generate(account.ID, account.Role)
}

// ValidateToken validates a token and returns its claims. The role is taken
// from the stored account so demotions apply to live tokens.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	claims.Role = account.Role
	return claims, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(_ context.Context, userID string) (*domain.User, error) {
	account, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	u := account.ToUser()
	return &u, nil
}

// ListUsers returns every user.
func (s *AuthService) ListUsers(_ context.Context) ([]domain.User, error) {
	accounts, err := s.repo.FindAll()
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.ToUser())
	}
	return users, nil
}

// EnsureAdmin creates the admin account unless its username already exists.
func (s *AuthService) EnsureAdmin(_ context.Context, username, email, password string) error {
	_, err := s.repo.FindByUsername(username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if _, err := s.createAccount(username, email, password, domain.RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	return nil
}

func (s *AuthService) createAccount(username, email, password string, role domain.Role) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < 3 || n > 32 {
		return nil, ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	taken, err := s.repo.Taken(username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check username and email: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}
