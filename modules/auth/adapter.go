package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/taskboard/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
// AuthService satisfies it directly; AuthAdapter satisfies it over the
// service container.
type AuthPort interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

var (
	_ AuthPort = (*AuthService)(nil)
	_ AuthPort = (*AuthAdapter)(nil)
)

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account and returns its token.
func (a *AuthAdapter) Register(ctx context.Context, username, email, password string) (string, error) {
	req := RegisterRequest{Username: username, Email: email, Password: password}
	var resp TokenResponse

	if err := call(ctx, a.container, "register", &req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Login exchanges username and password for a token.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (string, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp TokenResponse

	if err := call(ctx, a.container, "login", &req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ValidateToken validates a token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := call(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &domain.Claims{
		UserID:    resp.UserID,
		Role:      domain.Role(resp.Role),
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp domain.User

	if err := call(ctx, a.container, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers retrieves every user.
func (a *AuthAdapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	req := ListUsersRequest{}
	var resp ListUsersResponse

	if err := call(ctx, a.container, "list-users", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// call invokes a request-reply service and wraps its error with the service name.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}
