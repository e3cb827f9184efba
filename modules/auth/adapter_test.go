package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/taskboard/config"
	domain "github.com/example/taskboard/domain/user"
	"github.com/go-monolith/mono"
	"golang.org/x/crypto/bcrypt"
)

// memContainer routes request-reply calls to registered handlers in process.
type memContainer struct {
	mono.ServiceContainer
	handlers map[string]mono.RequestReplyHandler
}

func newMemContainer() *memContainer {
	return &memContainer{handlers: make(map[string]mono.RequestReplyHandler)}
}

func (c *memContainer) RegisterRequestReplyService(name string, handler mono.RequestReplyHandler) error {
	c.handlers[name] = handler
	return nil
}

func (c *memContainer) GetRequestReplyService(name string) (mono.RequestReplyServiceClient, error) {
	h, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("service %s not registered", name)
	}
	return memClient(h), nil
}

type memClient mono.RequestReplyHandler

func (h memClient) Call(ctx context.Context, data []byte) (*mono.Msg, error) {
	return h.CallMsg(ctx, &mono.Msg{Data: data})
}

func (h memClient) CallMsg(ctx context.Context, msg *mono.Msg) (*mono.Msg, error) {
	resp, err := h(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &mono.Msg{Data: resp}, nil
}

func setupAdapter(t *testing.T) *AuthAdapter {
	t.Helper()

	m := NewModule(config.DevServer{
		DBPath:        filepath.Join(t.TempDir(), "auth.db"),
		JWTSecret:     "adapter-test-secret",
		JWTIssuer:     "adapter-test",
		TokenTTL:      time.Hour,
		AdminUsername: "admin",
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin12345",
		BcryptCost:    bcrypt.MinCost,
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { m.Stop(context.Background()) })

	container := newMemContainer()
	if err := m.RegisterServices(container); err != nil {
		t.Fatalf("RegisterServices() error = %v", err)
	}
	return NewAuthAdapter(container)
}

func TestAuthAdapter_RoundTrip(t *testing.T) {
	adapter := setupAdapter(t)
	ctx := context.Background()

	token, err := adapter.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	claims, err := adapter.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Role != domain.RoleUser {
		t.Errorf("ValidateToken() role = %v, want %v", claims.Role, domain.RoleUser)
	}

	loginToken, err := adapter.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loginToken == "" {
		t.Error("Login() returned empty token")
	}

	u, err := adapter.GetUser(ctx, claims.UserID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@example.com" {
		t.Errorf("GetUser() got = %+v, want alice", u)
	}

	users, err := adapter.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers() len = %d, want 2 (admin and alice)", len(users))
	}
}

func TestAuthAdapter_Errors(t *testing.T) {
	adapter := setupAdapter(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		service string
		want    error
	}{
		{
			name: "wrong password",
			call: func() error {
				_, err := adapter.Login(ctx, "admin", "wrong-password")
				return err
			},
			service: "login",
			want:    ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			call: func() error {
				_, err := adapter.GetUser(ctx, "missing")
				return err
			},
			service: "get-user",
			want:    ErrUserNotFound,
		},
		{
			name: "taken username",
			call: func() error {
				_, err := adapter.Register(ctx, "admin", "other@example.com", "password123")
				return err
			},
			service: "register",
			want:    ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.service+" request failed") {
				t.Errorf("error = %v, want %s prefix", err, tt.service)
			}
			if !strings.Contains(err.Error(), tt.want.Error()) {
				t.Errorf("error = %v, want text of %v", err, tt.want)
			}
		})
	}
}
