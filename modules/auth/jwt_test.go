package auth

import (
	"testing"
	"time"

	domain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/session"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey: "test-secret-key",
		TokenTTL:  time.Hour,
		Issuer:    "test-issuer",
	}
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	tests := []struct {
		name   string
		userID string
		role   domain.Role
	}{
		{"admin", "user-123", domain.RoleAdmin},
		{"user", "user-456", domain.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.Generate(tt.userID, tt.role)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			claims, err := manager.Validate(token)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if claims.UserID != tt.userID {
				t.Errorf("claims.UserID = %v, want %v", claims.UserID, tt.userID)
			}
			if claims.Role != tt.role {
				t.Errorf("claims.Role = %v, want %v", claims.Role, tt.role)
			}
			if time.Until(claims.ExpiresAt) <= 0 {
				t.Errorf("claims.ExpiresAt = %v, want a future time", claims.ExpiresAt)
			}
		})
	}
}

// The client decodes tokens without the secret; both sides must agree on
// the claim names.
func TestJWTManager_TokensDecodeOnClient(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.Generate("user-789", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := session.NewJWTDecoder().Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if claims.UserID != "user-789" || claims.Role != domain.RoleAdmin {
		t.Errorf("Decode() got = %+v, want user-789/admin", claims)
	}
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "random string",
			token: "not.a.valid.token",
		},
		{
			name:  "malformed jwt",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Validate(tt.token)
			if err != ErrInvalidToken {
				t.Errorf("Validate() error = %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}

func TestJWTManager_WrongSecretKey(t *testing.T) {
	other := testJWTConfig()
	other.SecretKey = "secret-key-2"

	token, err := NewJWTManager(testJWTConfig()).Generate("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := NewJWTManager(other).Validate(token); err == nil {
		t.Error("Validate() should fail with different secret key")
	}
}

func TestJWTManager_WrongIssuer(t *testing.T) {
	other := testJWTConfig()
	other.Issuer = "someone-else"

	token, err := NewJWTManager(other).Generate("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := NewJWTManager(testJWTConfig()).Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	config := testJWTConfig()
	config.TokenTTL = -time.Minute
	manager := NewJWTManager(config)

	token, err := manager.Generate("user-123", domain.RoleUser)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := manager.Validate(token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.Generate("user-123", domain.Role("root"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := manager.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidToken)
	}
}
