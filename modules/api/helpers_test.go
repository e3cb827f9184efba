package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	domain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/board"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testServer is the API backed by real services on a temporary database.
type testServer struct {
	app        *fiber.App
	auth       *auth.AuthService
	board      *board.Service
	adminToken string
}

// member is a registered non-admin account.
type member struct {
	id    string
	token string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	accounts := auth.NewAccountRepository(db)
	if err := accounts.Migrate(); err != nil {
		t.Fatalf("failed to migrate accounts: %v", err)
	}
	tasks := board.NewRepository(db)
	if err := tasks.Migrate(); err != nil {
		t.Fatalf("failed to migrate tasks: %v", err)
	}

	authSvc := auth.NewAuthService(accounts, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewJWTManager(auth.JWTConfig{
		SecretKey: "test-secret-key",
		TokenTTL:  time.Hour,
		Issuer:    "test-issuer",
	}))
	ctx := context.Background()
	if err := authSvc.EnsureAdmin(ctx, "admin", "admin@example.com", "admin12345"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	adminToken, err := authSvc.Login(ctx, "admin", "admin12345")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	boardSvc := board.NewService(tasks)
	return &testServer{
		app:        NewApp(authSvc, boardSvc),
		auth:       authSvc,
		board:      boardSvc,
		adminToken: adminToken,
	}
}

func (s *testServer) register(t *testing.T, username string) member {
	t.Helper()
	ctx := context.Background()
	token, err := s.auth.Register(ctx, username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	claims, err := s.auth.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken(%s) error = %v", username, err)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("registered role = %v, want %v", claims.Role, domain.RoleUser)
	}
	return member{id: claims.UserID, token: token}
}

// call performs one request and decodes a 2xx body into out when out is not nil.
func (s *testServer) call(t *testing.T, method, path, token string, body, out any) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", data, err)
		}
	}
	return resp.StatusCode, string(data)
}
