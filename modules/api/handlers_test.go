package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/example/taskboard/domain/task"
	domain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/board"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers_RegisterAndLogin(t *testing.T) {
	s := setupTestServer(t)

	var created TokenResponse
	status, _ := s.call(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	}, &created)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, created.Token)

	status, body := s.call(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "password123",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "already taken")

	status, body = s.call(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Password must be at least 8 characters")

	var loggedIn TokenResponse
	status, _ = s.call(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Username: "alice", Password: "password123",
	}, &loggedIn)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, loggedIn.Token)

	status, _ = s.call(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Username: "alice", Password: "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.call(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlers_GetUser(t *testing.T) {
	s := setupTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	var self domain.User
	status, _ := s.call(t, http.MethodGet, "/api/auth/"+alice.id, alice.token, nil, &self)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.id, self.ID)
	assert.Equal(t, "alice", self.Username)
	assert.Equal(t, domain.RoleUser, self.Role)

	status, _ = s.call(t, http.MethodGet, "/api/auth/"+bob.id, alice.token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.call(t, http.MethodGet, "/api/auth/"+bob.id, s.adminToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.call(t, http.MethodGet, "/api/auth/missing", s.adminToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.call(t, http.MethodGet, "/api/auth/"+alice.id, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHandlers_ListUsersIsAdminOnly(t *testing.T) {
	s := setupTestServer(t)
	alice := s.register(t, "alice")

	status, _ := s.call(t, http.MethodGet, "/api/admin/fetchallusers", alice.token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var users []domain.User
	status, _ = s.call(t, http.MethodGet, "/api/admin/fetchallusers", s.adminToken, nil, &users)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, users, 2)
}

func TestHandlers_TaskLifecycle(t *testing.T) {
	s := setupTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	spec := task.Spec{
		Title:       "Write report",
		Description: "Quarterly numbers",
		AssignedTo:  []task.AssigneeSpec{{User: alice.id}, {User: bob.id}},
	}

	var created task.Task
	status, _ := s.call(t, http.MethodPost, "/api/admin/tasks", s.adminToken, spec, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, task.StatusPending, created.Status)
	require.Len(t, created.AssignedTo, 2)
	assert.Equal(t, "alice", created.AssignedTo[0].User.Username)
	assert.Equal(t, "bob", created.AssignedTo[1].User.Username)

	status, _ = s.call(t, http.MethodPost, "/api/admin/tasks", alice.token, spec, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var listed []task.Task
	status, _ = s.call(t, http.MethodGet, "/api/tasks", alice.token, nil, &listed)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	var completed task.Task
	status, _ = s.call(t, http.MethodPatch, "/api/tasks/"+created.ID+"/complete", alice.token, nil, &completed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, task.StatusPending, completed.Status)
	mine, ok := completed.Assignment(alice.id)
	require.True(t, ok)
	assert.True(t, mine.Completed)

	status, _ = s.call(t, http.MethodPatch, "/api/tasks/"+created.ID+"/complete", bob.token, nil, &completed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, task.StatusCompleted, completed.Status)

	status, _ = s.call(t, http.MethodPatch, "/api/tasks/"+created.ID+"/complete", s.adminToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	update := task.Spec{
		Title:       "Write final report",
		Description: "Quarterly numbers",
		AssignedTo:  []task.AssigneeSpec{{User: alice.id, Completed: true}},
	}
	var updated task.Task
	status, _ = s.call(t, http.MethodPatch, "/api/admin/tasks/"+created.ID, s.adminToken, update, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Write final report", updated.Title)
	assert.Equal(t, []string{alice.id}, updated.AssigneeIDs())
	assert.Equal(t, task.StatusCompleted, updated.Status)

	status, _ = s.call(t, http.MethodGet, "/api/tasks/"+created.ID, bob.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.call(t, http.MethodDelete, "/api/admin/tasks/"+created.ID, s.adminToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.call(t, http.MethodGet, "/api/tasks/"+created.ID, s.adminToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.call(t, http.MethodDelete, "/api/admin/tasks/"+created.ID, s.adminToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandlers_CreateTaskValidation(t *testing.T) {
	s := setupTestServer(t)
	alice := s.register(t, "alice")

	tests := []struct {
		name        string
		spec        task.Spec
		wantMessage string
	}{
		{
			name:        "missing title",
			spec:        task.Spec{Description: "d"},
			wantMessage: "Title is required",
		},
		{
			name:        "missing description",
			spec:        task.Spec{Title: "t"},
			wantMessage: "Description is required",
		},
		{
			name:        "duplicate assignee",
			spec:        task.Spec{Title: "t", Description: "d", AssignedTo: []task.AssigneeSpec{{User: alice.id}, {User: alice.id}}},
			wantMessage: "User is assigned more than once",
		},
		{
			name:        "unknown assignee",
			spec:        task.Spec{Title: "t", Description: "d", AssignedTo: []task.AssigneeSpec{{User: "ghost"}}},
			wantMessage: "Unknown assignee: ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.call(t, http.MethodPost, "/api/admin/tasks", s.adminToken, tt.spec, nil)
			if status != http.StatusBadRequest {
				t.Errorf("status = %v, want %v", status, http.StatusBadRequest)
			}
			if !strings.Contains(body, tt.wantMessage) {
				t.Errorf("body = %v, want to contain %v", body, tt.wantMessage)
			}
		})
	}
}

// mockBoardPort returns errors the way they arrive through the service
// container: message text only.
type mockBoardPort struct {
	err error
}

func (m *mockBoardPort) ListTasks(context.Context, domain.Claims) ([]task.Task, error) {
	return nil, m.err
}

func (m *mockBoardPort) GetTask(context.Context, domain.Claims, string) (*task.Task, error) {
	return nil, m.err
}

func (m *mockBoardPort) CreateTask(context.Context, task.Spec) (*task.Task, error) {
	return nil, m.err
}

func (m *mockBoardPort) UpdateTask(context.Context, string, task.Spec) (*task.Task, error) {
	return nil, m.err
}

func (m *mockBoardPort) CompleteTask(context.Context, string, string) (*task.Task, error) {
	return nil, m.err
}

func (m *mockBoardPort) DeleteTask(context.Context, string) error {
	return m.err
}

func TestHandlers_ErrorsFromServiceContainer(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"task not found", fmt.Errorf("get-task request failed: %s", board.ErrTaskNotFound.Error()), http.StatusNotFound},
		{"not assigned", fmt.Errorf("complete-task request failed: %s", board.ErrNotAssigned.Error()), http.StatusForbidden},
		{"user not found", fmt.Errorf("get-user request failed: %s", auth.ErrUserNotFound.Error()), http.StatusNotFound},
		{"unexpected", errors.New("nats: timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(validTokenAs(domain.RoleUser), &mockBoardPort{err: tt.err})
			s := &testServer{app: app}

			status, _ := s.call(t, http.MethodPatch, "/api/tasks/t1/complete", "token", nil, nil)
			if status != tt.expectedStatus {
				t.Errorf("status = %v, want %v", status, tt.expectedStatus)
			}
		})
	}
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: customErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nothing here")
	})
	s := &testServer{app: app}

	status, body := s.call(t, http.MethodGet, "/boom", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, `"not_found"`)
	assert.Contains(t, body, "nothing here")
}
