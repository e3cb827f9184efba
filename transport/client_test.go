package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendsBearerCredential(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(user.User{ID: "u1", Username: "alice", Role: user.RoleUser})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	u, err := client.GetUser(context.Background(), "tok-123", "u1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/api/auth/u1", gotPath)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, user.RoleUser, u.Role)
}

func TestClient_LoginSendsNoCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)

		var req LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)

		_ = json.NewEncoder(w).Encode(TokenResponse{Token: "fresh"})
	}))
	defer server.Close()

	token, err := NewClient(server.URL).Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestClient_UpdateTaskUsesPatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/admin/tasks/t1", r.URL.Path)

		var spec task.Spec
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		if assert.Len(t, spec.AssignedTo, 1) {
			assert.True(t, spec.AssignedTo[0].Completed)
		}

		_ = json.NewEncoder(w).Encode(task.Task{ID: "t1", Title: spec.Title})
	}))
	defer server.Close()

	got, err := NewClient(server.URL).UpdateTask(context.Background(), "tok", "t1", task.Spec{
		Title:       "renamed",
		Description: "d",
		AssignedTo:  []task.AssigneeSpec{{User: "u1", Completed: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantIs      error
		wantMessage string
	}{
		{
			name:        "unauthorized with message",
			status:      http.StatusUnauthorized,
			body:        `{"error":"unauthorized","message":"Invalid or expired token"}`,
			wantIs:      ErrUnauthorized,
			wantMessage: "Invalid or expired token",
		},
		{
			name:        "forbidden with error only",
			status:      http.StatusForbidden,
			body:        `{"error":"admin role required"}`,
			wantIs:      ErrForbidden,
			wantMessage: "admin role required",
		},
		{
			name:        "not found plain text",
			status:      http.StatusNotFound,
			body:        "no such task",
			wantIs:      ErrNotFound,
			wantMessage: "no such task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ListTasks(context.Background(), "tok")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantIs), "errors.Is(%v, %v)", err, tt.wantIs)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, "list tasks", apiErr.Op)
		})
	}
}

func TestClient_DeleteTaskIgnoresEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL).DeleteTask(context.Background(), "tok", "t1"))
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).ListTasks(context.Background(), "tok")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}
