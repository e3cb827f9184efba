package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
)

// Client talks to the task board HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new API client for baseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent: "taskboard-client",
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Login exchanges username and password for a credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates an account and returns its credential.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", "",
		RegisterRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// GetUser fetches the identity with the given id.
func (c *Client) GetUser(ctx context.Context, token, id string) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, "get identity", http.MethodGet, "/api/auth/"+url.PathEscape(id), token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers fetches the user directory. Admin only.
func (c *Client) ListUsers(ctx context.Context, token string) ([]user.User, error) {
	var users []user.User
	if err := c.do(ctx, "list directory", http.MethodGet, "/api/admin/fetchallusers", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListTasks fetches the tasks visible to the credential holder.
func (c *Client) ListTasks(ctx context.Context, token string) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, "list tasks", http.MethodGet, "/api/tasks", token, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, token, id string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "get task", http.MethodGet, "/api/tasks/"+url.PathEscape(id), token, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task. Admin only.
func (c *Client) CreateTask(ctx context.Context, token string, spec task.Spec) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "create task", http.MethodPost, "/api/admin/tasks", token, spec, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask replaces the editable fields of a task. Admin only.
func (c *Client) UpdateTask(ctx context.Context, token, id string, spec task.Spec) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "update task", http.MethodPatch, "/api/admin/tasks/"+url.PathEscape(id), token, spec, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks the caller's assignment on a task as completed.
func (c *Client) CompleteTask(ctx context.Context, token, id string) (*task.Task, error) {
	var t task.Task
	path := "/api/tasks/" + url.PathEscape(id) + "/complete"
	if err := c.do(ctx, "complete task", http.MethodPatch, path, token, struct{}{}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask deletes a task. Admin only.
func (c *Client) DeleteTask(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, "/api/admin/tasks/"+url.PathEscape(id), token, nil, nil)
}

// do performs one request. A non-empty token is sent as a bearer credential;
// out may be nil when the response body is not needed.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage extracts a human readable message from an error body.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return strings.TrimSpace(string(data))
}
