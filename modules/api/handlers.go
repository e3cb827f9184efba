package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/example/taskboard/domain/task"
	domain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/board"
	"github.com/gofiber/fiber/v2"
)

// errUnknownAssignee is returned when a task names a user that does not exist.
var errUnknownAssignee = errors.New("unknown assignee")

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth  auth.AuthPort
	board board.BoardPort
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, boardPort board.BoardPort) *Handlers {
	return &Handlers{
		auth:  authPort,
		board: boardPort,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Username, email and password are required")
	}

	token, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TokenResponse{Token: token})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{Token: token})
}

// GetUser returns one account. Users may only read their own.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	id := c.Params("id")
	if claims.Role != domain.RoleAdmin && claims.UserID != id {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You may only view your own profile",
		})
	}

	u, err := h.auth.GetUser(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(u)
}

// ListUsers returns every account.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// ListTasks returns the tasks visible to the caller.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	tasks, err := h.board.ListTasks(c.UserContext(), *claims)
	if err != nil {
		return h.handleError(c, err)
	}
	if err := h.populate(c.UserContext(), tasks...); err != nil {
		return h.handleError(c, err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return c.Status(fiber.StatusOK).JSON(tasks)
}

// GetTask returns one task visible to the caller.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	t, err := h.board.GetTask(c.UserContext(), *claims, c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return h.respondTask(c, fiber.StatusOK, t)
}

// CompleteTask marks the caller's own assignment as completed.
func (h *Handlers) CompleteTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	t, err := h.board.CompleteTask(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.handleError(c, err)
	}
	return h.respondTask(c, fiber.StatusOK, t)
}

// CreateTask creates a task.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	spec, err := h.parseSpec(c)
	if err != nil {
		return h.handleError(c, err)
	}

	t, err := h.board.CreateTask(c.UserContext(), spec)
	if err != nil {
		return h.handleError(c, err)
	}
	return h.respondTask(c, fiber.StatusCreated, t)
}

// UpdateTask replaces the title, description and assignees of a task.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	spec, err := h.parseSpec(c)
	if err != nil {
		return h.handleError(c, err)
	}

	t, err := h.board.UpdateTask(c.UserContext(), c.Params("id"), spec)
	if err != nil {
		return h.handleError(c, err)
	}
	return h.respondTask(c, fiber.StatusOK, t)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	if err := h.board.DeleteTask(c.UserContext(), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: "Task deleted"})
}

// parseSpec reads a task body and checks that every assignee exists.
func (h *Handlers) parseSpec(c *fiber.Ctx) (task.Spec, error) {
	var spec task.Spec
	if err := c.BodyParser(&spec); err != nil {
		return task.Spec{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := spec.Validate(); err != nil {
		return task.Spec{}, err
	}
	if len(spec.AssignedTo) == 0 {
		return spec, nil
	}

	directory, err := h.directory(c.UserContext())
	if err != nil {
		return task.Spec{}, err
	}
	for _, a := range spec.AssignedTo {
		if _, ok := directory[a.User]; !ok {
			return task.Spec{}, fmt.Errorf("%w: %s", errUnknownAssignee, a.User)
		}
	}
	return spec, nil
}

func (h *Handlers) respondTask(c *fiber.Ctx, status int, t *task.Task) error {
	if err := h.populate(c.UserContext(), *t); err != nil {
		return h.handleError(c, err)
	}
	return c.Status(status).JSON(t)
}

// populate replaces assignee ids with full user objects. Slices share their
// backing arrays with the caller, so the caller's tasks are filled in place.
func (h *Handlers) populate(ctx context.Context, tasks ...task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	directory, err := h.directory(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		for i, a := range t.AssignedTo {
			if u, ok := directory[a.User.ID]; ok {
				t.AssignedTo[i].User = u
			}
		}
	}
	return nil
}

func (h *Handlers) directory(ctx context.Context) (map[string]domain.User, error) {
	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// handleError maps service errors onto HTTP responses. Errors that crossed
// the service container only keep their message, so both identity and
// message text are matched.
func (h *Handlers) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{
			Error:   statusCode(fe.Code),
			Message: fe.Message,
		})
	}

	switch {
	case matches(err, auth.ErrInvalidCredentials):
		return respond(c, fiber.StatusUnauthorized, "Invalid username or password")
	case matches(err, auth.ErrUserExists):
		return respond(c, fiber.StatusConflict, "Username or email already taken")
	case matches(err, auth.ErrInvalidUsername),
		matches(err, auth.ErrInvalidEmail),
		matches(err, auth.ErrWeakPassword),
		matches(err, auth.ErrPasswordTooLong),
		matches(err, task.ErrTitleRequired),
		matches(err, task.ErrDescriptionRequired),
		matches(err, task.ErrDuplicateAssignee),
		matches(err, errUnknownAssignee):
		return respond(c, fiber.StatusBadRequest, capitalize(errorText(err)))
	case matches(err, auth.ErrUserNotFound):
		return respond(c, fiber.StatusNotFound, "User not found")
	case matches(err, board.ErrTaskNotFound):
		return respond(c, fiber.StatusNotFound, "Task not found")
	case matches(err, board.ErrNotAssigned):
		return respond(c, fiber.StatusForbidden, "Task is not assigned to you")
	default:
		log.Printf("[api] Internal error: %v", err)
		return respond(c, fiber.StatusInternalServerError, "An internal error occurred")
	}
}

func matches(err, target error) bool {
	return errors.Is(err, target) || strings.Contains(err.Error(), target.Error())
}

// errorText strips the service call prefix from a validation error.
func errorText(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && !matches(err, errUnknownAssignee) {
		return msg[i+2:]
	}
	if i := strings.Index(msg, errUnknownAssignee.Error()); i >= 0 {
		return msg[i:]
	}
	return msg
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func respond(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:   statusCode(status),
		Message: msg,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respond(c, fiber.StatusBadRequest, msg)
}

func unauthenticated(c *fiber.Ctx) error {
	return respond(c, fiber.StatusUnauthorized, "User not authenticated")
}

func statusCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}
