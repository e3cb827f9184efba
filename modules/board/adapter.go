package board

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// BoardPort is what the API uses to reach task storage.
type BoardPort interface {
	ListTasks(ctx context.Context, viewer user.Claims) ([]task.Task, error)
	GetTask(ctx context.Context, viewer user.Claims, id string) (*task.Task, error)
	CreateTask(ctx context.Context, spec task.Spec) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, spec task.Spec) (*task.Task, error)
	CompleteTask(ctx context.Context, id, userID string) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

var (
	_ BoardPort = (*Service)(nil)
	_ BoardPort = (*BoardAdapter)(nil)
)

// BoardAdapter implements BoardPort using the service container.
type BoardAdapter struct {
	container mono.ServiceContainer
}

// NewBoardAdapter creates a new BoardAdapter.
func NewBoardAdapter(container mono.ServiceContainer) *BoardAdapter {
	return &BoardAdapter{
		container: container,
	}
}

func (a *BoardAdapter) ListTasks(ctx context.Context, viewer user.Claims) ([]task.Task, error) {
	req := ListTasksRequest{UserID: viewer.UserID, Role: string(viewer.Role)}
	var resp ListTasksResponse
	if err := call(ctx, a.container, "list-tasks", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (a *BoardAdapter) GetTask(ctx context.Context, viewer user.Claims, id string) (*task.Task, error) {
	req := GetTaskRequest{UserID: viewer.UserID, Role: string(viewer.Role), TaskID: id}
	var resp task.Task
	if err := call(ctx, a.container, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *BoardAdapter) CreateTask(ctx context.Context, spec task.Spec) (*task.Task, error) {
	req := CreateTaskRequest{Spec: spec}
	var resp task.Task
	if err := call(ctx, a.container, "create-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *BoardAdapter) UpdateTask(ctx context.Context, id string, spec task.Spec) (*task.Task, error) {
	req := UpdateTaskRequest{TaskID: id, Spec: spec}
	var resp task.Task
	if err := call(ctx, a.container, "update-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *BoardAdapter) CompleteTask(ctx context.Context, id, userID string) (*task.Task, error) {
	req := CompleteTaskRequest{TaskID: id, UserID: userID}
	var resp task.Task
	if err := call(ctx, a.container, "complete-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *BoardAdapter) DeleteTask(ctx context.Context, id string) error {
	req := DeleteTaskRequest{TaskID: id}
	var resp DeleteTaskResponse
	return call(ctx, a.container, "delete-task", &req, &resp)
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
