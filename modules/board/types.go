package board

import "github.com/example/taskboard/domain/task"

// ListTasksRequest asks for the tasks visible to a viewer.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ListTasksResponse carries a task listing.
type ListTasksResponse struct {
	Tasks []task.Task `json:"tasks"`
}

// GetTaskRequest asks for one task on behalf of a viewer.
type GetTaskRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	TaskID string `json:"task_id"`
}

// CreateTaskRequest carries a new task.
type CreateTaskRequest struct {
	Spec task.Spec `json:"spec"`
}

// UpdateTaskRequest carries the new content of a task.
type UpdateTaskRequest struct {
	TaskID string    `json:"task_id"`
	Spec   task.Spec `json:"spec"`
}

// CompleteTaskRequest marks a task completed for one user.
type CompleteTaskRequest struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// DeleteTaskRequest removes a task.
type DeleteTaskRequest struct {
	TaskID string `json:"task_id"`
}

// DeleteTaskResponse confirms a deletion.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}
