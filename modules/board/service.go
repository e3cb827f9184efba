package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
	"github.com/google/uuid"
)

// Service holds the task rules of the API. Completion is per assignee and
// a task reads as completed once every assignee has completed it.
type Service struct {
	repo *Repository
}

// NewService creates a new task service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListTasks returns every task to admins and the assigned tasks to users.
func (s *Service) ListTasks(_ context.Context, viewer user.Claims) ([]task.Task, error) {
	var (
		records []TaskRecord
		err     error
	)
	if viewer.Role == user.RoleAdmin {
		records, err = s.repo.FindAll()
	} else {
		records, err = s.repo.FindAssignedTo(viewer.UserID)
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]task.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.ToTask())
	}
	return tasks, nil
}

// GetTask returns one task. Users only see tasks assigned to them.
func (s *Service) GetTask(_ context.Context, viewer user.Claims, id string) (*task.Task, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	t := record.ToTask()
	if viewer.Role != user.RoleAdmin {
		if _, ok := t.Assignment(viewer.UserID); !ok {
			return nil, ErrTaskNotFound
		}
	}
	return &t, nil
}

// CreateTask stores a new task.
func (s *Service) CreateTask(_ context.Context, spec task.Spec) (*task.Task, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	record := &TaskRecord{
		ID:          uuid.New().String(),
		Title:       spec.Title,
		Description: spec.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	record.Assignments = assignmentsFromSpec(record.ID, spec)

	if err := s.repo.Create(record); err != nil {
		return nil, err
	}

	t := record.ToTask()
	return &t, nil
}

// UpdateTask replaces title, description and assignments. Completed flags
// are taken from spec as sent.
func (s *Service) UpdateTask(_ context.Context, id string, spec task.Spec) (*task.Task, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	record := &TaskRecord{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		Assignments: assignmentsFromSpec(id, spec),
	}
	if err := s.repo.Replace(record); err != nil {
		return nil, err
	}

	return s.reload(id)
}

// CompleteTask marks the task completed for userID only.
func (s *Service) CompleteTask(_ context.Context, id, userID string) (*task.Task, error) {
	if err := s.repo.MarkCompleted(id, userID); err != nil {
		return nil, err
	}
	return s.reload(id)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(_ context.Context, id string) error {
	return s.repo.Delete(id)
}

func (s *Service) reload(id string) (*task.Task, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	t := record.ToTask()
	return &t, nil
}
