package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BoardModule stores tasks for the API.
type BoardModule struct {
	cfg     config.DevServer
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*BoardModule)(nil)
	_ mono.ServiceProviderModule = (*BoardModule)(nil)
	_ mono.HealthCheckableModule = (*BoardModule)(nil)
)

// NewModule creates a new BoardModule.
func NewModule(cfg config.DevServer) *BoardModule {
	return &BoardModule{cfg: cfg}
}

// Name returns the module name.
func (m *BoardModule) Name() string {
	return "board"
}

// Start opens the task database.
func (m *BoardModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	m.service = NewService(repo)

	log.Printf("[board] Module started (database: %s)", m.cfg.DBPath)
	return nil
}

// Stop closes the task database.
func (m *BoardModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[board] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *BoardModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	var count int64
	if err := m.db.Model(&TaskRecord{}).Count(&count).Error; err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("task count failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
			"tasks":    count,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *BoardModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.handleListTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.handleGetTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.handleCreateTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.handleUpdateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "complete-task", json.Unmarshal, json.Marshal, m.handleCompleteTask,
	); err != nil {
		return fmt.Errorf("failed to register complete-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.handleDeleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	log.Printf("[board] Registered services: list-tasks, get-task, create-task, update-task, complete-task, delete-task")
	return nil
}

func (m *BoardModule) handleListTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.ListTasks(ctx, user.Claims{UserID: req.UserID, Role: user.Role(req.Role)})
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func (m *BoardModule) handleGetTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (task.Task, error) {
	t, err := m.service.GetTask(ctx, user.Claims{UserID: req.UserID, Role: user.Role(req.Role)}, req.TaskID)
	if err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

func (m *BoardModule) handleCreateTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (task.Task, error) {
	t, err := m.service.CreateTask(ctx, req.Spec)
	if err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

func (m *BoardModule) handleUpdateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (task.Task, error) {
	t, err := m.service.UpdateTask(ctx, req.TaskID, req.Spec)
	if err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

func (m *BoardModule) handleCompleteTask(ctx context.Context, req CompleteTaskRequest, _ *mono.Msg) (task.Task, error) {
	t, err := m.service.CompleteTask(ctx, req.TaskID, req.UserID)
	if err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

func (m *BoardModule) handleDeleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.service.DeleteTask(ctx, req.TaskID); err != nil {
		return DeleteTaskResponse{}, err
	}
	return DeleteTaskResponse{Deleted: true}, nil
}
