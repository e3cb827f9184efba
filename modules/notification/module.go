package notification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/taskboard/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/google/uuid"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultCapacity is how many notices are kept when none is configured.
const DefaultCapacity = 50

// Notice is a short, non-blocking message for the user.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	TaskID    string    `json:"task_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	successMessages = map[string]string{
		events.OpCreate:       "Task created successfully!",
		events.OpUpdate:       "Task updated successfully!",
		events.OpDelete:       "Task deleted successfully.",
		events.OpCompleteSelf: "Task marked as complete!",
	}
	failureMessages = map[string]string{
		events.OpFetchAll:     "Failed to load tasks.",
		events.OpFetchOne:     "Failed to load task.",
		events.OpCreate:       "Failed to create task.",
		events.OpUpdate:       "Failed to update task.",
		events.OpDelete:       "Failed to delete task.",
		events.OpCompleteSelf: "Failed to mark task as complete.",
	}
)

// NotificationModule turns store outcomes into notices.
// It subscribes to task and session events using the EventConsumerModule interface.
type NotificationModule struct {
	capacity int

	mu         sync.RWMutex
	notices    []Notice
	lastErr    string
	lastDirErr string
	sinks      []func(Notice)
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)

// NewModule creates a NotificationModule keeping at most capacity notices.
func NewModule(capacity int) *NotificationModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NotificationModule{
		capacity: capacity,
		notices:  make([]Notice, 0, capacity),
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskSyncedV1, m.handleTaskSynced, m); err != nil {
		return fmt.Errorf("failed to register TaskSynced consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.SessionChangedV1, m.handleSessionChanged, m); err != nil {
		return fmt.Errorf("failed to register SessionChanged consumer: %w", err)
	}

	log.Printf("[notification] Registered event consumers: TaskSynced, SessionChanged")
	return nil
}

// Subscribe registers fn to be called with every new notice.
func (m *NotificationModule) Subscribe(fn func(Notice)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, fn)
}

func (m *NotificationModule) handleTaskSynced(_ context.Context, event events.TaskSyncedEvent, _ *mono.Msg) error {
	if event.Superseded {
		return nil
	}

	if event.Succeeded {
		if msg, ok := successMessages[event.Operation]; ok {
			m.push(LevelSuccess, msg, event.TaskID)
		}
		return nil
	}

	msg, ok := failureMessages[event.Operation]
	if !ok {
		msg = "Something went wrong."
	}
	log.Printf("[notification] %s failed: %s", event.Operation, event.Error)
	m.push(LevelError, msg, event.TaskID)
	return nil
}

// handleSessionChanged reports identity and directory failures once per
// distinct error. Credential decode failures reset the session silently and
// never reach here as errors.
func (m *NotificationModule) handleSessionChanged(_ context.Context, event events.SessionChangedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	newErr := event.Error != "" && event.Error != m.lastErr
	newDirErr := event.DirectoryError != "" && event.DirectoryError != m.lastDirErr
	m.lastErr = event.Error
	m.lastDirErr = event.DirectoryError
	m.mu.Unlock()

	if newErr {
		m.push(LevelError, "Failed to load your profile.", "")
	}
	if newDirErr {
		m.push(LevelError, "Failed to load users.", "")
	}
	return nil
}

func (m *NotificationModule) push(level Level, message, taskID string) {
	n := Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		TaskID:    taskID,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	if len(m.notices) == m.capacity {
		copy(m.notices, m.notices[1:])
		m.notices = m.notices[:len(m.notices)-1]
	}
	m.notices = append(m.notices, n)
	sinks := append([]func(Notice){}, m.sinks...)
	m.mu.Unlock()

	for _, sink := range sinks {
		sink(n)
	}
}

// GetNotifications returns the kept notices, oldest first.
func (m *NotificationModule) GetNotifications() []Notice {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Notice, len(m.notices))
	copy(result, m.notices)
	return result
}

func (m *NotificationModule) Start(_ context.Context) error {
	log.Println("[notification] Module started - listening for task and session events")
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	log.Println("[notification] Module stopped")
	return nil
}
