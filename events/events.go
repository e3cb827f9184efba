package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// SessionChangedEvent is emitted after every session state transition.
type SessionChangedEvent struct {
	Status         string    `json:"status"`
	UserID         string    `json:"user_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	HasCredential  bool      `json:"has_credential"`
	IdentityLoaded bool      `json:"identity_loaded"`
	Loading        bool      `json:"loading"`
	Error          string    `json:"error,omitempty"`
	DirectoryError string    `json:"directory_error,omitempty"`
	DirectorySize  int       `json:"directory_size"`
	ChangedAt      time.Time `json:"changed_at"`
}

// SessionChangedV1 is the typed event definition for session transitions.
// Subject: events.session.v1.session-changed
var SessionChangedV1 = helper.EventDefinition[SessionChangedEvent](
	"session", "SessionChanged", "v1",
)

// Task store operations reported in TaskSyncedEvent.
const (
	OpFetchAll     = "fetch-all"
	OpFetchOne     = "fetch-one"
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpCompleteSelf = "complete-self"
)

// TaskSyncedEvent is emitted when a task store operation resolves.
type TaskSyncedEvent struct {
	Operation  string    `json:"operation"`
	TaskID     string    `json:"task_id,omitempty"`
	Succeeded  bool      `json:"succeeded"`
	Superseded bool      `json:"superseded,omitempty"`
	Error      string    `json:"error,omitempty"`
	TaskCount  int       `json:"task_count"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// TaskSyncedV1 is the typed event definition for task store outcomes.
// Subject: events.tasks.v1.task-synced
var TaskSyncedV1 = helper.EventDefinition[TaskSyncedEvent](
	"tasks", "TaskSynced", "v1",
)
