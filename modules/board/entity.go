package board

import (
	"time"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
)

// TaskRecord is the persisted form of a task. The aggregate status is not
// stored; it is derived from the assignments on read.
type TaskRecord struct {
	ID          string             `gorm:"primaryKey;type:text"`
	Title       string             `gorm:"not null;type:text"`
	Description string             `gorm:"not null;type:text"`
	Assignments []AssignmentRecord `gorm:"foreignKey:TaskID;references:ID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for the TaskRecord entity.
func (TaskRecord) TableName() string {
	return "tasks"
}

// AssignmentRecord is one assignee of a task.
type AssignmentRecord struct {
	TaskID    string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"primaryKey;type:text;index"`
	Position  int    `gorm:"not null"`
	Completed bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for the AssignmentRecord entity.
func (AssignmentRecord) TableName() string {
	return "assignments"
}

// ToTask converts the record to the wire form. Assignees carry only their
// id; the API fills in the rest.
func (r TaskRecord) ToTask() task.Task {
	t := task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  make([]task.Assignment, 0, len(r.Assignments)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, a := range r.Assignments {
		t.AssignedTo = append(t.AssignedTo, task.Assignment{
			User:      user.User{ID: a.UserID},
			Completed: a.Completed,
		})
	}
	t.Status = task.Aggregate(t.AssignedTo)
	return t
}

func assignmentsFromSpec(taskID string, spec task.Spec) []AssignmentRecord {
	out := make([]AssignmentRecord, 0, len(spec.AssignedTo))
	for i, a := range spec.AssignedTo {
		out = append(out, AssignmentRecord{
			TaskID:    taskID,
			UserID:    a.User,
			Position:  i,
			Completed: a.Completed,
		})
	}
	return out
}
