package task

import (
	"errors"
	"strings"
	"time"

	"github.com/example/taskboard/domain/user"
)

// Status represents the aggregate state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var (
	// ErrTitleRequired is returned when a draft has no title.
	ErrTitleRequired = errors.New("title is required")
	// ErrDescriptionRequired is returned when a draft has no description.
	ErrDescriptionRequired = errors.New("description is required")
	// ErrDuplicateAssignee is returned when a user is assigned more than once.
	ErrDuplicateAssignee = errors.New("user is assigned more than once")
)

// Assignment is one assignee of a task with their own completion flag.
type Assignment struct {
	User      user.User `json:"user"`
	Completed bool      `json:"completed"`
}

// Task is a unit of assignable work. The aggregate Status is owned by the
// server; clients only read it.
type Task struct {
	ID          string       `json:"_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	AssignedTo  []Assignment `json:"assignedTo"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	if t.AssignedTo != nil {
		c.AssignedTo = make([]Assignment, len(t.AssignedTo))
		copy(c.AssignedTo, t.AssignedTo)
	}
	return c
}

// Assignment returns the entry for userID, if any.
func (t Task) Assignment(userID string) (Assignment, bool) {
	for _, a := range t.AssignedTo {
		if a.User.ID == userID {
			return a, true
		}
	}
	return Assignment{}, false
}

// AssigneeIDs returns the assignee user ids in order.
func (t Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.AssignedTo))
	for _, a := range t.AssignedTo {
		ids = append(ids, a.User.ID)
	}
	return ids
}

// Aggregate derives the overall status from per-assignee completion: a task
// is completed once every assignee has completed it.
func Aggregate(assignments []Assignment) Status {
	if len(assignments) == 0 {
		return StatusPending
	}
	for _, a := range assignments {
		if !a.Completed {
			return StatusPending
		}
	}
	return StatusCompleted
}

// AssigneeSpec references an assignee by id in a create or update request.
type AssigneeSpec struct {
	User      string `json:"user"`
	Completed bool   `json:"completed"`
}

// Spec is the request body for creating or updating a task.
type Spec struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  []AssigneeSpec `json:"assignedTo"`
}

// Validate checks the invariants a spec must hold before it is sent.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(s.Description) == "" {
		return ErrDescriptionRequired
	}
	seen := make(map[string]struct{}, len(s.AssignedTo))
	for _, a := range s.AssignedTo {
		if _, ok := seen[a.User]; ok {
			return ErrDuplicateAssignee
		}
		seen[a.User] = struct{}{}
	}
	return nil
}

// Draft is what an admin fills in on the task form.
type Draft struct {
	Title       string
	Description string
	Assignees   []string
}

// Validate rejects drafts with missing required fields.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// BuildSpec turns a draft into a request spec. Assignees already present on
// existing keep their completed flag; new ones start as not completed.
// Repeated ids in the draft collapse to their first occurrence.
func BuildSpec(existing *Task, d Draft) (Spec, error) {
	if err := d.Validate(); err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Title:       d.Title,
		Description: d.Description,
		AssignedTo:  make([]AssigneeSpec, 0, len(d.Assignees)),
	}

	seen := make(map[string]struct{}, len(d.Assignees))
	for _, id := range d.Assignees {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		completed := false
		if existing != nil {
			if a, ok := existing.Assignment(id); ok {
				completed = a.Completed
			}
		}
		spec.AssignedTo = append(spec.AssignedTo, AssigneeSpec{User: id, Completed: completed})
	}

	return spec, nil
}
