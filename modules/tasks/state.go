package tasks

import (
	"context"
	"errors"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
)

var (
	// ErrTaskNotFound is returned when an operation names a task the store does not hold.
	ErrTaskNotFound = errors.New("task not found")
	// ErrSuperseded is returned when a response lost the race against a newer
	// request or a reset. Superseded responses are never applied.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrEmptyResponse is returned when the API answers without a task.
	ErrEmptyResponse = errors.New("empty response from server")
)

// State is a point-in-time copy of the task collection with pending
// completions applied.
type State struct {
	Tasks    []task.Task
	Pending  []string
	Selected *task.Task
	Loading  bool
	Err      error
}

// Find returns the task with the given id.
func (s State) Find(id string) (task.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// IsPending reports whether a completion of id awaits the server.
func (s State) IsPending(id string) bool {
	for _, p := range s.Pending {
		if p == id {
			return true
		}
	}
	return false
}

// pendingCompletion marks a task whose completion request is in flight.
type pendingCompletion struct {
	attempt uint64
	userID  string
}

// apply overlays the expected result of the completion onto t.
func (p pendingCompletion) apply(t *task.Task) {
	t.Status = task.StatusCompleted
	for i := range t.AssignedTo {
		if t.AssignedTo[i].User.ID == p.userID {
			t.AssignedTo[i].Completed = true
		}
	}
}

// collection is an ordered list of tasks with unique ids.
type collection []task.Task

func (c collection) index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// replaceAll builds a collection from a listing, keeping the first
// occurrence of any repeated id.
func replaceAll(listing []task.Task) collection {
	seen := make(map[string]struct{}, len(listing))
	out := make(collection, 0, len(listing))
	for _, t := range listing {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t.Clone())
	}
	return out
}

// upsert replaces the task with t's id in place or appends t.
func (c collection) upsert(t task.Task) collection {
	if i := c.index(t.ID); i >= 0 {
		c[i] = t.Clone()
		return c
	}
	return append(c, t.Clone())
}

// replace swaps the task with t's id and reports whether it was present.
func (c collection) replace(t task.Task) bool {
	i := c.index(t.ID)
	if i < 0 {
		return false
	}
	c[i] = t.Clone()
	return true
}

// remove drops the task with the given id, if any.
func (c collection) remove(id string) collection {
	i := c.index(id)
	if i < 0 {
		return c
	}
	return append(c[:i:i], c[i+1:]...)
}

// Outcome describes how one store operation resolved.
type Outcome struct {
	Op         string
	TaskID     string
	Err        error
	Superseded bool
	Count      int
}

// Succeeded reports whether the operation was applied.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && !o.Superseded
}

// CredentialSource supplies the credential at call time.
type CredentialSource interface {
	Credential(ctx context.Context) (user.Credential, error)
}
