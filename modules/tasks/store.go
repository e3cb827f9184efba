package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
)

// Gateway is the part of the API the task store calls.
type Gateway interface {
	ListTasks(ctx context.Context, token string) ([]task.Task, error)
	GetTask(ctx context.Context, token, id string) (*task.Task, error)
	CreateTask(ctx context.Context, token string, spec task.Spec) (*task.Task, error)
	UpdateTask(ctx context.Context, token, id string, spec task.Spec) (*task.Task, error)
	CompleteTask(ctx context.Context, token, id string) (*task.Task, error)
	DeleteTask(ctx context.Context, token, id string) error
}

// Option configures a Store.
type Option func(*Store)

// WithReporter registers fn to receive the outcome of every operation.
// Calls are serialized and happen after the state change is applied.
func WithReporter(fn func(Outcome)) Option {
	return func(s *Store) {
		s.report = fn
	}
}

// Store owns the local projection of the server's tasks.
//
// Only the latest FetchAll is applied, and only if no mutation landed while
// it was in flight. Completions are tracked as pending
// markers layered over the canonical tasks, so a failed completion rolls back
// by dropping its marker. Reset starts a new epoch and orphans every request
// in flight.
type Store struct {
	gateway Gateway
	creds   CredentialSource
	report  func(Outcome)

	mu       sync.Mutex
	tasks    collection
	pending  map[string]pendingCompletion
	selected *task.Task
	err      error
	inflight int
	epoch    uint64
	fetchSeq uint64
	mutSeq   uint64
	attempts uint64

	reportMu sync.Mutex
}

// NewStore creates a new Store.
func NewStore(gateway Gateway, creds CredentialSource, opts ...Option) *Store {
	s := &Store{
		gateway: gateway,
		creds:   creds,
		pending: make(map[string]pendingCompletion),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll replaces the collection with the server's listing, in server
// order. A response that arrives after a newer FetchAll was issued, or after
// a mutation was applied, is discarded with ErrSuperseded.
func (s *Store) FetchAll(ctx context.Context) ([]task.Task, error) {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return nil, s.fail(events.OpFetchAll, "", err)
	}

	s.mu.Lock()
	s.fetchSeq++
	seq, epoch, mut := s.fetchSeq, s.epoch, s.mutSeq
	s.beginLocked()
	s.mu.Unlock()

	listing, err := s.gateway.ListTasks(ctx, cred.Token)

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return nil, s.superseded(events.OpFetchAll, "")
	}
	if seq != s.fetchSeq {
		s.mu.Unlock()
		log.Printf("[tasks] Discarding stale listing (request %d, latest %d)", seq, s.fetchSeq)
		return nil, s.superseded(events.OpFetchAll, "")
	}
	if mut != s.mutSeq {
		s.mu.Unlock()
		log.Printf("[tasks] Discarding listing issued before a newer change")
		return nil, s.superseded(events.OpFetchAll, "")
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, s.resolved(events.OpFetchAll, "", fmt.Errorf("fetch tasks: %w", err))
	}
	s.tasks = replaceAll(listing)
	result := s.viewLocked().Tasks
	s.mu.Unlock()

	s.resolved(events.OpFetchAll, "", nil)
	return result, nil
}

// FetchOne fetches a single task and makes it the selected task.
func (s *Store) FetchOne(ctx context.Context, id string) (*task.Task, error) {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return nil, s.fail(events.OpFetchOne, id, err)
	}

	s.mu.Lock()
	epoch := s.epoch
	s.beginLocked()
	s.mu.Unlock()

	fetched, err := s.gateway.GetTask(ctx, cred.Token, id)
	if err == nil && fetched == nil {
		err = ErrEmptyResponse
	}

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return nil, s.superseded(events.OpFetchOne, id)
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, s.resolved(events.OpFetchOne, id, fmt.Errorf("fetch task %s: %w", id, err))
	}
	selected := fetched.Clone()
	s.selected = &selected
	s.mu.Unlock()

	s.resolved(events.OpFetchOne, id, nil)
	out := fetched.Clone()
	return &out, nil
}

// Select makes a cached task the selected task.
func (s *Store) Select(id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.viewLocked()
	t, ok := view.Find(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	s.selected = &t
	out := t.Clone()
	return &out, nil
}

// Create sends spec to the server and appends the returned task. Nothing is
// inserted before the response lands.
func (s *Store) Create(ctx context.Context, spec task.Spec) (*task.Task, error) {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return nil, s.fail(events.OpCreate, "", err)
	}

	s.mu.Lock()
	epoch := s.epoch
	s.beginLocked()
	s.mu.Unlock()

	created, err := s.gateway.CreateTask(ctx, cred.Token, spec)
	if err == nil && created == nil {
		err = ErrEmptyResponse
	}

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return nil, s.superseded(events.OpCreate, "")
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, s.resolved(events.OpCreate, "", fmt.Errorf("create task: %w", err))
	}
	s.tasks = s.tasks.upsert(*created)
	s.mutSeq++
	s.mu.Unlock()

	s.resolved(events.OpCreate, created.ID, nil)
	out := created.Clone()
	return &out, nil
}

// Update sends spec for the task id and replaces the cached task with the
// server's copy. A task no longer cached is not re-added.
func (s *Store) Update(ctx context.Context, id string, spec task.Spec) (*task.Task, error) {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return nil, s.fail(events.OpUpdate, id, err)
	}

	s.mu.Lock()
	epoch := s.epoch
	s.beginLocked()
	s.mu.Unlock()

	updated, err := s.gateway.UpdateTask(ctx, cred.Token, id, spec)
	if err == nil && updated == nil {
		err = ErrEmptyResponse
	}

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return nil, s.superseded(events.OpUpdate, id)
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, s.resolved(events.OpUpdate, id, fmt.Errorf("update task %s: %w", id, err))
	}
	if !s.tasks.replace(*updated) {
		log.Printf("[tasks] Updated task %s is not in the collection; refetch to see it", updated.ID)
	}
	s.replaceSelectedLocked(*updated)
	s.mutSeq++
	s.mu.Unlock()

	s.resolved(events.OpUpdate, id, nil)
	out := updated.Clone()
	return &out, nil
}

// Edit builds an update from a form draft against the cached task id.
// Assignees kept from the cached task keep their completed flag.
func (s *Store) Edit(ctx context.Context, id string, draft task.Draft) (*task.Task, error) {
	s.mu.Lock()
	i := s.tasks.index(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	existing := s.tasks[i].Clone()
	s.mu.Unlock()

	spec, err := task.BuildSpec(&existing, draft)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, spec)
}

// Delete removes the task id on the server and then locally. Deleting a task
// that is not cached is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return s.fail(events.OpDelete, id, err)
	}

	s.mu.Lock()
	epoch := s.epoch
	s.beginLocked()
	s.mu.Unlock()

	err = s.gateway.DeleteTask(ctx, cred.Token, id)

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return s.superseded(events.OpDelete, id)
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return s.resolved(events.OpDelete, id, fmt.Errorf("delete task %s: %w", id, err))
	}
	s.tasks = s.tasks.remove(id)
	s.mutSeq++
	delete(s.pending, id)
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	s.mu.Unlock()

	s.resolved(events.OpDelete, id, nil)
	return nil
}

// CompleteSelf marks the task id completed for the credential's subject.
//
// Before the request is sent the task shows as completed through a pending
// marker. On success the cached task is replaced by the server's copy; on
// failure the marker is dropped and the cached task reads as before.
func (s *Store) CompleteSelf(ctx context.Context, id string) (*task.Task, error) {
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		return nil, s.fail(events.OpCompleteSelf, id, err)
	}

	s.mu.Lock()
	epoch := s.epoch
	s.attempts++
	attempt := s.attempts
	s.pending[id] = pendingCompletion{attempt: attempt, userID: cred.Claims.UserID}
	s.beginLocked()
	s.mu.Unlock()

	completed, err := s.gateway.CompleteTask(ctx, cred.Token, id)
	if err == nil && completed == nil {
		err = ErrEmptyResponse
	}

	s.mu.Lock()
	if !s.endLocked(epoch) {
		s.mu.Unlock()
		return nil, s.superseded(events.OpCompleteSelf, id)
	}
	if p, ok := s.pending[id]; ok && p.attempt == attempt {
		delete(s.pending, id)
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, s.resolved(events.OpCompleteSelf, id, fmt.Errorf("complete task %s: %w", id, err))
	}
	s.tasks.replace(*completed)
	s.replaceSelectedLocked(*completed)
	s.mutSeq++
	s.mu.Unlock()

	s.resolved(events.OpCompleteSelf, id, nil)
	out := completed.Clone()
	return &out, nil
}

// Reset empties the store and orphans every request in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch++
	s.tasks = nil
	s.pending = make(map[string]pendingCompletion)
	s.selected = nil
	s.err = nil
	s.inflight = 0
	s.mu.Unlock()

	log.Println("[tasks] Store reset")
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Store) viewLocked() State {
	st := State{
		Tasks:   make([]task.Task, 0, len(s.tasks)),
		Loading: s.inflight > 0,
		Err:     s.err,
	}
	for _, t := range s.tasks {
		view := t.Clone()
		if p, ok := s.pending[t.ID]; ok {
			p.apply(&view)
			st.Pending = append(st.Pending, t.ID)
		}
		st.Tasks = append(st.Tasks, view)
	}
	if s.selected != nil {
		sel := s.selected.Clone()
		if p, ok := s.pending[sel.ID]; ok {
			p.apply(&sel)
		}
		st.Selected = &sel
	}
	return st
}

func (s *Store) replaceSelectedLocked(t task.Task) {
	if s.selected != nil && s.selected.ID == t.ID {
		sel := t.Clone()
		s.selected = &sel
	}
}

func (s *Store) beginLocked() {
	s.inflight++
	s.err = nil
}

// endLocked settles one in-flight request and reports whether it belongs
// to the current epoch.
func (s *Store) endLocked(epoch uint64) bool {
	if epoch != s.epoch {
		return false
	}
	s.inflight--
	return true
}

// fail records an error raised before any request was sent.
func (s *Store) fail(op, id string, err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return s.resolved(op, id, err)
}

func (s *Store) superseded(op, id string) error {
	s.emit(Outcome{Op: op, TaskID: id, Superseded: true, Count: s.count()})
	return ErrSuperseded
}

// resolved reports the outcome of op and returns err unchanged.
func (s *Store) resolved(op, id string, err error) error {
	if err != nil {
		log.Printf("[tasks] %s failed: %v", op, err)
	}
	s.emit(Outcome{Op: op, TaskID: id, Err: err, Count: s.count()})
	return err
}

func (s *Store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) emit(o Outcome) {
	if s.report == nil {
		return
	}
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.report(o)
}
