package board

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/domain/task"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memContainer routes request-reply calls to registered handlers in process.
type memContainer struct {
	mono.ServiceContainer
	handlers map[string]mono.RequestReplyHandler
}

func newMemContainer() *memContainer {
	return &memContainer{handlers: make(map[string]mono.RequestReplyHandler)}
}

func (c *memContainer) RegisterRequestReplyService(name string, handler mono.RequestReplyHandler) error {
	c.handlers[name] = handler
	return nil
}

func (c *memContainer) GetRequestReplyService(name string) (mono.RequestReplyServiceClient, error) {
	h, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("service %s not registered", name)
	}
	return memClient(h), nil
}

type memClient mono.RequestReplyHandler

func (h memClient) Call(ctx context.Context, data []byte) (*mono.Msg, error) {
	return h.CallMsg(ctx, &mono.Msg{Data: data})
}

func (h memClient) CallMsg(ctx context.Context, msg *mono.Msg) (*mono.Msg, error) {
	resp, err := h(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &mono.Msg{Data: resp}, nil
}

func setupAdapter(t *testing.T) *BoardAdapter {
	t.Helper()

	m := NewModule(config.DevServer{DBPath: filepath.Join(t.TempDir(), "board.db")})
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Stop(context.Background()) })

	container := newMemContainer()
	require.NoError(t, m.RegisterServices(container))
	return NewBoardAdapter(container)
}

func TestBoardAdapter_TaskLifecycle(t *testing.T) {
	adapter := setupAdapter(t)
	ctx := context.Background()

	created, err := adapter.CreateTask(ctx, spec("ship it", "u1", "u2"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"u1", "u2"}, created.AssigneeIDs())

	listed, err := adapter.ListTasks(ctx, u1Viewer)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	completed, err := adapter.CompleteTask(ctx, created.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, completed.Status)

	got, err := adapter.GetTask(ctx, u2Viewer, created.ID)
	require.NoError(t, err)
	own, _ := got.Assignment("u1")
	assert.True(t, own.Completed)

	updated, err := adapter.UpdateTask(ctx, created.ID, spec("ship it now", "u2"))
	require.NoError(t, err)
	assert.Equal(t, "ship it now", updated.Title)
	assert.Equal(t, []string{"u2"}, updated.AssigneeIDs())

	require.NoError(t, adapter.DeleteTask(ctx, created.ID))

	listed, err = adapter.ListTasks(ctx, adminViewer)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestBoardAdapter_ErrorsKeepServiceContext(t *testing.T) {
	adapter := setupAdapter(t)

	_, err := adapter.GetTask(context.Background(), adminViewer, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get-task request failed")
	assert.Contains(t, err.Error(), ErrTaskNotFound.Error())
}
