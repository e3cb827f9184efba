package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/session"
	"github.com/example/taskboard/transport"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TasksModule owns the task store. It takes its credential from the session
// module and drops its tasks when the session ends or changes hands.
type TasksModule struct {
	gateway          Gateway
	sessionContainer mono.ServiceContainer
	credentials      CredentialSource
	store            *Store
	eventBus         mono.EventBus

	mu       sync.Mutex
	lastUser string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TasksModule)(nil)
	_ mono.DependentModule       = (*TasksModule)(nil)
	_ mono.HealthCheckableModule = (*TasksModule)(nil)
	_ mono.EventBusAwareModule   = (*TasksModule)(nil)
	_ mono.EventEmitterModule    = (*TasksModule)(nil)
	_ mono.EventConsumerModule   = (*TasksModule)(nil)
)

// NewModule creates a new TasksModule talking to the API at cfg.APIURL.
func NewModule(cfg config.Config) *TasksModule {
	return NewModuleWithGateway(transport.NewClient(
		cfg.APIURL,
		transport.WithTimeout(cfg.HTTPTimeout),
	))
}

// NewModuleWithGateway creates a TasksModule using gateway instead of the
// HTTP client.
func NewModuleWithGateway(gateway Gateway) *TasksModule {
	return &TasksModule{
		gateway: gateway,
	}
}

// Name returns the module name.
func (m *TasksModule) Name() string {
	return "tasks"
}

// Dependencies returns the list of module dependencies.
func (m *TasksModule) Dependencies() []string {
	return []string{"session"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *TasksModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "session":
		m.sessionContainer = container
		m.credentials = session.NewCredentialAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *TasksModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *TasksModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskSyncedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to session transitions.
func (m *TasksModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.SessionChangedV1, m.handleSessionChanged, m); err != nil {
		return fmt.Errorf("failed to register SessionChanged consumer: %w", err)
	}

	log.Printf("[tasks] Registered event consumers: SessionChanged")
	return nil
}

// Start creates the task store.
func (m *TasksModule) Start(_ context.Context) error {
	if m.credentials == nil {
		return fmt.Errorf("session dependency not set")
	}

	m.store = NewStore(m.gateway, m.credentials, WithReporter(m.publish))

	log.Println("[tasks] Module started")
	return nil
}

// Stop shuts down the module.
func (m *TasksModule) Stop(_ context.Context) error {
	log.Println("[tasks] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TasksModule) Health(_ context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	st := m.store.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"tasks":   len(st.Tasks),
			"pending": len(st.Pending),
			"loading": st.Loading,
		},
	}
}

// Store returns the task store. It is nil before Start.
func (m *TasksModule) Store() *Store {
	return m.store
}

func (m *TasksModule) handleSessionChanged(_ context.Context, event events.SessionChangedEvent, _ *mono.Msg) error {
	m.mu.Lock()
	changed := m.lastUser != "" && event.UserID != m.lastUser
	m.lastUser = event.UserID
	m.mu.Unlock()

	if changed && m.store != nil {
		log.Printf("[tasks] Session is now %s; clearing cached tasks", event.Status)
		m.store.Reset()
	}
	return nil
}

// publish turns a store outcome into a TaskSynced event.
func (m *TasksModule) publish(o Outcome) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskSyncedV1.Publish(m.eventBus, SyncedEvent(o), nil); err != nil {
		log.Printf("[tasks] Warning: failed to publish TaskSynced: %v", err)
	}
}

// SyncedEvent converts an outcome into its event form.
func SyncedEvent(o Outcome) events.TaskSyncedEvent {
	ev := events.TaskSyncedEvent{
		Operation:  o.Op,
		TaskID:     o.TaskID,
		Succeeded:  o.Succeeded(),
		Superseded: o.Superseded,
		TaskCount:  o.Count,
		ResolvedAt: time.Now(),
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	return ev
}
