package router

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RouterModule keeps the current location and re-resolves it whenever the
// session changes, the way a mounted router re-renders.
type RouterModule struct {
	mu       sync.RWMutex
	input    Input
	route    Route
	decision Decision
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*RouterModule)(nil)
	_ mono.EventConsumerModule   = (*RouterModule)(nil)
	_ mono.HealthCheckableModule = (*RouterModule)(nil)
)

// NewModule creates a new RouterModule positioned at the root route.
func NewModule() *RouterModule {
	return &RouterModule{
		route:    RouteRoot,
		decision: Resolve(Input{}, RouteRoot),
	}
}

// Name returns the module name.
func (m *RouterModule) Name() string {
	return "router"
}

// RegisterEventConsumers subscribes to session transitions.
func (m *RouterModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.SessionChangedV1, m.handleSessionChanged, m); err != nil {
		return fmt.Errorf("failed to register SessionChanged consumer: %w", err)
	}

	log.Printf("[router] Registered event consumers: SessionChanged")
	return nil
}

// Start starts the module.
func (m *RouterModule) Start(_ context.Context) error {
	log.Println("[router] Module started")
	return nil
}

// Stop stops the module.
func (m *RouterModule) Stop(_ context.Context) error {
	log.Println("[router] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *RouterModule) Health(_ context.Context) mono.HealthStatus {
	route, d := m.Current()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"route":     string(route),
			"view":      string(d.View),
			"suspended": d.Suspended,
		},
	}
}

// Visit navigates to route under the last observed session.
func (m *RouterModule) Visit(route Route) (Route, Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.route, m.decision = Navigate(m.input, route)
	return m.route, m.decision
}

// Current returns the current route and its decision.
func (m *RouterModule) Current() (Route, Decision) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.route, m.decision
}

// Observe replaces the session input and re-navigates the current route.
func (m *RouterModule) Observe(in Input) (Route, Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.input = in
	prev := m.decision.View
	m.route, m.decision = Navigate(m.input, m.route)
	if m.decision.View != prev {
		log.Printf("[router] %s -> %s", m.route, viewName(m.decision))
	}
	return m.route, m.decision
}

func (m *RouterModule) handleSessionChanged(_ context.Context, event events.SessionChangedEvent, _ *mono.Msg) error {
	m.Observe(Input{
		HasCredential:  event.HasCredential,
		Role:           user.Role(event.Role),
		IdentityLoaded: event.IdentityLoaded,
		Loading:        event.Loading,
	})
	return nil
}

func viewName(d Decision) string {
	if d.Suspended {
		return "(suspended)"
	}
	return string(d.View)
}
