package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/transport"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionModule owns the session store and its durable credential storage.
type SessionModule struct {
	cfg      config.Config
	gateway  Gateway
	db       *gorm.DB
	store    *Store
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*SessionModule)(nil)
	_ mono.ServiceProviderModule = (*SessionModule)(nil)
	_ mono.HealthCheckableModule = (*SessionModule)(nil)
	_ mono.EventBusAwareModule   = (*SessionModule)(nil)
	_ mono.EventEmitterModule    = (*SessionModule)(nil)
)

// NewModule creates a new SessionModule talking to the API at cfg.APIURL.
func NewModule(cfg config.Config) *SessionModule {
	return &SessionModule{
		cfg: cfg,
		gateway: transport.NewClient(
			cfg.APIURL,
			transport.WithTimeout(cfg.HTTPTimeout),
		),
	}
}

// NewModuleWithGateway creates a SessionModule using gateway instead of the
// HTTP client.
func NewModuleWithGateway(cfg config.Config, gateway Gateway) *SessionModule {
	return &SessionModule{
		cfg:     cfg,
		gateway: gateway,
	}
}

// Name returns the module name.
func (m *SessionModule) Name() string {
	return "session"
}

// SetEventBus receives the EventBus from the framework.
func (m *SessionModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *SessionModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.SessionChangedV1.ToBase(),
	}
}

// Start opens the credential storage and restores the persisted session.
func (m *SessionModule) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.cfg.StatePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	m.db = db

	repo := NewCredentialRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate state database: %w", err)
	}

	m.store = NewStore(m.gateway, repo, WithChangeHook(m.publish))
	if err := m.store.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	log.Printf("[session] Module started (state: %s)", m.cfg.StatePath)
	return nil
}

// Stop waits for background fetches and closes the state database.
func (m *SessionModule) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Wait()
	}
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[session] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *SessionModule) Health(_ context.Context) mono.HealthStatus {
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
			"status": string(st.Status()),
			"state":  m.cfg.StatePath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *SessionModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"session-credential",
		json.Unmarshal,
		json.Marshal,
		m.handleCredential,
	); err != nil {
		return fmt.Errorf("failed to register session-credential service: %w", err)
	}

	log.Printf("[session] Registered services: session-credential")
	return nil
}

// Store returns the session store. It is nil before Start.
func (m *SessionModule) Store() *Store {
	return m.store
}

func (m *SessionModule) handleCredential(ctx context.Context, _ CredentialRequest, _ *mono.Msg) (CredentialResponse, error) {
	if m.store == nil {
		return CredentialResponse{}, errors.New("session store not started")
	}

	cred, err := m.store.Credential(ctx)
	if errors.Is(err, ErrNoCredential) {
		return CredentialResponse{}, nil
	}
	if err != nil {
		return CredentialResponse{}, err
	}

	return CredentialResponse{
		Token:     cred.Token,
		UserID:    cred.Claims.UserID,
		Role:      string(cred.Claims.Role),
		ExpiresAt: cred.Claims.ExpiresAt,
	}, nil
}

// publish turns a state transition into a SessionChanged event.
func (m *SessionModule) publish(st State) {
	if m.eventBus == nil {
		return
	}
	if err := events.SessionChangedV1.Publish(m.eventBus, ChangedEvent(st), nil); err != nil {
		log.Printf("[session] Warning: failed to publish SessionChanged: %v", err)
	}
}

// ChangedEvent converts a state snapshot into its event form.
func ChangedEvent(st State) events.SessionChangedEvent {
	ev := events.SessionChangedEvent{
		Status:         string(st.Status()),
		UserID:         st.UserID(),
		Role:           string(st.Role),
		HasCredential:  st.HasCredential(),
		IdentityLoaded: st.IdentityLoaded,
		Loading:        st.Loading,
		DirectorySize:  len(st.Users),
		ChangedAt:      time.Now(),
	}
	if st.Err != nil {
		ev.Error = st.Err.Error()
	}
	if st.DirectoryErr != nil {
		ev.DirectoryError = st.DirectoryErr.Error()
	}
	return ev
}
