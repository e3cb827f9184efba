package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskboard/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CredentialPort is what other modules use to obtain the current credential.
type CredentialPort interface {
	Credential(ctx context.Context) (user.Credential, error)
}

// CredentialAdapter implements CredentialPort using the service container.
type CredentialAdapter struct {
	container mono.ServiceContainer
}

// NewCredentialAdapter creates a new CredentialAdapter.
func NewCredentialAdapter(container mono.ServiceContainer) *CredentialAdapter {
	return &CredentialAdapter{
		container: container,
	}
}

// Credential fetches the session's credential. An empty token means the
// session holds none.
func (a *CredentialAdapter) Credential(ctx context.Context) (user.Credential, error) {
	req := CredentialRequest{}
	var resp CredentialResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"session-credential",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return user.Credential{}, fmt.Errorf("session-credential request failed: %w", err)
	}

	if resp.Token == "" {
		return user.Credential{}, ErrNoCredential
	}

	return user.Credential{
		Token: resp.Token,
		Claims: user.Claims{
			UserID:    resp.UserID,
			Role:      user.Role(resp.Role),
			ExpiresAt: resp.ExpiresAt,
		},
	}, nil
}
