package session

import (
	"errors"

	"github.com/example/taskboard/domain/user"
)

var (
	// ErrInvalidCredential is returned when a credential cannot be decoded.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNoCredential is returned by operations that need a credential when none is held.
	ErrNoCredential = errors.New("no credential")
	// ErrIdentityMismatch is returned when the fetched identity is not the credential's subject.
	ErrIdentityMismatch = errors.New("fetched identity does not match credential")
)

// Status is the coarse state of a session.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// State is a point-in-time copy of the session. Identity and Role always
// agree with the claims of Credential, or are all empty together.
type State struct {
	Credential     string
	Identity       *user.User
	IdentityLoaded bool
	Role           user.Role
	Loading        bool
	Err            error

	Users            []user.User
	DirectoryLoading bool
	DirectoryErr     error
}

// HasCredential reports whether a credential is held.
func (s State) HasCredential() bool {
	return s.Credential != ""
}

// UserID returns the id of the current identity, or "".
func (s State) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// Status derives the state machine position from the fields.
func (s State) Status() Status {
	switch {
	case !s.HasCredential():
		return StatusUnauthenticated
	case s.Loading:
		return StatusAuthenticating
	case s.Err != nil:
		return StatusError
	default:
		return StatusAuthenticated
	}
}

func (s State) clone() State {
	c := s
	if s.Identity != nil {
		id := *s.Identity
		c.Identity = &id
	}
	if s.Users != nil {
		c.Users = make([]user.User, len(s.Users))
		copy(c.Users, s.Users)
	}
	return c
}
