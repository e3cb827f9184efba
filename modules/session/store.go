package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/example/taskboard/domain/user"
)

// ErrSuperseded is returned when a response arrives after a newer request or
// a credential change and is therefore not applied.
var ErrSuperseded = errors.New("superseded by a newer request")

// Gateway is the part of the API the session store calls.
type Gateway interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) (string, error)
	GetUser(ctx context.Context, token, id string) (*user.User, error)
	ListUsers(ctx context.Context, token string) ([]user.User, error)
}

// Option configures a Store.
type Option func(*Store)

// WithDecoder replaces the default JWT decoder.
func WithDecoder(d Decoder) Option {
	return func(s *Store) {
		s.decoder = d
	}
}

// WithChangeHook registers fn to receive a copy of the state after every
// transition. Calls are serialized.
func WithChangeHook(fn func(State)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Store owns the credential and everything derived from it.
//
// Every SetCredential and Logout starts a new epoch. Responses are applied
// only when they belong to the current epoch and are the latest request of
// their kind, so a slow response can never resurrect a replaced session.
type Store struct {
	gateway  Gateway
	storage  CredentialStorage
	decoder  Decoder
	onChange func(State)

	mu               sync.Mutex
	state            State
	claims           *user.Claims
	epoch            uint64
	identitySeq      uint64
	identityInflight int
	dir              directory

	storageMu sync.Mutex
	notifyMu  sync.Mutex
	wg        sync.WaitGroup
}

// NewStore creates a new Store. The session starts unauthenticated; call
// Restore to pick up a persisted credential.
func NewStore(gateway Gateway, storage CredentialStorage, opts ...Option) *Store {
	s := &Store{
		gateway: gateway,
		storage: storage,
		decoder: NewJWTDecoder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted credential, if any. An undecodable stored value
// leaves the session unauthenticated and is not reported as an error.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if token == "" {
		return nil
	}

	if err := s.SetCredential(ctx, token); err != nil && !errors.Is(err, ErrInvalidCredential) {
		return err
	}
	return nil
}

// SetCredential decodes token and, on success, authenticates the session with
// the embedded role and subject, persists the token and fetches the identity
// in the background. An undecodable token resets the session to
// unauthenticated and clears persisted storage.
func (s *Store) SetCredential(ctx context.Context, token string) error {
	claims, decodeErr := s.decoder.Decode(token)

	s.mu.Lock()
	s.resetLocked()
	epoch := s.epoch
	if decodeErr != nil {
		s.mu.Unlock()
		s.persist(epoch, "clear", CredentialStorage.Clear)

		log.Printf("[session] Discarding undecodable credential: %v", decodeErr)
		s.notify()
		return decodeErr
	}

	s.state.Credential = token
	s.claims = claims
	s.state.Identity = &user.User{ID: claims.UserID, Role: claims.Role}
	s.state.Role = claims.Role
	seq, _ := s.beginIdentityFetchLocked()
	s.mu.Unlock()

	s.persist(epoch, "save", func(st CredentialStorage) error {
		return st.Save(token)
	})

	s.notify()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.runIdentityFetch(context.WithoutCancel(ctx), seq, epoch, token, claims.UserID); err != nil {
			log.Printf("[session] Identity fetch for %s failed: %v", claims.UserID, err)
		}
	}()

	return nil
}

// FetchIdentity fetches the identity with the given id using the current
// credential. id must be the credential's subject; any other user is rejected
// with ErrIdentityMismatch and leaves the session untouched. The fetched
// identity replaces the held one and its role becomes authoritative. On
// failure the previous identity is kept and the error recorded.
func (s *Store) FetchIdentity(ctx context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	if s.state.Credential == "" {
		s.mu.Unlock()
		return nil, ErrNoCredential
	}
	token := s.state.Credential
	seq, epoch := s.beginIdentityFetchLocked()
	s.mu.Unlock()

	s.notify()
	return s.runIdentityFetch(ctx, seq, epoch, token, id)
}

// Logout clears the credential, identity, role, directory and persisted
// storage. It never fails.
func (s *Store) Logout() {
	s.mu.Lock()
	s.resetLocked()
	epoch := s.epoch
	s.mu.Unlock()

	s.persist(epoch, "clear", CredentialStorage.Clear)

	log.Println("[session] Logged out")
	s.notify()
}

// FetchDirectory replaces the user directory with the server's listing.
// Whether the caller may list users is decided by the API, not here.
func (s *Store) FetchDirectory(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	token := s.state.Credential
	if token == "" {
		s.mu.Unlock()
		return nil, ErrNoCredential
	}
	seq := s.dir.begin()
	epoch := s.epoch
	s.mu.Unlock()

	s.notify()

	users, err := s.gateway.ListUsers(ctx, token)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	applied := s.dir.resolve(seq, users, err)
	s.mu.Unlock()

	s.notify()

	if err != nil {
		return nil, fmt.Errorf("fetch directory: %w", err)
	}
	if !applied {
		return nil, ErrSuperseded
	}
	return users, nil
}

// Login exchanges username and password for a credential and installs it.
// A failed login leaves the session untouched.
func (s *Store) Login(ctx context.Context, username, password string) error {
	token, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.SetCredential(ctx, token)
}

// Register creates an account and installs the returned credential.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	token, err := s.gateway.Register(ctx, username, email, password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return s.SetCredential(ctx, token)
}

// Credential returns the current credential for use by other stores.
func (s *Store) Credential(_ context.Context) (user.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Credential == "" || s.claims == nil {
		return user.Credential{}, ErrNoCredential
	}
	return user.Credential{Token: s.state.Credential, Claims: *s.claims}, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.clone()
	st.Loading = s.identityInflight > 0
	s.dir.snapshot(&st)
	return st
}

// Wait blocks until background identity fetches have resolved.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) runIdentityFetch(ctx context.Context, seq, epoch uint64, token, id string) (*user.User, error) {
	fetched, err := s.gateway.GetUser(ctx, token, id)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.identityInflight--

	if err == nil && (fetched == nil || fetched.ID != s.claims.UserID) {
		err = ErrIdentityMismatch
	}

	if seq != s.identitySeq {
		s.mu.Unlock()
		s.notify()
		if err != nil {
			return nil, err
		}
		return nil, ErrSuperseded
	}

	if err != nil {
		s.state.Err = err
		s.mu.Unlock()
		s.notify()
		return nil, fmt.Errorf("fetch identity: %w", err)
	}

	identity := *fetched
	s.state.Identity = &identity
	s.state.Role = identity.Role
	s.state.IdentityLoaded = true
	s.state.Err = nil
	s.mu.Unlock()

	s.notify()
	return fetched, nil
}

func (s *Store) beginIdentityFetchLocked() (seq, epoch uint64) {
	s.identitySeq++
	s.identityInflight++
	s.state.Err = nil
	return s.identitySeq, s.epoch
}

func (s *Store) resetLocked() {
	s.epoch++
	s.state = State{}
	s.claims = nil
	s.identityInflight = 0
	s.dir.reset()
}

// persist runs write against storage outside the state lock. Writes are
// serialized and skipped once a newer epoch has started, so the last write to
// land always belongs to the latest credential.
func (s *Store) persist(epoch uint64, op string, write func(CredentialStorage) error) {
	s.storageMu.Lock()
	defer s.storageMu.Unlock()

	s.mu.Lock()
	current := epoch == s.epoch
	s.mu.Unlock()
	if !current {
		return
	}

	if err := write(s.storage); err != nil {
		log.Printf("[session] Warning: failed to %s persisted credential: %v", op, err)
	}
}

func (s *Store) notify() {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.onChange(s.Snapshot())
}
