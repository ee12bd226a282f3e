// Package session owns the signed-in user: it restores a persisted token on
// startup, logs in and out, and ends the session when the backend rejects
// the token.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/tokenstore"
)

type State int

const (
	Unauthenticated State = iota
	Checking
	Authenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is the signed-in user. A non-nil Session implies the store holds
// a token that had not expired when the session was established.
type Session struct {
	UserID      int64
	Name        string
	Email       string
	TokenExpiry time.Time
}

// Listener observes state transitions. sess is nil unless state is Authenticated.
type Listener func(state State, sess *Session)

type Manager struct {
	store  tokenstore.Store
	client *api.Client
	logger *log.Logger
	now    func() time.Time

	mu        sync.RWMutex
	state     State
	session   *Session
	token     string
	listeners []Listener
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.WithComponent(log.ComponentSession)
		}
	}
}

// NewManager builds a manager and registers it as the client's credential
// source, so every authenticated request carries its token and every 401
// ends the session.
func NewManager(store tokenstore.Store, client *api.Client, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		client: client,
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	client.UseCredentials(m)
	return m
}

// Initialize restores a persisted session. It returns once the outcome is
// known: an absent, undecodable or expired token ends unauthenticated without
// touching the network, otherwise the token is checked against /auth/me.
func (m *Manager) Initialize(ctx context.Context) State {
	m.transition(Checking, nil, "")

	token, err := m.store.Load(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		m.transition(Unauthenticated, nil, "")
		return Unauthenticated
	}
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to read persisted token",
			log.NewFields().WithOperation(log.OpInitialize).WithError(err).WithErrorType(log.ErrorTypeStorage).ToSlice()...)
		m.Logout()
		return Unauthenticated
	}

	exp, err := tokenExpiry(token)
	if err != nil || expired(exp, m.now()) {
		fields := log.NewFields().WithOperation(log.OpInitialize).WithError(err)
		if err == nil {
			fields["expired_at"] = exp.UTC().Format(time.RFC3339)
		}
		m.logger.InfoContext(ctx, "Persisted token unusable, logging out", fields.ToSlice()...)
		m.Logout()
		return Unauthenticated
	}

	// The candidate token must be visible to the client for the /auth/me check.
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	user, err := m.client.Me(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "Token validation failed, logging out",
			log.NewFields().WithOperation(log.OpInitialize).WithError(err).ToSlice()...)
		m.Logout()
		return Unauthenticated
	}

	m.transition(Authenticated, newSession(user, exp), token)
	m.logger.InfoContext(ctx, "Session restored", log.FieldUserID, user.ID)
	return Authenticated
}

// Login installs a token obtained elsewhere together with its user. The
// token's expiry is decoded when possible; an undecodable token is still
// accepted since the backend will reject it on first use.
func (m *Manager) Login(ctx context.Context, token string, user core.User) error {
	if err := m.store.Save(ctx, token); err != nil {
		return err
	}
	exp, err := tokenExpiry(token)
	if err != nil {
		m.logger.DebugContext(ctx, "Could not decode token expiry", log.FieldError, err.Error())
	}
	m.transition(Authenticated, newSession(user, exp), token)
	m.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin, log.FieldUserID, user.ID)
	return nil
}

// LoginWithCredentials exchanges email and password for a token. Failures are
// returned as they came from the backend and leave the session untouched.
func (m *Manager) LoginWithCredentials(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	resp, err := m.client.Login(ctx, api.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, err
	}
	if err := m.Login(ctx, resp.Token, resp.User); err != nil {
		return nil, err
	}
	return resp, nil
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

const MinPasswordLength = 6

func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return &core.ValidationError{Message: "Name, email and password are required"}
	}
	if r.Password != r.ConfirmPassword {
		return &core.ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	if len(r.Password) < MinPasswordLength {
		return &core.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// Register creates an account. It does not sign in.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*api.RegisterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.client.Register(ctx, api.RegisterRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
}

// Logout clears the persisted token and the session. It cannot fail and is
// safe to call repeatedly.
func (m *Manager) Logout() {
	if err := m.store.Clear(context.Background()); err != nil {
		m.logger.Error("Failed to clear persisted token",
			log.NewFields().WithOperation(log.OpLogout).WithError(err).WithErrorType(log.ErrorTypeStorage).ToSlice()...)
	}
	if m.transition(Unauthenticated, nil, "") {
		m.logger.Info("Logged out", log.FieldOperation, log.OpLogout)
	}
}

// HandleAuthFailure is called by the API client when the backend answers 401.
func (m *Manager) HandleAuthFailure() {
	m.logger.Warn("Backend rejected the session token", log.FieldErrorType, log.ErrorTypeAuth)
	m.Logout()
}

// Token returns the bearer token for outgoing requests, empty when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Current returns a copy of the session, or nil when signed out.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnChange registers l for every state transition.
func (m *Manager) OnChange(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// transition applies a new state and notifies listeners outside the lock.
// It reports whether anything changed.
func (m *Manager) transition(state State, sess *Session, token string) bool {
	m.mu.Lock()
	changed := m.state != state || m.session != sess || m.token != token
	m.state, m.session, m.token = state, sess, token
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if !changed {
		return false
	}
	m.logger.Debug("Session state changed", log.FieldState, state.String())
	var snapshot *Session
	if sess != nil {
		s := *sess
		snapshot = &s
	}
	for _, l := range listeners {
		l(state, snapshot)
	}
	return true
}

func newSession(u core.User, exp time.Time) *Session {
	return &Session{UserID: u.ID, Name: u.Name, Email: u.Email, TokenExpiry: exp}
}
