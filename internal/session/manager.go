// Package session keeps the photo-service client logged in across fetch
// cycles.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/mensabot/internal/instagram"
	"github.com/vbonduro/mensabot/internal/sessionstore"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 5 * time.Second
)

// Client is the part of instagram.Client the manager drives.
type Client interface {
	Login(ctx context.Context, username, password string) error
	ValidateSession(ctx context.Context) error
	Session() *instagram.Session
	SetSession(s *instagram.Session)
}

type Credentials interface {
	InstagramCredentials() (string, string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Manager struct {
	client      Client
	store       sessionstore.SessionStore
	creds       Credentials
	logger      *slog.Logger
	sleep       SleepFunc
	maxAttempts int
	baseBackoff time.Duration
	// username locates a stored session when credentials are unavailable.
	username string

	// loginMu serializes Login. mu guards the counters only and is never
	// held across a sleep or a network call.
	loginMu  sync.Mutex
	mu       sync.Mutex
	attempts int
	loggedIn bool
}

type Option func(*Manager)

func WithSleep(fn SleepFunc) Option { return func(m *Manager) { m.sleep = fn } }

func WithMaxAttempts(n int) Option { return func(m *Manager) { m.maxAttempts = n } }

func WithUsername(name string) Option { return func(m *Manager) { m.username = name } }

func NewManager(client Client, store sessionstore.SessionStore, creds Credentials, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		client:      client,
		store:       store,
		creds:       creds,
		logger:      logger,
		sleep:       Sleep,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedIn
}

func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Login makes sure the client holds a working session. It reuses the stored
// session when it still validates and otherwise logs in with credentials.
// After maxAttempts consecutive failures it gives up for the process lifetime
// without touching the network.
func (m *Manager) Login(ctx context.Context) bool {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	attempt, ok := m.begin()
	if !ok {
		m.logger.Warn("login attempt ceiling reached", "attempts", attempt)
		return false
	}

	if attempt > 1 {
		delay := m.baseBackoff << (attempt - 2)
		m.logger.Info("backing off before login", "attempt", attempt, "delay", delay)
		if err := m.sleep(ctx, delay); err != nil {
			m.fail()
			return false
		}
	}

	user, pass, credErr := m.creds.InstagramCredentials()
	sessionUser := user
	if credErr != nil {
		sessionUser = m.username
	}

	if m.reuse(ctx, sessionUser) {
		m.succeed()
		return true
	}

	if credErr != nil {
		m.logger.Error("no instagram credentials available", "error", credErr)
		m.fail()
		return false
	}

	if err := m.client.Login(ctx, user, pass); err != nil {
		m.logFailure(err, attempt)
		m.fail()
		return false
	}

	if m.store != nil {
		if err := m.store.Save(ctx, m.client.Session()); err != nil {
			m.logger.Error("failed to save session", "error", err)
		}
	}
	m.logger.Info("logged in to instagram", "username", user)
	m.succeed()
	return true
}

// begin counts a new attempt. It reports false once the ceiling is reached.
func (m *Manager) begin() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempts >= m.maxAttempts {
		m.loggedIn = false
		return m.attempts, false
	}
	m.attempts++
	return m.attempts, true
}

func (m *Manager) reuse(ctx context.Context, user string) bool {
	if m.store == nil || user == "" {
		return false
	}
	sess, err := m.store.Load(ctx, user)
	if err != nil {
		if !errors.Is(err, sessionstore.ErrNotFound) {
			m.logger.Warn("failed to load stored session", "error", err)
		}
		return false
	}
	m.client.SetSession(sess)
	if err := m.client.ValidateSession(ctx); err != nil {
		m.logger.Info("stored session rejected", "error", err)
		return false
	}
	m.logger.Info("reusing stored instagram session", "username", user)
	return true
}

func (m *Manager) succeed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = 0
	m.loggedIn = true
}

func (m *Manager) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedIn = false
}

func (m *Manager) logFailure(err error, attempt int) {
	var kind string
	switch {
	case errors.Is(err, instagram.ErrChallengeRequired):
		kind = "challenge_required"
	case errors.Is(err, instagram.ErrIPBlocked):
		kind = "ip_blocked"
	case errors.Is(err, instagram.ErrBadPassword):
		kind = "bad_password"
	case errors.Is(err, instagram.ErrRateLimited):
		kind = "rate_limited"
	default:
		kind = "generic"
	}
	m.logger.Error("instagram login failed", "kind", kind, "attempt", attempt, "error", err)
}
