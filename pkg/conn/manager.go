// Package conn owns connection lifecycle: one active session at a
// time, explicit state transitions and no silent reconnects.
package conn

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// State is the manager connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}

// Manager drives the disconnected -> connecting -> connected state
// machine. Only one transition may be in flight; switching backends
// requires a full disconnect/connect cycle. On a connection-lost the
// manager drops to disconnected and waits for an explicit reconnect;
// it never retries on its own.
type Manager struct {
	mu      sync.Mutex
	state   State
	session *Session
	log     *zap.Logger

	factory adapter.Factory
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger; the default is a nop.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithFactory overrides adapter construction, mainly for tests.
func WithFactory(factory adapter.Factory) Option {
	return func(m *Manager) { m.factory = factory }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		log:     zap.NewNop(),
		factory: adapter.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the active session, or nil when disconnected.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Connect establishes a session for the profile. The profile is owned
// by the manager from here on and must not change while the session
// lives.
func (m *Manager) Connect(ctx context.Context, profile *adapter.Profile) (*Session, error) {
	m.mu.Lock()
	switch m.state {
	case StateConnecting:
		m.mu.Unlock()
		return nil, dberr.New(dberr.KindBusy, string(profile.Kind), "a connect is already in flight")
	case StateConnected:
		m.mu.Unlock()
		return nil, dberr.New(dberr.KindBusy, string(profile.Kind),
			"already connected; disconnect before connecting again")
	}
	m.state = StateConnecting
	m.mu.Unlock()

	ad, err := m.factory(profile)
	if err == nil {
		err = ad.Connect(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateDisconnected
		m.log.Error("connect failed",
			zap.String("target", profile.Name),
			zap.String("backend", string(profile.Kind)),
			zap.Error(err))
		return nil, err
	}

	m.session = newSession(profile, ad)
	m.state = StateConnected
	m.log.Info("session established",
		zap.String("target", profile.Name),
		zap.String("backend", string(profile.Kind)),
		zap.String("session_id", m.session.ID().String()),
		zap.String("server_version", ad.ServerVersion()))
	return m.session, nil
}

// Disconnect destroys the active session.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting {
		m.mu.Unlock()
		return dberr.New(dberr.KindBusy, "", "a connect is in flight")
	}
	sess := m.session
	m.session = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if sess == nil {
		return nil
	}
	sess.expire()
	err := sess.Adapter().Close(ctx)
	m.log.Info("session closed", zap.String("session_id", sess.ID().String()))
	return err
}

// HandleFatal is called when an in-flight operation surfaced a
// connection-lost. The session is destroyed; the error keeps flowing to
// the caller verbatim so the UI can decide whether to reconnect.
func (m *Manager) HandleFatal(err error) {
	if dberr.KindOf(err) != dberr.KindConnectionLost {
		return
	}
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if sess != nil {
		sess.expire()
		sess.Adapter().Abort()
		m.log.Warn("connection lost, session destroyed",
			zap.String("session_id", sess.ID().String()),
			zap.Error(err))
	}
}
