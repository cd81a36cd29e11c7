package conn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// TxState tracks the session transaction.
type TxState int

const (
	TxNone TxState = iota
	TxActive
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxNone:
		return "none"
	case TxActive:
		return "active"
	case TxFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Session is one authenticated link to a backend instance. It owns the
// live adapter handle and the transaction state, and serializes
// statement execution unless the adapter declares otherwise.
type Session struct {
	id        uuid.UUID
	profile   *adapter.Profile
	adapter   adapter.Adapter
	createdAt time.Time

	mu      sync.Mutex
	tx      TxState
	inUse   bool
	expired bool
}

func newSession(profile *adapter.Profile, ad adapter.Adapter) *Session {
	return &Session{
		id:        uuid.New(),
		profile:   profile,
		adapter:   ad,
		createdAt: time.Now(),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Profile() *adapter.Profile { return s.profile }

func (s *Session) Adapter() adapter.Adapter { return s.adapter }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) TxState() TxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx
}

// SetTxState is called by the executor on begin/commit/rollback and on
// cancellation inside an open transaction.
func (s *Session) SetTxState(state TxState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx = state
}

// Acquire claims the session for one statement. It fails with the busy
// kind while a prior query handle is outstanding, unless the adapter
// supports concurrent statements on one link.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return dberr.New(dberr.KindNotConnected, string(s.profile.Kind), "session closed")
	}
	if s.inUse && !s.adapter.Capabilities().SupportsMultipleStatements {
		return dberr.New(dberr.KindBusy, string(s.profile.Kind),
			"a query is already running on this session")
	}
	s.inUse = true
	return nil
}

// Release returns the session after a handle reaches a terminal state.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inUse = false
}

func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
	s.tx = TxNone
}

// Expired reports whether the session was destroyed by a disconnect or
// fatal protocol error.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}
