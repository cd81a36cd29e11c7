package exec

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/sqlparse"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Row is one normalized result row, aligned to the handle's column
// descriptor list.
type Row []value.Value

// HandleState is the query handle lifecycle state.
type HandleState int

const (
	StatePending HandleState = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s HandleState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further transitions are possible.
func (s HandleState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Handle represents one in-flight or completed execution. It is
// single-use: once drained or cancelled, re-running requires a fresh
// execute.
type Handle struct {
	id    uuid.UUID
	sql   string
	class sqlparse.Class

	sess *conn.Session
	exec *Executor

	qctx   context.Context
	cancel context.CancelFunc
	timer  *time.Timer

	mu           sync.Mutex
	state        HandleState
	raw          adapter.RawRows
	cols         []adapter.Column
	rowsAffected int64
	err          error
	timedOut     bool
	fetching     bool
	released     bool
}

func (h *Handle) ID() uuid.UUID { return h.id }

func (h *Handle) SQL() string { return h.sql }

func (h *Handle) Class() sqlparse.Class { return h.class }

func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Columns returns the immutable column descriptor list. Empty for
// statements that return no rows.
func (h *Handle) Columns() []adapter.Column {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cols
}

// RowsAffected reports the affected-row count of a non-row statement.
func (h *Handle) RowsAffected() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rowsAffected
}

// Err returns the terminal error, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// markTimeout runs off the timeout timer just before the query context
// is cancelled, so the eventual cancellation error reports as a timeout
// rather than a caller cancel.
func (h *Handle) markTimeout() {
	h.mu.Lock()
	h.timedOut = true
	h.mu.Unlock()
	h.cancel()
}

// Fetch returns up to maxRows normalized rows and an end-of-result
// flag. The first call moves the handle from pending to streaming.
// Backend row order is preserved.
func (h *Handle) Fetch(ctx context.Context, maxRows int) ([]Row, bool, error) {
	h.mu.Lock()
	switch {
	case h.state == StateCompleted:
		h.mu.Unlock()
		return nil, true, nil
	case h.state.Terminal():
		err := h.err
		h.mu.Unlock()
		return nil, true, err
	case h.raw == nil:
		// Statement produced no result set; completing it is the only
		// fetch outcome.
		h.completeLocked()
		h.mu.Unlock()
		return nil, true, nil
	}
	if err := ctx.Err(); err != nil {
		h.mu.Unlock()
		return nil, false, h.fail(err)
	}
	h.state = StateStreaming
	h.fetching = true
	raw := h.raw
	cols := h.cols
	h.mu.Unlock()

	batch, eof, err := raw.FetchNext(h.qctx, maxRows)
	rows := h.normalize(cols, batch)

	h.mu.Lock()
	h.fetching = false
	if h.state.Terminal() {
		// A concurrent Cancel won while the read was blocked and left
		// the cursor teardown to us.
		h.teardownLocked()
		terr := h.err
		h.mu.Unlock()
		return rows, false, terr
	}
	h.mu.Unlock()

	if err != nil {
		return rows, false, h.fail(err)
	}
	if eof {
		h.mu.Lock()
		h.completeLocked()
		h.mu.Unlock()
	}
	return rows, eof, nil
}

func (h *Handle) normalize(cols []adapter.Column, batch [][]any) []Row {
	if len(batch) == 0 {
		return nil
	}
	ad := h.sess.Adapter()
	rows := make([]Row, len(batch))
	for i, rawRow := range batch {
		row := make(Row, len(cols))
		for j := range cols {
			if j < len(rawRow) {
				row[j] = ad.NormalizeValue(cols[j], rawRow[j])
			} else {
				row[j] = value.Null()
			}
		}
		rows[i] = row
	}
	return rows
}

// fail normalizes err, transitions the handle and propagates fatal
// connection errors to the manager. Caller-initiated cancellation and
// timeout expiry both land in the cancelled state; the error kind tells
// them apart.
func (h *Handle) fail(err error) error {
	normalized := h.sess.Adapter().NormalizeError(err)

	h.mu.Lock()
	if h.state.Terminal() {
		err := h.err
		h.mu.Unlock()
		return err
	}
	kind := dberr.KindOf(normalized)
	if kind == dberr.KindCancelled && h.timedOut {
		normalized = dberr.WrapMsg(dberr.KindTimeout, string(h.sess.Profile().Kind),
			"query timeout expired", normalized)
		kind = dberr.KindTimeout
	}
	h.err = normalized
	if kind == dberr.KindCancelled || kind == dberr.KindTimeout {
		h.state = StateCancelled
	} else {
		h.state = StateFailed
	}
	h.teardownLocked()
	h.mu.Unlock()

	if kind == dberr.KindConnectionLost {
		h.exec.mgr.HandleFatal(normalized)
	}
	return normalized
}

// Cancel aborts the execution. Calling it on an already-finished handle
// is a no-op. The cancel is observable by a blocked fetch within one
// I/O round trip; backends without true cancellation get their link
// closed instead.
//
// When a fetch is blocked inside the driver, Cancel must not touch the
// cursor: closing it waits behind the in-flight read. It cancels the
// query context instead and the unblocked fetch finishes the teardown.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return nil
	}
	h.state = StateCancelled
	h.err = dberr.New(dberr.KindCancelled, string(h.sess.Profile().Kind), "query cancelled")
	if h.fetching {
		if h.timer != nil {
			h.timer.Stop()
			h.timer = nil
		}
	} else {
		h.teardownLocked()
	}
	h.mu.Unlock()

	h.cancel()
	if !h.sess.Adapter().Capabilities().SupportsCancel {
		return h.sess.Adapter().Abort()
	}
	return nil
}

// completeLocked finishes a fully-drained handle.
func (h *Handle) completeLocked() {
	if h.state.Terminal() {
		return
	}
	h.state = StateCompleted
	h.teardownLocked()
}

// teardownLocked releases everything a terminal handle holds: the
// result cursor, the timeout timer and the session claim. A cancelled
// query inside an open transaction leaves the transaction failed.
func (h *Handle) teardownLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.raw != nil {
		h.raw.Close()
		h.raw = nil
	}
	if !h.released {
		h.released = true
		if h.state == StateCancelled && h.sess.TxState() == conn.TxActive {
			h.sess.SetTxState(conn.TxFailed)
		}
		h.sess.Release()
	}
	if h.cancel != nil {
		h.cancel()
	}
}
