// Package exec orchestrates statement execution: submit, stream,
// normalize, cancel. Results come back as a lazy, single-consumption
// sequence of normalized rows.
package exec

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/sqlparse"
)

// Executor submits SQL against the manager's active session. One
// executor serves one manager; handles it creates claim the session
// until they reach a terminal state.
type Executor struct {
	mgr        *conn.Manager
	classifier *sqlparse.Classifier
	timeout    time.Duration
	fetchSize  int
	log        *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the default per-query timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithFetchSize sets the batch size used when draining result sets.
func WithFetchSize(n int) Option {
	return func(e *Executor) { e.fetchSize = n }
}

// WithLogger attaches a logger; the default is a nop.
func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) { e.log = log }
}

func NewExecutor(mgr *conn.Manager, opts ...Option) *Executor {
	e := &Executor{
		mgr:        mgr,
		classifier: sqlparse.NewClassifier(),
		fetchSize:  100,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FetchSize returns the configured result batch size.
func (e *Executor) FetchSize() int { return e.fetchSize }

// RunQuery submits one statement and returns its handle. Multiple
// statements in one call are rejected unless the adapter declares the
// capability. Statements that return no rows complete immediately with
// their affected-row count.
func (e *Executor) RunQuery(ctx context.Context, sql string, args ...any) (*Handle, error) {
	sess := e.mgr.Session()
	if sess == nil {
		return nil, dberr.New(dberr.KindNotConnected, "", "no active session")
	}

	stmt, count := e.classifier.First(sql)
	if count == 0 {
		return nil, dberr.New(dberr.KindSyntax, string(sess.Profile().Kind), "empty statement")
	}
	if count > 1 && !sess.Adapter().Capabilities().SupportsMultipleStatements {
		return nil, dberr.Newf(dberr.KindSyntax, string(sess.Profile().Kind),
			"statement contains %d statements; this backend runs one at a time", count)
	}

	switch stmt.Class {
	case sqlparse.ClassTransaction:
		return e.runTransactionControl(ctx, sess, stmt)
	default:
	}

	if err := sess.Acquire(); err != nil {
		return nil, err
	}

	qctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     uuid.New(),
		sql:    stmt.Text,
		class:  stmt.Class,
		sess:   sess,
		exec:   e,
		qctx:   qctx,
		cancel: cancel,
	}
	if e.timeout > 0 {
		h.timer = time.AfterFunc(e.timeout, h.markTimeout)
	}

	e.log.Debug("execute",
		zap.String("query_id", h.id.String()),
		zap.String("class", stmt.Class.String()),
		zap.String("sql", stmt.Text))

	if stmt.Class.ReturnsRows() {
		raw, err := sess.Adapter().Query(qctx, stmt.Text, args...)
		if err != nil {
			return nil, h.fail(err)
		}
		h.mu.Lock()
		h.raw = raw
		h.cols = raw.Columns()
		h.mu.Unlock()
		return h, nil
	}

	affected, err := sess.Adapter().Exec(qctx, stmt.Text, args...)
	if err != nil {
		return nil, h.fail(err)
	}
	h.mu.Lock()
	h.rowsAffected = affected
	h.completeLocked()
	h.mu.Unlock()
	return h, nil
}

// runTransactionControl routes BEGIN/COMMIT/ROLLBACK written as SQL
// text through the explicit transaction operations so session state
// stays accurate.
func (e *Executor) runTransactionControl(ctx context.Context, sess *conn.Session, stmt sqlparse.Statement) (*Handle, error) {
	var err error
	switch firstKeyword(stmt.Text) {
	case "BEGIN", "START":
		err = e.Begin(ctx)
	case "COMMIT":
		err = e.Commit(ctx)
	case "ROLLBACK":
		err = e.Rollback(ctx)
	default:
		err = dberr.Newf(dberr.KindSyntax, string(sess.Profile().Kind),
			"unsupported transaction statement: %s", stmt.Text)
	}
	if err != nil {
		return nil, err
	}
	h := &Handle{
		id:       uuid.New(),
		sql:      stmt.Text,
		class:    stmt.Class,
		sess:     sess,
		exec:     e,
		cancel:   func() {},
		state:    StateCompleted,
		released: true,
	}
	return h, nil
}

// Begin opens a transaction on the active session.
func (e *Executor) Begin(ctx context.Context) error {
	sess := e.mgr.Session()
	if sess == nil {
		return dberr.New(dberr.KindNotConnected, "", "no active session")
	}
	if sess.TxState() != conn.TxNone {
		return dberr.New(dberr.KindBusy, string(sess.Profile().Kind), "transaction already open")
	}
	if err := sess.Acquire(); err != nil {
		return err
	}
	defer sess.Release()
	if err := sess.Adapter().Begin(ctx); err != nil {
		return err
	}
	sess.SetTxState(conn.TxActive)
	return nil
}

// Commit commits the open transaction. A failed transaction cannot be
// committed; it must be rolled back.
func (e *Executor) Commit(ctx context.Context) error {
	sess := e.mgr.Session()
	if sess == nil {
		return dberr.New(dberr.KindNotConnected, "", "no active session")
	}
	switch sess.TxState() {
	case conn.TxNone:
		return dberr.New(dberr.KindInternal, string(sess.Profile().Kind), "no open transaction")
	case conn.TxFailed:
		return dberr.New(dberr.KindInternal, string(sess.Profile().Kind),
			"transaction failed; roll it back explicitly")
	}
	if err := sess.Acquire(); err != nil {
		return err
	}
	defer sess.Release()
	if err := sess.Adapter().Commit(ctx); err != nil {
		sess.SetTxState(conn.TxFailed)
		return err
	}
	sess.SetTxState(conn.TxNone)
	return nil
}

// Rollback rolls back the open (or failed) transaction.
func (e *Executor) Rollback(ctx context.Context) error {
	sess := e.mgr.Session()
	if sess == nil {
		return dberr.New(dberr.KindNotConnected, "", "no active session")
	}
	if sess.TxState() == conn.TxNone {
		return dberr.New(dberr.KindInternal, string(sess.Profile().Kind), "no open transaction")
	}
	if err := sess.Acquire(); err != nil {
		return err
	}
	defer sess.Release()
	err := sess.Adapter().Rollback(ctx)
	sess.SetTxState(conn.TxNone)
	return err
}

func firstKeyword(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(fields[0], ";"))
}
