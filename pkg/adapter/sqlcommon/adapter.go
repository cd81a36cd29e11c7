// Package sqlcommon implements the shared driver adapter for backends
// reachable through database/sql. Engine behavior is injected through
// the Dialect interface; the mysql, postgresql, oracle and sqlite
// packages each wrap this adapter with their dialect.
package sqlcommon

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Adapter is a database/sql-backed implementation of adapter.Adapter.
// The session link is pinned to a single *sql.Conn so transaction state
// and statement serialization have one concrete home.
type Adapter struct {
	mu      sync.Mutex
	profile *adapter.Profile
	cfg     *Config
	dialect Dialect
	log     *zap.Logger

	db        *sql.DB
	conn      *sql.Conn
	tx        *sql.Tx
	version   string
	connected bool
}

// New builds an adapter from a profile and dialect. The logger may be
// nil; a nop logger is used then.
func New(profile *adapter.Profile, dialect Dialect, log *zap.Logger) (*Adapter, error) {
	cfg, err := ParseConfig(profile)
	if err != nil {
		return nil, dberr.WrapMsg(dberr.KindInternal, string(dialect.Kind()), "invalid options", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		profile: profile,
		cfg:     cfg,
		dialect: dialect,
		log:     log.With(zap.String("backend", string(dialect.Kind()))),
	}, nil
}

func (a *Adapter) Kind() adapter.Kind { return a.dialect.Kind() }

func (a *Adapter) Capabilities() adapter.Capabilities { return a.dialect.Capabilities() }

// Dialect exposes the engine dialect.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Catalog exposes the dialect's metadata queries.
func (a *Adapter) Catalog() adapter.Catalog { return a.dialect }

// Connect opens the database handle, pins the session connection and
// verifies the server version.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil
	}

	dsn, err := a.dialect.BuildDSN(a.profile, a.cfg)
	if err != nil {
		return dberr.WrapMsg(dberr.KindInternal, string(a.Kind()), "build DSN", err)
	}

	db, err := sql.Open(a.dialect.DriverName(), dsn)
	if err != nil {
		return a.normalizeErrorLocked(err)
	}

	db.SetMaxOpenConns(a.cfg.MaxOpenConns)
	db.SetMaxIdleConns(a.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(a.cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(a.cfg.ConnMaxIdleTime) * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.ConnectTimeout)*time.Second)
	defer cancel()

	conn, err := db.Conn(connectCtx)
	if err != nil {
		db.Close()
		return a.normalizeErrorLocked(err)
	}

	version, err := a.queryVersion(connectCtx, conn)
	if err != nil {
		conn.Close()
		db.Close()
		return a.normalizeErrorLocked(err)
	}
	if err := a.dialect.CheckVersion(version); err != nil {
		conn.Close()
		db.Close()
		return err
	}

	a.db = db
	a.conn = conn
	a.version = version
	a.connected = true
	a.log.Info("connected",
		zap.String("host", a.profile.Host),
		zap.String("database", a.profile.Database),
		zap.String("server_version", version))
	return nil
}

func (a *Adapter) queryVersion(ctx context.Context, conn *sql.Conn) (string, error) {
	var version string
	row := conn.QueryRowContext(ctx, a.dialect.VersionQuery())
	if err := row.Scan(&version); err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return version, nil
}

// Close releases the pinned connection and the pool.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Adapter) closeLocked() error {
	a.connected = false
	a.tx = nil
	var firstErr error
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			firstErr = err
		}
		a.conn = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.db = nil
	}
	return firstErr
}

func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Adapter) ServerVersion() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}

// Query runs a row-returning statement on the session link, inside the
// open transaction when there is one.
func (a *Adapter) Query(ctx context.Context, sqlText string, args ...any) (adapter.RawRows, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, dberr.New(dberr.KindNotConnected, string(a.Kind()), "not connected")
	}
	tx, conn := a.tx, a.conn
	a.mu.Unlock()

	var (
		rows *sql.Rows
		err  error
	)
	if tx != nil {
		rows, err = tx.QueryContext(ctx, sqlText, args...)
	} else {
		rows, err = conn.QueryContext(ctx, sqlText, args...)
	}
	if err != nil {
		return nil, a.NormalizeError(err)
	}
	raw, err := newRawRows(rows, a.dialect)
	if err != nil {
		rows.Close()
		return nil, a.NormalizeError(err)
	}
	return raw, nil
}

// Exec runs a statement that returns no result set.
func (a *Adapter) Exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return 0, dberr.New(dberr.KindNotConnected, string(a.Kind()), "not connected")
	}
	tx, conn := a.tx, a.conn
	a.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if tx != nil {
		res, err = tx.ExecContext(ctx, sqlText, args...)
	} else {
		res, err = conn.ExecContext(ctx, sqlText, args...)
	}
	if err != nil {
		return 0, a.NormalizeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some engines cannot report a count; that is not a failure.
		return 0, nil
	}
	return affected, nil
}

func (a *Adapter) Begin(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return dberr.New(dberr.KindNotConnected, string(a.Kind()), "not connected")
	}
	if !a.dialect.Capabilities().SupportsTransactions {
		return dberr.New(dberr.KindInternal, string(a.Kind()), "backend does not support transactions")
	}
	if a.tx != nil {
		return dberr.New(dberr.KindBusy, string(a.Kind()), "transaction already open")
	}
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return a.normalizeErrorLocked(err)
	}
	a.tx = tx
	return nil
}

func (a *Adapter) Commit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tx == nil {
		return dberr.New(dberr.KindInternal, string(a.Kind()), "no open transaction")
	}
	err := a.tx.Commit()
	a.tx = nil
	if err != nil {
		return a.normalizeErrorLocked(err)
	}
	return nil
}

func (a *Adapter) Rollback(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tx == nil {
		return dberr.New(dberr.KindInternal, string(a.Kind()), "no open transaction")
	}
	err := a.tx.Rollback()
	a.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return a.normalizeErrorLocked(err)
	}
	return nil
}

// Abort force-closes the session link. Used as the cancellation
// fallback when the backend cannot interrupt a running statement; the
// manager sees the resulting connection-lost and requires an explicit
// reconnect.
func (a *Adapter) Abort() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log.Warn("aborting session link")
	return a.closeLocked()
}

// NormalizeType maps a native column type name through the dialect.
func (a *Adapter) NormalizeType(nativeType string) value.Kind {
	return a.dialect.NormalizeType(nativeType)
}

// NormalizeValue converts one raw cell through the dialect normalizer.
func (a *Adapter) NormalizeValue(col adapter.Column, raw any) value.Value {
	return a.dialect.NormalizeValue(col, raw)
}

// NormalizeError maps driver errors onto the shared taxonomy. Dialect
// mappings take precedence; context and transport failures share one
// fallback path.
func (a *Adapter) NormalizeError(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.normalizeErrorLocked(err)
}

func (a *Adapter) normalizeErrorLocked(err error) error {
	if err == nil {
		return nil
	}
	var taxed *dberr.Error
	if errors.As(err, &taxed) {
		return err
	}
	backend := string(a.Kind())
	mapped := a.dialect.MapError(err)
	if mapped == nil {
		mapped, _ = MapCommonError(backend, err).(*dberr.Error)
	}
	if mapped == nil {
		return dberr.Wrap(dberr.KindUnknown, backend, err)
	}
	if mapped.Kind == dberr.KindConnectionLost {
		a.connected = false
	}
	return mapped
}

// MapCommonError handles failures every database/sql driver can
// produce: context cancellation, deadline expiry and transport loss.
func MapCommonError(backend string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return dberr.Wrap(dberr.KindCancelled, backend, err)
	case errors.Is(err, context.DeadlineExceeded):
		return dberr.Wrap(dberr.KindTimeout, backend, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone), errors.Is(err, io.EOF):
		return dberr.Wrap(dberr.KindConnectionLost, backend, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return dberr.Wrap(dberr.KindTimeout, backend, err)
		}
		return dberr.Wrap(dberr.KindNetwork, backend, err)
	}
	return dberr.Wrap(dberr.KindUnknown, backend, err)
}
