package sqlcommon

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// fakeDialect drives the shared adapter against the sqlmock driver.
type fakeDialect struct {
	dsn         string
	badVersion  bool
	mapErr      map[error]dberr.Kind
	mapErrMatch error
}

func (d *fakeDialect) DriverName() string { return "sqlmock" }
func (d *fakeDialect) Kind() adapter.Kind { return adapter.Kind("fake") }
func (d *fakeDialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{SupportsCancel: true, SupportsTransactions: true}
}
func (d *fakeDialect) BuildDSN(profile *adapter.Profile, cfg *Config) (string, error) {
	return d.dsn, nil
}
func (d *fakeDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (d *fakeDialect) Placeholder(n int) string           { return "?" }
func (d *fakeDialect) VersionQuery() string               { return "SELECT version" }
func (d *fakeDialect) CheckVersion(version string) error {
	if d.badVersion {
		return dberr.New(dberr.KindUnsupportedVersion, "fake", "too old")
	}
	return nil
}
func (d *fakeDialect) NormalizeType(nativeType string) value.Kind {
	switch nativeType {
	case "INT":
		return value.KindInt
	default:
		return value.KindString
	}
}
func (d *fakeDialect) NormalizeValue(col adapter.Column, raw any) value.Value {
	return DefaultNormalize(col, raw)
}
func (d *fakeDialect) MapError(err error) *dberr.Error {
	if d.mapErrMatch != nil && errors.Is(err, d.mapErrMatch) {
		return dberr.Wrap(d.mapErr[d.mapErrMatch], "fake", err)
	}
	return nil
}
func (d *fakeDialect) DefaultSchema(profile *adapter.Profile) string { return "main" }
func (d *fakeDialect) SchemasQuery() string                          { return "SELECT schema_name" }
func (d *fakeDialect) TablesQuery() string                           { return "SELECT table_name" }
func (d *fakeDialect) ColumnsQuery() string                          { return "SELECT column_name" }
func (d *fakeDialect) IndexesQuery() string                          { return "SELECT index_name" }
func (d *fakeDialect) ConstraintsQuery() string                      { return "SELECT constraint_name" }

func newTestAdapter(t *testing.T, dsn string, dialect *fakeDialect) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.NewWithDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dialect.dsn = dsn
	ad, err := New(&adapter.Profile{Kind: adapter.Kind("fake"), Host: "x", Database: "d"}, dialect, nil)
	require.NoError(t, err)
	return ad, mock
}

func expectConnect(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("1.0-test"))
}

func TestConnectReportsVersion(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_connect", &fakeDialect{})
	expectConnect(mock)

	require.NoError(t, ad.Connect(context.Background()))
	assert.True(t, ad.Connected())
	assert.Equal(t, "1.0-test", ad.ServerVersion())

	// second connect is a no-op
	require.NoError(t, ad.Connect(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRejectsOldServer(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_oldserver", &fakeDialect{badVersion: true})
	expectConnect(mock)

	err := ad.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, dberr.KindUnsupportedVersion, dberr.KindOf(err))
	assert.False(t, ad.Connected())
}

func TestQueryStreamsBatches(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_query", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(1, "a").AddRow(2, "b").AddRow(3, "c")
	mock.ExpectQuery("SELECT id, name FROM things").WillReturnRows(rows)

	raw, err := ad.Query(context.Background(), "SELECT id, name FROM things")
	require.NoError(t, err)
	defer raw.Close()

	cols := raw.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)

	batch, eof, err := raw.FetchNext(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, eof)
	assert.Len(t, batch, 2)

	batch, eof, err = raw.FetchNext(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, eof)
	assert.Len(t, batch, 1)

	// fetching past the end keeps reporting eof
	batch, eof, err = raw.FetchNext(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, eof)
	assert.Empty(t, batch)
}

func TestQueryObservesCancelBetweenRows(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_cancel", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2)
	mock.ExpectQuery("SELECT id FROM things").WillReturnRows(rows)

	raw, err := ad.Query(context.Background(), "SELECT id FROM things")
	require.NoError(t, err)
	defer raw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = raw.FetchNext(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecReportsAffectedRows(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_exec", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	mock.ExpectExec("UPDATE things SET x = 1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := ad.Exec(context.Background(), "UPDATE things SET x = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestNotConnectedErrors(t *testing.T) {
	ad, _ := newTestAdapter(t, "sqlcommon_notconnected", &fakeDialect{})

	_, err := ad.Query(context.Background(), "SELECT 1")
	assert.Equal(t, dberr.KindNotConnected, dberr.KindOf(err))

	_, err = ad.Exec(context.Background(), "DELETE FROM t")
	assert.Equal(t, dberr.KindNotConnected, dberr.KindOf(err))

	err = ad.Begin(context.Background())
	assert.Equal(t, dberr.KindNotConnected, dberr.KindOf(err))
}

func TestTransactionLifecycle(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_tx", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ad.Begin(context.Background()))

	// a second begin on the same link is refused
	err := ad.Begin(context.Background())
	assert.Equal(t, dberr.KindBusy, dberr.KindOf(err))

	_, err = ad.Exec(context.Background(), "INSERT INTO t VALUES (1)")
	require.NoError(t, err)

	require.NoError(t, ad.Commit(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	// no transaction open anymore
	err = ad.Commit(context.Background())
	assert.Equal(t, dberr.KindInternal, dberr.KindOf(err))
}

func TestRollback(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_rollback", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, ad.Begin(context.Background()))
	require.NoError(t, ad.Rollback(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAbortDropsLink(t *testing.T) {
	ad, mock := newTestAdapter(t, "sqlcommon_abort", &fakeDialect{})
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	mock.ExpectClose()
	require.NoError(t, ad.Abort())
	assert.False(t, ad.Connected())
}

func TestNormalizeErrorDialectPrecedence(t *testing.T) {
	sentinel := errors.New("fatal link error")
	d := &fakeDialect{
		mapErrMatch: sentinel,
		mapErr:      map[error]dberr.Kind{sentinel: dberr.KindConnectionLost},
	}
	ad, mock := newTestAdapter(t, "sqlcommon_maperr", d)
	expectConnect(mock)
	require.NoError(t, ad.Connect(context.Background()))

	err := ad.NormalizeError(sentinel)
	assert.Equal(t, dberr.KindConnectionLost, dberr.KindOf(err))
	// a lost link marks the adapter disconnected
	assert.False(t, ad.Connected())

	// already-normalized errors pass through untouched
	orig := dberr.New(dberr.KindSyntax, "fake", "near FROM")
	assert.Same(t, orig, ad.NormalizeError(orig).(*dberr.Error))
}

func TestMapCommonError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dberr.Kind
	}{
		{"context cancel", context.Canceled, dberr.KindCancelled},
		{"deadline", context.DeadlineExceeded, dberr.KindTimeout},
		{"bad conn", driver.ErrBadConn, dberr.KindConnectionLost},
		{"unknown", errors.New("boom"), dberr.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapCommonError("fake", tt.err)
			assert.Equal(t, tt.want, dberr.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
