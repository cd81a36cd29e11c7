package sqlite

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/exec"
	"github.com/kasuganosora/dbcore/pkg/pager"
	"github.com/kasuganosora/dbcore/pkg/schema"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// The in-memory engine exercises the whole stack for real: manager,
// executor, introspector and pager against a live backend.

func connectMemory(t *testing.T) (*conn.Manager, *exec.Executor) {
	t.Helper()
	mgr := conn.NewManager()
	_, err := mgr.Connect(context.Background(),
		&adapter.Profile{Name: "mem", Kind: adapter.SQLite})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Disconnect(context.Background()) })
	return mgr, exec.NewExecutor(mgr)
}

func mustExec(t *testing.T, e *exec.Executor, sql string) *exec.Handle {
	t.Helper()
	h, err := e.RunQuery(context.Background(), sql)
	require.NoError(t, err, sql)
	return h
}

func seedUsers(t *testing.T, e *exec.Executor) {
	t.Helper()
	mustExec(t, e, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		balance NUMERIC,
		created DATETIME
	)`)
	mustExec(t, e, `INSERT INTO users (id, name, balance, created) VALUES
		(1, 'ada', '10.50', '2024-01-01 09:00:00'),
		(2, 'grace', '0.10', '2024-02-01 10:30:00'),
		(3, 'edsger', NULL, NULL)`)
}

func TestEndToEndQuery(t *testing.T) {
	_, e := connectMemory(t)
	seedUsers(t, e)

	h, err := e.RunQuery(context.Background(), "SELECT id, name, balance, created FROM users ORDER BY id")
	require.NoError(t, err)

	cols := h.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, value.KindInt, cols[0].Kind)
	assert.Equal(t, value.KindString, cols[1].Kind)
	assert.Equal(t, value.KindDecimal, cols[2].Kind)
	assert.Equal(t, value.KindTimestamp, cols[3].Kind)

	rows, eof, err := h.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, eof)
	require.Len(t, rows, 3)

	assert.Equal(t, int64(1), rows[0][0].Int())
	assert.Equal(t, "ada", rows[0][1].Text())
	// NUMERIC affinity stored the literal as a number; the decimal
	// carries the backend's own text for it
	assert.Equal(t, value.KindDecimal, rows[0][2].Kind())
	assert.Equal(t, "10.5", rows[0][2].Text())
	assert.Equal(t, value.KindTimestamp, rows[0][3].Kind())
	assert.Equal(t, "2024-01-01 09:00:00", rows[0][3].Render())

	// SQL NULLs land as NULL values, not empty strings
	assert.True(t, rows[2][2].IsNull())
	assert.True(t, rows[2][3].IsNull())

	assert.Equal(t, exec.StateCompleted, h.State())
}

func TestEndToEndDML(t *testing.T) {
	_, e := connectMemory(t)
	seedUsers(t, e)

	h := mustExec(t, e, "UPDATE users SET name = 'augusta' WHERE id = 1")
	assert.Equal(t, int64(1), h.RowsAffected())

	h = mustExec(t, e, "DELETE FROM users WHERE balance IS NULL")
	assert.Equal(t, int64(1), h.RowsAffected())
}

func TestEndToEndSyntaxError(t *testing.T) {
	_, e := connectMemory(t)

	_, err := e.RunQuery(context.Background(), "SELEC 1")
	require.Error(t, err)
	assert.Equal(t, dberr.KindSyntax, dberr.KindOf(err))
}

func TestEndToEndConstraintViolation(t *testing.T) {
	_, e := connectMemory(t)
	seedUsers(t, e)

	_, err := e.RunQuery(context.Background(),
		"INSERT INTO users (id, name) VALUES (1, 'dup')")
	require.Error(t, err)
	assert.Equal(t, dberr.KindConstraintViolation, dberr.KindOf(err))
}

func TestEndToEndTransaction(t *testing.T) {
	mgr, e := connectMemory(t)
	seedUsers(t, e)

	require.NoError(t, e.Begin(context.Background()))
	assert.Equal(t, conn.TxActive, mgr.Session().TxState())

	mustExec(t, e, "INSERT INTO users (id, name) VALUES (10, 'alan')")
	require.NoError(t, e.Rollback(context.Background()))

	h, err := e.RunQuery(context.Background(), "SELECT count(*) FROM users")
	require.NoError(t, err)
	rows, _, err := h.Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0][0].Int(), "rolled-back insert must not persist")
}

func TestEndToEndIntrospection(t *testing.T) {
	mgr, e := connectMemory(t)
	seedUsers(t, e)
	mustExec(t, e, "CREATE UNIQUE INDEX users_name_idx ON users (name)")
	mustExec(t, e, `CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		user_id INTEGER REFERENCES users(id)
	)`)

	tree, err := schema.NewIntrospector(mgr).GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, adapter.SQLite, tree.Backend)

	s := tree.Schema("main")
	require.NotNil(t, s)
	assert.False(t, s.Partial)

	users := s.Table("users")
	require.NotNil(t, users)
	require.Len(t, users.Columns, 4)
	assert.Equal(t, "id", users.Columns[0].Name)
	assert.Equal(t, value.KindInt, users.Columns[0].Kind)
	assert.Equal(t, 1, users.Columns[0].Position)
	assert.False(t, users.Columns[1].Nullable, "name is NOT NULL")
	assert.True(t, users.Columns[2].Nullable)

	var unique bool
	for _, ix := range users.Indexes {
		if ix.Name == "users_name_idx" {
			unique = ix.Unique
		}
	}
	assert.True(t, unique, "unique index should be reported")

	orders := s.Table("orders")
	require.NotNil(t, orders)
	var hasFK bool
	for _, c := range orders.Constraints {
		if c.Type == "FOREIGN KEY" && c.Column == "user_id" {
			hasFK = true
		}
	}
	assert.True(t, hasFK, "foreign key constraint should be reported")
}

func TestEndToEndPaging(t *testing.T) {
	_, e := connectMemory(t)
	mustExec(t, e, "CREATE TABLE seq (n INTEGER)")
	require.NoError(t, e.Begin(context.Background()))
	for i := 1; i <= 25; i++ {
		mustExec(t, e, "INSERT INTO seq (n) VALUES ("+strconv.Itoa(i)+")")
	}
	require.NoError(t, e.Commit(context.Background()))

	h, err := e.RunQuery(context.Background(), "SELECT n FROM seq ORDER BY n")
	require.NoError(t, err)

	p := pager.New(h, pager.WithPageSize(10))

	page, err := p.Page(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, int64(21), page[0][0].Int())

	// buffered pages serve backwards scrolls
	page, err = p.Page(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, int64(1), page[0][0].Int())

	total, known := p.TotalRows()
	assert.True(t, known)
	assert.Equal(t, int64(25), total)
}
