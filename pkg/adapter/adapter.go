// Package adapter defines the uniform contract every backend driver is
// wrapped behind. The executor, introspector and connection manager only
// ever speak this interface; engine differences live in the per-backend
// packages underneath it.
package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/kasuganosora/dbcore/pkg/value"
)

// Kind names a supported backend engine family.
type Kind string

const (
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
	Oracle   Kind = "oracle"
	SQLite   Kind = "sqlite"
)

// ParseKind resolves user-facing names and common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgsql":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "oracle":
		return Oracle, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported backend kind: %q", s)
	}
}

// Profile holds everything needed to reach one backend instance. It is
// immutable once a session starts; the connection manager owns it.
type Profile struct {
	Name     string
	Kind     Kind
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Schema   string
	Options  map[string]any
}

// Capabilities is the adapter-declared capability set consulted by the
// executor and introspector. Defaults are the conservative choice: a
// backend that does not declare a capability does not get it.
type Capabilities struct {
	SupportsCancel             bool
	SupportsMultipleStatements bool
	SupportsTransactions       bool
	ImplicitAutocommit         bool
	SerializedStatements       bool
	MaxIdentifierLength        int
}

// Column describes one result column. The descriptor list of a query is
// immutable for the query's lifetime and shared by all its rows.
type Column struct {
	Name       string
	NativeType string
	Kind       value.Kind
	Nullable   bool
}

// RawRows streams raw backend rows for one executed statement. FetchNext
// returns at most maxRows rows plus an end-of-result flag; the values are
// still driver-native and must go through the adapter's normalizer.
type RawRows interface {
	Columns() []Column
	FetchNext(ctx context.Context, maxRows int) (rows [][]any, eof bool, err error)
	Close() error
}

// Adapter wraps one backend's client library behind the shared contract.
// Implementations are not safe for concurrent statement execution unless
// they declare SupportsMultipleStatements.
type Adapter interface {
	Kind() Kind
	Capabilities() Capabilities

	// Connect establishes the link. Fails with the authentication,
	// network or unsupported-version kinds of the shared taxonomy.
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Connected() bool

	// ServerVersion reports the backend version string gathered at
	// connect time.
	ServerVersion() string

	// Query runs a row-returning statement. Cancellation flows through
	// ctx and is observable within one I/O round trip.
	Query(ctx context.Context, sql string, args ...any) (RawRows, error)

	// Exec runs a statement that returns no rows and reports the
	// affected row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Transaction control on the session link.
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Abort force-closes the underlying link. It is the cancel fallback
	// for backends without true cancellation support and always
	// succeeds.
	Abort() error

	// NormalizeType maps a native column type name to the shared value
	// taxonomy.
	NormalizeType(nativeType string) value.Kind

	// NormalizeValue converts one raw cell to the shared taxonomy. It is
	// total: unrecognized input becomes an unsupported value, never an
	// error.
	NormalizeValue(col Column, raw any) value.Value

	// NormalizeError maps a driver error onto the shared taxonomy,
	// keeping the raw error attached.
	NormalizeError(err error) error

	// Catalog exposes the backend's metadata queries for the schema
	// introspector.
	Catalog() Catalog
}

// Catalog provides the backend-specific metadata queries the schema
// introspector runs. Each query must produce the documented column shape
// regardless of engine.
type Catalog interface {
	// DefaultSchema names the schema introspected when the profile does
	// not pin one.
	DefaultSchema(profile *Profile) string

	// SchemasQuery -> (schema_name). No parameters.
	SchemasQuery() string

	// TablesQuery -> (table_name). Parameter: schema.
	TablesQuery() string

	// ColumnsQuery -> (column_name, data_type, is_nullable YES/NO,
	// ordinal_position). Parameters: schema, table.
	ColumnsQuery() string

	// IndexesQuery -> (index_name, column_name, is_unique 0/1).
	// Parameters: schema, table.
	IndexesQuery() string

	// ConstraintsQuery -> (constraint_name, constraint_type,
	// column_name) with constraint_type already normalized to
	// PRIMARY KEY / FOREIGN KEY / UNIQUE / CHECK. Parameters: schema,
	// table.
	ConstraintsQuery() string
}
