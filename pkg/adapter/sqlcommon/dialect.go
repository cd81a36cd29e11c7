package sqlcommon

import (
	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Dialect encapsulates everything engine-specific about a database/sql
// backend. mysql, postgresql, oracle and sqlite each supply one and
// share the Adapter in this package.
type Dialect interface {
	adapter.Catalog

	// DriverName returns the database/sql driver name.
	DriverName() string

	// Kind names the backend family.
	Kind() adapter.Kind

	// Capabilities declares the backend capability set.
	Capabilities() adapter.Capabilities

	// BuildDSN constructs the driver-specific connection string.
	BuildDSN(profile *adapter.Profile, cfg *Config) (string, error)

	// QuoteIdentifier wraps a table/column name in dialect quoting.
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the n-th
	// parameter (1-based).
	Placeholder(n int) string

	// VersionQuery returns SQL producing one row, one column with the
	// server version text.
	VersionQuery() string

	// CheckVersion validates the reported server version, returning a
	// taxonomy error of the unsupported-version kind when the backend is
	// too old to drive.
	CheckVersion(version string) error

	// NormalizeType maps a native column type name to the shared value
	// taxonomy. Unknown types map to the unsupported kind.
	NormalizeType(nativeType string) value.Kind

	// NormalizeValue converts one raw cell. Dialects handle their
	// engine-specific representations and fall back to DefaultNormalize
	// for the rest. Must be total.
	NormalizeValue(col adapter.Column, raw any) value.Value

	// MapError maps a driver-specific error to the taxonomy, or nil
	// when the dialect has no mapping and the shared fallbacks apply.
	MapError(err error) *dberr.Error
}
