// Package sqlite provides the SQLite dialect over the shared
// database/sql adapter, using modernc.org/sqlite. Besides being a
// supported backend it gives the executor and introspector a zero-setup
// engine for end-to-end tests.
package sqlite

import (
	"strings"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Dialect implements sqlcommon.Dialect for SQLite.
type Dialect struct{}

func (d *Dialect) DriverName() string { return "sqlite" }

func (d *Dialect) Kind() adapter.Kind { return adapter.SQLite }

func (d *Dialect) Capabilities() adapter.Capabilities {
	// A running VM step ignores the statement context, so there is no
	// true mid-statement cancel; the link-close fallback applies.
	return adapter.Capabilities{
		SupportsCancel:       false,
		SupportsTransactions: true,
		ImplicitAutocommit:   true,
		SerializedStatements: true,
		MaxIdentifierLength:  0, // unrestricted
	}
}

func (d *Dialect) BuildDSN(profile *adapter.Profile, cfg *sqlcommon.Config) (string, error) {
	if profile.Database == "" {
		return ":memory:", nil
	}
	return profile.Database, nil
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) Placeholder(n int) string { return "?" }

func (d *Dialect) VersionQuery() string { return "SELECT sqlite_version()" }

func (d *Dialect) CheckVersion(version string) error { return nil }

// NormalizeType follows SQLite type affinity on top of the declared
// column type; expression columns have no declared type and resolve by
// the raw Go value at normalization time.
func (d *Dialect) NormalizeType(nativeType string) value.Kind {
	t := strings.ToUpper(strings.TrimSpace(nativeType))
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
		t = strings.TrimSpace(t)
	}

	switch {
	case t == "":
		return value.KindUnsupported // dynamic, resolved per value
	case t == "BOOLEAN" || t == "BOOL":
		return value.KindBool
	case strings.Contains(t, "INT"):
		return value.KindInt
	case t == "REAL" || t == "DOUBLE" || t == "DOUBLE PRECISION" || t == "FLOAT":
		return value.KindFloat
	case t == "NUMERIC" || t == "DECIMAL":
		return value.KindDecimal
	case t == "DATE":
		return value.KindDate
	case t == "DATETIME" || t == "TIMESTAMP":
		return value.KindTimestamp
	case t == "TIME":
		return value.KindTime
	case t == "BLOB":
		return value.KindBytes
	case strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") || strings.Contains(t, "TEXT") || t == "JSON":
		return value.KindString
	default:
		return value.KindUnsupported
	}
}

// NormalizeValue resolves dynamically-typed cells by their runtime Go
// type before falling back to the shared normalizer.
func (d *Dialect) NormalizeValue(col adapter.Column, raw any) value.Value {
	if raw == nil {
		return value.Null()
	}
	if col.Kind == value.KindUnsupported && col.NativeType == "" {
		switch v := raw.(type) {
		case int64:
			return value.Int(v)
		case float64:
			return value.Float(v)
		case string:
			return value.String(v)
		case []byte:
			b := make([]byte, len(v))
			copy(b, v)
			return value.Bytes(b)
		case bool:
			return value.Bool(v)
		}
	}
	return sqlcommon.DefaultNormalize(col, raw)
}

// MapError classifies modernc.org/sqlite errors by message prefix; the
// driver formats them as "SQL logic error: ..." style strings carrying
// the primary result code.
func (d *Dialect) MapError(err error) *dberr.Error {
	if err == nil {
		return nil
	}
	backend := string(d.Kind())
	msg := err.Error()
	lower := strings.ToLower(msg)

	var kind dberr.Kind
	switch {
	case strings.Contains(lower, "interrupted"):
		kind = dberr.KindCancelled
	case strings.Contains(lower, "syntax error"), strings.Contains(lower, "sql logic error"):
		kind = dberr.KindSyntax
	case strings.Contains(lower, "constraint failed"), strings.Contains(lower, "constraint violation"):
		kind = dberr.KindConstraintViolation
	case strings.Contains(lower, "database is locked"), strings.Contains(lower, "busy"):
		kind = dberr.KindTimeout
	case strings.Contains(lower, "unable to open database"), strings.Contains(lower, "not authorized"):
		kind = dberr.KindAuthentication
	default:
		return nil
	}
	return dberr.WrapMsg(kind, backend, msg, err)
}
