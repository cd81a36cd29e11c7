// Package postgresql provides the PostgreSQL dialect over the shared
// database/sql adapter, using lib/pq.
package postgresql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Dialect implements sqlcommon.Dialect for PostgreSQL.
type Dialect struct{}

func (d *Dialect) DriverName() string { return "postgres" }

func (d *Dialect) Kind() adapter.Kind { return adapter.Postgres }

func (d *Dialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsCancel:       true,
		SupportsTransactions: true,
		ImplicitAutocommit:   true,
		SerializedStatements: true,
		MaxIdentifierLength:  63,
	}
}

func (d *Dialect) BuildDSN(profile *adapter.Profile, cfg *sqlcommon.Config) (string, error) {
	port := profile.Port
	if port <= 0 {
		port = 5432
	}

	parts := []string{
		"host=" + quoteDSNValue(profile.Host),
		"port=" + strconv.Itoa(port),
		"user=" + quoteDSNValue(profile.Username),
		"dbname=" + quoteDSNValue(profile.Database),
		"sslmode=" + cfg.SSLMode,
		"connect_timeout=" + strconv.Itoa(cfg.ConnectTimeout),
	}
	if profile.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(profile.Password))
	}
	if cfg.SSLCert != "" {
		parts = append(parts, "sslcert="+quoteDSNValue(cfg.SSLCert))
	}
	if cfg.SSLKey != "" {
		parts = append(parts, "sslkey="+quoteDSNValue(cfg.SSLKey))
	}
	if cfg.SSLRootCert != "" {
		parts = append(parts, "sslrootcert="+quoteDSNValue(cfg.SSLRootCert))
	}
	return strings.Join(parts, " "), nil
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (d *Dialect) VersionQuery() string { return "SHOW server_version" }

func (d *Dialect) CheckVersion(version string) error {
	major := majorVersion(version)
	if major > 0 && major < 9 {
		return dberr.Newf(dberr.KindUnsupportedVersion, string(d.Kind()),
			"PostgreSQL %s is not supported, need 9.0 or newer", version)
	}
	return nil
}

func majorVersion(version string) int {
	fields := strings.FieldsFunc(version, func(r rune) bool { return r == '.' || r == ' ' })
	if len(fields) == 0 {
		return 0
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return major
}

// NormalizeType maps pg_type names (as lib/pq reports them, upper case
// with a leading underscore for array types) onto the shared taxonomy.
func (d *Dialect) NormalizeType(nativeType string) value.Kind {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	if strings.HasPrefix(t, "_") {
		return value.KindArray
	}

	switch t {
	case "int2", "int4", "int8", "smallint", "integer", "bigint",
		"smallserial", "serial", "bigserial", "oid":
		return value.KindInt
	case "float4", "float8", "real", "double precision":
		return value.KindFloat
	case "numeric", "decimal", "money":
		return value.KindDecimal
	case "bool", "boolean":
		return value.KindBool
	case "varchar", "character varying", "bpchar", "character", "char",
		"text", "name", "citext", "json", "jsonb", "uuid", "xml",
		"inet", "cidr", "macaddr", "macaddr8":
		return value.KindString
	case "bytea":
		return value.KindBytes
	case "date":
		return value.KindDate
	case "time", "timetz", "time without time zone", "time with time zone":
		return value.KindTime
	case "timestamp", "timestamptz", "timestamp without time zone", "timestamp with time zone":
		return value.KindTimestamp
	case "interval":
		return value.KindInterval
	default:
		return value.KindUnsupported
	}
}

// NormalizeValue handles array literals itself and defers scalars to the
// shared normalizer.
func (d *Dialect) NormalizeValue(col adapter.Column, raw any) value.Value {
	if raw == nil {
		return value.Null()
	}
	if col.Kind == value.KindArray {
		return normalizeArray(d, col, raw)
	}
	return sqlcommon.DefaultNormalize(col, raw)
}

// normalizeArray parses a postgres array literal ({1,2,3}) into an
// array value, normalizing each element with the base type of the
// column. Anything unparsable stays unsupported with the literal
// preserved.
func normalizeArray(d *Dialect, col adapter.Column, raw any) value.Value {
	literal := sqlcommon.RawText(raw)
	elems, ok := parseArrayLiteral(literal)
	if !ok {
		return value.Unsupported(literal)
	}

	baseType := strings.TrimPrefix(strings.ToLower(col.NativeType), "_")
	baseCol := adapter.Column{
		Name:       col.Name,
		NativeType: baseType,
		Kind:       d.NormalizeType(baseType),
		Nullable:   true,
	}

	values := make([]value.Value, len(elems))
	for i, e := range elems {
		if e.null {
			values[i] = value.Null()
			continue
		}
		values[i] = sqlcommon.DefaultNormalize(baseCol, []byte(e.text))
	}
	return value.Array(values)
}

type arrayElem struct {
	text string
	null bool
}

// parseArrayLiteral handles one-dimensional array literals with quoting
// and escapes. Nested arrays stay unsupported.
func parseArrayLiteral(s string) ([]arrayElem, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []arrayElem{}, true
	}

	var (
		elems   []arrayElem
		cur     strings.Builder
		quoted  bool
		escaped bool
		wasQuoted bool
	)
	flush := func() {
		text := cur.String()
		if !wasQuoted && text == "NULL" {
			elems = append(elems, arrayElem{null: true})
		} else {
			elems = append(elems, arrayElem{text: text})
		}
		cur.Reset()
		wasQuoted = false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
			wasQuoted = true
		case c == '{' && !quoted:
			return nil, false
		case c == ',' && !quoted:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted || escaped {
		return nil, false
	}
	flush()
	return elems, true
}
