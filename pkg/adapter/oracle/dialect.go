// Package oracle provides the Oracle dialect over the shared
// database/sql adapter, using the pure-Go sijms/go-ora driver.
package oracle

import (
	"fmt"
	"strconv"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Dialect implements sqlcommon.Dialect for Oracle.
type Dialect struct{}

func (d *Dialect) DriverName() string { return "oracle" }

func (d *Dialect) Kind() adapter.Kind { return adapter.Oracle }

func (d *Dialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		// go-ora maps context cancellation onto an OCIBreak, so a
		// running statement is interruptible.
		SupportsCancel:       true,
		SupportsTransactions: true,
		ImplicitAutocommit:   true,
		SerializedStatements: true,
		MaxIdentifierLength:  30,
	}
}

func (d *Dialect) BuildDSN(profile *adapter.Profile, cfg *sqlcommon.Config) (string, error) {
	port := profile.Port
	if port <= 0 {
		port = 1521
	}
	service := cfg.ServiceName
	if service == "" {
		service = profile.Database
	}
	if service == "" {
		return "", fmt.Errorf("oracle profile needs a service name (database or options.service_name)")
	}

	options := map[string]string{}
	if cfg.ConnectTimeout > 0 {
		options["TIMEOUT"] = strconv.Itoa(cfg.ConnectTimeout)
	}
	switch strings.ToLower(cfg.SSLMode) {
	case "true", "required", "require":
		options["SSL"] = "TRUE"
		options["SSL VERIFY"] = "TRUE"
	case "skip-verify", "preferred":
		options["SSL"] = "TRUE"
		options["SSL VERIFY"] = "FALSE"
	}

	return go_ora.BuildUrl(profile.Host, port, service, profile.Username, profile.Password, options), nil
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) Placeholder(n int) string {
	return fmt.Sprintf(":%d", n)
}

func (d *Dialect) VersionQuery() string {
	return "SELECT banner FROM v$version WHERE ROWNUM = 1"
}

func (d *Dialect) CheckVersion(version string) error {
	// Banner looks like "Oracle Database 19c Enterprise Edition ..." or
	// "Oracle Database 11g Express Edition Release 11.2.0.2.0".
	for _, field := range strings.Fields(version) {
		major, ok := bannerMajor(field)
		if !ok {
			continue
		}
		if major < 11 {
			return dberr.Newf(dberr.KindUnsupportedVersion, string(d.Kind()),
				"Oracle %s is not supported, need 11g or newer", version)
		}
		return nil
	}
	return nil
}

// bannerMajor extracts the major release from one banner token:
// "19c", "11g", "23ai" and "19.0.0.0.0" all carry it up front.
func bannerMajor(field string) (int, bool) {
	end := 0
	for end < len(field) && field[end] >= '0' && field[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	rest := field[end:]
	if rest != "" && rest != "c" && rest != "g" && rest != "ai" && rest[0] != '.' {
		return 0, false
	}
	major, err := strconv.Atoi(field[:end])
	if err != nil || major == 0 {
		return 0, false
	}
	return major, true
}

// NormalizeType maps Oracle type names onto the shared taxonomy. NUMBER
// stays exact: Oracle represents every numeric as decimal and a float
// round trip would silently round.
func (d *Dialect) NormalizeType(nativeType string) value.Kind {
	t := strings.ToUpper(strings.TrimSpace(nativeType))
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
	}

	switch {
	case t == "NUMBER" || t == "FLOAT" || t == "DECIMAL" || t == "NUMERIC":
		return value.KindDecimal
	case t == "BINARY_FLOAT" || t == "BINARY_DOUBLE" || t == "IBFLOAT" || t == "IBDOUBLE":
		return value.KindFloat
	case t == "CHAR" || t == "NCHAR" || t == "VARCHAR2" || t == "NVARCHAR2" ||
		t == "VARCHAR" || t == "LONG" || t == "LONGVARCHAR" || t == "ROWID" || t == "UROWID" ||
		t == "CLOB" || t == "NCLOB" || t == "OCICLOBLOCATOR" || t == "XMLTYPE" || t == "JSON":
		return value.KindString
	case t == "RAW" || t == "LONG RAW" || t == "LONGRAW" || t == "BLOB" || t == "OCIBLOBLOCATOR" || t == "BFILE":
		return value.KindBytes
	case t == "DATE":
		// Oracle DATE carries a time component.
		return value.KindTimestamp
	case strings.HasPrefix(t, "TIMESTAMP"), strings.HasPrefix(t, "TIMESTAMPDTY"),
		strings.HasPrefix(t, "TIMESTAMPTZ"), strings.HasPrefix(t, "TIMESTAMPLTZ"):
		return value.KindTimestamp
	case strings.HasPrefix(t, "INTERVAL"), t == "INTERVALYM_DTY", t == "INTERVALDS_DTY":
		return value.KindInterval
	default:
		return value.KindUnsupported
	}
}

// NormalizeValue keeps NUMBER exact by preferring the driver's textual
// representation and defers everything else to the shared normalizer.
func (d *Dialect) NormalizeValue(col adapter.Column, raw any) value.Value {
	if raw == nil {
		return value.Null()
	}
	if col.Kind == value.KindDecimal {
		switch v := raw.(type) {
		case int64:
			return value.Decimal(strconv.FormatInt(v, 10))
		case float64:
			return value.Decimal(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return sqlcommon.DefaultNormalize(col, raw)
}
