// Package mysql provides the MySQL/MariaDB dialect over the shared
// database/sql adapter, using go-sql-driver/mysql.
package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Dialect implements sqlcommon.Dialect for MySQL.
type Dialect struct{}

func (d *Dialect) DriverName() string { return "mysql" }

func (d *Dialect) Kind() adapter.Kind { return adapter.MySQL }

func (d *Dialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		SupportsCancel:       true, // KILL QUERY via the driver's context support
		SupportsTransactions: true,
		ImplicitAutocommit:   true,
		SerializedStatements: true,
		MaxIdentifierLength:  64,
	}
}

func (d *Dialect) BuildDSN(profile *adapter.Profile, cfg *sqlcommon.Config) (string, error) {
	port := profile.Port
	if port <= 0 {
		port = 3306
	}

	mc := mysqldriver.NewConfig()
	mc.User = profile.Username
	mc.Passwd = profile.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", profile.Host, port)
	mc.DBName = profile.Database
	mc.AllowNativePasswords = true
	mc.ParseTime = true
	mc.Collation = cfg.Collation
	mc.Params = map[string]string{
		"charset": cfg.Charset,
	}
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}

	switch strings.ToLower(cfg.SSLMode) {
	case "true", "required", "require":
		mc.TLSConfig = "true"
	case "skip-verify", "preferred":
		mc.TLSConfig = "skip-verify"
	case "false", "disable", "":
		mc.TLSConfig = "false"
	default:
		mc.TLSConfig = cfg.SSLMode
	}

	return mc.FormatDSN(), nil
}

func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *Dialect) Placeholder(n int) string { return "?" }

func (d *Dialect) VersionQuery() string { return "SELECT VERSION()" }

func (d *Dialect) CheckVersion(version string) error {
	fields := strings.SplitN(version, ".", 3)
	if len(fields) < 2 {
		return nil
	}
	major, err1 := strconv.Atoi(fields[0])
	minor, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	if major < 5 || (major == 5 && minor < 6) {
		return dberr.Newf(dberr.KindUnsupportedVersion, string(d.Kind()),
			"MySQL %s is not supported, need 5.6 or newer", version)
	}
	return nil
}

// NormalizeType maps MySQL type names as the driver reports them
// (upper case, no length suffix) onto the shared taxonomy. The driver
// reports UNSIGNED variants with an "UNSIGNED " prefix.
func (d *Dialect) NormalizeType(nativeType string) value.Kind {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	unsigned := strings.HasPrefix(t, "unsigned ")
	t = strings.TrimPrefix(t, "unsigned ")
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
	}

	switch t {
	case "tinyint", "smallint", "mediumint", "int", "integer", "year":
		return value.KindInt
	case "bigint":
		if unsigned {
			// Unsigned bigint can exceed int64; keep it exact.
			return value.KindDecimal
		}
		return value.KindInt
	case "float", "double":
		return value.KindFloat
	case "decimal", "numeric":
		return value.KindDecimal
	case "bit":
		return value.KindBytes
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext",
		"enum", "set", "json", "geometry":
		return value.KindString
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return value.KindBytes
	case "date":
		return value.KindDate
	case "datetime", "timestamp":
		return value.KindTimestamp
	case "time":
		return value.KindTime
	default:
		return value.KindUnsupported
	}
}

// NormalizeValue defers to the shared normalizer; with ParseTime enabled
// the driver already hands back time.Time for temporals.
func (d *Dialect) NormalizeValue(col adapter.Column, raw any) value.Value {
	if raw == nil {
		return value.Null()
	}
	if col.Kind == value.KindTime {
		// MySQL TIME ranges to ±838 hours; treat the raw text as a
		// wall-clock when it parses, otherwise keep it verbatim as an
		// interval-like text.
		s := sqlcommon.RawText(raw)
		v := sqlcommon.DefaultNormalize(col, []byte(s))
		if v.Kind() == value.KindUnsupported {
			return value.Interval(s)
		}
		return v
	}
	return sqlcommon.DefaultNormalize(col, raw)
}
