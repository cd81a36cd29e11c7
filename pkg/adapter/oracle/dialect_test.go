package oracle

import (
	"errors"
	"strings"
	"testing"

	"github.com/sijms/go-ora/v2/network"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/value"
)

func TestBuildDSN(t *testing.T) {
	d := &Dialect{}
	profile := &adapter.Profile{
		Host:     "ora.example.com",
		Port:     1522,
		Username: "app",
		Password: "s3cret",
		Database: "ORCLPDB1",
	}

	dsn, err := d.BuildDSN(profile, &sqlcommon.Config{ConnectTimeout: 10})
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	for _, want := range []string{"oracle://", "ora.example.com:1522", "ORCLPDB1"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestBuildDSNServiceNameOption(t *testing.T) {
	d := &Dialect{}
	profile := &adapter.Profile{Host: "localhost", Username: "app"}

	// service name can come from options instead of the database field
	dsn, err := d.BuildDSN(profile, &sqlcommon.Config{ServiceName: "XEPDB1"})
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	if !strings.Contains(dsn, "XEPDB1") || !strings.Contains(dsn, "localhost:1521") {
		t.Errorf("dsn = %q", dsn)
	}

	// no service name at all is an error
	if _, err := d.BuildDSN(profile, &sqlcommon.Config{}); err == nil {
		t.Error("BuildDSN without a service name should fail")
	}
}

func TestPlaceholder(t *testing.T) {
	d := &Dialect{}
	if got := d.Placeholder(2); got != ":2" {
		t.Errorf("Placeholder = %q", got)
	}
}

func TestCheckVersion(t *testing.T) {
	d := &Dialect{}

	ok := []string{
		"Oracle Database 19c Enterprise Edition Release 19.0.0.0.0",
		"Oracle Database 11g Express Edition Release 11.2.0.2.0",
		"Oracle Database 23ai Free",
	}
	for _, v := range ok {
		if err := d.CheckVersion(v); err != nil {
			t.Errorf("CheckVersion(%q) = %v, want nil", v, err)
		}
	}

	err := d.CheckVersion("Oracle Database 10g Release 10.2.0.1.0")
	if !dberr.Is(err, dberr.KindUnsupportedVersion) {
		t.Errorf("CheckVersion(10g) = %v, want unsupported version", err)
	}
}

func TestNormalizeType(t *testing.T) {
	d := &Dialect{}

	tests := []struct {
		native string
		want   value.Kind
	}{
		{"NUMBER", value.KindDecimal},
		{"NUMBER(10,2)", value.KindDecimal},
		{"FLOAT", value.KindDecimal},
		{"BINARY_DOUBLE", value.KindFloat},
		{"VARCHAR2", value.KindString},
		{"NVARCHAR2", value.KindString},
		{"CLOB", value.KindString},
		{"ROWID", value.KindString},
		{"RAW", value.KindBytes},
		{"BLOB", value.KindBytes},
		{"DATE", value.KindTimestamp},
		{"TIMESTAMP(6)", value.KindTimestamp},
		{"TIMESTAMP(6) WITH TIME ZONE", value.KindTimestamp},
		{"INTERVAL DAY TO SECOND", value.KindInterval},
		{"SDO_GEOMETRY", value.KindUnsupported},
	}
	for _, tt := range tests {
		if got := d.NormalizeType(tt.native); got != tt.want {
			t.Errorf("NormalizeType(%q) = %v, want %v", tt.native, got, tt.want)
		}
	}
}

func TestNormalizeNumberStaysExact(t *testing.T) {
	d := &Dialect{}
	col := adapter.Column{Name: "n", NativeType: "NUMBER", Kind: value.KindDecimal}

	tests := []struct {
		raw  any
		want string
	}{
		{int64(42), "42"},
		{float64(0.1), "0.1"},
		{[]byte("12345678901234567890.000000001"), "12345678901234567890.000000001"},
		{"99.990", "99.990"},
	}
	for _, tt := range tests {
		v := d.NormalizeValue(col, tt.raw)
		if v.Kind() != value.KindDecimal {
			t.Errorf("NormalizeValue(%v) kind = %v, want decimal", tt.raw, v.Kind())
		}
		if v.Text() != tt.want {
			t.Errorf("NormalizeValue(%v) = %q, want %q", tt.raw, v.Text(), tt.want)
		}
	}
}

func TestMapError(t *testing.T) {
	d := &Dialect{}

	tests := []struct {
		code int
		want dberr.Kind
	}{
		{1017, dberr.KindAuthentication},
		{28000, dberr.KindAuthentication},
		{900, dberr.KindSyntax},
		{933, dberr.KindSyntax},
		{942, dberr.KindPermission},
		{1031, dberr.KindPermission},
		{1, dberr.KindConstraintViolation},
		{2291, dberr.KindConstraintViolation},
		{1013, dberr.KindCancelled},
		{3113, dberr.KindConnectionLost},
		{12541, dberr.KindConnectionLost},
		{12170, dberr.KindTimeout},
		{12514, dberr.KindNetwork},
		{600, dberr.KindUnknown},
	}
	for _, tt := range tests {
		err := d.MapError(&network.OracleError{ErrCode: tt.code, ErrMsg: "boom"})
		if err == nil {
			t.Fatalf("MapError(ORA-%05d) = nil", tt.code)
		}
		if err.Kind != tt.want {
			t.Errorf("MapError(ORA-%05d) = %v, want %v", tt.code, err.Kind, tt.want)
		}
	}

	if got := d.MapError(errors.New("plain")); got != nil {
		t.Errorf("MapError(plain) = %v, want nil", got)
	}
}

func TestRegistered(t *testing.T) {
	ad, err := adapter.New(&adapter.Profile{Kind: adapter.Oracle})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if ad.Kind() != adapter.Oracle {
		t.Errorf("kind = %v", ad.Kind())
	}
	if ad.Capabilities().MaxIdentifierLength != 30 {
		t.Errorf("identifier length = %d", ad.Capabilities().MaxIdentifierLength)
	}
}
