package adapter

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"postgres", Postgres},
		{"postgresql", Postgres},
		{"PgSQL", Postgres},
		{"mysql", MySQL},
		{"mariadb", MySQL},
		{"Oracle", Oracle},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
		{" mysql ", MySQL},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseKind("mongodb"); err == nil {
		t.Error("ParseKind should reject unsupported backends")
	}
}

func TestNewUnregisteredKind(t *testing.T) {
	if _, err := New(&Profile{Kind: Kind("nosuch")}); err == nil {
		t.Error("New should fail for an unregistered kind")
	}
	if _, err := New(nil); err == nil {
		t.Error("New should fail for a nil profile")
	}
}
