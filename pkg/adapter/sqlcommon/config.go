package sqlcommon

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/dbcore/pkg/adapter"
)

// Config holds the shared knobs for database/sql-backed adapters.
type Config struct {
	// Connection pool. The session link is pinned to one connection; the
	// pool mostly serves introspection and cancellation side channels.
	MaxOpenConns    int `json:"max_open_conns,omitempty"`
	MaxIdleConns    int `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"`  // seconds
	ConnMaxIdleTime int `json:"conn_max_idle_time,omitempty"` // seconds

	// TLS/SSL
	SSLMode     string `json:"ssl_mode,omitempty"`
	SSLCert     string `json:"ssl_cert,omitempty"`
	SSLKey      string `json:"ssl_key,omitempty"`
	SSLRootCert string `json:"ssl_root_cert,omitempty"`

	// MySQL-specific
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`

	// Oracle-specific
	ServiceName string `json:"service_name,omitempty"`

	// General
	ConnectTimeout int `json:"connect_timeout,omitempty"` // seconds
}

// ParseConfig extracts Config from a profile's free-form options and
// applies defaults.
func ParseConfig(profile *adapter.Profile) (*Config, error) {
	cfg := &Config{}

	if profile.Options != nil {
		data, err := json.Marshal(profile.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal sql config: %w", err)
		}
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 5
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 300
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 60
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10
	}
	if cfg.Charset == "" {
		cfg.Charset = "utf8mb4"
	}
	if cfg.Collation == "" {
		cfg.Collation = "utf8mb4_unicode_ci"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	return cfg, nil
}
