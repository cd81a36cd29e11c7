package postgresql

import (
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
)

func init() {
	adapter.Register(adapter.Postgres, func(profile *adapter.Profile) (adapter.Adapter, error) {
		return NewAdapter(profile, nil)
	})
}

// NewAdapter builds a PostgreSQL adapter for the profile.
func NewAdapter(profile *adapter.Profile, log *zap.Logger) (*sqlcommon.Adapter, error) {
	return sqlcommon.New(profile, &Dialect{}, log)
}
