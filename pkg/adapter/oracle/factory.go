package oracle

import (
	_ "github.com/sijms/go-ora/v2" // Oracle driver
	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
)

func init() {
	adapter.Register(adapter.Oracle, func(profile *adapter.Profile) (adapter.Adapter, error) {
		return NewAdapter(profile, nil)
	})
}

// NewAdapter builds an Oracle adapter for the profile.
func NewAdapter(profile *adapter.Profile, log *zap.Logger) (*sqlcommon.Adapter, error) {
	return sqlcommon.New(profile, &Dialect{}, log)
}
