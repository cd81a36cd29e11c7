package oracle

import (
	"errors"

	"github.com/sijms/go-ora/v2/network"

	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// MapError classifies go-ora errors by ORA- code.
func (d *Dialect) MapError(err error) *dberr.Error {
	var oraErr *network.OracleError
	if !errors.As(err, &oraErr) {
		return nil
	}

	backend := string(d.Kind())

	var kind dberr.Kind
	switch oraErr.ErrCode {
	case 1017, 28000, 28001, 1005: // invalid credentials / account locked or expired
		kind = dberr.KindAuthentication
	case 900, 911, 917, 920, 923, 933, 936, 904, 907: // parse errors
		kind = dberr.KindSyntax
	case 942, 1031, 1045, 2004: // missing privilege (942 also hides unseen tables)
		kind = dberr.KindPermission
	case 1, 1400, 1407, 2290, 2291, 2292: // constraint violations
		kind = dberr.KindConstraintViolation
	case 1013: // operation cancelled
		kind = dberr.KindCancelled
	case 1555: // snapshot too old
		kind = dberr.KindInternal
	case 3113, 3114, 12537, 12541, 12570: // link dropped / listener gone
		kind = dberr.KindConnectionLost
	case 12170, 12535: // connect timeout
		kind = dberr.KindTimeout
	case 12514, 12505, 12154: // unknown service / SID / TNS name
		kind = dberr.KindNetwork
	default:
		kind = dberr.KindUnknown
	}
	return dberr.WrapMsg(kind, backend, oraErr.ErrMsg, err)
}
