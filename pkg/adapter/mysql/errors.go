package mysql

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// MapError classifies go-sql-driver errors by server error number.
func (d *Dialect) MapError(err error) *dberr.Error {
	backend := string(d.Kind())

	if errors.Is(err, mysqldriver.ErrInvalidConn) {
		return dberr.Wrap(dberr.KindConnectionLost, backend, err)
	}

	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}

	var kind dberr.Kind
	switch myErr.Number {
	case 1044, 1045, 1698, 1873: // access denied
		kind = dberr.KindAuthentication
	case 1064, 1149, 1065: // parse errors
		kind = dberr.KindSyntax
	case 1142, 1143, 1227, 1370: // privilege errors
		kind = dberr.KindPermission
	case 1048, 1062, 1216, 1217, 1451, 1452, 1859, 3819: // constraint violations
		kind = dberr.KindConstraintViolation
	case 1317: // query interrupted
		kind = dberr.KindCancelled
	case 1205, 3024: // lock wait / statement timeout
		kind = dberr.KindTimeout
	case 1152, 1184, 2006, 2013: // connection aborted / server gone
		kind = dberr.KindConnectionLost
	default:
		kind = dberr.KindUnknown
	}
	return dberr.WrapMsg(kind, backend, myErr.Message, err)
}
