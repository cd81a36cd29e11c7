package postgresql

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// MapError classifies lib/pq errors by SQLSTATE. Unmapped states fall
// through to the shared transport/context handling in sqlcommon.
func (d *Dialect) MapError(err error) *dberr.Error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	backend := string(d.Kind())
	code := string(pqErr.Code)

	var kind dberr.Kind
	switch {
	case code == "57014": // query_canceled
		kind = dberr.KindCancelled
	case code == "42501": // insufficient_privilege
		kind = dberr.KindPermission
	case code == "3D000", code == "3F000": // invalid catalog / schema name
		kind = dberr.KindPermission
	case strings.HasPrefix(code, "28"): // invalid_authorization_specification
		kind = dberr.KindAuthentication
	case strings.HasPrefix(code, "08"): // connection_exception
		kind = dberr.KindConnectionLost
	case strings.HasPrefix(code, "23"): // integrity_constraint_violation
		kind = dberr.KindConstraintViolation
	case strings.HasPrefix(code, "42"): // syntax_error_or_access_rule_violation
		kind = dberr.KindSyntax
	case code == "57P01", code == "57P02", code == "57P03": // server shutdown
		kind = dberr.KindConnectionLost
	case code == "53300": // too_many_connections
		kind = dberr.KindNetwork
	default:
		kind = dberr.KindUnknown
	}
	return dberr.WrapMsg(kind, backend, pqErr.Message, err)
}
