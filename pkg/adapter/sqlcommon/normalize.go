package sqlcommon

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// timestampLayouts covers the textual forms the wire drivers hand back
// when they do not parse temporals themselves.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

var timeLayouts = []string{
	"15:04:05.999999999-07:00",
	"15:04:05.999999999-07",
	"15:04:05.999999999",
}

// DefaultNormalize converts a raw database/sql cell to the shared value
// taxonomy using the column's declared kind. It is total: anything it
// cannot place lands in the unsupported variant with its raw text
// preserved byte for byte.
func DefaultNormalize(col adapter.Column, raw any) value.Value {
	if raw == nil {
		return value.Null()
	}

	switch col.Kind {
	case value.KindBool:
		return normalizeBool(raw)
	case value.KindInt:
		return normalizeInt(raw)
	case value.KindFloat:
		return normalizeFloat(raw)
	case value.KindDecimal:
		return value.Decimal(RawText(raw))
	case value.KindString:
		return value.String(RawText(raw))
	case value.KindBytes:
		return normalizeBytes(raw)
	case value.KindTimestamp:
		return normalizeTimestamp(raw)
	case value.KindDate:
		return normalizeDate(raw)
	case value.KindTime:
		return normalizeTime(raw)
	case value.KindInterval:
		return value.Interval(RawText(raw))
	case value.KindNull:
		return value.Null()
	default:
		return value.Unsupported(RawText(raw))
	}
}

// RawText renders a driver value as text without losing bytes. []byte
// payloads convert directly so the representation the backend sent is
// kept intact.
func RawText(raw any) string {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.UTC().Format(value.TimestampLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func normalizeBool(raw any) value.Value {
	switch v := raw.(type) {
	case bool:
		return value.Bool(v)
	case int64:
		return value.Bool(v != 0)
	case []byte:
		return parseBoolText(string(v), raw)
	case string:
		return parseBoolText(v, raw)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseBoolText(s string, raw any) value.Value {
	switch s {
	case "1", "t", "T", "true", "TRUE", "Y", "y":
		return value.Bool(true)
	case "0", "f", "F", "false", "FALSE", "N", "n":
		return value.Bool(false)
	}
	return value.Unsupported(RawText(raw))
}

func normalizeInt(raw any) value.Value {
	switch v := raw.(type) {
	case int64:
		return value.Int(v)
	case int32:
		return value.Int(int64(v))
	case int:
		return value.Int(int64(v))
	case uint64:
		// Values past int64 range stay exact as decimal text.
		if v > math.MaxInt64 {
			return value.Decimal(strconv.FormatUint(v, 10))
		}
		return value.Int(int64(v))
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return value.Int(int64(v))
		}
		return value.Decimal(strconv.FormatFloat(v, 'f', -1, 64))
	case []byte:
		return parseIntText(string(v))
	case string:
		return parseIntText(v)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseIntText(s string) value.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	// Out-of-range integers are exact numerics, not an error.
	return value.Decimal(s)
}

func normalizeFloat(raw any) value.Value {
	switch v := raw.(type) {
	case float64:
		return value.Float(v)
	case float32:
		return value.Float(float64(v))
	case int64:
		return value.Float(float64(v))
	case []byte:
		return parseFloatText(string(v), raw)
	case string:
		return parseFloatText(v, raw)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseFloatText(s string, raw any) value.Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Unsupported(RawText(raw))
}

func normalizeBytes(raw any) value.Value {
	switch v := raw.(type) {
	case []byte:
		b := make([]byte, len(v))
		copy(b, v)
		return value.Bytes(b)
	case string:
		return value.Bytes([]byte(v))
	default:
		return value.Unsupported(RawText(raw))
	}
}

func normalizeTimestamp(raw any) value.Value {
	switch v := raw.(type) {
	case time.Time:
		return value.Timestamp(v)
	case []byte:
		return parseTimestampText(string(v))
	case string:
		return parseTimestampText(v)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseTimestampText(s string) value.Value {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return value.Timestamp(t)
		}
	}
	return value.Unsupported(s)
}

func normalizeDate(raw any) value.Value {
	switch v := raw.(type) {
	case time.Time:
		return value.Date(v)
	case []byte:
		return parseDateText(string(v))
	case string:
		return parseDateText(v)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseDateText(s string) value.Value {
	if t, err := time.Parse(value.DateLayout, s); err == nil {
		return value.Date(t)
	}
	return value.Unsupported(s)
}

func normalizeTime(raw any) value.Value {
	switch v := raw.(type) {
	case time.Time:
		return value.TimeOfDay(v)
	case []byte:
		return parseTimeText(string(v))
	case string:
		return parseTimeText(v)
	default:
		return value.Unsupported(RawText(raw))
	}
}

func parseTimeText(s string) value.Value {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return value.TimeOfDay(t)
		}
	}
	return value.Unsupported(s)
}
