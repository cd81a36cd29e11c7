package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the backend-independent type of a cell value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal // exact numeric carried as text, never rounded
	KindString
	KindBytes
	KindTimestamp
	KindDate
	KindTime
	KindInterval
	KindArray
	KindUnsupported // unrecognized native type, raw text preserved
)

var kindNames = map[Kind]string{
	KindNull:        "null",
	KindBool:        "bool",
	KindInt:         "int",
	KindFloat:       "float",
	KindDecimal:     "decimal",
	KindString:      "string",
	KindBytes:       "bytes",
	KindTimestamp:   "timestamp",
	KindDate:        "date",
	KindTime:        "time",
	KindInterval:    "interval",
	KindArray:       "array",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Numeric reports whether the kind holds a numeric value.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Value is a tagged union over the normalized type taxonomy. The zero
// Value is the SQL NULL.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	t    time.Time
	arr  []Value
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Decimal carries an exact numeric as its textual representation.
// Large integers and fixed-point values normalize here so no precision
// is lost to a float round trip.
func Decimal(text string) Value { return Value{kind: KindDecimal, s: text} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bytes(b []byte) Value { return Value{kind: KindBytes, by: b} }

// Timestamp normalizes to UTC. Backend timezone handling is resolved
// before a Value is built, not deferred to the caller.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t.UTC()} }

func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// TimeOfDay holds a wall-clock time; only the clock portion of t is
// significant.
func TimeOfDay(t time.Time) Value { return Value{kind: KindTime, t: t} }

func Interval(text string) Value { return Value{kind: KindInterval, s: text} }

func Array(elems []Value) Value { return Value{kind: KindArray, arr: elems} }

// Unsupported preserves the raw textual representation of a value whose
// native type has no mapping. It is a value, not an error: one exotic
// column never fails a row.
func Unsupported(raw string) Value { return Value{kind: KindUnsupported, s: raw} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

// Text returns the string payload for String, Decimal, Interval and
// Unsupported values.
func (v Value) Text() string { return v.s }

func (v Value) Bytes() []byte { return v.by }

func (v Value) Time() time.Time { return v.t }

func (v Value) Array() []Value { return v.arr }

// Layouts used for rendering temporal values.
const (
	TimestampLayout = "2006-01-02 15:04:05.999999"
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999"
)

// Render returns the canonical textual form of the value. For exact
// numerics and unsupported types this is byte-for-byte the text the
// backend produced.
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal, KindString, KindInterval, KindUnsupported:
		return v.s
	case KindBytes:
		return fmt.Sprintf("\\x%x", v.by)
	case KindTimestamp:
		return v.t.Format(TimestampLayout)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Render()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return ""
	}
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal, KindString, KindInterval, KindUnsupported:
		return v.s == o.s
	case KindBytes:
		return string(v.by) == string(o.by)
	case KindTimestamp, KindDate, KindTime:
		return v.t.Equal(o.t)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}
