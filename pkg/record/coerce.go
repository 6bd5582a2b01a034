package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TypeCoercionError is returned when a value cannot be converted to the
// kind of the value it is compared against.
type TypeCoercionError struct {
	Value  Value
	Target Kind
	Err    error
}

func (e *TypeCoercionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s %q to %s", e.Value.Kind(), e.Value.String(), e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

// TimeLayouts are tried in order when a string is coerced to a time.
var TimeLayouts = []string{
	time.RFC3339Nano,
	TimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses s with the first matching layout in TimeLayouts.
// Layouts without a zone are interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

// Coerce converts v to the given scalar kind. Null and values already of
// that kind are returned unchanged. Strings become times in time.Local.
func Coerce(v Value, target Kind) (Value, error) {
	return CoerceIn(v, target, time.Local)
}

// CoerceIn is Coerce with zoneless time strings read in loc.
func CoerceIn(v Value, target Kind, loc *time.Location) (Value, error) {
	if v.kind == target || v.kind == KindNull {
		return v, nil
	}
	fail := func(err error) (Value, error) {
		return Value{}, &TypeCoercionError{Value: v, Target: target, Err: err}
	}
	if !target.Scalar() || !v.kind.Scalar() {
		return fail(nil)
	}

	switch target {
	case KindString:
		return String(v.String()), nil

	case KindInt:
		switch v.kind {
		case KindFloat:
			return Int(int64(v.f)), nil
		case KindBool:
			if v.b {
				return Int(1), nil
			}
			return Int(0), nil
		case KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return fail(err)
			}
			return Int(i), nil
		}

	case KindFloat:
		switch v.kind {
		case KindInt:
			return Float(float64(v.i)), nil
		case KindBool:
			if v.b {
				return Float(1), nil
			}
			return Float(0), nil
		case KindString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return fail(err)
			}
			return Float(f), nil
		}

	case KindBool:
		switch v.kind {
		case KindInt:
			return Bool(v.i != 0), nil
		case KindFloat:
			return Bool(v.f != 0), nil
		case KindString:
			b, err := ParseBool(v.s)
			if err != nil {
				return fail(err)
			}
			return Bool(b), nil
		}

	case KindTime:
		if v.kind == KindString {
			t, err := ParseTime(v.s, loc)
			if err != nil {
				return fail(err)
			}
			return Time(t), nil
		}
	}
	return fail(nil)
}

// ParseBool accepts the spellings a user is likely to type.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
