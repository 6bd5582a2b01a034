package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindTime:   "time",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Scalar reports whether values of this kind can be coerced into each other.
func (k Kind) Scalar() bool {
	return k != KindNull && k != KindList && k != KindMap
}

// TimeLayout is the display form used for time values.
const TimeLayout = "2006-01-02T15:04:05"

// Value is a JSON-like dynamically typed value: a scalar, a list or a map.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	list []Value
	m    map[string]Value
}

func Null() Value               { return Value{} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value    { return Value{kind: KindTime, t: t} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Strings builds a list of string values.
func Strings(items ...string) Value {
	list := make([]Value, len(items))
	for i, s := range items {
		list[i] = String(s)
	}
	return List(list...)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindTime
}
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsFloat returns the numeric value of an int or float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Truthy follows the usual dynamic-language notion of truth.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindTime:
		return !v.t.IsZero()
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	}
	return false
}

// String renders the value the way it is shown to users and matched by
// string operators. Strings nested in lists and maps are quoted.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	default:
		return v.repr()
	}
}

func (v Value) repr() string {
	switch v.kind {
	case KindNull:
		return "None"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !math.IsInf(v.f, 0) && !math.IsNaN(v.f) {
			s += ".0"
		}
		return s
	case KindString:
		return "'" + strings.ReplaceAll(v.s, "'", `\'`) + "'"
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = "'" + k + "': " + v.m[k].repr()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Index returns the entry named key of a map value, or null.
func (v Value) Index(key string) Value {
	if v.kind != KindMap {
		return Null()
	}
	return v.m[key]
}

func isNumber(v Value) bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Equal reports deep equality. Ints and floats compare numerically.
func Equal(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindTime:
		return a.t.Equal(b.t)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values. The second result is false when the kinds
// have no defined ordering against each other.
func Compare(a, b Value) (int, bool) {
	if isNumber(a) && isNumber(b) {
		if a.kind == KindInt && b.kind == KindInt {
			return cmp3(a.i < b.i, a.i > b.i), true
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return cmp3(af < bf, af > bf), true
	}
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindNull:
		return 0, true
	case KindBool:
		return cmp3(!a.b && b.b, a.b && !b.b), true
	case KindString:
		return strings.Compare(a.s, b.s), true
	case KindTime:
		return a.t.Compare(b.t), true
	case KindList:
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			c, ok := Compare(a.list[i], b.list[i])
			if !ok {
				return 0, false
			}
			if c != 0 {
				return c, true
			}
		}
		return cmp3(len(a.list) < len(b.list), len(a.list) > len(b.list)), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// Contains reports whether item is in container: a substring of a
// string, an element of a list, or a key of a map.
func Contains(container, item Value) bool {
	switch container.kind {
	case KindString:
		return strings.Contains(container.s, item.String())
	case KindList:
		for _, el := range container.list {
			if Equal(el, item) {
				return true
			}
		}
		return false
	case KindMap:
		_, ok := container.m[item.String()]
		return ok
	}
	return false
}

// Lower returns a lower-cased copy. Lists and maps are lowered element-wise,
// other scalars become their lower-cased string form. Null stays null.
func Lower(v Value) Value {
	switch v.kind {
	case KindNull:
		return v
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = Lower(item)
		}
		return List(out...)
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			out[strings.ToLower(k)] = Lower(item)
		}
		return Map(out)
	}
	return String(strings.ToLower(v.String()))
}

// FromAny converts decoded JSON or YAML data into a Value.
func FromAny(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint64:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, _ := x.Float64()
		return Float(f)
	case string:
		return String(x)
	case time.Time:
		return Time(x)
	case []string:
		return Strings(x...)
	case []any:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = FromAny(item)
		}
		return List(out...)
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, item := range x {
			out[k] = FromAny(item)
		}
		return Map(out)
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			out[i] = FromAny(rv.Index(i).Interface())
		}
		return List(out...)
	case reflect.Map:
		out := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = FromAny(iter.Value().Interface())
		}
		return Map(out)
	}
	return String(fmt.Sprint(x))
}

// ToAny converts a Value back into plain Go data.
func ToAny(v Value) any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = ToAny(item)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = ToAny(item)
		}
		return out
	}
	return nil
}
