package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/record"
)

// TransformFunc converts a comparison value before it is used.
type TransformFunc func(record.Value) (record.Value, error)

// Transforms is the closed table of named value transforms. Free-form
// expressions are not supported.
type Transforms struct {
	funcs map[string]TransformFunc
}

// NewTransforms returns the built-in table. The date transforms resolve
// relative expressions with parser against now.
func NewTransforms(parser dates.Parser, now func() time.Time) *Transforms {
	if now == nil {
		now = time.Now
	}
	parse := func(v record.Value) (dates.Result, error) {
		if t, ok := v.AsTime(); ok {
			return dates.Result{Time: t, HasTime: true}, nil
		}
		return parser.Parse(v.String(), now())
	}
	toDate := func(v record.Value) (record.Value, error) {
		r, err := parse(v)
		if err != nil {
			return record.Value{}, err
		}
		return record.Time(r.Time), nil
	}

	return &Transforms{funcs: map[string]TransformFunc{
		"int":   coerceTo(record.KindInt),
		"float": coerceTo(record.KindFloat),
		"str":   coerceTo(record.KindString),
		"bool":  coerceTo(record.KindBool),
		"lower": func(v record.Value) (record.Value, error) {
			return record.String(strings.ToLower(v.String())), nil
		},
		"upper": func(v record.Value) (record.Value, error) {
			return record.String(strings.ToUpper(v.String())), nil
		},
		"date":       toDate,
		"parse_date": toDate,
		"human_date_to_iso": func(v record.Value) (record.Value, error) {
			r, err := parse(v)
			if err != nil {
				return record.Value{}, err
			}
			return record.String(dates.DateString(r)), nil
		},
	}}
}

func coerceTo(kind record.Kind) TransformFunc {
	return func(v record.Value) (record.Value, error) {
		return record.Coerce(v, kind)
	}
}

// Lookup returns the transform registered under name.
func (t *Transforms) Lookup(name string) (TransformFunc, error) {
	fn, ok := t.funcs[name]
	if !ok {
		return nil, &UnknownTransformError{Name: name, Known: t.Names()}
	}
	return fn, nil
}

// Names lists the available transforms.
func (t *Transforms) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named transform on v.
func (t *Transforms) Apply(name string, v record.Value) (record.Value, error) {
	fn, err := t.Lookup(name)
	if err != nil {
		return record.Value{}, err
	}
	out, err := fn(v)
	if err != nil {
		return record.Value{}, fmt.Errorf("transform %s: %w", name, err)
	}
	return out, nil
}
