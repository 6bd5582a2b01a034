// Package filter applies attribute filters to task records.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taskchain/taskchain/pkg/ops"
	"github.com/taskchain/taskchain/pkg/record"
)

// Policy decides what happens to records whose filtered attribute is null.
type Policy string

const (
	PolicyRaise   Policy = "raise"
	PolicyInclude Policy = "include"
	PolicyExclude Policy = "exclude"
	PolicyDefault Policy = "default"
)

// ParsePolicy validates a policy name. The empty string means exclude.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case "":
		return PolicyExclude, nil
	case PolicyRaise, PolicyInclude, PolicyExclude, PolicyDefault:
		return p, nil
	}
	return "", &InvalidPolicyError{Policy: s}
}

// Placeholders stand in for "not given" in positional argument slots.
var Placeholders = []string{"_", "__None__"}

// IsPlaceholder reports whether s is one of Placeholders.
func IsPlaceholder(s string) bool {
	for _, p := range Placeholders {
		if s == p {
			return true
		}
	}
	return false
}

// Spec describes one filter: keep records where Op(record[Key], Value)
// differs from Negate, with Missing deciding the fate of null attributes.
type Spec struct {
	Key       string
	Op        string
	Value     record.Value
	Missing   Policy
	Default   record.Value
	Transform string
	Negate    bool
}

func (s Spec) String() string {
	neg := ""
	if s.Negate {
		neg = "not "
	}
	return fmt.Sprintf("%s %s%s %q (missing=%s)", s.Key, neg, s.Op, s.Value.String(), s.Missing)
}

// Evaluator applies filter specs.
type Evaluator struct {
	Operators  *ops.Registry
	Transforms *Transforms
	Log        *logrus.Logger
}

func (e *Evaluator) log() *logrus.Logger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// Apply returns the records passing spec, in their original order. Input
// records are never modified. Any per-record error aborts the whole filter.
func (e *Evaluator) Apply(records []*record.Record, spec Spec) ([]*record.Record, error) {
	log := e.log()

	if s, ok := spec.Default.AsString(); ok && IsPlaceholder(s) {
		spec.Default = record.Null()
	}
	if IsPlaceholder(spec.Transform) {
		spec.Transform = ""
	}
	if s, ok := spec.Value.AsString(); ok && strings.HasPrefix(s, "!") {
		spec.Value = record.String(s[1:])
		spec.Negate = !spec.Negate
	}

	policy, err := ParsePolicy(string(spec.Missing))
	if err != nil {
		return nil, err
	}
	spec.Missing = policy

	if spec.Transform != "" {
		if e.Transforms == nil {
			return nil, &UnknownTransformError{Name: spec.Transform}
		}
		if spec.Value, err = e.Transforms.Apply(spec.Transform, spec.Value); err != nil {
			return nil, err
		}
		if policy == PolicyDefault && !spec.Default.IsNull() {
			if spec.Default, err = e.Transforms.Apply(spec.Transform, spec.Default); err != nil {
				return nil, err
			}
		}
	}

	op, err := e.Operators.Lookup(spec.Op)
	if err != nil {
		return nil, err
	}

	if (spec.Op == "le" || spec.Op == "ile") && strings.Contains(spec.Key, "date") &&
		!strings.HasSuffix(spec.Value.String(), "59") {
		log.Warnf("Using %q with a date key %q and value %q may not include the whole day; consider \"lt\" with the next day instead.",
			spec.Op, spec.Key, spec.Value.String())
	}
	if policy == PolicyDefault && spec.Default.IsNull() {
		log.Warnf("Missing policy is %q but no default value was given for %q; missing values compare as null.",
			PolicyDefault, spec.Key)
	}

	log.Infof("Filtering %d tasks: %s", len(records), spec)

	type coercion struct {
		kind record.Kind
		loc  *time.Location
	}
	coerced := map[coercion]record.Value{}
	out := make([]*record.Record, 0, len(records))
	for _, r := range records {
		v := r.Resolve(spec.Key)
		cmp := spec.Value

		if v.IsNull() {
			switch policy {
			case PolicyRaise:
				return nil, &MissingAttributeError{Key: spec.Key, RecordID: r.ID(), Content: r.Content()}
			case PolicyInclude:
				log.Tracef("  + %q: %s is missing", r.Content(), spec.Key)
				out = append(out, r)
				continue
			case PolicyExclude:
				log.Tracef("  - %q: %s is missing", r.Content(), spec.Key)
				continue
			case PolicyDefault:
				v = spec.Default
			}
		} else if v.Kind() != cmp.Kind() && v.Kind().Scalar() && cmp.Kind().Scalar() {
			key := coercion{kind: v.Kind(), loc: time.Local}
			if t, ok := v.AsTime(); ok {
				key.loc = t.Location()
			}
			c, ok := coerced[key]
			if !ok {
				c, err = record.CoerceIn(cmp, key.kind, key.loc)
				if err != nil {
					return nil, fmt.Errorf("filtering on %s: %w", spec.Key, err)
				}
				coerced[key] = c
			}
			cmp = c
		}

		if op(v, cmp) != spec.Negate {
			log.Tracef("  + %q: %s=%s", r.Content(), spec.Key, v)
			out = append(out, r)
		} else {
			log.Tracef("  - %q: %s=%s", r.Content(), spec.Key, v)
		}
	}
	log.Debugf("%d of %d tasks passed", len(out), len(records))
	return out, nil
}
