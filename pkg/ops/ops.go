// Package ops is the catalogue of named binary predicates used by filters.
//
// Every operator is called as op(recordValue, comparisonValue). For the
// pattern operators (glob, re) the comparison value is the pattern, which
// is the reverse of the usual matcher argument order.
package ops

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/taskchain/taskchain/pkg/record"
)

// Func is a binary predicate over a record value and a comparison value.
type Func func(a, b record.Value) bool

// UnknownOperatorError is returned by Lookup for names not in the registry.
type UnknownOperatorError struct {
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Name)
}

// Registry maps operator names to predicates.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register adds fn under each of the given names.
func (r *Registry) Register(fn Func, names ...string) {
	for _, name := range names {
		r.funcs[name] = fn
	}
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, &UnknownOperatorError{Name: name}
	}
	return fn, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry with the standard operators and their
// case-insensitive variants.
func Default() *Registry {
	r := NewRegistry()
	base := []struct {
		fn    Func
		names []string
	}{
		{Eq, []string{"eq", "equals", "equal"}},
		{Ne, []string{"ne", "neq", "nequal"}},
		{Lt, []string{"lt", "less", "lessthan"}},
		{Le, []string{"le"}},
		{Gt, []string{"gt", "greater", "greaterthan"}},
		{Ge, []string{"ge"}},
		{Contains, []string{"contains"}},
		{In, []string{"in", "in_"}},
		{StartsWith, []string{"startswith"}},
		{EndsWith, []string{"endswith"}},
		{Glob, []string{"glob", "fnmatch"}},
		{Re, []string{"re"}},
	}
	for _, op := range base {
		r.Register(op.fn, op.names...)
		insensitive := CaseInsensitive(op.fn)
		for _, name := range op.names {
			r.Register(insensitive, "i"+name)
		}
	}
	return r
}

// CaseInsensitive wraps fn so both operands are lower-cased first.
func CaseInsensitive(fn Func) Func {
	return func(a, b record.Value) bool {
		return fn(record.Lower(a), record.Lower(b))
	}
}

// Eq reports whether a and b are equal. Ints and floats compare by value;
// other values of different kinds are never equal.
func Eq(a, b record.Value) bool { return record.Equal(a, b) }

// Ne is the negation of Eq.
func Ne(a, b record.Value) bool { return !record.Equal(a, b) }

// Lt reports a < b. The ordered comparisons are all false for operands
// without an ordering, so Lt and Ge are not complements.
func Lt(a, b record.Value) bool { return ordered(a, b, func(c int) bool { return c < 0 }) }

// Le reports a <= b.
func Le(a, b record.Value) bool { return ordered(a, b, func(c int) bool { return c <= 0 }) }

// Gt reports a > b.
func Gt(a, b record.Value) bool { return ordered(a, b, func(c int) bool { return c > 0 }) }

// Ge reports a >= b.
func Ge(a, b record.Value) bool { return ordered(a, b, func(c int) bool { return c >= 0 }) }

// ordered is false for operands without a defined ordering.
func ordered(a, b record.Value, pred func(int) bool) bool {
	c, ok := record.Compare(a, b)
	return ok && pred(c)
}

// Contains reports whether b is in a.
func Contains(a, b record.Value) bool { return record.Contains(a, b) }

// In reports whether a is in b.
func In(a, b record.Value) bool { return record.Contains(b, a) }

// StartsWith reports whether the text of a begins with the text of b.
func StartsWith(a, b record.Value) bool { return strings.HasPrefix(a.String(), b.String()) }

// EndsWith reports whether the text of a ends with the text of b.
func EndsWith(a, b record.Value) bool { return strings.HasSuffix(a.String(), b.String()) }

// Glob matches a against the shell pattern b, case-sensitively. The whole
// string must match and '*' also matches path separators.
func Glob(a, b record.Value) bool {
	g, err := patterns.glob(b.String())
	if err != nil {
		return false
	}
	return g.Match(a.String())
}

// Re reports whether the regular expression b matches at the start of a.
func Re(a, b record.Value) bool {
	re, err := patterns.regexp(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(a.String())
}

type patternCache struct {
	mu      sync.Mutex
	globs   map[string]glob.Glob
	regexps map[string]*regexp.Regexp
}

var patterns = &patternCache{
	globs:   map[string]glob.Glob{},
	regexps: map[string]*regexp.Regexp{},
}

func (c *patternCache) glob(pattern string) (glob.Glob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.globs[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.globs[pattern] = g
	return g, nil
}

func (c *patternCache) regexp(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.regexps[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, err
	}
	c.regexps[pattern] = re
	return re, nil
}
