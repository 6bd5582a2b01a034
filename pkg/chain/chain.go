// Package chain turns a flat argument vector into an ordered list of
// action invocations.
//
// A token starting with '-' opens a new action group named by the token
// without the dash. Other tokens are positional arguments of the current
// group, unless they contain '=' after the first character, in which case
// they are split at the first '=' into a keyword argument. Tokens before
// the first action form the base arguments used for global options.
//
// The grammar is deliberately permissive: negative numbers such as "-1"
// open an action group, and a positional value that happens to contain
// '=' is read as a keyword argument.
package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// Invocation is one action in the chain.
type Invocation struct {
	Name   string
	Args   []string
	Kwargs map[string]string
}

// Kwarg returns the keyword argument named key, or def.
func (inv Invocation) Kwarg(key, def string) string {
	if v, ok := inv.Kwargs[key]; ok {
		return v
	}
	return def
}

// Arg returns the positional argument at i, or def.
func (inv Invocation) Arg(i int, def string) string {
	if i < len(inv.Args) {
		return inv.Args[i]
	}
	return def
}

// Tokens re-serializes the invocation. Keyword arguments are emitted in
// key order after the positional arguments.
func (inv Invocation) Tokens() []string {
	tokens := []string{"-" + inv.Name}
	tokens = append(tokens, inv.Args...)
	return append(tokens, kwargTokens(inv.Kwargs)...)
}

func (inv Invocation) String() string {
	return strings.Join(inv.Tokens(), " ")
}

// Parsed is the result of parsing an argument vector.
type Parsed struct {
	BaseArgs   []string
	BaseKwargs map[string]string
	Actions    []Invocation
}

// Tokens re-serializes the whole chain, base arguments first.
func (p Parsed) Tokens() []string {
	tokens := append([]string{}, p.BaseArgs...)
	tokens = append(tokens, kwargTokens(p.BaseKwargs)...)
	for _, inv := range p.Actions {
		tokens = append(tokens, inv.Tokens()...)
	}
	return tokens
}

// Names returns the action names in order.
func (p Parsed) Names() []string {
	names := make([]string, len(p.Actions))
	for i, inv := range p.Actions {
		names[i] = inv.Name
	}
	return names
}

func kwargTokens(kwargs map[string]string) []string {
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, k+"="+kwargs[k])
	}
	return tokens
}

// ParseError reports a malformed chain.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing action chain %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse groups tokens into base arguments and action invocations. It never
// fails; an empty token list yields an empty result.
func Parse(tokens []string) Parsed {
	p := Parsed{BaseArgs: []string{}, BaseKwargs: map[string]string{}}
	cur := -1

	for _, tok := range tokens {
		if strings.HasPrefix(tok, "-") {
			p.Actions = append(p.Actions, Invocation{
				Name:   tok[1:],
				Args:   []string{},
				Kwargs: map[string]string{},
			})
			cur = len(p.Actions) - 1
			continue
		}
		if i := strings.Index(tok, "="); i > 0 {
			if cur < 0 {
				p.BaseKwargs[tok[:i]] = tok[i+1:]
			} else {
				p.Actions[cur].Kwargs[tok[:i]] = tok[i+1:]
			}
			continue
		}
		if cur < 0 {
			p.BaseArgs = append(p.BaseArgs, tok)
		} else {
			p.Actions[cur].Args = append(p.Actions[cur].Args, tok)
		}
	}
	return p
}

// ParseString splits s with shell quoting rules and parses the tokens.
func ParseString(s string) (Parsed, error) {
	tokens, err := shlex.Split(s)
	if err != nil {
		return Parsed{}, &ParseError{Input: s, Err: err}
	}
	return Parse(tokens), nil
}
