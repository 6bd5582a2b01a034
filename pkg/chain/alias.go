package chain

import (
	"errors"
	"fmt"
	"maps"
)

const maxAliasDepth = 8

// ExpandAliases replaces every invocation whose name is a key of aliases
// with the chain that alias stands for. Arguments given to the alias are
// appended to the last action of its expansion. Aliases may refer to other
// aliases.
func ExpandAliases(actions []Invocation, aliases map[string]string) ([]Invocation, error) {
	if len(aliases) == 0 {
		return actions, nil
	}
	return expand(actions, aliases, 0)
}

func expand(actions []Invocation, aliases map[string]string, depth int) ([]Invocation, error) {
	out := make([]Invocation, 0, len(actions))
	for _, inv := range actions {
		def, ok := aliases[inv.Name]
		if !ok {
			out = append(out, inv)
			continue
		}
		if depth >= maxAliasDepth {
			return nil, &ParseError{
				Input: def,
				Err:   fmt.Errorf("alias %q expands recursively", inv.Name),
			}
		}
		parsed, err := ParseString(def)
		if err != nil {
			return nil, err
		}
		if len(parsed.Actions) == 0 {
			return nil, &ParseError{Input: def, Err: errors.New("alias " + inv.Name + " has no actions")}
		}
		last := &parsed.Actions[len(parsed.Actions)-1]
		last.Args = append(last.Args, inv.Args...)
		maps.Copy(last.Kwargs, inv.Kwargs)

		expanded, err := expand(parsed.Actions, aliases, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}
