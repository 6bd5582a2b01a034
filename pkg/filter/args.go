package filter

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/taskchain/taskchain/pkg/record"
)

// Options are the optional filter arguments, given positionally after
// <key> <op> <value> or as keyword arguments.
type Options struct {
	Missing        string  `mapstructure:"missing"`
	Default        *string `mapstructure:"default"`
	Transform      string  `mapstructure:"transform"`
	ValueTransform string  `mapstructure:"value_transform"`
	Negate         string  `mapstructure:"negate"`
}

// DecodeOptions decodes keyword arguments into Options, rejecting unknown
// keys.
func DecodeOptions(kwargs map[string]string) (Options, error) {
	var opts Options
	if len(kwargs) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(kwargs); err != nil {
		return opts, &UsageError{Msg: fmt.Sprintf("filter options: %v", err)}
	}
	return opts, nil
}

// Merge fills opts from positional arguments in the order missing,
// default, transform, negate. Keyword arguments take precedence.
func (o Options) Merge(args []string) Options {
	if len(args) > 0 && o.Missing == "" {
		o.Missing = args[0]
	}
	if len(args) > 1 && o.Default == nil {
		o.Default = &args[1]
	}
	if len(args) > 2 && o.Transform == "" && o.ValueTransform == "" {
		o.Transform = args[2]
	}
	if len(args) > 3 && o.Negate == "" {
		o.Negate = args[3]
	}
	return o
}

// Apply sets the optional fields of spec from o.
func (o Options) Apply(spec *Spec) {
	if o.Missing != "" {
		spec.Missing = Policy(o.Missing)
	}
	if o.Default != nil {
		spec.Default = record.String(*o.Default)
	}
	switch {
	case o.Transform != "":
		spec.Transform = o.Transform
	case o.ValueTransform != "":
		spec.Transform = o.ValueTransform
	}
	if o.Negate != "" {
		spec.Negate = spec.Negate != ParseNegate(o.Negate)
	}
}

// SpecFromArgs builds a spec from `<key> <op> <value> [missing] [default]
// [transform] [negate]` and keyword arguments.
func SpecFromArgs(args []string, kwargs map[string]string) (Spec, error) {
	if len(args) < 3 {
		return Spec{}, &UsageError{Msg: fmt.Sprintf(
			"filter requires <key> <op> <value>, got %d argument(s): %q", len(args), args)}
	}
	opts, err := DecodeOptions(kwargs)
	if err != nil {
		return Spec{}, err
	}
	spec := Spec{Key: args[0], Op: args[1], Value: record.String(args[2])}
	opts.Merge(args[3:]).Apply(&spec)
	return spec, nil
}

// ParseNegate interprets a negate argument. Empty, "false", "0" and the
// placeholders are false; any other string is true.
func ParseNegate(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "_", "__none__":
		return false
	}
	return true
}
