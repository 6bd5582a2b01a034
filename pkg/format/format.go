// Package format renders task records through print templates of the form
// "{field}" or "{field:spec}".
//
// A spec is [[fill]align][0][width][,][.precision][type] with align one of
// '<', '>' or '^' and type one of 's', 'd' or 'f'. Time fields may instead
// use a strftime pattern, recognized by a '%' in the spec. "{{" and "}}"
// produce literal braces. Fields missing from the record render empty.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lestrrat-go/strftime"
	"github.com/mattn/go-runewidth"
	"github.com/taskchain/taskchain/pkg/record"
)

// DefaultTemplate is used by print when no template is configured.
const DefaultTemplate = "{project_name:15.15} {due_date_pretty_safe:16} {priority_str} {checked_str} {content:.79} (due {due_string_safe})  {labels_str}"

// Template is a parsed print template.
type Template struct {
	src   string
	parts []part
}

type part struct {
	literal string
	field   string
	spec    string
	isField bool
}

// Parse parses a template. Unbalanced braces are an error.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	var lit strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %q: unclosed '{' at offset %d", src, i)
			}
			if lit.Len() > 0 {
				t.parts = append(t.parts, part{literal: lit.String()})
				lit.Reset()
			}
			field, spec, _ := strings.Cut(src[i+1:i+end], ":")
			field, _, _ = strings.Cut(field, "!")
			t.parts = append(t.parts, part{field: strings.TrimSpace(field), spec: spec, isField: true})
			i += end
		case c == '}':
			return nil, fmt.Errorf("template %q: single '}' at offset %d", src, i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{literal: lit.String()})
	}
	return t, nil
}

func (t *Template) String() string {
	return t.src
}

// Execute renders the template against a field mapping.
func (t *Template) Execute(view map[string]record.Value) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if !p.isField {
			b.WriteString(p.literal)
			continue
		}
		v, ok := view[p.field]
		if !ok {
			v = record.String("")
		}
		s, err := formatValue(v, p.spec)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", p.field, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Render parses and executes src in one step.
func Render(src string, view map[string]record.Value) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Execute(view)
}

// MaxWidth bounds both the width and the precision of a field.
const MaxWidth = 1024

type spec struct {
	fill      rune
	align     byte
	width     int
	precision int
	typ       byte
}

func parseSpec(s string) (spec, error) {
	sp := spec{fill: ' ', precision: -1}
	r := []rune(s)
	i := 0
	isAlign := func(c rune) bool { return c == '<' || c == '>' || c == '^' }
	switch {
	case len(r) >= 2 && isAlign(r[1]):
		sp.fill, sp.align = r[0], byte(r[1])
		i = 2
	case len(r) >= 1 && isAlign(r[0]):
		sp.align = byte(r[0])
		i = 1
	}
	if i < len(r) && r[i] == '0' {
		sp.fill = '0'
		if sp.align == 0 {
			sp.align = '>'
		}
		i++
	}
	start := i
	for i < len(r) && r[i] >= '0' && r[i] <= '9' {
		i++
	}
	if i > start {
		w, err := strconv.Atoi(string(r[start:i]))
		if err != nil || w > MaxWidth {
			return sp, fmt.Errorf("invalid format spec %q: width exceeds %d", s, MaxWidth)
		}
		sp.width = w
	}
	if i < len(r) && r[i] == ',' {
		i++
	}
	if i < len(r) && r[i] == '.' {
		i++
		start = i
		for i < len(r) && r[i] >= '0' && r[i] <= '9' {
			i++
		}
		if i == start {
			return sp, fmt.Errorf("invalid format spec %q: missing precision", s)
		}
		p, err := strconv.Atoi(string(r[start:i]))
		if err != nil || p > MaxWidth {
			return sp, fmt.Errorf("invalid format spec %q: precision exceeds %d", s, MaxWidth)
		}
		sp.precision = p
	}
	if i < len(r) {
		switch r[i] {
		case 's', 'd', 'f':
			sp.typ = byte(r[i])
			i++
		}
	}
	if i != len(r) {
		return sp, fmt.Errorf("invalid format spec %q", s)
	}
	return sp, nil
}

func formatValue(v record.Value, specStr string) (string, error) {
	if t, ok := v.AsTime(); ok && strings.Contains(specStr, "%") {
		return strftime.Format(specStr, t)
	}
	if specStr == "" {
		return v.String(), nil
	}
	sp, err := parseSpec(specStr)
	if err != nil {
		return "", err
	}

	numeric := v.Kind() == record.KindInt || v.Kind() == record.KindFloat
	var text string
	switch {
	case numeric && (sp.typ == 'f' || (sp.typ == 0 && v.Kind() == record.KindFloat && sp.precision >= 0)):
		f, _ := v.AsFloat()
		prec := sp.precision
		if prec < 0 {
			prec = 6
		}
		text = strconv.FormatFloat(f, 'f', prec, 64)
	case numeric && sp.typ == 'd':
		f, _ := v.AsFloat()
		text = strconv.FormatInt(int64(f), 10)
	default:
		text = v.String()
		if sp.precision >= 0 && runewidth.StringWidth(text) > sp.precision {
			text = runewidth.Truncate(text, sp.precision, "")
		}
	}

	align := sp.align
	if align == 0 {
		align = '<'
		if numeric {
			align = '>'
		}
	}
	return pad(text, sp.width, sp.fill, align), nil
}

func pad(s string, width int, fill rune, align byte) string {
	n := width - runewidth.StringWidth(s)
	if n <= 0 {
		return s
	}
	f := string(fill)
	switch align {
	case '>':
		return strings.Repeat(f, n) + s
	case '^':
		left := n / 2
		return strings.Repeat(f, left) + s + strings.Repeat(f, n-left)
	}
	return s + strings.Repeat(f, n)
}
