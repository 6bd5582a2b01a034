// Package record holds the task record model: a tagged-union Value and a
// Record view that resolves attribute paths over primary and derived fields.
package record

import "strings"

// Record is one task. Fields holds the data as fetched from the remote
// store; Derived holds fields computed from it and is replaced wholesale
// whenever the record set is re-derived.
type Record struct {
	Fields  map[string]Value
	Derived map[string]Value
}

// New builds a record from decoded payload data.
func New(data map[string]any) *Record {
	fields := make(map[string]Value, len(data))
	for k, v := range data {
		fields[k] = FromAny(v)
	}
	return &Record{Fields: fields, Derived: map[string]Value{}}
}

// FromRaw builds records from a list of decoded payload maps.
func FromRaw(items []map[string]any) []*Record {
	out := make([]*Record, 0, len(items))
	for _, item := range items {
		out = append(out, New(item))
	}
	return out
}

// Get returns the primary field named key, or null.
func (r *Record) Get(key string) Value {
	return r.Fields[key]
}

// ID returns the task id as a string.
func (r *Record) ID() string {
	return r.Fields["id"].String()
}

// Content returns the task title.
func (r *Record) Content() string {
	return r.Fields["content"].String()
}

// Resolve looks up an attribute path. Lookup order: primary field,
// derived field, the due sub-mapping for due_x and due.x paths, then a
// dotted walk into nested maps. Anything else resolves to null.
func (r *Record) Resolve(path string) Value {
	if v, ok := r.Fields[path]; ok && !v.IsNull() {
		return v
	}
	if v, ok := r.Derived[path]; ok && !v.IsNull() {
		return v
	}
	for _, prefix := range []string{"due_", "due."} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			if v := r.Fields["due"].Index(rest); !v.IsNull() {
				return v
			}
		}
	}
	if strings.Contains(path, ".") {
		parts := strings.Split(path, ".")
		for _, root := range []map[string]Value{r.Fields, r.Derived} {
			v := root[parts[0]]
			for _, part := range parts[1:] {
				v = v.Index(part)
			}
			if !v.IsNull() {
				return v
			}
		}
	}
	return Null()
}

// View returns the merged field mapping, derived fields taking precedence.
func (r *Record) View() map[string]Value {
	out := make(map[string]Value, len(r.Fields)+len(r.Derived))
	for k, v := range r.Fields {
		out[k] = v
	}
	for k, v := range r.Derived {
		out[k] = v
	}
	return out
}

// Plain returns View converted to plain Go data, for dumping.
func (r *Record) Plain() map[string]any {
	view := r.View()
	out := make(map[string]any, len(view))
	for k, v := range view {
		out[k] = ToAny(v)
	}
	return out
}
