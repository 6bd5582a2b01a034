// Package derive computes the derived fields of task records: parsed due
// dates with safe defaults, checkbox and priority labels, and the project
// and label names joined in from the side data.
package derive

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taskchain/taskchain/pkg/record"
)

const (
	ISOLayout        = "2006-01-02T15:04:05"
	PrettyLayout     = "2006-01-02 15:04"
	PrettyDateLayout = "2006-01-02"
	NoDueDatePretty  = "(No due-date)"
	ProjectNA        = "N/A"
)

// DateKeys are the timestamp fields that get _dt, _iso and _safe variants.
var DateKeys = []string{"added_at", "completed_at", "updated_at", "date_added", "date_completed", "completed_date"}

// SideData is the reference data records are joined against.
type SideData struct {
	Projects []map[string]any `yaml:"projects"`
	Labels   []map[string]any `yaml:"labels"`
}

// Deriver fills Record.Derived.
type Deriver struct {
	// Location is the zone all derived times are expressed in.
	Location *time.Location
	// SafeDate stands in for missing dates in the _safe fields.
	SafeDate time.Time
	// LabelPrefix is put in front of each label name in labels_str.
	LabelPrefix string
	LabelSep    string
	// ParseContent extracts @labels and {key: value} properties from the
	// task content into ext_labels, ext_props and cleaned.
	ParseContent bool
}

// New returns a Deriver for loc with the default sentinel date of
// 2099-12-31 23:59:59.
func New(loc *time.Location) *Deriver {
	if loc == nil {
		loc = time.Local
	}
	return &Deriver{
		Location:    loc,
		SafeDate:    time.Date(2099, 12, 31, 23, 59, 59, 0, loc),
		LabelPrefix: "@",
		LabelSep:    " ",
	}
}

// Derive replaces the derived fields of every record. Primary fields are
// never touched, so calling it again yields the same result.
func (d *Deriver) Derive(records []*record.Record, side SideData) {
	projects := indexByID(side.Projects)
	labels := indexLabels(side.Labels)
	for _, r := range records {
		out := map[string]record.Value{}
		d.dueFields(r, out)
		d.dateFields(r, out)
		d.statusFields(r, out)
		projectFields(r, projects, out)
		d.labelFields(r, labels, out)
		if d.ParseContent {
			contentFields(r, out)
		}
		r.Derived = out
	}
}

func (d *Deriver) dueFields(r *record.Record, out map[string]record.Value) {
	due := r.Get("due")
	date, _ := due.Index("date").AsString()

	var dueString string
	if s, ok := due.Index("string").AsString(); ok {
		dueString = s
	} else if s, ok := r.Get("date_string").AsString(); ok {
		dueString = s
	}

	out["is_recurring"] = record.Bool(IsRecurring(r))

	if date == "" {
		out["is_allday"] = record.Bool(true)
		if dueString != "" {
			out["due_string_safe"] = record.String(dueString)
		} else {
			out["due_string_safe"] = record.Null()
		}
		out["due_date_pretty_safe"] = record.String(NoDueDatePretty)
		d.safeFields("due_date", time.Time{}, out)
		out["due_date_safe"] = record.Time(d.SafeDate)
		return
	}

	allDay := len(date) <= len("2006-01-02")
	out["due_date"] = record.String(date)
	out["due_string"] = record.String(dueString)
	out["due_string_safe"] = record.String(dueString)
	out["date_string"] = record.String(dueString)
	out["due_is_recurring"] = out["is_recurring"]
	out["is_allday"] = record.Bool(allDay)

	tz, _ := due.Index("timezone").AsString()
	dt, err := d.parseDue(date, tz, allDay)
	if err != nil {
		out["due_date_pretty_safe"] = record.String(NoDueDatePretty)
		d.safeFields("due_date", time.Time{}, out)
		out["due_date_safe"] = record.Time(d.SafeDate)
		return
	}
	out["due_date_dt"] = record.Time(dt)
	out["due_date_iso"] = record.String(dt.Format(ISOLayout))
	if allDay {
		out["due_date_pretty_safe"] = record.String(dt.Format(PrettyDateLayout))
	} else {
		out["due_date_pretty_safe"] = record.String(dt.Format(PrettyLayout))
	}
	d.safeFields("due_date", dt, out)
	out["due_date_safe"] = record.Time(dt)
}

// parseDue interprets a due date. All-day dates end at 23:59:59. Floating
// times are read in the due timezone when one is set, otherwise locally.
func (d *Deriver) parseDue(date, tz string, allDay bool) (time.Time, error) {
	if allDay {
		t, err := time.ParseInLocation("2006-01-02", date, d.Location)
		if err != nil {
			return time.Time{}, err
		}
		y, m, day := t.Date()
		return time.Date(y, m, day, 23, 59, 59, 0, d.Location), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, date); err == nil {
		return t.In(d.Location), nil
	}
	loc := d.Location
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	t, err := record.ParseTime(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(d.Location), nil
}

func (d *Deriver) dateFields(r *record.Record, out map[string]record.Value) {
	for _, key := range DateKeys {
		var t time.Time
		switch v := r.Get(key); v.Kind() {
		case record.KindTime:
			t, _ = v.AsTime()
		case record.KindString:
			s, _ := v.AsString()
			if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
				t = parsed
			} else if parsed, err := record.ParseTime(s, time.UTC); err == nil {
				t = parsed
			}
		}
		if !t.IsZero() {
			t = t.In(d.Location)
			out[key+"_dt"] = record.Time(t)
			out[key+"_iso"] = record.String(t.Format(ISOLayout))
		}
		d.safeFields(key, t, out)
	}
}

func (d *Deriver) safeFields(key string, t time.Time, out map[string]record.Value) {
	if t.IsZero() {
		t = d.SafeDate
	}
	out[key+"_safe_dt"] = record.Time(t)
	out[key+"_safe_iso"] = record.String(t.Format(ISOLayout))
}

func (d *Deriver) statusFields(r *record.Record, out map[string]record.Value) {
	if r.Get("checked").Truthy() {
		out["checked_str"] = record.String("[x]")
	} else {
		out["checked_str"] = record.String("[ ]")
	}
	out["priority_str"] = record.String(PriorityString(Priority(r)))
}

func projectFields(r *record.Record, projects map[string]map[string]any, out map[string]record.Value) {
	project, ok := projects[r.Get("project_id").String()]
	if !ok {
		out["project_name"] = record.String(ProjectNA)
		return
	}
	for k, v := range project {
		out["project_"+k] = record.FromAny(v)
	}
}

func (d *Deriver) labelFields(r *record.Record, labels map[string]string, out map[string]record.Value) {
	items, _ := r.Get("labels").AsList()
	names := make([]string, 0, len(items))
	for _, item := range items {
		key := item.String()
		if name, ok := labels[key]; ok {
			names = append(names, name)
		} else {
			names = append(names, key)
		}
	}
	formatted := make([]string, len(names))
	for i, name := range names {
		formatted[i] = d.LabelPrefix + name
	}
	out["label_names"] = record.Strings(names...)
	out["labels_str"] = record.String(strings.Join(formatted, d.LabelSep))
}

var (
	labelRe = regexp.MustCompile(`@\w+`)
	propsRe = regexp.MustCompile(`\{((?:\w+:\s?[^,}]+,?\s?)*)\}`)
	propKV  = regexp.MustCompile(`(\w+):\s?([^,]+),?\s?`)
)

func contentFields(r *record.Record, out map[string]record.Value) {
	content := r.Content()
	labels := labelRe.FindAllString(content, -1)
	props := map[string]record.Value{}
	if m := propsRe.FindStringSubmatch(content); m != nil {
		for _, kv := range propKV.FindAllStringSubmatch(m[1], -1) {
			props[kv[1]] = record.String(strings.TrimSpace(kv[2]))
		}
	}
	cleaned := labelRe.ReplaceAllString(content, "")
	cleaned = propsRe.ReplaceAllString(cleaned, "")
	out["ext_labels"] = record.Strings(labels...)
	out["ext_props"] = record.Map(props)
	out["cleaned"] = record.String(strings.TrimSpace(cleaned))
}

// IsRecurring reports whether a task repeats: the due is_recurring flag
// when present, otherwise whether its due string mentions "every".
func IsRecurring(r *record.Record) bool {
	due := r.Get("due")
	if b, ok := due.Index("is_recurring").AsBool(); ok {
		return b
	}
	for _, s := range []record.Value{r.Get("date_string"), r.Get("due_string"), due.Index("string")} {
		if str, ok := s.AsString(); ok && str != "" {
			return strings.Contains(str, "every")
		}
	}
	return false
}

// Priority returns the raw priority of a task, 1 when unset.
func Priority(r *record.Record) int64 {
	switch v := r.Get("priority"); v.Kind() {
	case record.KindInt:
		i, _ := v.AsInt()
		return i
	case record.KindFloat:
		f, _ := v.AsFloat()
		return int64(f)
	}
	return 1
}

// PriorityString maps a raw priority to its display label. The scale is
// inverted: raw 4 is "p1" and raw 1 is "p4".
func PriorityString(p int64) string {
	return fmt.Sprintf("p%d", 5-p)
}

// ParsePriority accepts either a raw priority "1".."4" or a label
// "p1".."p4" and returns the raw value.
func ParsePriority(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "p1":
		return 4, nil
	case "p2":
		return 3, nil
	case "p3":
		return 2, nil
	case "p4":
		return 1, nil
	case "1", "2", "3", "4":
		return int64(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("priority must be 1-4 or p1-p4, got %q", s)
}

func indexByID(items []map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(items))
	for _, item := range items {
		out[record.FromAny(item["id"]).String()] = item
	}
	return out
}

// indexLabels maps both label ids and names to names, since tasks may
// reference labels either way.
func indexLabels(items []map[string]any) map[string]string {
	out := make(map[string]string, 2*len(items))
	for _, item := range items {
		name := record.FromAny(item["name"]).String()
		out[name] = name
		out[record.FromAny(item["id"]).String()] = name
	}
	return out
}
