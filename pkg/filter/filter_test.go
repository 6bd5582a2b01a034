package filter

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskchain/taskchain/pkg/dates"
	"github.com/taskchain/taskchain/pkg/ops"
	"github.com/taskchain/taskchain/pkg/record"
)

func setupEvaluator(t *testing.T) (*Evaluator, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.TraceLevel)
	now := func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local) }
	return &Evaluator{
		Operators:  ops.Default(),
		Transforms: NewTransforms(dates.NewNaturalParser(), now),
		Log:        log,
	}, hook
}

func scenarioRecords() []*record.Record {
	r1 := record.New(map[string]any{"id": 1, "content": "Buy milk", "priority": 1})
	r1.Derived["label_names"] = record.Strings("Habit", "home")
	r2 := record.New(map[string]any{"id": 2, "content": "Ship report", "priority": 4, "due_date": "2024-01-01"})
	r2.Derived["label_names"] = record.Strings("work")
	return []*record.Record{r1, r2}
}

func ids(records []*record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func TestScenarioPriorityDefaultTransform(t *testing.T) {
	e, _ := setupEvaluator(t)
	spec, err := SpecFromArgs([]string{"priority", "ge", "2", "default", "1", "int"}, nil)
	require.NoError(t, err)

	got, err := e.Apply(scenarioRecords(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))
}

func TestScenarioContentStartswith(t *testing.T) {
	e, _ := setupEvaluator(t)
	got, err := e.Apply(scenarioRecords(), Spec{Key: "content", Op: "startswith", Value: record.String("Buy")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestScenarioBangNegatesLabelFilter(t *testing.T) {
	e, _ := setupEvaluator(t)
	got, err := e.Apply(scenarioRecords(), Spec{Key: "label_names", Op: "icontains", Value: record.String("!habit")})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))

	// Double negation composes.
	got, err = e.Apply(scenarioRecords(), Spec{Key: "label_names", Op: "icontains", Value: record.String("!habit"), Negate: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestCoercesValueToRecordKind(t *testing.T) {
	e, _ := setupEvaluator(t)
	got, err := e.Apply(scenarioRecords(), Spec{Key: "priority", Op: "eq", Value: record.String("4")})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))

	_, err = e.Apply(scenarioRecords(), Spec{Key: "priority", Op: "eq", Value: record.String("high")})
	var coerceErr *record.TypeCoercionError
	assert.ErrorAs(t, err, &coerceErr)
}

func TestComparesTimesInRecordZone(t *testing.T) {
	e, _ := setupEvaluator(t)
	hawaii := time.FixedZone("HST", -10*60*60)
	late := record.New(map[string]any{"id": 1})
	late.Derived["due_date_dt"] = record.Time(time.Date(2024, 1, 1, 20, 0, 0, 0, hawaii))
	next := record.New(map[string]any{"id": 2})
	next.Derived["due_date_dt"] = record.Time(time.Date(2024, 1, 2, 9, 0, 0, 0, hawaii))

	got, err := e.Apply([]*record.Record{late, next}, Spec{Key: "due_date_dt", Op: "lt", Value: record.String("2024-01-02")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got), "2024-01-02 is midnight in the zone of the record's time")
}

func TestMissingPolicies(t *testing.T) {
	e, _ := setupEvaluator(t)
	due := func(p Policy) Spec {
		return Spec{Key: "due_date", Op: "eq", Value: record.String("2024-01-01"), Missing: p}
	}

	got, err := e.Apply(scenarioRecords(), due(PolicyExclude))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))

	got, err = e.Apply(scenarioRecords(), due(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got), "exclude is the default")

	got, err = e.Apply(scenarioRecords(), due(PolicyInclude))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(got))

	_, err = e.Apply(scenarioRecords(), due(PolicyRaise))
	var missingErr *MissingAttributeError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "1", missingErr.RecordID)
	assert.Equal(t, "due_date", missingErr.Key)

	spec := due(PolicyDefault)
	spec.Default = record.String("2024-01-01")
	got, err = e.Apply(scenarioRecords(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(got))

	spec.Missing = "sometimes"
	_, err = e.Apply(scenarioRecords(), spec)
	var policyErr *InvalidPolicyError
	assert.ErrorAs(t, err, &policyErr)
}

func TestDefaultPolicyWithoutDefaultWarns(t *testing.T) {
	e, hook := setupEvaluator(t)
	spec := Spec{Key: "due_date", Op: "eq", Value: record.String("2024-01-01"), Missing: PolicyDefault, Default: record.String("_")}
	got, err := e.Apply(scenarioRecords(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))

	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestLeOnDateWarns(t *testing.T) {
	e, hook := setupEvaluator(t)
	_, err := e.Apply(scenarioRecords(), Spec{Key: "due_date", Op: "le", Value: record.String("2024-01-01")})
	require.NoError(t, err)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.WarnLevel, hook.AllEntries()[0].Level)
}

func TestUnknownOperatorAndTransform(t *testing.T) {
	e, _ := setupEvaluator(t)
	_, err := e.Apply(scenarioRecords(), Spec{Key: "content", Op: "frob", Value: record.String("x")})
	var opErr *ops.UnknownOperatorError
	assert.ErrorAs(t, err, &opErr)

	_, err = e.Apply(scenarioRecords(), Spec{Key: "content", Op: "eq", Value: record.String("x"), Transform: "eval"})
	var trErr *UnknownTransformError
	require.ErrorAs(t, err, &trErr)
	assert.Contains(t, trErr.Known, "int")

	_, err = e.Apply(scenarioRecords(), Spec{Key: "content", Op: "eq", Value: record.String("x"), Transform: "__None__"})
	assert.NoError(t, err)
}

func TestDateTransform(t *testing.T) {
	e, _ := setupEvaluator(t)
	r := record.New(map[string]any{"id": 3, "content": "c"})
	r.Derived["due_date_dt"] = record.Time(time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local))

	got, err := e.Apply([]*record.Record{r}, Spec{Key: "due_date_dt", Op: "lt", Value: record.String("tomorrow"), Transform: "date"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = e.Apply([]*record.Record{r}, Spec{Key: "due_date_dt", Op: "lt", Value: record.String("today"), Transform: "date"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestExcludeAndIncludeProperties(t *testing.T) {
	e, _ := setupEvaluator(t)
	records := scenarioRecords()
	records = append(records, record.New(map[string]any{"id": 3, "content": "Buy bread", "priority": 2}))
	fn, err := ops.Default().Lookup("istartswith")
	require.NoError(t, err)

	for _, negate := range []bool{false, true} {
		spec := Spec{Key: "due_date", Op: "istartswith", Value: record.String("2024"), Negate: negate}

		excluded, err := e.Apply(records, spec)
		require.NoError(t, err)
		for _, r := range excluded {
			v := r.Resolve("due_date")
			assert.False(t, v.IsNull())
			assert.NotEqual(t, negate, fn(v, record.String("2024")))
		}

		spec.Missing = PolicyInclude
		included, err := e.Apply(records, spec)
		require.NoError(t, err)
		for _, r := range records {
			v := r.Resolve("due_date")
			want := v.IsNull() || fn(v, record.String("2024")) != negate
			assert.Equal(t, want, containsRecord(included, r))
		}
	}
}

func TestNegatePartitionsExcludeSet(t *testing.T) {
	e, _ := setupEvaluator(t)
	records := scenarioRecords()
	spec := Spec{Key: "content", Op: "icontains", Value: record.String("milk")}

	pos, err := e.Apply(records, spec)
	require.NoError(t, err)
	spec.Negate = true
	neg, err := e.Apply(records, spec)
	require.NoError(t, err)

	assert.Len(t, append(pos, neg...), len(records))
	for _, r := range pos {
		assert.False(t, containsRecord(neg, r))
	}
}

func TestApplyDoesNotMutateRecords(t *testing.T) {
	e, _ := setupEvaluator(t)
	records := scenarioRecords()
	before := records[0].Get("priority")
	_, err := e.Apply(records, Spec{Key: "priority", Op: "eq", Value: record.String("1")})
	require.NoError(t, err)
	assert.Equal(t, before, records[0].Get("priority"))
	assert.Equal(t, record.KindInt, records[0].Get("priority").Kind())
}

func containsRecord(records []*record.Record, r *record.Record) bool {
	for _, x := range records {
		if x == r {
			return true
		}
	}
	return false
}

func TestSpecFromArgs(t *testing.T) {
	spec, err := SpecFromArgs(
		[]string{"content", "iglob", "*milk*"},
		map[string]string{"missing": "include", "value_transform": "lower", "negate": "true"},
	)
	require.NoError(t, err)
	assert.Equal(t, PolicyInclude, spec.Missing)
	assert.Equal(t, "lower", spec.Transform)
	assert.True(t, spec.Negate)
	assert.True(t, spec.Default.IsNull())

	spec, err = SpecFromArgs([]string{"priority", "ge", "2", "default", "1", "int", "_"}, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyDefault, spec.Missing)
	assert.Equal(t, "1", spec.Default.String())
	assert.False(t, spec.Negate)

	_, err = SpecFromArgs([]string{"content", "eq"}, nil)
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)

	_, err = SpecFromArgs([]string{"content", "eq", "x"}, map[string]string{"bogus": "1"})
	assert.ErrorAs(t, err, &usage)
}

func TestParseNegate(t *testing.T) {
	for _, s := range []string{"", "false", "0", "_", "__None__", "False"} {
		assert.False(t, ParseNegate(s), s)
	}
	for _, s := range []string{"true", "1", "yes", "negate"} {
		assert.True(t, ParseNegate(s), s)
	}
}
