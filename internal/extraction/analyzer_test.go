package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// stubRule always proposes the same candidate.
type stubRule struct {
	c Candidate
}

func (r stubRule) Field() FieldKey                   { return r.c.Field }
func (r stubRule) Evaluate(string) (Candidate, bool) { return r.c, true }

func newTestAnalyzer(t *testing.T, e *anchorEmbedder, opts ...Option) *Analyzer {
	t.Helper()
	m, err := NewSemanticMatcher(e, newTestIndex(t, e), DefaultSimilarityThreshold)
	require.NoError(t, err)
	return NewAnalyzer(m, opts...)
}

func resultMap(a *Analysis) map[FieldKey]Result {
	out := make(map[FieldKey]Result, len(a.Results))
	for _, r := range a.Results {
		out[r.Field] = r
	}
	return out
}

func TestAnalyzer_VitalsScenario(t *testing.T) {
	a := newTestAnalyzer(t, newAnchorEmbedder())

	got, err := a.Analyze(context.Background(),
		"Paciente de 45 años, sexo femenino, FC 88, FR 18, temperatura 37.2, saturación 96%")
	require.NoError(t, err)

	want := map[FieldKey]string{
		FieldEdad: "45",
		FieldSexo: "Femenino",
		FieldFC:   "88",
		FieldFR:   "18",
		FieldTemp: "37.2",
		FieldSat:  "96",
	}
	results := resultMap(got)
	for field, value := range want {
		r, ok := results[field]
		require.True(t, ok, "missing %s", field)
		assert.Equal(t, value, r.Value, field)
		assert.GreaterOrEqual(t, r.Score, 0.98)
		assert.LessOrEqual(t, r.Score, 0.99)
	}
	assert.NotContains(t, results, FieldTA)
	assert.NotContains(t, results, FieldPeso)
}

func TestAnalyzer_MuscleScenario(t *testing.T) {
	a := newTestAnalyzer(t, newAnchorEmbedder())

	got, err := a.Analyze(context.Background(), "deltoides 4/5, bíceps 3 de 5")
	require.NoError(t, err)

	results := resultMap(got)
	assert.Equal(t, Result{Field: FieldDeltoides, Value: "4/5", Score: 0.99}, results[FieldDeltoides])
	assert.Equal(t, Result{Field: FieldBiceps, Value: "3/5", Score: 0.99}, results[FieldBiceps])
}

func TestAnalyzer_NeuroScenario(t *testing.T) {
	const note = "pupilas isocóricas y reactivas, marcha estable"
	a := newTestAnalyzer(t, newAnchorEmbedder().note(note, FieldPupilas, FieldMarcha))

	got, err := a.Analyze(context.Background(), note)
	require.NoError(t, err)

	results := resultMap(got)
	require.Contains(t, results, FieldPupilas)
	require.Contains(t, results, FieldMarcha)
	assert.Equal(t, "Isocóricas y reactivas", results[FieldPupilas].Value)
	assert.Equal(t, "Estable", results[FieldMarcha].Value)
	assert.Greater(t, results[FieldPupilas].Score, 0.58)
	assert.Greater(t, results[FieldMarcha].Score, 0.58)
	assert.Equal(t, 0.707, results[FieldMarcha].Score)
	assert.NotContains(t, results, FieldTA)
	assert.NotContains(t, results, FieldPeso)
	assert.Len(t, results, 2)
}

func TestAnalyzer_Saturation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "92%", want: "92"},
		{text: "79%", want: ""},
		{text: "101%", want: ""},
	}

	a := newTestAnalyzer(t, newAnchorEmbedder())
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := a.Analyze(context.Background(), tt.text)
			require.NoError(t, err)
			r, ok := resultMap(got)[FieldSat]
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, r.Value)
		})
	}
}

func TestAnalyzer_SpokenDecimal(t *testing.T) {
	a := newTestAnalyzer(t, newAnchorEmbedder())

	for _, text := range []string{"temperatura 37 punto 2", "temperatura 37 coma 2"} {
		got, err := a.Analyze(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, "37.2", resultMap(got)[FieldTemp].Value, text)
	}
}

func TestAnalyzer_EmptyInput(t *testing.T) {
	e := newAnchorEmbedder()
	a := newTestAnalyzer(t, e)

	for _, text := range []string{"", "   "} {
		got, err := a.Analyze(context.Background(), text)
		require.NoError(t, err)
		require.NotNil(t, got.Results)
		assert.Empty(t, got.Results)

		raw, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"results":[]}`, string(raw))
	}
	assert.Equal(t, 0, e.queries)
}

func TestAnalyzer_NoDuplicateFields(t *testing.T) {
	a := newTestAnalyzer(t, newAnchorEmbedder())

	got, err := a.Analyze(context.Background(), "ta 120/80, luego ta 130/85, fc 80, fc 90, 95%, 97%")
	require.NoError(t, err)

	seen := make(map[FieldKey]bool)
	for _, r := range got.Results {
		assert.False(t, seen[r.Field], "duplicate %s", r.Field)
		seen[r.Field] = true
	}
	assert.Equal(t, "120/80", resultMap(got)[FieldTA].Value)
}

func TestAnalyzer_ConflictResolution(t *testing.T) {
	low := stubRule{c: Candidate{Field: FieldPeso, Value: "70", Score: 0.5}}
	high := stubRule{c: Candidate{Field: FieldPeso, Value: "72", Score: 0.9}}

	for name, rules := range map[string][]Rule{
		"low first":  {low, high},
		"high first": {high, low},
	} {
		t.Run(name, func(t *testing.T) {
			a := NewAnalyzer(nil, WithRules(rules...))
			got, err := a.Analyze(context.Background(), "peso")
			require.NoError(t, err)
			require.Len(t, got.Results, 1)
			assert.Equal(t, "72", got.Results[0].Value)
			assert.Equal(t, 0.9, got.Results[0].Score)
		})
	}
}

func TestAnalyzer_OrderFollowsRules(t *testing.T) {
	a := newTestAnalyzer(t, newAnchorEmbedder())

	got, err := a.Analyze(context.Background(), "saturación 96%, ta 120/80, varón de 60 años, tibial anterior 4/5")
	require.NoError(t, err)

	var fields []FieldKey
	for _, r := range got.Results {
		fields = append(fields, r.Field)
	}
	assert.Equal(t, []FieldKey{FieldEdad, FieldSexo, FieldTA, FieldSat, FieldTibialAnt}, fields)
}

func TestAnalyzer_SemanticFailure(t *testing.T) {
	e := newAnchorEmbedder()
	a := newTestAnalyzer(t, e)
	e.err = errors.New("connection refused")

	got, err := a.Analyze(context.Background(), "fc 80")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrSemanticMatch)
}

func TestAnalyzer_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics := NewMetricsWithMeter(provider.Meter("test"), nil)

	a := newTestAnalyzer(t, newAnchorEmbedder(), WithMetrics(metrics))
	_, err := a.Analyze(context.Background(), "fc 80, fr 16")
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "notaclin.analysis.extractions_total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total)
			}
		}
	}
	assert.True(t, found["notaclin.analysis.duration_seconds"])
	assert.True(t, found["notaclin.analysis.extractions_total"])
}
