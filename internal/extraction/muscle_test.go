package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func muscleRuleFor(t *testing.T, field FieldKey) Rule {
	t.Helper()
	for _, r := range MuscleRules() {
		if r.Field() == field {
			return r
		}
	}
	t.Fatalf("no muscle rule for %s", field)
	return nil
}

func TestMuscleRules_CoverCatalog(t *testing.T) {
	var want []FieldKey
	for _, spec := range Fields() {
		if spec.Family == FamilyMuscle {
			want = append(want, spec.Key)
		}
	}
	var got []FieldKey
	for _, r := range MuscleRules() {
		got = append(got, r.Field())
	}
	assert.Equal(t, want, got)
}

func TestMuscleRules_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		field     FieldKey
		text      string
		wantValue string
		wantMatch bool
	}{
		{name: "name before grade", field: FieldDeltoides, text: "deltoides 4/5", wantValue: "4/5", wantMatch: true},
		{name: "singular variant", field: FieldDeltoides, text: "deltoide derecho 3/5", wantValue: "3/5", wantMatch: true},
		{name: "de separator", field: FieldBiceps, text: "bíceps 3 de 5", wantValue: "3/5", wantMatch: true},
		{name: "grade before name", field: FieldBiceps, text: "fuerza 5/5 biceps", wantValue: "5/5", wantMatch: true},
		{name: "case insensitive", field: FieldTriceps, text: "TRÍCEPS 4/5", wantValue: "4/5", wantMatch: true},
		{name: "wrist extensors", field: FieldExtMuneca, text: "extensores de muñeca 4 de 5", wantValue: "4/5", wantMatch: true},
		{name: "interossei", field: FieldInteroseos, text: "interóseos 5/5", wantValue: "5/5", wantMatch: true},
		{name: "psoas iliopsoas", field: FieldPsoas, text: "psoas/iliopsoas 3/5", wantValue: "3/5", wantMatch: true},
		{name: "iliopsoas alone", field: FieldPsoas, text: "iliopsoas 2/5", wantValue: "2/5", wantMatch: true},
		{name: "quadriceps", field: FieldCuadriceps, text: "cuádriceps 5 de 5", wantValue: "5/5", wantMatch: true},
		{name: "tibialis anterior", field: FieldTibialAnt, text: "tibial anterior 2/5", wantValue: "2/5", wantMatch: true},
		{name: "gastrocnemius soleus", field: FieldGemelos, text: "gastrocnemio-sóleo 5/5", wantValue: "5/5", wantMatch: true},
		{name: "hallux extensor", field: FieldExtHallux, text: "extensor del hallux 4/5", wantValue: "4/5", wantMatch: true},
		{name: "first pattern wins", field: FieldDeltoides, text: "deltoides 4/5, 3/5 deltoides", wantValue: "4/5", wantMatch: true},
		{name: "grade out of scale", field: FieldDeltoides, text: "deltoides 6/5", wantMatch: false},
		{name: "no grade", field: FieldDeltoides, text: "deltoides conservado", wantMatch: false},
		{name: "grade too far", field: FieldDeltoides, text: "deltoides sin alteraciones evidentes hoy 4/5", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := muscleRuleFor(t, tt.field).Evaluate(tt.text)
			require.Equal(t, tt.wantMatch, ok)
			if !tt.wantMatch {
				return
			}
			assert.Equal(t, tt.field, c.Field)
			assert.Equal(t, tt.wantValue, c.Value)
			assert.Equal(t, 0.99, c.Score)
		})
	}
}
