package extraction

import (
	"github.com/fyrsmithlabs/notaclin/internal/vectorstore"
)

// FieldSpec describes one entry of the field catalog.
type FieldSpec struct {
	Key    FieldKey `json:"field"`
	Family Family   `json:"family"`
	// Phrase is the descriptive phrase embedded as the field's anchor.
	Phrase string `json:"phrase,omitempty"`
	// Canonical is the value reported when a neuro field fires.
	Canonical string `json:"canonical,omitempty"`
}

// catalog is ordered: vital anchors are embedded before neuro anchors.
var catalog = []FieldSpec{
	{Key: FieldEdad, Family: FamilyVital, Phrase: "edad años paciente"},
	{Key: FieldSexo, Family: FamilyVital, Phrase: "sexo masculino femenino varón mujer"},
	{Key: FieldPeso, Family: FamilyVital, Phrase: "peso corporal kilogramos kilos"},
	{Key: FieldTalla, Family: FamilyVital, Phrase: "talla altura estatura centímetros metros"},
	{Key: FieldTA, Family: FamilyVital, Phrase: "tensión arterial presión arterial mmhg"},
	{Key: FieldFR, Family: FamilyVital, Phrase: "frecuencia respiratoria respiraciones por minuto"},
	{Key: FieldFC, Family: FamilyVital, Phrase: "frecuencia cardiaca pulso latidos por minuto"},
	{Key: FieldTemp, Family: FamilyVital, Phrase: "temperatura corporal fiebre grados celsius"},
	{Key: FieldSat, Family: FamilyVital, Phrase: "saturación de oxígeno spo2 porcentaje"},

	{Key: FieldDeltoides, Family: FamilyMuscle},
	{Key: FieldBiceps, Family: FamilyMuscle},
	{Key: FieldTriceps, Family: FamilyMuscle},
	{Key: FieldExtMuneca, Family: FamilyMuscle},
	{Key: FieldInteroseos, Family: FamilyMuscle},
	{Key: FieldPsoas, Family: FamilyMuscle},
	{Key: FieldCuadriceps, Family: FamilyMuscle},
	{Key: FieldTibialAnt, Family: FamilyMuscle},
	{Key: FieldGemelos, Family: FamilyMuscle},
	{Key: FieldExtHallux, Family: FamilyMuscle},

	{Key: FieldPupilas, Family: FamilyNeuro, Phrase: "pupilas reactivas isocóricas", Canonical: "Isocóricas y reactivas"},
	{Key: FieldPares, Family: FamilyNeuro, Phrase: "pares craneales conservados normales", Canonical: "Conservados"},
	{Key: FieldTono, Family: FamilyNeuro, Phrase: "tono y reflejos normales conservados", Canonical: "Normales"},
	{Key: FieldSensi, Family: FamilyNeuro, Phrase: "sensibilidad intacta conservada", Canonical: "Intacta"},
	{Key: FieldCoord, Family: FamilyNeuro, Phrase: "coordinación adecuada normal", Canonical: "Adecuada"},
	{Key: FieldMarcha, Family: FamilyNeuro, Phrase: "marcha estable normal", Canonical: "Estable"},
	{Key: FieldMening, Family: FamilyNeuro, Phrase: "signos meníngeos negativos", Canonical: "Negativos"},
}

// Fields returns a copy of the field catalog in declaration order.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for key.
func Lookup(key FieldKey) (FieldSpec, bool) {
	for _, spec := range catalog {
		if spec.Key == key {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Anchors returns the anchor phrases to embed at startup, vital fields
// first and neuro fields second, all meant for a single shared batch.
func Anchors() []vectorstore.Anchor {
	anchors := make([]vectorstore.Anchor, 0, len(catalog))
	for _, spec := range catalog {
		if spec.Phrase == "" {
			continue
		}
		anchors = append(anchors, vectorstore.Anchor{
			Key:    string(spec.Key),
			Family: string(spec.Family),
			Phrase: spec.Phrase,
		})
	}
	return anchors
}
