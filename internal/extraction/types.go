package extraction

import (
	"context"
)

// FieldKey identifies one extractable clinical concept.
type FieldKey string

// Quantitative and categorical fields.
const (
	FieldEdad  FieldKey = "edad"
	FieldSexo  FieldKey = "sexo"
	FieldPeso  FieldKey = "peso"
	FieldTalla FieldKey = "talla"
	FieldTA    FieldKey = "ta"
	FieldFC    FieldKey = "fc"
	FieldFR    FieldKey = "fr"
	FieldTemp  FieldKey = "temp"
	FieldSat   FieldKey = "sat"
)

// Muscle-strength fields.
const (
	FieldDeltoides  FieldKey = "deltoides"
	FieldBiceps     FieldKey = "biceps"
	FieldTriceps    FieldKey = "triceps"
	FieldExtMuneca  FieldKey = "ext-muneca"
	FieldInteroseos FieldKey = "interoseos"
	FieldPsoas      FieldKey = "psoas"
	FieldCuadriceps FieldKey = "cuadriceps"
	FieldTibialAnt  FieldKey = "tibial-ant"
	FieldGemelos    FieldKey = "gemelos"
	FieldExtHallux  FieldKey = "ext-hallux"
)

// Qualitative neurological fields.
const (
	FieldPupilas FieldKey = "pupilas"
	FieldPares   FieldKey = "pares"
	FieldTono    FieldKey = "tono"
	FieldSensi   FieldKey = "sensi"
	FieldCoord   FieldKey = "coord"
	FieldMarcha  FieldKey = "marcha"
	FieldMening  FieldKey = "mening"
)

// Family groups field keys by how they are detected.
type Family string

const (
	// FamilyVital covers vital signs and demographics found by pattern rules.
	FamilyVital Family = "vital"
	// FamilyMuscle covers muscle groups graded on the 0-5 scale.
	FamilyMuscle Family = "muscle"
	// FamilyNeuro covers qualitative neurological findings found by similarity.
	FamilyNeuro Family = "neuro"
)

// Candidate is a proposed extraction before conflict resolution.
type Candidate struct {
	Field FieldKey
	Value string
	Score float64
}

// Result is one rendered record of an analysis.
type Result struct {
	Field FieldKey `json:"field"`
	Value string   `json:"value"`
	Score float64  `json:"score"`
}

// Analysis is the outcome of analyzing one note.
type Analysis struct {
	Results []Result `json:"results"`
}

// Rule evaluates one field against normalized text.
type Rule interface {
	// Field returns the field this rule produces.
	Field() FieldKey

	// Evaluate returns a candidate when the rule matches.
	Evaluate(normalized string) (Candidate, bool)
}

// NoteAnalyzer is implemented by Analyzer and consumed by the transports.
type NoteAnalyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}
