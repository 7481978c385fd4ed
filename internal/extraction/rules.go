package extraction

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Scores assigned by the pattern rules.
const (
	scoreDemographic = 0.99
	scoreVital       = 0.98
)

// Saturation values outside this range are discarded.
const (
	minSaturation = 80
	maxSaturation = 100
)

// matchTimeout bounds a single regex evaluation.
const matchTimeout = 250 * time.Millisecond

// renderFunc turns a match into a field value. An empty value means no candidate.
type renderFunc func(m *regexp2.Match) string

// alternative is one pattern of a rule and how to render its match.
type alternative struct {
	regex  *regexp2.Regexp
	render renderFunc
}

// patternRule tries its alternatives in order; the first match wins.
type patternRule struct {
	field        FieldKey
	score        float64
	alternatives []alternative
	accept       func(value string) bool
}

// Field implements Rule.
func (r *patternRule) Field() FieldKey {
	return r.field
}

// Evaluate implements Rule.
func (r *patternRule) Evaluate(normalized string) (Candidate, bool) {
	for _, alt := range r.alternatives {
		m, err := alt.regex.FindStringMatch(normalized)
		if err != nil || m == nil {
			continue
		}
		value := alt.render(m)
		if value == "" {
			return Candidate{}, false
		}
		if r.accept != nil && !r.accept(value) {
			return Candidate{}, false
		}
		return Candidate{Field: r.field, Value: value, Score: r.score}, true
	}
	return Candidate{}, false
}

func mustCompile(pattern string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = matchTimeout
	return re
}

func alt(pattern string, render renderFunc) alternative {
	return alternative{regex: mustCompile(pattern, regexp2.None), render: render}
}

// group renders capture group n as matched.
func group(n int) renderFunc {
	return func(m *regexp2.Match) string {
		return m.GroupByNumber(n).String()
	}
}

// decimal renders capture group n with a comma separator rewritten to a dot.
func decimal(n int) renderFunc {
	return func(m *regexp2.Match) string {
		return strings.ReplaceAll(m.GroupByNumber(n).String(), ",", ".")
	}
}

// pair renders groups a and b as "A/B".
func pair(a, b int) renderFunc {
	return func(m *regexp2.Match) string {
		return m.GroupByNumber(a).String() + "/" + m.GroupByNumber(b).String()
	}
}

// firstOf renders the first non-empty group among ns.
func firstOf(ns ...int) renderFunc {
	return func(m *regexp2.Match) string {
		for _, n := range ns {
			if v := m.GroupByNumber(n).String(); v != "" {
				return v
			}
		}
		return ""
	}
}

// fixed renders a constant value.
func fixed(v string) renderFunc {
	return func(*regexp2.Match) string {
		return v
	}
}

// saturationInRange accepts integer saturations within [80, 100].
func saturationInRange(value string) bool {
	n, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return n >= minSaturation && n <= maxSaturation
}

// VitalRules returns the vital-sign and demographic rules in evaluation order.
func VitalRules() []Rule {
	return []Rule{
		&patternRule{
			field: FieldEdad,
			score: scoreDemographic,
			alternatives: []alternative{
				alt(`(\d{1,3})\s*(?:años|año)\b`, group(1)),
			},
		},
		&patternRule{
			field: FieldSexo,
			score: scoreDemographic,
			alternatives: []alternative{
				alt(`\b(masculino|var[oó]n|hombre)\b`, fixed("Masculino")),
				alt(`\b(femenino|mujer)\b`, fixed("Femenino")),
			},
		},
		&patternRule{
			field: FieldPeso,
			score: scoreVital,
			alternatives: []alternative{
				alt(`\b(\d{2,3})\s*(?:kg|kilos|kilogramos)\b`, group(1)),
			},
		},
		// Centimetres first so "m" never steals a minute abbreviation.
		&patternRule{
			field: FieldTalla,
			score: scoreVital,
			alternatives: []alternative{
				alt(`\b(\d+(?:[.,]\d+)?)\s*(?:cm|cent[ií]metros)\b`, decimal(1)),
				alt(`\b(\d+(?:[.,]\d+)?)\s*(?:m|metros)\b`, decimal(1)),
			},
		},
		&patternRule{
			field: FieldTA,
			score: scoreVital,
			alternatives: []alternative{
				alt(`\b(\d{2,3})\s*(?:/|sobre|a)\s*(\d{2,3})\b`, pair(1, 2)),
			},
		},
		&patternRule{
			field: FieldFC,
			score: scoreVital,
			alternatives: []alternative{
				alt(`(?:\bfc\b|frecuencia\s*card[ií]aca)\s*(?:de\s*)?(\d{2,3})\b`, group(1)),
				alt(`\b(\d{2,3})\s*(?:latidos(?:\s*por\s*minuto)?|/min|lpm|minuto|card[ií]aca)\b`, group(1)),
			},
		},
		&patternRule{
			field: FieldFR,
			score: scoreVital,
			alternatives: []alternative{
				alt(`(?:\bfr\b|frecuencia\s*respiratoria)\s*(?:de\s*)?(\d{1,2})\b`, group(1)),
				alt(`\b(\d{1,2})\s*(?:resp(?:iraciones)?(?:\s*por\s*minuto)?|rpm|r/min|resp/min)\b`, group(1)),
			},
		},
		// A bare "c" counts as Celsius unless it starts "cm".
		&patternRule{
			field: FieldTemp,
			score: scoreVital,
			alternatives: []alternative{
				alt(`\b(\d{1,2}(?:[.,]\d)?)\s*(?:°\s*c|°(?!\s*[a-z])|grados?(?:\s*(?:cent[ií]grados?|c(?:el(?:sius)?)?))?|\bc\b(?!\s*m))\b`, decimal(1)),
				alt(`\btemp(?:eratura)?\s*(?:de\s*)?(\d{1,2}(?:[.,]\d)?)\b`, decimal(1)),
			},
		},
		&patternRule{
			field: FieldSat,
			score: scoreVital,
			alternatives: []alternative{
				alt(`saturaci[oó]n[^0-9%]{0,10}(\d{2,3})|(\d{2,3})\s*%(?:\s*(?:sato2|spo2)\b)?`, firstOf(1, 2)),
			},
			accept: saturationInRange,
		},
	}
}

// DefaultRules returns every pattern rule: vital signs first, muscle groups after.
func DefaultRules() []Rule {
	return append(VitalRules(), MuscleRules()...)
}

var _ Rule = (*patternRule)(nil)
