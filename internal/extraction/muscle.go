package extraction

import (
	"strings"

	"github.com/dlclark/regexp2"
)

const scoreMuscle = 0.99

// gradeScale matches "4/5", "4 / 5" and "4 de 5".
const gradeScale = `(?<a>[0-5])\s*(?:/|de)\s*(?<b>[0-5])`

// muscleGroup lists the spellings accepted for one muscle group.
type muscleGroup struct {
	field    FieldKey
	variants []string
}

var muscleGroups = []muscleGroup{
	{field: FieldDeltoides, variants: []string{`deltoides?`}},
	{field: FieldBiceps, variants: []string{`b[ií]ceps`}},
	{field: FieldTriceps, variants: []string{`tr[ií]ceps`}},
	{field: FieldExtMuneca, variants: []string{`extensores?\s+de\s+muñeca`}},
	{field: FieldInteroseos, variants: []string{`inter[oó]seos`}},
	{field: FieldPsoas, variants: []string{`psoas(?:/|\s*)?iliopsoas`, `iliopsoas`, `psoas`}},
	{field: FieldCuadriceps, variants: []string{`cu[aá]driceps`}},
	{field: FieldTibialAnt, variants: []string{`tibial\s+anterior`}},
	{field: FieldGemelos, variants: []string{`(?:gastrocnemio(?:-|\s*)s[oó]leo|gemelos|s[oó]leo)`}},
	{field: FieldExtHallux, variants: []string{`extensor\s+del\s+hallux`}},
}

// musclePatterns builds the name-before-grade and grade-before-name patterns
// for a union of name variants.
func musclePatterns(variants []string) []string {
	union := `(?:` + strings.Join(variants, "|") + `)`
	return []string{
		`\b` + union + `\b[^\d]{0,20}` + gradeScale,
		gradeScale + `[^\w]{0,20}\b` + union + `\b`,
	}
}

// muscleRule grades one muscle group. The first pattern that matches wins;
// later patterns are not consulted for a possibly different grade.
type muscleRule struct {
	field    FieldKey
	patterns []*regexp2.Regexp
}

func newMuscleRule(g muscleGroup) *muscleRule {
	sources := musclePatterns(g.variants)
	patterns := make([]*regexp2.Regexp, 0, len(sources))
	for _, src := range sources {
		patterns = append(patterns, mustCompile(src, regexp2.IgnoreCase))
	}
	return &muscleRule{field: g.field, patterns: patterns}
}

// Field implements Rule.
func (r *muscleRule) Field() FieldKey {
	return r.field
}

// Evaluate implements Rule.
func (r *muscleRule) Evaluate(normalized string) (Candidate, bool) {
	for _, re := range r.patterns {
		m, err := re.FindStringMatch(normalized)
		if err != nil || m == nil {
			continue
		}
		grade := m.GroupByName("a").String() + "/" + m.GroupByName("b").String()
		return Candidate{Field: r.field, Value: grade, Score: scoreMuscle}, true
	}
	return Candidate{}, false
}

// MuscleRules returns one rule per muscle group in declaration order.
func MuscleRules() []Rule {
	rules := make([]Rule, 0, len(muscleGroups))
	for _, g := range muscleGroups {
		rules = append(rules, newMuscleRule(g))
	}
	return rules
}

var _ Rule = (*muscleRule)(nil)
