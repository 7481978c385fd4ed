// Package extraction turns a free-text clinical note into a sparse, ordered
// set of field/value/score records.
//
// Three detectors feed one aggregator:
//   - pattern rules for demographics and vital signs (edad, sexo, peso,
//     talla, ta, fc, fr, temp, sat), evaluated over normalized text
//   - muscle rules grading ten muscle groups on the 0-5 scale
//   - a SemanticMatcher that fires qualitative neurological findings when the
//     note is close enough to an anchor phrase
//
// Every detector emits Candidates into a ResultSet, which keeps the highest
// score per field and renders fields in the order they were first seen.
//
// # Usage
//
//	matcher, err := extraction.NewSemanticMatcher(embedder, index, extraction.DefaultSimilarityThreshold)
//	if err != nil {
//	    return err
//	}
//	analyzer := extraction.NewAnalyzer(matcher, extraction.WithLogger(logger))
//	analysis, err := analyzer.Analyze(ctx, "paciente de 45 años, TA 120/80, saturación 96%")
//
// Rules are first-class values; WithRules swaps the rule set, which is how
// tests exercise the aggregator in isolation.
package extraction
