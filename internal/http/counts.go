package http

import (
	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

// AnchorCounter reports how many anchors are indexed per family.
type AnchorCounter interface {
	Families() map[string]int
}

// countFields counts the catalog entries per family.
func countFields(specs []extraction.FieldSpec) map[string]int {
	counts := make(map[string]int, 3)
	for _, spec := range specs {
		counts[string(spec.Family)]++
	}
	return counts
}

// countAnchors returns nil when no index is configured.
func countAnchors(index AnchorCounter) map[string]int {
	if index == nil {
		return nil
	}
	return index.Families()
}
