package extraction

import (
	"math"
)

// ResultSet keeps the best candidate per field for a single analysis.
//
// A ResultSet is request-local and not safe for concurrent use.
type ResultSet struct {
	order   []FieldKey
	entries map[FieldKey]Candidate
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{entries: make(map[FieldKey]Candidate)}
}

// Submit offers a candidate. Empty values are ignored. The candidate replaces
// the stored one only when its rounded score is strictly greater, so ties
// keep the first writer. A field keeps the position of its first submission.
// Submit reports whether the candidate was stored.
func (rs *ResultSet) Submit(c Candidate) bool {
	if c.Value == "" {
		return false
	}
	c.Score = roundScore(c.Score)
	cur, ok := rs.entries[c.Field]
	if ok && !(c.Score > cur.Score) {
		return false
	}
	if !ok {
		rs.order = append(rs.order, c.Field)
	}
	rs.entries[c.Field] = c
	return true
}

// Get returns the stored candidate for field.
func (rs *ResultSet) Get(field FieldKey) (Candidate, bool) {
	c, ok := rs.entries[field]
	return c, ok
}

// Len returns the number of fields stored.
func (rs *ResultSet) Len() int {
	return len(rs.order)
}

// Results renders the stored candidates in first-submission order.
// The returned slice is never nil.
func (rs *ResultSet) Results() []Result {
	out := make([]Result, 0, len(rs.order))
	for _, field := range rs.order {
		c := rs.entries[field]
		out = append(out, Result{Field: c.Field, Value: c.Value, Score: c.Score})
	}
	return out
}

// roundScore rounds to three decimals.
func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
