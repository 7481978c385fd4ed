// Package normalize rewrites clinical free text into the canonical form the
// extraction rules are written against.
package normalize

import (
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// spokenDecimal matches "37 punto 2" and "37 coma 2".
	spokenDecimal = regexp2.MustCompile(`(\d+)\s*(?:punto|coma)\s*(\d+)`, regexp2.None)

	whitespace = regexp2.MustCompile(`\s+`, regexp2.None)

	lower = cases.Lower(language.Spanish)
)

// Normalize lowercases text, rewrites spoken decimal separators to a dot,
// unifies "centigrados" to its accented spelling and collapses whitespace.
//
// Normalize never fails and is idempotent: Normalize(Normalize(t)) == Normalize(t).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := norm.NFC.String(lower.String(text))
	t = rewriteDecimals(t)
	t = strings.ReplaceAll(t, "centigrados", "centígrados")
	t = replaceAll(whitespace, t, " ")
	return strings.TrimSpace(t)
}

// rewriteDecimals applies the spoken-decimal rewrite until it reaches a fixed
// point, so chains like "1 punto 2 punto 3" settle in a single call.
func rewriteDecimals(t string) string {
	for {
		next := replaceAll(spokenDecimal, t, "$1.$2")
		if next == t {
			return t
		}
		t = next
	}
}

// replaceAll returns t unchanged when the engine reports an error.
func replaceAll(re *regexp2.Regexp, t, repl string) string {
	out, err := re.Replace(t, repl, -1, -1)
	if err != nil {
		return t
	}
	return out
}
