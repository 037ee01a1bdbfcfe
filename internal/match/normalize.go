// Package match implements the athlete identity matcher: name
// normalization, levenshtein ratio scoring, blocking-key candidate
// indexes, the staged cross-source matcher, and the manual review queue.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameCorrections maps known provider misspellings and nicknames to the
// canonical form used for comparison. Applied to the raw display name
// before normalization.
var nameCorrections = map[string]string{
	"Coraline Foveau":    "Coco Foveau",
	"Justyna A. Sniady":  "Justyna Snaidy",
	"Michael Friedl (M)": "Mike Friedl (sr)",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// stripDiacritics removes combining marks after NFD decomposition.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CorrectName applies the manual alias-correction table. Names not in the
// table pass through unchanged.
func CorrectName(name string) string {
	if canonical, ok := nameCorrections[strings.TrimSpace(name)]; ok {
		return canonical
	}
	return name
}

// Normalize canonicalizes a display name for comparison: alias correction,
// diacritic folding, uppercase, punctuation stripped, whitespace collapsed.
// Empty input normalizes to "" and never yields a match.
func Normalize(name string) string {
	name = CorrectName(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(stripDiacritics, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"(", "",
		")", "",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeCompact normalizes and then removes all spaces. Heat score rows
// print surnames without consistent spacing, so surname comparison runs on
// the compact form.
func NormalizeCompact(name string) string {
	return strings.ReplaceAll(Normalize(name), " ", "")
}

// Surname returns the last whitespace-delimited token of a display name,
// the convention PWA uses when constructing composite heat keys.
func Surname(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
