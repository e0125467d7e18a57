package moderation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// fold lower-cases text, strips accents and punctuation, and collapses it to
// single-space separated tokens wrapped in spaces: " te voy a matar ".
// Wrapping lets callers match whole-token phrases with strings.Contains.
func fold(text string) string {
	// transformers carry state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	out, _, err := transform.String(t, bare)
	if err != nil {
		out = bare
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}
