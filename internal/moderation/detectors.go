package moderation

import (
	"regexp"
	"strings"
)

// Detector classes reported in Decision.Detail for personal_data verdicts.
const (
	DetectEmail    = "email"
	DetectPhone    = "phone"
	DetectURL      = "url"
	DetectHandle   = "handle"
	DetectDocument = "document"
)

var (
	emailRegex = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

	// a bare run of 7+ digits, or grouped digits that look like a phone:
	// "+54 11 5555-1234", "(011) 5555 1234" or "11 5555-1234". Groups split
	// only by spaces need the country prefix, so "2018 2019 2020" is not one.
	phoneRegex = regexp.MustCompile(`\b\d{7,}\b` +
		`|\+\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{3,4}[\s.-]?\d{4}\b` +
		`|\(\d{2,4}\)\s?\d{3,4}[\s.-]?\d{4}\b` +
		`|\b\d{2,4}[\s.-]\d{3,4}[.-]\d{4}\b`)

	urlRegex = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|info|io|ly|ar|app|xyz|link|gg|tv)(?:\.[a-z]{2})?\b(?:/\S*)?`)

	handleRegex = regexp.MustCompile(`@\w{3,}`)
)

type detector struct {
	class string
	match func(text, folded string) bool
}

func regexDetector(class string, re *regexp.Regexp) detector {
	return detector{
		class: class,
		match: func(text, _ string) bool { return re.MatchString(text) },
	}
}

// phraseDetector matches any of the phrases as whole tokens in the folded
// text, so "dni" hits "mi DNI es" but not "dnissimo".
func phraseDetector(class string, phrases []string) detector {
	folded := foldAll(phrases)
	return detector{
		class: class,
		match: func(_, text string) bool { return containsAny(text, folded) },
	}
}

// buildDetectors returns the PII detectors in evaluation order. Email runs
// before handle so "a@b.com" is reported as an email, not a handle.
func buildDetectors(r Rules) []detector {
	return []detector{
		regexDetector(DetectEmail, emailRegex),
		regexDetector(DetectPhone, phoneRegex),
		regexDetector(DetectURL, urlRegex),
		regexDetector(DetectHandle, handleRegex),
		phraseDetector(DetectDocument, r.DocumentKeywords),
	}
}

func foldAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if f := fold(p); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// foldTerms folds phrases without the token padding, for substring matching.
func foldTerms(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if f := strings.TrimSpace(fold(p)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func containsAny(folded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}
