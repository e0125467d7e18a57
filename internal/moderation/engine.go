// Package moderation decides whether a piece of anonymous text may be
// stored. Deterministic rules run first (length, personal data, denylist);
// whatever survives them goes to an external Classifier. The engine has no
// side effects besides logging and metrics and is safe for concurrent use.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	. "github.com/sujalbistaa/murmur/internal/log"
)

type Engine struct {
	rules      Rules
	classifier Classifier
	detectors  []detector
	denylist   []string
	allowlist  []string
	severe     map[string]bool
}

func NewEngine(rules Rules, classifier Classifier) *Engine {
	severe := make(map[string]bool, len(rules.SevereCategories))
	for _, c := range rules.SevereCategories {
		severe[c] = true
	}
	return &Engine{
		rules:      rules,
		classifier: classifier,
		detectors:  buildDetectors(rules),
		denylist:   foldTerms(rules.Denylist),
		allowlist:  foldTerms(rules.Allowlist),
		severe:     severe,
	}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// Classify runs the pipeline and stops at the first hard verdict.
func (e *Engine) Classify(ctx context.Context, kind Kind, text string) Decision {
	d := e.classify(ctx, kind, strings.TrimSpace(text))
	decisionCount.WithLabelValues(kind.String(), string(d.Severity), d.Reason).Inc()
	return d
}

func (e *Engine) classify(ctx context.Context, kind Kind, text string) Decision {
	lo, hi := e.rules.bounds(kind)
	n := utf8.RuneCountInString(text)
	if n < lo {
		return hard(ReasonTooShort, fmt.Sprintf("len=%d", n), e.lengthMessage(ReasonTooShort, lo, hi))
	}
	if n > hi {
		return hard(ReasonTooLong, fmt.Sprintf("len=%d", n), e.lengthMessage(ReasonTooLong, lo, hi))
	}

	folded := fold(text)
	for _, det := range e.detectors {
		if det.match(text, folded) {
			return hard(ReasonPersonalData, det.class, e.rules.message(ReasonPersonalData))
		}
	}

	if containsAny(e.stripAllowed(folded), e.denylist) {
		return hard(ReasonDenylist, "", e.rules.message(ReasonDenylist))
	}

	if e.classifier == nil {
		return hard(ReasonModerationError, "no classifier configured", e.rules.message(ReasonModerationError))
	}
	v, err := e.classifier.Classify(ctx, text)
	if err != nil {
		Log.WithFields(logrus.Fields{"kind": kind.String(), "err": err}).Error("text classifier failed, blocking submission")
		return hard(ReasonModerationError, err.Error(), e.rules.message(ReasonModerationError))
	}

	var severeHits []string
	for _, c := range v.Categories {
		if e.severe[c] {
			severeHits = append(severeHits, c)
		}
	}
	if len(severeHits) > 0 {
		return hard(ReasonFlaggedSevere, strings.Join(severeHits, ","), e.rules.message(ReasonFlaggedSevere))
	}
	if v.Flagged || len(v.Categories) > 0 {
		return Decision{
			Allowed:  true,
			Severity: SeveritySoft,
			Reason:   ReasonFlagged,
			Detail:   strings.Join(v.Categories, ","),
			Message:  e.rules.message(ReasonFlagged),
		}
	}
	return allow()
}

// stripAllowed blanks out allowlisted words so the denylist substring match
// doesn't fire on them.
func (e *Engine) stripAllowed(folded string) string {
	for _, w := range e.allowlist {
		folded = strings.ReplaceAll(folded, w, " ")
	}
	return folded
}

func (e *Engine) lengthMessage(reason string, lo, hi int) string {
	return fmt.Sprintf("%s It must be between %d and %d characters.", e.rules.message(reason), lo, hi)
}
