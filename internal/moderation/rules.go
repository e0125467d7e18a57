package moderation

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Rules is the static moderation configuration. It is assembled at process
// start and handed to NewEngine; the engine never mutates it.
type Rules struct {
	PostMin  int
	PostMax  int
	ReplyMin int
	ReplyMax int

	// Denylist entries are matched as case- and accent-insensitive
	// substrings, so "puta" also catches "putas".
	Denylist []string
	// Allowlist words are removed from the text before the denylist runs,
	// for everyday words that contain a denied term ("computadora").
	Allowlist []string
	// DocumentKeywords flag explicit ID document mentions (DNI, passport...).
	DocumentKeywords []string
	// SevereCategories are classifier categories that block outright.
	SevereCategories []string

	Messages map[string]string
}

func DefaultRules() Rules {
	return Rules{
		PostMin:  30,
		PostMax:  2000,
		ReplyMin: 2,
		ReplyMax: 1000,
		Denylist: []string{
			"puto",
			"puta",
			"negro de mierda",
			"matarte",
			"te voy a matar",
		},
		Allowlist: []string{
			"computa",
			"computo",
			"disputa",
			"disputo",
			"diputa",
			"imputa",
			"imputo",
			"amputa",
			"amputo",
			"reputacion",
		},
		DocumentKeywords: []string{
			"dni",
			"cuit",
			"cuil",
			"pasaporte",
			"passport",
			"ssn",
			"numero de documento",
			"nro de documento",
		},
		SevereCategories: []string{
			"sexual/minors",
			"self-harm/intent",
			"self-harm/instructions",
			"violence/graphic",
			"hate",
			"hate/threatening",
			"harassment/threatening",
		},
		Messages: map[string]string{
			ReasonTooShort:        "The text is too short.",
			ReasonTooLong:         "The text is too long.",
			ReasonPersonalData:    "For safety, emails, phone numbers, links, social handles and ID numbers are not allowed. Remove them and try again.",
			ReasonDenylist:        "The text contains words that break the respect rules. Try telling it another way.",
			ReasonFlaggedSevere:   "This content can't be published because it breaks the community rules.",
			ReasonFlagged:         "Your text will be reviewed before it is published.",
			ReasonModerationError: "We couldn't review your text right now. Please try again in a few minutes.",
		},
	}
}

func (r Rules) bounds(kind Kind) (int, int) {
	if kind == KindReply {
		return r.ReplyMin, r.ReplyMax
	}
	return r.PostMin, r.PostMax
}

func (r Rules) message(reason string) string {
	if msg, ok := r.Messages[reason]; ok {
		return msg
	}
	return DefaultRules().Messages[reason]
}

// LoadFile extends the lists from a JSON file of named string sets:
//
//	{"denylist": ["..."], "allowlist": ["..."], "documents": ["..."], "severe_categories": ["..."]}
//
// Unknown set names are rejected so typos don't silently disable a list.
func (r *Rules) LoadFile(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return errors.Wrapf(err, "parsing moderation rules %s", p)
	}

	for name, vals := range sets {
		switch name {
		case "denylist":
			r.Denylist = append(r.Denylist, vals...)
		case "allowlist":
			r.Allowlist = append(r.Allowlist, vals...)
		case "documents":
			r.DocumentKeywords = append(r.DocumentKeywords, vals...)
		case "severe_categories":
			r.SevereCategories = append(r.SevereCategories, vals...)
		default:
			return errors.Errorf("unknown moderation rule set %q in %s", name, p)
		}
	}
	return nil
}
