package moderation

type Severity string

const (
	SeverityNone Severity = "none"
	SeveritySoft Severity = "soft"
	SeverityHard Severity = "hard"
)

// Kind selects which length bounds apply.
type Kind int

const (
	KindPost Kind = iota
	KindReply
)

func (k Kind) String() string {
	if k == KindReply {
		return "reply"
	}
	return "post"
}

const (
	ReasonOK              = "ok"
	ReasonTooShort        = "too_short"
	ReasonTooLong         = "too_long"
	ReasonPersonalData    = "personal_data"
	ReasonDenylist        = "denylist"
	ReasonFlagged         = "flagged"
	ReasonFlaggedSevere   = "flagged_severe"
	ReasonModerationError = "moderation_error"
)

// Decision is the engine verdict for one text.
//
// Detail names the detector class or the classifier categories that fired.
// It is meant for logs and the review queue, never for the submitter.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
	Detail   string   `json:"-"`
	Message  string   `json:"message,omitempty"`
}

func (d Decision) Hard() bool {
	return d.Severity == SeverityHard
}

func allow() Decision {
	return Decision{Allowed: true, Severity: SeverityNone, Reason: ReasonOK}
}

func hard(reason, detail, message string) Decision {
	return Decision{Severity: SeverityHard, Reason: reason, Detail: detail, Message: message}
}
