package provider

// Outcome is the terminal state of a single streaming attempt. Exactly one
// outcome is produced per attempt; it decides whether the orchestrator ends the
// stream, escalates, or switches to fallback.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAuthError
	OutcomeRateLimited
	OutcomeTimedOut
	OutcomeUnexpectedError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthError:
		return "auth_error"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unexpected_error"
	}
}

// Warning tokens pushed to the caller-visible stream just before a transient
// failure outcome, so the end user knows fallback content follows.
const (
	WarnRateLimited = "⚠️ Upstream quota exceeded. Switching to fallback...\n"
	WarnTimedOut    = "⚠️ LLM request timed out. Using fallback...\n"
	WarnUnexpected  = "⚠️ Unexpected error from LLM backend. Using fallback...\n"
)
