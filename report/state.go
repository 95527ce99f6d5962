package report

// State is the lifecycle position of a Session.
type State int

const (
	StateGathering State = iota
	StateStreaming
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateGathering:
		return "gathering"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason explains why a session failed.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonGathering means a data fetch failed before generation started.
	ReasonGathering
	// ReasonBusy means every attempt hit a transient provider failure.
	ReasonBusy
	// ReasonProvider means the model failed with a non-transient error.
	ReasonProvider
	// ReasonCancelled means the caller went away.
	ReasonCancelled
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonGathering:
		return "gathering"
	case ReasonBusy:
		return "busy"
	case ReasonProvider:
		return "provider"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// BusyNotice is the terminal message shown when generation fails.
const BusyNotice = "[Model Busy: Please try again.]"
