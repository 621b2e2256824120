package audit

import "time"

// ActorType identifies who initiated an action.
type ActorType string

const (
	ActorUser      ActorType = "user"
	ActorAssistant ActorType = "assistant"
	ActorSystem    ActorType = "system"
)

// Outcome records how a mutating action cleared confirmation.
type Outcome string

const (
	OutcomeAuto        Outcome = "auto"
	OutcomeConfirmed   Outcome = "confirmed"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeAlternative Outcome = "alternative"
)

// Entry is a single action log record.
type Entry struct {
	ID             string
	Timestamp      time.Time
	ActorType      ActorType
	ActorID        string
	Tool           string
	Target         string
	Impact         string
	Outcome        Outcome
	Success        bool
	DurationMs     int64
	Summary        string
	Detail         string
	ConversationID string
	PreviousValue  string
	NewValue       string
}
