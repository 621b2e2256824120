package impact

// ChangeType identifies the kind of data mutation a change describes.
type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeUpdate  ChangeType = "update"
	ChangeDelete  ChangeType = "delete"
	ChangeArchive ChangeType = "archive"
)

// Change describes one proposed mutation of user data, in terms a human
// can review before it happens.
type Change struct {
	Type        ChangeType `json:"type"`
	Target      string     `json:"target"`
	Field       string     `json:"field,omitempty"`
	OldValue    string     `json:"old_value,omitempty"`
	NewValue    string     `json:"new_value,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Level is the risk classification of a set of proposed changes.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// rank orders levels from least to most severe.
var rank = map[Level]int{
	Low:      0,
	Medium:   1,
	High:     2,
	Critical: 3,
}

// AtLeast reports whether l is at or above the given level.
func (l Level) AtLeast(min Level) bool {
	return rank[l] >= rank[min]
}

// sensitiveFields are task fields whose update is riskier than a cosmetic
// edit: changing them alters scheduling or visible workflow state.
var sensitiveFields = map[string]bool{
	"status":   true,
	"priority": true,
}

// escalationThreshold is the change-set size above which the computed
// impact is raised by one level.
const escalationThreshold = 3

// baseImpact returns the impact of a single change in isolation.
func baseImpact(c Change) Level {
	switch c.Type {
	case ChangeCreate:
		return Low
	case ChangeArchive:
		return Medium
	case ChangeUpdate:
		if sensitiveFields[c.Field] {
			return Medium
		}
		return Low
	case ChangeDelete:
		return High
	default:
		return Medium
	}
}

// escalate raises a level by one step. Critical stays critical.
func escalate(l Level) Level {
	switch l {
	case Low:
		return Medium
	case Medium:
		return High
	default:
		return Critical
	}
}

// Analyze classifies a change-set into an overall impact level: the maximum
// of the per-change impacts, escalated by one level when the set contains
// more than three changes.
func Analyze(changes []Change) Level {
	overall := Low
	for _, c := range changes {
		if b := baseImpact(c); rank[b] > rank[overall] {
			overall = b
		}
	}
	if len(changes) > escalationThreshold {
		overall = escalate(overall)
	}
	return overall
}

// ConfirmationLevel describes how a proposed action of a given impact must
// be presented to the user.
type ConfirmationLevel struct {
	Impact                       Level `json:"impact"`
	RequiresExplicitConfirmation bool  `json:"requires_explicit_confirmation"`
	ShowPreview                  bool  `json:"show_preview"`
	AllowAlternatives            bool  `json:"allow_alternatives"`
}

// ConfirmationFor maps an impact level to its confirmation requirements.
// Only low-impact actions are auto-approved; everything above must be shown
// to the user with a preview and alternatives.
func ConfirmationFor(l Level) ConfirmationLevel {
	if l == Low {
		return ConfirmationLevel{Impact: l}
	}
	return ConfirmationLevel{
		Impact:                       l,
		RequiresExplicitConfirmation: true,
		ShowPreview:                  true,
		AllowAlternatives:            true,
	}
}

// Preview is the object rendered to the user when an action needs review.
// It is recomputed from the change-set on demand and never persisted.
type Preview struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Changes     []Change `json:"changes"`
	Impact      Level    `json:"impact"`
	Reversible  bool     `json:"reversible"`
}

// NewPreview builds a Preview for the given change-set, deriving its
// impact level via Analyze.
func NewPreview(title, description string, changes []Change, reversible bool) Preview {
	return Preview{
		Title:       title,
		Description: description,
		Changes:     changes,
		Impact:      Analyze(changes),
		Reversible:  reversible,
	}
}
