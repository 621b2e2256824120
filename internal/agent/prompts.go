package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tempohq/tempo/internal/contextengine"
)

const persona = `You are Tempo, a personal productivity assistant. You manage the user's tasks, track their work sessions and answer questions about how they spend their time.

Rules:
- Use the provided tools to read or change anything; never invent task data.
- Prefer one tool call at a time and react to its result before the next.
- Destructive changes go through a confirmation step. If the user declines, accept it and do not retry the same change.
- Keep replies brief and concrete.`

// systemPrompt seeds the conversation with the enriched context snapshot
// and the current timestamp.
func systemPrompt(build *contextengine.BuildResult, now time.Time) string {
	snapshot, err := json.MarshalIndent(build.Context, "", "  ")
	if err != nil {
		snapshot = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "\n\nCurrent time: %s", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "\n\nContext snapshot:\n%s", snapshot)
	if len(build.Relevance.CriticalFactors) > 0 {
		fmt.Fprintf(&b, "\n\nPay particular attention to: %s.", strings.Join(build.Relevance.CriticalFactors, ", "))
	}
	if len(build.Warnings) > 0 {
		fmt.Fprintf(&b, "\n\nSome context is degraded: %s.", strings.Join(build.Warnings, "; "))
	}
	return b.String()
}
