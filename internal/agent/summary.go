package agent

import (
	"fmt"
	"strings"
)

// summaryTemplates cover tools whose results carry no user-facing text.
// The fallback names the tool, so the reply is deterministic either way.
var summaryTemplates = map[string]string{
	"create_task":   "Done. The task has been created.",
	"update_task":   "Done. The task has been updated.",
	"complete_task": "Done. The task is marked as completed.",
	"archive_task":  "Done. The task has been archived.",
	"delete_task":   "Done. The task has been deleted.",
	"start_session": "Done. The session is running.",
	"stop_session":  "Done. The session has been stopped.",
	"get_task":      "Here is the task you asked about.",
	"list_tasks":    "Here are the tasks I found.",
	"get_stats":     "Here are your productivity numbers.",
}

func summaryFor(name string) string {
	if s, ok := summaryTemplates[name]; ok {
		return s
	}
	return fmt.Sprintf("Finished running %s.", name)
}

// synthesizeReply builds a reply when the model returned empty content.
// Tool output text wins over the templates.
func synthesizeReply(calls []CallRecord) string {
	if len(calls) == 0 {
		return "I wasn't sure how to help with that. Could you rephrase?"
	}
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		if c.Result != nil && strings.TrimSpace(c.Result.UserMessage) != "" {
			parts = append(parts, strings.TrimSpace(c.Result.UserMessage))
			continue
		}
		parts = append(parts, summaryFor(c.Name))
	}
	return strings.Join(parts, " ")
}

func (a *Agent) capReply(calls []CallRecord) string {
	reply := fmt.Sprintf("I stopped after %d reasoning steps, which is the limit for a single request.", a.maxIterations)
	if len(calls) > 0 {
		reply += " So far: " + synthesizeReply(calls)
	}
	return reply + " Ask me to continue if you want me to keep going."
}
