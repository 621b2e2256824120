package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tempohq/tempo/internal/audit"
	"github.com/tempohq/tempo/internal/task"
)

// statsWindow is the period the stats endpoint reports on.
const statsWindow = 7 * 24 * time.Hour

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	OpenTasks       int     `json:"open_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	CompletedToday  int     `json:"completed_today"`
	FocusMinutes    float64 `json:"focus_minutes"`
	BreakMinutes    float64 `json:"break_minutes"`
	FocusEfficiency float64 `json:"focus_efficiency"`
	StreakDays      int     `json:"streak_days"`
	SessionActive   bool    `json:"session_active"`
	ChatSessions    int     `json:"chat_sessions"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	LLMCostUSD      float64 `json:"llm_cost_usd"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Tasks   []task.Task   `json:"tasks"`
	Actions []audit.Entry `json:"actions"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := d.tasks.Stats(ctx, time.Now().UTC().Add(-statsWindow))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	active, _ := d.tasks.ActiveSession(ctx)
	chatSessions, _ := d.chats.CountSessions(ctx)

	resp := statsResponse{
		OpenTasks:       stats.OpenTasks,
		CompletedTasks:  stats.CompletedTasks,
		CompletedToday:  stats.CompletedToday,
		FocusMinutes:    stats.FocusMinutes,
		BreakMinutes:    stats.BreakMinutes,
		FocusEfficiency: stats.FocusEfficiency(),
		StreakDays:      stats.StreakDays,
		SessionActive:   active != nil,
		ChatSessions:    chatSessions,
	}
	if spend, err := d.chats.TotalSpend(ctx); err == nil {
		resp.InputTokens = spend.InputTokens
		resp.OutputTokens = spend.OutputTokens
		resp.LLMCostUSD = spend.CostUSD
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := d.tasks.ListTasks(ctx, task.Filter{Limit: 10})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Recent assistant actions come from the audit log when one is wired.
	var actions []audit.Entry
	if d.agentOpts.Audit != nil {
		actions, err = d.agentOpts.Audit.Query(ctx, audit.QueryFilter{Limit: 10})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	if tasks == nil {
		tasks = []task.Task{}
	}
	if actions == nil {
		actions = []audit.Entry{}
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Tasks:   tasks,
		Actions: actions,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
