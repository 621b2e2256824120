// Package agent runs the tool-calling conversation loop: it builds the
// context for a message, lets the model request tools, executes them in
// order behind the confirmation gate, and feeds results back until the
// model produces a reply or the iteration cap is reached.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tempohq/tempo/internal/audit"
	"github.com/tempohq/tempo/internal/confirm"
	"github.com/tempohq/tempo/internal/contextengine"
	"github.com/tempohq/tempo/internal/impact"
	"github.com/tempohq/tempo/internal/intent"
	"github.com/tempohq/tempo/internal/llm"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

// DefaultMaxIterations caps model round-trips within one Run.
const DefaultMaxIterations = 8

const modelFailureReply = "Sorry, I ran into a problem while thinking that one through. Please try again in a moment."

// Loop phases, for logging.
type phase string

const (
	phaseAwaitingModel phase = "awaiting_model"
	phaseToolCalls     phase = "tool_calls_requested"
	phaseExecuting     phase = "executing"
)

// Recorder persists completed turns so similar future requests can be
// recognized. memory.Store satisfies it.
type Recorder interface {
	RecordInteraction(ctx context.Context, message, reply, category string, at time.Time) error
}

// Agent drives one conversation turn at a time.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	gate     *confirm.Gate
	engine   *contextengine.Engine
	store    task.Store

	audit         *audit.Store
	recorder      Recorder
	prefs         contextengine.Preferences
	maxIterations int
	model         string
	now           func() time.Time
}

// Options tunes the agent. Zero values select the defaults.
type Options struct {
	Audit         *audit.Store
	Recorder      Recorder
	Preferences   contextengine.Preferences
	MaxIterations int
	Model         string
	Now           func() time.Time
}

// New wires an agent over its collaborators.
func New(provider llm.Provider, registry *tools.Registry, gate *confirm.Gate, engine *contextengine.Engine, store task.Store, opts Options) *Agent {
	prefs := opts.Preferences
	if prefs == (contextengine.Preferences{}) {
		prefs = contextengine.DefaultPreferences()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Agent{
		provider:      provider,
		registry:      registry,
		gate:          gate,
		engine:        engine,
		store:         store,
		audit:         opts.Audit,
		recorder:      opts.Recorder,
		prefs:         prefs,
		maxIterations: maxIterations,
		model:         opts.Model,
		now:           now,
	}
}

// Request is one user turn.
type Request struct {
	SessionID string
	Message   string
	History   []llm.Message
}

// Result is the outcome of one turn. Token counts and cost are summed
// over every model round-trip the turn needed.
type Result struct {
	Reply        string
	Context      *contextengine.BuildResult
	Iterations   int
	Calls        []CallRecord
	CapReached   bool
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// CallRecord describes one tool call the model made during the turn.
type CallRecord struct {
	ID      string
	Name    string
	Args    map[string]any
	Target  string
	Impact  impact.Level
	Outcome audit.Outcome
	Result  *tools.Result
}

// Run executes one conversation turn. Model failures come back as an
// apologetic Reply rather than an error; only context cancellation and
// an empty message error out.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}

	now := a.now()
	base := contextengine.BuildBase(ctx, a.store, a.prefs, now)
	build := a.engine.Build(ctx, base, req.Message, historyStrings(req.History))

	msgs := make([]llm.Message, 0, len(req.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt(build, now)})
	msgs = append(msgs, req.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Message})

	res := &Result{Context: build}
	defs := toolDefinitions(a.registry)

	for i := 0; i < a.maxIterations; i++ {
		res.Iterations = i + 1
		log.Printf("agent: iteration %d: %s", i+1, phaseAwaitingModel)

		resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
			Model:    a.model,
			Messages: msgs,
			Tools:    defs,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Printf("agent: model invocation failed: %v", err)
			res.Reply = modelFailureReply
			return res, nil
		}

		res.InputTokens += resp.InputTokens
		res.OutputTokens += resp.OutputTokens
		model := resp.Model
		if model == "" {
			model = a.model
		}
		res.CostUSD += llm.EstimateCost(model, resp.InputTokens, resp.OutputTokens)

		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				reply = synthesizeReply(res.Calls)
			}
			res.Reply = reply
			a.recordTurn(ctx, req.Message, res.Reply)
			return res, nil
		}

		log.Printf("agent: iteration %d: %s (%d calls)", i+1, phaseToolCalls, len(resp.ToolCalls))
		msgs = append(msgs, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Calls run sequentially in the order the model asked for them.
		// A repeated correlation ID inside one round replays the first
		// result instead of executing twice.
		seen := map[string]*tools.Result{}
		for _, call := range resp.ToolCalls {
			if call.ID != "" {
				if prev, ok := seen[call.ID]; ok {
					msgs = append(msgs, toolMessage(call, prev))
					continue
				}
			}

			record, err := a.dispatch(ctx, req.SessionID, call)
			if err != nil {
				return nil, err
			}
			if call.ID != "" {
				seen[call.ID] = record.Result
			}
			res.Calls = append(res.Calls, record)
			msgs = append(msgs, toolMessage(call, record.Result))
		}
	}

	res.CapReached = true
	res.Reply = a.capReply(res.Calls)
	a.recordTurn(ctx, req.Message, res.Reply)
	return res, nil
}

// recordTurn remembers a finished turn for future recall. Memory is
// best effort; failures are logged, never surfaced.
func (a *Agent) recordTurn(ctx context.Context, message, reply string) {
	if a.recorder == nil {
		return
	}
	category := string(intent.Extract(message).Category)
	if err := a.recorder.RecordInteraction(ctx, message, reply, category, a.now()); err != nil {
		log.Printf("agent: recording interaction: %v", err)
	}
}

// dispatch runs one tool call. Read-only tools execute directly;
// mutating tools go through impact analysis and the confirmation gate.
// The returned error is non-nil only for context cancellation.
func (a *Agent) dispatch(ctx context.Context, sessionID string, call llm.ToolCall) (CallRecord, error) {
	record := CallRecord{
		ID:      call.ID,
		Name:    call.Name,
		Args:    call.Arguments,
		Outcome: audit.OutcomeAuto,
	}

	def, ok := a.registry.Get(call.Name)
	if !ok || !def.Mutating {
		log.Printf("agent: %s: %s", phaseExecuting, call.Name)
		record.Result = a.registry.Execute(ctx, call.Name, call.Arguments)
		a.logAction(ctx, sessionID, record)
		return record, nil
	}

	changes, err := a.registry.PlanChanges(ctx, call.Name, call.Arguments)
	if err != nil {
		// Without a preview the change cannot be confirmed, so the tool
		// does not run at all.
		record.Result = &tools.Result{
			Success:     false,
			Error:       err.Error(),
			UserMessage: fmt.Sprintf("I couldn't preview the changes for %s, so I didn't run it.", call.Name),
			Metadata:    tools.Metadata{ToolName: call.Name, Permission: def.Permission},
		}
		a.logAction(ctx, sessionID, record)
		return record, nil
	}

	record.Impact = impact.Analyze(changes)
	if len(changes) > 0 {
		record.Target = changes[0].Target
	}

	var toolRes *tools.Result
	approved, err := a.gate.Request(ctx, confirm.Request{
		Title:       call.Name,
		Description: describeChanges(changes),
		Changes:     changes,
		Reversible:  reversible(changes),
		OnConfirm: func() error {
			log.Printf("agent: %s: %s", phaseExecuting, call.Name)
			toolRes = a.registry.Execute(ctx, call.Name, call.Arguments)
			return nil
		},
	})
	if err != nil {
		return record, err
	}

	if !approved || toolRes == nil {
		record.Outcome = audit.OutcomeCancelled
		record.Result = cancelledResult(call.Name, def.Permission)
	} else {
		if impact.ConfirmationFor(record.Impact).RequiresExplicitConfirmation {
			record.Outcome = audit.OutcomeConfirmed
		}
		record.Result = toolRes
	}
	a.logAction(ctx, sessionID, record)
	return record, nil
}

// cancelledResult is the deterministic outcome fed back to the model
// when the user declines a confirmation. The loop keeps going.
func cancelledResult(name string, perm tools.Permission) *tools.Result {
	return &tools.Result{
		Success:     false,
		Error:       "cancelled by user",
		UserMessage: fmt.Sprintf("The %s action was cancelled by the user. Nothing was changed.", name),
		Metadata:    tools.Metadata{ToolName: name, Permission: perm},
	}
}

func (a *Agent) logAction(ctx context.Context, sessionID string, record CallRecord) {
	if a.audit == nil {
		return
	}
	entry := audit.Entry{
		ActorType:      audit.ActorAssistant,
		ActorID:        "agent",
		Tool:           record.Name,
		Target:         record.Target,
		Impact:         string(record.Impact),
		Outcome:        record.Outcome,
		ConversationID: sessionID,
	}
	if r := record.Result; r != nil {
		entry.Success = r.Success
		entry.DurationMs = r.Metadata.ExecutionTimeMs
		entry.Summary = r.UserMessage
		if !r.Success {
			entry.Detail = r.Error
		}
	}
	if err := a.audit.Log(ctx, entry); err != nil {
		log.Printf("agent: recording action log: %v", err)
	}
}

func toolDefinitions(r *tools.Registry) []llm.ToolDefinition {
	defs := r.List()
	out := make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema(),
		})
	}
	return out
}

func toolMessage(call llm.ToolCall, res *tools.Result) llm.Message {
	payload, err := json.Marshal(res)
	if err != nil {
		payload = fmt.Appendf(nil, `{"success":%t,"error":"result not serializable"}`, res != nil && res.Success)
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    string(payload),
		ToolCallID: call.ID,
	}
}

// historyStrings flattens prior user and assistant turns for pattern
// recall.
func historyStrings(history []llm.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m.Content)
	}
	return out
}

func describeChanges(changes []impact.Change) string {
	if len(changes) == 0 {
		return "No changes"
	}
	if len(changes) == 1 {
		if changes[0].Description != "" {
			return changes[0].Description
		}
		return fmt.Sprintf("%s %s", changes[0].Type, changes[0].Target)
	}
	return fmt.Sprintf("%d changes", len(changes))
}

// reversible reports whether every planned change can be undone.
// Deletions cannot.
func reversible(changes []impact.Change) bool {
	for _, c := range changes {
		if c.Type == impact.ChangeDelete {
			return false
		}
	}
	return true
}
