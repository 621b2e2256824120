// Package confirm implements the approval gate between the assistant's
// proposed mutations and their execution. Low-impact actions pass through
// without any UI; everything else blocks until a human confirms, cancels
// or picks an alternative.
package confirm

import (
	"context"
	"errors"
	"log"

	"github.com/tempohq/tempo/internal/impact"
)

// Alternative is a safer substitute action the user can pick instead of
// the primary one, e.g. archiving instead of deleting.
type Alternative struct {
	Label       string
	Description string
	Action      func() error
}

// Request describes one action awaiting approval. OnConfirm performs the
// primary action; it runs at most once per request.
type Request struct {
	Title        string
	Description  string
	Changes      []impact.Change
	Reversible   bool
	OnConfirm    func() error
	OnCancel     func()
	Alternatives []Alternative
}

// ChoiceKind is the user's decision.
type ChoiceKind string

const (
	ChoiceConfirm     ChoiceKind = "confirm"
	ChoiceCancel      ChoiceKind = "cancel"
	ChoiceAlternative ChoiceKind = "alternative"
)

// Choice carries the decision and, for alternatives, which one.
type Choice struct {
	Kind        ChoiceKind
	Alternative int
}

// Prompter presents a preview to the user and collects their choice.
// Implementations exist for the terminal and the web dashboard.
type Prompter interface {
	Prompt(ctx context.Context, preview impact.Preview, alternatives []Alternative) (Choice, error)
}

// Gate serializes confirmations for one conversation surface. At most one
// request is in flight at a time; concurrent requests queue on the
// semaphore rather than interleaving prompts.
type Gate struct {
	prompter Prompter
	sem      chan struct{}
}

// NewGate creates a gate that asks the given prompter for decisions.
func NewGate(prompter Prompter) *Gate {
	return &Gate{
		prompter: prompter,
		sem:      make(chan struct{}, 1),
	}
}

// Request gates one action. It returns true when the primary action (or a
// chosen alternative) ran successfully, false when the user cancelled or
// the action failed. Action errors are logged and absorbed here; they
// never propagate as Go errors. The only error returns are context
// cancellation while queued or prompting.
func (g *Gate) Request(ctx context.Context, req Request) (bool, error) {
	preview := impact.NewPreview(req.Title, req.Description, req.Changes, req.Reversible)
	level := impact.ConfirmationFor(preview.Impact)

	if !level.RequiresExplicitConfirmation {
		return g.runPrimary(req), nil
	}

	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-ctx.Done():
		return false, ctx.Err()
	}

	alternatives := req.Alternatives
	if !level.AllowAlternatives {
		alternatives = nil
	}

	choice, err := g.prompter.Prompt(ctx, preview, alternatives)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// A broken prompt counts as a close, which is a cancel.
		log.Printf("confirm: prompt failed, treating as cancel: %v", err)
		g.runCancel(req)
		return false, nil
	}

	switch choice.Kind {
	case ChoiceConfirm:
		return g.runPrimary(req), nil

	case ChoiceAlternative:
		if choice.Alternative < 0 || choice.Alternative >= len(alternatives) {
			log.Printf("confirm: alternative index %d out of range, treating as cancel", choice.Alternative)
			g.runCancel(req)
			return false, nil
		}
		alt := alternatives[choice.Alternative]
		if alt.Action == nil {
			return true, nil
		}
		if err := alt.Action(); err != nil {
			log.Printf("confirm: alternative %q failed: %v", alt.Label, err)
			return false, nil
		}
		return true, nil

	default:
		g.runCancel(req)
		return false, nil
	}
}

// runPrimary executes OnConfirm, absorbing failures into a false outcome.
func (g *Gate) runPrimary(req Request) bool {
	if req.OnConfirm == nil {
		return true
	}
	if err := req.OnConfirm(); err != nil {
		log.Printf("confirm: confirmed action failed: %v", err)
		return false
	}
	return true
}

func (g *Gate) runCancel(req Request) {
	if req.OnCancel != nil {
		req.OnCancel()
	}
}
