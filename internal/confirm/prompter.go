package confirm

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/tempohq/tempo/internal/impact"
)

// TerminalPrompter asks for confirmation interactively on the terminal.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a terminal prompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

func (p *TerminalPrompter) Prompt(ctx context.Context, preview impact.Preview, alternatives []Alternative) (Choice, error) {
	fmt.Println()
	fmt.Printf("%s\n", preview.Title)
	if preview.Description != "" {
		fmt.Printf("  %s\n", preview.Description)
	}
	fmt.Printf("  Impact:     %s\n", preview.Impact)
	if preview.Reversible {
		fmt.Printf("  Reversible: yes\n")
	} else {
		fmt.Printf("  Reversible: no\n")
	}
	if len(preview.Changes) > 0 {
		fmt.Println("  Changes:")
		for _, change := range preview.Changes {
			fmt.Printf("    %s\n", describeChange(change))
		}
	}
	fmt.Println()

	items := []string{"Confirm"}
	for _, alt := range alternatives {
		items = append(items, alt.Label)
	}
	items = append(items, "Cancel")

	prompt := promptui.Select{
		Label: "Proceed?",
		Items: items,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		// Ctrl-C during the prompt is a cancel, not a failure.
		if err == promptui.ErrInterrupt {
			return Choice{Kind: ChoiceCancel}, nil
		}
		return Choice{}, err
	}

	switch {
	case idx == 0:
		return Choice{Kind: ChoiceConfirm}, nil
	case idx == len(items)-1:
		return Choice{Kind: ChoiceCancel}, nil
	default:
		return Choice{Kind: ChoiceAlternative, Alternative: idx - 1}, nil
	}
}

func describeChange(change impact.Change) string {
	switch {
	case change.Field != "" && change.OldValue != "":
		return fmt.Sprintf("%s %s: %s %q -> %q", change.Type, change.Target, change.Field, change.OldValue, change.NewValue)
	case change.Field != "":
		return fmt.Sprintf("%s %s: %s -> %q", change.Type, change.Target, change.Field, change.NewValue)
	default:
		return fmt.Sprintf("%s %s", change.Type, change.Target)
	}
}

// AutoPrompter resolves every confirmation the same way without asking.
// Used for non-interactive runs: Approve=false is the safe default.
type AutoPrompter struct {
	Approve bool
}

func (p *AutoPrompter) Prompt(ctx context.Context, preview impact.Preview, alternatives []Alternative) (Choice, error) {
	if p.Approve {
		return Choice{Kind: ChoiceConfirm}, nil
	}
	return Choice{Kind: ChoiceCancel}, nil
}
