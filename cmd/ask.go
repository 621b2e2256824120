package cmd

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/confirm"
)

var askYes bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a single question",
	Long: `Runs one assistant turn and prints the reply. The turn joins the
ongoing local conversation, so follow-up asks keep their context.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askYes, "yes", "y", false, "approve confirmations without prompting")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !verbose {
		log.SetOutput(io.Discard)
	}

	sess, err := resumeOrCreateSession(ctx, rt.chats, false)
	if err != nil {
		return err
	}

	var prompter confirm.Prompter = confirm.NewTerminalPrompter()
	if askYes {
		prompter = &confirm.AutoPrompter{Approve: true}
	}
	assistant := agent.New(rt.provider, rt.registry, confirm.NewGate(prompter), rt.engine, rt.tasks, rt.agentOptions())

	if err := runTurn(ctx, rt, assistant, sess.ID, strings.Join(args, " ")); err != nil {
		return err
	}

	rt.persistMemory(ctx)
	return nil
}
