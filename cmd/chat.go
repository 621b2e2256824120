package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/confirm"
	"github.com/tempohq/tempo/internal/llm"
	"github.com/tempohq/tempo/internal/progress"
)

// historyWindow caps how many prior turns feed each assistant run.
const historyWindow = 20

var chatNewSession bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive conversation. The assistant can read and change
your tasks through its tools; anything beyond low-impact changes asks
for confirmation first. Conversations resume where they left off;
use --new to start over. Type "exit" or press Ctrl-D to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNewSession, "new", false, "start a fresh session instead of resuming the last one")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Internal log lines would tear through the prompt.
	if !verbose {
		log.SetOutput(io.Discard)
	}

	sess, err := resumeOrCreateSession(ctx, rt.chats, chatNewSession)
	if err != nil {
		return err
	}

	gate := confirm.NewGate(confirm.NewTerminalPrompter())
	assistant := agent.New(rt.provider, rt.registry, gate, rt.engine, rt.tasks, rt.agentOptions())

	fmt.Printf("tempo v%s (%s). Type \"exit\" to leave.\n\n", Version, rt.cfg.Model)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("You> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			// Ctrl-D ends the conversation.
			fmt.Println()
			break
		}
		message := strings.TrimSpace(line)
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		if err := runTurn(ctx, rt, assistant, sess.ID, message); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	rt.persistMemory(ctx)
	return nil
}

// runTurn sends one message through the assistant, prints the reply and
// persists both sides of the exchange.
func runTurn(ctx context.Context, rt *runtime, assistant *agent.Agent, sessionID, message string) error {
	history, err := sessionHistory(ctx, rt.chats, sessionID)
	if err != nil {
		return err
	}

	if _, err := rt.chats.AddMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      "user",
		Content:   message,
	}); err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	spinner := progress.StartSpinner("Thinking")
	res, err := assistant.Run(ctx, agent.Request{
		SessionID: sessionID,
		Message:   message,
		History:   history,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n\n", res.Reply)
	if verbose {
		fmt.Fprintf(os.Stderr, "(%d iterations, %d tool calls, %d in / %d out tokens, $%.4f)\n",
			res.Iterations, len(res.Calls), res.InputTokens, res.OutputTokens, res.CostUSD)
	}

	meta, _ := json.Marshal(map[string]any{
		"iterations":    res.Iterations,
		"tool_calls":    len(res.Calls),
		"input_tokens":  res.InputTokens,
		"output_tokens": res.OutputTokens,
		"cost_usd":      res.CostUSD,
	})
	if _, err := rt.chats.AddMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   res.Reply,
		Metadata:  string(meta),
	}); err != nil {
		log.Printf("chat: saving reply: %v", err)
	}
	return nil
}

// sessionHistory loads a session's recent turns as model messages.
func sessionHistory(ctx context.Context, chats *chat.Store, sessionID string) ([]llm.Message, error) {
	msgs, err := chats.RecentMessages(ctx, sessionID, historyWindow)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "user":
			history = append(history, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case "assistant":
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return history, nil
}

// resumeOrCreateSession returns the most recent local session, creating
// one when there is none or a fresh start was asked for.
func resumeOrCreateSession(ctx context.Context, chats *chat.Store, fresh bool) (*chat.Session, error) {
	if !fresh {
		sess, err := chats.LatestSession(ctx, "local")
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return chats.CreateSession(ctx, "local")
}
