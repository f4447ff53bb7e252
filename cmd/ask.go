package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/chat"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the librarian a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := getOrCreateSession(ctx, a.SessionStore, a.Config)
	if err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	flow := chat.NewFlow(a.Genkit, a.Agent)
	out, err := flow.Run(ctx, chat.Input{
		Query:     question,
		SessionID: sess.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("asking the librarian: %w", err)
	}

	fmt.Println(renderMarkdown(newMarkdownRenderer(), out.Response))
	return nil
}
