package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/app"
	"github.com/alexdjulin/librarian/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runSessionsList(ctx, a)
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runSessionsShow(ctx, a, args[0])
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runSessionsDelete(ctx, a, args[0])
		})
	},
}

var sessionsExportOut string

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session as a CSV transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runSessionsExport(ctx, a, args[0], sessionsExportOut)
		})
	},
}

func init() {
	sessionsExportCmd.Flags().StringVarP(&sessionsExportOut, "output", "o", "", "output file (default <session-id>.csv)")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withApp wires the application around a single command action.
func withApp(fn func(context.Context, *app.App) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, a)
}

func runSessionsList(ctx context.Context, a *app.App) error {
	sessions, err := a.SessionStore.ListSessions(ctx, 50, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Start one with: librarian chat")
		return nil
	}

	for _, sess := range sessions {
		fmt.Printf("%s  %-50s  %3d messages  %s\n",
			sess.ID, sess.Title, sess.MessageCount, formatTime(sess.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, a *app.App, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	sess, err := a.SessionStore.Session(ctx, id)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}

	msgs, err := a.SessionStore.Messages(ctx, id, 0, 0)
	if err != nil {
		return fmt.Errorf("getting messages: %w", err)
	}

	fmt.Printf("Session:  %s\n", sess.ID)
	fmt.Printf("Title:    %s\n", sess.Title)
	fmt.Printf("Model:    %s\n", sess.ModelName)
	fmt.Printf("Created:  %s\n", formatTime(sess.CreatedAt))
	fmt.Printf("Messages: %d\n", len(msgs))
	fmt.Println()

	renderer := newMarkdownRenderer()
	for _, msg := range msgs {
		speaker := a.Config.UserName
		if msg.Role == string(ai.RoleModel) {
			speaker = a.Config.LibrarianName
		}
		fmt.Printf("%s:\n", speaker)
		fmt.Println(renderMarkdown(renderer, partsText(msg.Content)))
		fmt.Println()
	}
	return nil
}

func runSessionsDelete(ctx context.Context, a *app.App, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	if err := a.SessionStore.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	// Detach the CLI if it was attached to the deleted session.
	if currentID, err := session.LoadCurrentSessionID(); err == nil && currentID != nil && *currentID == id {
		if err := session.ClearCurrentSessionID(); err != nil {
			a.Logger.Warn("clearing session state", "error", err)
		}
	}

	fmt.Printf("Deleted session %s\n", id)
	return nil
}

func runSessionsExport(ctx context.Context, a *app.App, rawID, out string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	msgs, err := a.SessionStore.Messages(ctx, id, 0, 0)
	if err != nil {
		return fmt.Errorf("getting messages: %w", err)
	}

	if out == "" {
		out = rawID + ".csv"
	}

	// No timestamp column: the transcript writer stamps rows with the
	// current time, which would misdate messages written in the past.
	transcript := session.NewTranscript(out, false)
	if err := transcript.Clear(); err != nil {
		return fmt.Errorf("preparing transcript: %w", err)
	}
	for _, msg := range msgs {
		speaker := a.Config.UserName
		if msg.Role == string(ai.RoleModel) {
			speaker = a.Config.LibrarianName
		}
		if err := transcript.Append(speaker, partsText(msg.Content)); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
	}

	fmt.Printf("Exported %d messages to %s\n", len(msgs), transcript.Path())
	return nil
}

// partsText joins the text parts of a stored message.
func partsText(parts []*ai.Part) string {
	var out string
	for _, p := range parts {
		if p.Kind == ai.PartText {
			out += p.Text
		}
	}
	return out
}

// formatTime renders a timestamp relative to now for listings.
func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
