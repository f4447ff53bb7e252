package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/app"
	"github.com/alexdjulin/librarian/internal/session"
	"github.com/alexdjulin/librarian/internal/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the librarian (default)",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// transcriptFileName is the CSV file conversations are appended to,
// inside the configured history directory.
const transcriptFileName = "chat_history.csv"

// chatStyles holds the lipgloss styles of the REPL. Speaker colors come
// from configuration so users can match their terminal theme.
type chatStyles struct {
	user      lipgloss.Style
	librarian lipgloss.Style
	system    lipgloss.Style
	errStyle  lipgloss.Style
}

func newChatStyles(userColor, librarianColor string) chatStyles {
	return chatStyles{
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(userColor)),
		librarian: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(librarianColor)),
		system:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		errStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// toolPrinter surfaces tool activity as grey one-liners between the
// user's question and the librarian's answer.
type toolPrinter struct {
	style lipgloss.Style
}

func (p *toolPrinter) OnToolStart(name string) {
	fmt.Println(p.style.Render("  › " + name + "..."))
}

func (p *toolPrinter) OnToolComplete(string) {}

func (p *toolPrinter) OnToolError(name string) {
	fmt.Println(p.style.Render("  › " + name + " failed"))
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	transcript := session.NewTranscript(
		filepath.Join(a.Config.HistoryDir, transcriptFileName),
		a.Config.AddTimestamp,
	)
	if a.Config.ClearHistory {
		if err := transcript.Clear(); err != nil {
			a.Logger.Warn("clearing transcript", "error", err)
		}
	}
	if err := transcript.Start(); err != nil {
		a.Logger.Warn("starting transcript", "error", err)
	}

	styles := newChatStyles(a.Config.UserColor, a.Config.LibrarianColor)
	renderer := newMarkdownRenderer()

	fmt.Println(styles.system.Render("# CHAT STARTED #"))
	fmt.Println(styles.system.Render("Ask me about books. Type /help for commands, quit or exit to leave."))
	fmt.Println()

	r := &repl{
		app:        a,
		session:    sess,
		transcript: transcript,
		styles:     styles,
		renderer:   renderer,
	}
	r.loop(ctx)

	fmt.Println()
	fmt.Println(styles.system.Render("# CHAT ENDED #"))
	return nil
}

// repl is the interactive chat loop state.
type repl struct {
	app        *app.App
	session    *session.Session
	transcript *session.Transcript
	styles     chatStyles
	renderer   *glamour.TermRenderer

	// titled is set once the session got a generated title.
	titled bool
}

// loop reads turns until EOF, an exit keyword, or context cancellation.
func (r *repl) loop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	userLabel := r.app.Config.UserName + ":"

	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Println(r.styles.user.Render(userLabel))
		if !scanner.Scan() {
			// EOF (Ctrl+D) or canceled input
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return
		}
		if strings.HasPrefix(input, "/") {
			if r.handleCommand(ctx, input) {
				return
			}
			continue
		}

		r.turn(ctx, input)
	}
}

// turn sends one user message through the agent and prints the answer.
func (r *repl) turn(ctx context.Context, input string) {
	if err := r.transcript.Append(r.app.Config.UserName, input); err != nil {
		r.app.Logger.Warn("appending to transcript", "error", err)
	}

	fmt.Println()
	fmt.Println(r.styles.librarian.Render(r.app.Config.LibrarianName + ":"))

	turnCtx := tools.ContextWithEmitter(ctx, &toolPrinter{style: r.styles.system})

	var streamed bool
	resp, err := r.app.Agent.ExecuteStream(turnCtx, r.session.ID, input,
		func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if part.Text != "" {
					streamed = true
					fmt.Print(part.Text)
				}
			}
			return nil
		})
	if err != nil {
		fmt.Println(r.styles.errStyle.Render("Error: " + err.Error()))
		fmt.Println()
		return
	}

	if streamed {
		fmt.Println()
	} else {
		// Nothing reached the stream callback; render the final text.
		fmt.Println(renderMarkdown(r.renderer, resp.FinalText))
	}
	fmt.Println()

	if err := r.transcript.Append(r.app.Config.LibrarianName, resp.FinalText); err != nil {
		r.app.Logger.Warn("appending to transcript", "error", err)
	}

	r.maybeTitle(ctx, input)
}

// maybeTitle replaces the placeholder session title after the first
// exchange. Best-effort; the placeholder stays on failure.
func (r *repl) maybeTitle(ctx context.Context, firstMessage string) {
	if r.titled || r.session.Title != defaultSessionTitle {
		r.titled = true
		return
	}
	r.titled = true

	title := r.app.Agent.GenerateTitle(ctx, firstMessage)
	if title == "" {
		return
	}
	if err := r.app.SessionStore.SetTitle(ctx, r.session.ID, title); err != nil {
		r.app.Logger.Warn("setting session title", "error", err)
		return
	}
	r.session.Title = title
}

// handleCommand executes one slash command. Returns true when the REPL
// should exit.
func (r *repl) handleCommand(ctx context.Context, cmd string) bool {
	switch cmd {
	case "/help":
		fmt.Println(r.styles.system.Render("Commands:"))
		fmt.Println(r.styles.system.Render("  /help    show this help"))
		fmt.Println(r.styles.system.Render("  /tools   list the librarian's research tools"))
		fmt.Println(r.styles.system.Render("  /clear   start a fresh conversation"))
		fmt.Println(r.styles.system.Render("  /exit    leave the chat (also: quit, exit, Ctrl+D)"))
		fmt.Println()

	case "/tools":
		fmt.Println(r.styles.system.Render("Research tools:"))
		for _, t := range r.app.Toolsets.All {
			fmt.Println(r.styles.system.Render("  " + t.Name()))
		}
		fmt.Println()

	case "/clear":
		sess, err := r.app.SessionStore.CreateSession(ctx, defaultSessionTitle, r.app.Config.ModelName)
		if err != nil {
			fmt.Println(r.styles.errStyle.Render("Error: " + err.Error()))
			return false
		}
		if err := session.SaveCurrentSessionID(sess.ID); err != nil {
			r.app.Logger.Warn("saving session state", "error", err)
		}
		if err := r.transcript.Start(); err != nil {
			r.app.Logger.Warn("starting transcript", "error", err)
		}
		r.session = sess
		r.titled = false
		fmt.Println(r.styles.system.Render("Conversation cleared."))
		fmt.Println()

	case "/exit", "/quit":
		return true

	default:
		fmt.Println(r.styles.system.Render("Unknown command: " + cmd + " (try /help)"))
		fmt.Println()
	}

	return false
}

// newMarkdownRenderer builds the glamour renderer for answers. A nil
// renderer degrades to plain text.
func newMarkdownRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown converts markdown to styled terminal output, falling
// back to the raw text when rendering is unavailable or fails.
func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
