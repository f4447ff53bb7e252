package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/app"
	"github.com/alexdjulin/librarian/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect and maintain the vector library",
}

var libraryContentsCmd = &cobra.Command{
	Use:       "contents [collection]",
	Short:     "List stored documents (book_info, book_reviews, or all)",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: library.AllSourceTypes(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runLibraryContents(ctx, a, args)
		})
	},
}

var libraryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts per collection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runLibraryStats(ctx, a)
		})
	},
}

var libraryDedupeCmd = &cobra.Command{
	Use:       "dedupe <collection>",
	Short:     "Remove duplicate documents from a collection",
	Args:      cobra.ExactArgs(1),
	ValidArgs: library.AllSourceTypes(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runLibraryDedupe(ctx, a, args[0])
		})
	},
}

var libraryResetYes bool

var libraryResetCmd = &cobra.Command{
	Use:       "reset <collection>",
	Short:     "Delete every document of a collection",
	Args:      cobra.ExactArgs(1),
	ValidArgs: library.AllSourceTypes(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return runLibraryReset(ctx, a, args[0], libraryResetYes)
		})
	},
}

func init() {
	libraryResetCmd.Flags().BoolVar(&libraryResetYes, "yes", false, "skip the confirmation prompt")

	libraryCmd.AddCommand(libraryContentsCmd)
	libraryCmd.AddCommand(libraryStatsCmd)
	libraryCmd.AddCommand(libraryDedupeCmd)
	libraryCmd.AddCommand(libraryResetCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryContents(ctx context.Context, a *app.App, args []string) error {
	sourceTypes := library.AllSourceTypes()
	if len(args) == 1 {
		if !library.ValidSourceType(args[0]) {
			return fmt.Errorf("unknown collection %q (valid: %s)", args[0], strings.Join(library.AllSourceTypes(), ", "))
		}
		sourceTypes = args[:1]
	}

	for _, st := range sourceTypes {
		docs, err := a.Library.List(ctx, st)
		if err != nil {
			return fmt.Errorf("listing %s: %w", st, err)
		}

		fmt.Printf("=== %s (%d chunks) ===\n", st, len(docs))
		for _, doc := range docs {
			fmt.Printf("%s  [%s]\n", doc.ID, doc.CreatedAt.Format("2006-01-02 15:04"))
			if title, ok := doc.Metadata["title"].(string); ok && title != "" {
				fmt.Printf("  title: %s\n", title)
			}
			fmt.Printf("  %s\n", truncateLine(doc.Content, 120))
		}
		fmt.Println()
	}
	return nil
}

func runLibraryStats(ctx context.Context, a *app.App) error {
	for _, st := range library.AllSourceTypes() {
		count, err := a.Library.Count(ctx, st)
		if err != nil {
			return fmt.Errorf("counting %s: %w", st, err)
		}
		fmt.Printf("%-14s %d chunks\n", st, count)
	}
	return nil
}

func runLibraryDedupe(ctx context.Context, a *app.App, sourceType string) error {
	removed, err := a.Library.RemoveDuplicates(ctx, sourceType)
	if err != nil {
		return fmt.Errorf("removing duplicates from %s: %w", sourceType, err)
	}
	fmt.Printf("Removed %d duplicate documents from %s\n", removed, sourceType)
	return nil
}

func runLibraryReset(ctx context.Context, a *app.App, sourceType string, skipConfirm bool) error {
	if !library.ValidSourceType(sourceType) {
		return fmt.Errorf("unknown collection %q (valid: %s)", sourceType, strings.Join(library.AllSourceTypes(), ", "))
	}

	if !skipConfirm && !confirmReset(os.Stdin, os.Stdout, sourceType) {
		fmt.Println("Reset canceled, no changes made.")
		return nil
	}

	deleted, err := a.Library.Reset(ctx, sourceType)
	if err != nil {
		return fmt.Errorf("resetting %s: %w", sourceType, err)
	}
	fmt.Printf("Deleted %d chunks from %s\n", deleted, sourceType)
	return nil
}

// confirmReset asks the user to type YES, exactly, before a destructive
// reset. Anything else cancels.
func confirmReset(in io.Reader, out io.Writer, sourceType string) bool {
	fmt.Fprintf(out, "This permanently deletes every document in %s.\n", sourceType)
	fmt.Fprint(out, "Type YES to confirm: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "YES"
}

// truncateLine flattens text to one line and caps its length for
// listings.
func truncateLine(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
