package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("librarian %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Println()

		printKeyStatus("OPENAI_API_KEY")
		printKeyStatus("GEMINI_API_KEY")
		printKeyStatus("YOUTUBE_API_KEY")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// printKeyStatus reports whether an API key is configured without
// revealing it.
func printKeyStatus(name string) {
	if os.Getenv(name) != "" {
		fmt.Printf("%s: configured\n", name)
	} else {
		fmt.Printf("%s: not set\n", name)
	}
}
