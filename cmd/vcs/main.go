package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vcs",
		Short: "A minimal smart-HTTP git client",
		Long: `VCS speaks just enough of the git smart HTTP v2 protocol to clone,
pull, and verify a shallow, single-branch worktree mirror.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCloneCommand(),
		newPullCommand(),
		newVerifyCommand(),
		newCatCommitCommand(),
		newLsTreeCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vcs:", err)
		code := 1
		var ece *exitCodeError
		if errors.As(err, &ece) {
			code = ece.code
		}
		os.Exit(code)
	}
}