// Command flexicli is the FlexiCLI binary: a locally-hosted, multi-agent
// coding assistant that runs entirely against a project's own SQLite-backed
// session store and embedded vector store.
//
// Usage:
//
//	flexicli run --prompt "…" [--non-interactive] [--mode direct|concise|deep]
//	flexicli run                          # interactive REPL
//	flexicli version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	flagPrompt        string
	flagNonInteractive bool
	flagMode          string
	flagConfig        string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "flexicli",
	Short:   "A locally-hosted, multi-agent coding assistant",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a turn, or start the interactive REPL when --prompt is omitted",
	RunE:  runRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flexicli %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.yaml (default ~/.config/flexicli/config.yaml)")

	runCmd.Flags().StringVar(&flagPrompt, "prompt", "", "prompt to run non-interactively")
	runCmd.Flags().BoolVar(&flagNonInteractive, "non-interactive", false, "exit after the first turn instead of entering the REPL")
	runCmd.Flags().StringVar(&flagMode, "mode", "", "token budget mode: direct, concise, or deep (overrides FLEXICLI_MODE)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCodeFor maps a top-level error onto the spec §6 exit codes: 0
// success, 1 unrecoverable error, 2 aborted by user, 3 configuration error.
func exitCodeFor(err error) int {
	switch e := err.(type) {
	case *exitError:
		return e.code
	default:
		return 1
	}
}

// exitError carries one of the spec §6 exit codes through cobra's RunE
// chain, which otherwise only distinguishes "error" from "no error".
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}
