// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for harvest.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Trim PowerShell toolkits and collect credentials from tool output",
		Long: TitleStyle.Render("harvest") + SubtitleStyle.Render(" - Trim PowerShell toolkits and collect credentials from tool output") + `

harvest cuts large PowerShell toolkits down to the functions an operation
needs, and turns the text printed by credential-dumping tools into
deduplicated credential records.

` + SubtitleStyle.Render("Examples:") + `
  harvest minimize PowerView.ps1 -f Invoke-UserHunter   Keep one entry point and its dependencies
  harvest functions PowerView.ps1 --deps                List functions and what they call
  harvest creds logonpasswords.txt --format json        Extract credentials from a capture
  harvest creds watch ./loot                            Report credentials as captures arrive
  harvest config show                                   Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/harvest/config.cue)")

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(
		newMinimizeCommand(app, flags),
		newFunctionsCommand(app, flags),
		newStripCommand(app, flags),
		newCredsCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with production dependencies. It is called by
// main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// runE wraps a command handler so actionable failures show their suggestions
// on stderr before fang prints the error line.
func runE(app *App, flags *rootFlagValues, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var ae *issue.ActionableError
		if errors.As(err, &ae) && (ae.HasSuggestions() || flags.verbose) {
			fmt.Fprintln(app.stderr, formatErrorForDisplay(err, flags.verbose))
		}
		return err
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// include their suggestions, and in verbose mode the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	return issue.Describe(err, verbose)
}
