// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/harvest"
)

// newStripCommand creates the `harvest strip` command.
func newStripCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "strip <file>",
		Short: "Remove comments, blank lines and noise statements from a script",
		Long: `Remove block and line comments, blank lines and noise statements
(normalizer.strip_prefixes in the config, Write-Verbose and Write-Debug by
default) from a PowerShell script. Surviving lines are kept verbatim.

Use - as <file> to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			env, err := app.environment(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			source, err := harvest.ReadScript(args[0], app.stdin)
			if err != nil {
				return err
			}
			return harvest.WriteOutput(output, app.stdout, env.cfg.ScriptNormalizer().Normalize(source)+"\n")
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", harvest.StdioPath, "output file (- for stdout)")

	return cmd
}
