// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/harvest"
	"github.com/harvestkit/harvest/pkg/psscript"
)

type minimizeFlagValues struct {
	functions []string
	keywords  []string
	output    string
	strict    bool
}

// newMinimizeCommand creates the `harvest minimize` command.
func newMinimizeCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &minimizeFlagValues{}

	cmd := &cobra.Command{
		Use:   "minimize <script>",
		Short: "Reduce a PowerShell script to selected functions and their dependencies",
		Long: `Reduce a PowerShell script to the named entry-point functions plus every
function they reference, transitively. Comments, blank lines and noise
statements are removed. When a kept function uses the PSReflect module
variables, the script's PSReflect setup block is appended.

Use - as <script> to read from stdin.

` + SubtitleStyle.Render("Examples:") + `
  harvest minimize PowerView.ps1 -f Invoke-UserHunter -f Get-DomainUser
  harvest minimize PowerUp.ps1 -f Invoke-AllChecks -k Invoke-AllChecks=Invoke-Audit -o audit.ps1`,
		Args: cobra.ExactArgs(1),
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			return runMinimize(cmd, app, rootFlags, flags, args[0])
		}),
	}

	cmd.Flags().StringSliceVarP(&flags.functions, "function", "f", nil, "entry-point function to keep (repeatable or comma-separated)")
	cmd.Flags().StringArrayVarP(&flags.keywords, "keyword", "k", nil, "replace a keyword in the output, as old=new (repeatable)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", harvest.StdioPath, "output file (- for stdout)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit with status 2 when a function cannot be found")

	return cmd
}

func runMinimize(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *minimizeFlagValues, script string) error {
	env, err := app.environment(cmd.Context(), rootFlags)
	if err != nil {
		return err
	}

	keywords := env.cfg.KeywordSet()
	for _, raw := range flags.keywords {
		k, err := psscript.ParseKeyword(raw)
		if err != nil {
			return err
		}
		keywords = append(keywords, k)
	}

	res, err := harvest.MinimizeScript(script, app.stdin, flags.functions,
		psscript.WithLogger(env.logger),
		psscript.WithNormalizer(env.cfg.ScriptNormalizer()),
		psscript.WithKeywords(keywords),
	)
	if err != nil {
		return err
	}

	if err := harvest.WriteOutput(flags.output, app.stdout, res.Script); err != nil {
		return err
	}
	if flags.output != harvest.StdioPath && flags.output != "" {
		kept := len(res.Resolution.Names) - len(res.Resolution.Unresolved)
		fmt.Fprintf(app.stderr, "%s Wrote %d function(s) to %s\n", SuccessStyle.Render("✓"), kept, flags.output)
	}

	if flags.strict && !res.Resolution.Complete() {
		return &ExitError{
			Code: ExitIncomplete,
			Err:  fmt.Errorf("%d function(s) not found in %s: %v", len(res.Resolution.Unresolved), script, res.Resolution.Unresolved),
		}
	}
	return nil
}
