// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/harvest"
	"github.com/harvestkit/harvest/pkg/psscript"
)

type functionsFlagValues struct {
	deps    bool
	order   bool
	headers bool
}

// newFunctionsCommand creates the `harvest functions` command.
func newFunctionsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &functionsFlagValues{}

	cmd := &cobra.Command{
		Use:   "functions <script>",
		Short: "List the functions defined in a PowerShell script",
		Long: `List the top-level functions and filters of a PowerShell script in source
order. --deps shows what each function references directly and what it needs
through those references; references to PSReflect helpers that the script
does not define are flagged. --order prints
dependencies before their callers; recursive functions are reported and the
source order is kept.

--headers prints the raw text of every "function ... {" line instead, which
also covers definitions the catalog cannot parse.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			return runFunctions(cmd, app, rootFlags, flags, args[0])
		}),
	}

	cmd.Flags().BoolVar(&flags.deps, "deps", false, "show the direct and indirect dependencies of each function")
	cmd.Flags().BoolVar(&flags.order, "order", false, "list dependencies before the functions that call them")
	cmd.Flags().BoolVar(&flags.headers, "headers", false, "print raw function header texts")
	cmd.MarkFlagsMutuallyExclusive("headers", "deps")
	cmd.MarkFlagsMutuallyExclusive("headers", "order")

	return cmd
}

func runFunctions(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *functionsFlagValues, script string) error {
	env, err := app.environment(cmd.Context(), rootFlags)
	if err != nil {
		return err
	}

	source, err := harvest.ReadScript(script, app.stdin)
	if err != nil {
		return err
	}

	if flags.headers {
		for _, header := range psscript.FunctionNames(source) {
			fmt.Fprintln(app.stdout, header)
		}
		return nil
	}

	catalog := psscript.ParseCatalog(source,
		psscript.WithLogger(env.logger),
		psscript.WithNormalizer(env.cfg.ScriptNormalizer()),
	)
	listing := harvest.DescribeFunctions(catalog, flags.order)
	if len(listing.Cycles) > 0 {
		env.logger.Warn("recursive functions cannot be ordered; keeping source order",
			"functions", strings.Join(listing.Cycles, ", "))
	}

	writeListing(app.stdout, listing, flags.deps)
	return nil
}

func writeListing(w io.Writer, listing harvest.Listing, deps bool) {
	for _, fn := range listing.Functions {
		fmt.Fprintln(w, KeyStyle.Render(fn.Name))
		if !deps {
			continue
		}
		for _, dep := range fn.Dependencies {
			fmt.Fprintf(w, "  → %s\n", dep)
		}
		for _, dep := range fn.Indirect {
			fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("↳ "+dep+" (indirect)"))
		}
		for _, missing := range fn.Missing {
			fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("!"), WarningStyle.Render(missing+" (not defined)"))
		}
	}

	if len(listing.Duplicates) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", WarningStyle.Render("Defined more than once (last wins):"), strings.Join(listing.Duplicates, ", "))
	}
}
