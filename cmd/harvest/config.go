// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/config"
)

// newConfigCommand creates the `harvest config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage harvest configuration",
		Long: `Manage harvest configuration.

Configuration is stored in:
  - Linux: ~/.config/harvest/config.cue
  - macOS: ~/Library/Application Support/harvest/config.cue
  - Windows: %APPDATA%\harvest\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, rootFlags)
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			path, created, err := config.Init(app.loadOptions(rootFlags))
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s Config file already exists: %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created config file: %s\n", SuccessStyle.Render("✓"), path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			path, _, err := app.Config.Locate(app.loadOptions(rootFlags))
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions(rootFlags))
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		}),
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, rootFlags *rootFlagValues) error {
	opts := app.loadOptions(rootFlags)
	cfg, err := app.Config.Load(cmd.Context(), opts)
	if err != nil {
		return err
	}

	w := app.stdout
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path, exists, err := app.Config.Locate(opts); err == nil && exists {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	value := func(key, v string) {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(key), SuccessStyle.Render(v))
	}
	value("log_level", string(cfg.LogLevel))
	value("output_format", string(cfg.OutputFormat))
	value("concurrency", fmt.Sprint(cfg.Concurrency))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("keywords"))
	if len(cfg.Keywords) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, k := range cfg.Keywords {
		fmt.Fprintf(w, "  - %s → %s\n", SuccessStyle.Render(k.Keyword), SuccessStyle.Render(fmt.Sprintf("%q", k.Replacement)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("normalizer"))
	fmt.Fprintf(w, "  strip_prefixes: %s\n", SuccessStyle.Render(quoteAll(cfg.Normalizer.StripPrefixes)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("watch"))
	fmt.Fprintf(w, "  patterns: %s\n", SuccessStyle.Render(quoteAll(cfg.Watch.Patterns)))
	fmt.Fprintf(w, "  debounce: %s\n", SuccessStyle.Render(cfg.Watch.Debounce.String()))
	fmt.Fprintf(w, "  ignore: %s\n", SuccessStyle.Render(quoteAll(cfg.Watch.Ignore)))

	return nil
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
