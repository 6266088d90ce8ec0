// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harvestkit/harvest/internal/harvest"
	"github.com/harvestkit/harvest/internal/render"
	"github.com/harvestkit/harvest/internal/watch"
)

type (
	credsFlagValues struct {
		format string
	}

	watchFlagValues struct {
		patterns []string
		debounce time.Duration
		existing bool
	}
)

// newCredsCommand creates the `harvest creds` command tree.
func newCredsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &credsFlagValues{}

	credsCmd := &cobra.Command{
		Use:   "creds [file...]",
		Short: "Extract credentials from credential-dumping tool output",
		Long: `Extract credentials from the text printed by credential-dumping tools:
logonpasswords, krbtgt and DCSync dumps (first line "Hostname: ..."),
prompted credentials ("[+] Prompted credentials: ...") and captured dialog
text ("text returned:..."). Records are deduplicated across all inputs.

With no files the capture is read from stdin.`,
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			return runCreds(cmd, app, rootFlags, flags, args)
		}),
	}

	credsCmd.PersistentFlags().StringVar(&flags.format, "format", "",
		fmt.Sprintf("output format: %s (default from config)", strings.Join(render.Formats(), ", ")))

	credsCmd.AddCommand(newCredsWatchCommand(app, rootFlags, flags))

	return credsCmd
}

// outputFormat resolves --format, falling back to output_format from config.
func (f *credsFlagValues) outputFormat(env *environment) (render.Format, error) {
	if f.format != "" {
		return render.ParseFormat(f.format)
	}
	return render.ParseFormat(string(env.cfg.OutputFormat))
}

func runCreds(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *credsFlagValues, files []string) error {
	env, err := app.environment(cmd.Context(), rootFlags)
	if err != nil {
		return err
	}
	format, err := flags.outputFormat(env)
	if err != nil {
		return err
	}

	session := harvest.NewSession(
		harvest.WithLogger(env.logger),
		harvest.WithConcurrency(env.cfg.Concurrency),
	)

	var report harvest.Report
	if len(files) == 0 || (len(files) == 1 && files[0] == harvest.StdioPath) {
		report, err = session.ExtractReader(cmd.Context(), harvest.StdioPath, app.stdin)
	} else {
		report, err = session.ExtractFiles(cmd.Context(), files...)
	}
	if err != nil {
		return err
	}

	for _, c := range report.Captures {
		env.logger.Info("parsed capture", "source", c.Source, "format", c.Format, "records", len(c.Records))
	}
	return render.Write(app.stdout, format, report.Records)
}

// newCredsWatchCommand creates the `harvest creds watch` command.
func newCredsWatchCommand(app *App, rootFlags *rootFlagValues, credsFlags *credsFlagValues) *cobra.Command {
	flags := &watchFlagValues{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Extract credentials from capture files as they are written",
		Long: `Watch a capture directory recursively and extract credentials from every
capture file that is created or rewritten. Writes are debounced so a file
streamed by a tool is parsed once it settles. Each credential is printed the
first time it is seen; repeats across files are suppressed.

Capture patterns and the debounce default to watch.patterns and
watch.debounce in the config. Press Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(app, rootFlags, func(cmd *cobra.Command, args []string) error {
			return runCredsWatch(cmd, app, rootFlags, credsFlags, flags, args[0])
		}),
	}

	cmd.Flags().StringArrayVar(&flags.patterns, "pattern", nil, "capture file glob relative to <dir> (repeatable)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "quiet period before a changed file is parsed")
	cmd.Flags().BoolVar(&flags.existing, "existing", false, "also parse files already in <dir> at startup")

	return cmd
}

func runCredsWatch(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, credsFlags *credsFlagValues, flags *watchFlagValues, dir string) error {
	env, err := app.environment(cmd.Context(), rootFlags)
	if err != nil {
		return err
	}
	format, err := credsFlags.outputFormat(env)
	if err != nil {
		return err
	}

	patterns := env.cfg.Watch.Patterns
	if len(flags.patterns) > 0 {
		patterns = flags.patterns
	}
	debounce := env.cfg.Watch.Debounce
	if flags.debounce > 0 {
		debounce = flags.debounce
	}

	session := harvest.NewSession(
		harvest.WithLogger(env.logger),
		harvest.WithConcurrency(env.cfg.Concurrency),
		harvest.WithSink(harvest.NewRenderSink(app.stdout, format)),
		harvest.WithSkipUnreadable(),
	)

	w, err := watch.New(watch.Config{
		Dir:          dir,
		Patterns:     patterns,
		Ignore:       env.cfg.Watch.Ignore,
		Debounce:     debounce,
		ScanExisting: flags.existing,
		Logger:       env.logger,
		OnCapture: func(ctx context.Context, paths []string) error {
			report, err := session.ExtractFiles(ctx, paths...)
			if err != nil {
				return err
			}
			env.logger.Info("captures parsed", "files", len(paths), "new", len(report.Records), "total", session.Seen())
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintf(app.stderr, "%s Watching %s for captures (Ctrl+C to stop)...\n", KeyStyle.Render("→"), w.Dir())
	return w.Run(cmd.Context())
}
