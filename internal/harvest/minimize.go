// SPDX-License-Identifier: MPL-2.0

package harvest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harvestkit/harvest/internal/issue"
	"github.com/harvestkit/harvest/pkg/psscript"
)

// StdioPath names stdin as an input and stdout as an output.
const StdioPath = "-"

// ErrNoEntryPoints is returned when minimization is requested without any
// function names.
var ErrNoEntryPoints = errors.New("no entry-point functions given")

// ReadScript returns the contents of path, or of stdin when path is "-".
func ReadScript(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == StdioPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("read script").
			WithResource(path).
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Pass - to read the script from stdin").
			Wrap(err).
			BuildError()
	}
	return string(data), nil
}

// MinimizeScript reads the script at path and minimizes it for entries.
// Unresolved names are reported in the result, not as an error.
func MinimizeScript(path string, stdin io.Reader, entries []string, opts ...psscript.Option) (psscript.MinimizeResult, error) {
	if len(entries) == 0 {
		return psscript.MinimizeResult{}, issue.NewErrorContext().
			WithOperation("minimize script").
			WithResource(path).
			WithSuggestion("Name at least one function with -f, e.g. -f Invoke-UserHunter").
			WithSuggestion("Run 'harvest functions " + path + "' to list the available functions").
			Wrap(ErrNoEntryPoints).
			BuildError()
	}

	source, err := ReadScript(path, stdin)
	if err != nil {
		return psscript.MinimizeResult{}, err
	}
	return psscript.Minimize(source, entries, opts...), nil
}

// WriteOutput writes content to path, or to stdout when path is "-" or empty.
// Parent directories are created as needed.
func WriteOutput(path string, stdout io.Writer, content string) error {
	if path == "" || path == StdioPath {
		_, err := io.WriteString(stdout, content)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return issue.WrapWithContext(fmt.Errorf("create output directory: %w", err), "write output", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return issue.NewErrorContext().
			WithOperation("write output").
			WithResource(path).
			WithSuggestion("Check directory permissions").
			WithSuggestion("Use -o - to print to stdout").
			Wrap(err).
			BuildError()
	}
	return nil
}
