// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harvestkit/harvest/pkg/psscript"
)

const (
	// LogLevelDebug logs parser diagnostics such as skipped sections.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs progress messages.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs unresolved names and unparsable input only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// OutputFormatTable renders a styled terminal table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON renders a JSON array.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML renders a YAML sequence.
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatTOML renders a TOML array of tables.
	OutputFormatTOML OutputFormat = "toml"
	// OutputFormatCSV renders comma-separated rows with a header.
	OutputFormatCSV OutputFormat = "csv"

	// maxConcurrency mirrors the upper bound in config_schema.cue.
	maxConcurrency = 64
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidOutputFormat is returned when an OutputFormat value is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format")
	// ErrInvalidConcurrency is returned when concurrency is outside 1..64.
	ErrInvalidConcurrency = errors.New("invalid concurrency")
	// ErrInvalidDebounce is returned when the watch debounce is not positive.
	ErrInvalidDebounce = errors.New("invalid watch debounce")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	logLevels     = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	outputFormats = []OutputFormat{OutputFormatTable, OutputFormatJSON, OutputFormatYAML, OutputFormatTOML, OutputFormatCSV}
)

type (
	// LogLevel is the minimum severity written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// OutputFormat selects how credential batches are rendered.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	// It wraps ErrInvalidOutputFormat for errors.Is() compatibility.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}

	// InvalidConfigError collects field-level validation errors.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// LogLevel sets the CLI logger level (default "warn").
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// OutputFormat is the default for `harvest creds` (default "table").
		OutputFormat OutputFormat `json:"output_format" mapstructure:"output_format"`
		// Keywords are substituted into every minimized script.
		Keywords []psscript.Keyword `json:"keywords" mapstructure:"keywords"`
		// Normalizer configures comment and noise stripping.
		Normalizer NormalizerConfig `json:"normalizer" mapstructure:"normalizer"`
		// Watch configures `harvest creds watch`.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Concurrency bounds parallel capture-file parsing.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
	}

	// NormalizerConfig configures the script normalizer.
	NormalizerConfig struct {
		StripPrefixes []string `json:"strip_prefixes" mapstructure:"strip_prefixes"`
	}

	// WatchConfig configures capture-directory watching.
	WatchConfig struct {
		Patterns []string      `json:"patterns" mapstructure:"patterns"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		Ignore   []string      `json:"ignore" mapstructure:"ignore"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     LogLevelWarn,
		OutputFormat: OutputFormatTable,
		Keywords:     []psscript.Keyword{},
		Normalizer: NormalizerConfig{
			StripPrefixes: slices.Clone(psscript.DefaultNoisePrefixes),
		},
		Watch: WatchConfig{
			Patterns: []string{"**/*.txt", "**/*.log"},
			Debounce: 500 * time.Millisecond,
			Ignore:   []string{"**/.*", "**/*~"},
		},
		Concurrency: 4,
	}
}

// IsValid returns whether the LogLevel is one of the known levels.
func (l LogLevel) IsValid() (bool, []error) {
	if slices.Contains(logLevels, l) {
		return true, nil
	}
	return false, []error{&InvalidLogLevelError{Value: l}}
}

// Level converts the LogLevel to a charmbracelet/log level, falling back to
// warn for unknown values.
func (l LogLevel) Level() log.Level {
	level, err := log.ParseLevel(string(l))
	if err != nil {
		return log.WarnLevel
	}
	return level
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the OutputFormat is one of the known formats.
func (f OutputFormat) IsValid() (bool, []error) {
	if slices.Contains(outputFormats, f) {
		return true, nil
	}
	return false, []error{&InvalidOutputFormatError{Value: f}}
}

// Error implements the error interface for InvalidOutputFormatError.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: table, json, yaml, toml, csv)", e.Value)
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// IsValid checks the constraints the CUE schema cannot express after decoding
// (a parsed debounce of zero, for example) and the enum fields for configs
// built in code.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.OutputFormat.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Concurrency < 1 || c.Concurrency > maxConcurrency {
		errs = append(errs, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidConcurrency, c.Concurrency, maxConcurrency))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s (must be positive)", ErrInvalidDebounce, c.Watch.Debounce))
	}
	for i, k := range c.Keywords {
		if k.Keyword == "" {
			errs = append(errs, fmt.Errorf("keywords[%d]: %w: empty keyword", i, psscript.ErrInvalidKeyword))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors so errors.Is matches
// both the sentinel and the specific field failure.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// KeywordSet returns the configured substitutions as an ordered snapshot.
func (c Config) KeywordSet() psscript.KeywordSet {
	return psscript.KeywordSet(c.Keywords).Clone()
}

// ScriptNormalizer builds a normalizer from the configured strip prefixes.
func (c Config) ScriptNormalizer() *psscript.Normalizer {
	return psscript.NewNormalizer(c.Normalizer.StripPrefixes...)
}
