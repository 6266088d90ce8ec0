// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/harvestkit/harvest/internal/issue"
	"github.com/harvestkit/harvest/internal/testutil"
	"github.com/harvestkit/harvest/pkg/psscript"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), ConfigFileName+"."+ConfigFileExt, content)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.OutputFormat != OutputFormatTable {
		t.Errorf("OutputFormat = %q, want table", cfg.OutputFormat)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %s, want 500ms", cfg.Watch.Debounce)
	}
	if diff := cmp.Diff(psscript.DefaultNoisePrefixes, cfg.Normalizer.StripPrefixes); diff != "" {
		t.Errorf("StripPrefixes mismatch (-want +got):\n%s", diff)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config should be valid, got %v", errs)
	}
}

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CustomPath_Valid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log_level: "debug"
output_format: "json"
concurrency: 8
keywords: [
	{keyword: "Invoke-Mimikatz", replacement: "Invoke-Thing"},
	{keyword: "mimikatz", replacement: ""},
]
normalizer: strip_prefixes: ["write-host "]
watch: {
	patterns: ["captures/**/*.out"]
	debounce: "2s"
}
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	want := DefaultConfig()
	want.LogLevel = LogLevelDebug
	want.OutputFormat = OutputFormatJSON
	want.Concurrency = 8
	want.Keywords = []psscript.Keyword{
		{Keyword: "Invoke-Mimikatz", Replacement: "Invoke-Thing"},
		{Keyword: "mimikatz"},
	}
	want.Normalizer.StripPrefixes = []string{"write-host "}
	want.Watch.Patterns = []string{"captures/**/*.out"}
	want.Watch.Debounce = 2 * time.Second

	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown level", `log_level: "loud"`, "log_level"},
		{"unknown format", `output_format: "xml"`, "output_format"},
		{"concurrency too high", `concurrency: 65`, "concurrency"},
		{"empty keyword", `keywords: [{keyword: ""}]`, "keywords[0].keyword"},
		{"bad debounce", `watch: debounce: "soon"`, "watch.debounce"},
		{"unknown field", `colour: "red"`, "colour"},
		{"syntax error", `this is not valid CUE syntax {{{{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected error for invalid config")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T: %v", err, err)
			}
			if ae.Operation != "load configuration" {
				t.Errorf("Operation = %q, want load configuration", ae.Operation)
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error should contain the path, got: %s", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error should mention %q, got: %s", tt.wantMsg, err)
			}
		})
	}
}

func TestLoad_ZeroDebounceFailsValidation(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `watch: debounce: "0s"`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if !errors.Is(err, ErrInvalidDebounce) {
		t.Fatalf("expected ErrInvalidDebounce, got %v", err)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected error to wrap ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_CustomPath_NotFound(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "missing.cue")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error should contain 'config file not found', got: %s", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Fatalf("expected actionable error with suggestions, got %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInit_WritesLoadableDefaults(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), AppName)
	opts := LoadOptions{ConfigDirPath: dir}

	path, created, err := Init(opts)
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if !created {
		t.Error("expected Init() to create the file")
	}
	if want := filepath.Join(dir, "config.cue"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	cfg, resolved, err := loadWithOptions(context.Background(), opts)
	if err != nil {
		t.Fatalf("loading generated config failed: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round-tripped config mismatch (-want +got):\n%s", diff)
	}

	if _, created, err = Init(opts); err != nil || created {
		t.Errorf("second Init() = created %v, err %v; want false, nil", created, err)
	}
}

func TestGenerateCUE_Keywords(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Keywords = []psscript.Keyword{{Keyword: "a", Replacement: "b"}}

	out := GenerateCUE(cfg)
	if !strings.Contains(out, `{keyword: "a", replacement: "b"},`) {
		t.Errorf("GenerateCUE() missing keyword entry:\n%s", out)
	}
	if !strings.Contains(out, `debounce: "500ms"`) {
		t.Errorf("GenerateCUE() missing debounce:\n%s", out)
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path, exists, err := NewProvider().Locate(LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Locate() returned error: %v", err)
	}
	if exists {
		t.Error("expected no config file in an empty directory")
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	explicit := writeConfig(t, `log_level: "info"`)
	path, exists, err = NewProvider().Locate(LoadOptions{ConfigFilePath: explicit, ConfigDirPath: dir})
	if err != nil || !exists || path != explicit {
		t.Errorf("Locate(explicit) = %q, %v, %v", path, exists, err)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG lookup applies to Linux and other Unix systems")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("ConfigDir() = %q, want suffix %q", dir, AppName)
	}
}

func TestConfigDir_HomeFallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Windows resolves %APPDATA% first")
	}
	home := t.TempDir()
	testutil.SetHomeDir(t, home)
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}

	want := filepath.Join(home, ".config", AppName)
	if runtime.GOOS == "darwin" {
		want = filepath.Join(home, "Library", "Application Support", AppName)
	}
	if dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}
