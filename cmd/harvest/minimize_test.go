// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harvestkit/harvest/internal/harvest"
	"github.com/harvestkit/harvest/internal/testutil"
)

const toolkitScript = `<# recon toolkit #>
function Get-Searcher {
    # build the searcher
    New-Object System.DirectoryServices.DirectorySearcher
}

function Get-User {
    Write-Verbose "searching"
    Get-Searcher
}

function Invoke-Hunt {
    Get-User | Select-Object name
}

function Unused {
    'never called'
}

function Unused {
    'redefined'
}
`

func TestMinimizeCommand(t *testing.T) {
	t.Parallel()
	script := testutil.WriteFile(t, t.TempDir(), "toolkit.ps1", toolkitScript)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name:    "single entry point",
			args:    []string{"minimize", script, "-f", "Get-User"},
			want:    []string{"function Get-User {", "function Get-Searcher {"},
			notWant: []string{"Invoke-Hunt", "Unused", "Write-Verbose", "# build", "recon toolkit"},
		},
		{
			name: "comma separated and case-insensitive",
			args: []string{"minimize", script, "-f", "invoke-hunt,unused"},
			want: []string{"function Invoke-Hunt {", "function Get-User {", "'redefined'"},
		},
		{
			name:    "keyword substitution",
			args:    []string{"minimize", script, "-f", "Invoke-Hunt", "-k", "Invoke-Hunt=Start-Sweep", "-k", "Searcher=Finder"},
			want:    []string{"function Start-Sweep {", "function Get-Finder {", "DirectoryFinder"},
			notWant: []string{"Invoke-Hunt", "Searcher"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := runCLI(t, context.Background(), Dependencies{}, tt.args...)
			if res.err != nil {
				t.Fatalf("minimize failed: %v\n%s", res.err, res.stderr)
			}
			for _, want := range tt.want {
				if !strings.Contains(res.stdout, want) {
					t.Errorf("output missing %q:\n%s", want, res.stdout)
				}
			}
			for _, unwanted := range tt.notWant {
				if strings.Contains(res.stdout, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, res.stdout)
				}
			}
		})
	}
}

func TestMinimizeCommand_ConfigKeywordsAndOutputFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	script := testutil.WriteFile(t, dir, "toolkit.ps1", toolkitScript)
	testutil.WriteFile(t, dir, "cfg/config.cue", `keywords: [{keyword: "Get-User", replacement: "Get-Account"}]`)
	out := filepath.Join(dir, "out", "min.ps1")

	res := runCLI(t, context.Background(), Dependencies{ConfigDir: filepath.Join(dir, "cfg")},
		"minimize", script, "-f", "Invoke-Hunt", "-o", out)
	if res.err != nil {
		t.Fatalf("minimize failed: %v", res.err)
	}
	if res.stdout != "" {
		t.Errorf("stdout should be empty when writing to a file, got %q", res.stdout)
	}
	if !strings.Contains(res.stderr, "Wrote 3 function(s)") {
		t.Errorf("stderr missing summary:\n%s", res.stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "function Get-Account {") || strings.Contains(string(data), "Get-User") {
		t.Errorf("configured keyword not applied:\n%s", data)
	}
}

func TestMinimizeCommand_Stdin(t *testing.T) {
	t.Parallel()

	res := runCLI(t, context.Background(), Dependencies{Stdin: strings.NewReader(toolkitScript)},
		"minimize", "-", "-f", "Get-Searcher")
	if res.err != nil {
		t.Fatalf("minimize failed: %v", res.err)
	}
	if want := "function Get-Searcher {\n    New-Object System.DirectoryServices.DirectorySearcher\n}\n\n"; res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}
}

func TestMinimizeCommand_Unresolved(t *testing.T) {
	t.Parallel()
	script := testutil.WriteFile(t, t.TempDir(), "toolkit.ps1", toolkitScript)

	res := runCLI(t, context.Background(), Dependencies{}, "minimize", script, "-f", "Get-User", "-f", "Get-Nothing")
	if res.err != nil {
		t.Fatalf("unresolved names should not fail without --strict: %v", res.err)
	}
	if !strings.Contains(res.stderr, "Get-Nothing") {
		t.Errorf("expected a warning naming the missing function, got:\n%s", res.stderr)
	}
	if !strings.Contains(res.stdout, "function Get-User {") {
		t.Errorf("resolved functions should still be written:\n%s", res.stdout)
	}

	res = runCLI(t, context.Background(), Dependencies{}, "minimize", script, "-f", "Get-Nothing", "--strict")
	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) || exitErr.Code != ExitIncomplete {
		t.Fatalf("expected ExitError with code %d, got %v", ExitIncomplete, res.err)
	}
}

func TestMinimizeCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no functions", []string{"minimize", "toolkit.ps1"}, harvest.ErrNoEntryPoints},
		{"missing script", []string{"minimize", filepath.Join(t.TempDir(), "gone.ps1"), "-f", "A"}, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := runCLI(t, context.Background(), Dependencies{}, tt.args...)
			if !errors.Is(res.err, tt.want) {
				t.Errorf("error = %v, want %v", res.err, tt.want)
			}
		})
	}

	res := runCLI(t, context.Background(), Dependencies{}, "minimize", "toolkit.ps1", "-f", "A", "-k", "no-equals-sign")
	if res.err == nil || !strings.Contains(res.err.Error(), "keyword=replacement") {
		t.Errorf("expected keyword parse error, got %v", res.err)
	}
}
