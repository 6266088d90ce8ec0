// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"regexp"
	"slices"
	"strings"
)

// blockCommentPattern matches a PowerShell block comment, which may span lines.
var blockCommentPattern = regexp.MustCompile(`(?s)<#.*?#>`)

// DefaultNoisePrefixes are the statement prefixes stripped by Normalize.
// Matching is case-insensitive against the trimmed line.
var DefaultNoisePrefixes = []string{"write-verbose ", "write-debug "}

var defaultNormalizer = NewNormalizer(DefaultNoisePrefixes...)

// Normalizer strips comments, blank lines and noise statements from
// PowerShell source.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer creates a Normalizer that drops lines starting with any of the
// given prefixes. Prefixes are lower-cased; empty prefixes are ignored because
// they would match every line.
func NewNormalizer(prefixes ...string) *Normalizer {
	lowered := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(p))
	}
	return &Normalizer{prefixes: lowered}
}

// Prefixes returns a copy of the lower-cased noise prefixes.
func (n *Normalizer) Prefixes() []string {
	return slices.Clone(n.prefixes)
}

// Normalize removes block comments, line comments, blank lines and noise
// statements from text. Surviving lines are kept verbatim and joined with
// "\n". An unterminated "<#" is left untouched.
func (n *Normalizer) Normalize(text string) string {
	// Removing one comment can splice a new "<#...#>" out of its
	// neighbours, so strip until nothing changes.
	for {
		stripped := blockCommentPattern.ReplaceAllString(text, "\n")
		if stripped == text {
			break
		}
		text = stripped
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if n.isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (n *Normalizer) isNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, p := range n.prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Normalize strips text with the default noise prefixes.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}
