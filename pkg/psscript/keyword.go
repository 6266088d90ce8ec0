// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidKeyword is returned when a keyword substitution cannot be parsed.
var ErrInvalidKeyword = errors.New("invalid keyword substitution")

type (
	// Keyword replaces every literal occurrence of Keyword with Replacement.
	Keyword struct {
		Keyword     string `json:"keyword" mapstructure:"keyword"`
		Replacement string `json:"replacement" mapstructure:"replacement"`
	}

	// KeywordSet is an ordered snapshot of substitutions. Each pair is applied
	// to the output of the previous one.
	KeywordSet []Keyword
)

// ParseKeyword parses "keyword=replacement". The keyword must be non-empty;
// the replacement may be empty.
func ParseKeyword(s string) (Keyword, error) {
	keyword, replacement, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(keyword) == "" {
		return Keyword{}, fmt.Errorf("%w: %q (expected keyword=replacement)", ErrInvalidKeyword, s)
	}
	return Keyword{Keyword: keyword, Replacement: replacement}, nil
}

// Apply runs every substitution over text in order. Empty keywords are
// skipped.
func (ks KeywordSet) Apply(text string) string {
	for _, k := range ks {
		if k.Keyword == "" {
			continue
		}
		text = strings.ReplaceAll(text, k.Keyword, k.Replacement)
	}
	return text
}

// Clone returns an independent copy of the set.
func (ks KeywordSet) Clone() KeywordSet {
	return slices.Clone(ks)
}
