// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"regexp"
	"slices"
	"strings"
)

// headerStart matches the introducer of a top-level function or filter.
var headerStart = regexp.MustCompile(`(?m)^(?:function|filter)\s`)

// headerPattern extracts header texts for FunctionNames.
var headerPattern = regexp.MustCompile(`function(.*)\{`)

type (
	// Function is one top-level definition from a script.
	Function struct {
		// Name is the function name as written in the header.
		Name string
		// Body is the normalized definition, header included.
		Body string
	}

	// Catalog maps function names to their definitions. It is built once by
	// ParseCatalog and never modified afterwards.
	Catalog struct {
		functions map[string]Function
		// order holds names in the position of their first definition.
		order []string
		// folded maps lower-cased names to catalog names.
		folded map[string]string
		// matchers holds a case-insensitive literal pattern per name.
		matchers map[string]*regexp.Regexp
		// duplicates lists names defined more than once, in source order.
		duplicates []string
	}
)

// ParseCatalog extracts every top-level function and filter from script.
// When a name is defined twice the later body replaces the earlier one. A
// script without definitions yields an empty catalog.
func ParseCatalog(script string, opts ...Option) *Catalog {
	o := applyOptions(opts)

	c := &Catalog{
		functions: make(map[string]Function),
		folded:    make(map[string]string),
		matchers:  make(map[string]*regexp.Regexp),
	}

	text := strings.ReplaceAll(script, "\r\n", "\n")

	for pos := 0; pos < len(text); {
		loc := headerStart.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		end, ok := blockEnd(text, start)
		if !ok {
			o.logger.Debug("skipping definition with unbalanced braces", "header", firstLine(text[start:]))
			pos = nextLine(text, start)
			continue
		}
		match := text[start:end]
		pos = nextLine(text, end-1)

		name := definitionName(match)
		if name == "" {
			o.logger.Debug("skipping definition without a name", "header", firstLine(match))
			continue
		}

		if _, exists := c.functions[name]; exists {
			o.logger.Warn("function defined more than once; keeping the last definition", "function", name)
			c.duplicates = append(c.duplicates, name)
		} else {
			c.order = append(c.order, name)
			c.folded[strings.ToLower(name)] = name
			c.matchers[name] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
		}

		c.functions[name] = Function{
			Name: name,
			Body: o.normalizer.Normalize(match),
		}
	}

	return c
}

// definitionName returns the second whitespace-separated token of the
// header, without a trailing "{" or parameter list.
func definitionName(match string) string {
	header := firstLine(match)
	if i := strings.Index(header, "{"); i >= 0 {
		header = header[:i]
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return ""
	}
	name := fields[1]
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	return name
}

// blockEnd returns the offset just past the brace that closes the first "{"
// at or after start. Quoted strings, here-strings and comments are skipped
// so braces inside them do not count. ok is false when the block never
// closes.
func blockEnd(text string, start int) (end int, ok bool) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch c := text[i]; {
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return i + 1, true
			}
		case strings.HasPrefix(text[i:], "<#"):
			i = skipPast(text, i+2, "#>")
		case c == '#':
			i = skipPast(text, i+1, "\n") - 1
		case strings.HasPrefix(text[i:], "@'\n"):
			i = skipPast(text, i+3, "\n'@") - 1
		case strings.HasPrefix(text[i:], "@\"\n"):
			i = skipPast(text, i+3, "\n\"@") - 1
		case c == '\'':
			i = skipPast(text, i+1, "'") - 1
		case c == '"':
			i = skipString(text, i+1) - 1
		}
	}
	return 0, false
}

// skipPast returns the offset after the next occurrence of delim at or after
// from, or len(text) when there is none.
func skipPast(text string, from int, delim string) int {
	j := strings.Index(text[from:], delim)
	if j < 0 {
		return len(text)
	}
	return from + j + len(delim)
}

// skipString returns the offset after the double quote that closes a string
// opened just before from. A backtick escapes the next character.
func skipString(text string, from int) int {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '`':
			i++
		case '"':
			return i + 1
		}
	}
	return len(text)
}

// nextLine returns the offset of the line following the one holding i.
func nextLine(text string, i int) int {
	j := strings.IndexByte(text[i:], '\n')
	if j < 0 {
		return len(text)
	}
	return i + j + 1
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n")
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// Len returns the number of distinct functions.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Names returns function names in source order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.order)
}

// Duplicates returns the names that were defined more than once.
func (c *Catalog) Duplicates() []string {
	return slices.Clone(c.duplicates)
}

// Lookup returns the definition stored under name.
func (c *Catalog) Lookup(name string) (Function, bool) {
	fn, ok := c.functions[name]
	return fn, ok
}

// Canonical maps name to the catalog spelling, ignoring case. It returns
// name unchanged when no function matches.
func (c *Catalog) Canonical(name string) string {
	if _, ok := c.functions[name]; ok {
		return name
	}
	if canonical, ok := c.folded[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// FunctionNames returns the header text of every "function ... {" line in
// script, trimmed, in source order. Unlike ParseCatalog it does not require
// the definition to be well formed.
func FunctionNames(script string) []string {
	matches := headerPattern.FindAllStringSubmatch(script, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}
