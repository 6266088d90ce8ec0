// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"fmt"
	"regexp"
	"slices"
)

// interopPattern detects use of the PSReflect module variables.
var interopPattern = regexp.MustCompile(`(?i)\$(?:Netapi32|Advapi32|Kernel32|Wtsapi32)`)

// InteropHelpers are the PSReflect functions required whenever a body
// references a PSReflect module variable.
var InteropHelpers = []string{"New-InMemoryModule", "func", "Add-Win32Type", "psenum", "struct"}

// Resolution is the outcome of Resolve. Names is always usable; Unresolved
// lists the names that had no definition in the catalog.
type Resolution struct {
	// Names is the closure in discovery order, without duplicates.
	Names []string
	// Unresolved holds requested or discovered names missing from the catalog.
	Unresolved []string
}

// Complete reports whether every name in the closure had a definition.
func (r Resolution) Complete() bool {
	return len(r.Unresolved) == 0
}

// Warnings renders one message per unresolved name.
func (r Resolution) Warnings() []string {
	warnings := make([]string, 0, len(r.Unresolved))
	for _, name := range r.Unresolved {
		warnings = append(warnings, fmt.Sprintf("function %q not found in script", name))
	}
	return warnings
}

// UsesInterop reports whether any PSReflect helper is part of the closure.
func (r Resolution) UsesInterop() bool {
	for _, name := range r.Names {
		if slices.Contains(InteropHelpers, name) {
			return true
		}
	}
	return false
}

// Resolve returns the functions needed by entries: the entries themselves
// plus everything their bodies transitively reference. Entry names are
// matched case-insensitively against the catalog. Names without a
// definition stay in the result and are reported in Unresolved; resolution of
// the remaining names continues.
func Resolve(c *Catalog, entries ...string) Resolution {
	var res Resolution
	seen := make(map[string]bool)
	missing := make(map[string]bool)

	for _, entry := range entries {
		names, unresolved := c.closure(c.Canonical(entry))
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				res.Names = append(res.Names, name)
			}
		}
		for _, name := range unresolved {
			if !missing[name] {
				missing[name] = true
				res.Unresolved = append(res.Unresolved, name)
			}
		}
	}

	return res
}

// closure walks the reference graph from entry with an explicit stack.
// Dependencies join the result when discovered, so the order reflects
// depth-first expansion. The stack only accepts names not yet in the result,
// and the result only grows, which bounds the walk by the catalog size.
func (c *Catalog) closure(entry string) (names, unresolved []string) {
	inResult := make(map[string]bool)
	stack := []string{entry}

	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !inResult[name] {
			inResult[name] = true
			names = append(names, name)
		}

		deps, ok := c.Dependencies(name)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}

		for _, dep := range deps {
			if inResult[dep] {
				continue
			}
			inResult[dep] = true
			names = append(names, dep)
			stack = append(stack, dep)
		}
	}

	return names, unresolved
}

// Dependencies returns the names referenced by the body of name, in catalog
// order, followed by the PSReflect helpers when the body uses a PSReflect
// module variable. The boolean is false when name has no definition.
func (c *Catalog) Dependencies(name string) ([]string, bool) {
	fn, ok := c.functions[name]
	if !ok {
		return nil, false
	}

	var deps []string
	for _, candidate := range c.order {
		if candidate == name {
			continue
		}
		if referencesWord(fn.Body, c.matchers[candidate]) {
			deps = append(deps, candidate)
		}
	}

	if interopPattern.MatchString(fn.Body) {
		for _, helper := range InteropHelpers {
			if helper != name && !slices.Contains(deps, helper) {
				deps = append(deps, helper)
			}
		}
	}

	return deps, true
}

// referencesWord reports whether pattern matches body at a position not
// glued to other identifier characters.
func referencesWord(body string, pattern *regexp.Regexp) bool {
	for _, loc := range pattern.FindAllStringIndex(body, -1) {
		if loc[0] > 0 && isWordByte(body[loc[0]-1]) {
			continue
		}
		if loc[1] < len(body) && isWordByte(body[loc[1]]) {
			continue
		}
		return true
	}
	return false
}

// isWordByte reports whether b can continue a PowerShell command name. A
// quote counts as part of the word so that quoted names are not calls.
func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_', b == '-', b == '\'':
		return true
	}
	return false
}
