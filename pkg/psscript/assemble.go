// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"regexp"
	"strings"
)

// interopProbeLen is how much of the source is inspected to pick the
// boilerplate variant.
const interopProbeLen = 100

var (
	// powerUpBoilerplate spans PowerUp's PSReflect module and type setup.
	powerUpBoilerplate = regexp.MustCompile(`(?s)\n\$Module =.*\['kernel32'\]`)
	// powerViewBoilerplate spans PowerView's PSReflect module and type setup.
	powerViewBoilerplate = regexp.MustCompile(`(?s)\n\$Mod =.*\['wtsapi32'\]`)
)

// Assembly is a minimized script plus any non-fatal problems met while
// building it.
type Assembly struct {
	Script   string
	Warnings []string
}

// Assemble concatenates the bodies of the resolved names in order, each
// terminated by a newline. Unresolved names are skipped. When the closure
// contains a PSReflect helper the PSReflect boilerplate from source is
// appended; if it cannot be located the script is returned without it and a
// warning is recorded.
func Assemble(c *Catalog, res Resolution, source string, opts ...Option) Assembly {
	o := applyOptions(opts)

	var (
		sb  strings.Builder
		asm Assembly
	)
	for _, name := range res.Names {
		fn, ok := c.Lookup(name)
		if !ok {
			continue
		}
		sb.WriteString(fn.Body)
		sb.WriteString("\n")
	}

	if res.UsesInterop() {
		boilerplate, ok := InteropBoilerplate(source, o.normalizer)
		if ok {
			sb.WriteString(boilerplate)
		} else {
			o.logger.Warn("PSReflect boilerplate not found in source script")
			asm.Warnings = append(asm.Warnings, "PSReflect boilerplate not found in source script")
		}
	}

	sb.WriteString("\n")
	asm.Script = sb.String()
	return asm
}

// InteropBoilerplate extracts the normalized PSReflect setup block from
// source. Sources whose first bytes mention PowerUp use the "$Module"
// layout ending at the kernel32 type; all others use PowerView's "$Mod"
// layout ending at the wtsapi32 type. A nil normalizer means the default.
func InteropBoilerplate(source string, n *Normalizer) (string, bool) {
	if n == nil {
		n = defaultNormalizer
	}

	pattern := powerViewBoilerplate
	if strings.Contains(source[:min(len(source), interopProbeLen)], "PowerUp") {
		pattern = powerUpBoilerplate
	}

	match := pattern.FindString(source)
	if match == "" {
		return "", false
	}
	return n.Normalize(match), true
}

// MinimizeResult is the outcome of Minimize.
type MinimizeResult struct {
	// Script is the minimized script after keyword substitution.
	Script string
	// Catalog is the function catalog parsed from the source.
	Catalog *Catalog
	// Resolution is the closure of the requested entries.
	Resolution Resolution
	// Warnings collects unresolved names and assembly problems.
	Warnings []string
}

// Minimize parses source, resolves entries and assembles the minimized
// script, then applies any keyword substitutions. It never fails: problems
// are reported in Warnings.
func Minimize(source string, entries []string, opts ...Option) MinimizeResult {
	o := applyOptions(opts)

	catalog := ParseCatalog(source, opts...)
	res := Resolve(catalog, entries...)
	for _, name := range res.Unresolved {
		o.logger.Warn("function not found in script", "function", name)
	}

	asm := Assemble(catalog, res, source, opts...)
	warnings := append(res.Warnings(), asm.Warnings...)

	return MinimizeResult{
		Script:     o.keywords.Apply(asm.Script),
		Catalog:    catalog,
		Resolution: res,
		Warnings:   warnings,
	}
}
