// SPDX-License-Identifier: MPL-2.0

// Package psscript minimizes PowerShell scripts.
//
// A large script is parsed into a Catalog of top-level function and filter
// definitions. Resolve computes the set of functions an entry point needs by
// following whole-word references between bodies, and Assemble concatenates
// the resolved bodies into a self-contained script with comments, blank lines
// and verbose/debug statements removed.
//
// Dependency detection is textual: a function depends on every other catalog
// name that appears in its body as a whole word, compared case-insensitively.
// Bodies that touch the PSReflect module variables ($Kernel32, $Advapi32,
// $Netapi32, $Wtsapi32) additionally pull in the PSReflect helper functions,
// and the assembled script then carries the PSReflect type definitions copied
// from the source script.
//
// # Usage
//
//	result := psscript.Minimize(source, []string{"Get-DomainUser"},
//	    psscript.WithKeywords(psscript.KeywordSet{{Keyword: "Get-DomainUser", Replacement: "Get-DU"}}),
//	)
//	if !result.Resolution.Complete() {
//	    for _, w := range result.Warnings {
//	        fmt.Fprintln(os.Stderr, w)
//	    }
//	}
//	fmt.Print(result.Script)
//
// Every function in this package is safe for concurrent use; a Catalog is
// immutable once built.
package psscript
