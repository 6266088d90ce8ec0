// SPDX-License-Identifier: MPL-2.0

package harvest

import (
	"errors"
	"slices"

	"github.com/harvestkit/harvest/internal/dag"
	"github.com/harvestkit/harvest/pkg/psscript"
)

// FunctionInfo describes one catalog entry for listing.
type FunctionInfo struct {
	Name string
	// Dependencies are the direct references that resolve to definitions.
	Dependencies []string
	// Indirect are definitions needed only through other dependencies.
	Indirect []string
	// Missing are direct references (PSReflect helpers) with no definition.
	Missing []string
}

// Listing is the `functions` view of a catalog.
type Listing struct {
	Functions []FunctionInfo
	// Duplicates are names defined more than once; the last definition wins.
	Duplicates []string
	// Cycles lists the functions involved in recursion when the load order
	// could not be computed.
	Cycles []string
}

// DescribeFunctions lists every function of c in source order, or in
// dependency-first order when ordered is set and the graph is acyclic.
func DescribeFunctions(c *psscript.Catalog, ordered bool) Listing {
	g := psscript.DependencyGraph(c)
	listing := Listing{
		Functions:  make([]FunctionInfo, 0, g.Len()),
		Duplicates: c.Duplicates(),
	}

	names := c.Names()
	if ordered {
		order, err := psscript.LoadOrder(c)
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			listing.Cycles = cycleErr.Cycle
		}
		names = order
	}

	for _, name := range names {
		info := FunctionInfo{Name: name, Dependencies: g.Predecessors(name)}
		refs, _ := c.Dependencies(name)
		for _, ref := range refs {
			if !g.Has(ref) {
				info.Missing = append(info.Missing, ref)
			}
		}
		for _, anc := range g.Ancestors(name) {
			if anc != name && !slices.Contains(info.Dependencies, anc) {
				info.Indirect = append(info.Indirect, anc)
			}
		}
		listing.Functions = append(listing.Functions, info)
	}
	return listing
}
