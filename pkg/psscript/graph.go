// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"errors"

	"github.com/harvestkit/harvest/internal/dag"
)

// DependencyGraph builds a graph over every function in c with an edge from
// each dependency to the function that calls it. References to names that
// have no definition are left out.
func DependencyGraph(c *Catalog) *dag.Graph {
	g := dag.New()
	for _, name := range c.order {
		g.AddNode(name)
	}
	for _, name := range c.order {
		deps, _ := c.Dependencies(name)
		for _, dep := range deps {
			if _, ok := c.functions[dep]; ok {
				g.AddEdge(dep, name)
			}
		}
	}
	return g
}

// LoadOrder returns the catalog's functions so that each is defined before
// its callers. Recursive functions cannot be ordered; for those the source
// order is returned together with the *dag.CycleError naming them.
func LoadOrder(c *Catalog) ([]string, error) {
	order, err := DependencyGraph(c).TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return c.Names(), cycleErr
		}
		return nil, err
	}
	return order, nil
}
