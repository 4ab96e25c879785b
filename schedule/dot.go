package schedule

import (
	"fmt"
	"strings"
)

// DOT renders the execution graph in Graphviz's DOT language, grounded on
// the original implementation's dumpMermaid-style graph introspection
// (§4.9, item 4 of the supplemented-feature list). Nodes are labeled with
// their system name; edges point from a dependency to its dependent.
func (g *ExecutionGraph[K]) DOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", g.Stage)
	fmt.Fprintf(&b, "  rankdir=LR;\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "  %q;\n", n.Name)
	}
	for _, n := range g.Nodes {
		for _, to := range n.outgoing {
			fmt.Fprintf(&b, "  %q -> %q;\n", n.Name, g.Nodes[to].Name)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
