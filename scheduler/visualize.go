package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/structs"

	"github.com/productgraph/pgsched/graph"
	"github.com/productgraph/pgsched/types"
)

// Visualize renders every node in the graph as a Graphviz DOT digraph,
// roots first, one box per node labeled with its id, subject, product,
// state and (for Noop) reason; edges are not emitted, so unrelated nodes
// appear too. fatih/structs flattens a struct subject's fields into
// the label the way the teacher's node inspector flattens a component's
// configuration for its own debug dump.
func (s *Scheduler) Visualize(roots []graph.NodeID) string {
	var b strings.Builder
	b.WriteString("digraph productgraph {\n")
	b.WriteString("  rankdir=LR;\n  node [shape=box,fontname=monospace];\n")

	visited := make(map[graph.NodeID]bool)
	var visit func(id graph.NodeID)
	visit = func(id graph.NodeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		fmt.Fprintf(&b, "  %s [label=%q,color=%q];\n", id, nodeLabel(s.graph, id), stateColor(s.graph.State(id)))
	}

	for _, root := range roots {
		visit(root)
	}
	s.graph.Nodes(func(id graph.NodeID) {
		visit(id)
	})

	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(g *graph.Graph, id graph.NodeID) string {
	subject := g.Subject(id)
	fields := subjectFields(subject)
	label := fmt.Sprintf("%s\\nsubject=%v\\nproduct=%s\\nstate=%s", id, fields, g.Product(id), g.State(id))
	if reason := g.NoopReason(id); reason != nil {
		label += fmt.Sprintf("\\nnoop=%s", reason)
	}
	return label
}

// subjectFields renders a struct subject's exported fields in sorted key
// order for a stable label; non-struct subjects (e.g. plain strings) fall
// back to their fmt.Sprintf form.
func subjectFields(subject any) string {
	if subject == nil || !structs.IsStruct(subject) {
		return fmt.Sprintf("%v", subject)
	}
	m := structs.Map(subject)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ",")
}

func stateColor(s types.State) string {
	switch s {
	case types.Return:
		return "darkgreen"
	case types.Throw:
		return "red"
	case types.Noop:
		return "gray40"
	case types.Runnable:
		return "blue"
	default:
		return "black"
	}
}
