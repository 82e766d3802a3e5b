package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/factstore"
)

// CycleWarning represents a potential reasoning cycle between rules.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Counters guarded by an absent condition
//   - Rules that consume the fact they react to
//   - Self-correcting feedback through unique_slot directives
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on a rule set.
//
// It builds a dependency graph in which rule A points to rule B when A
// asserts a fact of a template that one of B's match conditions reads, and
// reports each strongly connected component (Tarjan) with more than one
// rule, or a rule that triggers itself, as a potential cycle. Directives
// count as producing slot facts, and call_and_assert additionally as
// producing facts of its constant fact name.
//
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(rules []factstore.Rule) []CycleWarning {
	if len(rules) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(rules)
	sccs := tarjanSCC(graph, ruleNames(rules))

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps rule name → names of rules it could trigger.
type dependencyGraph map[string][]string

func ruleNames(rules []factstore.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// producedTemplates returns the templates an assert pattern can lead to.
func producedTemplates(pat factstore.Pattern) []string {
	if _, ok := engine.DirectiveShapes[pat.Template]; !ok {
		return []string{pat.Template}
	}
	out := []string{engine.SlotTemplate}
	if pat.Template == engine.DirectiveCallAndAssert && len(pat.Terms) > 0 && pat.Terms[0].Kind == factstore.TermConst {
		if name, ok := factstore.Text(pat.Terms[0].Value); ok {
			out = append(out, name)
		}
	}
	return out
}

// buildDependencyGraph constructs the rule dependency graph.
func buildDependencyGraph(rules []factstore.Rule) dependencyGraph {
	graph := make(dependencyGraph)

	// template → rules with a match condition on it, in declaration order
	readers := make(map[string][]string)
	for _, r := range rules {
		for _, c := range r.Conditions {
			if c.Absent {
				continue
			}
			if !slices.Contains(readers[c.Pattern.Template], r.Name) {
				readers[c.Pattern.Template] = append(readers[c.Pattern.Template], r.Name)
			}
		}
	}

	for _, r := range rules {
		if graph[r.Name] == nil {
			graph[r.Name] = []string{}
		}
		for _, a := range r.Actions {
			if a.Kind != factstore.ActionAssert {
				continue
			}
			for _, tmpl := range producedTemplates(a.Pattern) {
				for _, reader := range readers[tmpl] {
					if !slices.Contains(graph[r.Name], reader) {
						graph[r.Name] = append(graph[r.Name], reader)
					}
				}
			}
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
//
// Returns a list of SCCs, where each SCC is a list of rule names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes
	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// The path shows the cycle sequence by reconstructing a path through the SCC.
// For self-loops, the path is [rule, rule].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		// Self-loop
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-triggering rule detected: %s → %s", name, name),
			Level:   "warning",
		}
	}

	// Multi-node cycle - reconstruct a cycle path
	path := reconstructCyclePath(scc, graph)

	pathStr := strings.Join(path, " → ")
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential cycle detected: %s", pathStr),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
