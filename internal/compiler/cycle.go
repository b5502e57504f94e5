package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/patchbay/internal/ir"
)

// RefCycle is a set of chains that read each other's output.
//
// The signal graph has no feedback paths, so every cycle found here makes a
// program unusable. A chain that references itself is reported as a cycle
// of length one.
type RefCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["~a", "~b", "~a"]
	Message string   `json:"message"` // Human-readable description
}

// refGraph maps chain name → chains whose output it reads.
type refGraph map[string][]string

// AnalyzeRefCycles reports every reference cycle in the program.
//
// The algorithm:
//  1. Build chain → referenced chain edges from every clause
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// References to chains that do not exist are ignored here; they are a
// resolution failure, not a cycle. Output is deterministic: chains are
// visited in sorted order and each path starts at its smallest name.
func AnalyzeRefCycles(p ir.Program) []RefCycle {
	graph := buildRefGraph(p)

	var cycles []RefCycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Path[0] < cycles[j].Path[0] })
	return cycles
}

func buildRefGraph(p ir.Program) refGraph {
	graph := make(refGraph, len(p.Chains))
	for name, c := range p.Chains {
		graph[name] = []string{}
		seen := make(map[string]bool)
		for _, cl := range c.Params {
			for _, ref := range cl.Refs() {
				if !p.Has(ref) || seen[ref] {
					continue
				}
				seen[ref] = true
				graph[name] = append(graph[name], ref)
			}
		}
		sort.Strings(graph[name])
	}
	return graph
}

// hasSelfLoop checks if a chain references itself.
func hasSelfLoop(node string, graph refGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph refGraph) [][]string {
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
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
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

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph refGraph) RefCycle {
	sort.Strings(scc)
	if len(scc) == 1 {
		name := scc[0]
		return RefCycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("chain reads its own output: %s → %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return RefCycle{
		Path:    path,
		Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until the walk returns to the start.
func reconstructCyclePath(scc []string, graph refGraph) []string {
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
