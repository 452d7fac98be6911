// Package loop runs the three-color DFS back-edge/loop-header detector
// (C2b): a recursive DFS over id-keyed adjacency maps with WHITE/GRAY/BLACK
// node coloring.
package loop

import "github.com/monowaranjum/rpe-llvm-impl/internal/cfg"

type color int

const (
	white color = iota
	gray
	black
)

// BackEdge is one detected back-edge (from, to) where to is a loop header
// and from is its latch.
type BackEdge struct {
	From, To string
}

// Result is the outcome of loop analysis: whether any loop was found, the
// ordered list of header blocks, the back-edge multimap keyed by latch
// (spec §9 open question (a): a latch MAY serve two headers, so this is a
// multimap rather than a single-entry map), and the DAG derived by removing
// every recorded back-edge.
type Result struct {
	HasLoop   bool
	Headers   []string
	BackEdges map[string][]BackEdge
	DAG       cfg.Graph
}

// Analyze runs the 3-color DFS from root over graph, per spec §4.4.
func Analyze(graph cfg.Graph, root string) Result {
	colors := make(map[string]color)
	headerSeen := make(map[string]bool)
	backEdges := make(map[string][]BackEdge)

	var headers []string
	var visit func(u string)
	visit = func(u string) {
		colors[u] = gray
		for _, v := range graph[u] {
			switch colors[v] {
			case white:
				visit(v)
			case gray:
				if !headerSeen[v] {
					headerSeen[v] = true
					headers = append(headers, v)
				}
				backEdges[u] = append(backEdges[u], BackEdge{From: u, To: v})
			case black:
				// already fully processed, not a back-edge
			}
		}
		colors[u] = black
	}
	if root != "" {
		visit(root)
	}

	dag := deriveDAG(graph, backEdges)

	return Result{
		HasLoop:   len(headers) > 0,
		Headers:   headers,
		BackEdges: backEdges,
		DAG:       dag,
	}
}

// deriveDAG removes, for each recorded back-edge (u, v), one occurrence of
// v from u's adjacency (spec §4.4).
func deriveDAG(graph cfg.Graph, backEdges map[string][]BackEdge) cfg.Graph {
	toRemove := make(map[string]map[string]int)
	for u, edges := range backEdges {
		for _, e := range edges {
			if toRemove[u] == nil {
				toRemove[u] = make(map[string]int)
			}
			toRemove[u][e.To]++
		}
	}

	dag := make(cfg.Graph, len(graph))
	for u, succs := range graph {
		remaining := toRemove[u]
		if len(remaining) == 0 {
			dag[u] = append([]string(nil), succs...)
			continue
		}
		var kept []string
		for _, v := range succs {
			if remaining[v] > 0 {
				remaining[v]--
				continue
			}
			kept = append(kept, v)
		}
		dag[u] = kept
	}
	return dag
}

// IsAcyclic verifies §8 property 4: DFS from root over graph returns no
// GRAY-hit.
func IsAcyclic(graph cfg.Graph, root string) bool {
	colors := make(map[string]color)
	acyclic := true
	var visit func(u string)
	visit = func(u string) {
		colors[u] = gray
		for _, v := range graph[u] {
			switch colors[v] {
			case white:
				visit(v)
			case gray:
				acyclic = false
			}
		}
		colors[u] = black
	}
	if root != "" {
		visit(root)
	}
	return acyclic
}
