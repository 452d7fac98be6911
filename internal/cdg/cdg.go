// Package cdg computes control-dependence edges from a post-dominator tree
// over the generic internal/cfg.Graph/ABB model — the C2d domain expansion
// named in SPEC_FULL.md §2. It runs the Cooper-Harvey-Kennedy (CHK)
// post-dominator algorithm over the block-id adjacency internal/cfg.Extract
// already produced, so it works against any internal/ir adapter rather
// than being tied to one IR's basic-block representation.
package cdg

import "github.com/monowaranjum/rpe-llvm-impl/internal/cfg"

// Edge is one control-dependence or post-dominator arc.
type Edge struct {
	Source, Target string
}

// Result holds the two edge kinds the extractor produces: control
// dependence and immediate post-dominance.
type Result struct {
	ControlDependence []Edge
	PostDominator     []Edge
}

// Extract computes control-dependence edges for one function's block
// graph. blockOrder fixes a stable integer index per block id (the CHK
// algorithm operates on indices); it is typically the order blocks were
// yielded by the ir adapter.
func Extract(graph cfg.Graph, blockOrder []string) Result {
	n := len(blockOrder)
	index := make(map[string]int, n)
	for i, id := range blockOrder {
		index[id] = i
	}

	succs := make([][]int, n)
	for i, id := range blockOrder {
		for _, s := range graph[id] {
			if j, ok := index[s]; ok {
				succs[i] = append(succs[i], j)
			}
		}
	}

	ipdom := postDominators(succs, n)

	var result Result
	for u := 0; u < n; u++ {
		if len(succs[u]) < 2 {
			continue // only branching blocks create control dependence
		}
		for _, v := range succs[u] {
			stop := ipdom[u]
			w := v
			for w != -1 && w != stop {
				result.ControlDependence = append(result.ControlDependence, Edge{
					Source: blockOrder[u],
					Target: blockOrder[w],
				})
				w = ipdom[w]
			}
		}
	}
	for i := 0; i < n; i++ {
		if ipdom[i] >= 0 && ipdom[i] < n {
			result.PostDominator = append(result.PostDominator, Edge{
				Source: blockOrder[ipdom[i]],
				Target: blockOrder[i],
			})
		}
	}
	return result
}

// postDominators computes the immediate post-dominator tree via the CHK
// algorithm on the reversed CFG. ipdom[i] == -1 means i is post-dominated
// only by the virtual exit (an exit block, or unreachable in the tree).
func postDominators(succs [][]int, n int) []int {
	vExit := n

	var exits []int
	for i := 0; i < n; i++ {
		if len(succs[i]) == 0 {
			exits = append(exits, i)
		}
	}
	if len(exits) == 0 {
		ipdom := make([]int, n)
		for i := range ipdom {
			ipdom[i] = -1
		}
		return ipdom
	}

	total := n + 1
	revAdj := make([][]int, total)
	for i := 0; i < n; i++ {
		for _, s := range succs[i] {
			revAdj[s] = append(revAdj[s], i)
		}
	}
	revAdj[vExit] = append(revAdj[vExit], exits...)

	rpo := reversePostorder(revAdj, vExit, total)
	rpoPos := make([]int, total)
	for i := range rpoPos {
		rpoPos[i] = -1
	}
	for i, node := range rpo {
		rpoPos[node] = i
	}

	revPreds := make([][]int, total)
	for from, neighbors := range revAdj {
		for _, to := range neighbors {
			revPreds[to] = append(revPreds[to], from)
		}
	}

	idom := make([]int, total)
	for i := range idom {
		idom[i] = -1
	}
	idom[vExit] = vExit

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == vExit {
				continue
			}
			newIdom := -1
			for _, p := range revPreds[b] {
				if idom[p] != -1 {
					newIdom = p
					break
				}
			}
			if newIdom == -1 {
				continue
			}
			for _, p := range revPreds[b] {
				if p == newIdom || idom[p] == -1 {
					continue
				}
				newIdom = chkIntersect(idom, rpoPos, p, newIdom)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		d := idom[i]
		if d >= n || d < 0 {
			result[i] = -1
		} else {
			result[i] = d
		}
	}
	return result
}

// chkIntersect and reversePostorder are generic index-graph utilities with
// no domain-specific content, so they are kept as plain integer-index
// routines rather than adapted to the BlockId-keyed types used elsewhere in
// this package.
func chkIntersect(idom, rpoPos []int, a, b int) int {
	for a != b {
		for rpoPos[a] > rpoPos[b] {
			a = idom[a]
		}
		for rpoPos[b] > rpoPos[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(adj [][]int, root, n int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	var dfs func(int)
	dfs = func(node int) {
		visited[node] = true
		for _, next := range adj[node] {
			if !visited[next] {
				dfs(next)
			}
		}
		order = append(order, node)
	}
	dfs(root)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
