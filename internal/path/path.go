// Package path enumerates canonical root->leaf paths, per-loop sub-paths,
// and their Cartesian-product expansion into instantiated paths (C2c).
package path

import (
	"errors"

	"github.com/monowaranjum/rpe-llvm-impl/internal/cfg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/loop"
)

// TokenKind distinguishes a plain block token from a loop-scope marker in
// an instantiated path.
type TokenKind int

const (
	TokenBlock TokenKind = iota
	TokenLoopStart
	TokenLoopEnd
)

// Token is one element of an instantiated path: a BlockId, or a
// LOOP_START/LOOP_END marker bracketing a loop's scope.
type Token struct {
	Kind  TokenKind
	Block string // set only when Kind == TokenBlock
}

// ErrTruncated is returned alongside a partial result when a function's
// path count or recursion depth exceeds its configured Limits (spec §9,
// "Recursion and explosion").
var ErrTruncated = errors.New("path: result truncated by limits")

// Limits bounds path enumeration and expansion so pathological loops
// cannot exhaust memory (spec §5, §9).
type Limits struct {
	MaxPaths int // 0 means unlimited
	MaxDepth int // 0 means unlimited
}

func (l Limits) pathsOK(n int) bool {
	return l.MaxPaths <= 0 || n < l.MaxPaths
}

func (l Limits) depthOK(d int) bool {
	return l.MaxDepth <= 0 || d <= l.MaxDepth
}

// Canonical enumerates canonical root->leaf paths over fn's block graph,
// selecting the loop-aware or monolithic traversal itself based on whether
// back-edges were found, so callers can never invoke the monolithic
// traversal against a cyclic graph by mistake.
func Canonical(graph cfg.Graph, root string, lr loop.Result, abbs map[string]*cfg.ABB, limits Limits) ([][]string, error) {
	if lr.HasLoop {
		return loopAwareTraverse(graph, root, lr.Headers, abbs, limits)
	}
	return monolithicTraverse(graph, root, limits)
}

// monolithicTraverse is the plain DFS enumerator for loop-free graphs
// (spec §4.5, "Canonical-path enumeration").
func monolithicTraverse(graph cfg.Graph, root string, limits Limits) ([][]string, error) {
	var paths [][]string
	var truncated bool
	var cur []string

	var dfs func(node string, depth int)
	dfs = func(node string, depth int) {
		if truncated {
			return
		}
		if !limits.depthOK(depth) {
			truncated = true
			return
		}
		cur = append(cur, node)
		defer func() { cur = cur[:len(cur)-1] }()

		succs := graph[node]
		if len(succs) == 0 {
			if !limits.pathsOK(len(paths)) {
				truncated = true
				return
			}
			paths = append(paths, append([]string(nil), cur...))
			return
		}
		for _, s := range succs {
			dfs(s, depth+1)
			if truncated {
				return
			}
		}
	}
	if root != "" {
		dfs(root, 0)
	}
	if truncated {
		return paths, ErrTruncated
	}
	return paths, nil
}

// loopAwareTraverse is the header-guarded DFS of spec §4.5: a per-traversal
// visited set tracks headers already entered; on the first visit to a
// header, it continues only along the loop-exit arm (falseBlock for a
// conditional header, nextBlock for an unconditional do-while header, or
// all children otherwise); subsequent visits to an already-entered header
// stop the traversal there.
func loopAwareTraverse(graph cfg.Graph, root string, headers []string, abbs map[string]*cfg.ABB, limits Limits) ([][]string, error) {
	headerSet := make(map[string]bool, len(headers))
	for _, h := range headers {
		headerSet[h] = true
	}

	var paths [][]string
	var truncated bool
	var cur []string
	visitedHeaders := make(map[string]bool)

	var dfs func(node string, depth int)
	dfs = func(node string, depth int) {
		if truncated {
			return
		}
		if !limits.depthOK(depth) {
			truncated = true
			return
		}

		isHeader := headerSet[node]
		if isHeader {
			if visitedHeaders[node] {
				return
			}
			visitedHeaders[node] = true
		}

		cur = append(cur, node)
		defer func() { cur = cur[:len(cur)-1] }()

		var succs []string
		if isHeader {
			abb := abbs[node]
			switch {
			case abb != nil && abb.IsConditional:
				succs = []string{abb.FalseBlock}
			case abb != nil && abb.NextBlock != "":
				succs = []string{abb.NextBlock}
			default:
				succs = graph[node]
			}
		} else {
			succs = graph[node]
		}

		if len(succs) == 0 {
			if !limits.pathsOK(len(paths)) {
				truncated = true
				return
			}
			paths = append(paths, append([]string(nil), cur...))
			return
		}
		for _, s := range succs {
			dfs(s, depth+1)
			if truncated {
				return
			}
		}
	}
	if root != "" {
		dfs(root, 0)
	}
	if truncated {
		return paths, ErrTruncated
	}
	return paths, nil
}

// LoopSubPaths enumerates, for every recorded back-edge (latch, header),
// DFS paths over the DAG from header to latch, per spec §4.5 ("Sub-path
// enumeration"). The result is keyed by header block id.
func LoopSubPaths(dag cfg.Graph, lr loop.Result, limits Limits) (map[string][][]string, error) {
	result := make(map[string][][]string)
	var truncated bool

	for latch, edges := range lr.BackEdges {
		for _, e := range edges {
			header := e.To
			subPaths, err := dagPathsBetween(dag, header, latch, limits)
			if err != nil {
				truncated = true
			}
			result[header] = append(result[header], subPaths...)
		}
	}
	if truncated {
		return result, ErrTruncated
	}
	return result, nil
}

// dagPathsBetween enumerates every simple DFS path from start to end over
// the DAG adjacency.
func dagPathsBetween(dag cfg.Graph, start, end string, limits Limits) ([][]string, error) {
	var paths [][]string
	var truncated bool
	var cur []string
	onPath := make(map[string]bool)

	var dfs func(node string, depth int)
	dfs = func(node string, depth int) {
		if truncated {
			return
		}
		if !limits.depthOK(depth) {
			truncated = true
			return
		}
		if onPath[node] {
			return // guard against revisiting within this traversal
		}
		onPath[node] = true
		cur = append(cur, node)
		defer func() {
			cur = cur[:len(cur)-1]
			onPath[node] = false
		}()

		if node == end {
			if !limits.pathsOK(len(paths)) {
				truncated = true
				return
			}
			paths = append(paths, append([]string(nil), cur...))
			return
		}
		for _, s := range dag[node] {
			dfs(s, depth+1)
			if truncated {
				return
			}
		}
	}
	dfs(start, 0)
	if truncated {
		return paths, ErrTruncated
	}
	return paths, nil
}

// Expand performs path expansion (spec §4.5): substituting loop sub-paths
// back into a canonical path, producing the Cartesian product of
// instantiated paths bracketed with LOOP_START/LOOP_END.
func Expand(canon []string, subPaths map[string][][]string, headerSet map[string]bool, limits Limits) ([][]Token, error) {
	expanded := [][]Token{{}}
	var truncated bool

	for _, b := range canon {
		if truncated {
			break
		}
		if !headerSet[b] {
			for i := range expanded {
				expanded[i] = append(expanded[i], Token{Kind: TokenBlock, Block: b})
			}
			continue
		}

		// Header: every existing path is combined with every one of the
		// header's sub-path bodies (a Cartesian product of paths x bodies),
		// each as LOOP_START, header, body, LOOP_END. Each
		// body is itself recursively expanded so a nested loop header
		// inside it gets its own LOOP_START/LOOP_END brackets and its own
		// sub-path Cartesian product, instead of being flattened into
		// plain blocks.
		var bodies [][]Token
		for _, sub := range subPaths[b] {
			// First element is the header, already emitted; strip it.
			var tail []string
			if len(sub) > 0 {
				tail = sub[1:]
			}
			nested, err := Expand(tail, subPaths, headerSet, limits)
			if err != nil {
				truncated = true
			}
			bodies = append(bodies, nested...)
		}
		if len(bodies) == 0 {
			// No recorded sub-path for this header: the loop body is empty.
			bodies = [][]Token{nil}
		}

		var next [][]Token
		for _, e := range expanded {
			for _, body := range bodies {
				if !limits.pathsOK(len(next)) {
					truncated = true
					break
				}
				p := append([]Token(nil), e...)
				p = append(p, Token{Kind: TokenLoopStart})
				p = append(p, Token{Kind: TokenBlock, Block: b})
				p = append(p, body...)
				p = append(p, Token{Kind: TokenLoopEnd})
				next = append(next, p)
			}
			if truncated {
				break
			}
		}
		expanded = next
	}

	if truncated {
		return expanded, ErrTruncated
	}
	return expanded, nil
}
