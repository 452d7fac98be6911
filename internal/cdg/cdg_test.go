package cdg

import (
	"testing"

	"github.com/monowaranjum/rpe-llvm-impl/internal/cfg"
)

// TestExtract_Diamond verifies the classic diamond (A branches to B and C,
// both rejoin at D): B and C are control-dependent on A, while D, which
// post-dominates both branches (it is A's immediate post-dominator), is not.
func TestExtract_Diamond(t *testing.T) {
	graph := cfg.Graph{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}
	order := []string{"A", "B", "C", "D"}

	r := Extract(graph, order)

	hasEdge := func(edges []Edge, src, dst string) bool {
		for _, e := range edges {
			if e.Source == src && e.Target == dst {
				return true
			}
		}
		return false
	}

	if !hasEdge(r.ControlDependence, "A", "B") {
		t.Error("expected A -> B control dependence")
	}
	if !hasEdge(r.ControlDependence, "A", "C") {
		t.Error("expected A -> C control dependence")
	}
	if hasEdge(r.ControlDependence, "A", "D") {
		t.Error("D should not be control-dependent on A (it post-dominates both branches)")
	}
}

func TestExtract_NoBranchingNoControlDependence(t *testing.T) {
	graph := cfg.Graph{"A": {"B"}, "B": {"C"}, "C": nil}
	order := []string{"A", "B", "C"}

	r := Extract(graph, order)
	if len(r.ControlDependence) != 0 {
		t.Errorf("straight-line graph should have no control dependence, got %v", r.ControlDependence)
	}
}
