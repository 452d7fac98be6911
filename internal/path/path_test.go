package path

import (
	"reflect"
	"testing"

	"github.com/monowaranjum/rpe-llvm-impl/internal/cfg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/loop"
)

// TestCanonical_StraightLine reproduces spec scenario S1.
func TestCanonical_StraightLine(t *testing.T) {
	graph := cfg.Graph{"A": {"B"}, "B": {"C"}, "C": nil}
	lr := loop.Analyze(graph, "A")

	paths, err := Canonical(graph, "A", lr, nil, Limits{})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := [][]string{{"A", "B", "C"}}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

// TestCanonical_Diamond reproduces spec scenario S2: order-sensitive by
// adjacency[A].
func TestCanonical_Diamond(t *testing.T) {
	graph := cfg.Graph{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}
	lr := loop.Analyze(graph, "A")

	paths, err := Canonical(graph, "A", lr, nil, Limits{})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := [][]string{{"A", "B", "D"}, {"A", "C", "D"}}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

// TestCanonicalAndExpand_SingleLoop reproduces spec scenario S3 end to end:
// canonical (loop-aware) paths, loop sub-paths, and their expansion.
func TestCanonicalAndExpand_SingleLoop(t *testing.T) {
	graph := cfg.Graph{
		"A": {"B"},
		"B": {"C", "D"},
		"C": {"B"},
		"D": nil,
	}
	abbs := map[string]*cfg.ABB{
		"A": {BlockID: "A", IsRoot: true, NextBlock: "B"},
		"B": {BlockID: "B", IsConditional: true, TrueBlock: "C", FalseBlock: "D"},
		"C": {BlockID: "C", NextBlock: "B"},
		"D": {BlockID: "D"},
	}
	lr := loop.Analyze(graph, "A")

	canon, err := Canonical(graph, "A", lr, abbs, Limits{})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	wantCanon := [][]string{{"A", "B", "D"}}
	if !reflect.DeepEqual(canon, wantCanon) {
		t.Fatalf("canonical = %v, want %v", canon, wantCanon)
	}

	subPaths, err := LoopSubPaths(lr.DAG, lr, Limits{})
	if err != nil {
		t.Fatalf("LoopSubPaths: %v", err)
	}
	wantSub := [][]string{{"B", "C"}}
	if !reflect.DeepEqual(subPaths["B"], wantSub) {
		t.Fatalf("sub-paths[B] = %v, want %v", subPaths["B"], wantSub)
	}

	headerSet := map[string]bool{"B": true}
	expanded, err := Expand(canon[0], subPaths, headerSet, Limits{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(expanded) != 1 {
		t.Fatalf("expected exactly one expansion, got %d", len(expanded))
	}
	want := []Token{
		{Kind: TokenBlock, Block: "A"},
		{Kind: TokenLoopStart},
		{Kind: TokenBlock, Block: "B"},
		{Kind: TokenBlock, Block: "C"},
		{Kind: TokenLoopEnd},
		{Kind: TokenBlock, Block: "D"},
	}
	if !reflect.DeepEqual(expanded[0], want) {
		t.Errorf("expanded path = %+v, want %+v", expanded[0], want)
	}
}

// TestExpand_NestedLoop verifies that a loop header appearing inside an
// outer loop's sub-path body is itself bracketed with LOOP_START/LOOP_END
// and expanded against its own sub-paths, rather than flattened into plain
// blocks.
func TestExpand_NestedLoop(t *testing.T) {
	// Outer loop header B, whose body B->C->D->E contains an inner
	// self-loop header D (the DAG sub-path from D to its own latch is the
	// trivial single-node path "D", an empty loop body once the header
	// itself is stripped).
	canon := []string{"A", "B", "F"}
	headerSet := map[string]bool{"B": true, "D": true}
	subPaths := map[string][][]string{
		"B": {{"B", "C", "D", "E"}},
		"D": {{"D"}},
	}

	expanded, err := Expand(canon, subPaths, headerSet, Limits{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(expanded) != 1 {
		t.Fatalf("expected exactly one expansion, got %d", len(expanded))
	}

	want := []Token{
		{Kind: TokenBlock, Block: "A"},
		{Kind: TokenLoopStart},
		{Kind: TokenBlock, Block: "B"},
		{Kind: TokenBlock, Block: "C"},
		{Kind: TokenLoopStart},
		{Kind: TokenBlock, Block: "D"},
		{Kind: TokenLoopEnd},
		{Kind: TokenBlock, Block: "E"},
		{Kind: TokenLoopEnd},
		{Kind: TokenBlock, Block: "F"},
	}
	if !reflect.DeepEqual(expanded[0], want) {
		t.Errorf("expanded path = %+v, want %+v", expanded[0], want)
	}
}

func TestLimits_TruncatesDeepRecursion(t *testing.T) {
	graph := cfg.Graph{"A": {"B"}, "B": {"C"}, "C": nil}
	lr := loop.Analyze(graph, "A")

	_, err := Canonical(graph, "A", lr, nil, Limits{MaxDepth: 1})
	if err != ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}
