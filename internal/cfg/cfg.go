// Package cfg builds the Augmented Basic Block (ABB) model and per-function
// block adjacency (C2a): one pass over each function's blocks records
// branch targets, calls, and predecessor/successor edges.
package cfg

import "github.com/monowaranjum/rpe-llvm-impl/internal/ir"

// ABB is the Augmented Basic Block record of spec §3: a block plus cached
// branch targets, call list, inline-asm flag, and parents.
type ABB struct {
	BlockID           string
	IsRoot            bool
	IsConditional     bool
	HasInlineAssembly bool
	TrueBlock         string
	FalseBlock        string
	NextBlock         string
	// Instructions holds call instructions in program order (spec §4.3:
	// "append the instruction verbatim to the ABB's instructions").
	Instructions []ir.Instruction
	// Functions holds the names of directly-called functions (omits
	// indirect/unresolved calls, which have no name to record).
	Functions []string
	Parents   []string
}

// Graph is the flat block adjacency of spec §3: BlockId -> ordered
// successor BlockIds. Every successor mentioned appears as a key, with
// possibly-empty adjacency.
type Graph map[string][]string

// Extract builds the block adjacency, the BlockId -> ABB map, and the
// function's rootBlockId, per spec §4.3.
func Extract(fn ir.Function) (Graph, map[string]*ABB, string) {
	graph := make(Graph)
	abbs := make(map[string]*ABB)
	var rootBlockID string

	for _, blk := range fn.Blocks() {
		id := blk.ID()
		if _, ok := graph[id]; !ok {
			graph[id] = nil
		}
		abb := &ABB{BlockID: id}
		abbs[id] = abb

		preds := blk.Predecessors()
		switch len(preds) {
		case 0:
			abb.IsRoot = true
			rootBlockID = id
		case 1:
			abb.Parents = append(abb.Parents, preds[0])
			graph[preds[0]] = append(graph[preds[0]], id)
		default:
			abb.Parents = append(abb.Parents, preds...)
			for _, p := range preds {
				graph[p] = append(graph[p], id)
			}
		}

		for _, inst := range blk.Instructions() {
			switch inst.Kind() {
			case ir.OpCall:
				parseCall(abb, inst)
			case ir.OpBranch:
				parseBranch(abb, inst)
			case ir.OpSwitch:
				// Unmodeled per spec §4.3/§7: successors are not recorded.
			}
		}
	}

	return graph, abbs, rootBlockID
}

// parseCall records a Call instruction into the ABB: inline-asm calls set
// HasInlineAssembly and contribute no name; ordinary calls also record the
// callee name, when statically known.
func parseCall(abb *ABB, inst ir.Instruction) {
	abb.Instructions = append(abb.Instructions, inst)
	if inst.IsInlineAsm() {
		abb.HasInlineAssembly = true
		return
	}
	if name := inst.CalleeName(); name != "" {
		abb.Functions = append(abb.Functions, name)
	}
}

// parseBranch records a Branch terminator's targets into the ABB.
func parseBranch(abb *ABB, inst ir.Instruction) {
	if inst.IsConditional() {
		abb.IsConditional = true
		abb.TrueBlock = inst.TrueBlock()
		abb.FalseBlock = inst.FalseBlock()
		return
	}
	abb.NextBlock = inst.NextBlock()
}
