// Package ddg builds the Data-Dependency Graph (C1): a labeled multigraph
// over IR value identities, plus the ValueId → TypeId map that accompanies
// it. Edges are emitted by a per-opcode dispatch over each instruction; an
// accumulator struct (duplicates kept) collects a per-function fragment that
// is merged into the module-scoped graph once analysis completes.
package ddg

import (
	"fmt"

	"github.com/monowaranjum/rpe-llvm-impl/internal/ir"
	"github.com/monowaranjum/rpe-llvm-impl/internal/telemetry"
)

// Edge is one directed, labeled arc of the DDG.
type Edge struct {
	To    string
	Label string
}

// Graph is the module-scoped accumulation target: ValueId -> its outgoing
// edges, in insertion order, plus the type map. Duplicates are permitted
// per spec §3 ("Duplicates are permitted; order of insertion is
// preserved").
type Graph struct {
	Edges   map[string][]Edge
	TypeMap map[string]string
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		Edges:   make(map[string][]Edge),
		TypeMap: make(map[string]string),
	}
}

// AddEdge is the single choke point for edge insertion: it rejects any edge
// touching the <badref> sentinel, logging once per rejection, per spec §4.2
// and the "Invalid IR reference" row of §7.
func (g *Graph) AddEdge(log *telemetry.Logger, from, to, label string) {
	if from == ir.BadRef || to == ir.BadRef {
		if log != nil {
			log.Verbose("ddg: dropped %s edge touching <badref>", label)
		}
		return
	}
	g.Edges[from] = append(g.Edges[from], Edge{To: to, Label: label})
}

// RecordType records val's type under the last-write-wins policy of §3.
// <badref> values are never typed.
func (g *Graph) RecordType(val, typ string) {
	if val == ir.BadRef {
		return
	}
	g.TypeMap[val] = typ
}

// Merge folds another per-function Graph fragment into g. Per §9's
// "Mutable global state" note, each function is visited into its own
// Graph and merged here rather than writing directly into module-scoped
// maps, so the merge step is the only place requiring single-writer
// discipline (spec §5).
func (g *Graph) Merge(frag *Graph) {
	for val, edges := range frag.Edges {
		g.Edges[val] = append(g.Edges[val], edges...)
	}
	for val, typ := range frag.TypeMap {
		g.TypeMap[val] = typ
	}
}

// Builder visits one function's instructions and accumulates a per-function
// DDG fragment, following the per-opcode policy of spec §4.2.
type Builder struct {
	Graph *Graph
	Log   *telemetry.Logger
}

// NewBuilder returns a Builder with a fresh fragment Graph.
func NewBuilder(log *telemetry.Logger) *Builder {
	return &Builder{Graph: New(), Log: log}
}

// Visit walks every instruction of fn, recording types and edges into the
// builder's fragment Graph.
func (b *Builder) Visit(fn ir.Function) {
	for _, blk := range fn.Blocks() {
		for _, inst := range blk.Instructions() {
			b.visitInstruction(inst)
		}
	}
}

func (b *Builder) visitInstruction(inst ir.Instruction) {
	result := inst.Result()
	if result.ID() != ir.BadRef {
		b.Graph.RecordType(result.ID(), result.Type())
	}
	for _, op := range inst.Operands() {
		if op.ID() != ir.BadRef {
			b.Graph.RecordType(op.ID(), op.Type())
		}
	}

	switch inst.Kind() {
	case ir.OpAlloca:
		// No edge. The RecordType loop above stores the result value's own
		// type (as the adapter reports it) under the result id; no separate
		// pointee type is recorded.

	case ir.OpStore:
		val := inst.StoreValue()
		ptr := inst.StorePointer()
		b.Graph.AddEdge(b.Log, val.ID(), ptr.ID(), "store")

	case ir.OpLoad:
		ptr := inst.LoadPointer()
		b.Graph.AddEdge(b.Log, ptr.ID(), result.ID(), "load")

	case ir.OpCall:
		if inst.IsInlineAsm() {
			// Preserve the call in the ABB (done by internal/cfg); no DDG
			// edges from inline assembly (spec §7).
			return
		}
		name := inst.CalleeName()
		if name == "" {
			// Missing callee (indirect/unresolved call): no DDG edges; the
			// call itself stays in the ABB (internal/cfg) (spec §7).
			if b.Log != nil {
				b.Log.Verbose("ddg: skipped edges for call with no static callee")
			}
			return
		}
		label := fmt.Sprintf("call:%s", name)
		for _, arg := range inst.CallArgs() {
			b.Graph.AddEdge(b.Log, arg.ID(), result.ID(), label)
		}

	case ir.OpGetElementPtr:
		for _, op := range inst.GEPOperands() {
			b.Graph.AddEdge(b.Log, op.ID(), result.ID(), "getelementptr")
		}

	case ir.OpTrunc:
		src := inst.TruncSource()
		b.Graph.AddEdge(b.Log, src.ID(), result.ID(), "truncate")

	case ir.OpICmp:
		pred := inst.ICmpPredicate()
		ops := inst.ICmpOperands()
		b.Graph.AddEdge(b.Log, ops[0].ID(), result.ID(), fmt.Sprintf("icmp:0 %s", pred))
		b.Graph.AddEdge(b.Log, ops[1].ID(), result.ID(), fmt.Sprintf("icmp:1 %s", pred))

	case ir.OpReturn, ir.OpBranch:
		// No DDG edge.

	case ir.OpSwitch:
		// Unmodeled (spec §9(c)).

	default:
		// Other: fall-through, operand -> result edges labeled with the
		// adapter's raw mnemonic, so no information is silently lost.
		mnemonic := inst.Mnemonic()
		for _, op := range inst.Operands() {
			b.Graph.AddEdge(b.Log, op.ID(), result.ID(), mnemonic)
		}
	}
}

// Reachable implements checkLoadStoreReachable: true iff src == dst or a
// directed path exists from src to dst in g using only load/store/truncate
// edges (spec §4.6, §8 property 7).
func Reachable(g *Graph, src, dst string) bool {
	if src == dst {
		return true
	}
	visited := map[string]bool{src: true}
	stack := []string{src}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Edges[cur] {
			if e.Label != "load" && e.Label != "store" && e.Label != "truncate" {
				continue
			}
			if e.To == dst {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}
