package ddg

import (
	"testing"

	"github.com/monowaranjum/rpe-llvm-impl/internal/ir"
	"github.com/monowaranjum/rpe-llvm-impl/internal/telemetry"
)

type fakeValue struct{ id, typ string }

func (v fakeValue) ID() string   { return v.id }
func (v fakeValue) Type() string { return v.typ }

type fakeInst struct {
	kind         ir.OpKind
	result       ir.Value
	operands     []ir.Value
	storeVal     ir.Value
	storePtr     ir.Value
	loadPtr      ir.Value
	gepOperands  []ir.Value
	truncSrc     ir.Value
	icmpOperands [2]ir.Value
	icmpPred     string
	callee       string
	callArgs     []ir.Value
	inlineAsm    bool
}

func (i fakeInst) Kind() ir.OpKind           { return i.kind }
func (i fakeInst) Result() ir.Value          { return i.result }
func (i fakeInst) Operands() []ir.Value      { return i.operands }
func (i fakeInst) Mnemonic() string          { return i.kind.String() }
func (i fakeInst) CalleeName() string        { return i.callee }
func (i fakeInst) IsInlineAsm() bool         { return i.inlineAsm }
func (i fakeInst) CallArgs() []ir.Value      { return i.callArgs }
func (i fakeInst) StoreValue() ir.Value      { return i.storeVal }
func (i fakeInst) StorePointer() ir.Value    { return i.storePtr }
func (i fakeInst) LoadPointer() ir.Value     { return i.loadPtr }
func (i fakeInst) GEPOperands() []ir.Value   { return i.gepOperands }
func (i fakeInst) TruncSource() ir.Value     { return i.truncSrc }
func (i fakeInst) ICmpPredicate() string     { return i.icmpPred }
func (i fakeInst) ICmpOperands() [2]ir.Value { return i.icmpOperands }
func (i fakeInst) IsConditional() bool       { return false }
func (i fakeInst) TrueBlock() string         { return "" }
func (i fakeInst) FalseBlock() string        { return "" }
func (i fakeInst) NextBlock() string         { return "" }
func (i fakeInst) SwitchTargets() []string   { return nil }

type fakeBlock struct{ instrs []ir.Instruction }

func (b fakeBlock) ID() string                    { return "bb0" }
func (b fakeBlock) Instructions() []ir.Instruction { return b.instrs }
func (b fakeBlock) Predecessors() []string         { return nil }

type fakeFunc struct{ blocks []ir.Block }

func (f fakeFunc) Name() string       { return "f" }
func (f fakeFunc) Blocks() []ir.Block { return f.blocks }

func badrefOps(n int) []ir.Value {
	out := make([]ir.Value, n)
	for i := range out {
		out[i] = fakeValue{id: ir.BadRef}
	}
	return out
}

// TestBuilder_LoadStoreTruncateChain reproduces spec scenario S4:
// %1 = alloca; store %x, %1; %2 = load %1; %3 = trunc %2.
func TestBuilder_LoadStoreTruncateChain(t *testing.T) {
	x := fakeValue{id: "%x", typ: "i32"}
	p1 := fakeValue{id: "%1", typ: "i32*"}
	v2 := fakeValue{id: "%2", typ: "i32"}
	v3 := fakeValue{id: "%3", typ: "i8"}

	fn := fakeFunc{blocks: []ir.Block{fakeBlock{instrs: []ir.Instruction{
		fakeInst{kind: ir.OpAlloca, result: p1, operands: badrefOps(0)},
		fakeInst{kind: ir.OpStore, result: fakeValue{id: ir.BadRef}, storeVal: x, storePtr: p1, operands: badrefOps(0)},
		fakeInst{kind: ir.OpLoad, result: v2, loadPtr: p1, operands: badrefOps(0)},
		fakeInst{kind: ir.OpTrunc, result: v3, truncSrc: v2, operands: badrefOps(0)},
	}}}}

	b := NewBuilder(telemetry.New(false))
	b.Visit(fn)

	if !Reachable(b.Graph, "%x", "%3") {
		t.Error("checkLoadStoreReachable(%x, %3) should be true")
	}
	if Reachable(b.Graph, "%3", "%x") {
		t.Error("checkLoadStoreReachable(%3, %x) should be false (edges are directed)")
	}
}

func TestAddEdge_DropsBadRef(t *testing.T) {
	g := New()
	g.AddEdge(nil, ir.BadRef, "%1", "store")
	g.AddEdge(nil, "%1", ir.BadRef, "store")
	if len(g.Edges[ir.BadRef]) != 0 || len(g.Edges["%1"]) != 0 {
		t.Error("edges touching <badref> must be dropped, not recorded")
	}
}

func TestMerge_AccumulatesFragments(t *testing.T) {
	module := New()
	frag1 := New()
	frag1.AddEdge(nil, "a", "b", "store")
	frag2 := New()
	frag2.AddEdge(nil, "c", "d", "load")

	module.Merge(frag1)
	module.Merge(frag2)

	if len(module.Edges["a"]) != 1 || len(module.Edges["c"]) != 1 {
		t.Errorf("module edges after merge = %+v", module.Edges)
	}
}

func TestCallInstruction_SkipsEdgesForInlineAsm(t *testing.T) {
	result := fakeValue{id: "%r"}
	arg := fakeValue{id: "%a"}
	fn := fakeFunc{blocks: []ir.Block{fakeBlock{instrs: []ir.Instruction{
		fakeInst{kind: ir.OpCall, result: result, callArgs: []ir.Value{arg}, inlineAsm: true, operands: badrefOps(0)},
	}}}}

	b := NewBuilder(telemetry.New(false))
	b.Visit(fn)
	if len(b.Graph.Edges["%a"]) != 0 {
		t.Error("inline-asm calls must not produce DDG edges")
	}
}
