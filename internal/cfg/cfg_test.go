package cfg

import (
	"reflect"
	"testing"

	"github.com/monowaranjum/rpe-llvm-impl/internal/ir"
)

// fakeValue, fakeInst, fakeBlock, fakeFunc are minimal ir.* doubles, local
// to this package's tests so cfg.Extract can be exercised without needing
// go/ssa or the full adapter.

type fakeValue struct{ id, typ string }

func (v fakeValue) ID() string   { return v.id }
func (v fakeValue) Type() string { return v.typ }

type fakeInst struct {
	kind        ir.OpKind
	result      ir.Value
	callee      string
	inlineAsm   bool
	conditional bool
	trueBlock   string
	falseBlock  string
	nextBlock   string
}

func (i fakeInst) Kind() ir.OpKind               { return i.kind }
func (i fakeInst) Result() ir.Value              { return i.result }
func (i fakeInst) Operands() []ir.Value          { return nil }
func (i fakeInst) Mnemonic() string              { return i.kind.String() }
func (i fakeInst) CalleeName() string            { return i.callee }
func (i fakeInst) IsInlineAsm() bool             { return i.inlineAsm }
func (i fakeInst) CallArgs() []ir.Value          { return nil }
func (i fakeInst) StoreValue() ir.Value          { return fakeValue{id: ir.BadRef} }
func (i fakeInst) StorePointer() ir.Value        { return fakeValue{id: ir.BadRef} }
func (i fakeInst) LoadPointer() ir.Value         { return fakeValue{id: ir.BadRef} }
func (i fakeInst) GEPOperands() []ir.Value       { return nil }
func (i fakeInst) TruncSource() ir.Value         { return fakeValue{id: ir.BadRef} }
func (i fakeInst) ICmpPredicate() string         { return "" }
func (i fakeInst) ICmpOperands() [2]ir.Value     { return [2]ir.Value{fakeValue{id: ir.BadRef}, fakeValue{id: ir.BadRef}} }
func (i fakeInst) IsConditional() bool           { return i.conditional }
func (i fakeInst) TrueBlock() string             { return i.trueBlock }
func (i fakeInst) FalseBlock() string            { return i.falseBlock }
func (i fakeInst) NextBlock() string             { return i.nextBlock }
func (i fakeInst) SwitchTargets() []string       { return nil }

type fakeBlock struct {
	id     string
	instrs []ir.Instruction
	preds  []string
}

func (b fakeBlock) ID() string                    { return b.id }
func (b fakeBlock) Instructions() []ir.Instruction { return b.instrs }
func (b fakeBlock) Predecessors() []string         { return b.preds }

type fakeFunc struct {
	name   string
	blocks []ir.Block
}

func (f fakeFunc) Name() string      { return f.name }
func (f fakeFunc) Blocks() []ir.Block { return f.blocks }

// TestExtract_StraightLine reproduces spec scenario S1: A->B->C, C a leaf.
func TestExtract_StraightLine(t *testing.T) {
	fn := fakeFunc{
		name: "f",
		blocks: []ir.Block{
			fakeBlock{id: "A", preds: nil, instrs: []ir.Instruction{
				fakeInst{kind: ir.OpBranch, nextBlock: "B"},
			}},
			fakeBlock{id: "B", preds: []string{"A"}, instrs: []ir.Instruction{
				fakeInst{kind: ir.OpBranch, nextBlock: "C"},
			}},
			fakeBlock{id: "C", preds: []string{"B"}},
		},
	}

	graph, abbs, root := Extract(fn)

	if root != "A" {
		t.Fatalf("root = %q, want A", root)
	}
	want := Graph{"A": {"B"}, "B": {"C"}, "C": nil}
	if !reflect.DeepEqual(graph, want) {
		t.Errorf("graph = %+v, want %+v", graph, want)
	}
	if !abbs["A"].IsRoot {
		t.Error("A should be root")
	}
	if abbs["B"].NextBlock != "C" {
		t.Errorf("B.NextBlock = %q, want C", abbs["B"].NextBlock)
	}
}

func TestExtract_ConditionalBranch(t *testing.T) {
	fn := fakeFunc{
		name: "f",
		blocks: []ir.Block{
			fakeBlock{id: "A", instrs: []ir.Instruction{
				fakeInst{kind: ir.OpBranch, conditional: true, trueBlock: "B", falseBlock: "C"},
			}},
			fakeBlock{id: "B", preds: []string{"A"}},
			fakeBlock{id: "C", preds: []string{"A"}},
		},
	}

	_, abbs, _ := Extract(fn)
	if !abbs["A"].IsConditional {
		t.Fatal("A should be conditional")
	}
	if abbs["A"].TrueBlock != "B" || abbs["A"].FalseBlock != "C" {
		t.Errorf("A targets = (%q,%q), want (B,C)", abbs["A"].TrueBlock, abbs["A"].FalseBlock)
	}
}

// TestExtract_InlineAssembly reproduces spec scenario S6: a block with an
// inline-asm call sets HasInlineAssembly and still appears in the graph.
func TestExtract_InlineAssembly(t *testing.T) {
	fn := fakeFunc{
		name: "f",
		blocks: []ir.Block{
			fakeBlock{id: "X", instrs: []ir.Instruction{
				fakeInst{kind: ir.OpCall, inlineAsm: true},
			}},
		},
	}

	_, abbs, _ := Extract(fn)
	if !abbs["X"].HasInlineAssembly {
		t.Error("X should have HasInlineAssembly set")
	}
	if len(abbs["X"].Functions) != 0 {
		t.Errorf("inline-asm call should not record a callee name, got %v", abbs["X"].Functions)
	}
}

func TestExtract_MultiplePredecessors(t *testing.T) {
	fn := fakeFunc{
		name: "f",
		blocks: []ir.Block{
			fakeBlock{id: "A"},
			fakeBlock{id: "B"},
			fakeBlock{id: "D", preds: []string{"A", "B"}},
		},
	}

	graph, abbs, _ := Extract(fn)
	if len(abbs["D"].Parents) != 2 {
		t.Errorf("D.Parents = %v, want 2 entries", abbs["D"].Parents)
	}
	if len(graph["A"]) != 1 || graph["A"][0] != "D" {
		t.Errorf("graph[A] = %v, want [D]", graph["A"])
	}
	if len(graph["B"]) != 1 || graph["B"][0] != "D" {
		t.Errorf("graph[B] = %v, want [D]", graph["B"])
	}
}
