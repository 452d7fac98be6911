// Package ssaadapter is the concrete internal/ir.Module implementation over
// golang.org/x/tools/go/ssa, with a closed opcode set remapped onto
// go/ssa's own instruction vocabulary.
//
// Mapping from spec.md's closed opcode set to go/ssa:
//
//	Alloca        -> *ssa.Alloc
//	Store         -> *ssa.Store
//	Load          -> *ssa.UnOp{Op: token.MUL}        (go/ssa's load-from-pointer form)
//	Call          -> *ssa.Call
//	GetElementPtr -> *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Index
//	Return        -> *ssa.Return
//	Trunc         -> *ssa.Convert narrowing an integer type (no literal Trunc opcode in go/ssa)
//	Branch        -> *ssa.If (conditional), *ssa.Jump (unconditional)
//	ICmp          -> *ssa.BinOp with a comparison token (EQL/NEQ/LSS/LEQ/GTR/GEQ)
//	Switch        -> never produced; go/ssa lowers switch statements to If chains
//	                 before this adapter sees them (spec §9(c) — the interface
//	                 still carries OpSwitch/SwitchTargets for a future adapter)
//	Other         -> everything else (arithmetic BinOp, MakeClosure, Phi, ...)
package ssaadapter

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/monowaranjum/rpe-llvm-impl/internal/ir"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Load builds the SSA program for the Go module rooted at dir and returns
// it as an internal/ir.Module.
func Load(dir string) (ir.Module, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo |
			packages.NeedTypesSizes,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("packages.Load: %w", err)
	}
	for _, p := range pkgs {
		for _, e := range p.Errors {
			return nil, fmt.Errorf("package %s: %w", p.PkgPath, e)
		}
	}

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	allFuncs := ssautil.AllFunctions(prog)

	var funcs []ir.Function
	for fn := range allFuncs {
		if fn.Synthetic != "" || fn.Pkg == nil {
			continue
		}
		// Declarations (no body) are skipped per spec §4.1.
		if len(fn.Blocks) == 0 {
			continue
		}
		funcs = append(funcs, newFunction(fn))
	}

	return &module{funcs: funcs}, nil
}

type module struct {
	funcs []ir.Function
}

func (m *module) Functions() []ir.Function { return m.funcs }

type function struct {
	name   string
	blocks []ir.Block
}

func (f *function) Name() string     { return f.name }
func (f *function) Blocks() []ir.Block { return f.blocks }

func newFunction(fn *ssa.Function) *function {
	name := fn.RelString(nil)

	ids := make([]string, len(fn.Blocks))
	for i, b := range fn.Blocks {
		ids[i] = blockID(name, b)
	}

	blocks := make([]ir.Block, len(fn.Blocks))
	for i, b := range fn.Blocks {
		preds := make([]string, len(b.Preds))
		for j, p := range b.Preds {
			preds[j] = ids[p.Index]
		}
		succs := make([]string, len(b.Succs))
		for j, s := range b.Succs {
			succs[j] = ids[s.Index]
		}

		var instrs []ir.Instruction
		for _, raw := range b.Instrs {
			instrs = append(instrs, newInstruction(raw, succs))
		}

		blocks[i] = &block{id: ids[i], instrs: instrs, preds: preds}
	}

	return &function{name: name, blocks: blocks}
}

func blockID(funcName string, b *ssa.BasicBlock) string {
	if b.Comment != "" {
		return fmt.Sprintf("%s::%s.%d", funcName, b.Comment, b.Index)
	}
	return fmt.Sprintf("%s::bb%d", funcName, b.Index)
}

type block struct {
	id     string
	instrs []ir.Instruction
	preds  []string
}

func (b *block) ID() string                   { return b.id }
func (b *block) Instructions() []ir.Instruction { return b.instrs }
func (b *block) Predecessors() []string       { return b.preds }

// value wraps an ssa.Value (possibly nil, for instructions with no result)
// into the ir.Value contract.
type value struct{ v ssa.Value }

func (val value) ID() string {
	if val.v == nil {
		return ir.BadRef
	}
	name := val.v.Name()
	if name == "" {
		return ir.BadRef
	}
	return name
}

func (val value) Type() string {
	if val.v == nil {
		return ""
	}
	return val.v.Type().String()
}

func wrapValues(vs []ssa.Value) []ir.Value {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = value{v}
	}
	return out
}

// instruction wraps a raw ssa.Instruction, plus the owning block's
// successor block ids (needed for Branch's TrueBlock/FalseBlock/NextBlock,
// which are properties of the terminator's position in the block, not the
// instruction's own operands).
type instruction struct {
	raw   ssa.Instruction
	succs []string
}

func newInstruction(raw ssa.Instruction, succs []string) *instruction {
	return &instruction{raw: raw, succs: succs}
}

func (i *instruction) Kind() ir.OpKind {
	switch inst := i.raw.(type) {
	case *ssa.Alloc:
		return ir.OpAlloca
	case *ssa.Store:
		return ir.OpStore
	case *ssa.UnOp:
		if inst.Op == token.MUL {
			return ir.OpLoad
		}
	case *ssa.Call:
		return ir.OpCall
	case *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Index:
		return ir.OpGetElementPtr
	case *ssa.Return:
		return ir.OpReturn
	case *ssa.Convert:
		if isNarrowingConvert(inst) {
			return ir.OpTrunc
		}
	case *ssa.If, *ssa.Jump:
		return ir.OpBranch
	case *ssa.BinOp:
		if isComparison(inst.Op) {
			return ir.OpICmp
		}
	}
	return ir.OpOther
}

func isNarrowingConvert(c *ssa.Convert) bool {
	srcBasic, sok := c.X.Type().Underlying().(*types.Basic)
	dstBasic, dok := c.Type().Underlying().(*types.Basic)
	if !sok || !dok {
		return false
	}
	srcInfo := srcBasic.Info()
	dstInfo := dstBasic.Info()
	if srcInfo&types.IsInteger == 0 || dstInfo&types.IsInteger == 0 {
		return false
	}
	return basicSize(dstBasic) < basicSize(srcBasic)
}

func basicSize(b *types.Basic) int {
	switch b.Kind() {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32:
		return 32
	case types.Int64, types.Uint64, types.Int, types.Uint:
		return 64
	default:
		return 64
	}
}

func isComparison(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

func (i *instruction) Result() ir.Value {
	if v, ok := i.raw.(ssa.Value); ok {
		return value{v}
	}
	return value{nil}
}

func (i *instruction) Operands() []ir.Value {
	slots := i.raw.Operands(nil)
	if call, ok := i.raw.(*ssa.Call); ok && !call.Common().IsInvoke() && len(slots) > 0 {
		slots = slots[1:] // the first slot is the callee itself
	}
	var ops []ssa.Value
	for _, slot := range slots {
		if slot != nil && *slot != nil {
			ops = append(ops, *slot)
		}
	}
	return wrapValues(ops)
}

func (i *instruction) Mnemonic() string {
	switch inst := i.raw.(type) {
	case *ssa.BinOp:
		return inst.Op.String()
	case *ssa.UnOp:
		return inst.Op.String()
	default:
		return fmt.Sprintf("%T", i.raw)
	}
}

func (i *instruction) CalleeName() string {
	call, ok := i.raw.(*ssa.Call)
	if !ok {
		return ""
	}
	common := call.Common()
	if common.IsInvoke() {
		return "" // interface dispatch: not statically resolvable
	}
	switch callee := common.Value.(type) {
	case *ssa.Function:
		return callee.Name()
	case *ssa.Builtin:
		return callee.Name()
	default:
		return "" // indirect call through a function-valued variable
	}
}

func (i *instruction) IsInlineAsm() bool {
	// go/ssa has no inline-assembly concept; this adapter never produces
	// one. The accessor exists so the ir.Instruction contract matches
	// spec §4.1's closed opcode metadata for a future adapter that does.
	return false
}

func (i *instruction) CallArgs() []ir.Value {
	call, ok := i.raw.(*ssa.Call)
	if !ok {
		return nil
	}
	return wrapValues(call.Common().Args)
}

func (i *instruction) StoreValue() ir.Value {
	s, ok := i.raw.(*ssa.Store)
	if !ok {
		return value{nil}
	}
	return value{s.Val}
}

func (i *instruction) StorePointer() ir.Value {
	s, ok := i.raw.(*ssa.Store)
	if !ok {
		return value{nil}
	}
	return value{s.Addr}
}

func (i *instruction) LoadPointer() ir.Value {
	u, ok := i.raw.(*ssa.UnOp)
	if !ok {
		return value{nil}
	}
	return value{u.X}
}

func (i *instruction) GEPOperands() []ir.Value {
	switch inst := i.raw.(type) {
	case *ssa.FieldAddr:
		return []ir.Value{value{inst.X}}
	case *ssa.IndexAddr:
		return []ir.Value{value{inst.X}, value{inst.Index}}
	case *ssa.Index:
		return []ir.Value{value{inst.X}, value{inst.Index}}
	default:
		return nil
	}
}

func (i *instruction) TruncSource() ir.Value {
	c, ok := i.raw.(*ssa.Convert)
	if !ok {
		return value{nil}
	}
	return value{c.X}
}

func (i *instruction) ICmpPredicate() string {
	b, ok := i.raw.(*ssa.BinOp)
	if !ok {
		return ""
	}
	return b.Op.String()
}

func (i *instruction) ICmpOperands() [2]ir.Value {
	b, ok := i.raw.(*ssa.BinOp)
	if !ok {
		return [2]ir.Value{value{nil}, value{nil}}
	}
	return [2]ir.Value{value{b.X}, value{b.Y}}
}

func (i *instruction) IsConditional() bool {
	_, ok := i.raw.(*ssa.If)
	return ok
}

func (i *instruction) TrueBlock() string {
	if !i.IsConditional() || len(i.succs) < 2 {
		return ""
	}
	return i.succs[0]
}

func (i *instruction) FalseBlock() string {
	if !i.IsConditional() || len(i.succs) < 2 {
		return ""
	}
	return i.succs[1]
}

func (i *instruction) NextBlock() string {
	if _, ok := i.raw.(*ssa.Jump); !ok || len(i.succs) == 0 {
		return ""
	}
	return i.succs[0]
}

func (i *instruction) SwitchTargets() []string {
	// Unreachable for this adapter; see the package doc comment.
	return nil
}
