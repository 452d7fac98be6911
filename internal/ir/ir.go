// Package ir abstracts a typed SSA-form intermediate representation so the
// downstream analyses (internal/ddg, internal/cfg, internal/loop,
// internal/path, internal/provenance) never depend on a concrete compiler
// frontend. A single adapter, internal/ir/ssaadapter, implements it over
// golang.org/x/tools/go/ssa.
package ir

// BadRef is the sentinel identity for "no value". Edges touching it are
// dropped rather than recorded.
const BadRef = "<badref>"

// OpKind is the closed opcode class an instruction is dispatched on. Every
// adapter must report one of these tags; Other is the catch-all for
// anything the adapter doesn't model more specifically.
type OpKind int

const (
	OpOther OpKind = iota
	OpAlloca
	OpStore
	OpLoad
	OpCall
	OpGetElementPtr
	OpReturn
	OpTrunc
	OpBranch
	OpICmp
	OpSwitch
)

func (k OpKind) String() string {
	switch k {
	case OpAlloca:
		return "alloca"
	case OpStore:
		return "store"
	case OpLoad:
		return "load"
	case OpCall:
		return "call"
	case OpGetElementPtr:
		return "getelementptr"
	case OpReturn:
		return "return"
	case OpTrunc:
		return "trunc"
	case OpBranch:
		return "branch"
	case OpICmp:
		return "icmp"
	case OpSwitch:
		return "switch"
	default:
		return "other"
	}
}

// Value is a single SSA value: an instruction result, a parameter, a
// constant, or a global. ID is its canonical textual identity (the sole key
// of the DDG); it is BadRef when the adapter cannot name the value.
type Value interface {
	ID() string
	Type() string
}

// Instruction is one IR instruction inside a block. Accessors beyond Kind
// are variant-specific; callers type-switch on Kind and then call the
// accessor that matches (Operands/Result/StorePointer/... below).
type Instruction interface {
	Kind() OpKind
	// Result is the value this instruction defines, or a zero Value (ID ==
	// BadRef) when it defines nothing (Store, Return, Branch, ...).
	Result() Value
	// Operands lists every value this instruction reads, in the adapter's
	// canonical argument order. For Call, this excludes the callee itself.
	Operands() []Value

	// Mnemonic is the adapter's raw opcode name, used to label Other edges.
	Mnemonic() string

	// CalleeName returns the statically-known callee name for Call
	// instructions, or "" for an indirect/unresolved call.
	CalleeName() string
	// IsInlineAsm reports whether this Call is an inline-assembly call.
	IsInlineAsm() bool
	// CallArgs lists the call's argument values (excluding the callee).
	CallArgs() []Value

	// StoreValue/StorePointer decompose a Store(val, ptr) instruction.
	StoreValue() Value
	StorePointer() Value

	// LoadPointer is Load(ptr)'s source pointer.
	LoadPointer() Value

	// GEPOperands lists a GetElementPtr's operands, base included.
	GEPOperands() []Value

	// TruncSource is a Trunc's single source operand.
	TruncSource() Value

	// ICmpPredicate, ICmpOperands decompose an ICmp(pred, a, b).
	ICmpPredicate() string
	ICmpOperands() [2]Value

	// IsConditional, plus the two successor blocks of a conditional
	// Branch; NextBlock is the single successor of an unconditional one.
	IsConditional() bool
	TrueBlock() string
	FalseBlock() string
	NextBlock() string

	// SwitchTargets lists every case successor of a Switch terminator (see
	// spec §9(c)); the shipped ssaadapter never produces OpSwitch because
	// go/ssa lowers switches to If chains, but the interface carries it so
	// another adapter can.
	SwitchTargets() []string
}

// Block is one basic block: a maximal straight-line instruction run ending
// in a terminator.
type Block interface {
	ID() string
	Instructions() []Instruction
	// Predecessors lists the blocks with a CFG edge into this one, in the
	// adapter's traversal order.
	Predecessors() []string
}

// Function is one function's blocks in program order. Functions with an
// empty block list are declarations and are skipped by callers (spec §4.1).
type Function interface {
	Name() string
	Blocks() []Block
}

// Module enumerates every function the adapter can see.
type Module interface {
	Functions() []Function
}
