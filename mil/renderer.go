package mil

// Renderer is the capability set the Emitter writes through (spec.md §4.2,
// §9 "Renderer strategy": "the emitter depends on a capability set ...
// multiple concrete renderers plug in behind it"). Two are provided by this
// package, InMemRenderer and TextRenderer. Package backend/llvmtext does
// not implement Renderer; it lowers the tree InMemRenderer builds, at the
// downstream-backend boundary spec.md §6 calls out.
type Renderer interface {
	// Module framing
	BeginModule(name string)
	EndModule()
	AddImport(qualifiedName string)
	AddVariable(name string, ty string)
	AddConst(name string, ty string, literal string)
	BeginType(name string)
	EndType()
	AddField(name string, ty string)
	AddProcedure(name string, signature string)
	EndProcedure()

	// Operand-sized arithmetic
	Arith(op ArithOp, w Width)
	Neg(w Width)
	BitUnary(op BitUnaryOp, w Width)
	Shift(op ShiftOp, w Width)
	Cmp(op CmpOp, w Width)

	// Memory
	LdLoc(id int)
	StLoc(id int)
	LdLocAddr(id int)
	LdArg(id int)
	StArg(id int)
	LdArgAddr(id int)
	LdVar(qualifiedName string)
	StVar(qualifiedName string)
	LdVarAddr(qualifiedName string)
	LdFld(name string)
	StFld(name string)
	LdFldAddr(name string)
	LdInd(w Width)
	StInd(w Width)
	LdElem(w Width)
	StElem(w Width)
	LdcI4(v int32)
	LdcI8(v int64)
	LdcR4(v float32)
	LdcR8(v float64)
	NewObj(ty string)
	NewArr(ty string)
	Free()
	PtrOff()

	// Control
	If()
	Then()
	ElseOp()
	EndIf()
	While()
	WhileDo()
	EndWhile()
	LoopOp()
	EndLoop()
	Exit()
	Switch()
	Case(label string)
	DefaultCase()
	EndSwitch()
	Label(name string)
	Goto(name string)
	Call(qualifiedName string)
	Ret(hasValue bool)

	// Exceptions
	Try()
	Catch()
	Finally()
	EndTry()
	RaiseOp()

	// Conversions
	Conv(target Width)

	// Misc
	Dup()
	Pop()
}

// ArithOp is the closed set of sized arithmetic opcodes besides negation,
// bitwise-unary, and shifts (each of which has its own method above because
// they carry different operand-arity/semantics).
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
)

func (o ArithOp) String() string {
	return [...]string{"add", "sub", "mul", "div", "rem", "and", "or", "xor"}[o]
}

// CmpOp is the closed set of relational comparison opcodes. Unlike Arith,
// a Cmp always yields a Bool-width result regardless of its operand width
// (spec.md §4.3's relation() "yields boolean"); w names the operand width
// being compared, not the result width.
type CmpOp int

const (
	CmpEQ CmpOp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

func (o CmpOp) String() string {
	return [...]string{"ceq", "cne", "clt", "cle", "cgt", "cge"}[o]
}

// BitUnaryOp is the one-operand bitwise opcode ("not").
type BitUnaryOp int

const (
	Not BitUnaryOp = iota
)

func (o BitUnaryOp) String() string { return "not" }

// ShiftOp is the closed set of shift opcodes.
type ShiftOp int

const (
	Shl ShiftOp = iota
	Shr
	Sar
)

func (o ShiftOp) String() string {
	return [...]string{"shl", "shr", "sar"}[o]
}
