package mil

import "strconv"

// MilOp is one instruction in an in-memory procedure body.
type MilOp struct {
	Mnemonic string
	Operands []string
}

// MilField is a record/object field declared at module scope.
type MilField struct {
	Name string
	Type string
}

// MilTypeDecl is a module-scope type declaration's IR shadow (just its
// field layout; the full structural type lives in package types).
type MilTypeDecl struct {
	Name   string
	Fields []*MilField
}

// MilVar is a module-scope variable.
type MilVar struct {
	Name string
	Type string
}

// MilConst is a module-scope constant.
type MilConst struct {
	Name    string
	Type    string
	Literal string
}

// MilProcedure is one procedure body: a flat op list plus its signature.
type MilProcedure struct {
	Name      string
	Signature string
	Ops       []*MilOp
}

// MilModule is the root of the in-memory IR tree spec.md §6 describes:
// "a tree of MilModule -> MilProcedure -> MilOp consumed by downstream
// passes" -- here, the optimizer/backend stages that run after emission.
type MilModule struct {
	Name       string
	Imports    []string
	Vars       []*MilVar
	Consts     []*MilConst
	Types      []*MilTypeDecl
	Procedures []*MilProcedure
}

// InMemRenderer builds a MilModule tree in memory. It is the Renderer a
// downstream optimizer or native backend consumes directly, with no text
// round-trip (spec.md §6, §9).
type InMemRenderer struct {
	Module  *MilModule
	curProc *MilProcedure
	curType *MilTypeDecl
}

// NewInMemRenderer starts a fresh renderer with no module open.
func NewInMemRenderer() *InMemRenderer {
	return &InMemRenderer{}
}

func (r *InMemRenderer) emit(mnemonic string, operands ...string) {
	r.curProc.Ops = append(r.curProc.Ops, &MilOp{Mnemonic: mnemonic, Operands: operands})
}

// ---- module framing ----

func (r *InMemRenderer) BeginModule(name string) { r.Module = &MilModule{Name: name} }
func (r *InMemRenderer) EndModule()              {}
func (r *InMemRenderer) AddImport(q string)      { r.Module.Imports = append(r.Module.Imports, q) }
func (r *InMemRenderer) AddVariable(name, ty string) {
	r.Module.Vars = append(r.Module.Vars, &MilVar{Name: name, Type: ty})
}
func (r *InMemRenderer) AddConst(name, ty, lit string) {
	r.Module.Consts = append(r.Module.Consts, &MilConst{Name: name, Type: ty, Literal: lit})
}
func (r *InMemRenderer) BeginType(name string) {
	r.curType = &MilTypeDecl{Name: name}
}
func (r *InMemRenderer) EndType() {
	r.Module.Types = append(r.Module.Types, r.curType)
	r.curType = nil
}
func (r *InMemRenderer) AddField(name, ty string) {
	r.curType.Fields = append(r.curType.Fields, &MilField{Name: name, Type: ty})
}
func (r *InMemRenderer) AddProcedure(name, signature string) {
	r.curProc = &MilProcedure{Name: name, Signature: signature}
	r.Module.Procedures = append(r.Module.Procedures, r.curProc)
}
func (r *InMemRenderer) EndProcedure() { r.curProc = nil }

// ---- sized arithmetic ----

func (r *InMemRenderer) Arith(op ArithOp, w Width)     { r.emit(op.String(), w.String()) }
func (r *InMemRenderer) Neg(w Width)                   { r.emit("neg", w.String()) }
func (r *InMemRenderer) BitUnary(op BitUnaryOp, w Width) { r.emit(op.String(), w.String()) }
func (r *InMemRenderer) Shift(op ShiftOp, w Width)     { r.emit(op.String(), w.String()) }
func (r *InMemRenderer) Cmp(op CmpOp, w Width)         { r.emit(op.String(), w.String()) }

// ---- memory ----

func (r *InMemRenderer) LdLoc(id int)  { r.emit("ldloc", strconv.Itoa(id)) }
func (r *InMemRenderer) StLoc(id int)  { r.emit("stloc", strconv.Itoa(id)) }
func (r *InMemRenderer) LdLocAddr(id int) { r.emit("ldlocaddr", strconv.Itoa(id)) }
func (r *InMemRenderer) LdArg(id int)  { r.emit("ldarg", strconv.Itoa(id)) }
func (r *InMemRenderer) StArg(id int)  { r.emit("starg", strconv.Itoa(id)) }
func (r *InMemRenderer) LdArgAddr(id int) { r.emit("ldargaddr", strconv.Itoa(id)) }
func (r *InMemRenderer) LdVar(q string) { r.emit("ldvar", q) }
func (r *InMemRenderer) StVar(q string) { r.emit("stvar", q) }
func (r *InMemRenderer) LdVarAddr(q string) { r.emit("ldvaraddr", q) }
func (r *InMemRenderer) LdFld(name string) { r.emit("ldfld", name) }
func (r *InMemRenderer) StFld(name string) { r.emit("stfld", name) }
func (r *InMemRenderer) LdFldAddr(name string) { r.emit("ldfldaddr", name) }
func (r *InMemRenderer) LdInd(w Width) { r.emit("ldind", w.String()) }
func (r *InMemRenderer) StInd(w Width) { r.emit("stind", w.String()) }
func (r *InMemRenderer) LdElem(w Width) { r.emit("ldelem", w.String()) }
func (r *InMemRenderer) StElem(w Width) { r.emit("stelem", w.String()) }
func (r *InMemRenderer) LdcI4(v int32)  { r.emit("ldc.i4", strconv.FormatInt(int64(v), 10)) }
func (r *InMemRenderer) LdcI8(v int64)  { r.emit("ldc.i8", strconv.FormatInt(v, 10)) }
func (r *InMemRenderer) LdcR4(v float32) { r.emit("ldc.r4", strconv.FormatFloat(float64(v), 'g', -1, 32)) }
func (r *InMemRenderer) LdcR8(v float64) { r.emit("ldc.r8", strconv.FormatFloat(v, 'g', -1, 64)) }
func (r *InMemRenderer) NewObj(ty string) { r.emit("newobj", ty) }
func (r *InMemRenderer) NewArr(ty string) { r.emit("newarr", ty) }
func (r *InMemRenderer) Free()   { r.emit("free") }
func (r *InMemRenderer) PtrOff() { r.emit("ptroff") }

// ---- control ----

func (r *InMemRenderer) If()                  { r.emit("if") }
func (r *InMemRenderer) Then()                { r.emit("then") }
func (r *InMemRenderer) ElseOp()              { r.emit("else") }
func (r *InMemRenderer) EndIf()               { r.emit("endif") }
func (r *InMemRenderer) While()               { r.emit("while") }
func (r *InMemRenderer) WhileDo()             { r.emit("do") }
func (r *InMemRenderer) EndWhile()            { r.emit("endwhile") }
func (r *InMemRenderer) LoopOp()              { r.emit("loop") }
func (r *InMemRenderer) EndLoop()             { r.emit("endloop") }
func (r *InMemRenderer) Exit()                { r.emit("exit") }
func (r *InMemRenderer) Switch()              { r.emit("switch") }
func (r *InMemRenderer) Case(label string)    { r.emit("case", label) }
func (r *InMemRenderer) DefaultCase()         { r.emit("default") }
func (r *InMemRenderer) EndSwitch()           { r.emit("endswitch") }
func (r *InMemRenderer) Label(name string)    { r.emit("label", name) }
func (r *InMemRenderer) Goto(name string)     { r.emit("goto", name) }
func (r *InMemRenderer) Call(q string)        { r.emit("call", q) }
func (r *InMemRenderer) Ret(hasValue bool) {
	if hasValue {
		r.emit("ret", "1")
	} else {
		r.emit("ret", "0")
	}
}

// ---- exceptions ----

func (r *InMemRenderer) Try()     { r.emit("try") }
func (r *InMemRenderer) Catch()   { r.emit("catch") }
func (r *InMemRenderer) Finally() { r.emit("finally") }
func (r *InMemRenderer) EndTry()  { r.emit("endtry") }
func (r *InMemRenderer) RaiseOp() { r.emit("raise") }

// ---- conversions & misc ----

func (r *InMemRenderer) Conv(target Width) { r.emit("conv", target.String()) }
func (r *InMemRenderer) Dup()              { r.emit("dup") }
func (r *InMemRenderer) Pop()              { r.emit("pop") }
