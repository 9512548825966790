package mil

import "fmt"

// blockKind tags an open structured-control block on the Emitter's shadow
// stack, used to enforce E3 (LIFO nesting/closing).
type blockKind int

const (
	blockIf blockKind = iota
	blockWhile
	blockLoop
	blockSwitch
	blockTry
)

func (k blockKind) String() string {
	return [...]string{"if", "while", "loop", "switch", "try"}[k]
}

// InvariantError reports a violation of one of the emitter invariants
// E1-E3. Per spec.md §7, EMIT diagnostics should be unreachable in a
// correct compiler; this type exists so callers (the parser's semantic
// actions) can turn a defensive assertion failure into an INTERNAL
// diagnostic instead of a bare panic escaping to the user.
type InvariantError struct {
	Rule    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("emitter invariant %s violated: %s", e.Rule, e.Message)
}

// Emitter is a thin shell over a Renderer (spec.md §4.2) that enforces
// E1 (no opcode outside a procedure except module framing), E2 (explicit
// conv for widening -- enforced cooperatively with package eval, which
// never emits a bare sized op across mismatched widths), and E3 (LIFO
// block nesting).
type Emitter struct {
	r           Renderer
	inProcedure bool
	blocks      []blockKind
}

// NewEmitter wraps r.
func NewEmitter(r Renderer) *Emitter {
	return &Emitter{r: r}
}

func (e *Emitter) requireInProcedure(op string) {
	if !e.inProcedure {
		panic(&InvariantError{Rule: "E1", Message: op + " emitted outside a procedure"})
	}
}

// ---- module framing (exempt from E1) ----

func (e *Emitter) BeginModule(name string) { e.r.BeginModule(name) }
func (e *Emitter) EndModule()              { e.r.EndModule() }
func (e *Emitter) AddImport(q string)      { e.r.AddImport(q) }
func (e *Emitter) AddVariable(name, ty string) { e.r.AddVariable(name, ty) }
func (e *Emitter) AddConst(name, ty, lit string) { e.r.AddConst(name, ty, lit) }
func (e *Emitter) BeginType(name string)   { e.r.BeginType(name) }
func (e *Emitter) EndType()                { e.r.EndType() }
func (e *Emitter) AddField(name, ty string) { e.r.AddField(name, ty) }

// BeginProcedure opens a procedure body; every subsequent opcode until
// EndProcedure is inside a procedure for the purposes of E1.
func (e *Emitter) BeginProcedure(name, signature string) {
	if e.inProcedure {
		panic(&InvariantError{Rule: "E1", Message: "nested BeginProcedure"})
	}
	e.inProcedure = true
	e.r.AddProcedure(name, signature)
}

// EndProcedure closes the procedure; panics (E3) if a structured block was
// left open.
func (e *Emitter) EndProcedure() {
	if len(e.blocks) != 0 {
		panic(&InvariantError{Rule: "E3", Message: fmt.Sprintf("procedure closed with %d block(s) still open", len(e.blocks))})
	}
	e.inProcedure = false
	e.r.EndProcedure()
}

// ---- sized arithmetic ----

func (e *Emitter) Arith(op ArithOp, w Width) { e.requireInProcedure(op.String()); e.r.Arith(op, w) }
func (e *Emitter) Neg(w Width)               { e.requireInProcedure("neg"); e.r.Neg(w) }
func (e *Emitter) BitUnary(op BitUnaryOp, w Width) {
	e.requireInProcedure(op.String())
	e.r.BitUnary(op, w)
}
func (e *Emitter) Shift(op ShiftOp, w Width) { e.requireInProcedure(op.String()); e.r.Shift(op, w) }
func (e *Emitter) Cmp(op CmpOp, w Width)     { e.requireInProcedure(op.String()); e.r.Cmp(op, w) }

// ---- memory ----

func (e *Emitter) LdLoc(id int)  { e.requireInProcedure("ldloc"); e.r.LdLoc(id) }
func (e *Emitter) StLoc(id int)  { e.requireInProcedure("stloc"); e.r.StLoc(id) }
func (e *Emitter) LdLocAddr(id int) { e.requireInProcedure("ldlocaddr"); e.r.LdLocAddr(id) }
func (e *Emitter) LdArg(id int)  { e.requireInProcedure("ldarg"); e.r.LdArg(id) }
func (e *Emitter) StArg(id int)  { e.requireInProcedure("starg"); e.r.StArg(id) }
func (e *Emitter) LdArgAddr(id int) { e.requireInProcedure("ldargaddr"); e.r.LdArgAddr(id) }
func (e *Emitter) LdVar(q string) { e.requireInProcedure("ldvar"); e.r.LdVar(q) }
func (e *Emitter) StVar(q string) { e.requireInProcedure("stvar"); e.r.StVar(q) }
func (e *Emitter) LdVarAddr(q string) { e.requireInProcedure("ldvaraddr"); e.r.LdVarAddr(q) }
func (e *Emitter) LdFld(name string) { e.requireInProcedure("ldfld"); e.r.LdFld(name) }
func (e *Emitter) StFld(name string) { e.requireInProcedure("stfld"); e.r.StFld(name) }
func (e *Emitter) LdFldAddr(name string) { e.requireInProcedure("ldfldaddr"); e.r.LdFldAddr(name) }
func (e *Emitter) LdInd(w Width) { e.requireInProcedure("ldind"); e.r.LdInd(w) }
func (e *Emitter) StInd(w Width) { e.requireInProcedure("stind"); e.r.StInd(w) }
func (e *Emitter) LdElem(w Width) { e.requireInProcedure("ldelem"); e.r.LdElem(w) }
func (e *Emitter) StElem(w Width) { e.requireInProcedure("stelem"); e.r.StElem(w) }
func (e *Emitter) LdcI4(v int32) { e.requireInProcedure("ldc_i4"); e.r.LdcI4(v) }
func (e *Emitter) LdcI8(v int64) { e.requireInProcedure("ldc_i8"); e.r.LdcI8(v) }
func (e *Emitter) LdcR4(v float32) { e.requireInProcedure("ldc_r4"); e.r.LdcR4(v) }
func (e *Emitter) LdcR8(v float64) { e.requireInProcedure("ldc_r8"); e.r.LdcR8(v) }
func (e *Emitter) NewObj(ty string) { e.requireInProcedure("newobj"); e.r.NewObj(ty) }
func (e *Emitter) NewArr(ty string) { e.requireInProcedure("newarr"); e.r.NewArr(ty) }
func (e *Emitter) Free()   { e.requireInProcedure("free"); e.r.Free() }
func (e *Emitter) PtrOff() { e.requireInProcedure("ptroff"); e.r.PtrOff() }

// ---- structured control (E3) ----

func (e *Emitter) push(k blockKind) { e.blocks = append(e.blocks, k) }

func (e *Emitter) top() (blockKind, bool) {
	if len(e.blocks) == 0 {
		return 0, false
	}
	return e.blocks[len(e.blocks)-1], true
}

func (e *Emitter) popExpecting(k blockKind, op string) {
	top, ok := e.top()
	if !ok || top != k {
		panic(&InvariantError{Rule: "E3", Message: fmt.Sprintf("%s does not match innermost open block", op)})
	}
	e.blocks = e.blocks[:len(e.blocks)-1]
}

func (e *Emitter) If() {
	e.requireInProcedure("if")
	e.push(blockIf)
	e.r.If()
}
func (e *Emitter) Then() {
	if k, ok := e.top(); !ok || k != blockIf {
		panic(&InvariantError{Rule: "E3", Message: "then outside an open if"})
	}
	e.r.Then()
}
func (e *Emitter) Else() {
	if k, ok := e.top(); !ok || k != blockIf {
		panic(&InvariantError{Rule: "E3", Message: "else outside an open if"})
	}
	e.r.ElseOp()
}
func (e *Emitter) EndIf() {
	e.popExpecting(blockIf, "end")
	e.r.EndIf()
}

func (e *Emitter) While() {
	e.requireInProcedure("while")
	e.push(blockWhile)
	e.r.While()
}
func (e *Emitter) Do() {
	if k, ok := e.top(); !ok || k != blockWhile {
		panic(&InvariantError{Rule: "E3", Message: "do outside an open while"})
	}
	e.r.WhileDo()
}
func (e *Emitter) EndWhile() {
	e.popExpecting(blockWhile, "end")
	e.r.EndWhile()
}

func (e *Emitter) Loop() {
	e.requireInProcedure("loop")
	e.push(blockLoop)
	e.r.LoopOp()
}
func (e *Emitter) EndLoop() {
	e.popExpecting(blockLoop, "end")
	e.r.EndLoop()
}

// Exit is legal anywhere inside an open loop/while (the parser's loop
// stack, package parser, is what actually checks "legal only inside a
// loop/while/repeat/for" -- the emitter only requires some block be open).
func (e *Emitter) Exit() {
	if len(e.blocks) == 0 {
		panic(&InvariantError{Rule: "E3", Message: "exit outside any open block"})
	}
	e.r.Exit()
}

func (e *Emitter) Switch() {
	e.requireInProcedure("switch")
	e.push(blockSwitch)
	e.r.Switch()
}
func (e *Emitter) Case(label string) {
	if k, ok := e.top(); !ok || k != blockSwitch {
		panic(&InvariantError{Rule: "E3", Message: "case outside an open switch"})
	}
	e.r.Case(label)
}
func (e *Emitter) Default() {
	if k, ok := e.top(); !ok || k != blockSwitch {
		panic(&InvariantError{Rule: "E3", Message: "default outside an open switch"})
	}
	e.r.DefaultCase()
}
func (e *Emitter) EndSwitch() {
	e.popExpecting(blockSwitch, "end")
	e.r.EndSwitch()
}

func (e *Emitter) Label(name string) { e.requireInProcedure("label"); e.r.Label(name) }
func (e *Emitter) Goto(name string)  { e.requireInProcedure("goto"); e.r.Goto(name) }
func (e *Emitter) Call(q string)     { e.requireInProcedure("call"); e.r.Call(q) }
func (e *Emitter) Ret(hasValue bool) { e.requireInProcedure("ret"); e.r.Ret(hasValue) }

// ---- structured exceptions ----

func (e *Emitter) Try() {
	e.requireInProcedure("try")
	e.push(blockTry)
	e.r.Try()
}
func (e *Emitter) Catch() {
	if k, ok := e.top(); !ok || k != blockTry {
		panic(&InvariantError{Rule: "E3", Message: "catch outside an open try"})
	}
	e.r.Catch()
}
func (e *Emitter) Finally() {
	if k, ok := e.top(); !ok || k != blockTry {
		panic(&InvariantError{Rule: "E3", Message: "finally outside an open try"})
	}
	e.r.Finally()
}
func (e *Emitter) EndTry() {
	e.popExpecting(blockTry, "end")
	e.r.EndTry()
}
func (e *Emitter) Raise() { e.requireInProcedure("raise"); e.r.RaiseOp() }

// ---- conversions & misc ----

func (e *Emitter) Conv(target Width) { e.requireInProcedure("conv"); e.r.Conv(target) }
func (e *Emitter) Dup()              { e.requireInProcedure("dup"); e.r.Dup() }
func (e *Emitter) Pop()              { e.requireInProcedure("pop"); e.r.Pop() }

// OpenBlocks reports how many structured blocks are currently open, for
// tests implementing P7's shadow-stack verification.
func (e *Emitter) OpenBlocks() int { return len(e.blocks) }
