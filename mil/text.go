package mil

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TextRenderer writes the whitespace-delimited mnemonic textual IR spec.md
// §6 describes: "operand types on each op, block keywords (begin/end)".
// It is the format a human reads to debug emission, and the format the
// downstream llvmtext backend could re-parse rather than consume the tree
// directly -- though in this repo backend/llvmtext walks InMemRenderer's
// tree instead, per DESIGN.md.
type TextRenderer struct {
	w      io.Writer
	indent int
	err    error
}

// NewTextRenderer writes to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Err returns the first write error encountered, if any.
func (r *TextRenderer) Err() error { return r.err }

func (r *TextRenderer) line(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, err := fmt.Fprintf(r.w, "%s%s\n", strings.Repeat("  ", r.indent), fmt.Sprintf(format, args...))
	if err != nil {
		r.err = err
	}
}

// ---- module framing ----

func (r *TextRenderer) BeginModule(name string) {
	r.line("module %s", name)
	r.indent++
}
func (r *TextRenderer) EndModule() {
	r.indent--
	r.line("end")
}
func (r *TextRenderer) AddImport(q string) { r.line("import %s", q) }
func (r *TextRenderer) AddVariable(name, ty string) { r.line("var %s %s", name, ty) }
func (r *TextRenderer) AddConst(name, ty, lit string) { r.line("const %s %s %s", name, ty, lit) }
func (r *TextRenderer) BeginType(name string) {
	r.line("type %s", name)
	r.indent++
}
func (r *TextRenderer) EndType() {
	r.indent--
	r.line("end")
}
func (r *TextRenderer) AddField(name, ty string) { r.line("field %s %s", name, ty) }
func (r *TextRenderer) AddProcedure(name, signature string) {
	r.line("proc %s %s", name, signature)
	r.indent++
}
func (r *TextRenderer) EndProcedure() {
	r.indent--
	r.line("end")
}

// ---- sized arithmetic ----

func (r *TextRenderer) Arith(op ArithOp, w Width)       { r.line("%s.%s", op, w) }
func (r *TextRenderer) Neg(w Width)                     { r.line("neg.%s", w) }
func (r *TextRenderer) BitUnary(op BitUnaryOp, w Width) { r.line("%s.%s", op, w) }
func (r *TextRenderer) Shift(op ShiftOp, w Width)       { r.line("%s.%s", op, w) }
func (r *TextRenderer) Cmp(op CmpOp, w Width)           { r.line("%s.%s", op, w) }

// ---- memory ----

func (r *TextRenderer) LdLoc(id int) { r.line("ldloc %s", strconv.Itoa(id)) }
func (r *TextRenderer) StLoc(id int) { r.line("stloc %s", strconv.Itoa(id)) }
func (r *TextRenderer) LdLocAddr(id int) { r.line("ldlocaddr %s", strconv.Itoa(id)) }
func (r *TextRenderer) LdArg(id int) { r.line("ldarg %s", strconv.Itoa(id)) }
func (r *TextRenderer) StArg(id int) { r.line("starg %s", strconv.Itoa(id)) }
func (r *TextRenderer) LdArgAddr(id int) { r.line("ldargaddr %s", strconv.Itoa(id)) }
func (r *TextRenderer) LdVar(q string)  { r.line("ldvar %s", q) }
func (r *TextRenderer) StVar(q string)  { r.line("stvar %s", q) }
func (r *TextRenderer) LdVarAddr(q string) { r.line("ldvaraddr %s", q) }
func (r *TextRenderer) LdFld(name string) { r.line("ldfld %s", name) }
func (r *TextRenderer) StFld(name string) { r.line("stfld %s", name) }
func (r *TextRenderer) LdFldAddr(name string) { r.line("ldfldaddr %s", name) }
func (r *TextRenderer) LdInd(w Width)  { r.line("ldind.%s", w) }
func (r *TextRenderer) StInd(w Width)  { r.line("stind.%s", w) }
func (r *TextRenderer) LdElem(w Width) { r.line("ldelem.%s", w) }
func (r *TextRenderer) StElem(w Width) { r.line("stelem.%s", w) }
func (r *TextRenderer) LdcI4(v int32)   { r.line("ldc.i4 %d", v) }
func (r *TextRenderer) LdcI8(v int64)   { r.line("ldc.i8 %d", v) }
func (r *TextRenderer) LdcR4(v float32) { r.line("ldc.r4 %s", strconv.FormatFloat(float64(v), 'g', -1, 32)) }
func (r *TextRenderer) LdcR8(v float64) { r.line("ldc.r8 %s", strconv.FormatFloat(v, 'g', -1, 64)) }
func (r *TextRenderer) NewObj(ty string) { r.line("newobj %s", ty) }
func (r *TextRenderer) NewArr(ty string) { r.line("newarr %s", ty) }
func (r *TextRenderer) Free()   { r.line("free") }
func (r *TextRenderer) PtrOff() { r.line("ptroff") }

// ---- control ----

func (r *TextRenderer) If() {
	r.line("if")
	r.indent++
}
func (r *TextRenderer) Then() { r.line("then") }
func (r *TextRenderer) ElseOp() {
	r.indent--
	r.line("else")
	r.indent++
}
func (r *TextRenderer) EndIf() {
	r.indent--
	r.line("endif")
}
func (r *TextRenderer) While() {
	r.line("while")
	r.indent++
}
func (r *TextRenderer) WhileDo() { r.line("do") }
func (r *TextRenderer) EndWhile() {
	r.indent--
	r.line("endwhile")
}
func (r *TextRenderer) LoopOp() {
	r.line("loop")
	r.indent++
}
func (r *TextRenderer) EndLoop() {
	r.indent--
	r.line("endloop")
}
func (r *TextRenderer) Exit() { r.line("exit") }
func (r *TextRenderer) Switch() {
	r.line("switch")
	r.indent++
}
func (r *TextRenderer) Case(label string) { r.line("case %s", label) }
func (r *TextRenderer) DefaultCase()      { r.line("default") }
func (r *TextRenderer) EndSwitch() {
	r.indent--
	r.line("endswitch")
}
func (r *TextRenderer) Label(name string) { r.line("label %s", name) }
func (r *TextRenderer) Goto(name string)  { r.line("goto %s", name) }
func (r *TextRenderer) Call(q string)     { r.line("call %s", q) }
func (r *TextRenderer) Ret(hasValue bool) {
	if hasValue {
		r.line("ret 1")
	} else {
		r.line("ret 0")
	}
}

// ---- exceptions ----

func (r *TextRenderer) Try() {
	r.line("try")
	r.indent++
}
func (r *TextRenderer) Catch() { r.line("catch") }
func (r *TextRenderer) Finally() { r.line("finally") }
func (r *TextRenderer) EndTry() {
	r.indent--
	r.line("endtry")
}
func (r *TextRenderer) RaiseOp() { r.line("raise") }

// ---- conversions & misc ----

func (r *TextRenderer) Conv(target Width) { r.line("conv.%s", target) }
func (r *TextRenderer) Dup()              { r.line("dup") }
func (r *TextRenderer) Pop()              { r.line("pop") }
