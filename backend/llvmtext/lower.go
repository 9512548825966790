package llvmtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"micc/mil"
)

// ctrlFrame tracks one open if/while/loop bracket while lowering a
// procedure's flat op list, mirroring the bracket nesting mil.Emitter
// itself enforces (mil/emitter.go's blockStack) but in terms of the LLVM
// basic blocks each bracket opens.
type ctrlFrame struct {
	kind string // "if", "while", "loop"

	// if
	elseBlock *ir.Block
	sawElse   bool

	// if/while/loop shared exit target
	endBlock *ir.Block

	// while/loop
	headerBlock *ir.Block
}

// procLowerer interprets one MilProcedure's flat op list as a stack
// machine, mirroring how mil.InMemRenderer recorded it and how the
// parser/evaluator originally drove mil.Emitter to produce it.
type procLowerer struct {
	b    *Backend
	info *procInfo

	fn    *ir.Func
	entry *ir.Block
	block *ir.Block

	stack []value.Value
	ctrl  []*ctrlFrame

	globals map[string]*ir.Global
	locals  map[int]*ir.InstAlloca
	args    map[int]*ir.InstAlloca
}

func (l *procLowerer) push(v value.Value) { l.stack = append(l.stack, v) }

func (l *procLowerer) pop() value.Value {
	v := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	return v
}

func (l *procLowerer) top() *ctrlFrame { return l.ctrl[len(l.ctrl)-1] }

func (l *procLowerer) lower(proc *mil.MilProcedure) error {
	l.fn = l.info.fn
	l.entry = l.fn.NewBlock("entry")
	l.block = l.entry

	for i, pty := range l.info.params {
		slot := l.entry.NewAlloca(pty)
		l.entry.NewStore(l.fn.Params[i], slot)
		l.args[i] = slot
	}

	for _, op := range proc.Ops {
		if err := l.step(op); err != nil {
			return err
		}
	}

	if l.block.Term == nil {
		if l.info.ret == types.Void {
			l.block.NewRet(nil)
		} else {
			l.block.NewRet(constant.NewZeroInitializer(l.info.ret))
		}
	}
	return nil
}

func (l *procLowerer) step(op *mil.MilOp) error {
	switch op.Mnemonic {
	case "add", "sub", "mul", "div", "rem", "and", "or", "xor":
		return l.arith(op)
	case "neg":
		return l.neg(op)
	case "not":
		a := l.pop()
		l.push(l.block.NewXor(a, constant.NewInt(a.Type().(*types.IntType), -1)))
	case "shl", "shr", "sar":
		return l.shift(op)
	case "ceq", "cne", "clt", "cle", "cgt", "cge":
		return l.cmp(op)
	case "conv":
		return l.conv(op)

	case "ldloc":
		id := atoi(op.Operands[0])
		slot, ok := l.locals[id]
		if !ok {
			return fmt.Errorf("ldloc %d before any stloc", id)
		}
		l.push(l.block.NewLoad(slot.Type().(*types.PointerType).ElemType, slot))
	case "stloc":
		id := atoi(op.Operands[0])
		v := l.pop()
		slot, ok := l.locals[id]
		if !ok {
			slot = l.entry.NewAlloca(v.Type())
			l.locals[id] = slot
		}
		l.block.NewStore(v, slot)
	case "ldlocaddr":
		id := atoi(op.Operands[0])
		slot, ok := l.locals[id]
		if !ok {
			return fmt.Errorf("ldlocaddr %d before any stloc", id)
		}
		l.push(slot)
	case "ldarg":
		slot := l.args[atoi(op.Operands[0])]
		l.push(l.block.NewLoad(slot.Type().(*types.PointerType).ElemType, slot))
	case "starg":
		slot := l.args[atoi(op.Operands[0])]
		l.block.NewStore(l.pop(), slot)
	case "ldargaddr":
		l.push(l.args[atoi(op.Operands[0])])
	case "ldvar":
		g := l.globals[op.Operands[0]]
		l.push(l.block.NewLoad(g.Type().(*types.PointerType).ElemType, g))
	case "stvar":
		g := l.globals[op.Operands[0]]
		l.block.NewStore(l.pop(), g)
	case "ldvaraddr":
		l.push(l.globals[op.Operands[0]])
	case "ldind":
		ptr := l.pop()
		l.push(l.block.NewLoad(llvmType(op.Operands[0]), ptr))
	case "stind":
		v := l.pop()
		ptr := l.pop()
		l.block.NewStore(v, ptr)

	case "ldc.i4":
		v, _ := strconv.ParseInt(op.Operands[0], 10, 32)
		l.push(constant.NewInt(types.I32, v))
	case "ldc.i8":
		v, _ := strconv.ParseInt(op.Operands[0], 10, 64)
		l.push(constant.NewInt(types.I64, v))
	case "ldc.r4":
		v, _ := strconv.ParseFloat(op.Operands[0], 32)
		l.push(constant.NewFloat(types.Float, v))
	case "ldc.r8":
		v, _ := strconv.ParseFloat(op.Operands[0], 64)
		l.push(constant.NewFloat(types.Double, v))

	case "dup":
		l.push(l.stack[len(l.stack)-1])
	case "pop":
		l.pop()

	case "call":
		return l.call(op)
	case "ret":
		if op.Operands[0] == "1" {
			l.block.NewRet(l.pop())
		} else {
			l.block.NewRet(nil)
		}
		l.block = l.fn.NewBlock("")

	case "if":
		l.ctrl = append(l.ctrl, &ctrlFrame{kind: "if"})
	case "then":
		return l.then()
	case "else":
		return l.els()
	case "endif":
		return l.endif()

	case "while":
		header := l.fn.NewBlock("")
		if l.block.Term == nil {
			l.block.NewBr(header)
		}
		l.block = header
		l.ctrl = append(l.ctrl, &ctrlFrame{kind: "while", headerBlock: header})
	case "do":
		return l.whileDo()
	case "endwhile":
		return l.endWhile()

	case "loop":
		header := l.fn.NewBlock("")
		end := l.fn.NewBlock("")
		if l.block.Term == nil {
			l.block.NewBr(header)
		}
		l.block = header
		l.ctrl = append(l.ctrl, &ctrlFrame{kind: "loop", headerBlock: header, endBlock: end})
	case "endloop":
		f := l.popCtrl()
		if l.block.Term == nil {
			l.block.NewBr(f.headerBlock)
		}
		l.block = f.endBlock
	case "exit":
		for i := len(l.ctrl) - 1; i >= 0; i-- {
			if l.ctrl[i].kind == "while" || l.ctrl[i].kind == "loop" {
				if l.block.Term == nil {
					l.block.NewBr(l.ctrl[i].endBlock)
				}
				l.block = l.fn.NewBlock("")
				return nil
			}
		}
		return fmt.Errorf("exit outside a while/loop")

	case "ldfld", "stfld", "ldfldaddr", "ldelem", "stelem", "newobj", "newarr", "ptroff", "free",
		"switch", "case", "default", "endswitch", "label", "goto", "try", "catch", "finally", "endtry", "raise":
		return fmt.Errorf("opcode %q is outside this backend's best-effort scope (see package doc)", op.Mnemonic)

	default:
		return fmt.Errorf("unrecognized opcode %q", op.Mnemonic)
	}
	return nil
}

func (l *procLowerer) popCtrl() *ctrlFrame {
	f := l.top()
	l.ctrl = l.ctrl[:len(l.ctrl)-1]
	return f
}

func (l *procLowerer) then() error {
	if len(l.ctrl) == 0 || l.top().kind != "if" {
		return fmt.Errorf("then without if")
	}
	cond := l.pop()
	f := l.top()
	thenBlock := l.fn.NewBlock("")
	f.elseBlock = l.fn.NewBlock("")
	f.endBlock = l.fn.NewBlock("")
	l.block.NewCondBr(cond, thenBlock, f.elseBlock)
	l.block = thenBlock
	return nil
}

func (l *procLowerer) els() error {
	if len(l.ctrl) == 0 || l.top().kind != "if" {
		return fmt.Errorf("else without if")
	}
	f := l.top()
	if l.block.Term == nil {
		l.block.NewBr(f.endBlock)
	}
	f.sawElse = true
	l.block = f.elseBlock
	return nil
}

func (l *procLowerer) endif() error {
	if len(l.ctrl) == 0 || l.top().kind != "if" {
		return fmt.Errorf("endif without if")
	}
	f := l.popCtrl()
	if !f.sawElse && f.elseBlock.Term == nil {
		f.elseBlock.NewBr(f.endBlock)
	}
	if l.block.Term == nil {
		l.block.NewBr(f.endBlock)
	}
	l.block = f.endBlock
	return nil
}

func (l *procLowerer) whileDo() error {
	if len(l.ctrl) == 0 || l.top().kind != "while" {
		return fmt.Errorf("do without while")
	}
	cond := l.pop()
	f := l.top()
	body := l.fn.NewBlock("")
	f.endBlock = l.fn.NewBlock("")
	l.block.NewCondBr(cond, body, f.endBlock)
	l.block = body
	return nil
}

func (l *procLowerer) endWhile() error {
	if len(l.ctrl) == 0 || l.top().kind != "while" {
		return fmt.Errorf("endwhile without while")
	}
	f := l.popCtrl()
	if l.block.Term == nil {
		l.block.NewBr(f.headerBlock)
	}
	l.block = f.endBlock
	return nil
}

func (l *procLowerer) isFloat(v value.Value) bool {
	_, ok := v.Type().(*types.FloatType)
	return ok
}

func (l *procLowerer) arith(op *mil.MilOp) error {
	b, a := l.pop(), l.pop()
	w := op.Operands[0]
	float := l.isFloat(a)
	unsigned := strings.HasPrefix(w, "U")
	var v value.Value
	switch op.Mnemonic {
	case "add":
		if float {
			v = l.block.NewFAdd(a, b)
		} else {
			v = l.block.NewAdd(a, b)
		}
	case "sub":
		if float {
			v = l.block.NewFSub(a, b)
		} else {
			v = l.block.NewSub(a, b)
		}
	case "mul":
		if float {
			v = l.block.NewFMul(a, b)
		} else {
			v = l.block.NewMul(a, b)
		}
	case "div":
		switch {
		case float:
			v = l.block.NewFDiv(a, b)
		case unsigned:
			v = l.block.NewUDiv(a, b)
		default:
			v = l.block.NewSDiv(a, b)
		}
	case "rem":
		switch {
		case float:
			v = l.block.NewFRem(a, b)
		case unsigned:
			v = l.block.NewURem(a, b)
		default:
			v = l.block.NewSRem(a, b)
		}
	case "and":
		v = l.block.NewAnd(a, b)
	case "or":
		v = l.block.NewOr(a, b)
	case "xor":
		v = l.block.NewXor(a, b)
	}
	l.push(v)
	return nil
}

func (l *procLowerer) neg(op *mil.MilOp) error {
	a := l.pop()
	if l.isFloat(a) {
		l.push(l.block.NewFNeg(a))
	} else {
		l.push(l.block.NewSub(constant.NewInt(a.Type().(*types.IntType), 0), a))
	}
	return nil
}

func (l *procLowerer) shift(op *mil.MilOp) error {
	amt, a := l.pop(), l.pop()
	switch op.Mnemonic {
	case "shl":
		l.push(l.block.NewShl(a, amt))
	case "shr":
		l.push(l.block.NewLShr(a, amt))
	case "sar":
		l.push(l.block.NewAShr(a, amt))
	}
	return nil
}

func (l *procLowerer) cmp(op *mil.MilOp) error {
	b, a := l.pop(), l.pop()
	w := op.Operands[0]
	if l.isFloat(a) {
		pred := map[string]enum.FPred{
			"ceq": enum.FPredOEQ, "cne": enum.FPredONE,
			"clt": enum.FPredOLT, "cle": enum.FPredOLE,
			"cgt": enum.FPredOGT, "cge": enum.FPredOGE,
		}[op.Mnemonic]
		l.push(l.block.NewFCmp(pred, a, b))
		return nil
	}
	unsigned := strings.HasPrefix(w, "U")
	var pred enum.IPred
	switch op.Mnemonic {
	case "ceq":
		pred = enum.IPredEQ
	case "cne":
		pred = enum.IPredNE
	case "clt":
		if unsigned {
			pred = enum.IPredULT
		} else {
			pred = enum.IPredSLT
		}
	case "cle":
		if unsigned {
			pred = enum.IPredULE
		} else {
			pred = enum.IPredSLE
		}
	case "cgt":
		if unsigned {
			pred = enum.IPredUGT
		} else {
			pred = enum.IPredSGT
		}
	case "cge":
		if unsigned {
			pred = enum.IPredUGE
		} else {
			pred = enum.IPredSGE
		}
	}
	l.push(l.block.NewICmp(pred, a, b))
	return nil
}

// intRank orders the fixed-width integer singletons llvmType returns, so
// conv can tell a widen from a narrow without a BitSize field this backend
// has no grounded evidence llir/llvm's *types.IntType exposes.
func intRank(t *types.IntType) int {
	switch t {
	case types.I8:
		return 8
	case types.I16:
		return 16
	case types.I32:
		return 32
	case types.I64:
		return 64
	default:
		return 0
	}
}

func (l *procLowerer) conv(op *mil.MilOp) error {
	a := l.pop()
	target := llvmType(op.Operands[0])
	if a.Type() == target {
		l.push(a)
		return nil
	}
	srcInt, srcIsInt := a.Type().(*types.IntType)
	dstInt, dstIsInt := target.(*types.IntType)
	switch {
	case srcIsInt && dstIsInt && intRank(dstInt) > intRank(srcInt):
		if strings.HasPrefix(op.Operands[0], "U") {
			l.push(l.block.NewZExt(a, target))
		} else {
			l.push(l.block.NewSExt(a, target))
		}
	case srcIsInt && dstIsInt:
		l.push(l.block.NewTrunc(a, target))
	case srcIsInt && !dstIsInt:
		l.push(l.block.NewSIToFP(a, target))
	case !srcIsInt && dstIsInt:
		l.push(l.block.NewFPToSI(a, target))
	case target == types.Double:
		l.push(l.block.NewFPExt(a, target))
	default:
		l.push(l.block.NewFPTrunc(a, target))
	}
	return nil
}

func (l *procLowerer) call(op *mil.MilOp) error {
	callee, ok := l.b.funcs[op.Operands[0]]
	if !ok {
		return fmt.Errorf("call to undeclared procedure %q", op.Operands[0])
	}
	args := make([]value.Value, len(callee.params))
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = l.pop()
	}
	result := l.block.NewCall(callee.fn, args...)
	if callee.ret != types.Void {
		l.push(result)
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
