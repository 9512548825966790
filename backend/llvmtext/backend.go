// Package llvmtext is the downstream native backend the renderer-strategy
// boundary in mil.Renderer exists to support (spec.md §4.2, §6; mil's
// InMemRenderer comment: "the optimizer/backend stages that run after
// emission"). It walks the in-memory mil.MilModule tree mil.InMemRenderer
// builds and lowers it to LLVM textual IR via llir/llvm, the library chai's
// own generate.Generator turned to once its native LLVM bindings proved
// unworkable (generate/generator.go's NOTE).
//
// This is a best-effort backend, not a complete code generator: it lowers
// the scalar subset of MIL (arithmetic, comparisons, locals/args/module
// variables and their addresses, indirect load/store through an address,
// calls, returns, conversions, straight-line code, and if/while control
// flow) to real SSA. Field and element access, object/array allocation --
// need the field-layout and allocation-strategy decisions the type checker
// already owns, and switch/try/goto constructs need block-structure
// tracking this backend does not attempt to duplicate; Render reports a
// clear error for a procedure that uses them rather than emitting a
// silently wrong body.
package llvmtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"micc/mil"
)

// Backend lowers one mil.MilModule at a time. It holds no state between
// calls to Render other than the llir/llvm module under construction.
type Backend struct {
	mod   *ir.Module
	funcs map[string]*procInfo
}

type procInfo struct {
	fn     *ir.Func
	params []types.Type
	ret    types.Type
}

// New returns a backend ready to render a module.
func New() *Backend {
	return &Backend{}
}

// Render lowers m to LLVM IR assembly text.
func (b *Backend) Render(m *mil.MilModule) (string, error) {
	b.mod = ir.NewModule()
	b.funcs = make(map[string]*procInfo)

	globals := make(map[string]*ir.Global)
	for _, v := range m.Vars {
		globals[v.Name] = b.mod.NewGlobalDef(v.Name, constant.NewZeroInitializer(llvmType(v.Type)))
	}
	for _, c := range m.Consts {
		globals[c.Name] = b.mod.NewGlobalDef(c.Name, constantFor(llvmType(c.Type), c.Literal))
	}

	for _, proc := range m.Procedures {
		params, ret, err := parseSignature(proc.Signature)
		if err != nil {
			return "", fmt.Errorf("backend/llvmtext: procedure %s: %w", proc.Name, err)
		}
		irParams := make([]*ir.Param, len(params))
		for i, pty := range params {
			irParams[i] = ir.NewParam("", pty)
		}
		fn := b.mod.NewFunc(proc.Name, ret, irParams...)
		fn.Linkage = enum.LinkageExternal
		b.funcs[proc.Name] = &procInfo{fn: fn, params: params, ret: ret}
	}

	for _, proc := range m.Procedures {
		l := &procLowerer{b: b, info: b.funcs[proc.Name], globals: globals, locals: map[int]*ir.InstAlloca{}, args: map[int]*ir.InstAlloca{}}
		if err := l.lower(proc); err != nil {
			return "", fmt.Errorf("backend/llvmtext: procedure %s: %w", proc.Name, err)
		}
	}

	return b.mod.String(), nil
}

// llvmType maps a mil operand-width spelling (mil.Width.String(), e.g.
// "I4") or a types.Kind spelling (types.Kind.String(), e.g. "Int32") to its
// LLVM representation. A compound type name (types.Pointer/Array/Record/
// Object/Union/Proc's String()) falls back to an opaque i8* -- this backend
// never dereferences a value of such a type itself (see package doc).
func llvmType(name string) types.Type {
	switch name {
	case "I1", "Int8", "U1", "Uint8", "Bool", "Char":
		return types.I8
	case "I2", "Int16", "U2", "Uint16":
		return types.I16
	case "I4", "Int32", "U4", "Uint32":
		return types.I32
	case "I8", "Int64", "U8", "Uint64", "IntPtr", "DblIntPtr":
		return types.I64
	case "R4", "Float32":
		return types.Float
	case "R8", "Float64":
		return types.Double
	case "NoType":
		return types.Void
	default:
		return types.I8Ptr
	}
}

// parseSignature decodes the "(T, T, ...): R" spelling signatureString
// produces (parser/procs.go) back into LLVM parameter/return types. Nested
// parentheses inside a parameter's own type spelling (a procedure-typed
// parameter) are not expected in the scalar subset this backend targets.
func parseSignature(sig string) (params []types.Type, ret types.Type, err error) {
	closeIdx := strings.IndexByte(sig, ')')
	if !strings.HasPrefix(sig, "(") || closeIdx < 0 {
		return nil, nil, fmt.Errorf("malformed signature %q", sig)
	}
	inner := sig[1:closeIdx]
	if inner != "" {
		for _, p := range strings.Split(inner, ", ") {
			params = append(params, llvmType(p))
		}
	}
	rest := sig[closeIdx+1:]
	if strings.HasPrefix(rest, ": ") {
		ret = llvmType(rest[2:])
	} else {
		ret = types.Void
	}
	return params, ret, nil
}

// constantFor parses a mil literal string (as produced by MilConst.Literal,
// itself an ast.ConstPayload rendered to text) into an LLVM constant of ty.
func constantFor(ty types.Type, literal string) constant.Constant {
	switch t := ty.(type) {
	case *types.FloatType:
		f, _ := strconv.ParseFloat(literal, 64)
		return constant.NewFloat(t, f)
	case *types.IntType:
		n, _ := strconv.ParseInt(literal, 10, 64)
		return constant.NewInt(t, n)
	default:
		return constant.NewZeroInitializer(ty)
	}
}
