// Package eval implements the compile-time evaluator (spec.md §4.3): the
// operand stack, coercions, numeric promotion, constant folding, and
// assignment-compatibility rules that sit between the parser's semantic
// actions and the IR emitter.
package eval

import (
	"micc/mil"
	"micc/types"
)

// milWidth maps a basic numeric/text Kind to the IR operand width used for
// ldc/conv opcodes. Panics on a non-scalar kind -- callers only ever call
// this on operands already known numeric, boolean, or char.
func milWidth(k types.Kind) mil.Width {
	switch k {
	case types.Int8:
		return mil.I1
	case types.Int16:
		return mil.I2
	case types.Int32:
		return mil.I4
	case types.Int64:
		return mil.I8
	case types.Uint8, types.Bool, types.Char:
		return mil.U1
	case types.Uint16:
		return mil.U2
	case types.Uint32:
		return mil.U4
	case types.Uint64:
		return mil.U8
	case types.Float32:
		return mil.R4
	case types.Float64:
		return mil.R8
	case types.IntPtr, types.DblIntPtr:
		return mil.WIntPtr
	default:
		panic("eval: no IR width for kind " + k.String())
	}
}

// widthBits returns the arithmetic bit-width of an integer/real Kind, for
// the promotion ladder's "8 < 16 < 32 < 64" comparisons.
func widthBits(k types.Kind) int {
	switch k {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32, types.Float32:
		return 32
	case types.Int64, types.Uint64, types.Float64:
		return 64
	default:
		return 0
	}
}

// intKindFor returns the basic integer Kind with the given signedness and
// bit width (one of 8/16/32/64).
func intKindFor(signed bool, bits int) types.Kind {
	if signed {
		switch bits {
		case 8:
			return types.Int8
		case 16:
			return types.Int16
		case 32:
			return types.Int32
		default:
			return types.Int64
		}
	}
	switch bits {
	case 8:
		return types.Uint8
	case 16:
		return types.Uint16
	case 32:
		return types.Uint32
	default:
		return types.Uint64
	}
}

func realKindFor(bits int) types.Kind {
	if bits <= 32 {
		return types.Float32
	}
	return types.Float64
}
