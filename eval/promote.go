package eval

import (
	"micc/diag"
	"micc/token"
	"micc/types"
)

// promoted is the result of applying one of the four numeric promotion
// rules (spec.md §4.3) to a pair of operand types: the common Kind both
// sides are widened to before the operator applies.
type promoted struct {
	Kind types.Kind
}

// promoteIntegers implements rule 1: "both operands integer: promote each
// independently to at least 32-bit, preserving signedness; then to the
// wider of the two; mixed signed/unsigned of equal width is a diagnostic --
// prefer unsigned if both unsigned, signed otherwise."
func (ev *Evaluator) promoteIntegers(lt, rt types.Type, pos token.Position) promoted {
	lBits, lSigned := widthBits(types.Underlying(lt).Kind()), types.IsSigned(lt)
	rBits, rSigned := widthBits(types.Underlying(rt).Kind()), types.IsSigned(rt)

	if lBits < 32 {
		lBits = 32
	}
	if rBits < 32 {
		rBits = 32
	}

	bits := lBits
	if rBits > bits {
		bits = rBits
	}

	if lSigned == rSigned {
		return promoted{Kind: intKindFor(lSigned, bits)}
	}

	// Mixed signed/unsigned resolves to the signed class at the wider
	// promoted width. If the promoted widths land on the same rank, spec.md
	// calls this out as a diagnostic; it is reported as a warning so
	// analysis continues.
	if lBits == rBits {
		ev.sink.Warnf(diag.Type, pos, "mixed signed/unsigned operands of equal width %d; result is signed", bits)
	}
	return promoted{Kind: intKindFor(true, bits)}
}

// promoteReals implements rule 2: "either operand real: both promoted to
// real; mixed 32/64 promotes to 64."
func promoteReals(lt, rt types.Type) promoted {
	lBits := widthBits(types.Underlying(lt).Kind())
	rBits := widthBits(types.Underlying(rt).Kind())
	if !types.IsReal(lt) {
		lBits = 32
	}
	if !types.IsReal(rt) {
		rBits = 32
	}
	bits := lBits
	if rBits > bits {
		bits = rBits
	}
	return promoted{Kind: realKindFor(bits)}
}

// promoteShift implements rule 3: "left operand must be unsigned; promoted
// to at least 32-bit; right operand promoted the same way; result width =
// left." It returns the promoted left Kind (the result width) and the
// promoted right Kind (used only to size the shift-count operand).
func (ev *Evaluator) promoteShift(lt, rt types.Type, pos token.Position) (left, right promoted) {
	if !types.IsUInt(lt) {
		ev.sink.Errorf(diag.Type, pos, "left operand of a shift must be unsigned, got %s", lt)
	}
	lBits := widthBits(types.Underlying(lt).Kind())
	if lBits < 32 {
		lBits = 32
	}
	rBits := widthBits(types.Underlying(rt).Kind())
	if rBits < 32 {
		rBits = 32
	}
	return promoted{Kind: intKindFor(false, lBits)}, promoted{Kind: intKindFor(false, rBits)}
}

// promoteBitwise implements rule 4: "and/or/xor: both operands unsigned,
// promoted to max(width, 32), widened to the larger."
func (ev *Evaluator) promoteBitwise(lt, rt types.Type, pos token.Position) promoted {
	if !types.IsUInt(lt) {
		ev.sink.Errorf(diag.Type, pos, "bitwise operand must be unsigned, got %s", lt)
	}
	if !types.IsUInt(rt) {
		ev.sink.Errorf(diag.Type, pos, "bitwise operand must be unsigned, got %s", rt)
	}
	lBits := widthBits(types.Underlying(lt).Kind())
	if lBits < 32 {
		lBits = 32
	}
	rBits := widthBits(types.Underlying(rt).Kind())
	if rBits < 32 {
		rBits = 32
	}
	bits := lBits
	if rBits > bits {
		bits = rBits
	}
	return promoted{Kind: intKindFor(false, bits)}
}
