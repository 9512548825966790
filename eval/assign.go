package eval

import (
	"micc/ast"
	"micc/types"
)

// Assignable implements the assignment-compatibility summary from spec.md
// §4.3.
func Assignable(lhs types.Type, rhs *ast.Value) bool {
	if types.Identical(lhs, rhs.Type) {
		return true
	}

	switch {
	case types.IsNumeric(lhs) && types.IsNumeric(rhs.Type):
		return numericAssignable(lhs, rhs)
	case isTextLike(lhs) && isTextLike(rhs.Type):
		return textAssignable(lhs, rhs)
	}

	if p, ok := types.PointerBase(lhs); ok {
		return pointerAssignable(p, rhs)
	}

	lu, lok := types.Underlying(lhs).(*types.Proc)
	ru, rok := types.Underlying(rhs.Type).(*types.Proc)
	if lok && rok {
		return types.SignatureEquivalent(lu, ru)
	}

	if le, lok := types.Underlying(lhs).(*types.ConstEnum); lok {
		if re, rok := types.Underlying(rhs.Type).(*types.ConstEnum); rok {
			return le == re
		}
		return false
	}

	return false
}

// numericAssignable: "rhs width <= lhs width, same class (signed/unsigned/
// real), or rhs is a literal that fits lhs."
func numericAssignable(lhs types.Type, rhs *ast.Value) bool {
	sameClass := (types.IsSigned(lhs) && types.IsSigned(rhs.Type)) ||
		(types.IsUInt(lhs) && types.IsUInt(rhs.Type)) ||
		(types.IsReal(lhs) && types.IsReal(rhs.Type))
	if sameClass && types.Rank(rhs.Type) <= types.Rank(lhs) {
		return true
	}
	if rhs.IsConst() {
		return literalFits(lhs, rhs.Payload)
	}
	return false
}

// literalFits reports whether a constant payload's value fits within lhs's
// representable range, regardless of the literal's own default type.
func literalFits(lhs types.Type, p ast.ConstPayload) bool {
	kind := types.Underlying(lhs).Kind()
	if kindReal(kind) {
		return p.Kind == ast.ConstInt || p.Kind == ast.ConstUInt || p.Kind == ast.ConstFloat
	}
	bits := widthBits(kind)
	if kindSigned(kind) {
		lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		switch p.Kind {
		case ast.ConstInt:
			return p.Int >= lo && p.Int <= hi
		case ast.ConstUInt:
			return p.UInt <= uint64(hi)
		}
		return false
	}
	// unsigned
	var hi uint64
	if bits >= 64 {
		hi = ^uint64(0)
	} else {
		hi = uint64(1)<<bits - 1
	}
	switch p.Kind {
	case ast.ConstUInt:
		return p.UInt <= hi
	case ast.ConstInt:
		return p.Int >= 0 && uint64(p.Int) <= hi
	}
	return false
}

func isTextLike(t types.Type) bool { return types.IsText(t) }

// textAssignable: "array of char / string literal: compatible if lhs is
// array of char with length >= literal length including terminator."
func textAssignable(lhs types.Type, rhs *ast.Value) bool {
	larr, lok := types.ArrayOf(lhs)
	if !lok {
		// lhs is a scalar Char; only another Char is assignable (already
		// covered by Identical above), so a differing text kind fails.
		return false
	}
	if rhs.IsConst() && rhs.Payload.Kind == ast.ConstString {
		return larr.IsOpen() || larr.Len >= len(rhs.Payload.Str)+1
	}
	if rarr, ok := types.ArrayOf(rhs.Type); ok {
		return types.FieldLayoutEquivalent(larr, rarr)
	}
	return false
}

// pointerAssignable: "bases must be identical or rhs is nil; pointer to
// open array is assignable from pointer to fixed array of the same element
// type."
func pointerAssignable(lhsBase types.Type, rhs *ast.Value) bool {
	if types.Underlying(rhs.Type).Kind() == types.Nil {
		return true
	}
	rhsBase, ok := types.PointerBase(rhs.Type)
	if !ok {
		return false
	}
	if types.Identical(lhsBase, rhsBase) {
		return true
	}
	lArr, lok := types.ArrayOf(lhsBase)
	rArr, rok := types.ArrayOf(rhsBase)
	if lok && rok && lArr.IsOpen() && !rArr.IsOpen() {
		return types.Identical(lArr.Elem, rArr.Elem)
	}
	return false
}
