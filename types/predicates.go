package types

// IsInteger reports whether t is one of the signed or unsigned integer
// basic kinds (not IntPtr/DblIntPtr, which are address-sized but not part
// of the arithmetic promotion ladder).
func IsInteger(t Type) bool {
	switch Underlying(t).Kind() {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// IsSigned reports whether t is a signed integer kind.
func IsSigned(t Type) bool {
	switch Underlying(t).Kind() {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsUInt reports whether t is an unsigned integer kind.
func IsUInt(t Type) bool {
	switch Underlying(t).Kind() {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// IsReal reports whether t is a floating-point kind.
func IsReal(t Type) bool {
	switch Underlying(t).Kind() {
	case Float32, Float64:
		return true
	}
	return false
}

// IsNumeric reports whether t is integer or real.
func IsNumeric(t Type) bool {
	return IsInteger(t) || IsReal(t)
}

// IsText reports whether t is a char, a string literal type, or an array of
// Char (fixed or open).
func IsText(t Type) bool {
	u := Underlying(t)
	if u.Kind() == Char || u.Kind() == StringLit {
		return true
	}
	if arr, ok := u.(*Array); ok {
		return Underlying(arr.Elem).Kind() == Char
	}
	return false
}

// IsSet reports whether t is an unsigned integer used as a bit-set (sets
// reuse the unsigned integer kinds; spec.md's INCL/EXCL operate on them).
func IsSet(t Type) bool {
	return IsUInt(t)
}

// IsSimple reports whether t is one of the basic, non-compound kinds.
func IsSimple(t Type) bool {
	return Underlying(t).Kind().isBasic()
}

// rankOrder gives the width order for integers/floats of either signedness,
// per spec.md §4.1: "width order: 8 < 16 < 32 < 64 for both signed and
// unsigned".
var rankOrder = map[Kind]int{
	Int8: 8, Uint8: 8,
	Int16: 16, Uint16: 16,
	Int32: 32, Uint32: 32,
	Int64: 64, Uint64: 64,
	Float32: 32, Float64: 64,
}

// Rank returns the numeric width of t, or 0 if t is not numeric.
func Rank(t Type) int {
	return rankOrder[Underlying(t).Kind()]
}

// PointerBase returns the element type of a Pointer (directly, or through a
// resolved NameRef), and true if t is in fact a pointer.
func PointerBase(t Type) (Type, bool) {
	if p, ok := Underlying(t).(*Pointer); ok {
		return p.Elem, true
	}
	return nil, false
}

// ArrayOf returns the underlying *Array if t is (possibly through a
// NameRef) an array type.
func ArrayOf(t Type) (*Array, bool) {
	a, ok := Underlying(t).(*Array)
	return a, ok
}

// Identical implements T4: two types are identical exactly when they are
// the same node, except NameRefs, which compare on their resolved target.
func Identical(a, b Type) bool {
	return Underlying(a) == Underlying(b)
}
