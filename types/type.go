package types

import "strconv"

// Type is implemented by every node in the type graph. Node identity is
// pointer identity (T4): two types are identical if and only if they are
// the same Type value.
type Type interface {
	Kind() Kind
	String() string

	// owner/setOwner back the ownership invariant (T3): a Type is owned by
	// exactly one Declaration (named type) or by one anonymous introducer
	// (field, parameter, variable). Owner is nil until SetOwner is called.
	Owner() any
	SetOwner(o any)
}

// base carries the ownership back-link shared by every concrete Type.
type base struct {
	owner any
}

func (b *base) Owner() any      { return b.owner }
func (b *base) SetOwner(o any)  { b.owner = o }

// Basic is a canonical instance of one of the basic kinds. There is exactly
// one Basic per Kind per Registry (see registry.go).
type Basic struct {
	base
	kind Kind
}

func (b *Basic) Kind() Kind   { return b.kind }
func (b *Basic) String() string { return b.kind.String() }

// Pointer is `POINTER TO base`. T1: Base is never NoType.
type Pointer struct {
	base
	Elem Type
}

func (p *Pointer) Kind() Kind { return KPointer }
func (p *Pointer) String() string {
	return "POINTER TO " + Underlying(p.Elem).String()
}

// Array is `ARRAY [Len] OF Elem`; Len == 0 means an open array. T1: Elem is
// always set.
type Array struct {
	base
	Elem Type
	Len  int
}

func (a *Array) Kind() Kind   { return KArray }
func (a *Array) IsOpen() bool { return a.Len == 0 }
func (a *Array) String() string {
	if a.IsOpen() {
		return "ARRAY OF " + Underlying(a.Elem).String()
	}
	return "ARRAY " + strconv.Itoa(a.Len) + " OF " + Underlying(a.Elem).String()
}

// Field is one member of a Record or Object.
type Field struct {
	Name       string
	Type       Type
	Visibility Visibility
}

// Record is a fixed-layout aggregate with no methods.
type Record struct {
	base
	Fields []*Field
}

func (r *Record) Kind() Kind     { return KRecord }
func (r *Record) String() string { return "RECORD" }

// Method is a procedure bound to an Object.
type Method struct {
	Name string
	Proc *Proc
}

// Object is a Record extended with bound methods.
type Object struct {
	base
	Fields  []*Field
	Methods []*Method
}

func (o *Object) Kind() Kind     { return KObject }
func (o *Object) String() string { return "OBJECT" }

// Union overlays its members on the same storage.
type Union struct {
	base
	Members []*Field
}

func (u *Union) Kind() Kind     { return KUnion }
func (u *Union) String() string { return "UNION" }

// ParamMode distinguishes value and var (by-reference) procedure
// parameters.
type ParamMode int

const (
	ParamByValue ParamMode = iota
	ParamByRef
)

// Param is one formal parameter of a Proc type.
type Param struct {
	Name string
	Type Type
	Mode ParamMode
}

// Proc is a procedure/function signature.
type Proc struct {
	base
	Params   []*Param
	Return   Type // NoType for a procedure with no result
	Variadic bool // trailing `..` parameter, enables VARARG/VARARGS
}

func (p *Proc) Kind() Kind     { return KProc }
func (p *Proc) String() string { return "PROC" }

// EnumMember is one distinct-identity integer constant of a ConstEnum.
type EnumMember struct {
	Name  string
	Value int64
}

// ConstEnum is an enumeration whose members are integer constants with
// distinct identity (not structurally interchangeable with plain integers).
type ConstEnum struct {
	base
	Members []*EnumMember
}

func (c *ConstEnum) Kind() Kind     { return KConstEnum }
func (c *ConstEnum) String() string { return "CONSTENUM" }

func (c *ConstEnum) MemberByName(name string) (*EnumMember, bool) {
	for _, m := range c.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Generic is a formal type parameter of a parametric module, identified by
// its positional index among the module's meta-actuals.
type Generic struct {
	base
	Index int
}

func (g *Generic) Kind() Kind     { return KGeneric }
func (g *Generic) String() string { return "GENERIC#" + strconv.Itoa(g.Index) }

// NameRef is the forward-reference placeholder described in spec.md §4.1.
// It carries an unresolved qualified identifier until the enclosing
// declaration sequence ends, at which point the deferred-list resolver sets
// Resolved. Every holder of a *NameRef observes the same mutation because
// Go interface values here are backed by this one pointer -- this is the
// "stable handle" spec.md §9 calls for, without a separate arena index.
type NameRef struct {
	base
	Qualified string // dotted qualified name as written by the parser
	Resolved  Type   // nil until bound by the resolver
}

func (n *NameRef) Kind() Kind { return KNameRef }
func (n *NameRef) String() string {
	if n.Resolved != nil {
		return n.Resolved.String()
	}
	return "NameRef(" + n.Qualified + ")"
}

// Underlying follows a possibly-chained NameRef to the concrete type it
// resolves to. It returns t unchanged if t is not a NameRef, and returns the
// innermost unresolved *NameRef if resolution is incomplete.
func Underlying(t Type) Type {
	for {
		nr, ok := t.(*NameRef)
		if !ok || nr.Resolved == nil {
			return t
		}
		t = nr.Resolved
	}
}

// IsResolved reports whether following Underlying terminates in a non-NameRef
// type (P1's per-NameRef invariant).
func IsResolved(t Type) bool {
	_, ok := Underlying(t).(*NameRef)
	return !ok
}

// Visibility controls cross-module access to a declaration.
type Visibility int

const (
	Private Visibility = iota
	ReadOnly
	Public
)

