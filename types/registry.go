package types

// Registry owns the one-canonical-instance-per-basic-kind table for a
// single compilation session (spec.md §4.1: "the basic-type registry (one
// canonical instance per basic kind)"). It is the Arena for Type nodes:
// every compound type constructed through it is tracked so the session can
// drop its references at teardown (spec.md §5).
type Registry struct {
	basics map[Kind]*Basic
	all    []Type
}

// NewRegistry creates a Registry pre-populated with the canonical basic
// types.
func NewRegistry() *Registry {
	r := &Registry{basics: make(map[Kind]*Basic)}
	for k := NoType; k <= ByteArrayLit; k++ {
		b := &Basic{kind: k}
		r.basics[k] = b
		r.all = append(r.all, b)
	}
	return r
}

// Basic returns the canonical instance for a basic Kind.
func (r *Registry) Basic(k Kind) *Basic {
	b, ok := r.basics[k]
	if !ok {
		panic("types: not a basic kind: " + k.String())
	}
	return b
}

func (r *Registry) track(t Type) Type {
	r.all = append(r.all, t)
	return t
}

// NewPointer allocates a Pointer type. Panics if elem is NoType, enforcing
// T1.
func (r *Registry) NewPointer(elem Type) *Pointer {
	if elem == nil || Underlying(elem) == r.Basic(NoType) {
		panic("types: pointer base must not be NoType")
	}
	p := &Pointer{Elem: elem}
	r.track(p)
	return p
}

// NewArray allocates an Array type; length 0 denotes an open array. Panics
// if elem is nil, enforcing T1.
func (r *Registry) NewArray(elem Type, length int) *Array {
	if elem == nil {
		panic("types: array element type must be set")
	}
	a := &Array{Elem: elem, Len: length}
	r.track(a)
	return a
}

func (r *Registry) NewRecord(fields []*Field) *Record {
	rec := &Record{Fields: fields}
	r.track(rec)
	return rec
}

func (r *Registry) NewObject(fields []*Field, methods []*Method) *Object {
	o := &Object{Fields: fields, Methods: methods}
	r.track(o)
	return o
}

func (r *Registry) NewUnion(members []*Field) *Union {
	u := &Union{Members: members}
	r.track(u)
	return u
}

func (r *Registry) NewProc(params []*Param, ret Type, variadic bool) *Proc {
	p := &Proc{Params: params, Return: ret, Variadic: variadic}
	r.track(p)
	return p
}

func (r *Registry) NewConstEnum(members []*EnumMember) *ConstEnum {
	c := &ConstEnum{Members: members}
	r.track(c)
	return c
}

func (r *Registry) NewGeneric(index int) *Generic {
	g := &Generic{Index: index}
	r.track(g)
	return g
}

// NewNameRef allocates an unresolved forward-reference placeholder.
func (r *Registry) NewNameRef(qualified string) *NameRef {
	n := &NameRef{Qualified: qualified}
	r.track(n)
	return n
}

// Release drops the registry's references to every type node it tracked,
// honoring spec.md §5's "arenas are released in reverse allocation order"
// on session teardown (Go's GC then reclaims any node with no remaining
// external holder).
func (r *Registry) Release() {
	for i := len(r.all) - 1; i >= 0; i-- {
		r.all[i] = nil
	}
	r.all = nil
	r.basics = nil
}
