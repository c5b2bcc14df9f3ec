package ast

import (
	"fmt"
	"strings"
)

// Type is the syntactic type of a C declaration or expression.
type Type interface {
	// method used to tag type constructors
	isType()
	fmt.Stringer
}

type tnode struct{}

func (tnode) isType() {}

type BasicKind int

const (
	Void BasicKind = iota
	Bool
	Char
	// Int covers every non-character integer type.
	Int
	Float
	// VaList is the opaque va_list type.
	VaList
)

type Basic struct {
	tnode
	Kind     BasicKind
	Name     string
	Unsigned bool
}

func (b *Basic) String() string { return b.Name }

type Enum struct {
	tnode
	Name string
}

func (e *Enum) String() string {
	if e.Name == "" {
		return "enum <anonymous>"
	}
	return "enum " + e.Name
}

// Record is a struct or union type. Decl is nil for incomplete records.
type Record struct {
	tnode
	Name  string
	Union bool
	Decl  *RecordDecl
}

func (r *Record) String() string {
	kw := "struct"
	if r.Union {
		kw = "union"
	}
	if r.Name == "" {
		return kw + " <anonymous>"
	}
	return kw + " " + r.Name
}

// Anonymous reports whether the record has no tag name.
func (r *Record) Anonymous() bool { return r.Name == "" }

// CheckedKind distinguishes unchecked pointers and arrays from the
// Checked C forms already present in the input.
type CheckedKind int

const (
	Unchecked CheckedKind = iota
	// _Ptr<T> for pointers.
	CheckedPtr
	// _Array_ptr<T> for pointers, T a _Checked[N] for arrays.
	CheckedArray
	// _Nt_array_ptr<T> for pointers, T a _Nt_checked[N] for arrays.
	CheckedNTArray
)

type Qualifiers uint8

const (
	Const Qualifiers = 1 << iota
	Volatile
	Restrict
)

func (q Qualifiers) String() string {
	var parts []string
	if q&Const != 0 {
		parts = append(parts, "const")
	}
	if q&Volatile != 0 {
		parts = append(parts, "volatile")
	}
	if q&Restrict != 0 {
		parts = append(parts, "restrict")
	}
	return strings.Join(parts, " ")
}

type Pointer struct {
	tnode
	Elem    Type
	Checked CheckedKind
	// Qualifiers of the pointer itself, as in `int *const p`.
	Quals Qualifiers
}

func (p *Pointer) String() string { return Format(p, "") }

// Array is a C array type. Size is -1 for arrays of unknown size.
type Array struct {
	tnode
	Elem    Type
	Size    int64
	Checked CheckedKind
}

func (a *Array) String() string { return Format(a, "") }

type Func struct {
	tnode
	Result    Type
	Params    []Type
	Variadic  bool
	Prototype bool
}

func (f *Func) String() string { return Format(f, "") }

// Named is a typedef name.
type Named struct {
	tnode
	Name       string
	Underlying Type
}

func (n *Named) String() string { return n.Name }

// Qualified attaches qualifiers to a non-pointer type, as in `const char`.
type Qualified struct {
	tnode
	Quals Qualifiers
	Type  Type
}

func (q *Qualified) String() string { return Format(q, "") }

// TypeVar is a type parameter of a generic (`_Itype_for_any`) function.
type TypeVar struct {
	tnode
	Name  string
	Index int
}

func (v *TypeVar) String() string { return v.Name }

var (
	VoidType   = &Basic{Kind: Void, Name: "void"}
	BoolType   = &Basic{Kind: Bool, Name: "_Bool", Unsigned: true}
	CharType   = &Basic{Kind: Char, Name: "char"}
	IntType    = &Basic{Kind: Int, Name: "int"}
	LongType   = &Basic{Kind: Int, Name: "long"}
	SizeType   = &Basic{Kind: Int, Name: "size_t", Unsigned: true}
	FloatType  = &Basic{Kind: Float, Name: "float"}
	DoubleType = &Basic{Kind: Float, Name: "double"}
	VaListType = &Basic{Kind: VaList, Name: "va_list"}
)

func PointerTo(t Type) *Pointer { return &Pointer{Elem: t} }

func CheckedPointerTo(t Type, kind CheckedKind) *Pointer {
	return &Pointer{Elem: t, Checked: kind}
}

func ArrayOf(t Type, size int64) *Array { return &Array{Elem: t, Size: size} }

// Underlying strips typedef names and qualifiers.
func Underlying(t Type) Type {
	for {
		switch u := t.(type) {
		case *Named:
			t = u.Underlying
		case *Qualified:
			t = u.Type
		default:
			return t
		}
	}
}

func IsPointer(t Type) bool {
	_, ok := Underlying(t).(*Pointer)
	return ok
}

func IsArray(t Type) bool {
	_, ok := Underlying(t).(*Array)
	return ok
}

func IsFunc(t Type) bool {
	_, ok := Underlying(t).(*Func)
	return ok
}

// IsPointerLike reports whether values of type t need a pointer-shaped
// constraint variable.
func IsPointerLike(t Type) bool {
	switch Underlying(t).(type) {
	case *Pointer, *Array:
		return true
	default:
		return false
	}
}

func IsFuncPointer(t Type) bool {
	if p, ok := Underlying(t).(*Pointer); ok {
		return IsFunc(p.Elem)
	}
	return false
}

func IsVoid(t Type) bool {
	b, ok := Underlying(t).(*Basic)
	return ok && b.Kind == Void
}

func IsVoidPointer(t Type) bool {
	if p, ok := Underlying(t).(*Pointer); ok {
		return IsVoid(p.Elem)
	}
	return false
}

func IsRecord(t Type) bool {
	_, ok := Underlying(t).(*Record)
	return ok
}

func IsEnum(t Type) bool {
	_, ok := Underlying(t).(*Enum)
	return ok
}

func IsChar(t Type) bool {
	b, ok := Underlying(t).(*Basic)
	return ok && b.Kind == Char
}

func IsInteger(t Type) bool {
	switch u := Underlying(t).(type) {
	case *Basic:
		return u.Kind == Bool || u.Kind == Char || u.Kind == Int
	case *Enum:
		return true
	default:
		return false
	}
}

func IsFloating(t Type) bool {
	b, ok := Underlying(t).(*Basic)
	return ok && b.Kind == Float
}

func IsArithmetic(t Type) bool { return IsInteger(t) || IsFloating(t) }

func IsScalar(t Type) bool { return IsArithmetic(t) || IsPointer(t) }

func IsTypeVar(t Type) bool {
	_, ok := Underlying(t).(*TypeVar)
	return ok
}

// Elem returns the pointee of a pointer or the element of an array.
func Elem(t Type) Type {
	switch u := Underlying(t).(type) {
	case *Pointer:
		return u.Elem
	case *Array:
		return u.Elem
	default:
		return nil
	}
}

// Decay applies array-to-pointer and function-to-pointer conversion.
func Decay(t Type) Type {
	switch u := Underlying(t).(type) {
	case *Array:
		return PointerTo(u.Elem)
	case *Func:
		return PointerTo(t)
	default:
		return t
	}
}

// FuncOf returns the function type called through t, which may be a
// function or a pointer to one.
func FuncOf(t Type) *Func {
	switch u := Underlying(t).(type) {
	case *Func:
		return u
	case *Pointer:
		if f, ok := Underlying(u.Elem).(*Func); ok {
			return f
		}
	}
	return nil
}

// Identical reports whether two types are the same after stripping typedef
// names and qualifiers.
func Identical(a, b Type) bool {
	a, b = Underlying(a), Underlying(b)
	if a == b {
		return true
	}
	switch a := a.(type) {
	case *Basic:
		b, ok := b.(*Basic)
		return ok && a.Kind == b.Kind && a.Name == b.Name
	case *Enum:
		b, ok := b.(*Enum)
		return ok && a.Name == b.Name && a.Name != ""
	case *Record:
		b, ok := b.(*Record)
		if !ok || a.Union != b.Union {
			return false
		}
		if a.Name == "" || b.Name == "" {
			return a.Decl != nil && a.Decl == b.Decl
		}
		return a.Name == b.Name
	case *Pointer:
		b, ok := b.(*Pointer)
		return ok && a.Checked == b.Checked && Identical(a.Elem, b.Elem)
	case *Array:
		b, ok := b.(*Array)
		return ok && a.Size == b.Size && Identical(a.Elem, b.Elem)
	case *Func:
		b, ok := b.(*Func)
		if !ok || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) ||
			!Identical(a.Result, b.Result) {
			return false
		}
		for i := range a.Params {
			if !Identical(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case *TypeVar:
		b, ok := b.(*TypeVar)
		return ok && a.Index == b.Index
	default:
		return false
	}
}

// Levels counts the pointer and array levels of t, stopping at function
// types.
func Levels(t Type) int {
	n := 0
	for {
		switch u := Underlying(t).(type) {
		case *Pointer:
			t = u.Elem
		case *Array:
			t = u.Elem
		default:
			return n
		}
		n++
	}
}
