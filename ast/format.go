package ast

import (
	"strconv"
	"strings"
)

// Format renders t as a C declaration of name. An empty name yields an
// abstract declarator such as `int *(*)(char)`.
func Format(t Type, name string) string {
	base, decl := split(t, name)
	return Join(base, decl)
}

// Join glues a base type onto a declarator.
func Join(base, decl string) string {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return base
	}
	return base + " " + decl
}

// WrapDeclarator parenthesizes a declarator that starts with a pointer
// before a suffix declarator is applied to it.
func WrapDeclarator(decl string) string {
	if strings.HasPrefix(decl, "*") {
		return "(" + decl + ")"
	}
	return decl
}

func split(t Type, decl string) (string, string) {
	switch t := t.(type) {
	case *Pointer:
		if t.Checked != Unchecked {
			base := CheckedPointerName(t.Checked) + "<" + Format(t.Elem, "") + ">"
			if t.Quals != 0 {
				base += " " + t.Quals.String()
			}
			return base, decl
		}
		star := "*"
		if t.Quals != 0 {
			star += t.Quals.String() + " "
		}
		return split(t.Elem, star+decl)
	case *Array:
		return split(t.Elem, WrapDeclarator(decl)+ArraySuffix(t.Checked, t.Size))
	case *Func:
		return split(t.Result, WrapDeclarator(decl)+"("+FormatParams(t)+")")
	case *Qualified:
		base, decl := split(t.Type, decl)
		return t.Quals.String() + " " + base, decl
	default:
		return t.String(), decl
	}
}

// FormatParams renders the parameter list of an abstract function type.
func FormatParams(f *Func) string {
	if len(f.Params) == 0 {
		if f.Variadic {
			return "..."
		}
		if f.Prototype {
			return "void"
		}
		return ""
	}
	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		parts = append(parts, Format(p, ""))
	}
	if f.Variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

func CheckedPointerName(kind CheckedKind) string {
	switch kind {
	case CheckedPtr:
		return "_Ptr"
	case CheckedArray:
		return "_Array_ptr"
	case CheckedNTArray:
		return "_Nt_array_ptr"
	default:
		return ""
	}
}

// ArraySuffix renders an array declarator suffix, with the checked keyword
// when kind is not Unchecked.
func ArraySuffix(kind CheckedKind, size int64) string {
	dim := "[]"
	if size >= 0 {
		dim = "[" + strconv.FormatInt(size, 10) + "]"
	}
	switch kind {
	case CheckedArray, CheckedPtr:
		return " _Checked" + dim
	case CheckedNTArray:
		return " _Nt_checked" + dim
	default:
		return dim
	}
}
