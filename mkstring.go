package cconv

import (
	"strings"

	"github.com/BarrensZeppelin/cconv/ast"
)

func checkedKind(k ConstKind) ast.CheckedKind {
	switch k {
	case Ptr:
		return ast.CheckedPtr
	case Arr:
		return ast.CheckedArray
	case NTArr:
		return ast.CheckedNTArray
	default:
		return ast.Unchecked
	}
}

// MkString renders the variable as a C declaration under env. With
// emitName the declaration names the variable. forItype renders the form
// used inside itype(...), where an outermost array level becomes a
// checked pointer and no name is emitted. emitPointee skips the outermost
// level.
func (pv *PVConstraint) MkString(env Env, emitName, forItype, emitPointee bool) string {
	name := ""
	if emitName && !forItype {
		name = pv.name
	}
	start := 0
	if emitPointee {
		start = 1
	}
	return ast.Join(pv.render(env, start, name, forItype))
}

// render builds the base type and the declarator from level i inwards.
// Unchecked levels grow the declarator; the first checked pointer level
// turns everything below it into the base type.
func (pv *PVConstraint) render(env Env, i int, decl string, forItype bool) (string, string) {
	for ; i < len(pv.atoms); i++ {
		lvl := pv.levels[i]
		k := env.Assignment(pv.atoms[i])
		if lvl.array && !(forItype && i == 0 && k != Wild) {
			kind := ast.Unchecked
			if k != Wild {
				kind = checkedKind(k)
			}
			decl = ast.WrapDeclarator(decl) + ast.ArraySuffix(kind, lvl.size)
			continue
		}
		if k == Wild {
			star := "*"
			if lvl.quals != 0 {
				star += lvl.quals.String() + " "
			}
			decl = star + decl
			continue
		}
		base := ast.CheckedPointerName(checkedKind(k)) + "<" + ast.Join(pv.render(env, i+1, "", false)) + ">"
		if lvl.quals != 0 {
			base += " " + lvl.quals.String()
		}
		return base, decl
	}
	if pv.fv != nil {
		return pv.fv.render(env, decl)
	}
	return pv.baseType, decl
}

func (fv *FVConstraint) render(env Env, decl string) (string, string) {
	decl = ast.WrapDeclarator(decl) + "(" + fv.paramList(env) + ")"
	return fv.ret.render(env, 0, decl, false)
}

func (fv *FVConstraint) paramList(env Env) string {
	if len(fv.params) == 0 {
		switch {
		case fv.variadic:
			return "..."
		case fv.hasProto:
			return "void"
		default:
			return ""
		}
	}
	parts := make([]string, 0, len(fv.params)+1)
	for i := range fv.params {
		parts = append(parts, fv.ParamVar(i).MkString(env, false, false, false))
	}
	if fv.variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

// MkString renders the function type, as a declaration of the function's
// name when emitName is set.
func (fv *FVConstraint) MkString(env Env, emitName bool) string {
	name := ""
	if emitName {
		name = fv.name
	}
	return ast.Join(fv.render(env, name))
}

// MkDeclarator renders the variable around an arbitrary declarator, such as
// the name and parameter list of the function it is the return value of.
func (pv *PVConstraint) MkDeclarator(env Env, decl string) string {
	return ast.Join(pv.render(env, 0, decl, false))
}
