package rewrite

import (
	"strings"

	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/internal/maps"
)

// component renders one parameter or the return value. defn is the view
// from inside the definition, decl the view callers see.
func component(res *cconv.Result, defn, decl *cconv.PVConstraint, orig ast.Type, decltor string, param bool) (string, string, bool) {
	env := res.Env()
	switch {
	case defn.IsChecked(env) && defn.AnyChanges(env):
		if defn.HasItype() || !defn.AnyArgumentIsWild(env) {
			if param {
				return defn.MkDeclarator(env, decltor) + res.BoundsAnnotation(defn, false), "", true
			}
			return defn.MkDeclarator(env, decltor), res.BoundsAnnotation(defn, false), true
		}
		return ast.Format(orig, decltor), itype(res, defn), true
	case !defn.IsChecked(env) && decl.IsChecked(env) && decl.AnyChanges(env):
		return ast.Format(orig, decltor), itype(res, decl), true
	default:
		return ast.Format(orig, decltor), "", false
	}
}

func itype(res *cconv.Result, pv *cconv.PVConstraint) string {
	return " : itype(" + pv.MkString(res.Env(), false, true, false) + ")" + res.BoundsAnnotation(pv, true)
}

// FunctionSignature renders the declaration of fd with checked parameter
// and return types. Where callers may still pass or receive unchecked
// values, the original type is kept with an interface type. It reports
// false when no part of the signature changed.
func FunctionSignature(res *cconv.Result, fd *ast.FuncDecl) (string, bool) {
	defn := res.Info.FuncDefnConstraint(fd)
	decl := res.Info.FuncDeclConstraint(fd)
	switch {
	case defn == nil && decl == nil:
		return "", false
	case defn == nil:
		defn = decl
	case decl == nil:
		decl = defn
	}
	if !decl.HasProto() && decl.NumParams() != defn.NumParams() {
		// int f(); leaves the parameters to the definition
		decl = defn
	}
	if defn.NumParams() != len(fd.Type.Params) || decl.NumParams() != defn.NumParams() {
		return "", false
	}

	changed := false
	params := make([]string, 0, len(fd.Type.Params)+1)
	for i, t := range fd.Type.Params {
		name := ""
		if i < len(fd.Params) {
			name = fd.Params[i].Name
		}
		text, it, ok := component(res, defn.ParamVar(i), decl.ParamVar(i), t, name, true)
		params = append(params, text+it)
		changed = changed || ok
	}
	if fd.Type.Variadic {
		params = append(params, "...")
	}
	list := strings.Join(params, ", ")
	if len(fd.Type.Params) == 0 && !fd.Type.Variadic {
		list = "void"
	}

	ret, retItype, ok := component(res, defn.ReturnVar(), decl.ReturnVar(), fd.Type.Result, fd.Name+"("+list+")", false)
	changed = changed || ok
	if !changed {
		return "", false
	}
	text := ret + retItype
	if fd.Storage != ast.NoStorage {
		text = fd.Storage.String() + " " + text
	}
	return text, true
}

// TypeArguments renders the explicit type arguments of a call of a generic
// function, one per type parameter. Type parameters bound inconsistently
// render as void.
func TypeArguments(res *cconv.Result, call *ast.Call) ([]string, bool) {
	bindings, ok := res.Info.TypeParamBindings(call)
	if !ok {
		return nil, false
	}
	n := 0
	if callee := call.Callee(); callee != nil {
		n = len(callee.TypeParams)
	}
	for _, idx := range maps.SortedKeys(bindings) {
		n = max(n, idx+1)
	}
	args := make([]string, n)
	for i := range args {
		pv := bindings[i]
		if pv == nil {
			args[i] = "void"
			continue
		}
		args[i] = pv.MkString(res.Env(), false, false, true)
	}
	return args, true
}
