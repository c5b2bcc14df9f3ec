package cconv

import (
	"log"
	"strconv"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/internal/maps"
)

// typeVarEntry is the binding of one type variable at one call of a generic
// function.
type typeVarEntry struct {
	// typ is the first type the variable was instantiated with.
	typ        ast.Type
	consistent bool
	argVars    CVarSet
	pv         *PVConstraint
}

func (e *typeVarEntry) update(t ast.Type, cvs CVarSet) {
	switch {
	case isAnonymousPointee(t):
		// Type arguments must be nameable.
		e.consistent = false
	case e.consistent && !ast.Identical(ast.Elem(ast.Decay(e.typ)), ast.Elem(ast.Decay(t))):
		e.consistent = false
	case e.consistent:
		e.argVars = e.argVars.Add(cvs...)
	}
}

func isAnonymousPointee(t ast.Type) bool {
	if r, ok := ast.Underlying(ast.Elem(ast.Decay(t))).(*ast.Record); ok {
		return r.Anonymous()
	}
	return false
}

// typeVariableOf returns the type variable t points to, if any.
func typeVariableOf(t ast.Type) (*ast.TypeVar, bool) {
	tv, ok := ast.Underlying(ast.Elem(ast.Decay(t))).(*ast.TypeVar)
	return tv, ok
}

func (info *ProgramInfo) insertBinding(call *ast.Call, tv *ast.TypeVar, t ast.Type, cvs CVarSet) {
	if !ast.IsPointerLike(t) {
		log.Panicf("type variable %s bound to non-pointer type %v", tv.Name, t)
	}
	m := info.typeVars[call]
	if m == nil {
		m = make(map[int]*typeVarEntry)
		info.typeVars[call] = m
	}
	if e, ok := m[tv.Index]; ok {
		e.update(t, cvs)
		return
	}
	e := &typeVarEntry{typ: t, consistent: true}
	if isAnonymousPointee(t) {
		e.consistent = false
	} else {
		e.argVars = e.argVars.Add(cvs...)
	}
	m[tv.Index] = e
}

// bindCallTypeVars records the bindings of the type variables of a generic
// callee at call, and creates the variable remembering each consistent
// type argument.
func (info *ProgramInfo) bindCallTypeVars(call *ast.Call, callee *ast.FuncDecl) {
	for i, arg := range call.Args {
		if i >= len(callee.Type.Params) {
			break
		}
		tv, ok := typeVariableOf(callee.Type.Params[i])
		if !ok {
			continue
		}
		uncast := ast.StripImplicit(arg)
		if !ast.IsPointerLike(uncast.Type()) {
			continue
		}
		info.insertBinding(call, tv, uncast.Type(), info.ExprConstraintVars(uncast))
	}
	m := info.typeVars[call]
	for _, idx := range maps.SortedKeys(m) {
		e := m[idx]
		if !e.consistent || e.pv != nil {
			continue
		}
		e.pv = newPVConstraint(info.cs, e.typ, callee.Name+"_tyarg_"+strconv.Itoa(idx))
		constrainConsVarGeq(info, CVarSet{e.pv}, e.argVars, SafeToWild, "Type argument", call.Pos())
	}
}

// bindCastTypeVar binds the type variable of a generic callee's return
// type to the type the call's result is cast to.
func (info *ProgramInfo) bindCastTypeVar(c *ast.Cast) {
	call, ok := ast.IgnoreParens(c.X).(*ast.Call)
	if !ok {
		return
	}
	callee := call.Callee()
	if callee == nil || !callee.IsGeneric() || !ast.IsPointerLike(c.Type()) {
		return
	}
	if tv, ok := typeVariableOf(callee.Type.Result); ok {
		info.insertBinding(call, tv, c.Type(), info.ExprConstraintVars(call))
	}
}

// finalizeTypeVars publishes the type-argument variables. Calls where no
// binding is consistent are left out; inconsistent bindings map to nil.
func (info *ProgramInfo) finalizeTypeVars() {
	for call, m := range info.typeVars {
		allInconsistent := true
		for _, e := range m {
			allInconsistent = allInconsistent && !e.consistent
		}
		if allInconsistent {
			continue
		}
		res := make(map[int]*PVConstraint, len(m))
		for idx, e := range m {
			if e.consistent {
				res[idx] = e.pv
			} else {
				res[idx] = nil
			}
		}
		info.typeParamPVCons[call] = res
	}
}

// TypeParamBindings returns the type-argument variables of a call of a
// generic function, indexed by type parameter. A nil entry marks an
// inconsistent binding.
func (info *ProgramInfo) TypeParamBindings(call *ast.Call) (map[int]*PVConstraint, bool) {
	m, ok := info.typeParamPVCons[call]
	return m, ok
}

// TypeParamVar returns the variable of a consistent binding. Asking for an
// inconsistent one is a programming error.
func (info *ProgramInfo) TypeParamVar(call *ast.Call, idx int) *PVConstraint {
	pv := info.typeParamPVCons[call][idx]
	if pv == nil {
		log.Panicf("type variable %d of call at %v is inconsistent", idx, call.Pos())
	}
	return pv
}
