package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
)

// isNonPtrType reports whether expressions of type t can never carry a
// pointer.
func isNonPtrType(t ast.Type) bool {
	return ast.IsRecord(t) || ast.IsArithmetic(t)
}

func castReason(src, dst ast.Type) string {
	return "Cast from " + ast.Format(src, "") + " to " + ast.Format(dst, "")
}

// ExprConstraintVars returns the constraint variables whose value flows out
// of e. Results for everything but declaration references, member accesses
// and implicit conversions are created once per expression.
func (info *ProgramInfo) ExprConstraintVars(e ast.Expr) CVarSet {
	e = ast.IgnoreParens(e)
	if isNonPtrType(e.Type()) {
		name := "basevar"
		if ref, ok := e.(*ast.DeclRef); ok {
			name = ref.Name
		}
		return CVarSet{newNonPtrPVConstraint(name)}
	}
	if c, ok := e.(*ast.Cast); !(ok && !c.Implicit) && ast.IsNullPointerConstant(e) {
		return nil
	}

	switch e := e.(type) {
	case *ast.Cast:
		if e.Implicit {
			return info.implicitCastVars(e)
		}
	case *ast.DeclRef:
		if e.Decl == nil {
			return nil
		}
		return info.VariablesOf(e.Decl)
	case *ast.Member:
		info.AddVariable(e.Field)
		return info.VariablesOf(e.Field)
	}

	if cvs, ok := info.exprVars[e]; ok {
		return cvs
	}
	cvs := info.computeExprVars(e)
	info.exprVars[e] = cvs
	return cvs
}

func (info *ProgramInfo) computeExprVars(e ast.Expr) CVarSet {
	switch e := e.(type) {
	case *ast.Cast:
		return info.explicitCastVars(e)

	case *ast.Binary:
		switch e.Op {
		case ast.Assign, ast.AddAssign, ast.SubAssign:
			return info.ExprConstraintVars(e.X)
		case ast.Comma:
			return info.ExprConstraintVars(e.Y)
		case ast.Add, ast.Sub:
			switch {
			case ast.IsPointerLike(e.X.Type()):
				return info.ExprConstraintVars(e.X)
			case ast.IsPointerLike(e.Y.Type()):
				return info.ExprConstraintVars(e.Y)
			default:
				return info.pvFromType(e.Type(), "Pointer arithmetic on integers", e.Pos())
			}
		case ast.PtrMemD, ast.PtrMemI:
			info.log.Warnf("%v: pointer-to-member expression ignored", e.Pos())
			return nil
		default:
			return CVarSet{newNonPtrPVConstraint("basevar")}
		}

	case *ast.Index:
		base := e.X
		if !ast.IsPointerLike(base.Type()) {
			base = e.Index
		}
		return handleDeref(info.ExprConstraintVars(base))

	case *ast.Unary:
		switch e.Op {
		case ast.AddrOf:
			switch x := ast.StripImplicit(e.X).(type) {
			case *ast.Unary:
				if x.Op == ast.Deref {
					return info.ExprConstraintVars(x.X)
				}
			case *ast.Index:
				return info.ExprConstraintVars(x.X)
			}
			return info.addAtomAll(info.ExprConstraintVars(e.X), Ptr, e.Pos())
		case ast.Deref:
			return handleDeref(info.ExprConstraintVars(e.X))
		case ast.PreInc, ast.PreDec, ast.PostInc, ast.PostDec:
			return info.ExprConstraintVars(e.X)
		case ast.Plus, ast.Minus, ast.Not, ast.LNot:
			return CVarSet{newNonPtrPVConstraint("basevar")}
		default:
			info.log.Warnf("%v: unary operator %s ignored", e.Pos(), e.Op)
			return nil
		}

	case *ast.Call:
		return info.callVars(e)

	case *ast.Conditional:
		return info.ExprConstraintVars(e.Then).Add(info.ExprConstraintVars(e.Else)...)

	case *ast.InitList:
		var cvs CVarSet
		for _, elt := range e.Elts {
			cvs = cvs.Add(info.ExprConstraintVars(elt)...)
		}
		if ast.IsArray(e.Type()) {
			return info.addAtomAll(cvs, Arr, e.Pos())
		}
		return cvs

	case *ast.CompoundLit:
		var init CVarSet
		if e.Init != nil {
			init = info.ExprConstraintVars(e.Init)
		}
		pv := info.rewritablePV(e, "CompoundLiteralExpr")
		constrainConsVarGeq(info, CVarSet{pv}, init, SameToSame, "Compound literal", e.Pos())
		return CVarSet{pv}

	case *ast.StringLit:
		pv := newPVConstraint(info.cs, e.Type(), "StringLiteral")
		pv.ConstrainOuterTo(info.cs, NTArr, false, "String literal", e.Pos())
		return CVarSet{pv}

	case *ast.StmtExpr:
		if n := len(e.Body.List); n > 0 {
			if es, ok := e.Body.List[n-1].(*ast.ExprStmt); ok {
				return info.ExprConstraintVars(es.X)
			}
		}
		return nil

	default:
		if info.config.Verbose() {
			info.log.Warnf("%v: expression %T ignored", e.Pos(), e)
		}
		return nil
	}
}

// implicitCastVars passes the operand's variables through, unless the
// conversion changes the pointee type unsafely.
func (info *ProgramInfo) implicitCastVars(e *ast.Cast) CVarSet {
	cvs := info.ExprConstraintVars(e.X)
	dst, src := e.Type(), e.X.Type()
	if ast.IsPointer(dst) && !ast.IsFunc(src) && !ast.IsArray(src) && !ast.IsVoidPointer(src) &&
		!isCastSafe(dst, src) {
		reason := castReason(src, dst)
		constrainAllToWild(info.cs, cvs, reason, e.Pos())
		return info.invalidCastVars(e, reason)
	}
	return cvs
}

func (info *ProgramInfo) explicitCastVars(e *ast.Cast) CVarSet {
	null := ast.IsNullPointerConstant(e.X)
	if !null && ast.IsPointer(e.Type()) && !isCastSafe(e.Type(), e.X.Type()) {
		return info.invalidCastVars(e, castReason(e.X.Type(), e.Type()))
	}
	sub := info.ExprConstraintVars(e.X)
	if !ast.IsPointerLike(e.Type()) {
		return nil
	}
	pv := info.rewritablePV(e, "CStyleCastExpr")
	info.castVars[e] = pv
	// The operand of a NULL cast resolves to nothing.
	if !null {
		constrainConsVarGeq(info, CVarSet{pv}, sub, SafeToWild, "Cast", e.Pos())
	}
	return CVarSet{pv}
}

// invalidCastVars returns the wild variable standing for the result of an
// unsafe cast.
func (info *ProgramInfo) invalidCastVars(e ast.Expr, reason string) CVarSet {
	if cvs, ok := info.exprVars[e]; ok {
		return cvs
	}
	pv := newPVConstraint(info.cs, e.Type(), "Invalid cast")
	pv.ConstrainToWild(info.cs, reason, e.Pos())
	cvs := CVarSet{pv}
	info.exprVars[e] = cvs
	return cvs
}

// rewritablePV creates the variable of an expression whose type can be
// rewritten in place. Expressions from macro expansions stay wild.
func (info *ProgramInfo) rewritablePV(e ast.Expr, name string) *PVConstraint {
	pv := newPVConstraint(info.cs, e.Type(), name)
	if e.Pos().Macro {
		pv.ConstrainToWild(info.cs, macroReason, e.Pos())
	}
	return pv
}

// pvFromType returns the scalar sentinel for scalar types and a wild
// variable for pointer types.
func (info *ProgramInfo) pvFromType(t ast.Type, reason string, loc ast.Loc) CVarSet {
	if isNonPtrType(t) || !ast.IsPointerLike(t) {
		return CVarSet{newNonPtrPVConstraint("basevar")}
	}
	pv := newPVConstraint(info.cs, t, "wildvar")
	pv.ConstrainToWild(info.cs, reason, loc)
	return CVarSet{pv}
}

func constrainAllToWild(cs *Constraints, cvs CVarSet, reason string, loc ast.Loc) {
	for _, cv := range cvs {
		switch cv := cv.(type) {
		case *PVConstraint:
			cv.ConstrainToWild(cs, reason, loc)
		case *FVConstraint:
			cv.ConstrainToWild(cs, reason, loc)
		}
	}
}

// handleDeref removes one level of indirection from every variable.
// Variables that have no level left are dropped.
func handleDeref(cvs CVarSet) CVarSet {
	var res CVarSet
	for _, cv := range cvs {
		switch cv := cv.(type) {
		case *PVConstraint:
			if len(cv.atoms) == 0 {
				continue
			}
			d := cv.withoutOuterLevel()
			if d.IsNonPtr() {
				continue
			}
			res = append(res, d)
		case *FVConstraint:
			// *f designates f itself.
			res = res.Add(cv)
		}
	}
	return res
}

// addAtomAll adds a fresh outermost level, at least k, to every pointer
// variable of cvs. Function variables pass through unchanged.
func (info *ProgramInfo) addAtomAll(cvs CVarSet, k ConstKind, loc ast.Loc) CVarSet {
	var res CVarSet
	for _, cv := range cvs {
		switch cv := cv.(type) {
		case *PVConstraint:
			res = append(res, info.addAtom(cv, k, loc))
		case *FVConstraint:
			res = res.Add(cv)
		}
	}
	return res
}

func (info *ProgramInfo) addAtom(pv *PVConstraint, k ConstKind, loc ast.Loc) *PVConstraint {
	a := info.cs.NewVar("&" + pv.name)
	if len(pv.atoms) > 0 && !pv.atoms[0].IsConst() {
		// A wild address makes what it points to wild as well.
		info.cs.AddImplies(
			Geq{LHS: a, RHS: ConstAtom(Wild)},
			Geq{LHS: pv.atoms[0], RHS: ConstAtom(Wild), Reason: "Address of wild pointer", Loc: loc},
		)
	}
	res := pv.withOuterLevel(a)
	res.ConstrainOuterTo(info.cs, k, true, "Address-of", loc)
	return res
}

// callVars returns fresh copies of the variables a call returns.
func (info *ProgramInfo) callVars(call *ast.Call) CVarSet {
	var rets, reallocFlow CVarSet
	name := call.CalleeName()
	callee := call.Callee()
	switch {
	case info.config.IsAllocator(name):
		elem, k, ok := analyzeAllocExpr(call, name)
		if !ok {
			rets = info.pvFromType(call.Type(), "Unrecognized allocation size", call.Pos())
			break
		}
		pv := newPVConstraint(info.cs, ast.PointerTo(elem), "&"+name)
		pv.ConstrainOuterTo(info.cs, k, true, "Allocation", call.Pos())
		rets = CVarSet{pv}
		if name == "realloc" && len(call.Args) > 0 {
			reallocFlow = info.ExprConstraintVars(ast.StripImplicit(call.Args[0]))
		}

	case callee == nil:
		for _, cv := range info.ExprConstraintVars(call.Fun) {
			switch cv := cv.(type) {
			case *FVConstraint:
				rets = rets.Add(cv.ret)
			case *PVConstraint:
				if cv.fv != nil {
					rets = rets.Add(cv.fv.ret)
				}
			}
		}
		if len(rets) == 0 && ast.IsPointerLike(call.Type()) {
			rets = info.pvFromType(call.Type(), "Call through unknown function", call.Pos())
		}

	default:
		rets = CVarSet{info.OnDemandFuncDeclConstraint(callee).ret}
	}

	var res CVarSet
	for _, cv := range rets {
		orig := cv.(*PVConstraint)
		var c *PVConstraint
		if orig.OriginallyChecked() {
			c = newPVConstraint(info.cs, call.Type(), orig.name)
			c.boundsKey = orig.boundsKey
		} else {
			c = orig.Copy(info.cs)
		}
		if k, ok := c.BoundsKey(); ok {
			c.SetBoundsKey(info.bounds.ContextSensitiveKey(call, k))
		}
		constrainConsVarGeq(info, CVarSet{c}, CVarSet{orig}, SafeToWild, "Call result", call.Pos())
		if len(reallocFlow) > 0 {
			constrainConsVarGeq(info, CVarSet{c}, reallocFlow, WildToSafe, "Realloc argument", call.Pos())
		}
		res = append(res, c)
	}
	return res
}

// allocSizeArg returns the index of the argument holding the allocation
// size.
func allocSizeArg(name string) int {
	if name == "realloc" || name == "calloc" {
		return 1
	}
	return 0
}

// analyzeAllocExpr recognizes allocation sizes of the forms sizeof(T) and
// N*sizeof(T) and returns T and whether one object (Ptr) or an array (Arr)
// is allocated.
func analyzeAllocExpr(call *ast.Call, name string) (ast.Type, ConstKind, bool) {
	idx := allocSizeArg(name)
	if idx >= len(call.Args) {
		return nil, 0, false
	}
	size := ast.StripImplicit(call.Args[idx])

	if name == "calloc" {
		so, ok := size.(*ast.Sizeof)
		if !ok {
			return nil, 0, false
		}
		k := Arr
		if n, ok := ast.EvaluateInt(call.Args[0]); ok && n == 1 {
			k = Ptr
		}
		return so.OperandType(), k, true
	}

	k := Ptr
	operands := []ast.Expr{size}
	if b, ok := size.(*ast.Binary); ok && b.Op == ast.Mul {
		k = Arr
		operands = []ast.Expr{b.X, b.Y}
	}
	for _, o := range operands {
		if so, ok := ast.StripImplicit(o).(*ast.Sizeof); ok {
			return so.OperandType(), k, true
		}
	}
	return nil, 0, false
}

// isCastSafe reports whether converting a value of type src to dst keeps
// the pointee layout. Conversions to and from void pointers are safe.
func isCastSafe(dst, src ast.Type) bool {
	if !ast.IsPointer(dst) {
		return true
	}
	src = ast.Decay(src)
	if !ast.IsPointer(src) {
		return false
	}
	if ast.IsVoidPointer(dst) || ast.IsVoidPointer(src) {
		return true
	}
	// Generic parameters are checked through their type arguments.
	if ast.IsTypeVar(ast.Elem(dst)) || ast.IsTypeVar(ast.Elem(src)) {
		return true
	}
	return IsExplicitCastSafe(dst, src)
}

// IsExplicitCastSafe reports whether a cast from src to dst is safe. It is
// reflexive, and casts between pointer and non-pointer types are never
// safe. Scalars are compatible when they agree on being characters,
// integers and floating point numbers.
func IsExplicitCastSafe(dst, src ast.Type) bool {
	if ast.Identical(dst, src) {
		return true
	}
	dp, dok := ast.Underlying(dst).(*ast.Pointer)
	sp, sok := ast.Underlying(src).(*ast.Pointer)
	if dok && sok {
		return IsExplicitCastSafe(dp.Elem, sp.Elem)
	}
	if dok || sok {
		return false
	}
	if !ast.IsScalar(dst) || !ast.IsScalar(src) {
		return false
	}
	return ast.IsChar(dst) == ast.IsChar(src) &&
		ast.IsInteger(dst) == ast.IsInteger(src) &&
		ast.IsFloating(dst) == ast.IsFloating(src)
}

// CheckStructuralEquality reports whether d and s are identical or agree
// on being pointers.
func CheckStructuralEquality(d, s ast.Type) bool {
	return ast.Identical(d, s) || ast.IsPointer(d) == ast.IsPointer(s)
}

// ConstrainLocalAssign constrains the variables of lhs against those of
// rhs and records the assignment for bounds propagation.
func (info *ProgramInfo) ConstrainLocalAssign(lhs, rhs ast.Expr, action ConsAction, loc ast.Loc) {
	l := info.ExprConstraintVars(lhs)
	r := info.ExprConstraintVars(rhs)
	constrainConsVarGeq(info, l, r, action, "Assignment", loc)
	info.addBoundsFlow(l, r)
}

// ConstrainDeclAssign is ConstrainLocalAssign for the initializer of a
// declaration.
func (info *ProgramInfo) ConstrainDeclAssign(d ast.Decl, rhs ast.Expr, action ConsAction, loc ast.Loc) {
	l := info.VariablesOf(d)
	r := info.ExprConstraintVars(rhs)
	constrainConsVarGeq(info, l, r, action, "Initialization", loc)
	info.addBoundsFlow(l, r)
}

func (info *ProgramInfo) addBoundsFlow(l, r CVarSet) {
	if len(l) != 1 || len(r) != 1 {
		return
	}
	lpv, ok1 := l[0].(*PVConstraint)
	rpv, ok2 := r[0].(*PVConstraint)
	if !ok1 || !ok2 {
		return
	}
	lk, ok1 := lpv.BoundsKey()
	rk, ok2 := rpv.BoundsKey()
	if ok1 && ok2 && lk != rk {
		info.bounds.AddFlow(lk, rk)
	}
}
