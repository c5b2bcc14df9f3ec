package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
)

// hasVoidBase reports whether t is a pointer or array whose innermost
// element is void.
func hasVoidBase(t ast.Type) bool {
	levels := 0
	for ast.IsPointerLike(t) {
		t = ast.Elem(t)
		levels++
	}
	return levels > 0 && ast.IsVoid(t)
}

func hasVaListBase(t ast.Type) bool {
	for ast.IsPointerLike(t) {
		t = ast.Elem(t)
	}
	b, ok := ast.Underlying(t).(*ast.Basic)
	return ok && b.Kind == ast.VaList
}

// constrainSpecialTypes wildifies the variables of declarations whose type
// says nothing about what they point to.
func (info *ProgramInfo) constrainSpecialTypes(d ast.Decl) {
	t := d.DeclType()
	var reason string
	switch {
	case hasVaListBase(t):
		reason = "Variable type va_list."
	case hasVoidBase(t):
		reason = "Variable type void."
	default:
		return
	}
	for _, cv := range info.declVars[d] {
		if pv, ok := cv.(*PVConstraint); ok && !pv.IsGeneric() {
			pv.ConstrainToWild(info.cs, reason, d.Pos())
		}
	}
}

// AddTranslationUnit creates the constraint variables of every declaration
// of tu and the constraints of every function body and initializer in it.
func (info *ProgramInfo) AddTranslationUnit(tu *ast.TranslationUnit) {
	info.currentFile = tu.File
	info.log.Debugf("Building constraints for %s", tu.File)

	for _, d := range tu.Decls {
		info.addFileScopeDecl(d)
	}
	for _, d := range tu.Decls {
		switch d := d.(type) {
		case *ast.VarDecl:
			if d.Init != nil {
				b := &builder{info: info}
				b.initializer(d)
				ast.Inspect(d.Init, b.visit)
			}
		case *ast.FuncDecl:
			if d.HasBody() {
				b := &builder{info: info, fn: d}
				ast.Inspect(d.Body, b.visit)
			}
		}
	}
}

func (info *ProgramInfo) addFileScopeDecl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.FuncDecl:
		info.SeeFunctionDecl(d)
		info.AddVariable(d)
		if d.HasBody() && !d.IsGeneric() {
			for _, p := range d.Params {
				info.constrainSpecialTypes(p)
			}
		}
	case *ast.VarDecl:
		info.AddVariable(d)
		info.constrainSpecialTypes(d)
		info.SeeGlobalDecl(d)
	case *ast.RecordDecl:
		info.addRecord(d)
	case *ast.TypedefDecl:
	}
}

func (info *ProgramInfo) addRecord(rd *ast.RecordDecl) {
	for _, f := range rd.Fields {
		info.AddVariable(f)
		info.constrainSpecialTypes(f)
	}
}

// builder walks one function body (or one file-scope initializer) and adds
// the constraints implied by each statement and expression.
type builder struct {
	info *ProgramInfo
	// fn is nil outside function bodies.
	fn *ast.FuncDecl
}

func (b *builder) visit(n ast.Node) bool {
	info := b.info
	switch n := n.(type) {
	case *ast.DeclStmt:
		for _, d := range n.Decls {
			switch d := d.(type) {
			case *ast.VarDecl:
				info.AddVariable(d)
				info.constrainSpecialTypes(d)
				if d.Init != nil {
					b.initializer(d)
				}
			case *ast.RecordDecl:
				info.addRecord(d)
			}
		}

	case *ast.ReturnStmt:
		if n.Result == nil || b.fn == nil {
			break
		}
		if defn := info.FuncDefnConstraint(b.fn); defn != nil {
			constrainConsVarGeq(info, CVarSet{defn.ret}, info.ExprConstraintVars(n.Result),
				SameToSame, "Return value", n.Loc)
		}

	case ast.Expr:
		b.expr(n)
	}
	return true
}

func (b *builder) initializer(d *ast.VarDecl) {
	b.info.ConstrainDeclAssign(d, d.Init, SameToSame, d.Loc)
}

// arithmetic makes pointers used in arithmetic or indexing arrays.
func (b *builder) arithmetic(x ast.Expr, reason string, loc ast.Loc) {
	for _, cv := range b.info.ExprConstraintVars(x) {
		if pv, ok := cv.(*PVConstraint); ok {
			pv.ConstrainOuterTo(b.info.cs, Arr, true, reason, loc)
		}
	}
}

func (b *builder) expr(e ast.Expr) {
	info := b.info
	switch e := e.(type) {
	case *ast.Binary:
		switch {
		case e.Op == ast.Assign:
			info.ConstrainLocalAssign(e.X, e.Y, SameToSame, e.Pos())
		case (e.Op == ast.AddAssign || e.Op == ast.SubAssign) && ast.IsPointerLike(e.X.Type()):
			b.arithmetic(e.X, "Pointer arithmetic", e.Pos())
		case e.Op.IsAdditive():
			for _, x := range [...]ast.Expr{e.X, e.Y} {
				if ast.IsPointerLike(x.Type()) {
					b.arithmetic(x, "Pointer arithmetic", e.Pos())
				}
			}
		}

	case *ast.Unary:
		if e.Op.IsIncDec() && ast.IsPointerLike(e.X.Type()) {
			b.arithmetic(e.X, "Pointer arithmetic", e.Pos())
		}

	case *ast.Index:
		base := e.X
		if !ast.IsPointerLike(base.Type()) {
			base = e.Index
		}
		b.arithmetic(base, "Array subscript", e.Pos())

	case *ast.Cast:
		if e.Implicit {
			break
		}
		info.bindCastTypeVar(e)
		if ast.IsPointer(e.Type()) && !ast.IsNullPointerConstant(e.X) && !isCastSafe(e.Type(), e.X.Type()) {
			constrainAllToWild(info.cs, info.ExprConstraintVars(e.X), castReason(e.X.Type(), e.Type()), e.Pos())
		}

	case *ast.Call:
		b.call(e)
	}
	info.ExprConstraintVars(e)
}

// call constrains the arguments of a call against the parameters of every
// function the call may reach.
func (b *builder) call(call *ast.Call) {
	info := b.info
	name := call.CalleeName()
	callee := call.Callee()

	args := make([]CVarSet, len(call.Args))
	for i, a := range call.Args {
		args[i] = info.ExprConstraintVars(a)
	}
	if info.isExternOkay(name) || info.config.IsAllocator(name) {
		return
	}

	var targets []*FVConstraint
	if callee != nil {
		if callee.IsGeneric() {
			info.bindCallTypeVars(call, callee)
		}
		targets = append(targets, info.OnDemandFuncDeclConstraint(callee))
	} else {
		for _, cv := range info.ExprConstraintVars(call.Fun) {
			switch cv := cv.(type) {
			case *FVConstraint:
				targets = append(targets, cv)
			case *PVConstraint:
				if cv.fv != nil {
					targets = append(targets, cv.fv)
				}
			}
		}
	}

	if len(targets) == 0 {
		for _, cvs := range args {
			constrainAllToWild(info.cs, cvs, "Argument to function without declaration", call.Pos())
		}
		return
	}

	for _, fv := range targets {
		for i, cvs := range args {
			if i >= fv.NumParams() {
				if info.config.HandleVarargs {
					constrainAllToWild(info.cs, cvs, "Passing argument to a function accepting var args.", call.Pos())
				}
				continue
			}
			if fv.ParamVar(i).IsGeneric() {
				// Bound through the call's type arguments.
				continue
			}
			constrainConsVarGeq(info, fv.params[i], cvs, WildToSafe, "Argument", call.Pos())
			fv.ParamVar(i).AddArgumentConstraints(cvs)
		}
	}
}
