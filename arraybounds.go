package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/bounds"
	"github.com/BarrensZeppelin/cconv/internal/maps"
)

// Names of the bounds heuristics, as used by the disable-bounds-heuristics
// option.
const (
	heuristicAlloc  = "alloc"
	heuristicString = "string"
	heuristicStruct = "struct"
	heuristicParams = "params"
	heuristicMain   = "main"
)

// allocatorSizeArgs lists, per allocator, the arguments whose product is
// the allocation size. Configured allocators use their first argument.
var allocatorSizeArgs = map[string][]int{
	"malloc":  {0},
	"calloc":  {0, 1},
	"realloc": {1},
}

// InferBounds runs the bounds heuristics over every translation unit. It
// must run after Solve.
func (info *ProgramInfo) InferBounds(tus []*ast.TranslationUnit) {
	for _, tu := range tus {
		for _, d := range tu.Decls {
			v := &boundsVisitor{info: info, nonLength: make(map[*ast.ParamDecl]bool)}
			switch d := d.(type) {
			case *ast.FuncDecl:
				if !d.HasBody() {
					break
				}
				ast.Inspect(d.Body, v.visit)
				v.params(d)
				v.mainArgv(d)
			case *ast.RecordDecl:
				v.record(d)
			case *ast.VarDecl:
				v.varInit(d)
			}
		}
	}
}

type boundsVisitor struct {
	info *ProgramInfo
	// nonLength holds parameters whose uses show they are not lengths.
	nonLength map[*ast.ParamDecl]bool
}

func (v *boundsVisitor) enabled(name string) bool {
	return v.info.config.HeuristicEnabled(name)
}

// NeedsArrayBounds reports whether pv solved to an array kind (NTArr when
// nt is set) without array syntax that would carry the bounds itself.
func (pv *PVConstraint) NeedsArrayBounds(env Env, nt bool) bool {
	if _, ok := pv.BoundsKey(); !ok || pv.ArrPresent() {
		return false
	}
	kind, ok := pv.OuterKind(env)
	want := Arr
	if nt {
		want = NTArr
	}
	return ok && kind == want
}

func (v *boundsVisitor) needArrayBounds(pv *PVConstraint, nt bool) (bounds.Key, bool) {
	if !pv.NeedsArrayBounds(v.info.cs, nt) {
		return 0, false
	}
	return pv.BoundsKey()
}

func (v *boundsVisitor) declNeedsBounds(d ast.Decl, nt bool) (bounds.Key, bool) {
	pv, ok := v.info.DeclPV(d)
	if !ok {
		return 0, false
	}
	return v.needArrayBounds(pv, nt)
}

func (v *boundsVisitor) exprNeedsBounds(e ast.Expr) (bounds.Key, bool) {
	cvs := v.info.ExprConstraintVars(e)
	if len(cvs) == 0 {
		return 0, false
	}
	pv, ok := cvs[0].(*PVConstraint)
	if !ok {
		return 0, false
	}
	return v.needArrayBounds(pv, false)
}

func (v *boundsVisitor) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.DeclStmt:
		for _, d := range n.Decls {
			switch d := d.(type) {
			case *ast.VarDecl:
				v.varInit(d)
			case *ast.RecordDecl:
				v.record(d)
			}
		}
	case *ast.Binary:
		if n.Op != ast.Assign {
			break
		}
		lhs := stripCasts(n.X)
		if k, ok := v.exprNeedsBounds(lhs); ok {
			v.allocator(lhs.Type(), k, n.Y)
		}
		if c, ok := stripCasts(n.Y).(*ast.Conditional); ok {
			v.notLength(c.Cond)
		}
	case *ast.IfStmt:
		if b, ok := ast.IgnoreParens(n.Cond).(*ast.Binary); ok && b.Op.IsEquality() {
			v.notLength(b.X)
			v.notLength(b.Y)
		}
	case *ast.SwitchStmt:
		v.notLength(n.Cond)
	}
	return true
}

func (v *boundsVisitor) notLength(e ast.Expr) {
	if ref, ok := stripCasts(e).(*ast.DeclRef); ok {
		if p, ok := ref.Decl.(*ast.ParamDecl); ok {
			v.nonLength[p] = true
		}
	}
}

func stripCasts(e ast.Expr) ast.Expr {
	for {
		switch x := e.(type) {
		case *ast.Paren:
			e = x.X
		case *ast.Cast:
			e = x.X
		default:
			return e
		}
	}
}

// varInit handles variables initialized from an allocation or a string
// literal.
func (v *boundsVisitor) varInit(d *ast.VarDecl) {
	if d.Init == nil || !ast.IsPointerLike(d.Type) {
		return
	}
	k, ok := v.info.bounds.LookupDecl(d)
	if !ok {
		return
	}
	if _, need := v.declNeedsBounds(d, false); need {
		v.allocator(d.Type, k, d.Init)
	}
	if lit, ok := stripCasts(d.Init).(*ast.StringLit); ok && v.enabled(heuristicString) {
		v.info.bounds.MergeBounds(k, bounds.Bytes(v.info.bounds.ConstKey(lit.ByteLength())), bounds.StringLiteralMatch)
	}
}

// exprKey returns the bounds key of a variable, field or integer constant.
func (v *boundsVisitor) exprKey(e ast.Expr) (bounds.Key, bool) {
	e = stripCasts(e)
	switch e := e.(type) {
	case *ast.DeclRef:
		if e.Decl != nil {
			return v.info.bounds.LookupDecl(e.Decl)
		}
	case *ast.Member:
		return v.info.bounds.LookupDecl(e.Field)
	}
	if n, ok := ast.EvaluateInt(e); ok {
		return v.info.bounds.ConstKey(n), true
	}
	return 0, false
}

// allocator gives lk the bounds of an allocation of the form
// malloc(n * sizeof(T)) assigned to it. Sizes without a matching sizeof
// are byte counts.
func (v *boundsVisitor) allocator(lhsType ast.Type, lk bounds.Key, rhs ast.Expr) {
	if !v.enabled(heuristicAlloc) {
		return
	}
	call, ok := stripCasts(rhs).(*ast.Call)
	if !ok {
		return
	}
	name := call.CalleeName()
	if !v.info.config.IsAllocator(name) {
		return
	}
	idxs, ok := allocatorSizeArgs[name]
	if !ok {
		idxs = []int{0}
	}

	var pieces []ast.Expr
	for _, i := range idxs {
		if i >= len(call.Args) {
			return
		}
		arg := ast.StripImplicit(call.Args[i])
		if b, ok := arg.(*ast.Binary); ok && b.Op == ast.Mul {
			pieces = append(pieces, b.X, b.Y)
		} else {
			pieces = append(pieces, arg)
		}
	}

	var rk bounds.Key
	found, byteBound := false, true
	for _, p := range pieces {
		if so, ok := ast.StripImplicit(p).(*ast.Sizeof); ok {
			if !ast.Identical(ast.PointerTo(so.OperandType()), ast.Decay(lhsType)) {
				return
			}
			byteBound = false
			continue
		}
		k, ok := v.exprKey(p)
		if !ok || found {
			// Unrecognized, or more than one variable.
			return
		}
		rk, found = k, true
	}
	if !found {
		return
	}

	lv, rv := v.info.bounds.Var(lk), v.info.bounds.Var(rk)
	if !rv.Constant && !lv.Scope.Sees(rv.Scope) {
		v.info.log.Debugf("Allocation size %s of %s is out of scope", rv, lv)
		return
	}
	b := bounds.Count(rk)
	if byteBound {
		b = bounds.Bytes(rk)
	}
	v.info.bounds.MergeBounds(lk, b, bounds.AllocatorMatch)
}

type namedKey struct {
	name string
	key  bounds.Key
}

// record matches array fields of a struct with length fields by name.
func (v *boundsVisitor) record(rd *ast.RecordDecl) {
	if !v.enabled(heuristicStruct) {
		return
	}
	bi := v.info.bounds
	var lens, arrs []namedKey
	for _, f := range rd.Fields {
		if ast.IsInteger(f.Type) {
			if k, ok := bi.LookupDecl(f); ok {
				lens = append(lens, namedKey{f.Name, k})
			}
		}
		if k, ok := v.declNeedsBounds(f, false); ok {
			arrs = append(arrs, namedKey{f.Name, k})
		}
	}
	if len(lens) == 0 {
		return
	}

	for _, arr := range arrs {
		for _, l := range lens {
			if !bounds.HasNameMatch(arr.name, l.name) {
				continue
			}
			if bounds.HasLengthKeyword(l.name) {
				bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.NamePrefixMatch)
				break
			}
			bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.VariableNameMatch)
		}
		if _, ok := bi.Bounds(arr.key); ok {
			continue
		}
		for _, l := range lens {
			if bounds.FieldNameMatch(l.name) {
				bi.MergeBounds(arr.key, bounds.Count(l.key), bounds.VariableNameMatch)
			}
		}
	}
}

func (v *boundsVisitor) potentialLength(p *ast.ParamDecl) bool {
	return ast.IsInteger(p.Type) && !ast.IsEnum(p.Type) && !v.nonLength[p]
}

// params matches array parameters of a function definition with length
// parameters: the next parameter first, then by name.
func (v *boundsVisitor) params(fd *ast.FuncDecl) {
	if !v.enabled(heuristicParams) {
		return
	}
	bi := v.info.bounds
	arrs := make(map[int]namedKey)
	nts := make(map[int]namedKey)
	lens := make(map[int]namedKey)
	for i, p := range fd.Params {
		if _, ok := bi.LookupDecl(p); !ok {
			continue
		}
		if k, ok := v.declNeedsBounds(p, false); ok {
			arrs[i] = namedKey{p.Name, k}
		}
		if k, ok := v.declNeedsBounds(p, true); ok {
			nts[i] = namedKey{p.Name, k}
		}
		if v.potentialLength(p) {
			k, _ := bi.LookupDecl(p)
			lens[i] = namedKey{p.Name, k}
		}
	}
	lenIdxs := maps.SortedKeys(lens)

	if len(lens) > 0 {
		for _, i := range maps.SortedKeys(arrs) {
			arr := arrs[i]
			if l, ok := lens[i+1]; ok {
				bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.NeighbourParamMatch)
				continue
			}
			found := false
			for _, j := range lenIdxs {
				l := lens[j]
				if bounds.HasNameMatch(arr.name, l.name) {
					found = true
					bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.NamePrefixMatch)
					break
				}
				if bounds.NameSubStringMatch(arr.name, l.name) {
					found = true
					bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.NamePrefixMatch)
				}
			}
			if !found {
				for _, j := range lenIdxs {
					if l := lens[j]; bounds.FieldNameMatch(l.name) {
						found = true
						bi.ReplaceBounds(arr.key, bounds.Count(l.key), bounds.VariableNameMatch)
					}
				}
			}
			if !found {
				v.info.log.Debugf("Array variable length not found: %s", arr.name)
			}
		}
	}

	for _, i := range maps.SortedKeys(nts) {
		if l, ok := lens[i+1]; ok && bounds.FieldNameMatch(l.name) {
			bi.ReplaceBounds(nts[i].key, bounds.Count(l.key), bounds.VariableNameMatch)
		}
	}
}

// mainArgv bounds argv by argc.
func (v *boundsVisitor) mainArgv(fd *ast.FuncDecl) {
	if fd.Name != "main" || len(fd.Params) != 2 || !v.enabled(heuristicMain) {
		return
	}
	argvKey, ok := v.declNeedsBounds(fd.Params[1], false)
	if !ok {
		return
	}
	if argcKey, ok := v.info.bounds.LookupDecl(fd.Params[0]); ok {
		v.info.bounds.ReplaceBounds(argvKey, bounds.Count(argcKey), bounds.ArgvMatch)
	}
}
