package cconv

import (
	"log"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/bounds"
	"github.com/BarrensZeppelin/cconv/config"
)

const macroReason = "Pointer in Macro declaration."

// funcMap maps a function name to the constraint variables of its
// declarations or definitions.
type funcMap map[string][]*FVConstraint

// staticFuncMap maps a function name and a file name to constraint
// variables of the static function of that name in that file.
type staticFuncMap map[string]map[string][]*FVConstraint

// ProgramInfo owns every piece of state of one analysis: the constraints,
// the constraint variables of declarations and expressions, the function
// maps used for linking and the bounds store.
type ProgramInfo struct {
	config *config.Config
	log    *config.LogGroup
	cs     *Constraints

	// variables holds the constraint variables declared at a location.
	// Locations in headers hold one variable per translation unit.
	variables map[ast.Loc]CVarSet
	declVars  map[ast.Decl]CVarSet

	externFuncDecls funcMap
	externFuncDefns funcMap
	staticFuncDecls staticFuncMap
	staticFuncDefns staticFuncMap
	// externFunctions records, per non-static function, whether a body was
	// seen for it in some translation unit.
	externFunctions map[string]bool

	globalSymbols map[string]CVarSet

	exprVars map[ast.Expr]CVarSet
	// castVars are the variables of explicit casts that can be rewritten.
	castVars map[*ast.Cast]*PVConstraint

	typeVars        map[*ast.Call]map[int]*typeVarEntry
	typeParamPVCons map[*ast.Call]map[int]*PVConstraint

	bounds *bounds.Info

	multipleRewrites bool
	currentFile      string
}

func NewProgramInfo(cfg *config.Config, logger *config.LogGroup) *ProgramInfo {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &ProgramInfo{
		config:          cfg,
		log:             logger,
		cs:              NewConstraints(),
		variables:       make(map[ast.Loc]CVarSet),
		declVars:        make(map[ast.Decl]CVarSet),
		externFuncDecls: make(funcMap),
		externFuncDefns: make(funcMap),
		staticFuncDecls: make(staticFuncMap),
		staticFuncDefns: make(staticFuncMap),
		externFunctions: make(map[string]bool),
		globalSymbols:   make(map[string]CVarSet),
		exprVars:        make(map[ast.Expr]CVarSet),
		castVars:        make(map[*ast.Cast]*PVConstraint),
		typeVars:        make(map[*ast.Call]map[int]*typeVarEntry),
		typeParamPVCons: make(map[*ast.Call]map[int]*PVConstraint),
		bounds:          bounds.NewInfo(),
	}
}

func (info *ProgramInfo) Constraints() *Constraints { return info.cs }

func (info *ProgramInfo) Bounds() *bounds.Info { return info.bounds }

func (info *ProgramInfo) Config() *config.Config { return info.config }

// MultipleRewrites reports whether some function was declared or defined
// more than once under the same key.
func (info *ProgramInfo) MultipleRewrites() bool { return info.multipleRewrites }

// Variables returns the constraint variables declared at loc.
func (info *ProgramInfo) Variables(loc ast.Loc) CVarSet { return info.variables[loc] }

// SeeFunctionDecl records whether a non-static function has a body.
func (info *ProgramInfo) SeeFunctionDecl(fd *ast.FuncDecl) {
	if fd.IsStatic() {
		return
	}
	info.externFunctions[fd.Name] = info.externFunctions[fd.Name] || fd.HasBody()
}

// SeeGlobalDecl records a file-scope variable that links by name.
func (info *ProgramInfo) SeeGlobalDecl(vd *ast.VarDecl) {
	if !vd.Global() || vd.Storage == ast.Static {
		return
	}
	for _, cv := range info.declVars[vd] {
		info.globalSymbols[vd.Name] = info.globalSymbols[vd.Name].Add(cv)
	}
}

func (info *ProgramInfo) register(d ast.Decl, cv ConstraintVariable) {
	info.declVars[d] = info.declVars[d].Add(cv)
	info.variables[d.Pos()] = info.variables[d.Pos()].Add(cv)
}

func boundsScope(d ast.Decl) bounds.Scope {
	switch d := d.(type) {
	case *ast.VarDecl:
		if d.Global() {
			return bounds.Global()
		}
		return bounds.Function(d.Func.Name)
	case *ast.ParamDecl:
		if d.Func == nil {
			return bounds.Global()
		}
		return bounds.Params(d.Func.Name)
	case *ast.FieldDecl:
		if d.Record == nil {
			return bounds.Global()
		}
		return bounds.Struct(d.Record.Name)
	default:
		return bounds.Global()
	}
}

// AddVariable creates the constraint variables of a declaration. It does
// nothing for declarations that already have them.
func (info *ProgramInfo) AddVariable(d ast.Decl) {
	if _, ok := info.declVars[d]; ok {
		return
	}
	switch d := d.(type) {
	case *ast.FuncDecl:
		info.addFunction(d)
	case *ast.ParamDecl:
		if d.Func != nil {
			info.addFunction(d.Func)
		}
	case *ast.VarDecl, *ast.FieldDecl:
		t := d.DeclType()
		if !ast.IsPointerLike(t) {
			if ast.IsInteger(t) {
				info.bounds.DeclKey(d, boundsScope(d))
			}
			return
		}
		pv := newPVConstraint(info.cs, t, d.DeclName())
		var ann ast.Annotations
		switch d := d.(type) {
		case *ast.VarDecl:
			ann = d.Annotations
		case *ast.FieldDecl:
			ann = d.Annotations
		}
		if ann.Itype != nil {
			pv.itype = ast.Format(ann.Itype, "")
		}
		pv.SetBoundsKey(info.bounds.DeclKey(d, boundsScope(d)))
		if d.Pos().Macro {
			pv.ConstrainToWild(info.cs, macroReason, d.Pos())
		}
		info.register(d, pv)
	}
}

func (info *ProgramInfo) addFunction(fd *ast.FuncDecl) {
	if _, ok := info.declVars[fd]; ok {
		return
	}
	fv := newFVConstraint(info.cs, fd)
	if ast.IsPointerLike(fd.Type.Result) {
		fv.ret.SetBoundsKey(info.bounds.NewTemporary(fd.Name, bounds.Params(fd.Name)))
	}
	fv = info.insertNewFVConstraint(fd, fv)

	for i, p := range fd.Params {
		if i >= fv.NumParams() {
			break
		}
		pv := fv.ParamVar(i)
		if ast.IsPointerLike(p.Type) || ast.IsInteger(p.Type) {
			k := info.bounds.DeclKey(p, bounds.Params(fd.Name))
			if _, has := pv.BoundsKey(); !has && ast.IsPointerLike(p.Type) {
				pv.SetBoundsKey(k)
			}
		}
		info.register(p, pv)
	}
	if fd.Loc.Macro {
		fv.ConstrainToWild(info.cs, macroReason, fd.Loc)
	}
	info.register(fd, fv)
}

func (info *ProgramInfo) funcMaps(fd *ast.FuncDecl, defn bool) []*FVConstraint {
	switch {
	case fd.IsStatic() && defn:
		return info.staticFuncDefns[fd.Name][fd.Loc.File]
	case fd.IsStatic():
		return info.staticFuncDecls[fd.Name][fd.Loc.File]
	case defn:
		return info.externFuncDefns[fd.Name]
	default:
		return info.externFuncDecls[fd.Name]
	}
}

func (info *ProgramInfo) setFuncMap(fd *ast.FuncDecl, defn bool, fvs []*FVConstraint) {
	if !fd.IsStatic() {
		if defn {
			info.externFuncDefns[fd.Name] = fvs
		} else {
			info.externFuncDecls[fd.Name] = fvs
		}
		return
	}
	m := info.staticFuncDecls
	if defn {
		m = info.staticFuncDefns
	}
	if m[fd.Name] == nil {
		m[fd.Name] = make(map[string][]*FVConstraint)
	}
	m[fd.Name][fd.Loc.File] = fvs
}

// insertNewFVConstraint files fv under the declaration or definition map
// of fd. A redeclaration in the same file joins the existing variable:
// its parameters are added to the existing parameter sets and equated with
// them. It returns the variable that represents fd.
func (info *ProgramInfo) insertNewFVConstraint(fd *ast.FuncDecl, fv *FVConstraint) *FVConstraint {
	defn := fd.HasBody()
	existing := info.funcMaps(fd, defn)
	for _, old := range existing {
		if old.file != fv.file || defn || old.NumParams() != fv.NumParams() {
			continue
		}
		constrainConsVarGeq(info, CVarSet{old.ret}, CVarSet{fv.ret}, SameToSame, "Redeclaration", fd.Loc)
		for i := range old.params {
			constrainConsVarGeq(info, old.params[i], fv.params[i], SameToSame, "Redeclaration", fd.Loc)
			old.params[i] = old.params[i].Add(fv.params[i]...)
		}
		return old
	}
	if len(existing) > 0 {
		info.multipleRewrites = true
	}
	info.setFuncMap(fd, defn, append(existing, fv))
	return fv
}

// FuncDefnConstraint returns the constraint variable of the definition of
// fd visible from fd's file.
func (info *ProgramInfo) FuncDefnConstraint(fd *ast.FuncDecl) *FVConstraint {
	for _, fv := range info.funcMaps(fd, true) {
		if fd.IsStatic() || fv.file == fd.Loc.File || !fd.HasBody() {
			return fv
		}
	}
	return nil
}

// FuncDeclConstraint returns the declaration view of fd in fd's file,
// if there is one.
func (info *ProgramInfo) FuncDeclConstraint(fd *ast.FuncDecl) *FVConstraint {
	for _, fv := range info.funcMaps(fd, false) {
		if fv.file == fd.Loc.File {
			return fv
		}
	}
	return nil
}

// OnDemandFuncDeclConstraint returns the declaration view of fd, creating a
// bodiless one when only a definition was seen so far.
func (info *ProgramInfo) OnDemandFuncDeclConstraint(fd *ast.FuncDecl) *FVConstraint {
	if fv := info.FuncDeclConstraint(fd); fv != nil {
		return fv
	}
	if !fd.HasBody() {
		info.AddVariable(fd)
		return info.FuncDeclConstraint(fd)
	}
	fv := newFVConstraint(info.cs, fd)
	fv.hasBody = false
	if defn := info.FuncDefnConstraint(fd); defn != nil {
		// Parameters of both views share their bounds keys.
		for i := 0; i < fv.NumParams() && i < defn.NumParams(); i++ {
			if k, ok := defn.ParamVar(i).BoundsKey(); ok {
				fv.ParamVar(i).SetBoundsKey(k)
			}
		}
		if k, ok := defn.ret.BoundsKey(); ok {
			fv.ret.SetBoundsKey(k)
		}
	}
	info.setFuncMap(fd, false, append(info.funcMaps(fd, false), fv))
	return fv
}

// VariablesOf returns the constraint variables of a declaration.
// Parameters resolve through their function: inside a definition they are
// the definition's parameters.
func (info *ProgramInfo) VariablesOf(d ast.Decl) CVarSet {
	switch d := d.(type) {
	case *ast.FuncDecl:
		return CVarSet{info.OnDemandFuncDeclConstraint(d)}
	case *ast.ParamDecl:
		if d.Func == nil {
			return nil
		}
		info.AddVariable(d.Func)
		var fv *FVConstraint
		if d.Func.HasBody() {
			fv = info.FuncDefnConstraint(d.Func)
		} else {
			fv = info.FuncDeclConstraint(d.Func)
		}
		if fv == nil || d.Index >= fv.NumParams() {
			log.Panicf("no constraint variable for parameter %s of %s", d.Name, d.Func.Name)
		}
		return fv.ParamVars(d.Index)[:1]
	case *ast.VarDecl, *ast.FieldDecl:
		if !ast.IsPointerLike(d.DeclType()) {
			return CVarSet{newNonPtrPVConstraint(d.DeclName())}
		}
		cvs, ok := info.declVars[d]
		if !ok {
			log.Panicf("no constraint variable for %s at %v", d.DeclName(), d.Pos())
		}
		return cvs
	default:
		return nil
	}
}

// DeclPV returns the pointer constraint variable of a variable, field or
// parameter declaration, if it has one.
func (info *ProgramInfo) DeclPV(d ast.Decl) (*PVConstraint, bool) {
	for _, cv := range info.declVars[d] {
		if pv, ok := cv.(*PVConstraint); ok {
			return pv, true
		}
	}
	return nil, false
}

func (info *ProgramInfo) isExternOkay(name string) bool {
	return info.config.IsExternOkay(name)
}
