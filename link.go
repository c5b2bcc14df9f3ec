package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/internal/maps"
)

// Link equates what the translation units say about the same program
// entity. It runs once, after every translation unit has been added.
func (info *ProgramInfo) Link() {
	info.log.Debugf("Linking!")
	cs := info.cs

	// Variables declared at the same location, e.g. in a header included
	// by several translation units, are the same variable.
	locs := maps.SortedKeysFunc(info.variables, func(a, b ast.Loc) bool { return a.Less(b) })
	for _, loc := range locs {
		cvs := info.variables[loc]
		for i := 1; i < len(cvs); i++ {
			constrainPair(info, cvs[i-1], cvs[i], SameToSame, "Same declaration", loc)
		}
	}

	for _, name := range maps.SortedKeys(info.globalSymbols) {
		cvs := info.globalSymbols[name]
		if len(cvs) > 1 {
			info.log.Debugf("Global variables: %s", name)
		}
		for i := 1; i < len(cvs); i++ {
			constrainPair(info, cvs[i-1], cvs[i], SameToSame, "Global variable "+name, ast.Loc{})
		}
	}

	for _, name := range maps.SortedKeys(info.externFuncDecls) {
		var decls []*FVConstraint
		for _, fv := range info.externFuncDecls[name] {
			if !fv.hasBody {
				decls = append(decls, fv)
			}
		}
		for i := 1; i < len(decls); i++ {
			p1, p2 := decls[i-1], decls[i]
			constrainPair(info, p1.ret, p2.ret, SameToSame, "Function redeclaration", ast.Loc{})
			if p1.NumParams() == p2.NumParams() {
				for j := range p1.params {
					constrainConsVarGeq(info, p1.params[j], p2.params[j], SameToSame, "Function redeclaration", ast.Loc{})
				}
			} else if p1.hasProto && p2.hasProto {
				reason := "Return value of function:" + name
				p1.ret.ConstrainToWild(cs, reason, ast.Loc{})
				p2.ret.ConstrainToWild(cs, reason, ast.Loc{})
			}
		}
	}

	// Functions without a body anywhere in the program are unanalyzable.
	for _, name := range maps.SortedKeys(info.externFunctions) {
		if info.externFunctions[name] || info.isExternOkay(name) {
			continue
		}
		for _, fv := range info.externFuncDecls[name] {
			fv.ret.ConstrainToWild(cs, "Return value of an external function:"+name, ast.Loc{})
			for _, ps := range fv.params {
				for _, cv := range ps {
					// A declared interface type is trusted.
					if pv := cv.(*PVConstraint); !pv.HasItype() {
						pv.ConstrainToWild(cs, "Inner pointer of a parameter to external function.", ast.Loc{})
					}
				}
			}
		}
	}
}

// AddFunctionDefDeclConstraints relates the definition of each function
// to the declarations callers see. A definition returning wild values
// makes the declared return wild; a declaration receiving wild values
// makes the defined parameter wild. The reverse directions are left open,
// so the two views can differ and be reconciled with interface types.
func (info *ProgramInfo) AddFunctionDefDeclConstraints() {
	for _, name := range maps.SortedKeys(info.externFuncDefns) {
		info.relateDefDecl(info.externFuncDefns[name], info.externFuncDecls[name])
	}
	for _, name := range maps.SortedKeys(info.staticFuncDefns) {
		decls := info.staticFuncDecls[name]
		for _, file := range maps.SortedKeys(info.staticFuncDefns[name]) {
			info.relateDefDecl(info.staticFuncDefns[name][file], decls[file])
		}
	}
}

func (info *ProgramInfo) relateDefDecl(defns, decls []*FVConstraint) {
	for _, defn := range defns {
		for _, decl := range decls {
			if decl == defn {
				continue
			}
			reason := "Definition of " + defn.name
			constrainConsVarGeq(info, CVarSet{decl.ret}, CVarSet{defn.ret}, SafeToWild, reason, ast.Loc{})
			n := min(defn.NumParams(), decl.NumParams())
			for i := 0; i < n; i++ {
				constrainConsVarGeq(info, defn.params[i], decl.params[i], SafeToWild, reason, ast.Loc{})
			}
			if defn.NumParams() != decl.NumParams() && defn.hasProto && decl.hasProto {
				defn.ConstrainToWild(info.cs, "Conflicting prototype of "+defn.name, ast.Loc{})
				decl.ConstrainToWild(info.cs, "Conflicting prototype of "+defn.name, ast.Loc{})
			}
		}
	}
}
