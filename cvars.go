package cconv

import (
	"fmt"
	"strings"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/bounds"
	"github.com/BarrensZeppelin/cconv/internal/slices"
)

// ConstraintVariable is either a *PVConstraint or an *FVConstraint.
type ConstraintVariable interface {
	// method used to tag constraint variable constructors
	cvTag()
	Name() string
	fmt.Stringer
}

type cvtag struct{}

func (cvtag) cvTag() {}

// CVarSet is an insertion-ordered set of constraint variables.
type CVarSet []ConstraintVariable

func (s CVarSet) Contains(cv ConstraintVariable) bool {
	for _, o := range s {
		if o == cv {
			return true
		}
	}
	return false
}

func (s CVarSet) Add(cvs ...ConstraintVariable) CVarSet {
	for _, cv := range cvs {
		if cv != nil && !s.Contains(cv) {
			s = append(s, cv)
		}
	}
	return s
}

func (s CVarSet) String() string {
	return "[ " + strings.Join(slices.Map(s, ConstraintVariable.String), ", ") + " ]"
}

// level describes one pointer or array level of a PVConstraint.
type level struct {
	array bool
	// size of a declared array, -1 when unsized.
	size  int64
	quals ast.Qualifiers
}

// PVConstraint is the constraint variable of a pointer-typed (or
// array-typed) declaration or expression. It has one atom per level,
// outermost first. Scalars get a PVConstraint without atoms.
type PVConstraint struct {
	cvtag
	name   string
	typ    ast.Type
	atoms  []Atom
	levels []level
	// baseType is the rendered type below the last level, unless the
	// levels end in a function type described by fv.
	baseType string
	fv       *FVConstraint

	arrPresent          bool
	itype               string
	genericIndex        int
	originallyChecked   bool
	partOfFuncPrototype bool
	boundsKey           bounds.Key

	// argConstraints are the variables that flowed into this parameter at
	// call sites.
	argConstraints CVarSet
}

func newPVConstraint(cs *Constraints, t ast.Type, name string) *PVConstraint {
	pv := &PVConstraint{name: name, typ: t, genericIndex: -1}
	for {
		var quals ast.Qualifiers
		if q, ok := t.(*ast.Qualified); ok {
			quals = q.Quals
		}
		switch u := ast.Underlying(t).(type) {
		case *ast.Pointer:
			pv.addLevel(cs, u.Checked, level{size: -1, quals: quals | u.Quals})
			t = u.Elem
			continue
		case *ast.Array:
			pv.addLevel(cs, u.Checked, level{array: true, size: u.Size})
			pv.arrPresent = true
			t = u.Elem
			continue
		case *ast.Func:
			pv.fv = newFVConstraintFromType(cs, u, name)
		case *ast.TypeVar:
			pv.genericIndex = u.Index
			pv.baseType = ast.Format(t, "")
		default:
			pv.baseType = ast.Format(t, "")
		}
		return pv
	}
}

// newNonPtrPVConstraint returns the scalar sentinel used for expressions
// that cannot hold a pointer.
func newNonPtrPVConstraint(name string) *PVConstraint {
	return &PVConstraint{name: name, typ: ast.IntType, baseType: "int", genericIndex: -1}
}

func (pv *PVConstraint) addLevel(cs *Constraints, checked ast.CheckedKind, lvl level) {
	var a Atom
	switch checked {
	case ast.CheckedPtr:
		a = ConstAtom(Ptr)
	case ast.CheckedArray:
		a = ConstAtom(Arr)
	case ast.CheckedNTArray:
		a = ConstAtom(NTArr)
	default:
		a = cs.NewVar(pv.name)
	}
	if a.IsConst() {
		pv.originallyChecked = true
	}
	pv.atoms = append(pv.atoms, a)
	pv.levels = append(pv.levels, lvl)
}

func (pv *PVConstraint) Name() string { return pv.name }

// Type is the C type the variable was built from.
func (pv *PVConstraint) Type() ast.Type { return pv.typ }

func (pv *PVConstraint) Atoms() []Atom { return pv.atoms }

func (pv *PVConstraint) FV() *FVConstraint { return pv.fv }

// ArrPresent reports whether some level was declared with array syntax.
func (pv *PVConstraint) ArrPresent() bool { return pv.arrPresent }

func (pv *PVConstraint) HasItype() bool { return pv.itype != "" }

func (pv *PVConstraint) Itype() string { return pv.itype }

// IsGeneric reports whether the base type is a type variable of an
// _Itype_for_any function.
func (pv *PVConstraint) IsGeneric() bool { return pv.genericIndex >= 0 }

func (pv *PVConstraint) OriginallyChecked() bool { return pv.originallyChecked }

func (pv *PVConstraint) PartOfFuncPrototype() bool { return pv.partOfFuncPrototype }

func (pv *PVConstraint) BoundsKey() (bounds.Key, bool) {
	return pv.boundsKey, pv.boundsKey != bounds.Invalid
}

func (pv *PVConstraint) SetBoundsKey(k bounds.Key) { pv.boundsKey = k }

func (pv *PVConstraint) IsNonPtr() bool { return len(pv.atoms) == 0 && pv.fv == nil }

func (pv *PVConstraint) ArgumentConstraints() CVarSet { return pv.argConstraints }

func (pv *PVConstraint) AddArgumentConstraints(cvs CVarSet) {
	pv.argConstraints = pv.argConstraints.Add(cvs...)
}

func (pv *PVConstraint) String() string {
	parts := make([]string, len(pv.atoms))
	for i, a := range pv.atoms {
		parts[i] = a.String()
	}
	s := fmt.Sprintf("%s : { %s }", pv.name, strings.Join(parts, " "))
	if pv.fv != nil {
		s += " " + pv.fv.String()
	}
	return s
}

// ConstrainToWild forces every variable atom, including those of a nested
// function type, to Wild.
func (pv *PVConstraint) ConstrainToWild(cs *Constraints, reason string, loc ast.Loc) {
	pv.constrainLevelsToWild(cs, 0, reason, loc)
}

func (pv *PVConstraint) constrainLevelsToWild(cs *Constraints, from int, reason string, loc ast.Loc) {
	for _, a := range pv.atoms[min(from, len(pv.atoms)):] {
		if !a.IsConst() {
			cs.AddGeq(a, ConstAtom(Wild), reason, loc)
		}
	}
	if pv.fv != nil {
		pv.fv.ConstrainToWild(cs, reason, loc)
	}
}

// ConstrainOuterTo puts the outermost atom at least at k, or exactly at k
// when lowerBound is false.
func (pv *PVConstraint) ConstrainOuterTo(cs *Constraints, k ConstKind, lowerBound bool, reason string, loc ast.Loc) {
	if len(pv.atoms) == 0 || pv.atoms[0].IsConst() {
		return
	}
	cs.AddGeq(pv.atoms[0], ConstAtom(k), reason, loc)
	if !lowerBound {
		cs.AddGeq(ConstAtom(k), pv.atoms[0], reason, loc)
	}
}

// AnyChanges reports whether the solution renders the variable differently
// from how it was written.
func (pv *PVConstraint) AnyChanges(env Env) bool {
	for _, a := range pv.atoms {
		if !a.IsConst() && env.Assignment(a) != Wild {
			return true
		}
	}
	return pv.fv != nil && pv.fv.AnyChanges(env)
}

func (pv *PVConstraint) has(env Env, k ConstKind) bool {
	return slices.Any(pv.atoms, func(a Atom) bool { return env.Assignment(a) == k })
}

func (pv *PVConstraint) HasArr(env Env) bool   { return pv.has(env, Arr) }
func (pv *PVConstraint) HasNtArr(env Env) bool { return pv.has(env, NTArr) }

func (pv *PVConstraint) HasWild(env Env) bool {
	return pv.has(env, Wild) || (pv.fv != nil && pv.fv.HasWild(env))
}

func (pv *PVConstraint) IsChecked(env Env) bool { return !pv.HasWild(env) }

// OuterKind returns the solution of the outermost level.
func (pv *PVConstraint) OuterKind(env Env) (ConstKind, bool) {
	if len(pv.atoms) == 0 {
		return 0, false
	}
	return env.Assignment(pv.atoms[0]), true
}

// AnyArgumentIsWild reports whether a wild value was passed for this
// parameter at some call site.
func (pv *PVConstraint) AnyArgumentIsWild(env Env) bool {
	for _, cv := range pv.argConstraints {
		switch cv := cv.(type) {
		case *PVConstraint:
			if cv.HasWild(env) {
				return true
			}
		case *FVConstraint:
			if cv.HasWild(env) {
				return true
			}
		}
	}
	return false
}

// Copy returns a variable of the same shape with fresh atoms for every
// variable level. Constant atoms are shared.
func (pv *PVConstraint) Copy(cs *Constraints) *PVConstraint {
	c := *pv
	c.atoms = make([]Atom, len(pv.atoms))
	for i, a := range pv.atoms {
		if a.IsConst() {
			c.atoms[i] = a
		} else {
			c.atoms[i] = cs.NewVar(cs.Hint(a))
		}
	}
	c.levels = append([]level(nil), pv.levels...)
	c.argConstraints = nil
	if pv.fv != nil {
		c.fv = pv.fv.Copy(cs)
	}
	return &c
}

// withOuterLevel returns a variable one pointer level deeper than pv that
// shares pv's atoms below the new level.
func (pv *PVConstraint) withOuterLevel(a Atom) *PVConstraint {
	c := *pv
	c.atoms = append([]Atom{a}, pv.atoms...)
	c.levels = append([]level{{size: -1}}, pv.levels...)
	c.typ = ast.PointerTo(pv.typ)
	c.boundsKey = bounds.Invalid
	c.argConstraints = nil
	c.itype = ""
	return &c
}

// withoutOuterLevel drops the outermost level, as dereferencing does.
func (pv *PVConstraint) withoutOuterLevel() *PVConstraint {
	c := *pv
	c.atoms = pv.atoms[1:]
	c.levels = pv.levels[1:]
	if e := ast.Elem(pv.typ); e != nil {
		c.typ = e
	}
	c.boundsKey = bounds.Invalid
	c.argConstraints = nil
	c.itype = ""
	return &c
}

// FVConstraint is the constraint variable of a function: one PVConstraint
// for the return value and one set per parameter. Parameter sets hold more
// than one variable when a translation unit redeclares the function.
type FVConstraint struct {
	cvtag
	name     string
	ret      *PVConstraint
	params   []CVarSet
	hasBody  bool
	hasProto bool
	variadic bool
	static   bool
	file     string
	// typeParams counts the type variables of a generic function.
	typeParams int
}

func newFVConstraintFromType(cs *Constraints, f *ast.Func, name string) *FVConstraint {
	fv := &FVConstraint{
		name:     name,
		ret:      newPVConstraint(cs, f.Result, name),
		hasProto: f.Prototype,
		variadic: f.Variadic,
	}
	fv.ret.partOfFuncPrototype = true
	for _, t := range f.Params {
		p := newPVConstraint(cs, t, "")
		p.partOfFuncPrototype = true
		fv.params = append(fv.params, CVarSet{p})
	}
	return fv
}

func newFVConstraint(cs *Constraints, d *ast.FuncDecl) *FVConstraint {
	fv := &FVConstraint{
		name:       d.Name,
		ret:        newPVConstraint(cs, d.Type.Result, d.Name),
		hasBody:    d.HasBody(),
		hasProto:   d.Type.Prototype,
		variadic:   d.Type.Variadic,
		static:     d.IsStatic(),
		file:       d.Loc.File,
		typeParams: len(d.TypeParams),
	}
	fv.ret.partOfFuncPrototype = true
	if d.Itype != nil {
		fv.ret.itype = ast.Format(d.Itype, "")
	}
	for i, t := range d.Type.Params {
		name := ""
		var itype ast.Type
		if i < len(d.Params) {
			name, itype = d.Params[i].Name, d.Params[i].Itype
		}
		p := newPVConstraint(cs, t, name)
		p.partOfFuncPrototype = true
		if itype != nil {
			p.itype = ast.Format(itype, "")
		}
		fv.params = append(fv.params, CVarSet{p})
	}
	return fv
}

func (fv *FVConstraint) Name() string { return fv.name }

func (fv *FVConstraint) ReturnVar() *PVConstraint { return fv.ret }

func (fv *FVConstraint) NumParams() int { return len(fv.params) }

func (fv *FVConstraint) ParamVars(i int) CVarSet { return fv.params[i] }

// ParamVar returns the variable of parameter i that signatures are
// rendered from.
func (fv *FVConstraint) ParamVar(i int) *PVConstraint {
	return fv.params[i][0].(*PVConstraint)
}

func (fv *FVConstraint) HasBody() bool    { return fv.hasBody }
func (fv *FVConstraint) HasProto() bool   { return fv.hasProto }
func (fv *FVConstraint) IsVariadic() bool { return fv.variadic }
func (fv *FVConstraint) IsStatic() bool   { return fv.static }
func (fv *FVConstraint) FileName() string { return fv.file }
func (fv *FVConstraint) IsGeneric() bool  { return fv.typeParams > 0 }

func (fv *FVConstraint) String() string {
	params := slices.Map(fv.params, CVarSet.String)
	return fmt.Sprintf("%s : ( %s ) ( %s )", fv.name, fv.ret, strings.Join(params, ", "))
}

func (fv *FVConstraint) forEachVar(f func(*PVConstraint)) {
	f(fv.ret)
	for _, ps := range fv.params {
		for _, cv := range ps {
			if pv, ok := cv.(*PVConstraint); ok {
				f(pv)
			}
		}
	}
}

func (fv *FVConstraint) ConstrainToWild(cs *Constraints, reason string, loc ast.Loc) {
	fv.forEachVar(func(pv *PVConstraint) { pv.ConstrainToWild(cs, reason, loc) })
}

func (fv *FVConstraint) AnyChanges(env Env) bool {
	changed := false
	fv.forEachVar(func(pv *PVConstraint) { changed = changed || pv.AnyChanges(env) })
	return changed
}

func (fv *FVConstraint) HasWild(env Env) bool {
	wild := false
	fv.forEachVar(func(pv *PVConstraint) { wild = wild || pv.HasWild(env) })
	return wild
}

func (fv *FVConstraint) Copy(cs *Constraints) *FVConstraint {
	c := *fv
	c.ret = fv.ret.Copy(cs)
	c.params = make([]CVarSet, len(fv.params))
	for i, ps := range fv.params {
		for _, cv := range ps {
			c.params[i] = c.params[i].Add(cv.(*PVConstraint).Copy(cs))
		}
	}
	return &c
}
