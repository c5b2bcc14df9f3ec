package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/bounds"
)

type Result struct {
	Info      *ProgramInfo
	Units     []*ast.TranslationUnit
	Conflicts []*Geq
	Stats     *Stats

	rootCauses *RootCauses
}

// Pointer is the solved view of one declared pointer.
type Pointer struct {
	res *Result
	pv  *PVConstraint
}

func (info *ProgramInfo) result(units []*ast.TranslationUnit, conflicts []*Geq) *Result {
	return &Result{
		Info:      info,
		Units:     units,
		Conflicts: conflicts,
		Stats:     info.ComputeStats(),
	}
}

// Env is the solved assignment.
func (r *Result) Env() Env { return r.Info.cs }

// RootCauses is computed on first use.
func (r *Result) RootCauses() *RootCauses {
	if r.rootCauses == nil {
		r.rootCauses = r.Info.ComputeRootCauses()
	}
	return r.rootCauses
}

// Pointer returns the solved view of a declaration, or nil when the
// declaration has no pointer constraint variable.
func (r *Result) Pointer(d ast.Decl) *Pointer {
	pv, ok := r.Info.DeclPV(d)
	if !ok || pv.IsNonPtr() {
		return nil
	}
	return &Pointer{r, pv}
}

// Function returns the constraint variable of the definition of fd, or of
// its declaration when it has no body.
func (r *Result) Function(fd *ast.FuncDecl) *FVConstraint {
	if fv := r.Info.FuncDefnConstraint(fd); fv != nil {
		return fv
	}
	return r.Info.FuncDeclConstraint(fd)
}

func (p *Pointer) Var() *PVConstraint { return p.pv }

// Kinds returns the solved kind of each pointer level, outermost first.
func (p *Pointer) Kinds() []ConstKind {
	res := make([]ConstKind, len(p.pv.atoms))
	for i, a := range p.pv.atoms {
		res[i] = p.res.Env().Assignment(a)
	}
	return res
}

func (p *Pointer) Kind() ConstKind {
	k, _ := p.pv.OuterKind(p.res.Env())
	return k
}

// String renders the declaration with its solved checked type.
func (p *Pointer) String() string { return p.pv.MkString(p.res.Env(), true, false, false) }

func (p *Pointer) Bounds() (bounds.Bounds, bool) {
	k, ok := p.pv.BoundsKey()
	if !ok {
		return bounds.Bounds{}, false
	}
	return p.res.Info.bounds.Bounds(k)
}

// WildReason explains why the outermost level is wild: either the
// constraint that made it wild directly, or that of the atom it inherited
// wildness from.
func (p *Pointer) WildReason() (string, ast.Loc, bool) {
	if len(p.pv.atoms) == 0 || p.Kind() != Wild {
		return "", ast.Loc{}, false
	}
	a := p.pv.atoms[0]
	if g, ok := p.res.Info.cs.WildReason(a); ok {
		return g.Reason, g.Loc, true
	}
	if wg, ok := p.res.RootCauses().GroupOf(a); ok {
		return wg.Reason, wg.Loc, true
	}
	return "", ast.Loc{}, false
}

// BoundsAnnotation renders the bounds of pv for a declaration, or "" when
// pv needs none or none were inferred. After an itype the separating colon
// is already present.
func (r *Result) BoundsAnnotation(pv *PVConstraint, afterItype bool) string {
	if !pv.NeedsArrayBounds(r.Env(), false) && !pv.NeedsArrayBounds(r.Env(), true) {
		return ""
	}
	k, _ := pv.BoundsKey()
	b, ok := r.Info.bounds.Bounds(k)
	if !ok {
		return ""
	}
	if afterItype {
		return " " + b.MkString(r.Info.bounds)
	}
	return " : " + b.MkString(r.Info.bounds)
}

// CastVar returns the variable of an explicit cast to a pointer type.
func (r *Result) CastVar(c *ast.Cast) (*PVConstraint, bool) {
	pv, ok := r.Info.castVars[c]
	return pv, ok
}
