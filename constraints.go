package cconv

import (
	"fmt"
	"log"

	"github.com/BarrensZeppelin/cconv/ast"
)

// ConstKind is an element of the pointer-kind lattice
// Ptr < NTArr < Arr < Wild.
type ConstKind uint8

const (
	Ptr ConstKind = iota
	NTArr
	Arr
	Wild
	numConsts
)

var constNames = [...]string{Ptr: "PTR", NTArr: "NTARR", Arr: "ARR", Wild: "WILD"}

func (k ConstKind) String() string {
	if k >= numConsts {
		return fmt.Sprintf("ConstKind(%d)", k)
	}
	return constNames[k]
}

// Atom is an index into the atom arena of a Constraints. The first four
// atoms are the constants; every other atom is a variable.
type Atom uint32

// ConstAtom returns the interned atom of a constant kind.
func ConstAtom(k ConstKind) Atom { return Atom(k) }

func (a Atom) IsConst() bool { return a < Atom(numConsts) }

func (a Atom) Const() (ConstKind, bool) {
	if a.IsConst() {
		return ConstKind(a), true
	}
	return 0, false
}

func (a Atom) varIndex() int { return int(a) - int(numConsts) }

func (a Atom) String() string {
	if k, ok := a.Const(); ok {
		return k.String()
	}
	return fmt.Sprintf("q_%d", a.varIndex())
}

// Geq is the constraint LHS ⊒ RHS.
type Geq struct {
	LHS, RHS Atom
	Reason   string
	Loc      ast.Loc
}

// Implies adds Conclusion once Premise holds.
type Implies struct {
	Premise    Geq
	Conclusion Geq
}

type varInfo struct {
	name string
	// wild is the first constraint that put the variable directly at Wild.
	wild *Geq
}

// Constraints owns the atom arena and every constraint added during the
// analysis. Constraints are only ever added.
type Constraints struct {
	vars    []varInfo
	geqs    []*Geq
	geqSet  map[[2]Atom]*Geq
	implies []*Implies

	solved    bool
	env       []ConstKind
	conflicts []*Geq
	// fired holds the conclusions of implications whose premise held in
	// the last solution.
	fired []*Geq
}

func NewConstraints() *Constraints {
	return &Constraints{geqSet: make(map[[2]Atom]*Geq)}
}

// NewVar allocates a fresh variable atom. The hint is only used for
// printing.
func (cs *Constraints) NewVar(hint string) Atom {
	cs.vars = append(cs.vars, varInfo{name: hint})
	cs.solved = false
	return Atom(len(cs.vars)-1) + Atom(numConsts)
}

func (cs *Constraints) NumVars() int { return len(cs.vars) }

// NumAtoms counts constants and variables.
func (cs *Constraints) NumAtoms() int { return len(cs.vars) + int(numConsts) }

// Hint returns the name the variable was created with.
func (cs *Constraints) Hint(a Atom) string {
	if a.IsConst() {
		return ""
	}
	return cs.vars[a.varIndex()].name
}

func (cs *Constraints) checkAtom(a Atom) {
	if !a.IsConst() && a.varIndex() >= len(cs.vars) {
		log.Panicf("atom %d does not belong to this constraint set", a)
	}
}

// AddGeq records lhs ⊒ rhs. Constraints between two constants carry no
// information and are dropped. Adding an existing pair returns the
// existing constraint.
func (cs *Constraints) AddGeq(lhs, rhs Atom, reason string, loc ast.Loc) *Geq {
	cs.checkAtom(lhs)
	cs.checkAtom(rhs)
	if lhs.IsConst() && rhs.IsConst() {
		return nil
	}
	key := [2]Atom{lhs, rhs}
	if g, ok := cs.geqSet[key]; ok {
		return g
	}
	g := &Geq{LHS: lhs, RHS: rhs, Reason: reason, Loc: loc}
	cs.geqSet[key] = g
	cs.geqs = append(cs.geqs, g)
	cs.noteWild(g)
	cs.solved = false
	return g
}

func (cs *Constraints) noteWild(g *Geq) {
	if g.RHS != ConstAtom(Wild) || g.LHS.IsConst() {
		return
	}
	if v := &cs.vars[g.LHS.varIndex()]; v.wild == nil {
		v.wild = g
	}
}

// AddImplies records premise ⇒ conclusion.
func (cs *Constraints) AddImplies(premise, conclusion Geq) *Implies {
	for _, a := range [...]Atom{premise.LHS, premise.RHS, conclusion.LHS, conclusion.RHS} {
		cs.checkAtom(a)
	}
	imp := &Implies{Premise: premise, Conclusion: conclusion}
	cs.implies = append(cs.implies, imp)
	cs.solved = false
	return imp
}

func (cs *Constraints) Geqs() []*Geq { return cs.geqs }

func (cs *Constraints) Implications() []*Implies { return cs.implies }

// WildReason returns the constraint that first made a directly Wild.
// Atoms that are Wild only through other atoms have no reason.
func (cs *Constraints) WildReason(a Atom) (*Geq, bool) {
	if a.IsConst() {
		return nil, false
	}
	g := cs.vars[a.varIndex()].wild
	return g, g != nil
}

// Solved reports whether assignments reflect every added constraint.
func (cs *Constraints) Solved() bool { return cs.solved }

// Assignment returns the solved kind of a.
func (cs *Constraints) Assignment(a Atom) ConstKind {
	if k, ok := a.Const(); ok {
		return k
	}
	if !cs.solved {
		log.Panicf("assignment of %s requested before solving", a)
	}
	return cs.env[a.varIndex()]
}

// Conflicts returns the constraints with a constant left-hand side that
// the last solution violates.
func (cs *Constraints) Conflicts() []*Geq { return cs.conflicts }

func (cs *Constraints) GeqString(g *Geq) string {
	return fmt.Sprintf("%s >= %s", g.LHS, g.RHS)
}

// Env assigns a kind to every atom.
type Env interface {
	Assignment(Atom) ConstKind
}

type uncheckedEnv struct{}

func (uncheckedEnv) Assignment(a Atom) ConstKind {
	if k, ok := a.Const(); ok {
		return k
	}
	return Wild
}

// Unchecked renders every variable atom as an unchecked pointer, which
// reproduces the declarations as they were written.
var Unchecked Env = uncheckedEnv{}
