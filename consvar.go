package cconv

import (
	"log"

	"github.com/BarrensZeppelin/cconv/ast"
)

// ConsAction says which way pointer kinds flow between two variables.
type ConsAction int

const (
	// SameToSame makes both sides equal.
	SameToSame ConsAction = iota
	// SafeToWild lets wildness flow from the right-hand side to the left:
	// LHS ⊒ RHS.
	SafeToWild
	// WildToSafe lets wildness flow from the left-hand side to the right:
	// RHS ⊒ LHS.
	WildToSafe
)

func (a ConsAction) String() string {
	switch a {
	case SameToSame:
		return "Same_to_Same"
	case SafeToWild:
		return "Safe_to_Wild"
	case WildToSafe:
		return "Wild_to_Safe"
	default:
		return "ConsAction?"
	}
}

func createAtomGeq(cs *Constraints, l, r Atom, action ConsAction, reason string, loc ast.Loc) {
	if l.IsConst() && r.IsConst() {
		return
	}
	switch action {
	case SameToSame:
		cs.AddGeq(l, r, reason, loc)
		cs.AddGeq(r, l, reason, loc)
	case SafeToWild:
		cs.AddGeq(l, r, reason, loc)
	case WildToSafe:
		cs.AddGeq(r, l, reason, loc)
	}
}

// constrainConsVarGeq constrains every variable of lhs against every
// variable of rhs. Pointer variables are matched level by level from the
// outermost atom; function variables match their returns in the same
// direction and their parameters in the opposite one.
func constrainConsVarGeq(info *ProgramInfo, lhs, rhs CVarSet, action ConsAction, reason string, loc ast.Loc) {
	for _, l := range lhs {
		for _, r := range rhs {
			constrainPair(info, l, r, action, reason, loc)
		}
	}
}

func flip(action ConsAction) ConsAction {
	switch action {
	case SafeToWild:
		return WildToSafe
	case WildToSafe:
		return SafeToWild
	default:
		return action
	}
}

func constrainPair(info *ProgramInfo, l, r ConstraintVariable, action ConsAction, reason string, loc ast.Loc) {
	if l == r {
		return
	}
	cs := info.cs
	switch l := l.(type) {
	case *PVConstraint:
		switch r := r.(type) {
		case *PVConstraint:
			constrainAtoms(cs, l.atoms, r.atoms, action, reason, loc)
			switch {
			case l.fv != nil && r.fv != nil:
				constrainPair(info, l.fv, r.fv, action, reason, loc)
			case (l.fv != nil) != (r.fv != nil) && !l.IsNonPtr() && !r.IsNonPtr():
				l.ConstrainToWild(cs, reason, loc)
				r.ConstrainToWild(cs, reason, loc)
			}
		case *FVConstraint:
			if l.fv != nil {
				constrainPair(info, l.fv, r, action, reason, loc)
			} else if !l.IsNonPtr() {
				l.ConstrainToWild(cs, reason, loc)
				r.ConstrainToWild(cs, reason, loc)
			}
		default:
			log.Panicf("unexpected constraint variable %T", r)
		}
	case *FVConstraint:
		switch r := r.(type) {
		case *PVConstraint:
			if r.fv != nil {
				constrainPair(info, l, r.fv, action, reason, loc)
			} else if !r.IsNonPtr() {
				l.ConstrainToWild(cs, reason, loc)
				r.ConstrainToWild(cs, reason, loc)
			}
		case *FVConstraint:
			constrainPair(info, l.ret, r.ret, action, reason, loc)
			n := min(l.NumParams(), r.NumParams())
			for i := 0; i < n; i++ {
				constrainConsVarGeq(info, r.params[i], l.params[i], flip(action), reason, loc)
			}
			if l.NumParams() != r.NumParams() && l.hasProto && r.hasProto {
				l.ConstrainToWild(cs, reason, loc)
				r.ConstrainToWild(cs, reason, loc)
			}
		default:
			log.Panicf("unexpected constraint variable %T", r)
		}
	default:
		log.Panicf("unexpected constraint variable %T", l)
	}
}

// constrainAtoms applies action to the outermost level only. Inner levels
// are always equated: a `T **` may be written through, so its pointee
// level is invariant.
func constrainAtoms(cs *Constraints, l, r []Atom, action ConsAction, reason string, loc ast.Loc) {
	for i := 0; i < len(l) && i < len(r); i++ {
		if i == 0 {
			createAtomGeq(cs, l[i], r[i], action, reason, loc)
		} else {
			createAtomGeq(cs, l[i], r[i], SameToSame, reason, loc)
		}
	}
}
