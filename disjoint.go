package cconv

import (
	"github.com/BarrensZeppelin/cconv/ast"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// disjointSet is a union-find structure over atoms.
type disjointSet struct {
	parent map[Atom]Atom
}

func (ds *disjointSet) find(a Atom) Atom {
	p, ok := ds.parent[a]
	if !ok || p == a {
		return a
	}
	r := ds.find(p)
	ds.parent[a] = r
	return r
}

// union makes the representative of b the parent of a's representative.
func (ds *disjointSet) union(a, b Atom) {
	ra, rb := ds.find(a), ds.find(b)
	if ra != rb {
		ds.parent[ra] = rb
	}
}

// WildGroup is a set of wild atoms connected through constraints to an
// atom that was made wild directly.
type WildGroup struct {
	Root   Atom
	Reason string
	Loc    ast.Loc
	// Roots are every directly wild atom of the group, Root included.
	Roots []Atom
	// Members are the atoms of the group that are wild only through
	// other atoms.
	Members []Atom
}

// RootCauses attributes every wild atom to the direct wildification it
// descends from.
type RootCauses struct {
	Groups []*WildGroup
	// Direct holds the atoms constrained ⊒ Wild by a constraint.
	Direct intsets.Sparse
	// Indirect holds wild atoms that are not in Direct.
	Indirect intsets.Sparse
	// DeclLocs maps the atoms of declared variables to their declaration.
	DeclLocs map[Atom]ast.Loc

	byAtom map[Atom]*WildGroup
}

// GroupOf returns the group an atom was attributed to.
func (rc *RootCauses) GroupOf(a Atom) (*WildGroup, bool) {
	g, ok := rc.byAtom[a]
	return g, ok
}

// ComputeRootCauses groups atoms connected by variable-to-variable
// constraints and assigns each group whose members include a directly wild
// atom to that atom. It must run after Solve.
func (info *ProgramInfo) ComputeRootCauses() *RootCauses {
	cs := info.cs
	ds := &disjointSet{parent: make(map[Atom]Atom)}
	rc := &RootCauses{
		DeclLocs: make(map[Atom]ast.Loc),
		byAtom:   make(map[Atom]*WildGroup),
	}

	for _, gs := range [...][]*Geq{cs.Geqs(), cs.Derived()} {
		for _, g := range gs {
			if g.LHS.IsConst() {
				continue
			}
			if g.RHS == ConstAtom(Wild) {
				rc.Direct.Insert(int(g.LHS))
			} else if !g.RHS.IsConst() {
				ds.union(g.LHS, g.RHS)
			}
		}
	}

	groups := make(map[Atom]*WildGroup)
	var direct []int
	direct = rc.Direct.AppendTo(direct)
	for _, x := range direct {
		a := Atom(x)
		rep := ds.find(a)
		wg, ok := groups[rep]
		if !ok {
			wg = &WildGroup{Root: a}
			if g, ok := cs.WildReason(a); ok {
				wg.Reason, wg.Loc = g.Reason, g.Loc
			}
			groups[rep] = wg
			rc.Groups = append(rc.Groups, wg)
		}
		wg.Roots = append(wg.Roots, a)
		rc.byAtom[a] = wg
	}

	for i := 0; i < cs.NumVars(); i++ {
		a := Atom(i + int(numConsts))
		if rc.Direct.Has(int(a)) || cs.Assignment(a) != Wild {
			continue
		}
		rc.Indirect.Insert(int(a))
		if wg, ok := groups[ds.find(a)]; ok {
			wg.Members = append(wg.Members, a)
			rc.byAtom[a] = wg
		}
	}

	for loc, cvs := range info.variables {
		for _, cv := range cvs {
			pv, ok := cv.(*PVConstraint)
			if !ok {
				continue
			}
			for _, a := range pv.atoms {
				if !a.IsConst() {
					rc.DeclLocs[a] = loc
				}
			}
		}
	}

	slices.SortStableFunc(rc.Groups, func(a, b *WildGroup) bool {
		return len(a.Members) > len(b.Members)
	})
	return rc
}
