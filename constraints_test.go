package cconv

import (
	"testing"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noLoc ast.Loc

func TestSolveLeastSolution(t *testing.T) {
	cs := NewConstraints()
	p, q, r := cs.NewVar("p"), cs.NewVar("q"), cs.NewVar("r")

	cs.AddGeq(q, p, "assign", noLoc)
	cs.AddGeq(p, ConstAtom(Arr), "subscript", noLoc)
	cs.Solve()

	assert.Equal(t, Arr, cs.Assignment(p))
	assert.Equal(t, Arr, cs.Assignment(q))
	assert.Equal(t, Ptr, cs.Assignment(r), "unconstrained variables stay at the bottom")
	assert.Equal(t, Wild, cs.Assignment(ConstAtom(Wild)))
}

func TestSolveWildIsSticky(t *testing.T) {
	cs := NewConstraints()
	p, q := cs.NewVar("p"), cs.NewVar("q")
	cs.AddGeq(p, q, "", noLoc)
	cs.AddGeq(q, p, "", noLoc)
	cs.AddGeq(q, ConstAtom(NTArr), "string", noLoc)
	g := cs.AddGeq(p, ConstAtom(Wild), "cast", noLoc)
	cs.Solve()

	assert.Equal(t, Wild, cs.Assignment(p))
	assert.Equal(t, Wild, cs.Assignment(q))

	reason, ok := cs.WildReason(p)
	require.True(t, ok)
	assert.Same(t, g, reason)
	_, ok = cs.WildReason(q)
	assert.False(t, ok, "q is wild only through p")
}

func TestAddGeqIsIdempotent(t *testing.T) {
	cs := NewConstraints()
	p := cs.NewVar("p")
	first := cs.AddGeq(p, ConstAtom(Wild), "first", noLoc)
	second := cs.AddGeq(p, ConstAtom(Wild), "second", noLoc)
	assert.Same(t, first, second)
	assert.Len(t, cs.Geqs(), 1)

	reason, _ := cs.WildReason(p)
	assert.Equal(t, "first", reason.Reason)

	assert.Nil(t, cs.AddGeq(ConstAtom(Arr), ConstAtom(Ptr), "", noLoc))
}

func TestSolveImplications(t *testing.T) {
	cs := NewConstraints()
	inner, outer, other := cs.NewVar("x"), cs.NewVar("&x"), cs.NewVar("y")

	wild := ConstAtom(Wild)
	cs.AddImplies(Geq{LHS: outer, RHS: wild}, Geq{LHS: inner, RHS: wild, Reason: "address taken"})
	cs.AddGeq(other, outer, "", noLoc)
	cs.Solve()
	assert.Equal(t, Ptr, cs.Assignment(inner))
	assert.Empty(t, cs.Derived())

	cs.AddGeq(outer, wild, "cast", noLoc)
	assert.False(t, cs.Solved())
	cs.Solve()
	assert.Equal(t, Wild, cs.Assignment(inner))
	assert.Equal(t, Wild, cs.Assignment(other))
	assert.Len(t, cs.Derived(), 1)

	reason, ok := cs.WildReason(inner)
	require.True(t, ok)
	assert.Equal(t, "address taken", reason.Reason)
}

func TestSolveConflicts(t *testing.T) {
	cs := NewConstraints()
	p := cs.NewVar("p")
	upper := cs.AddGeq(ConstAtom(Ptr), p, "declared _Ptr", noLoc)
	cs.AddGeq(p, ConstAtom(Arr), "subscript", noLoc)

	conflicts := cs.Solve()
	assert.Equal(t, []*Geq{upper}, conflicts)
	assert.Equal(t, Arr, cs.Assignment(p))
}

func TestAssignmentBeforeSolvePanics(t *testing.T) {
	cs := NewConstraints()
	p := cs.NewVar("p")
	assert.Panics(t, func() { cs.Assignment(p) })
	assert.Equal(t, NTArr, cs.Assignment(ConstAtom(NTArr)))
	assert.Equal(t, Wild, Unchecked.Assignment(p))
}

func TestSolveMonotone(t *testing.T) {
	// Adding constraints never lowers a solution.
	cs := NewConstraints()
	atoms := make([]Atom, 6)
	for i := range atoms {
		atoms[i] = cs.NewVar("v")
	}
	steps := []struct{ l, r Atom }{
		{atoms[1], atoms[0]},
		{atoms[0], ConstAtom(NTArr)},
		{atoms[2], atoms[1]},
		{atoms[3], ConstAtom(Arr)},
		{atoms[1], atoms[3]},
		{atoms[5], atoms[4]},
		{atoms[4], ConstAtom(Wild)},
	}
	prev := make([]ConstKind, len(atoms))
	for _, st := range steps {
		cs.AddGeq(st.l, st.r, "", noLoc)
		cs.Solve()
		for i, a := range atoms {
			k := cs.Assignment(a)
			assert.GreaterOrEqual(t, k, prev[i])
			prev[i] = k
		}
	}
	assert.Equal(t, []ConstKind{NTArr, Arr, Arr, Arr, Wild, Wild}, prev)
}
