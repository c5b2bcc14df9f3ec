package cconv

import (
	"github.com/BarrensZeppelin/cconv/internal/queue"
	"golang.org/x/tools/container/intsets"
)

type solver struct {
	cs *Constraints
	// env[i] is the current value of variable i.
	env []ConstKind
	// uses[i] are the constraints whose right-hand side is variable i.
	uses [][]*Geq
	// watch[i] are the implications whose premise mentions variable i.
	watch [][]*Implies
	fired map[*Implies]bool

	worklist queue.Queue[Atom]
	queued   intsets.Sparse
	derived  []*Geq
}

func (s *solver) value(a Atom) ConstKind {
	if k, ok := a.Const(); ok {
		return k
	}
	return s.env[a.varIndex()]
}

func (s *solver) raise(a Atom, k ConstKind) {
	i := a.varIndex()
	if s.env[i] >= k {
		return
	}
	s.env[i] = k
	if s.queued.Insert(int(a)) {
		s.worklist.Push(a)
	}
}

func (s *solver) apply(g *Geq) {
	if g.LHS.IsConst() {
		// Conflicts are collected after the fixed point.
		return
	}
	s.raise(g.LHS, s.value(g.RHS))
}

func (s *solver) use(g *Geq) {
	if !g.RHS.IsConst() {
		i := g.RHS.varIndex()
		s.uses[i] = append(s.uses[i], g)
	}
	s.apply(g)
}

func (s *solver) check(imp *Implies) {
	if s.fired[imp] || s.value(imp.Premise.LHS) < s.value(imp.Premise.RHS) {
		return
	}
	s.fired[imp] = true
	g := imp.Conclusion
	s.derived = append(s.derived, &g)
	s.cs.noteWild(&g)
	s.use(&g)
}

// Solve computes the least assignment, starting every variable at Ptr,
// that satisfies every constraint whose left-hand side is a variable.
// Violated constraints with a constant left-hand side are kept as
// conflicts; solving itself never fails.
func (cs *Constraints) Solve() []*Geq {
	n := len(cs.vars)
	s := &solver{
		cs:    cs,
		env:   make([]ConstKind, n),
		uses:  make([][]*Geq, n),
		watch: make([][]*Implies, n),
		fired: make(map[*Implies]bool),
	}

	for _, imp := range cs.implies {
		for _, a := range [...]Atom{imp.Premise.LHS, imp.Premise.RHS} {
			if !a.IsConst() {
				s.watch[a.varIndex()] = append(s.watch[a.varIndex()], imp)
			}
		}
	}
	for _, g := range cs.geqs {
		s.use(g)
	}
	for _, imp := range cs.implies {
		s.check(imp)
	}

	for !s.worklist.Empty() {
		a := s.worklist.Pop()
		s.queued.Remove(int(a))
		k := s.value(a)
		for _, g := range s.uses[a.varIndex()] {
			if !g.LHS.IsConst() {
				s.raise(g.LHS, k)
			}
		}
		for _, imp := range s.watch[a.varIndex()] {
			s.check(imp)
		}
	}

	cs.env = s.env
	cs.fired = s.derived
	cs.conflicts = nil
	for _, gs := range [...][]*Geq{cs.geqs, s.derived} {
		for _, g := range gs {
			if lhs, ok := g.LHS.Const(); ok && s.value(g.RHS) > lhs {
				cs.conflicts = append(cs.conflicts, g)
			}
		}
	}
	cs.solved = true
	return cs.conflicts
}

// Derived returns the conclusions of implications that fired in the last
// solution.
func (cs *Constraints) Derived() []*Geq { return cs.fired }
