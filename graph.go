package cconv

import (
	"fmt"

	"github.com/BarrensZeppelin/cconv/internal/maps"
	ybgraph "github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// atomNode is an atom of the constraint graph.
type atomNode struct {
	atom  Atom
	label string
	kind  ConstKind
}

func (n atomNode) ID() int64 { return int64(n.atom) }
func (n atomNode) DOTID() string { return n.atom.String() }
func (n atomNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: fmt.Sprintf("%q", n.label)}}
	if n.kind == Wild {
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "red"})
	}
	return attrs
}

// geqEdge points from the right-hand side of a constraint to its
// left-hand side, the direction in which kinds flow.
type geqEdge struct {
	from, to atomNode
	reason   string
}

func (e geqEdge) From() graph.Node { return e.from }
func (e geqEdge) To() graph.Node { return e.to }
func (e geqEdge) ReversedEdge() graph.Edge { return geqEdge{e.to, e.from, e.reason} }
func (e geqEdge) Attributes() []encoding.Attribute {
	if e.reason == "" {
		return nil
	}
	return []encoding.Attribute{{Key: "label", Value: fmt.Sprintf("%q", e.reason)}}
}

func (info *ProgramInfo) atomNode(a Atom) atomNode {
	n := atomNode{atom: a, label: a.String(), kind: Ptr}
	if k, ok := a.Const(); ok {
		n.kind = k
		return n
	}
	if h := info.cs.Hint(a); h != "" {
		n.label = fmt.Sprintf("%s (%s)", a, h)
	}
	if info.cs.Solved() {
		n.kind = info.cs.Assignment(a)
	}
	return n
}

// ConstraintGraph returns the constraints as a directed graph over atoms.
// Implications are not part of the graph.
func (info *ProgramInfo) ConstraintGraph() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, gs := range [...][]*Geq{info.cs.Geqs(), info.cs.Derived()} {
		for _, c := range gs {
			from, to := info.atomNode(c.RHS), info.atomNode(c.LHS)
			for _, n := range [...]atomNode{from, to} {
				if g.Node(n.ID()) == nil {
					g.AddNode(n)
				}
			}
			if from.ID() != to.ID() && !g.HasEdgeFromTo(from.ID(), to.ID()) {
				g.SetEdge(geqEdge{from, to, c.Reason})
			}
		}
	}
	return g
}

// DumpDOT renders the constraint graph in Graphviz format.
func (info *ProgramInfo) DumpDOT() ([]byte, error) {
	b, err := dot.Marshal(info.ConstraintGraph(), "constraints", "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering constraint graph: %w", err)
	}
	return b, nil
}

// EquivalenceClasses returns the sets of variable atoms that constrain each
// other in a cycle and therefore always solve to the same kind. Singleton
// classes are left out.
func (info *ProgramInfo) EquivalenceClasses() [][]Atom {
	cs := info.cs
	g := ybgraph.New(cs.NumAtoms())
	for _, gs := range [...][]*Geq{cs.Geqs(), cs.Derived()} {
		for _, c := range gs {
			if !c.LHS.IsConst() && !c.RHS.IsConst() {
				g.Add(int(c.RHS), int(c.LHS))
			}
		}
	}

	classes := make(map[Atom][]Atom)
	for _, comp := range ybgraph.StrongComponents(g) {
		if len(comp) < 2 {
			continue
		}
		class := make([]Atom, len(comp))
		least := Atom(comp[0])
		for i, v := range comp {
			class[i] = Atom(v)
			least = min(least, Atom(v))
		}
		slices.Sort(class)
		classes[least] = class
	}

	var res [][]Atom
	for _, least := range maps.SortedKeys(classes) {
		res = append(res, classes[least])
	}
	return res
}
