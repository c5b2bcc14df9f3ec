package bounds

import (
	"fmt"
	"io"
	"strconv"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/internal/maps"
)

// Heuristic names the rule that produced a set of bounds.
type Heuristic int

const (
	AllocatorMatch Heuristic = iota
	VariableNameMatch
	NeighbourParamMatch
	NamePrefixMatch
	StringLiteralMatch
	ArgvMatch
	FlowMatch
	numHeuristics
)

var heuristicNames = [...]string{
	AllocatorMatch:      "Allocator Match",
	VariableNameMatch:   "Variable Name Match",
	NeighbourParamMatch: "Neighbour Param Match",
	NamePrefixMatch:     "Name Prefix Match",
	StringLiteralMatch:  "String Literal Match",
	ArgvMatch:           "Argv Match",
	FlowMatch:           "Flow Match",
}

func (h Heuristic) String() string { return heuristicNames[h] }

// Stats records which heuristic last decided the bounds of each key.
type Stats struct {
	byHeuristic [numHeuristics]map[Key]bool
}

func (s *Stats) add(h Heuristic, k Key) {
	for i := range s.byHeuristic {
		delete(s.byHeuristic[i], k)
	}
	if s.byHeuristic[h] == nil {
		s.byHeuristic[h] = make(map[Key]bool)
	}
	s.byHeuristic[h][k] = true
}

// Count returns the number of keys whose bounds come from h.
func (s *Stats) Count(h Heuristic) int { return len(s.byHeuristic[h]) }

func (s *Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "Array Bounds Inference Stats:")
	for h := Heuristic(0); h < numHeuristics; h++ {
		fmt.Fprintf(w, "%s:%d\n", h, s.Count(h))
	}
}

type ctxKey struct {
	call *ast.Call
	key  Key
}

// Info owns all bounds keys, their program variables and inferred bounds.
type Info struct {
	next      Key
	vars      map[Key]*ProgramVar
	declKeys  map[ast.Loc]Key
	constKeys map[int64]Key
	ctxKeys   map[ctxKey]Key
	origin    map[Key]Key // context-sensitive key -> callee's key
	bounds    map[Key]Bounds

	// flows[l] lists the keys assigned to l.
	flows map[Key][]Key

	Stats Stats
}

func NewInfo() *Info {
	return &Info{
		vars:      make(map[Key]*ProgramVar),
		declKeys:  make(map[ast.Loc]Key),
		constKeys: make(map[int64]Key),
		ctxKeys:   make(map[ctxKey]Key),
		origin:    make(map[Key]Key),
		bounds:    make(map[Key]Bounds),
		flows:     make(map[Key][]Key),
	}
}

func (info *Info) fresh(name string, scope Scope, constant bool) Key {
	info.next++
	k := info.next
	info.vars[k] = &ProgramVar{Key: k, Name: name, Scope: scope, Constant: constant}
	return k
}

// DeclKey returns the key of declaration d, allocating one on first use.
func (info *Info) DeclKey(d ast.Decl, scope Scope) Key {
	if k, ok := info.declKeys[d.Pos()]; ok {
		return k
	}
	k := info.fresh(d.DeclName(), scope, false)
	info.declKeys[d.Pos()] = k
	return k
}

func (info *Info) LookupDecl(d ast.Decl) (Key, bool) {
	k, ok := info.declKeys[d.Pos()]
	return k, ok
}

// ConstKey returns the key standing for the integer constant v.
func (info *Info) ConstKey(v int64) Key {
	if k, ok := info.constKeys[v]; ok {
		return k
	}
	k := info.fresh(strconv.FormatInt(v, 10), Global(), true)
	info.constKeys[v] = k
	return k
}

// NewTemporary allocates a key that is not tied to a declaration, e.g. for
// the result of an expression.
func (info *Info) NewTemporary(name string, scope Scope) Key {
	return info.fresh(name, scope, false)
}

// ContextSensitiveKey returns the copy of k used for the result of call.
// The copy reports the bounds of the original until it gets its own.
func (info *Info) ContextSensitiveKey(call *ast.Call, k Key) Key {
	ck := ctxKey{call, k}
	if nk, ok := info.ctxKeys[ck]; ok {
		return nk
	}
	name := "ret"
	if v := info.vars[k]; v != nil {
		name = v.Name
	}
	nk := info.fresh(name, CallSite(call.CalleeName()), false)
	info.ctxKeys[ck] = nk
	info.origin[nk] = k
	return nk
}

func (info *Info) Var(k Key) *ProgramVar { return info.vars[k] }

func (info *Info) Bounds(k Key) (Bounds, bool) {
	for {
		if b, ok := info.bounds[k]; ok {
			return b, true
		}
		orig, ok := info.origin[k]
		if !ok {
			return Bounds{}, false
		}
		k = orig
	}
}

// MergeBounds sets the bounds of k unless it already has some. It reports
// whether the bounds were set.
func (info *Info) MergeBounds(k Key, b Bounds, h Heuristic) bool {
	if _, ok := info.bounds[k]; ok {
		return false
	}
	info.bounds[k] = b
	info.Stats.add(h, k)
	return true
}

// ReplaceBounds sets the bounds of k, overwriting existing bounds.
func (info *Info) ReplaceBounds(k Key, b Bounds, h Heuristic) {
	info.bounds[k] = b
	info.Stats.add(h, k)
}

// RemoveBounds forgets the bounds of k.
func (info *Info) RemoveBounds(k Key) {
	delete(info.bounds, k)
	for i := range info.Stats.byHeuristic {
		delete(info.Stats.byHeuristic[i], k)
	}
}

// AddFlow records that the value of rhs is assigned to lhs.
func (info *Info) AddFlow(lhs, rhs Key) {
	for _, k := range info.flows[lhs] {
		if k == rhs {
			return
		}
	}
	info.flows[lhs] = append(info.flows[lhs], rhs)
}

// Propagate gives bounds to keys without bounds whose every incoming flow
// carries the same bounds over a variable visible in the key's scope. It
// repeats until nothing changes and returns the number of keys updated.
func (info *Info) Propagate() int {
	updated := 0
	for changed := true; changed; {
		changed = false
		for _, lhs := range maps.SortedKeys(info.flows) {
			if _, ok := info.Bounds(lhs); ok {
				continue
			}
			b, ok := info.commonBounds(info.flows[lhs])
			if !ok {
				continue
			}
			target := info.vars[b.Key]
			if !target.Constant && !info.vars[lhs].Scope.Sees(target.Scope) {
				continue
			}
			info.MergeBounds(lhs, b, FlowMatch)
			changed = true
			updated++
		}
	}
	return updated
}

func (info *Info) commonBounds(keys []Key) (Bounds, bool) {
	var res Bounds
	for i, k := range keys {
		b, ok := info.Bounds(k)
		if !ok || (i > 0 && b != res) {
			return Bounds{}, false
		}
		res = b
	}
	return res, len(keys) > 0
}

// Keys returns every key that has bounds, in increasing order.
func (info *Info) Keys() []Key { return maps.SortedKeys(info.bounds) }
