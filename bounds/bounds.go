// Package bounds stores the bounds inferred for array-shaped pointers and
// the program variables those bounds refer to.
package bounds

import (
	"fmt"
	"strconv"
)

// Key identifies a program variable (or constant) that can either carry
// bounds or appear inside a bounds expression. The zero Key is invalid.
type Key uint32

const Invalid Key = 0

type ScopeKind int

const (
	GlobalScope ScopeKind = iota
	StructScope
	FunctionScope
	ParamScope
	// CallSiteScope holds the context-sensitive copies of a callee's keys.
	CallSiteScope
)

type Scope struct {
	Kind ScopeKind
	// Name of the struct or function the scope belongs to.
	Name string
}

func Global() Scope                  { return Scope{Kind: GlobalScope} }
func Struct(name string) Scope       { return Scope{StructScope, name} }
func Function(name string) Scope     { return Scope{FunctionScope, name} }
func Params(function string) Scope   { return Scope{ParamScope, function} }
func CallSite(function string) Scope { return Scope{CallSiteScope, function} }

func (s Scope) String() string {
	switch s.Kind {
	case GlobalScope:
		return "global"
	case StructScope:
		return "struct " + s.Name
	case FunctionScope:
		return "function " + s.Name
	case ParamScope:
		return "params of " + s.Name
	case CallSiteScope:
		return "call of " + s.Name
	default:
		return "scope?"
	}
}

// Sees reports whether a variable of scope o is visible where a pointer of
// scope s is declared. Function bodies see their own parameters.
func (s Scope) Sees(o Scope) bool {
	if s == o {
		return true
	}
	return s.Kind == FunctionScope && o.Kind == ParamScope && s.Name == o.Name
}

type ProgramVar struct {
	Key   Key
	Name  string
	Scope Scope
	// Constant variables stand for integer literals; Name is the value.
	Constant bool
}

func (v *ProgramVar) String() string {
	if v.Constant {
		return v.Name
	}
	return fmt.Sprintf("%s(%s)", v.Name, v.Scope)
}

type Kind int

const (
	ByteBound Kind = iota
	CountBound
)

// Bounds is an inferred bounds expression over another program variable.
type Bounds struct {
	Kind Kind
	Key  Key
}

func Count(k Key) Bounds { return Bounds{CountBound, k} }
func Bytes(k Key) Bounds { return Bounds{ByteBound, k} }

// MkString renders the bounds in Checked C syntax.
func (b Bounds) MkString(info *Info) string {
	name := strconv.Itoa(int(b.Key))
	if v := info.Var(b.Key); v != nil {
		name = v.Name
	}
	switch b.Kind {
	case ByteBound:
		return "byte_count(" + name + ")"
	case CountBound:
		return "count(" + name + ")"
	default:
		panic(fmt.Errorf("unknown bounds kind %d", b.Kind))
	}
}
