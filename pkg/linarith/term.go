// Package linarith provides model-based projection and linear optimization
// over mixed integer/real linear arithmetic.
//
// Given a conjunction of literals, a model satisfying them, and a set of
// variables to eliminate, the projection entry point produces a
// quantifier-free conjunction over the remaining variables that is still
// true in the model and implies the existentially quantified original
// modulo that model. Rather than producing the exponential disjunction of
// a full virtual-substitution pass, every branch point (conditionals,
// bound selection) is resolved by consulting the model, so exactly one
// residue per eliminated variable survives.
//
// The package has three layers:
//   - Terms: an immutable, hash-consed term language over Int/Real/Bool
//     (Manager, Term).
//   - Models: concrete assignments for the uninterpreted constants of a
//     formula, with an evaluator supporting model completion (Model,
//     Evaluator).
//   - The engine: a numeric constraint store over rational rows with
//     projection and maximization (Engine), driven by the symbolic layer
//     in project.go and maximize.go.
//
// All entry points are strictly single-threaded and allocate their working
// state per call; no state persists between calls.
package linarith

import (
	"fmt"
	"math/big"
	"strings"
)

// Sort classifies a term as integer, real, or boolean valued.
type Sort int

const (
	SortInt Sort = iota
	SortReal
	SortBool
)

// String returns a human-readable representation of the sort.
func (s Sort) String() string {
	switch s {
	case SortInt:
		return "Int"
	case SortReal:
		return "Real"
	case SortBool:
		return "Bool"
	default:
		return "unknown"
	}
}

// Kind identifies the head symbol of a term.
type Kind int

const (
	// KindNum is a numeric literal.
	KindNum Kind = iota
	// KindConst is a nullary uninterpreted symbol.
	KindConst
	// KindAdd is an n-ary sum.
	KindAdd
	// KindSub is a binary difference.
	KindSub
	// KindNeg is unary minus.
	KindNeg
	// KindMul is an n-ary product.
	KindMul
	// KindMod is integer remainder.
	KindMod
	// KindIte is if-then-else.
	KindIte
	// KindLe, KindLt, KindGe, KindGt are the four orderings.
	KindLe
	KindLt
	KindGe
	KindGt
	// KindEq is equality, KindDistinct pairwise disequality.
	KindEq
	KindDistinct
	// KindNot is boolean negation.
	KindNot
	// KindTrue and KindFalse are the boolean constants.
	KindTrue
	KindFalse
)

// String returns the symbol conventionally used for the kind.
func (k Kind) String() string {
	switch k {
	case KindNum:
		return "num"
	case KindConst:
		return "const"
	case KindAdd:
		return "+"
	case KindSub:
		return "-"
	case KindNeg:
		return "neg"
	case KindMul:
		return "*"
	case KindMod:
		return "mod"
	case KindIte:
		return "ite"
	case KindLe:
		return "<="
	case KindLt:
		return "<"
	case KindGe:
		return ">="
	case KindGt:
		return ">"
	case KindEq:
		return "="
	case KindDistinct:
		return "distinct"
	case KindNot:
		return "not"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Term is an immutable node of the term language. Terms are hash-consed by
// their Manager: two structurally equal terms built by the same Manager are
// the same pointer, so maps keyed on *Term key on structural identity.
type Term struct {
	kind Kind
	sort Sort
	num  *big.Rat // KindNum only
	name string   // KindConst only
	args []*Term
}

// Kind returns the head symbol of the term.
func (t *Term) Kind() Kind { return t.kind }

// Sort returns the sort of the term.
func (t *Term) Sort() Sort { return t.sort }

// IsInt reports whether the term is integer sorted.
func (t *Term) IsInt() bool { return t.sort == SortInt }

// IsReal reports whether the term is real sorted.
func (t *Term) IsReal() bool { return t.sort == SortReal }

// IsArith reports whether the term is numeric (integer or real sorted).
func (t *Term) IsArith() bool { return t.sort == SortInt || t.sort == SortReal }

// Num returns the value of a numeric literal. The result is shared; callers
// must not mutate it.
func (t *Term) Num() *big.Rat { return t.num }

// Name returns the symbol name of an uninterpreted constant.
func (t *Term) Name() string { return t.name }

// NumArgs returns the number of arguments.
func (t *Term) NumArgs() int { return len(t.args) }

// Arg returns the i-th argument.
func (t *Term) Arg(i int) *Term { return t.args[i] }

// Args returns the argument slice. The slice is shared; callers must not
// mutate it.
func (t *Term) Args() []*Term { return t.args }

// String renders the term in infix notation.
func (t *Term) String() string {
	switch t.kind {
	case KindNum:
		return t.num.RatString()
	case KindConst:
		return t.name
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNeg:
		return "(- " + t.args[0].String() + ")"
	case KindNot:
		return "(not " + t.args[0].String() + ")"
	case KindIte:
		return fmt.Sprintf("(ite %s %s %s)", t.args[0], t.args[1], t.args[2])
	case KindDistinct:
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return "(distinct " + strings.Join(parts, " ") + ")"
	default:
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, " "+t.kind.String()+" ") + ")"
	}
}

// Manager builds and hash-conses terms. All terms participating in one
// projection or optimization call must come from the same Manager.
//
// Manager is not safe for concurrent use; the core is single-threaded by
// contract and borrows terms immutably for the duration of a call.
type Manager struct {
	table map[string]*Term
}

// NewManager returns an empty term manager.
func NewManager() *Manager {
	return &Manager{table: make(map[string]*Term)}
}

// intern returns the canonical node for the given shape.
func (m *Manager) intern(t *Term) *Term {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%s|", t.kind, t.sort, t.name)
	if t.num != nil {
		b.WriteString(t.num.RatString())
	}
	for _, a := range t.args {
		fmt.Fprintf(&b, "|%p", a)
	}
	key := b.String()
	if prev, ok := m.table[key]; ok {
		return prev
	}
	m.table[key] = t
	return t
}

// numericSort returns Real if any argument is real sorted, Int otherwise.
func numericSort(args []*Term) Sort {
	for _, a := range args {
		if a.sort == SortReal {
			return SortReal
		}
	}
	return SortInt
}

// Num builds a numeric literal of the given sort. The value is copied.
func (m *Manager) Num(v *big.Rat, sort Sort) *Term {
	return m.intern(&Term{kind: KindNum, sort: sort, num: new(big.Rat).Set(v)})
}

// Int builds an integer numeral.
func (m *Manager) Int(v int64) *Term {
	return m.intern(&Term{kind: KindNum, sort: SortInt, num: new(big.Rat).SetInt64(v)})
}

// Real builds a real numeral.
func (m *Manager) Real(v int64) *Term {
	return m.intern(&Term{kind: KindNum, sort: SortReal, num: new(big.Rat).SetInt64(v)})
}

// Const builds (or retrieves) the uninterpreted constant with the given
// name and sort.
func (m *Manager) Const(name string, sort Sort) *Term {
	return m.intern(&Term{kind: KindConst, sort: sort, name: name})
}

// IntConst builds an integer-sorted uninterpreted constant.
func (m *Manager) IntConst(name string) *Term { return m.Const(name, SortInt) }

// RealConst builds a real-sorted uninterpreted constant.
func (m *Manager) RealConst(name string) *Term { return m.Const(name, SortReal) }

// BoolConst builds a boolean-sorted uninterpreted constant.
func (m *Manager) BoolConst(name string) *Term { return m.Const(name, SortBool) }

// Add builds an n-ary sum. A single argument is returned unchanged.
func (m *Manager) Add(args ...*Term) *Term {
	if len(args) == 1 {
		return args[0]
	}
	return m.intern(&Term{kind: KindAdd, sort: numericSort(args), args: args})
}

// Sub builds a binary difference.
func (m *Manager) Sub(a, b *Term) *Term {
	return m.intern(&Term{kind: KindSub, sort: numericSort([]*Term{a, b}), args: []*Term{a, b}})
}

// Neg builds unary minus.
func (m *Manager) Neg(a *Term) *Term {
	return m.intern(&Term{kind: KindNeg, sort: a.sort, args: []*Term{a}})
}

// Mul builds an n-ary product.
func (m *Manager) Mul(args ...*Term) *Term {
	if len(args) == 1 {
		return args[0]
	}
	return m.intern(&Term{kind: KindMul, sort: numericSort(args), args: args})
}

// Mod builds integer remainder a mod b. The remainder follows the
// Euclidean convention: for b > 0 the result lies in [0, b).
func (m *Manager) Mod(a, b *Term) *Term {
	return m.intern(&Term{kind: KindMod, sort: SortInt, args: []*Term{a, b}})
}

// Ite builds if-then-else over a boolean guard.
func (m *Manager) Ite(g, a, b *Term) *Term {
	sort := a.sort
	if a.sort == SortInt && b.sort == SortReal {
		sort = SortReal
	}
	return m.intern(&Term{kind: KindIte, sort: sort, args: []*Term{g, a, b}})
}

// Le builds a <= b.
func (m *Manager) Le(a, b *Term) *Term {
	return m.intern(&Term{kind: KindLe, sort: SortBool, args: []*Term{a, b}})
}

// Lt builds a < b.
func (m *Manager) Lt(a, b *Term) *Term {
	return m.intern(&Term{kind: KindLt, sort: SortBool, args: []*Term{a, b}})
}

// Ge builds a >= b.
func (m *Manager) Ge(a, b *Term) *Term {
	return m.intern(&Term{kind: KindGe, sort: SortBool, args: []*Term{a, b}})
}

// Gt builds a > b.
func (m *Manager) Gt(a, b *Term) *Term {
	return m.intern(&Term{kind: KindGt, sort: SortBool, args: []*Term{a, b}})
}

// Eq builds a = b.
func (m *Manager) Eq(a, b *Term) *Term {
	return m.intern(&Term{kind: KindEq, sort: SortBool, args: []*Term{a, b}})
}

// Distinct builds pairwise disequality over its arguments.
func (m *Manager) Distinct(args ...*Term) *Term {
	return m.intern(&Term{kind: KindDistinct, sort: SortBool, args: args})
}

// True returns the boolean constant true.
func (m *Manager) True() *Term {
	return m.intern(&Term{kind: KindTrue, sort: SortBool})
}

// False returns the boolean constant false.
func (m *Manager) False() *Term {
	return m.intern(&Term{kind: KindFalse, sort: SortBool})
}

// Not negates a boolean term. Double negations collapse and the boolean
// constants flip, matching how hosts normalize literals before projection.
func (m *Manager) Not(a *Term) *Term {
	switch a.kind {
	case KindNot:
		return a.args[0]
	case KindTrue:
		return m.False()
	case KindFalse:
		return m.True()
	}
	return m.intern(&Term{kind: KindNot, sort: SortBool, args: []*Term{a}})
}
