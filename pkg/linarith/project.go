package linarith

import (
	"math/big"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Projector is the model-based projection plugin for linear arithmetic,
// bound to a term manager. It is stateless between calls: each entry
// point builds its own evaluator, engine, and variable correspondence.
type Projector struct {
	mgr *Manager
}

// NewProjector returns a projector building result terms with mgr.
func NewProjector(mgr *Manager) *Projector {
	return &Projector{mgr: mgr}
}

// Project eliminates the arithmetic members of vars from the conjunction
// lits, which must be true in mdl. It returns the variables it could not
// eliminate (non-arithmetic ones, and those escaping into residue) and
// the rewritten literal list, still true in mdl.
func (p *Projector) Project(mdl *Model, vars []*Term, lits []*Term) ([]*Term, []*Term) {
	hasArith := false
	for _, v := range vars {
		if v.IsArith() {
			hasArith = true
			break
		}
	}
	if !hasArith {
		return vars, lits
	}

	eval := NewEvaluator(mdl)
	mbo := NewEngine()
	tids := make(map[*Term]int)
	fmls := append([]*Term(nil), lits...)
	lc := &linctx{mgr: p.mgr, eval: eval, mbo: mbo, tids: tids, fmls: &fmls}

	// Consume what linearizes; keep the residue. Guards committed during
	// linearization are appended to fmls and picked up by the same loop.
	j := 0
	for i := 0; i < len(fmls); i++ {
		fml := fmls[i]
		if !lc.linearizeLit(fml) {
			fmls[j] = fml
			j++
		} else {
			log.Debugf("consumed %s", fml)
		}
	}
	fmls = fmls[:j]

	// Register elimination candidates the constraints never mentioned.
	varMark := make(map[*Term]bool)
	for _, v := range vars {
		varMark[v] = true
		if !v.IsArith() {
			continue
		}
		if _, ok := tids[v]; !ok {
			r, err := eval.Rat(v)
			if err != nil {
				r = new(big.Rat)
			}
			log.Debugf("registering %s := %s", v, r.RatString())
			tids[v] = mbo.AddVar(r, v.IsInt())
		}
	}

	// A variable escapes scope when it occurs under a residue literal or
	// under an engine term that is not itself an elimination candidate;
	// either way eliminating its engine variable would leave symbolic
	// occurrences behind.
	fmlsMark := make(map[*Term]bool)
	for _, f := range fmls {
		markRec(fmlsMark, f)
	}
	maxID := -1
	for _, id := range tids {
		if id > maxID {
			maxID = id
		}
	}
	index2expr := make([]*Term, maxID+1)
	for t, id := range tids {
		if !varMark[t] {
			markRec(fmlsMark, t)
		}
		index2expr[id] = t
	}

	var kept []*Term
	var projIDs []int
	for _, v := range vars {
		if v.IsArith() && !fmlsMark[v] {
			projIDs = append(projIDs, tids[v])
		} else {
			kept = append(kept, v)
		}
	}
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		var sb strings.Builder
		mbo.Display(&sb)
		log.Debugf("eliminating %d of %d variables\n%s", len(projIDs), len(vars), sb.String())
	}

	mbo.Project(projIDs)

	for _, r := range mbo.LiveRows() {
		lifted := p.liftRow(r, index2expr)
		if lifted == nil {
			continue
		}
		fmls = append(fmls, lifted)
		if Debug {
			v, err := eval.Bool(lifted)
			debugAssert(err == nil && v, "lifted literal %s is not true in the model", lifted)
		}
	}
	return kept, fmls
}

// ProjectOne eliminates a single variable, reporting whether it succeeded.
func (p *Projector) ProjectOne(mdl *Model, v *Term, lits []*Term) (bool, []*Term) {
	kept, out := p.Project(mdl, []*Term{v}, lits)
	return len(kept) == 0, out
}

// Solve is reserved for an equational solver pass; it currently performs
// no work and reports false.
func (p *Projector) Solve(mdl *Model, vars []*Term, lits []*Term) bool {
	return false
}

// liftRow turns a surviving engine row back into a literal. Rows with no
// variables are trivially true and dropped.
func (p *Projector) liftRow(r Row, index2expr []*Term) *Term {
	m := p.mgr
	one := big.NewRat(1, 1)
	minusOne := big.NewRat(-1, 1)
	if len(r.Vars) == 0 {
		return nil
	}

	// A lone negative coefficient reads better as a lower bound:
	// -a*x + c <= 0 becomes a*x >= c.
	if len(r.Vars) == 1 && r.Vars[0].Coeff.Sign() < 0 && r.Type != OpMod {
		v := r.Vars[0]
		t := index2expr[v.ID]
		if v.Coeff.Cmp(minusOne) != 0 {
			t = m.Mul(m.Num(new(big.Rat).Neg(v.Coeff), numSort(t)), t)
		}
		s := m.Num(r.Coeff, numSort(t))
		switch r.Type {
		case OpLt:
			return m.Gt(t, s)
		case OpLe:
			return m.Ge(t, s)
		default:
			return m.Eq(t, s)
		}
	}

	var ts []*Term
	var last *Term
	for _, v := range r.Vars {
		t := index2expr[v.ID]
		last = t
		if v.Coeff.Cmp(one) != 0 {
			t = m.Mul(m.Num(v.Coeff, numSort(last)), t)
		}
		ts = append(ts, t)
	}
	s := m.Num(new(big.Rat).Neg(r.Coeff), numSort(last))
	t := ts[0]
	if len(ts) > 1 {
		t = m.Add(ts...)
	}
	switch r.Type {
	case OpLt:
		return m.Lt(t, s)
	case OpLe:
		return m.Le(t, s)
	case OpEq:
		return m.Eq(t, s)
	default: // OpMod
		if r.Coeff.Sign() != 0 {
			t = m.Sub(t, s)
		}
		modulus := m.Num(new(big.Rat).SetInt(r.Mod), SortInt)
		return m.Eq(m.Mod(t, modulus), m.Int(0))
	}
}

// numSort returns the numeral sort matching a term.
func numSort(t *Term) Sort {
	if t.IsInt() {
		return SortInt
	}
	return SortReal
}

// markRec marks t and all of its sub-terms.
func markRec(mark map[*Term]bool, t *Term) {
	if mark[t] {
		return
	}
	mark[t] = true
	for _, a := range t.Args() {
		markRec(mark, a)
	}
}

// sortedTids returns the term-to-id entries ordered by id.
func sortedTids(tids map[*Term]int) []*Term {
	terms := make([]*Term, 0, len(tids))
	for t := range tids {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return tids[terms[i]] < tids[terms[j]] })
	return terms
}
