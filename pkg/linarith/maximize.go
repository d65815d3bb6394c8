package linarith

import (
	"math/big"
)

// Maximize computes the supremum of the real-sorted objective t under the
// conjunction lits, which must be true in mdl. The input slice is not
// mutated; literals that do not linearize are ignored for optimization.
//
// On return, mdl is rewritten so that every uninterpreted constant the
// encoding touched takes its value at the optimum (when one is attained),
// and two witness bounds are produced:
//
//	ge — a non-strict bound on t that currently holds ("at least this is
//	     attainable");
//	gt — the strict push an optimization loop asserts to demand a better
//	     value next round; the false term when the objective is unbounded.
func (p *Projector) Maximize(lits []*Term, mdl *Model, t *Term) (InfEps, *Term, *Term) {
	debugAssert(t.IsReal(), "objective %s is not real sorted", t)
	m := p.mgr
	fmls := append([]*Term(nil), lits...)
	mbo := NewEngine()
	eval := NewEvaluator(mdl)
	tids := make(map[*Term]int)
	lc := &linctx{mgr: m, eval: eval, mbo: mbo, tids: tids, fmls: &fmls}

	// encode the objective
	ts := newLinSum()
	lc.linearizeTerm(big.NewRat(1, 1), t, ts)
	coeffs := lc.extractCoefficients(ts)
	mbo.SetObjective(coeffs, ts.c)

	if Debug {
		debugAssert(p.validateModel(eval, lits), "input literals are not all true in the model")
	}

	// encode the constraints; guards appended during linearization are
	// picked up by the same loop, residue is simply not encoded
	for i := 0; i < len(fmls); i++ {
		lc.linearizeLit(fmls[i])
	}

	value := mbo.Maximize()
	log.Debugf("maximize: %s", value)

	// move the model to the engine's (possibly optimized) values for
	// every uninterpreted constant that became an engine variable
	for _, e := range sortedTids(tids) {
		if e.Kind() == KindConst && e.IsArith() {
			mdl.SetRat(e.Name(), mbo.Value(tids[e]))
		} else {
			log.Debugf("omitting model update for non-constant %s", e)
		}
	}

	val := m.Num(value.Rational(), SortReal)
	tv, err := eval.Rat(t)
	if err != nil {
		tv = new(big.Rat)
	}
	tval := m.Num(tv, SortReal)

	var ge, gt *Term
	switch {
	case !value.IsFinite():
		ge = m.Ge(t, tval)
		gt = m.False()
	case value.InfinitesimalSign() < 0:
		ge = m.Ge(t, tval)
		gt = m.Ge(t, val)
	default:
		ge = m.Ge(t, val)
		gt = m.Gt(t, val)
	}

	if Debug {
		debugAssert(p.validateModel(eval, lits), "updated model no longer satisfies the input literals")
	}
	return value, ge, gt
}

// validateModel reports whether every literal evaluates to true under the
// evaluator's model, tracing the ones that do not.
func (p *Projector) validateModel(eval *Evaluator, fmls []*Term) bool {
	valid := true
	for _, f := range fmls {
		v, err := eval.Bool(f)
		if err != nil || !v {
			valid = false
			log.Debugf("literal %s does not hold in the model", f)
		}
	}
	return valid
}
