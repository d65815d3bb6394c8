package linarith

import (
	"math/big"
	"sort"
)

// linSum accumulates a linear combination sum(coeff_i * term_i) + c while
// walking a literal. Keys are the sub-terms the walk gave up decomposing;
// they are treated atomically as engine variables. Insertion order is
// kept so engine variable ids are allocated deterministically.
type linSum struct {
	terms map[*Term]*big.Rat
	order []*Term
	c     *big.Rat
}

func newLinSum() *linSum {
	return &linSum{terms: make(map[*Term]*big.Rat), c: new(big.Rat)}
}

// insertMul adds v to the coefficient of t, summing across duplicates.
func (s *linSum) insertMul(t *Term, v *big.Rat) {
	log.Debugf("adding variable %s * %s", v.RatString(), t)
	if w, ok := s.terms[t]; ok {
		w.Add(w, v)
		return
	}
	s.terms[t] = new(big.Rat).Set(v)
	s.order = append(s.order, t)
}

// linctx is the per-call state shared by the linearizer, the coefficient
// extractor, and the drivers: the term manager, the model evaluator, the
// engine instance, the term-to-engine-variable map, and the literal list
// that records guards committed at conditionals.
type linctx struct {
	mgr  *Manager
	eval *Evaluator
	mbo  *Engine
	tids map[*Term]int
	fmls *[]*Term
}

// linearizeLit lowers a literal into zero or more engine constraints.
// It reports true when the literal was consumed, false when it must stay
// in the output as symbolic residue. The caller guarantees the literal is
// true in the model.
func (lc *linctx) linearizeLit(lit *Term) bool {
	if Debug {
		v, err := lc.eval.Bool(lit)
		debugAssert(err == nil && v, "input literal %s is not true in the model", lit)
	}
	ts := newLinSum()
	mul := big.NewRat(1, 1)
	ty := OpLe

	isNot := lit.Kind() == KindNot
	if isNot {
		lit = lit.Arg(0)
		mul.Neg(mul)
	}

	var e1, e2 *Term
	switch {
	case lit.Kind() == KindLe || lit.Kind() == KindGe:
		if lit.Kind() == KindLe {
			e1, e2 = lit.Arg(0), lit.Arg(1)
		} else {
			e1, e2 = lit.Arg(1), lit.Arg(0)
		}
		lc.linearizeTerm(mul, e1, ts)
		lc.linearizeTerm(new(big.Rat).Neg(mul), e2, ts)
		if isNot {
			ty = OpLt
		} else {
			ty = OpLe
		}
	case lit.Kind() == KindLt || lit.Kind() == KindGt:
		if lit.Kind() == KindLt {
			e1, e2 = lit.Arg(0), lit.Arg(1)
		} else {
			e1, e2 = lit.Arg(1), lit.Arg(0)
		}
		lc.linearizeTerm(mul, e1, ts)
		lc.linearizeTerm(new(big.Rat).Neg(mul), e2, ts)
		if isNot {
			ty = OpLe
		} else {
			ty = OpLt
		}
	case lit.Kind() == KindEq && !isNot && lit.Arg(0).IsArith():
		lc.linearizeTerm(mul, lit.Arg(0), ts)
		lc.linearizeTerm(new(big.Rat).Neg(mul), lit.Arg(1), ts)
		ty = OpEq
	case lit.Kind() == KindEq && isNot && lit.Arg(0).IsArith():
		e1, e2 = lit.Arg(0), lit.Arg(1)
		r1, err1 := lc.eval.Rat(e1)
		r2, err2 := lc.eval.Rat(e2)
		if err1 != nil || err2 != nil {
			log.Debugf("skipping %s: arguments did not evaluate", lit)
			return false
		}
		debugAssert(r1.Cmp(r2) != 0, "disequality %s holds with equal values", lit)
		if r1.Cmp(r2) < 0 {
			e1, e2 = e2, e1
		}
		ty = OpLt
		lc.linearizeTerm(mul, e1, ts)
		lc.linearizeTerm(new(big.Rat).Neg(mul), e2, ts)
	case lit.Kind() == KindDistinct && !isNot && lit.Arg(0).IsArith():
		type argVal struct {
			arg *Term
			val *big.Rat
		}
		nums := make([]argVal, 0, lit.NumArgs())
		for _, a := range lit.Args() {
			v, err := lc.eval.Rat(a)
			if err != nil {
				log.Debugf("skipping %s: argument %s did not evaluate", lit, a)
				return false
			}
			nums = append(nums, argVal{arg: a, val: v})
		}
		sort.SliceStable(nums, func(i, j int) bool { return nums[i].val.Cmp(nums[j].val) < 0 })
		for i := 0; i+1 < len(nums); i++ {
			debugAssert(nums[i].val.Cmp(nums[i+1].val) < 0, "distinct %s holds with equal values", lit)
			if !lc.linearizeLit(lc.mgr.Lt(nums[i].arg, nums[i+1].arg)) {
				return false
			}
		}
		return true
	case lit.Kind() == KindDistinct && isNot && lit.Arg(0).IsArith():
		// find the first pair of arguments with equal value and linearize
		// that equality.
		values := make(map[string]*Term)
		foundEq := false
		for _, arg1 := range lit.Args() {
			v, err := lc.eval.Rat(arg1)
			if err != nil {
				log.Debugf("skipping %s: argument %s did not evaluate", lit, arg1)
				return false
			}
			if arg2, ok := values[v.RatString()]; ok {
				ty = OpEq
				lc.linearizeTerm(mul, arg1, ts)
				lc.linearizeTerm(new(big.Rat).Neg(mul), arg2, ts)
				foundEq = true
				break
			}
			values[v.RatString()] = arg1
		}
		debugAssert(foundEq, "negated distinct %s holds with no equal pair", lit)
		if !foundEq {
			return false
		}
	default:
		log.Debugf("skipping %s", lit)
		return false
	}

	coeffs := lc.extractCoefficients(ts)
	lc.mbo.AddConstraint(coeffs, ts.c, ty)
	return true
}

// linearizeTerm walks a numeric term, multiplying everything by mul into
// the accumulator. Conditionals follow the branch the model takes and
// commit the guard to the literal list; mod by a constant contributes the
// model value of the remainder and a divisibility side-constraint;
// anything else undecomposable lands in the accumulator as an atom.
func (lc *linctx) linearizeTerm(mul *big.Rat, t *Term, ts *linSum) {
	switch {
	case t.Kind() == KindMul && t.NumArgs() == 2:
		if k, ok := lc.isNumeral(t.Arg(0)); ok {
			lc.linearizeTerm(new(big.Rat).Mul(mul, k), t.Arg(1), ts)
			return
		}
		if k, ok := lc.isNumeral(t.Arg(1)); ok {
			lc.linearizeTerm(new(big.Rat).Mul(mul, k), t.Arg(0), ts)
			return
		}
		ts.insertMul(t, mul)
	case t.Kind() == KindAdd:
		for _, a := range t.Args() {
			lc.linearizeTerm(mul, a, ts)
		}
	case t.Kind() == KindSub:
		lc.linearizeTerm(mul, t.Arg(0), ts)
		lc.linearizeTerm(new(big.Rat).Neg(mul), t.Arg(1), ts)
	case t.Kind() == KindNeg:
		lc.linearizeTerm(new(big.Rat).Neg(mul), t.Arg(0), ts)
	case t.Kind() == KindNum:
		ts.c.Add(ts.c, new(big.Rat).Mul(mul, t.Num()))
	case t.Kind() == KindIte:
		g, err := lc.eval.Bool(t.Arg(0))
		if err != nil {
			log.Debugf("guard %s did not evaluate, keeping %s atomic", t.Arg(0), t)
			ts.insertMul(t, mul)
			return
		}
		log.Debugf("guard %s := %v", t.Arg(0), g)
		if g {
			lc.linearizeTerm(mul, t.Arg(1), ts)
			*lc.fmls = append(*lc.fmls, t.Arg(0))
		} else {
			*lc.fmls = append(*lc.fmls, lc.mgr.Not(t.Arg(0)))
			lc.linearizeTerm(mul, t.Arg(2), ts)
		}
	case t.Kind() == KindMod:
		k, ok := lc.isNumeral(t.Arg(1))
		if !ok || !k.IsInt() || k.Sign() == 0 {
			ts.insertMul(t, mul)
			return
		}
		r, err := lc.eval.Rat(t)
		if err != nil {
			log.Debugf("%s did not evaluate, keeping it atomic", t)
			ts.insertMul(t, mul)
			return
		}
		ts.c.Add(ts.c, new(big.Rat).Mul(mul, r))
		// the argument minus the remainder is divisible by the modulus
		sub := newLinSum()
		sub.c.Sub(sub.c, r)
		lc.linearizeTerm(big.NewRat(1, 1), t.Arg(0), sub)
		coeffs := lc.extractCoefficients(sub)
		lc.mbo.AddDivides(coeffs, sub.c, new(big.Int).Abs(k.Num()))
	default:
		ts.insertMul(t, mul)
	}
}

// isNumeral recognizes a statically constant term: numerals, unary minus,
// n-ary products and sums, and binary difference over constants.
func (lc *linctx) isNumeral(t *Term) (*big.Rat, bool) {
	switch t.Kind() {
	case KindNum:
		return new(big.Rat).Set(t.Num()), true
	case KindNeg:
		if r, ok := lc.isNumeral(t.Arg(0)); ok {
			return r.Neg(r), true
		}
	case KindMul:
		r := big.NewRat(1, 1)
		for _, a := range t.Args() {
			r1, ok := lc.isNumeral(a)
			if !ok {
				return nil, false
			}
			r.Mul(r, r1)
		}
		return r, true
	case KindAdd:
		r := new(big.Rat)
		for _, a := range t.Args() {
			r1, ok := lc.isNumeral(a)
			if !ok {
				return nil, false
			}
			r.Add(r, r1)
		}
		return r, true
	case KindSub:
		r1, ok1 := lc.isNumeral(t.Arg(0))
		r2, ok2 := lc.isNumeral(t.Arg(1))
		if ok1 && ok2 {
			return r1.Sub(r1, r2), true
		}
	}
	return nil, false
}

// extractCoefficients materializes the accumulator as engine row entries,
// registering an engine variable for each term seen for the first time.
// Model completion is enabled so every registered variable gets a
// concrete seed even when the model does not mention it. Zero
// coefficients are dropped.
func (lc *linctx) extractCoefficients(ts *linSum) []RowVar {
	lc.eval.SetModelCompletion(true)
	var coeffs []RowVar
	for _, t := range ts.order {
		v := ts.terms[t]
		id, ok := lc.tids[t]
		if !ok {
			val, err := lc.eval.Rat(t)
			if err != nil {
				log.Debugf("term %s did not evaluate, seeding zero", t)
				val = new(big.Rat)
			}
			id = lc.mbo.AddVar(val, t.IsInt())
			lc.tids[t] = id
		}
		if v.Sign() == 0 {
			log.Debugf("term %s has coefficient 0", t)
			continue
		}
		coeffs = append(coeffs, RowVar{ID: id, Coeff: new(big.Rat).Set(v)})
	}
	return coeffs
}
