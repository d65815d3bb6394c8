package linarith

import (
	"math/big"
	"sort"
)

// elimRecord remembers the rows that mentioned a variable when it was
// eliminated during Maximize, for witness back-substitution.
type elimRecord struct {
	id   int
	rows []*row
}

// Maximize computes the supremum of the recorded objective subject to the
// live inequality and equality rows. It returns plus infinity when the
// objective is unbounded, the attained rational otherwise, with a
// negative infinitesimal sign when the supremum is strict.
//
// The engine works on a copy of its rows: an auxiliary variable is
// equated with the objective, every other variable is eliminated by exact
// Fourier-Motzkin resolution, and the surviving bounds on the auxiliary
// variable are scanned. Divisibility rows do not bound a real objective
// and are ignored here.
//
// When the supremum is attained, variable values are moved to a witness
// point achieving it, so Value reflects the optimum afterwards. Otherwise
// the seeds are left in place.
func (e *Engine) Maximize() InfEps {
	objSeed := new(big.Rat).Set(e.objCoeff)
	for _, rv := range e.objVars {
		objSeed.Add(objSeed, new(big.Rat).Mul(rv.Coeff, e.values[rv.ID]))
	}
	z := e.AddVar(objSeed, false)

	work := make([]*row, 0, len(e.rows)+1)
	for _, r := range e.rows {
		if !r.alive || r.ty == OpMod {
			continue
		}
		work = append(work, cloneRow(r))
	}
	objRow := &row{vars: copyVars(e.objVars), coeff: new(big.Rat).Set(e.objCoeff), ty: OpEq, alive: true}
	objRow.vars = mergeVars(append(objRow.vars, RowVar{ID: z, Coeff: big.NewRat(-1, 1)}))
	work = append(work, objRow)

	var records []elimRecord
	for _, x := range occurringIDs(work) {
		if x == z {
			continue
		}
		var occ, rest []*row
		for _, r := range work {
			if coeffOf(r, x) != nil {
				occ = append(occ, r)
			} else {
				rest = append(rest, r)
			}
		}
		work = append(rest, resolveExact(x, occ)...)
		records = append(records, elimRecord{id: x, rows: occ})
	}

	value, attained := scanObjectiveBounds(work, z)
	if value.inf {
		return value
	}
	if attained {
		e.values[z] = value.Rational()
		e.backSubstitute(records)
	}
	return value
}

// occurringIDs returns the variable ids referenced by the rows, ascending.
func occurringIDs(rows []*row) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range rows {
		for _, rv := range r.vars {
			if !seen[rv.ID] {
				seen[rv.ID] = true
				ids = append(ids, rv.ID)
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// resolveExact eliminates x from the given rows by full Fourier-Motzkin:
// an equality row substitutes into the rest, otherwise every lower/upper
// pair is resolved. The returned rows no longer mention x.
func resolveExact(x int, occ []*row) []*row {
	for _, pivot := range occ {
		if pivot.ty != OpEq {
			continue
		}
		a := coeffOf(pivot, x)
		var out []*row
		for _, r := range occ {
			if r == pivot {
				continue
			}
			b := coeffOf(r, x)
			mul := new(big.Rat).Neg(new(big.Rat).Quo(b, a))
			nr := cloneRow(r)
			for _, rv := range pivot.vars {
				nr.vars = append(nr.vars, RowVar{ID: rv.ID, Coeff: new(big.Rat).Mul(mul, rv.Coeff)})
			}
			nr.vars = mergeVars(nr.vars)
			nr.coeff.Add(nr.coeff, new(big.Rat).Mul(mul, pivot.coeff))
			out = append(out, nr)
		}
		return out
	}

	var lowers, uppers []*row
	for _, r := range occ {
		if coeffOf(r, x).Sign() > 0 {
			uppers = append(uppers, r)
		} else {
			lowers = append(lowers, r)
		}
	}
	var out []*row
	for _, lo := range lowers {
		al := coeffOf(lo, x)
		for _, up := range uppers {
			au := coeffOf(up, x)
			mul := new(big.Rat).Neg(new(big.Rat).Quo(au, al))
			nr := cloneRow(up)
			for _, rv := range lo.vars {
				nr.vars = append(nr.vars, RowVar{ID: rv.ID, Coeff: new(big.Rat).Mul(mul, rv.Coeff)})
			}
			nr.vars = mergeVars(nr.vars)
			nr.coeff.Add(nr.coeff, new(big.Rat).Mul(mul, lo.coeff))
			if lo.ty == OpLt || up.ty == OpLt {
				nr.ty = OpLt
			} else {
				nr.ty = OpLe
			}
			out = append(out, nr)
		}
	}
	return out
}

// scanObjectiveBounds reads the least upper bound on z from rows that
// mention only z. The second result reports whether the bound is attained.
func scanObjectiveBounds(rows []*row, z int) (InfEps, bool) {
	var ub *big.Rat
	strict := false
	for _, r := range rows {
		a := coeffOf(r, z)
		if a == nil {
			continue
		}
		bound := new(big.Rat).Quo(r.coeff, a)
		bound.Neg(bound)
		isUpper := a.Sign() > 0 || r.ty == OpEq
		if !isUpper {
			continue
		}
		if ub == nil || bound.Cmp(ub) < 0 {
			ub = bound
			strict = r.ty == OpLt
		} else if bound.Cmp(ub) == 0 && r.ty == OpLt {
			strict = true
		}
	}
	if ub == nil {
		return PlusInfinity(), false
	}
	if strict {
		return FiniteEps(ub, -1), false
	}
	return Finite(ub), true
}

// backSubstitute assigns witness values to the variables eliminated by
// Maximize, in reverse elimination order. At each step the recorded rows
// mention only the variable itself, the objective variable, and variables
// eliminated after it, all of which are already assigned, so its feasible
// interval is concrete; any point inside it works.
func (e *Engine) backSubstitute(records []elimRecord) {
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		var lb, ub *big.Rat
		lbStrict, ubStrict := false, false
		pinned := false
		for _, r := range rec.rows {
			a := coeffOf(r, rec.id)
			rest := new(big.Rat).Set(r.coeff)
			for _, rv := range r.vars {
				if rv.ID != rec.id {
					rest.Add(rest, new(big.Rat).Mul(rv.Coeff, e.values[rv.ID]))
				}
			}
			// a*x + rest (ty) 0  =>  bound = -rest/a
			bound := new(big.Rat).Quo(rest, a)
			bound.Neg(bound)
			if r.ty == OpEq {
				e.values[rec.id] = bound
				pinned = true
				break
			}
			if a.Sign() > 0 {
				if ub == nil || bound.Cmp(ub) < 0 {
					ub, ubStrict = bound, r.ty == OpLt
				} else if bound.Cmp(ub) == 0 && r.ty == OpLt {
					ubStrict = true
				}
			} else {
				if lb == nil || bound.Cmp(lb) > 0 {
					lb, lbStrict = bound, r.ty == OpLt
				} else if bound.Cmp(lb) == 0 && r.ty == OpLt {
					lbStrict = true
				}
			}
		}
		if pinned {
			continue
		}
		switch {
		case lb == nil && ub == nil:
			// unconstrained: keep the seed
		case lb == nil:
			v := new(big.Rat).Set(ub)
			if ubStrict {
				v.Sub(v, big.NewRat(1, 1))
			}
			e.values[rec.id] = v
		case ub == nil:
			v := new(big.Rat).Set(lb)
			if lbStrict {
				v.Add(v, big.NewRat(1, 1))
			}
			e.values[rec.id] = v
		default:
			cmp := lb.Cmp(ub)
			debugAssert(cmp < 0 || (cmp == 0 && !lbStrict && !ubStrict),
				"empty interval for v%d during back-substitution", rec.id)
			if cmp == 0 {
				e.values[rec.id] = new(big.Rat).Set(lb)
			} else {
				mid := new(big.Rat).Add(lb, ub)
				mid.Quo(mid, big.NewRat(2, 1))
				e.values[rec.id] = mid
			}
		}
	}
}

func cloneRow(r *row) *row {
	nr := &row{vars: copyVars(r.vars), coeff: new(big.Rat).Set(r.coeff), ty: r.ty, alive: true}
	if r.mod != nil {
		nr.mod = new(big.Int).Set(r.mod)
	}
	return nr
}
