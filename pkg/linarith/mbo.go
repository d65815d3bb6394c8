package linarith

import (
	"fmt"
	"io"
	"math/big"
	"sort"
)

// IneqType classifies an engine row.
type IneqType int

const (
	// OpLe is a non-strict inequality: sum + c <= 0.
	OpLe IneqType = iota
	// OpLt is a strict inequality: sum + c < 0.
	OpLt
	// OpEq is an equation: sum + c = 0.
	OpEq
	// OpMod is a divisibility constraint: sum + c = 0 (mod m).
	OpMod
)

// String returns the relation symbol of the row type.
func (t IneqType) String() string {
	switch t {
	case OpLe:
		return "<="
	case OpLt:
		return "<"
	case OpEq:
		return "="
	case OpMod:
		return "mod"
	default:
		return "unknown"
	}
}

// RowVar is one (variable id, coefficient) entry of a row.
type RowVar struct {
	ID    int
	Coeff *big.Rat
}

// Row is a snapshot of a surviving engine row: the constraint
// sum(Coeff_i * x_i) + Coeff  Type  0, with modulus Mod for OpMod rows.
// Vars is sorted by id and carries no zero coefficients.
type Row struct {
	Vars  []RowVar
	Coeff *big.Rat
	Type  IneqType
	Mod   *big.Int
}

// InfEps is the result of Maximize: plus infinity, a rational, or a
// rational with an infinitesimal offset. A negative infinitesimal sign
// encodes a supremum that is approached but not attained.
type InfEps struct {
	inf bool
	rat *big.Rat
	eps int
}

// PlusInfinity returns the unbounded value.
func PlusInfinity() InfEps { return InfEps{inf: true} }

// Finite returns an attained rational value.
func Finite(v *big.Rat) InfEps { return InfEps{rat: new(big.Rat).Set(v)} }

// FiniteEps returns a rational value with an infinitesimal offset of the
// given sign.
func FiniteEps(v *big.Rat, epsSign int) InfEps {
	return InfEps{rat: new(big.Rat).Set(v), eps: epsSign}
}

// IsFinite reports whether the value is not plus infinity.
func (v InfEps) IsFinite() bool { return !v.inf }

// Rational returns the rational part (zero for plus infinity).
func (v InfEps) Rational() *big.Rat {
	if v.rat == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(v.rat)
}

// InfinitesimalSign returns the sign of the infinitesimal offset.
func (v InfEps) InfinitesimalSign() int { return v.eps }

// String renders the value for diagnostics.
func (v InfEps) String() string {
	if v.inf {
		return "+oo"
	}
	if v.rat == nil {
		return "0"
	}
	switch {
	case v.eps < 0:
		return v.rat.RatString() + " - eps"
	case v.eps > 0:
		return v.rat.RatString() + " + eps"
	default:
		return v.rat.RatString()
	}
}

// row is the engine's mutable row representation.
type row struct {
	vars  []RowVar
	coeff *big.Rat
	ty    IneqType
	mod   *big.Int
	alive bool
}

// Engine is the model-based optimization engine: a store of numeric
// variables seeded with model values and of linear rows over them, with
// model-guided projection and exact linear maximization.
//
// Key behaviors:
//   - Equality rows act as substitutions during projection; solving an
//     equality for an integer variable with a non-unit coefficient emits a
//     divisibility row so integrality is not lost.
//   - Inequality elimination keeps the single bound row tightest at the
//     seeded values and resolves all other occurrences against it, so one
//     residue survives per eliminated variable instead of the full
//     Fourier-Motzkin quadratic fan-out.
//   - Integer variables constrained by divisibility rows are rewritten
//     through their seeded residue class before inequality elimination.
//   - Maximize runs exact (both-sided) Fourier-Motzkin onto a fresh
//     objective variable and back-substitutes a witness point.
//
// An Engine is single-use and single-threaded: create one per projection
// or optimization call.
type Engine struct {
	values     []*big.Rat
	isInt      []bool
	eliminated []bool
	rows       []*row
	objVars    []RowVar
	objCoeff   *big.Rat
	hasObj     bool
}

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{objCoeff: new(big.Rat)}
}

// AddVar registers a variable with a concrete seed value and returns its id.
func (e *Engine) AddVar(value *big.Rat, isInt bool) int {
	id := len(e.values)
	e.values = append(e.values, new(big.Rat).Set(value))
	e.isInt = append(e.isInt, isInt)
	e.eliminated = append(e.eliminated, false)
	return id
}

// Value returns the current value of a variable. After Maximize it holds
// the witness value when the optimum is attained, the seed otherwise.
func (e *Engine) Value(id int) *big.Rat {
	return new(big.Rat).Set(e.values[id])
}

// AddConstraint adds the row sum(coeffs) + c  ty  0.
func (e *Engine) AddConstraint(coeffs []RowVar, c *big.Rat, ty IneqType) {
	r := &row{vars: copyVars(coeffs), coeff: new(big.Rat).Set(c), ty: ty, alive: true}
	r.vars = mergeVars(r.vars)
	e.normalize(r)
	e.rows = append(e.rows, r)
	log.Debugf("add constraint: %s", e.rowString(r))
}

// AddDivides adds the row sum(coeffs) + c = 0 (mod m).
func (e *Engine) AddDivides(coeffs []RowVar, c *big.Rat, m *big.Int) {
	r := &row{vars: copyVars(coeffs), coeff: new(big.Rat).Set(c), ty: OpMod,
		mod: new(big.Int).Abs(m), alive: true}
	r.vars = mergeVars(r.vars)
	e.normalize(r)
	e.rows = append(e.rows, r)
	log.Debugf("add divides: %s", e.rowString(r))
}

// SetObjective records the objective sum(coeffs) + c to maximize.
func (e *Engine) SetObjective(coeffs []RowVar, c *big.Rat) {
	e.objVars = mergeVars(copyVars(coeffs))
	e.objCoeff = new(big.Rat).Set(c)
	e.hasObj = true
}

// LiveRows returns snapshots of the rows still alive.
func (e *Engine) LiveRows() []Row {
	var out []Row
	for _, r := range e.rows {
		if !r.alive {
			continue
		}
		snap := Row{Vars: copyVars(r.vars), Coeff: new(big.Rat).Set(r.coeff), Type: r.ty}
		if r.mod != nil {
			snap.Mod = new(big.Int).Set(r.mod)
		}
		out = append(out, snap)
	}
	return out
}

// Display writes the variable seeds and live rows to w.
func (e *Engine) Display(w io.Writer) {
	for id, v := range e.values {
		kind := "real"
		if e.isInt[id] {
			kind = "int"
		}
		status := ""
		if e.eliminated[id] {
			status = " (eliminated)"
		}
		fmt.Fprintf(w, "v%d := %s [%s]%s\n", id, v.RatString(), kind, status)
	}
	for _, r := range e.rows {
		if r.alive {
			fmt.Fprintf(w, "%s\n", e.rowString(r))
		}
	}
}

func (e *Engine) rowString(r *row) string {
	s := ""
	for i, rv := range r.vars {
		if i > 0 {
			s += " + "
		}
		s += rv.Coeff.RatString() + "*v" + fmt.Sprint(rv.ID)
	}
	if len(r.vars) == 0 {
		s = "0"
	}
	if r.ty == OpMod {
		return fmt.Sprintf("%s + %s = 0 (mod %s)", s, r.coeff.RatString(), r.mod.String())
	}
	return fmt.Sprintf("%s + %s %s 0", s, r.coeff.RatString(), r.ty)
}

// Project eliminates the listed variable ids in order.
func (e *Engine) Project(ids []int) {
	for _, id := range ids {
		e.eliminate(id)
	}
}

// eliminate removes one variable from all live rows.
func (e *Engine) eliminate(x int) {
	occ := e.occurrences(x)
	if len(occ) == 0 {
		e.eliminated[x] = true
		return
	}

	// An equality row pins the variable: use it as a substitution.
	for _, r := range occ {
		if r.ty == OpEq {
			e.solveEq(r, x, occ)
			e.eliminated[x] = true
			e.checkEliminated(x)
			return
		}
	}

	// Divisibility rows force the variable into its seeded residue class;
	// rewriting through it strips the variable from every mod row.
	hasMod := false
	for _, r := range occ {
		if r.ty == OpMod {
			hasMod = true
			break
		}
	}
	if hasMod {
		xp := e.residueRewrite(x, occ)
		e.eliminated[x] = true
		e.checkEliminated(x)
		e.eliminate(xp)
		return
	}

	e.eliminateBounds(x, occ)
	e.eliminated[x] = true
	e.checkEliminated(x)
}

// occurrences returns the live rows with a nonzero coefficient on x.
func (e *Engine) occurrences(x int) []*row {
	var occ []*row
	for _, r := range e.rows {
		if r.alive && coeffOf(r, x) != nil {
			occ = append(occ, r)
		}
	}
	return occ
}

// solveEq substitutes the equality row pivot into every other occurrence
// of x and kills the pivot. For an integer variable with a non-unit pivot
// coefficient the substitution is only integral on a residue class, which
// is recorded as a divisibility row over the remaining entries.
func (e *Engine) solveEq(pivot *row, x int, occ []*row) {
	a := coeffOf(pivot, x)
	if e.isInt[x] && a.IsInt() {
		abs := new(big.Int).Abs(a.Num())
		if abs.Cmp(big.NewInt(1)) != 0 {
			rest := make([]RowVar, 0, len(pivot.vars)-1)
			for _, rv := range pivot.vars {
				if rv.ID != x {
					rest = append(rest, RowVar{ID: rv.ID, Coeff: new(big.Rat).Set(rv.Coeff)})
				}
			}
			e.AddDivides(rest, pivot.coeff, abs)
		}
	}
	for _, r := range occ {
		if r == pivot {
			continue
		}
		b := coeffOf(r, x)
		mul := new(big.Rat).Neg(new(big.Rat).Quo(b, a))
		e.addScaled(r, mul, pivot)
		e.normalize(r)
	}
	pivot.alive = false
}

// residueRewrite replaces x by L*x' + r in every occurrence, where L is
// the least common multiple of the moduli of the mod rows mentioning x
// and r is the seeded value of x reduced mod L. Mod rows lose x entirely;
// inequality rows carry x' instead. Returns the id of x'.
func (e *Engine) residueRewrite(x int, occ []*row) int {
	debugAssert(e.isInt[x] || e.values[x].IsInt(), "mod rows over non-integral v%d", x)
	l := big.NewInt(1)
	for _, r := range occ {
		if r.ty != OpMod {
			continue
		}
		a := coeffOf(r, x)
		m := new(big.Int).Mul(r.mod, a.Denom())
		l = lcmInt(l, m)
	}
	vx := e.values[x]
	res := new(big.Int).Mod(vx.Num(), l)
	resRat := new(big.Rat).SetInt(res)
	quo := new(big.Rat).Sub(vx, resRat)
	quo.Quo(quo, new(big.Rat).SetInt(l))
	xp := e.AddVar(quo, true)
	lRat := new(big.Rat).SetInt(l)

	for _, r := range occ {
		a := new(big.Rat).Set(coeffOf(r, x))
		r.vars = dropVar(r.vars, x)
		r.coeff.Add(r.coeff, new(big.Rat).Mul(a, resRat))
		if r.ty != OpMod {
			r.vars = mergeVars(append(r.vars, RowVar{ID: xp, Coeff: new(big.Rat).Mul(a, lRat)}))
		}
		e.normalize(r)
	}
	return xp
}

// eliminateBounds removes x from a set of pure inequality rows by
// resolving every occurrence against the bound row tightest at the seeded
// values. With bounds on one side only, the rows are simply dropped.
func (e *Engine) eliminateBounds(x int, occ []*row) {
	lowers, uppers := 0, 0
	for _, r := range occ {
		if coeffOf(r, x).Sign() > 0 {
			uppers++
		} else {
			lowers++
		}
	}
	if lowers == 0 || uppers == 0 {
		for _, r := range occ {
			r.alive = false
		}
		return
	}

	wantUpper := uppers <= lowers
	pivot := e.tightestBound(x, occ, wantUpper)
	a := coeffOf(pivot, x)
	for _, r := range occ {
		if r == pivot {
			continue
		}
		b := coeffOf(r, x)
		ratio := new(big.Rat).Quo(b, a)
		sameSide := ratio.Sign() > 0
		var ty IneqType
		if sameSide {
			// Sound under the tie-break in tightestBound: a strict row
			// never shares the pivot's bound value unless the pivot is
			// strict too.
			if r.ty == OpLt && pivot.ty == OpLe {
				ty = OpLt
			} else {
				ty = OpLe
			}
		} else {
			if r.ty == OpLt || pivot.ty == OpLt {
				ty = OpLt
			} else {
				ty = OpLe
			}
		}
		e.addScaled(r, new(big.Rat).Neg(ratio), pivot)
		r.ty = ty
		e.normalize(r)
	}
	pivot.alive = false
}

// tightestBound picks the row whose bound on x is tightest at the seeded
// values: the least upper bound or the greatest lower bound. Among rows
// with the same bound value a strict row wins.
func (e *Engine) tightestBound(x int, occ []*row, wantUpper bool) *row {
	var best *row
	var bestVal *big.Rat
	for _, r := range occ {
		a := coeffOf(r, x)
		if (a.Sign() > 0) != wantUpper {
			continue
		}
		// a*x + rest <= 0 at the seed: bound = x - value/a.
		val := e.rowValue(r)
		val.Quo(val, a)
		bound := new(big.Rat).Sub(e.values[x], val)
		if best == nil {
			best, bestVal = r, bound
			continue
		}
		cmp := bound.Cmp(bestVal)
		better := false
		if wantUpper {
			better = cmp < 0
		} else {
			better = cmp > 0
		}
		if better || (cmp == 0 && r.ty == OpLt && best.ty == OpLe) {
			best, bestVal = r, bound
		}
	}
	return best
}

// rowValue evaluates the row's left side at the current variable values.
func (e *Engine) rowValue(r *row) *big.Rat {
	sum := new(big.Rat).Set(r.coeff)
	for _, rv := range r.vars {
		sum.Add(sum, new(big.Rat).Mul(rv.Coeff, e.values[rv.ID]))
	}
	return sum
}

// checkEliminated asserts that no live row still references x.
func (e *Engine) checkEliminated(x int) {
	if !Debug {
		return
	}
	for _, r := range e.rows {
		debugAssert(!r.alive || coeffOf(r, x) == nil,
			"row still references eliminated v%d", x)
	}
}

// addScaled adds mul*src into dst (coefficients and constant).
func (e *Engine) addScaled(dst *row, mul *big.Rat, src *row) {
	for _, rv := range src.vars {
		dst.vars = append(dst.vars, RowVar{ID: rv.ID, Coeff: new(big.Rat).Mul(mul, rv.Coeff)})
	}
	dst.vars = mergeVars(dst.vars)
	dst.coeff.Add(dst.coeff, new(big.Rat).Mul(mul, src.coeff))
}

// normalize scales a row to integer coefficients, divides out common
// factors, and gives equations and mod rows a positive leading
// coefficient. Inequalities are only scaled by positive factors.
func (e *Engine) normalize(r *row) {
	if len(r.vars) == 0 {
		return
	}
	den := big.NewInt(1)
	for _, rv := range r.vars {
		den = lcmInt(den, rv.Coeff.Denom())
	}
	den = lcmInt(den, r.coeff.Denom())
	if den.Cmp(big.NewInt(1)) != 0 {
		scale := new(big.Rat).SetInt(den)
		for _, rv := range r.vars {
			rv.Coeff.Mul(rv.Coeff, scale)
		}
		r.coeff.Mul(r.coeff, scale)
		if r.ty == OpMod {
			r.mod = new(big.Int).Mul(r.mod, den)
		}
	}
	g := new(big.Int)
	for _, rv := range r.vars {
		g.GCD(nil, nil, g, new(big.Int).Abs(rv.Coeff.Num()))
	}
	if r.coeff.Sign() != 0 {
		g.GCD(nil, nil, g, new(big.Int).Abs(r.coeff.Num()))
	}
	if r.ty == OpMod {
		g.GCD(nil, nil, g, r.mod)
	}
	if g.Cmp(big.NewInt(1)) > 0 {
		scale := new(big.Rat).SetFrac(big.NewInt(1), g)
		for _, rv := range r.vars {
			rv.Coeff.Mul(rv.Coeff, scale)
		}
		r.coeff.Mul(r.coeff, scale)
		if r.ty == OpMod {
			r.mod = new(big.Int).Quo(r.mod, g)
		}
	}
	if (r.ty == OpEq || r.ty == OpMod) && r.vars[0].Coeff.Sign() < 0 {
		for _, rv := range r.vars {
			rv.Coeff.Neg(rv.Coeff)
		}
		r.coeff.Neg(r.coeff)
	}
}

// coeffOf returns the coefficient of x in r, or nil when absent.
func coeffOf(r *row, x int) *big.Rat {
	for _, rv := range r.vars {
		if rv.ID == x {
			return rv.Coeff
		}
	}
	return nil
}

// dropVar removes the entry for x.
func dropVar(vars []RowVar, x int) []RowVar {
	out := vars[:0]
	for _, rv := range vars {
		if rv.ID != x {
			out = append(out, rv)
		}
	}
	return out
}

// mergeVars sorts entries by id, sums duplicates, and drops zeros.
func mergeVars(vars []RowVar) []RowVar {
	sort.Slice(vars, func(i, j int) bool { return vars[i].ID < vars[j].ID })
	out := vars[:0]
	for _, rv := range vars {
		if len(out) > 0 && out[len(out)-1].ID == rv.ID {
			out[len(out)-1].Coeff.Add(out[len(out)-1].Coeff, rv.Coeff)
			continue
		}
		out = append(out, rv)
	}
	final := out[:0]
	for _, rv := range out {
		if rv.Coeff.Sign() != 0 {
			final = append(final, rv)
		}
	}
	return final
}

func copyVars(vars []RowVar) []RowVar {
	out := make([]RowVar, len(vars))
	for i, rv := range vars {
		out[i] = RowVar{ID: rv.ID, Coeff: new(big.Rat).Set(rv.Coeff)}
	}
	return out
}

// lcmInt returns the least common multiple of two positive integers.
func lcmInt(a, b *big.Int) *big.Int {
	g := new(big.Int).GCD(nil, nil, a, b)
	out := new(big.Int).Quo(a, g)
	return out.Mul(out, b)
}
