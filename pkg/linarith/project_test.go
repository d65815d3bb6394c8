package linarith

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// checkProjection verifies the projection post-conditions: every output
// literal is true in the model, and no output literal mentions a variable
// that was eliminated.
func checkProjection(t *testing.T, mdl *Model, inVars, kept, out []*Term) {
	t.Helper()
	eval := NewEvaluator(mdl)
	eval.SetModelCompletion(true)
	for _, lit := range out {
		v, err := eval.Bool(lit)
		require.NoError(t, err, "output literal %s", lit)
		require.True(t, v, "output literal %s is false in the model", lit)
	}
	keptSet := make(map[*Term]bool)
	for _, v := range kept {
		keptSet[v] = true
	}
	used := make(map[*Term]bool)
	for _, lit := range out {
		markRec(used, lit)
	}
	for _, v := range inVars {
		if !keptSet[v] {
			require.False(t, used[v], "eliminated variable %s appears in the output", v)
		}
	}
}

func withDebug(t *testing.T) {
	t.Helper()
	Debug = true
	t.Cleanup(func() { Debug = false })
}

func TestProjectTwoBounds(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 4)
	x := m.IntConst("x")

	lits := []*Term{m.Le(x, m.Int(5)), m.Ge(x, m.Int(3))}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Empty(t, out)
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectSharedVariable(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", 2)
	x, y := m.IntConst("x"), m.IntConst("y")

	lits := []*Term{m.Le(m.Add(x, y), m.Int(10)), m.Ge(x, y)}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Len(t, out, 1)
	require.Equal(t, "(y <= 5)", out[0].String())
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectIteGuard(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 2)
	mdl.SetInt("y", 5)
	x, y := m.IntConst("x"), m.IntConst("y")

	lits := []*Term{m.Le(m.Ite(m.Gt(y, m.Int(0)), x, m.Add(x, m.Int(1))), m.Int(7))}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Len(t, out, 1)
	require.Equal(t, "(y > 0)", out[0].String())
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectIntegerEquality(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", 6)
	x, y := m.IntConst("x"), m.IntConst("y")

	lits := []*Term{m.Eq(m.Mul(m.Int(2), x), y), m.Ge(x, m.Int(0))}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Len(t, out, 2)
	require.Equal(t, "(y >= 0)", out[0].String())
	require.Equal(t, "((y mod 2) = 0)", out[1].String())
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectDistinct(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 1)
	mdl.SetInt("y", 2)
	mdl.SetInt("z", 3)
	x, y, z := m.IntConst("x"), m.IntConst("y"), m.IntConst("z")

	lits := []*Term{m.Distinct(x, y, z)}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Len(t, out, 1)
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectResidueUntouched(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 4)
	mdl.SetBool("p", true)
	x := m.IntConst("x")
	pred := m.BoolConst("p")

	lits := []*Term{pred, m.Le(x, m.Int(5))}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Empty(t, kept)
	require.Contains(t, out, pred)
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectScopeEscapeKeepsVariable(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 1)
	mdl.SetInt("y", 2)
	x, y := m.IntConst("x"), m.IntConst("y")

	// x*y is nonlinear: it becomes an atomic engine term mentioning x, so
	// x must survive the projection.
	lits := []*Term{m.Le(m.Mul(x, y), m.Int(5))}
	kept, out := p.Project(mdl, []*Term{x}, lits)

	require.Equal(t, []*Term{x}, kept)
	checkProjection(t, mdl, []*Term{x}, kept, out)
}

func TestProjectNonArithVarsPassThrough(t *testing.T) {
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetBool("p", true)
	pred := m.BoolConst("p")

	lits := []*Term{pred}
	kept, out := p.Project(mdl, []*Term{pred}, lits)
	require.Equal(t, []*Term{pred}, kept)
	require.Equal(t, []*Term{pred}, out)
}

func TestProjectOne(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 4)
	x := m.IntConst("x")

	ok, out := p.ProjectOne(mdl, x, []*Term{m.Le(x, m.Int(5))})
	require.True(t, ok)
	require.Empty(t, out)

	// a scope-escaping variable is reported as not eliminated
	mdl.SetInt("y", 1)
	y := m.IntConst("y")
	ok, _ = p.ProjectOne(mdl, x, []*Term{m.Le(m.Mul(x, y), m.Int(5))})
	require.False(t, ok)
}

func TestSolveIsReserved(t *testing.T) {
	m := NewManager()
	p := NewProjector(m)
	mdl := NewModel()
	mdl.SetInt("x", 1)
	x := m.IntConst("x")

	require.False(t, p.Solve(mdl, []*Term{x}, []*Term{m.Ge(x, m.Int(0))}))
}

// TestProjectPreservesModel exercises a batch of mixed shapes and checks
// the projection post-conditions on each.
func TestProjectPreservesModel(t *testing.T) {
	withDebug(t)
	m := NewManager()
	p := NewProjector(m)

	x, y, z := m.IntConst("x"), m.IntConst("y"), m.IntConst("z")
	r, s := m.RealConst("r"), m.RealConst("s")

	cases := []struct {
		name string
		mdl  func() *Model
		vars []*Term
		lits func() []*Term
	}{
		{
			name: "strict chain",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("x", 2)
				mdl.SetInt("y", 5)
				mdl.SetInt("z", 9)
				return mdl
			},
			vars: []*Term{y},
			lits: func() []*Term {
				return []*Term{m.Lt(x, y), m.Lt(y, z)}
			},
		},
		{
			name: "negated bound",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("x", 3)
				mdl.SetInt("y", 1)
				return mdl
			},
			vars: []*Term{x},
			lits: func() []*Term {
				return []*Term{m.Not(m.Le(x, y)), m.Le(x, m.Int(10))}
			},
		},
		{
			name: "disequality",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("x", 3)
				mdl.SetInt("y", 1)
				return mdl
			},
			vars: []*Term{x},
			lits: func() []*Term {
				return []*Term{m.Not(m.Eq(x, y)), m.Le(x, m.Int(4))}
			},
		},
		{
			name: "real bounds",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("r", 1)
				mdl.SetInt("s", 2)
				return mdl
			},
			vars: []*Term{r},
			lits: func() []*Term {
				return []*Term{m.Lt(r, s), m.Gt(r, m.Real(0)), m.Le(m.Add(r, s), m.Real(4))}
			},
		},
		{
			name: "mod residue",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("x", 7)
				mdl.SetInt("y", 1)
				return mdl
			},
			vars: []*Term{x},
			lits: func() []*Term {
				return []*Term{m.Eq(m.Mod(x, m.Int(3)), y), m.Ge(x, m.Int(0))}
			},
		},
		{
			name: "negated distinct",
			mdl: func() *Model {
				mdl := NewModel()
				mdl.SetInt("x", 1)
				mdl.SetInt("y", 2)
				mdl.SetInt("z", 1)
				return mdl
			},
			vars: []*Term{x},
			lits: func() []*Term {
				return []*Term{m.Not(m.Distinct(x, y, z)), m.Le(x, m.Int(5))}
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mdl := c.mdl()
			lits := c.lits()
			kept, out := p.Project(mdl, c.vars, lits)
			checkProjection(t, mdl, c.vars, kept, out)
		})
	}
}
