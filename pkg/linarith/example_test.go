package linarith

import (
	"fmt"
)

// ExampleProjector_Project eliminates x from x + y <= 10 and x >= y under
// the model x = 3, y = 2. The two bounds on x resolve into a single bound
// on y.
func ExampleProjector_Project() {
	mgr := NewManager()
	p := NewProjector(mgr)

	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", 2)

	x := mgr.IntConst("x")
	y := mgr.IntConst("y")
	lits := []*Term{
		mgr.Le(mgr.Add(x, y), mgr.Int(10)),
		mgr.Ge(x, y),
	}

	kept, out := p.Project(mdl, []*Term{x}, lits)
	fmt.Println("kept:", len(kept))
	for _, lit := range out {
		fmt.Println(lit)
	}
	// Output:
	// kept: 0
	// (y <= 5)
}

// ExampleProjector_Maximize maximizes x + y over the triangle
// x + y <= 10, x >= 0, y >= 0 and moves the model to the optimum.
func ExampleProjector_Maximize() {
	mgr := NewManager()
	p := NewProjector(mgr)

	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", 3)

	x := mgr.RealConst("x")
	y := mgr.RealConst("y")
	lits := []*Term{
		mgr.Le(mgr.Add(x, y), mgr.Real(10)),
		mgr.Ge(x, mgr.Real(0)),
		mgr.Ge(y, mgr.Real(0)),
	}

	value, ge, gt := p.Maximize(lits, mdl, mgr.Add(x, y))
	fmt.Println("value:", value)
	fmt.Println("ge:", ge)
	fmt.Println("gt:", gt)

	vx, _ := mdl.Rat("x")
	vy, _ := mdl.Rat("y")
	fmt.Println("x =", vx.RatString(), "y =", vy.RatString())
	// Output:
	// value: 10
	// ge: ((x + y) >= 10)
	// gt: ((x + y) > 10)
	// x = 5 y = 5
}

// ExampleProjector_ProjectOne eliminates a single integer variable bound
// by an equation, leaving the divisibility fact it implies.
func ExampleProjector_ProjectOne() {
	mgr := NewManager()
	p := NewProjector(mgr)

	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", 6)

	x := mgr.IntConst("x")
	y := mgr.IntConst("y")
	lits := []*Term{
		mgr.Eq(mgr.Mul(mgr.Int(2), x), y),
		mgr.Ge(x, mgr.Int(0)),
	}

	ok, out := p.ProjectOne(mdl, x, lits)
	fmt.Println("eliminated:", ok)
	for _, lit := range out {
		fmt.Println(lit)
	}
	// Output:
	// eliminated: true
	// (y >= 0)
	// ((y mod 2) = 0)
}
