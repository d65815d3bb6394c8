package linarith

import (
	"errors"
	"math/big"
	"testing"
)

func TestEvalArithmetic(t *testing.T) {
	m := NewManager()
	mdl := NewModel()
	mdl.SetInt("x", 3)
	mdl.SetInt("y", -2)
	eval := NewEvaluator(mdl)
	x := m.IntConst("x")
	y := m.IntConst("y")

	cases := []struct {
		term *Term
		want int64
	}{
		{m.Add(x, y, m.Int(1)), 2},
		{m.Sub(x, y), 5},
		{m.Neg(y), 2},
		{m.Mul(m.Int(4), x), 12},
		{m.Mod(m.Int(7), m.Int(3)), 1},
		{m.Mod(y, m.Int(3)), 1}, // -2 mod 3 = 1, Euclidean
		{m.Ite(m.Gt(x, m.Int(0)), x, y), 3},
	}
	for _, c := range cases {
		got, err := eval.Rat(c.term)
		if err != nil {
			t.Fatalf("Rat(%s): %v", c.term, err)
		}
		if got.Cmp(new(big.Rat).SetInt64(c.want)) != 0 {
			t.Fatalf("Rat(%s) = %s, want %d", c.term, got.RatString(), c.want)
		}
	}
}

func TestEvalBooleans(t *testing.T) {
	m := NewManager()
	mdl := NewModel()
	mdl.SetInt("x", 1)
	mdl.SetInt("y", 2)
	mdl.SetInt("z", 2)
	eval := NewEvaluator(mdl)
	x, y, z := m.IntConst("x"), m.IntConst("y"), m.IntConst("z")

	cases := []struct {
		term *Term
		want bool
	}{
		{m.Lt(x, y), true},
		{m.Le(y, z), true},
		{m.Gt(x, y), false},
		{m.Eq(y, z), true},
		{m.Not(m.Eq(x, y)), true},
		{m.Distinct(x, y), true},
		{m.Distinct(x, y, z), false},
		{m.Not(m.Distinct(x, y, z)), true},
	}
	for _, c := range cases {
		got, err := eval.Bool(c.term)
		if err != nil {
			t.Fatalf("Bool(%s): %v", c.term, err)
		}
		if got != c.want {
			t.Fatalf("Bool(%s) = %v, want %v", c.term, got, c.want)
		}
	}
}

func TestEvalUnassigned(t *testing.T) {
	m := NewManager()
	mdl := NewModel()
	eval := NewEvaluator(mdl)
	u := m.IntConst("u")

	if _, err := eval.Rat(u); !errors.Is(err, ErrUnassigned) {
		t.Fatalf("expected ErrUnassigned, got %v", err)
	}

	eval.SetModelCompletion(true)
	v, err := eval.Rat(u)
	if err != nil {
		t.Fatalf("completion should default the value: %v", err)
	}
	if v.Sign() != 0 {
		t.Fatalf("default value = %s, want 0", v.RatString())
	}
	if got, ok := mdl.Rat("u"); !ok || got.Sign() != 0 {
		t.Fatalf("completion did not record the default in the model")
	}
}

func TestEvalModErrors(t *testing.T) {
	m := NewManager()
	mdl := NewModel()
	mdl.SetRat("h", big.NewRat(1, 2))
	eval := NewEvaluator(mdl)

	if _, err := eval.Rat(m.Mod(m.IntConst("h"), m.Int(2))); !errors.Is(err, ErrNonIntegral) {
		t.Fatalf("expected ErrNonIntegral, got %v", err)
	}
	if _, err := eval.Rat(m.Mod(m.Int(5), m.Int(0))); !errors.Is(err, ErrDivisorZero) {
		t.Fatalf("expected ErrDivisorZero, got %v", err)
	}
}
