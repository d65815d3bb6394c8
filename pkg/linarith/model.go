package linarith

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors reported by model evaluation.
var (
	// ErrUnassigned is returned when a constant has no interpretation and
	// model completion is disabled.
	ErrUnassigned = errors.New("constant has no interpretation in the model")
	// ErrNotNumeric is returned when a numeric value is requested for a
	// non-numeric term, or a truth value for a constant that is not boolean.
	ErrNotNumeric = errors.New("term did not evaluate to a numeric value")
	// ErrNonIntegral is returned when mod is applied to non-integral values.
	ErrNonIntegral = errors.New("mod applied to a non-integral value")
	// ErrDivisorZero is returned when mod is applied with divisor zero.
	ErrDivisorZero = errors.New("mod by zero")
)

// Model assigns concrete values to uninterpreted constants. Numeric
// constants map to rationals, boolean constants to truth values.
//
// A Model is mutable: Maximize rewrites the interpretations of the
// constants it optimizes over, and model completion installs default
// values for constants it touches.
type Model struct {
	rats  map[string]*big.Rat
	bools map[string]bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{rats: make(map[string]*big.Rat), bools: make(map[string]bool)}
}

// SetRat assigns a rational interpretation to the named constant. The
// value is copied.
func (m *Model) SetRat(name string, v *big.Rat) {
	m.rats[name] = new(big.Rat).Set(v)
}

// SetInt assigns an integer interpretation to the named constant.
func (m *Model) SetInt(name string, v int64) {
	m.rats[name] = new(big.Rat).SetInt64(v)
}

// SetBool assigns a truth value to the named constant.
func (m *Model) SetBool(name string, v bool) {
	m.bools[name] = v
}

// Rat returns the rational interpretation of the named constant.
func (m *Model) Rat(name string) (*big.Rat, bool) {
	v, ok := m.rats[name]
	return v, ok
}

// Bool returns the truth value of the named constant.
func (m *Model) Bool(name string) (bool, bool) {
	v, ok := m.bools[name]
	return v, ok
}

// Names returns the assigned constant names in sorted order.
func (m *Model) Names() []string {
	names := make([]string, 0, len(m.rats)+len(m.bools))
	for n := range m.rats {
		names = append(names, n)
	}
	for n := range m.bools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Evaluator computes concrete values of terms under a model.
//
// With model completion enabled, constants missing from the model are
// assigned a default interpretation (zero, or false) which is recorded in
// the model, so every term has a value. With completion disabled, missing
// constants surface as ErrUnassigned.
type Evaluator struct {
	model      *Model
	completion bool
}

// NewEvaluator returns an evaluator bound to the given model, with model
// completion disabled.
func NewEvaluator(m *Model) *Evaluator {
	return &Evaluator{model: m}
}

// SetModelCompletion enables or disables model completion.
func (e *Evaluator) SetModelCompletion(on bool) { e.completion = on }

// Rat evaluates a numeric term to a rational.
func (e *Evaluator) Rat(t *Term) (*big.Rat, error) {
	switch t.kind {
	case KindNum:
		return new(big.Rat).Set(t.num), nil
	case KindConst:
		if !t.IsArith() {
			return nil, pkgerrors.Wrapf(ErrNotNumeric, "constant %s", t.name)
		}
		if v, ok := e.model.rats[t.name]; ok {
			return new(big.Rat).Set(v), nil
		}
		if !e.completion {
			return nil, pkgerrors.Wrapf(ErrUnassigned, "constant %s", t.name)
		}
		e.model.rats[t.name] = new(big.Rat)
		return new(big.Rat), nil
	case KindAdd:
		sum := new(big.Rat)
		for _, a := range t.args {
			v, err := e.Rat(a)
			if err != nil {
				return nil, err
			}
			sum.Add(sum, v)
		}
		return sum, nil
	case KindSub:
		v1, err := e.Rat(t.args[0])
		if err != nil {
			return nil, err
		}
		v2, err := e.Rat(t.args[1])
		if err != nil {
			return nil, err
		}
		return v1.Sub(v1, v2), nil
	case KindNeg:
		v, err := e.Rat(t.args[0])
		if err != nil {
			return nil, err
		}
		return v.Neg(v), nil
	case KindMul:
		prod := new(big.Rat).SetInt64(1)
		for _, a := range t.args {
			v, err := e.Rat(a)
			if err != nil {
				return nil, err
			}
			prod.Mul(prod, v)
		}
		return prod, nil
	case KindMod:
		v1, err := e.Rat(t.args[0])
		if err != nil {
			return nil, err
		}
		v2, err := e.Rat(t.args[1])
		if err != nil {
			return nil, err
		}
		return euclideanMod(v1, v2)
	case KindIte:
		g, err := e.Bool(t.args[0])
		if err != nil {
			return nil, err
		}
		if g {
			return e.Rat(t.args[1])
		}
		return e.Rat(t.args[2])
	default:
		return nil, pkgerrors.Wrapf(ErrNotNumeric, "term %s", t)
	}
}

// Bool evaluates a boolean term to a truth value.
func (e *Evaluator) Bool(t *Term) (bool, error) {
	switch t.kind {
	case KindTrue:
		return true, nil
	case KindFalse:
		return false, nil
	case KindConst:
		if t.sort != SortBool {
			return false, pkgerrors.Wrapf(ErrNotNumeric, "constant %s", t.name)
		}
		if v, ok := e.model.bools[t.name]; ok {
			return v, nil
		}
		if !e.completion {
			return false, pkgerrors.Wrapf(ErrUnassigned, "constant %s", t.name)
		}
		e.model.bools[t.name] = false
		return false, nil
	case KindNot:
		v, err := e.Bool(t.args[0])
		return !v, err
	case KindIte:
		g, err := e.Bool(t.args[0])
		if err != nil {
			return false, err
		}
		if g {
			return e.Bool(t.args[1])
		}
		return e.Bool(t.args[2])
	case KindLe, KindLt, KindGe, KindGt:
		v1, err := e.Rat(t.args[0])
		if err != nil {
			return false, err
		}
		v2, err := e.Rat(t.args[1])
		if err != nil {
			return false, err
		}
		cmp := v1.Cmp(v2)
		switch t.kind {
		case KindLe:
			return cmp <= 0, nil
		case KindLt:
			return cmp < 0, nil
		case KindGe:
			return cmp >= 0, nil
		default:
			return cmp > 0, nil
		}
	case KindEq:
		return e.equalValues(t.args[0], t.args[1])
	case KindDistinct:
		for i := 0; i < len(t.args); i++ {
			for j := i + 1; j < len(t.args); j++ {
				eq, err := e.equalValues(t.args[i], t.args[j])
				if err != nil {
					return false, err
				}
				if eq {
					return false, nil
				}
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("term %s is not boolean", t)
	}
}

// equalValues compares two terms of the same sort class by value.
func (e *Evaluator) equalValues(a, b *Term) (bool, error) {
	if a.sort == SortBool {
		v1, err := e.Bool(a)
		if err != nil {
			return false, err
		}
		v2, err := e.Bool(b)
		if err != nil {
			return false, err
		}
		return v1 == v2, nil
	}
	v1, err := e.Rat(a)
	if err != nil {
		return false, err
	}
	v2, err := e.Rat(b)
	if err != nil {
		return false, err
	}
	return v1.Cmp(v2) == 0, nil
}

// euclideanMod computes a mod b over integral rationals, with the result
// in [0, |b|).
func euclideanMod(a, b *big.Rat) (*big.Rat, error) {
	if !a.IsInt() || !b.IsInt() {
		return nil, ErrNonIntegral
	}
	if b.Sign() == 0 {
		return nil, ErrDivisorZero
	}
	bi := new(big.Int).Set(b.Num())
	bi.Abs(bi)
	r := new(big.Int).Mod(a.Num(), bi)
	return new(big.Rat).SetInt(r), nil
}
