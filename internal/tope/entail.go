// Package tope implements the saturation-based decision procedure for
// Γ ⊢ φ over the decidable propositional fragment of cube topes: unfold
// inclusions, saturate under the Cube2 axioms, then decide the goal
// against the saturated set.
package tope

import (
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/eval"
	"github.com/rzk-lang/rzk/internal/term"
)

// set is a structurally-deduplicated collection of topes, in insertion
// order.
type set struct {
	items []term.Term
}

func (s *set) has(t term.Term) bool {
	for _, x := range s.items {
		if term.Equal(x, t) {
			return true
		}
	}
	return false
}

func (s *set) add(t term.Term) bool {
	if s.has(t) {
		return false
	}
	s.items = append(s.items, t)
	return true
}

// unfold produces the direct logical consequences of a single tope p.
// It recurses into p's own structure; the only consequence not built
// from p's sub-terms is the guard an App adds when its function's
// inferred type is a guarded Pi.
func unfold(st *checker.State, p term.Term) []term.Term {
	switch n := p.(type) {
	case term.TopeAnd:
		out := []term.Term{n.Left, n.Right}
		out = append(out, unfold(st, n.Left)...)
		out = append(out, unfold(st, n.Right)...)
		return out
	case term.TopeOr:
		leftAlts := append([]term.Term{n.Left}, unfold(st, n.Left)...)
		rightAlts := append([]term.Term{n.Right}, unfold(st, n.Right)...)
		var out []term.Term
		for _, a := range leftAlts {
			for _, b := range rightAlts {
				out = append(out, term.TopeOr{Left: a, Right: b})
			}
		}
		return out
	case term.App:
		if st.Inferrer == nil {
			return nil
		}
		funType, err := st.Inferrer.Infer(n.Fun)
		if err != nil {
			return nil
		}
		pi, ok := funType.(term.Pi)
		if !ok {
			return nil
		}
		lam, ok := pi.Family.(term.Lambda)
		if !ok || lam.Phi == nil {
			return nil
		}
		guard := term.Subst(lam.Phi, lam.Var, n.Arg)
		out := []term.Term{guard}
		out = append(out, unfold(st, guard)...)
		return out
	default:
		return nil
	}
}

// saturate builds the fixed-point closure of the context's topes under
// the unfold rules and the Cube2 axioms.
func saturate(st *checker.State) *set {
	s := &set{}
	for _, p := range st.Topes() {
		s.add(p)
	}

	for {
		changed := false

		// Step 1: unfold every known tope.
		for _, p := range append([]term.Term(nil), s.items...) {
			for _, q := range unfold(st, p) {
				if s.add(q) {
					changed = true
				}
			}
		}

		// Step 2: saturate under the Cube2 axioms.
		items := append([]term.Term(nil), s.items...)
		for _, a := range items {
			for _, b := range items {
				if leqA, ok := a.(term.TopeLEQ); ok {
					// Conjunction elimination is already covered by unfold.
					if leqB, ok := b.(term.TopeLEQ); ok {
						// Transitivity: x <= y, y <= z |- x <= z (skip x == z).
						if term.Equal(leqA.Right, leqB.Left) && !term.Equal(leqA.Left, leqB.Right) {
							if s.add(term.TopeLEQ{Left: leqA.Left, Right: leqB.Right}) {
								changed = true
							}
						}
						// Antisymmetry: x <= y, y <= x |- x = y.
						if term.Equal(leqA.Left, leqB.Right) && term.Equal(leqA.Right, leqB.Left) {
							if s.add(term.TopeEQ{Left: leqA.Left, Right: leqA.Right}) {
								changed = true
							}
						}
					}
				}
			}
		}

		// Distinct endpoints: 1 <= 0 |- bottom.
		if s.has(term.TopeLEQ{Left: term.Cube2_1{}, Right: term.Cube2_0{}}) {
			if s.add(term.TopeBottom{}) {
				changed = true
			}
		}

		if !changed {
			return s
		}
	}
}

// Entails decides Γ ⊢ φ.
func Entails(st *checker.State, phi term.Term) (bool, error) {
	s := saturate(st)
	return decide(st, s, phi)
}

func decide(st *checker.State, s *set, phi term.Term) (bool, error) {
	if _, ok := phi.(term.TopeTop); ok {
		return true, nil
	}
	if s.has(term.TopeBottom{}) {
		return true, nil
	}
	if member, err := setHasUpToEval(st, s, phi); err != nil {
		return false, err
	} else if member {
		return true, nil
	}
	switch n := phi.(type) {
	case term.TopeAnd:
		left, err := decide(st, s, n.Left)
		if err != nil || !left {
			return false, err
		}
		return decide(st, s, n.Right)
	case term.TopeOr:
		left, err := decide(st, s, n.Left)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return decide(st, s, n.Right)
	case term.TopeEQ:
		a, err := eval.Eval(st, n.Left)
		if err != nil {
			return false, err
		}
		b, err := eval.Eval(st, n.Right)
		if err != nil {
			return false, err
		}
		return term.Equal(a, b), nil
	}
	return false, nil
}

func setHasUpToEval(st *checker.State, s *set, phi term.Term) (bool, error) {
	ephi, err := eval.Eval(st, phi)
	if err != nil {
		return false, err
	}
	for _, p := range s.items {
		ep, err := eval.Eval(st, p)
		if err != nil {
			return false, err
		}
		if term.Equal(ephi, ep) {
			return true, nil
		}
	}
	return false, nil
}
