// Package unify implements first-order unification over terms with
// holes, following the bind/occurs-check shape of a classical
// Robinson unifier, generalized with eta-expansion for functions and
// pairs and with the tope and extension-type side conditions the
// theory requires.
package unify

import (
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/eval"
	"github.com/rzk-lang/rzk/internal/term"
	"github.com/rzk-lang/rzk/internal/tope"
)

// Unify decides whether t1 and t2 denote the same term up to
// definitional equality, instantiating any holes it passes through
// along the way. Both sides are normalized with
// EvalType first, so unification always compares values.
func Unify(st *checker.State, t1, t2 term.Term) error {
	e1, err := eval.EvalType(st, t1)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: t1, EvalErr: err}
	}
	e2, err := eval.EvalType(st, t2)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: t2, EvalErr: err}
	}
	return unify1(st, e1, e2)
}

func unify1(st *checker.State, t1, t2 term.Term) error {
	h1, ok1 := t1.(term.Hole)
	h2, ok2 := t2.(term.Hole)

	if ok1 && ok2 && h1.Name == h2.Name {
		return nil
	}

	if ok1 {
		return unifyHole(st, h1, t2)
	}
	if ok2 {
		// Open question: when the hole is on the right, the
		// source recurses as unify (Var x) t1 rather than unify (Hole x)
		// t1 — the hole is treated as a plain variable instead of being
		// solved. Preserved rather than fixed.
		return unify1(st, term.Var{Name: h2.Name}, t1)
	}

	if v1, ok := t1.(term.Var); ok {
		if v2, ok := t2.(term.Var); ok && v1.Name == v2.Name {
			return nil
		}
	}

	if tt, ok := t1.(term.TypedTerm); ok {
		return unify1(st, tt.Term, t2)
	}
	if tt, ok := t2.(term.TypedTerm); ok {
		return unify1(st, t1, tt.Term)
	}

	switch n1 := t1.(type) {
	case term.Universe:
		if _, ok := t2.(term.Universe); ok {
			return nil
		}
	case term.Cube:
		if _, ok := t2.(term.Cube); ok {
			return nil
		}
	case term.CubeUnit:
		if _, ok := t2.(term.CubeUnit); ok {
			return nil
		}
	case term.CubeUnitStar:
		if _, ok := t2.(term.CubeUnitStar); ok {
			return nil
		}
	case term.Cube2:
		if _, ok := t2.(term.Cube2); ok {
			return nil
		}
	case term.Cube2_0:
		if _, ok := t2.(term.Cube2_0); ok {
			return nil
		}
	case term.Cube2_1:
		if _, ok := t2.(term.Cube2_1); ok {
			return nil
		}
	case term.Tope:
		if _, ok := t2.(term.Tope); ok {
			return nil
		}
	case term.TopeTop:
		if _, ok := t2.(term.TopeTop); ok {
			return nil
		}
	case term.TopeBottom:
		if _, ok := t2.(term.TopeBottom); ok {
			return nil
		}

	case term.CubeProd:
		if n2, ok := t2.(term.CubeProd); ok {
			if err := unify1(st, n1.I, n2.I); err != nil {
				return err
			}
			return unify1(st, n1.J, n2.J)
		}

	case term.App:
		if n2, ok := t2.(term.App); ok {
			return unifyApp(st, n1, n2)
		}

	case term.Pair:
		if n2, ok := t2.(term.Pair); ok {
			if err := unify1(st, n1.First, n2.First); err != nil {
				return err
			}
			return unify1(st, n1.Second, n2.Second)
		}

	case term.First:
		if n2, ok := t2.(term.First); ok {
			return unify1(st, n1.Pair, n2.Pair)
		}
	case term.Second:
		if n2, ok := t2.(term.Second); ok {
			return unify1(st, n1.Pair, n2.Pair)
		}

	case term.IdType:
		if n2, ok := t2.(term.IdType); ok {
			if err := unify1(st, n1.A, n2.A); err != nil {
				return err
			}
			if err := unify1(st, n1.X, n2.X); err != nil {
				return err
			}
			return unify1(st, n1.Y, n2.Y)
		}

	case term.Refl:
		if n2, ok := t2.(term.Refl); ok {
			if n1.A != nil && n2.A != nil {
				if err := unify1(st, n1.A, n2.A); err != nil {
					return err
				}
			}
			return unify1(st, n1.X, n2.X)
		}

	case term.IdJ:
		if n2, ok := t2.(term.IdJ); ok {
			fields1 := []term.Term{n1.A, n1.A0, n1.C, n1.D, n1.X, n1.P}
			fields2 := []term.Term{n2.A, n2.A0, n2.C, n2.D, n2.X, n2.P}
			for i := range fields1 {
				if err := unify1(st, fields1[i], fields2[i]); err != nil {
					return err
				}
			}
			return nil
		}

	case term.RecOr:
		if n2, ok := t2.(term.RecOr); ok {
			if err := tope.EnsureEqTope(st, t1, n1.Psi, n2.Psi); err != nil {
				return err
			}
			if err := tope.EnsureEqTope(st, t1, n1.Phi, n2.Phi); err != nil {
				return err
			}
			if err := unify1(st, n1.A, n2.A); err != nil {
				return err
			}
			return unify1(st, n1.B, n2.B)
		}

	case term.TopeOr:
		if _, ok := t2.(term.TopeOr); ok {
			return tope.EnsureEqTope(st, t1, t1, t2)
		}
	case term.TopeAnd:
		if _, ok := t2.(term.TopeAnd); ok {
			return tope.EnsureEqTope(st, t1, t1, t2)
		}
	case term.TopeEQ:
		if n2, ok := t2.(term.TopeEQ); ok {
			if err := unify1(st, n1.Left, n2.Left); err != nil {
				return err
			}
			return unify1(st, n1.Right, n2.Right)
		}
	case term.TopeLEQ:
		if n2, ok := t2.(term.TopeLEQ); ok {
			if err := unify1(st, n1.Left, n2.Left); err != nil {
				return err
			}
			return unify1(st, n1.Right, n2.Right)
		}

	case term.RecBottom:
		return ensureBottom(st, t1)

	case term.Pi:
		if n2, ok := t2.(term.Pi); ok {
			return unifyBinders(st, n1.Family, n2.Family)
		}
	case term.Sigma:
		if n2, ok := t2.(term.Sigma); ok {
			return unifyBinders(st, n1.Family, n2.Family)
		}
	case term.Lambda:
		if n2, ok := t2.(term.Lambda); ok {
			return unifyBinders(st, n1, n2)
		}

	case term.ExtensionType:
		if n2, ok := t2.(term.ExtensionType); ok {
			return unifyExtension(st, n1, n2)
		}
	}

	if _, ok := t2.(term.RecBottom); ok {
		return ensureBottom(st, t2)
	}

	if lam, ok := t1.(term.Lambda); ok {
		if _, ok := t2.(term.Lambda); !ok {
			return etaFunction(st, lam, t2)
		}
	}
	if lam, ok := t2.(term.Lambda); ok {
		if _, ok := t1.(term.Lambda); !ok {
			return etaFunction(st, lam, t1)
		}
	}

	if pr, ok := t1.(term.Pair); ok {
		if _, ok := t2.(term.Pair); !ok {
			return etaPair(st, pr, t2)
		}
	}
	if pr, ok := t2.(term.Pair); ok {
		if _, ok := t1.(term.Pair); !ok {
			return etaPair(st, pr, t1)
		}
	}

	if fired, err := etaExtension(st, t1, t2); fired || err != nil {
		return err
	}
	if fired, err := etaExtension(st, t2, t1); fired || err != nil {
		return err
	}

	return &diag.Error{Code: diag.CodeUnexpected, A: t1, B: t2}
}

func unifyApp(st *checker.State, n1, n2 term.App) error {
	r1, fired1, err := eval.ReduceExtensionApp(st, n1)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: n1, EvalErr: err}
	}
	r2, fired2, err := eval.ReduceExtensionApp(st, n2)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: n2, EvalErr: err}
	}
	if fired1 || fired2 {
		if !fired1 {
			r1 = n1
		}
		if !fired2 {
			r2 = n2
		}
		return unify1(st, r1, r2)
	}
	if err := unify1(st, n1.Fun, n2.Fun); err != nil {
		return err
	}
	return unify1(st, n1.Arg, n2.Arg)
}

// unifyBinders unifies the two sides of a Pi, Sigma or Lambda, whose
// shared shape is a single Lambda carrying an optional annotation and
// an optional tope guard.
func unifyBinders(st *checker.State, f1, f2 term.Term) error {
	l1, ok1 := f1.(term.Lambda)
	l2, ok2 := f2.(term.Lambda)
	if !ok1 || !ok2 {
		return &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: f1}
	}
	if l1.A != nil && l2.A != nil {
		if err := unify1(st, l1.A, l2.A); err != nil {
			return err
		}
	}
	body2 := term.Rename(l2.Var, l1.Var, l2.Body)
	var phi2 term.Term
	if l2.Phi != nil {
		phi2 = term.Rename(l2.Var, l1.Var, l2.Phi)
	}
	if l1.Phi != nil && phi2 != nil {
		if err := tope.EnsureEqTope(st, f1, l1.Phi, phi2); err != nil {
			return err
		}
	}
	return st.LocalTyping(l1.Var, l1.A, func() error {
		if l1.Phi != nil {
			return st.LocalConstraint(l1.Phi, func() error {
				return unify1(st, l1.Body, body2)
			})
		}
		return unify1(st, l1.Body, body2)
	})
}

func unifyExtension(st *checker.State, n1, n2 term.ExtensionType) error {
	if err := unify1(st, n1.I, n2.I); err != nil {
		return err
	}
	psi2 := term.Rename(n2.Var, n1.Var, n2.Psi)
	a2 := term.Rename(n2.Var, n1.Var, n2.A)
	phi2 := term.Rename(n2.Var, n1.Var, n2.Phi)
	a02 := term.Rename(n2.Var, n1.Var, n2.A0)

	return st.LocalTyping(n1.Var, n1.I, func() error {
		if err := tope.EnsureEqTope(st, n1, n1.Psi, psi2); err != nil {
			return err
		}
		if err := st.LocalConstraint(n1.Psi, func() error {
			return unify1(st, n1.A, a2)
		}); err != nil {
			return err
		}
		if err := tope.EnsureEqTope(st, n1, n1.Phi, phi2); err != nil {
			return err
		}
		return st.LocalConstraint(n1.Phi, func() error {
			return unify1(st, n1.A0, a02)
		})
	})
}

// ensureBottom succeeds iff the current tope context entails bottom,
// the only way a use of RecBottom can ever be well-typed.
func ensureBottom(st *checker.State, t term.Term) error {
	return tope.EnsureContext(st, t, term.TopeBottom{})
}

// etaFunction implements the function extensionality rule: when one
// side is a Lambda and the other is not, compare their values applied
// to a fresh point instead of their syntax.
func etaFunction(st *checker.State, lam term.Lambda, other term.Term) error {
	used := term.FreeVars(lam)
	for k := range term.FreeVars(other) {
		used[k] = true
	}
	fresh := term.Refresh(lam.Var, used)
	freshVar := term.Var{Name: fresh}
	body := term.Subst(lam.Body, lam.Var, freshVar)

	return st.LocalTyping(fresh, lam.A, func() error {
		rhs := term.App{Fun: other, Arg: freshVar}
		if lam.Phi != nil {
			phi := term.Subst(lam.Phi, lam.Var, freshVar)
			return st.LocalConstraint(phi, func() error {
				return unify1(st, body, rhs)
			})
		}
		return unify1(st, body, rhs)
	})
}

// etaPair implements the pair extensionality rule: when one side is an
// explicit Pair and the other is not, compare projections instead of
// syntax.
func etaPair(st *checker.State, pr term.Pair, other term.Term) error {
	if err := unify1(st, pr.First, term.First{Pair: other}); err != nil {
		return err
	}
	return unify1(st, pr.Second, term.Second{Pair: other})
}

// etaExtension implements extension-type eta: when t1's inferred type
// is an extension type, t1 is extensionally equal to the lambda that
// applies it to a fresh cube point, so compare it against other that
// way instead of failing outright.
func etaExtension(st *checker.State, t1, other term.Term) (bool, error) {
	if st.Inferrer == nil {
		return false, nil
	}
	ty, err := st.Inferrer.Infer(t1)
	if err != nil {
		return false, nil
	}
	ext, ok := ty.(term.ExtensionType)
	if !ok {
		return false, nil
	}
	used := term.FreeVars(t1)
	for k := range term.FreeVars(other) {
		used[k] = true
	}
	fresh := term.Refresh(ext.Var, used)
	freshVar := term.Var{Name: fresh}
	lhs := term.App{Fun: t1, Arg: freshVar}
	rhs := term.App{Fun: other, Arg: freshVar}
	err = st.LocalTyping(fresh, ext.I, func() error {
		return unify1(st, lhs, rhs)
	})
	return true, err
}

// unifyHole solves h against t, or defers to h's existing solution.
func unifyHole(st *checker.State, h term.Hole, t term.Term) error {
	if sol, ok := st.LookupHole(h.Name); ok {
		return unify1(st, sol, t)
	}
	if occursCheck(st, h.Name, t) {
		return &diag.Error{Code: diag.CodeInfinite, Hole: h.Name, Term: t}
	}
	st.InstantiateHole(h.Name, t)
	return nil
}

// occursCheck reports whether h appears free in t, chasing through any
// already-solved holes t mentions.
//
// Pi and Sigma share this traversal's binder case: both recurse into
// their Family, which is always a Lambda. The source this is grounded
// on rebuilds a Pi shell around the recursed child even for the Sigma
// case, a copy-paste slip. A pure occurs
// check never reconstructs a term, so the slip has no observable
// effect here; it is preserved in spirit by giving Pi and Sigma the
// exact same occurs-check code path rather than distinct ones.
func occursCheck(st *checker.State, h term.Name, t term.Term) bool {
	switch n := t.(type) {
	case term.Var:
		return n.Name == h
	case term.Hole:
		if n.Name == h {
			return true
		}
		if sol, ok := st.LookupHole(n.Name); ok {
			return occursCheck(st, h, sol)
		}
		return false
	case term.Universe, term.Cube, term.CubeUnit, term.CubeUnitStar,
		term.Cube2, term.Cube2_0, term.Cube2_1, term.Tope, term.TopeTop,
		term.TopeBottom, term.RecBottom:
		return false
	case term.TypedTerm:
		return occursCheck(st, h, n.Term) || occursCheck(st, h, n.Type)
	case term.Pi:
		return occursCheck(st, h, n.Family)
	case term.Sigma:
		return occursCheck(st, h, n.Family)
	case term.Lambda:
		if n.A != nil && occursCheck(st, h, n.A) {
			return true
		}
		if n.Phi != nil && occursCheck(st, h, n.Phi) {
			return true
		}
		return occursCheck(st, h, n.Body)
	case term.App:
		return occursCheck(st, h, n.Fun) || occursCheck(st, h, n.Arg)
	case term.Pair:
		return occursCheck(st, h, n.First) || occursCheck(st, h, n.Second)
	case term.First:
		return occursCheck(st, h, n.Pair)
	case term.Second:
		return occursCheck(st, h, n.Pair)
	case term.IdType:
		return occursCheck(st, h, n.A) || occursCheck(st, h, n.X) || occursCheck(st, h, n.Y)
	case term.Refl:
		return (n.A != nil && occursCheck(st, h, n.A)) || occursCheck(st, h, n.X)
	case term.IdJ:
		for _, f := range []term.Term{n.A, n.A0, n.C, n.D, n.X, n.P} {
			if occursCheck(st, h, f) {
				return true
			}
		}
		return false
	case term.CubeProd:
		return occursCheck(st, h, n.I) || occursCheck(st, h, n.J)
	case term.TopeOr:
		return occursCheck(st, h, n.Left) || occursCheck(st, h, n.Right)
	case term.TopeAnd:
		return occursCheck(st, h, n.Left) || occursCheck(st, h, n.Right)
	case term.TopeEQ:
		return occursCheck(st, h, n.Left) || occursCheck(st, h, n.Right)
	case term.TopeLEQ:
		return occursCheck(st, h, n.Left) || occursCheck(st, h, n.Right)
	case term.RecOr:
		return occursCheck(st, h, n.Psi) || occursCheck(st, h, n.Phi) ||
			occursCheck(st, h, n.A) || occursCheck(st, h, n.B)
	case term.ExtensionType:
		return occursCheck(st, h, n.I) || occursCheck(st, h, n.Psi) ||
			occursCheck(st, h, n.A) || occursCheck(st, h, n.Phi) || occursCheck(st, h, n.A0)
	}
	return false
}
