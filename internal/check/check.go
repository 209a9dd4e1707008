// Package check implements the bidirectional type checker: the mutually
// recursive Infer/Check pair, driving evaluation, unification and tope
// obligation discharge over the full term language. It
// also supplies the checker.Inferrer implementation that lets the
// evaluator call back into inference.
package check

import (
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/eval"
	"github.com/rzk-lang/rzk/internal/term"
	"github.com/rzk-lang/rzk/internal/tope"
	"github.com/rzk-lang/rzk/internal/unify"
)

// NewInferrer adapts Infer to the checker.Inferrer capability, for
// wiring into checker.State.Inferrer by the module package.
func NewInferrer(st *checker.State) checker.Inferrer {
	return inferrer{st}
}

type inferrer struct{ st *checker.State }

func (i inferrer) Infer(t term.Term) (term.Term, error) {
	return Infer(i.st, t)
}

// Infer synthesizes and returns the type of t, evaluated before
// returning.
func Infer(st *checker.State, t term.Term) (term.Term, error) {
	switch n := t.(type) {
	case term.Var:
		if ty, ok := st.LookupType(n.Name); ok {
			return eval.EvalType(st, ty)
		}
		h := st.FreshHole(n.Name.Base)
		ty := term.Hole{Name: h}
		st.SetType(n.Name, ty)
		return ty, nil

	case term.Hole:
		if ty, ok := st.LookupType(n.Name); ok {
			return eval.EvalType(st, ty)
		}
		h := st.FreshHole(n.Name.Base)
		ty := term.Hole{Name: h}
		st.SetType(n.Name, ty)
		return ty, nil

	case term.TypedTerm:
		if err := Check(st, n.Term, n.Type); err != nil {
			return nil, err
		}
		return eval.EvalType(st, n.Type)

	case term.Pi:
		lam, ok := n.Family.(term.Lambda)
		if !ok {
			return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: t}
		}
		if _, err := InferTypeFamily(st, lam); err != nil {
			return nil, err
		}
		return term.Universe{}, nil

	case term.Sigma:
		lam, ok := n.Family.(term.Lambda)
		if !ok {
			return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: t}
		}
		if _, err := InferTypeFamily(st, lam); err != nil {
			return nil, err
		}
		return term.Universe{}, nil

	case term.Lambda:
		return nil, &diag.Error{Code: diag.CodeCannotInferLambda, Term: t}

	case term.Universe:
		// Russell-style: the universe is its own type.
		return term.Universe{}, nil

	case term.App:
		return inferApp(st, n)

	case term.Pair:
		return inferPair(st, n)

	case term.First:
		return inferFirst(st, n)

	case term.Second:
		return inferSecond(st, n)

	case term.IdType:
		if err := Check(st, n.A, term.Universe{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.X, n.A); err != nil {
			return nil, err
		}
		if err := Check(st, n.Y, n.A); err != nil {
			return nil, err
		}
		return term.Universe{}, nil

	case term.Refl:
		var aType term.Term
		if n.A != nil {
			if err := Check(st, n.A, term.Universe{}); err != nil {
				return nil, err
			}
			if err := Check(st, n.X, n.A); err != nil {
				return nil, err
			}
			aType = n.A
		} else {
			xt, err := Infer(st, n.X)
			if err != nil {
				return nil, err
			}
			aType = xt
		}
		aType, err := eval.EvalType(st, aType)
		if err != nil {
			return nil, err
		}
		return term.IdType{A: aType, X: n.X, Y: n.X}, nil

	case term.IdJ:
		return inferIdJ(st, n)

	case term.Cube:
		return term.Universe{}, nil
	case term.CubeUnit:
		return term.Cube{}, nil
	case term.CubeUnitStar:
		return term.CubeUnit{}, nil
	case term.CubeProd:
		if err := Check(st, n.I, term.Cube{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.J, term.Cube{}); err != nil {
			return nil, err
		}
		return term.Cube{}, nil
	case term.Cube2:
		return term.Cube{}, nil
	case term.Cube2_0:
		return term.Cube2{}, nil
	case term.Cube2_1:
		return term.Cube2{}, nil

	case term.Tope:
		return term.Universe{}, nil
	case term.TopeTop:
		return term.Tope{}, nil
	case term.TopeBottom:
		return term.Tope{}, nil
	case term.TopeOr:
		if err := Check(st, n.Left, term.Tope{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.Right, term.Tope{}); err != nil {
			return nil, err
		}
		return term.Tope{}, nil
	case term.TopeAnd:
		if err := Check(st, n.Left, term.Tope{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.Right, term.Tope{}); err != nil {
			return nil, err
		}
		return term.Tope{}, nil
	case term.TopeEQ:
		if err := Check(st, n.Left, term.Cube2{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.Right, term.Cube2{}); err != nil {
			return nil, err
		}
		return term.Tope{}, nil
	case term.TopeLEQ:
		if err := Check(st, n.Left, term.Cube2{}); err != nil {
			return nil, err
		}
		if err := Check(st, n.Right, term.Cube2{}); err != nil {
			return nil, err
		}
		return term.Tope{}, nil

	case term.RecBottom:
		if err := tope.EnsureContext(st, t, term.TopeBottom{}); err != nil {
			return nil, err
		}
		return term.Hole{Name: st.FreshHole("rec")}, nil

	case term.RecOr:
		return inferRecOr(st, n)

	case term.ExtensionType:
		return inferExtensionType(st, n)
	}
	return nil, &diag.Error{Code: diag.CodeOther, Msg: "infer: unrecognized term shape"}
}

func inferApp(st *checker.State, n term.App) (term.Term, error) {
	funType, err := Infer(st, n.Fun)
	if err != nil {
		return nil, err
	}
	funType, err = eval.EvalType(st, funType)
	if err != nil {
		return nil, err
	}
	switch ft := funType.(type) {
	case term.Pi:
		lam, ok := ft.Family.(term.Lambda)
		if !ok {
			return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: funType}
		}
		if err := Check(st, n.Arg, lam.A); err != nil {
			return nil, err
		}
		if lam.Phi != nil {
			guard := term.Subst(lam.Phi, lam.Var, n.Arg)
			if err := tope.EnsureContext(st, n, guard); err != nil {
				return nil, err
			}
		}
		return eval.EvalType(st, term.Subst(lam.Body, lam.Var, n.Arg))

	case term.ExtensionType:
		if err := Check(st, n.Arg, ft.I); err != nil {
			return nil, err
		}
		guard := term.Subst(ft.Psi, ft.Var, n.Arg)
		if err := tope.EnsureContext(st, n, guard); err != nil {
			return nil, err
		}
		return eval.EvalType(st, term.Subst(ft.A, ft.Var, n.Arg))

	default:
		return nil, &diag.Error{Code: diag.CodeNotAFunction, Term: n.Fun, A: funType, B: n.Arg}
	}
}

func inferPair(st *checker.State, n term.Pair) (term.Term, error) {
	i, err := Infer(st, n.First)
	if err != nil {
		return nil, err
	}
	i, err = eval.EvalType(st, i)
	if err != nil {
		return nil, err
	}
	j, err := Infer(st, n.Second)
	if err != nil {
		return nil, err
	}
	j, err = eval.EvalType(st, j)
	if err != nil {
		return nil, err
	}
	iKind, err := Infer(st, i)
	if err != nil {
		return nil, err
	}
	jKind, err := Infer(st, j)
	if err != nil {
		return nil, err
	}
	_, iIsCube := iKind.(term.Cube)
	_, jIsCube := jKind.(term.Cube)
	if iIsCube && jIsCube {
		return term.CubeProd{I: i, J: j}, nil
	}
	return nil, &diag.Error{Code: diag.CodeCannotInferPair, Term: n}
}

func inferFirst(st *checker.State, n term.First) (term.Term, error) {
	pt, err := Infer(st, n.Pair)
	if err != nil {
		return nil, err
	}
	pt, err = eval.EvalType(st, pt)
	if err != nil {
		return nil, err
	}
	switch pp := pt.(type) {
	case term.Sigma:
		lam, ok := pp.Family.(term.Lambda)
		if !ok {
			return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: pt}
		}
		return eval.EvalType(st, lam.A)
	case term.CubeProd:
		return eval.EvalType(st, pp.I)
	default:
		return nil, &diag.Error{Code: diag.CodeNotAPair, Term: n.Pair, A: pt}
	}
}

func inferSecond(st *checker.State, n term.Second) (term.Term, error) {
	pt, err := Infer(st, n.Pair)
	if err != nil {
		return nil, err
	}
	pt, err = eval.EvalType(st, pt)
	if err != nil {
		return nil, err
	}
	switch pp := pt.(type) {
	case term.Sigma:
		lam, ok := pp.Family.(term.Lambda)
		if !ok {
			return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: pt}
		}
		return eval.EvalType(st, term.Subst(lam.Body, lam.Var, term.First{Pair: n.Pair}))
	case term.CubeProd:
		return eval.EvalType(st, pp.J)
	default:
		return nil, &diag.Error{Code: diag.CodeNotAPair, Term: n.Pair, A: pt}
	}
}

// inferIdJ implements the standard typing rule for the J eliminator:
// motive C : Pi(x:A). Pi(_: IdType A a0 x). Universe, method d : C a0
// (Refl a0), return App (App C x) p.
func inferIdJ(st *checker.State, n term.IdJ) (term.Term, error) {
	if err := Check(st, n.A, term.Universe{}); err != nil {
		return nil, err
	}
	if err := Check(st, n.A0, n.A); err != nil {
		return nil, err
	}
	x := st.FreshVar("x")
	pf := st.FreshVar("_")
	cType := term.MkPi(x, n.A,
		term.MkPi(pf, term.IdType{A: n.A, X: n.A0, Y: term.Var{Name: x}}, term.Universe{}))
	if err := Check(st, n.C, cType); err != nil {
		return nil, err
	}
	dType := term.App{Fun: term.App{Fun: n.C, Arg: n.A0}, Arg: term.Refl{A: n.A, X: n.A0}}
	if err := Check(st, n.D, dType); err != nil {
		return nil, err
	}
	if err := Check(st, n.X, n.A); err != nil {
		return nil, err
	}
	if err := Check(st, n.P, term.IdType{A: n.A, X: n.A0, Y: n.X}); err != nil {
		return nil, err
	}
	result := term.App{Fun: term.App{Fun: n.C, Arg: n.X}, Arg: n.P}
	return eval.EvalType(st, result)
}

func inferRecOr(st *checker.State, n term.RecOr) (term.Term, error) {
	if err := tope.EnsureContext(st, n, term.TopeOr{Left: n.Psi, Right: n.Phi}); err != nil {
		return nil, err
	}
	var aType, bType term.Term
	err := st.LocalConstraint(n.Psi, func() error {
		var e error
		aType, e = Infer(st, n.A)
		return e
	})
	if err != nil {
		return nil, err
	}
	err = st.LocalConstraint(n.Phi, func() error {
		var e error
		bType, e = Infer(st, n.B)
		return e
	})
	if err != nil {
		return nil, err
	}
	err = st.LocalConstraint(term.TopeAnd{Left: n.Psi, Right: n.Phi}, func() error {
		return unify.Unify(st, aType, bType)
	})
	if err != nil {
		return nil, err
	}
	return term.RecOr{Psi: n.Psi, Phi: n.Phi, A: aType, B: bType}, nil
}

// inferExtensionType checks an ExtensionType former is well-formed: the
// index cube, the domain tope under the bound point, the codomain
// universe under the domain tope, the boundary tope under the bound
// point, and the boundary value under the boundary tope.
func inferExtensionType(st *checker.State, n term.ExtensionType) (term.Term, error) {
	if err := Check(st, n.I, term.Cube{}); err != nil {
		return nil, err
	}
	err := st.LocalTyping(n.Var, n.I, func() error {
		if err := Check(st, n.Psi, term.Tope{}); err != nil {
			return err
		}
		if err := st.LocalConstraint(n.Psi, func() error {
			return Check(st, n.A, term.Universe{})
		}); err != nil {
			return err
		}
		if err := Check(st, n.Phi, term.Tope{}); err != nil {
			return err
		}
		return st.LocalConstraint(n.Phi, func() error {
			return Check(st, n.A0, n.A)
		})
	})
	if err != nil {
		return nil, err
	}
	return term.Universe{}, nil
}

// Check refines t against the expected type a, instantiating holes and
// raising errors as needed so that t : a becomes derivable.
func Check(st *checker.State, t, a term.Term) error {
	aEval, err := eval.EvalType(st, a)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: a, EvalErr: err}
	}

	if lam, ok := t.(term.Lambda); ok {
		switch at := aEval.(type) {
		case term.ExtensionType:
			return checkLambdaAgainstExtension(st, lam, at, t)
		case term.Pi:
			return checkLambdaAgainstPi(st, lam, at, t)
		default:
			return &diag.Error{Code: diag.CodeExpectedFunctionType, Term: t, A: aEval}
		}
	}

	if v, ok := t.(term.Var); ok {
		if existing, ok2 := st.LookupType(v.Name); ok2 {
			return unify.Unify(st, existing, aEval)
		}
		st.SetType(v.Name, aEval)
		return nil
	}

	if h, ok := t.(term.Hole); ok {
		if existing, ok2 := st.LookupType(h.Name); ok2 {
			return unify.Unify(st, existing, aEval)
		}
		st.SetType(h.Name, aEval)
		return nil
	}

	if pr, ok := t.(term.Pair); ok {
		if sig, ok := aEval.(term.Sigma); ok {
			lam, ok := sig.Family.(term.Lambda)
			if !ok {
				return &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: aEval}
			}
			if err := Check(st, pr.First, lam.A); err != nil {
				return err
			}
			return Check(st, pr.Second, term.Subst(lam.Body, lam.Var, pr.First))
		}
	}

	it, err := Infer(st, t)
	if err != nil {
		return err
	}
	return unify.Unify(st, it, aEval)
}

func checkLambdaAgainstPi(st *checker.State, lam term.Lambda, pi term.Pi, original term.Term) error {
	fam, ok := pi.Family.(term.Lambda)
	if !ok {
		return &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: pi}
	}

	if fam.Phi == nil {
		if lam.Phi != nil {
			// A guarded lambda checked against an unguarded Pi has no
			// applicable rule. Treated as a mismatch rather than
			// silently discarding the guard.
			return &diag.Error{Code: diag.CodeUnexpected, A: lam, B: pi}
		}
		if lam.A != nil {
			if err := unify.Unify(st, lam.A, fam.A); err != nil {
				return err
			}
		}
		bodyAtX := term.Subst(fam.Body, fam.Var, term.Var{Name: lam.Var})
		return st.LocalTyping(lam.Var, fam.A, func() error {
			return Check(st, lam.Body, bodyAtX)
		})
	}

	if lam.Phi == nil {
		return &diag.Error{Code: diag.CodeUnexpected, A: lam, B: pi}
	}
	if lam.A != nil {
		if err := unify.Unify(st, lam.A, fam.A); err != nil {
			return err
		}
	}
	psiAtX := term.Subst(fam.Phi, fam.Var, term.Var{Name: lam.Var})
	if err := tope.EnsureEqTope(st, original, lam.Phi, psiAtX); err != nil {
		return err
	}
	bodyAtX := term.Subst(fam.Body, fam.Var, term.Var{Name: lam.Var})
	return st.LocalTyping(lam.Var, fam.A, func() error {
		return st.LocalConstraint(lam.Phi, func() error {
			return Check(st, lam.Body, bodyAtX)
		})
	})
}

func checkLambdaAgainstExtension(st *checker.State, lam term.Lambda, ext term.ExtensionType, original term.Term) error {
	if lam.A != nil {
		if err := Check(st, lam.A, term.Cube{}); err != nil {
			return err
		}
		if err := unify.Unify(st, lam.A, ext.I); err != nil {
			return err
		}
	}
	var psiPrime term.Term = lam.Phi
	if psiPrime == nil {
		psiPrime = term.TopeTop{}
	}

	return st.LocalTyping(lam.Var, ext.I, func() error {
		psiAtX := term.Subst(ext.Psi, ext.Var, term.Var{Name: lam.Var})
		if err := tope.EnsureEqTope(st, original, psiPrime, psiAtX); err != nil {
			return err
		}
		bodyAtX := term.Subst(ext.A, ext.Var, term.Var{Name: lam.Var})
		return st.LocalConstraint(psiPrime, func() error {
			if err := Check(st, lam.Body, bodyAtX); err != nil {
				return err
			}
			phiAtX := term.Subst(ext.Phi, ext.Var, term.Var{Name: lam.Var})
			return st.LocalConstraint(phiAtX, func() error {
				evaledBody, err := eval.EvalType(st, lam.Body)
				if err != nil {
					return &diag.Error{Code: diag.CodeEval, Term: lam.Body, EvalErr: err}
				}
				a0AtX := term.Subst(ext.A0, ext.Var, term.Var{Name: lam.Var})
				return unify.Unify(st, evaledBody, a0AtX)
			})
		})
	})
}

// InferTypeFamily checks that a Lambda used as a Pi/Sigma family has a
// supported shape and returns Universe.
func InferTypeFamily(st *checker.State, lam term.Lambda) (term.Term, error) {
	if lam.A == nil {
		return nil, &diag.Error{Code: diag.CodeInvalidTypeFamily, Term: lam}
	}
	if lam.Phi == nil {
		if err := Check(st, lam.A, term.Universe{}); err != nil {
			return nil, err
		}
		err := st.LocalTyping(lam.Var, lam.A, func() error {
			return Check(st, lam.Body, term.Universe{})
		})
		if err != nil {
			return nil, err
		}
		return term.Universe{}, nil
	}

	if err := Check(st, lam.A, term.Cube{}); err != nil {
		return nil, err
	}
	err := st.LocalTyping(lam.Var, lam.A, func() error {
		if err := Check(st, lam.Phi, term.Tope{}); err != nil {
			return err
		}
		return st.LocalConstraint(lam.Phi, func() error {
			return Check(st, lam.Body, term.Universe{})
		})
	})
	if err != nil {
		return nil, err
	}
	return term.Universe{}, nil
}
