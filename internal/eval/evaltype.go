package eval

import (
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/term"
)

// EvalType is eval ∘ evalExtensionApps ∘ eval.
func EvalType(st *checker.State, t term.Term) (term.Term, error) {
	t1, err := Eval(st, t)
	if err != nil {
		return nil, err
	}
	t2, err := evalExtensionApps(st, t1)
	if err != nil {
		return nil, err
	}
	return Eval(st, t2)
}

// evalExtensionApps rewrites App f x whose f infers to an ExtensionType
// as its boundary value, when the tope context entails the boundary
// guard, applied fix-point style across the whole term.
// It needs both the Inferrer and Entails capabilities the checker wires
// into the state.
func evalExtensionApps(st *checker.State, t term.Term) (term.Term, error) {
	switch n := t.(type) {
	case term.App:
		fun, err := evalExtensionApps(st, n.Fun)
		if err != nil {
			return nil, err
		}
		arg, err := evalExtensionApps(st, n.Arg)
		if err != nil {
			return nil, err
		}
		rewritten, fired, err := tryExtensionBeta(st, fun, arg)
		if err != nil {
			return nil, err
		}
		if fired {
			return evalExtensionApps(st, rewritten)
		}
		return term.App{Fun: fun, Arg: arg}, nil

	case term.TypedTerm:
		tt, err := evalExtensionApps(st, n.Term)
		if err != nil {
			return nil, err
		}
		ty, err := evalExtensionApps(st, n.Type)
		if err != nil {
			return nil, err
		}
		return term.TypedTerm{Term: tt, Type: ty}, nil
	case term.Pi:
		f, err := evalExtensionApps(st, n.Family)
		if err != nil {
			return nil, err
		}
		return term.Pi{Family: f}, nil
	case term.Sigma:
		f, err := evalExtensionApps(st, n.Family)
		if err != nil {
			return nil, err
		}
		return term.Sigma{Family: f}, nil
	case term.Lambda:
		var a, phi term.Term
		var err error
		if n.A != nil {
			if a, err = evalExtensionApps(st, n.A); err != nil {
				return nil, err
			}
		}
		if n.Phi != nil {
			if phi, err = evalExtensionApps(st, n.Phi); err != nil {
				return nil, err
			}
		}
		body, err := evalExtensionApps(st, n.Body)
		if err != nil {
			return nil, err
		}
		return term.Lambda{Var: n.Var, A: a, Phi: phi, Body: body}, nil
	case term.Pair:
		f, err := evalExtensionApps(st, n.First)
		if err != nil {
			return nil, err
		}
		s, err := evalExtensionApps(st, n.Second)
		if err != nil {
			return nil, err
		}
		return term.Pair{First: f, Second: s}, nil
	case term.First:
		p, err := evalExtensionApps(st, n.Pair)
		if err != nil {
			return nil, err
		}
		return term.First{Pair: p}, nil
	case term.Second:
		p, err := evalExtensionApps(st, n.Pair)
		if err != nil {
			return nil, err
		}
		return term.Second{Pair: p}, nil
	case term.IdType:
		a, err := evalExtensionApps(st, n.A)
		if err != nil {
			return nil, err
		}
		x, err := evalExtensionApps(st, n.X)
		if err != nil {
			return nil, err
		}
		y, err := evalExtensionApps(st, n.Y)
		if err != nil {
			return nil, err
		}
		return term.IdType{A: a, X: x, Y: y}, nil
	case term.Refl:
		var a term.Term
		var err error
		if n.A != nil {
			if a, err = evalExtensionApps(st, n.A); err != nil {
				return nil, err
			}
		}
		x, err := evalExtensionApps(st, n.X)
		if err != nil {
			return nil, err
		}
		return term.Refl{A: a, X: x}, nil
	case term.IdJ:
		fields := []term.Term{n.A, n.A0, n.C, n.D, n.X, n.P}
		out := make([]term.Term, len(fields))
		for i, f := range fields {
			r, err := evalExtensionApps(st, f)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return term.IdJ{A: out[0], A0: out[1], C: out[2], D: out[3], X: out[4], P: out[5]}, nil
	case term.CubeProd:
		i, err := evalExtensionApps(st, n.I)
		if err != nil {
			return nil, err
		}
		j, err := evalExtensionApps(st, n.J)
		if err != nil {
			return nil, err
		}
		return term.CubeProd{I: i, J: j}, nil
	case term.TopeOr:
		l, r, err := pair(st, n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeOr{Left: l, Right: r}, nil
	case term.TopeAnd:
		l, r, err := pair(st, n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeAnd{Left: l, Right: r}, nil
	case term.TopeEQ:
		l, r, err := pair(st, n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeEQ{Left: l, Right: r}, nil
	case term.TopeLEQ:
		l, r, err := pair(st, n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeLEQ{Left: l, Right: r}, nil
	case term.RecOr:
		a, err := evalExtensionApps(st, n.A)
		if err != nil {
			return nil, err
		}
		b, err := evalExtensionApps(st, n.B)
		if err != nil {
			return nil, err
		}
		return term.RecOr{Psi: n.Psi, Phi: n.Phi, A: a, B: b}, nil
	case term.ExtensionType:
		i, err := evalExtensionApps(st, n.I)
		if err != nil {
			return nil, err
		}
		a, err := evalExtensionApps(st, n.A)
		if err != nil {
			return nil, err
		}
		return term.ExtensionType{Var: n.Var, I: i, Psi: n.Psi, A: a, Phi: n.Phi, A0: n.A0}, nil
	default:
		return t, nil
	}
}

// ReduceExtensionApp attempts the extension-application reduction on a
// single, already-evaluated App node. It is exported for the unifier's
// App case, which attempts this reduction on each side before falling
// back to structural congruence.
func ReduceExtensionApp(st *checker.State, app term.App) (term.Term, bool, error) {
	fun, err := Eval(st, app.Fun)
	if err != nil {
		return nil, false, err
	}
	arg, err := Eval(st, app.Arg)
	if err != nil {
		return nil, false, err
	}
	return tryExtensionBeta(st, fun, arg)
}

func pair(st *checker.State, l, r term.Term) (term.Term, term.Term, error) {
	le, err := evalExtensionApps(st, l)
	if err != nil {
		return nil, nil, err
	}
	re, err := evalExtensionApps(st, r)
	if err != nil {
		return nil, nil, err
	}
	return le, re, nil
}

// tryExtensionBeta attempts the extension-application reduction on a
// single App node, given its already-processed Fun/Arg.
func tryExtensionBeta(st *checker.State, fun, arg term.Term) (term.Term, bool, error) {
	if st.Inferrer == nil {
		return nil, false, nil
	}
	funType, err := st.Inferrer.Infer(fun)
	if err != nil {
		// The function side may be ill-typed independent of this pass;
		// let the caller's own infer/check surface the real error.
		return nil, false, nil
	}
	ext, ok := funType.(term.ExtensionType)
	if !ok {
		return nil, false, nil
	}
	guard := term.Subst(ext.Phi, ext.Var, arg)
	guard, err = Eval(st, guard)
	if err != nil {
		return nil, false, err
	}
	if st.Entails == nil || !st.Entails(guard) {
		return nil, false, nil
	}
	boundary := term.Subst(ext.A0, ext.Var, arg)
	return boundary, true, nil
}
