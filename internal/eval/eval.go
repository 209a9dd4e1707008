// Package eval implements weak normalization under the current value
// environment and hole store, plus the extension-application reduction
// that makes extension types computationally relevant.
package eval

import (
	"fmt"

	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/term"
)

// Error is the evaluator's own error kind, re-raised by the checker as
// diag.Error{Code: diag.CodeEval}.
type Error struct {
	Term term.Term
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("eval error: %s", e.Msg)
}

// Eval is weak normalization: it unfolds known variables, reduces
// beta-redexes, projects from explicit pairs, reduces IdJ on Refl, and
// otherwise evaluates children without entering binders except to
// rename for capture avoidance.
func Eval(st *checker.State, t term.Term) (term.Term, error) {
	switch n := t.(type) {
	case term.Var:
		if v, ok := st.LookupVar(n.Name); ok {
			return Eval(st, v)
		}
		return n, nil

	case term.Hole:
		if v, ok := st.LookupHole(n.Name); ok {
			return Eval(st, v)
		}
		return n, nil

	case term.TypedTerm:
		// The ascription is only used to guide inference upstream
		//; evaluation just forces the underlying term.
		return Eval(st, n.Term)

	case term.App:
		fun, err := Eval(st, n.Fun)
		if err != nil {
			return nil, err
		}
		arg, err := Eval(st, n.Arg)
		if err != nil {
			return nil, err
		}
		if lam, ok := fun.(term.Lambda); ok {
			return Eval(st, term.Subst(lam.Body, lam.Var, arg))
		}
		return term.App{Fun: fun, Arg: arg}, nil

	case term.Pair:
		f, err := Eval(st, n.First)
		if err != nil {
			return nil, err
		}
		s, err := Eval(st, n.Second)
		if err != nil {
			return nil, err
		}
		return term.Pair{First: f, Second: s}, nil

	case term.First:
		p, err := Eval(st, n.Pair)
		if err != nil {
			return nil, err
		}
		if pr, ok := p.(term.Pair); ok {
			return Eval(st, pr.First)
		}
		if isStuck(p) {
			return term.First{Pair: p}, nil
		}
		return nil, &Error{Term: t, Msg: fmt.Sprintf("cannot project first of non-pair %T", p)}

	case term.Second:
		p, err := Eval(st, n.Pair)
		if err != nil {
			return nil, err
		}
		if pr, ok := p.(term.Pair); ok {
			return Eval(st, pr.Second)
		}
		if isStuck(p) {
			return term.Second{Pair: p}, nil
		}
		return nil, &Error{Term: t, Msg: fmt.Sprintf("cannot project second of non-pair %T", p)}

	case term.IdJ:
		p, err := Eval(st, n.P)
		if err != nil {
			return nil, err
		}
		if _, ok := p.(term.Refl); ok {
			return Eval(st, n.D)
		}
		a, err := Eval(st, n.A)
		if err != nil {
			return nil, err
		}
		a0, err := Eval(st, n.A0)
		if err != nil {
			return nil, err
		}
		c, err := Eval(st, n.C)
		if err != nil {
			return nil, err
		}
		d, err := Eval(st, n.D)
		if err != nil {
			return nil, err
		}
		x, err := Eval(st, n.X)
		if err != nil {
			return nil, err
		}
		return term.IdJ{A: a, A0: a0, C: c, D: d, X: x, P: p}, nil

	case term.Refl:
		var a term.Term
		var err error
		if n.A != nil {
			a, err = Eval(st, n.A)
			if err != nil {
				return nil, err
			}
		}
		x, err := Eval(st, n.X)
		if err != nil {
			return nil, err
		}
		return term.Refl{A: a, X: x}, nil

	case term.IdType:
		a, err := Eval(st, n.A)
		if err != nil {
			return nil, err
		}
		x, err := Eval(st, n.X)
		if err != nil {
			return nil, err
		}
		y, err := Eval(st, n.Y)
		if err != nil {
			return nil, err
		}
		return term.IdType{A: a, X: x, Y: y}, nil

	case term.CubeProd:
		i, err := Eval(st, n.I)
		if err != nil {
			return nil, err
		}
		j, err := Eval(st, n.J)
		if err != nil {
			return nil, err
		}
		return term.CubeProd{I: i, J: j}, nil

	case term.TopeOr:
		l, err := Eval(st, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(st, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeOr{Left: l, Right: r}, nil

	case term.TopeAnd:
		l, err := Eval(st, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(st, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeAnd{Left: l, Right: r}, nil

	case term.TopeEQ:
		l, err := Eval(st, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(st, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeEQ{Left: l, Right: r}, nil

	case term.TopeLEQ:
		l, err := Eval(st, n.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(st, n.Right)
		if err != nil {
			return nil, err
		}
		return term.TopeLEQ{Left: l, Right: r}, nil

	case term.RecOr:
		a, err := Eval(st, n.A)
		if err != nil {
			return nil, err
		}
		b, err := Eval(st, n.B)
		if err != nil {
			return nil, err
		}
		return term.RecOr{Psi: n.Psi, Phi: n.Phi, A: a, B: b}, nil

	case term.ExtensionType:
		i, err := Eval(st, n.I)
		if err != nil {
			return nil, err
		}
		return term.ExtensionType{Var: n.Var, I: i, Psi: n.Psi, A: n.A, Phi: n.Phi, A0: n.A0}, nil

	case term.Pi, term.Sigma, term.Lambda,
		term.Universe, term.Cube, term.CubeUnit, term.CubeUnitStar,
		term.Cube2, term.Cube2_0, term.Cube2_1, term.Tope, term.TopeTop,
		term.TopeBottom, term.RecBottom:
		// Evaluation does not enter binders; these are already in
		// normal form at the head.
		return n, nil
	}
	return t, nil
}

// isStuck reports whether t is a neutral term: one whose further
// reduction is blocked only by an unresolved variable or hole, not a
// genuine type error. Used to decide whether a failed projection is a
// real EvalError or a legitimately stuck normal form.
func isStuck(t term.Term) bool {
	switch n := t.(type) {
	case term.Var, term.Hole, term.RecBottom:
		return true
	case term.App:
		return isStuck(n.Fun)
	case term.First:
		return isStuck(n.Pair)
	case term.Second:
		return isStuck(n.Pair)
	case term.IdJ:
		return isStuck(n.P)
	case term.RecOr:
		return true
	default:
		return false
	}
}
