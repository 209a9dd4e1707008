package tope

import (
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

// EnsureContext emits TopeContextNotSatisfied when Γ does not entail φ
// while checking t.
func EnsureContext(st *checker.State, t, phi term.Term) error {
	ok, err := Entails(st, phi)
	if err != nil {
		return &diag.Error{Code: diag.CodeEval, Term: t, EvalErr: err}
	}
	if !ok {
		return &diag.Error{
			Code:  diag.CodeTopeContextNotSat,
			Term:  t,
			Phi:   phi,
			Topes: st.Topes(),
		}
	}
	return nil
}

// EnsureSubTope checks {φ} ⊢ ψ.
func EnsureSubTope(st *checker.State, t, psi, phi term.Term) error {
	return st.LocalConstraint(phi, func() error {
		return EnsureContext(st, t, psi)
	})
}

// EnsureEqTope checks both {ψ}⊢φ and {φ}⊢ψ. Symmetry is
// guaranteed by the saturation procedure, not by this call site.
func EnsureEqTope(st *checker.State, t, psi, phi term.Term) error {
	if err := EnsureSubTope(st, t, phi, psi); err != nil {
		return err
	}
	return EnsureSubTope(st, t, psi, phi)
}
