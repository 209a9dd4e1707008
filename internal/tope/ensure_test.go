package tope

import (
	"testing"

	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

func TestEnsureContextFailsWithTopeContextNotSat(t *testing.T) {
	st := checker.New()
	err := EnsureContext(st, term.Universe{}, term.TopeBottom{})
	if err == nil {
		t.Fatalf("expected a failure when the context does not entail BOT")
	}
	de, ok := err.(*diag.Error)
	if !ok || de.Code != diag.CodeTopeContextNotSat {
		t.Errorf("got %v, want diag.CodeTopeContextNotSat", err)
	}
}

func TestEnsureContextSucceedsUnderTop(t *testing.T) {
	st := checker.New()
	if err := EnsureContext(st, term.Universe{}, term.TopeTop{}); err != nil {
		t.Errorf("EnsureContext(_, TOP) = %v, want nil", err)
	}
}

func TestEnsureEqTopeBothDirections(t *testing.T) {
	st := checker.New()
	// psi and phi are syntactically equal, so each trivially entails the
	// other under itself as a local constraint.
	psi := term.TopeLEQ{Left: term.Cube2_0{}, Right: term.Cube2_1{}}
	if err := EnsureEqTope(st, term.Universe{}, psi, psi); err != nil {
		t.Errorf("EnsureEqTope(psi, psi) = %v, want nil", err)
	}
}

func TestEnsureEqTopeFailsOnUnrelatedTopes(t *testing.T) {
	st := checker.New()
	psi := term.TopeLEQ{Left: term.Cube2_0{}, Right: term.Cube2_1{}}
	phi := term.TopeEQ{Left: term.Cube2_0{}, Right: term.Cube2_0{}}
	if err := EnsureEqTope(st, term.Universe{}, psi, phi); err == nil {
		t.Errorf("EnsureEqTope accepted 0 <= 1 and 0 = 0, though 0 = 0 does not entail 0 <= 1")
	}
}
