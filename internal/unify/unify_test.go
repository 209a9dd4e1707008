package unify

import (
	"testing"

	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

func TestUnifyIdenticalAtomsSucceed(t *testing.T) {
	st := checker.New()
	if err := Unify(st, term.Cube{}, term.Cube{}); err != nil {
		t.Errorf("Unify(Cube, Cube) = %v, want nil", err)
	}
}

func TestUnifyDistinctAtomsFail(t *testing.T) {
	st := checker.New()
	if err := Unify(st, term.Cube{}, term.Tope{}); err == nil {
		t.Errorf("Unify(Cube, Tope) succeeded, want a mismatch error")
	}
}

func TestUnifySolvesHoleOnLeft(t *testing.T) {
	st := checker.New()
	h := st.FreshHole("h")
	if err := Unify(st, term.Hole{Name: h}, term.CubeUnitStar{}); err != nil {
		t.Fatalf("Unify: %v", err)
	}
	sol, ok := st.LookupHole(h)
	if !ok || !term.Equal(sol, term.CubeUnitStar{}) {
		t.Errorf("hole not solved: got %v, ok=%v", sol, ok)
	}
}

// The source this unifier is grounded on recurses as unify (Var x) t1
// when the hole is on the right, rather than solving it — the hole is
// treated as a plain variable. This is preserved deliberately (see
// unify1's comment), so unifying App{f, ?h} against App{f, App{g, y}}
// must fail (?h is compared as a bare variable, not bound to g y),
// even though first-order unification could solve it directly.
func TestUnifyHoleOnRightIsTreatedAsVar(t *testing.T) {
	st := checker.New()
	h := st.FreshHole("h")
	f := term.Var{Name: term.Name{Base: "f"}}
	g := term.Var{Name: term.Name{Base: "g"}}
	y := term.Var{Name: term.Name{Base: "y"}}

	lhs := term.App{Fun: f, Arg: term.App{Fun: g, Arg: y}}
	rhs := term.App{Fun: f, Arg: term.Hole{Name: h}}

	err := Unify(st, lhs, rhs)
	if err == nil {
		t.Fatalf("Unify succeeded; expected failure since the hole-on-right quirk never solves h")
	}
	if _, solved := st.LookupHole(h); solved {
		t.Errorf("h got solved despite being on the right-hand side")
	}
}

func TestUnifyOccursCheckRejectsInfiniteType(t *testing.T) {
	st := checker.New()
	h := st.FreshHole("h")
	g := term.Var{Name: term.Name{Base: "g"}}
	cyclic := term.App{Fun: g, Arg: term.Hole{Name: h}}

	err := Unify(st, term.Hole{Name: h}, cyclic)
	if err == nil {
		t.Fatalf("Unify(?h, g ?h) succeeded, want an infinite-type error")
	}
	de, ok := err.(*diag.Error)
	if !ok || de.Code != diag.CodeInfinite {
		t.Errorf("got %v, want diag.CodeInfinite", err)
	}
}

func TestUnifyFunctionExtensionality(t *testing.T) {
	st := checker.New()
	x := term.Name{Base: "x"}
	f := term.Var{Name: term.Name{Base: "f"}}
	// \x. f x is eta-equal to the neutral f itself.
	lam := term.Lambda{Var: x, Body: term.App{Fun: f, Arg: term.Var{Name: x}}}

	if err := Unify(st, lam, f); err != nil {
		t.Errorf("Unify(\\x. f x, f) via function eta = %v, want nil", err)
	}
}

func TestUnifyPairExtensionality(t *testing.T) {
	st := checker.New()
	p := term.Var{Name: term.Name{Base: "p"}}
	// (first p, second p) is eta-equal to the neutral pair p itself.
	pr := term.Pair{First: term.First{Pair: p}, Second: term.Second{Pair: p}}

	if err := Unify(st, pr, p); err != nil {
		t.Errorf("Unify((first p, second p), p) via pair eta = %v, want nil", err)
	}
}

func TestUnifyPiBindersRenameConsistently(t *testing.T) {
	st := checker.New()
	x, y := term.Name{Base: "x"}, term.Name{Base: "y"}
	pi1 := term.MkPi(x, term.Cube{}, term.Var{Name: x})
	pi2 := term.MkPi(y, term.Cube{}, term.Var{Name: y})
	if err := Unify(st, pi1, pi2); err != nil {
		t.Errorf("Unify(Pi(x:Cube).x, Pi(y:Cube).y) = %v, want nil (alpha-equivalent)", err)
	}
}

func TestUnifyExtensionTypesRequireBoundaryAgreement(t *testing.T) {
	st := checker.New()
	v := term.Name{Base: "t"}
	mk := func(a0 term.Term) term.ExtensionType {
		return term.ExtensionType{Var: v, I: term.Cube2{}, Psi: term.TopeTop{}, A: term.Universe{}, Phi: term.TopeTop{}, A0: a0}
	}
	if err := Unify(st, mk(term.CubeUnitStar{}), mk(term.CubeUnitStar{})); err != nil {
		t.Errorf("identical extension types failed to unify: %v", err)
	}
	if err := Unify(st, mk(term.CubeUnitStar{}), mk(term.Cube2_0{})); err == nil {
		t.Errorf("extension types with disagreeing boundaries unified")
	}
}
