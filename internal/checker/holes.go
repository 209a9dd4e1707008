package checker

import "github.com/rzk-lang/rzk/internal/term"

// FreshVar returns a variable name disjoint from every name this state
// has handed out so far.
func (s *State) FreshVar(base string) term.Name {
	s.freshCounter++
	return term.Name{Base: base, Suffix: s.freshCounter}
}

// FreshHole allocates a new metavariable, recording it in `declared`.
// Holes share the identifier space with variables.
func (s *State) FreshHole(base string) term.Name {
	s.freshCounter++
	h := term.Name{Base: "?" + base, Suffix: s.freshCounter}
	s.holesDeclared[h] = true
	return h
}

// LookupHole transitively chases a solved hole to its final term. Because
// InstantiateHole keeps the propagated-solutions invariant (below), a
// lookup never needs to chase more than one step through an
// already-solved hole — but we chase
// fully anyway so the invariant is a performance guarantee, not a
// correctness requirement callers must rely on.
func (s *State) LookupHole(h term.Name) (term.Term, bool) {
	t, ok := s.holesKnown[h]
	if !ok {
		return nil, false
	}
	for {
		if inner, ok := t.(term.Hole); ok {
			if next, ok := s.holesKnown[inner.Name]; ok {
				t = next
				continue
			}
		}
		return t, true
	}
}

// IsDeclared reports whether h was ever introduced by FreshHole.
func (s *State) IsDeclared(h term.Name) bool {
	return s.holesDeclared[h]
}

// InstantiateHole sets known[h] := t and rewrites every existing
// solution by substituting t for h, keeping the invariant "solutions are
// fully propagated". A hole
// solution is never retracted.
func (s *State) InstantiateHole(h term.Name, t term.Term) {
	s.holesKnown[h] = t
	for other, sol := range s.holesKnown {
		if other == h {
			continue
		}
		s.holesKnown[other] = term.Subst(sol, h, t)
	}
}

// Holes returns a snapshot of the solved holes, for context dumps.
func (s *State) Holes() map[term.Name]term.Term {
	out := make(map[term.Name]term.Term, len(s.holesKnown))
	for k, v := range s.holesKnown {
		out[k] = v
	}
	return out
}

// DeclaredHoles returns every hole name ever introduced by FreshHole.
func (s *State) DeclaredHoles() []term.Name {
	out := make([]term.Name, 0, len(s.holesDeclared))
	for h := range s.holesDeclared {
		out = append(out, h)
	}
	return out
}
