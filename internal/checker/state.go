// Package checker holds the typing context and metavariable store that
// the evaluator, tope entailment engine, unifier, and bidirectional
// checker all share and mutate.
package checker

import "github.com/rzk-lang/rzk/internal/term"

// EnvEntry is one binding in the ordered value environment.
type EnvEntry struct {
	Var term.Name
	Val term.Term
}

// Inferrer is the capability the evaluator needs to decide whether an
// application's function side has an ExtensionType, without the
// evaluator package importing the checker package upward.
type Inferrer interface {
	Infer(t term.Term) (term.Term, error)
}

// State is the triple (types, env, topes) plus the hole store. It is
// mutable, thread-local state: exactly one goroutine may own it between
// construction and the end of a check.
type State struct {
	types map[term.Name]term.Term
	env   []EnvEntry
	topes []term.Term

	holesKnown    map[term.Name]term.Term
	holesDeclared map[term.Name]bool
	freshCounter  int

	// Inferrer and Entails are capabilities wired in by the top-level
	// setup (package module), not by this package, so that the acyclic
	// dependency term -> checker -> eval -> tope -> unify -> check can
	// still let the evaluator call back into inference and entailment.
	Inferrer Inferrer
	Entails  func(phi term.Term) bool
}

// New creates an empty typing context with an empty hole store.
func New() *State {
	return &State{
		types:         make(map[term.Name]term.Term),
		holesKnown:    make(map[term.Name]term.Term),
		holesDeclared: make(map[term.Name]bool),
	}
}

// LookupType returns the declared type of a free variable in scope.
func (s *State) LookupType(x term.Name) (term.Term, bool) {
	t, ok := s.types[x]
	return t, ok
}

// SetType records the declared type of x, overwriting any prior type.
func (s *State) SetType(x term.Name, a term.Term) {
	s.types[x] = a
}

// UnsetType removes the declared type of x.
func (s *State) UnsetType(x term.Name) {
	delete(s.types, x)
}

// LocalTyping pushes an assumption x : A (A may be nil, "no type yet"),
// runs k, and restores the prior binding on every exit path including an
// error return.
func (s *State) LocalTyping(x term.Name, a term.Term, k func() error) error {
	prev, had := s.types[x]
	if a != nil {
		s.types[x] = a
	}
	defer func() {
		if had {
			s.types[x] = prev
		} else {
			delete(s.types, x)
		}
	}()
	return k()
}

// LocalVar pushes a value binding (x := t) onto env for the duration of
// k, used by evaluation/unfolding, and pops it on every exit path.
func (s *State) LocalVar(x term.Name, t term.Term, k func() error) error {
	s.env = append(s.env, EnvEntry{Var: x, Val: t})
	defer func() {
		s.env = s.env[:len(s.env)-1]
	}()
	return k()
}

// DefineVar permanently extends env with x := t. Unlike LocalVar's
// scoped push/pop, this binding is never popped; it is how the module
// driver accumulates declarations across a module.
func (s *State) DefineVar(x term.Name, t term.Term) {
	s.env = append(s.env, EnvEntry{Var: x, Val: t})
}

// LookupVar searches env from most-recent to oldest (ordinary shadowing).
func (s *State) LookupVar(x term.Name) (term.Term, bool) {
	for i := len(s.env) - 1; i >= 0; i-- {
		if s.env[i].Var == x {
			return s.env[i].Val, true
		}
	}
	return nil, false
}

// LocalConstraint pushes a believed-true tope φ for the duration of k,
// and pops it on every exit path, including error.
func (s *State) LocalConstraint(phi term.Term, k func() error) error {
	s.topes = append(s.topes, phi)
	defer func() {
		s.topes = s.topes[:len(s.topes)-1]
	}()
	return k()
}

// Topes returns the currently believed-true topes, oldest first.
func (s *State) Topes() []term.Term {
	return append([]term.Term(nil), s.topes...)
}

// Env returns the currently active value bindings, oldest first.
func (s *State) Env() []EnvEntry {
	return append([]EnvEntry(nil), s.env...)
}

// Types returns a snapshot of the typing assumptions (for context dumps).
func (s *State) Types() map[term.Name]term.Term {
	out := make(map[term.Name]term.Term, len(s.types))
	for k, v := range s.types {
		out[k] = v
	}
	return out
}
