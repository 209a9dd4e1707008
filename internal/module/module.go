// Package module drives the sequential declaration loop: evaluate each
// declaration's type, check its body against that type, and extend the
// typing context and value environment for the declarations that
// follow.
package module

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rzk-lang/rzk/internal/check"
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/eval"
	"github.com/rzk-lang/rzk/internal/term"
	"github.com/rzk-lang/rzk/internal/tope"
)

// Decl is one top-level declaration in source order: name : type := body.
type Decl struct {
	Name term.Name
	Type term.Term
	Body term.Term
}

// ParsedModule is the parser collaborator's contract: a list of
// declarations plus a sparse map from sub-term to source location, used
// to attach a location to whichever declaration fails.
type ParsedModule struct {
	Path      string
	ASTHash   string
	Decls     []Decl
	Locations map[term.Term]diag.Loc
}

// CheckedDecl is a declaration that has passed Check, suitable for
// caching and for seeding a later module's starting environment in
// incremental mode.
type CheckedDecl struct {
	Name term.Name
	Type term.Term
	Body term.Term
}

// Cache is the optional incremental-check collaborator: a file whose
// parsed AST hash matches a cached entry can skip rechecking.
type Cache interface {
	Lookup(path, astHash string) ([]CheckedDecl, bool)
	Store(path, astHash string, decls []CheckedDecl)
}

// Result is what CheckModule returns on success: the run's identifier
// (attached to every diag.Error it could have produced) and the
// checked declarations, for a caller that wants to cache them.
type Result struct {
	RunID string
	Decls []CheckedDecl
}

// NewState builds a checker.State with the Inferrer and Entails
// capabilities wired in, resolving the dependency cycle between the
// evaluator and both inference and tope entailment.
func NewState() *checker.State {
	st := checker.New()
	st.Inferrer = check.NewInferrer(st)
	st.Entails = func(phi term.Term) bool {
		ok, err := tope.Entails(st, phi)
		return err == nil && ok
	}
	return st
}

// CheckModule type-checks pm's declarations in source order against the
// given state, threading the accumulated context between them. An error
// on declaration i halts processing and carries a location derived from
// that declaration's type (or body, if the type has none). If pm's AST
// hash matches a cache entry, checking is skipped and the cached
// declarations are bound directly instead.
func CheckModule(st *checker.State, pm ParsedModule, cache Cache) (Result, error) {
	runID := uuid.NewString()

	if cache != nil {
		if cached, ok := cache.Lookup(pm.Path, pm.ASTHash); ok {
			for _, d := range cached {
				st.SetType(d.Name, d.Type)
				st.DefineVar(d.Name, d.Body)
			}
			return Result{RunID: runID, Decls: cached}, nil
		}
	}

	checked := make([]CheckedDecl, 0, len(pm.Decls))

	for _, d := range pm.Decls {
		declType, err := eval.EvalType(st, d.Type)
		if err != nil {
			return Result{}, attachLocation(&diag.Error{Code: diag.CodeEval, Term: d.Type, EvalErr: err, RunID: runID}, pm, d)
		}
		if err := check.Check(st, d.Body, declType); err != nil {
			return Result{}, attachLocation(taggedError(err, runID), pm, d)
		}
		st.SetType(d.Name, declType)
		st.DefineVar(d.Name, d.Body)
		checked = append(checked, CheckedDecl{Name: d.Name, Type: declType, Body: d.Body})
	}

	if cache != nil {
		cache.Store(pm.Path, pm.ASTHash, checked)
	}

	return Result{RunID: runID, Decls: checked}, nil
}

func taggedError(err error, runID string) error {
	if de, ok := err.(*diag.Error); ok {
		de.RunID = runID
		return de
	}
	return err
}

func attachLocation(err error, pm ParsedModule, d Decl) error {
	de, ok := err.(*diag.Error)
	if !ok {
		return fmt.Errorf("checking %s: %w", d.Name, err)
	}
	if loc, ok := pm.Locations[d.Type]; ok && loc.IsKnown() {
		de.Loc = loc
		return de
	}
	if loc, ok := pm.Locations[d.Body]; ok && loc.IsKnown() {
		de.Loc = loc
	}
	return de
}
