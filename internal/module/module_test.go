package module

import (
	"testing"

	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

func TestCheckModuleChecksDeclarationsInOrder(t *testing.T) {
	st := NewState()
	pm := NewBuilder("a.rzk").
		Decl("myCube", term.Universe{}, term.Cube{}).
		Decl("star", term.CubeUnit{}, term.CubeUnitStar{}).
		Build()

	result, err := CheckModule(st, pm, nil)
	if err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
	if len(result.Decls) != 2 {
		t.Fatalf("got %d checked decls, want 2", len(result.Decls))
	}
	if result.RunID == "" {
		t.Errorf("Result.RunID is empty")
	}

	// Both declarations must now be bound in st's env for whatever
	// comes after this module.
	if _, ok := st.LookupVar(term.Name{Base: "myCube"}); !ok {
		t.Errorf("myCube was not defined in the environment after CheckModule")
	}
	if _, ok := st.LookupVar(term.Name{Base: "star"}); !ok {
		t.Errorf("star was not defined in the environment after CheckModule")
	}
}

func TestCheckModuleLaterDeclarationSeesEarlierOne(t *testing.T) {
	st := NewState()
	starRef := term.Var{Name: term.Name{Base: "star"}}
	pm := NewBuilder("a.rzk").
		Decl("star", term.CubeUnit{}, term.CubeUnitStar{}).
		Decl("alias", term.CubeUnit{}, starRef).
		Build()

	if _, err := CheckModule(st, pm, nil); err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
}

func TestCheckModuleFailureAttachesLocationFromType(t *testing.T) {
	st := NewState()
	badType := term.Tope{}
	loc := diag.Loc{File: "b.rzk", Line: 3, Column: 5}
	pm := NewBuilder("b.rzk").
		Loc(badType, loc).
		Decl("bad", badType, term.CubeUnitStar{}).
		Build()

	_, err := CheckModule(st, pm, nil)
	if err == nil {
		t.Fatalf("expected an error checking * against Tope")
	}
	de, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("got %T, want *diag.Error", err)
	}
	if de.Loc != loc {
		t.Errorf("Loc = %v, want %v", de.Loc, loc)
	}
	if de.RunID == "" {
		t.Errorf("RunID was not attached to the error")
	}
}

func TestCheckModuleFailureFallsBackToBodyLocation(t *testing.T) {
	st := NewState()
	badBody := term.Tope{}
	loc := diag.Loc{File: "c.rzk", Line: 7}
	pm := NewBuilder("c.rzk").
		Loc(badBody, loc).
		Decl("bad", term.CubeUnit{}, badBody).
		Build()

	_, err := CheckModule(st, pm, nil)
	if err == nil {
		t.Fatalf("expected an error checking Tope (a type, inferred : Universe) against CubeUnit")
	}
	de, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("got %T, want *diag.Error", err)
	}
	if de.Loc != loc {
		t.Errorf("Loc = %v, want the body's location %v", de.Loc, loc)
	}
}

func TestCheckModuleStopsAtFirstFailure(t *testing.T) {
	st := NewState()
	pm := NewBuilder("d.rzk").
		Decl("first", term.Tope{}, term.CubeUnit{}).
		Decl("second", term.Universe{}, term.Tope{}).
		Build()

	_, err := CheckModule(st, pm, nil)
	if err == nil {
		t.Fatalf("expected the first declaration to fail")
	}
	if _, ok := st.LookupVar(term.Name{Base: "second"}); ok {
		t.Errorf("second was defined even though first failed first")
	}
}

// fakeCache is an in-memory stand-in for the SQLite-backed cache, keyed
// by (path, astHash), used so these tests never touch the filesystem.
type fakeCache struct {
	stored map[string][]CheckedDecl
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: map[string][]CheckedDecl{}}
}

func (c *fakeCache) key(path, hash string) string { return path + "\x00" + hash }

func (c *fakeCache) Lookup(path, astHash string) ([]CheckedDecl, bool) {
	decls, ok := c.stored[c.key(path, astHash)]
	return decls, ok
}

func (c *fakeCache) Store(path, astHash string, decls []CheckedDecl) {
	c.stored[c.key(path, astHash)] = decls
}

func TestCheckModuleStoresIntoCacheOnFirstCheck(t *testing.T) {
	st := NewState()
	cache := newFakeCache()
	pm := NewBuilder("e.rzk").Hash("h1").
		Decl("star", term.CubeUnit{}, term.CubeUnitStar{}).
		Build()

	if _, err := CheckModule(st, pm, cache); err != nil {
		t.Fatalf("CheckModule: %v", err)
	}
	decls, ok := cache.Lookup("e.rzk", "h1")
	if !ok || len(decls) != 1 {
		t.Fatalf("cache.Lookup after a first check = %v, %v, want the one checked decl", decls, ok)
	}
}

func TestCheckModuleSkipsCheckingOnCacheHit(t *testing.T) {
	st := NewState()
	cache := newFakeCache()
	cache.Store("e.rzk", "h1", []CheckedDecl{
		{Name: term.Name{Base: "star"}, Type: term.CubeUnit{}, Body: term.CubeUnitStar{}},
	})

	// This declaration's body is ill-typed, but since it's a cache hit
	// the body is never re-checked: the stale cached decl is trusted and
	// bound directly.
	pm := NewBuilder("e.rzk").Hash("h1").
		Decl("star", term.Tope{}, term.Universe{}).
		Build()

	result, err := CheckModule(st, pm, cache)
	if err != nil {
		t.Fatalf("CheckModule on a cache hit should not re-check: %v", err)
	}
	if len(result.Decls) != 1 || !term.Equal(result.Decls[0].Type, term.CubeUnit{}) {
		t.Errorf("got %v, want the cached decl bound verbatim", result.Decls)
	}
	val, ok := st.LookupVar(term.Name{Base: "star"})
	if !ok || !term.Equal(val, term.CubeUnitStar{}) {
		t.Errorf("env binding after a cache hit = %v, %v, want the cached body", val, ok)
	}
}

func TestCheckModuleEmptyDeclsSucceeds(t *testing.T) {
	st := NewState()
	pm := NewBuilder("empty.rzk").Build()
	result, err := CheckModule(st, pm, nil)
	if err != nil {
		t.Fatalf("CheckModule on an empty module: %v", err)
	}
	if len(result.Decls) != 0 {
		t.Errorf("got %d decls, want 0", len(result.Decls))
	}
}
