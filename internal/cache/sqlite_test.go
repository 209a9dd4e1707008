package cache

import (
	"path/filepath"
	"testing"

	"github.com/rzk-lang/rzk/internal/module"
	"github.com/rzk-lang/rzk/internal/term"
)

func openTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupMissesOnEmptyCache(t *testing.T) {
	c := openTestCache(t)
	_, ok := c.Lookup("foo.rzk", "deadbeef")
	if ok {
		t.Error("Lookup() on empty cache = true, want false")
	}
}

func TestStoreThenLookupRoundTrips(t *testing.T) {
	c := openTestCache(t)
	decls := []module.CheckedDecl{
		{Name: term.Name{Base: "id"}, Type: term.Pi{Family: term.Lambda{Var: term.Name{Base: "x"}, Body: term.Universe{}}}, Body: term.Lambda{Var: term.Name{Base: "x"}, Body: term.Var{Name: term.Name{Base: "x"}}}},
		{Name: term.Name{Base: "myCube"}, Type: term.Universe{}, Body: term.Cube{}},
	}

	c.Store("foo.rzk", "deadbeef", decls)

	got, ok := c.Lookup("foo.rzk", "deadbeef")
	if !ok {
		t.Fatal("Lookup() after Store() = false, want true")
	}
	if len(got) != len(decls) {
		t.Fatalf("Lookup() returned %d decls, want %d", len(got), len(decls))
	}
	for i, d := range decls {
		if got[i].Name != d.Name {
			t.Errorf("decl %d Name = %v, want %v", i, got[i].Name, d.Name)
		}
	}
}

func TestLookupMissesOnASTHashMismatch(t *testing.T) {
	c := openTestCache(t)
	c.Store("foo.rzk", "deadbeef", []module.CheckedDecl{
		{Name: term.Name{Base: "x"}, Type: term.Universe{}, Body: term.Cube{}},
	})

	_, ok := c.Lookup("foo.rzk", "somethingelse")
	if ok {
		t.Error("Lookup() with mismatched ast hash = true, want false")
	}
}

func TestStoreOverwritesExistingEntryForSameKey(t *testing.T) {
	c := openTestCache(t)
	c.Store("foo.rzk", "deadbeef", []module.CheckedDecl{
		{Name: term.Name{Base: "first"}, Type: term.Universe{}, Body: term.Cube{}},
	})
	c.Store("foo.rzk", "deadbeef", []module.CheckedDecl{
		{Name: term.Name{Base: "second"}, Type: term.Universe{}, Body: term.Tope{}},
	})

	got, ok := c.Lookup("foo.rzk", "deadbeef")
	if !ok {
		t.Fatal("Lookup() after overwrite = false, want true")
	}
	if len(got) != 1 || got[0].Name.Base != "second" {
		t.Errorf("Lookup() = %v, want a single decl named \"second\"", got)
	}
}

func TestCheckConfigFingerprintReportsChangeOnFirstCall(t *testing.T) {
	c := openTestCache(t)
	changed, err := c.CheckConfigFingerprint([]byte("include: [\"*.rzk\"]\n"))
	if err != nil {
		t.Fatalf("CheckConfigFingerprint() = %v, want nil", err)
	}
	if !changed {
		t.Error("CheckConfigFingerprint() on fresh cache = false, want true")
	}
}

func TestCheckConfigFingerprintIsStableAcrossIdenticalCalls(t *testing.T) {
	c := openTestCache(t)
	data := []byte("include: [\"*.rzk\"]\n")

	if _, err := c.CheckConfigFingerprint(data); err != nil {
		t.Fatalf("CheckConfigFingerprint() first call = %v, want nil", err)
	}
	changed, err := c.CheckConfigFingerprint(data)
	if err != nil {
		t.Fatalf("CheckConfigFingerprint() second call = %v, want nil", err)
	}
	if changed {
		t.Error("CheckConfigFingerprint() on unchanged config = true, want false")
	}
}

func TestCheckConfigFingerprintInvalidatesCacheOnChange(t *testing.T) {
	c := openTestCache(t)

	if _, err := c.CheckConfigFingerprint([]byte("include: [\"*.rzk\"]\n")); err != nil {
		t.Fatalf("CheckConfigFingerprint() first call = %v, want nil", err)
	}
	c.Store("foo.rzk", "deadbeef", []module.CheckedDecl{
		{Name: term.Name{Base: "x"}, Type: term.Universe{}, Body: term.Cube{}},
	})

	changed, err := c.CheckConfigFingerprint([]byte("include: [\"*.rzk\", \"lib/*.rzk\"]\n"))
	if err != nil {
		t.Fatalf("CheckConfigFingerprint() second call = %v, want nil", err)
	}
	if !changed {
		t.Error("CheckConfigFingerprint() on changed config = false, want true")
	}

	if _, ok := c.Lookup("foo.rzk", "deadbeef"); ok {
		t.Error("Lookup() after config change = true, want false (cache should be invalidated)")
	}
}

func TestOpenIsReentrantAcrossProcessRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() first = %v, want nil", err)
	}
	c1.Store("foo.rzk", "deadbeef", []module.CheckedDecl{
		{Name: term.Name{Base: "x"}, Type: term.Universe{}, Body: term.Cube{}},
	})
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() second = %v, want nil", err)
	}
	defer c2.Close()

	got, ok := c2.Lookup("foo.rzk", "deadbeef")
	if !ok {
		t.Fatal("Lookup() after reopen = false, want true")
	}
	if len(got) != 1 || got[0].Name.Base != "x" {
		t.Errorf("Lookup() after reopen = %v, want a single decl named \"x\"", got)
	}
}
