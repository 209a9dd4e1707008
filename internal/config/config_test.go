package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestParseDefaultsIncludeWhenEmpty(t *testing.T) {
	cfg, err := Parse([]byte("include: []\n"), "rzk.yaml")
	if err != nil {
		t.Fatalf("Parse(empty include) = %v, want nil", err)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "**/*.rzk" {
		t.Errorf("Include = %v, want [**/*.rzk]", cfg.Include)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("include: [\n"), "rzk.yaml")
	if err == nil {
		t.Fatal("Parse(malformed) = nil, want error")
	}
}

func TestParseReturnsIncludePatterns(t *testing.T) {
	cfg, err := Parse([]byte("include:\n  - \"*.rzk\"\n  - \"lib/*.rzk\"\n"), "rzk.yaml")
	if err != nil {
		t.Fatalf("Parse() = %v, want nil", err)
	}
	want := []string{"*.rzk", "lib/*.rzk"}
	if len(cfg.Include) != len(want) {
		t.Fatalf("Include = %v, want %v", cfg.Include, want)
	}
	for i, p := range want {
		if cfg.Include[i] != p {
			t.Errorf("Include[%d] = %q, want %q", i, cfg.Include[i], p)
		}
	}
}

func TestLoadReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rzk.yaml")
	if err := os.WriteFile(path, []byte("include:\n  - \"*.rzk\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "*.rzk" {
		t.Errorf("Include = %v, want [*.rzk]", cfg.Include)
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load(missing file) = nil, want error")
	}
}

func TestFindWalksUpToAncestorDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "rzk.yaml"), []byte("include: [\"*.rzk\"]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, err := Find(nested)
	if err != nil {
		t.Fatalf("Find() = %v, want nil", err)
	}
	want := filepath.Join(root, "rzk.yaml")
	if got != want {
		t.Errorf("Find() = %q, want %q", got, want)
	}
}

func TestFindReturnsEmptyWhenNoConfigExists(t *testing.T) {
	// A fresh temp dir has no rzk.yaml anywhere above it up to root, short
	// of the real filesystem happening to carry one — acceptable for a
	// hermetic test environment.
	dir := t.TempDir()
	nested := filepath.Join(dir, "x", "y")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, err := Find(nested)
	if err != nil {
		t.Fatalf("Find() = %v, want nil", err)
	}
	if got != "" {
		t.Errorf("Find() = %q, want \"\" (no rzk.yaml under %s)", got, dir)
	}
}

func TestResolveFilesExpandsSortsAndDedupes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.rzk", "a.rzk", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
	cfg := &Config{Include: []string{"*.rzk", "a.rzk", "b.rzk"}}

	got, err := cfg.ResolveFiles(dir)
	if err != nil {
		t.Fatalf("ResolveFiles() = %v, want nil", err)
	}
	want := []string{filepath.Join(dir, "a.rzk"), filepath.Join(dir, "b.rzk")}
	if len(got) != len(want) {
		t.Fatalf("ResolveFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ResolveFiles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveFilesRejectsMalformedPattern(t *testing.T) {
	cfg := &Config{Include: []string{"["}}
	if _, err := cfg.ResolveFiles(t.TempDir()); err == nil {
		t.Fatal("ResolveFiles([) = nil, want error")
	}
}

func TestResolveFilesDoubleStarMatchesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		"top.rzk",
		filepath.Join("lib", "a.rzk"),
		filepath.Join("lib", "deeper", "b.rzk"),
		filepath.Join("lib", "deeper", "still", "c.rzk"),
		filepath.Join("lib", "notes.txt"),
	}
	for _, p := range paths {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	cfg := &Config{Include: []string{"**/*.rzk"}}

	got, err := cfg.ResolveFiles(dir)
	if err != nil {
		t.Fatalf("ResolveFiles() = %v, want nil", err)
	}
	want := []string{
		filepath.Join(dir, "lib", "a.rzk"),
		filepath.Join(dir, "lib", "deeper", "b.rzk"),
		filepath.Join(dir, "lib", "deeper", "still", "c.rzk"),
		filepath.Join(dir, "top.rzk"),
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("ResolveFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ResolveFiles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveFilesDoubleStarWithLiteralPrefix(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join("lib", "sub", "x.rzk"),
		filepath.Join("other", "y.rzk"),
	}
	for _, p := range paths {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	cfg := &Config{Include: []string{"lib/**/*.rzk"}}

	got, err := cfg.ResolveFiles(dir)
	if err != nil {
		t.Fatalf("ResolveFiles() = %v, want nil", err)
	}
	want := []string{filepath.Join(dir, "lib", "sub", "x.rzk")}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("ResolveFiles() = %v, want %v", got, want)
	}
}
