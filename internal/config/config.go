// Package config loads rzk.yaml, the project file: a list of include
// globs, expanded and sorted to produce the ordered file list fed to
// the parser.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level rzk.yaml shape.
type Config struct {
	// Include lists glob patterns, relative to the directory containing
	// rzk.yaml, that together enumerate the project's source files.
	Include []string `yaml:"include"`
}

// Load reads and parses rzk.yaml at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// defaultInclude is used when rzk.yaml omits the include field, matching
// this tool's own source file extension.
var defaultInclude = []string{"**/*.rzk"}

// Parse parses rzk.yaml content from bytes. path is used only for
// error messages. An omitted include field defaults to defaultInclude
// rather than failing, since a bare "include:" or missing field is a
// reasonable way to ask for the whole project tree.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.Include) == 0 {
		cfg.Include = defaultInclude
	}
	return &cfg, nil
}

// Find searches for rzk.yaml starting from dir and walking up to parent
// directories, the way a project-root marker is usually discovered.
// Returns "" with a nil error if no rzk.yaml is found by the filesystem
// root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "rzk.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ResolveFiles expands cfg's include globs against root, deduplicates,
// and returns the file list sorted lexically so the module driver's
// sequential checking order is deterministic.
func (c *Config) ResolveFiles(root string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.Include {
		matches, err := expandPattern(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// expandPattern expands a single include pattern against root.
// filepath.Glob has no notion of "**" as a recursive-directory wildcard
// (it matches "**" as a literal two-star segment within one path
// component), so a pattern containing a "**" segment is expanded by
// hand: everything before the first "**" segment is a literal prefix
// directory, and everything after it is matched, segment by segment,
// against the trailing segments of every file found by walking that
// directory tree. Only the first "**" segment in a pattern is treated
// specially.
func expandPattern(root, pattern string) ([]string, error) {
	segs := strings.Split(filepath.ToSlash(pattern), "/")
	starIdx := -1
	for i, s := range segs {
		if s == "**" {
			starIdx = i
			break
		}
	}
	if starIdx == -1 {
		return filepath.Glob(filepath.Join(root, pattern))
	}

	base := filepath.Join(append([]string{root}, segs[:starIdx]...)...)
	suffix := segs[starIdx+1:]

	var out []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		relSegs := strings.Split(filepath.ToSlash(rel), "/")
		if len(suffix) == 0 {
			out = append(out, path)
			return nil
		}
		if len(relSegs) < len(suffix) {
			return nil
		}
		tail := relSegs[len(relSegs)-len(suffix):]
		for i, pat := range suffix {
			ok, err := filepath.Match(pat, tail[i])
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
