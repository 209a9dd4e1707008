// Command rzk drives the module checker over a project directory: it
// loads rzk.yaml, resolves and sorts the include globs, parses each
// file, hashes the resulting ASTs in parallel to key the incremental
// cache, then checks each file's declarations in order.
//
// The core implements no parser; ParseFile is the
// seam a real build links a parser into. Left nil, rzk still exercises
// config loading, glob resolution, and the cache's fingerprint check,
// but has nothing to feed the checker.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/rzk-lang/rzk/internal/cache"
	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/config"
	"github.com/rzk-lang/rzk/internal/module"
)

// ParseFile is the parser collaborator's entry point. See the package
// doc comment.
var ParseFile func(path string) (module.ParsedModule, error)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, colorize(err.Error(), 31))
		os.Exit(1)
	}
}

func run(args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfgPath, err := config.Find(root)
	if err != nil {
		return err
	}
	if cfgPath == "" {
		return fmt.Errorf("no rzk.yaml found above %s", root)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	projectDir := filepath.Dir(cfgPath)

	files, err := cfg.ResolveFiles(projectDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: include patterns matched no files", cfgPath)
	}

	cacheDB, err := cache.Open(filepath.Join(projectDir, ".rzk-cache.sqlite"))
	if err != nil {
		return err
	}
	defer cacheDB.Close()

	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return err
	}
	if _, err := cacheDB.CheckConfigFingerprint(cfgData); err != nil {
		return err
	}

	if ParseFile == nil {
		fmt.Printf("%s: %s file(s) discovered; no parser registered, nothing checked.\n",
			cfgPath, humanize.Comma(int64(len(files))))
		return nil
	}

	pms := make([]module.ParsedModule, len(files))
	for i, f := range files {
		pm, err := ParseFile(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f, err)
		}
		pms[i] = pm
	}
	if err := hashASTs(pms); err != nil {
		return err
	}

	start := time.Now()
	st := module.NewState()
	declCount := 0
	for _, pm := range pms {
		result, err := module.CheckModule(st, pm, cacheDB)
		if err != nil {
			return reportCheckError(st, err)
		}
		declCount += len(result.Decls)
	}

	fmt.Printf("Everything is ok! checked %s declaration(s) across %s file(s) in %s\n",
		humanize.Comma(int64(declCount)), humanize.Comma(int64(len(files))), time.Since(start))
	return nil
}

// hashASTs fills in each parsed module's ASTHash from a canonical gob
// encoding of its own declarations, run concurrently across files since
// each goroutine only ever touches its own slice slot. The cache key
// tracks what the parser produced, never the raw source bytes that fed
// it, so a change that reformats a file without changing its meaning
// (whitespace, comments) still hits the cache.
func hashASTs(pms []module.ParsedModule) error {
	g, _ := errgroup.WithContext(context.Background())
	for i := range pms {
		i := i
		g.Go(func() error {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(pms[i].Decls); err != nil {
				return fmt.Errorf("hashing %s: %w", pms[i].Path, err)
			}
			sum := sha256.Sum256(buf.Bytes())
			pms[i].ASTHash = hex.EncodeToString(sum[:])
			return nil
		})
	}
	return g.Wait()
}

// reportCheckError wraps a checker error with the full context dump
// so a caller that only prints err.Error() still sees
// known types, hole solutions, local topes, and defined variables.
func reportCheckError(st *checker.State, err error) error {
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString("\n\n")
	b.WriteString(module.DumpContext(st))
	return errors.New(b.String())
}

func colorize(s string, code int) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return s
	}
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}
