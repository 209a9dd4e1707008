package module

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rzk-lang/rzk/internal/checker"
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

// DumpContext renders the snapshot an error report carries alongside
// its message: every declared type, solved hole, locally believed
// tope, and defined variable, in that order. Types and holes are sorted
// by name so they are stable across runs; topes and env bindings are
// listed in the order they were introduced.
func DumpContext(st *checker.State) string {
	var b strings.Builder

	types := st.Types()
	names := make([]string, 0, len(types))
	byName := make(map[string]term.Name, len(types))
	for n := range types {
		names = append(names, n.String())
		byName[n.String()] = n
	}
	sort.Strings(names)
	b.WriteString("types:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s : %s\n", n, diag.Render(types[byName[n]]))
	}

	declared := st.DeclaredHoles()
	hnames := make([]string, 0, len(declared))
	holeByName := make(map[string]term.Name, len(declared))
	for _, h := range declared {
		hnames = append(hnames, h.String())
		holeByName[h.String()] = h
	}
	sort.Strings(hnames)
	b.WriteString("holes:\n")
	for _, h := range hnames {
		// h already carries FreshHole's leading "?" (its Base), so no
		// second one is added here.
		if sol, ok := st.LookupHole(holeByName[h]); ok {
			fmt.Fprintf(&b, "  %s := %s\n", h, diag.Render(sol))
		} else {
			fmt.Fprintf(&b, "  %s\n", h)
		}
	}

	b.WriteString("topes:\n")
	for _, phi := range st.Topes() {
		fmt.Fprintf(&b, "  ⊢ %s\n", diag.Render(phi))
	}

	b.WriteString("env:\n")
	for _, e := range st.Env() {
		fmt.Fprintf(&b, "  %s := %s\n", e.Var, diag.Render(e.Val))
	}

	return b.String()
}
