package module

import (
	"github.com/rzk-lang/rzk/internal/diag"
	"github.com/rzk-lang/rzk/internal/term"
)

// Builder constructs a ParsedModule by hand, standing in for a real
// parser in this repository's own tests. It is not a parser.
type Builder struct {
	pm ParsedModule
}

// NewBuilder starts a ParsedModule for the given path.
func NewBuilder(path string) *Builder {
	return &Builder{pm: ParsedModule{Path: path, Locations: map[term.Term]diag.Loc{}}}
}

// Loc attaches a known source location to a sub-term (usually a
// declaration's Type or Body) for error-location tests.
func (b *Builder) Loc(t term.Term, loc diag.Loc) *Builder {
	b.pm.Locations[t] = loc
	return b
}

// Decl appends a declaration in source order.
func (b *Builder) Decl(name string, ty, body term.Term) *Builder {
	b.pm.Decls = append(b.pm.Decls, Decl{Name: term.Name{Base: name}, Type: ty, Body: body})
	return b
}

// Hash sets the AST hash used for cache lookups.
func (b *Builder) Hash(h string) *Builder {
	b.pm.ASTHash = h
	return b
}

// Build returns the assembled ParsedModule.
func (b *Builder) Build() ParsedModule {
	return b.pm
}
