package diag

import (
	"fmt"
	"strings"

	"github.com/rzk-lang/rzk/internal/term"
)

// Code is a closed taxonomy of type-error kinds: a stable
// machine-readable code paired with a separately rendered message.
type Code string

const (
	CodeInfinite             Code = "infinite-type"
	CodeUnexpected           Code = "unexpected"
	CodeEval                 Code = "eval-error"
	CodeOther                Code = "other"
	CodeCannotInferLambda    Code = "cannot-infer-lambda"
	CodeCannotInferPair      Code = "cannot-infer-pair"
	CodeNotAFunction         Code = "not-a-function"
	CodeNotAPair             Code = "not-a-pair"
	CodeExpectedFunctionType Code = "expected-function-type"
	CodeInvalidTypeFamily    Code = "invalid-type-family"
	CodeTopeContextNotSat    Code = "tope-context-not-satisfied"
)

// Error is the checker's typed error. It carries the term under
// inspection and whatever sub-terms are relevant for rendering, plus an
// optional location attached only when the AST carried one.
type Error struct {
	Code Code
	Loc  Loc // zero value (Line==0) means "unknown", never invented

	Term term.Term // the term under inspection, when applicable

	// Extra fields used by individual codes for rendering; which of
	// these are populated depends on Code (see render below).
	Hole     term.Name
	A, B     term.Term // InferredFull / ExpectedFull, or two general subterms
	SubA     term.Term // the inner subterm that actually disagreed, left
	SubB     term.Term // the inner subterm that actually disagreed, right
	Phi     term.Term
	Topes   []term.Term
	EvalErr error
	Msg     string // human message, used by CodeOther
	RunID   string // set by the module driver
}

func (e *Error) Error() string {
	return e.render()
}

// File returns the offending file path, or "" if unknown.
func (e *Error) File() string { return e.Loc.File }

// Line returns a best-available line number, 0 if unknown. The core
// never invents a location.
func (e *Error) Line() int { return e.Loc.Line }

// Message renders the pretty-printed, human-readable message for the
// editor collaborator.
func (e *Error) Message() string { return e.render() }

func (e *Error) render() string {
	var b strings.Builder
	switch e.Code {
	case CodeInfinite:
		fmt.Fprintf(&b, "infinite type: ?%s occurs in %s", e.Hole, render(e.Term))
	case CodeUnexpected:
		fmt.Fprintf(&b, "type mismatch: expected %s, got %s", render(e.B), render(e.A))
		if e.SubA != nil || e.SubB != nil {
			fmt.Fprintf(&b, " (disagreement at %s vs %s)", render(e.SubA), render(e.SubB))
		}
	case CodeEval:
		fmt.Fprintf(&b, "evaluation failed on %s: %v", render(e.Term), e.EvalErr)
	case CodeOther:
		b.WriteString(e.Msg)
	case CodeCannotInferLambda:
		fmt.Fprintf(&b, "cannot infer the type of a lambda, an annotation is required: %s", render(e.Term))
	case CodeCannotInferPair:
		fmt.Fprintf(&b, "cannot infer the type of a pair, an annotation is required: %s", render(e.Term))
	case CodeNotAFunction:
		fmt.Fprintf(&b, "%s is not a function (has type %s), cannot apply to %s", render(e.Term), render(e.A), render(e.B))
	case CodeNotAPair:
		fmt.Fprintf(&b, "%s is not a pair (has type %s), cannot project", render(e.Term), render(e.A))
	case CodeExpectedFunctionType:
		fmt.Fprintf(&b, "%s is a lambda, but was checked against the non-function type %s", render(e.Term), render(e.A))
	case CodeInvalidTypeFamily:
		fmt.Fprintf(&b, "invalid type family: %s", render(e.Term))
	case CodeTopeContextNotSat:
		fmt.Fprintf(&b, "tope context does not entail %s, while checking %s", render(e.Phi), render(e.Term))
		if len(e.Topes) > 0 {
			fmt.Fprintf(&b, " (known topes: %s)", renderTopes(e.Topes))
		}
	default:
		fmt.Fprintf(&b, "type error: %s", render(e.Term))
	}
	if e.Loc.IsKnown() {
		return fmt.Sprintf("%s: %s", e.Loc, b.String())
	}
	return b.String()
}

// Render exposes the pretty-printer to other packages that need to
// format a bare term outside of an *Error.
func Render(t term.Term) string {
	return render(t)
}

func renderTopes(ts []term.Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = render(t)
	}
	return strings.Join(parts, ", ")
}

// render is a minimal, dependency-free pretty-printer sufficient for
// error messages and context dumps. It is not the editor collaborator's
// renderer — that is free to re-render from the structured fields above.
func render(t term.Term) string {
	if t == nil {
		return "<nil>"
	}
	switch n := t.(type) {
	case term.Var:
		return n.Name.String()
	case term.Hole:
		return "?" + n.Name.String()
	case term.Universe:
		return "U"
	case term.TypedTerm:
		return fmt.Sprintf("(%s : %s)", render(n.Term), render(n.Type))
	case term.Pi:
		return "Pi(" + render(n.Family) + ")"
	case term.Sigma:
		return "Sigma(" + render(n.Family) + ")"
	case term.Lambda:
		return renderLambda(n)
	case term.App:
		return fmt.Sprintf("%s %s", render(n.Fun), render(n.Arg))
	case term.Pair:
		return fmt.Sprintf("(%s, %s)", render(n.First), render(n.Second))
	case term.First:
		return "first " + render(n.Pair)
	case term.Second:
		return "second " + render(n.Pair)
	case term.IdType:
		return fmt.Sprintf("%s =_{%s} %s", render(n.X), render(n.A), render(n.Y))
	case term.Refl:
		return "refl " + render(n.X)
	case term.IdJ:
		return fmt.Sprintf("idJ(%s, %s)", render(n.X), render(n.P))
	case term.Cube:
		return "CUBE"
	case term.CubeUnit:
		return "1"
	case term.CubeUnitStar:
		return "*"
	case term.CubeProd:
		return fmt.Sprintf("%s * %s", render(n.I), render(n.J))
	case term.Cube2:
		return "2"
	case term.Cube2_0:
		return "0"
	case term.Cube2_1:
		return "1"
	case term.Tope:
		return "TOPE"
	case term.TopeTop:
		return "TOP"
	case term.TopeBottom:
		return "BOT"
	case term.TopeOr:
		return fmt.Sprintf("(%s \\/ %s)", render(n.Left), render(n.Right))
	case term.TopeAnd:
		return fmt.Sprintf("(%s /\\ %s)", render(n.Left), render(n.Right))
	case term.TopeEQ:
		return fmt.Sprintf("(%s = %s)", render(n.Left), render(n.Right))
	case term.TopeLEQ:
		return fmt.Sprintf("(%s <= %s)", render(n.Left), render(n.Right))
	case term.RecBottom:
		return "recBOT"
	case term.RecOr:
		return fmt.Sprintf("recOR(%s, %s)", render(n.A), render(n.B))
	case term.ExtensionType:
		return fmt.Sprintf("<{%s : I | %s} -> %s [%s |-> %s]>", n.Var, render(n.Psi), render(n.A), render(n.Phi), render(n.A0))
	default:
		return fmt.Sprintf("%T", t)
	}
}

func renderLambda(n term.Lambda) string {
	ann := ""
	if n.A != nil {
		ann = ": " + render(n.A)
	}
	guard := ""
	if n.Phi != nil {
		guard = " | " + render(n.Phi)
	}
	return fmt.Sprintf("\\%s%s%s. %s", n.Var, ann, guard, render(n.Body))
}
