package scope

import (
	"regexp"
	"strings"

	"github.com/kbukum/flowtorch/errors"
)

// DefaultQualifier is the receiver name of generated methods.
const DefaultQualifier = "self"

// Rewriter qualifies references to scoped variables inside a generated
// method body.
//
// An identifier is in scope of the rewriter when it is in the defined set
// or matches Pattern. For those identifiers:
//
//	self.x, x defined      unchanged
//	self.x, x undefined    UNDEFINED_SCOPED_VARIABLE
//	x, x defined           rewritten to self.x
//	x, x undefined         unchanged, reported in Result.Free
//
// String literals, comments, attributes of other objects (other.x),
// keyword arguments (f(x=1)) and def/class names are never touched.
// Names bound in the body by for targets, comprehension targets, lambda
// parameters or as clauses are local everywhere in the body and are left
// alone. Interpolations inside f-strings are part of the literal and are
// not rewritten either.
type Rewriter struct {
	Qualifier string
	// Pattern matches names the rewriter treats as scoped even when they
	// are not defined. Nil limits the rewriter to the defined set.
	Pattern *regexp.Regexp
}

// New creates a Rewriter qualifying with "self".
func New(pattern *regexp.Regexp) *Rewriter {
	return &Rewriter{Qualifier: DefaultQualifier, Pattern: pattern}
}

// FreeVariable is an unqualified scoped name that is not defined.
type FreeVariable struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Result is the rewritten body.
type Result struct {
	Body string
	// Free lists undefined names left as is, first occurrence only.
	Free []FreeVariable
	// Qualified counts the references rewritten.
	Qualified int
}

// Rewrite rewrites body against the names defined in the enclosing scope.
func (r *Rewriter) Rewrite(body string, defined []string) (*Result, error) {
	qualifier := r.Qualifier
	if qualifier == "" {
		qualifier = DefaultQualifier
	}
	defs := make(map[string]struct{}, len(defined))
	for _, d := range defined {
		defs[d] = struct{}{}
	}

	local := boundNames(body)
	t := &tokenizer{src: body, line: 1}
	res := &Result{}
	seenFree := make(map[string]struct{})
	var out strings.Builder
	out.Grow(len(body) + 16)

	for !t.done() {
		tok := t.next()
		if tok.kind != tokIdent || keywords[tok.text] {
			out.WriteString(tok.text)
			continue
		}

		name := tok.text
		_, isLocal := local[name]
		_, isDefined := defs[name]
		scoped := isDefined || (r.Pattern != nil && r.Pattern.MatchString(name))
		if !scoped || tok.afterDecl || t.isKeywordArg(tok) {
			out.WriteString(name)
			continue
		}

		switch owner, dotted := t.owner(tok); {
		case dotted && owner == qualifier:
			if !isDefined {
				return nil, errors.UndefinedScopedVariable(name, tok.line, lineText(body, tok.line))
			}
			out.WriteString(name)
		case dotted, isLocal:
			out.WriteString(name)
		case isDefined:
			out.WriteString(qualifier + "." + name)
			res.Qualified++
		default:
			if _, dup := seenFree[name]; !dup {
				seenFree[name] = struct{}{}
				res.Free = append(res.Free, FreeVariable{Name: name, Line: tok.line})
			}
			out.WriteString(name)
		}
	}

	res.Body = out.String()
	return res, nil
}

func lineText(body string, line int) string {
	lines := strings.Split(body, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}
