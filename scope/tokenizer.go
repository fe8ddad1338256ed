package scope

import "strings"

type tokenKind int

const (
	tokOther tokenKind = iota
	tokIdent
	tokString
	tokComment
	tokNumber
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	line  int
	// depth is the bracket nesting level at the token.
	depth int
	// afterDecl is set for the name following def or class.
	afterDecl bool
	// binding is set for names bound by for, lambda or as.
	binding bool
}

// tokenizer splits Python source into identifiers and opaque runs. It only
// understands as much of the grammar as the rewriter needs.
type tokenizer struct {
	src   string
	pos   int
	line  int
	depth int
	// last is the previous significant identifier or symbol.
	last string
	// bindEnd is the token closing an open binding list: "in" after for,
	// ":" after lambda. bindDepth is the nesting level it opened at.
	bindEnd   string
	bindDepth int
}

func (t *tokenizer) done() bool { return t.pos >= len(t.src) }

func (t *tokenizer) next() token {
	start := t.pos
	c := t.src[start]
	tok := token{start: start, line: t.line, depth: t.depth}

	switch {
	case c == '#':
		end := strings.IndexByte(t.src[start:], '\n')
		if end < 0 {
			end = len(t.src) - start
		}
		t.pos = start + end
		tok.kind = tokComment

	case c == '"' || c == '\'':
		t.pos = skipString(t.src, start)
		tok.kind = tokString
		t.last = "str"

	case isIdentStart(c):
		end := start + 1
		for end < len(t.src) && isIdentChar(t.src[end]) {
			end++
		}
		t.pos = end
		tok.kind = tokIdent
		tok.afterDecl = t.last == "def" || t.last == "class"
		// String prefixes such as f"..." and rb'...' belong to the literal.
		if end < len(t.src) && (t.src[end] == '"' || t.src[end] == '\'') && isStringPrefix(t.src[start:end]) {
			t.pos = skipString(t.src, end)
			tok.kind = tokString
			tok.afterDecl = false
		} else {
			t.bind(&tok, t.src[start:end])
		}
		t.last = t.src[start:end]

	case isDigit(c) || (c == '.' && start+1 < len(t.src) && isDigit(t.src[start+1])):
		end := start + 1
		for end < len(t.src) && (isIdentChar(t.src[end]) || t.src[end] == '.') {
			end++
		}
		t.pos = end
		tok.kind = tokNumber
		t.last = "num"

	default:
		t.pos = start + 1
		switch c {
		case '(', '[', '{':
			t.depth++
		case ')', ']', '}':
			if t.depth > 0 {
				t.depth--
			}
		}
		switch {
		case c == ':' && t.bindEnd == ":" && t.depth == t.bindDepth:
			t.bindEnd = ""
		case c == '\n' && t.depth <= t.bindDepth:
			t.bindEnd = ""
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			t.last = string(c)
		}
	}

	tok.end = t.pos
	tok.text = t.src[start:t.pos]
	t.line += strings.Count(tok.text, "\n")
	return tok
}

// bind tracks the binding lists opened by for and lambda and marks tok
// when name is bound there or after as.
func (t *tokenizer) bind(tok *token, name string) {
	switch {
	case name == "for" || name == "lambda":
		t.bindEnd, t.bindDepth = ":", t.depth
		if name == "for" {
			t.bindEnd = "in"
		}
		return
	case name == "in" && t.bindEnd == "in":
		t.bindEnd = ""
		return
	case keywords[name]:
		return
	}
	switch {
	case t.last == "as":
		tok.binding = true
	case t.bindEnd == "in":
		tok.binding = t.last != "."
	case t.bindEnd == ":":
		tok.binding = t.depth == t.bindDepth && (t.last == "lambda" || t.last == "," || t.last == "*")
	}
}

// boundNames returns the names src binds with for, lambda or as.
func boundNames(src string) map[string]struct{} {
	names := make(map[string]struct{})
	t := &tokenizer{src: src, line: 1}
	for !t.done() {
		if tok := t.next(); tok.binding {
			names[tok.text] = struct{}{}
		}
	}
	return names
}

// owner returns the identifier before a dot preceding tok. dotted reports
// whether tok is an attribute access at all.
func (t *tokenizer) owner(tok token) (owner string, dotted bool) {
	i := skipSpaceBack(t.src, tok.start-1)
	if i < 0 || t.src[i] != '.' {
		return "", false
	}
	end := skipSpaceBack(t.src, i-1) + 1
	begin := end
	for begin > 0 && isIdentChar(t.src[begin-1]) {
		begin--
	}
	if begin == end || !isIdentStart(t.src[begin]) {
		return "", true
	}
	// self in a.self.x is itself an attribute.
	if j := skipSpaceBack(t.src, begin-1); j >= 0 && t.src[j] == '.' {
		return "", true
	}
	return t.src[begin:end], true
}

// isKeywordArg reports whether tok is the name of a keyword argument.
func (t *tokenizer) isKeywordArg(tok token) bool {
	if tok.depth == 0 {
		return false
	}
	i := tok.end
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	return i < len(t.src) && t.src[i] == '=' && (i+1 >= len(t.src) || t.src[i+1] != '=')
}

// skipString returns the offset just past the literal opening at i.
func skipString(src string, i int) int {
	q := src[i]
	if strings.HasPrefix(src[i:], strings.Repeat(string(q), 3)) {
		end := strings.Index(src[i+3:], strings.Repeat(string(q), 3))
		if end < 0 {
			return len(src)
		}
		return i + 3 + end + 3
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

func skipSpaceBack(src string, i int) int {
	for i >= 0 && (src[i] == ' ' || src[i] == '\t') {
		i--
	}
	return i
}

func isStringPrefix(s string) bool {
	if len(s) > 2 {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if r != 'r' && r != 'b' && r != 'f' && r != 'u' {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
