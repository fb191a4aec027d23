// SPDX-License-Identifier: MPL-2.0

package typstsyntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// KindMarkup is markup text; the root of every tree.
	KindMarkup Kind = iota
	// KindMath is an equation delimited by dollar signs.
	KindMath
	// KindCode is a code block or an expression embedded in markup with '#'.
	KindCode
	// KindContent is a content block delimited by square brackets.
	KindContent
	// KindGroup is a parenthesized expression, argument list or array.
	KindGroup
	// KindStr is a string literal. Text holds the unescaped value.
	KindStr
	// KindRaw is a raw text or raw block delimited by backticks.
	KindRaw
	// KindComment is a line or block comment.
	KindComment
	// KindIdent is an identifier used as a module source expression.
	KindIdent
	// KindImport is an import statement. Its first child is the source expression.
	KindImport
	// KindInclude is an include expression. Its first child is the source expression.
	KindInclude
	// KindError marks an unterminated construct.
	KindError
)

type (
	// Kind classifies a syntax node.
	Kind int

	// Node is one element of the syntax tree. Only the structure needed to
	// locate module sources is kept; plain text is not represented.
	Node struct {
		Kind     Kind
		Text     string
		Offset   int
		Children []*Node
	}

	parser struct {
		src    string
		pos    int
		inMath bool
	}
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindMath:
		return "math"
	case KindCode:
		return "code"
	case KindContent:
		return "content"
	case KindGroup:
		return "group"
	case KindStr:
		return "str"
	case KindRaw:
		return "raw"
	case KindComment:
		return "comment"
	case KindIdent:
		return "ident"
	case KindImport:
		return "import"
	case KindInclude:
		return "include"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Parse parses Typst source into a syntax tree rooted at a markup node.
// It never fails: unterminated constructs extend to the end of the input.
func Parse(src string) *Node {
	p := &parser{src: src}
	root := &Node{Kind: KindMarkup}
	p.markup(root, 0)
	return root
}

// Walk calls fn for n and every descendant in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

func (n *Node) add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) at(s string) bool { return strings.HasPrefix(p.src[p.pos:], s) }

// markup parses markup (or math, when close is '$') until the closing
// delimiter. close is 0 at the top level, ']' in content blocks.
func (p *parser) markup(parent *Node, close byte) {
	math := close == '$'
	outer := p.inMath
	p.inMath = math
	defer func() { p.inMath = outer }()

	depth := 0
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\\':
			p.pos += 2
		case p.at("//"):
			if !math && p.endsWithScheme() {
				p.link()
				continue
			}
			p.lineComment(parent)
		case p.at("/*"):
			p.blockComment(parent)
		case c == '`':
			p.raw(parent)
		case c == '"' && math:
			p.str(parent)
		case c == '$':
			p.pos++
			if math {
				return
			}
			node := parent.add(&Node{Kind: KindMath, Offset: p.pos - 1})
			p.markup(node, '$')
		case c == '[':
			depth++
			p.pos++
		case c == ']':
			if depth == 0 && close == ']' {
				p.pos++
				return
			}
			if depth > 0 {
				depth--
			}
			p.pos++
		case c == '#':
			p.pos++
			p.embedded(parent)
		default:
			p.pos++
		}
	}
	if close != 0 {
		parent.Kind = KindError
	}
}

// embedded parses the expression that follows a '#' in markup or math.
func (p *parser) embedded(parent *Node) {
	start := p.pos
	switch c := p.peek(); {
	case c == '{':
		p.pos++
		node := parent.add(&Node{Kind: KindCode, Offset: start})
		p.code(node, '}', false)
	case c == '[':
		p.content(parent)
	case c == '(':
		p.group(parent)
	case c == '"':
		p.str(parent)
	case p.identStart():
		ident := p.ident()
		node := parent.add(&Node{Kind: KindCode, Offset: start})
		switch ident {
		case "import", "include":
			p.moduleStatement(node, ident)
			p.code(node, 0, true)
		case "let", "set", "show", "if", "for", "while", "context", "return", "break", "continue":
			p.code(node, 0, true)
		default:
			p.chain(node)
		}
	}
}

// chain consumes field accesses, calls and trailing content blocks of an
// embedded identifier expression such as #foo.bar(x)[body].
func (p *parser) chain(parent *Node) {
	for !p.eof() {
		switch c := p.peek(); {
		case c == '(':
			p.group(parent)
		case c == '[':
			p.content(parent)
		case c == '.' && p.pos+1 < len(p.src) && isIdentStartByteAt(p.src, p.pos+1):
			p.pos++
			p.ident()
		default:
			return
		}
	}
}

// code parses code until close. In line mode it instead stops before a
// newline, after a semicolon, or before an unmatched closing delimiter.
func (p *parser) code(parent *Node, close byte, line bool) {
	var prev byte
	for !p.eof() {
		c := p.peek()
		if line {
			if c == '\n' {
				return
			}
			if c == ';' {
				p.pos++
				return
			}
			if c == ']' || c == '}' || c == ')' || (c == '$' && p.inMath) {
				return
			}
		} else if c == close {
			p.pos++
			return
		} else if c == '}' || c == ']' || c == ')' {
			// Mismatched closer: let an enclosing construct claim it.
			parent.Kind = KindError
			return
		}

		switch {
		case p.at("//"):
			p.lineComment(parent)
			continue
		case p.at("/*"):
			p.blockComment(parent)
			continue
		case c == '"':
			p.str(parent)
		case c == '`':
			p.raw(parent)
		case c == '$':
			p.pos++
			node := parent.add(&Node{Kind: KindMath, Offset: p.pos - 1})
			p.markup(node, '$')
		case c == '{':
			p.pos++
			node := parent.add(&Node{Kind: KindCode, Offset: p.pos - 1})
			p.code(node, '}', false)
		case c == '(':
			p.group(parent)
		case c == '[':
			p.content(parent)
		case p.identStart():
			ident := p.ident()
			if (ident == "import" || ident == "include") && prev != '.' {
				p.moduleStatement(parent, ident)
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
			continue
		default:
			p.pos++
		}
		prev = c
	}
	if !line {
		parent.Kind = KindError
	}
}

// moduleStatement parses the source expression after an import or include
// keyword. Items and renames that follow are left to the enclosing parser.
func (p *parser) moduleStatement(parent *Node, keyword string) {
	kind := KindImport
	if keyword == "include" {
		kind = KindInclude
	}
	node := parent.add(&Node{Kind: kind, Offset: p.pos - len(keyword)})

	p.skipInlineSpace()
	switch c := p.peek(); {
	case c == '"':
		p.str(node)
	case c == '(':
		p.group(node)
	case p.identStart():
		start := p.pos
		ident := p.ident()
		source := node.add(&Node{Kind: KindIdent, Text: ident, Offset: start})
		p.chain(source)
	}
}

func (p *parser) group(parent *Node) {
	p.pos++
	node := parent.add(&Node{Kind: KindGroup, Offset: p.pos - 1})
	p.code(node, ')', false)
}

func (p *parser) content(parent *Node) {
	p.pos++
	node := parent.add(&Node{Kind: KindContent, Offset: p.pos - 1})
	p.markup(node, ']')
}

// str parses a string literal starting at the opening quote.
func (p *parser) str(parent *Node) {
	start := p.pos
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			parent.add(&Node{Kind: KindStr, Text: sb.String(), Offset: start})
			return
		case '\\':
			p.pos++
			p.escape(&sb)
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	parent.add(&Node{Kind: KindError, Text: sb.String(), Offset: start})
}

// escape decodes the escape sequence after a backslash inside a string.
func (p *parser) escape(sb *strings.Builder) {
	if p.eof() {
		return
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'u':
		if p.peek() == '{' {
			if end := strings.IndexByte(p.src[p.pos:], '}'); end > 0 {
				if r, ok := parseHexRune(p.src[p.pos+1 : p.pos+end]); ok {
					sb.WriteRune(r)
					p.pos += end + 1
					return
				}
			}
		}
		sb.WriteString(`\u`)
	default:
		sb.WriteByte(c)
	}
}

// raw skips a raw span. One backtick closes at the next backtick, two form
// an empty raw, three or more close at the same number of backticks.
func (p *parser) raw(parent *Node) {
	start := p.pos
	n := 0
	for !p.eof() && p.src[p.pos] == '`' {
		n++
		p.pos++
	}
	if n == 2 {
		parent.add(&Node{Kind: KindRaw, Offset: start})
		return
	}
	fence := strings.Repeat("`", n)
	end := strings.Index(p.src[p.pos:], fence)
	if end < 0 {
		p.pos = len(p.src)
		parent.add(&Node{Kind: KindError, Offset: start})
		return
	}
	p.pos += end + n
	parent.add(&Node{Kind: KindRaw, Offset: start})
}

func (p *parser) lineComment(parent *Node) {
	start := p.pos
	if end := strings.IndexByte(p.src[p.pos:], '\n'); end >= 0 {
		p.pos += end
	} else {
		p.pos = len(p.src)
	}
	parent.add(&Node{Kind: KindComment, Offset: start})
}

// blockComment skips a block comment; block comments nest.
func (p *parser) blockComment(parent *Node) {
	start := p.pos
	p.pos += 2
	depth := 1
	for !p.eof() {
		switch {
		case p.at("/*"):
			depth++
			p.pos += 2
		case p.at("*/"):
			depth--
			p.pos += 2
			if depth == 0 {
				parent.add(&Node{Kind: KindComment, Offset: start})
				return
			}
		default:
			p.pos++
		}
	}
	parent.add(&Node{Kind: KindError, Offset: start})
}

// endsWithScheme reports whether the markup before "//" ends in a URL
// scheme, in which case the slashes start a link rather than a comment.
func (p *parser) endsWithScheme() bool {
	before := p.src[:p.pos]
	return strings.HasSuffix(before, "http:") || strings.HasSuffix(before, "https:")
}

func (p *parser) link() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || strings.IndexByte("<>\"[]()", c) >= 0 {
			return
		}
		p.pos++
	}
}

func (p *parser) skipInlineSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) identStart() bool {
	return !p.eof() && isIdentStartByteAt(p.src, p.pos)
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if p.pos == start {
			if !isIdentStart(r) {
				break
			}
		} else if !isIdentContinue(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func isIdentStartByteAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isIdentStart(r)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || r == '-' || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)
}

func parseHexRune(s string) (rune, bool) {
	if s == "" || len(s) > 6 {
		return 0, false
	}
	var r rune
	for _, c := range s {
		var d rune
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		r = r*16 + d
	}
	return r, utf8.ValidRune(r)
}
