// Package parse implements the oopis shell parser.
//
// The parser builds a hybrid of AST (abstract syntax tree) and parse tree
// (a.k.a. concrete syntax tree). The AST part only includes parts that are
// semantically significant -- i.e. skipping whitespaces and separators, and is
// embodied in the fields of each *Node type. The parse tree part corresponds
// to all the text in the original source text, and is embodied in the children
// of each *Node type.
//
// The parser sees input after preprocessing (see the expand package), so
// variable, substitution and brace syntax never reaches it; whatever remains
// of those characters is part of an ordinary word.
package parse

//go:generate stringer -type=RedirMode -output=string.go

import (
	"src.oopis.dev/pkg/diag"
)

// Tree represents a parsed tree.
type Tree struct {
	Root   *Chunk
	Source Source
}

// Parse parses the given source as a chunk. The returned error may contain one
// or more parse errors, which can be unpacked with [UnpackErrors].
func Parse(src Source) (Tree, error) {
	tree := Tree{&Chunk{}, src}
	err := ParseAs(src, tree.Root)
	return tree, err
}

// ParseAs parses the given source as a node, depending on the dynamic type of
// n. The returned error may contain one or more parse errors, which can be
// unpacked with [UnpackErrors].
func ParseAs(src Source, n Node) error {
	ps := &parser{srcName: src.Name, src: src.Code}
	parse(ps, n)
	ps.done()
	return diag.PackErrors(ps.errors)
}

// Errors.
var (
	errShouldBeCommand    = newError("", "command")
	errShouldBeFilename   = newError("", "filename")
	errBadRedirSign       = newError("bad redir sign", "'<'", "'>'", "'>>'")
	errDuplicateOutRedir  = newError("duplicate output redirection")
	errDuplicateInRedir   = newError("duplicate input redirection")
	errStringUnterminated = newError("string not terminated")
)

// Chunk = { Space } { Pipeline }
type Chunk struct {
	node
	Pipelines []*Pipeline
}

func (bn *Chunk) parse(ps *parser) {
	parseSpaces(bn, ps)
	for startsPipeline(ps.peek()) {
		pn := &Pipeline{}
		parse(ps, pn).addTo(&bn.Pipelines, bn)
		if pn.Op == "" {
			// Another pipeline only follows an operator.
			break
		}
	}
}

func startsPipeline(r rune) bool {
	return startsSegment(r)
}

// Pipeline = Segment { '|' { Space } Segment } { Redir } [ Op { Space } ]
//
// Op = ';' | '&&' | '||' | '&'
type Pipeline struct {
	node
	Segments []*Segment
	// Output and input redirections, written in either order after the last
	// segment. At most one of each.
	Out *Redir
	In  *Redir
	// The operator written after the pipeline, if any: ";", "&&", "||" or
	// "&". It decides whether the next pipeline in the chunk runs.
	Op string
	// Whether the pipeline runs in the background, i.e. Op is "&".
	Background bool
}

func (pn *Pipeline) parse(ps *parser) {
	parse(ps, &Segment{}).addTo(&pn.Segments, pn)
	for ps.peek() == '|' && !ps.hasPrefix("||") {
		parseSep(pn, ps, '|')
		parseSpaces(pn, ps)
		if !startsSegment(ps.peek()) {
			ps.error(errShouldBeCommand)
			return
		}
		parse(ps, &Segment{}).addTo(&pn.Segments, pn)
	}
	for isRedirSign(ps.peek()) {
		pn.redir(ps)
	}
	pn.op(ps)
}

// redir parses one redirection and files it under Out or In depending on the
// mode. A second redirection of the same kind is a parse error.
func (pn *Pipeline) redir(ps *parser) {
	rn := &Redir{}
	p := parse(ps, rn)
	ptr, dup := &pn.Out, errDuplicateOutRedir
	if rn.Mode == Read {
		ptr, dup = &pn.In, errDuplicateInRedir
	}
	if *ptr != nil {
		ps.errorp(rn, dup)
	}
	p.addAs(ptr, pn)
	parseSpaces(pn, ps)
}

func (pn *Pipeline) op(ps *parser) {
	switch {
	case ps.hasPrefix("&&") || ps.hasPrefix("||"):
		pn.Op = ps.src[ps.pos : ps.pos+2]
		ps.next()
		ps.next()
		addSep(pn, ps)
		parseSpaces(pn, ps)
		if !startsSegment(ps.peek()) {
			// Trailing && and || dangle; trailing ; and & do not.
			ps.error(errShouldBeCommand)
		}
	case ps.peek() == ';' || ps.peek() == '&':
		pn.Op = string(ps.next())
		pn.Background = pn.Op == "&"
		addSep(pn, ps)
		parseSpaces(pn, ps)
	}
}

// Segment = { Space } Word { Space } { Word { Space } }
type Segment struct {
	node
	Head *Word
	Args []*Word
}

func (sn *Segment) parse(ps *parser) {
	parseSpaces(sn, ps)
	if !startsWord(ps.peek()) {
		ps.error(errShouldBeCommand)
		return
	}
	parse(ps, &Word{}).addAs(&sn.Head, sn)
	parseSpaces(sn, ps)
	for startsWord(ps.peek()) {
		parse(ps, &Word{}).addTo(&sn.Args, sn)
		parseSpaces(sn, ps)
	}
}

func startsSegment(r rune) bool {
	return startsWord(r)
}

// Word = Piece { Piece }
//
// Piece = Bareword | SingleQuoted | DoubleQuoted
//
// Adjacent pieces concatenate, so a'b c'd is one word with value "ab cd".
type Word struct {
	node
	// The value of the word with quotes processed.
	Value string
}

func (wn *Word) parse(ps *parser) {
	for {
		switch r := ps.peek(); {
		case r == '\'':
			wn.quoted(ps, '\'')
		case r == '"':
			wn.quoted(ps, '"')
		case allowedInBareword(r):
			wn.bareword(ps)
		default:
			return
		}
	}
}

// Parses a quoted piece after the opening quote has been peeked. Quoted
// strings have no escape sequences; a quote of the other kind appears
// literally, and a quote of the same kind is written by concatenating pieces,
// as in 'a'"'"'b' for a'b.
func (wn *Word) quoted(ps *parser, q rune) {
	ps.next()
	begin := ps.pos
	for ps.peek() != q {
		if ps.peek() == eof {
			ps.error(errStringUnterminated)
			wn.Value += ps.src[begin:ps.pos]
			return
		}
		ps.next()
	}
	wn.Value += ps.src[begin:ps.pos]
	ps.next()
}

func (wn *Word) bareword(ps *parser) {
	begin := ps.pos
	for allowedInBareword(ps.peek()) {
		ps.next()
	}
	wn.Value += ps.src[begin:ps.pos]
}

// Anything except whitespace, quotes, the operator runes | ; & < > and parens
// may appear in a bareword. Parens are reserved: there is no subshell syntax,
// and a stray paren reads as a syntax error rather than as part of a word.
func allowedInBareword(r rune) bool {
	return r != eof && !IsWhitespace(r) && r != '\'' && r != '"' &&
		r != '|' && r != ';' && r != '&' && r != '<' && r != '>' &&
		r != '(' && r != ')'
}

func startsWord(r rune) bool {
	return r == '\'' || r == '"' || allowedInBareword(r)
}

// Redir = ( '<' | '>' | '>>' ) { Space } Word
type Redir struct {
	node
	Mode  RedirMode
	Right *Word
}

func (rn *Redir) parse(ps *parser) {
	begin := ps.pos
	for isRedirSign(ps.peek()) {
		ps.next()
	}
	switch ps.src[begin:ps.pos] {
	case "<":
		rn.Mode = Read
	case ">":
		rn.Mode = Write
	case ">>":
		rn.Mode = Append
	default:
		ps.error(errBadRedirSign)
	}
	addSep(rn, ps)
	parseSpaces(rn, ps)
	if !startsWord(ps.peek()) {
		ps.error(errShouldBeFilename)
		return
	}
	parse(ps, &Word{}).addAs(&rn.Right, rn)
}

func isRedirSign(r rune) bool {
	return r == '<' || r == '>'
}

// RedirMode records the mode of an IO redirection.
type RedirMode int

// Possible values for RedirMode.
const (
	BadRedirMode RedirMode = iota
	Read
	Write
	Append
)

// Sep is the catch-all node type for leaf nodes that lack internal structures
// and semantics, and serve solely for syntactic purposes. The parsing of
// separators depend on the Parent node; as such it lacks a genuine parse
// method.
type Sep struct {
	node
}

// NewSep makes a new Sep.
func NewSep(src string, begin, end int) *Sep {
	return &Sep{node: node{diag.Ranging{From: begin, To: end}, src[begin:end], nil, nil}}
}

func (*Sep) parse(*parser) {
	// A no-op, only to satisfy the Node interface.
}

func addSep(n Node, ps *parser) {
	var begin int
	ch := Children(n)
	if len(ch) > 0 {
		begin = ch[len(ch)-1].Range().To
	} else {
		begin = n.Range().From
	}
	if begin < ps.pos {
		addChild(n, NewSep(ps.src, begin, ps.pos))
	}
}

func parseSep(n Node, ps *parser, sep rune) bool {
	if ps.peek() == sep {
		ps.next()
		addSep(n, ps)
		return true
	}
	return false
}

func parseSpaces(n Node, ps *parser) {
	for IsWhitespace(ps.peek()) {
		ps.next()
	}
	addSep(n, ps)
}

// IsWhitespace reports whether r is a whitespace character. This includes
// newlines, since sequencing is always written with explicit operators.
func IsWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
