package parse

import (
	"fmt"
	"os"
	"testing"
)

func a(c ...any) ast {
	// Shorthand used for checking Word and levels beneath.
	return ast{"Chunk/Pipeline/Segment", fs{"Head": "a", "Args": c}}
}

var testCases = []struct {
	name string
	code string
	node Node
	want ast

	wantErrPart  string
	wantErrAtEnd bool
	wantErrMsg   string
}{
	// Chunk
	{
		name: "empty chunk",
		code: "",
		node: &Chunk{},
		want: ast{"Chunk", fs{"Pipelines": nil}},
	},
	{
		name: "whitespace only",
		code: " \t ",
		node: &Chunk{},
		want: ast{"Chunk", fs{"Pipelines": nil}},
	},
	{
		name: "single command",
		code: "ls",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline/Segment", fs{"Head": "ls"}},
	},
	{
		name: "sequence with operators",
		code: "a; b&&c || d",
		node: &Chunk{},
		want: ast{"Chunk", fs{"Pipelines": []ast{
			{"Pipeline", fs{"Segments": []string{"a"}, "Op": ";"}},
			{"Pipeline", fs{"Segments": []string{"b"}, "Op": "&&"}},
			{"Pipeline", fs{"Segments": []string{"c "}, "Op": "||"}},
			{"Pipeline/Segment", fs{"Head": "d"}},
		}}},
	},
	{
		name: "trailing semicolon",
		code: "a;",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{"Segments": []string{"a"}, "Op": ";"}},
	},
	{
		name: "background pipeline",
		code: "sleep 5 &",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"sleep 5 "}, "Op": "&", "Background": true}},
	},
	{
		name: "background pipeline followed by another",
		code: "a& b",
		node: &Chunk{},
		want: ast{"Chunk", fs{"Pipelines": []ast{
			{"Pipeline", fs{"Segments": []string{"a"}, "Op": "&", "Background": true}},
			{"Pipeline/Segment", fs{"Head": "b"}},
		}}},
	},

	// Pipeline
	{
		name: "pipeline",
		code: "a|b|c",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{"Segments": []string{"a", "b", "c"}}},
	},
	{
		name: "spaces around pipes",
		code: "a | b",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{"Segments": []string{"a ", "b"}}},
	},
	{
		name: "pipe then redirection",
		code: "echo hello | grep h > out.txt",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"echo hello ", "grep h "},
			"Out":      ast{"Redir", fs{"Mode": Write, "Right": "out.txt"}}}},
	},

	// Redirections
	{
		name: "output redirection without spaces",
		code: "a>f",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"a"},
			"Out":      ast{"Redir", fs{"Mode": Write, "Right": "f"}}}},
	},
	{
		name: "append redirection",
		code: "a >> f",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"a "},
			"Out":      ast{"Redir", fs{"Mode": Append, "Right": "f"}}}},
	},
	{
		name: "input redirection",
		code: "a < f",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"a "},
			"In":       ast{"Redir", fs{"Mode": Read, "Right": "f"}}}},
	},
	{
		name: "redirections in either order",
		code: "sort < in > out",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"sort "},
			"In":       ast{"Redir", fs{"Mode": Read, "Right": "in"}},
			"Out":      ast{"Redir", fs{"Mode": Write, "Right": "out"}}}},
	},
	{
		name: "redirection with quoted filename",
		code: "a > 'my file'",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"a "},
			"Out": ast{"Redir", fs{
				"Mode": Write, "Right": ast{"Word", fs{"Value": "my file"}}}}}},
	},
	{
		name: "redirection then background",
		code: "a > f &",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments":   []string{"a "},
			"Out":        ast{"Redir", fs{"Mode": Write, "Right": "f"}},
			"Op":         "&",
			"Background": true}},
	},
	{
		name: "operator ends a word",
		code: "a x>f",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline", fs{
			"Segments": []string{"a x"},
			"Out":      ast{"Redir", fs{"Mode": Write, "Right": "f"}}}},
	},

	// Words
	{
		name: "command with args",
		code: "a x y",
		node: &Chunk{},
		want: a("x", "y"),
	},
	{
		name: "single-quoted word",
		code: "a 'hello world'",
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "hello world"}}),
	},
	{
		name: "double-quoted word",
		code: `a "x  y"`,
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "x  y"}}),
	},
	{
		name: "adjacent pieces concatenate",
		code: `a b'c d'"e"f`,
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "bc def"}}),
	},
	{
		name: "quote of the other kind is literal",
		code: `a "don't"`,
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "don't"}}),
	},
	{
		name: "empty quotes",
		code: "a ''",
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": ""}}),
	},
	{
		name: "operators inside quotes are literal",
		code: `a "x|y;z"`,
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "x|y;z"}}),
	},
	{
		name: "leftover expansion characters stay literal",
		code: "a {x}$y",
		node: &Chunk{},
		want: a(ast{"Word", fs{"Value": "{x}$y"}}),
	},
	{
		name: "unicode in barewords",
		code: "café au-lait",
		node: &Chunk{},
		want: ast{"Chunk/Pipeline/Segment", fs{
			"Head": "café", "Args": []string{"au-lait"}}},
	},

	// Parsing sub-nodes directly
	{
		name: "segment parsed directly",
		code: "  ls -l",
		node: &Segment{},
		want: ast{"Segment", fs{"Head": "ls", "Args": []string{"-l"}}},
	},
	{
		name: "word parsed directly",
		code: `b'c d'`,
		node: &Word{},
		want: ast{"Word", fs{"Value": "bc d"}},
	},

	// Errors
	{
		name:         "no command after pipe",
		code:         "a|",
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "should be command",
	},
	{
		name:        "empty segment between pipes",
		code:        "a | | b",
		node:        &Chunk{},
		wantErrPart: "|",
		wantErrMsg:  "should be command",
	},
	{
		name:         "dangling &&",
		code:         "a &&",
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "should be command",
	},
	{
		name:         "dangling || with trailing space",
		code:         "a || ",
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "should be command",
	},
	{
		name:        "leading semicolon",
		code:        "; a",
		node:        &Chunk{},
		wantErrPart: ";",
		wantErrMsg:  "unexpected rune ';'",
	},
	{
		name:        "word after redirection",
		code:        "a > f b",
		node:        &Chunk{},
		wantErrPart: "b",
		wantErrMsg:  "unexpected rune 'b'",
	},
	{
		name:        "duplicate output redirection",
		code:        "a > f > g",
		node:        &Chunk{},
		wantErrPart: "> g",
		wantErrMsg:  "duplicate output redirection",
	},
	{
		name:        "append after output redirection",
		code:        "a > f >> g",
		node:        &Chunk{},
		wantErrPart: ">> g",
		wantErrMsg:  "duplicate output redirection",
	},
	{
		name:        "duplicate input redirection",
		code:        "a < f < g",
		node:        &Chunk{},
		wantErrPart: "< g",
		wantErrMsg:  "duplicate input redirection",
	},
	{
		name:         "no redirection filename",
		code:         "a >",
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "should be filename",
	},
	{
		name:        "bad redir sign",
		code:        "a <<f",
		node:        &Chunk{},
		wantErrPart: "f",
		wantErrMsg:  "bad redir sign, should be '<', '>' or '>>'",
	},
	{
		name:         "unterminated single-quoted string",
		code:         "echo 'a b",
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "string not terminated",
	},
	{
		name:         "unterminated double-quoted string",
		code:         `echo "a b`,
		node:         &Chunk{},
		wantErrAtEnd: true,
		wantErrMsg:   "string not terminated",
	},
	{
		name:        "stray paren",
		code:        "a (b)",
		node:        &Chunk{},
		wantErrPart: "(",
		wantErrMsg:  "unexpected rune '('",
	},
}

func TestParse(t *testing.T) {
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			n := test.node
			src := SourceForTest(test.code)
			err := ParseAs(src, n)
			if test.wantErrMsg == "" {
				if err != nil {
					t.Errorf("Parse(%q) returns error: %v", test.code, err)
				}
				err = checkParseTree(n)
				if err != nil {
					t.Errorf("Parse(%q) returns bad parse tree: %v", test.code, err)
					fmt.Fprintf(os.Stderr, "Parse tree of %q:\n", test.code)
					pprintParseTree(n, os.Stderr)
				}
				err = checkAST(n, test.want)
				if err != nil {
					t.Errorf("Parse(%q) returns bad AST: %v", test.code, err)
					fmt.Fprintf(os.Stderr, "AST of %q:\n", test.code)
					pprintAST(n, os.Stderr)
				}
			} else {
				if err == nil {
					t.Errorf("Parse(%q) returns no error, want error with %q",
						test.code, test.wantErrMsg)
				}
				parseError := UnpackErrors(err)[0]
				r := parseError.Context

				if errPart := test.code[r.From:r.To]; errPart != test.wantErrPart {
					t.Errorf("Parse(%q) returns error with part %q, want %q",
						test.code, errPart, test.wantErrPart)
				}
				if atEnd := r.From == len(test.code); atEnd != test.wantErrAtEnd {
					t.Errorf("Parse(%q) returns error at end = %v, want %v",
						test.code, atEnd, test.wantErrAtEnd)
				}
				if errMsg := parseError.Message; errMsg != test.wantErrMsg {
					t.Errorf("Parse(%q) returns error with message %q, want %q",
						test.code, errMsg, test.wantErrMsg)
				}
			}
		})
	}
}

func TestParse_ReturnsTreeContainingSourceFromArgument(t *testing.T) {
	src := SourceForTest("a")
	tree, _ := Parse(src)
	if tree.Source != src {
		t.Errorf("tree.Source = %v, want %v", tree.Source, src)
	}
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		for _, test := range testCases {
			_ = ParseAs(SourceForTest(test.code), test.node)
		}
	}
}
