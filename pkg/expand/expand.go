// Package expand implements the textual preprocessor that rewrites a raw
// command line before it reaches the parser. The passes run in a fixed
// order: brace expansion, assignment-with-substitution, inline command
// substitution, comment stripping, script argument substitution, variable
// expansion, and alias resolution on the first token.
//
// The passes are string rewrites, not a parse. Single quotes protect their
// content from every substitution; double quotes protect from brace
// expansion and comment stripping but still admit $ substitution, which is
// what lets "$1 $# $@" work inside a quoted script line. Anything the
// passes leave behind, like an unmatched $( or a stray brace, is handed to
// the parser as-is.
package expand

import (
	"errors"
	"strconv"
	"strings"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/parse"
)

// ErrBacktick is returned for input that uses backtick substitution.
var ErrBacktick = errors.New("backtick substitution is not supported; use $(...)")

// maxAliasSteps bounds how many times the first token may be rewritten
// before alias resolution gives up with an alias loop error.
const maxAliasSteps = 10

// Config supplies the environment for one preprocessing run.
//
// Run and SetVar must be non-nil when the input can contain command
// substitution or assignment. A nil Var expands every variable to the
// empty string; a nil Alias disables alias resolution.
type Config struct {
	// Run executes code as a non-interactive command line and returns its
	// collected output.
	Run func(code string) (string, error)
	// Var looks up a variable in the active environment frame.
	Var func(name string) (string, bool)
	// SetVar writes a variable to the active environment frame.
	SetVar func(name, value string) error
	// Alias resolves an alias name to its replacement text.
	Alias func(name string) (string, bool)
	// InScript marks script execution, enabling $@, $# and $1..$N.
	InScript bool
	// Args holds the script invocation arguments when InScript is set.
	Args []string
}

// Expand rewrites code through all preprocessor passes and returns the
// text to parse. The result is empty when the preprocessor consumes the
// whole input, as an assignment does.
func Expand(code string, cfg Config) (string, error) {
	if err := checkBackticks(code); err != nil {
		return "", err
	}
	code = expandBraces(code)
	if name, cmd, ok := splitAssign(code); ok {
		out, err := cfg.Run(cmd)
		if err != nil {
			return "", err
		}
		return "", cfg.SetVar(name, collapse(out))
	}
	code, err := cfg.substCommands(code)
	if err != nil {
		return "", err
	}
	code = stripComment(code)
	if cfg.InScript {
		code = substArgs(code, cfg.Args)
	}
	code = expandVars(code, cfg.Var)
	return resolveAliases(code, cfg.Alias)
}

// checkBackticks refuses backtick substitution anywhere outside single
// quotes.
func checkBackticks(code string) error {
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote != '\'' && c == '`':
			return ErrBacktick
		}
	}
	return nil
}

// splitAssign matches input of the exact shape NAME=$(cmd), modulo
// surrounding whitespace, and returns the target name and the inner
// command.
func splitAssign(code string) (name, cmd string, ok bool) {
	s := strings.TrimSpace(code)
	eq := strings.IndexByte(s, '=')
	if eq <= 0 || !validName(s[:eq]) || !strings.HasPrefix(s[eq+1:], "$(") {
		return "", "", false
	}
	inner, end := matchParen(s, eq+1)
	if end != len(s) {
		return "", "", false
	}
	return s[:eq], inner, true
}

// substCommands replaces every $(cmd) outside single quotes with the
// collapsed output of running cmd. An unterminated $( stays literal.
func (cfg Config) substCommands(code string) (string, error) {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(code); {
		c := code[i]
		if quote == 0 && (c == '\'' || c == '"') {
			quote = c
		} else if quote != 0 && c == quote {
			quote = 0
		} else if quote != '\'' && c == '$' && i+1 < len(code) && code[i+1] == '(' {
			if inner, end := matchParen(code, i); end >= 0 {
				out, err := cfg.Run(inner)
				if err != nil {
					return "", err
				}
				sb.WriteString(collapse(out))
				i = end
				continue
			}
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String(), nil
}

// matchParen scans the $( at position i and returns the text between the
// parens and the index just past the closing one, or -1 if it never
// closes. Parens inside quotes do not count toward the balance.
func matchParen(s string, i int) (inner string, end int) {
	depth := 1
	var quote byte
	for j := i + 2; j < len(s); j++ {
		c := s[j]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return s[i+2 : j], j + 1
			}
		}
	}
	return "", -1
}

// stripComment truncates code at the first unquoted # that begins a token.
func stripComment(code string) string {
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && c == '#' && (i == 0 || parse.IsWhitespace(rune(code[i-1]))):
			return code[:i]
		}
	}
	return code
}

// substArgs replaces the script argument forms outside single quotes: $@
// joins all arguments with single spaces, $# is the argument count, and
// $N is the Nth argument counting from 1, empty when out of range.
func substArgs(code string, args []string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(code); {
		c := code[i]
		if quote == 0 && (c == '\'' || c == '"') {
			quote = c
		} else if quote != 0 && c == quote {
			quote = 0
		} else if quote != '\'' && c == '$' && i+1 < len(code) {
			switch d := code[i+1]; {
			case d == '@':
				sb.WriteString(strings.Join(args, " "))
				i += 2
				continue
			case d == '#':
				sb.WriteString(strconv.Itoa(len(args)))
				i += 2
				continue
			case '0' <= d && d <= '9':
				j := i + 1
				for j < len(code) && '0' <= code[j] && code[j] <= '9' {
					j++
				}
				n, _ := strconv.Atoi(code[i+1 : j])
				if 1 <= n && n <= len(args) {
					sb.WriteString(args[n-1])
				}
				i = j
				continue
			}
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

// expandVars replaces $NAME and ${NAME} outside single quotes with the
// variable's value. Unknown names expand to the empty string.
func expandVars(code string, lookup func(string) (string, bool)) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(code); {
		c := code[i]
		if quote == 0 && (c == '\'' || c == '"') {
			quote = c
		} else if quote != 0 && c == quote {
			quote = 0
		} else if quote != '\'' && c == '$' {
			if name, end := varRef(code, i); end > 0 {
				if lookup != nil {
					if v, ok := lookup(name); ok {
						sb.WriteString(v)
					}
				}
				i = end
				continue
			}
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

// varRef parses a $NAME or ${NAME} reference starting at i and returns the
// name and the index just past the reference, or 0 if there is none.
func varRef(code string, i int) (string, int) {
	if i+1 >= len(code) {
		return "", 0
	}
	if code[i+1] == '{' {
		j := strings.IndexByte(code[i+2:], '}')
		if j < 0 || !validName(code[i+2:i+2+j]) {
			return "", 0
		}
		return code[i+2 : i+2+j], i + 3 + j
	}
	if !isNameStart(code[i+1]) {
		return "", 0
	}
	j := i + 2
	for j < len(code) && isNameByte(code[j]) {
		j++
	}
	return code[i+1 : j], j
}

// resolveAliases rewrites the first token while it names an alias. The
// number of rewrites is bounded; running into the bound while the head
// still resolves is reported as an alias loop.
func resolveAliases(code string, lookup func(string) (string, bool)) (string, error) {
	if lookup == nil {
		return code, nil
	}
	for steps := 0; ; steps++ {
		head := 0
		for head < len(code) && parse.IsWhitespace(rune(code[head])) {
			head++
		}
		rest := head
		for rest < len(code) && !parse.IsWhitespace(rune(code[rest])) {
			rest++
		}
		val, ok := lookup(code[head:rest])
		if !ok {
			return code, nil
		}
		if steps == maxAliasSteps {
			return "", &errs.AliasLoop{Name: code[head:rest]}
		}
		code = code[:head] + val + code[rest:]
	}
}

// collapse trims surrounding whitespace and folds newlines into single
// spaces, the shape substitution output takes inside a command line.
func collapse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", " ")
}

func isNameStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isNameByte(c byte) bool { return isNameStart(c) || '0' <= c && c <= '9' }

func validName(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}
