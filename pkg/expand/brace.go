package expand

import (
	"strconv"
	"strings"

	"src.oopis.dev/pkg/parse"
)

// expandBraces applies brace expansion until no expandable group remains.
// Every expansion removes one brace pair and alternatives can only contain
// braces already present in the input, so the rewrite terminates.
func expandBraces(code string) string {
	for {
		next, ok := expandOneBrace(code)
		if !ok {
			return code
		}
		code = next
	}
}

// expandOneBrace expands the leftmost brace group that carries alternatives
// or a valid range, distributing the rest of the surrounding word over each
// choice: a{b,c}d becomes abd acd. Words are delimited by unquoted
// whitespace.
func expandOneBrace(code string) (string, bool) {
	var quote byte
	wordStart := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case parse.IsWhitespace(rune(c)):
			wordStart = i + 1
		case c == '{':
			alts, end := braceAlts(code, i)
			if alts == nil {
				continue
			}
			wordEnd := wordEndFrom(code, end)
			prefix, suffix := code[wordStart:i], code[end:wordEnd]
			words := make([]string, len(alts))
			for k, alt := range alts {
				words[k] = prefix + alt + suffix
			}
			return code[:wordStart] + strings.Join(words, " ") + code[wordEnd:], true
		}
	}
	return "", false
}

// wordEndFrom scans from i to the next unquoted whitespace.
func wordEndFrom(code string, i int) int {
	var quote byte
	for ; i < len(code); i++ {
		c := code[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case parse.IsWhitespace(rune(c)):
			return i
		}
	}
	return len(code)
}

// braceAlts parses the group opened by the { at position i. It returns the
// expansion alternatives and the index just past the closing brace, or nil
// when the group is unmatched, spans unquoted whitespace, or has nothing
// to expand. Commas and braces inside quotes are plain text.
func braceAlts(code string, i int) (alts []string, end int) {
	depth := 1
	var quote byte
	var commas []int
	for j := i + 1; j < len(code); j++ {
		c := code[j]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case parse.IsWhitespace(rune(c)):
			return nil, 0
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth > 0 {
				continue
			}
			if len(commas) > 0 {
				alts = make([]string, 0, len(commas)+1)
				prev := i + 1
				for _, k := range commas {
					alts = append(alts, code[prev:k])
					prev = k + 1
				}
				return append(alts, code[prev:j]), j + 1
			}
			if alts := rangeAlts(code[i+1 : j]); alts != nil {
				return alts, j + 1
			}
			return nil, 0
		case c == ',' && depth == 1:
			commas = append(commas, j)
		}
	}
	return nil, 0
}

// rangeAlts expands {n..m} interiors as inclusive integer sequences and
// {a..z} interiors as single-letter sequences, counting down when the
// start exceeds the end.
func rangeAlts(interior string) []string {
	k := strings.Index(interior, "..")
	if k < 0 {
		return nil
	}
	lo, hi := interior[:k], interior[k+2:]
	if lo == "" || hi == "" || strings.Contains(hi, "..") {
		return nil
	}
	if m, err := strconv.Atoi(lo); err == nil {
		n, err := strconv.Atoi(hi)
		if err != nil {
			return nil
		}
		return sequence(m, n, func(i int) string { return strconv.Itoa(i) })
	}
	if len(lo) == 1 && len(hi) == 1 && sameCaseLetters(lo[0], hi[0]) {
		return sequence(int(lo[0]), int(hi[0]), func(i int) string { return string(byte(i)) })
	}
	return nil
}

func sequence(m, n int, render func(int) string) []string {
	step := 1
	if n < m {
		step = -1
	}
	seq := make([]string, 0, (n-m)*step+1)
	for i := m; i != n+step; i += step {
		seq = append(seq, render(i))
	}
	return seq
}

func sameCaseLetters(a, b byte) bool {
	lower := func(c byte) bool { return 'a' <= c && c <= 'z' }
	upper := func(c byte) bool { return 'A' <= c && c <= 'Z' }
	return lower(a) && lower(b) || upper(a) && upper(b)
}
