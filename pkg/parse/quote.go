package parse

import "strings"

// Quote returns a representation of s that parses back to a single word with
// value s. If s is a valid bareword it is returned as is; otherwise it is
// quoted, preferring single quotes. Since quoted strings have no escape
// sequences, a string containing both kinds of quotes is rendered as a
// concatenation of quoted pieces.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	bare := true
	for _, r := range s {
		if !allowedInBareword(r) {
			bare = false
			break
		}
	}
	if bare {
		return s
	}
	var sb strings.Builder
	for s != "" {
		i := strings.IndexByte(s, '\'')
		if i == -1 {
			sb.WriteString("'" + s + "'")
			break
		}
		if i > 0 {
			sb.WriteString("'" + s[:i] + "'")
			s = s[i:]
		}
		j := 0
		for j < len(s) && s[j] == '\'' {
			j++
		}
		sb.WriteString(`"` + s[:j] + `"`)
		s = s[j:]
	}
	return sb.String()
}
