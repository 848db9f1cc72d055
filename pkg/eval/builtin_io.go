package eval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

func init() {
	addBuiltinDefs(
		&Def{
			Name:    "echo",
			Flags:   map[string]string{"-n": "nonewline"},
			MaxArgs: -1,
			Run:     echo,
		},
		&Def{
			Name: "grep",
			Flags: map[string]string{
				"-i": "ignorecase", "-v": "invert", "-n": "linenumber", "-c": "count",
			},
			MinArgs:    1, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        grep,
		},
		&Def{Name: "clear", MaxArgs: 0, Run: clear},
		&Def{
			Name:  "history",
			Flags: map[string]string{"-c": "clear"},
			MaxArgs: 0,
			Run:   history,
		},
	)
}

func echo(fm *Frame, args []string) (Result, error) {
	return Result{Data: strings.Join(args, " "), SuppressNewline: fm.Flags["nonewline"]}, nil
}

func grep(fm *Frame, args []string) (Result, error) {
	pat := args[0]
	if fm.Flags["ignorecase"] {
		pat = "(?i)" + pat
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return Result{}, fmt.Errorf("invalid pattern: %v", err)
	}

	type source struct{ name, content string }
	var sources []source
	if len(args) == 1 {
		sources = append(sources, source{"", fm.Stdin})
	} else {
		for _, arg := range args[1:] {
			content, err := fm.Evaler.fs.ReadFile(arg, fm.Cwd(), fm.User())
			if err != nil {
				return Result{}, err
			}
			sources = append(sources, source{arg, content})
		}
	}

	multi := len(sources) > 1
	var out []string
	count := 0
	for _, src := range sources {
		for i, line := range strings.Split(strings.TrimSuffix(src.content, "\n"), "\n") {
			if re.MatchString(line) == fm.Flags["invert"] {
				continue
			}
			count++
			if fm.Flags["count"] {
				continue
			}
			match := line
			if fm.Flags["linenumber"] {
				match = fmt.Sprintf("%d:%s", i+1, match)
			}
			if multi {
				match = src.name + ":" + match
			}
			out = append(out, match)
		}
	}
	if fm.Flags["count"] {
		return Result{Data: strconv.Itoa(count)}, nil
	}
	return Result{Data: strings.Join(out, "\n")}, nil
}

func clear(fm *Frame, args []string) (Result, error) {
	return Result{Effect: ClearScreen{}}, nil
}

func history(fm *Frame, args []string) (Result, error) {
	if fm.Flags["clear"] {
		fm.Evaler.sessions.ClearHistory()
		return Result{}, nil
	}
	var b strings.Builder
	for i, line := range fm.Evaler.sessions.History() {
		fmt.Fprintf(&b, "%5d  %s\n", i+1, line)
	}
	return Result{Data: strings.TrimSuffix(b.String(), "\n")}, nil
}
