package expand

import (
	"errors"
	"fmt"
	"testing"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/tt"
)

func TestExpand(t *testing.T) {
	vars := map[string]string{"USER": "Guest"}
	aliases := map[string]string{
		"ll":    "ls -l",
		"la":    "ll -a",
		"greet": "echo $USER",
	}
	cfg := Config{
		Run: func(code string) (string, error) {
			out, ok := map[string]string{
				"whoami":    "root\n",
				"lines":     "one\ntwo\n",
				"echo $(x)": "y",
			}[code]
			if !ok {
				return "", fmt.Errorf("unexpected command %q", code)
			}
			return out, nil
		},
		Var:    func(name string) (string, bool) { v, ok := vars[name]; return v, ok },
		SetVar: func(name, value string) error { vars[name] = value; return nil },
		Alias:  func(name string) (string, bool) { v, ok := aliases[name]; return v, ok },
	}

	tests := []struct{ code, want string }{
		{"echo hi", "echo hi"},

		{"echo $(whoami)", "echo root"},
		{`echo "$(whoami)"`, `echo "root"`},
		{"echo '$(whoami)'", "echo '$(whoami)'"},
		{"echo $(lines)", "echo one two"},
		{"echo $(echo $(x))", "echo y"},
		// An unterminated substitution is left for the parser to reject.
		{"echo $(foo", "echo $(foo"},

		{"echo a # b", "echo a "},
		{"echo a#b", "echo a#b"},
		{"# whole line", ""},
		{"echo '# quoted'", "echo '# quoted'"},

		{"echo $USER", "echo Guest"},
		{"echo ${USER}x", "echo Guestx"},
		{"echo $UNSET.", "echo ."},
		{"echo '$USER'", "echo '$USER'"},

		{"mkdir {d1,d2} && ls", "mkdir d1 d2 && ls"},

		{"ll /tmp", "ls -l /tmp"},
		{"la", "ls -l -a"},
		// Variable expansion has already run when aliases resolve, so an
		// alias body keeps its $ references on the line it lands on.
		{"greet", "echo $USER"},

		// Only NAME=$(cmd) is an assignment; these pass through.
		{"X=5", "X=5"},
		{"2X=$(whoami)", "2X=root"},
	}
	for _, test := range tests {
		got, err := Expand(test.code, cfg)
		if err != nil {
			t.Errorf("Expand(%q) -> error %v", test.code, err)
		} else if got != test.want {
			t.Errorf("Expand(%q) = %q, want %q", test.code, got, test.want)
		}
	}
}

func TestExpand_Assignment(t *testing.T) {
	vars := make(map[string]string)
	ran := ""
	cfg := Config{
		Run: func(code string) (string, error) {
			ran = code
			return " value one\nvalue two\n", nil
		},
		SetVar: func(name, value string) error { vars[name] = value; return nil },
	}
	got, err := Expand("  GREETING=$(make greeting)  ", cfg)
	if got != "" || err != nil {
		t.Errorf("Expand = %q, %v, want empty and nil", got, err)
	}
	if ran != "make greeting" {
		t.Errorf("ran %q, want make greeting", ran)
	}
	if want := "value one value two"; vars["GREETING"] != want {
		t.Errorf("GREETING = %q, want %q", vars["GREETING"], want)
	}
}

func TestExpand_SubstitutionError(t *testing.T) {
	failure := errors.New("no such command")
	cfg := Config{
		Run:    func(string) (string, error) { return "", failure },
		SetVar: func(string, string) error { t.Error("SetVar called after a failed run"); return nil },
	}
	for _, code := range []string{"echo $(x)", "X=$(x)"} {
		if _, err := Expand(code, cfg); !errors.Is(err, failure) {
			t.Errorf("Expand(%q) -> %v, want the run error", code, err)
		}
	}
}

func TestExpand_RefusesBackticks(t *testing.T) {
	if _, err := Expand("echo `ls`", Config{}); !errors.Is(err, ErrBacktick) {
		t.Errorf("backticks -> %v, want ErrBacktick", err)
	}
	got, err := Expand("echo '`'", Config{})
	if err != nil || got != "echo '`'" {
		t.Errorf("single-quoted backtick -> %q, %v, want it kept", got, err)
	}
}

func TestExpand_AliasLoop(t *testing.T) {
	aliases := map[string]string{"x": "x", "ping": "pong", "pong": "ping"}
	cfg := Config{Alias: func(name string) (string, bool) { v, ok := aliases[name]; return v, ok }}
	for _, code := range []string{"x", "ping -c 1"} {
		var loopErr *errs.AliasLoop
		if _, err := Expand(code, cfg); !errors.As(err, &loopErr) {
			t.Errorf("Expand(%q) -> %v, want alias loop", code, err)
		}
	}
}

func TestExpand_ScriptArgs(t *testing.T) {
	cfg := Config{InScript: true, Args: []string{"a", "b c", "d"}}
	tests := []struct{ code, want string }{
		{`echo "$1 $# $@"`, `echo "a 3 a b c d"`},
		{"echo $2", "echo b c"},
		{"echo $5", "echo "},
		{"echo '$1'", "echo '$1'"},
	}
	for _, test := range tests {
		got, err := Expand(test.code, cfg)
		if err != nil || got != test.want {
			t.Errorf("Expand(%q) = %q, %v, want %q", test.code, got, err, test.want)
		}
	}

	// Outside a script the argument forms are not special, and $1 is not a
	// variable name either, so it survives as literal text.
	got, err := Expand("echo $1", Config{})
	if err != nil || got != "echo $1" {
		t.Errorf("Expand outside script = %q, %v, want echo $1", got, err)
	}
}

func TestStripComment(t *testing.T) {
	tt.Test(t, tt.Fn("stripComment", stripComment), tt.Table{
		tt.Args("echo a # b").Rets("echo a "),
		tt.Args("echo a#b").Rets("echo a#b"),
		tt.Args("# x").Rets(""),
		tt.Args("  # x").Rets("  "),
		tt.Args("echo '#x'").Rets("echo '#x'"),
		tt.Args(`echo "#x"`).Rets(`echo "#x"`),
		tt.Args("echo a #").Rets("echo a "),
	})
}

func TestSubstArgs(t *testing.T) {
	subst := func(code string) string { return substArgs(code, []string{"a", "b c", "d"}) }
	tt.Test(t, tt.Fn("substArgs", subst), tt.Table{
		tt.Args("echo $1").Rets("echo a"),
		tt.Args("echo $2").Rets("echo b c"),
		tt.Args("echo $5").Rets("echo "),
		tt.Args("echo $0").Rets("echo "),
		tt.Args("a$#b").Rets("a3b"),
		tt.Args("$@").Rets("a b c d"),
		tt.Args(`"$@"`).Rets(`"a b c d"`),
		tt.Args("'$@'").Rets("'$@'"),
	})
}

func TestExpandVars(t *testing.T) {
	vars := map[string]string{"USER": "Guest", "HOME": "/home/Guest"}
	expand := func(code string) string {
		return expandVars(code, func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		})
	}
	tt.Test(t, tt.Fn("expandVars", expand), tt.Table{
		tt.Args("$USER").Rets("Guest"),
		tt.Args("${USER}x").Rets("Guestx"),
		tt.Args("cd $HOME").Rets("cd /home/Guest"),
		tt.Args("$USERx").Rets(""),
		tt.Args("$NOPE").Rets(""),
		tt.Args("'$USER'").Rets("'$USER'"),
		tt.Args(`"$USER"`).Rets(`"Guest"`),
		tt.Args("a$-b").Rets("a$-b"),
		tt.Args("${UNTERMINATED").Rets("${UNTERMINATED"),
		tt.Args("${}").Rets("${}"),
		tt.Args("$").Rets("$"),
		tt.Args("cost$").Rets("cost$"),
	})
}

func TestSplitAssign(t *testing.T) {
	tt.Test(t, tt.Fn("splitAssign", splitAssign), tt.Table{
		tt.Args("X=$(ls)").Rets("X", "ls", true),
		tt.Args(" X=$(ls) ").Rets("X", "ls", true),
		tt.Args("A_B2=$(a $(b))").Rets("A_B2", "a $(b)", true),
		tt.Args("X=5").Rets("", "", false),
		tt.Args("=$(x)").Rets("", "", false),
		tt.Args("2X=$(x)").Rets("", "", false),
		tt.Args("X=$(x) y").Rets("", "", false),
		tt.Args("X=$(x").Rets("", "", false),
	})
}

func TestCollapse(t *testing.T) {
	tt.Test(t, tt.Fn("collapse", collapse), tt.Table{
		tt.Args("  hi\n").Rets("hi"),
		tt.Args("one\ntwo\n").Rets("one two"),
		tt.Args("a\r\nb").Rets("a b"),
		tt.Args("").Rets(""),
		tt.Args("no newline").Rets("no newline"),
	})
}
