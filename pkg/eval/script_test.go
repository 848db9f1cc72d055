package eval_test

import (
	"strings"
	"testing"

	. "src.oopis.dev/pkg/eval/evaltest"
)

func TestScriptArguments(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/s.osh", "echo \"$1 $# $@\"\n", 0o755)
	},
		That("run s.osh a 'b c' d").Prints("a 3 a b c d\n"),
		That("run s.osh").Prints(" 0 \n"),
	)
}

func TestScriptVariableIsolation(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/s.osh", "set X inner\necho in:$X\n", 0o755)
	},
		// The script's frame is popped on return; its writes vanish.
		That("run s.osh", "echo out:x$X").Prints("in:inner\nout:x\n"),
	)
}

func TestScriptStopsAtFirstFailure(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/s.osh", "cat /nope\necho after\n", 0o755)
	},
		That("run s.osh").
			Throws(ErrorWithMessage("run: cat: /nope: no such file or directory")),
	)
}

func TestScriptStepCap(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		// One more line than the fixture's cap of 100.
		mustWrite(t, f, "/home/Guest/s.osh", strings.Repeat("echo x\n", 101), 0o755)
	},
		That("run s.osh").
			Throws(ErrorWithMessage("run: maximum script steps exceeded (100)")),
	)
}

func TestNestedScripts(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/inner.osh", "echo inner done\n", 0o755)
		mustWrite(t, f, "/home/Guest/outer.osh",
			"run inner.osh\necho outer done\n", 0o755)
	},
		That("run outer.osh").Prints("inner done\nouter done\n"),
	)
}

func TestScriptAnswersPrompts(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		registerUser(t, f, "alice", "secret")
		// The line after the prompting command is consumed as its answer,
		// never executed.
		mustWrite(t, f, "/home/Guest/s.osh",
			"login alice\nsecret\necho after\n", 0o755)
	},
		That("run s.osh").Prints("Logged in as alice.\nafter\n"),
	)
}

func TestScriptSkipsCommentsAndBlanks(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/s.osh", "# header\n\necho ok\n", 0o755)
	},
		That("run s.osh").Prints("ok\n"),
	)
}

func TestScriptNeedsExecutePermission(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/home/Guest/s.osh", "echo x\n", 0o644)
	},
		That("run s.osh").
			Throws(ErrorWithMessage("run: /home/Guest/s.osh: permission denied")),
	)
}
