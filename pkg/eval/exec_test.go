package eval_test

import (
	"testing"

	"src.oopis.dev/pkg/errs"
	. "src.oopis.dev/pkg/eval/evaltest"
	"src.oopis.dev/pkg/vfs"
)

func TestSequenceOperators(t *testing.T) {
	Test(t,
		That("echo a; echo b").Prints("a\nb\n"),
		That("echo a && echo b").Prints("a\nb\n"),
		That("echo a || echo b").Prints("a\n"),
		// The failing head is reported; && skips the tail.
		That("cat /nope && echo b").
			Throws(ErrorWithMessage("cat: /nope: no such file or directory")),
		That("cat /nope || echo b").Prints("b\n"),
		That("cat /nope; echo b").Prints("b\n"),
	)
}

func TestPipeline(t *testing.T) {
	Test(t,
		That("echo hello | grep h").Prints("hello\n"),
		That("echo hello | grep x").DoesNothing(),
		That("echo one two | cat").Prints("one two\n"),
		That("echo a | cat | cat | cat").Prints("a\n"),
		// The pipeline stops at the first failing segment.
		That("cat /nope | echo never").
			Throws(ErrorWithMessage("cat: /nope: no such file or directory")),
	)
}

func TestRedirection(t *testing.T) {
	Test(t,
		That("echo hello | grep h > out.txt").
			Passes(hasFile("/home/Guest/out.txt", "hello\n")),
		That("echo a > f.txt", "echo b >> f.txt").
			Passes(hasFile("/home/Guest/f.txt", "a\nb\n")),
		That("echo -n x > f.txt").
			Passes(hasFile("/home/Guest/f.txt", "x")),
		That("echo hi > f.txt", "cat < f.txt").Prints("hi\n"),
		That("echo a > m.txt", "echo b >> m.txt", "grep -c . < m.txt").
			Prints("2\n"),
		// Redirecting onto a directory is refused before anything is
		// written.
		That("mkdir d", "echo x > d").
			Throws(ErrorWithType(&errs.NotFile{})),
		That("cat < /nope").
			Throws(ErrorWithType(&errs.NoSuchFileOrDir{})),
		// A failed pipeline never reaches its redirection.
		That("cat /nope > out.txt", "cat out.txt").
			Throws(ErrorWithType(&errs.NoSuchFileOrDir{})),
	)
}

func TestRedirectionCreatesParents(t *testing.T) {
	Test(t,
		That("echo deep > a/b/c.txt").
			Passes(hasFile("/home/Guest/a/b/c.txt", "deep\n")),
	)
}

func TestBraceExpansion(t *testing.T) {
	Test(t,
		That("mkdir {d1,d2,d3} && ls -d d*").Prints("d1\nd2\nd3\n"),
		That("echo {1..3}").Prints("1 2 3\n"),
		That("echo {c..a}").Prints("c b a\n"),
		// When the head fails, && skips the tail entirely.
		That("mkdir dd", "mkdir dd && echo never").
			Throws(ErrorWithMessage("mkdir: /home/Guest/dd: file exists")),
	)
}

func TestVariableExpansion(t *testing.T) {
	Test(t,
		That("set GREET hello", "echo $GREET world").Prints("hello world\n"),
		That(`echo "${HOME}"`).Prints("/home/Guest\n"),
		// Unknown names expand to the empty string.
		That("echo x$NO_SUCH_VAR").Prints("x\n"),
		That("X=$(echo a; echo b)", "echo $X").Prints("a b\n"),
		That("echo got:$(echo hi)").Prints("got:hi\n"),
	)
}

func TestCommandNotFound(t *testing.T) {
	Test(t,
		That("nosuchcmd").Throws(ErrorWithType(&errs.CommandNotFound{})),
		That("nosuchcmd || echo fallback").Prints("fallback\n"),
	)
}

func TestBinScripts(t *testing.T) {
	TestWithSetup(t, func(t *testing.T, f *Fixture) {
		mustWrite(t, f, "/bin/greet", "echo hi from bin\n", 0o755)
		mustWrite(t, f, "/bin/secret", "echo top secret\n", 0o700)
	},
		That("greet").Prints("hi from bin\n"),
		// An installed command the user may not execute stays invisible.
		That("secret").Throws(ErrorWithType(&errs.CommandNotFound{})),
	)
}

func TestUsageChecks(t *testing.T) {
	Test(t,
		That("pwd extra").
			Throws(ErrorWithMessage("pwd: expected 0 arguments, got 1")),
		That("mkdir").
			Throws(ErrorWithMessage("mkdir: expected at least 1 argument, got 0")),
		That("touch f", "cd f").
			Throws(ErrorWithMessage("cd: /home/Guest/f: is not a directory")),
	)
}

func TestPermissionChecks(t *testing.T) {
	Test(t,
		// Guest may not write into /etc, and may not read the sudoers file.
		That("echo x > /etc/f").
			Throws(ErrorWithType(&errs.PermissionDenied{})),
		That("cat /etc/sudoers").
			Throws(ErrorWithType(&errs.PermissionDenied{})),
		That("cat /etc/agenda.json").Prints("[]\n"),
	)
}

func TestSymlinkLoop(t *testing.T) {
	Test(t,
		That("ln -s a b", "ln -s b a", "cat a").
			Throws(ErrorWithMessage(
				"cat: /home/Guest/a: too many levels of symbolic links")).
			Passes(func(t *testing.T, f *Fixture) {
				// Both links survive the failed read untouched.
				for _, name := range []string{"a", "b"} {
					info, err := f.FS.Stat("/home/Guest/"+name, "/", "root", true)
					if err != nil {
						t.Errorf("stat %s: %v", name, err)
						continue
					}
					if info.Type != vfs.TypeSymlink {
						t.Errorf("%s has type %v, want symlink", name, info.Type)
					}
				}
			}),
	)
}

func TestEffects(t *testing.T) {
	Test(t,
		That("clear").Passes(func(t *testing.T, f *Fixture) {
			if got := f.UI.Cleared(); got != 1 {
				t.Errorf("cleared %d times, want 1", got)
			}
		}),
		That("echo data > f.txt", "backup f.txt").
			Passes(func(t *testing.T, f *Fixture) {
				want := []SavedFile{{Name: "f.txt", Content: "data\n"}}
				got := f.UI.Saves()
				if len(got) != 1 || got[0] != want[0] {
					t.Errorf("saves = %v, want %v", got, want)
				}
			}),
	)
}

func TestParseErrors(t *testing.T) {
	Test(t,
		That("echo a |").Throws(AnyParseError),
		That("echo a &&").Throws(AnyParseError),
		That("echo (sub)").Throws(AnyParseError),
		That("echo `bad`").Throws(AnyError),
	)
}

// hasFile returns a verification function asserting the exact content of a
// file, read as root so the check itself cannot be denied.
func hasFile(path, want string) func(*testing.T, *Fixture) {
	return func(t *testing.T, f *Fixture) {
		t.Helper()
		got, err := f.FS.ReadFile(path, "/", "root")
		if err != nil {
			t.Errorf("read %s: %v", path, err)
			return
		}
		if got != want {
			t.Errorf("%s contains %q, want %q", path, got, want)
		}
	}
}

// mustWrite creates a file as root with the given mode.
func mustWrite(t *testing.T, f *Fixture, path, content string, mode uint16) {
	t.Helper()
	err := f.FS.CreateOrUpdateFile(path, "/", content,
		vfs.CreateOpts{User: "root", Group: "root", Mode: mode})
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
