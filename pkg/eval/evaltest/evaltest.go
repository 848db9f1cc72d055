// Package evaltest provides a framework for testing oopis command lines
// end to end, against a real service stack backed by a temporary store.
//
// The entry point for the framework is the Test function, which accepts a
// *testing.T and any number of test cases.
//
// Test cases are constructed using the That function, followed by method
// calls that add expectations to it:
//
//	Test(t,
//	    That("echo hi").Prints("hi\n"),
//	    That("cat /nope").Throws(ErrorWithType(&errs.NoSuchFileOrDir{})))
//
// Each argument to That is one line of input, evaluated in order the way a
// user would type them; newlines never join lines, since sequencing is
// written with explicit operators.
package evaltest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"src.oopis.dev/pkg/audit"
	"src.oopis.dev/pkg/config"
	"src.oopis.dev/pkg/dialog"
	"src.oopis.dev/pkg/eval"
	"src.oopis.dev/pkg/expand"
	"src.oopis.dev/pkg/job"
	"src.oopis.dev/pkg/session"
	"src.oopis.dev/pkg/store"
	"src.oopis.dev/pkg/sudo"
	"src.oopis.dev/pkg/userdb"
	"src.oopis.dev/pkg/vfs"
)

// Fixture is a complete booted system: every core service, an Evaler over
// them, and a terminal that records what it is told to show.
type Fixture struct {
	FS       *vfs.FS
	Users    *userdb.DB
	Sessions *session.Service
	Sudo     *sudo.Service
	Audit    *audit.Logger
	Jobs     *job.Table
	Bus      *job.Bus
	Dialog   *dialog.Broker
	Aliases  *expand.Aliases
	Evaler   *eval.Evaler
	UI       *RecordingUI
}

// NewFixture boots a fresh system against a temporary store, wired the same
// way the shell wires the real one.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	st := store.MustTempStore(t)
	cfg := config.Default()

	users, err := userdb.Load(st, cfg.DefaultUser)
	if err != nil {
		t.Fatalf("load user database: %v", err)
	}
	fs, err := vfs.LoadOrInit(st, users, cfg.MaxFsBytes, cfg.DefaultUser)
	if err != nil {
		t.Fatalf("init filesystem: %v", err)
	}
	sessions, err := session.New(st, users, cfg.Host, cfg.DefaultUser)
	if err != nil {
		t.Fatalf("init sessions: %v", err)
	}
	aliases, err := expand.LoadAliases(st)
	if err != nil {
		t.Fatalf("load aliases: %v", err)
	}
	sudoSvc := sudo.New(fs, users)
	sessions.AddLeaveHook(sudoSvc.ClearStamp)
	bus := job.NewBus()
	jobs := job.NewTable(bus)
	broker := dialog.New()
	ui := &RecordingUI{}
	jobs.SetNotify(func(line string) {
		ui.Append(line, eval.OutputOpts{Background: true})
	})

	f := &Fixture{
		FS:       fs,
		Users:    users,
		Sessions: sessions,
		Sudo:     sudoSvc,
		Audit:    audit.New(fs),
		Jobs:     jobs,
		Bus:      bus,
		Dialog:   broker,
		Aliases:  aliases,
		UI:       ui,
	}
	f.Evaler = eval.NewEvaler(eval.Deps{
		FS:       f.FS,
		Users:    f.Users,
		Sessions: f.Sessions,
		Sudo:     f.Sudo,
		Audit:    f.Audit,
		Jobs:     f.Jobs,
		Bus:      f.Bus,
		Dialog:   f.Dialog,
		Aliases:  f.Aliases,
		UI:       f.UI,
		// Low enough that a runaway script fails the test instead of
		// filling its five minutes.
		MaxScriptSteps: 100,
		OSVersion:      "test",
	})
	return f
}

// Eval evaluates one line the way a typed line is evaluated. stdin, when
// not nil, answers modal input requests during the line.
func (f *Fixture) Eval(line string, stdin *dialog.Cursor) error {
	return f.Evaler.Eval(context.Background(), line,
		eval.EvalCfg{Interactive: true, Stdin: stdin})
}

// MustEval evaluates lines in order and fails the test on the first error.
// It is the usual way to arrange state inside a setup function.
func (f *Fixture) MustEval(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := f.Eval(line, nil); err != nil {
			t.Fatalf("eval %q: %v", line, err)
		}
	}
}

// WaitJob blocks until the background job has left the job table, failing
// the test if it does not within a generous deadline.
func (f *Fixture) WaitJob(t *testing.T, id int) {
	t.Helper()
	ch := f.Jobs.Done(id)
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("job %d did not finish", id)
	}
}

// SavedFile is one download the terminal was handed.
type SavedFile struct {
	Name    string
	Content string
}

// RecordingUI records everything the executor sends to the terminal,
// keeping ordinary output, error output and background notifications
// apart so tests can assert on each.
type RecordingUI struct {
	mu      sync.Mutex
	out     strings.Builder
	errs    []string
	notes   []string
	saves   []SavedFile
	cleared int
}

func (u *RecordingUI) Append(text string, opts eval.OutputOpts) {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch {
	case opts.Class == eval.ClassError:
		u.errs = append(u.errs, text)
	case opts.Background:
		u.notes = append(u.notes, text)
	default:
		u.out.WriteString(text)
		if !opts.SuppressNewline {
			u.out.WriteByte('\n')
		}
	}
}

func (u *RecordingUI) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cleared++
}

func (u *RecordingUI) Download(name, content string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.saves = append(u.saves, SavedFile{Name: name, Content: content})
}

// Output returns the ordinary output so far, newlines applied.
func (u *RecordingUI) Output() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.out.String()
}

// Errors returns the error lines so far.
func (u *RecordingUI) Errors() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.errs...)
}

// Notes returns the background notification lines so far.
func (u *RecordingUI) Notes() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.notes...)
}

// Saves returns the downloads so far.
func (u *RecordingUI) Saves() []SavedFile {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]SavedFile(nil), u.saves...)
}

// Cleared returns how many times the terminal was cleared.
func (u *RecordingUI) Cleared() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cleared
}

// Reset forgets everything recorded so far. The test runner calls it after
// setup so expectations cover only the case's own lines.
func (u *RecordingUI) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.out.Reset()
	u.errs = nil
	u.notes = nil
	u.saves = nil
	u.cleared = 0
}

// Case is a test case that can be used in Test.
type Case struct {
	lines  []string
	input  []string
	setup  func(t *testing.T, f *Fixture)
	verify func(t *testing.T, f *Fixture)
	want   result
}

type result struct {
	out string
	err error
}

// That returns a new Case evaluating the given input lines in order.
//
// When combined with subsequent method calls, a test case reads like
// English. For example, a test for the fact that "echo hi" prints "hi"
// reads:
//
//	That("echo hi").Prints("hi\n")
func That(lines ...string) Case {
	return Case{lines: lines}
}

// Then returns a new Case that evaluates the given lines in addition.
func (c Case) Then(lines ...string) Case {
	c.lines = append(c.lines, lines...)
	return c
}

// WithSetup returns a new Case with the given setup function run on the
// fixture before the lines are evaluated. What setup prints is not part of
// the expected output.
func (c Case) WithSetup(f func(t *testing.T, f *Fixture)) Case {
	c.setup = f
	return c
}

// WithInput returns a new Case whose lines see the given lines as piped
// standard input. Modal input requests consume them before any other
// source, so this is how password prompts are answered in tests.
func (c Case) WithInput(lines ...string) Case {
	c.input = lines
	return c
}

// DoesNothing returns c unchanged. It marks cases whose point is the
// absence of output and error, for example:
//
//	That("mkdir /tmp/d").DoesNothing()
func (c Case) DoesNothing() Case {
	return c
}

// Passes returns an altered Case that runs an additional verification
// function after the lines have been evaluated.
func (c Case) Passes(f func(t *testing.T, f *Fixture)) Case {
	c.verify = f
	return c
}

// Prints returns an altered Case that requires the lines to produce
// exactly the given terminal output. Error output and background
// notifications are not part of it.
func (c Case) Prints(out string) Case {
	c.want.out = out
	return c
}

// Throws returns an altered Case that requires evaluation to fail with the
// given error. The error supports special matcher values constructed by
// functions like ErrorWithMessage; a plain error matches by deep equality.
// If several lines fail, the last failure is matched.
func (c Case) Throws(reason error) Case {
	c.want.err = reason
	return c
}

// Test runs test cases against fresh fixtures, one per case.
func Test(t *testing.T, tests ...Case) {
	t.Helper()
	TestWithSetup(t, func(*testing.T, *Fixture) {}, tests...)
}

// TestWithSetup runs test cases. For each case a fresh Fixture is booted
// and passed to the setup function, then to the case's own setup.
func TestWithSetup(t *testing.T, setup func(t *testing.T, f *Fixture), tests ...Case) {
	t.Helper()
	for _, tc := range tests {
		t.Run(strings.Join(tc.lines, "\n"), func(t *testing.T) {
			t.Helper()
			f := NewFixture(t)
			setup(t, f)
			if tc.setup != nil {
				tc.setup(t, f)
			}
			f.UI.Reset()

			var stdin *dialog.Cursor
			if tc.input != nil {
				stdin = dialog.NewCursor(tc.input)
			}
			var lastErr error
			for _, line := range tc.lines {
				if err := f.Eval(line, stdin); err != nil {
					lastErr = err
				}
			}

			if tc.verify != nil {
				tc.verify(t, f)
			}
			if got := f.UI.Output(); got != tc.want.out {
				t.Errorf("printed %q, want %q", got, tc.want.out)
			}
			if !matchErr(tc.want.err, lastErr) {
				t.Errorf("got error %v, want %v", lastErr, tc.want.err)
				t.Logf("got error type %T", lastErr)
			}
		})
	}
}
