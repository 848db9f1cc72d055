// Package progtest provides utilities for testing subprograms.
//
// Tests are declared with [Test] and a sequence of [Case] values built with
// [ThatOopis]:
//
//	Test(t, someProgram,
//		ThatOopis("-flag").WritesStdout("output\n"))
package progtest

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"src.oopis.dev/pkg/prog"
)

// Case is a test case for a subprogram.
type Case struct {
	args  []string
	stdin string
	want  result
}

type result struct {
	exit   int
	stdout output
	stderr output
}

type output struct {
	content string
	partial bool
}

func (o output) String() string {
	if o.partial {
		return "text containing " + o.content
	}
	return "text " + o.content
}

// ThatOopis returns a new Case with the given CLI arguments.
func ThatOopis(args ...string) Case {
	return Case{args: append([]string{"oopis"}, args...)}
}

// WithStdin returns an altered Case that feeds the given input to stdin of
// the program.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c unchanged. It is useful to mark tests that otherwise
// have no expectations on the outcome.
func (c Case) DoesNothing() Case {
	return c
}

// ExitsWith returns an altered Case that requires the program to exit with
// the given code.
func (c Case) ExitsWith(code int) Case {
	c.want.exit = code
	return c
}

// WritesStdout returns an altered Case that requires the program to write
// exactly the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.stdout = output{content: s}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the program to
// write output to stdout containing the given text as a substring.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.stdout = output{content: s, partial: true}
	return c
}

// WritesStderr returns an altered Case that requires the program to write
// exactly the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.stderr = output{content: s}
	return c
}

// WritesStderrContaining returns an altered Case that requires the program to
// write output to stderr containing the given text as a substring.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.stderr = output{content: s, partial: true}
	return c
}

// Test runs each case against the given program and checks the results.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args[1:], " "), func(t *testing.T) {
			t.Helper()
			r := run(p, c.args, c.stdin)
			if r.exit != c.want.exit {
				t.Errorf("got exit %d, want %d", r.exit, c.want.exit)
			}
			checkOutput(t, "stdout", r.stdout.content, c.want.stdout)
			checkOutput(t, "stderr", r.stderr.content, c.want.stderr)
		})
	}
}

func checkOutput(t *testing.T, name, got string, want output) {
	t.Helper()
	if want.partial {
		if !strings.Contains(got, want.content) {
			t.Errorf("got %s %q, want %s", name, got, want)
		}
	} else if got != want.content {
		t.Errorf("got %s %q, want %s", name, got, want)
	}
}

func run(p prog.Program, args []string, stdin string) result {
	r0, w0 := mustPipe()
	r1, w1 := mustPipe()
	r2, w2 := mustPipe()

	// Read the output pipes concurrently so that a chatty program does not
	// block on a full pipe buffer.
	var stdout, stderr string
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		w0.WriteString(stdin)
		w0.Close()
	}()
	go func() {
		defer wg.Done()
		b, _ := io.ReadAll(r1)
		stdout = string(b)
	}()
	go func() {
		defer wg.Done()
		b, _ := io.ReadAll(r2)
		stderr = string(b)
	}()

	exit := prog.Run([3]*os.File{r0, w1, w2}, args, p)
	w1.Close()
	w2.Close()
	wg.Wait()
	r0.Close()
	r1.Close()
	r2.Close()

	return result{exit, output{content: stdout}, output{content: stderr}}
}

func mustPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return r, w
}
