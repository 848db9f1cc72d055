package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"src.oopis.dev/pkg/eval"
	"src.oopis.dev/pkg/sys"
)

// Terminal renders executor output on the host terminal and keeps the
// visible transcript for session snapshots. It is safe for concurrent use;
// background jobs write to it asynchronously.
type Terminal struct {
	mu  sync.Mutex
	in  *os.File
	out *os.File
	err *os.File
	// color is set when stderr is a terminal; error output is then shown
	// in red.
	color bool
	// tty is set when stdin is a terminal; echo toggling and screen
	// clearing only make sense then.
	tty bool

	transcript strings.Builder
	// pending is the prompt of the outstanding modal request, if any.
	pending string
	// obscured is set while echo is turned off for a password prompt.
	obscured bool
}

// NewTerminal creates a Terminal over the three standard files.
func NewTerminal(fds [3]*os.File) *Terminal {
	return &Terminal{
		in: fds[0], out: fds[1], err: fds[2],
		color: sys.IsATTY(fds[2]),
		tty:   sys.IsATTY(fds[0]),
	}
}

func (t *Terminal) Append(text string, opts eval.OutputOpts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	suffix := "\n"
	if opts.SuppressNewline {
		suffix = ""
	}
	switch {
	case opts.Class == eval.ClassError:
		if t.color {
			fmt.Fprintf(t.err, "\033[31m%s\033[m%s", text, suffix)
		} else {
			io.WriteString(t.err, text+suffix)
		}
	case opts.Background:
		io.WriteString(t.out, text+"\n")
		suffix = "\n"
	default:
		io.WriteString(t.out, text+suffix)
	}
	t.transcript.WriteString(text + suffix)
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tty {
		io.WriteString(t.out, "\033[H\033[2J")
	}
	t.transcript.Reset()
}

// Download lands a backup in the host's working directory, under the file's
// base name. Success is silent; the command reports it.
func (t *Terminal) Download(name, content string) {
	name = filepath.Base(name)
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Append(fmt.Sprintf("backup: %v", err),
			eval.OutputOpts{Class: eval.ClassError})
	}
}

// ShowPrompt shows a prompt without a trailing newline. For an obscured
// prompt on a real terminal, echo is turned off until EndPrompt.
func (t *Terminal) ShowPrompt(prompt string, obscured bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, prompt)
	t.pending = prompt
	if obscured && t.tty {
		if err := setEcho(int(t.in.Fd()), false); err == nil {
			t.obscured = true
		} else {
			logger.Println("disable echo:", err)
		}
	}
}

// EndPrompt marks the outstanding prompt as answered or abandoned,
// restoring echo if it was turned off. The answer's newline is not echoed
// while obscured, so one is printed in its place.
func (t *Terminal) EndPrompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = ""
	if t.obscured {
		setEcho(int(t.in.Fd()), true)
		t.obscured = false
		io.WriteString(t.out, "\n")
	}
}

// Extras provides the terminal-facing fields of a session snapshot.
func (t *Terminal) Extras() (transcript, pending string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transcript.String(), t.pending
}
