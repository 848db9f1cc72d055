package eval

import (
	"strings"
	"sync"
)

// Result is the successful outcome of one command. Failures travel as
// ordinary errors instead.
type Result struct {
	// Data is the command's output. Inside a pipeline it becomes the next
	// segment's stdin; at the end it is printed, captured or redirected.
	Data string
	// Effect, when set, is applied by the executor after the segment.
	Effect Effect
	// StateModified marks filesystem changes. The executor persists the
	// filesystem before moving on; a failed persist fails the pipeline.
	StateModified bool
	// SuppressNewline omits the trailing newline when Data is delivered.
	SuppressNewline bool
}

// Effect is a side effect on the hosting terminal that a command may
// request beyond printing text.
type Effect interface{ effect() }

// ClearScreen asks the terminal to clear itself.
type ClearScreen struct{}

// Backup hands a file to the host environment as a download.
type Backup struct {
	Name    string
	Content string
}

func (ClearScreen) effect() {}
func (Backup) effect()      {}

// ClassError marks error output in OutputOpts.Class.
const ClassError = "error"

// OutputOpts qualifies one piece of terminal output.
type OutputOpts struct {
	// Class is a styling hint; ClassError for error output, empty for
	// ordinary output.
	Class string
	// Background marks asynchronous output from a background job.
	Background bool
	// SuppressNewline omits the newline the UI normally appends.
	SuppressNewline bool
}

// UI is the terminal surface the executor reports to. Implementations
// append a newline after text unless told otherwise, and must be safe for
// concurrent use since background jobs write asynchronously.
type UI interface {
	Append(text string, opts OutputOpts)
	Clear()
	Download(name, content string)
}

// bufferUI collects ordinary output during a command substitution. Error
// and background output is dropped, as are effects; a substitution has no
// terminal of its own.
type bufferUI struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *bufferUI) Append(text string, opts OutputOpts) {
	if opts.Class == ClassError || opts.Background {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sb.WriteString(text)
	if !opts.SuppressNewline {
		b.sb.WriteByte('\n')
	}
}

func (b *bufferUI) Clear()                  {}
func (b *bufferUI) Download(string, string) {}

func (b *bufferUI) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// discardUI drops everything. It backs an Evaler constructed without a UI.
type discardUI struct{}

func (discardUI) Append(string, OutputOpts) {}
func (discardUI) Clear()                    {}
func (discardUI) Download(string, string)   {}
