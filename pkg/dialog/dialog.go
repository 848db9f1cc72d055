// Package dialog implements the modal input broker: the single mechanism
// commands use to ask for a line of input (a password, a confirmation,
// free text). Interactive sessions suspend until the user answers; scripts
// answer from their own upcoming lines; piped stdin answers first of all.
package dialog

import (
	"context"
	"strings"
	"sync"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[dialog] ")

// Cursor walks the lines of a buffer. The script runner executes lines
// from it, and the broker may consume upcoming lines as modal input; both
// advance the same position, so a consumed line is never also executed.
type Cursor struct {
	mu    sync.Mutex
	lines []string
	pos   int
}

// NewCursor creates a cursor over the given lines.
func NewCursor(lines []string) *Cursor {
	return &Cursor{lines: lines}
}

// Next returns the next line verbatim.
func (c *Cursor) Next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.pos]
	c.pos++
	return line, true
}

// NextInput returns the next non-blank, non-comment line, skipping past
// anything else.
func (c *Cursor) NextInput() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pos < len(c.lines) {
		line := c.lines[c.pos]
		c.pos++
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

// Opts configures one input request.
type Opts struct {
	Prompt string
	// Obscured asks the prompter not to echo, for passwords.
	Obscured bool
	// Stdin carries piped standard input. When present it answers the
	// request before any script or interactive source is considered.
	Stdin *Cursor
}

type answer struct {
	line string
	ok   bool
}

// Broker serializes modal input requests. At most one interactive request
// can be outstanding; a second one is refused with a cancelled result
// while the first stays live.
type Broker struct {
	mu       sync.Mutex
	scripts  []*Cursor
	waiting  chan answer
	prompter func(prompt string, obscured bool)
}

// New creates an idle Broker.
func New() *Broker {
	return &Broker{}
}

// SetPrompter installs the function that shows an interactive prompt.
func (b *Broker) SetPrompter(f func(prompt string, obscured bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompter = f
}

// PushScript enters scripting mode with the given cursor. Nested scripts
// push again; the innermost script answers requests.
func (b *Broker) PushScript(c *Cursor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts = append(b.scripts, c)
}

// PopScript leaves the innermost script.
func (b *Broker) PopScript() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.scripts) > 0 {
		b.scripts = b.scripts[:len(b.scripts)-1]
	}
}

// InScript reports whether a script is currently answering requests.
func (b *Broker) InScript() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scripts) > 0
}

// Request asks for one line of input. Piped stdin answers first, then the
// innermost script, then the interactive user. Exhausted stdin or script
// input, a refused double request, context cancellation and an explicit
// CancelPending all yield ErrCancelled.
func (b *Broker) Request(ctx context.Context, opts Opts) (string, error) {
	b.mu.Lock()
	if opts.Stdin != nil {
		b.mu.Unlock()
		line, ok := opts.Stdin.Next()
		if !ok {
			return "", errs.ErrCancelled
		}
		return line, nil
	}
	if n := len(b.scripts); n > 0 {
		c := b.scripts[n-1]
		b.mu.Unlock()
		line, ok := c.NextInput()
		if !ok {
			return "", errs.ErrCancelled
		}
		return line, nil
	}
	if b.waiting != nil {
		b.mu.Unlock()
		logger.Println("refusing overlapping input request")
		return "", errs.ErrCancelled
	}
	ch := make(chan answer, 1)
	b.waiting = ch
	prompter := b.prompter
	b.mu.Unlock()

	if prompter != nil {
		prompter(opts.Prompt, opts.Obscured)
	}
	select {
	case a := <-ch:
		if !a.ok {
			return "", errs.ErrCancelled
		}
		return a.line, nil
	case <-ctx.Done():
		b.clearWaiting(ch)
		return "", errs.ErrCancelled
	}
}

func (b *Broker) clearWaiting(ch chan answer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiting == ch {
		b.waiting = nil
	}
}

// Deliver hands a line to the pending request. It reports whether a
// request consumed the line; otherwise the line is ordinary input and the
// caller keeps it.
func (b *Broker) Deliver(line string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiting == nil {
		return false
	}
	b.waiting <- answer{line: line, ok: true}
	b.waiting = nil
	return true
}

// Pending reports whether an interactive request is outstanding.
func (b *Broker) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting != nil
}

// CancelPending cancels the outstanding interactive request, if any.
func (b *Broker) CancelPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiting != nil {
		b.waiting <- answer{}
		b.waiting = nil
	}
}
