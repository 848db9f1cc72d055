package eval

import (
	"context"
	"strings"

	"src.oopis.dev/pkg/dialog"
)

// Frame carries the per-invocation context of one command execution. The
// executor populates it from the definition before calling Run.
type Frame struct {
	Evaler *Evaler
	ctx    context.Context
	out    UI
	cfg    EvalCfg

	// Stdin is the text piped into the command: the previous segment's
	// output, or the input redirection for the first segment.
	Stdin string
	// Flags holds the canonical names of the flags present.
	Flags map[string]bool
	// Paths holds the arguments pre-validated by the definition's path
	// rules, in rule order.
	Paths []ValidatedPath
	// JobID is the background job id, zero in the foreground.
	JobID int

	stdinCursor *dialog.Cursor
}

// Context returns the evaluation's context. Commands observe it at their
// suspension points.
func (fm *Frame) Context() context.Context { return fm.ctx }

// User is the acting user.
func (fm *Frame) User() string { return fm.Evaler.user(fm.cfg) }

// Cwd is the session's working directory.
func (fm *Frame) Cwd() string { return fm.Evaler.sessions.Cwd() }

// PrimaryGroup is the acting user's primary group, used as the group of
// nodes the command creates.
func (fm *Frame) PrimaryGroup() string {
	return fm.Evaler.primaryGroup(fm.User())
}

// Interactive reports whether the input was typed at the prompt.
func (fm *Frame) Interactive() bool { return fm.cfg.Interactive }

// Ask requests one line of modal input through the broker. Piped stdin
// answers first, then the innermost script, then the interactive user.
func (fm *Frame) Ask(prompt string, obscured bool) (string, error) {
	return fm.Evaler.dialog.Request(fm.ctx, dialog.Opts{
		Prompt:   prompt,
		Obscured: obscured,
		Stdin:    fm.stdinSource(),
	})
}

// stdinSource returns the cursor over piped stdin, if any. It is shared
// across requests of the same invocation, so consecutive prompts consume
// consecutive lines.
func (fm *Frame) stdinSource() *dialog.Cursor {
	if fm.stdinCursor != nil {
		return fm.stdinCursor
	}
	if fm.Stdin != "" {
		lines := strings.Split(strings.TrimSuffix(fm.Stdin, "\n"), "\n")
		fm.stdinCursor = dialog.NewCursor(lines)
	} else if fm.cfg.Stdin != nil {
		fm.stdinCursor = fm.cfg.Stdin
	}
	return fm.stdinCursor
}
