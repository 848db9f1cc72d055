// Package eval implements the oopis command interpreter: the command
// registry, the pipeline executor and the built-in commands.
//
// One Evaler serves one terminal session. Each input line passes through
// the expand package (textual preprocessing), the parse package, and then
// the executor, which runs the resulting pipelines against the virtual
// filesystem and the other core services.
package eval

import (
	"context"
	"strings"
	"time"

	"src.oopis.dev/pkg/audit"
	"src.oopis.dev/pkg/config"
	"src.oopis.dev/pkg/dialog"
	"src.oopis.dev/pkg/expand"
	"src.oopis.dev/pkg/job"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/parse"
	"src.oopis.dev/pkg/session"
	"src.oopis.dev/pkg/sudo"
	"src.oopis.dev/pkg/userdb"
	"src.oopis.dev/pkg/vfs"
)

var logger = logutil.GetLogger("[eval] ")

// Deps are the services an Evaler runs against. They are constructed once
// at boot and shared; see the shell package for the wiring.
type Deps struct {
	FS       *vfs.FS
	Users    *userdb.DB
	Sessions *session.Service
	Sudo     *sudo.Service
	Audit    *audit.Logger
	Jobs     *job.Table
	Bus      *job.Bus
	Dialog   *dialog.Broker
	Aliases  *expand.Aliases
	// UI receives terminal output. Defaults to a sink that drops it.
	UI UI

	// MaxScriptSteps bounds the lines one script run may execute, to
	// terminate recursive or self-appending scripts.
	MaxScriptSteps int
	// OSVersion is stamped into manual filesystem saves.
	OSVersion string
}

// Evaler evaluates command lines. Its methods are safe for concurrent use;
// background jobs evaluate their pipelines on separate goroutines.
type Evaler struct {
	fs       *vfs.FS
	users    *userdb.DB
	sessions *session.Service
	sudo     *sudo.Service
	audit    *audit.Logger
	jobs     *job.Table
	bus      *job.Bus
	dialog   *dialog.Broker
	aliases  *expand.Aliases
	ui       UI

	maxScriptSteps int
	osVersion      string
	// pausePoll is how often a stopped background job checks whether it
	// may continue.
	pausePoll time.Duration
}

// NewEvaler creates an Evaler over deps.
func NewEvaler(deps Deps) *Evaler {
	ui := deps.UI
	if ui == nil {
		ui = discardUI{}
	}
	steps := deps.MaxScriptSteps
	if steps <= 0 {
		steps = config.Default().MaxScriptSteps
	}
	return &Evaler{
		fs:       deps.FS,
		users:    deps.Users,
		sessions: deps.Sessions,
		sudo:     deps.Sudo,
		audit:    deps.Audit,
		jobs:     deps.Jobs,
		bus:      deps.Bus,
		dialog:   deps.Dialog,
		aliases:  deps.Aliases,
		ui:       ui,

		maxScriptSteps: steps,
		osVersion:      deps.OSVersion,
		pausePoll:      500 * time.Millisecond,
	}
}

// EvalCfg configures one evaluation.
type EvalCfg struct {
	// Interactive marks input typed at the prompt rather than sourced
	// from a script or a substitution.
	Interactive bool
	// Stdin, when set, is piped standard input. Modal input requests
	// consume it line by line before any other source.
	Stdin *dialog.Cursor
	// InScript and Args enable script argument substitution; $1, $@ and
	// $# then refer to Args.
	InScript bool
	Args     []string
	// RunAs overrides the acting user for the whole evaluation. Empty
	// means the session's current user.
	RunAs string
}

// Eval runs one line of input: preprocessing, parsing, then the sequence
// of pipelines. Output and errors go to the UI; the returned error is for
// callers that need to observe success, and has already been reported.
func (ev *Evaler) Eval(ctx context.Context, code string, cfg EvalCfg) error {
	return ev.eval(ctx, code, cfg, ev.ui)
}

func (ev *Evaler) eval(ctx context.Context, code string, cfg EvalCfg, out UI) error {
	expanded, err := expand.Expand(code, expand.Config{
		Run:      func(sub string) (string, error) { return ev.capture(ctx, sub, cfg) },
		Var:      ev.sessions.GetVar,
		SetVar:   ev.sessions.SetVar,
		Alias:    ev.aliases.Get,
		InScript: cfg.InScript,
		Args:     cfg.Args,
	})
	if err != nil {
		ev.report(out, err)
		return err
	}
	if strings.TrimSpace(expanded) == "" {
		return nil
	}
	tree, err := parse.Parse(parse.Source{Name: "[input]", Code: expanded})
	if err != nil {
		ev.report(out, err)
		return err
	}
	return ev.runChunk(ctx, tree.Root, cfg, out)
}

// capture runs code for a command substitution, collecting its output
// instead of printing it. The run is never interactive: a modal prompt
// with no piped stdin to answer it cancels.
func (ev *Evaler) capture(ctx context.Context, code string, outer EvalCfg) (string, error) {
	cfg := EvalCfg{
		Stdin:    outer.Stdin,
		InScript: outer.InScript,
		Args:     outer.Args,
		RunAs:    outer.RunAs,
	}
	if cfg.Stdin == nil {
		cfg.Stdin = dialog.NewCursor(nil)
	}
	var buf bufferUI
	err := ev.eval(ctx, code, cfg, &buf)
	return buf.String(), err
}

func (ev *Evaler) report(out UI, err error) {
	out.Append(err.Error(), OutputOpts{Class: ClassError})
}

// user resolves the acting user of an evaluation.
func (ev *Evaler) user(cfg EvalCfg) string {
	if cfg.RunAs != "" {
		return cfg.RunAs
	}
	return ev.sessions.Current()
}
