package eval

import (
	"context"
	"strings"

	"src.oopis.dev/pkg/dialog"
	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/vfs"
)

// RunScript executes the script at path with the given arguments, as the
// session's current user. The file must be readable and executable.
func (ev *Evaler) RunScript(ctx context.Context, path string, args []string) error {
	return ev.runScript(ctx, path, args, EvalCfg{}, ev.ui)
}

// RunScriptContent executes script text that does not live in the virtual
// filesystem, such as a host-side file or code given with -c.
func (ev *Evaler) RunScriptContent(ctx context.Context, content string, args []string) error {
	return ev.runScriptLines(ctx, content, args, EvalCfg{}, ev.ui)
}

// runScript reads the script from the virtual filesystem and executes it.
// The file must be readable and executable by the acting user.
func (ev *Evaler) runScript(ctx context.Context, path string, args []string, outer EvalCfg, out UI) error {
	user := ev.user(outer)
	cwd := ev.sessions.Cwd()
	if _, err := ev.fs.Validate(path, cwd, user, vfs.ValidateOpts{
		ExpectedType: vfs.TypeFile,
		Perms:        vfs.PermRead | vfs.PermExec,
	}); err != nil {
		return err
	}
	content, err := ev.fs.ReadFile(path, cwd, user)
	if err != nil {
		return err
	}
	return ev.runScriptLines(ctx, content, args, outer, out)
}

// runScriptLines pushes the script's cursor onto the dialog broker and a
// frame onto the session's variable stack, then executes the lines in
// order, stopping at the first failure. The number of executed lines is
// capped per call; nested scripts each get a fresh allowance.
func (ev *Evaler) runScriptLines(ctx context.Context, content string, args []string, outer EvalCfg, out UI) error {
	cursor := dialog.NewCursor(strings.Split(content, "\n"))
	ev.dialog.PushScript(cursor)
	defer ev.dialog.PopScript()
	ev.sessions.PushFrame()
	defer ev.sessions.PopFrame()

	cfg := EvalCfg{
		Stdin:    outer.Stdin,
		InScript: true,
		Args:     args,
		RunAs:    outer.RunAs,
	}
	steps := 0
	for {
		line, ok := cursor.NextInput()
		if !ok {
			return nil
		}
		steps++
		if steps > ev.maxScriptSteps {
			return &errs.StepsExceeded{Limit: ev.maxScriptSteps}
		}
		if err := ev.eval(ctx, line, cfg, out); err != nil {
			return err
		}
	}
}

// scriptCfg derives the evaluation config for a script started by this
// command, carrying the invocation's piped stdin and acting user forward.
func (fm *Frame) scriptCfg() EvalCfg {
	return EvalCfg{Stdin: fm.stdinSource(), RunAs: fm.cfg.RunAs}
}
