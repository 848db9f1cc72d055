package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/parse"
	"src.oopis.dev/pkg/vfs"
)

// runChunk runs the pipelines of a parsed chunk in sequence, honoring the
// operator after each one: ";" always continues, "&&" continues on
// success, "||" on failure, and "&" starts the pipeline in the background
// and continues immediately with success.
func (ev *Evaler) runChunk(ctx context.Context, ch *parse.Chunk, cfg EvalCfg, out UI) error {
	var err error
	ok := true
	for i, pn := range ch.Pipelines {
		if i > 0 {
			switch ch.Pipelines[i-1].Op {
			case "&&":
				if !ok {
					continue
				}
			case "||":
				if ok {
					continue
				}
			}
		}
		if pn.Background {
			ev.startBackground(pn, cfg, out)
			ok, err = true, nil
			continue
		}
		err = ev.runPipeline(ctx, pn, cfg, out, 0)
		ok = err == nil
	}
	return err
}

// startBackground registers the pipeline as a job and returns without
// waiting. The job's context is independent of the caller's, so returning
// to the prompt does not cancel it, and the acting user is pinned at
// launch so a later su does not change whose job it is.
func (ev *Evaler) startBackground(pn *parse.Pipeline, cfg EvalCfg, out UI) int {
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parse.SourceText(pn)), pn.Op))
	if cfg.RunAs == "" {
		cfg.RunAs = ev.sessions.Current()
	}
	return ev.jobs.Start(context.Background(), text, func(ctx context.Context, id int) error {
		return ev.runPipeline(ctx, pn, cfg, out, id)
	})
}

// runPipeline runs one pipeline: reads its input redirection, threads the
// data through the segments, then delivers the final output to the
// redirection target or the UI. jobID is non-zero when running inside a
// background job.
func (ev *Evaler) runPipeline(ctx context.Context, pn *parse.Pipeline, cfg EvalCfg, out UI, jobID int) error {
	stdin := ""
	if pn.In != nil {
		content, err := ev.fs.ReadFile(pn.In.Right.Value, ev.sessions.Cwd(), ev.user(cfg))
		if err != nil {
			return ev.fail(out, jobID, err)
		}
		// Piped data carries no trailing newline.
		stdin = strings.TrimSuffix(content, "\n")
	}

	var res Result
	for _, seg := range pn.Segments {
		if jobID != 0 {
			if err := ev.waitWhilePaused(ctx, jobID); err != nil {
				return ev.fail(out, jobID, err)
			}
		}
		if ctx.Err() != nil {
			return ev.fail(out, jobID, errs.ErrCancelled)
		}
		var err error
		res, err = ev.runSegment(ctx, seg, stdin, cfg, out, jobID)
		// A failed command may still have modified state, e.g. the audit
		// log of a refused sudo, so persistence comes first.
		if res.StateModified {
			if perr := ev.fs.Persist(); perr != nil {
				if err == nil {
					return ev.fail(out, jobID, perr)
				}
				logger.Println("persist failed:", perr)
			}
		}
		if err != nil {
			return ev.fail(out, jobID, err)
		}
		switch eff := res.Effect.(type) {
		case nil:
		case ClearScreen:
			out.Clear()
		case Backup:
			out.Download(eff.Name, eff.Content)
		}
		stdin = res.Data
	}

	if pn.Out != nil {
		if err := ev.redirectOut(pn.Out, res, cfg); err != nil {
			return ev.fail(out, jobID, err)
		}
		return nil
	}
	if res.Data == "" {
		return nil
	}
	if jobID != 0 {
		out.Append(fmt.Sprintf("(Job %d) output suppressed", jobID), OutputOpts{Background: true})
		return nil
	}
	out.Append(res.Data, OutputOpts{SuppressNewline: res.SuppressNewline})
	return nil
}

// runSegment runs one command invocation: resolve the name, check the
// invocation against its definition, then call Run. Errors come back
// wrapped with the command name.
func (ev *Evaler) runSegment(ctx context.Context, seg *parse.Segment, stdin string, cfg EvalCfg, out UI, jobID int) (Result, error) {
	name := seg.Head.Value
	def, err := ev.lookup(name, ev.user(cfg))
	if err != nil {
		// The not-found error already names the command.
		return Result{}, err
	}
	args := make([]string, len(seg.Args))
	for i, a := range seg.Args {
		args[i] = a.Value
	}
	return ev.invoke(ctx, def, name, args, stdin, cfg, out, jobID)
}

// invoke checks args against def and runs it on a fresh frame. The sudo
// command calls it too, with an elevated cfg.
func (ev *Evaler) invoke(ctx context.Context, def *Def, name string, args []string, stdin string, cfg EvalCfg, out UI, jobID int) (Result, error) {
	flags, rest := splitFlags(def, args)
	if err := checkArity(def, len(rest)); err != nil {
		return Result{}, &CommandError{Name: name, Err: err}
	}
	paths, err := ev.validatePaths(def, rest, ev.user(cfg), ev.sessions.Cwd())
	if err != nil {
		return Result{}, &CommandError{Name: name, Err: err}
	}
	fm := &Frame{
		Evaler: ev, ctx: ctx, out: out, cfg: cfg,
		Stdin: stdin, Flags: flags, Paths: paths, JobID: jobID,
	}
	res, err := def.Run(fm, rest)
	if err != nil {
		// Keep the result: a failing command may still flag state to
		// persist.
		return res, &CommandError{Name: name, Err: err}
	}
	return res, nil
}

// redirectOut writes the pipeline's final output to the redirection
// target, creating missing parents, then persists the filesystem. A
// directory target is refused by the underlying write.
func (ev *Evaler) redirectOut(rn *parse.Redir, res Result, cfg EvalCfg) error {
	data := res.Data
	if data != "" && !res.SuppressNewline {
		data += "\n"
	}
	user := ev.user(cfg)
	opts := vfs.CreateOpts{User: user, Group: ev.primaryGroup(user)}
	path, cwd := rn.Right.Value, ev.sessions.Cwd()
	var err error
	if rn.Mode == parse.Append {
		err = ev.fs.AppendFile(path, cwd, data, opts)
	} else {
		err = ev.fs.CreateOrUpdateFile(path, cwd, data, opts)
	}
	if err != nil {
		return err
	}
	return ev.fs.Persist()
}

// fail surfaces err and returns it: printed in the foreground, logged in
// the background, where the job table adds the status line when the job
// ends.
func (ev *Evaler) fail(out UI, jobID int, err error) error {
	if jobID != 0 {
		logger.Printf("job %d: %v", jobID, err)
		return err
	}
	ev.report(out, err)
	return err
}

// waitWhilePaused blocks while the job is stopped, rechecking at the poll
// interval, and returns early when the context is cancelled.
func (ev *Evaler) waitWhilePaused(ctx context.Context, jobID int) error {
	for ev.jobs.Paused(jobID) {
		select {
		case <-ctx.Done():
			return errs.ErrCancelled
		case <-time.After(ev.pausePoll):
		}
	}
	return nil
}

func (ev *Evaler) primaryGroup(user string) string {
	g, err := ev.users.PrimaryGroup(user)
	if err != nil {
		return user
	}
	return g
}
