package eval

import (
	"errors"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/vfs"
)

func init() {
	addBuiltinDefs(
		&Def{
			Name:       "rm",
			Flags:      map[string]string{"-r": "recursive", "-R": "recursive", "-f": "force"},
			MinArgs:    1, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        rm,
		},
		&Def{
			Name: "mv", MinArgs: 2, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        mv,
		},
		&Def{
			Name:       "cp",
			Flags:      map[string]string{"-r": "recursive", "-R": "recursive"},
			MinArgs:    2, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        cp,
		},
		&Def{
			Name:       "ln",
			Flags:      map[string]string{"-s": "symbolic"},
			MinArgs:    2, MaxArgs: 2,
			Completion: CompletePaths,
			Run:        ln,
		},
		&Def{
			Name: "backup", MinArgs: 1, MaxArgs: 1,
			Paths:      []PathRule{{Arg: 0, Type: vfs.TypeFile, Perms: vfs.PermRead}},
			Completion: CompletePaths,
			Run:        backup,
		},
	)
}

func rm(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	recursive, force := fm.Flags["recursive"], fm.Flags["force"]
	changed := false
	for _, arg := range fm.globArgs(args) {
		info, err := ev.fs.Stat(arg, fm.Cwd(), fm.User(), true)
		if err != nil {
			var notFound *errs.NoSuchFileOrDir
			if force && errors.As(err, &notFound) {
				continue
			}
			return Result{}, err
		}
		if info.Type == vfs.TypeDir && !recursive {
			return Result{}, &errs.IsDir{Path: info.Path}
		}
		if err := ev.fs.DeleteRecursive(arg, fm.Cwd(), vfs.DeleteOpts{User: fm.User(), Force: force}); err != nil {
			return Result{}, err
		}
		changed = true
	}
	return Result{StateModified: changed}, nil
}

func mv(fm *Frame, args []string) (Result, error) {
	return fileOp(fm, args, vfs.OpMove, true)
}

func cp(fm *Frame, args []string) (Result, error) {
	return fileOp(fm, args, vfs.OpCopy, fm.Flags["recursive"])
}

// fileOp plans and applies a copy or move of all but the last argument to
// the last. Directories require recursive mode; mv always has it.
func fileOp(fm *Frame, args []string, kind vfs.OpKind, recursive bool) (Result, error) {
	ev := fm.Evaler
	srcs, dest := args[:len(args)-1], args[len(args)-1]
	opts := vfs.FileOpOpts{User: fm.User(), Group: fm.PrimaryGroup(), Kind: kind}
	ops, err := ev.fs.PrepareFileOperation(srcs, dest, fm.Cwd(), opts)
	if err != nil {
		return Result{}, err
	}
	if !recursive {
		for _, op := range ops {
			if op.SrcInfo.IsDir() {
				return Result{}, &errs.IsDir{Path: op.SrcInfo.Path}
			}
		}
	}
	if err := ev.fs.ApplyFileOperation(ops, opts); err != nil {
		return Result{}, err
	}
	return Result{StateModified: true}, nil
}

func ln(fm *Frame, args []string) (Result, error) {
	if !fm.Flags["symbolic"] {
		return Result{}, errors.New("only symbolic links are supported (use -s)")
	}
	opts := vfs.CreateOpts{User: fm.User(), Group: fm.PrimaryGroup()}
	if err := fm.Evaler.fs.Symlink(args[0], args[1], fm.Cwd(), opts); err != nil {
		return Result{}, err
	}
	return Result{StateModified: true}, nil
}

func backup(fm *Frame, args []string) (Result, error) {
	info := fm.Paths[0].Info
	content, err := fm.Evaler.fs.ReadFile(info.Path, "/", fm.User())
	if err != nil {
		return Result{}, err
	}
	return Result{Effect: Backup{Name: info.Name, Content: content}}, nil
}
