package eval

import (
	"fmt"
	"strconv"

	"src.oopis.dev/pkg/errs"
)

func init() {
	addBuiltinDefs(
		&Def{
			Name: "chmod", MinArgs: 2, MaxArgs: 2,
			Paths:      []PathRule{{Arg: 1, OwnerRequired: true}},
			Completion: CompletePaths,
			Run:        chmod,
		},
		&Def{
			Name: "chown", MinArgs: 2, MaxArgs: 2,
			Completion: CompletePaths,
			Run:        chown,
		},
		&Def{
			Name: "chgrp", MinArgs: 2, MaxArgs: 2,
			Completion: CompletePaths,
			Run:        chgrp,
		},
	)
}

func chmod(fm *Frame, args []string) (Result, error) {
	mode, err := strconv.ParseUint(args[0], 8, 16)
	if err != nil || mode > 0o777 {
		return Result{}, fmt.Errorf("invalid mode: %s", args[0])
	}
	if err := fm.Evaler.fs.Chmod(args[1], fm.Cwd(), fm.User(), uint16(mode)); err != nil {
		return Result{}, err
	}
	return Result{StateModified: true}, nil
}

func chown(fm *Frame, args []string) (Result, error) {
	owner, path := args[0], args[1]
	if !fm.Evaler.users.Exists(owner) {
		return Result{}, &errs.UserNotFound{Name: owner}
	}
	if err := fm.Evaler.fs.Chown(path, fm.Cwd(), fm.User(), owner); err != nil {
		return Result{}, err
	}
	return Result{StateModified: true}, nil
}

func chgrp(fm *Frame, args []string) (Result, error) {
	group, path := args[0], args[1]
	ev := fm.Evaler
	if !ev.users.GroupExists(group) {
		return Result{}, &errs.GroupNotFound{Name: group}
	}
	// The owner may only move a node into one of their own groups.
	if user := fm.User(); user != "root" && !contains(ev.users.Groups(user), group) {
		return Result{}, errs.ErrOperationNotPermitted
	}
	if err := ev.fs.Chgrp(path, fm.Cwd(), fm.User(), group); err != nil {
		return Result{}, err
	}
	return Result{StateModified: true}, nil
}
