package eval

import (
	"errors"
	"fmt"

	"src.oopis.dev/pkg/store/storedefs"
)

func init() {
	addBuiltinDefs(
		&Def{Name: "run", MinArgs: 1, MaxArgs: -1, Completion: CompletePaths, Run: runCmd},
		&Def{Name: "savefs", MaxArgs: 0, Run: savefs},
		&Def{Name: "loadfs", MaxArgs: 0, Run: loadfs},
	)
}

func runCmd(fm *Frame, args []string) (Result, error) {
	err := fm.Evaler.runScript(fm.ctx, args[0], args[1:], fm.scriptCfg(), fm.out)
	return Result{}, err
}

func savefs(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	data, err := ev.fs.Snapshot()
	if err != nil {
		return Result{}, err
	}
	user := fm.User()
	if err := ev.sessions.SaveManual(user, ev.osVersion, data); err != nil {
		return Result{}, err
	}
	return Result{Data: fmt.Sprintf("Filesystem state saved for %s.", user)}, nil
}

func loadfs(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	save, err := ev.sessions.LoadManual(fm.User())
	if errors.Is(err, storedefs.ErrNoKey) {
		return Result{}, errors.New("no saved filesystem state found")
	}
	if err != nil {
		return Result{}, err
	}
	if err := ev.fs.Restore(save.FsData); err != nil {
		return Result{}, err
	}
	return Result{
		Data:          fmt.Sprintf("Filesystem state from %s restored.", save.Timestamp.Format("2006-01-02 15:04:05")),
		StateModified: true,
	}, nil
}
