package eval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"src.oopis.dev/pkg/errs"
)

func init() {
	addBuiltinDefs(
		&Def{Name: "jobs", MaxArgs: 0, Run: jobsCmd},
		&Def{Name: "kill", MinArgs: 1, MaxArgs: 2, Run: killCmd},
		&Def{Name: "delay", MinArgs: 1, MaxArgs: 1, Run: delayCmd},
		&Def{Name: "post", MinArgs: 2, MaxArgs: -1, Run: postCmd},
		&Def{Name: "drain", MinArgs: 1, MaxArgs: 1, Run: drainCmd},
	)
}

func jobsCmd(fm *Frame, args []string) (Result, error) {
	var lines []string
	for _, info := range fm.Evaler.jobs.Jobs() {
		lines = append(lines, fmt.Sprintf("[%d]  %s  %s", info.ID, info.Status, info.Command))
	}
	return Result{Data: strings.Join(lines, "\n")}, nil
}

func killCmd(fm *Frame, args []string) (Result, error) {
	signal := "TERM"
	if strings.HasPrefix(args[0], "-") {
		signal = args[0]
		args = args[1:]
	}
	if len(args) != 1 {
		return Result{}, &UsageError{Msg: "usage: kill [-SIGNAL] <job_id>"}
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("invalid job id %q", args[0])
	}
	return Result{}, fm.Evaler.jobs.Signal(id, signal)
}

func delayCmd(fm *Frame, args []string) (Result, error) {
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms < 0 {
		return Result{}, fmt.Errorf("invalid duration %q", args[0])
	}
	select {
	case <-fm.Context().Done():
		return Result{}, errs.ErrCancelled
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
	return Result{}, nil
}

func postCmd(fm *Frame, args []string) (Result, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("invalid job id %q", args[0])
	}
	return Result{}, fm.Evaler.bus.Post(id, strings.Join(args[1:], " "))
}

func drainCmd(fm *Frame, args []string) (Result, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("invalid job id %q", args[0])
	}
	msgs, err := fm.Evaler.bus.Drain(id)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: strings.Join(msgs, "\n")}, nil
}
