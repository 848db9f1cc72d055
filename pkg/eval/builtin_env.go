package eval

import (
	"fmt"
	"strings"
)

func init() {
	addBuiltinDefs(
		&Def{Name: "alias", MaxArgs: -1, Run: aliasCmd},
		&Def{Name: "unalias", MinArgs: 1, MaxArgs: -1, Run: unaliasCmd},
		&Def{Name: "set", MaxArgs: 2, Run: setCmd},
		&Def{Name: "unset", MinArgs: 1, MaxArgs: -1, Run: unsetCmd},
	)
}

func aliasCmd(fm *Frame, args []string) (Result, error) {
	al := fm.Evaler.aliases
	if len(args) == 0 {
		var lines []string
		for _, name := range al.Names() {
			value, _ := al.Get(name)
			lines = append(lines, fmt.Sprintf("alias %s='%s'", name, value))
		}
		return Result{Data: strings.Join(lines, "\n")}, nil
	}
	var shown []string
	for _, arg := range args {
		if name, value, ok := strings.Cut(arg, "="); ok {
			if name == "" {
				return Result{}, &UsageError{Msg: "usage: alias [name[='value']...]"}
			}
			if err := al.Set(name, value); err != nil {
				return Result{}, err
			}
			continue
		}
		value, ok := al.Get(arg)
		if !ok {
			return Result{}, fmt.Errorf("%s: not found", arg)
		}
		shown = append(shown, fmt.Sprintf("alias %s='%s'", arg, value))
	}
	return Result{Data: strings.Join(shown, "\n")}, nil
}

func unaliasCmd(fm *Frame, args []string) (Result, error) {
	for _, arg := range args {
		existed, err := fm.Evaler.aliases.Unset(arg)
		if err != nil {
			return Result{}, err
		}
		if !existed {
			return Result{}, fmt.Errorf("%s: not found", arg)
		}
	}
	return Result{}, nil
}

func setCmd(fm *Frame, args []string) (Result, error) {
	s := fm.Evaler.sessions
	switch len(args) {
	case 0:
		return Result{Data: strings.Join(s.Vars(), "\n")}, nil
	case 1:
		name, value, ok := strings.Cut(args[0], "=")
		if !ok || name == "" {
			return Result{}, &UsageError{Msg: "usage: set [NAME=value | NAME value]"}
		}
		return Result{}, s.SetVar(name, value)
	default:
		return Result{}, s.SetVar(args[0], args[1])
	}
}

func unsetCmd(fm *Frame, args []string) (Result, error) {
	for _, arg := range args {
		fm.Evaler.sessions.UnsetVar(arg)
	}
	return Result{}, nil
}
