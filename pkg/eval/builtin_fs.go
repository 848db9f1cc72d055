package eval

import (
	"fmt"
	"strings"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/vfs"
)

func init() {
	addBuiltinDefs(
		&Def{Name: "pwd", MaxArgs: 0, Run: pwd},
		&Def{
			Name: "cd", MaxArgs: 1,
			Paths:      []PathRule{{Arg: 0, Type: vfs.TypeDir, Perms: vfs.PermExec}},
			Completion: CompletePaths,
			Run:        cd,
		},
		&Def{
			Name:       "ls",
			Flags:      map[string]string{"-l": "long", "-a": "all", "-d": "directory"},
			MaxArgs:    -1,
			Completion: CompletePaths,
			Run:        ls,
		},
		&Def{
			Name: "cat", MaxArgs: -1,
			Paths:      []PathRule{{Arg: AllArgs, Type: vfs.TypeFile, Perms: vfs.PermRead}},
			Completion: CompletePaths,
			Run:        cat,
		},
		&Def{
			Name:       "mkdir",
			Flags:      map[string]string{"-p": "parents"},
			MinArgs:    1, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        mkdir,
		},
		&Def{
			Name: "touch", MinArgs: 1, MaxArgs: -1,
			Completion: CompletePaths,
			Run:        touch,
		},
	)
}

func pwd(fm *Frame, args []string) (Result, error) {
	return Result{Data: fm.Cwd()}, nil
}

func cd(fm *Frame, args []string) (Result, error) {
	if len(args) == 0 {
		home, ok := fm.Evaler.sessions.GetVar("HOME")
		if !ok {
			home = "/"
		}
		info, err := fm.Evaler.fs.Validate(home, fm.Cwd(), fm.User(), vfs.ValidateOpts{
			ExpectedType: vfs.TypeDir,
			Perms:        vfs.PermExec,
		})
		if err != nil {
			return Result{}, err
		}
		fm.Evaler.sessions.Chdir(info.Path)
		return Result{}, nil
	}
	fm.Evaler.sessions.Chdir(fm.Paths[0].Info.Path)
	return Result{}, nil
}

func ls(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	args = fm.globArgs(args)
	if len(args) == 0 {
		args = []string{"."}
	}
	long := fm.Flags["long"]

	type operand struct {
		name string
		info vfs.Info
	}
	var files, dirs []operand
	for _, arg := range args {
		info, err := ev.fs.Stat(arg, fm.Cwd(), fm.User(), false)
		if err != nil {
			return Result{}, err
		}
		if info.IsDir() && !fm.Flags["directory"] {
			dirs = append(dirs, operand{arg, info})
		} else {
			files = append(files, operand{arg, info})
		}
	}

	var b strings.Builder
	for _, op := range files {
		b.WriteString(lsLine(op.info, op.name, long))
		b.WriteByte('\n')
	}
	for i, op := range dirs {
		if len(args) > 1 {
			if i > 0 || len(files) > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s:\n", op.name)
		}
		entries, err := ev.fs.ReadDir(op.info.Path, "/", fm.User())
		if err != nil {
			return Result{}, err
		}
		for _, e := range entries {
			if !fm.Flags["all"] && strings.HasPrefix(e.Name, ".") {
				continue
			}
			b.WriteString(lsLine(e, e.Name, long))
			b.WriteByte('\n')
		}
	}
	return Result{Data: strings.TrimSuffix(b.String(), "\n")}, nil
}

// lsLine renders one listing entry, in long form when asked.
func lsLine(info vfs.Info, name string, long bool) string {
	if info.Type == vfs.TypeSymlink && info.Target != "" {
		name += " -> " + info.Target
	}
	if !long {
		return name
	}
	return fmt.Sprintf("%s %-8s %-8s %6d %s %s",
		vfs.FormatMode(info.Type, info.Mode), info.Owner, info.Group,
		info.Size, info.Mtime.Format("2006-01-02 15:04"), name)
}

func cat(fm *Frame, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Data: fm.Stdin}, nil
	}
	var b strings.Builder
	for _, p := range fm.Paths {
		content, err := fm.Evaler.fs.ReadFile(p.Info.Path, "/", fm.User())
		if err != nil {
			return Result{}, err
		}
		b.WriteString(content)
	}
	return Result{Data: strings.TrimSuffix(b.String(), "\n")}, nil
}

func mkdir(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	opts := vfs.CreateOpts{User: fm.User(), Group: fm.PrimaryGroup(), Dir: true}
	for _, arg := range args {
		if !fm.Flags["parents"] {
			info, err := ev.fs.Validate(arg, fm.Cwd(), fm.User(), vfs.ValidateOpts{AllowMissing: true})
			if err != nil {
				return Result{}, err
			}
			if info.Exists() {
				return Result{}, &errs.AlreadyExists{Path: info.Path}
			}
		}
		if err := ev.fs.CreateOrUpdateFile(arg, fm.Cwd(), "", opts); err != nil {
			return Result{}, err
		}
	}
	return Result{StateModified: true}, nil
}

func touch(fm *Frame, args []string) (Result, error) {
	opts := vfs.CreateOpts{User: fm.User(), Group: fm.PrimaryGroup()}
	for _, arg := range args {
		if err := fm.Evaler.fs.Touch(arg, fm.Cwd(), opts); err != nil {
			return Result{}, err
		}
	}
	return Result{StateModified: true}, nil
}

// globArgs expands * and ? patterns among args against the filesystem.
// Arguments without metacharacters or without matches stay as written.
func (fm *Frame) globArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if matches := fm.Evaler.fs.Glob(arg, fm.Cwd(), fm.User()); matches != nil {
			out = append(out, matches...)
		} else {
			out = append(out, arg)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
