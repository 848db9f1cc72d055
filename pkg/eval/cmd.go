package eval

import (
	"fmt"
	"sort"
	"strings"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/vfs"
)

// A Def describes one command: the flags it accepts, how many positional
// arguments it takes, and which of them must name valid paths. The
// executor checks an invocation against its definition before Run is
// called, so Run can assume arity and paths hold.
type Def struct {
	Name string
	// Flags maps accepted spellings to canonical flag names, e.g. both
	// "-r" and "--recursive" to "recursive". Spellings not listed here
	// stay positional; commands with free-form dash arguments, like
	// kill, read them from args.
	Flags map[string]string
	// MinArgs and MaxArgs bound the positional arguments after flag
	// extraction. MaxArgs < 0 means no upper bound.
	MinArgs, MaxArgs int
	// Paths pre-validates positional arguments against the filesystem.
	Paths []PathRule
	// Completion names what the command's arguments complete to.
	Completion Completion
	// Run executes the command.
	Run func(fm *Frame, args []string) (Result, error)
}

// Completion enumerates what a command's arguments complete to.
type Completion int

const (
	CompleteNone Completion = iota
	CompletePaths
	CompleteCommands
	CompleteUsers
)

// AllArgs in PathRule.Arg applies the rule to every positional argument.
const AllArgs = -1

// PathRule declares that a positional argument must name a valid path.
type PathRule struct {
	// Arg is the index of the positional argument, or AllArgs.
	Arg int
	// Perms must be held by the acting user on the resolved node.
	Perms vfs.Perm
	// Type, when set, requires the node to have that type.
	Type vfs.NodeType
	// AllowMissing admits a missing node; its Info then carries only the
	// resolved path.
	AllowMissing bool
	// NoFollow keeps a final symlink unresolved.
	NoFollow bool
	// OwnerRequired restricts the operation to the node's owner. Root
	// bypasses it.
	OwnerRequired bool
	// ParentPerms must be held on the directory containing the node.
	ParentPerms vfs.Perm
}

// ValidatedPath is one path argument resolved and checked before the
// command runs.
type ValidatedPath struct {
	// Arg is the index of the positional argument the path came from.
	Arg  int
	Info vfs.Info
}

// UsageError reports an invocation that does not fit the command's
// definition.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return e.Msg }

// CommandError wraps an error with the name of the failing command, in
// the classic "name: message" form.
type CommandError struct {
	Name string
	Err  error
}

func (e *CommandError) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *CommandError) Unwrap() error { return e.Err }

var builtinDefs = make(map[string]*Def)

// addBuiltinDefs registers command definitions; the builtin_*.go files
// call it from init.
func addBuiltinDefs(defs ...*Def) {
	for _, def := range defs {
		builtinDefs[def.Name] = def
	}
}

// CommandNames returns the names of all built-in commands, sorted. The
// completion machinery uses it.
func CommandNames() []string {
	names := make([]string, 0, len(builtinDefs))
	for name := range builtinDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupDef returns the definition of a built-in command.
func LookupDef(name string) (*Def, bool) {
	def, ok := builtinDefs[name]
	return def, ok
}

// lookup finds the definition to run for name: the builtin registry
// first, then an executable script at /bin/<name>.
func (ev *Evaler) lookup(name, user string) (*Def, error) {
	if def, ok := builtinDefs[name]; ok {
		return def, nil
	}
	info, err := ev.fs.Validate("/bin/"+name, "/", user, vfs.ValidateOpts{
		ExpectedType: vfs.TypeFile,
		Perms:        vfs.PermRead | vfs.PermExec,
	})
	if err != nil {
		return nil, &errs.CommandNotFound{Name: name}
	}
	path := info.Path
	return &Def{
		Name:    name,
		MaxArgs: -1,
		Run: func(fm *Frame, args []string) (Result, error) {
			return Result{}, fm.Evaler.runScript(fm.ctx, path, args, fm.scriptCfg(), fm.out)
		},
	}, nil
}

// splitFlags separates declared flag spellings from the positional
// arguments, in order.
func splitFlags(def *Def, args []string) (map[string]bool, []string) {
	flags := make(map[string]bool)
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if name, ok := def.Flags[arg]; ok {
			flags[name] = true
		} else {
			rest = append(rest, arg)
		}
	}
	return flags, rest
}

func checkArity(def *Def, n int) error {
	lo, hi := def.MinArgs, def.MaxArgs
	switch {
	case lo == hi && n != lo:
		return &UsageError{fmt.Sprintf("expected %s, got %d", argCount(lo), n)}
	case n < lo:
		return &UsageError{fmt.Sprintf("expected at least %s, got %d", argCount(lo), n)}
	case hi >= 0 && n > hi:
		return &UsageError{fmt.Sprintf("expected at most %s, got %d", argCount(hi), n)}
	}
	return nil
}

func argCount(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

// validatePaths checks the positional arguments named by the definition's
// path rules, returning the resolved nodes in rule order.
func (ev *Evaler) validatePaths(def *Def, args []string, user, cwd string) ([]ValidatedPath, error) {
	var out []ValidatedPath
	for _, rule := range def.Paths {
		idxs := []int{rule.Arg}
		if rule.Arg == AllArgs {
			idxs = idxs[:0]
			for i := range args {
				idxs = append(idxs, i)
			}
		}
		for _, i := range idxs {
			if i < 0 || i >= len(args) {
				continue
			}
			info, err := ev.fs.Validate(args[i], cwd, user, vfs.ValidateOpts{
				ExpectedType: rule.Type,
				Perms:        rule.Perms,
				AllowMissing: rule.AllowMissing,
				NoFollow:     rule.NoFollow,
			})
			if err != nil {
				return nil, err
			}
			if rule.OwnerRequired && user != "root" && info.Exists() && info.Owner != user {
				return nil, errs.ErrOperationNotPermitted
			}
			if rule.ParentPerms != 0 {
				_, err := ev.fs.Validate(parentPath(info.Path), "/", user, vfs.ValidateOpts{
					ExpectedType: vfs.TypeDir,
					Perms:        rule.ParentPerms,
				})
				if err != nil {
					return nil, err
				}
			}
			out = append(out, ValidatedPath{Arg: i, Info: info})
		}
	}
	return out, nil
}

// parentPath returns the directory holding the clean absolute path p.
func parentPath(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
