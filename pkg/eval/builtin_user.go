package eval

import (
	"errors"
	"strings"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/vfs"
)

func init() {
	addBuiltinDefs(
		&Def{Name: "whoami", MaxArgs: 0, Run: whoami},
		&Def{Name: "groups", MaxArgs: 1, Completion: CompleteUsers, Run: groupsCmd},
		&Def{Name: "login", MinArgs: 1, MaxArgs: 2, Completion: CompleteUsers, Run: login},
		&Def{Name: "logout", MaxArgs: 0, Run: logout},
		&Def{Name: "su", MaxArgs: 2, Completion: CompleteUsers, Run: su},
		&Def{Name: "sudo", MinArgs: 1, MaxArgs: -1, Completion: CompleteCommands, Run: sudoCmd},
		&Def{Name: "passwd", MaxArgs: 1, Completion: CompleteUsers, Run: passwd},
		&Def{Name: "useradd", MinArgs: 1, MaxArgs: 1, Run: useradd},
		&Def{Name: "userdel", MinArgs: 1, MaxArgs: 1, Completion: CompleteUsers, Run: userdel},
		&Def{Name: "groupadd", MinArgs: 1, MaxArgs: 1, Run: groupadd},
		&Def{Name: "groupdel", MinArgs: 1, MaxArgs: 1, Run: groupdel},
		&Def{Name: "usermod", MinArgs: 3, MaxArgs: 3, Completion: CompleteUsers, Run: usermod},
	)
}

func whoami(fm *Frame, args []string) (Result, error) {
	return Result{Data: fm.User()}, nil
}

func groupsCmd(fm *Frame, args []string) (Result, error) {
	user := fm.User()
	if len(args) == 1 {
		user = args[0]
	}
	if !fm.Evaler.users.Exists(user) {
		return Result{}, &errs.UserNotFound{Name: user}
	}
	return Result{Data: strings.Join(fm.Evaler.users.Groups(user), " ")}, nil
}

// authenticate runs the password flow for user: verify a supplied
// password, prompt for one when the account has one and none was given,
// and refuse a password given to an account without one.
func authenticate(fm *Frame, user, supplied string, haveSupplied bool) error {
	ev := fm.Evaler
	if !ev.users.Exists(user) {
		return errs.ErrInvalidUsername
	}
	has, err := ev.users.HasPassword(user)
	if err != nil {
		return err
	}
	if !has {
		if haveSupplied {
			return errs.ErrNoPasswordRequired
		}
		return nil
	}
	pw := supplied
	if !haveSupplied {
		pw, err = fm.Ask("Password: ", true)
		if err != nil {
			return err
		}
	}
	return ev.users.VerifyPassword(user, pw)
}

func login(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor, user := fm.User(), args[0]
	supplied := ""
	if len(args) == 2 {
		supplied = args[1]
	}
	if err := authenticate(fm, user, supplied, len(args) == 2); err != nil {
		ev.audit.Record(actor, "login_failed", user)
		return Result{StateModified: true}, err
	}
	if err := ev.sessions.Login(user); err != nil {
		return Result{}, err
	}
	ev.audit.Record(user, "login", "new session")
	return Result{Data: "Logged in as " + user + ".", StateModified: true}, nil
}

func logout(fm *Frame, args []string) (Result, error) {
	back, err := fm.Evaler.sessions.Logout()
	if err != nil {
		return Result{}, err
	}
	return Result{Data: "Logged out. Resuming session for " + back + "."}, nil
}

func su(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor := fm.User()
	user := "root"
	if len(args) >= 1 {
		user = args[0]
	}
	supplied := ""
	if len(args) == 2 {
		supplied = args[1]
	}
	if err := authenticate(fm, user, supplied, len(args) == 2); err != nil {
		ev.audit.Record(actor, "su_failed", user)
		return Result{StateModified: true}, err
	}
	if err := ev.sessions.SwitchUser(user); err != nil {
		return Result{}, err
	}
	ev.audit.Record(actor, "su", "to "+user)
	return Result{StateModified: true}, nil
}

// sudoCmd checks the sudoers policy and the user's own password, then
// runs the named command once as root. The elevation lives only in the
// nested invocation's config, so it cannot outlast the command.
func sudoCmd(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor := fm.User()
	name, rest := args[0], args[1:]
	if !ev.sudo.CanRun(actor, name) {
		ev.audit.Record(actor, "sudo_denied", strings.Join(args, " "))
		return Result{StateModified: true}, &errs.PermissionDenied{}
	}
	if ev.sudo.NeedsPassword(actor) {
		pw, err := fm.Ask("[sudo] password for "+actor+": ", true)
		if err != nil {
			return Result{}, err
		}
		if err := ev.users.VerifyPassword(actor, pw); err != nil {
			ev.audit.Record(actor, "sudo_failed", strings.Join(args, " "))
			return Result{StateModified: true}, err
		}
		ev.sudo.Stamp(actor)
	}
	ev.audit.Record(actor, "sudo", strings.Join(args, " "))

	cfg := fm.cfg
	cfg.RunAs = "root"
	def, err := ev.lookup(name, "root")
	if err != nil {
		return Result{}, err
	}
	res, err := ev.invoke(fm.ctx, def, name, rest, fm.Stdin, cfg, fm.out, fm.JobID)
	res.StateModified = true
	return res, err
}

func passwd(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor := fm.User()
	user := actor
	if len(args) == 1 {
		user = args[0]
	}
	if user != actor && actor != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	if !ev.users.Exists(user) {
		return Result{}, &errs.UserNotFound{Name: user}
	}

	// Changing one's own password requires proving the current one; root
	// resetting another account does not.
	if user == actor {
		has, err := ev.users.HasPassword(user)
		if err != nil {
			return Result{}, err
		}
		if has {
			current, err := fm.Ask("Current password: ", true)
			if err != nil {
				return Result{}, err
			}
			if err := ev.users.VerifyPassword(user, current); err != nil {
				return Result{}, errs.ErrIncorrectCurrentPassword
			}
		}
	}
	pw, err := askNewPassword(fm)
	if err != nil {
		return Result{}, err
	}
	if err := ev.users.SetPassword(user, pw); err != nil {
		return Result{}, err
	}
	ev.audit.Record(actor, "passwd", "changed password for "+user)
	return Result{Data: "Password for " + user + " updated.", StateModified: true}, nil
}

func askNewPassword(fm *Frame) (string, error) {
	pw, err := fm.Ask("New password: ", true)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("password must not be empty")
	}
	confirm, err := fm.Ask("Retype new password: ", true)
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

func useradd(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor := fm.User()
	if actor != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	name := args[0]
	pw, err := fm.Ask("New password (empty for none): ", true)
	if err != nil {
		return Result{}, err
	}
	if pw != "" {
		confirm, err := fm.Ask("Retype new password: ", true)
		if err != nil {
			return Result{}, err
		}
		if pw != confirm {
			return Result{}, errors.New("passwords do not match")
		}
	}
	if err := ev.users.Register(name, pw); err != nil {
		return Result{}, err
	}
	home := "/home/" + name
	if err := ev.fs.CreateOrUpdateFile(home, "/", "", vfs.CreateOpts{User: "root", Group: "root", Dir: true}); err != nil {
		return Result{}, err
	}
	if err := ev.fs.Chown(home, "/", "root", name); err != nil {
		return Result{}, err
	}
	if err := ev.fs.Chgrp(home, "/", "root", name); err != nil {
		return Result{}, err
	}
	ev.audit.Record(actor, "useradd", name)
	return Result{Data: "User " + name + " created.", StateModified: true}, nil
}

func userdel(fm *Frame, args []string) (Result, error) {
	ev := fm.Evaler
	actor := fm.User()
	if actor != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	name := args[0]
	if contains(ev.sessions.Stack(), name) {
		return Result{}, errors.New("user '" + name + "' is currently logged in")
	}
	if err := ev.users.Remove(name); err != nil {
		return Result{}, err
	}
	ev.audit.Record(actor, "userdel", name)
	return Result{Data: "User " + name + " removed. Home directory left in place.", StateModified: true}, nil
}

func groupadd(fm *Frame, args []string) (Result, error) {
	if fm.User() != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	if err := fm.Evaler.users.CreateGroup(args[0]); err != nil {
		return Result{}, err
	}
	fm.Evaler.audit.Record(fm.User(), "groupadd", args[0])
	return Result{StateModified: true}, nil
}

func groupdel(fm *Frame, args []string) (Result, error) {
	if fm.User() != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	if err := fm.Evaler.users.DeleteGroup(args[0]); err != nil {
		return Result{}, err
	}
	fm.Evaler.audit.Record(fm.User(), "groupdel", args[0])
	return Result{StateModified: true}, nil
}

func usermod(fm *Frame, args []string) (Result, error) {
	if fm.User() != "root" {
		return Result{}, errs.ErrRequiresRoot
	}
	if args[0] != "-aG" {
		return Result{}, &UsageError{Msg: "usage: usermod -aG <group> <user>"}
	}
	group, user := args[1], args[2]
	if err := fm.Evaler.users.AddToGroup(user, group); err != nil {
		return Result{}, err
	}
	fm.Evaler.audit.Record(fm.User(), "usermod", "added "+user+" to "+group)
	return Result{StateModified: true}, nil
}
