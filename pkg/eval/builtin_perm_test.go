package eval_test

import (
	"testing"

	. "src.oopis.dev/pkg/eval/evaltest"
)

func TestChmod(t *testing.T) {
	Test(t,
		That("echo hi > f", "chmod 600 f").
			Passes(func(t *testing.T, f *Fixture) {
				info, err := f.FS.Stat("/home/Guest/f", "/", "root", false)
				if err != nil {
					t.Fatalf("stat: %v", err)
				}
				if info.Mode != 0o600 {
					t.Errorf("mode = %o, want 600", info.Mode)
				}
			}),
		// The owner keeps only the bits they set for themselves.
		That("echo hi > f", "chmod 200 f", "cat f").
			Throws(ErrorWithMessage("cat: /home/Guest/f: permission denied")),
		That("chmod 700 /etc/agenda.json").
			Throws(ErrorWithMessage("chmod: operation not permitted")),
		That("touch f", "chmod 999 f").
			Throws(ErrorWithMessage("chmod: invalid mode: 999")),
	)
}

func TestChown(t *testing.T) {
	Test(t,
		That("touch f", "chown root f").
			Throws(ErrorWithMessage("chown: requires root privileges")),
		That("touch f", "chown nobody f").
			Throws(ErrorWithMessage("chown: user not found: nobody")),
		That("su root", "chown Guest /etc/agenda.json").
			Passes(func(t *testing.T, f *Fixture) {
				info, err := f.FS.Stat("/etc/agenda.json", "/", "root", false)
				if err != nil {
					t.Fatalf("stat: %v", err)
				}
				if info.Owner != "Guest" {
					t.Errorf("owner = %s, want Guest", info.Owner)
				}
			}),
	)
}

func TestChgrp(t *testing.T) {
	setup := func(t *testing.T, f *Fixture) {
		if err := f.Users.CreateGroup("devs"); err != nil {
			t.Fatal(err)
		}
		if err := f.Users.CreateGroup("other"); err != nil {
			t.Fatal(err)
		}
		if err := f.Users.AddToGroup("Guest", "devs"); err != nil {
			t.Fatal(err)
		}
	}
	TestWithSetup(t, setup,
		That("touch f", "chgrp devs f").
			Passes(func(t *testing.T, f *Fixture) {
				info, err := f.FS.Stat("/home/Guest/f", "/", "root", false)
				if err != nil {
					t.Fatalf("stat: %v", err)
				}
				if info.Group != "devs" {
					t.Errorf("group = %s, want devs", info.Group)
				}
			}),
		// Owners may only move nodes into groups they belong to.
		That("touch f", "chgrp other f").
			Throws(ErrorWithMessage("chgrp: operation not permitted")),
		That("touch f", "chgrp nope f").
			Throws(ErrorWithMessage("chgrp: group not found: nope")),
	)
}

// Group permission bits apply to members who are not the owner.
func TestGroupPermissions(t *testing.T) {
	setup := func(t *testing.T, f *Fixture) {
		registerUser(t, f, "alice", "")
		if err := f.Users.CreateGroup("devs"); err != nil {
			t.Fatal(err)
		}
		for _, u := range []string{"Guest", "alice"} {
			if err := f.Users.AddToGroup(u, "devs"); err != nil {
				t.Fatal(err)
			}
		}
	}
	TestWithSetup(t, setup,
		That("echo shared > /home/Guest/f", "chgrp devs /home/Guest/f",
			"chmod 640 /home/Guest/f", "su alice", "cat /home/Guest/f").
			Prints("shared\n"),
		That("echo private > /home/Guest/f", "chmod 600 /home/Guest/f",
			"su alice", "cat /home/Guest/f").
			Throws(ErrorWithMessage("cat: /home/Guest/f: permission denied")),
	)
}
