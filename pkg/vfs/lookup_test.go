package vfs

import (
	"errors"
	"strings"
	"testing"

	"src.oopis.dev/pkg/errs"
)

func TestHasPermission_EvaluationOrder(t *testing.T) {
	fs := newTestFS(t)
	// Owner bits deny write, group bits would allow it. The owner triplet
	// applies to the owner even when a group triplet is more generous.
	mustWrite(t, fs, "/data", "x", CreateOpts{User: "root", Group: "root"})
	if err := fs.Chown("/data", "/", "root", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chgrp("/data", "/", "root", "staff"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chmod("/data", "/", "root", 0o460); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		user string
		perm Perm
		want bool
	}{
		{"alice", PermRead, true},   // owner: r--
		{"alice", PermWrite, false}, // owner bits win over group bits
		{"carol", PermRead, true},   // staff member: rw-
		{"carol", PermWrite, true},
		{"bob", PermRead, false}, // other: ---
		{"root", PermWrite, true},
		{"root", PermExec, true},
	}
	for _, c := range cases {
		if got := fs.HasPermission("/data", "/", c.user, c.perm); got != c.want {
			t.Errorf("HasPermission(/data, %s, %s) = %v, want %v",
				c.user, c.perm, got, c.want)
		}
	}
}

func TestLookup_ExecRequiredToTraverse(t *testing.T) {
	fs := newTestFS(t)
	mustMkdir(t, fs, "/locked", CreateOpts{User: "root", Group: "root"})
	mustWrite(t, fs, "/locked/secret", "s", CreateOpts{User: "root", Group: "root"})
	if err := fs.Chmod("/locked", "/", "root", 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := fs.Stat("/locked/secret", "/", "bob", false)
	var notFound *errs.NoSuchFileOrDir
	if !errors.As(err, &notFound) {
		t.Errorf("Stat through untraversable dir -> %v, want no such file", err)
	}
	if _, err := fs.Stat("/locked/secret", "/", "root", false); err != nil {
		t.Errorf("Stat as root -> %v", err)
	}
}

func TestValidate_TypeAndPermissionChecks(t *testing.T) {
	fs := newTestFS(t)
	mustWrite(t, fs, "/home/Guest/f", "x", CreateOpts{User: "Guest", Group: "Guest"})

	_, err := fs.Validate("/home/Guest/f", "/", "Guest", ValidateOpts{ExpectedType: TypeDir})
	var notDir *errs.NotDir
	if !errors.As(err, &notDir) {
		t.Errorf("file validated as dir -> %v, want not-a-directory", err)
	}

	_, err = fs.Validate("/home", "/", "Guest", ValidateOpts{ExpectedType: TypeFile})
	var isDir *errs.IsDir
	if !errors.As(err, &isDir) {
		t.Errorf("dir validated as file -> %v, want is-a-directory", err)
	}

	_, err = fs.Validate("/etc/sudoers", "/", "bob", ValidateOpts{Perms: PermRead})
	var denied *errs.PermissionDenied
	if !errors.As(err, &denied) {
		t.Errorf("read sudoers as bob -> %v, want permission denied", err)
	}

	info, err := fs.Validate("/no/such/path", "/", "Guest", ValidateOpts{AllowMissing: true})
	if err != nil {
		t.Fatalf("AllowMissing -> %v", err)
	}
	if info.Exists() || info.Path != "/no/such/path" {
		t.Errorf("missing info = %+v, want non-existent at /no/such/path", info)
	}
}

func TestSymlink_ReadThrough(t *testing.T) {
	fs := newTestFS(t)
	mustWrite(t, fs, "/home/Guest/real", "payload", CreateOpts{User: "Guest", Group: "Guest"})
	if err := fs.Symlink("real", "/home/Guest/link", "/", CreateOpts{User: "Guest", Group: "Guest"}); err != nil {
		t.Fatal(err)
	}

	got, err := fs.ReadFile("/home/Guest/link", "/", "Guest")
	if err != nil {
		t.Fatal(err)
	}
	if got != "payload" {
		t.Errorf("read through link = %q, want %q", got, "payload")
	}

	// NoFollow surfaces the link itself.
	info, err := fs.Stat("/home/Guest/link", "/", "Guest", true)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != TypeSymlink || info.Target != "real" {
		t.Errorf("Stat(NoFollow) = %+v, want symlink to real", info)
	}
}

func TestSymlink_LoopDetected(t *testing.T) {
	fs := newTestFS(t)
	base := "/home/Guest"
	opts := CreateOpts{User: "Guest", Group: "Guest"}
	if err := fs.Symlink("a", "b", base, opts); err != nil {
		t.Fatal(err)
	}
	if err := fs.Symlink("b", "a", base, opts); err != nil {
		t.Fatal(err)
	}

	snap, _ := fs.Snapshot()
	_, err := fs.ReadFile("a", base, "Guest")
	var loop *errs.SymlinkLoop
	if !errors.As(err, &loop) {
		t.Fatalf("reading looped link -> %v, want symlink loop", err)
	}
	if !strings.Contains(err.Error(), "symbolic link") {
		t.Errorf("loop error %q does not mention symbolic link", err)
	}
	// The failed read must leave the tree unchanged.
	snap2, _ := fs.Snapshot()
	if string(snap) != string(snap2) {
		t.Errorf("tree changed by failed symlink read")
	}
}

func TestReadDir_SortedAndPermissionChecked(t *testing.T) {
	fs := newTestFS(t)
	base := "/home/Guest"
	opts := CreateOpts{User: "Guest", Group: "Guest"}
	for _, name := range []string{"zeta", "alpha", "mid"} {
		mustWrite(t, fs, base+"/"+name, "", opts)
	}

	infos, err := fs.ReadDir(base, "/", "Guest")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != 3 || names[0] != want[0] || names[1] != want[1] || names[2] != want[2] {
		t.Errorf("ReadDir names = %v, want %v", names, want)
	}

	if err := fs.Chmod(base, "/", "Guest", 0o300); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.ReadDir(base, "/", "Guest"); err == nil {
		t.Errorf("ReadDir without read permission succeeded")
	}
}
