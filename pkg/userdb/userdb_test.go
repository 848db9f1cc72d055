package userdb

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/store"
	"src.oopis.dev/pkg/store/storedefs"
)

func newTestDB(t *testing.T) (*DB, storedefs.Store) {
	st := store.MustTempStore(t)
	db, err := Load(st, "Guest")
	if err != nil {
		t.Fatal(err)
	}
	return db, st
}

func TestLoad_SeedsBuiltinAccounts(t *testing.T) {
	db, _ := newTestDB(t)

	if diff := cmp.Diff([]string{"Guest", "root"}, db.Users()); diff != "" {
		t.Errorf("seeded users (-want +got):\n%s", diff)
	}
	for _, name := range []string{"root", "Guest"} {
		has, err := db.HasPassword(name)
		if err != nil || has {
			t.Errorf("HasPassword(%s) = %v, %v, want passwordless", name, has, err)
		}
		if diff := cmp.Diff([]string{name}, db.Groups(name)); diff != "" {
			t.Errorf("Groups(%s) (-want +got):\n%s", name, diff)
		}
	}
}

func TestRegisterVerify_RoundTrip(t *testing.T) {
	db, _ := newTestDB(t)

	if err := db.Register("alice", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := db.VerifyPassword("alice", "secret"); err != nil {
		t.Errorf("verify with correct password -> %v", err)
	}
	if err := db.VerifyPassword("alice", "wrong"); !errors.Is(err, errs.ErrInvalidPassword) {
		t.Errorf("verify with wrong password -> %v, want invalid password", err)
	}
	if err := db.VerifyPassword("nobody", "x"); !errors.Is(err, errs.ErrInvalidUsername) {
		t.Errorf("verify unknown user -> %v, want invalid username", err)
	}

	err := db.Register("alice", "again")
	var exists *errs.UserExists
	if !errors.As(err, &exists) {
		t.Errorf("duplicate register -> %v, want user exists", err)
	}
}

func TestRegister_NameValidation(t *testing.T) {
	db, _ := newTestDB(t)
	for _, name := range []string{"", "9lives", "has space", "a/b", "-dash"} {
		if err := db.Register(name, ""); !errors.Is(err, errs.ErrInvalidUsername) {
			t.Errorf("Register(%q) -> %v, want invalid username", name, err)
		}
	}
	for _, name := range []string{"bob", "Bob_2", "x-y"} {
		if err := db.Register(name, ""); err != nil {
			t.Errorf("Register(%q) -> %v", name, err)
		}
	}
}

func TestPasswordlessAccount(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Register("kiosk", ""); err != nil {
		t.Fatal(err)
	}

	if err := db.VerifyPassword("kiosk", ""); err != nil {
		t.Errorf("empty password against passwordless account -> %v", err)
	}
	if err := db.VerifyPassword("kiosk", "x"); !errors.Is(err, errs.ErrNoPasswordRequired) {
		t.Errorf("password against passwordless account -> %v, want no password required", err)
	}
}

func TestSetPassword(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Register("alice", "old"); err != nil {
		t.Fatal(err)
	}

	if err := db.SetPassword("alice", "new"); err != nil {
		t.Fatal(err)
	}
	if err := db.VerifyPassword("alice", "old"); !errors.Is(err, errs.ErrInvalidPassword) {
		t.Errorf("old password after change -> %v, want invalid password", err)
	}
	if err := db.VerifyPassword("alice", "new"); err != nil {
		t.Errorf("new password after change -> %v", err)
	}

	// Clearing makes the account passwordless again.
	if err := db.SetPassword("alice", ""); err != nil {
		t.Fatal(err)
	}
	if has, _ := db.HasPassword("alice"); has {
		t.Errorf("account still has password data after clearing")
	}

	var notFound *errs.UserNotFound
	if err := db.SetPassword("nobody", "x"); !errors.As(err, &notFound) {
		t.Errorf("SetPassword on unknown user -> %v, want user not found", err)
	}
}

func TestGroups_EffectiveSet(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Register("alice", ""); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateGroup("staff"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddToGroup("alice", "staff"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"alice", "staff"}, db.Groups("alice")); diff != "" {
		t.Errorf("effective groups (-want +got):\n%s", diff)
	}
	// Adding again is a no-op.
	if err := db.AddToGroup("alice", "staff"); err != nil {
		t.Fatal(err)
	}
	if got := db.Groups("alice"); len(got) != 2 {
		t.Errorf("groups after duplicate add = %v", got)
	}

	if err := db.RemoveFromGroup("alice", "staff"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alice"}, db.Groups("alice")); diff != "" {
		t.Errorf("groups after removal (-want +got):\n%s", diff)
	}
	if got := db.Groups("nobody"); got != nil {
		t.Errorf("Groups(unknown) = %v, want nil", got)
	}
}

func TestGroupLifecycle(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Register("alice", ""); err != nil {
		t.Fatal(err)
	}

	var groupExists *errs.GroupExists
	if err := db.CreateGroup("alice"); !errors.As(err, &groupExists) {
		t.Errorf("creating existing group -> %v, want group exists", err)
	}
	if err := db.DeleteGroup("alice"); !errors.Is(err, ErrPrimaryGroup) {
		t.Errorf("deleting primary group -> %v, want primary-group refusal", err)
	}

	if err := db.CreateGroup("staff"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteGroup("staff"); err != nil {
		t.Errorf("deleting empty group -> %v", err)
	}
	var notFound *errs.GroupNotFound
	if err := db.DeleteGroup("staff"); !errors.As(err, &notFound) {
		t.Errorf("deleting missing group -> %v, want group not found", err)
	}
	if err := db.AddToGroup("alice", "staff"); !errors.As(err, &notFound) {
		t.Errorf("adding to missing group -> %v, want group not found", err)
	}
}

func TestRemove(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateGroup("staff"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddToGroup("alice", "staff"); err != nil {
		t.Fatal(err)
	}

	if err := db.Remove("alice"); err != nil {
		t.Fatal(err)
	}
	if db.Exists("alice") {
		t.Errorf("user still exists after removal")
	}
	if db.GroupExists("alice") {
		t.Errorf("primary group survives user removal")
	}
	if !db.GroupExists("staff") {
		t.Errorf("unrelated group removed")
	}

	if err := db.Remove("root"); !errors.Is(err, errs.ErrOperationNotPermitted) {
		t.Errorf("removing root -> %v, want operation not permitted", err)
	}
}

func TestLoad_RoundTripsThroughStore(t *testing.T) {
	db, st := newTestDB(t)
	if err := db.Register("alice", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateGroup("staff"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddToGroup("alice", "staff"); err != nil {
		t.Fatal(err)
	}

	db2, err := Load(st, "Guest")
	if err != nil {
		t.Fatal(err)
	}
	if err := db2.VerifyPassword("alice", "secret"); err != nil {
		t.Errorf("verify after reload -> %v", err)
	}
	if diff := cmp.Diff([]string{"alice", "staff"}, db2.Groups("alice")); diff != "" {
		t.Errorf("groups after reload (-want +got):\n%s", diff)
	}
}
