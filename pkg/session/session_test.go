package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/store"
	"src.oopis.dev/pkg/store/storedefs"
	"src.oopis.dev/pkg/userdb"
)

func newTestService(t *testing.T) (*Service, storedefs.Store) {
	st := store.MustTempStore(t)
	users, err := userdb.Load(st, "Guest")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"alice", "bob"} {
		if err := users.Register(name, ""); err != nil {
			t.Fatal(err)
		}
	}
	s, err := New(st, users, "oopis", "Guest")
	if err != nil {
		t.Fatal(err)
	}
	return s, st
}

func TestNew_BootsFreshDefaultSession(t *testing.T) {
	s, _ := newTestService(t)

	if got := s.Current(); got != "Guest" {
		t.Errorf("Current() = %q, want Guest", got)
	}
	if got := s.Cwd(); got != "/home/Guest" {
		t.Errorf("Cwd() = %q, want /home/Guest", got)
	}
	want := []string{"HOME=/home/Guest", "HOST=oopis", "PATH=/bin", "USER=Guest"}
	if diff := cmp.Diff(want, s.Vars()); diff != "" {
		t.Errorf("fresh env (-want +got):\n%s", diff)
	}
}

func TestSwitchUserAndLogout_StackDiscipline(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.SwitchUser("alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchUser("bob"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Guest", "alice", "bob"}, s.Stack()); diff != "" {
		t.Errorf("stack (-want +got):\n%s", diff)
	}

	var dup *AlreadyLoggedIn
	if err := s.SwitchUser("alice"); !errors.As(err, &dup) {
		t.Errorf("switch to user on stack -> %v, want already logged in", err)
	}
	if err := s.SwitchUser("nobody"); !errors.Is(err, errs.ErrInvalidUsername) {
		t.Errorf("switch to unknown user -> %v, want invalid username", err)
	}

	back, err := s.Logout()
	if err != nil || back != "alice" {
		t.Errorf("Logout() = %q, %v, want alice", back, err)
	}
	if _, err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Logout(); !errors.Is(err, ErrLastSession) {
		t.Errorf("logout at bottom -> %v, want last-session refusal", err)
	}
	if got := len(s.Stack()); got != 1 {
		t.Errorf("stack size after refused logout = %d, want 1", got)
	}
}

func TestLogin_ReplacesStack(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.SwitchUser("alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchUser("bob"); err != nil {
		t.Fatal(err)
	}

	if err := s.Login("alice"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alice"}, s.Stack()); diff != "" {
		t.Errorf("stack after login (-want +got):\n%s", diff)
	}
	var dup *AlreadyLoggedIn
	if err := s.Login("alice"); !errors.As(err, &dup) {
		t.Errorf("login as current user -> %v, want already logged in", err)
	}
}

func TestSnapshot_RestoredAcrossSwitch(t *testing.T) {
	s, _ := newTestService(t)
	s.Chdir("/etc")
	s.AddHistory("ls /etc")
	if err := s.SetVar("MOOD", "curious"); err != nil {
		t.Fatal(err)
	}

	if err := s.SwitchUser("alice"); err != nil {
		t.Fatal(err)
	}
	// The new session is fresh, not inherited.
	if got := s.Cwd(); got != "/home/alice" {
		t.Errorf("cwd after switch = %q, want /home/alice", got)
	}
	if _, ok := s.GetVar("MOOD"); ok {
		t.Errorf("variable leaked into new session")
	}
	if got := s.History(); len(got) != 0 {
		t.Errorf("history leaked into new session: %v", got)
	}

	if _, err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if got := s.Cwd(); got != "/etc" {
		t.Errorf("cwd after return = %q, want /etc", got)
	}
	if v, _ := s.GetVar("MOOD"); v != "curious" {
		t.Errorf("variable after return = %q, want curious", v)
	}
	if diff := cmp.Diff([]string{"ls /etc"}, s.History()); diff != "" {
		t.Errorf("history after return (-want +got):\n%s", diff)
	}
}

func TestLeaveHooks(t *testing.T) {
	s, _ := newTestService(t)
	var left []string
	s.AddLeaveHook(func(user string) { left = append(left, user) })

	if err := s.SwitchUser("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if err := s.Login("bob"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Guest", "alice", "Guest"}, left); diff != "" {
		t.Errorf("leave hook calls (-want +got):\n%s", diff)
	}
}

func TestEnvFrames(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.SetVar("X", "outer"); err != nil {
		t.Fatal(err)
	}

	s.PushFrame()
	if v, _ := s.GetVar("X"); v != "outer" {
		t.Errorf("pushed frame lost inherited value, got %q", v)
	}
	if err := s.SetVar("X", "inner"); err != nil {
		t.Fatal(err)
	}
	s.UnsetVar("HOME")
	s.PopFrame()

	if v, _ := s.GetVar("X"); v != "outer" {
		t.Errorf("X after pop = %q, want outer", v)
	}
	if _, ok := s.GetVar("HOME"); !ok {
		t.Errorf("unset in inner frame leaked out")
	}
	// The bottom frame cannot be popped.
	s.PopFrame()
	if _, ok := s.GetVar("USER"); !ok {
		t.Errorf("bottom frame vanished")
	}
}

func TestSetVar_ValidatesName(t *testing.T) {
	s, _ := newTestService(t)
	for _, name := range []string{"", "1X", "A-B", "a b"} {
		var invalid *errs.InvalidVariableName
		if err := s.SetVar(name, "v"); !errors.As(err, &invalid) {
			t.Errorf("SetVar(%q) -> %v, want invalid variable name", name, err)
		}
	}
}

func TestExtras_CapturedInSnapshot(t *testing.T) {
	s, st := newTestService(t)
	s.SetExtras(func() (string, string) { return "guest was here", "ls -" })

	if err := s.SwitchUser("alice"); err != nil {
		t.Fatal(err)
	}
	data, err := st.Get(storedefs.SessionKey("Guest"))
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Transcript != "guest was here" || snap.CurrentInput != "ls -" {
		t.Errorf("snapshot extras = %q, %q", snap.Transcript, snap.CurrentInput)
	}
}

func TestManualSave_RoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	fsData := []byte(`{"Type":"directory"}`)

	if err := s.SaveManual("Guest", "0.9", fsData); err != nil {
		t.Fatal(err)
	}
	blob, err := s.LoadManual("Guest")
	if err != nil {
		t.Fatal(err)
	}
	if blob.OSVersion != "0.9" || string(blob.FsData) != string(fsData) {
		t.Errorf("manual save round trip = %+v", blob)
	}
	if blob.Timestamp.IsZero() {
		t.Errorf("manual save has zero timestamp")
	}

	if _, err := s.LoadManual("alice"); !errors.Is(err, storedefs.ErrNoKey) {
		t.Errorf("missing manual save -> %v, want ErrNoKey", err)
	}
}
