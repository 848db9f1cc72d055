// Package session owns the login session stack and the per-session state
// that survives user switches: working directory, command history and the
// environment variable frames. Snapshots are persisted per user in the blob
// store and restored when the user logs back in.
package session

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/store/storedefs"
	"src.oopis.dev/pkg/userdb"
)

var logger = logutil.GetLogger("[session] ")

// Snapshot is the per-user saved session blob. Transcript replaces the
// rendered terminal contents the browser original kept; it is filled by the
// extras provider when one is registered.
type Snapshot struct {
	CurrentPath    string            `json:"currentPath"`
	Transcript     string            `json:"transcript,omitempty"`
	CurrentInput   string            `json:"currentInput"`
	CommandHistory []string          `json:"commandHistory"`
	EnvVars        map[string]string `json:"environmentVariables"`
}

// ManualSave is the blob written by an explicit filesystem save. FsData is
// an opaque filesystem snapshot.
type ManualSave struct {
	OSVersion string          `json:"osVersion"`
	Timestamp time.Time       `json:"timestamp"`
	FsData    json.RawMessage `json:"fsDataSnapshot"`
}

// AlreadyLoggedIn is returned when a login or user switch names a user who
// is already on the session stack.
type AlreadyLoggedIn struct{ Name string }

func (e *AlreadyLoggedIn) Error() string {
	return "already logged in as '" + e.Name + "'"
}

// ErrLastSession is returned when logging out of the only session.
var ErrLastSession = errors.New("cannot log out of the last session")

var validVarName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Service tracks who is logged in and the active session's mutable state.
// The stack is never empty; the bottom entry is the user the system booted
// into.
type Service struct {
	mu    sync.Mutex
	st    storedefs.Store
	users *userdb.DB
	host  string

	stack   []string
	cwd     string
	history []string
	// env is the variable frame stack; the top frame is the live one.
	// Frames are full copies, not overlays.
	env []map[string]string

	extras     func() (transcript, pending string)
	leaveHooks []func(user string)
}

// New boots a session service with defaultUser logged in, restoring that
// user's saved snapshot when one exists.
func New(st storedefs.Store, users *userdb.DB, host, defaultUser string) (*Service, error) {
	s := &Service{st: st, users: users, host: host}
	s.stack = []string{defaultUser}
	if err := s.loadStateLocked(defaultUser); err != nil {
		return nil, err
	}
	return s, nil
}

// SetExtras registers a provider for the terminal-facing snapshot fields:
// the visible transcript and any pending input line.
func (s *Service) SetExtras(f func() (transcript, pending string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extras = f
}

// AddLeaveHook registers f to run whenever a user's session is left behind
// by login, a user switch or logout. Hooks run after the transition,
// without the service lock.
func (s *Service) AddLeaveHook(f func(user string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveHooks = append(s.leaveHooks, f)
}

func (s *Service) notifyLeave(user string) {
	s.mu.Lock()
	hooks := s.leaveHooks
	s.mu.Unlock()
	for _, f := range hooks {
		f(user)
	}
}

// Current returns the active user, the top of the stack.
func (s *Service) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack[len(s.stack)-1]
}

// Stack returns a copy of the session stack, bottom first.
func (s *Service) Stack() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stack...)
}

// Login replaces the whole session stack with the given user, saving the
// departing user's snapshot first.
func (s *Service) Login(user string) error {
	s.mu.Lock()
	old := s.stack[len(s.stack)-1]
	if user == old {
		s.mu.Unlock()
		return &AlreadyLoggedIn{Name: user}
	}
	if !s.users.Exists(user) {
		s.mu.Unlock()
		return errs.ErrInvalidUsername
	}
	if err := s.saveStateLocked(old); err != nil {
		s.mu.Unlock()
		return err
	}
	s.stack = []string{user}
	err := s.loadStateLocked(user)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyLeave(old)
	return nil
}

// SwitchUser pushes the given user on the stack, saving the departing
// user's snapshot first. A user already anywhere on the stack is refused.
func (s *Service) SwitchUser(user string) error {
	s.mu.Lock()
	for _, u := range s.stack {
		if u == user {
			s.mu.Unlock()
			return &AlreadyLoggedIn{Name: user}
		}
	}
	if !s.users.Exists(user) {
		s.mu.Unlock()
		return errs.ErrInvalidUsername
	}
	old := s.stack[len(s.stack)-1]
	if err := s.saveStateLocked(old); err != nil {
		s.mu.Unlock()
		return err
	}
	s.stack = append(s.stack, user)
	err := s.loadStateLocked(user)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyLeave(old)
	return nil
}

// Logout pops the stack and restores the previous user's session,
// returning that user's name.
func (s *Service) Logout() (string, error) {
	s.mu.Lock()
	if len(s.stack) <= 1 {
		s.mu.Unlock()
		return "", ErrLastSession
	}
	old := s.stack[len(s.stack)-1]
	if err := s.saveStateLocked(old); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.stack = s.stack[:len(s.stack)-1]
	back := s.stack[len(s.stack)-1]
	err := s.loadStateLocked(back)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notifyLeave(old)
	return back, nil
}

// SaveCurrent persists the active user's snapshot, for shutdown.
func (s *Service) SaveCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStateLocked(s.stack[len(s.stack)-1])
}

func (s *Service) saveStateLocked(user string) error {
	snap := Snapshot{
		CurrentPath:    s.cwd,
		CommandHistory: s.history,
		EnvVars:        s.env[len(s.env)-1],
	}
	if s.extras != nil {
		snap.Transcript, snap.CurrentInput = s.extras()
	}
	data, err := json.Marshal(snap)
	if err == nil {
		err = s.st.Set(storedefs.SessionKey(user), data)
	}
	if err != nil {
		return &errs.SaveFailed{What: "session", Err: err}
	}
	return nil
}

func (s *Service) loadStateLocked(user string) error {
	data, err := s.st.Get(storedefs.SessionKey(user))
	if errors.Is(err, storedefs.ErrNoKey) {
		s.freshStateLocked(user)
		return nil
	}
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Println("discarding corrupt session snapshot for", user)
		s.freshStateLocked(user)
		return nil
	}
	s.cwd = snap.CurrentPath
	s.history = snap.CommandHistory
	env := snap.EnvVars
	if env == nil {
		env = make(map[string]string)
	}
	s.env = []map[string]string{env}
	return nil
}

func (s *Service) freshStateLocked(user string) {
	home := "/home/" + user
	s.cwd = home
	s.history = nil
	s.env = []map[string]string{{
		"USER": user,
		"HOME": home,
		"HOST": s.host,
		"PATH": "/bin",
	}}
}

// Cwd returns the working directory of the active session.
func (s *Service) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// Chdir records a new working directory. Path validation is the caller's
// business.
func (s *Service) Chdir(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cwd = path
}

// AddHistory appends a line to the command history.
func (s *Service) AddHistory(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, line)
}

// History returns a copy of the command history, oldest first.
func (s *Service) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// ClearHistory empties the command history.
func (s *Service) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// GetVar reads a variable from the live frame.
func (s *Service) GetVar(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.env[len(s.env)-1][name]
	return v, ok
}

// SetVar writes a variable in the live frame.
func (s *Service) SetVar(name, value string) error {
	if !validVarName.MatchString(name) {
		return &errs.InvalidVariableName{Name: name}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[len(s.env)-1][name] = value
	return nil
}

// UnsetVar removes a variable from the live frame.
func (s *Service) UnsetVar(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.env[len(s.env)-1], name)
}

// Vars returns the live frame's variables as sorted name=value pairs.
func (s *Service) Vars() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := s.env[len(s.env)-1]
	out := make([]string, 0, len(top))
	for name, value := range top {
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

// PushFrame copies the live frame and makes the copy live. Scripts run in
// their own frame so their variable writes vanish on return.
func (s *Service) PushFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := s.env[len(s.env)-1]
	frame := make(map[string]string, len(top))
	for name, value := range top {
		frame[name] = value
	}
	s.env = append(s.env, frame)
}

// PopFrame discards the live frame. The bottom frame stays.
func (s *Service) PopFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.env) > 1 {
		s.env = s.env[:len(s.env)-1]
	}
}

// SaveManual writes an explicit filesystem save for the user.
func (s *Service) SaveManual(user, osVersion string, fsData []byte) error {
	blob := ManualSave{OSVersion: osVersion, Timestamp: time.Now(), FsData: fsData}
	data, err := json.Marshal(blob)
	if err == nil {
		err = s.st.Set(storedefs.ManualSaveKey(user), data)
	}
	if err != nil {
		return &errs.SaveFailed{What: "filesystem", Err: err}
	}
	return nil
}

// LoadManual reads back the user's manual save, or storedefs.ErrNoKey when
// there is none.
func (s *Service) LoadManual(user string) (*ManualSave, error) {
	data, err := s.st.Get(storedefs.ManualSaveKey(user))
	if err != nil {
		return nil, err
	}
	var blob ManualSave
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}
