package shell

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"src.oopis.dev/pkg/audit"
	"src.oopis.dev/pkg/buildinfo"
	"src.oopis.dev/pkg/config"
	"src.oopis.dev/pkg/dialog"
	"src.oopis.dev/pkg/eval"
	"src.oopis.dev/pkg/expand"
	"src.oopis.dev/pkg/job"
	"src.oopis.dev/pkg/session"
	"src.oopis.dev/pkg/store"
	"src.oopis.dev/pkg/sudo"
	"src.oopis.dev/pkg/userdb"
	"src.oopis.dev/pkg/vfs"
)

// Runtime is a fully booted system: every core service and an Evaler over
// them, backed by one state database.
type Runtime struct {
	Store    store.DBStore
	FS       *vfs.FS
	Users    *userdb.DB
	Sessions *session.Service
	Sudo     *sudo.Service
	Audit    *audit.Logger
	Jobs     *job.Table
	Bus      *job.Bus
	Dialog   *dialog.Broker
	Aliases  *expand.Aliases
	Evaler   *eval.Evaler
	Term     *Terminal

	host string
}

// NewRuntime boots the system against the database at dbPath, creating the
// file and its parent directory as needed.
func NewRuntime(dbPath string, cfg config.Config, fds [3]*os.File) (*Runtime, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	rt, err := NewRuntimeFromStore(st, cfg, fds)
	if err != nil {
		st.Close()
		return nil, err
	}
	return rt, nil
}

// NewRuntimeFromStore is NewRuntime over an already opened store. The
// runtime takes ownership of the store; Close closes it.
func NewRuntimeFromStore(st store.DBStore, cfg config.Config, fds [3]*os.File) (*Runtime, error) {
	users, err := userdb.Load(st, cfg.DefaultUser)
	if err != nil {
		return nil, fmt.Errorf("load user database: %w", err)
	}
	fs, err := vfs.LoadOrInit(st, users, cfg.MaxFsBytes, cfg.DefaultUser)
	if err != nil {
		return nil, fmt.Errorf("init filesystem: %w", err)
	}
	sessions, err := session.New(st, users, cfg.Host, cfg.DefaultUser)
	if err != nil {
		return nil, fmt.Errorf("init sessions: %w", err)
	}
	aliases, err := expand.LoadAliases(st)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	sudoSvc := sudo.New(fs, users)
	sessions.AddLeaveHook(sudoSvc.ClearStamp)
	bus := job.NewBus()
	jobs := job.NewTable(bus)
	broker := dialog.New()
	term := NewTerminal(fds)
	jobs.SetNotify(func(line string) {
		term.Append(line, eval.OutputOpts{Background: true})
	})
	broker.SetPrompter(term.ShowPrompt)
	sessions.SetExtras(term.Extras)

	rt := &Runtime{
		Store:    st,
		FS:       fs,
		Users:    users,
		Sessions: sessions,
		Sudo:     sudoSvc,
		Audit:    audit.New(fs),
		Jobs:     jobs,
		Bus:      bus,
		Dialog:   broker,
		Aliases:  aliases,
		Term:     term,
		host:     cfg.Host,
	}
	rt.Evaler = eval.NewEvaler(eval.Deps{
		FS:       rt.FS,
		Users:    rt.Users,
		Sessions: rt.Sessions,
		Sudo:     rt.Sudo,
		Audit:    rt.Audit,
		Jobs:     rt.Jobs,
		Bus:      rt.Bus,
		Dialog:   rt.Dialog,
		Aliases:  rt.Aliases,
		UI:       rt.Term,

		MaxScriptSteps: cfg.MaxScriptSteps,
		OSVersion:      buildinfo.Value.Version,
	})
	return rt, nil
}

// Prompt is the interactive prompt for the current session state.
func (rt *Runtime) Prompt() string {
	user := rt.Sessions.Current()
	mark := "$"
	if user == "root" {
		mark = "#"
	}
	return fmt.Sprintf("%s@%s:%s%s ", user, rt.host, rt.Sessions.Cwd(), mark)
}

// Close persists what the session still owes the store and releases the
// database.
func (rt *Runtime) Close() error {
	return errors.Join(
		rt.Sessions.SaveCurrent(),
		rt.Audit.Flush(),
		rt.Store.Close(),
	)
}
