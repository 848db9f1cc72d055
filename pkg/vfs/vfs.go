// Package vfs implements the virtual filesystem: a tree of file, directory
// and symlink nodes with POSIX-style permissions, a byte quota, and
// persistence through the blob store.
package vfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[vfs] ")

// Identity answers the group queries that permission checks need. It is
// implemented by the identity store.
type Identity interface {
	// Groups returns the effective group set of the user.
	Groups(user string) []string
}

// FS is the filesystem. All methods are safe for concurrent use; writes
// are serialized, and when foreground and background pipelines touch the
// same path the last write wins.
type FS struct {
	mu    sync.Mutex
	root  *node
	used  int64
	store storedefs.Store
	ident Identity
	// maxBytes caps total file content; non-positive means unlimited.
	maxBytes int64
	now      func() time.Time

	hookMu     sync.Mutex
	afterWrite []func(path string)
}

// LoadOrInit returns the filesystem persisted in st, or a freshly
// initialized default tree (persisted immediately) when the store has none.
func LoadOrInit(st storedefs.Store, ident Identity, maxBytes int64, defaultUser string) (*FS, error) {
	fs := &FS{store: st, ident: ident, maxBytes: maxBytes, now: time.Now}
	data, err := st.Get(storedefs.KeyFsData)
	if errors.Is(err, storedefs.ErrNoKey) {
		logger.Println("no saved filesystem, initializing default tree")
		fs.root = defaultTree(defaultUser, fs.now())
		fs.used = fs.root.contentSize()
		return fs, fs.Persist()
	}
	if err != nil {
		return nil, fmt.Errorf("load filesystem: %w", err)
	}
	root, err := unmarshalTree(data)
	if err != nil {
		return nil, err
	}
	fs.root = root
	fs.used = root.contentSize()
	return fs, nil
}

func unmarshalTree(data []byte) (*node, error) {
	var root node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse filesystem data: %w", err)
	}
	if root.Type != TypeDir {
		return nil, fmt.Errorf("parse filesystem data: root is not a directory")
	}
	return &root, nil
}

// defaultTree builds the skeleton a fresh system boots with: /home with
// home directories for root and the default user, /etc with the seed
// sudoers and agenda files, and /var/log.
func defaultTree(defaultUser string, now time.Time) *node {
	root := newDir("root", "root", defaultDirMode, now)

	home := newDir("root", "root", defaultDirMode, now)
	home.setChild("root", newDir("root", "root", defaultDirMode, now))
	home.setChild(defaultUser, newDir(defaultUser, defaultUser, defaultDirMode, now))
	root.setChild("home", home)

	etc := newDir("root", "root", defaultDirMode, now)
	etc.setChild("sudoers", newFile("root", "root", 0o440, seedSudoers, now))
	etc.setChild("agenda.json", newFile("root", "root", defaultFileMode, "[]\n", now))
	root.setChild("etc", etc)

	varDir := newDir("root", "root", defaultDirMode, now)
	varDir.setChild("log", newDir("root", "root", defaultDirMode, now))
	root.setChild("var", varDir)

	return root
}

const seedSudoers = `# /etc/sudoers
#
# Grant users or %groups the right to run commands as root.
# A permission spec is either ALL or a comma-separated command list.
Defaults timestamp_timeout=15
root	ALL
`

// AddAfterWrite adds a function to run after every successful mutation,
// with the absolute path that changed. Restoring a snapshot reports "/".
func (fs *FS) AddAfterWrite(f func(path string)) {
	fs.hookMu.Lock()
	defer fs.hookMu.Unlock()
	fs.afterWrite = append(fs.afterWrite, f)
}

// notifyWrite runs the after-write hooks. It must be called without fs.mu
// held, so that hooks may call back into the filesystem.
func (fs *FS) notifyWrite(paths ...string) {
	fs.hookMu.Lock()
	hooks := fs.afterWrite
	fs.hookMu.Unlock()
	for _, f := range hooks {
		for _, p := range paths {
			f(p)
		}
	}
}

// Used returns the total content bytes currently stored.
func (fs *FS) Used() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.used
}

// Max returns the quota; non-positive means unlimited.
func (fs *FS) Max() int64 { return fs.maxBytes }

// Snapshot serializes the whole tree. The encoding is deterministic, so
// Snapshot after Restore yields byte-identical data.
func (fs *FS) Snapshot() ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return json.Marshal(fs.root)
}

// Restore replaces the whole tree with a previously snapshotted one.
func (fs *FS) Restore(data []byte) error {
	root, err := unmarshalTree(data)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	fs.root = root
	fs.used = root.contentSize()
	fs.mu.Unlock()
	fs.notifyWrite("/")
	return nil
}

// Persist saves the current tree to the blob store. The tree is serialized
// under the lock, so a concurrent write either lands before the save or
// goes into a later one.
func (fs *FS) Persist() error {
	data, err := fs.Snapshot()
	if err != nil {
		return &errs.SaveFailed{What: "filesystem", Err: err}
	}
	if err := fs.store.Set(storedefs.KeyFsData, data); err != nil {
		return &errs.SaveFailed{What: "filesystem", Err: err}
	}
	return nil
}
