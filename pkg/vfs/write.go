package vfs

import "src.oopis.dev/pkg/errs"

// CreateOpts carries the acting identity for mutations that create nodes.
type CreateOpts struct {
	// User becomes the owner of created nodes and is the subject of
	// permission checks.
	User string
	// Group becomes the group of created nodes, normally the user's
	// primary group.
	Group string
	// Dir creates a directory instead of a file.
	Dir bool
	// Mode overrides the default mode of a created node when non-zero.
	Mode uint16
}

func (fs *FS) checkQuota(delta int64) error {
	if delta <= 0 || fs.maxBytes <= 0 {
		return nil
	}
	if fs.used+delta > fs.maxBytes {
		return &errs.QuotaExceeded{Need: fs.used + delta, Limit: fs.maxBytes}
	}
	return nil
}

// CreateOrUpdateFile writes content to the file at path, creating it and
// any missing parent directories (mode 0o755, owned by the acting user) as
// needed. A final symlink is written through. With opts.Dir it creates a
// directory and content is ignored; an existing directory is left alone.
func (fs *FS) CreateOrUpdateFile(path, base, content string, opts CreateOpts) error {
	fs.mu.Lock()
	changed, err := fs.createOrUpdateLocked(path, base, content, opts)
	fs.mu.Unlock()
	if err == nil && changed != "" {
		fs.notifyWrite(changed)
	}
	return err
}

func (fs *FS) createOrUpdateLocked(path, base, content string, opts CreateOpts) (string, error) {
	abs := Resolve(path, base)
	n, eff, err := fs.walk(abs, opts.User, false)
	if err != nil {
		return "", err
	}
	now := fs.now()
	if n != nil {
		if opts.Dir {
			if n.Type == TypeDir {
				return "", nil
			}
			return "", &errs.AlreadyExists{Path: eff}
		}
		if n.Type != TypeFile {
			return "", &errs.NotFile{Path: eff}
		}
		if !fs.hasPermission(n, opts.User, PermWrite) {
			return "", &errs.PermissionDenied{Op: "w", Path: eff}
		}
		delta := int64(len(content)) - int64(len(n.Content))
		if err := fs.checkQuota(delta); err != nil {
			return "", err
		}
		n.Content = content
		n.Mtime = now
		fs.used += delta
		return eff, nil
	}

	var delta int64
	if !opts.Dir {
		delta = int64(len(content))
	}
	if err := fs.checkQuota(delta); err != nil {
		return "", err
	}
	segs := splitPath(eff)
	cur := fs.root
	curPath := "/"
	for _, seg := range segs[:len(segs)-1] {
		if !fs.hasPermission(cur, opts.User, PermExec) {
			return "", &errs.PermissionDenied{Op: "x", Path: curPath}
		}
		child := cur.child(seg)
		switch {
		case child == nil:
			if !fs.hasPermission(cur, opts.User, PermWrite) {
				return "", &errs.PermissionDenied{Op: "w", Path: curPath}
			}
			child = newDir(opts.User, opts.Group, defaultDirMode, now)
			cur.setChild(seg, child)
			cur.Mtime = now
		case child.Type != TypeDir:
			return "", &errs.ParentMalformed{Path: joinChild(curPath, seg)}
		}
		cur = child
		curPath = joinChild(curPath, seg)
	}
	if !fs.hasPermission(cur, opts.User, PermWrite) {
		return "", &errs.PermissionDenied{Op: "w", Path: curPath}
	}
	name := segs[len(segs)-1]
	mode := opts.Mode
	if opts.Dir {
		if mode == 0 {
			mode = defaultDirMode
		}
		cur.setChild(name, newDir(opts.User, opts.Group, mode, now))
	} else {
		if mode == 0 {
			mode = defaultFileMode
		}
		cur.setChild(name, newFile(opts.User, opts.Group, mode, content, now))
	}
	cur.Mtime = now
	fs.used += delta
	return eff, nil
}

// AppendFile appends content to the file at path, creating it like
// CreateOrUpdateFile when it is missing. Appending to an existing file
// needs write permission only, not read.
func (fs *FS) AppendFile(path, base, content string, opts CreateOpts) error {
	fs.mu.Lock()
	changed, err := fs.appendLocked(path, base, content, opts)
	fs.mu.Unlock()
	if err == nil && changed != "" {
		fs.notifyWrite(changed)
	}
	return err
}

func (fs *FS) appendLocked(path, base, content string, opts CreateOpts) (string, error) {
	abs := Resolve(path, base)
	n, eff, err := fs.walk(abs, opts.User, false)
	if err != nil {
		return "", err
	}
	if n == nil {
		return fs.createOrUpdateLocked(path, base, content, opts)
	}
	if n.Type != TypeFile {
		return "", &errs.NotFile{Path: eff}
	}
	if !fs.hasPermission(n, opts.User, PermWrite) {
		return "", &errs.PermissionDenied{Op: "w", Path: eff}
	}
	if err := fs.checkQuota(int64(len(content))); err != nil {
		return "", err
	}
	n.Content += content
	n.Mtime = fs.now()
	fs.used += int64(len(content))
	return eff, nil
}

// Touch updates the modification time of the node at path, creating an
// empty file when it is missing. Unlike CreateOrUpdateFile it does not
// materialize missing parents.
func (fs *FS) Touch(path, base string, opts CreateOpts) error {
	fs.mu.Lock()
	changed, err := fs.touchLocked(path, base, opts)
	fs.mu.Unlock()
	if err == nil && changed != "" {
		fs.notifyWrite(changed)
	}
	return err
}

func (fs *FS) touchLocked(path, base string, opts CreateOpts) (string, error) {
	abs := Resolve(path, base)
	n, eff, err := fs.walk(abs, opts.User, false)
	if err != nil {
		return "", err
	}
	if n != nil {
		if !fs.hasPermission(n, opts.User, PermWrite) {
			return "", &errs.PermissionDenied{Op: "w", Path: eff}
		}
		n.Mtime = fs.now()
		return eff, nil
	}
	parent, _, err := fs.requireParentDir(eff, opts.User)
	if err != nil {
		return "", err
	}
	now := fs.now()
	parent.setChild(baseName(eff), newFile(opts.User, opts.Group, defaultFileMode, "", now))
	parent.Mtime = now
	return eff, nil
}

// Symlink creates a symlink at linkPath pointing at target. The target is
// stored as given and resolved lazily on lookup, so it may dangle. The
// parent directory must already exist.
func (fs *FS) Symlink(target, linkPath, base string, opts CreateOpts) error {
	fs.mu.Lock()
	changed, err := fs.symlinkLocked(target, linkPath, base, opts)
	fs.mu.Unlock()
	if err == nil && changed != "" {
		fs.notifyWrite(changed)
	}
	return err
}

func (fs *FS) symlinkLocked(target, linkPath, base string, opts CreateOpts) (string, error) {
	abs := Resolve(linkPath, base)
	n, eff, err := fs.walk(abs, opts.User, true)
	if err != nil {
		return "", err
	}
	if n != nil {
		return "", &errs.AlreadyExists{Path: eff}
	}
	parent, _, err := fs.requireParentDir(eff, opts.User)
	if err != nil {
		return "", err
	}
	now := fs.now()
	parent.setChild(baseName(eff), newSymlink(opts.User, opts.Group, target, now))
	parent.Mtime = now
	return eff, nil
}

// requireParentDir returns the writable directory that would hold abs.
func (fs *FS) requireParentDir(abs, user string) (*node, string, error) {
	parentPath := dirOf(abs)
	parent, eff, err := fs.walk(parentPath, user, false)
	if err != nil {
		return nil, "", err
	}
	if parent == nil {
		return nil, "", &errs.NoSuchFileOrDir{Path: parentPath}
	}
	if parent.Type != TypeDir {
		return nil, "", &errs.NotDir{Path: parentPath}
	}
	if !fs.hasPermission(parent, user, PermWrite) {
		return nil, "", &errs.PermissionDenied{Op: "w", Path: eff}
	}
	return parent, eff, nil
}

// Chmod sets the permission bits of the node at path. Only root and the
// owner may do so.
func (fs *FS) Chmod(path, base, user string, mode uint16) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	abs := Resolve(path, base)
	n, _, err := fs.walk(abs, user, false)
	if err != nil {
		return err
	}
	if n == nil {
		return &errs.NoSuchFileOrDir{Path: abs}
	}
	if user != "root" && user != n.Owner {
		return errs.ErrOperationNotPermitted
	}
	n.Mode = mode & 0o777
	return nil
}

// Chown changes the owner of the node at path. Only root may do so; the
// caller is responsible for checking that the new owner exists.
func (fs *FS) Chown(path, base, user, newOwner string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	abs := Resolve(path, base)
	n, _, err := fs.walk(abs, user, false)
	if err != nil {
		return err
	}
	if n == nil {
		return &errs.NoSuchFileOrDir{Path: abs}
	}
	if user != "root" {
		return errs.ErrRequiresRoot
	}
	n.Owner = newOwner
	return nil
}

// Chgrp changes the group of the node at path. Root may always do so; the
// owner may move it into one of their own groups (checked by the caller).
func (fs *FS) Chgrp(path, base, user, newGroup string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	abs := Resolve(path, base)
	n, _, err := fs.walk(abs, user, false)
	if err != nil {
		return err
	}
	if n == nil {
		return &errs.NoSuchFileOrDir{Path: abs}
	}
	if user != "root" && user != n.Owner {
		return errs.ErrOperationNotPermitted
	}
	n.Group = newGroup
	return nil
}

// DeleteOpts controls DeleteRecursive.
type DeleteOpts struct {
	User string
	// Force makes deleting a missing path a success.
	Force bool
}

// DeleteRecursive removes the node at path. Symlinks are removed without
// touching their target. For a directory the whole subtree is checked
// first and then unlinked in one step, so a permission error inside leaves
// the tree untouched.
func (fs *FS) DeleteRecursive(path, base string, opts DeleteOpts) error {
	fs.mu.Lock()
	changed, err := fs.deleteLocked(path, base, opts)
	fs.mu.Unlock()
	if err == nil && changed != "" {
		fs.notifyWrite(changed)
	}
	return err
}

func (fs *FS) deleteLocked(path, base string, opts DeleteOpts) (string, error) {
	abs := Resolve(path, base)
	if abs == "/" {
		return "", errs.ErrCannotDeleteRoot
	}
	n, eff, err := fs.walk(abs, opts.User, true)
	if err != nil {
		return "", err
	}
	if n == nil {
		if opts.Force {
			return "", nil
		}
		return "", &errs.NoSuchFileOrDir{Path: abs}
	}
	parentPath := dirOf(eff)
	parent, _, err := fs.walk(parentPath, opts.User, false)
	if err != nil {
		return "", err
	}
	if parent == nil || parent.Type != TypeDir {
		return "", &errs.NoSuchFileOrDir{Path: parentPath}
	}
	if !fs.hasPermission(parent, opts.User, PermWrite) {
		return "", &errs.PermissionDenied{Op: "w", Path: eff}
	}
	if n.Type == TypeDir {
		if err := fs.checkDeletable(n, eff, opts.User); err != nil {
			return "", err
		}
	}
	fs.used -= n.contentSize()
	delete(parent.Children, baseName(eff))
	parent.Mtime = fs.now()
	return eff, nil
}

// checkDeletable verifies the user may empty every directory in the
// subtree, in sorted order so the first failure is deterministic.
func (fs *FS) checkDeletable(n *node, path, user string) error {
	if !fs.hasPermission(n, user, PermWrite) {
		return &errs.PermissionDenied{Op: "w", Path: path}
	}
	for _, name := range sortedNames(n.Children) {
		child := n.Children[name]
		if child.Type == TypeDir {
			if err := fs.checkDeletable(child, joinChild(path, name), user); err != nil {
				return err
			}
		}
	}
	return nil
}
