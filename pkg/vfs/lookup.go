package vfs

import "src.oopis.dev/pkg/errs"

const maxSymlinkHops = 10

// Perm is a permission bit set. The constants align with the mode bits, so
// they can be combined with |.
type Perm uint16

const (
	PermRead  Perm = 0o4
	PermWrite Perm = 0o2
	PermExec  Perm = 0o1
)

func (p Perm) String() string {
	var b []byte
	if p&PermRead != 0 {
		b = append(b, 'r')
	}
	if p&PermWrite != 0 {
		b = append(b, 'w')
	}
	if p&PermExec != 0 {
		b = append(b, 'x')
	}
	return string(b)
}

// hasPermission evaluates a permission request the classic way: root may do
// anything; otherwise exactly one of the owner, group or other bit triplets
// applies, in that order.
func (fs *FS) hasPermission(n *node, user string, perm Perm) bool {
	if user == "root" {
		return true
	}
	var bits uint16
	switch {
	case user == n.Owner:
		bits = n.Mode >> 6
	case fs.inGroup(user, n.Group):
		bits = n.Mode >> 3
	default:
		bits = n.Mode
	}
	return bits&0o7&uint16(perm) == uint16(perm)
}

func (fs *FS) inGroup(user, group string) bool {
	if fs.ident == nil {
		return false
	}
	for _, g := range fs.ident.Groups(user) {
		if g == group {
			return true
		}
	}
	return false
}

// walk finds the node at abs. Intermediate symlinks are always followed;
// the final one is followed unless noFollow. A missing node, or one behind
// a directory the user may not traverse, yields a nil node. The returned
// path is the effective absolute location after symlink substitution; for
// a missing node it is where a create would place it.
func (fs *FS) walk(abs, user string, noFollow bool) (*node, string, error) {
	segs := splitPath(abs)
	cur := fs.root
	curPath := "/"
	hops := 0
	for i := 0; i < len(segs); i++ {
		if cur.Type != TypeDir || !fs.hasPermission(cur, user, PermExec) {
			return nil, abs, nil
		}
		child := cur.child(segs[i])
		if child == nil {
			eff := curPath
			for _, seg := range segs[i:] {
				eff = joinChild(eff, seg)
			}
			return nil, eff, nil
		}
		if child.Type == TypeSymlink && (i < len(segs)-1 || !noFollow) {
			hops++
			if hops > maxSymlinkHops {
				return nil, "", &errs.SymlinkLoop{Path: abs}
			}
			target := Resolve(child.Target, curPath)
			segs = append(splitPath(target), segs[i+1:]...)
			cur = fs.root
			curPath = "/"
			i = -1
			continue
		}
		curPath = joinChild(curPath, segs[i])
		cur = child
	}
	return cur, curPath, nil
}

// ValidateOpts controls Validate.
type ValidateOpts struct {
	// ExpectedType, when set, requires the node to have that type.
	ExpectedType NodeType
	// Perms, when non-zero, are permission bits the user must hold on the
	// node.
	Perms Perm
	// AllowMissing makes a missing node succeed, yielding a non-existent
	// Info that carries the resolved path.
	AllowMissing bool
	// NoFollow keeps a final symlink unresolved.
	NoFollow bool
}

// Validate resolves path against base and checks it per opts, returning a
// snapshot of the node.
func (fs *FS) Validate(path, base, user string, opts ValidateOpts) (Info, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	info, _, err := fs.validateLocked(path, base, user, opts)
	return info, err
}

func (fs *FS) validateLocked(path, base, user string, opts ValidateOpts) (Info, *node, error) {
	abs := Resolve(path, base)
	n, eff, err := fs.walk(abs, user, opts.NoFollow)
	if err != nil {
		return Info{}, nil, err
	}
	if n == nil {
		if opts.AllowMissing {
			return Info{Name: baseName(eff), Path: eff}, nil, nil
		}
		return Info{}, nil, &errs.NoSuchFileOrDir{Path: abs}
	}
	if opts.ExpectedType != "" && n.Type != opts.ExpectedType {
		switch {
		case opts.ExpectedType == TypeDir:
			return Info{}, nil, &errs.NotDir{Path: abs}
		case n.Type == TypeDir:
			return Info{}, nil, &errs.IsDir{Path: abs}
		default:
			return Info{}, nil, &errs.NotFile{Path: abs}
		}
	}
	if opts.Perms != 0 && !fs.hasPermission(n, user, opts.Perms) {
		return Info{}, nil, &errs.PermissionDenied{Op: opts.Perms.String(), Path: abs}
	}
	return infoOf(eff, n), n, nil
}

// Stat returns information about the node at path.
func (fs *FS) Stat(path, base, user string, noFollow bool) (Info, error) {
	return fs.Validate(path, base, user, ValidateOpts{NoFollow: noFollow})
}

// ReadFile returns the content of the file at path, following symlinks.
// The user must hold read permission on the resolved node.
func (fs *FS) ReadFile(path, base, user string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, n, err := fs.validateLocked(path, base, user, ValidateOpts{
		ExpectedType: TypeFile, Perms: PermRead,
	})
	if err != nil {
		return "", err
	}
	return n.Content, nil
}

// ReadDir lists the directory at path sorted by name. The user must hold
// read permission on the directory.
func (fs *FS) ReadDir(path, base, user string) ([]Info, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	info, n, err := fs.validateLocked(path, base, user, ValidateOpts{
		ExpectedType: TypeDir, Perms: PermRead,
	})
	if err != nil {
		return nil, err
	}
	names := sortedNames(n.Children)
	infos := make([]Info, len(names))
	for i, name := range names {
		infos[i] = infoOf(joinChild(info.Path, name), n.Children[name])
	}
	return infos, nil
}

// HasPermission reports whether user holds perm on the node at path. A
// missing node yields false.
func (fs *FS) HasPermission(path, base, user string, perm Perm) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, _, err := fs.walk(Resolve(path, base), user, false)
	return err == nil && n != nil && fs.hasPermission(n, user, perm)
}
