package vfs

import (
	"sort"
	"time"
)

// NodeType identifies the variant of a filesystem node. The values double
// as the serialized type tags.
type NodeType string

const (
	TypeFile    NodeType = "file"
	TypeDir     NodeType = "directory"
	TypeSymlink NodeType = "symlink"
)

// node is one entry in the tree. Fields are exported for serialization;
// the type itself never leaves the package.
type node struct {
	Type     NodeType         `json:"type"`
	Owner    string           `json:"owner"`
	Group    string           `json:"group"`
	Mode     uint16           `json:"mode"`
	Mtime    time.Time        `json:"mtime"`
	Content  string           `json:"content,omitempty"`
	Children map[string]*node `json:"children,omitempty"`
	Target   string           `json:"target,omitempty"`
}

const (
	defaultDirMode  = uint16(0o755)
	defaultFileMode = uint16(0o644)
	symlinkMode     = uint16(0o777)
)

func newDir(owner, group string, mode uint16, mtime time.Time) *node {
	return &node{
		Type: TypeDir, Owner: owner, Group: group, Mode: mode,
		Mtime: mtime, Children: map[string]*node{},
	}
}

func newFile(owner, group string, mode uint16, content string, mtime time.Time) *node {
	return &node{
		Type: TypeFile, Owner: owner, Group: group, Mode: mode,
		Mtime: mtime, Content: content,
	}
}

func newSymlink(owner, group, target string, mtime time.Time) *node {
	return &node{
		Type: TypeSymlink, Owner: owner, Group: group, Mode: symlinkMode,
		Mtime: mtime, Target: target,
	}
}

func (n *node) child(name string) *node {
	if n.Children == nil {
		return nil
	}
	return n.Children[name]
}

func (n *node) setChild(name string, c *node) {
	if n.Children == nil {
		n.Children = map[string]*node{}
	}
	n.Children[name] = c
}

func sortedNames(m map[string]*node) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *node) deepCopy() *node {
	c := *n
	if n.Children != nil {
		c.Children = make(map[string]*node, len(n.Children))
		for name, child := range n.Children {
			c.Children[name] = child.deepCopy()
		}
	}
	return &c
}

// contentSize returns the total content bytes in the subtree, the quantity
// the quota limits.
func (n *node) contentSize() int64 {
	switch n.Type {
	case TypeFile:
		return int64(len(n.Content))
	case TypeDir:
		var total int64
		for _, child := range n.Children {
			total += child.contentSize()
		}
		return total
	}
	return 0
}

// Info describes one node at a point in time. It carries copies of the
// node's fields, so holding an Info never aliases live tree state.
type Info struct {
	// Name is the final path component, or "/" for the root.
	Name string
	// Path is the absolute path of the node after symlink resolution.
	Path  string
	Type  NodeType
	Owner string
	Group string
	Mode  uint16
	Mtime time.Time
	// Size is the content length for files, the child count for
	// directories and the target length for symlinks.
	Size int64
	// Target is the raw link target for symlinks.
	Target string
}

// Exists reports whether the Info describes a present node, as opposed to
// the resolved location of a missing one.
func (i Info) Exists() bool { return i.Type != "" }

// IsDir reports whether the Info describes a directory.
func (i Info) IsDir() bool { return i.Type == TypeDir }

func infoOf(abs string, n *node) Info {
	info := Info{
		Name:  baseName(abs),
		Path:  abs,
		Type:  n.Type,
		Owner: n.Owner,
		Group: n.Group,
		Mode:  n.Mode,
		Mtime: n.Mtime,
	}
	switch n.Type {
	case TypeFile:
		info.Size = int64(len(n.Content))
	case TypeDir:
		info.Size = int64(len(n.Children))
	case TypeSymlink:
		info.Size = int64(len(n.Target))
		info.Target = n.Target
	}
	return info
}

// FormatMode renders a node type and permission bits the way long listings
// show them, like "drwxr-xr-x".
func FormatMode(t NodeType, mode uint16) string {
	var b [10]byte
	b[0] = '-'
	if t == TypeDir {
		b[0] = 'd'
	}
	const rwx = "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<(8-i)) != 0 {
			b[i+1] = rwx[i]
		} else {
			b[i+1] = '-'
		}
	}
	return string(b[:])
}
