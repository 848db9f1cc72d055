package vfs

import (
	"strings"
	"time"

	"src.oopis.dev/pkg/errs"
)

// OpKind selects between copy and move semantics for a file operation.
type OpKind int

const (
	OpCopy OpKind = iota
	OpMove
)

// FileOpOpts carries the acting identity and the kind of a file operation.
type FileOpOpts struct {
	User  string
	Group string
	Kind  OpKind
}

// Op is one planned placement of a source at a destination.
type Op struct {
	// Src and Dst are resolved absolute paths.
	Src string
	Dst string
	// DstParent is the directory receiving the node; FinalName the name
	// it gets there.
	DstParent string
	FinalName string
	// SrcInfo snapshots the source node at planning time.
	SrcInfo Info
	// WillOverwrite reports that something already exists at Dst.
	WillOverwrite bool
}

// PrepareFileOperation plans copying or moving sources to dest without
// mutating anything. With more than one source, dest must be an existing
// directory. When dest is a directory each source keeps its basename
// inside it; otherwise dest is used verbatim. Moving requires write on the
// source's parent; copying requires read on the source. The root cannot be
// a source, and a directory cannot be placed inside its own subtree.
func (fs *FS) PrepareFileOperation(sources []string, dest, base string, opts FileOpOpts) ([]Op, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	destAbs := Resolve(dest, base)
	destNode, destEff, err := fs.walk(destAbs, opts.User, false)
	if err != nil {
		return nil, err
	}
	destIsDir := destNode != nil && destNode.Type == TypeDir
	if len(sources) > 1 && !destIsDir {
		return nil, &errs.NotDir{Path: destAbs}
	}

	ops := make([]Op, 0, len(sources))
	for _, src := range sources {
		srcAbs := Resolve(src, base)
		if srcAbs == "/" {
			return nil, errs.ErrCannotMoveRoot
		}
		srcNode, srcEff, err := fs.walk(srcAbs, opts.User, true)
		if err != nil {
			return nil, err
		}
		if srcNode == nil {
			return nil, &errs.NoSuchFileOrDir{Path: srcAbs}
		}
		switch opts.Kind {
		case OpMove:
			parent, _, err := fs.walk(dirOf(srcEff), opts.User, false)
			if err != nil {
				return nil, err
			}
			if parent == nil || !fs.hasPermission(parent, opts.User, PermWrite) {
				return nil, &errs.PermissionDenied{Op: "w", Path: srcEff}
			}
		case OpCopy:
			if !fs.hasPermission(srcNode, opts.User, PermRead) {
				return nil, &errs.PermissionDenied{Op: "r", Path: srcEff}
			}
		}

		op := Op{Src: srcEff, SrcInfo: infoOf(srcEff, srcNode)}
		if destIsDir {
			op.DstParent = destEff
			op.FinalName = baseName(srcEff)
		} else {
			op.DstParent = dirOf(destEff)
			op.FinalName = baseName(destEff)
		}
		op.Dst = joinChild(op.DstParent, op.FinalName)
		if op.Dst == srcEff {
			return nil, &errs.SameFile{Path: srcEff}
		}
		if srcNode.Type == TypeDir &&
			(op.DstParent == srcEff || strings.HasPrefix(op.DstParent, srcEff+"/")) {
			return nil, &errs.MoveIntoSelf{Path: srcEff}
		}
		if existing, _, _ := fs.walk(op.Dst, opts.User, true); existing != nil {
			op.WillOverwrite = true
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ApplyFileOperation carries out a prepared plan. Every op re-resolves its
// paths, so a concurrent change since planning surfaces as a normal error.
// Ops are applied in order and the first failure aborts the rest.
func (fs *FS) ApplyFileOperation(ops []Op, opts FileOpOpts) error {
	fs.mu.Lock()
	var changed []string
	err := fs.applyLocked(ops, opts, &changed)
	fs.mu.Unlock()
	if len(changed) > 0 {
		fs.notifyWrite(changed...)
	}
	return err
}

func (fs *FS) applyLocked(ops []Op, opts FileOpOpts, changed *[]string) error {
	now := fs.now()
	for _, op := range ops {
		srcNode, srcEff, err := fs.walk(op.Src, opts.User, true)
		if err != nil {
			return err
		}
		if srcNode == nil {
			return &errs.NoSuchFileOrDir{Path: op.Src}
		}
		dstParent, _, err := fs.walk(op.DstParent, opts.User, false)
		if err != nil {
			return err
		}
		if dstParent == nil {
			return &errs.NoSuchFileOrDir{Path: op.DstParent}
		}
		if dstParent.Type != TypeDir {
			return &errs.NotDir{Path: op.DstParent}
		}
		if !fs.hasPermission(dstParent, opts.User, PermWrite) {
			return &errs.PermissionDenied{Op: "w", Path: op.DstParent}
		}

		var freed int64
		if old := dstParent.child(op.FinalName); old != nil {
			if old.Type == TypeDir && srcNode.Type != TypeDir {
				return &errs.IsDir{Path: op.Dst}
			}
			freed = old.contentSize()
		}

		switch opts.Kind {
		case OpMove:
			srcParent, _, err := fs.walk(dirOf(srcEff), opts.User, false)
			if err != nil {
				return err
			}
			if srcParent == nil || srcParent.Type != TypeDir {
				return &errs.NoSuchFileOrDir{Path: dirOf(srcEff)}
			}
			if !fs.hasPermission(srcParent, opts.User, PermWrite) {
				return &errs.PermissionDenied{Op: "w", Path: srcEff}
			}
			delete(srcParent.Children, baseName(srcEff))
			srcParent.Mtime = now
			dstParent.setChild(op.FinalName, srcNode)
			dstParent.Mtime = now
			fs.used -= freed
			*changed = append(*changed, srcEff, op.Dst)
		case OpCopy:
			added := srcNode.contentSize()
			if err := fs.checkQuota(added - freed); err != nil {
				return err
			}
			cp := srcNode.deepCopy()
			rechown(cp, opts.User, opts.Group, now)
			dstParent.setChild(op.FinalName, cp)
			dstParent.Mtime = now
			fs.used += added - freed
			*changed = append(*changed, op.Dst)
		}
	}
	return nil
}

// rechown assigns the copying identity and a fresh mtime through a copied
// subtree, keeping modes.
func rechown(n *node, owner, group string, now time.Time) {
	n.Owner, n.Group, n.Mtime = owner, group, now
	for _, child := range n.Children {
		rechown(child, owner, group, now)
	}
}
