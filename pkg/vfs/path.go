package vfs

import "strings"

// Resolve normalizes path against base into an absolute path containing no
// ".", ".." or empty segments. A relative path is taken relative to base;
// base itself must be absolute ("" counts as "/"). Unsafe characters are
// stripped from every segment. Resolve never fails: ".." at the root stays
// at the root.
func Resolve(path, base string) string {
	if !strings.HasPrefix(path, "/") {
		if base == "" {
			base = "/"
		}
		path = base + "/" + path
	}
	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg = sanitizeSegment(seg); seg {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/")
}

// sanitizeSegment strips the characters that must never appear in a node
// name. The path separator cannot occur here because segments are split
// before sanitizing.
func sanitizeSegment(seg string) string {
	if !strings.ContainsAny(seg, `\&<>"'`) {
		return seg
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '&', '<', '>', '"', '\'':
			return -1
		}
		return r
	}, seg)
}

// splitPath returns the segments of an absolute, already resolved path.
// The root has no segments.
func splitPath(abs string) []string {
	if abs == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(abs, "/"), "/")
}

// joinChild appends one segment to an absolute directory path.
func joinChild(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// baseName returns the final segment of an absolute path, or "/" for the
// root.
func baseName(abs string) string {
	if abs == "/" {
		return "/"
	}
	return abs[strings.LastIndexByte(abs, '/')+1:]
}

// dirOf returns the parent of an absolute path; the parent of "/" is "/".
func dirOf(abs string) string {
	i := strings.LastIndexByte(abs, '/')
	if i <= 0 {
		return "/"
	}
	return abs[:i]
}
