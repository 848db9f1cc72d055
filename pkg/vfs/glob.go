package vfs

import (
	"sort"
	"strings"
)

// Glob expands pattern against the filesystem. The metacharacters * and ?
// match within a single path segment; names starting with "." are only
// matched when the pattern spells the dot out. Results keep the pattern's
// flavor (relative patterns yield relative paths) and come back sorted. A
// pattern with no metacharacters or no matches yields nil.
func (fs *FS) Glob(pattern, base, user string) []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Consume leading literal segments by following the path, so that "."
	// and ".." keep their meaning there; expansion starts at the first
	// segment with a metacharacter.
	segs := strings.Split(pattern, "/")
	first := 0
	for first < len(segs) && !strings.ContainsAny(segs[first], "*?") {
		first++
	}
	if first == len(segs) {
		return nil
	}
	shown := strings.Join(segs[:first], "/")
	startRel := shown
	if startRel == "" {
		if strings.HasPrefix(pattern, "/") {
			startRel, shown = "/", "/"
		} else {
			startRel = "."
		}
	}
	start, startEff, err := fs.walk(Resolve(startRel, base), user, false)
	if err != nil || start == nil || start.Type != TypeDir {
		return nil
	}

	var out []string
	fs.globRec(start, startEff, shown, segs[first:], user, &out)
	sort.Strings(out)
	return out
}

func (fs *FS) globRec(dir *node, dirAbs, shown string, segs []string, user string, out *[]string) {
	if !fs.hasPermission(dir, user, PermRead) {
		return
	}
	seg, rest := segs[0], segs[1:]
	for _, name := range sortedNames(dir.Children) {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(seg, ".") {
			continue
		}
		if !matchSegment(seg, name) {
			continue
		}
		entryShown := joinShown(shown, name)
		if len(rest) == 0 {
			*out = append(*out, entryShown)
			continue
		}
		if !fs.hasPermission(dir, user, PermExec) {
			return
		}
		childAbs := joinChild(dirAbs, name)
		child := dir.child(name)
		if child.Type == TypeSymlink {
			resolved, eff, err := fs.walk(childAbs, user, false)
			if err != nil || resolved == nil {
				continue
			}
			child, childAbs = resolved, eff
		}
		if child.Type != TypeDir {
			continue
		}
		fs.globRec(child, childAbs, entryShown, rest, user, out)
	}
}

func joinShown(shown, name string) string {
	switch shown {
	case "":
		return name
	case "/":
		return "/" + name
	}
	return shown + "/" + name
}

// matchSegment matches a single-segment pattern with * and ? wildcards
// against a name, backtracking over * matches.
func matchSegment(pattern, name string) bool {
	p, s := []rune(pattern), []rune(name)
	pi, si := 0, 0
	star, starSi := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star, starSi = pi, si
			pi++
		case star >= 0:
			starSi++
			si = starSi
			pi = star + 1
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
