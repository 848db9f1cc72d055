// Package sudo implements the privilege elevation policy: parsing
// /etc/sudoers, deciding who may run what, and the per-user timestamp
// cache that suppresses repeated password prompts.
package sudo

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/vfs"
)

var logger = logutil.GetLogger("[sudo] ")

// SudoersPath is where the policy file lives in the VFS.
const SudoersPath = "/etc/sudoers"

const defaultTimeoutMinutes = 15

// policy is a parsed sudoers file.
type policy struct {
	users          map[string]string
	groups         map[string]string
	timeoutMinutes int
}

// Service answers privilege questions against the sudoers file. The parse
// is lazy and cached; any write under the sudoers path drops the cache.
type Service struct {
	mu     sync.Mutex
	fs     *vfs.FS
	ident  vfs.Identity
	cached *policy
	stamps map[string]time.Time

	now func() time.Time
}

// New creates a Service reading policy from fs and group membership from
// ident. It subscribes to filesystem writes to invalidate the cache.
func New(fs *vfs.FS, ident vfs.Identity) *Service {
	s := &Service{
		fs:     fs,
		ident:  ident,
		stamps: make(map[string]time.Time),
		now:    time.Now,
	}
	fs.AddAfterWrite(func(path string) {
		if coversSudoers(path) {
			s.invalidate()
		}
	})
	return s
}

// coversSudoers reports whether a change at path can affect the sudoers
// file, meaning path is the file itself or a directory on the way to it.
func coversSudoers(path string) bool {
	return path == SudoersPath ||
		path == "/" || path == "/etc" ||
		strings.HasPrefix(path, SudoersPath+"/")
}

func (s *Service) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

func (s *Service) policy() *policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		content, err := s.fs.ReadFile(SudoersPath, "/", "root")
		if err != nil {
			logger.Println("cannot read sudoers:", err)
			content = ""
		}
		s.cached = parse(content)
	}
	return s.cached
}

// parse reads a sudoers file. Unparsable lines are skipped.
func parse(content string) *policy {
	p := &policy{
		users:          make(map[string]string),
		groups:         make(map[string]string),
		timeoutMinutes: defaultTimeoutMinutes,
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Defaults"); ok {
			rest = strings.TrimSpace(rest)
			if v, ok := strings.CutPrefix(rest, "timestamp_timeout="); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
					p.timeoutMinutes = n
				}
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// Re-joining tolerates spaces after the commas of a command list.
		name, spec := fields[0], strings.Join(fields[1:], "")
		if group, ok := strings.CutPrefix(name, "%"); ok {
			p.groups[group] = spec
		} else {
			p.users[name] = spec
		}
	}
	return p
}

// specAllows reports whether a permission spec covers the command name.
// Entries may be full paths; their last component counts.
func specAllows(spec, command string) bool {
	if spec == "ALL" {
		return true
	}
	for _, entry := range strings.Split(spec, ",") {
		if entry == command {
			return true
		}
		if i := strings.LastIndexByte(entry, '/'); i >= 0 && entry[i+1:] == command {
			return true
		}
	}
	return false
}

// CanRun decides whether user may run command under sudo. Root always may.
// A user-specific entry wins; otherwise the first of the user's groups with
// an entry decides.
func (s *Service) CanRun(user, command string) bool {
	if user == "root" {
		return true
	}
	p := s.policy()
	if spec, ok := p.users[user]; ok {
		return specAllows(spec, command)
	}
	for _, group := range s.ident.Groups(user) {
		if spec, ok := p.groups[group]; ok {
			return specAllows(spec, command)
		}
	}
	return false
}

// Timeout returns how long a verified sudo lasts.
func (s *Service) Timeout() time.Duration {
	return time.Duration(s.policy().timeoutMinutes) * time.Minute
}

// NeedsPassword reports whether user must re-verify before a sudo run.
// Root never does; anyone else is excused only while their timestamp is
// fresh.
func (s *Service) NeedsPassword(user string) bool {
	if user == "root" {
		return false
	}
	timeout := s.Timeout()
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp, ok := s.stamps[user]
	return !ok || timeout <= 0 || s.now().Sub(stamp) >= timeout
}

// Stamp records a successful verification for user.
func (s *Service) Stamp(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[user] = s.now()
}

// ClearStamp forgets the user's verification. Wired to session leave
// events, so logging out or switching away forces the next sudo to prompt.
func (s *Service) ClearStamp(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stamps, user)
}
