// Package audit appends security-relevant events to /var/log/audit.log
// inside the virtual filesystem. Entries pass through a queue so that a
// failed write is retried, oldest first, on the next occasion.
package audit

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/vfs"
)

var logger = logutil.GetLogger("[audit] ")

// LogPath is where entries land in the VFS.
const LogPath = "/var/log/audit.log"

const logMode = 0o640

// Logger records audit entries. Writes happen as root so the log is
// appendable regardless of who triggered the event.
type Logger struct {
	mu    sync.Mutex
	fs    *vfs.FS
	queue []string

	now func() time.Time
}

// New creates a Logger writing through fs.
func New(fs *vfs.FS) *Logger {
	return &Logger{fs: fs, now: time.Now}
}

// Record queues one entry and tries to flush. Failures are kept quiet
// here; the entry stays queued for a later attempt.
func (l *Logger) Record(actor, action, details string) {
	stamp := l.now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s | USER: %s | ACTION: %s | DETAILS: %s\n",
		stamp, actor, action, details)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, line)
	if err := l.flushLocked(); err != nil {
		logger.Println("audit write failed, queued:", err)
	}
}

// Flush retries any queued entries, for shutdown paths.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

// Pending returns how many entries await a successful write.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// flushLocked appends the whole queue in one write. On failure the queue is
// left as-is, so the oldest entry stays at the head for the retry.
func (l *Logger) flushLocked() error {
	if len(l.queue) == 0 {
		return nil
	}
	old, err := l.fs.ReadFile(LogPath, "/", "root")
	if err != nil {
		var notFound *errs.NoSuchFileOrDir
		if !errors.As(err, &notFound) {
			return err
		}
		old = ""
	}
	content := old + strings.Join(l.queue, "")
	opts := vfs.CreateOpts{User: "root", Group: "root", Mode: logMode}
	if err := l.fs.CreateOrUpdateFile(LogPath, "/", content, opts); err != nil {
		return err
	}
	l.queue = nil
	return nil
}
