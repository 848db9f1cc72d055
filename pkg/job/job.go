// Package job implements the background job table and the per-job message
// bus. Jobs run as goroutines; cancellation is a context, observed by
// commands at their suspension points.
package job

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[job] ")

// Status is the run state of a job.
type Status int

const (
	Running Status = iota
	Paused
)

func (s Status) String() string {
	if s == Paused {
		return "paused"
	}
	return "running"
}

// Info is a point-in-time view of one job.
type Info struct {
	ID      int
	Command string
	Status  Status
}

type record struct {
	command string
	status  Status
	cancel  context.CancelFunc
	done    chan struct{}
}

// Table tracks live background jobs. Job ids increase monotonically and
// are never reused within a run.
type Table struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]*record
	bus    *Bus
	notify func(line string)
}

// NewTable creates an empty table posting queue registrations to bus.
func NewTable(bus *Bus) *Table {
	return &Table{jobs: make(map[int]*record), bus: bus}
}

// SetNotify installs the sink for asynchronous job status lines.
func (t *Table) SetNotify(f func(line string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify = f
}

// Start registers a new job and runs it on its own goroutine, returning
// the job id immediately. run receives the id so it can poll its own
// status. When run returns the job is removed, its queue unregistered, and
// a status line emitted, unless a signal already removed it.
func (t *Table) Start(ctx context.Context, command string, run func(ctx context.Context, id int) error) int {
	jobCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.jobs[id] = &record{command: command, status: Running, cancel: cancel, done: make(chan struct{})}
	t.mu.Unlock()
	t.bus.Register(id)
	logger.Printf("job %d started: %s", id, command)

	go func() {
		err := run(jobCtx, id)
		cancel()
		t.finish(id, err)
	}()
	return id
}

func (t *Table) finish(id int, err error) {
	t.mu.Lock()
	rec, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	notify := t.notify
	t.mu.Unlock()
	if !ok {
		// A KILL or TERM signal already tore the job down.
		return
	}
	t.bus.Unregister(id)
	close(rec.done)
	if notify == nil {
		return
	}
	if err != nil {
		notify(fmt.Sprintf("[Job %d] failed: %v", id, err))
	} else {
		notify(fmt.Sprintf("[Job %d] done: %s", id, rec.command))
	}
}

// Signal delivers a signal to a job. KILL and TERM cancel it and remove it
// from the table; STOP and CONT flip its status. Signal names are
// case-insensitive and may carry a leading dash.
func (t *Table) Signal(id int, signal string) error {
	sig := strings.ToUpper(strings.TrimPrefix(signal, "-"))
	switch sig {
	case "KILL", "TERM", "STOP", "CONT":
	default:
		return &errs.InvalidSignal{Signal: signal}
	}

	t.mu.Lock()
	rec, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return &errs.JobNotFound{ID: id}
	}
	switch sig {
	case "KILL", "TERM":
		delete(t.jobs, id)
		t.mu.Unlock()
		rec.cancel()
		t.bus.Unregister(id)
		close(rec.done)
		logger.Printf("job %d killed", id)
		return nil
	case "STOP":
		rec.status = Paused
	case "CONT":
		rec.status = Running
	}
	t.mu.Unlock()
	return nil
}

// Paused reports whether the job exists and is paused. The executor polls
// it between pipeline segments.
func (t *Table) Paused(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.jobs[id]
	return ok && rec.status == Paused
}

// Jobs lists the live jobs, ordered by id.
func (t *Table) Jobs() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Info, 0, len(t.jobs))
	for id, rec := range t.jobs {
		out = append(out, Info{ID: id, Command: rec.command, Status: rec.status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Done returns a channel closed when the job leaves the table, whether by
// finishing or by signal, or nil if the job is already gone.
func (t *Table) Done(id int) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.jobs[id]; ok {
		return rec.done
	}
	return nil
}
