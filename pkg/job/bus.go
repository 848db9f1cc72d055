package job

import (
	"sync"

	"src.oopis.dev/pkg/errs"
)

// Bus carries messages to background jobs. Each registered job has one
// queue; posting to an unregistered id fails. Within one producer the
// queue is FIFO.
type Bus struct {
	mu     sync.Mutex
	queues map[int][]string
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{queues: make(map[int][]string)}
}

// Register creates an empty queue for the job id.
func (b *Bus) Register(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[id]; !ok {
		b.queues[id] = nil
	}
}

// Unregister drops the job's queue and anything still in it.
func (b *Bus) Unregister(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, id)
}

// Post appends a message to the job's queue.
func (b *Bus) Post(id int, msg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[id]; !ok {
		return &errs.JobNotFound{ID: id}
	}
	b.queues[id] = append(b.queues[id], msg)
	return nil
}

// Drain returns the job's queued messages and empties the queue.
func (b *Bus) Drain(id int) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs, ok := b.queues[id]
	if !ok {
		return nil, &errs.JobNotFound{ID: id}
	}
	b.queues[id] = nil
	return msgs, nil
}
