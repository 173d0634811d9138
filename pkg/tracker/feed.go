package tracker

import (
	"sync"
	"time"
)

// Change kinds published on the feed.
const (
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskDeleted    = "task.deleted"
	TaskGenerated  = "task.generated"
	SubtaskCreated = "subtask.created"
	SubtaskUpdated = "subtask.updated"
	SubtaskDeleted = "subtask.deleted"
)

// Change describes one committed mutation.
type Change struct {
	Op        string    `json:"op"`
	TaskID    string    `json:"taskId"`
	SubtaskID string    `json:"subtaskId,omitempty"`
	Revision  int64     `json:"revision"`
	At        time.Time `json:"at"`
}

// Feed fans committed changes out to in-process subscribers.
type Feed struct {
	mu   sync.RWMutex
	subs map[chan Change]struct{}
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Change]struct{})}
}

// Publish sends c to every subscriber without blocking.
func (f *Feed) Publish(c Change) {
	f.mu.RLock()
	for ch := range f.subs {
		select {
		case ch <- c:
		default:
			// subscriber is behind; drop rather than stall the writer
		}
	}
	f.mu.RUnlock()
}

// Subscribe returns a buffered channel that receives every later change.
func (f *Feed) Subscribe() chan Change {
	ch := make(chan Change, 64)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Feed) Unsubscribe(ch chan Change) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
	close(ch)
}
