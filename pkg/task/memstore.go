package task

import (
	"context"
	"slices"
	"sync"
)

// MemStore keeps the collection in process memory. It is used for tests and
// for the "memory" store driver.
type MemStore struct {
	mu    sync.Mutex
	tasks []Task
	rev   int64
}

// NewMemStore creates a MemStore holding a copy of tasks.
func NewMemStore(tasks ...Task) *MemStore {
	s := &MemStore{tasks: Clone(tasks)}
	if len(tasks) > 0 {
		s.rev = 1
	}
	return s
}

// Load returns a deep copy of the stored collection.
func (s *MemStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{Tasks: Clone(s.tasks), Revision: s.rev}, nil
}

// Save replaces the collection if rev is current.
func (s *MemStore) Save(ctx context.Context, tasks []Task, rev int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rev != s.rev {
		return 0, ErrConflict
	}
	s.tasks = Clone(tasks)
	s.rev++
	return s.rev, nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// Clone deep-copies a collection.
func Clone(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = Task{Item: cloneItem(t.Item), Subtasks: make([]Subtask, len(t.Subtasks))}
		for j, st := range t.Subtasks {
			out[i].Subtasks[j] = Subtask{Item: cloneItem(st.Item)}
		}
	}
	return out
}

func cloneItem(it Item) Item {
	it.AssignedUserIDs = slices.Clone(it.AssignedUserIDs)
	it.History = slices.Clone(it.History)
	if it.AssignedUserIDs == nil {
		it.AssignedUserIDs = []string{}
	}
	if it.History == nil {
		it.History = []HistoryEntry{}
	}
	return it
}
