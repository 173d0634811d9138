// Package tracker implements the task service: every mutating call loads the
// whole collection from the store, applies one repository operation and saves
// the result back exactly once.
//
// Calls are serialized by a mutex inside the process. Stores are revision
// stamped, so a save racing with another process fails with task.ErrConflict
// and the cycle is replayed from a fresh load, up to MaxRetries times.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskboard/pkg/suggest"
	"taskboard/pkg/task"
	"taskboard/pkg/user"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultStoreTimeout   = 5 * time.Second
	DefaultSuggestTimeout = time.Minute
	DefaultMaxRetries     = 3
	DefaultMaxSuggestions = 8
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Scale          task.Scale
	StoreTimeout   time.Duration
	SuggestTimeout time.Duration
	MaxRetries     int
	MaxSuggestions int
	Logger         *log.Logger
	Clock          func() time.Time
	NewID          func() string
}

// Service is the task service.
type Service struct {
	store     task.Store
	users     user.Directory
	suggester suggest.Suggester

	scale          task.Scale
	storeTimeout   time.Duration
	suggestTimeout time.Duration
	maxRetries     int
	maxSuggestions int
	log            *log.Logger
	now            func() time.Time
	newID          func() string
	feed           *Feed

	// mu serializes load→mutate→save cycles.
	mu sync.Mutex
}

// New creates a Service. suggester may be nil, which disables suggestions.
func New(store task.Store, users user.Directory, suggester suggest.Suggester, opts Options) *Service {
	s := &Service{
		store:          store,
		users:          users,
		suggester:      suggester,
		scale:          opts.Scale,
		storeTimeout:   opts.StoreTimeout,
		suggestTimeout: opts.SuggestTimeout,
		maxRetries:     opts.MaxRetries,
		maxSuggestions: opts.MaxSuggestions,
		log:            opts.Logger,
		now:            opts.Clock,
		newID:          opts.NewID,
		feed:           NewFeed(),
	}
	if len(s.scale) == 0 {
		s.scale = task.DefaultScale
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = DefaultStoreTimeout
	}
	if s.suggestTimeout <= 0 {
		s.suggestTimeout = DefaultSuggestTimeout
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.maxSuggestions <= 0 {
		s.maxSuggestions = DefaultMaxSuggestions
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if s.users == nil {
		s.users = user.Static(nil)
	}
	return s
}

// Scale returns the story-point scale in use.
func (s *Service) Scale() task.Scale {
	return s.scale
}

// Changes returns the feed of committed mutations.
func (s *Service) Changes() *Feed {
	return s.feed
}

// ListTasks returns the whole collection.
func (s *Service) ListTasks(ctx context.Context) ([]task.Task, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Tasks, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, id string) (task.Task, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return task.Task{}, err
	}
	t, _, err := task.Find(snap.Tasks, id)
	return t, err
}

// GetSubtask returns one subtask.
func (s *Service) GetSubtask(ctx context.Context, taskID, subtaskID string) (task.Subtask, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return task.Subtask{}, err
	}
	_, st, err := task.FindSubtask(snap.Tasks, taskID, subtaskID)
	return st, err
}

// CreateTask adds a NotStarted task with an empty history and no subtasks.
func (s *Service) CreateTask(ctx context.Context, name string, assignees []string, points int) (task.Task, error) {
	if err := task.ValidateNew(name, points, s.scale); err != nil {
		return task.Task{}, err
	}
	t := task.Task{Item: task.NewItem(s.newID(), name, assignees, points), Subtasks: []task.Subtask{}}
	err := s.mutate(ctx, Change{Op: TaskCreated, TaskID: t.ID}, func(tasks []task.Task, _ time.Time) ([]task.Task, error) {
		return task.Insert(tasks, t)
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// UpdateTask merges f onto a task. A status change is recorded in its history.
func (s *Service) UpdateTask(ctx context.Context, id string, f task.Fields) (task.Task, error) {
	if err := f.Validate(s.scale); err != nil {
		return task.Task{}, err
	}
	var updated task.Task
	err := s.mutate(ctx, Change{Op: TaskUpdated, TaskID: id}, func(tasks []task.Task, now time.Time) ([]task.Task, error) {
		next, t, err := task.Update(tasks, id, f, now)
		updated = t
		return next, err
	})
	if err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task and all of its subtasks.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.mutate(ctx, Change{Op: TaskDeleted, TaskID: id}, func(tasks []task.Task, _ time.Time) ([]task.Task, error) {
		return task.Delete(tasks, id)
	})
}

// CreateSubtask adds a NotStarted subtask under taskID.
func (s *Service) CreateSubtask(ctx context.Context, taskID, name string, assignees []string, points int) (task.Subtask, error) {
	if err := task.ValidateNew(name, points, s.scale); err != nil {
		return task.Subtask{}, err
	}
	st := task.Subtask{Item: task.NewItem(s.newID(), name, assignees, points)}
	err := s.mutate(ctx, Change{Op: SubtaskCreated, TaskID: taskID, SubtaskID: st.ID}, func(tasks []task.Task, _ time.Time) ([]task.Task, error) {
		return task.InsertSubtask(tasks, taskID, st)
	})
	if err != nil {
		return task.Subtask{}, err
	}
	return st, nil
}

// UpdateSubtask merges f onto a subtask. A status change is recorded in its history.
func (s *Service) UpdateSubtask(ctx context.Context, taskID, subtaskID string, f task.Fields) (task.Subtask, error) {
	if err := f.Validate(s.scale); err != nil {
		return task.Subtask{}, err
	}
	var updated task.Subtask
	err := s.mutate(ctx, Change{Op: SubtaskUpdated, TaskID: taskID, SubtaskID: subtaskID}, func(tasks []task.Task, now time.Time) ([]task.Task, error) {
		next, st, err := task.UpdateSubtask(tasks, taskID, subtaskID, f, now)
		updated = st
		return next, err
	})
	if err != nil {
		return task.Subtask{}, err
	}
	return updated, nil
}

// DeleteSubtask removes one subtask.
func (s *Service) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return s.mutate(ctx, Change{Op: SubtaskDeleted, TaskID: taskID, SubtaskID: subtaskID}, func(tasks []task.Task, _ time.Time) ([]task.Task, error) {
		return task.DeleteSubtask(tasks, taskID, subtaskID)
	})
}

// mutate runs one load→apply→save cycle under the service mutex, replaying
// it on revision conflicts. apply must be a pure function of its input.
// On success c is published with the committed revision.
func (s *Service) mutate(ctx context.Context, c Change, apply func([]task.Task, time.Time) ([]task.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := s.load(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		next, err := apply(snap.Tasks, now)
		if err != nil {
			return err
		}
		rev, err := s.save(ctx, next, snap.Revision)
		if err == nil {
			c.Revision, c.At = rev, now
			s.log.Debug(c.Op, "task_id", c.TaskID, "subtask_id", c.SubtaskID, "revision", rev)
			s.feed.Publish(c)
			return nil
		}
		if !errors.Is(err, task.ErrConflict) {
			s.log.Error(c.Op+" failed", "task_id", c.TaskID, "err", err)
			return err
		}
		if attempt >= s.maxRetries {
			s.log.Warn(c.Op+" gave up after conflicts", "task_id", c.TaskID, "attempts", attempt+1)
			return fmt.Errorf("%s %s: %w", c.Op, c.TaskID, err)
		}
		s.log.Warn("revision conflict, retrying", "op", c.Op, "task_id", c.TaskID, "revision", snap.Revision, "attempt", attempt+1)
	}
}

func (s *Service) load(ctx context.Context) (*task.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w: %w", task.ErrStoreUnavailable, err)
	}
	return snap, nil
}

func (s *Service) save(ctx context.Context, tasks []task.Task, rev int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	next, err := s.store.Save(ctx, tasks, rev)
	if err != nil {
		if errors.Is(err, task.ErrConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("save tasks: %w: %w", task.ErrStoreUnavailable, err)
	}
	return next, nil
}
