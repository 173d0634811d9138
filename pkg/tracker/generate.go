package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/pkg/suggest"
	"taskboard/pkg/task"
)

// ErrSuggestionsDisabled is returned when no suggestion service is configured.
var ErrSuggestionsDisabled = fmt.Errorf("%w: no suggestion service configured", suggest.ErrUpstream)

// SuggestSubtasks asks the suggestion service to break taskName down. The
// whole batch is validated; at most MaxSuggestions names are returned.
func (s *Service) SuggestSubtasks(ctx context.Context, taskName string) ([]string, error) {
	name := strings.TrimSpace(taskName)
	if name == "" {
		return nil, &task.ValidationError{Field: "taskName", Message: "is required"}
	}
	if s.suggester == nil {
		return nil, ErrSuggestionsDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.suggestTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.suggester.Suggest(ctx, name)
	if err != nil {
		s.log.Error("suggest failed", "task_name", name, "err", err)
		if !errors.Is(err, suggest.ErrUpstream) {
			err = fmt.Errorf("%w: %w", suggest.ErrUpstream, err)
		}
		return nil, err
	}
	names, err := suggest.Parse(raw)
	if err != nil {
		s.log.Warn("rejected suggestion batch", "task_name", name, "err", err)
		return nil, err
	}
	if len(names) > s.maxSuggestions {
		s.log.Warn("truncating suggestions", "task_name", name, "got", len(names), "max", s.maxSuggestions)
		names = names[:s.maxSuggestions]
	}
	s.log.Debug("suggested subtasks", "task_name", name, "count", len(names), "duration", time.Since(start))
	return names, nil
}

// GenerateTask creates a 0-point task named taskName with one 0-point
// subtask per suggestion. Nothing is created if the suggestion call fails
// or its batch is malformed.
func (s *Service) GenerateTask(ctx context.Context, taskName string) (task.Task, error) {
	names, err := s.SuggestSubtasks(ctx, taskName)
	if err != nil {
		return task.Task{}, err
	}

	t := task.Task{Item: task.NewItem(s.newID(), taskName, nil, 0)}
	t.Subtasks = make([]task.Subtask, 0, len(names))
	for _, n := range names {
		t.Subtasks = append(t.Subtasks, task.Subtask{Item: task.NewItem(s.newID(), n, nil, 0)})
	}

	err = s.mutate(ctx, Change{Op: TaskGenerated, TaskID: t.ID}, func(tasks []task.Task, _ time.Time) ([]task.Task, error) {
		return task.Insert(tasks, t)
	})
	if err != nil {
		return task.Task{}, err
	}
	s.log.Info("generated task", "task_id", t.ID, "subtasks", len(t.Subtasks))
	return t, nil
}
