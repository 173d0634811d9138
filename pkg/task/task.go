package task

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a task or subtask.
type Status string

const (
	NotStarted Status = "Not Started"
	InProgress Status = "In Progress"
	Completed  Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{NotStarted, InProgress, Completed}

// ParseStatus accepts the wire spelling ("In Progress") as well as the
// compact one ("InProgress"), case-insensitively.
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch key {
	case "notstarted":
		return NotStarted, nil
	case "inprogress":
		return InProgress, nil
	case "completed":
		return Completed, nil
	}
	return "", &ValidationError{Field: "status", Message: "unknown status " + strconv.Quote(s)}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case NotStarted, InProgress, Completed:
		return true
	}
	return false
}

// HistoryEntry records one status transition.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Item holds the fields shared by tasks and subtasks.
type Item struct {
	ID              string         `json:"id"`
	TaskName        string         `json:"taskName"`
	AssignedUserIDs []string       `json:"assignedUserIds"`
	StoryPoints     int            `json:"storyPoints"`
	Status          Status         `json:"status"`
	History         []HistoryEntry `json:"history"`
}

// AssignedTo reports whether userID is in the item's assignment set.
func (it Item) AssignedTo(userID string) bool {
	for _, id := range it.AssignedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Subtask is a one-level-nested work item owned by a Task.
type Subtask struct {
	Item
}

// Task is a top-level work item. Subtasks are owned exclusively by it.
type Task struct {
	Item
	Subtasks []Subtask `json:"subtasks"`
}

// NewItem builds a fresh item in the NotStarted state with an empty history.
func NewItem(id, name string, assignees []string, points int) Item {
	return Item{
		ID:              id,
		TaskName:        strings.TrimSpace(name),
		AssignedUserIDs: dedupe(assignees),
		StoryPoints:     points,
		Status:          NotStarted,
		History:         []HistoryEntry{},
	}
}

// Snapshot is a loaded collection together with the revision it was read at.
type Snapshot struct {
	Tasks    []Task
	Revision int64
}

// Store is the contract for whole-collection persistence.
//
// Load returns an empty collection at revision 0 when nothing has been
// stored yet. Save replaces the stored collection only if the stored
// revision still equals rev, returning the new revision; otherwise it
// fails with ErrConflict.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, tasks []Task, rev int64) (int64, error)
	Close() error
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// UnmarshalText normalizes any accepted spelling to the wire form.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
