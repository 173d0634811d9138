package task

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultScale is the story-point scale used when none is configured.
var DefaultScale = Scale{1, 2, 3, 5, 8}

// Scale is the set of story-point values a client may choose from.
// Zero is always accepted; it marks auto-generated items.
type Scale []int

// Allows reports whether p is zero or a member of the scale.
func (s Scale) Allows(p int) bool {
	if p == 0 {
		return true
	}
	return slices.Contains(s, p)
}

func (s Scale) check(p int) error {
	if p < 0 {
		return &ValidationError{Field: "storyPoints", Message: fmt.Sprintf("must not be negative, got %d", p)}
	}
	if !s.Allows(p) {
		return &ValidationError{Field: "storyPoints", Message: fmt.Sprintf("%d is not on the scale %v", p, []int(s))}
	}
	return nil
}

// ValidateNew checks the inputs of a create call.
func ValidateNew(name string, points int, scale Scale) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "taskName", Message: "is required"}
	}
	return scale.check(points)
}

// Fields is a partial update. Nil fields are left untouched.
//
// History and Subtasks are decoded so that clients sending a whole object
// do not fail, but Apply never copies them: the audit log only grows
// through status transitions and subtasks have their own operations.
type Fields struct {
	TaskName        *string        `json:"taskName,omitempty"`
	AssignedUserIDs *[]string      `json:"assignedUserIds,omitempty"`
	StoryPoints     *int           `json:"storyPoints,omitempty"`
	Status          *Status        `json:"status,omitempty"`
	History         []HistoryEntry `json:"history,omitempty"`
	Subtasks        []Subtask      `json:"subtasks,omitempty"`
}

// Validate checks every present field.
func (f Fields) Validate(scale Scale) error {
	if f.TaskName != nil && strings.TrimSpace(*f.TaskName) == "" {
		return &ValidationError{Field: "taskName", Message: "must not be empty"}
	}
	if f.StoryPoints != nil {
		if err := scale.check(*f.StoryPoints); err != nil {
			return err
		}
	}
	if f.Status != nil && !f.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", string(*f.Status))}
	}
	return nil
}

// Empty reports whether the update would change nothing.
func (f Fields) Empty() bool {
	return f.TaskName == nil && f.AssignedUserIDs == nil && f.StoryPoints == nil && f.Status == nil
}

// Apply merges f onto it. A status different from the current one appends
// exactly one history entry stamped now; the same status leaves history as is.
func (f Fields) Apply(it Item, now time.Time) Item {
	out := it
	if f.TaskName != nil {
		out.TaskName = strings.TrimSpace(*f.TaskName)
	}
	if f.AssignedUserIDs != nil {
		out.AssignedUserIDs = dedupe(*f.AssignedUserIDs)
	}
	if f.StoryPoints != nil {
		out.StoryPoints = *f.StoryPoints
	}
	if f.Status != nil && *f.Status != it.Status {
		out.Status = *f.Status
		out.History = AppendHistory(it.History, *f.Status, now)
	}
	return out
}
