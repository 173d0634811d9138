package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bare-array tasks.json files predate the revisioned document. They carry
// Date.now() numeric ids, numeric user ids, locale-formatted history
// timestamps and, from the oldest writers, task_name instead of taskName.
type legacyItem struct {
	ID              legacyID        `json:"id"`
	TaskName        string          `json:"taskName"`
	SnakeName       string          `json:"task_name"`
	AssignedUserIDs []legacyID      `json:"assignedUserIds"`
	StoryPoints     int             `json:"storyPoints"`
	Status          string          `json:"status"`
	History         []legacyHistory `json:"history"`
}

type legacyTask struct {
	legacyItem
	Subtasks []legacyItem `json:"subtasks"`
}

type legacyHistory struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// legacyID accepts a JSON string or number.
type legacyID string

func (id *legacyID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = legacyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s is neither a string nor a number", b)
	}
	*id = legacyID(n.String())
	return nil
}

// Layouts produced by toLocaleString in the locales the old dashboard ran in.
var legacyTimeLayouts = []string{
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 15:04:05",
	"2006-01-02 15:04:05",
}

// parseLegacyTime reads an RFC 3339 or locale-formatted timestamp. Locale
// timestamps carry no zone and are read in the local zone.
func parseLegacyTime(s string) (time.Time, error) {
	s = strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("history timestamp %q is not RFC 3339 or a known locale format", s)
}

// decodeLegacy parses a bare-array collection into the current model.
func decodeLegacy(data []byte) ([]Task, error) {
	var raw []legacyTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(raw))
	for _, lt := range raw {
		it, err := lt.legacyItem.item()
		if err != nil {
			return nil, err
		}
		t := Task{Item: it, Subtasks: make([]Subtask, 0, len(lt.Subtasks))}
		for _, ls := range lt.Subtasks {
			sit, err := ls.item()
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", t.ID, err)
			}
			t.Subtasks = append(t.Subtasks, Subtask{Item: sit})
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (l legacyItem) item() (Item, error) {
	it := Item{
		ID:          string(l.ID),
		TaskName:    l.TaskName,
		StoryPoints: l.StoryPoints,
		History:     make([]HistoryEntry, 0, len(l.History)),
	}
	if it.TaskName == "" {
		it.TaskName = l.SnakeName
	}
	ids := make([]string, len(l.AssignedUserIDs))
	for i, id := range l.AssignedUserIDs {
		ids[i] = string(id)
	}
	it.AssignedUserIDs = dedupe(ids)

	for i, h := range l.History {
		st, err := ParseStatus(h.Status)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: history entry %d: %w", it.ID, i, err)
		}
		ts, err := parseLegacyTime(h.Timestamp)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: history entry %d: %w", it.ID, i, err)
		}
		it.History = append(it.History, HistoryEntry{Status: st, Timestamp: ts})
	}

	switch {
	case l.Status != "":
		st, err := ParseStatus(l.Status)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: %w", it.ID, err)
		}
		it.Status = st
	default:
		it.Status = NotStarted
		if st, ok := LastStatus(it.History); ok {
			it.Status = st
		}
	}
	return it, nil
}
