package task

import (
	"fmt"
	"slices"
	"time"
)

// The functions below treat a collection as an immutable snapshot: each one
// returns a fresh slice and leaves its input untouched.

// Find returns the task with the given id and its position.
func Find(tasks []Task, id string) (Task, int, error) {
	for i := range tasks {
		if tasks[i].ID == id {
			return tasks[i], i, nil
		}
	}
	return Task{}, -1, taskNotFound(id)
}

// Insert appends t to the collection.
func Insert(tasks []Task, t Task) ([]Task, error) {
	if _, _, err := Find(tasks, t.ID); err == nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, ErrDuplicateID)
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	out := make([]Task, len(tasks), len(tasks)+1)
	copy(out, tasks)
	return append(out, t), nil
}

// Update merges f onto the task with the given id.
func Update(tasks []Task, id string, f Fields, now time.Time) ([]Task, Task, error) {
	cur, i, err := Find(tasks, id)
	if err != nil {
		return nil, Task{}, err
	}
	next := Task{Item: f.Apply(cur.Item, now), Subtasks: cur.Subtasks}
	return replaceAt(tasks, i, next), next, nil
}

// Delete removes the task with the given id together with its subtasks.
func Delete(tasks []Task, id string) ([]Task, error) {
	_, i, err := Find(tasks, id)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	return append(out, tasks[i+1:]...), nil
}

// FindSubtask looks up the parent first, then the subtask inside it.
func FindSubtask(tasks []Task, taskID, subtaskID string) (Task, Subtask, error) {
	parent, _, err := Find(tasks, taskID)
	if err != nil {
		return Task{}, Subtask{}, err
	}
	j := subtaskIndex(parent, subtaskID)
	if j < 0 {
		return Task{}, Subtask{}, subtaskNotFound(taskID, subtaskID)
	}
	return parent, parent.Subtasks[j], nil
}

// InsertSubtask appends st to the subtasks of the given parent.
func InsertSubtask(tasks []Task, taskID string, st Subtask) ([]Task, error) {
	parent, i, err := Find(tasks, taskID)
	if err != nil {
		return nil, err
	}
	if subtaskIndex(parent, st.ID) >= 0 {
		return nil, fmt.Errorf("subtask %s of task %s: %w", st.ID, taskID, ErrDuplicateID)
	}
	subs := make([]Subtask, len(parent.Subtasks), len(parent.Subtasks)+1)
	copy(subs, parent.Subtasks)
	parent.Subtasks = append(subs, st)
	return replaceAt(tasks, i, parent), nil
}

// UpdateSubtask merges f onto a subtask, with the same history rule as Update.
func UpdateSubtask(tasks []Task, taskID, subtaskID string, f Fields, now time.Time) ([]Task, Subtask, error) {
	parent, i, err := Find(tasks, taskID)
	if err != nil {
		return nil, Subtask{}, err
	}
	j := subtaskIndex(parent, subtaskID)
	if j < 0 {
		return nil, Subtask{}, subtaskNotFound(taskID, subtaskID)
	}
	next := Subtask{Item: f.Apply(parent.Subtasks[j].Item, now)}
	subs := slices.Clone(parent.Subtasks)
	subs[j] = next
	parent.Subtasks = subs
	return replaceAt(tasks, i, parent), next, nil
}

// DeleteSubtask removes one subtask from its parent.
func DeleteSubtask(tasks []Task, taskID, subtaskID string) ([]Task, error) {
	parent, i, err := Find(tasks, taskID)
	if err != nil {
		return nil, err
	}
	j := subtaskIndex(parent, subtaskID)
	if j < 0 {
		return nil, subtaskNotFound(taskID, subtaskID)
	}
	subs := make([]Subtask, 0, len(parent.Subtasks)-1)
	subs = append(subs, parent.Subtasks[:j]...)
	parent.Subtasks = append(subs, parent.Subtasks[j+1:]...)
	return replaceAt(tasks, i, parent), nil
}

func subtaskIndex(t Task, id string) int {
	for j := range t.Subtasks {
		if t.Subtasks[j].ID == id {
			return j
		}
	}
	return -1
}

func replaceAt(tasks []Task, i int, t Task) []Task {
	out := slices.Clone(tasks)
	out[i] = t
	return out
}
