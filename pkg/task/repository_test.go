package task

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTask(id string, points int, status Status, subs ...Subtask) Task {
	it := NewItem(id, "task "+id, nil, points)
	it.Status = status
	if subs == nil {
		subs = []Subtask{}
	}
	return Task{Item: it, Subtasks: subs}
}

func newSub(id string, points int, status Status) Subtask {
	it := NewItem(id, "sub "+id, nil, points)
	it.Status = status
	return Subtask{Item: it}
}

func TestInsertAndFind(t *testing.T) {
	tasks, err := Insert(nil, newTask("a", 3, NotStarted))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, i, err := Find(tasks, "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if i != 0 || got.ID != "a" || got.Subtasks == nil {
		t.Fatalf("find = %+v at %d", got, i)
	}
	if _, _, err := Find(tasks, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find missing: got %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	tasks, _ := Insert(nil, newTask("a", 3, NotStarted))
	if _, err := Insert(tasks, newTask("a", 1, NotStarted)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("got %v, want ErrDuplicateID", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("failed insert changed input: len %d", len(tasks))
	}
}

// TestUpdateStatusAppendsHistory verifies that a transition appends exactly
// one entry and repeating the same status appends nothing.
func TestUpdateStatusAppendsHistory(t *testing.T) {
	tasks := []Task{newTask("a", 3, NotStarted)}

	tasks, updated, err := Update(tasks, "a", Fields{Status: ptr(InProgress)}, t0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != InProgress || len(updated.History) != 1 {
		t.Fatalf("after first update: status %s, history %d", updated.Status, len(updated.History))
	}
	if last := updated.History[0]; last.Status != InProgress || !last.Timestamp.Equal(t0) {
		t.Fatalf("history[-1] = %+v", last)
	}

	tasks, updated, err = Update(tasks, "a", Fields{Status: ptr(InProgress)}, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("update same status: %v", err)
	}
	if len(updated.History) != 1 {
		t.Fatalf("same status grew history to %d", len(updated.History))
	}

	_, updated, _ = Update(tasks, "a", Fields{Status: ptr(Completed)}, t0.Add(2*time.Hour))
	if len(updated.History) != 2 || updated.History[1].Status != Completed {
		t.Fatalf("history = %+v", updated.History)
	}
}

// TestUpdateIgnoresClientHistory verifies that a client cannot replace the
// audit log by sending one.
func TestUpdateIgnoresClientHistory(t *testing.T) {
	tasks := []Task{newTask("a", 3, NotStarted)}
	forged := []HistoryEntry{{Status: Completed, Timestamp: t0}, {Status: Completed, Timestamp: t0}}

	_, updated, err := Update(tasks, "a", Fields{History: forged, TaskName: ptr("renamed")}, t0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.History) != 0 {
		t.Fatalf("client history applied: %+v", updated.History)
	}
	if updated.TaskName != "renamed" {
		t.Fatalf("name = %q", updated.TaskName)
	}

	_, updated, _ = Update(tasks, "a", Fields{History: forged, Status: ptr(InProgress)}, t0)
	if len(updated.History) != 1 || updated.History[0].Status != InProgress {
		t.Fatalf("history = %+v", updated.History)
	}
}

func TestUpdatePreservesAbsentFields(t *testing.T) {
	orig := newTask("a", 5, InProgress, newSub("s1", 2, NotStarted))
	orig.AssignedUserIDs = []string{"1", "2"}
	tasks := []Task{orig}

	_, updated, err := Update(tasks, "a", Fields{StoryPoints: ptr(8)}, t0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StoryPoints != 8 {
		t.Fatalf("points = %d", updated.StoryPoints)
	}
	if updated.TaskName != orig.TaskName || updated.Status != InProgress || len(updated.AssignedUserIDs) != 2 || len(updated.Subtasks) != 1 {
		t.Fatalf("absent fields not preserved: %+v", updated)
	}
}

func TestUpdateDedupesAssignees(t *testing.T) {
	tasks := []Task{newTask("a", 1, NotStarted)}
	_, updated, _ := Update(tasks, "a", Fields{AssignedUserIDs: &[]string{"2", "1", "2", " ", "1"}}, t0)
	want := []string{"2", "1"}
	if len(updated.AssignedUserIDs) != len(want) {
		t.Fatalf("assignees = %v, want %v", updated.AssignedUserIDs, want)
	}
	for i := range want {
		if updated.AssignedUserIDs[i] != want[i] {
			t.Fatalf("assignees = %v, want %v", updated.AssignedUserIDs, want)
		}
	}
}

// TestUpdateLeavesInputUntouched verifies the snapshot passed in is not
// mutated, including shared history backing arrays.
func TestUpdateLeavesInputUntouched(t *testing.T) {
	orig := newTask("a", 1, NotStarted)
	orig.History = make([]HistoryEntry, 0, 4)
	tasks := []Task{orig}

	next, _, _ := Update(tasks, "a", Fields{Status: ptr(Completed), TaskName: ptr("x")}, t0)
	if tasks[0].Status != NotStarted || tasks[0].TaskName != "task a" || len(tasks[0].History) != 0 {
		t.Fatalf("input mutated: %+v", tasks[0])
	}
	if next[0].Status != Completed {
		t.Fatalf("next = %+v", next[0])
	}
	// Appending to the old history must not be visible in the new one.
	_ = append(tasks[0].History, HistoryEntry{Status: InProgress})
	if next[0].History[0].Status != Completed {
		t.Fatalf("history shares backing array with input")
	}
}

func TestUpdateNotFound(t *testing.T) {
	if _, _, err := Update(nil, "nope", Fields{}, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// TestDeleteCascades verifies a deleted task takes all its subtasks with it.
func TestDeleteCascades(t *testing.T) {
	tasks := []Task{
		newTask("a", 1, NotStarted, newSub("s1", 1, NotStarted), newSub("s2", 2, NotStarted), newSub("s3", 3, NotStarted)),
		newTask("b", 1, NotStarted),
	}
	next, err := Delete(tasks, "a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(next) != 1 || next[0].ID != "b" {
		t.Fatalf("after delete: %+v", next)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if _, _, err := FindSubtask(next, "a", id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("subtask %s still reachable: %v", id, err)
		}
	}
	if len(tasks) != 2 {
		t.Fatalf("input mutated")
	}
}

// TestDeleteMissingTwice verifies deleting an absent id is always NotFound.
func TestDeleteMissingTwice(t *testing.T) {
	tasks := []Task{newTask("a", 1, NotStarted)}
	for i := 0; i < 2; i++ {
		if _, err := Delete(tasks, "zzz"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("attempt %d: got %v, want ErrNotFound", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := DeleteSubtask(tasks, "a", "zzz"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("subtask attempt %d: got %v, want ErrNotFound", i, err)
		}
	}
}

func TestSubtaskLifecycle(t *testing.T) {
	tasks := []Task{newTask("a", 1, NotStarted), newTask("b", 1, NotStarted)}

	tasks, err := InsertSubtask(tasks, "a", newSub("s1", 2, NotStarted))
	if err != nil {
		t.Fatalf("insert subtask: %v", err)
	}
	// Subtask ids are scoped to their parent.
	tasks, err = InsertSubtask(tasks, "b", newSub("s1", 3, NotStarted))
	if err != nil {
		t.Fatalf("insert same id under other parent: %v", err)
	}
	if _, err := InsertSubtask(tasks, "a", newSub("s1", 1, NotStarted)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate subtask: got %v", err)
	}
	if _, err := InsertSubtask(tasks, "missing", newSub("s9", 1, NotStarted)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing parent: got %v", err)
	}

	tasks, st, err := UpdateSubtask(tasks, "a", "s1", Fields{Status: ptr(Completed)}, t0)
	if err != nil {
		t.Fatalf("update subtask: %v", err)
	}
	if st.Status != Completed || len(st.History) != 1 {
		t.Fatalf("subtask = %+v", st)
	}
	_, other, _ := FindSubtask(tasks, "b", "s1")
	if other.Status != NotStarted {
		t.Fatalf("update leaked into other parent: %+v", other)
	}

	if _, _, err := UpdateSubtask(tasks, "a", "nope", Fields{}, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing subtask: got %v", err)
	}

	tasks, err = DeleteSubtask(tasks, "a", "s1")
	if err != nil {
		t.Fatalf("delete subtask: %v", err)
	}
	if _, _, err := FindSubtask(tasks, "a", "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted subtask still found: %v", err)
	}
}
