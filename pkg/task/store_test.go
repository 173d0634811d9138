package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// testStore runs the Store contract against s, which must start empty.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if snap.Revision != 0 || snap.Tasks == nil || len(snap.Tasks) != 0 {
		t.Fatalf("empty load = %+v", snap)
	}

	tk := newTask("a", 3, NotStarted, newSub("s1", 2, NotStarted))
	tk.AssignedUserIDs = []string{"1"}
	tasks, _, _ := Update([]Task{tk}, "a", Fields{Status: ptr(InProgress)}, t0)

	rev, err := s.Save(ctx, tasks, snap.Revision)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rev <= snap.Revision {
		t.Fatalf("revision did not advance: %d", rev)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Revision != rev {
		t.Fatalf("loaded revision %d, saved %d", loaded.Revision, rev)
	}
	if !reflect.DeepEqual(loaded.Tasks, tasks) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded.Tasks, tasks)
	}

	// Saving an untouched load changes nothing but the revision.
	rev2, err := s.Save(ctx, loaded.Tasks, loaded.Revision)
	if err != nil {
		t.Fatalf("save unchanged: %v", err)
	}
	again, _ := s.Load(ctx)
	if !reflect.DeepEqual(again.Tasks, loaded.Tasks) || again.Revision != rev2 {
		t.Fatalf("save(load()) changed content")
	}

	// A stale revision is rejected and leaves the stored collection alone.
	if _, err := s.Save(ctx, nil, loaded.Revision); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save: got %v, want ErrConflict", err)
	}
	if _, err := s.Save(ctx, nil, 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale initial save: got %v, want ErrConflict", err)
	}
	after, _ := s.Load(ctx)
	if len(after.Tasks) != 1 {
		t.Fatalf("rejected save modified store: %+v", after.Tasks)
	}
}

// testStoreRace checks that of several writers holding the same revision
// exactly one wins.
func testStoreRace(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(ctx, []Task{newTask(string(rune('a'+i)), 1, NotStarted)}, snap.Revision)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("writer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestMemStore(t *testing.T) {
	testStore(t, NewMemStore())
}

func TestMemStoreRace(t *testing.T) {
	testStoreRace(t, NewMemStore())
}

func TestMemStoreIsolation(t *testing.T) {
	s := NewMemStore(newTask("a", 1, NotStarted))
	snap, _ := s.Load(context.Background())
	snap.Tasks[0].TaskName = "mutated"
	again, _ := s.Load(context.Background())
	if again.Tasks[0].TaskName == "mutated" {
		t.Fatal("Load returned shared state")
	}
}

func TestFileStore(t *testing.T) {
	testStore(t, NewFileStore(filepath.Join(t.TempDir(), "data", "tasks.json")))
}

func TestFileStoreRace(t *testing.T) {
	testStoreRace(t, NewFileStore(filepath.Join(t.TempDir(), "tasks.json")))
}

// TestFileStoreLegacyArray verifies a bare-array tasks.json as the old
// dashboard wrote it loads at revision 0 and is upgraded on save.
func TestFileStoreLegacyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	legacy := `[
  {
    "id": 1700000000000,
    "taskName": "Build login page",
    "assignedUserIds": [1, 3, 1],
    "storyPoints": 5,
    "status": "In Progress",
    "history": [{"status": "In Progress", "timestamp": "10/16/2026, 10:23:00\u202fAM"}],
    "subtasks": [
      {
        "id": 1700000000500,
        "taskName": "Form",
        "assignedUserIds": [2],
        "storyPoints": 2,
        "status": "Completed",
        "history": [{"status": "Completed", "timestamp": "10/16/2026, 2:05:09 PM"}]
      }
    ]
  },
  {
    "id": 1700000000001,
    "task_name": "Old style",
    "status": "Not Started"
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Revision != 0 || len(snap.Tasks) != 2 {
		t.Fatalf("legacy load = %+v", snap)
	}

	first := snap.Tasks[0]
	if first.ID != "1700000000000" || first.Status != InProgress {
		t.Fatalf("first task = %+v", first.Item)
	}
	if !reflect.DeepEqual(first.AssignedUserIDs, []string{"1", "3"}) {
		t.Fatalf("assignees = %v", first.AssignedUserIDs)
	}
	want := time.Date(2026, 10, 16, 10, 23, 0, 0, time.Local)
	if len(first.History) != 1 || !first.History[0].Timestamp.Equal(want) {
		t.Fatalf("history = %+v, want timestamp %v", first.History, want)
	}
	if len(first.Subtasks) != 1 {
		t.Fatalf("subtasks = %+v", first.Subtasks)
	}
	st := first.Subtasks[0]
	if st.ID != "1700000000500" || st.Status != Completed || st.AssignedUserIDs[0] != "2" {
		t.Fatalf("subtask = %+v", st.Item)
	}
	if got := st.History[0].Timestamp; !got.Equal(time.Date(2026, 10, 16, 14, 5, 9, 0, time.Local)) {
		t.Fatalf("subtask timestamp = %v", got)
	}

	old := snap.Tasks[1]
	if old.TaskName != "Old style" || old.Status != NotStarted || len(old.AssignedUserIDs) != 0 || old.Subtasks == nil {
		t.Fatalf("old-style task = %+v", old)
	}
	if _, _, err := Find(snap.Tasks, "1700000000001"); err != nil {
		t.Fatalf("find by numeric id: %v", err)
	}

	rev, err := s.Save(context.Background(), snap.Tasks, snap.Revision)
	if err != nil || rev != 1 {
		t.Fatalf("save: rev %d, %v", rev, err)
	}
	data, _ := os.ReadFile(path)
	if data[0] != '{' {
		t.Fatalf("document not upgraded: %s", data[:20])
	}
	reloaded, err := s.Load(context.Background())
	if err != nil || !reloaded.Tasks[0].History[0].Timestamp.Equal(want) {
		t.Fatalf("reload: %+v, %v", reloaded, err)
	}
}

func TestFileStoreLegacyRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad timestamp", `[{"id": 1, "taskName": "a", "status": "Not Started", "history": [{"status": "Completed", "timestamp": "yesterday"}]}]`, "history timestamp"},
		{"bad status", `[{"id": 1, "taskName": "a", "status": "Done"}]`, "unknown status"},
		{"bad id", `[{"id": true, "taskName": "a"}]`, "neither a string nor a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			os.WriteFile(path, []byte(tt.doc), 0644)
			_, err := NewFileStore(path).Load(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLegacyStatusFromHistory(t *testing.T) {
	tasks, err := decodeLegacy([]byte(`[{"id": 7, "taskName": "a", "history": [
		{"status": "In Progress", "timestamp": "2026-01-02T10:00:00Z"},
		{"status": "Completed", "timestamp": "16/10/2026, 14:05:09"}]}]`))
	if err != nil {
		t.Fatal(err)
	}
	if tasks[0].Status != Completed {
		t.Fatalf("status = %q, want Completed", tasks[0].Status)
	}
	if got := tasks[0].History[1].Timestamp; !got.Equal(time.Date(2026, 10, 16, 14, 5, 9, 0, time.Local)) {
		t.Fatalf("day-first timestamp = %v", got)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatal("loading corrupt document succeeded")
	}
}

// TestFileStoreStaleLock verifies a lock left by a dead process is reclaimed.
func TestFileStoreStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path+".lock", []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path+".lock", old, old); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Save(context.Background(), nil, 0); err != nil {
		t.Fatalf("save with stale lock: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

// TestFileStoreHeldLock verifies Save waits for a live lock and gives up
// when the context ends.
func TestFileStoreHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	lock := &fileLock{path: path + ".lock"}
	if err := lock.acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer lock.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileStore(path).Save(ctx, nil, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}
