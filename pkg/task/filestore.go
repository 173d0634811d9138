package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileStore keeps the collection in a single JSON document on disk.
//
// The document is {"revision": N, "tasks": [...]}. A bare JSON array (the
// format of older tasks.json files) is read as revision 0. Writes go to a
// temp file that is renamed over the document while a PID lock file is held,
// so concurrent processes sharing the file never interleave a save.
type FileStore struct {
	path string
	lock *fileLock
}

type fileDocument struct {
	Revision int64  `json:"revision"`
	Tasks    []Task `json:"tasks"`
}

// NewFileStore creates a FileStore at path. The directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: &fileLock{path: path + ".lock"}}
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty collection.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

// Save writes tasks if the document is still at rev.
func (s *FileStore) Save(ctx context.Context, tasks []Task, rev int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return 0, fmt.Errorf("create store dir: %w", err)
	}
	if err := s.lock.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.lock.release()

	cur, err := s.read()
	if err != nil {
		return 0, err
	}
	if cur.Revision != rev {
		return 0, ErrConflict
	}

	if tasks == nil {
		tasks = []Task{}
	}
	doc := fileDocument{Revision: rev + 1, Tasks: tasks}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal tasks: %w", err)
	}
	data = append(data, '\n')

	tmpPath := fmt.Sprintf("%s.tmp.%d", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return doc.Revision, nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Snapshot{Tasks: []Task{}}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Snapshot{Tasks: []Task{}}, nil
	}

	if data[0] == '[' {
		tasks, err := decodeLegacy(data)
		if err != nil {
			return nil, fmt.Errorf("parse legacy %s: %w", s.path, err)
		}
		return &Snapshot{Tasks: tasks}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return &Snapshot{Tasks: Clone(doc.Tasks), Revision: doc.Revision}, nil
}

// fileLock is an O_EXCL lock file holding the owner's PID. Locks left by
// dead processes are removed.
type fileLock struct {
	path string
}

var errLocked = errors.New("store is locked by another process")

const (
	lockPollInterval = 10 * time.Millisecond
	lockGarbageGrace = time.Second
)

func (l *fileLock) acquire(ctx context.Context) error {
	for {
		err := l.tryAcquire()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire %s: %w", l.path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *fileLock) tryAcquire() error {
	if err := l.create(); err == nil || !os.IsExist(err) {
		return err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return errLocked // released between create and read; poll again
		}
		return fmt.Errorf("read lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && processExists(pid) {
		return errLocked
	}
	if err != nil {
		// The owner may not have written its PID yet.
		if fi, statErr := os.Stat(l.path); statErr == nil && time.Since(fi.ModTime()) < lockGarbageGrace {
			return errLocked
		}
	}

	// Stale or garbage lock.
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale lock file: %w", err)
	}
	if err := l.create(); err != nil {
		if os.IsExist(err) {
			return errLocked
		}
		return err
	}
	return nil
}

func (l *fileLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		os.Remove(l.path)
		return fmt.Errorf("write lock file: %w", writeErr)
	}
	return nil
}

func (l *fileLock) release() {
	os.Remove(l.path)
}

func processExists(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
