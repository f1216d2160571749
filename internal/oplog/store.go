package oplog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"tidyup/internal/ops"
)

// ErrLocked reports that another process holds the operation log lock.
var ErrLocked = fmt.Errorf("%w: operation log is locked by another tidyup process", ops.ErrBusy)

// Store reads and writes the operation log at a fixed path.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore binds a store to path. The lock file lives next to it.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the log file location.
func (s *Store) Path() string {
	return s.path
}

// Save replaces any prior log with l.
func (s *Store) Save(l Log) error {
	if l.Moved == nil {
		l.Moved = []Record{}
	}
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return fmt.Errorf("encode operation log: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create operation log directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp operation log: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write operation log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close operation log: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace operation log: %w", err)
	}
	return nil
}

// Load returns the persisted log. A missing file is an empty log, not an
// error; a file that cannot be parsed is.
func (s *Store) Load() (Log, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Log{}, nil
		}
		return Log{}, fmt.Errorf("read operation log: %w", err)
	}
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return Log{}, fmt.Errorf("%w: parse operation log %s: %w", ops.ErrValidation, s.path, err)
	}
	return l, nil
}

// Clear removes the persisted log. Clearing a missing log succeeds.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove operation log: %w", err)
	}
	return nil
}

// Lock takes the exclusive operation log lock without blocking. The returned
// function releases it.
func (s *Store) Lock() (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create operation log directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire operation log lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return s.lock.Unlock, nil
}
