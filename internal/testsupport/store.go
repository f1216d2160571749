package testsupport

import (
	"testing"

	"tidyup/internal/config"
	"tidyup/internal/history"
	"tidyup/internal/oplog"
)

// NewStore returns an operation log store bound to the config's state
// directory, creating the directory first.
func NewStore(t testing.TB, cfg *config.Config) *oplog.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return oplog.NewStore(cfg.OperationLogPath())
}

// SaveLog persists log into store, failing the test on error.
func SaveLog(t testing.TB, store *oplog.Store, log oplog.Log) {
	t.Helper()

	if err := store.Save(log); err != nil {
		t.Fatalf("save log: %v", err)
	}
}

// MustOpenHistory opens the run history database for cfg and closes it when
// the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
