package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tidyup/internal/config"
	"tidyup/internal/mailer"
	"tidyup/internal/oplog"
	"tidyup/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "tidyup-test.json"),
		stateDir:   filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(`{
  "organize_map": {
    "Images": [".jpg", ".png"],
    "Documents": [".txt", ".pdf"]
  },
  "suspicious_exts": [".exe", ".bat"],
  "paths": {"state_dir": %q, "log_dir": %q},
  "smtp": {"password": "hunter2"}
}`, env.stateDir, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestOrganizeLogShowUndoRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "Downloads")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)
	testsupport.WriteFile(t, filepath.Join(src, "b.txt"), 4)
	testsupport.WriteFile(t, filepath.Join(src, "c.exe"), 4)
	dest := filepath.Join(src, "Sorted")

	out, _, err := runCLI(t, []string{"organize", "--dry-run", src, dest}, env.configPath)
	if err != nil {
		t.Fatalf("organize --dry-run: %v", err)
	}
	requireContains(t, out, "3 files would be moved")
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("dry run created destination")
	}

	out, stderr, err := runCLI(t, []string{"organize", src, dest}, env.configPath)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, out, "Moved:")
	requireContains(t, stderr, "moved file")
	if _, err := os.Stat(filepath.Join(dest, "Others", "c.exe")); err != nil {
		t.Fatalf("expected c.exe under Others: %v", err)
	}

	out, _, err = runCLI(t, []string{"log", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("log show: %v", err)
	}
	requireContains(t, out, filepath.Join(dest, "Images", "a.jpg"))

	out, _, err = runCLI(t, []string{"undo"}, env.configPath)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	requireContains(t, out, "Restored:")
	if _, err := os.Stat(filepath.Join(src, "a.jpg")); err != nil {
		t.Fatalf("expected a.jpg restored: %v", err)
	}

	out, _, err = runCLI(t, []string{"undo"}, env.configPath)
	if err != nil {
		t.Fatalf("second undo should succeed: %v", err)
	}
	requireContains(t, out, "No operation to undo")

	logData, err := os.ReadFile(filepath.Join(env.baseDir, "logs", "tidyup.log"))
	if err != nil {
		t.Fatalf("read activity log: %v", err)
	}
	requireContains(t, string(logData), "restored file")
}

func TestOrganizeJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "in")
	testsupport.WriteFile(t, filepath.Join(src, "a.png"), 4)

	out, _, err := runCLI(t, []string{"organize", "--json", src, filepath.Join(env.baseDir, "out")}, env.configPath)
	if err != nil {
		t.Fatalf("organize --json: %v", err)
	}
	var payload struct {
		RunID string      `json:"run_id"`
		Moved [][2]string `json:"moved"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.RunID == "" || len(payload.Moved) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestOrganizeRequiresConfigFile(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "nope.toml")

	_, _, err := runCLI(t, []string{"organize", env.baseDir, filepath.Join(env.baseDir, "out")}, missing)
	if !errors.Is(err, config.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected exit code 1")
	}
}

func TestScanCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := filepath.Join(env.baseDir, "scanme")
	testsupport.WriteFile(t, filepath.Join(folder, "invoice.pdf.exe"), 4)

	out, _, err := runCLI(t, []string{"scan", folder}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "suspicious extension .exe")
	requireContains(t, out, "double extension")

	out, _, err = runCLI(t, []string{"scan", "--max-files", "1", filepath.Join(env.baseDir, "home")}, env.configPath)
	if err != nil {
		t.Fatalf("scan empty: %v", err)
	}
	requireContains(t, out, "No suspicious files found.")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Categories: Images, Documents")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}

func TestConfigShowRedactsPassword(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("password leaked:\n%s", out)
	}
	requireContains(t, out, `"Images"`)

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show toml: %v", err)
	}
	requireContains(t, out, "[[organize_map]]")
}

func TestMailWithoutSMTPConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"mail", "test"}, env.configPath)
	if !errors.Is(err, mailer.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"mail", "schedule"}, env.configPath); err == nil {
		t.Fatal("expected error without --after")
	}
}

func TestLogPath(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"log", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("log path: %v", err)
	}
	requireContains(t, out, filepath.Join(env.stateDir, "last_op.json"))
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != 0 {
		t.Fatal("expected 0 for nil error")
	}
}

func TestLogTailFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "in")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)

	out, _, err := runCLI(t, []string{"organize", "--json", src, filepath.Join(env.baseDir, "out")}, env.configPath)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	var payload struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	out, _, err = runCLI(t, []string{"log", "tail", "--run", payload.RunID}, env.configPath)
	if err != nil {
		t.Fatalf("log tail: %v", err)
	}
	requireContains(t, out, "moved file")
	requireContains(t, out, payload.RunID[:8])
}

func TestLogHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "in")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)
	testsupport.WriteFile(t, filepath.Join(src, "b.pdf"), 4)

	if _, _, err := runCLI(t, []string{"organize", src, filepath.Join(env.baseDir, "out")}, env.configPath); err != nil {
		t.Fatalf("organize: %v", err)
	}
	if _, _, err := runCLI(t, []string{"undo"}, env.configPath); err != nil {
		t.Fatalf("undo: %v", err)
	}

	out, _, err := runCLI(t, []string{"log", "history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("log history: %v", err)
	}
	var entries []struct {
		Operation string `json:"operation"`
		Moved     int    `json:"moved"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(entries))
	}
	if entries[0].Operation != "undo" || entries[1].Operation != "organize" || entries[1].Moved != 2 {
		t.Fatalf("unexpected history %+v", entries)
	}

	out, _, err = runCLI(t, []string{"log", "history"}, env.configPath)
	if err != nil {
		t.Fatalf("log history table: %v", err)
	}
	requireContains(t, out, "organize")

	out, _, err = runCLI(t, []string{"log", "history", "--clear"}, env.configPath)
	if err != nil {
		t.Fatalf("log history --clear: %v", err)
	}
	requireContains(t, out, "Removed 2 history entries")
}

func TestUndoReportsAndDropsMissingRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	store := oplog.NewStore(filepath.Join(env.stateDir, "last_op.json"))
	testsupport.SaveLog(t, store, oplog.Log{RunID: "run-gone", Moved: []oplog.Record{{
		Original: filepath.Join(env.baseDir, "in", "lost.txt"),
		New:      filepath.Join(env.baseDir, "out", "Documents", "lost.txt"),
	}}})

	out, _, err := runCLI(t, []string{"undo"}, env.configPath)
	if err == nil {
		t.Fatal("expected undo to fail for a record with no files")
	}
	requireContains(t, out, "--drop-missing")

	out, _, err = runCLI(t, []string{"undo", "--drop-missing"}, env.configPath)
	if err != nil {
		t.Fatalf("undo --drop-missing: %v", err)
	}
	requireContains(t, out, "Dropped")

	out, _, err = runCLI(t, []string{"undo"}, env.configPath)
	if err != nil {
		t.Fatalf("undo after drop: %v", err)
	}
	requireContains(t, out, "No operation to undo")
}
