package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tidyup/internal/config"
	"tidyup/internal/logging"
	"tidyup/internal/mailer"
	"tidyup/internal/oplog"
	"tidyup/internal/ops"
	"tidyup/internal/organizer"
	"tidyup/internal/testsupport"
	"tidyup/internal/undo"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []mailer.Message
	release chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newEnv(t *testing.T, sender mailer.Sender) (Env, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return Env{
		Config: cfg,
		Logger: logging.NewNop(),
		Store:  testsupport.NewStore(t, cfg),
		Sender: sender,
	}, cfg
}

func TestOrganizeThenUndoPersistsAndClearsLog(t *testing.T) {
	env, cfg := newEnv(t, nil)
	src := filepath.Join(testsupport.BaseDir(cfg), "Downloads")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)
	testsupport.WriteFile(t, filepath.Join(src, "b.pdf"), 4)
	dest := filepath.Join(src, "Sorted")
	d := NewDispatcher(env)

	res, err := d.Run(context.Background(), OrganizeCommand{Source: src, Dest: dest})
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	if got := len(res.(organizer.Result).Records); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}
	saved, err := env.Store.Load()
	if err != nil || len(saved.Moved) != 2 {
		t.Fatalf("expected persisted log with 2 records, got %+v (%v)", saved, err)
	}

	res, err = d.Run(context.Background(), UndoCommand{})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := res.(undo.Result).Restored; got != 2 {
		t.Fatalf("expected 2 restored, got %d", got)
	}
	if _, err := d.Run(context.Background(), UndoCommand{}); !errors.Is(err, undo.ErrNoLog) {
		t.Fatalf("expected ErrNoLog, got %v", err)
	}
}

func TestOrganizeWithNothingMovedKeepsPreviousLog(t *testing.T) {
	env, cfg := newEnv(t, nil)
	previous := oplog.Log{Moved: []oplog.Record{{Original: "/a", New: "/b"}}, RunID: "prev"}
	testsupport.SaveLog(t, env.Store, previous)
	src := filepath.Join(testsupport.BaseDir(cfg), "empty")
	testsupport.WriteFile(t, filepath.Join(src, "Sorted", "keep.txt"), 1)

	if _, err := NewDispatcher(env).Run(context.Background(), OrganizeCommand{Source: src, Dest: filepath.Join(src, "Sorted")}); err != nil {
		t.Fatalf("organize: %v", err)
	}
	saved, err := env.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.RunID != "prev" {
		t.Fatalf("expected previous log retained, got %+v", saved)
	}
}

func TestDryRunDoesNotPersist(t *testing.T) {
	env, cfg := newEnv(t, nil)
	src := filepath.Join(testsupport.BaseDir(cfg), "src")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)

	res, err := NewDispatcher(env).Run(context.Background(), OrganizeCommand{Source: src, Dest: filepath.Join(src, "out"), DryRun: true})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !res.(organizer.Result).DryRun {
		t.Fatal("expected dry-run result")
	}
	saved, err := env.Store.Load()
	if err != nil || !saved.Empty() {
		t.Fatalf("expected no persisted log, got %+v (%v)", saved, err)
	}
}

func TestOrganizeRefusesMissingSource(t *testing.T) {
	env, cfg := newEnv(t, nil)
	base := testsupport.BaseDir(cfg)

	_, err := NewDispatcher(env).Run(context.Background(), OrganizeCommand{Source: filepath.Join(base, "missing"), Dest: base})
	if !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected preflight validation error, got %v", err)
	}
}

func TestOrganizeFailsWhenLogLocked(t *testing.T) {
	env, cfg := newEnv(t, nil)
	other := oplog.NewStore(cfg.OperationLogPath())
	unlock, err := other.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	src := filepath.Join(testsupport.BaseDir(cfg), "src")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)
	_, err = NewDispatcher(env).Run(context.Background(), OrganizeCommand{Source: src, Dest: filepath.Join(src, "out")})
	if !errors.Is(err, oplog.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestSubmitRejectsConcurrentJob(t *testing.T) {
	sender := &fakeSender{release: make(chan struct{})}
	env, _ := newEnv(t, sender)
	d := NewDispatcher(env)

	msg := mailer.Message{Subject: mailer.TestSubject, Body: mailer.TestBody}
	if err := d.Submit(context.Background(), MailCommand{Message: msg}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(context.Background(), ScanCommand{Folder: t.TempDir()}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := d.Run(context.Background(), UndoCommand{}); !errors.Is(err, ops.ErrBusy) {
		t.Fatalf("expected busy error from Run, got %v", err)
	}

	close(sender.release)
	select {
	case m := <-d.Messages():
		if m.Err != nil || m.Command.Name() != "mail" {
			t.Fatalf("unexpected message: %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
	}
	if sender.count() != 1 {
		t.Fatalf("expected 1 sent mail, got %d", sender.count())
	}
	if d.Busy() {
		t.Fatal("dispatcher still busy after message")
	}
}

func TestMailCommandSchedulesAndCancels(t *testing.T) {
	sender := &fakeSender{}
	env, _ := newEnv(t, sender)
	d := NewDispatcher(env)

	res, err := d.Run(context.Background(), MailCommand{
		Message: mailer.Message{Subject: mailer.ReportSubject, Body: "x"},
		Delay:   time.Hour,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	task, ok := res.(*mailer.Task)
	if !ok {
		t.Fatalf("expected *mailer.Task, got %T", res)
	}
	if d.Busy() {
		t.Fatal("scheduling should not keep the dispatcher busy")
	}

	d.Close()
	if err := task.Wait(context.Background()); !errors.Is(err, mailer.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if sender.count() != 0 {
		t.Fatal("cancelled mail was sent")
	}
}

func TestMailCommandWithoutSender(t *testing.T) {
	env, _ := newEnv(t, nil)

	_, err := NewDispatcher(env).Run(context.Background(), MailCommand{Message: mailer.Message{Subject: "x"}})
	if !errors.Is(err, mailer.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestScanCommand(t *testing.T) {
	env, _ := newEnv(t, nil)
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "invoice.pdf.exe"), 4)

	res, err := NewDispatcher(env).Run(context.Background(), ScanCommand{Folder: root})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := len(res.(ScanResult).Findings); got != 2 {
		t.Fatalf("expected 2 findings, got %d", got)
	}
}

func TestOrganizeAndUndoRecordHistory(t *testing.T) {
	env, cfg := newEnv(t, nil)
	env.History = testsupport.MustOpenHistory(t, cfg)
	src := filepath.Join(testsupport.BaseDir(cfg), "Downloads")
	testsupport.WriteFile(t, filepath.Join(src, "a.jpg"), 4)
	dest := filepath.Join(testsupport.BaseDir(cfg), "Sorted")
	d := NewDispatcher(env)

	if _, err := d.Run(context.Background(), OrganizeCommand{Source: src, Dest: dest, DryRun: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	res, err := d.Run(context.Background(), OrganizeCommand{Source: src, Dest: dest})
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	runID := res.(organizer.Result).RunID
	if _, err := d.Run(context.Background(), UndoCommand{}); err != nil {
		t.Fatalf("undo: %v", err)
	}

	entries, err := env.History.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected organize and undo entries only, got %+v", entries)
	}
	if entries[1].Operation != "organize" || entries[1].RunID != runID || entries[1].Moved != 1 || entries[1].Dest != dest {
		t.Fatalf("unexpected organize entry %+v", entries[1])
	}
	if entries[0].Operation != "undo" || entries[0].RunID != runID || entries[0].Moved != 1 || entries[0].Error != "" {
		t.Fatalf("unexpected undo entry %+v", entries[0])
	}
}

func TestOrganizeParentOfStateDirLeavesOperationLog(t *testing.T) {
	env, cfg := newEnv(t, nil)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteFile(t, filepath.Join(base, "Downloads", "a.jpg"), 4)
	d := NewDispatcher(env)

	if _, err := d.Run(context.Background(), OrganizeCommand{Source: filepath.Join(base, "Downloads"), Dest: filepath.Join(base, "Sorted")}); err != nil {
		t.Fatalf("first organize: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(base, "b.txt"), 4)
	second := filepath.Join(base, "Sorted2")
	if _, err := d.Run(context.Background(), OrganizeCommand{Source: base, Dest: second}); err != nil {
		t.Fatalf("second organize: %v", err)
	}

	testsupport.RequireFile(t, cfg.OperationLogPath())
	testsupport.RequireFile(t, cfg.OperationLogPath()+".lock")
	testsupport.RequireMissing(t, filepath.Join(second, "Others", "last_op.json"))
	testsupport.RequireMissing(t, filepath.Join(second, "Others", "last_op.json.lock"))

	saved, err := env.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, rec := range saved.Moved {
		if filepath.Dir(rec.Original) == cfg.Paths.StateDir {
			t.Fatalf("state file was organized: %+v", rec)
		}
	}
}
