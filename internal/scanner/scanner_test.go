package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"tidyup/internal/ops"
	"tidyup/internal/scanner"
	"tidyup/internal/testsupport"
)

func defaultConfig(t *testing.T, opts ...testsupport.ConfigOption) scanner.Config {
	t.Helper()
	return scanner.ConfigFrom(testsupport.NewConfig(t, opts...))
}

func TestScanFlagsDoubleExtensionExecutable(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "invoice.pdf.exe"), 16)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 16)

	findings, stats, err := scanner.Scan(context.Background(), root, defaultConfig(t))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Inspected != 2 || stats.Truncated {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %+v", findings)
	}
	if findings[0].Reason != "suspicious extension .exe" || findings[0].Kind != scanner.KindExtension {
		t.Fatalf("unexpected first finding: %+v", findings[0])
	}
	if findings[1].Reason != "double extension" || findings[1].Kind != scanner.KindDoubleExtension {
		t.Fatalf("unexpected second finding: %+v", findings[1])
	}
}

func TestScanDoubleExtensionCanBeDisabled(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "archive.tar.gz"), 4)

	cfg := defaultConfig(t)
	cfg.DoubleExtSuspicious = false
	findings, _, err := scanner.Scan(context.Background(), root, cfg)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestScanLargeSuspiciousFile(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "setup.EXE"), 2048)
	testsupport.WriteFile(t, filepath.Join(root, "movie.mkv"), 4096)

	findings, _, err := scanner.Scan(context.Background(), root, defaultConfig(t, testsupport.WithScanLimits(100, 1024)))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var large int
	for _, f := range findings {
		if f.Kind == scanner.KindLargeFile {
			large++
			if f.Reason != "large suspicious file (2048 bytes)" {
				t.Fatalf("unexpected reason %q", f.Reason)
			}
		}
	}
	if large != 1 {
		t.Fatalf("expected one large finding, got %+v", findings)
	}
}

func TestScanStopsAtFileCap(t *testing.T) {
	root := t.TempDir()
	for i := range 5 {
		testsupport.WriteFile(t, filepath.Join(root, fmt.Sprintf("tool%d.exe", i)), 1)
	}

	findings, stats, err := scanner.Scan(context.Background(), root, defaultConfig(t, testsupport.WithScanLimits(3, 0)))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Inspected != 3 || !stats.Truncated {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}
}

func TestScanRecursesIntoSubdirectories(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a", "b", "run.bat"), 1)

	findings, _, err := scanner.Scan(context.Background(), root, defaultConfig(t))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 1 || findings[0].Path != filepath.Join(root, "a", "b", "run.bat") {
		t.Fatalf("unexpected findings: %+v", findings)
	}
}

func TestScanMissingFolder(t *testing.T) {
	_, _, err := scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), defaultConfig(t))
	if !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWalkStopsWhenYieldDeclines(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.exe"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "b.exe"), 1)

	var seen int
	stats, err := scanner.Walk(root, defaultConfig(t), func(scanner.Finding) bool {
		seen++
		return false
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if seen != 1 || stats.Inspected != 1 {
		t.Fatalf("expected walk to stop after first finding, seen=%d stats=%+v", seen, stats)
	}
}
