// Package scanner flags files whose names or sizes look suspicious. It is a
// filename heuristic, not malware detection, and never modifies the tree.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tidyup/internal/category"
	"tidyup/internal/config"
	"tidyup/internal/ops"
)

// Kind classifies a finding.
type Kind string

const (
	KindExtension       Kind = "extension"
	KindDoubleExtension Kind = "double_extension"
	KindLargeFile       Kind = "large_file"
)

// Finding is one suspicious observation about a file. A file may produce
// several findings.
type Finding struct {
	Path   string
	Reason string
	Kind   Kind
}

// Stats describes a completed scan.
type Stats struct {
	Inspected int
	Findings  int
	Truncated bool
}

// Config tunes the heuristics.
type Config struct {
	SuspiciousExts      []string
	DoubleExtSuspicious bool
	MaxFiles            int
	LargeFileBytes      int64
}

// ConfigFrom extracts scanner settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		def := config.Default()
		cfg = &def
		cfg.SuspiciousExts = config.DefaultSuspiciousExtensions()
	}
	return Config{
		SuspiciousExts:      cfg.SuspiciousExts,
		DoubleExtSuspicious: cfg.DoubleExtSuspicious,
		MaxFiles:            cfg.Scan.MaxFiles,
		LargeFileBytes:      cfg.Scan.LargeFileBytes,
	}
}

var errStopWalk = errors.New("scan stop")

// Scan collects all findings under folder. Reaching the file cap truncates the
// scan without error; Stats.Truncated reports it.
func Scan(ctx context.Context, folder string, cfg Config) ([]Finding, Stats, error) {
	var findings []Finding
	stats, err := walk(ctx, folder, cfg, func(f Finding) bool {
		findings = append(findings, f)
		return true
	})
	return findings, stats, err
}

// Walk streams findings to yield until the tree, the file cap, or yield's
// appetite is exhausted.
func Walk(folder string, cfg Config, yield func(Finding) bool) (Stats, error) {
	return walk(context.Background(), folder, cfg, yield)
}

func walk(ctx context.Context, folder string, cfg Config, yield func(Finding) bool) (Stats, error) {
	var stats Stats
	root := filepath.Clean(folder)
	info, err := os.Stat(root)
	if err != nil {
		return stats, ops.Wrap(ops.ErrValidation, "scan", "open folder", root, err)
	}
	if !info.IsDir() {
		return stats, ops.Wrap(ops.ErrValidation, "scan", "open folder", fmt.Sprintf("%s is not a directory", root), nil)
	}

	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = config.Default().Scan.MaxFiles
	}
	suspicious := make(map[string]struct{}, len(cfg.SuspiciousExts))
	for _, ext := range cfg.SuspiciousExts {
		suspicious[config.NormalizeExtension(ext)] = struct{}{}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if stats.Inspected >= maxFiles {
			stats.Truncated = true
			return errStopWalk
		}
		stats.Inspected++

		for _, f := range inspect(path, d, suspicious, cfg) {
			stats.Findings++
			if !yield(f) {
				return errStopWalk
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, err
		}
		return stats, ops.Wrap(ops.ErrValidation, "scan", "walk folder", root, err)
	}
	return stats, nil
}

func inspect(path string, d fs.DirEntry, suspicious map[string]struct{}, cfg Config) []Finding {
	var out []Finding
	name := d.Name()
	ext := category.Extension(name)
	_, flagged := suspicious[ext]
	if flagged && ext != "" {
		out = append(out, Finding{Path: path, Reason: "suspicious extension " + ext, Kind: KindExtension})
	}
	if cfg.DoubleExtSuspicious && strings.Count(name, ".") >= 2 {
		out = append(out, Finding{Path: path, Reason: "double extension", Kind: KindDoubleExtension})
	}
	if flagged && ext != "" {
		threshold := cfg.LargeFileBytes
		if threshold <= 0 {
			threshold = config.Default().Scan.LargeFileBytes
		}
		// Stat failures drop only the size heuristic.
		if info, err := d.Info(); err == nil && info.Size() > threshold {
			out = append(out, Finding{
				Path:   path,
				Reason: fmt.Sprintf("large suspicious file (%d bytes)", info.Size()),
				Kind:   KindLargeFile,
			})
		}
	}
	return out
}
