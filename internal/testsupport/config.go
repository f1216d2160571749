package testsupport

import (
	"path/filepath"
	"testing"

	"tidyup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// State and log directories live under the same temp root so BaseDir can
// recover it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OrganizeMap = config.DefaultCategories()
	cfgVal.SuspiciousExts = config.DefaultSuspiciousExtensions()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCategories replaces the category map on the test config.
func WithCategories(categories ...config.Category) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OrganizeMap = config.CategoryMap(categories)
	}
}

// WithLayout sets the destination folder layout.
func WithLayout(layout string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.Layout = layout
	}
}

// WithCollisionPolicy sets the organize collision policy.
func WithCollisionPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.OnCollision = policy
	}
}

// WithRecursive toggles recursive organize walks.
func WithRecursive(recursive bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.Recursive = recursive
	}
}

// WithScanLimits overrides the scanner file cap and large-file threshold.
func WithScanLimits(maxFiles int, largeFileBytes int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.MaxFiles = maxFiles
		b.cfg.Scan.LargeFileBytes = largeFileBytes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
