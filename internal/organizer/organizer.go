package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tidyup/internal/category"
	"tidyup/internal/config"
	"tidyup/internal/fileutil"
	"tidyup/internal/logging"
	"tidyup/internal/oplog"
	"tidyup/internal/ops"
)

// ErrNothingMoved reports a run that found files but could move none of them.
var ErrNothingMoved = fmt.Errorf("%w: no file could be moved", ops.ErrPartial)

// Failure is a file that could not be planned or moved.
type Failure struct {
	Path string
	Err  error
}

// Event describes the outcome of one file in a run.
type Event struct {
	Index  int
	Total  int
	Record oplog.Record
	Err    error
}

// Observer receives an Event after each file is handled.
type Observer func(Event)

// Result summarizes an organize run or plan.
type Result struct {
	RunID     string
	Source    string
	Dest      string
	Records   []oplog.Record
	Failures  []Failure
	Skipped   int
	Found     int
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
}

// Log converts the result into the persisted operation log snapshot.
func (r Result) Log() oplog.Log {
	return oplog.Log{
		Moved:     r.Records,
		RunID:     r.RunID,
		CreatedAt: r.StartedAt.UTC(),
		Source:    r.Source,
		Dest:      r.Dest,
	}
}

// Organizer moves files according to the configured layout.
type Organizer struct {
	recursive   bool
	layout      string
	onCollision string
	resolver    *category.Resolver
	folders     map[string]struct{}
	reserved    []string
	logger      *slog.Logger
	observer    Observer
	move        func(src, dst string) error
	now         func() time.Time
}

// Option customizes an Organizer.
type Option func(*Organizer)

// WithObserver registers a per-file progress callback.
func WithObserver(fn Observer) Option {
	return func(o *Organizer) { o.observer = fn }
}

// WithMoveFunc replaces the move primitive (used in tests).
func WithMoveFunc(fn func(src, dst string) error) Option {
	return func(o *Organizer) {
		if fn != nil {
			o.move = fn
		}
	}
}

// New constructs an organizer from cfg. A nil cfg is a configuration error:
// the organizer never runs without a category map.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Organizer, error) {
	if cfg == nil {
		return nil, config.ErrConfigMissing
	}
	o := &Organizer{
		recursive:   cfg.Organize.Recursive,
		layout:      cfg.Organize.Layout,
		onCollision: cfg.Organize.OnCollision,
		resolver:    category.NewResolver(cfg.OrganizeMap),
		folders:     categoryFolders(cfg.OrganizeMap),
		reserved:    reservedDirs(cfg.Paths.StateDir, cfg.Paths.LogDir),
		logger:      logging.NewComponentLogger(logger, "organizer"),
		move:        fileutil.Move,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Plan computes the moves Organize would perform without touching the
// filesystem.
func (o *Organizer) Plan(ctx context.Context, source, dest string) (Result, error) {
	result, items, err := o.prepare(ctx, source, dest, false)
	if err != nil {
		return result, err
	}
	result.DryRun = true
	reserved := make(map[string]struct{}, len(items))
	for _, item := range items {
		target, err := o.target(item, reserved)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Path: item.path, Err: err})
			continue
		}
		if target == item.path {
			result.Skipped++
			continue
		}
		reserved[target] = struct{}{}
		result.Records = append(result.Records, oplog.Record{Original: item.path, New: target})
	}
	result.Duration = o.now().Sub(result.StartedAt)
	return result, nil
}

// Organize moves every file under source into dest/<category>/<name>.
// Per-file failures are collected in Result.Failures; the returned error is
// non-nil only for setup failures, cancellation, or when every file failed.
func (o *Organizer) Organize(ctx context.Context, source, dest string) (Result, error) {
	result, items, err := o.prepare(ctx, source, dest, true)
	if err != nil {
		return result, err
	}
	ctx = ops.WithOperation(ops.WithRunID(ctx, result.RunID), "organize")
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("organize started",
		logging.String("source", result.Source),
		logging.String("dest", result.Dest),
		logging.Int("files", len(items)),
		logging.Bool("recursive", o.recursive),
		logging.String("layout", o.layout),
	)

	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			result.Duration = o.now().Sub(result.StartedAt)
			logging.WarnWithContext(logger, "organize cancelled", "organize_cancelled",
				logging.Int("moved", len(result.Records)),
				logging.Int("remaining", len(items)-idx),
				logging.String(logging.FieldImpact, "remaining files left in place"),
			)
			return result, err
		}

		event := Event{Index: idx + 1, Total: len(items)}
		target, err := o.target(item, nil)
		switch {
		case err != nil:
			event.Err = err
		case target == item.path:
			result.Skipped++
			o.notify(event)
			continue
		default:
			event.Record = oplog.Record{Original: item.path, New: target}
			event.Err = o.move(item.path, target)
		}

		if event.Err != nil {
			result.Failures = append(result.Failures, Failure{Path: item.path, Err: event.Err})
			logging.WarnWithContext(logger, "move failed; file skipped", "move_failed",
				logging.String("source", item.path),
				logging.String("category", item.category),
				logging.Error(event.Err),
				logging.String(logging.FieldErrorHint, "check permissions and path length"),
				logging.String(logging.FieldImpact, "file left at its original path"),
			)
		} else {
			result.Records = append(result.Records, event.Record)
			logger.Info("moved file",
				logging.String("source", event.Record.Original),
				logging.String("dest", event.Record.New),
				logging.String("category", item.category),
			)
		}
		o.notify(event)
	}

	result.Duration = o.now().Sub(result.StartedAt)
	logger.Info("organize finished",
		logging.Int("moved", len(result.Records)),
		logging.Int("failed", len(result.Failures)),
		logging.Int("skipped", result.Skipped),
		logging.Duration("duration", result.Duration),
	)
	if len(items) > 0 && len(result.Records) == 0 && len(result.Failures) > 0 {
		return result, fmt.Errorf("%w (%d failures)", ErrNothingMoved, len(result.Failures))
	}
	return result, nil
}

func (o *Organizer) notify(event Event) {
	if o.observer != nil {
		o.observer(event)
	}
}

type item struct {
	path     string
	name     string
	category string
	dir      string
}

// prepare validates the directories, collects candidate files and resolves
// their categories. createDest controls whether dest is created.
func (o *Organizer) prepare(ctx context.Context, source, dest string, createDest bool) (Result, []item, error) {
	result := Result{RunID: uuid.NewString(), StartedAt: o.now()}

	src, dst, err := resolveRoots(source, dest)
	if err != nil {
		return result, nil, err
	}
	result.Source, result.Dest = src, dst

	if err := checkSource(src); err != nil {
		return result, nil, err
	}
	for _, dir := range o.reserved {
		if fileutil.IsWithin(src, dir) {
			return result, nil, ops.Wrap(ops.ErrValidation, "organize", "validate inputs",
				fmt.Sprintf("source %s is inside tidyup's own directory %s", src, dir), nil)
		}
	}
	if createDest {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return result, nil, ops.Wrap(ops.ErrValidation, "organize", "create destination", dst, err)
		}
	}

	var items []item
	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == src {
				return err
			}
			result.Failures = append(result.Failures, Failure{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path == src {
				return nil
			}
			if !o.recursive || o.isReserved(path) || o.isOutput(path, src, dst) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		folder := o.folderFor(name)
		items = append(items, item{
			path:     path,
			name:     name,
			category: folder,
			dir:      filepath.Join(dst, folder),
		})
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return result, nil, walkErr
		}
		return result, nil, ops.Wrap(ops.ErrValidation, "organize", "walk source", src, walkErr)
	}
	result.Found = len(items)
	return result, items, nil
}

// isReserved reports whether dir holds tidyup's own state or logs. Those are
// never walked.
func (o *Organizer) isReserved(dir string) bool {
	for _, reserved := range o.reserved {
		if dir == reserved {
			return true
		}
	}
	return false
}

// isOutput reports whether dir is a destination folder that must not be
// re-sorted. When dest lies inside the source the whole dest subtree is
// output. When the source is dest itself or lies inside it, only the
// category folders directly under dest are, so other subfolders still
// follow organize.recursive.
func (o *Organizer) isOutput(dir, src, dst string) bool {
	if !fileutil.IsWithin(dir, dst) {
		return false
	}
	if !fileutil.IsWithin(src, dst) {
		return true
	}
	if filepath.Dir(dir) != dst {
		return false
	}
	name := filepath.Base(dir)
	if o.layout == config.LayoutExtension {
		return name == category.Others || name == category.ExtensionFolder("x."+name)
	}
	_, ok := o.folders[name]
	return ok
}

func (o *Organizer) folderFor(name string) string {
	if o.layout == config.LayoutExtension {
		return category.ExtensionFolder(name)
	}
	return o.resolver.Resolve(name)
}

// target returns the destination path for it under the collision policy.
// reserved holds targets already claimed by a plan.
func (o *Organizer) target(it item, reserved map[string]struct{}) (string, error) {
	target := filepath.Join(it.dir, it.name)
	if target == it.path || o.onCollision != config.CollisionRename {
		return target, nil
	}
	return fileutil.NextFreePath(target, func(candidate string) bool {
		if _, ok := reserved[candidate]; ok {
			return true
		}
		return fileutil.Exists(candidate)
	})
}

func categoryFolders(m config.CategoryMap) map[string]struct{} {
	folders := map[string]struct{}{category.Others: {}}
	for _, name := range m.Names() {
		folders[name] = struct{}{}
	}
	return folders
}

func reservedDirs(dirs ...string) []string {
	var out []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

func resolveRoots(source, dest string) (string, string, error) {
	if source == "" || dest == "" {
		return "", "", ops.Wrap(ops.ErrValidation, "organize", "validate inputs", "source and destination folders are required", nil)
	}
	src, err := filepath.Abs(source)
	if err != nil {
		return "", "", ops.Wrap(ops.ErrValidation, "organize", "resolve source", source, err)
	}
	dst, err := filepath.Abs(dest)
	if err != nil {
		return "", "", ops.Wrap(ops.ErrValidation, "organize", "resolve destination", dest, err)
	}
	return filepath.Clean(src), filepath.Clean(dst), nil
}

func checkSource(src string) error {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ops.Wrap(ops.ErrValidation, "organize", "validate inputs", fmt.Sprintf("source %s does not exist", src), err)
		}
		return ops.Wrap(ops.ErrValidation, "organize", "validate inputs", "stat source", err)
	}
	if !info.IsDir() {
		return ops.Wrap(ops.ErrValidation, "organize", "validate inputs", fmt.Sprintf("source %s is not a directory", src), nil)
	}
	return nil
}
