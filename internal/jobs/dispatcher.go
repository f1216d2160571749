package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tidyup/internal/config"
	"tidyup/internal/history"
	"tidyup/internal/logging"
	"tidyup/internal/mailer"
	"tidyup/internal/oplog"
	"tidyup/internal/ops"
	"tidyup/internal/organizer"
)

// ErrBusy reports that a job is already running.
var ErrBusy = fmt.Errorf("%w: another job is running", ops.ErrBusy)

// Env carries the collaborators commands run against.
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *oplog.Store
	History   *history.Store
	Sender    mailer.Sender
	Scheduler *mailer.Scheduler
	Observer  organizer.Observer
}

// Message is the outcome of a submitted command.
type Message struct {
	Command  Command
	Result   any
	Err      error
	Duration time.Duration
}

// Dispatcher runs commands one at a time.
type Dispatcher struct {
	env      Env
	logger   *slog.Logger
	messages chan Message

	mu   sync.Mutex
	busy bool
	wg   sync.WaitGroup
}

// NewDispatcher builds a dispatcher over env. A nil scheduler is replaced by
// a fresh one.
func NewDispatcher(env Env) *Dispatcher {
	if env.Scheduler == nil {
		env.Scheduler = mailer.NewScheduler()
	}
	if env.Store == nil && env.Config != nil {
		env.Store = oplog.NewStore(env.Config.OperationLogPath())
	}
	return &Dispatcher{
		env:      env,
		logger:   logging.NewComponentLogger(env.Logger, "jobs"),
		messages: make(chan Message, 8),
	}
}

// Messages delivers the outcome of every submitted command. Callers that use
// Submit must drain it.
func (d *Dispatcher) Messages() <-chan Message {
	return d.messages
}

// Scheduler exposes the scheduler used for delayed mail.
func (d *Dispatcher) Scheduler() *mailer.Scheduler {
	return d.env.Scheduler
}

// Busy reports whether a job is running.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Run executes cmd on the calling goroutine.
func (d *Dispatcher) Run(ctx context.Context, cmd Command) (any, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}
	defer d.release()
	return d.execute(ctx, cmd)
}

// Submit starts cmd on a background goroutine and returns immediately. The
// outcome arrives on Messages.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	if err := d.acquire(); err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		start := time.Now()
		result, err := d.execute(ctx, cmd)
		d.release()
		d.messages <- Message{Command: cmd, Result: result, Err: err, Duration: time.Since(start)}
	}()
	return nil
}

// Wait blocks until every submitted command has delivered its message.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels scheduled mail, waits for submitted work and closes Messages.
func (d *Dispatcher) Close() {
	d.env.Scheduler.CancelAll()
	d.wg.Wait()
	close(d.messages)
}

func (d *Dispatcher) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return ErrBusy
	}
	d.busy = true
	return nil
}

func (d *Dispatcher) release() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (result any, err error) {
	if d.env.Config == nil {
		return nil, config.ErrConfigMissing
	}
	ctx = ops.WithOperation(ctx, cmd.Name())
	logger := logging.WithContext(ctx, d.logger)

	if cmd.locksLog() {
		unlock, lockErr := d.env.Store.Lock()
		if lockErr != nil {
			return nil, lockErr
		}
		defer func() {
			if unlockErr := unlock(); unlockErr != nil {
				logger.Warn("release operation log lock failed", logging.Error(unlockErr))
			}
		}()
	}

	logger.Debug("job started", logging.String("target", describe(cmd)))
	result, err = cmd.run(ctx, &d.env)
	if err != nil && !ops.IsInformational(err) && ctx.Err() == nil {
		logging.ErrorWithContext(logger, "job failed", cmd.Name()+"_failed",
			logging.Error(err),
			logging.String("target", describe(cmd)),
		)
	}
	return result, err
}
