package task

import (
	"context"
	"time"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/logging"
)

// MulsPerStateUpdate is the default number of modular multiplications between
// in-memory state refreshes. Drivers whose iterations cost more than one
// multiplication scale it down accordingly.
const MulsPerStateUpdate = 120_000

// DefaultDiskWriteInterval is the default minimum spacing between writes of
// the working state file. State refreshes between writes stay in memory only.
const DefaultDiskWriteInterval = 5 * time.Minute

// DefaultRestartBudget is the default number of recoverable restarts allowed
// before a run is declared fatal.
const DefaultRestartBudget = 3

// Task is the base of every exponentiation driver: it owns the working state
// file, the current persisted position, the commit cadence, and progress
// reporting. Drivers embed it and call Commit from their inner loops.
type Task struct {
	// Logger receives the driver's log output.
	Logger logging.Logger
	// Reporter receives throttled progress updates. Never nil after Init.
	Reporter ProgressReporter

	// StateUpdatePeriod is the iteration spacing of in-memory state refreshes.
	StateUpdatePeriod int
	// DiskWriteInterval bounds how often a refreshed state is written to disk.
	// Zero or negative writes on every refresh.
	DiskWriteInterval time.Duration
	// WriteStateHook, when set, replaces the default file write. Drivers with
	// multiple files (working + recovery) use it to enforce write ordering.
	WriteStateHook func() error

	file         *checkpoint.File
	state        checkpoint.Position
	iterations   int
	lastWrite    time.Time
	lastReported float64
	transformsFn func() int64
}

// Init prepares the task base. reporter and logger may be nil; they default
// to no-ops.
func (t *Task) Init(file *checkpoint.File, logger logging.Logger, reporter ProgressReporter, iterations int) {
	t.file = file
	t.Logger = logger
	if t.Logger == nil {
		t.Logger = &logging.NopLogger{}
	}
	t.Reporter = reporter
	if t.Reporter == nil {
		t.Reporter = func(ProgressUpdate) {}
	}
	t.iterations = iterations
	if t.StateUpdatePeriod == 0 {
		t.StateUpdatePeriod = MulsPerStateUpdate
	}
	t.state = nil
	t.lastWrite = time.Now()
	t.lastReported = -1
}

// File returns the working state file (may be nil for purely in-memory runs).
func (t *Task) File() *checkpoint.File { return t.file }

// Iterations returns the total iteration count of the run.
func (t *Task) Iterations() int { return t.iterations }

// SetIterations adjusts the total iteration count.
func (t *Task) SetIterations(n int) { t.iterations = n }

// State returns the current in-memory position.
func (t *Task) State() checkpoint.Position { return t.state }

// SetPosition replaces the in-memory position without touching the disk.
func (t *Task) SetPosition(p checkpoint.Position) { t.state = p }

// SetTransformsFn installs the source of the cumulative transform count used
// in progress updates.
func (t *Task) SetTransformsFn(fn func() int64) { t.transformsFn = fn }

func (t *Task) transforms() int64 {
	if t.transformsFn == nil {
		return 0
	}
	return t.transformsFn()
}

// Commit is the driver inner-loop suspension point: it observes context
// cancellation, refreshes the in-memory state every StateUpdatePeriod
// iterations, writes it to disk when the last-write clock allows, and reports
// progress. build is only invoked when a refresh is due, so the big-int
// conversion cost is not paid on every iteration.
func (t *Task) Commit(ctx context.Context, i int, build func() checkpoint.Position) error {
	if err := ctx.Err(); err != nil {
		// Persist the exact stop position so a restarted run loses nothing.
		t.state = build()
		if werr := t.WriteState(); werr != nil {
			t.Logger.Error("failed to write state on cancellation", werr)
		}
		return apperrors.WrapError(err, "run interrupted at iteration %d", i)
	}
	if t.StateUpdatePeriod > 0 && i > 0 && i%t.StateUpdatePeriod == 0 {
		t.state = build()
		if t.writeDue() {
			if err := t.WriteState(); err != nil {
				return err
			}
		}
	}
	t.ReportProgress(i)
	return nil
}

// SetStateNow replaces the position and writes it immediately. Used at
// checkpoint boundaries and after verification, where persistence is part of
// the protocol rather than an optimisation.
func (t *Task) SetStateNow(p checkpoint.Position) error {
	t.state = p
	return t.WriteState()
}

// WriteState persists the current position through the hook or directly to
// the working file, and resets the last-write clock.
func (t *Task) WriteState() error {
	defer func() { t.lastWrite = time.Now() }()
	if t.WriteStateHook != nil {
		return t.WriteStateHook()
	}
	if t.file == nil || t.state == nil {
		return nil
	}
	return t.file.Write(t.state)
}

// TouchLastWrite resets the last-write clock without writing, e.g. after a
// checkpoint callback already persisted everything it needed.
func (t *Task) TouchLastWrite() { t.lastWrite = time.Now() }

func (t *Task) writeDue() bool {
	return t.DiskWriteInterval <= 0 || time.Since(t.lastWrite) >= t.DiskWriteInterval
}

// ReportProgress forwards a throttled progress update for iteration i.
func (t *Task) ReportProgress(i int) {
	if t.iterations <= 0 {
		return
	}
	fraction := float64(i) / float64(t.iterations)
	if fraction-t.lastReported < ProgressReportThreshold && fraction < 1.0 {
		return
	}
	t.lastReported = fraction
	t.Reporter(ProgressUpdate{Fraction: fraction, Transforms: t.transforms()})
}
