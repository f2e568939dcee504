package exp

import (
	"context"
	"errors"
	"time"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/input"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/task"
)

// startupCarefulOps is the number of modular operations run in conservative
// mode at the start of a fresh run, stabilising the transform behaviour
// against startup noise.
const startupCarefulOps = 30

// BaseExp carries the lifecycle shared by all exponentiation drivers: the
// task base, the arithmetic backend, the wall-clock timer and transform
// counter, and roundoff-check arming.
type BaseExp struct {
	task.Task

	input   *input.Number
	gwstate *gwarith.State
	gw      *gwarith.Arithmetic
	opts    Options

	startTime       time.Time
	elapsed         time.Duration
	transformsStart int64
	transforms      int64
	errorCheck      bool
}

func (t *BaseExp) initBase(env Env, iterations int) {
	t.opts = normalizeOptions(env.Options)
	t.DiskWriteInterval = t.opts.DiskWriteInterval
	if t.opts.StateUpdatePeriod > 0 {
		t.StateUpdatePeriod = t.opts.StateUpdatePeriod
	}
	t.Task.Init(env.File, env.Logger, env.Reporter, iterations)
	t.input = env.Input
	t.gwstate = env.GWState
	t.gw = gwarith.New(env.GWState)
	t.startTime = time.Now()
	t.transformsStart = -env.GWState.Transforms()
	t.armErrorCheck()
	t.SetTransformsFn(func() int64 { return t.gwstate.Transforms() / 2 })
}

func (t *BaseExp) armErrorCheck() {
	if *t.opts.ErrorCheckNear {
		t.errorCheck = t.gwstate.NearFFTLimit()
	} else {
		t.errorCheck = t.opts.ErrorCheckForced
	}
}

// done stops the timer, fixes the transform total, and reports completion to
// the progress sink.
func (t *BaseExp) done() {
	t.elapsed = time.Since(t.startTime)
	t.transforms = t.transformsStart + t.gwstate.Transforms()
	t.Reporter(task.ProgressUpdate{Fraction: 1.0, Transforms: t.gwstate.Transforms() / 2})
	t.Logger.SetPrefix("")
}

// Elapsed returns the wall-clock duration of the completed run.
func (t *BaseExp) Elapsed() time.Duration { return t.elapsed }

// Transforms returns the number of transforms this run performed (excluding
// whatever the backend had already counted before the run started).
func (t *BaseExp) Transforms() int64 { return t.transforms }

// Input returns the number under test.
func (t *BaseExp) Input() *input.Number { return t.input }

// Arithmetic returns the driver's operation handle. Exposed for tests.
func (t *BaseExp) Arithmetic() *gwarith.Arithmetic { return t.gw }

// Reinit tears down and rebuilds the arithmetic backend around the input
// number, preserving the cumulative transform count, and re-arms roundoff
// checking for the new transform length.
func (t *BaseExp) Reinit() error {
	count := t.gwstate.Transforms()
	t.gwstate.Done()
	if err := t.input.Setup(t.gwstate); err != nil {
		return err
	}
	t.gwstate.SetTransforms(count)
	prefix := t.Logger.Prefix()
	t.Logger.SetPrefix("")
	t.Logger.Info("restarting", logging.String("fft", t.gwstate.FFTDescription))
	t.Logger.SetPrefix(prefix)
	t.Logger.ReportParam("fft_desc", t.gwstate.FFTDescription)
	t.Logger.ReportParam("fft_len", t.gwstate.FFTLength)
	t.armErrorCheck()
	return nil
}

// check surfaces a pending roundoff condition as a recoverable error labelled
// with the current iteration.
func (t *BaseExp) check(i int) error {
	err := t.gwstate.CheckRoundoff("modmul")
	if err == nil {
		return nil
	}
	var re apperrors.RoundoffError
	if errors.As(err, &re) {
		re.Iteration = i
		return re
	}
	return err
}

// isLast reports whether i is the final iteration, where pipelining the next
// transform would be wasted.
func (t *BaseExp) isLast(i int) bool {
	return i == t.Iterations()-1
}

// commitState runs the roundoff check and the periodic commit for a plain
// residue state at iteration i.
func (t *BaseExp) commitState(ctx context.Context, i int, x *gwarith.Num) error {
	if err := t.check(i); err != nil {
		return err
	}
	return t.Commit(ctx, i, func() checkpoint.Position {
		return checkpoint.NewState(i, x.Big())
	})
}

// logRestartPosition emits the standard resume notice.
func (t *BaseExp) logRestartPosition(iteration int) {
	if iteration > 0 && t.Iterations() > 0 {
		t.Logger.Info("restarting",
			logging.Float64("percent", 100.0*float64(iteration)/float64(t.Iterations())))
	}
}

// logErrorCheck emits the arming notice.
func (t *BaseExp) logErrorCheck() {
	if t.errorCheck {
		t.Logger.Info("max roundoff check enabled")
	}
}
