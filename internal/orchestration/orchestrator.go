// Package orchestration wires a configured run together: it builds the
// matching driver, executes it under the task runner with live progress
// display, and assembles the portable result.
package orchestration

import (
	"context"
	"io"
	"math"
	"math/big"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/primecalc/internal/checkpoint"
	"github.com/agbru/primecalc/internal/cli"
	"github.com/agbru/primecalc/internal/config"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/exp"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/input"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/task"
	"github.com/agbru/primecalc/pkg/models"
)

// ProgressBufferSize is the buffer of the progress channel. A generous
// buffer keeps the driver from ever blocking on a slow display.
const ProgressBufferSize = 64

// Driver is the contract the orchestrator needs beyond task.Driver: the
// final residue and the run accounting.
type Driver interface {
	task.Driver
	Result() *big.Int
	Elapsed() time.Duration
	Transforms() int64
	Iterations() int
}

// BuildDriver constructs the driver selected by the configuration.
// "auto" chooses between plain and Gerbicz-checked multipoint execution by
// comparing the verified driver's predicted cost against the unverified
// baseline.
func BuildDriver(cfg *config.AppConfig, num *input.Number, gwstate *gwarith.State,
	logger logging.Logger, reporter task.ProgressReporter) (Driver, error) {

	env := exp.Env{
		Input:        num,
		GWState:      gwstate,
		File:         checkpoint.NewFile(cfg.StatePrefix + ".ckpt"),
		FileRecovery: checkpoint.NewFile(cfg.StatePrefix + ".rcvr"),
		Logger:       logger,
		Reporter:     reporter,
		Options:      cfg.ToExpOptions(),
	}
	base := new(big.Int).SetUint64(cfg.Base)

	switch cfg.Algo {
	case "fast", "slow":
		exponent, ok := new(big.Int).SetString(cfg.Exponent, 10)
		if !ok || exponent.Sign() <= 0 {
			return nil, apperrors.NewConfigError("cannot parse exponent %q", cfg.Exponent)
		}
		if cfg.Algo == "fast" {
			if cfg.Base > uint64(gwstate.MaxMulByConst) {
				return nil, apperrors.NewConfigError(
					"base %d exceeds the fast driver's mul-by-const maximum %d; use -algo slow",
					cfg.Base, gwstate.MaxMulByConst)
			}
			d, err := exp.NewFastExp(env, exponent, uint32(cfg.Base))
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		d, err := exp.NewSlowExp(env, exponent, base)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	points, err := cfg.CheckpointSchedule()
	if err != nil {
		return nil, err
	}
	switch cfg.Algo {
	case "multipoint":
		d, err := exp.NewMultipointExp(env, cfg.ExponentBase, points, base, nil)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "gerbicz":
		d, err := exp.NewGerbiczCheckMultipointExp(env, cfg.ExponentBase, points, base, nil)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	// auto: prefer the verified driver whenever its overhead stays small
	// relative to the unverified baseline of one b-th power per iteration.
	checked, err := exp.NewGerbiczCheckMultipointExp(env, cfg.ExponentBase, points, base, nil)
	if err != nil {
		return nil, err
	}
	baseline := float64(points[len(points)-1]) * math.Log2(float64(cfg.ExponentBase))
	if checked.Cost() <= 1.5*baseline {
		return checked, nil
	}
	logger.Info("verification overhead too high, falling back to unverified execution",
		logging.Float64("cost", checked.Cost()),
		logging.Float64("baseline", baseline))
	d, err := exp.NewMultipointExp(env, cfg.ExponentBase, points, base, nil)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ExecuteRun builds and executes the configured run, rendering progress to
// out, and returns the assembled result.
func ExecuteRun(ctx context.Context, cfg *config.AppConfig, logger logging.Logger, out io.Writer) (models.RunResult, error) {
	num, err := input.Parse(cfg.Input)
	if err != nil {
		return models.RunResult{}, err
	}
	gwstate := gwarith.NewState()
	if err := num.Setup(gwstate); err != nil {
		return models.RunResult{}, err
	}
	defer gwstate.Done()
	logger.ReportParam("fft_desc", gwstate.FFTDescription)
	logger.ReportParam("fft_len", gwstate.FFTLength)

	subject := task.NewProgressSubject()
	progressChan := make(chan task.ProgressUpdate, ProgressBufferSize)
	subject.Register(task.NewChannelObserver(progressChan))
	subject.Register(task.NewMetricsObserver())

	driver, err := BuildDriver(cfg, num, gwstate, logger, subject.AsReporter(0))
	if err != nil {
		return models.RunResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var displayWg sync.WaitGroup
	if !cfg.Quiet {
		displayWg.Add(1)
		go cli.DisplayProgress(&displayWg, progressChan, out, cfg.NoColor)
	}

	runner := &task.Runner{Logger: logger, RestartBudget: cfg.RestartBudget}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx, driver)
	})
	runErr := g.Wait()
	close(progressChan)
	displayWg.Wait()

	result := models.NewRunResult(num.DisplayText(), driver.Name(),
		driver.Iterations(), driver.Transforms(), driver.Elapsed(), driver.Result())
	result.Restarts = runner.Restarts()
	if runErr != nil {
		result.Error = runErr.Error()
		// Execution failures are a distinct class from configuration errors;
		// cancellation and restart-budget causes stay inspectable through
		// the wrapper.
		runErr = apperrors.CalculationError{Cause: runErr}
	}
	return result, runErr
}
