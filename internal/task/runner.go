package task

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/logging"
)

var (
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primecalc_executions_total",
			Help: "The total number of exponentiation runs processed",
		},
		[]string{"driver", "status"},
	)
	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "primecalc_execution_duration_seconds",
			Help: "The duration of exponentiation runs in seconds",
		},
		[]string{"driver"},
	)
	restartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "primecalc_restarts_total",
			Help: "The total number of recoverable restarts",
		},
	)
	gerbiczChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primecalc_gerbicz_checks_total",
			Help: "The total number of Gerbicz verifications by verdict",
		},
		[]string{"verdict"},
	)
)

// RecordGerbiczCheck counts one Gerbicz verification outcome.
func RecordGerbiczCheck(ok bool) {
	verdict := "accepted"
	if !ok {
		verdict = "rejected"
	}
	gerbiczChecksTotal.WithLabelValues(verdict).Inc()
}

// Driver is the lifecycle contract implemented by every exponentiation
// strategy. Setup acquires residues and tables, Execute runs the iteration
// loop, Release frees everything on any exit path, and Reinit rebuilds the
// arithmetic backend after a transient fault.
type Driver interface {
	// Name returns the display name of the strategy.
	Name() string
	// Setup acquires the resources Execute needs.
	Setup() error
	// Execute runs (or resumes) the iteration loop.
	Execute(ctx context.Context) error
	// Release frees the resources acquired by Setup.
	Release()
	// Reinit tears down and rebuilds the arithmetic backend, preserving
	// cumulative work counters.
	Reinit() error
	// LastGoodIteration is the most recent iteration known to hold a correct
	// residue; fatal errors surface it to the caller.
	LastGoodIteration() int
}

// Runner drives a Driver to completion, absorbing recoverable errors within
// the restart budget.
type Runner struct {
	// Logger receives restart notices. Defaults to a no-op logger.
	Logger logging.Logger
	// RestartBudget is the number of recoverable restarts allowed; zero means
	// DefaultRestartBudget.
	RestartBudget int

	totalRestarts int
}

// Restarts returns the number of recoverable restarts absorbed by the last
// Run call.
func (r *Runner) Restarts() int { return r.totalRestarts }

// Run executes the driver until completion, a non-recoverable error, context
// cancellation, or exhaustion of the restart budget. Verification rejects
// re-enter Execute from the recovery state; roundoff faults additionally
// rebuild the backend first.
func (r *Runner) Run(ctx context.Context, d Driver) (err error) {
	tracer := otel.Tracer("primecalc")
	ctx, span := tracer.Start(ctx, "task.Run")
	defer span.End()

	logger := r.Logger
	if logger == nil {
		logger = &logging.NopLogger{}
	}
	budget := r.RestartBudget
	if budget <= 0 {
		budget = DefaultRestartBudget
	}

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		executionsTotal.WithLabelValues(d.Name(), status).Inc()
		executionDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	restarts := 0
	r.totalRestarts = 0
	lastGood := d.LastGoodIteration()
	for {
		err = func() error {
			if e := d.Setup(); e != nil {
				return e
			}
			defer d.Release()
			return d.Execute(ctx)
		}()
		if err == nil {
			return nil
		}
		if !apperrors.IsRecoverable(err) {
			return err
		}

		// Verified progress since the previous failure clears the counter:
		// the budget bounds consecutive fruitless restarts, not total ones.
		if d.LastGoodIteration() > lastGood {
			lastGood = d.LastGoodIteration()
			restarts = 0
		}
		restarts++
		r.totalRestarts++
		restartsTotal.Inc()
		if restarts > budget {
			return apperrors.FatalError{Cause: err, LastGoodIteration: d.LastGoodIteration()}
		}
		logger.Error("restarting after recoverable error", err,
			logging.Int("attempt", restarts),
			logging.Int("budget", budget),
			logging.Int("recovery_iteration", d.LastGoodIteration()),
		)
		var re apperrors.RoundoffError
		if errors.As(err, &re) {
			if e := d.Reinit(); e != nil {
				return apperrors.WrapError(e, "backend rebuild failed")
			}
		}
	}
}
