package task

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
)

func newTestTask(t *testing.T, period int) *Task {
	t.Helper()
	tk := &Task{StateUpdatePeriod: period}
	file := checkpoint.NewFile(filepath.Join(t.TempDir(), "state"))
	tk.Init(file, nil, nil, 1000)
	return tk
}

func TestCommitRefreshCadence(t *testing.T) {
	t.Parallel()
	tk := newTestTask(t, 10)
	builds := 0
	build := func() checkpoint.Position {
		builds++
		return checkpoint.NewState(builds, big.NewInt(int64(builds)))
	}

	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		if err := tk.Commit(ctx, i, build); err != nil {
			t.Fatalf("Commit(%d): %v", i, err)
		}
	}
	if builds != 2 {
		t.Errorf("state built %d times over 25 iterations with period 10, want 2", builds)
	}
	// DiskWriteInterval zero writes on every refresh.
	if got := tk.File().ReadState(); got == nil {
		t.Fatal("refreshed state was not written")
	}
}

func TestCommitHonoursDiskWriteInterval(t *testing.T) {
	t.Parallel()
	tk := newTestTask(t, 1)
	tk.DiskWriteInterval = time.Hour
	tk.TouchLastWrite()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := tk.Commit(ctx, i, func() checkpoint.Position {
			return checkpoint.NewState(i, big.NewInt(1))
		}); err != nil {
			t.Fatal(err)
		}
	}
	if tk.File().Exists() {
		t.Error("state written to disk before the write interval elapsed")
	}
	if tk.State() == nil {
		t.Error("in-memory state should still be refreshed")
	}
}

func TestCommitPersistsOnCancellation(t *testing.T) {
	t.Parallel()
	tk := newTestTask(t, 1000) // period far away
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tk.Commit(ctx, 7, func() checkpoint.Position {
		return checkpoint.NewState(7, big.NewInt(49))
	})
	if !apperrors.IsContextError(err) {
		t.Fatalf("expected context error, got %v", err)
	}
	got := tk.File().ReadState()
	if got == nil || got.Iter != 7 {
		t.Errorf("cancellation did not persist the stop position: %+v", got)
	}
}

func TestSetStateNowWritesImmediately(t *testing.T) {
	t.Parallel()
	tk := newTestTask(t, 100)
	tk.DiskWriteInterval = time.Hour
	if err := tk.SetStateNow(checkpoint.NewState(42, big.NewInt(9))); err != nil {
		t.Fatal(err)
	}
	got := tk.File().ReadState()
	if got == nil || got.Iter != 42 {
		t.Errorf("SetStateNow did not write: %+v", got)
	}
}

func TestWriteStateHookReplacesDefault(t *testing.T) {
	t.Parallel()
	tk := newTestTask(t, 1)
	called := 0
	tk.WriteStateHook = func() error { called++; return nil }
	if err := tk.SetStateNow(checkpoint.Mark{Iter: 1}); err != nil {
		t.Fatal(err)
	}
	if called != 1 {
		t.Errorf("hook called %d times, want 1", called)
	}
	if tk.File().Exists() {
		t.Error("default write should be suppressed when the hook is set")
	}
}

func TestReportProgressThrottled(t *testing.T) {
	t.Parallel()
	var updates []ProgressUpdate
	tk := &Task{StateUpdatePeriod: 1}
	tk.Init(nil, nil, func(u ProgressUpdate) { updates = append(updates, u) }, 1000)

	for i := 0; i <= 1000; i++ {
		tk.ReportProgress(i)
	}
	if len(updates) < 2 {
		t.Fatal("expected progress updates")
	}
	// Throttle: roughly one update per percent, not one per iteration.
	if len(updates) > 150 {
		t.Errorf("got %d updates for 1000 iterations, throttling ineffective", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Fraction != 1.0 {
		t.Errorf("final fraction = %f, want 1.0", last.Fraction)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Fraction < updates[i-1].Fraction {
			t.Fatal("progress must be monotonic")
		}
	}
}

type fakeDriver struct {
	name       string
	failures   []error // consumed one per Execute call
	setups     int
	releases   int
	reinits    int
	executions int
	lastGood   int
}

func (d *fakeDriver) Name() string { return d.name }
func (d *fakeDriver) Setup() error { d.setups++; return nil }
func (d *fakeDriver) Execute(ctx context.Context) error {
	d.executions++
	if len(d.failures) == 0 {
		return nil
	}
	err := d.failures[0]
	d.failures = d.failures[1:]
	return err
}
func (d *fakeDriver) Release()               { d.releases++ }
func (d *fakeDriver) Reinit() error          { d.reinits++; return nil }
func (d *fakeDriver) LastGoodIteration() int { return d.lastGood }

func TestRunnerCompletesWithoutRestart(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{name: "fast"}
	r := &Runner{}
	if err := r.Run(context.Background(), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.executions != 1 || d.setups != 1 || d.releases != 1 {
		t.Errorf("lifecycle counts: %+v", d)
	}
}

func TestRunnerRetriesOnGerbiczReject(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{
		name:     "gerbicz",
		failures: []error{apperrors.RestartError{FailedAt: 100, RecoveryIteration: 0}},
	}
	r := &Runner{}
	if err := r.Run(context.Background(), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.executions != 2 {
		t.Errorf("executions = %d, want 2", d.executions)
	}
	if d.reinits != 0 {
		t.Error("a verification reject must not rebuild the backend")
	}
	if d.releases != 2 {
		t.Errorf("Release must run on every exit path, got %d", d.releases)
	}
}

func TestRunnerRebuildsOnRoundoff(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{
		name:     "fast",
		failures: []error{apperrors.NewRoundoffError("square", 55)},
	}
	r := &Runner{}
	if err := r.Run(context.Background(), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.reinits != 1 {
		t.Errorf("reinits = %d, want 1", d.reinits)
	}
}

func TestRunnerExhaustsBudget(t *testing.T) {
	t.Parallel()
	reject := apperrors.RestartError{FailedAt: 10, RecoveryIteration: 4}
	d := &fakeDriver{
		name:     "gerbicz",
		failures: []error{reject, reject, reject},
		lastGood: 4,
	}
	r := &Runner{RestartBudget: 2}
	err := r.Run(context.Background(), d)
	var fatal apperrors.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if fatal.LastGoodIteration != 4 {
		t.Errorf("LastGoodIteration = %d, want 4", fatal.LastGoodIteration)
	}
}

func TestRunnerPropagatesNonRecoverable(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{name: "fast", failures: []error{context.Canceled}}
	r := &Runner{}
	err := r.Run(context.Background(), d)
	if !apperrors.IsContextError(err) {
		t.Fatalf("expected context error, got %v", err)
	}
	if d.executions != 1 {
		t.Error("non-recoverable errors must not retry")
	}
}
