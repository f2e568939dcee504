package exp

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/agbru/primecalc/internal/checkpoint"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/input"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/task"
)

// testEnv builds a driver environment over the given input form with
// fresh state files and immediate disk writes.
func testEnv(t *testing.T, form string) Env {
	t.Helper()
	num, err := input.Parse(form)
	if err != nil {
		t.Fatalf("Parse(%q): %v", form, err)
	}
	st := gwarith.NewState()
	if err := num.Setup(st); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	dir := t.TempDir()
	return Env{
		Input:        num,
		GWState:      st,
		File:         checkpoint.NewFile(filepath.Join(dir, "work")),
		FileRecovery: checkpoint.NewFile(filepath.Join(dir, "recovery")),
		Logger:       &logging.NopLogger{},
	}
}

// run drives d through the task runner.
func run(t *testing.T, d task.Driver) {
	t.Helper()
	r := &task.Runner{}
	if err := r.Run(context.Background(), d); err != nil {
		t.Fatalf("Run(%s): %v", d.Name(), err)
	}
}

// newNumFor allocates a residue bound to the environment's backend.
func newNumFor(t *testing.T, env Env) *gwarith.Num {
	t.Helper()
	return gwarith.NewNum(env.GWState).SetUint(7)
}

// runQuiet drives d through the task runner and returns the error.
func runQuiet(d task.Driver) error {
	r := &task.Runner{}
	return r.Run(context.Background(), d)
}

// contextCancelledAfterOps installs an op hook that cancels the returned
// context after n backend operations, simulating a process kill mid-run.
func contextCancelledAfterOps(env Env, n int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ops := 0
	env.GWState.SetOpHook(func(int64, *big.Int) {
		ops++
		if ops == n {
			cancel()
		}
	})
	return ctx, cancel
}

// cancelCleanup removes the op hook and releases the context.
func cancelCleanup(env Env, cancel context.CancelFunc) {
	env.GWState.SetOpHook(nil)
	cancel()
}

// oracle computes base^exp mod the environment's modulus with math/big.
func oracle(env Env, base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, env.Input.Value())
}

// oraclePower computes base^(b^power) mod the environment's modulus.
func oraclePower(env Env, base *big.Int, b uint64, power int) *big.Int {
	return oracle(env, base, powUint(b, power))
}
