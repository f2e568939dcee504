package exp

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/task"
)

// GerbiczCheckMultipointExp layers the Gerbicz error-detection protocol over
// multipoint exponentiation. Work proceeds in blocks of L2 = q*L iterations;
// a rolling accumulator D folds in the residue every L iterations, and at the
// end of each block the identity
//
//	X^(b^L) == R * D (mod N)
//
// is verified with all multiplications in careful mode. On acceptance the
// recovery residue R advances to the block's final X; on rejection the block
// is discarded and execution restarts from R.
type GerbiczCheckMultipointExp struct {
	MultipointExp

	l  int
	l2 int

	fileRecovery  *checkpoint.File
	recovery      *checkpoint.State
	recoveryDirty bool

	r *gwarith.Num
	d *gwarith.Num
}

// GerbiczParams derives the block parameters (L, L2) for a run of the given
// length. Candidate block lengths start at floor(sqrt(iters)) and run upward
// while L^2 < 2*iters; the candidate with the largest coverage
// L2 = iters - iters mod L wins, ties keeping the smaller L. Block lengths
// below floor(sqrt(iters)) are not considered.
func GerbiczParams(iters int, log2b float64) (l, l2 int) {
	if iters < 1 {
		return 1, 1
	}
	// The base factor is deliberately ignored: block length tracks
	// sqrt(iters) regardless of b.
	//if log2b > 1.5 {
	//	log2b /= 2
	//}
	log2b = 1
	l = int(math.Sqrt(float64(iters) / log2b))
	if l < 1 {
		l = 1
	}
	l2 = iters - iters%l
	for i := l + 1; float64(i)*float64(i) < 2*float64(iters)/log2b; i++ {
		if l2 < iters-iters%i {
			l = i
			l2 = iters - iters%i
		}
	}
	return l, l2
}

// NewGerbiczCheckMultipointExp constructs the verified driver. env.File is
// the working file (frequent writes), env.FileRecovery the recovery file
// (written only at verified block boundaries).
func NewGerbiczCheckMultipointExp(env Env, b uint64, points []int, base *big.Int, onPoint func(int)) (*GerbiczCheckMultipointExp, error) {
	t := &GerbiczCheckMultipointExp{fileRecovery: env.FileRecovery}
	t.onPoint = onPoint
	// Heavier iterations (log2(b) squarings each) commit proportionally more
	// often.
	env.Options = normalizeOptions(env.Options)
	if env.Options.StateUpdatePeriod == 0 {
		env.Options.StateUpdatePeriod = int(float64(task.MulsPerStateUpdate) / math.Log2(float64(b)))
	}
	if err := t.initMultipoint(env, b, points, base); err != nil {
		return nil, err
	}
	t.l, t.l2 = GerbiczParams(t.Iterations()/t.opts.ChecksPerPoint, math.Log2(float64(b)))
	t.WriteStateHook = t.writeStates

	var recovered *checkpoint.State
	if env.FileRecovery != nil {
		recovered = env.FileRecovery.ReadState()
	}
	if recovered == nil {
		recovered = checkpoint.NewState(0, base)
		t.recoveryDirty = true
	}
	t.initRecoveryState(recovered)
	return t, nil
}

// L returns the fold spacing.
func (t *GerbiczCheckMultipointExp) L() int { return t.l }

// L2 returns the block length.
func (t *GerbiczCheckMultipointExp) L2() int { return t.l2 }

// initRecoveryState installs the recovery state and reconciles the working
// position with it: a working state outside [recovery, recovery+L2) is
// stale (or ahead of a rewound recovery) and collapses to a bare marker at
// the recovery iteration.
func (t *GerbiczCheckMultipointExp) initRecoveryState(st *checkpoint.State) {
	t.Reporter(task.ProgressUpdate{Fraction: 0, Transforms: t.gwstate.Transforms() / 2})
	t.Logger.SetPrefix(t.input.DisplayText() + " ")
	if t.recovery == nil {
		t.Logger.Info("Gerbicz check enabled",
			logging.Int("L", t.l),
			logging.Int("blocks", t.l2/t.l))
		t.logErrorCheck()
	}
	t.recovery = st

	working := t.workingCheckState()
	if working == nil || working.Iter < st.Iter || working.Iter >= st.Iter+t.l2 {
		t.SetPosition(checkpoint.Mark{Iter: st.Iter})
	} else {
		t.SetPosition(working)
	}
	if t.State().Iteration() > 0 {
		t.logRestartPosition(t.State().Iteration())
	}
}

// workingCheckState loads the working file's check state, if that is what it
// currently holds.
func (t *GerbiczCheckMultipointExp) workingCheckState() *checkpoint.CheckState {
	if t.File() == nil {
		return nil
	}
	return t.File().ReadCheckState()
}

// stateCheck returns the in-memory position as a check state, or nil when the
// position is a bare marker.
func (t *GerbiczCheckMultipointExp) stateCheck() *checkpoint.CheckState {
	cs, _ := t.State().(*checkpoint.CheckState)
	return cs
}

// writeStates persists the recovery file (when dirty) strictly before the
// working file, so a crash between the two leaves a recovery file that lags
// the working file: a valid restart position.
func (t *GerbiczCheckMultipointExp) writeStates() error {
	if t.fileRecovery != nil && t.recoveryDirty {
		if err := t.fileRecovery.Write(t.recovery); err != nil {
			return err
		}
		t.recoveryDirty = false
	}
	if t.File() != nil && t.State() != nil {
		return t.File().Write(t.State())
	}
	return nil
}

// Name implements task.Driver.
func (t *GerbiczCheckMultipointExp) Name() string { return "GerbiczCheckMultipointExp" }

// Setup acquires the working residues. R is materialised from the recovery
// state on every Setup, so each re-entry of Execute restarts from it.
func (t *GerbiczCheckMultipointExp) Setup() error {
	if err := t.MultipointExp.Setup(); err != nil {
		return err
	}
	t.d = gwarith.NewNum(t.gwstate)
	t.r = gwarith.NewNum(t.gwstate)
	t.r.SetBig(t.recovery.X)
	return nil
}

// Release frees the working residues, the accumulator D and R.
func (t *GerbiczCheckMultipointExp) Release() {
	t.d = nil
	t.r = nil
	t.MultipointExp.Release()
}

// LastGoodIteration implements task.Driver: the recovery iteration is the
// last point known to hold a verified residue.
func (t *GerbiczCheckMultipointExp) LastGoodIteration() int {
	if t.recovery != nil {
		return t.recovery.Iter
	}
	return 0
}

// Cost predicts the total transform-weighted operation count of the run,
// letting callers choose between exponentiation strategies.
func (t *GerbiczCheckMultipointExp) Cost() float64 {
	n := t.points[len(t.points)-1]
	if t.b == 2 {
		return float64(n + n/t.l + n/t.l2*t.l)
	}
	log2b := math.Log2(float64(t.b))
	w := chooseWindow(log2b*float64(t.l), t.opts.MaxWindow, t.opts.MaxTableSize)
	perRun := float64(int(1)<<(w-1)) + log2b*float64(t.l)*(1+1/float64(w+1))
	return float64(n/t.l) + float64(n/t.l+n/t.l2)*perRun
}

// commitCheck is the inner-loop commit for the verified driver: the working
// state carries both the residue and the accumulator.
func (t *GerbiczCheckMultipointExp) commitCheck(ctx context.Context, i int) error {
	return t.Commit(ctx, i, func() checkpoint.Position {
		return checkpoint.NewCheckState(i, t.x.Big(), t.d.Big())
	})
}

// emitInnerPoint handles a checkpoint crossed mid-block: validate, persist
// the full check state, and notify.
func (t *GerbiczCheckMultipointExp) emitInnerPoint(i int) error {
	if err := t.check(i); err != nil {
		return err
	}
	if err := t.SetStateNow(checkpoint.NewCheckState(i, t.x.Big(), t.d.Big())); err != nil {
		return err
	}
	if t.onPoint != nil {
		t.onPoint(i)
	}
	return nil
}

// Execute runs (or resumes) the verified multipoint exponentiation.
func (t *GerbiczCheckMultipointExp) Execute(ctx context.Context) error {
	var i int
	if cs := t.stateCheck(); cs == nil {
		i = t.recovery.Iter
		t.x.Set(t.r)
		t.d.Set(t.r)
	} else {
		i = cs.Iter
		t.x.SetBig(cs.X)
		t.d.SetBig(cs.D)
	}
	nextPoint := 0
	for nextPoint < len(t.points) && i >= t.points[nextPoint] {
		nextPoint++
	}
	if i < startupCarefulOps {
		t.gw.SetCarefullyCount(startupCarefulOps - i)
	}

	for ; nextPoint < len(t.points); nextPoint++ {
		l := t.l
		l2 := t.l2
		// Keep block boundaries aligned to the next checkpoint: shrink the
		// block until it fits the remaining distance.
		for t.points[nextPoint]-t.recovery.Iter < l2 && l > 1 {
			l /= 2
			l2 = l * l
			t.lastPower = -1
		}
		if i-t.recovery.Iter > l2 {
			t.SetPosition(checkpoint.Mark{Iter: t.recovery.Iter})
			return fmt.Errorf("working state %d is beyond the current block of %d: %w",
				i, t.recovery.Iter, apperrors.ErrTaskRestart)
		}

		if t.b == 2 {
			for j := i - t.recovery.Iter; j < l2; j++ {
				t.gw.Square(t.x, t.x,
					gwarith.StartNextFFTIf(!t.isLast(i) && i+1 != t.points[nextPoint] && j+1 != l2))
				if j+1 != l2 && i+1 == t.points[nextPoint] {
					if err := t.emitInnerPoint(i + 1); err != nil {
						return err
					}
					nextPoint++
				}
				if j+1 != l2 && (j+1)%l == 0 {
					t.gw.Mul(t.x, t.d, t.d,
						gwarith.FFTS1|gwarith.StartNextFFTIf(j+1+l != l2))
				}
				i++
				if err := t.commitCheck(ctx, i); err != nil {
					return err
				}
			}
		} else {
			if (i-t.recovery.Iter)%l != 0 {
				t.SetPosition(checkpoint.Mark{Iter: t.recovery.Iter})
				return fmt.Errorf("working state %d not aligned to block spacing %d: %w",
					i, l, apperrors.ErrTaskRestart)
			}
			for j := i - t.recovery.Iter; j < l2; j += l {
				if t.lastPower != l {
					t.lastPower = l
					t.segmentExp = powUint(t.b, l)
				}
				t.slidingWindow(t.gw, t.segmentExp)
				if j+l != l2 && i+l == t.points[nextPoint] {
					if err := t.emitInnerPoint(i + l); err != nil {
						return err
					}
					nextPoint++
				}
				if j+l != l2 {
					t.gw.Mul(t.x, t.d, t.d,
						gwarith.FFTS1|gwarith.StartNextFFTIf(j+l+l != l2))
				}
				i += l
				if err := t.commitCheck(ctx, i); err != nil {
					return err
				}
			}
		}
		if err := t.check(i); err != nil {
			return err
		}

		if err := t.verifyBlock(i, l); err != nil {
			return err
		}

		if i != t.points[nextPoint] {
			// Block boundary short of the checkpoint: run the next block
			// toward the same point.
			nextPoint--
			continue
		}
		if t.onPoint != nil {
			t.onPoint(i)
			t.TouchLastWrite()
		}
	}

	t.done()
	return nil
}

// Result returns the verified residue at the final checkpoint after a
// completed Execute.
func (t *GerbiczCheckMultipointExp) Result() *big.Int {
	if t.recovery != nil && t.recovery.Iter == t.Iterations() {
		return new(big.Int).Set(t.recovery.X)
	}
	return nil
}

// verifyBlock performs the end-of-block Gerbicz verification at iteration i
// with fold spacing l. All multiplications run in careful mode. On acceptance
// the recovery state advances to i; on rejection the working state rewinds to
// the recovery iteration and a restart is signalled.
func (t *GerbiczCheckMultipointExp) verifyBlock(i, l int) error {
	t.Logger.Debug("performing Gerbicz check", logging.Int("iteration", i))

	careful := t.gw.Carefully()
	tmp := gwarith.NewNum(t.gwstate).Set(t.d)
	careful.Mul(t.x, t.d, t.d, 0)
	gwarith.Swap(tmp, t.x) // x = old D, tmp = the residue
	if t.b == 2 {
		for j := 0; j < l; j++ {
			careful.Square(t.x, t.x, 0)
		}
	} else {
		if t.lastPower != l {
			t.lastPower = l
			t.segmentExp = powUint(t.b, l)
		}
		t.slidingWindow(careful, t.segmentExp)
	}
	careful.Mul(t.r, t.x, t.x, 0)
	careful.Sub(t.x, t.d, t.x, 0)
	gwarith.Swap(tmp, t.x) // x = the residue, tmp = the check value

	if !tmp.IsZero() || t.d.IsZero() {
		task.RecordGerbiczCheck(false)
		t.Logger.Error("Gerbicz check failed", nil,
			logging.Float64("percent", 100.0*float64(i)/float64(t.Iterations())))
		t.SetPosition(checkpoint.Mark{Iter: t.recovery.Iter})
		if err := t.WriteState(); err != nil {
			t.Logger.Error("failed to rewind working state", err)
		}
		return apperrors.RestartError{FailedAt: i, RecoveryIteration: t.recovery.Iter}
	}

	task.RecordGerbiczCheck(true)
	t.r.Set(t.x)
	t.d.Set(t.x)
	t.recovery = checkpoint.NewState(i, t.r.Big())
	t.recoveryDirty = true
	t.SetPosition(checkpoint.Mark{Iter: i})
	return t.WriteState()
}
