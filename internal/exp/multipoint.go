package exp

import (
	"context"
	"math/big"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/task"
)

// MultipointExp advances a residue across an ordered checkpoint schedule.
// Between consecutive checkpoints p_k and p_{k+1} the residue is raised to
// b^(p_{k+1}-p_k): plain squarings when b is 2, sliding-window exponentiation
// otherwise. At each checkpoint the residue is validated, committed and
// handed to the onPoint callback.
type MultipointExp struct {
	BaseExp

	b      uint64
	points []int
	base   *big.Int

	x *gwarith.Num
	u []*gwarith.Num

	onPoint func(iteration int)

	lastPower  int
	segmentExp *big.Int
}

// NewMultipointExp constructs the driver that raises base to b^(p_m) mod N,
// emitting the residue at every point of the schedule. The schedule must be
// strictly increasing and positive; its last element is the total iteration
// count.
func NewMultipointExp(env Env, b uint64, points []int, base *big.Int, onPoint func(int)) (*MultipointExp, error) {
	t := &MultipointExp{onPoint: onPoint}
	if err := t.initMultipoint(env, b, points, base); err != nil {
		return nil, err
	}
	if st := readFileState(env.File); st != nil {
		t.initState(st)
	} else {
		t.initState(checkpoint.NewState(0, base))
	}
	return t, nil
}

func (t *MultipointExp) initMultipoint(env Env, b uint64, points []int, base *big.Int) error {
	if b < 2 {
		return apperrors.NewConfigError("exponent base must be at least 2, got %d", b)
	}
	if len(points) == 0 {
		return apperrors.NewConfigError("checkpoint schedule must not be empty")
	}
	prev := 0
	for _, p := range points {
		if p <= prev {
			return apperrors.NewConfigError("checkpoint schedule must be strictly increasing and positive")
		}
		prev = p
	}
	if base == nil || base.Sign() <= 0 {
		return apperrors.NewConfigError("starting residue must be positive")
	}
	t.b = b
	t.points = append([]int(nil), points...)
	t.base = new(big.Int).Set(base)
	t.lastPower = -1
	t.initBase(env, points[len(points)-1])
	return nil
}

// initState installs the starting position and logs the resume notice.
func (t *MultipointExp) initState(st *checkpoint.State) {
	t.SetPosition(st)
	t.Reporter(task.ProgressUpdate{Fraction: 0, Transforms: t.gwstate.Transforms() / 2})
	t.Logger.SetPrefix(t.input.DisplayText() + " ")
	if st.Iter > 0 {
		t.logRestartPosition(st.Iter)
	}
	t.logErrorCheck()
}

// Name implements task.Driver.
func (t *MultipointExp) Name() string { return "MultipointExp" }

// Setup acquires the working residue.
func (t *MultipointExp) Setup() error {
	t.x = gwarith.NewNum(t.gwstate)
	return nil
}

// Release frees the working residue and the window table.
func (t *MultipointExp) Release() {
	t.x = nil
	t.u = nil
}

// LastGoodIteration implements task.Driver.
func (t *MultipointExp) LastGoodIteration() int {
	if st := t.State(); st != nil {
		return st.Iteration()
	}
	return 0
}

// Points returns the checkpoint schedule.
func (t *MultipointExp) Points() []int {
	return append([]int(nil), t.points...)
}

// Execute runs (or resumes) the multipoint exponentiation.
func (t *MultipointExp) Execute(ctx context.Context) error {
	st, ok := t.State().(*checkpoint.State)
	if !ok {
		return apperrors.NewConfigError("multipoint execution requires an initial state")
	}
	i := st.Iter
	t.x.SetBig(st.X)
	nextPoint := 0
	for nextPoint < len(t.points) && i >= t.points[nextPoint] {
		nextPoint++
	}
	if i < startupCarefulOps {
		t.gw.SetCarefullyCount(startupCarefulOps - i)
	}

	for ; nextPoint < len(t.points); nextPoint++ {
		if t.b == 2 {
			for i < t.points[nextPoint] {
				t.gw.Square(t.x, t.x,
					gwarith.StartNextFFTIf(!t.isLast(i) && i+1 != t.points[nextPoint]))
				i++
				if err := t.commitState(ctx, i, t.x); err != nil {
					return err
				}
			}
		} else {
			power := t.points[nextPoint] - i
			if t.lastPower != power {
				t.lastPower = power
				t.segmentExp = powUint(t.b, power)
			}
			t.slidingWindow(t.gw, t.segmentExp)
			i = t.points[nextPoint]
			if err := t.check(i); err != nil {
				return err
			}
			if err := t.Commit(ctx, i, func() checkpoint.Position {
				return checkpoint.NewState(i, t.x.Big())
			}); err != nil {
				return err
			}
		}

		if cur := t.State(); cur == nil || cur.Iteration() != i {
			if err := t.check(i); err != nil {
				return err
			}
			if err := t.SetStateNow(checkpoint.NewState(i, t.x.Big())); err != nil {
				return err
			}
		} else if err := t.WriteState(); err != nil {
			// The commit may have refreshed the state in memory only; a
			// checkpoint is always persisted before its callback fires.
			return err
		}
		if t.onPoint != nil {
			t.onPoint(i)
			t.TouchLastWrite()
		}
	}

	t.done()
	return nil
}

// Result returns the residue at the final checkpoint after a completed
// Execute.
func (t *MultipointExp) Result() *big.Int {
	if st, ok := t.State().(*checkpoint.State); ok && st.Iter == t.Iterations() {
		return new(big.Int).Set(st.X)
	}
	return nil
}

// powUint returns b^power as a big integer.
func powUint(b uint64, power int) *big.Int {
	return new(big.Int).Exp(new(big.Int).SetUint64(b), big.NewInt(int64(power)), nil)
}
