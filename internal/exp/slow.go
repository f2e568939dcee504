package exp

import (
	"context"
	"math/big"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/task"
)

// SlowExp raises an arbitrary residue base to an arbitrary exponent modulo N
// using left-to-right binary exponentiation. Each set exponent bit costs an
// extra multiplication by the base, held as a full residue.
type SlowExp struct {
	BaseExp

	exp  *big.Int
	base *big.Int
	x    *gwarith.Num
	x0   *gwarith.Num
}

// NewSlowExp constructs the driver for base^exponent mod N.
func NewSlowExp(env Env, exponent, base *big.Int) (*SlowExp, error) {
	if exponent == nil || exponent.BitLen() == 0 {
		return nil, apperrors.NewConfigError("exponent must be positive")
	}
	if base == nil || base.Sign() < 0 {
		return nil, apperrors.NewConfigError("base must be a non-negative integer")
	}
	t := &SlowExp{exp: new(big.Int).Set(exponent), base: new(big.Int).Set(base)}
	// Set bits cost a multiplication on top of the squaring, about 1.5x the
	// transforms per iteration, so states refresh proportionally more often.
	t.StateUpdatePeriod = int(task.MulsPerStateUpdate / 1.5)
	t.initBase(env, exponent.BitLen()-1)
	if st := readFileState(env.File); st != nil {
		t.SetPosition(st)
	}
	t.Logger.SetPrefix(env.Input.DisplayText() + " ")
	if t.State() != nil {
		t.logRestartPosition(t.State().Iteration())
	}
	return t, nil
}

// Name implements task.Driver.
func (t *SlowExp) Name() string { return "SlowExp" }

// Setup acquires the working residues.
func (t *SlowExp) Setup() error {
	t.x = gwarith.NewNum(t.gwstate)
	t.x0 = gwarith.NewNum(t.gwstate)
	return nil
}

// Release frees the working residues.
func (t *SlowExp) Release() {
	t.x = nil
	t.x0 = nil
}

// LastGoodIteration implements task.Driver.
func (t *SlowExp) LastGoodIteration() int {
	if st := t.State(); st != nil {
		return st.Iteration()
	}
	return 0
}

// Execute runs (or resumes) the exponentiation.
func (t *SlowExp) Execute(ctx context.Context) error {
	x := t.x
	x0 := t.x0
	x0.SetBig(t.base)
	var i int
	if st, ok := t.State().(*checkpoint.State); ok {
		i = st.Iter
		x.SetBig(st.X)
	} else {
		i = 0
		x.Set(x0)
		t.gw.SetCarefullyCount(startupCarefulOps)
	}

	length := t.Iterations()
	for i < length {
		bit := t.exp.Bit(length-i-1) == 1
		t.gw.Square(x, x, gwarith.StartNextFFTIf(!t.isLast(i) || bit))
		if bit {
			t.gw.Mul(x, x0, x, gwarith.StartNextFFTIf(!t.isLast(i)))
		}
		i++
		if err := t.commitState(ctx, i, x); err != nil {
			return err
		}
	}

	if err := t.SetStateNow(checkpoint.NewState(i, x.Big())); err != nil {
		return err
	}
	t.done()
	return nil
}

// Result returns the final residue after a completed Execute.
func (t *SlowExp) Result() *big.Int {
	if st, ok := t.State().(*checkpoint.State); ok && st.Iter == t.Iterations() {
		return new(big.Int).Set(st.X)
	}
	return nil
}
