package exp

import (
	"context"
	"math/big"

	"github.com/agbru/primecalc/internal/checkpoint"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
)

// FastExp raises a small integer base to an arbitrary exponent modulo N using
// left-to-right binary exponentiation. The base rides along as the backend's
// fused mul-by-const, so every iteration is a single squaring.
type FastExp struct {
	BaseExp

	exp *big.Int
	x0  uint32
	x   *gwarith.Num
}

// NewFastExp constructs the driver for x0^exponent mod N. The base must not
// exceed the backend's mul-by-const maximum; violating that is a
// configuration error, detected at construction.
func NewFastExp(env Env, exponent *big.Int, x0 uint32) (*FastExp, error) {
	if exponent == nil || exponent.BitLen() == 0 {
		return nil, apperrors.NewConfigError("exponent must be positive")
	}
	if x0 > env.GWState.MaxMulByConst {
		return nil, apperrors.NewConfigError("base %d exceeds backend mul-by-const maximum %d",
			x0, env.GWState.MaxMulByConst)
	}
	t := &FastExp{exp: new(big.Int).Set(exponent), x0: x0}
	t.initBase(env, exponent.BitLen()-1)
	if st := readFileState(env.File); st != nil {
		t.SetPosition(st)
	}
	t.Logger.SetPrefix(env.Input.DisplayText() + " ")
	if t.State() != nil {
		t.logRestartPosition(t.State().Iteration())
	}
	t.logErrorCheck()
	return t, nil
}

// readFileState loads a plain residue state, treating a nil file as absent.
func readFileState(f *checkpoint.File) *checkpoint.State {
	if f == nil {
		return nil
	}
	return f.ReadState()
}

// Name implements task.Driver.
func (t *FastExp) Name() string { return "FastExp" }

// Setup acquires the working residue.
func (t *FastExp) Setup() error {
	t.x = gwarith.NewNum(t.gwstate)
	return nil
}

// Release frees the working residue.
func (t *FastExp) Release() {
	t.x = nil
}

// LastGoodIteration implements task.Driver.
func (t *FastExp) LastGoodIteration() int {
	if st := t.State(); st != nil {
		return st.Iteration()
	}
	return 0
}

// Execute runs (or resumes) the exponentiation. One iteration per exponent
// bit below the MSB: square, fused-multiplying by the base when the bit is
// set.
func (t *FastExp) Execute(ctx context.Context) error {
	x := t.x
	var i int
	if st, ok := t.State().(*checkpoint.State); ok {
		i = st.Iter
		x.SetBig(st.X)
	} else {
		i = 0
		x.SetUint(uint64(t.x0))
		t.gw.SetCarefullyCount(startupCarefulOps)
	}
	if err := t.gw.SetMulByConst(t.x0); err != nil {
		return err
	}

	length := t.Iterations()
	for i < length {
		flags := gwarith.StartNextFFTIf(!t.isLast(i))
		if t.exp.Bit(length-i-1) == 1 {
			flags |= gwarith.MulByConst
		}
		t.gw.Square(x, x, flags)
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
func (t *FastExp) Result() *big.Int {
	if st, ok := t.State().(*checkpoint.State); ok && st.Iter == t.Iterations() {
		return new(big.Int).Set(st.X)
	}
	return nil
}
