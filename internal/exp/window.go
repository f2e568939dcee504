package exp

import (
	"math/big"

	"github.com/agbru/primecalc/internal/gwarith"
)

// chooseWindow selects the sliding-window width for an exponent of the given
// effective length: the smallest W >= 2 such that widening the window further
// no longer reduces the predicted cost
//
//	2^(W-1) + len*(1 + 1/(W+1))
//
// (table precomputation plus squarings and amortised window multiplies),
// subject to the table-capacity bound 2^(W+1) <= maxTableSize and the
// advisory maximum maxWindow. A bound of -1 is disabled. Ties keep the
// smaller W.
func chooseWindow(length float64, maxWindow, maxTableSize int) int {
	w := 2
	for (w < maxWindow || maxWindow == -1) &&
		(1<<(w+2) <= maxTableSize || maxTableSize == -1) &&
		float64(int(1)<<(w-1))+length*(1+1/float64(w+1)) >
			float64(int(1)<<w)+length*(1+1/float64(w+2)) {
		w++
	}
	return w
}

// slidingWindow raises the working residue X to the given exponent using
// left-to-right sliding-window exponentiation over ar (regular or careful).
// The odd-multiples table U is grown on demand and reused across calls:
// U[i] holds X^(2i+1), with X^2 as the stride during precomputation.
func (t *MultipointExp) slidingWindow(ar *gwarith.Arithmetic, exp *big.Int) {
	length := exp.BitLen() - 1
	w := chooseWindow(float64(length), t.opts.MaxWindow, t.opts.MaxTableSize)

	if len(t.u) == 0 {
		t.u = append(t.u, gwarith.NewNum(t.gwstate))
	}
	gwarith.Swap(t.u[0], t.x)
	ar.Square(t.u[0], t.x, gwarith.StartNextFFT)
	for i := 1; i < 1<<(w-1); i++ {
		if len(t.u) <= i {
			t.u = append(t.u, gwarith.NewNum(t.gwstate))
		}
		ar.Mul(t.x, t.u[i-1], t.u[i], gwarith.FFTS1|gwarith.FFTS2|gwarith.StartNextFFT)
	}

	i := length
	for i >= 0 {
		if exp.Bit(i) == 0 {
			ar.Square(t.x, t.x, gwarith.StartNextFFTIf(i > 0))
			i--
			continue
		}

		j := i - w + 1
		if j < 0 {
			j = 0
		}
		for exp.Bit(j) == 0 {
			j++
		}
		ui := 0
		if i == length {
			// First window of the scan: no squarings have happened yet, the
			// residue is simply the matching table entry.
			for i >= j {
				ui = ui<<1 | int(exp.Bit(i))
				i--
			}
			t.x.Set(t.u[ui/2])
			continue
		}

		for i >= j {
			ar.Square(t.x, t.x, gwarith.StartNextFFT)
			ui = ui<<1 | int(exp.Bit(i))
			i--
		}
		ar.Mul(t.u[ui/2], t.x, t.x, gwarith.FFTS1|gwarith.StartNextFFTIf(i > 0))
	}
}
