//go:build gmp

// This file provides a GMP-backed multiplication core, conditionally compiled
// with the "gmp" build tag. The build tag architecture ensures that:
//   - Projects can build without GMP (the default, using math/big)
//   - GMP support is opt-in, requiring: go build -tags=gmp
//   - The codebase remains portable across systems without libgmp installed

package gwarith

import (
	"math/big"

	"github.com/ncw/gmp"
)

// gmpThresholdWords is the operand size below which the cgo crossing costs
// more than GMP saves. The crossover depends on how fast math/big's own
// assembly is on this CPU.
var gmpThresholdWords = gmpCrossoverWords()

func mulCore(z, x, y *big.Int) {
	if len(x.Bits()) < gmpThresholdWords || len(y.Bits()) < gmpThresholdWords {
		z.Mul(x, y)
		return
	}
	gx := new(gmp.Int).SetBytes(x.Bytes())
	gy := new(gmp.Int).SetBytes(y.Bytes())
	gx.Mul(gx, gy)
	z.SetBytes(gx.Bytes())
	if x.Sign()*y.Sign() < 0 {
		z.Neg(z)
	}
}

func sqrCore(z, x *big.Int) {
	if len(x.Bits()) < gmpThresholdWords {
		z.Mul(x, x)
		return
	}
	gx := new(gmp.Int).SetBytes(x.Bytes())
	gx.Mul(gx, gx)
	z.SetBytes(gx.Bytes())
}
