//go:build !gmp

package gwarith

import "math/big"

// mulCore computes z = x*y using math/big (Karatsuba above the stdlib's
// internal thresholds).
func mulCore(z, x, y *big.Int) {
	z.Mul(x, y)
}

// sqrCore computes z = x*x. math/big recognises the aliased operands and uses
// its squaring path.
func sqrCore(z, x *big.Int) {
	z.Mul(x, x)
}
