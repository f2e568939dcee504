//go:build !amd64

package gwarith

// mulCoreName names the arithmetic tier the multiplication core runs on.
// Non-amd64 builds use the portable math/big paths throughout.
func mulCoreName() string { return "portable" }

// gmpCrossoverWords returns the operand size (in words) above which a GMP
// multiplication core overtakes math/big.
func gmpCrossoverWords() int { return 48 }
