// Package gwarith implements the modular ring arithmetic backend used by the
// exponentiation drivers. Residues live in Z/NZ for a fixed modulus N; the
// backend tracks transform counts the way an FFT multiplier would, honours
// pipelining hints as accounting signals, and exposes a "careful" variant with
// conservative behaviour for verification phases.
//
// The implementation is exact (math/big), so roundoff never occurs
// spontaneously; the roundoff/transient-error protocol is still fully wired so
// drivers can recover from injected or external faults. With the "gmp" build
// tag, large products route through GMP.
package gwarith

import (
	"fmt"
	"math/big"
	"math/bits"

	apperrors "github.com/agbru/primecalc/internal/errors"
)

// Flags are per-operation hints mirroring an FFT multiplier's options. They
// never change the mathematical result; they drive transform accounting and
// mark intent (pipelining, cached operands, fused mul-by-const).
type Flags uint32

const (
	// StartNextFFT asks the backend to leave the result in transformed state
	// so the next operation can skip a forward transform.
	StartNextFFT Flags = 1 << iota
	// MulByConst additionally multiplies the result by the small constant set
	// with SetMulByConst.
	MulByConst
	// FFTS1 marks the first source operand as already transformed.
	FFTS1
	// FFTS2 marks the second source operand as already transformed.
	FFTS2
)

// StartNextFFTIf returns StartNextFFT when cond holds, and no flags otherwise.
func StartNextFFTIf(cond bool) Flags {
	if cond {
		return StartNextFFT
	}
	return 0
}

// DefaultMaxMulByConst is the largest constant accepted by SetMulByConst.
// Fused constant multiplication only stays exact for small constants.
const DefaultMaxMulByConst = 255

const wordBits = bits.UintSize

// OpHook observes every completed modular operation. opIndex increases by one
// per operation; dst is the raw destination value and may be mutated, which is
// how soft computational errors are injected in fault-tolerance tests.
type OpHook func(opIndex int64, dst *big.Int)

// State carries the backend configuration around a single modulus N: the
// chosen FFT length, cumulative transform count, the pending careful-operation
// budget and the current mul-by-const value. A State is owned by exactly one
// driver at a time.
type State struct {
	n        *big.Int
	fftWords int

	// FFTDescription is a human-readable description of the transform setup.
	FFTDescription string
	// FFTLength is the transform length in words.
	FFTLength int
	// MaxMulByConst bounds the constant accepted by SetMulByConst.
	MaxMulByConst uint32

	transforms  int64
	opCount     int64
	carefulLeft int
	mulByConst  uint32
	roundoff    bool
	opHook      OpHook
}

// NewState creates an unconfigured State. Call Init before use.
func NewState() *State {
	return &State{MaxMulByConst: DefaultMaxMulByConst}
}

// Init configures the backend around the modulus N, choosing the transform
// length. The cumulative transform count is preserved across Init calls so a
// rebuilt backend keeps reporting monotonic work totals.
func (s *State) Init(n *big.Int) error {
	if n == nil || n.Sign() <= 0 || n.Cmp(big.NewInt(1)) == 0 {
		return apperrors.NewConfigError("modulus must be an integer greater than 1")
	}
	s.n = new(big.Int).Set(n)
	words := len(s.n.Bits())
	s.fftWords = 1
	for s.fftWords < 2*words {
		s.fftWords <<= 1
	}
	s.FFTLength = s.fftWords
	s.FFTDescription = fmt.Sprintf("modular FFT length %s, %d-bit words, %s core",
		formatLength(s.fftWords), wordBits, mulCoreName())
	s.roundoff = false
	s.carefulLeft = 0
	return nil
}

// Done releases the state. The transform counter survives so callers can read
// totals after teardown.
func (s *State) Done() {
	s.n = nil
	s.fftWords = 0
	s.FFTDescription = ""
	s.FFTLength = 0
}

// Configured reports whether Init has been called since the last Done.
func (s *State) Configured() bool { return s.n != nil }

// Modulus returns a copy of the configured modulus.
func (s *State) Modulus() *big.Int {
	if s.n == nil {
		return nil
	}
	return new(big.Int).Set(s.n)
}

// Transforms returns the cumulative transform count.
func (s *State) Transforms() int64 { return s.transforms }

// SetTransforms overrides the cumulative transform count. Used when a rebuilt
// backend must continue from the totals of the one it replaces.
func (s *State) SetTransforms(n int64) { s.transforms = n }

// NearFFTLimit reports whether the modulus occupies the top few percent of the
// transform capacity, where roundoff headroom is smallest. Drivers arm
// per-operation error checking when this holds.
func (s *State) NearFFTLimit() bool {
	if s.n == nil {
		return false
	}
	capacity := s.fftWords * wordBits / 2
	return s.n.BitLen()*50 >= capacity*49
}

// SetOpHook installs an operation hook (nil removes it).
func (s *State) SetOpHook(h OpHook) { s.opHook = h }

// FlagRoundoff marks the state as having exceeded the roundoff bound. The
// condition is observed by the next CheckRoundoff call.
func (s *State) FlagRoundoff() { s.roundoff = true }

// CheckRoundoff reports a pending roundoff condition as a RoundoffError and
// clears it. Returns nil when no fault is pending.
func (s *State) CheckRoundoff(op string) error {
	if !s.roundoff {
		return nil
	}
	s.roundoff = false
	return apperrors.RoundoffError{Op: op}
}

// formatLength renders a transform length the way FFT libraries print them:
// 2048 -> "2K", 1572864 -> "1536K".
func formatLength(words int) string {
	if words >= 1024 && words%1024 == 0 {
		return fmt.Sprintf("%dK", words/1024)
	}
	return fmt.Sprintf("%d", words)
}

// Num is a residue in Z/NZ owned by a State. Conversions to and from the
// portable big.Int representation are explicit.
type Num struct {
	st *State
	v  *big.Int
}

// NewNum allocates a zero residue bound to st.
func NewNum(st *State) *Num {
	return &Num{st: st, v: new(big.Int)}
}

// SetUint sets x to the residue of u.
func (x *Num) SetUint(u uint64) *Num {
	x.v.SetUint64(u)
	if x.st.n != nil {
		x.v.Mod(x.v, x.st.n)
	}
	return x
}

// SetBig sets x to the residue of b.
func (x *Num) SetBig(b *big.Int) *Num {
	x.v.Mod(b, x.st.n)
	return x
}

// Set copies the value of y into x. Both must belong to the same State.
func (x *Num) Set(y *Num) *Num {
	x.v.Set(y.v)
	return x
}

// Big returns the portable representation of x (a fresh big.Int).
func (x *Num) Big() *big.Int {
	return new(big.Int).Set(x.v)
}

// IsZero reports whether x is the zero residue.
func (x *Num) IsZero() bool { return x.v.Sign() == 0 }

// Equal reports whether x and y hold the same residue.
func (x *Num) Equal(y *Num) bool { return x.v.Cmp(y.v) == 0 }

// Swap exchanges the values of a and b without copying limbs.
func Swap(a, b *Num) {
	a.v, b.v = b.v, a.v
}

// Arithmetic is the operation handle over a State. The zero-cost Carefully
// variant shares the State but runs every operation in conservative mode and
// ignores pipelining hints.
type Arithmetic struct {
	st      *State
	careful bool
}

// New creates an operation handle over st.
func New(st *State) *Arithmetic {
	return &Arithmetic{st: st}
}

// State returns the underlying backend state.
func (g *Arithmetic) State() *State { return g.st }

// Carefully returns a handle that executes operations in conservative mode:
// no pipelining, full transform cost, suitable for verification phases.
func (g *Arithmetic) Carefully() *Arithmetic {
	return &Arithmetic{st: g.st, careful: true}
}

// IsCareful reports whether this handle runs in conservative mode.
func (g *Arithmetic) IsCareful() bool { return g.careful }

// SetMulByConst sets the fused small constant for operations carrying the
// MulByConst flag. Constants above MaxMulByConst are a configuration error.
func (g *Arithmetic) SetMulByConst(c uint32) error {
	if c > g.st.MaxMulByConst {
		return apperrors.NewConfigError("mul-by-const %d exceeds backend maximum %d", c, g.st.MaxMulByConst)
	}
	g.st.mulByConst = c
	return nil
}

// SetCarefullyCount forces the next n operations (on any handle of this
// State) to run in conservative mode. Used to stabilise the transform
// behaviour at startup.
func (g *Arithmetic) SetCarefullyCount(n int) {
	if n > g.st.carefulLeft {
		g.st.carefulLeft = n
	}
}

// opIsCareful consumes one unit of the careful budget if present.
func (g *Arithmetic) opIsCareful() bool {
	if g.careful {
		return true
	}
	if g.st.carefulLeft > 0 {
		g.st.carefulLeft--
		return true
	}
	return false
}

// finish applies the shared post-operation steps: modular reduction, fused
// constant multiplication, transform accounting and the operation hook.
func (g *Arithmetic) finish(dst *Num, flags Flags, baseCost int64, careful bool) {
	if flags&MulByConst != 0 && g.st.mulByConst > 1 {
		dst.v.Mul(dst.v, new(big.Int).SetUint64(uint64(g.st.mulByConst)))
	}
	dst.v.Mod(dst.v, g.st.n)

	cost := baseCost
	if !careful {
		if flags&StartNextFFT != 0 {
			cost--
		}
		if flags&FFTS1 != 0 {
			cost--
		}
		if flags&FFTS2 != 0 {
			cost--
		}
	}
	if cost < 1 {
		cost = 1
	}
	g.st.transforms += cost
	g.st.opCount++
	if g.st.opHook != nil {
		g.st.opHook(g.st.opCount, dst.v)
	}
}

// Square computes dst = a^2 mod N (optionally times the fused constant).
// a and dst may alias.
func (g *Arithmetic) Square(a, dst *Num, flags Flags) {
	careful := g.opIsCareful()
	sqrCore(dst.v, a.v)
	g.finish(dst, flags, 2, careful)
}

// Mul computes dst = a*b mod N (optionally times the fused constant).
// Any of a, b, dst may alias.
func (g *Arithmetic) Mul(a, b, dst *Num, flags Flags) {
	careful := g.opIsCareful()
	mulCore(dst.v, a.v, b.v)
	g.finish(dst, flags, 3, careful)
}

// Sub computes dst = a-b mod N.
func (g *Arithmetic) Sub(a, b, dst *Num, flags Flags) {
	careful := g.opIsCareful()
	dst.v.Sub(a.v, b.v)
	g.finish(dst, flags&^MulByConst, 1, careful)
}
