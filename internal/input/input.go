// Package input parses and represents the number under test. Supported forms
// are k*b^n+c, k*b^n-c (with k and c optional) and plain decimal integers.
// The parsed number configures the arithmetic backend for its modulus.
package input

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"

	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/gwarith"
)

// Number is the parsed input number N = k*b^n + c (c may be negative), or a
// plain integer when B is zero.
type Number struct {
	// K is the multiplier (1 when omitted).
	K uint64
	// B is the power base, zero for plain integers.
	B uint64
	// N is the exponent of the power base.
	N uint64
	// C is the additive term, possibly negative.
	C int64

	value   *big.Int
	display string
}

// algebraicForm matches "k*b^n+c" with optional k, optional *, and optional
// signed c.
var algebraicForm = regexp.MustCompile(`^(?:(\d+)\*)?(\d+)\^(\d+)([+-]\d+)?$`)

// Parse interprets s as an algebraic form or a plain decimal integer.
func Parse(s string) (*Number, error) {
	if m := algebraicForm.FindStringSubmatch(s); m != nil {
		k := uint64(1)
		if m[1] != "" {
			v, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				return nil, apperrors.NewConfigError("invalid multiplier %q: %v", m[1], err)
			}
			k = v
		}
		b, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil || b < 2 {
			return nil, apperrors.NewConfigError("invalid base %q", m[2])
		}
		n, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid exponent %q: %v", m[3], err)
		}
		var c int64
		if m[4] != "" {
			c, err = strconv.ParseInt(m[4], 10, 64)
			if err != nil {
				return nil, apperrors.NewConfigError("invalid additive term %q: %v", m[4], err)
			}
		}
		return New(k, b, n, c)
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, apperrors.NewConfigError("cannot parse input number %q", s)
	}
	if v.Cmp(big.NewInt(2)) < 0 {
		return nil, apperrors.NewConfigError("input number must be at least 2")
	}
	return &Number{K: 0, B: 0, N: 0, C: 0, value: v, display: v.String()}, nil
}

// New constructs the number k*b^n + c.
func New(k, b, n uint64, c int64) (*Number, error) {
	if b < 2 {
		return nil, apperrors.NewConfigError("power base must be at least 2, got %d", b)
	}
	if k == 0 {
		return nil, apperrors.NewConfigError("multiplier must be positive")
	}
	v := new(big.Int).Exp(new(big.Int).SetUint64(b), new(big.Int).SetUint64(n), nil)
	v.Mul(v, new(big.Int).SetUint64(k))
	v.Add(v, big.NewInt(c))
	if v.Cmp(big.NewInt(2)) < 0 {
		return nil, apperrors.NewConfigError("%s is smaller than 2", displayText(k, b, n, c))
	}
	return &Number{K: k, B: b, N: n, C: c, value: v, display: displayText(k, b, n, c)}, nil
}

func displayText(k, b, n uint64, c int64) string {
	s := ""
	if k != 1 {
		s = fmt.Sprintf("%d*", k)
	}
	s += fmt.Sprintf("%d^%d", b, n)
	switch {
	case c > 0:
		s += fmt.Sprintf("+%d", c)
	case c < 0:
		s += fmt.Sprintf("%d", c)
	}
	return s
}

// Value returns a copy of the numeric value of the input number.
func (num *Number) Value() *big.Int {
	return new(big.Int).Set(num.value)
}

// DisplayText returns the canonical human-readable form.
func (num *Number) DisplayText() string {
	return num.display
}

// BitLen returns the bit length of the number.
func (num *Number) BitLen() int {
	return num.value.BitLen()
}

// Setup configures the arithmetic backend to work modulo this number.
func (num *Number) Setup(st *gwarith.State) error {
	if err := st.Init(num.value); err != nil {
		return apperrors.WrapError(err, "failed to set up backend for %s", num.display)
	}
	return nil
}
