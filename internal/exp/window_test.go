package exp

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// windowCost is the documented cost model: table precomputation plus
// squarings and amortised window multiplies.
func windowCost(w int, length float64) float64 {
	return float64(int(1)<<(w-1)) + length*(1+1/float64(w+1))
}

// TestChooseWindowIsCostMinimal verifies that the selected width is the
// first local minimum of the cost model under the given bounds, with ties
// keeping the smaller width.
func TestChooseWindowIsCostMinimal(t *testing.T) {
	t.Parallel()
	for _, length := range []int{1, 3, 10, 50, 200, 1000, 5000, 100000} {
		w := chooseWindow(float64(length), -1, -1)
		if w < 2 {
			t.Fatalf("length %d: W = %d below minimum", length, w)
		}
		if windowCost(w+1, float64(length)) < windowCost(w, float64(length)) {
			t.Errorf("length %d: widening %d -> %d would still reduce cost", length, w, w+1)
		}
		if w > 2 && !(windowCost(w-1, float64(length)) > windowCost(w, float64(length))) {
			t.Errorf("length %d: width %d chosen although %d is no worse", length, w, w-1)
		}
	}
}

func TestChooseWindowHonoursBounds(t *testing.T) {
	t.Parallel()
	const length = 100000.0
	unbounded := chooseWindow(length, -1, -1)
	if unbounded <= 3 {
		t.Fatalf("expected a wide window for a long exponent, got %d", unbounded)
	}
	if w := chooseWindow(length, 4, -1); w != 4 {
		t.Errorf("advisory maximum 4 should cap the width at 4, got %d", w)
	}
	// Table bound: 2^(W+1) entries worth of capacity must fit.
	if w := chooseWindow(length, -1, 16); w != 3 {
		t.Errorf("table capacity 16 should cap the width at 3, got %d", w)
	}
}

func TestChooseWindowMonotonicInLength(t *testing.T) {
	t.Parallel()
	prev := 0
	for _, length := range []int{1, 10, 100, 1000, 10000, 100000, 1000000} {
		w := chooseWindow(float64(length), -1, -1)
		if w < prev {
			t.Errorf("window width decreased from %d to %d at length %d", prev, w, length)
		}
		prev = w
	}
}

// TestSlidingWindowEquivalence runs the windowed exponentiation for every
// window bound and checks the result equals the math/big oracle.
func TestSlidingWindowEquivalence(t *testing.T) {
	t.Parallel()
	for _, maxW := range []int{-1, 2, 3, 4, 5} {
		for _, power := range []int{1, 2, 3, 7, 20} {
			maxW, power := maxW, power
			t.Run(fmt.Sprintf("W=%d/power=%d", maxW, power), func(t *testing.T) {
				t.Parallel()
				env := testEnv(t, "10007")
				env.Options.MaxWindow = maxW
				base := big.NewInt(3)
				d, err := NewMultipointExp(env, 11, []int{power}, base, nil)
				if err != nil {
					t.Fatal(err)
				}
				run(t, d)
				want := oraclePower(env, base, 11, power)
				if got := d.Result(); got == nil || got.Cmp(want) != 0 {
					t.Errorf("3^(11^%d) with maxW=%d = %v, want %v", power, maxW, got, want)
				}
			})
		}
	}
}

// TestSlidingWindowPropertyBased exercises random bases and powers through
// the windowed path.
func TestSlidingWindowPropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("sliding window matches big.Int.Exp", prop.ForAll(
		func(b uint64, power int, base uint64) bool {
			env := testEnv(t, "2^61-1")
			x := new(big.Int).SetUint64(base%10007 + 2)
			d, err := NewMultipointExp(env, b, []int{power}, x, nil)
			if err != nil {
				return false
			}
			r := runQuiet(d)
			if r != nil {
				return false
			}
			want := oraclePower(env, x, b, power)
			got := d.Result()
			return got != nil && got.Cmp(want) == 0
		},
		gen.UInt64Range(3, 97),
		gen.IntRange(1, 25),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
