package exp

import (
	"math/big"
	"testing"
)

// TestMultipointBase3Checkpoints covers the b=3 schedule [5, 10] over
// N=10007: the residue at p_1 is 2^(3^5), at p_2 is 2^(3^10).
func TestMultipointBase3Checkpoints(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "10007")
	base := big.NewInt(2)

	var emitted []int
	residues := map[int]*big.Int{}
	var d *MultipointExp
	var err error
	d, err = NewMultipointExp(env, 3, []int{5, 10}, base, func(i int) {
		emitted = append(emitted, i)
		residues[i] = env.File.ReadState().X
	})
	if err != nil {
		t.Fatal(err)
	}
	run(t, d)

	if len(emitted) != 2 || emitted[0] != 5 || emitted[1] != 10 {
		t.Fatalf("onPoint order = %v, want [5 10]", emitted)
	}
	want5 := oraclePower(env, base, 3, 5)
	if residues[5].Cmp(want5) != 0 {
		t.Errorf("residue at 5 = %v, want %v", residues[5], want5)
	}
	want10 := oraclePower(env, base, 3, 10)
	if residues[10].Cmp(want10) != 0 {
		t.Errorf("residue at 10 = %v, want %v", residues[10], want10)
	}
	if got := d.Result(); got == nil || got.Cmp(want10) != 0 {
		t.Errorf("final residue = %v, want %v", got, want10)
	}
}

// TestMultipointBase2Squarings covers the b=2 fast path over a Mersenne
// modulus with schedule [100, 200, 300].
func TestMultipointBase2Squarings(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "2^61-1")
	base := big.NewInt(2)

	var residues []*big.Int
	d, err := NewMultipointExp(env, 2, []int{100, 200, 300}, base, func(i int) {
		residues = append(residues, env.File.ReadState().X)
	})
	if err != nil {
		t.Fatal(err)
	}
	run(t, d)

	for k, p := range []int{100, 200, 300} {
		want := oraclePower(env, base, 2, p)
		if residues[k].Cmp(want) != 0 {
			t.Errorf("residue at %d mismatch", p)
		}
	}
}

// TestMultipointTelescoping verifies the segment semantics: the residue at
// p_{k+1} equals the residue at p_k raised to b^(p_{k+1}-p_k).
func TestMultipointTelescoping(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "10007")
	base := big.NewInt(5)
	residues := map[int]*big.Int{}
	d, err := NewMultipointExp(env, 7, []int{3, 4, 9}, base, func(i int) {
		residues[i] = env.File.ReadState().X
	})
	if err != nil {
		t.Fatal(err)
	}
	run(t, d)

	n := env.Input.Value()
	step := new(big.Int).Exp(residues[3], powUint(7, 1), n)
	if step.Cmp(residues[4]) != 0 {
		t.Error("residue at 4 is not residue at 3 raised to 7^1")
	}
	step.Exp(residues[4], powUint(7, 5), n)
	if step.Cmp(residues[9]) != 0 {
		t.Error("residue at 9 is not residue at 4 raised to 7^5")
	}
}

func TestMultipointRejectsBadSchedules(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "10007")
	base := big.NewInt(2)
	cases := map[string][]int{
		"empty":          {},
		"zero":           {0, 5},
		"decreasing":     {10, 5},
		"repeated":       {5, 5},
		"negative start": {-3, 5},
	}
	for name, points := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewMultipointExp(testEnv(t, "10007"), 2, points, base, nil); err == nil {
				t.Errorf("schedule %v should be rejected", points)
			}
		})
	}
	if _, err := NewMultipointExp(env, 1, []int{5}, base, nil); err == nil {
		t.Error("base 1 should be rejected")
	}
}

// TestMultipointResume interrupts a long b=2 run and resumes from the
// persisted state.
func TestMultipointResume(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "2^61-1")
	base := big.NewInt(3)

	d, err := NewMultipointExp(env, 2, []int{500}, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	d.StateUpdatePeriod = 50
	ctx, cancel := contextCancelledAfterOps(env, 120)
	if err := d.Setup(); err != nil {
		t.Fatal(err)
	}
	execErr := d.Execute(ctx)
	d.Release()
	cancelCleanup(env, cancel)
	if execErr == nil {
		t.Fatal("expected interruption")
	}

	resumed, err := NewMultipointExp(env, 2, []int{500}, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.LastGoodIteration() == 0 {
		t.Fatal("no persisted progress to resume from")
	}
	run(t, resumed)
	want := oraclePower(env, base, 2, 500)
	if got := resumed.Result(); got == nil || got.Cmp(want) != 0 {
		t.Errorf("resumed result = %v, want %v", got, want)
	}
}
