package exp

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agbru/primecalc/internal/logging"
)

// TestReinitPreservesTransformCount rebuilds the backend mid-run and checks
// the cumulative transform count and the restart notice.
func TestReinitPreservesTransformCount(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	env := testEnv(t, "2^31-1")
	env.Logger = logging.NewZerologAdapter(zerolog.New(&buf))

	d, err := NewFastExp(env, big.NewInt(1000), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Setup(); err != nil {
		t.Fatal(err)
	}
	defer d.Release()

	// Burn a few operations so the counter is non-zero.
	x := d.Arithmetic()
	n := env.GWState
	num := newNumFor(t, env)
	x.Square(num, num, 0)
	before := n.Transforms()
	if before == 0 {
		t.Fatal("expected transforms before rebuild")
	}

	if err := d.Reinit(); err != nil {
		t.Fatalf("Reinit: %v", err)
	}
	if n.Transforms() != before {
		t.Errorf("transform count after rebuild = %d, want %d", n.Transforms(), before)
	}
	if !n.Configured() {
		t.Error("backend must be configured after rebuild")
	}
	out := buf.String()
	if !strings.Contains(out, "restarting") {
		t.Errorf("restart notice missing:\n%s", out)
	}
	if !strings.Contains(out, "fft_len") {
		t.Errorf("fft_len parameter not reported:\n%s", out)
	}
}

// TestPrefixClearedOnDone checks the logging prefix lifecycle around a run.
func TestPrefixClearedOnDone(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "10007")
	logger := &logging.NopLogger{}
	env.Logger = logger

	d, err := NewFastExp(env, big.NewInt(100), 3)
	if err != nil {
		t.Fatal(err)
	}
	if logger.Prefix() != "10007 " {
		t.Errorf("prefix during run = %q", logger.Prefix())
	}
	run(t, d)
	if logger.Prefix() != "" {
		t.Errorf("prefix after done = %q", logger.Prefix())
	}
}

// TestElapsedAndTransformsReported verifies the run accounting is populated
// after completion.
func TestElapsedAndTransformsReported(t *testing.T) {
	t.Parallel()
	env := testEnv(t, "10007")
	d, err := NewFastExp(env, big.NewInt(1<<20), 3)
	if err != nil {
		t.Fatal(err)
	}
	run(t, d)
	if d.Transforms() <= 0 {
		t.Errorf("transforms = %d, want positive", d.Transforms())
	}
	if d.Elapsed() < 0 {
		t.Errorf("elapsed = %v", d.Elapsed())
	}
}
