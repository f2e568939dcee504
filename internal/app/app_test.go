package app

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/agbru/primecalc/internal/errors"
)

func TestNewRejectsInvalidArgs(t *testing.T) {
	t.Parallel()
	cases := [][]string{
		{"primecalc"},
		{"primecalc", "-algo", "warp", "-input", "2^31-1", "-iters", "10"},
		{"primecalc", "-not-a-flag"},
	}
	for _, args := range cases {
		if _, err := New(args, io.Discard); err == nil {
			t.Errorf("New(%v) should fail", args)
		}
	}
}

func TestHasVersionFlag(t *testing.T) {
	t.Parallel()
	if !HasVersionFlag([]string{"-input", "x", "--version"}) {
		t.Error("--version not detected")
	}
	if HasVersionFlag([]string{"-input", "x"}) {
		t.Error("false positive version flag")
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	PrintVersion(&buf)
	if !strings.Contains(buf.String(), "primecalc") {
		t.Errorf("version banner: %s", buf.String())
	}
}

func TestApplicationRunEndToEnd(t *testing.T) {
	t.Parallel()
	prefix := filepath.Join(t.TempDir(), "run")
	a, err := New([]string{"primecalc",
		"-input", "10007",
		"-iters", "200",
		"-state", prefix,
		"-json", "-q",
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	code := a.Run(context.Background(), &out)
	if code != apperrors.ExitSuccess {
		t.Fatalf("exit code = %d, output:\n%s", code, out.String())
	}
	// 3^(2^200) mod 10007
	if !strings.Contains(out.String(), `"residue"`) {
		t.Errorf("JSON result missing residue:\n%s", out.String())
	}
}
