package input

import (
	"math/big"
	"testing"

	"github.com/agbru/primecalc/internal/gwarith"
)

func TestParseAlgebraicForms(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		value   string
		display string
	}{
		{"2^31-1", "2147483647", "2^31-1"},
		{"3*2^5+1", "97", "3*2^5+1"},
		{"1*2^7-1", "127", "2^7-1"},
		{"5^4+0", "625", "5^4"},
		{"10^3+7", "1007", "10^3+7"},
		{"727*10^5-1", "72699999", "727*10^5-1"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			num, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.in, err)
			}
			want, _ := new(big.Int).SetString(tc.value, 10)
			if num.Value().Cmp(want) != 0 {
				t.Errorf("value = %v, want %v", num.Value(), want)
			}
			if num.DisplayText() != tc.display {
				t.Errorf("display = %q, want %q", num.DisplayText(), tc.display)
			}
		})
	}
}

func TestParsePlainInteger(t *testing.T) {
	t.Parallel()
	num, err := Parse("10007")
	if err != nil {
		t.Fatal(err)
	}
	if num.Value().Int64() != 10007 || num.B != 0 {
		t.Errorf("plain integer parsed as %+v", num)
	}
	if num.DisplayText() != "10007" {
		t.Errorf("display = %q", num.DisplayText())
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "abc", "1^5+1", "0*2^5+1", "2^3-8", "1", "0"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestSetupConfiguresBackend(t *testing.T) {
	t.Parallel()
	num, err := Parse("2^31-1")
	if err != nil {
		t.Fatal(err)
	}
	st := gwarith.NewState()
	if err := num.Setup(st); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if st.Modulus().Cmp(num.Value()) != 0 {
		t.Error("backend modulus does not match input number")
	}
	if st.FFTDescription == "" || st.FFTLength == 0 {
		t.Error("backend description not populated")
	}
}
