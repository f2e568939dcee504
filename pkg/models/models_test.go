package models

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestNewRunResultResidueForms(t *testing.T) {
	t.Parallel()
	residue, _ := new(big.Int).SetString("123456789abcdef0123456789abcdef", 16)
	r := NewRunResult("2^127-1", "GerbiczCheckMultipointExp", 1000, 2048, 3*time.Second, residue)

	if r.Residue != residue.Text(16) {
		t.Errorf("Residue = %s", r.Residue)
	}
	if r.Residue64 != "0123456789abcdef" {
		t.Errorf("Residue64 = %s, want 0123456789abcdef", r.Residue64)
	}
	if r.DurationText != "3s" {
		t.Errorf("DurationText = %s", r.DurationText)
	}
}

func TestRunResultJSONRoundTrip(t *testing.T) {
	t.Parallel()
	r := NewRunResult("10007", "FastExp", 13, 26, time.Millisecond, big.NewInt(2187))
	data, err := r.JSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"residue": "88b"`) {
		t.Errorf("JSON missing residue: %s", data)
	}
	var back RunResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Input != r.Input || back.Residue != r.Residue || back.Iterations != 13 {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestNewRunResultNilResidue(t *testing.T) {
	t.Parallel()
	r := NewRunResult("10007", "FastExp", 13, 0, 0, nil)
	if r.Residue != "" || r.Residue64 != "" {
		t.Error("nil residue must leave the residue fields empty")
	}
}
