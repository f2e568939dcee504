// Package models defines the shared data structures for run results and
// observability.
//
// These models are used for:
// - Structured output: the JSON form of a completed run.
// - Reporting: the summary printed at the end of a run.
package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// RunResult captures the outcome of one exponentiation run in a portable,
// serialisable form.
type RunResult struct {
	// Input is the display form of the number under test.
	Input string `json:"input"`
	// Driver is the name of the exponentiation strategy used.
	Driver string `json:"driver"`
	// Iterations is the total iteration count of the schedule.
	Iterations int `json:"iterations"`
	// Transforms is the number of backend transforms the run performed.
	Transforms int64 `json:"transforms"`
	// Duration is the wall-clock duration of the run.
	Duration time.Duration `json:"duration_ns"`
	// DurationText is the human-readable duration.
	DurationText string `json:"duration"`
	// Residue is the final residue in lowercase hexadecimal.
	Residue string `json:"residue"`
	// Residue64 is the low 64 bits of the final residue, the conventional
	// quick-comparison form.
	Residue64 string `json:"residue64"`
	// Restarts is the number of recoverable restarts absorbed during the run.
	Restarts int `json:"restarts,omitempty"`
	// Error holds the failure message for unsuccessful runs.
	Error string `json:"error,omitempty"`
}

// NewRunResult assembles a RunResult from a completed run.
func NewRunResult(input, driver string, iterations int, transforms int64, duration time.Duration, residue *big.Int) RunResult {
	r := RunResult{
		Input:        input,
		Driver:       driver,
		Iterations:   iterations,
		Transforms:   transforms,
		Duration:     duration,
		DurationText: duration.String(),
	}
	if residue != nil {
		r.Residue = residue.Text(16)
		r.Residue64 = fmt.Sprintf("%016x", new(big.Int).And(residue, maxUint64).Uint64())
	}
	return r
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// JSON renders the result as indented JSON.
func (r RunResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
