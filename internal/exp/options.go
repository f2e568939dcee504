// Package exp implements the exponentiation drivers: plain binary
// exponentiation for small and large bases, multipoint exponentiation over a
// checkpoint schedule with sliding-window reduction, and the Gerbicz-checked
// variant that verifies its own work.
package exp

import (
	"time"

	"github.com/agbru/primecalc/internal/checkpoint"
	"github.com/agbru/primecalc/internal/gwarith"
	"github.com/agbru/primecalc/internal/input"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/task"
)

// Options configures driver behaviour.
type Options struct {
	// MaxWindow bounds the sliding-window width; -1 (or zero) leaves it to the
	// cost model alone.
	MaxWindow int
	// MaxTableSize bounds the precomputed odd-multiples table; -1 (or zero)
	// disables the bound.
	MaxTableSize int
	// StateUpdatePeriod overrides the iteration spacing of state refreshes.
	// Zero derives it from task.MulsPerStateUpdate and the driver's cost per
	// iteration.
	StateUpdatePeriod int
	// DiskWriteInterval bounds how often refreshed states are written to disk.
	// Zero writes on every refresh (useful in tests); production callers pass
	// task.DefaultDiskWriteInterval.
	DiskWriteInterval time.Duration
	// ErrorCheckForced arms roundoff checking unconditionally.
	ErrorCheckForced bool
	// ErrorCheckNear arms roundoff checking when the FFT length is near its
	// safe limit. Nil means true.
	ErrorCheckNear *bool
	// ChecksPerPoint divides the total iteration count when the Gerbicz block
	// length is derived. Zero means 1.
	ChecksPerPoint int
}

func normalizeOptions(o Options) Options {
	if o.MaxWindow == 0 {
		o.MaxWindow = -1
	}
	if o.MaxTableSize == 0 {
		o.MaxTableSize = -1
	}
	if o.ErrorCheckNear == nil {
		v := true
		o.ErrorCheckNear = &v
	}
	if o.ChecksPerPoint == 0 {
		o.ChecksPerPoint = 1
	}
	return o
}

// Env bundles the collaborators every driver needs: the parsed input number,
// the configured arithmetic backend, the state file(s), logging, and the
// progress reporter.
type Env struct {
	// Input is the number under test; its value is the modulus.
	Input *input.Number
	// GWState is the configured arithmetic backend state.
	GWState *gwarith.State
	// File is the working state file (may be nil).
	File *checkpoint.File
	// FileRecovery is the recovery state file, used by verified drivers.
	FileRecovery *checkpoint.File
	// Logger receives driver output; nil means discard.
	Logger logging.Logger
	// Reporter receives progress updates; nil means discard.
	Reporter task.ProgressReporter
	// Options tunes driver behaviour.
	Options Options
}
