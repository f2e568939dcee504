// Package config provides the configuration management for the primecalc
// application. It defines the data structure for the configuration, handles
// the parsing of command-line arguments, and performs validation on the
// configuration values.
package config

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/exp"
	"github.com/agbru/primecalc/internal/task"
)

const (
	// EnvPrefix is the prefix for all environment variables used by primecalc.
	// Environment variables provide an alternative to CLI flags for
	// configuration, following the 12-Factor App methodology.
	EnvPrefix = "PRIMECALC_"
)

// Default configuration values.
// These can be overridden via command-line flags or environment variables.
const (
	// DefaultBase is the default small exponentiation base (the PRP base).
	DefaultBase uint64 = 3
	// DefaultExponentBase is the default base b of the iteration schedule.
	DefaultExponentBase uint64 = 2
	// DefaultTimeout is the default run timeout.
	DefaultTimeout = 60 * time.Minute
	// DefaultAlgo is the default driver selection.
	DefaultAlgo = "auto"
	// DefaultStatePrefix is the default path prefix of the state files.
	DefaultStatePrefix = "primecalc"
	// DefaultChecksPerPoint is the default divisor of the total iteration
	// count from which the Gerbicz block length is derived.
	DefaultChecksPerPoint = 1
)

// Algos lists the valid driver names.
var Algos = []string{"auto", "fast", "slow", "multipoint", "gerbicz"}

// AppConfig aggregates the application's configuration parameters, parsed
// from command-line flags. It encapsulates all settings that control the
// execution, from the number under test to performance-tuning parameters.
type AppConfig struct {
	// Input is the number under test, as k*b^n+c or a plain integer.
	Input string
	// Algo selects the driver ("auto", "fast", "slow", "multipoint", "gerbicz").
	Algo string
	// Base is the exponentiation base x0 (also the starting residue for the
	// multipoint drivers).
	Base uint64
	// ExponentBase is the base b of the iteration schedule: each iteration
	// raises the residue to the b-th power.
	ExponentBase uint64
	// Iterations is the total iteration count for schedule-driven drivers.
	Iterations int
	// Exponent is the explicit exponent for the fast/slow drivers (decimal).
	Exponent string
	// PointEvery spaces checkpoints every n iterations; 0 means a single
	// checkpoint at the end.
	PointEvery int
	// Points is an explicit comma-separated checkpoint list overriding
	// PointEvery.
	Points string
	// StatePrefix is the path prefix of the working and recovery state files.
	StatePrefix string
	// Timeout bounds the run duration.
	Timeout time.Duration
	// MulsPerStateUpdate is the multiplication budget between state refreshes.
	MulsPerStateUpdate int
	// DiskWriteSeconds is the minimum spacing between state file writes.
	DiskWriteSeconds int
	// ChecksPerPoint divides the total iteration count when the Gerbicz block
	// length is derived.
	ChecksPerPoint int
	// MaxWindow bounds the sliding-window width (-1 unbounded).
	MaxWindow int
	// MaxTableSize bounds the window precomputation table (-1 unbounded).
	MaxTableSize int
	// ErrorCheck forces max roundoff checking on.
	ErrorCheck bool
	// RestartBudget bounds consecutive fruitless restarts.
	RestartBudget int
	// JSONOutput emits the run result as JSON.
	JSONOutput bool
	// Quiet suppresses progress output.
	Quiet bool
	// Verbose enables debug logging.
	Verbose bool
	// NoColor disables color output. Also respects NO_COLOR.
	NoColor bool
}

// RegisterFlags binds the configuration to the given flag set, with defaults
// already resolved against the environment.
func (c *AppConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Input, "input", getEnvString("INPUT", ""), "number under test, e.g. 727*2^1000+1")
	fs.StringVar(&c.Algo, "algo", getEnvString("ALGO", DefaultAlgo),
		fmt.Sprintf("driver to use (%s)", strings.Join(Algos, ", ")))
	fs.Uint64Var(&c.Base, "base", getEnvUint64("BASE", DefaultBase), "exponentiation base / starting residue")
	fs.Uint64Var(&c.ExponentBase, "b", getEnvUint64("B", DefaultExponentBase), "base of the iteration schedule")
	fs.IntVar(&c.Iterations, "iters", getEnvInt("ITERS", 0), "total iterations for schedule-driven drivers")
	fs.StringVar(&c.Exponent, "exp", getEnvString("EXP", ""), "explicit exponent for fast/slow drivers")
	fs.IntVar(&c.PointEvery, "point-every", getEnvInt("POINT_EVERY", 0), "emit a checkpoint every n iterations")
	fs.StringVar(&c.Points, "points", getEnvString("POINTS", ""), "explicit checkpoint list, comma separated")
	fs.StringVar(&c.StatePrefix, "state", getEnvString("STATE", DefaultStatePrefix), "state file path prefix")
	fs.DurationVar(&c.Timeout, "timeout", getEnvDuration("TIMEOUT", DefaultTimeout), "run timeout")
	fs.IntVar(&c.MulsPerStateUpdate, "muls-per-update", getEnvInt("MULS_PER_UPDATE", task.MulsPerStateUpdate),
		"multiplications between state refreshes")
	fs.IntVar(&c.DiskWriteSeconds, "disk-write-seconds", getEnvInt("DISK_WRITE_SECONDS",
		int(task.DefaultDiskWriteInterval/time.Second)), "minimum seconds between state file writes")
	fs.IntVar(&c.ChecksPerPoint, "checks-per-point", getEnvInt("CHECKS_PER_POINT", DefaultChecksPerPoint),
		"divisor of the total iteration count for the Gerbicz block length")
	fs.IntVar(&c.MaxWindow, "max-window", getEnvInt("MAX_WINDOW", -1), "sliding-window width bound (-1 unbounded)")
	fs.IntVar(&c.MaxTableSize, "max-table", getEnvInt("MAX_TABLE", -1), "window table size bound (-1 unbounded)")
	fs.BoolVar(&c.ErrorCheck, "error-check", getEnvBool("ERROR_CHECK", false), "force max roundoff checking")
	fs.IntVar(&c.RestartBudget, "restart-budget", getEnvInt("RESTART_BUDGET", task.DefaultRestartBudget),
		"consecutive restarts before giving up")
	fs.BoolVar(&c.JSONOutput, "json", getEnvBool("JSON", false), "emit the result as JSON")
	fs.BoolVar(&c.Quiet, "q", getEnvBool("QUIET", false), "suppress progress output")
	fs.BoolVar(&c.Verbose, "v", getEnvBool("VERBOSE", false), "enable debug logging")
	fs.BoolVar(&c.NoColor, "no-color", noColorDefault(), "disable color output")
}

// Validate checks the semantic consistency of the configuration parameters.
// It ensures that numerical values are within valid ranges and that the
// chosen driver is supported.
func (c *AppConfig) Validate() error {
	if c.Input == "" {
		return apperrors.NewConfigError("an input number is required (-input)")
	}
	valid := false
	for _, a := range Algos {
		if c.Algo == a {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.NewConfigError("unknown driver %q, valid drivers: %s", c.Algo, strings.Join(Algos, ", "))
	}
	switch c.Algo {
	case "fast", "slow":
		if c.Exponent == "" {
			return apperrors.NewConfigError("the %s driver requires an explicit exponent (-exp)", c.Algo)
		}
	default:
		if c.Iterations <= 0 {
			return apperrors.NewConfigError("schedule-driven runs require a positive iteration count (-iters)")
		}
	}
	if c.ExponentBase < 2 {
		return apperrors.NewConfigError("the schedule base must be at least 2")
	}
	if c.Base < 2 {
		return apperrors.NewConfigError("the exponentiation base must be at least 2")
	}
	if c.PointEvery < 0 {
		return apperrors.NewConfigError("checkpoint spacing must not be negative")
	}
	if c.ChecksPerPoint < 1 {
		return apperrors.NewConfigError("checks-per-point must be at least 1")
	}
	if c.MulsPerStateUpdate < 1 {
		return apperrors.NewConfigError("muls-per-update must be positive")
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout must be positive")
	}
	if _, err := c.CheckpointSchedule(); err != nil {
		return err
	}
	return nil
}

// CheckpointSchedule derives the checkpoint list from the configuration:
// the explicit list when given, otherwise evenly spaced points ending at the
// iteration count.
func (c *AppConfig) CheckpointSchedule() ([]int, error) {
	if c.Points != "" {
		parts := strings.Split(c.Points, ",")
		points := make([]int, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, apperrors.NewConfigError("invalid checkpoint %q", p)
			}
			points = append(points, v)
		}
		if !sort.IntsAreSorted(points) {
			return nil, apperrors.NewConfigError("checkpoints must be increasing")
		}
		return points, nil
	}
	if c.Iterations <= 0 {
		return nil, nil
	}
	if c.PointEvery <= 0 {
		return []int{c.Iterations}, nil
	}
	var points []int
	for p := c.PointEvery; p < c.Iterations; p += c.PointEvery {
		points = append(points, p)
	}
	points = append(points, c.Iterations)
	return points, nil
}

// ToExpOptions converts the application configuration into exp.Options for
// use by the drivers.
func (c *AppConfig) ToExpOptions() exp.Options {
	// The default multiplication budget lets each driver derive its own
	// refresh period from its per-iteration cost; an explicit override is
	// applied verbatim.
	period := 0
	if c.MulsPerStateUpdate != task.MulsPerStateUpdate {
		period = c.MulsPerStateUpdate
	}
	return exp.Options{
		MaxWindow:         c.MaxWindow,
		MaxTableSize:      c.MaxTableSize,
		StateUpdatePeriod: period,
		DiskWriteInterval: time.Duration(c.DiskWriteSeconds) * time.Second,
		ErrorCheckForced:  c.ErrorCheck,
		ErrorCheckNear:    errorCheckNear(c.ErrorCheck),
		ChecksPerPoint:    c.ChecksPerPoint,
	}
}

// errorCheckNear: a forced check overrides the near-limit heuristic.
func errorCheckNear(forced bool) *bool {
	v := !forced
	return &v
}

// PrintUsage writes a short usage summary.
func PrintUsage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(out, "Usage: primecalc -input <number> [options]\n\n")
	fmt.Fprintf(out, "Computes base^E mod N with checkpointing and Gerbicz verification.\n\nOptions:\n")
	fs.SetOutput(out)
	fs.PrintDefaults()
}
