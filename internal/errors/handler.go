package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// HandleRunError formats and prints error messages related to failed runs.
// It distinguishes between different error types (timeout, cancellation,
// exhausted restart budget, generic) to provide the user with specific
// feedback.
//
// Parameters:
//   - err: The error that occurred.
//   - duration: The duration of the run before it failed.
//   - out: The io.Writer to which the error message will be written.
//
// Returns:
//   - int: The appropriate exit code for the error type.
func HandleRunError(err error, duration time.Duration, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	msgSuffix := ""
	if duration > 0 {
		msgSuffix = fmt.Sprintf(" after %s", duration)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached%s.\n", msgSuffix)
		return ExitErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(out, "Status: Canceled%s.\n", msgSuffix)
		return ExitErrorCanceled
	}
	var fatal FatalError
	if errors.As(err, &fatal) {
		fmt.Fprintf(out, "Status: Failure. Restart budget exhausted%s; last verified iteration: %d.\n",
			msgSuffix, fatal.LastGoodIteration)
		return ExitErrorFatal
	}
	var cfg ConfigError
	if errors.As(err, &cfg) {
		fmt.Fprintf(out, "Status: Failure. Invalid configuration: %v\n", err)
		return ExitErrorConfig
	}
	var calc CalculationError
	if errors.As(err, &calc) {
		fmt.Fprintf(out, "Status: Failure. The computation failed%s: %v\n", msgSuffix, calc.Cause)
		return ExitErrorGeneric
	}
	fmt.Fprintf(out, "Status: Failure. An unexpected error occurred: %v\n", err)
	return ExitErrorGeneric
}
