package cli

import (
	"fmt"
	"io"

	"github.com/agbru/primecalc/pkg/models"
)

// DisplayResult prints the run summary, or its JSON form when asked.
func DisplayResult(r models.RunResult, jsonOutput bool, out io.Writer) error {
	if jsonOutput {
		data, err := r.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	fmt.Fprintf(out, "\n%s  [%s]\n", r.Input, r.Driver)
	fmt.Fprintf(out, "  iterations: %d\n", r.Iterations)
	fmt.Fprintf(out, "  transforms: %d\n", r.Transforms)
	fmt.Fprintf(out, "  time:       %s\n", FormatExecutionDuration(r.Duration))
	if r.Restarts > 0 {
		fmt.Fprintf(out, "  restarts:   %d\n", r.Restarts)
	}
	fmt.Fprintf(out, "  res64:      %s\n", r.Residue64)
	return nil
}
