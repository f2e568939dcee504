// Command primecalc computes base^E mod N for numbers of the form k*b^n+c,
// with checkpointing, crash recovery, and Gerbicz error detection.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agbru/primecalc/internal/app"
	apperrors "github.com/agbru/primecalc/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		os.Exit(apperrors.ExitSuccess)
	}

	a, err := app.New(os.Args, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(apperrors.ExitErrorConfig)
	}
	os.Exit(a.Run(context.Background(), os.Stdout))
}
