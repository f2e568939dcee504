// Package app provides the core application structure for the primecalc CLI.
// It handles application lifecycle, command dispatching, and version
// management.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/agbru/primecalc/internal/cli"
	"github.com/agbru/primecalc/internal/config"
	apperrors "github.com/agbru/primecalc/internal/errors"
	"github.com/agbru/primecalc/internal/logging"
	"github.com/agbru/primecalc/internal/orchestration"
)

// Application represents the primecalc application instance.
// It encapsulates the configuration and provides the Run entry point.
type Application struct {
	// Config holds the parsed application configuration.
	Config *config.AppConfig
	// ErrWriter is the writer for error output (typically os.Stderr).
	ErrWriter io.Writer
}

// New creates a new Application instance by parsing command-line arguments.
// It validates the configuration and returns an error if parsing or
// validation fails.
func New(args []string, errWriter io.Writer) (*Application, error) {
	programName := "primecalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg := &config.AppConfig{}
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)
	fs.Usage = func() { config.PrintUsage(errWriter, fs) }
	cfg.RegisterFlags(fs)
	if err := fs.Parse(cmdArgs); err != nil {
		return nil, apperrors.NewConfigError("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Application{Config: cfg, ErrWriter: errWriter}, nil
}

// Run executes the configured run and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	logger := a.newLogger()

	ctx, cancels := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancels.Release()

	start := time.Now()
	result, err := orchestration.ExecuteRun(ctx, a.Config, logger, out)
	if err != nil {
		return apperrors.HandleRunError(err, time.Since(start), a.ErrWriter)
	}
	if err := cli.DisplayResult(result, a.Config.JSONOutput, out); err != nil {
		fmt.Fprintf(a.ErrWriter, "failed to render result: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// newLogger builds the run logger honouring the quiet/verbose flags.
func (a *Application) newLogger() logging.Logger {
	level := zerolog.InfoLevel
	if a.Config.Verbose {
		level = zerolog.DebugLevel
	}
	if a.Config.Quiet {
		level = zerolog.ErrorLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: a.Config.NoColor}
	return logging.NewZerologAdapter(zerolog.New(writer).Level(level).With().Timestamp().Logger())
}
