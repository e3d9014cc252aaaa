package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/danmuck/antkit/internal/tools"
	"github.com/rs/zerolog"
)

// Stdio is the set of streams handed to the child.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run executes cmd attached to stdio and returns its exit status.
func Run(ctx context.Context, cmd Command, runner tools.CommandRunner, stdio Stdio, execDebug bool) (int, error) {
	logger := zerolog.Ctx(ctx)
	if execDebug {
		fmt.Fprintln(stdio.Out, cmd.String())
	}
	logger.Debug().Str("cmd", cmd.String()).Msg("launching ant")

	// The child gets the interrupt itself; keep it from killing us first.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	code, err := runner.RunAttached(ctx, tools.Attached{
		Name:   cmd.Path,
		Args:   cmd.Args,
		Stdin:  stdio.In,
		Stdout: stdio.Out,
		Stderr: stdio.Err,
	})
	if err != nil && code == 0 {
		code = 1
	}
	return code, err
}
