package main

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/danmuck/antkit/internal/logging"
	"github.com/danmuck/antkit/internal/observability"
)

func main() {
	logging.ConfigureRuntime()
	logger := observability.InitLogger("runant")
	ctx := logger.WithContext(context.Background())

	err := newRootCmd(hostDeps()).ExecuteContext(ctx)
	if err == nil {
		return
	}
	var status *exitStatus
	if errors.As(err, &status) {
		// A non-zero exit from java was already reported by Ant itself.
		var exitErr *exec.ExitError
		if status.err != nil && !errors.As(status.err, &exitErr) {
			logger.Error().Err(status.err).Msg("runant failed")
		}
		os.Exit(status.code)
	}
	logger.Error().Err(err).Msg("runant failed")
	os.Exit(1)
}
