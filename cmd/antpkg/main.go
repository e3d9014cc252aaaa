package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/danmuck/antkit/internal/logging"
	"github.com/danmuck/antkit/internal/observability"
	"github.com/danmuck/antkit/internal/tools"
)

func main() {
	logging.ConfigureRuntime()
	logger := observability.InitLogger("antpkg")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = logger.WithContext(ctx)

	err := newRootCmd(tools.ExecRunner{}, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("antpkg failed")
		os.Exit(exitCode(err))
	}
}
