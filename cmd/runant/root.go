package main

import (
	"context"
	"os"

	"github.com/danmuck/antkit/internal/launcher"
	"github.com/danmuck/antkit/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// exitStatus carries the child's status out of cobra.
type exitStatus struct {
	code int
	err  error
}

func (e *exitStatus) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "exit status"
}

func (e *exitStatus) Unwrap() error { return e.err }

// deps is what runant needs from the host; tests replace it.
type deps struct {
	runner  tools.CommandRunner
	environ func(confFiles []string) (launcher.Environment, error)
	exe     func() (string, error)
	home    func() (string, error)
	stdio   launcher.Stdio
}

func hostDeps() deps {
	return deps{
		runner:  tools.ExecRunner{},
		environ: launcher.ProcessEnvironment,
		exe:     os.Executable,
		home:    os.UserHomeDir,
		stdio:   launcher.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
	}
}

func newRootCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runant [--execdebug] [--noconfig] [ant arguments...]",
		Short: "Start Apache Ant through its launcher class",
		Long: `runant builds the java command line for Ant from ANT_HOME, JAVACMD,
JAVA_HOME, ANT_OPTS, ANT_ARGS, LOCALCLASSPATH, CLASSPATH and JIKESPATH
(after reading /etc/ant.conf and ~/.antrc unless --noconfig is given) and
runs it. Every other argument is passed to Ant unchanged.`,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := run(cmd.Context(), args, d)
			if err != nil || code != 0 {
				return &exitStatus{code: code, err: err}
			}
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

func run(ctx context.Context, args []string, d deps) (int, error) {
	logger := zerolog.Ctx(ctx)
	flags, antArgs := launcher.ParseArgs(args)

	var confFiles []string
	if !flags.NoConfig {
		home, err := d.home()
		if err != nil {
			logger.Debug().Err(err).Msg("no home directory, skipping ~/.antrc")
		}
		confFiles = launcher.DefaultConfigFiles(home)
	}
	env, err := d.environ(confFiles)
	if err != nil {
		return 2, err
	}

	exe, err := d.exe()
	if err != nil {
		return 2, err
	}
	cfg, warnings, err := launcher.FromEnv(env, exe)
	if err != nil {
		return 2, err
	}
	cfg.ExecDebug = flags.ExecDebug

	command, cmdWarnings := cfg.Command(antArgs)
	for _, w := range append(warnings, cmdWarnings...) {
		logger.Warn().Msg(w)
	}

	return launcher.Run(ctx, command, d.runner, d.stdio, cfg.ExecDebug)
}
