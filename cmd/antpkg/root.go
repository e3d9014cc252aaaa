package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/antkit/internal/logging"
	"github.com/danmuck/antkit/internal/observability"
	"github.com/danmuck/antkit/internal/packager"
	"github.com/danmuck/antkit/internal/source"
	"github.com/danmuck/antkit/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newRootCmd(runner tools.CommandRunner, stdout io.Writer) *cobra.Command {
	var (
		configPath  string
		writeConfig string
		force       bool
		flagOpts    = defaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "antpkg [flags] <apache-ant-VERSION-bin archive path or URL>",
		Short: "Repackage an Apache Ant binary archive as a macOS installer",
		Long: `antpkg reads an Apache Ant binary distribution from a local path or an
http(s) URL, lays it out under the install prefix, registers <prefix>/bin in
/etc/paths.d and runs pkgbuild to produce apache-ant-VERSION.pkg.`,
		Args: func(cmd *cobra.Command, args []string) error {
			validate := cobra.ExactArgs(1)
			if writeConfig != "" {
				validate = cobra.NoArgs
			}
			if err := validate(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeConfig != "" {
				if err := writeConfigTemplate(writeConfig, force); err != nil {
					return usageError{err}
				}
				zerolog.Ctx(cmd.Context()).Info().Str("path", writeConfig).Msg("wrote config template")
				return nil
			}

			opts := defaultOptions()
			if configPath != "" {
				loaded, err := loadFileConfig(configPath, opts)
				if err != nil {
					return usageError{err}
				}
				opts = loaded
			}
			opts = mergeFlags(cmd, opts, flagOpts)

			if !logging.SetLevel(opts.LogLevel) {
				return usageError{fmt.Errorf("invalid log level %q", opts.LogLevel)}
			}
			return run(cmd.Context(), args[0], opts, runner, stdout)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML config file")
	f.StringVar(&writeConfig, "write-config", "", "write a config template to this path and exit")
	f.BoolVar(&force, "force", false, "overwrite an existing file with --write-config")
	f.StringVarP(&flagOpts.Packager.OutputDir, "output-dir", "o", flagOpts.Packager.OutputDir, "directory receiving the .pkg")
	f.StringVar(&flagOpts.Packager.Identifier, "identifier", flagOpts.Packager.Identifier, "package identifier")
	f.StringVar(&flagOpts.Packager.InstallPrefix, "install-prefix", flagOpts.Packager.InstallPrefix, "install location of Ant on the target")
	f.StringVar(&flagOpts.Packager.PathsFile, "paths-file", flagOpts.Packager.PathsFile, "paths.d entry registering <prefix>/bin")
	f.StringVar(&flagOpts.Packager.PkgbuildPath, "pkgbuild", flagOpts.Packager.PkgbuildPath, "pkgbuild executable")
	f.StringVar(&flagOpts.Packager.SHA512, "sha512", "", "expected SHA-512 of the archive")
	f.BoolVar(&flagOpts.Packager.KeepWorkDir, "keep-workdir", false, "leave the staging directory behind")
	f.DurationVar(&flagOpts.DownloadTimeout, "timeout", flagOpts.DownloadTimeout, "download timeout")
	f.StringVar(&flagOpts.MetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format")
	f.StringVar(&flagOpts.LogLevel, "log-level", flagOpts.LogLevel, "trace|debug|info|warn|error|off")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	return cmd
}

// mergeFlags copies explicitly set flags over opts.
func mergeFlags(cmd *cobra.Command, opts options, flagOpts options) options {
	changed := cmd.Flags().Changed
	if changed("output-dir") {
		opts.Packager.OutputDir = flagOpts.Packager.OutputDir
	}
	if changed("identifier") {
		opts.Packager.Identifier = flagOpts.Packager.Identifier
	}
	if changed("install-prefix") {
		opts.Packager.InstallPrefix = flagOpts.Packager.InstallPrefix
	}
	if changed("paths-file") {
		opts.Packager.PathsFile = flagOpts.Packager.PathsFile
	}
	if changed("pkgbuild") {
		opts.Packager.PkgbuildPath = flagOpts.Packager.PkgbuildPath
	}
	if changed("sha512") {
		opts.Packager.SHA512 = flagOpts.Packager.SHA512
	}
	if changed("keep-workdir") {
		opts.Packager.KeepWorkDir = flagOpts.Packager.KeepWorkDir
	}
	if changed("timeout") {
		opts.DownloadTimeout = flagOpts.DownloadTimeout
	}
	if changed("metrics-file") {
		opts.MetricsFile = flagOpts.MetricsFile
	}
	if changed("log-level") {
		opts.LogLevel = flagOpts.LogLevel
	}
	return opts
}

func run(ctx context.Context, location string, opts options, runner tools.CommandRunner, stdout io.Writer) error {
	src, err := source.Parse(location)
	if err != nil {
		return usageError{err}
	}

	p, err := packager.New(opts.Packager, source.NewFetcher(opts.DownloadTimeout), runner)
	if err != nil {
		return usageError{err}
	}

	if opts.MetricsFile != "" {
		defer func() {
			if werr := observability.WriteTextfile(opts.MetricsFile); werr != nil {
				zerolog.Ctx(ctx).Warn().Err(werr).Str("path", opts.MetricsFile).Msg("write metrics")
			}
		}()
	}

	start := time.Now()
	res, err := p.Build(ctx, src)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Str("package", res.PackagePath).
		Dur("elapsed", time.Since(start)).
		Msg("done")
	fmt.Fprintln(stdout, res.PackagePath)
	return nil
}

func exitCode(err error) int {
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	return tools.ExitCode(err, 1)
}
