package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/antkit/internal/packager"
)

// options is the merged antpkg configuration.
type options struct {
	Packager        packager.Config
	DownloadTimeout time.Duration
	MetricsFile     string
	LogLevel        string
}

type fileConfig struct {
	Identifier      string `toml:"identifier"`
	InstallPrefix   string `toml:"install_prefix"`
	PathsFile       string `toml:"paths_file"`
	OutputDir       string `toml:"output_dir"`
	Pkgbuild        string `toml:"pkgbuild"`
	SHA512          string `toml:"sha512"`
	KeepWorkDir     bool   `toml:"keep_workdir"`
	DownloadTimeout string `toml:"download_timeout"`
	MetricsFile     string `toml:"metrics_file"`
	LogLevel        string `toml:"log_level"`
}

func defaultOptions() options {
	return options{
		Packager:        packager.DefaultConfig(),
		DownloadTimeout: 5 * time.Minute,
		LogLevel:        "info",
	}
}

// loadFileConfig applies the keys present in the TOML file at path onto opts.
func loadFileConfig(path string, opts options) (options, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return options{}, fmt.Errorf("load antpkg config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return options{}, fmt.Errorf("load antpkg config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("identifier") {
		opts.Packager.Identifier = strings.TrimSpace(raw.Identifier)
	}
	if meta.IsDefined("install_prefix") {
		opts.Packager.InstallPrefix = strings.TrimSpace(raw.InstallPrefix)
	}
	if meta.IsDefined("paths_file") {
		opts.Packager.PathsFile = strings.TrimSpace(raw.PathsFile)
	}
	if meta.IsDefined("output_dir") {
		opts.Packager.OutputDir = strings.TrimSpace(raw.OutputDir)
	}
	if meta.IsDefined("pkgbuild") {
		opts.Packager.PkgbuildPath = strings.TrimSpace(raw.Pkgbuild)
	}
	if meta.IsDefined("sha512") {
		opts.Packager.SHA512 = strings.TrimSpace(raw.SHA512)
	}
	if meta.IsDefined("keep_workdir") {
		opts.Packager.KeepWorkDir = raw.KeepWorkDir
	}
	if meta.IsDefined("download_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DownloadTimeout))
		if err != nil {
			return options{}, fmt.Errorf("parse download_timeout: %w", err)
		}
		opts.DownloadTimeout = d
	}
	if meta.IsDefined("metrics_file") {
		opts.MetricsFile = strings.TrimSpace(raw.MetricsFile)
	}
	if meta.IsDefined("log_level") {
		opts.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return opts, nil
}
