package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/antkit/internal/archive"
	"github.com/danmuck/antkit/internal/observability"
	"github.com/danmuck/antkit/internal/source"
	"github.com/danmuck/antkit/internal/tools"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidConfig = errors.New("packager: invalid config")
	ErrPkgbuild      = errors.New("packager: pkgbuild failed")
)

const (
	DefaultIdentifier    = "org.apache.ant"
	DefaultInstallPrefix = "/usr/local/ant"
	DefaultPathsFile     = "/etc/paths.d/ant"
	DefaultPkgbuild      = "pkgbuild"
)

// Config is the packager configuration after file and flag merging.
type Config struct {
	Identifier    string
	InstallPrefix string
	PathsFile     string
	OutputDir     string
	PkgbuildPath  string
	SHA512        string
	KeepWorkDir   bool
	// WorkDirParent is where the temporary work directory is created;
	// empty means os.TempDir.
	WorkDirParent string
}

func DefaultConfig() Config {
	return Config{
		Identifier:    DefaultIdentifier,
		InstallPrefix: DefaultInstallPrefix,
		PathsFile:     DefaultPathsFile,
		OutputDir:     ".",
		PkgbuildPath:  DefaultPkgbuild,
	}
}

// Result describes a built package.
type Result struct {
	PackagePath string
	Version     string
	Stats       archive.Stats
}

// Opener yields a readable archive for a source; *source.Fetcher implements it.
type Opener interface {
	Open(ctx context.Context, src source.Source, workDir string) (*os.File, error)
}

// Packager builds installer packages from Ant archives.
type Packager struct {
	cfg    Config
	opener Opener
	runner tools.CommandRunner
}

// New validates cfg and fills in defaults for empty fields.
func New(cfg Config, opener Opener, runner tools.CommandRunner) (*Packager, error) {
	def := DefaultConfig()
	cfg.Identifier = orDefault(cfg.Identifier, def.Identifier)
	cfg.InstallPrefix = orDefault(cfg.InstallPrefix, def.InstallPrefix)
	cfg.PathsFile = orDefault(cfg.PathsFile, def.PathsFile)
	cfg.OutputDir = orDefault(cfg.OutputDir, def.OutputDir)
	cfg.PkgbuildPath = orDefault(cfg.PkgbuildPath, def.PkgbuildPath)
	cfg.SHA512 = strings.TrimSpace(cfg.SHA512)

	if err := validateTargetPath("install_prefix", cfg.InstallPrefix); err != nil {
		return nil, err
	}
	if err := validateTargetPath("paths_file", cfg.PathsFile); err != nil {
		return nil, err
	}
	if path.Clean(cfg.InstallPrefix) == "/" {
		return nil, fmt.Errorf("%w: install_prefix must not be /", ErrInvalidConfig)
	}
	if strings.ContainsAny(cfg.Identifier, " \t/") {
		return nil, fmt.Errorf("%w: identifier=%q", ErrInvalidConfig, cfg.Identifier)
	}
	if opener == nil {
		opener = source.NewFetcher(0)
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Packager{cfg: cfg, opener: opener, runner: runner}, nil
}

// Config returns the effective configuration.
func (p *Packager) Config() Config { return p.cfg }

// Build fetches, extracts and packages src. The work directory is removed
// before Build returns unless KeepWorkDir is set.
func (p *Packager) Build(ctx context.Context, src source.Source) (res Result, err error) {
	logger := zerolog.Ctx(ctx).With().Str("version", src.Version).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()
	defer func() {
		observability.RecordBuild(src.Version, err == nil, time.Since(start))
	}()

	workDir, err := os.MkdirTemp(p.cfg.WorkDirParent, "antpkg-")
	if err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	if p.cfg.KeepWorkDir {
		logger.Warn().Str("path", workDir).Msg("keeping work dir")
	} else {
		defer func() {
			if rmErr := removeWorkDir(workDir); rmErr != nil {
				logger.Warn().Err(rmErr).Str("path", workDir).Msg("remove work dir")
			}
		}()
	}

	root := filepath.Join(workDir, "root")
	stats, err := p.stage(ctx, src, workDir, root)
	if err != nil {
		return Result{}, err
	}
	observability.RecordExtraction(stats.Files, stats.Dirs, stats.Symlinks, stats.Skipped, stats.Bytes)
	logger.Info().
		Int("files", stats.Files).
		Int("dirs", stats.Dirs).
		Int("skipped", stats.Skipped).
		Int64("bytes", stats.Bytes).
		Msg("archive extracted")

	if err := p.writePathsFile(root); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	pkgPath := filepath.Join(p.cfg.OutputDir, src.PackageName())
	if err := p.pkgbuild(ctx, root, src.Version, pkgPath); err != nil {
		return Result{}, err
	}

	logger.Info().Str("package", pkgPath).Msg("package built")
	return Result{PackagePath: pkgPath, Version: src.Version, Stats: stats}, nil
}

func (p *Packager) stage(ctx context.Context, src source.Source, workDir string, root string) (archive.Stats, error) {
	file, err := p.opener.Open(ctx, src, workDir)
	if err != nil {
		return archive.Stats{}, err
	}
	defer file.Close()

	if p.cfg.SHA512 != "" {
		if err := source.VerifySHA512(file, p.cfg.SHA512); err != nil {
			return archive.Stats{}, err
		}
		zerolog.Ctx(ctx).Debug().Msg("sha512 verified")
	}

	info, err := file.Stat()
	if err != nil {
		return archive.Stats{}, err
	}

	dest := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(path.Clean(p.cfg.InstallPrefix), "/")))
	stats, err := archive.Extract(ctx, file, info.Size(), archive.Format(src.Format), archive.Options{
		Strip: src.DirName,
		Dest:  dest,
	})
	if err != nil {
		return stats, fmt.Errorf("extract %s: %w", src.ArchiveName(), err)
	}
	if stats.Files == 0 {
		return stats, fmt.Errorf("extract %s: no files under %s/", src.ArchiveName(), src.DirName)
	}
	return stats, nil
}

// writePathsFile registers <prefix>/bin with path_helper via paths.d.
func (p *Packager) writePathsFile(root string) error {
	rel := strings.TrimPrefix(path.Clean(p.cfg.PathsFile), "/")
	target := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	content := path.Join(path.Clean(p.cfg.InstallPrefix), "bin") + "\n"
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write paths file: %w", err)
	}
	// WriteFile is subject to umask.
	return os.Chmod(target, 0o644)
}

func (p *Packager) pkgbuild(ctx context.Context, root string, version string, pkgPath string) error {
	args := []string{
		"--root", root,
		"--identifier", p.cfg.Identifier,
		"--version", version,
		"--install-location", "/",
		pkgPath,
	}
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("cmd", tools.JoinCommand(p.cfg.PkgbuildPath, args)).Msg("packager exec")

	stdout, stderr, exitCode, err := p.runner.Run(ctx, p.cfg.PkgbuildPath, args...)
	if err == nil {
		logger.Debug().Str("stdout", strings.TrimSpace(string(stdout))).Msg("pkgbuild output")
		return nil
	}
	return fmt.Errorf(
		"%w: cmd=%s exit=%d stdout=%q stderr=%q: %w",
		ErrPkgbuild,
		p.cfg.PkgbuildPath,
		exitCode,
		strings.TrimSpace(string(stdout)),
		strings.TrimSpace(string(stderr)),
		&tools.ExitError{Name: p.cfg.PkgbuildPath, Code: exitCode, Err: err},
	)
}

func validateTargetPath(field string, value string) error {
	if !strings.HasPrefix(value, "/") {
		return fmt.Errorf("%w: %s=%q must be absolute", ErrInvalidConfig, field, value)
	}
	for _, part := range strings.Split(value, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %s=%q must not contain ..", ErrInvalidConfig, field, value)
		}
	}
	return nil
}

func orDefault(value string, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}

// removeWorkDir makes staged directories writable first; archives may
// carry read-only directories that would otherwise block RemoveAll.
func removeWorkDir(dir string) error {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(p, 0o700)
		}
		return nil
	})
	return os.RemoveAll(dir)
}
