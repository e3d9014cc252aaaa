package packager

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/antkit/internal/source"
	"github.com/danmuck/antkit/internal/testutil/testlog"
	"github.com/danmuck/antkit/internal/tools"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type pkgbuildCall struct {
	name string
	args []string
	// snapshot of the staged root taken while pkgbuild "runs"
	pathsFile string
	antMode   os.FileMode
}

type fakeRunner struct {
	calls    []pkgbuildCall
	exitCode int
	err      error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	call := pkgbuildCall{name: name, args: append([]string(nil), args...)}
	root := args[1]
	if data, err := os.ReadFile(filepath.Join(root, "etc", "paths.d", "ant")); err == nil {
		call.pathsFile = string(data)
	}
	if info, err := os.Stat(filepath.Join(root, "usr", "local", "ant", "bin", "ant")); err == nil {
		call.antMode = info.Mode().Perm()
	}
	r.calls = append(r.calls, call)
	if r.err != nil {
		return nil, []byte("pkgbuild: error"), r.exitCode, r.err
	}
	return []byte("pkgbuild: Wrote package"), nil, 0, nil
}

func (r *fakeRunner) RunAttached(context.Context, tools.Attached) (int, error) {
	return 0, errors.New("not used")
}

func writeArchive(t *testing.T, dir string, version string) string {
	t.Helper()
	top := "apache-ant-" + version
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := []struct {
		name string
		mode int64
		body string
	}{
		{top + "/bin/ant", 0o755, "#!/bin/sh\nexec java\n"},
		{top + "/lib/ant-launcher.jar", 0o644, "PK\x03\x04"},
	}
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Mode:     f.mode,
			Size:     int64(len(f.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, top+"-bin.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "work dir leaked")
}

func TestBuildStagesRootAndRunsPkgbuild(t *testing.T) {
	testlog.Start(t)
	archivePath := writeArchive(t, t.TempDir(), "1.10.14")
	src, err := source.Parse(archivePath)
	require.NoError(t, err)

	workParent := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "dist")
	runner := &fakeRunner{}
	p, err := New(Config{OutputDir: outDir, WorkDirParent: workParent}, nil, runner)
	require.NoError(t, err)

	res, err := p.Build(testlog.Context(t), src)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outDir, "apache-ant-1.10.14.pkg"), res.PackagePath)
	require.Equal(t, "1.10.14", res.Version)
	require.Equal(t, 2, res.Stats.Files)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	require.Equal(t, "pkgbuild", call.name)
	require.Equal(t, "--identifier", call.args[2])
	require.Equal(t, "org.apache.ant", call.args[3])
	require.Equal(t, []string{"--version", "1.10.14", "--install-location", "/", res.PackagePath}, call.args[4:])
	require.Equal(t, "/usr/local/ant/bin\n", call.pathsFile)
	require.Equal(t, os.FileMode(0o755), call.antMode)

	requireEmptyDir(t, workParent)
}

func TestBuildRemovesWorkDirOnPkgbuildFailure(t *testing.T) {
	testlog.Start(t)
	src, err := source.Parse(writeArchive(t, t.TempDir(), "1.9.16"))
	require.NoError(t, err)

	workParent := t.TempDir()
	runner := &fakeRunner{exitCode: 4, err: errors.New("exit status 4")}
	p, err := New(Config{OutputDir: t.TempDir(), WorkDirParent: workParent}, nil, runner)
	require.NoError(t, err)

	_, err = p.Build(testlog.Context(t), src)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPkgbuild), "got %v", err)
	require.Equal(t, 4, tools.ExitCode(err, 1))
	requireEmptyDir(t, workParent)
}

func TestBuildRemovesWorkDirOnExtractFailure(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "apache-ant-1.10.14-bin.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))
	src, err := source.Parse(path)
	require.NoError(t, err)

	workParent := t.TempDir()
	runner := &fakeRunner{}
	p, err := New(Config{WorkDirParent: workParent, OutputDir: t.TempDir()}, nil, runner)
	require.NoError(t, err)

	_, err = p.Build(testlog.Context(t), src)
	require.Error(t, err)
	require.Empty(t, runner.calls)
	requireEmptyDir(t, workParent)
}

func TestBuildRejectsArchiveWithWrongTopLevelDir(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	// contents are 1.10.13 but the name says 1.10.14
	mislabeled := writeArchive(t, dir, "1.10.13")
	renamed := filepath.Join(dir, "apache-ant-1.10.14-bin.tar.gz")
	require.NoError(t, os.Rename(mislabeled, renamed))
	src, err := source.Parse(renamed)
	require.NoError(t, err)

	workParent := t.TempDir()
	p, err := New(Config{WorkDirParent: workParent, OutputDir: t.TempDir()}, nil, &fakeRunner{})
	require.NoError(t, err)

	_, err = p.Build(testlog.Context(t), src)
	require.ErrorContains(t, err, "no files under apache-ant-1.10.14/")
	requireEmptyDir(t, workParent)
}

func TestBuildVerifiesSHA512(t *testing.T) {
	testlog.Start(t)
	archivePath := writeArchive(t, t.TempDir(), "1.10.14")
	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	sum := sha512.Sum512(data)
	src, err := source.Parse(archivePath)
	require.NoError(t, err)

	good, err := New(Config{
		OutputDir:     t.TempDir(),
		WorkDirParent: t.TempDir(),
		SHA512:        hex.EncodeToString(sum[:]),
	}, nil, &fakeRunner{})
	require.NoError(t, err)
	_, err = good.Build(testlog.Context(t), src)
	require.NoError(t, err)

	runner := &fakeRunner{}
	bad, err := New(Config{
		OutputDir:     t.TempDir(),
		WorkDirParent: t.TempDir(),
		SHA512:        "00",
	}, nil, runner)
	require.NoError(t, err)
	_, err = bad.Build(testlog.Context(t), src)
	require.True(t, errors.Is(err, source.ErrChecksum), "got %v", err)
	require.Empty(t, runner.calls)
}

func TestBuildCustomPrefixAndKeepWorkDir(t *testing.T) {
	testlog.Start(t)
	src, err := source.Parse(writeArchive(t, t.TempDir(), "1.10.14"))
	require.NoError(t, err)

	workParent := t.TempDir()
	runner := &fakeRunner{}
	p, err := New(Config{
		Identifier:    "com.example.ant",
		InstallPrefix: "/opt/ant/",
		PathsFile:     "/etc/paths.d/50-ant",
		OutputDir:     t.TempDir(),
		WorkDirParent: workParent,
		KeepWorkDir:   true,
	}, nil, runner)
	require.NoError(t, err)

	_, err = p.Build(testlog.Context(t), src)
	require.NoError(t, err)

	entries, err := os.ReadDir(workParent)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	root := filepath.Join(workParent, entries[0].Name(), "root")

	paths, err := os.ReadFile(filepath.Join(root, "etc", "paths.d", "50-ant"))
	require.NoError(t, err)
	require.Equal(t, "/opt/ant/bin\n", string(paths))
	_, err = os.Stat(filepath.Join(root, "opt", "ant", "lib", "ant-launcher.jar"))
	require.NoError(t, err)
	require.Equal(t, "com.example.ant", runner.calls[0].args[3])
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []Config{
		{InstallPrefix: "usr/local/ant"},
		{InstallPrefix: "/"},
		{InstallPrefix: "/usr/../etc"},
		{PathsFile: "paths.d/ant"},
		{Identifier: "org apache ant"},
	}
	for _, cfg := range cases {
		_, err := New(cfg, nil, &fakeRunner{})
		require.True(t, errors.Is(err, ErrInvalidConfig), "cfg=%+v err=%v", cfg, err)
	}
}

func TestBuildRemovesWorkDirWithReadOnlyDirs(t *testing.T) {
	testlog.Start(t)
	top := "apache-ant-1.10.14"
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/etc/", Mode: 0o555, Typeflag: tar.TypeDir}))
	body := "<project/>"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/etc/ant-update.xml", Mode: 0o444, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	archivePath := filepath.Join(t.TempDir(), top+"-bin.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))
	src, err := source.Parse(archivePath)
	require.NoError(t, err)

	workParent := t.TempDir()
	p, err := New(Config{OutputDir: t.TempDir(), WorkDirParent: workParent}, nil, &fakeRunner{})
	require.NoError(t, err)

	_, err = p.Build(testlog.Context(t), src)
	require.NoError(t, err)
	requireEmptyDir(t, workParent)
}
