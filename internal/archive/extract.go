package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrUnsafePath        = errors.New("archive: unsafe entry path")
	ErrUnsupportedFormat = errors.New("archive: unsupported format")
	ErrUnsupportedEntry  = errors.New("archive: unsupported entry type")
)

type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
)

// Options controls how entry names are remapped.
type Options struct {
	// Strip is the top-level directory every kept entry lives under.
	Strip string
	// Dest receives the contents of Strip.
	Dest string
}

// Stats counts what an extraction wrote.
type Stats struct {
	Files    int
	Dirs     int
	Symlinks int
	Skipped  int
	Bytes    int64
}

// Source is what Extract reads from; *os.File satisfies it.
type Source interface {
	io.Reader
	io.ReaderAt
}

// maxLinkDepth bounds symlink chains followed while resolving a link target.
const maxLinkDepth = 40

// Extract unpacks r (size bytes long) according to format. Directory modes
// are applied once every entry is written so read-only directories can
// still receive their children.
func Extract(ctx context.Context, r Source, size int64, format Format, opts Options) (Stats, error) {
	dest, err := filepath.Abs(opts.Dest)
	if err != nil {
		return Stats{}, err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Stats{}, err
	}

	x := &extractor{
		dest:     dest,
		strip:    strings.Trim(path.Clean("/"+filepath.ToSlash(opts.Strip)), "/"),
		logger:   zerolog.Ctx(ctx),
		dirModes: map[string]os.FileMode{},
	}

	switch format {
	case FormatZip:
		err = x.zip(ctx, r, size)
	case FormatTarGz:
		err = x.tarGz(ctx, r)
	case FormatTarBz2:
		err = x.tarBz2(ctx, r)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return x.stats, err
	}
	return x.stats, x.applyDirModes()
}

type extractor struct {
	dest     string
	strip    string
	logger   *zerolog.Logger
	stats    Stats
	dirModes map[string]os.FileMode
}

// target maps an archive entry name onto the destination tree. ok is false
// for entries outside the stripped directory.
func (x *extractor) target(name string) (string, bool, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") || hasDotDot(slashed) {
		return "", false, fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	clean := path.Clean(slashed)

	rel := clean
	if x.strip != "" {
		switch {
		case clean == x.strip:
			rel = "."
		case strings.HasPrefix(clean, x.strip+"/"):
			rel = strings.TrimPrefix(clean, x.strip+"/")
		default:
			return "", false, nil
		}
	}

	out := filepath.Join(x.dest, filepath.FromSlash(rel))
	if !isWithin(out, x.dest) {
		return "", false, fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return out, true, nil
}

func (x *extractor) skip(name string) {
	x.stats.Skipped++
	x.logger.Debug().Str("entry", name).Msg("skipping entry outside top-level directory")
}

func (x *extractor) writeDir(name string, target string, mode os.FileMode) error {
	if err := x.requireNoSymlinks(name, target); err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	x.dirModes[target] = mode.Perm()
	x.stats.Dirs++
	return nil
}

// applyDirModes chmods the deepest directories first so a parent without
// search permission does not hide its children.
func (x *extractor) applyDirModes() error {
	dirs := make([]string, 0, len(x.dirModes))
	for dir := range x.dirModes {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return len(dirs[i]) > len(dirs[j])
	})
	for _, dir := range dirs {
		// MkdirAll is subject to umask and leaves existing dirs alone.
		if err := os.Chmod(dir, x.dirModes[dir]); err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) writeFile(name string, target string, mode os.FileMode, r io.Reader) error {
	if err := x.requireNoSymlinks(name, filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := removeSymlink(target); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Chmod(target, mode.Perm()); err != nil {
		return err
	}
	x.stats.Files++
	x.stats.Bytes += n
	return nil
}

func (x *extractor) writeSymlink(name string, target string, linkname string) error {
	if err := x.requireNoSymlinks(name, filepath.Dir(target)); err != nil {
		return err
	}
	resolved, ok, err := x.resolve(filepath.Dir(target), linkname, 0)
	if err != nil {
		return err
	}
	if !ok || !isWithin(resolved, x.dest) {
		return fmt.Errorf("%w: symlink %q -> %q", ErrUnsafePath, name, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(linkname, target); err != nil {
		return err
	}
	x.stats.Symlinks++
	return nil
}

// requireNoSymlinks rejects writes whose path below dest passes through a
// symlink created by an earlier entry.
func (x *extractor) requireNoSymlinks(name string, p string) error {
	rel, err := filepath.Rel(x.dest, p)
	if err != nil || rel == "." {
		return err
	}
	cur := x.dest
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q passes through symlink %q", ErrUnsafePath, name, cur)
		}
	}
	return nil
}

// resolve walks linkname from dir the way the kernel would, following
// symlinks already on disk. ok is false when the walk leaves dest.
func (x *extractor) resolve(dir string, linkname string, depth int) (string, bool, error) {
	if depth > maxLinkDepth {
		return "", false, nil
	}
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return "", false, nil
	}
	cur := dir
	for _, part := range strings.Split(filepath.ToSlash(linkname), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			next := filepath.Join(cur, part)
			info, err := os.Lstat(next)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				// not extracted yet
			case err != nil:
				return "", false, err
			case info.Mode()&os.ModeSymlink != 0:
				link, err := os.Readlink(next)
				if err != nil {
					return "", false, err
				}
				resolved, ok, err := x.resolve(cur, link, depth+1)
				if !ok || err != nil {
					return "", false, err
				}
				next = resolved
			}
			cur = next
		}
		if !isWithin(cur, x.dest) {
			return "", false, nil
		}
	}
	return cur, true, nil
}

func removeSymlink(p string) error {
	info, err := os.Lstat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return os.Remove(p)
	}
	return nil
}

func hasDotDot(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func isWithin(p string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
