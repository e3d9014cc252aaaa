package source

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidLocation = errors.New("source: invalid archive location")
	ErrFetchStatus     = errors.New("source: unexpected download status")
	ErrChecksum        = errors.New("source: checksum mismatch")
)

type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
)

// NamePattern documents the accepted archive base name.
const NamePattern = "apache-ant-<version>-bin.{zip,tar.gz,tgz,tar.bz2}"

const dirPrefix = "apache-ant-"

var archiveName = regexp.MustCompile(`^apache-ant-(\d+(?:\.\d+)*(?:[-.]?[A-Za-z0-9]+)?)-bin\.(zip|tar\.gz|tgz|tar\.bz2)$`)

// Source is a parsed archive location. It is not modified after Parse.
type Source struct {
	Location string
	Remote   bool
	Version  string
	DirName  string
	Format   Format

	// trimmed is Location without surrounding whitespace; it is what gets
	// opened or downloaded.
	trimmed string
	base    string
}

// Parse validates location against the Ant binary archive naming
// convention and extracts its version and top-level directory name.
func Parse(location string) (Source, error) {
	raw := strings.TrimSpace(location)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}

	remote, base, err := splitLocation(raw)
	if err != nil {
		return Source{}, err
	}

	m := archiveName.FindStringSubmatch(base)
	if m == nil {
		return Source{}, fmt.Errorf("%w: %q does not match %s", ErrInvalidLocation, base, NamePattern)
	}

	format := Format(m[2])
	if m[2] == "tgz" {
		format = FormatTarGz
	}

	return Source{
		Location: location,
		Remote:   remote,
		Version:  m[1],
		DirName:  dirPrefix + m[1],
		Format:   format,
		trimmed:  raw,
		base:     base,
	}, nil
}

func splitLocation(raw string) (bool, string, error) {
	u, err := url.Parse(raw)
	if err == nil && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			if u.Host == "" {
				return false, "", fmt.Errorf("%w: %q has no host", ErrInvalidLocation, raw)
			}
			return true, path.Base(u.Path), nil
		case "file":
			return false, path.Base(u.Path), nil
		default:
			return false, "", fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidLocation, u.Scheme, raw)
		}
	}
	return false, filepath.Base(raw), nil
}

// ArchiveName is the base name of the archive.
func (s Source) ArchiveName() string { return s.base }

// PackageName is the installer file name derived from the version.
func (s Source) PackageName() string {
	return dirPrefix + s.Version + ".pkg"
}

// LocalPath returns the filesystem path of a non-remote source.
func (s Source) LocalPath() string {
	if u, err := url.Parse(s.trimmed); err == nil && strings.EqualFold(u.Scheme, "file") {
		return filepath.FromSlash(u.Path)
	}
	return s.trimmed
}
