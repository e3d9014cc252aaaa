package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"
)

const defaultFetchTimeout = 5 * time.Minute

// Fetcher opens local archives and downloads remote ones.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher builds a Fetcher. A zero timeout selects the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "antkit-antpkg")
	return &Fetcher{client: client}
}

// Open returns a readable handle on the archive for src. Remote archives
// are downloaded into workDir first. The caller closes the file.
func (f *Fetcher) Open(ctx context.Context, src Source, workDir string) (*os.File, error) {
	if !src.Remote {
		file, err := os.Open(src.LocalPath())
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		return file, nil
	}

	dest := filepath.Join(workDir, src.ArchiveName())
	if err := f.download(ctx, src.trimmed, dest); err != nil {
		return nil, err
	}
	file, err := os.Open(dest)
	if err != nil {
		return nil, fmt.Errorf("open downloaded archive: %w", err)
	}
	return file, nil
}

func (f *Fetcher) download(ctx context.Context, location string, dest string) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("url", location).Msg("downloading archive")

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(location)
	if err != nil {
		return fmt.Errorf("http request failed for %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("%w: %s for %s", ErrFetchStatus, resp.Status(), location)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write data to %s: %w", dest, err)
	}

	logger.Debug().Str("path", dest).Int64("bytes", n).Msg("archive downloaded")
	return nil
}
