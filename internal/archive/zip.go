package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

func (x *extractor) zip(ctx context.Context, r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok, err := x.target(f.Name)
		if err != nil {
			return err
		}
		if !ok {
			x.skip(f.Name)
			continue
		}

		mode := f.Mode()
		if f.FileInfo().IsDir() {
			if err := x.writeDir(f.Name, target, dirMode(mode)); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() {
			return fmt.Errorf("%w: %q mode %v", ErrUnsupportedEntry, f.Name, mode)
		}
		if err := x.extractZipFile(f, target, fileMode(mode)); err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) extractZipFile(f *zip.File, target string, mode os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %q: %w", f.Name, err)
	}
	defer rc.Close()
	return x.writeFile(f.Name, target, mode, rc)
}
