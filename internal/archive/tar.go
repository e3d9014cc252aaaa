package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

func (x *extractor) tarGz(ctx context.Context, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	return x.tar(ctx, gz)
}

func (x *extractor) tarBz2(ctx context.Context, r io.Reader) error {
	return x.tar(ctx, bzip2.NewReader(r))
}

func (x *extractor) tar(ctx context.Context, r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, ok, err := x.target(hdr.Name)
		if err != nil {
			return err
		}
		if !ok {
			x.skip(hdr.Name)
			continue
		}

		mode := hdr.FileInfo().Mode()
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = x.writeDir(hdr.Name, target, mode)
		case tar.TypeReg:
			err = x.writeFile(hdr.Name, target, mode, tr)
		case tar.TypeSymlink:
			err = x.writeSymlink(hdr.Name, target, hdr.Linkname)
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			continue
		default:
			err = fmt.Errorf("%w: %q type %q", ErrUnsupportedEntry, hdr.Name, string(hdr.Typeflag))
		}
		if err != nil {
			return err
		}
	}
}
