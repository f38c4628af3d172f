package romloader

import (
	"archive/tar"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// walkGzip visits the members of a tar.gz archive, or the single
// decompressed stream of a plain .gz file
func walkGzip(r io.Reader, path string, visit visitFunc) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return openError(formatGzip, err)
	}
	defer gr.Close()

	return walkStream(gr, path, visit)
}

// walkXZ is walkGzip for xz compression
func walkXZ(r io.Reader, path string, visit visitFunc) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return openError(formatXZ, err)
	}

	return walkStream(xr, path, visit)
}

func walkStream(r io.Reader, path string, visit visitFunc) error {
	if isTarName(path) {
		return walkTar(r, visit)
	}
	_, err := visit(streamMemberName(path), func() (io.Reader, error) { return r, nil })
	return err
}

// walkTar visits every regular file in a tar stream
func walkTar(r io.Reader, visit visitFunc) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		stop, err := visit(header.Name, func() (io.Reader, error) { return tr, nil })
		if err != nil || stop {
			return err
		}
	}
}
