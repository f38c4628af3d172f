package romloader

import (
	"io"

	"github.com/bodgit/sevenzip"
)

// walk7z visits every regular file in a 7z archive
func walk7z(ra io.ReaderAt, size int64, visit visitFunc) error {
	r, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return openError(format7z, err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		var rc io.ReadCloser
		stop, err := visit(f.Name, func() (io.Reader, error) {
			var err error
			rc, err = f.Open()
			return rc, err
		})
		if rc != nil {
			rc.Close()
		}
		if err != nil || stop {
			return err
		}
	}
	return nil
}
