package romloader

import (
	"archive/zip"
	"io"
)

// walkZIP visits every regular file in a ZIP archive
func walkZIP(ra io.ReaderAt, size int64, visit visitFunc) error {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return openError(formatZIP, err)
	}

	for _, f := range zr.File {
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
