package romloader

import (
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// walkRAR visits every regular file in a single-volume RAR archive. Members
// are streamed, so each one can only be opened while it is being visited.
func walkRAR(r io.Reader, visit visitFunc) error {
	rr, err := rardecode.NewReader(r)
	if err != nil {
		return openError(formatRAR, err)
	}

	for {
		header, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}

		if header.IsDir {
			continue
		}

		stop, err := visit(header.Name, func() (io.Reader, error) { return rr, nil })
		if err != nil || stop {
			return err
		}
	}
}
