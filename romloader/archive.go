package romloader

import (
	"fmt"
	"io"

	"github.com/pixl-project/retroplayer/coreif"
)

// visitFunc is called for each regular archive member. open returns the
// member's contents and is only valid until visitFunc returns. Returning
// true stops the walk.
type visitFunc func(name string, open func() (io.Reader, error)) (bool, error)

// detect reads the header of path and returns its archive format.
func (r *Resolver) detect(path string) (formatType, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return formatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return formatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return detectFormat(header[:n], path), nil
}

// walk visits the members of the archive at path.
func (r *Resolver) walk(path string, format formatType, visit visitFunc) error {
	f, err := r.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	switch format {
	case formatZIP:
		return walkZIP(f, info.Size(), visit)
	case format7z:
		return walk7z(f, info.Size(), visit)
	case formatRAR:
		return walkRAR(f, visit)
	case formatGzip:
		return walkGzip(f, path, visit)
	case formatXZ:
		return walkXZ(f, path, visit)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Members lists the regular files inside the archive at path.
func (r *Resolver) Members(path string) ([]string, error) {
	path = r.Translate(path)
	format, err := r.detect(path)
	if err != nil {
		return nil, err
	}

	var names []string
	err = r.walk(path, format, func(name string, _ func() (io.Reader, error)) (bool, error) {
		names = append(names, cleanMember(name))
		return false, nil
	})
	return names, err
}

// firstMember returns the first member accepted by extensions.
func (r *Resolver) firstMember(path string, format formatType, extensions coreif.ExtensionSet) (string, error) {
	var found string
	err := r.walk(path, format, func(name string, _ func() (io.Reader, error)) (bool, error) {
		if !isROMFile(name, extensions) {
			return false, nil
		}
		found = cleanMember(name)
		return true, nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNoROMFile
	}
	return found, nil
}

// openMember finds member in the archive and passes its contents to fn.
func (r *Resolver) openMember(archive, member string, fn func(io.Reader) error) error {
	format, err := r.detect(archive)
	if err != nil {
		return err
	}

	member = cleanMember(member)
	var found bool
	err = r.walk(archive, format, func(name string, open func() (io.Reader, error)) (bool, error) {
		if cleanMember(name) != member {
			return false, nil
		}
		found = true
		rc, err := open()
		if err != nil {
			return true, fmt.Errorf("failed to open %s in archive: %w", name, err)
		}
		if err := fn(rc); err != nil {
			return true, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s in %s", ErrNoROMFile, member, archive)
	}
	return nil
}

// readMember returns the contents of one archive member.
func (r *Resolver) readMember(archive, member string) ([]byte, error) {
	var data []byte
	err := r.openMember(archive, member, func(rd io.Reader) error {
		var err error
		data, err = limitedRead(rd, r.maxSize)
		return err
	})
	return data, err
}
