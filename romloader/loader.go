// Package romloader resolves content paths for libretro cores. It expands
// special-protocol roots, looks inside compressed archives (ZIP, 7z, RAR,
// gzip, xz and their tar variants) and extracts members for cores that
// cannot read archives themselves.
package romloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pixl-project/retroplayer/coreif"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicXZ     = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// DefaultMaxSize caps how much content is read into memory or extracted
// from a single archive member.
const DefaultMaxSize = 512 * 1024 * 1024

// ErrNoROMFile is returned when no ROM file is found in an archive
var ErrNoROMFile = errors.New("no ROM file found in archive")

// ErrUnsupportedFormat is returned for unrecognized file formats
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when extracted content exceeds size limit
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// formatType represents the detected file format
type formatType int

const (
	formatUnknown formatType = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
	formatXZ
)

func (f formatType) String() string {
	switch f {
	case formatZIP:
		return "zip"
	case format7z:
		return "7z"
	case formatGzip:
		return "gzip"
	case formatRAR:
		return "rar"
	case formatXZ:
		return "xz"
	}
	return "unknown"
}

// detectFormat determines the archive format from magic bytes, falling back
// to the file name. Plain content reports formatUnknown.
func detectFormat(header []byte, path string) formatType {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicXZ):
		return formatXZ
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}
	return formatFromName(path)
}

// formatFromName maps archive extensions to a format.
func formatFromName(path string) formatType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	case ".xz", ".txz":
		return formatXZ
	}
	return formatUnknown
}

// isTarName reports whether a compressed stream wraps a tar archive.
func isTarName(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// streamMemberName is the name of the single member of a plain .gz or .xz
// file: the base name without the compression suffix.
func streamMemberName(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".gz", ".xz":
		return name[:len(name)-len(ext)]
	}
	return name
}

// isROMFile checks if a member name is accepted by the extension set. An
// empty set accepts any member.
func isROMFile(name string, extensions coreif.ExtensionSet) bool {
	return extensions.AcceptsPath(name)
}

// limitedRead reads from r up to limit bytes, returning an error if exceeded
func limitedRead(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// limitedCopy copies at most limit bytes from r to w.
func limitedCopy(w io.Writer, r io.Reader, limit int64) error {
	n, err := io.Copy(w, io.LimitReader(r, limit+1))
	if err != nil {
		return err
	}
	if n > limit {
		return ErrFileTooLarge
	}
	return nil
}

// cleanMember normalizes an archive member name for comparison.
func cleanMember(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	return strings.TrimPrefix(name, "/")
}

func openError(format formatType, err error) error {
	return fmt.Errorf("failed to open %s: %w", format, err)
}
