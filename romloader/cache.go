package romloader

import (
	"fmt"
	"hash/crc32"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// extract copies an archive member into the cache directory and returns
// the extracted path. Repeated requests for an unchanged archive reuse the
// earlier copy.
func (r *Resolver) extract(archive, member string) (string, error) {
	info, err := r.fs.Stat(archive)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}
	key := fmt.Sprintf("%s\x00%s\x00%d\x00%d", archive, cleanMember(member), info.Size(), info.ModTime().UnixNano())

	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.cache.Get(key); ok {
		if _, err := r.fs.Stat(path); err == nil {
			return path, nil
		}
		r.cache.Remove(key)
	}

	dir := filepath.Join(r.dir, fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(key))))
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(filepath.FromSlash(member)))

	if err := r.writeMember(archive, member, dst); err != nil {
		_ = r.fs.RemoveAll(dir)
		return "", err
	}

	r.cache.Add(key, dst)
	r.log.Info().
		Str("archive", archive).
		Str("member", member).
		Str("path", dst).
		Msg("extracted archive member")
	return dst, nil
}

// writeMember streams a member into a temp file next to dst and renames it
// into place.
func (r *Resolver) writeMember(archive, member, dst string) error {
	tmp, err := afero.TempFile(r.fs, filepath.Dir(dst), ".extract-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	err = r.openMember(archive, member, func(rd io.Reader) error {
		return limitedCopy(tmp, rd, r.maxSize)
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = r.fs.Remove(tmpPath)
		return err
	}

	if err := r.fs.Rename(tmpPath, dst); err != nil {
		_ = r.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename extracted file: %w", err)
	}
	return nil
}

// evict removes an extracted member once it falls out of the cache.
func (r *Resolver) evict(_ string, path string) {
	if err := r.fs.RemoveAll(filepath.Dir(path)); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to remove extracted member")
	}
}

// Purge removes every extracted member.
func (r *Resolver) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
