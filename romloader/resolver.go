package romloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/coreif"
)

const (
	fileScheme    = "file://"
	specialScheme = "special://"
)

// DefaultCacheSize is the number of extracted members kept on disk.
const DefaultCacheSize = 32

// Options configures a Resolver.
type Options struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Roots maps special://<name>/ prefixes to directories.
	Roots map[string]string
	// CacheDir receives extracted archive members. Defaults to a
	// retroplayer directory under the OS temp dir.
	CacheDir  string
	CacheSize int
	MaxSize   int64
	Logger    zerolog.Logger
}

// Resolver turns content paths into paths a core can open. A path may name
// a plain file, an archive, or a member inside an archive written as
// "<archive>/<member>".
type Resolver struct {
	fs      afero.Fs
	roots   map[string]string
	dir     string
	maxSize int64
	log     zerolog.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, string]
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) (*Resolver, error) {
	r := &Resolver{
		fs:      opts.Fs,
		roots:   make(map[string]string, len(opts.Roots)),
		dir:     opts.CacheDir,
		maxSize: opts.MaxSize,
		log:     opts.Logger.With().Str("component", "romloader").Logger(),
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.dir == "" {
		r.dir = filepath.Join(os.TempDir(), "retroplayer", "extracted")
	}
	if r.maxSize <= 0 {
		r.maxSize = DefaultMaxSize
	}
	for name, root := range opts.Roots {
		r.roots[strings.Trim(name, "/")] = root
	}

	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.NewWithEvict(size, r.evict)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Translate expands special:// roots and strips file://. Other paths are
// returned unchanged.
func (r *Resolver) Translate(path string) string {
	switch {
	case strings.HasPrefix(path, fileScheme):
		return filepath.FromSlash(strings.TrimPrefix(path, fileScheme))
	case strings.HasPrefix(path, specialScheme):
		name, rest, _ := strings.Cut(strings.TrimPrefix(path, specialScheme), "/")
		root, ok := r.roots[name]
		if !ok {
			r.log.Warn().Str("path", path).Str("root", name).Msg("unknown special root")
			return path
		}
		return filepath.Join(root, filepath.FromSlash(rest))
	}
	return path
}

// Resolve returns the path to hand to the core described by desc.
//
// A member inside an archive resolves to the archive itself when the member
// sits at the archive root and the core accepts the archive's extension.
// Otherwise cores with VFS support get the member path unchanged and read it
// through ReadFile, and other cores get an extracted copy. An archive the
// core does not accept resolves the same way to its first accepted member.
func (r *Resolver) Resolve(path string, desc coreif.Descriptor) (string, error) {
	p := r.Translate(path)

	if archive, member, ok := r.splitArchivePath(p); ok {
		if !strings.Contains(member, "/") && desc.Extensions.Contains(filepath.Ext(archive)) {
			r.log.Debug().
				Str("path", p).
				Str("archive", archive).
				Msg("using parent archive")
			return archive, nil
		}
		if desc.SupportsVFS {
			return p, nil
		}
		return r.extract(archive, member)
	}

	if desc.Extensions.AcceptsPath(p) {
		return p, nil
	}

	format, err := r.detect(p)
	if err != nil {
		return "", err
	}
	if format == formatUnknown {
		return p, nil
	}

	member, err := r.firstMember(p, format, desc.Extensions)
	if err != nil {
		return "", err
	}
	r.log.Debug().
		Str("archive", p).
		Str("member", member).
		Msg("selected archive member")

	if desc.SupportsVFS {
		return joinMember(p, member), nil
	}
	return r.extract(p, member)
}

// Peek reports whether path is an archive, or a member inside one, that
// holds content desc accepts.
func (r *Resolver) Peek(path string, desc coreif.Descriptor) bool {
	p := r.Translate(path)

	if _, member, ok := r.splitArchivePath(p); ok {
		return isROMFile(member, desc.Extensions)
	}

	format, err := r.detect(p)
	if err != nil || format == formatUnknown {
		return false
	}
	_, err = r.firstMember(p, format, desc.Extensions)
	return err == nil
}

// ReadFile returns the contents of a plain file or an archive member.
func (r *Resolver) ReadFile(path string) ([]byte, error) {
	p := r.Translate(path)

	if archive, member, ok := r.splitArchivePath(p); ok {
		return r.readMember(archive, member)
	}

	f, err := r.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := limitedRead(f, r.maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// splitArchivePath splits a path that does not exist on disk into an
// existing archive and the member path below it.
func (r *Resolver) splitArchivePath(p string) (string, string, bool) {
	if _, err := r.fs.Stat(p); err == nil {
		return "", "", false
	}

	for dir := filepath.Dir(p); ; {
		info, err := r.fs.Stat(dir)
		if err == nil {
			if info.IsDir() || formatFromName(dir) == formatUnknown {
				return "", "", false
			}
			member := cleanMember(strings.TrimPrefix(p, dir))
			return dir, member, member != ""
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false
		}
		dir = parent
	}
}

func joinMember(archive, member string) string {
	return archive + string(filepath.Separator) + filepath.FromSlash(member)
}
