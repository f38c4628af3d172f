// Package gamedb reads libretro game databases (RDB files): MessagePack
// records of known dumps keyed by checksum. It identifies content so the
// frontend can show a proper title and pick a region.
package gamedb

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/api"
)

// Extension is the file extension of game databases.
const Extension = ".rdb"

// RDB files start with this magic followed by an 8 byte metadata offset.
var magic = []byte("RARCHDB\x00")

const headerSize = 0x10

var ErrNotDatabase = errors.New("not a game database")

// Entry is a single known dump.
type Entry struct {
	Name         string // full No-Intro name, e.g. "Sonic the Hedgehog (USA, Europe)"
	Description  string
	Genre        string
	Developer    string
	Publisher    string
	Franchise    string
	ESRBRating   string
	ROMName      string
	Serial       string
	ReleaseYear  uint
	ReleaseMonth uint
	Size         uint64
	CRC32        uint32
	MD5          string // lowercase hex
}

// DisplayName returns the name without its parenthesized tags.
func (e Entry) DisplayName() string {
	return DisplayName(e.Name)
}

// Region returns the video region implied by the name tags.
func (e Entry) Region() (api.Region, bool) {
	return RegionOf(e.Name)
}

// DB indexes entries by checksum. The zero value is an empty database.
type DB struct {
	entries []Entry
	byCRC   map[uint32]int
	byMD5   map[string]int
}

// Parse decodes an RDB file.
func Parse(data []byte) (*DB, error) {
	if len(data) < headerSize || !bytes.HasPrefix(data, magic) {
		return nil, ErrNotDatabase
	}

	db := &DB{}
	d := decoder{data: data, pos: headerSize}
	for d.pos < len(d.data) {
		n, ok, err := d.mapHeader()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(db.entries), err)
		}
		if !ok {
			break
		}

		var e Entry
		for i := 0; i < n; i++ {
			key, err := d.value()
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(db.entries), err)
			}
			val, err := d.value()
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(db.entries), err)
			}
			setField(&e, string(key.raw), val)
		}
		if e.Name != "" || e.CRC32 != 0 {
			db.add(e)
		}
	}
	return db, nil
}

func setField(e *Entry, key string, v value) {
	switch key {
	case "name":
		e.Name = string(v.raw)
	case "description":
		e.Description = string(v.raw)
	case "genre":
		e.Genre = string(v.raw)
	case "developer":
		e.Developer = string(v.raw)
	case "publisher":
		e.Publisher = string(v.raw)
	case "franchise":
		e.Franchise = string(v.raw)
	case "esrb_rating":
		e.ESRBRating = string(v.raw)
	case "rom_name":
		e.ROMName = string(v.raw)
	case "serial":
		e.Serial = string(v.raw)
	case "releaseyear":
		e.ReleaseYear = uint(v.uint())
	case "releasemonth":
		e.ReleaseMonth = uint(v.uint())
	case "size":
		e.Size = v.uint()
	case "crc":
		e.CRC32 = uint32(v.uint())
	case "md5":
		e.MD5 = hex.EncodeToString(v.raw)
	}
}

func (db *DB) add(e Entry) {
	if db.byCRC == nil {
		db.byCRC = make(map[uint32]int)
		db.byMD5 = make(map[string]int)
	}
	i := len(db.entries)
	db.entries = append(db.entries, e)
	if e.CRC32 != 0 {
		db.byCRC[e.CRC32] = i
	}
	if e.MD5 != "" {
		db.byMD5[e.MD5] = i
	}
}

// Open reads and parses the database at path.
func Open(fs afero.Fs, path string) (*DB, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game database: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return db, nil
}

// Load opens path if it is a database file, or merges every database in it
// if it is a directory. Unreadable files in a directory are logged and
// skipped.
func Load(fs afero.Fs, path string, log zerolog.Logger) (*DB, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open game database: %w", err)
	}
	if !info.IsDir() {
		return Open(fs, path)
	}

	files, err := afero.ReadDir(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list game databases: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), Extension) {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	db := &DB{}
	for _, name := range names {
		part, err := Open(fs, filepath.Join(path, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping game database")
			continue
		}
		db.Merge(part)
	}
	log.Debug().Int("entries", db.Len()).Int("files", len(names)).Msg("loaded game databases")
	return db, nil
}

// Merge adds the entries of other. Later entries win on checksum clashes.
func (db *DB) Merge(other *DB) {
	for _, e := range other.entries {
		db.add(e)
	}
}

// Len returns the number of entries.
func (db *DB) Len() int {
	return len(db.entries)
}

func (db *DB) ByCRC32(crc uint32) (Entry, bool) {
	i, ok := db.byCRC[crc]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

func (db *DB) ByMD5(sum string) (Entry, bool) {
	i, ok := db.byMD5[strings.ToLower(sum)]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

// Identify looks content up by CRC32, then by MD5.
func (db *DB) Identify(data []byte) (Entry, bool) {
	if e, ok := db.ByCRC32(crc32.ChecksumIEEE(data)); ok {
		return e, true
	}
	sum := md5.Sum(data)
	return db.ByMD5(hex.EncodeToString(sum[:]))
}

// DisplayName strips the parenthesized tags from a No-Intro name.
func DisplayName(name string) string {
	if i := strings.Index(name, " ("); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}

var regionTags = map[string]api.Region{
	"usa":         api.RegionNTSC,
	"us":          api.RegionNTSC,
	"jp":          api.RegionNTSC,
	"eu":          api.RegionPAL,
	"japan":       api.RegionNTSC,
	"korea":       api.RegionNTSC,
	"brazil":      api.RegionNTSC,
	"world":       api.RegionNTSC,
	"europe":      api.RegionPAL,
	"australia":   api.RegionPAL,
	"uk":          api.RegionPAL,
	"germany":     api.RegionPAL,
	"france":      api.RegionPAL,
	"spain":       api.RegionPAL,
	"italy":       api.RegionPAL,
	"netherlands": api.RegionPAL,
	"sweden":      api.RegionPAL,
}

// RegionOf returns the region of the first known country in the first tag
// group of a No-Intro name. Multi-region dumps take the first one listed.
func RegionOf(name string) (api.Region, bool) {
	start := strings.Index(name, " (")
	if start < 0 {
		return 0, false
	}
	group := name[start+2:]
	if end := strings.IndexByte(group, ')'); end >= 0 {
		group = group[:end]
	}
	for _, tag := range strings.Split(group, ",") {
		if r, ok := regionTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return r, true
		}
	}
	return 0, false
}
