package main

import (
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"text/tabwriter"

	"github.com/pixl-project/retroplayer/gamedb"
	"github.com/pixl-project/retroplayer/romloader"
	"github.com/pixl-project/retroplayer/storage"
)

// match is the database lookup result for one file.
type match struct {
	path  string
	crc   uint32
	entry gamedb.Entry
	found bool
}

func (a *app) database(cfg storage.Config) (*gamedb.DB, error) {
	if cfg.Content.Databases == "" {
		return nil, nil
	}
	return gamedb.Load(a.fs, cfg.Content.Databases, a.log)
}

func (a *app) identify(args []string) error {
	if len(args) != 1 {
		return errors.New("expected a single content path")
	}
	cfg := a.store.Config()
	db, err := a.database(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("no game databases configured (content.databases)")
	}
	resolver, err := a.resolver(cfg)
	if err != nil {
		return err
	}
	defer resolver.Purge()

	matches, err := identifyContent(resolver, db, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tCRC32\tGAME\tREGION")
	for _, m := range matches {
		name, region := "unknown", "-"
		if m.found {
			name = m.entry.DisplayName()
			if r, ok := m.entry.Region(); ok {
				region = r.String()
			}
		}
		fmt.Fprintf(w, "%s\t%08x\t%s\t%s\n", m.path, m.crc, name, region)
	}
	return w.Flush()
}

// identifyContent looks up a plain file, or every member of an archive.
func identifyContent(resolver *romloader.Resolver, db *gamedb.DB, path string) ([]match, error) {
	paths := []string{path}
	members, err := resolver.Members(path)
	switch {
	case err == nil:
		paths = paths[:0]
		for _, m := range members {
			paths = append(paths, filepath.Join(path, m))
		}
	case !errors.Is(err, romloader.ErrUnsupportedFormat):
		return nil, err
	}

	matches := make([]match, 0, len(paths))
	for _, p := range paths {
		data, err := resolver.ReadFile(p)
		if err != nil {
			return nil, err
		}
		m := match{path: p, crc: crc32.ChecksumIEEE(data)}
		m.entry, m.found = db.Identify(data)
		matches = append(matches, m)
	}
	return matches, nil
}

// firstMatch returns the first identified entry.
func firstMatch(matches []match) (gamedb.Entry, bool) {
	for _, m := range matches {
		if m.found {
			return m.entry, true
		}
	}
	return gamedb.Entry{}, false
}
