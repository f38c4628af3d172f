package main

import (
	"archive/zip"
	"bytes"
	"context"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/gamedb"
	"github.com/pixl-project/retroplayer/storage"
)

// testDatabase returns an RDB file with one record per name, keyed by the
// CRC32 of the matching rom.
func testDatabase(names, roms []string) []byte {
	data := append([]byte("RARCHDB\x00"), make([]byte, 8)...)
	for i, name := range names {
		crc := crc32.ChecksumIEEE([]byte(roms[i]))
		data = append(data, 0x82)
		data = append(data, 0xa4, 'n', 'a', 'm', 'e')
		data = append(data, 0xd9, byte(len(name)))
		data = append(data, name...)
		data = append(data, 0xa3, 'c', 'r', 'c')
		data = append(data, 0xc4, 4, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	}
	return append(data, 0xc0)
}

func TestIdentifyCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		"/data/config.json": []byte(`{"content": {"databases": "/db"}}`),
		"/db/nes.rdb":       testDatabase([]string{"Zelda (USA)", "Wonder Boy (Europe)"}, []string{"zelda", "wonder"}),
		"/roms/zelda.nes":   []byte("zelda"),
	}
	for path, data := range files {
		if err := afero.WriteFile(fs, path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{"wonder.sms": "wonder", "hack.sms": "hack"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(data))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/roms/pack.zip", buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCommand(t, fs, "identify", "/roms/zelda.nes")
	if code != 0 {
		t.Fatalf("identify: code %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "Zelda") || !strings.Contains(stdout, "NTSC") {
		t.Errorf("identify output = %q", stdout)
	}

	code, stdout, stderr = runCommand(t, fs, "identify", "/roms/pack.zip")
	if code != 0 {
		t.Fatalf("identify archive: code %d, stderr %q", code, stderr)
	}
	for _, want := range []string{"wonder.sms", "Wonder Boy", "PAL", "hack.sms", "unknown"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("identify archive output missing %q:\n%s", want, stdout)
		}
	}

	if code, _, _ := runCommand(t, fs, "identify", "/roms/missing.nes"); code != 1 {
		t.Errorf("identify of a missing file: code %d, want 1", code)
	}
}

func TestIdentifyWithoutDatabases(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/roms/zelda.nes", []byte("zelda"), 0644); err != nil {
		t.Fatal(err)
	}
	if code, _, stderr := runCommand(t, fs, "identify", "/roms/zelda.nes"); code != 1 || !strings.Contains(stderr, "no game databases") {
		t.Errorf("identify: code %d, stderr %q", code, stderr)
	}
}

func TestReportGameLine(t *testing.T) {
	frontend := newHeadless(storage.DirectoryConfig{}, nil, zerolog.Nop())
	reg := newCounterRegistry(t, &countingCore{}, frontend)

	s, err := openContent(reg, frontend, "", counterDesc.ID)
	if err != nil {
		t.Fatalf("openContent failed: %v", err)
	}
	ran, err := runFrames(context.Background(), s, frontend, 1, false)
	if err != nil {
		t.Fatalf("runFrames failed: %v", err)
	}

	var out bytes.Buffer
	game := &gamedb.Entry{Name: "Zelda (USA)"}
	if err := writeReport(&out, report{session: s, game: game, ran: ran}); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}
	if !strings.Contains(out.String(), "Zelda (USA)") {
		t.Errorf("report missing game line:\n%s", out.String())
	}
}
