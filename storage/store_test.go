package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/libretro"
)

func newTestStore(t *testing.T, content string) (*Store, afero.Fs, *strings.Builder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if content != "" {
		if err := afero.WriteFile(fs, "/data/config.json", []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	var logs strings.Builder
	s := NewStore(fs, "/data/config.json", zerolog.New(&logs))
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s, fs, &logs
}

func TestStoreSettings(t *testing.T) {
	s, _, _ := newTestStore(t, `{
		"rewind": {"enabled": true, "seconds": 10, "maxBufferMB": 2},
		"directories": {"routing": "distinct"},
		"notifications": {"defaultDurationMs": 1500}
	}`)

	if !s.RewindEnabled() {
		t.Error("RewindEnabled() = false, want true")
	}
	if got := s.RewindSeconds(); got != 10 {
		t.Errorf("RewindSeconds() = %d, want 10", got)
	}
	if got := s.RewindMaxBytes(); got != 2*1024*1024 {
		t.Errorf("RewindMaxBytes() = %d, want %d", got, 2*1024*1024)
	}
	if got := s.Routing(); got != libretro.RoutingDistinct {
		t.Errorf("Routing() = %v, want distinct", got)
	}
	if got := s.NotificationDuration(); got != 1500*time.Millisecond {
		t.Errorf("NotificationDuration() = %v, want 1.5s", got)
	}
}

func TestStoreLoadCorrectsInvalidValues(t *testing.T) {
	s, _, logs := newTestStore(t, `{"rewind": {"seconds": 9999}, "log": {"level": "chatty"}}`)

	if got := s.RewindSeconds(); got != 60 {
		t.Errorf("RewindSeconds() = %d, want corrected 60", got)
	}
	if got := s.Config().Log.Level; got != "info" {
		t.Errorf("log.level = %q, want corrected info", got)
	}
	if !strings.Contains(logs.String(), "rewind.seconds: 9999") {
		t.Errorf("log missing rewind problem: %s", logs.String())
	}
}

func TestStoreLoadCorrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/config.json", []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(fs, "/data/config.json", zerolog.Nop())
	if err := s.Load(); err == nil {
		t.Error("expected error loading corrupted config")
	}
	if got := s.RewindSeconds(); got != 60 {
		t.Errorf("RewindSeconds() = %d, want defaults kept after failed load", got)
	}
}

func TestStoreCores(t *testing.T) {
	s, fs, _ := newTestStore(t, `{
		"cores": [
			{"id": "game.libretro.fakenes", "name": "FakeNES", "path": "/cores/fakenes.so", "extensions": "nes|unf"},
			{"id": "game.libretro.fakesnes", "path": "/cores/fakesnes.so", "extensions": "sfc", "disabled": true}
		],
		"known": [
			{"id": "game.libretro.fakegba", "extensions": "gba"}
		]
	}`)

	installed, err := s.Installed()
	if err != nil {
		t.Fatalf("Installed failed: %v", err)
	}
	if len(installed) != 2 {
		t.Fatalf("Installed() = %d cores, want 2", len(installed))
	}
	if installed[0].Name != "FakeNES" || !installed[0].Extensions.Contains(".unf") {
		t.Errorf("installed[0] = %+v", installed[0])
	}
	if !installed[1].Disabled {
		t.Error("installed[1] should be disabled")
	}

	known, err := s.Known()
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	if len(known) != 3 || known[2].ID != "game.libretro.fakegba" {
		t.Errorf("Known() = %+v, want installed plus fakegba", known)
	}

	if err := s.SetCoreDisabled("game.libretro.fakesnes", false); err != nil {
		t.Fatalf("SetCoreDisabled failed: %v", err)
	}
	s.DisableCore("game.libretro.fakenes")

	reloaded := NewStore(fs, "/data/config.json", zerolog.Nop())
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cores := reloaded.Config().Cores
	if !cores[0].Disabled || cores[1].Disabled {
		t.Errorf("persisted disabled flags = %v/%v, want true/false", cores[0].Disabled, cores[1].Disabled)
	}

	if err := s.SetCoreDisabled("game.libretro.missing", true); err == nil {
		t.Error("expected error disabling an unknown core")
	}
}

func TestStoreAddCore(t *testing.T) {
	s, _, _ := newTestStore(t, "")

	desc := coreif.Descriptor{
		ID:         "game.libretro.fakenes",
		Path:       "/cores/fakenes.so",
		Extensions: coreif.ParseExtensions("nes"),
	}
	if err := s.AddCore(desc); err != nil {
		t.Fatalf("AddCore failed: %v", err)
	}
	desc.Version = "1.2"
	if err := s.AddCore(desc); err != nil {
		t.Fatalf("AddCore failed: %v", err)
	}

	installed, _ := s.Installed()
	if len(installed) != 1 {
		t.Fatalf("Installed() = %d cores, want 1", len(installed))
	}
	if installed[0].Version != "1.2" {
		t.Errorf("version = %q, want 1.2", installed[0].Version)
	}
	if installed[0].Extensions.String() != ".nes" {
		t.Errorf("extensions = %q, want .nes", installed[0].Extensions.String())
	}
}

func TestStoreConfigIsCopy(t *testing.T) {
	s, _, _ := newTestStore(t, `{"cores": [{"id": "a", "path": "/a.so", "extensions": "nes"}]}`)

	c := s.Config()
	c.Cores[0].ID = "changed"
	c.Rewind.Seconds = 1

	if got := s.Config().Cores[0].ID; got != "a" {
		t.Errorf("store core id = %q, want a", got)
	}
	if got := s.RewindSeconds(); got != 60 {
		t.Errorf("store rewind seconds = %d, want 60", got)
	}
}

func TestCoreEntryRoundTrip(t *testing.T) {
	entry := CoreEntry{
		ID:             "game.libretro.fakenes",
		Name:           "FakeNES",
		Version:        "1.0",
		Author:         "Jane Doe",
		Path:           "/cores/fakenes.so",
		Extensions:     ".nes|.unf",
		SupportsVFS:    true,
		SupportsNoGame: true,
	}

	if got := EntryFor(entry.Descriptor()); got != entry {
		t.Errorf("EntryFor(Descriptor()) = %+v, want %+v", got, entry)
	}
}
