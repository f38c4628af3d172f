package gamedb

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/api"
)

// rdbBuilder writes a minimal RDB file: the header, one fixmap per record and
// the terminating nil.
type rdbBuilder struct {
	buf []byte
}

func newBuilder() *rdbBuilder {
	return &rdbBuilder{buf: append([]byte("RARCHDB\x00"), make([]byte, 8)...)}
}

func (b *rdbBuilder) str(s string) {
	if len(s) < 32 {
		b.buf = append(b.buf, mpFixStr|byte(len(s)))
	} else {
		b.buf = append(b.buf, mpStr8, byte(len(s)))
	}
	b.buf = append(b.buf, s...)
}

func (b *rdbBuilder) bin(v []byte) {
	b.buf = append(b.buf, mpBin8, byte(len(v)))
	b.buf = append(b.buf, v...)
}

func (b *rdbBuilder) record(name string, rom []byte, year uint16) {
	crc := crc32.ChecksumIEEE(rom)
	sum := md5.Sum(rom)

	b.buf = append(b.buf, mpFixMap|4)
	b.str("name")
	b.str(name)
	b.str("crc")
	b.bin([]byte{byte(crc >> 24), byte(crc >> 16), byte(crc >> 8), byte(crc)})
	b.str("md5")
	b.bin(sum[:])
	b.str("releaseyear")
	b.buf = append(b.buf, mpUint16, byte(year>>8), byte(year))
}

func (b *rdbBuilder) bytes() []byte {
	return append(b.buf, mpNil)
}

func TestParse(t *testing.T) {
	b := newBuilder()
	b.record("Sonic the Hedgehog (USA, Europe)", []byte("sonic"), 1991)
	b.record("Alex Kidd in Miracle World (Europe)", []byte("alex"), 1986)

	db, err := Parse(b.bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if db.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", db.Len())
	}

	e, ok := db.ByCRC32(crc32.ChecksumIEEE([]byte("sonic")))
	if !ok {
		t.Fatal("sonic not found by CRC32")
	}
	if e.DisplayName() != "Sonic the Hedgehog" {
		t.Errorf("DisplayName() = %q", e.DisplayName())
	}
	if e.ReleaseYear != 1991 {
		t.Errorf("ReleaseYear = %d, want 1991", e.ReleaseYear)
	}

	sum := md5.Sum([]byte("alex"))
	e, ok = db.ByMD5(hex.EncodeToString(sum[:]))
	if !ok || e.Name != "Alex Kidd in Miracle World (Europe)" {
		t.Errorf("ByMD5 = %+v, %v", e, ok)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte("RARCHDB")},
		{"wrong magic", make([]byte, 0x20)},
		{"truncated record", append(newBuilder().buf, mpFixMap|1, mpFixStr|4, 'n')},
		{"unsupported type", append(newBuilder().buf, mpFixMap|1, 0x90, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}

	if _, err := Parse(nil); !errors.Is(err, ErrNotDatabase) {
		t.Errorf("Parse(nil) error = %v, want ErrNotDatabase", err)
	}
}

func TestParseEmpty(t *testing.T) {
	for name, data := range map[string][]byte{
		"nil terminated": newBuilder().bytes(),
		"header only":    newBuilder().buf,
	} {
		db, err := Parse(data)
		if err != nil {
			t.Fatalf("%s: Parse failed: %v", name, err)
		}
		if db.Len() != 0 {
			t.Errorf("%s: Len() = %d, want 0", name, db.Len())
		}
	}
}

func TestDecodeIntegers(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint64
	}{
		{"positive fixint", []byte{0x7f}, 127},
		{"negative fixint", []byte{0xff}, ^uint64(0)},
		{"uint8", []byte{mpUint8, 0xc8}, 200},
		{"uint32", []byte{mpUint32, 0x00, 0x01, 0x00, 0x00}, 65536},
		{"int8", []byte{mpInt8, 0xfe}, ^uint64(1)},
		{"int16", []byte{mpInt16, 0x01, 0x00}, 256},
		{"true", []byte{mpTrue}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decoder{data: tt.data}
			v, err := d.value()
			if err != nil {
				t.Fatalf("value() failed: %v", err)
			}
			if got := v.uint(); got != tt.want {
				t.Errorf("uint() = %d, want %d", got, tt.want)
			}
			if d.pos != len(tt.data) {
				t.Errorf("consumed %d bytes, want %d", d.pos, len(tt.data))
			}
		})
	}
}

func TestIdentify(t *testing.T) {
	b := newBuilder()
	b.record("Zillion (Japan) (Rev 2)", []byte("zillion"), 1987)
	db, err := Parse(b.bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	e, ok := db.Identify([]byte("zillion"))
	if !ok || e.DisplayName() != "Zillion" {
		t.Errorf("Identify = %+v, %v", e, ok)
	}
	if _, ok := db.Identify([]byte("unknown")); ok {
		t.Error("unknown content identified")
	}

	// MD5 is used when the CRC is missing from the database.
	sum := md5.Sum([]byte("md5only"))
	db.add(Entry{Name: "Hashed (USA)", MD5: hex.EncodeToString(sum[:])})
	if e, ok := db.Identify([]byte("md5only")); !ok || e.Name != "Hashed (USA)" {
		t.Errorf("Identify by MD5 = %+v, %v", e, ok)
	}
}

func TestEmptyDB(t *testing.T) {
	var db DB
	if db.Len() != 0 {
		t.Errorf("Len() = %d, want 0", db.Len())
	}
	if _, ok := db.ByCRC32(0x12345678); ok {
		t.Error("ByCRC32 found an entry in an empty database")
	}
	if _, ok := db.ByMD5("test"); ok {
		t.Error("ByMD5 found an entry in an empty database")
	}
}

func TestLoadDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	nes := newBuilder()
	nes.record("Zelda (USA)", []byte("zelda"), 1986)
	sms := newBuilder()
	sms.record("Wonder Boy (Europe)", []byte("wonder"), 1986)

	files := map[string][]byte{
		"/db/Nintendo - NES.rdb": nes.bytes(),
		"/db/Sega - Master.RDB":  sms.bytes(),
		"/db/broken.rdb":         []byte("garbage"),
		"/db/readme.txt":         []byte("not a database"),
	}
	for path, data := range files {
		if err := afero.WriteFile(fs, path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	db, err := Load(fs, "/db", zerolog.Nop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if db.Len() != 2 {
		t.Errorf("Len() = %d, want 2", db.Len())
	}
	if _, ok := db.Identify([]byte("wonder")); !ok {
		t.Error("entry from second file not found")
	}

	single, err := Load(fs, "/db/Nintendo - NES.rdb", zerolog.Nop())
	if err != nil {
		t.Fatalf("Load of a single file failed: %v", err)
	}
	if single.Len() != 1 {
		t.Errorf("single Len() = %d, want 1", single.Len())
	}

	if _, err := Load(fs, "/missing", zerolog.Nop()); err == nil {
		t.Error("Load of a missing path succeeded")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sonic the Hedgehog (USA)", "Sonic the Hedgehog"},
		{"Sonic the Hedgehog (USA, Europe)", "Sonic the Hedgehog"},
		{"Zillion (Japan) (Rev 2)", "Zillion"},
		{"Wonder Boy", "Wonder Boy"},
		{"", ""},
		{"(USA)", "(USA)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegionOf(t *testing.T) {
	tests := []struct {
		input  string
		want   api.Region
		wantOK bool
	}{
		{"Sonic (USA)", api.RegionNTSC, true},
		{"Sonic (Europe, USA)", api.RegionPAL, true},
		{"Alex Kidd (EU)", api.RegionPAL, true},
		{"Phantasy Star (JAPAN)", api.RegionNTSC, true},
		{"Game (World)", api.RegionNTSC, true},
		{"Game (Germany) (Rev 1)", api.RegionPAL, true},
		{"Game (En,Fr,De)", 0, false},
		{"Wonder Boy", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := RegionOf(tt.input)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("RegionOf(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
