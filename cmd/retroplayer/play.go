package main

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"os/signal"
	"sync"
	"text/tabwriter"
	"time"
	"unsafe"

	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/dynlib"
	"github.com/pixl-project/retroplayer/gamedb"
	"github.com/pixl-project/retroplayer/registry"
	"github.com/pixl-project/retroplayer/romloader"
	"github.com/pixl-project/retroplayer/session"
	"github.com/pixl-project/retroplayer/storage"
)

func (a *app) runContent(args []string) error {
	flags := a.flagSet("run")
	frames := flags.Int("frames", 600, "number of frames to run")
	rewindFrames := flags.Int("rewind", 0, "frames to rewind once the run ends")
	coreID := flags.String("core", "", "id of the core to open the content with")
	realtime := flags.Bool("realtime", false, "pace frames at the core's frame rate")
	options := make(optionFlags)
	flags.Var(options, "opt", "core option as key=value, may be repeated")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 1 {
		return errors.New("run takes at most one content path")
	}
	content := flags.Arg(0)
	if content == "" && *coreID == "" {
		return errors.New("running without content needs -core")
	}

	cfg := a.store.Config()
	resolver, err := a.resolver(cfg)
	if err != nil {
		return err
	}
	defer resolver.Purge()

	frontend := newHeadless(cfg.Directories.WithDefaults(a.base), options, a.log)
	digest := newFrameDigest(frontend)
	tracker := &coreTracker{loader: a.loader(dynlib.Options{
		Video: digest.video,
		Audio: digest.audio,
	})}

	reg := registry.New(registry.Config{
		Source:               a.store,
		Loader:               coreif.LoaderFunc(tracker.load),
		Frontend:             frontend,
		Settings:             a.store,
		Resolver:             resolver,
		Routing:              a.store.Routing(),
		NotificationDuration: a.store.NotificationDuration(),
		FirstAction:          cfg.Input.FirstAction,
		OnDisable:            a.store.DisableCore,
		Logger:               a.log,
	})
	if err := reg.Start(); err != nil {
		return fmt.Errorf("failed to start registry: %w", err)
	}
	defer reg.Stop()

	s, err := openContent(reg, frontend, content, *coreID)
	if err != nil {
		return err
	}
	game := a.lookupGame(cfg, resolver, content)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ran, err := runFrames(ctx, s, frontend, *frames, *realtime)
	if err != nil {
		return err
	}
	rewound := 0
	if *rewindFrames > 0 {
		rewound = s.RewindFrames(*rewindFrames)
	}

	return writeReport(a.stdout, report{
		session: s,
		game:    game,
		stats:   tracker.stats(),
		ran:     ran,
		rewound: rewound,
		video:   digest.videoSum(),
		audio:   digest.audioSum(),
	})
}

// openContent opens content in the first core able to, or starts coreID
// without content when content is empty.
func openContent(reg *registry.Registry, frontend *headless, content, coreID string) (*session.Session, error) {
	if content == "" {
		s, ok := reg.Session(coreID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", registry.ErrNotRegistered, coreID)
		}
		frontend.setCorePath(s.Descriptor().Path)
		if !s.Ready() {
			if err := s.Create(); err != nil {
				return nil, err
			}
		}
		if err := s.OpenContent(""); err != nil {
			return nil, err
		}
		return s, nil
	}

	candidates := reg.Candidates(content, coreID)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", registry.ErrNoCandidate, content)
	}
	if s, ok := reg.Session(candidates[0]); ok {
		frontend.setCorePath(s.Descriptor().Path)
	}
	return reg.Open(content, candidates[0])
}

// runFrames runs up to frames frames, stopping early on cancellation or when
// the core asks to shut down. It returns the number of frames run.
func runFrames(ctx context.Context, s *session.Session, frontend *headless, frames int, realtime bool) (int, error) {
	var tick <-chan time.Time
	if realtime && s.FrameRate() > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.FrameRate()))
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < frames; i++ {
		if frontend.shutdownRequested() {
			return i, nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return i, nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return i, nil
		}
		if err := s.RunFrame(); err != nil {
			return i, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}

// coreTracker remembers the most recently loaded core so its counters can be
// reported after the session is gone.
type coreTracker struct {
	loader *dynlib.Loader

	mu   sync.Mutex
	last dynlib.StatsReporter
}

func (t *coreTracker) load(path string) (coreif.Core, error) {
	core, err := t.loader.Load(path)
	if err != nil {
		return nil, err
	}
	if r, ok := core.(dynlib.StatsReporter); ok {
		t.mu.Lock()
		t.last = r
		t.mu.Unlock()
	}
	return core, nil
}

func (t *coreTracker) stats() dynlib.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return dynlib.Stats{}
	}
	return t.last.Stats()
}

// hwFrameValid is RETRO_HW_FRAME_BUFFER_VALID: the frame lives on the GPU.
const hwFrameValid = ^uintptr(0)

// frameDigest checksums the last presented frame and all audio so runs can be
// compared.
type frameDigest struct {
	frontend *headless

	mu     sync.Mutex
	last   uint32
	frames hash.Hash32
	sound  hash.Hash32
}

func newFrameDigest(frontend *headless) *frameDigest {
	return &frameDigest{
		frontend: frontend,
		frames:   crc32.NewIEEE(),
		sound:    crc32.NewIEEE(),
	}
}

func (d *frameDigest) video(data unsafe.Pointer, width, height uint, pitch uintptr) {
	if data == nil || uintptr(data) == hwFrameValid {
		return
	}
	row := uintptr(width) * uintptr(d.frontend.pixelFormat().BytesPerPixel())
	if row == 0 || row > pitch {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames.Reset()
	for y := uintptr(0); y < uintptr(height); y++ {
		d.frames.Write(unsafe.Slice((*byte)(unsafe.Add(data, y*pitch)), row))
	}
	d.last = d.frames.Sum32()
}

func (d *frameDigest) audio(samples []int16) {
	if len(samples) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sound.Write(unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2))
}

func (d *frameDigest) videoSum() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *frameDigest) audioSum() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sound.Sum32()
}

// lookupGame identifies content in the configured databases. Failures only
// cost the report its game line.
func (a *app) lookupGame(cfg storage.Config, resolver *romloader.Resolver, content string) *gamedb.Entry {
	if content == "" {
		return nil
	}
	db, err := a.database(cfg)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to load game databases")
		return nil
	}
	if db == nil {
		return nil
	}
	matches, err := identifyContent(resolver, db, content)
	if err != nil {
		a.log.Warn().Err(err).Str("content", content).Msg("failed to identify content")
		return nil
	}
	entry, ok := firstMatch(matches)
	if !ok {
		a.log.Debug().Str("content", content).Msg("content not in game databases")
		return nil
	}
	return &entry
}

type report struct {
	session *session.Session
	game    *gamedb.Entry
	stats   dynlib.Stats
	ran     int
	rewound int
	video   uint32
	audio   uint32
}

func writeReport(out io.Writer, r report) error {
	s := r.session
	info := s.SystemInfo()
	g := s.Geometry()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "core\t%s %s (%s)\n", info.Name, info.Version, s.ID())
	if path := s.ContentPath(); path != "" {
		fmt.Fprintf(w, "content\t%s\n", path)
	}
	if r.game != nil {
		fmt.Fprintf(w, "game\t%s\n", r.game.Name)
	}
	fmt.Fprintf(w, "region\t%s\n", s.Region())
	fmt.Fprintf(w, "geometry\t%dx%d (max %dx%d), aspect %.3f\n",
		g.BaseWidth, g.BaseHeight, g.MaxWidth, g.MaxHeight, g.DisplayAspectRatio())
	fmt.Fprintf(w, "timing\t%.3f fps, %.0f Hz\n", s.FrameRate(), s.SampleRate())
	fmt.Fprintf(w, "frames\t%d run, %d presented (%d repeated), %d audio frames\n",
		r.ran, r.stats.Frames, r.stats.DupedFrames, r.stats.AudioFrames)
	if s.RewindEnabled() {
		fmt.Fprintf(w, "rewind\t%d of %d frames stored, %d rewound\n",
			s.FramesAvailable(), s.RewindCapacity(), r.rewound)
	} else {
		fmt.Fprintf(w, "rewind\tdisabled\n")
	}
	fmt.Fprintf(w, "checksum\tvideo %08x, audio %08x\n", r.video, r.audio)
	return w.Flush()
}
