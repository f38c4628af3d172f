package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pixl-project/retroplayer/coreif"
	"github.com/pixl-project/retroplayer/dynlib"
	"github.com/pixl-project/retroplayer/romloader"
	"github.com/pixl-project/retroplayer/storage"
)

const appName = "retroplayer"

const usage = `usage: retroplayer [-data dir] [-v] <command> [arguments]

commands:
  run [-frames n] [-rewind n] [-core id] [-opt key=value] [-realtime] [content]
                      open content and run frames without output
  add <core>...       describe core libraries and install them
  cores [-known]      list installed cores
  enable <id>         enable an installed core
  disable <id>        disable an installed core
  members <archive>   list the files inside an archive
  identify <content>  look content up in the game databases
  schema [-out path]  print the config.json schema
`

type app struct {
	fs     afero.Fs
	base   string
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
	store  *storage.Store
}

// run executes one command and returns the process exit code.
func run(fs afero.Fs, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }
	dataDir := flags.String("data", "", "data directory holding config.json")
	verbose := flags.Bool("v", false, "log debug output")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	base := *dataDir
	if base == "" {
		dir, err := storage.BaseDir(appName)
		if err != nil {
			fmt.Fprintf(stderr, "failed to find data directory: %v\n", err)
			return 1
		}
		base = dir
	}

	a, err := newApp(fs, base, *verbose, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	commands := map[string]func([]string) error{
		"run":      a.runContent,
		"add":      a.addCores,
		"cores":    a.listCores,
		"enable":   func(args []string) error { return a.setDisabled(args, false) },
		"disable":  func(args []string) error { return a.setDisabled(args, true) },
		"members":  a.listMembers,
		"identify": a.identify,
		"schema":   a.printSchema,
	}
	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		flags.Usage()
		return 2
	}
	if err := cmd(flags.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		a.log.Error().Err(err).Str("command", name).Msg("command failed")
		return 1
	}
	return 0
}

func newApp(fs afero.Fs, base string, verbose bool, stdout, stderr io.Writer) (*app, error) {
	console := zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly, NoColor: true}
	if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		console.NoColor = false
	}
	log := zerolog.New(console).With().Timestamp().Logger()

	if err := storage.EnsureDirectories(fs, base); err != nil {
		return nil, err
	}
	path := storage.ConfigPath(base)
	if err := storage.CreateConfigIfMissing(fs, path); err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}
	store := storage.NewStore(fs, path, log)
	if err := store.Load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("using default config")
	}

	level, err := zerolog.ParseLevel(store.Config().Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	return &app{
		fs:     fs,
		base:   base,
		stdout: stdout,
		stderr: stderr,
		log:    log.Level(level),
		store:  store,
	}, nil
}

func (a *app) flagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	return flags
}

func (a *app) loader(opts dynlib.Options) *dynlib.Loader {
	opts.Fs = a.fs
	opts.Logger = a.log
	return dynlib.NewLoader(opts)
}

func (a *app) resolver(cfg storage.Config) (*romloader.Resolver, error) {
	return romloader.NewResolver(romloader.Options{
		Fs:        a.fs,
		Roots:     cfg.Content.Roots,
		CacheDir:  cfg.Content.CacheDirOrDefault(a.base),
		CacheSize: cfg.Content.CacheSize,
		MaxSize:   int64(cfg.Content.MaxSizeMB) << 20,
		Logger:    a.log,
	})
}

func (a *app) addCores(args []string) error {
	if len(args) == 0 {
		return errors.New("add needs at least one core library")
	}
	loader := a.loader(dynlib.Options{})
	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		desc, err := loader.Describe(abs)
		if err != nil {
			return fmt.Errorf("failed to describe %s: %w", path, err)
		}
		if err := a.store.AddCore(desc); err != nil {
			return fmt.Errorf("failed to install %s: %w", desc.ID, err)
		}
		fmt.Fprintf(a.stdout, "installed %s (%s %s)\n", desc.ID, desc.DisplayName(), desc.Version)
	}
	return nil
}

func (a *app) listCores(args []string) error {
	flags := a.flagSet("cores")
	known := flags.Bool("known", false, "include cores that are known but not installed")
	if err := flags.Parse(args); err != nil {
		return err
	}

	list := a.store.Installed
	if *known {
		list = a.store.Known
	}
	descs, err := list()
	if err != nil {
		return err
	}
	return writeCores(a.stdout, descs)
}

func writeCores(out io.Writer, descs []coreif.Descriptor) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tEXTENSIONS\tSTATUS")
	for _, d := range descs {
		status := "enabled"
		switch {
		case d.Disabled:
			status = "disabled"
		case d.Path == "":
			status = "not installed"
		}
		exts := d.Extensions.String()
		if exts == "" {
			exts = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.DisplayName(), d.Version, exts, status)
	}
	return w.Flush()
}

func (a *app) setDisabled(args []string, disabled bool) error {
	if len(args) != 1 {
		return errors.New("expected a single core id")
	}
	return a.store.SetCoreDisabled(args[0], disabled)
}

func (a *app) listMembers(args []string) error {
	if len(args) != 1 {
		return errors.New("expected a single archive path")
	}
	resolver, err := a.resolver(a.store.Config())
	if err != nil {
		return err
	}
	members, err := resolver.Members(args[0])
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Fprintln(a.stdout, m)
	}
	return nil
}

func (a *app) printSchema(args []string) error {
	flags := a.flagSet("schema")
	out := flags.String("out", "", "write the schema to this file instead of stdout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	schema := storage.Schema()
	if *out != "" {
		return storage.AtomicWriteJSON(a.fs, *out, schema)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

// optionFlags collects repeated -opt key=value flags.
type optionFlags map[string]string

func (o optionFlags) String() string {
	pairs := make([]string, 0, len(o))
	for k, v := range o {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (o optionFlags) Set(value string) error {
	key, v, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("option %q is not key=value", value)
	}
	o[key] = v
	return nil
}
