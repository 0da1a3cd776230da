package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/replaygain/internal/analysis"
	"github.com/linuxmatters/replaygain/internal/audio"
	"github.com/linuxmatters/replaygain/internal/cli"
	"github.com/linuxmatters/replaygain/internal/config"
	"github.com/linuxmatters/replaygain/internal/gain"
	"github.com/linuxmatters/replaygain/internal/logging"
	"github.com/linuxmatters/replaygain/internal/tags"
	"github.com/linuxmatters/replaygain/internal/ui"
	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version bool     `short:"v" help:"Show version information"`
	Config  string   `short:"c" type:"path" help:"Path to TOML config file (optional)"`
	Library string   `short:"l" type:"path" placeholder:"dir" help:"Record results in a library database in this directory"`
	Plain   bool     `short:"p" help:"Show a plain progress bar instead of the full-screen interface"`
	DryRun  bool     `short:"n" name:"dry-run" help:"Analyse only; write no tags and record nothing"`
	Report  bool     `short:"r" help:"Write a results table to replaygain-report.txt"`
	Files   []string `arg:"" name:"files" help:"Audio files to analyse" type:"existingfile" optional:""`
}

func main() {
	registry := audio.DefaultRegistry()

	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("replaygain"),
		kong.Description("Track and album ReplayGain analysis"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(cli.HelpInfo{
			Title:       cli.Title,
			Description: "Measures track and album loudness and writes ReplayGain tags",
			Formats:     registry.Extensions(),
			SampleRates: gain.SupportedSampleRates(),
		})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	if cliArgs.Library != "" {
		cfg.LibraryPath = cliArgs.Library
	}
	if cliArgs.Report {
		cfg.Report = true
	}

	if err := run(cliArgs, cfg, registry); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(args *CLI, cfg config.Config, registry *audio.Registry) error {
	// Logs go to a file while the full-screen UI is up
	var log zerolog.Logger
	if args.Plain {
		log = logging.New(os.Stderr, cfg.LogLevel)
	} else {
		fileLog, f, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer f.Close()
		log = fileLog
	}

	var library *tags.Library
	if cfg.LibraryPath != "" {
		lib, err := tags.OpenLibrary(cfg.LibraryPath, log.With().Str("component", "library").Logger())
		if err != nil {
			return err
		}
		defer lib.Close()
		library = lib
	}

	readTags := tags.ReadFile
	if library != nil {
		readTags = library.Overlay(tags.ReadFile)
	}

	items, err := analysis.BuildItems(args.Files, registry, readTags)
	if err != nil {
		for _, e := range unwrapJoined(err) {
			cli.PrintWarning(e.Error())
		}
		log.Warn().Err(err).Msg("Some files were not queued")
	}
	if len(items) == 0 {
		return errors.New("no analysable files")
	}

	store := buildStore(cfg, library, args.DryRun)
	res := newResults(items)
	start := time.Now()

	opts := []analysis.Option{
		analysis.WithLogger(log),
		analysis.WithChunkFrames(cfg.ChunkFrames),
	}
	if args.Plain {
		err = runPlain(registry, store, items, opts, log, res)
	} else {
		err = runTUI(registry, store, items, opts, log, res)
	}
	if err != nil {
		return err
	}

	cli.PrintSummary(os.Stdout, res.Summary())

	if cfg.Report {
		if err := logging.WriteReport(logging.ReportFile, res.reportData(start, time.Now(), args.DryRun)); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", cli.KeyStyle.Render("Report:"), cli.ValueStyle.Render(logging.ReportFile))
	}
	return nil
}

// buildStore picks where results are persisted. FLAC tags are written in
// place; the library records every format.
func buildStore(cfg config.Config, library *tags.Library, dryRun bool) tags.Store {
	if dryRun {
		return tags.Discard
	}

	var stores tags.MultiStore
	if cfg.WriteFileTags {
		if library != nil {
			stores = append(stores, tags.IgnoreUnsupported(tags.FLACStore{}))
		} else {
			stores = append(stores, tags.FLACStore{})
		}
	}
	if library != nil {
		stores = append(stores, library)
	}

	if len(stores) == 0 {
		return tags.Discard
	}
	return stores
}

func runTUI(opener audio.Opener, store tags.Store, items []analysis.Item, opts []analysis.Option, log zerolog.Logger, res *results) error {
	var p *tea.Program

	w := analysis.New(opener, store, append(opts,
		analysis.WithObserver(func(e analysis.Event) {
			res.observe(e)
			p.Send(ui.EventMsg{Event: e})
		}),
	)...)
	defer w.Stop()

	p = tea.NewProgram(ui.NewModel(items, w), tea.WithAltScreen())
	w.Calculate(items)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("interface failed: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Cancelled {
		log.Info().Int64("pending", w.PendingCount()).Msg("Cancelled by user")
	}
	return nil
}

func runPlain(opener audio.Opener, store tags.Store, items []analysis.Item, opts []analysis.Option, log zerolog.Logger, res *results) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progress := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(int64(len(items)),
		mpb.PrependDecorators(
			decor.Name("Analysing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)

	idle := make(chan struct{})
	var once sync.Once
	lastTick := time.Now()

	w := analysis.New(opener, store, append(opts,
		analysis.WithObserver(func(e analysis.Event) {
			res.observe(e)
			switch e.Kind {
			case analysis.EventTrackStarted:
				lastTick = time.Now()
			case analysis.EventTrackAnalyzed, analysis.EventTrackInsufficient, analysis.EventTrackSkipped:
				bar.EwmaIncrement(time.Since(lastTick))
			case analysis.EventAlbumSkipped:
				bar.IncrBy(e.Items)
			case analysis.EventIdle:
				once.Do(func() { close(idle) })
			}
		}),
	)...)

	w.Calculate(items)

	select {
	case <-idle:
	case <-ctx.Done():
		log.Info().Int64("pending", w.PendingCount()).Msg("Interrupted")
	}
	w.Stop()

	bar.Abort(false)
	progress.Wait()
	return nil
}

// unwrapJoined splits an errors.Join result into its parts
func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
