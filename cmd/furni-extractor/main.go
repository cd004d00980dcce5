// furni-extractor downloads furniture bundles for one or more hotel zones
// and unpacks their XML and PNG assets.
//
// Usage:
//
//	furni-extractor --tld com [flags]
//	furni-extractor --tld all --version-pin 2024 --io-workers 20
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/1siamBot/furni-extractor/engine/config"
	"github.com/1siamBot/furni-extractor/engine/core"
	"github.com/1siamBot/furni-extractor/engine/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	tld          string
	versionPin   string
	dataPath     string
	cacheTime    string
	ioWorkers    int
	cpuWorkers   int
	skipDownload bool
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("furni-extractor", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&opts.tld, "tld", "", "hotel zone to process, or \"all\"")
	flagSet.StringVar(&opts.versionPin, "version-pin", "", "revision directory name (default: latest)")
	flagSet.StringVar(&opts.dataPath, "data-path", "", "root directory for downloads and output")
	flagSet.StringVar(&opts.cacheTime, "cache-time", "", "how long a downloaded catalog stays valid, e.g. 240h")
	flagSet.IntVar(&opts.ioWorkers, "io-workers", 0, "concurrent downloads")
	flagSet.IntVar(&opts.cpuWorkers, "cpu-workers", 0, "concurrent bundle extractions (0: one per CPU)")
	flagSet.BoolVar(&opts.skipDownload, "skip-download", false, "only extract bundles already on disk")
	return flagSet
}

// loadConfig reads the config file and applies the flags that were set
func loadConfig(flagSet *pflag.FlagSet, opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("tld") {
		zones, err := config.ParseZones(opts.tld)
		if err != nil {
			return nil, err
		}
		cfg.Zones = zones
	}
	if flagSet.Changed("version-pin") {
		cfg.VersionPin = opts.versionPin
	}
	if flagSet.Changed("data-path") {
		cfg.DataPath = opts.dataPath
	}
	if flagSet.Changed("cache-time") {
		if err := cfg.SetCacheTime(opts.cacheTime); err != nil {
			return nil, err
		}
	}
	if flagSet.Changed("io-workers") {
		cfg.IOWorkers = opts.ioWorkers
	}
	if flagSet.Changed("cpu-workers") {
		cfg.CPUWorkers = opts.cpuWorkers
	}
	if os.Getenv("FURNI_DEBUG") != "" {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Zones) == 0 {
		return nil, fmt.Errorf("no zones selected; pass --tld or set zones in the config file")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	var opts options
	flagSet := newFlagSet(&opts, stderr)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}

	cfg, err := loadConfig(flagSet, &opts)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	bus := core.NewEventBus()
	bus.OnAny(logEvent(logger))
	var failures failureLog
	bus.On(core.EvtDownloadFailed, failures.record)
	bus.On(core.EvtBundleFailed, failures.record)

	logger.Info("starting",
		"zones", cfg.Zones,
		"revision", cfg.Revision(),
		"data_path", cfg.DataPath,
		"skip_download", opts.skipDownload)

	p := pipeline.New(pipeline.Options{
		Config:       cfg,
		Logger:       logger,
		Events:       bus,
		SkipDownload: opts.skipDownload,
	})
	summaries, err := p.Run(ctx, cfg.Zones)
	for _, s := range summaries {
		logger.Info("summary",
			"zone", s.Zone,
			"catalog_items", s.CatalogItems,
			"downloaded", s.Downloaded,
			"cached", s.Cached,
			"download_failed", s.DownloadFailed,
			"extracted", s.Extracted,
			"bundle_failed", s.BundleFailed,
			"written", s.Written,
			"skipped", s.Skipped,
			"failed", s.Failed)
	}
	failures.report(logger)
	return err
}

// failureLog collects failed downloads and bundles so they can be listed
// after the summaries. The bus serializes calls to record.
type failureLog struct {
	byZone map[string][]string
	zones  []string
}

func (f *failureLog) record(e core.Event) {
	if f.byZone == nil {
		f.byZone = make(map[string][]string)
	}
	if _, ok := f.byZone[e.Zone]; !ok {
		f.zones = append(f.zones, e.Zone)
	}
	f.byZone[e.Zone] = append(f.byZone[e.Zone], e.Type.String()+" "+e.Bundle)
}

func (f *failureLog) report(logger *slog.Logger) {
	for _, zone := range f.zones {
		logger.Warn("failures", "zone", zone, "count", len(f.byZone[zone]), "bundles", f.byZone[zone])
	}
}

func logEvent(logger *slog.Logger) core.EventHandler {
	return func(e core.Event) {
		attrs := []any{"event", e.Type.String(), "zone", e.Zone}
		if e.Bundle != "" {
			attrs = append(attrs, "bundle", e.Bundle)
		}
		if e.File != "" {
			attrs = append(attrs, "file", e.File)
		}
		switch e.Type {
		case core.EvtAssetWritten, core.EvtAssetSkipped, core.EvtBundleCached:
			logger.Debug("ok", attrs...)
		case core.EvtAssetFailed, core.EvtDownloadFailed, core.EvtBundleFailed:
			logger.Warn("failed", append(attrs, "error", e.Err)...)
		default:
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
			}
			logger.Info("ok", attrs...)
		}
	}
}
