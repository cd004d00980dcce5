// Package pipeline drives a full extraction run: catalog, bundle
// downloads and asset extraction for each zone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/1siamBot/furni-extractor/engine/bundle"
	"github.com/1siamBot/furni-extractor/engine/catalog"
	"github.com/1siamBot/furni-extractor/engine/config"
	"github.com/1siamBot/furni-extractor/engine/core"
	"github.com/1siamBot/furni-extractor/engine/extract"
	"github.com/1siamBot/furni-extractor/engine/network"
	"github.com/1siamBot/furni-extractor/engine/report"
)

// Options configures a Pipeline
type Options struct {
	Config *config.Config
	// Client defaults to network.NewClient built from Config.
	Client *http.Client
	Logger *slog.Logger
	Events *core.EventBus
	// SkipDownload extracts whatever bundles are already on disk.
	SkipDownload bool
}

// Summary counts what happened in one zone
type Summary struct {
	Zone string

	CatalogItems   int
	CatalogSkipped int

	Downloaded     int
	Cached         int
	DownloadFailed int

	Extracted    int
	BundleFailed int

	Written int
	Skipped int
	Failed  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: bundles extracted=%d failed=%d, assets written=%d skipped=%d failed=%d",
		s.Zone, s.Extracted, s.BundleFailed, s.Written, s.Skipped, s.Failed)
}

// Pipeline runs extraction for a set of zones
type Pipeline struct {
	cfg          *config.Config
	client       *http.Client
	log          *slog.Logger
	events       *core.EventBus
	layout       Layout
	skipDownload bool
}

// New builds a Pipeline. A nil Logger discards logs; a nil Events bus
// publishes nothing.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	client := opts.Client
	if client == nil {
		client = network.NewClient(network.ClientOptions{
			UserAgent: cfg.UserAgent,
			Accept:    cfg.Accept,
			Timeout:   cfg.RequestTimeout,
		})
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		cfg:          cfg,
		client:       client,
		log:          log,
		events:       opts.Events,
		layout:       Layout{Root: filepath.Join(cfg.DataPath, cfg.Revision())},
		skipDownload: opts.SkipDownload,
	}
}

// Layout returns the directory layout of this run
func (p *Pipeline) Layout() Layout { return p.layout }

// Run processes zones one after another. A zone that fails does not stop
// the others; the errors are joined.
func (p *Pipeline) Run(ctx context.Context, zones []string) ([]Summary, error) {
	var (
		summaries []Summary
		errs      []error
	)
	for _, zone := range zones {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s, err := p.RunZone(ctx, zone)
		summaries = append(summaries, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", zone, err))
		}
	}
	return summaries, errors.Join(errs...)
}

// zoneRun is the mutable state of one zone
type zoneRun struct {
	mu      sync.Mutex
	summary Summary
	report  *report.Report
}

// RunZone runs the three stages for one zone. Per-bundle failures are
// counted in the summary and do not produce an error.
func (p *Pipeline) RunZone(ctx context.Context, zone string) (Summary, error) {
	run := &zoneRun{
		summary: Summary{Zone: zone},
		report:  report.New(zone, p.cfg.Revision()),
	}
	log := p.log.With("zone", zone)

	for _, dir := range []string{p.layout.BundleDir(zone), p.layout.ExtractDir(zone)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return run.summary, fmt.Errorf("preparing folders: %w", err)
		}
	}

	if !p.skipDownload {
		log.Info("stage: catalog")
		cat, err := p.fetchCatalog(ctx, zone)
		if err != nil {
			return run.summary, err
		}
		run.summary.CatalogItems = len(cat.Items)
		run.summary.CatalogSkipped = len(cat.Skipped)

		log.Info("stage: downloads", "bundles", len(cat.Bundles()), "workers", p.cfg.IOWorkers)
		p.downloadBundles(ctx, zone, cat, run)
	}

	log.Info("stage: extraction", "workers", p.cpuWorkers())
	if err := p.extractBundles(ctx, zone, run); err != nil {
		return run.summary, err
	}

	if p.cfg.Report {
		if err := run.report.SaveJSON(p.layout.ReportPath(zone)); err != nil {
			return run.summary, fmt.Errorf("writing report: %w", err)
		}
	}
	p.events.Publish(core.Event{Type: core.EvtZoneDone, Zone: zone})
	log.Info("zone done", "summary", run.summary.String())
	return run.summary, ctx.Err()
}

// fetchCatalog downloads the zone catalog unless the cached copy is
// younger than cache_time. A stale cache is used when the download fails.
func (p *Pipeline) fetchCatalog(ctx context.Context, zone string) (*catalog.Catalog, error) {
	path := p.layout.CatalogPath(zone)
	if network.Fresh(path, p.cfg.CacheTime) {
		p.events.Publish(core.Event{Type: core.EvtCatalogCached, Zone: zone, File: path})
		return catalog.Load(path)
	}

	url := p.cfg.CatalogURLFor(zone)
	if _, err := network.Download(ctx, p.client, url, path); err != nil {
		if !network.Exists(path) {
			return nil, fmt.Errorf("downloading catalog: %w", err)
		}
		p.log.Warn("catalog download failed, using cached copy", "zone", zone, "error", err)
		p.events.Publish(core.Event{Type: core.EvtCatalogCached, Zone: zone, File: path, Err: err})
	} else {
		p.events.Publish(core.Event{Type: core.EvtCatalogFetched, Zone: zone, File: path})
	}
	return catalog.Load(path)
}

func (p *Pipeline) downloadBundles(ctx context.Context, zone string, cat *catalog.Catalog, run *zoneRun) {
	var g errgroup.Group
	g.SetLimit(max(p.cfg.IOWorkers, 1))

	for _, b := range cat.Bundles() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			url := p.cfg.BundleURLFor(b.Revision, b.Name)
			evt := core.Event{Zone: zone, Bundle: b.Name, File: url}

			var err error
			switch {
			case strings.ContainsAny(b.Name, `/\`) || b.Name == "." || b.Name == "..":
				err = fmt.Errorf("bundle name %q is not a plain file name", b.Name)
			case network.Exists(p.layout.BundlePath(zone, b.Name)):
				evt.Type = core.EvtBundleCached
				run.mu.Lock()
				run.summary.Cached++
				run.mu.Unlock()
				p.events.Publish(evt)
				return nil
			default:
				_, err = network.Download(ctx, p.client, url, p.layout.BundlePath(zone, b.Name))
			}

			run.mu.Lock()
			if err != nil {
				run.summary.DownloadFailed++
				run.report.AddDownloadFailure(b.Name, url, err)
				evt.Type, evt.Err = core.EvtDownloadFailed, err
			} else {
				run.summary.Downloaded++
				evt.Type = core.EvtBundleDownloaded
			}
			run.mu.Unlock()
			p.events.Publish(evt)
			return nil
		})
	}
	g.Wait()
}

func (p *Pipeline) extractBundles(ctx context.Context, zone string, run *zoneRun) error {
	paths, err := bundle.Discover(p.layout.BundleDir(zone))
	if err != nil {
		return err
	}

	outcomes := make([]*extract.Outcome, len(paths))
	fatal := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(p.cpuWorkers())
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			name := bundle.BaseName(path)
			d := &bundle.Driver{
				OutputDir: p.layout.ExtractDir(zone),
				Materializer: extract.Materializer{
					OnRecord: func(r extract.Record) { p.publishRecord(zone, name, r) },
				},
			}
			out, err := d.ProcessFile(ctx, path)
			outcomes[i] = out
			if out == nil {
				fatal[i] = err
				p.events.Publish(core.Event{Type: core.EvtBundleFailed, Zone: zone, Bundle: name, File: path, Err: err})
				return nil
			}
			p.events.Publish(core.Event{Type: core.EvtBundleExtracted, Zone: zone, Bundle: name, Err: err})
			return nil
		})
	}
	g.Wait()

	for i, path := range paths {
		switch {
		case outcomes[i] != nil:
			o := outcomes[i]
			run.summary.Extracted++
			run.summary.Written += o.Written
			run.summary.Skipped += o.Skipped
			run.summary.Failed += o.Failed
			run.report.AddOutcome(o)
		case fatal[i] != nil:
			run.summary.BundleFailed++
			run.report.AddFatal(bundle.BaseName(path), fatal[i])
		}
	}
	return nil
}

func (p *Pipeline) publishRecord(zone, bundleName string, r extract.Record) {
	evt := core.Event{Zone: zone, Bundle: bundleName, File: r.File, Err: r.Err}
	switch r.Status {
	case extract.StatusWritten:
		evt.Type = core.EvtAssetWritten
	case extract.StatusSkipped:
		evt.Type = core.EvtAssetSkipped
	default:
		evt.Type = core.EvtAssetFailed
		if evt.File == "" {
			evt.File = fmt.Sprintf("%s#%d", r.Kind, r.AssetID)
		}
	}
	p.events.Publish(evt)
}

func (p *Pipeline) cpuWorkers() int {
	if p.cfg.CPUWorkers > 0 {
		return p.cfg.CPUWorkers
	}
	return runtime.NumCPU()
}
