package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1siamBot/furni-extractor/engine/config"
	"github.com/1siamBot/furni-extractor/engine/core"
	"github.com/1siamBot/furni-extractor/engine/report"
	"github.com/1siamBot/furni-extractor/engine/swf/swftest"
)

const furnidata = `<furnidata>
  <roomitemtypes>
    <furnitype id="1" classname="chair_norja*1"><name>Chair</name><revision>100</revision></furnitype>
    <furnitype id="2" classname="chair_norja*2"><name>Chair</name><revision>100</revision></furnitype>
    <furnitype id="3" classname="broken_rug"><name>Rug</name><revision>200</revision></furnitype>
    <furnitype id="4" classname="old_item"><name>Old</name><revision>0</revision></furnitype>
  </roomitemtypes>
  <wallitemtypes>
    <furnitype id="10" classname="gone_poster"><name>Poster</name><revision>300</revision></furnitype>
  </wallitemtypes>
</furnidata>`

type hotel struct {
	srv      *httptest.Server
	catalogs atomic.Int32
	bundles  atomic.Int32
}

func newHotel(t *testing.T) *hotel {
	t.Helper()
	h := &hotel{}
	chair := swftest.New().
		SymbolClass(swftest.Symbol{ID: 1, Name: "chair_norja_visualization"}, swftest.Symbol{ID: 2, Name: "chair_norja_icon"}).
		BinaryData(1, []byte("<visualization/>")).
		Bitmap(2, 5, 1, 1, swftest.Pack([]byte{0xFF, 10, 20, 30})).
		BinaryData(9, []byte("orphan")).
		Compressed()

	mux := http.NewServeMux()
	mux.HandleFunc("/com/furnidata.xml", func(w http.ResponseWriter, r *http.Request) {
		h.catalogs.Add(1)
		w.Write([]byte(furnidata))
	})
	mux.HandleFunc("/100/chair_norja.swf", func(w http.ResponseWriter, r *http.Request) {
		h.bundles.Add(1)
		w.Write(chair)
	})
	mux.HandleFunc("/200/broken_rug.swf", func(w http.ResponseWriter, r *http.Request) {
		h.bundles.Add(1)
		w.Write([]byte("not a movie"))
	})
	h.srv = httptest.NewServer(mux)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *hotel) config(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.DataPath = t.TempDir()
	cfg.CatalogURL = h.srv.URL + "/{zone}/furnidata.xml"
	cfg.BundleURL = h.srv.URL + "/{revision}/{name}.swf"
	cfg.IOWorkers = 4
	cfg.CPUWorkers = 2
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func TestRunZone(t *testing.T) {
	h := newHotel(t)
	cfg := h.config(t)

	bus := core.NewEventBus()
	var mu sync.Mutex
	counts := make(map[core.EventType]int)
	bus.OnAny(func(e core.Event) {
		mu.Lock()
		counts[e.Type]++
		mu.Unlock()
	})

	p := New(Options{Config: cfg, Events: bus})
	s, err := p.RunZone(context.Background(), "com")
	if err != nil {
		t.Fatalf("RunZone failed: %v", err)
	}

	want := Summary{
		Zone:           "com",
		CatalogItems:   4,
		CatalogSkipped: 1,
		Downloaded:     2,
		DownloadFailed: 1,
		Extracted:      1,
		BundleFailed:   1,
		Written:        2,
		Failed:         1,
	}
	if s != want {
		t.Errorf("summary = %+v\nwant      %+v", s, want)
	}

	layout := p.Layout()
	if layout.Root != filepath.Join(cfg.DataPath, "latest") {
		t.Errorf("layout root = %s", layout.Root)
	}
	for _, name := range []string{"visualization.xml", "icon.png"} {
		if _, err := os.Stat(filepath.Join(layout.ExtractDir("com"), "chair_norja", name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	wantEvents := map[core.EventType]int{
		core.EvtCatalogFetched:   1,
		core.EvtBundleDownloaded: 2,
		core.EvtDownloadFailed:   1,
		core.EvtAssetWritten:     2,
		core.EvtAssetFailed:      1,
		core.EvtBundleExtracted:  1,
		core.EvtBundleFailed:     1,
		core.EvtZoneDone:         1,
	}
	for typ, n := range wantEvents {
		if counts[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, counts[typ], n)
		}
	}

	r, err := report.LoadJSON(layout.ReportPath("com"))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Bundles) != 2 || len(r.Downloads) != 1 || r.Downloads[0].Bundle != "gone_poster" {
		t.Errorf("report = %+v", r)
	}
	if r.Bundles[0].Name != "broken_rug" || r.Bundles[0].Fatal == "" {
		t.Errorf("first bundle = %+v", r.Bundles[0])
	}
}

func TestRunZoneUsesCaches(t *testing.T) {
	h := newHotel(t)
	cfg := h.config(t)
	p := New(Options{Config: cfg})

	if _, err := p.RunZone(context.Background(), "com"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	catalogs, bundles := h.catalogs.Load(), h.bundles.Load()

	s, err := p.RunZone(context.Background(), "com")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if h.catalogs.Load() != catalogs {
		t.Error("fresh catalog was downloaded again")
	}
	if h.bundles.Load() != bundles {
		t.Error("bundles on disk were downloaded again")
	}
	if s.Cached != 2 || s.Downloaded != 0 || s.Written != 0 || s.Skipped != 2 {
		t.Errorf("second summary = %+v", s)
	}
}

func TestRunZoneStaleCatalogFallback(t *testing.T) {
	h := newHotel(t)
	cfg := h.config(t)
	cfg.CacheTime = time.Minute
	p := New(Options{Config: cfg})

	path := p.Layout().CatalogPath("nl")
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte(furnidata), 0644)
	old := time.Now().Add(-time.Hour)
	os.Chtimes(path, old, old)

	// The hotel has no nl catalog, so the stale copy is used.
	s, err := p.RunZone(context.Background(), "nl")
	if err != nil {
		t.Fatalf("RunZone: %v", err)
	}
	if s.CatalogItems != 4 {
		t.Errorf("summary = %+v", s)
	}

	if _, err := p.RunZone(context.Background(), "de"); err == nil {
		t.Error("zone without any catalog should fail")
	}
}

func TestRunSkipDownload(t *testing.T) {
	h := newHotel(t)
	cfg := h.config(t)
	p := New(Options{Config: cfg, SkipDownload: true})

	dir := p.Layout().BundleDir("fi")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "lamp.swf"),
		swftest.New().SymbolClass(swftest.Symbol{ID: 1, Name: "lamp_logic"}).BinaryData(1, []byte("<logic/>")).Bytes(), 0644)

	summaries, err := p.Run(context.Background(), []string{"fi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Written != 1 || summaries[0].Downloaded != 0 {
		t.Errorf("summaries = %+v", summaries)
	}
	if h.catalogs.Load() != 0 || h.bundles.Load() != 0 {
		t.Error("network used with SkipDownload")
	}
}

func TestRunCancelled(t *testing.T) {
	h := newHotel(t)
	p := New(Options{Config: h.config(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, []string{"com", "de"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}
