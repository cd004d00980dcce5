package pipeline

import (
	"path/filepath"

	"github.com/1siamBot/furni-extractor/engine/catalog"
	"github.com/1siamBot/furni-extractor/engine/report"
)

// Layout maps a zone to its directories under <data>/<revision>/
type Layout struct {
	Root string
}

func (l Layout) ZoneDir(zone string) string {
	return filepath.Join(l.Root, zone)
}

func (l Layout) CatalogPath(zone string) string {
	return filepath.Join(l.ZoneDir(zone), catalog.FileName)
}

func (l Layout) BundleDir(zone string) string {
	return filepath.Join(l.ZoneDir(zone), "bundles")
}

func (l Layout) BundlePath(zone, name string) string {
	return filepath.Join(l.BundleDir(zone), name+".swf")
}

func (l Layout) ExtractDir(zone string) string {
	return filepath.Join(l.ZoneDir(zone), "extracted")
}

func (l Layout) ReportPath(zone string) string {
	return filepath.Join(l.ZoneDir(zone), report.FileName)
}
