// Package report stores per-zone extraction results as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/1siamBot/furni-extractor/engine/extract"
)

// FileName is the report file written into each zone directory
const FileName = "report.json"

// Asset is one record of a bundle
type Asset struct {
	Index  int    `json:"index"`
	ID     uint16 `json:"id"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	File   string `json:"file,omitempty"`
	Status string `json:"status"`
	Size   int    `json:"size,omitempty"`
	Digest string `json:"blake3,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Bundle is the result of one bundle. Fatal is set when the bundle could
// not be processed at all.
type Bundle struct {
	Name    string  `json:"name"`
	Written int     `json:"written"`
	Skipped int     `json:"skipped"`
	Failed  int     `json:"failed"`
	Fatal   string  `json:"fatal,omitempty"`
	Assets  []Asset `json:"assets,omitempty"`
}

// Download is a failed bundle download
type Download struct {
	Bundle string `json:"bundle"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// Report covers one zone of one run
type Report struct {
	Zone      string     `json:"zone"`
	Revision  string     `json:"revision"`
	Generated time.Time  `json:"generated"`
	Downloads []Download `json:"failed_downloads,omitempty"`
	Bundles   []Bundle   `json:"bundles"`
}

// New creates an empty report stamped with the current time
func New(zone, revision string) *Report {
	return &Report{Zone: zone, Revision: revision, Generated: time.Now().UTC()}
}

// AddOutcome appends the records of a processed bundle
func (r *Report) AddOutcome(o *extract.Outcome) {
	b := Bundle{Name: o.Bundle, Written: o.Written, Skipped: o.Skipped, Failed: o.Failed}
	for _, rec := range o.Records {
		a := Asset{
			Index:  rec.Index,
			ID:     rec.AssetID,
			Kind:   string(rec.Kind),
			Name:   rec.Name,
			File:   rec.File,
			Status: rec.Status.String(),
			Size:   rec.Size,
			Digest: rec.Digest,
		}
		if rec.Err != nil {
			a.Error = rec.Err.Error()
		}
		b.Assets = append(b.Assets, a)
	}
	r.Bundles = append(r.Bundles, b)
}

// AddFatal records a bundle that could not be processed
func (r *Report) AddFatal(name string, err error) {
	r.Bundles = append(r.Bundles, Bundle{Name: name, Fatal: err.Error()})
}

// AddDownloadFailure records a bundle that could not be fetched
func (r *Report) AddDownloadFailure(name, url string, err error) {
	r.Downloads = append(r.Downloads, Download{Bundle: name, URL: url, Error: err.Error()})
}

// Totals sums the asset counters over all bundles
func (r *Report) Totals() (written, skipped, failed int) {
	for _, b := range r.Bundles {
		written += b.Written
		skipped += b.Skipped
		failed += b.Failed
	}
	return written, skipped, failed
}

// SaveJSON saves the report to a JSON file
func (r *Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJSON loads a report from a JSON file
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}
