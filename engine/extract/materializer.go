// Package extract writes the assets of a decoded bundle to disk.
package extract

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/1siamBot/furni-extractor/engine/pixel"
	"github.com/1siamBot/furni-extractor/engine/swf"
	"github.com/1siamBot/furni-extractor/engine/symbols"
)

// Materializer resolves asset records against a symbol table and stores
// them. The zero value processes records sequentially.
type Materializer struct {
	// Workers bounds how many records are processed at once. Zero
	// means one at a time.
	Workers int
	// OnRecord, when set, is called once per finished record. Calls may
	// come from several goroutines when Workers > 1.
	OnRecord func(Record)
}

type job struct {
	index int
	tag   swf.Tag
	asset Asset
}

// Run processes every binary data and lossless bitmap record in tags.
// Per-asset failures are recorded in the outcome; the returned error is
// only set when ctx is cancelled, in which case the outcome holds the
// records finished so far.
func (m *Materializer) Run(ctx context.Context, bundle string, tags []swf.Tag, table *symbols.Table, dir Dir) (*Outcome, error) {
	out := &Outcome{Bundle: bundle}
	results := make([]*Record, len(tags))
	var jobs []job
	claimed := make(map[string]bool)

	for i, t := range tags {
		var (
			id   uint16
			kind Kind
			raw  []byte
		)
		switch v := t.(type) {
		case *swf.BinaryData:
			id, kind, raw = v.ID, KindBinary, v.Data
		case *swf.LosslessBitmap:
			id, kind, raw = v.ID, KindBitmap, v.Data
		default:
			continue
		}

		name, ok := table.Lookup(id)
		if !ok {
			results[i] = &Record{Index: i, AssetID: id, Kind: kind, Status: StatusFailed, Err: unregistered(id, kind, raw)}
			continue
		}
		asset := Asset{ID: id, Kind: kind, Name: name}
		rec := &Record{Index: i, AssetID: id, Kind: kind, Name: name, File: asset.FileName()}
		if !validName(name) {
			rec.Status = StatusFailed
			rec.Err = fmt.Errorf("%w: asset name %q is not a plain file name", ErrWriteFailed, name)
			results[i] = rec
			continue
		}
		// Two ids resolving to one file: the first record owns it.
		if claimed[rec.File] {
			rec.Status = StatusSkipped
			results[i] = rec
			continue
		}
		claimed[rec.File] = true
		jobs = append(jobs, job{index: i, tag: t, asset: asset})
	}

	for i := range results {
		if results[i] != nil && m.OnRecord != nil {
			m.OnRecord(*results[i])
		}
	}

	var (
		g           errgroup.Group
		interrupted atomic.Bool
	)
	g.SetLimit(max(m.Workers, 1))
	for _, j := range jobs {
		if ctx.Err() != nil {
			interrupted.Store(true)
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				interrupted.Store(true)
				return nil
			}
			rec := materialize(j, dir)
			results[j.index] = &rec
			if m.OnRecord != nil {
				m.OnRecord(rec)
			}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		if r != nil {
			out.add(*r)
		}
	}
	if interrupted.Load() {
		return out, ctx.Err()
	}
	return out, nil
}

func materialize(j job, dir Dir) Record {
	a := j.asset
	rec := Record{Index: j.index, AssetID: a.ID, Kind: a.Kind, Name: a.Name, File: a.FileName()}

	exists, err := dir.Exists(rec.File)
	if err != nil {
		rec.Status = StatusFailed
		rec.Err = fmt.Errorf("%w: %v", ErrWriteFailed, err)
		return rec
	}
	if exists {
		rec.Status = StatusSkipped
		return rec
	}

	switch v := j.tag.(type) {
	case *swf.BinaryData:
		a.Data = v.Data
	case *swf.LosslessBitmap:
		a.Data, err = pixel.Convert(v.Data, v.Format, v.Width, v.Height)
		if err != nil {
			rec.Status = StatusFailed
			rec.Err = err
			return rec
		}
	}

	if err := dir.WriteFile(rec.File, a.Data); err != nil {
		rec.Status = StatusFailed
		rec.Err = fmt.Errorf("%w: %v", ErrWriteFailed, err)
		return rec
	}
	rec.Status = StatusWritten
	rec.Size = len(a.Data)
	rec.Digest = digest(blake3.Sum256(a.Data))
	return rec
}

func validName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}
