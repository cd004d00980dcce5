package extract

import (
	"encoding/hex"
	"fmt"
)

// Kind names the record type an asset came from
type Kind string

const (
	KindBinary Kind = "binary"
	KindBitmap Kind = "bitmap"
)

// Extension returns the output file extension for assets of this kind
func (k Kind) Extension() string {
	if k == KindBitmap {
		return "png"
	}
	return "xml"
}

// Asset is one materialized output file
type Asset struct {
	ID   uint16
	Kind Kind
	Name string
	Data []byte
}

// FileName is the name of the asset inside the bundle directory
func (a Asset) FileName() string {
	return a.Name + "." + a.Kind.Extension()
}

// Status is the result of processing a single asset record
type Status uint8

const (
	StatusWritten Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Record describes what happened to one asset record, in stream order
type Record struct {
	// Index is the position of the record in the tag stream.
	Index   int
	AssetID uint16
	Kind    Kind
	// Name is empty when the asset id was not registered.
	Name   string
	File   string
	Status Status
	Size   int
	// Digest is the hex blake3-256 of the written bytes.
	Digest string
	Err    error
}

// Outcome summarizes one bundle's materialization
type Outcome struct {
	Bundle  string
	Written int
	Skipped int
	Failed  int
	Records []Record
}

func (o *Outcome) add(r Record) {
	switch r.Status {
	case StatusWritten:
		o.Written++
	case StatusSkipped:
		o.Skipped++
	case StatusFailed:
		o.Failed++
	}
	o.Records = append(o.Records, r)
}

// Failures returns the failed records in stream order
func (o *Outcome) Failures() []Record {
	var out []Record
	for _, r := range o.Records {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

func (o *Outcome) String() string {
	return fmt.Sprintf("%s: written=%d skipped=%d failed=%d", o.Bundle, o.Written, o.Skipped, o.Failed)
}

func digest(sum [32]byte) string {
	return hex.EncodeToString(sum[:])
}
