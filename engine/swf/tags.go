// Package swf decodes the tag stream of a compiled movie container.
//
// Only the records needed for asset extraction are decoded into typed
// values; every other record is kept as an Unknown with its raw body.
// Byte payloads reference the decoded container buffer directly.
package swf

import "fmt"

// TagCode identifies a record in the tag stream
type TagCode uint16

const (
	CodeEnd                 TagCode = 0
	CodeShowFrame           TagCode = 1
	CodeDefineBits          TagCode = 6
	CodeDefineBitsLossless  TagCode = 20
	CodeDefineBitsLossless2 TagCode = 36
	CodeFileAttributes      TagCode = 69
	CodeSymbolClass         TagCode = 76
	CodeDefineBinaryData    TagCode = 87
)

var codeNames = map[TagCode]string{
	CodeEnd:                 "End",
	CodeShowFrame:           "ShowFrame",
	CodeDefineBits:          "DefineBits",
	CodeDefineBitsLossless:  "DefineBitsLossless",
	CodeDefineBitsLossless2: "DefineBitsLossless2",
	CodeFileAttributes:      "FileAttributes",
	CodeSymbolClass:         "SymbolClass",
	CodeDefineBinaryData:    "DefineBinaryData",
}

func (c TagCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(c))
}

// Tag is one decoded record. The concrete type is one of *SymbolClass,
// *BinaryData, *LosslessBitmap or *Unknown.
type Tag interface {
	Code() TagCode
	tag()
}

// Symbol maps a character id to its fully qualified class name
type Symbol struct {
	ID   uint16
	Name string
}

// SymbolClass declares class names for character ids
type SymbolClass struct {
	Symbols []Symbol
}

// BinaryData is an opaque payload attached to a character id
type BinaryData struct {
	ID   uint16
	Data []byte
}

// PixelFormat is the bitmap format byte of a lossless bitmap record
type PixelFormat uint8

const (
	FormatColormapped PixelFormat = 3
	FormatRGB15       PixelFormat = 4
	FormatRGB32       PixelFormat = 5
)

func (f PixelFormat) String() string {
	switch f {
	case FormatColormapped:
		return "colormapped8"
	case FormatRGB15:
		return "rgb15"
	case FormatRGB32:
		return "rgb32"
	default:
		return fmt.Sprintf("other(%d)", uint8(f))
	}
}

// LosslessBitmap is a zlib-packed bitmap. Version is 1 for
// DefineBitsLossless and 2 for DefineBitsLossless2.
type LosslessBitmap struct {
	ID      uint16
	Version uint8
	Format  PixelFormat
	Width   uint32
	Height  uint32
	// ColorTableSize is only meaningful for FormatColormapped.
	ColorTableSize uint8
	Data           []byte
}

// Unknown is any record not needed for extraction
type Unknown struct {
	TagCode TagCode
	Body    []byte
}

func (*SymbolClass) Code() TagCode { return CodeSymbolClass }
func (*BinaryData) Code() TagCode  { return CodeDefineBinaryData }
func (b *LosslessBitmap) Code() TagCode {
	if b.Version == 2 {
		return CodeDefineBitsLossless2
	}
	return CodeDefineBitsLossless
}
func (u *Unknown) Code() TagCode { return u.TagCode }

func (*SymbolClass) tag()    {}
func (*BinaryData) tag()     {}
func (*LosslessBitmap) tag() {}
func (*Unknown) tag()        {}

// Rect is the movie frame size in twips
type Rect struct {
	XMin, XMax int32
	YMin, YMax int32
}

// Header is the fixed part of the container preceding the tag stream
type Header struct {
	Signature  string // FWS, CWS or ZWS
	Version    uint8
	FileLength uint32
	FrameSize  Rect
	FrameRate  float64
	FrameCount uint16
}

// Movie is a decoded container
type Movie struct {
	Header Header
	Tags   []Tag
}
