// Package swftest builds small containers for tests.
package swftest

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zlib"
)

// Builder accumulates tag records and renders them as a container
type Builder struct {
	Version uint8
	tags    bytes.Buffer
	noEnd   bool
}

// New returns a builder for a version 10 movie
func New() *Builder {
	return &Builder{Version: 10}
}

// Raw appends a record with an arbitrary code and body, choosing the
// long header form when the body needs it
func (b *Builder) Raw(code uint16, body []byte) *Builder {
	if len(body) < 0x3f {
		binary.Write(&b.tags, binary.LittleEndian, code<<6|uint16(len(body)))
	} else {
		binary.Write(&b.tags, binary.LittleEndian, code<<6|0x3f)
		binary.Write(&b.tags, binary.LittleEndian, uint32(len(body)))
	}
	b.tags.Write(body)
	return b
}

// SymbolClass appends one declaration record
func (b *Builder) SymbolClass(entries ...Symbol) *Builder {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&body, binary.LittleEndian, e.ID)
		body.WriteString(e.Name)
		body.WriteByte(0)
	}
	return b.Raw(76, body.Bytes())
}

// Symbol is one SymbolClass entry
type Symbol struct {
	ID   uint16
	Name string
}

// BinaryData appends a DefineBinaryData record
func (b *Builder) BinaryData(id uint16, data []byte) *Builder {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, id)
	body.Write([]byte{0, 0, 0, 0})
	body.Write(data)
	return b.Raw(87, body.Bytes())
}

// Bitmap appends a DefineBitsLossless2 record with already packed data
func (b *Builder) Bitmap(id uint16, format uint8, width, height uint16, packed []byte) *Builder {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, id)
	body.WriteByte(format)
	binary.Write(&body, binary.LittleEndian, width)
	binary.Write(&body, binary.LittleEndian, height)
	body.Write(packed)
	return b.Raw(36, body.Bytes())
}

// OmitEnd leaves the trailing End record off
func (b *Builder) OmitEnd() *Builder {
	b.noEnd = true
	return b
}

func (b *Builder) body() []byte {
	var out bytes.Buffer
	// 5-bit nbits = 15 followed by four 15-bit fields, 0..11000 x 0..8000
	// twips, padded to 9 bytes.
	out.Write(frameRect())
	binary.Write(&out, binary.LittleEndian, uint16(24<<8)) // 24 fps
	binary.Write(&out, binary.LittleEndian, uint16(1))
	out.Write(b.tags.Bytes())
	if !b.noEnd {
		out.Write([]byte{0, 0})
	}
	return out.Bytes()
}

// Bytes renders an uncompressed FWS container
func (b *Builder) Bytes() []byte {
	body := b.body()
	out := header("FWS", b.Version, len(body))
	return append(out, body...)
}

// Compressed renders a zlib compressed CWS container
func (b *Builder) Compressed() []byte {
	body := b.body()
	out := header("CWS", b.Version, len(body))
	return append(out, Pack(body)...)
}

// Pack zlib-compresses data the way lossless bitmaps are stored
func Pack(data []byte) []byte {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	zw.Write(data)
	zw.Close()
	return out.Bytes()
}

func header(sig string, version uint8, bodyLen int) []byte {
	out := make([]byte, 8, 8+bodyLen)
	copy(out, sig)
	out[3] = version
	binary.LittleEndian.PutUint32(out[4:], uint32(8+bodyLen))
	return out
}

func frameRect() []byte {
	const nbits = 15
	fields := []uint32{0, 11000, 0, 8000}
	total := 5 + 4*nbits
	out := make([]byte, (total+7)/8)
	pos := 0
	put := func(v uint32, n int) {
		for i := n - 1; i >= 0; i-- {
			if v>>uint(i)&1 == 1 {
				out[pos/8] |= 1 << (7 - uint(pos%8))
			}
			pos++
		}
	}
	put(nbits, 5)
	for _, f := range fields {
		put(f, nbits)
	}
	return out
}
