package swf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"
)

const (
	headerSize = 8
	// ZWS stores a 4-byte compressed length and 5 bytes of LZMA properties
	// between the common header and the compressed stream.
	lzmaPropsOffset = 12
	lzmaDataOffset  = 17
	longLength      = 0x3f
)

// Decode parses a whole container into its header and tag records. The
// returned byte payloads alias the uncompressed buffer; for FWS input
// that is data itself.
func Decode(data []byte) (*Movie, error) {
	buf, err := inflate(data)
	if err != nil {
		return nil, err
	}

	r := &reader{buf: buf, pos: headerSize}
	m := &Movie{}
	m.Header.Signature = string(buf[0:3])
	m.Header.Version = buf[3]
	m.Header.FileLength = binary.LittleEndian.Uint32(buf[4:8])

	if m.Header.FrameSize, err = r.rect(); err != nil {
		return nil, err
	}
	rate, err := r.u16()
	if err != nil {
		return nil, err
	}
	m.Header.FrameRate = float64(rate) / 256
	if m.Header.FrameCount, err = r.u16(); err != nil {
		return nil, err
	}

	for r.pos < len(r.buf) {
		code, body, err := r.tagHeader()
		if err != nil {
			return nil, err
		}
		if code == CodeEnd {
			break
		}
		t, err := decodeTag(code, body, r.pos-len(body))
		if err != nil {
			return nil, err
		}
		m.Tags = append(m.Tags, t)
	}
	return m, nil
}

// inflate returns the uncompressed container including its 8-byte header
func inflate(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, malformed(0, "container shorter than %d-byte header", headerSize)
	}
	sig := string(data[0:3])
	declared := int64(binary.LittleEndian.Uint32(data[4:8]))
	if declared < headerSize {
		return nil, malformed(4, "declared length %d is smaller than the header", declared)
	}

	switch sig {
	case "FWS":
		if declared > int64(len(data)) {
			return nil, malformed(4, "declared length %d exceeds buffer length %d", declared, len(data))
		}
		return data[:declared], nil

	case "CWS":
		zr, err := zlib.NewReader(bytes.NewReader(data[headerSize:]))
		if err != nil {
			return nil, malformed(headerSize, "zlib body: %v", err)
		}
		defer zr.Close()
		return readBody(data[:headerSize], zr, declared, headerSize)

	case "ZWS":
		if len(data) < lzmaDataOffset {
			return nil, malformed(headerSize, "lzma header truncated")
		}
		// Rebuild a classic .lzma header: properties, dictionary size,
		// then the 64-bit uncompressed size.
		var hdr [13]byte
		copy(hdr[0:5], data[lzmaPropsOffset:lzmaDataOffset])
		binary.LittleEndian.PutUint64(hdr[5:13], uint64(declared-headerSize))
		lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr[:]), bytes.NewReader(data[lzmaDataOffset:])))
		if err != nil {
			return nil, malformed(lzmaPropsOffset, "lzma body: %v", err)
		}
		return readBody(data[:headerSize], lr, declared, lzmaDataOffset)

	default:
		return nil, malformed(0, "unknown signature %q", sig)
	}
}

// readBody appends the decompressed stream to the header and checks it
// against the declared length without trusting that length for the
// allocation.
func readBody(header []byte, body io.Reader, declared int64, offset int) ([]byte, error) {
	var out bytes.Buffer
	out.Write(header)
	n, err := io.Copy(&out, io.LimitReader(body, declared-headerSize))
	if err != nil {
		return nil, malformed(offset, "decompressing body after %d bytes: %v", n, err)
	}
	if n != declared-headerSize {
		return nil, malformed(offset, "body decompressed to %d bytes, header declares %d", n, declared-headerSize)
	}
	return out.Bytes(), nil
}

func decodeTag(code TagCode, body []byte, offset int) (Tag, error) {
	switch code {
	case CodeSymbolClass:
		return decodeSymbolClass(body, offset)
	case CodeDefineBinaryData:
		if len(body) < 6 {
			return nil, malformed(offset, "DefineBinaryData body is %d bytes", len(body))
		}
		// 2-byte id, 4 reserved bytes, payload.
		return &BinaryData{
			ID:   binary.LittleEndian.Uint16(body[0:2]),
			Data: body[6:],
		}, nil
	case CodeDefineBitsLossless, CodeDefineBitsLossless2:
		return decodeLossless(code, body, offset)
	default:
		return &Unknown{TagCode: code, Body: body}, nil
	}
}

func decodeSymbolClass(body []byte, offset int) (*SymbolClass, error) {
	r := &reader{buf: body}
	count, err := r.u16()
	if err != nil {
		return nil, malformed(offset, "SymbolClass count truncated")
	}
	sc := &SymbolClass{Symbols: make([]Symbol, 0, count)}
	for i := 0; i < int(count); i++ {
		id, err := r.u16()
		if err != nil {
			return nil, malformed(offset+r.pos, "SymbolClass entry %d truncated", i)
		}
		name, err := r.cstring()
		if err != nil {
			return nil, malformed(offset+r.pos, "SymbolClass entry %d name unterminated", i)
		}
		sc.Symbols = append(sc.Symbols, Symbol{ID: id, Name: name})
	}
	return sc, nil
}

func decodeLossless(code TagCode, body []byte, offset int) (*LosslessBitmap, error) {
	if len(body) < 7 {
		return nil, malformed(offset, "%s body is %d bytes", code, len(body))
	}
	b := &LosslessBitmap{
		ID:      binary.LittleEndian.Uint16(body[0:2]),
		Version: 1,
		Format:  PixelFormat(body[2]),
		Width:   uint32(binary.LittleEndian.Uint16(body[3:5])),
		Height:  uint32(binary.LittleEndian.Uint16(body[5:7])),
		Data:    body[7:],
	}
	if code == CodeDefineBitsLossless2 {
		b.Version = 2
	}
	if b.Format == FormatColormapped {
		if len(body) < 8 {
			return nil, malformed(offset, "%s color table size missing", code)
		}
		b.ColorTableSize = body[7]
		b.Data = body[8:]
	}
	return b, nil
}

// reader walks the uncompressed buffer; pos is an absolute offset
type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if n > len(r.buf)-r.pos {
		return malformed(r.pos, "need %d bytes, %d remain", n, len(r.buf)-r.pos)
	}
	return nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) cstring() (string, error) {
	end := bytes.IndexByte(r.buf[r.pos:], 0)
	if end < 0 {
		return "", malformed(r.pos, "unterminated string")
	}
	s := string(r.buf[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}

// tagHeader reads a short or long record header and returns the body slice
func (r *reader) tagHeader() (TagCode, []byte, error) {
	start := r.pos
	v, err := r.u16()
	if err != nil {
		return 0, nil, malformed(start, "truncated tag header")
	}
	code := TagCode(v >> 6)
	length := int64(v & longLength)
	if length == longLength {
		l, err := r.u32()
		if err != nil {
			return 0, nil, malformed(start, "truncated long length for %s", code)
		}
		length = int64(l)
	}
	if length > int64(len(r.buf)-r.pos) {
		return 0, nil, malformed(start, "%s declares %d bytes, %d remain", code, length, len(r.buf)-r.pos)
	}
	body := r.buf[r.pos : r.pos+int(length)]
	r.pos += int(length)
	return code, body, nil
}

// rect reads the bit-packed frame rectangle and realigns to a byte
func (r *reader) rect() (Rect, error) {
	br := bitReader{buf: r.buf, pos: r.pos * 8}
	nbits, ok := br.unsigned(5)
	if !ok {
		return Rect{}, malformed(r.pos, "truncated frame rectangle")
	}
	var vals [4]int32
	for i := range vals {
		v, ok := br.signed(int(nbits))
		if !ok {
			return Rect{}, malformed(r.pos, "truncated frame rectangle")
		}
		vals[i] = v
	}
	r.pos = (br.pos + 7) / 8
	return Rect{XMin: vals[0], XMax: vals[1], YMin: vals[2], YMax: vals[3]}, nil
}

type bitReader struct {
	buf []byte
	pos int // in bits
}

func (b *bitReader) unsigned(n int) (uint32, bool) {
	if b.pos+n > len(b.buf)*8 {
		return 0, false
	}
	var v uint32
	for i := 0; i < n; i++ {
		bit := (b.buf[b.pos/8] >> (7 - uint(b.pos%8))) & 1
		v = v<<1 | uint32(bit)
		b.pos++
	}
	return v, true
}

func (b *bitReader) signed(n int) (int32, bool) {
	v, ok := b.unsigned(n)
	if !ok || n == 0 {
		return 0, ok
	}
	// sign-extend from bit n-1
	shift := 32 - uint(n)
	return int32(v<<shift) >> shift, true
}
