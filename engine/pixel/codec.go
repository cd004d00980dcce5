// Package pixel turns packed lossless bitmap data into PNG bytes.
package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/klauspost/compress/zlib"

	"github.com/1siamBot/furni-extractor/engine/swf"
)

var (
	ErrDecompressionFailed    = errors.New("pixel: decompression failed")
	ErrUnsupportedPixelFormat = errors.New("pixel: unsupported pixel format")
	ErrEncodingFailed         = errors.New("pixel: encoding failed")
)

// BytesPerPixel is the size of one RGB32 pixel before and after reordering
const BytesPerPixel = 4

// Decode inflates packed RGB32 data and returns it as a row-major RGBA
// buffer. The source stores each pixel as alpha, red, green, blue.
func Decode(packed []byte, format swf.PixelFormat, width, height uint32) ([]byte, error) {
	if format != swf.FormatRGB32 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, format)
	}
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer zr.Close()

	// Read one pixel past the expected size so oversized data still
	// reaches Encode as a dimension mismatch instead of being cut.
	expected := uint64(width) * uint64(height) * BytesPerPixel
	pix, err := io.ReadAll(io.LimitReader(zr, int64(expected)+BytesPerPixel))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if len(pix)%BytesPerPixel != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of pixels", ErrDecompressionFailed, len(pix))
	}
	ARGBToRGBA(pix)
	return pix, nil
}

// ARGBToRGBA rotates every 4-byte group [a,r,g,b] to [r,g,b,a] in place.
// A trailing partial group is left untouched.
func ARGBToRGBA(pix []byte) {
	for i := 0; i+BytesPerPixel <= len(pix); i += BytesPerPixel {
		a := pix[i]
		pix[i], pix[i+1], pix[i+2] = pix[i+1], pix[i+2], pix[i+3]
		pix[i+3] = a
	}
}

// rgbaImage keeps the alpha channel in the PNG output. image/png writes
// colour type RGB for opaque images and asks Opaque before scanning pixels.
type rgbaImage struct{ *image.NRGBA }

func (rgbaImage) Opaque() bool { return false }

// Encode writes an 8-bit RGBA buffer as PNG. The colour type is always
// RGBA, even when every pixel is opaque. The buffer is used as the
// image backing store without copying.
func Encode(rgba []byte, width, height uint32) ([]byte, error) {
	if uint64(len(rgba)) != uint64(width)*uint64(height)*BytesPerPixel {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d pixels", ErrEncodingFailed, len(rgba), width, height)
	}
	img := rgbaImage{&image.NRGBA{
		Pix:    rgba,
		Stride: int(width) * BytesPerPixel,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}}
	var out bytes.Buffer
	if err := imgio.PNGEncoder()(&out, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return out.Bytes(), nil
}

// Convert runs Decode then Encode
func Convert(packed []byte, format swf.PixelFormat, width, height uint32) ([]byte, error) {
	rgba, err := Decode(packed, format, width, height)
	if err != nil {
		return nil, err
	}
	return Encode(rgba, width, height)
}
