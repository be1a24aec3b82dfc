package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Encoder turns pixel buffers into tile files. Quality is expressed the way
// the command line takes it: JPEG quality in [0,1], PNG compression in 0..9.
type Encoder struct {
	FileType       string
	ChannelType    ChannelType
	JpegQuality    float64
	PNGCompression int
}

// ExtensionFor reports the file extension for a tile. The "auto" type picks
// JPEG for fully opaque tiles and PNG for everything else.
func (e *Encoder) ExtensionFor(buf *PixelBuffer) string {
	switch e.FileType {
	case "auto":
		if buf.IsOpaque() {
			return "jpg"
		}
		return "png"
	case "":
		return "png"
	default:
		return e.FileType
	}
}

// Encode writes one tile in the format implied by ext.
func (e *Encoder) Encode(buf *PixelBuffer, ext string) ([]byte, error) {
	var out bytes.Buffer
	switch ext {
	case "jpg", "jpeg":
		img := e.toImage(buf, false)
		q := int(e.JpegQuality * 100)
		if q <= 0 {
			q = 75
		}
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
	case "png", "":
		enc := png.Encoder{CompressionLevel: pngLevel(e.PNGCompression)}
		if err := enc.Encode(&out, e.toImage(buf, true)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("raster: unsupported tile file type %q", ext)
	}
	return out.Bytes(), nil
}

// pngLevel maps the 0..9 zlib scale onto the discrete levels the encoder
// offers.
func pngLevel(n int) png.CompressionLevel {
	switch {
	case n <= 0:
		return png.NoCompression
	case n <= 3:
		return png.BestSpeed
	case n <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// toImage converts a buffer to a standard image, un-premultiplying alpha
// when the target format keeps an alpha channel.
func (e *Encoder) toImage(buf *PixelBuffer, withAlpha bool) image.Image {
	r := image.Rect(0, 0, buf.Cols, buf.Rows)
	sixteen := e.ChannelType == ChannelU16 || e.ChannelType == ChannelI16

	switch {
	case buf.Bands == 1 && sixteen && (!withAlpha || buf.IsOpaque()):
		img := image.NewGray16(r)
		buf.eachPixel(func(x, y int, px []float32) {
			img.SetGray16(x, y, color.Gray16{Y: clamp16(px[0])})
		})
		return img
	case buf.Bands == 1 && !withAlpha:
		img := image.NewGray(r)
		buf.eachPixel(func(x, y int, px []float32) {
			img.SetGray(x, y, color.Gray{Y: clamp8(px[0])})
		})
		return img
	case sixteen:
		img := image.NewNRGBA64(r)
		buf.eachPixel(func(x, y int, px []float32) {
			r, g, b := spread(buf.Bands, px)
			a := px[buf.Bands]
			if !withAlpha {
				a = 1
			}
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: clamp16(unmul(r, px[buf.Bands])),
				G: clamp16(unmul(g, px[buf.Bands])),
				B: clamp16(unmul(b, px[buf.Bands])),
				A: clamp16(a),
			})
		})
		return img
	default:
		img := image.NewNRGBA(r)
		buf.eachPixel(func(x, y int, px []float32) {
			r, g, b := spread(buf.Bands, px)
			a := px[buf.Bands]
			if !withAlpha {
				a = 1
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(unmul(r, px[buf.Bands])),
				G: clamp8(unmul(g, px[buf.Bands])),
				B: clamp8(unmul(b, px[buf.Bands])),
				A: clamp8(a),
			})
		})
		return img
	}
}

// spread expands a gray pixel to three channels.
func spread(bands int, px []float32) (r, g, b float32) {
	if bands == 1 {
		return px[0], px[0], px[0]
	}
	return px[0], px[1], px[2]
}

func unmul(v, a float32) float32 {
	if a <= 0 {
		return 0
	}
	return v / a
}

func clamp8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clamp16(v float32) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 65535
	}
	return uint16(v*65535 + 0.5)
}

func (p *PixelBuffer) eachPixel(fn func(x, y int, px []float32)) {
	px := make([]float32, p.Bands+1)
	for y := 0; y < p.Rows; y++ {
		for x := 0; x < p.Cols; x++ {
			p.Pixel(x, y, px)
			fn(x, y, px)
		}
	}
}
