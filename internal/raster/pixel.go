package raster

import (
	"github.com/stephenfox/image2qtree/internal/geometry"
)

// ChannelType enumerates the channel depths carried through the pipeline.
type ChannelType int

const (
	ChannelNone ChannelType = iota
	ChannelU8
	ChannelI16
	ChannelU16
	ChannelF32
)

func (c ChannelType) String() string {
	switch c {
	case ChannelU8:
		return "UINT8"
	case ChannelI16:
		return "INT16"
	case ChannelU16:
		return "UINT16"
	case ChannelF32:
		return "FLOAT"
	}
	return "NONE"
}

// ParseChannelType maps the CLI channel-type names to a ChannelType.
func ParseChannelType(s string) (ChannelType, bool) {
	switch s {
	case "UINT8", "uint8":
		return ChannelU8, true
	case "INT16", "int16":
		return ChannelI16, true
	case "UINT16", "uint16":
		return ChannelU16, true
	case "FLOAT", "float", "FLOAT32", "float32":
		return ChannelF32, true
	case "", "NONE", "none":
		return ChannelNone, true
	}
	return ChannelNone, false
}

// Normalized maps a value in the channel's native scale onto the [0,1]
// range pixel buffers carry for integer-typed sources. Float samples
// pass through unchanged. The divisions run in float32 so the result is
// bit-identical to what the decoders produce for the same sample.
func (c ChannelType) Normalized(v float64) float64 {
	switch c {
	case ChannelU8:
		return float64(float32(v) / 255.0)
	case ChannelI16:
		return float64(float32(v) / 32767.0)
	case ChannelU16:
		return float64(float32(v) / 65535.0)
	}
	return v
}

// PixelBuffer is a realized block of pixels. Channel values are float32 in
// [0,1] for integer-typed sources (rescaled at decode) or raw values for
// float sources. Alpha is premultiplied. Layout is interleaved: Bands color
// channels followed by one alpha channel per pixel.
type PixelBuffer struct {
	Cols  int
	Rows  int
	Bands int // color bands, 1 (gray) or 3 (RGB); alpha is always carried
	Data  []float32
}

func NewPixelBuffer(cols, rows, bands int) *PixelBuffer {
	return &PixelBuffer{
		Cols:  cols,
		Rows:  rows,
		Bands: bands,
		Data:  make([]float32, cols*rows*(bands+1)),
	}
}

// Stride is the number of float32 values per pixel.
func (p *PixelBuffer) Stride() int { return p.Bands + 1 }

func (p *PixelBuffer) index(x, y int) int {
	return (y*p.Cols + x) * p.Stride()
}

// At returns channel c of pixel (x, y). Channel Bands is alpha.
func (p *PixelBuffer) At(x, y, c int) float32 {
	return p.Data[p.index(x, y)+c]
}

func (p *PixelBuffer) Set(x, y, c int, v float32) {
	p.Data[p.index(x, y)+c] = v
}

// Alpha returns the alpha of pixel (x, y).
func (p *PixelBuffer) Alpha(x, y int) float32 {
	return p.Data[p.index(x, y)+p.Bands]
}

func (p *PixelBuffer) SetAlpha(x, y int, v float32) {
	p.Data[p.index(x, y)+p.Bands] = v
}

// Pixel copies all channels of (x, y) into dst, which must hold Stride()
// values.
func (p *PixelBuffer) Pixel(x, y int, dst []float32) {
	copy(dst, p.Data[p.index(x, y):p.index(x, y)+p.Stride()])
}

func (p *PixelBuffer) SetPixel(x, y int, src []float32) {
	copy(p.Data[p.index(x, y):p.index(x, y)+p.Stride()], src)
}

// BBox returns the buffer extent as a pixel bounding box at origin.
func (p *PixelBuffer) BBox() geometry.BBox2i {
	return geometry.NewBBox2i(0, 0, p.Cols, p.Rows)
}

// IsOpaque reports whether every pixel has full alpha. Drives the "auto"
// file-type choice between JPEG and PNG.
func (p *PixelBuffer) IsOpaque() bool {
	stride := p.Stride()
	for i := p.Bands; i < len(p.Data); i += stride {
		if p.Data[i] < 1.0 {
			return false
		}
	}
	return true
}

// IsTransparent reports whether every pixel has zero alpha.
func (p *PixelBuffer) IsTransparent() bool {
	stride := p.Stride()
	for i := p.Bands; i < len(p.Data); i += stride {
		if p.Data[i] > 0 {
			return false
		}
	}
	return true
}

// Crop returns a copy of the given region. Areas outside the buffer are
// zero (transparent).
func (p *PixelBuffer) Crop(bbox geometry.BBox2i) *PixelBuffer {
	out := NewPixelBuffer(bbox.Width(), bbox.Height(), p.Bands)
	overlap := bbox.Intersect(p.BBox())
	if overlap.Empty() {
		return out
	}
	stride := p.Stride()
	rowLen := overlap.Width() * stride
	for y := overlap.MinY; y < overlap.MaxY; y++ {
		srcOff := p.index(overlap.MinX, y)
		dstOff := out.index(overlap.MinX-bbox.MinX, y-bbox.MinY)
		copy(out.Data[dstOff:dstOff+rowLen], p.Data[srcOff:srcOff+rowLen])
	}
	return out
}

// Compose copies src into the buffer with its origin at (dx, dy),
// overwriting destination pixels.
func (p *PixelBuffer) Compose(src *PixelBuffer, dx, dy int) {
	target := src.BBox().Translate(dx, dy).Intersect(p.BBox())
	if target.Empty() {
		return
	}
	stride := p.Stride()
	rowLen := target.Width() * stride
	for y := target.MinY; y < target.MaxY; y++ {
		srcOff := src.index(target.MinX-dx, y-dy)
		dstOff := p.index(target.MinX, y)
		copy(p.Data[dstOff:dstOff+rowLen], src.Data[srcOff:srcOff+rowLen])
	}
}

// BlendOver composites src over the buffer with its origin at (dx, dy)
// using premultiplied alpha-over.
func (p *PixelBuffer) BlendOver(src *PixelBuffer, dx, dy int) {
	target := src.BBox().Translate(dx, dy).Intersect(p.BBox())
	if target.Empty() {
		return
	}
	stride := p.Stride()
	for y := target.MinY; y < target.MaxY; y++ {
		for x := target.MinX; x < target.MaxX; x++ {
			srcOff := src.index(x-dx, y-dy)
			dstOff := p.index(x, y)
			a := src.Data[srcOff+p.Bands]
			for c := 0; c < stride; c++ {
				p.Data[dstOff+c] = src.Data[srcOff+c] + (1-a)*p.Data[dstOff+c]
			}
		}
	}
}

// BoxReduce2 returns the buffer downsampled by two with a 2x2 box filter,
// the reduction used to build parent tiles from their children. Alpha
// weighting keeps transparent samples from darkening edges.
func (p *PixelBuffer) BoxReduce2() *PixelBuffer {
	cols := (p.Cols + 1) / 2
	rows := (p.Rows + 1) / 2
	out := NewPixelBuffer(cols, rows, p.Bands)
	stride := p.Stride()
	acc := make([]float32, stride)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			for c := range acc {
				acc[c] = 0
			}
			n := 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := 2*x+dx, 2*y+dy
					if sx >= p.Cols || sy >= p.Rows {
						continue
					}
					off := p.index(sx, sy)
					for c := 0; c < stride; c++ {
						acc[c] += p.Data[off+c]
					}
					n++
				}
			}
			if n == 0 {
				continue
			}
			off := out.index(x, y)
			for c := 0; c < stride; c++ {
				out.Data[off+c] = acc[c] / float32(n)
			}
		}
	}
	return out
}
