package mosaic

import (
	"math"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/raster"
)

// View is a lazily evaluated raster. Read returns the pixels under bbox,
// which may extend past the view edges; pixels outside are transparent.
type View interface {
	Cols() int
	Rows() int
	Bands() int
	Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error)
}

// SourceView adapts a raster source to the view interface.
type SourceView struct {
	Src raster.Source
}

func (v SourceView) Cols() int  { return v.Src.Cols() }
func (v SourceView) Rows() int  { return v.Src.Rows() }
func (v SourceView) Bands() int { return v.Src.Bands() }

func (v SourceView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	return v.Src.Read(bbox)
}

// MaskedView knocks out pixels whose bands all equal the nodata value.
type MaskedView struct {
	Src    View
	Nodata float64
}

func (v MaskedView) Cols() int  { return v.Src.Cols() }
func (v MaskedView) Rows() int  { return v.Src.Rows() }
func (v MaskedView) Bands() int { return v.Src.Bands() }

func (v MaskedView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	buf, err := v.Src.Read(bbox)
	if err != nil {
		return nil, err
	}
	nd := float32(v.Nodata)
	px := make([]float32, buf.Bands+1)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			buf.Pixel(x, y, px)
			hit := true
			for c := 0; c < buf.Bands; c++ {
				if px[c] != nd {
					hit = false
					break
				}
			}
			if hit {
				for c := 0; c <= buf.Bands; c++ {
					buf.Set(x, y, c, 0)
				}
			}
		}
	}
	return buf, nil
}

// RescaledView maps the band range [Lo,Hi] linearly onto [0,1]. Alpha is
// left alone, so color stays premultiplied after the shift.
type RescaledView struct {
	Src    View
	Lo, Hi float64
}

func (v RescaledView) Cols() int  { return v.Src.Cols() }
func (v RescaledView) Rows() int  { return v.Src.Rows() }
func (v RescaledView) Bands() int { return v.Src.Bands() }

func (v RescaledView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	buf, err := v.Src.Read(bbox)
	if err != nil {
		return nil, err
	}
	span := v.Hi - v.Lo
	if span == 0 {
		span = 1
	}
	lo, inv := float32(v.Lo), float32(1/span)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			a := buf.Alpha(x, y)
			for c := 0; c < buf.Bands; c++ {
				buf.Set(x, y, c, (buf.At(x, y, c)-lo*a)*inv)
			}
		}
	}
	return buf, nil
}

// ScaledView applies value = Scale*value + Offset to every band.
type ScaledView struct {
	Src    View
	Scale  float64
	Offset float64
}

func (v ScaledView) Cols() int  { return v.Src.Cols() }
func (v ScaledView) Rows() int  { return v.Src.Rows() }
func (v ScaledView) Bands() int { return v.Src.Bands() }

func (v ScaledView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	buf, err := v.Src.Read(bbox)
	if err != nil {
		return nil, err
	}
	s, o := float32(v.Scale), float32(v.Offset)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			a := buf.Alpha(x, y)
			for c := 0; c < buf.Bands; c++ {
				buf.Set(x, y, c, s*buf.At(x, y, c)+o*a)
			}
		}
	}
	return buf, nil
}

// RGBView widens a grayscale view to three bands so mixed inputs can share
// one composite.
type RGBView struct {
	Src View
}

func (v RGBView) Cols() int  { return v.Src.Cols() }
func (v RGBView) Rows() int  { return v.Src.Rows() }
func (v RGBView) Bands() int { return 3 }

func (v RGBView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	buf, err := v.Src.Read(bbox)
	if err != nil {
		return nil, err
	}
	if buf.Bands == 3 {
		return buf, nil
	}
	out := raster.NewPixelBuffer(buf.Cols, buf.Rows, 3)
	px := make([]float32, 4)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			g := buf.At(x, y, 0)
			px[0], px[1], px[2], px[3] = g, g, g, buf.Alpha(x, y)
			out.SetPixel(x, y, px)
		}
	}
	return out, nil
}

// ValueRange scans a view and reports the smallest and largest band
// values among non-transparent pixels. It is how floating point and signed
// imagery gets a normalization range when none is given; running it over a
// masked view keeps no-data pixels out of the range.
func ValueRange(v View) (lo, hi float64, err error) {
	buf, err := v.Read(geometry.BBox2i{MaxX: v.Cols(), MaxY: v.Rows()})
	if err != nil {
		return 0, 0, err
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			a := buf.Alpha(x, y)
			if a <= 0 {
				continue
			}
			for c := 0; c < buf.Bands; c++ {
				v := float64(buf.At(x, y, c) / a)
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
		}
	}
	if lo > hi {
		return 0, 1, nil
	}
	return lo, hi, nil
}
