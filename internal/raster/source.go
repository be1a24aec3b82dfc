package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// Source is a random-access raster input: dimensions, channel and pixel
// format, optional no-data value, optional georeference metadata.
type Source interface {
	Filename() string
	Cols() int
	Rows() int
	// Bands is the number of color bands (1 gray, 3 RGB), alpha excluded.
	Bands() int
	HasAlpha() bool
	ChannelType() ChannelType
	// NodataValue returns the file-declared no-data value, if any, in the
	// source's native channel scale.
	NodataValue() (float64, bool)
	// GeoReference returns the embedded georeference, if the format carries
	// one.
	GeoReference() (*georef.GeoReference, bool)
	// Read realizes the requested region. Pixels outside the raster are
	// transparent.
	Read(bbox geometry.BBox2i) (*PixelBuffer, error)
}

// Open dispatches on the file extension. TIFF inputs may carry GeoTIFF
// georeferencing; PNG and JPEG never do and rely on a manual bbox.
func Open(filename string) (Source, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return OpenGeoTIFF(filename)
	case ".png", ".jpg", ".jpeg":
		return openStdImage(filename)
	default:
		return nil, fmt.Errorf("raster: unsupported input format %q", filename)
	}
}

// stdImageSource reads PNG and JPEG files through the standard decoders.
// The file is decoded once, on first read.
type stdImageSource struct {
	filename string
	cols     int
	rows     int
	bands    int
	hasAlpha bool
	chType   ChannelType

	once sync.Once
	buf  *PixelBuffer
	err  error
}

func openStdImage(filename string) (*stdImageSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("raster: decode config %s: %w", filename, err)
	}

	s := &stdImageSource{
		filename: filename,
		cols:     cfg.Width,
		rows:     cfg.Height,
		bands:    3,
		chType:   ChannelU8,
	}
	switch cfg.ColorModel {
	case color.GrayModel, color.Gray16Model:
		s.bands = 1
	case color.NRGBAModel, color.NRGBA64Model, color.RGBAModel, color.RGBA64Model:
		s.hasAlpha = true
	}
	switch cfg.ColorModel {
	case color.Gray16Model, color.NRGBA64Model, color.RGBA64Model:
		s.chType = ChannelU16
	}
	_ = format
	return s, nil
}

func (s *stdImageSource) Filename() string         { return s.filename }
func (s *stdImageSource) Cols() int                { return s.cols }
func (s *stdImageSource) Rows() int                { return s.rows }
func (s *stdImageSource) Bands() int               { return s.bands }
func (s *stdImageSource) HasAlpha() bool           { return s.hasAlpha }
func (s *stdImageSource) ChannelType() ChannelType { return s.chType }

func (s *stdImageSource) NodataValue() (float64, bool) { return 0, false }

func (s *stdImageSource) GeoReference() (*georef.GeoReference, bool) { return nil, false }

func (s *stdImageSource) decode() {
	f, err := os.Open(s.filename)
	if err != nil {
		s.err = err
		return
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		s.err = fmt.Errorf("raster: decode %s: %w", s.filename, err)
		return
	}
	s.buf = FromImage(img, s.bands)
}

func (s *stdImageSource) Read(bbox geometry.BBox2i) (*PixelBuffer, error) {
	s.once.Do(s.decode)
	if s.err != nil {
		return nil, s.err
	}
	return s.buf.Crop(bbox), nil
}

// FromImage converts a decoded image into a PixelBuffer with the given
// number of color bands, normalizing channels to [0,1] and premultiplying
// alpha.
func FromImage(img image.Image, bands int) *PixelBuffer {
	b := img.Bounds()
	out := NewPixelBuffer(b.Dx(), b.Dy(), bands)
	px := make([]float32, bands+1)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			af := float32(a) / 0xffff
			if bands == 1 {
				// Unweighted mean: inputs here are data rasters, not
				// photometric conversions.
				px[0] = float32(r+g+bl) / (3 * 0xffff)
			} else {
				px[0] = float32(r) / 0xffff
				px[1] = float32(g) / 0xffff
				px[2] = float32(bl) / 0xffff
			}
			px[bands] = af
			out.SetPixel(x, y, px)
		}
	}
	return out
}

// MemorySource is an in-memory Source, mostly for tests and synthesized
// inputs.
type MemorySource struct {
	Name   string
	Buf    *PixelBuffer
	CType  ChannelType
	Nodata *float64
	Georef *georef.GeoReference
}

func (m *MemorySource) Filename() string { return m.Name }
func (m *MemorySource) Cols() int        { return m.Buf.Cols }
func (m *MemorySource) Rows() int        { return m.Buf.Rows }
func (m *MemorySource) Bands() int       { return m.Buf.Bands }
func (m *MemorySource) HasAlpha() bool   { return true }

func (m *MemorySource) ChannelType() ChannelType {
	if m.CType == ChannelNone {
		return ChannelU8
	}
	return m.CType
}

func (m *MemorySource) NodataValue() (float64, bool) {
	if m.Nodata == nil {
		return 0, false
	}
	return *m.Nodata, true
}

func (m *MemorySource) GeoReference() (*georef.GeoReference, bool) {
	return m.Georef, m.Georef != nil
}

func (m *MemorySource) Read(bbox geometry.BBox2i) (*PixelBuffer, error) {
	return m.Buf.Crop(bbox), nil
}
