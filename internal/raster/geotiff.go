package raster

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/tiff"
	_ "golang.org/x/image/tiff"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// TIFF compression codes.
const (
	ctNone       = 1
	ctLZW        = 5
	ctDeflate    = 8
	ctDeflateOld = 32946
)

// TIFF sample formats.
const (
	sfUint  = 1
	sfInt   = 2
	sfFloat = 3
)

// GeoTIFF GeoKey IDs.
const (
	gkModelType      = 1024
	gkGeographicType = 2048
	gkProjectedCS    = 3072
)

// geoTIFFIFD mirrors the IFD fields this reader consumes.
type geoTIFFIFD struct {
	ImageWidth    uint64   `tiff:"field,tag=256"`
	ImageLength   uint64   `tiff:"field,tag=257"`
	BitsPerSample []uint16 `tiff:"field,tag=258"`
	Compression   uint16   `tiff:"field,tag=259"`
	Photometric   uint16   `tiff:"field,tag=262"`

	StripOffsets    []uint64 `tiff:"field,tag=273"`
	SamplesPerPixel uint16   `tiff:"field,tag=277"`
	RowsPerStrip    uint64   `tiff:"field,tag=278"`
	StripByteCounts []uint64 `tiff:"field,tag=279"`
	PlanarConfig    uint16   `tiff:"field,tag=284"`

	Predictor      uint16   `tiff:"field,tag=317"`
	TileWidth      uint16   `tiff:"field,tag=322"`
	TileLength     uint16   `tiff:"field,tag=323"`
	TileOffsets    []uint64 `tiff:"field,tag=324"`
	TileByteCounts []uint64 `tiff:"field,tag=325"`
	ExtraSamples   []uint16 `tiff:"field,tag=338"`
	SampleFormat   []uint16 `tiff:"field,tag=339"`

	ModelPixelScale     []float64 `tiff:"field,tag=33550"`
	ModelTiepoint       []float64 `tiff:"field,tag=33922"`
	ModelTransformation []float64 `tiff:"field,tag=34264"`
	GeoKeyDirectory     []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParams     []float64 `tiff:"field,tag=34736"`
	GeoASCIIParams      string    `tiff:"field,tag=34737"`
	GDALNoData          string    `tiff:"field,tag=42113"`
}

// geoTIFFSource reads GeoTIFF rasters. Georeferencing comes from the GeoTIFF
// tags; pixel data goes through the x/image TIFF decoder for unsigned
// integer imagery and a raw strip/tile reader for int16 and float32 samples.
type geoTIFFSource struct {
	filename string
	f        *os.File
	ifd      geoTIFFIFD
	order    binary.ByteOrder

	cols, rows int
	bands      int
	hasAlpha   bool
	chType     ChannelType
	nodata     *float64
	ref        *georef.GeoReference

	once sync.Once
	buf  *PixelBuffer
	err  error
}

// OpenGeoTIFF opens a GeoTIFF file and parses its georeferencing tags. A
// file without geo tags is still usable when the caller supplies a manual
// bbox.
func OpenGeoTIFF(filename string) (Source, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	t, err := tiff.Parse(f, nil, nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("raster: parse tiff %s: %w", filename, err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		f.Close()
		return nil, fmt.Errorf("raster: %s has no image directory", filename)
	}

	s := &geoTIFFSource{filename: filename, f: f, order: t.R().ByteOrder()}
	if err := tiff.UnmarshalIFD(ifds[0], &s.ifd); err != nil {
		f.Close()
		return nil, fmt.Errorf("raster: read tiff tags %s: %w", filename, err)
	}

	s.cols = int(s.ifd.ImageWidth)
	s.rows = int(s.ifd.ImageLength)

	samples := int(s.ifd.SamplesPerPixel)
	if samples == 0 {
		samples = 1
	}
	switch {
	case samples >= 4:
		s.bands, s.hasAlpha = 3, true
	case samples == 3:
		s.bands = 3
	case samples == 2:
		s.bands, s.hasAlpha = 1, true
	default:
		s.bands = 1
	}

	bits := uint16(8)
	if len(s.ifd.BitsPerSample) > 0 {
		bits = s.ifd.BitsPerSample[0]
	}
	format := uint16(sfUint)
	if len(s.ifd.SampleFormat) > 0 {
		format = s.ifd.SampleFormat[0]
	}
	switch {
	case format == sfFloat:
		s.chType = ChannelF32
	case format == sfInt && bits == 16:
		s.chType = ChannelI16
	case bits == 16:
		s.chType = ChannelU16
	default:
		s.chType = ChannelU8
	}

	if nd := strings.TrimRight(s.ifd.GDALNoData, "\x00 "); nd != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(nd), 64); err == nil {
			s.nodata = &v
		}
	}

	s.ref = s.parseGeoReference()
	return s, nil
}

func (s *geoTIFFSource) Filename() string         { return s.filename }
func (s *geoTIFFSource) Cols() int                { return s.cols }
func (s *geoTIFFSource) Rows() int                { return s.rows }
func (s *geoTIFFSource) Bands() int               { return s.bands }
func (s *geoTIFFSource) HasAlpha() bool           { return s.hasAlpha }
func (s *geoTIFFSource) ChannelType() ChannelType { return s.chType }

func (s *geoTIFFSource) NodataValue() (float64, bool) {
	if s.nodata == nil {
		return 0, false
	}
	return *s.nodata, true
}

func (s *geoTIFFSource) GeoReference() (*georef.GeoReference, bool) {
	return s.ref, s.ref != nil
}

// parseGeoReference builds a GeoReference from the GeoTIFF tags, or nil when
// the file carries none.
func (s *geoTIFFSource) parseGeoReference() *georef.GeoReference {
	var m geometry.Matrix3
	switch {
	case len(s.ifd.ModelTransformation) >= 16:
		t := s.ifd.ModelTransformation
		m = geometry.Matrix3{t[0], t[1], t[3], t[4], t[5], t[7], 0, 0, 1}
	case len(s.ifd.ModelPixelScale) >= 2 && len(s.ifd.ModelTiepoint) >= 6:
		sc := s.ifd.ModelPixelScale
		tp := s.ifd.ModelTiepoint
		originX := tp[3] - tp[0]*sc[0]
		originY := tp[4] + tp[1]*sc[1]
		m = geometry.NewAffine(sc[0], -sc[1], originX, originY)
	default:
		return nil
	}

	ref := georef.NewGeoReference(georef.WGS84Datum())
	epsg := s.geoKeyEPSG()
	switch {
	case epsg == 0 || epsg == 4326:
		ref.SetGeographic()
	case epsg == 3857 || epsg == 900913:
		ref.SetDatum(georef.WGS84Datum().SphericalMercatorDatum())
		ref.SetMercator(0, 0, 1)
	case epsg >= 32601 && epsg <= 32660:
		ref.SetUTM(epsg-32600, true)
	case epsg >= 32701 && epsg <= 32760:
		ref.SetUTM(epsg-32700, false)
	default:
		// Unknown code: keep geographic rather than guessing.
		ref.SetGeographic()
	}
	if err := ref.SetTransform(m); err != nil {
		return nil
	}
	return ref
}

// geoKeyEPSG extracts the EPSG code from the GeoKey directory.
func (s *geoTIFFSource) geoKeyEPSG() int {
	keys := s.ifd.GeoKeyDirectory
	if len(keys) < 4 {
		return 0
	}
	numKeys := int(keys[3])
	epsg := 0
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(keys) {
			break
		}
		switch keys[base] {
		case gkProjectedCS:
			if v := int(keys[base+3]); v > 0 && v < 32767 {
				return v
			}
		case gkGeographicType:
			if v := int(keys[base+3]); v > 0 && v < 32767 {
				epsg = v
			}
		}
	}
	return epsg
}

func (s *geoTIFFSource) Read(bbox geometry.BBox2i) (*PixelBuffer, error) {
	s.once.Do(s.decode)
	if s.err != nil {
		return nil, s.err
	}
	return s.buf.Crop(bbox), nil
}

func (s *geoTIFFSource) decode() {
	switch s.chType {
	case ChannelU8, ChannelU16:
		// The x/image decoder handles the full compression matrix for
		// unsigned imagery, including TIFF's LZW variant.
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			s.err = err
			return
		}
		img, _, err := image.Decode(s.f)
		if err != nil {
			s.err = fmt.Errorf("raster: decode %s: %w", s.filename, err)
			return
		}
		s.buf = FromImage(img, s.bands)
	default:
		s.buf, s.err = s.decodeRaw()
	}
}

// decodeRaw reads int16 and float32 sample data strip by strip (or tile by
// tile). LZW is not supported on this path.
func (s *geoTIFFSource) decodeRaw() (*PixelBuffer, error) {
	samples := int(s.ifd.SamplesPerPixel)
	if samples == 0 {
		samples = 1
	}
	if s.ifd.PlanarConfig > 1 {
		return nil, fmt.Errorf("raster: %s: planar sample layout is not supported", s.filename)
	}
	bits := int(s.ifd.BitsPerSample[0])
	bytesPerSample := bits / 8

	out := NewPixelBuffer(s.cols, s.rows, s.bands)

	tiled := s.ifd.TileWidth != 0
	blockW, blockH := s.cols, s.rows
	offsets, counts := s.ifd.StripOffsets, s.ifd.StripByteCounts
	if tiled {
		blockW = int(s.ifd.TileWidth)
		blockH = int(s.ifd.TileLength)
		offsets, counts = s.ifd.TileOffsets, s.ifd.TileByteCounts
	} else if s.ifd.RowsPerStrip != 0 {
		blockH = int(s.ifd.RowsPerStrip)
	}
	blocksAcross := (s.cols + blockW - 1) / blockW
	blocksDown := (s.rows + blockH - 1) / blockH

	px := make([]float32, s.bands+1)
	for bj := 0; bj < blocksDown; bj++ {
		for bi := 0; bi < blocksAcross; bi++ {
			idx := bj*blocksAcross + bi
			if idx >= len(offsets) || idx >= len(counts) {
				return nil, fmt.Errorf("raster: %s: truncated block index", s.filename)
			}
			raw, err := s.readBlock(int64(offsets[idx]), int64(counts[idx]))
			if err != nil {
				return nil, err
			}

			rowBytes := blockW * samples * bytesPerSample
			for y := 0; y < blockH && bj*blockH+y < s.rows; y++ {
				for x := 0; x < blockW && bi*blockW+x < s.cols; x++ {
					off := y*rowBytes + x*samples*bytesPerSample
					if off+samples*bytesPerSample > len(raw) {
						continue
					}
					alpha := float32(1)
					for c := 0; c < samples; c++ {
						v := s.sampleAt(raw, off+c*bytesPerSample)
						switch {
						case c < s.bands:
							px[c] = v
						case s.hasAlpha && c == samples-1:
							alpha = v
						}
					}
					// Color is stored premultiplied downstream.
					for c := 0; c < s.bands; c++ {
						px[c] *= alpha
					}
					px[s.bands] = alpha
					out.SetPixel(bi*blockW+x, bj*blockH+y, px)
				}
			}
		}
	}
	return out, nil
}

// sampleAt decodes one sample in the native channel type, rescaled to the
// pipeline's float representation.
func (s *geoTIFFSource) sampleAt(raw []byte, off int) float32 {
	switch s.chType {
	case ChannelI16:
		v := int16(s.order.Uint16(raw[off : off+2]))
		return float32(v) / 32767.0
	case ChannelF32:
		return math.Float32frombits(s.order.Uint32(raw[off : off+4]))
	default:
		return float32(raw[off]) / 255.0
	}
}

func (s *geoTIFFSource) readBlock(offset, count int64) ([]byte, error) {
	section := io.NewSectionReader(s.f, offset, count)
	switch s.ifd.Compression {
	case 0, ctNone:
		buf := make([]byte, count)
		if _, err := io.ReadFull(section, buf); err != nil {
			return nil, err
		}
		return buf, nil
	case ctDeflate, ctDeflateOld:
		zr, err := zlib.NewReader(section)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case ctLZW:
		return nil, fmt.Errorf("raster: %s: LZW compression is not supported for %s samples",
			s.filename, s.chType)
	default:
		return nil, fmt.Errorf("raster: %s: unsupported compression %d", s.filename, s.ifd.Compression)
	}
}
