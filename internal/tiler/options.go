package tiler

import (
	"strings"

	"github.com/stephenfox/image2qtree/internal/raster"
)

type Mode string
type DatumOverride string
type Projection string

const (
	// Plain pyramid over the raw pixel grid, no georeferencing.
	ModeNone Mode = "NONE"

	// Google Earth super-overlay: per-node kml plus a root kml document.
	ModeKML Mode = "KML"

	ModeTMS      Mode = "TMS"
	ModeUniview  Mode = "UNIVIEW"
	ModeGMap     Mode = "GMAP"
	ModeCelestia Mode = "CELESTIA"
	ModeGigapan  Mode = "GIGAPAN"

	// Gigapan tree over the raw pixel grid, manifest included.
	ModeGigapanNoProj Mode = "GIGAPAN_NOPROJ"
)

const (
	DatumNone   DatumOverride = "NONE"
	DatumWGS84  DatumOverride = "WGS84"
	DatumLunar  DatumOverride = "LUNAR"
	DatumMars   DatumOverride = "MARS"
	DatumSphere DatumOverride = "SPHERE"
)

const (
	ProjectionNone            Projection = "NONE"
	ProjectionSinusoidal      Projection = "SINUSOIDAL"
	ProjectionMercator        Projection = "MERCATOR"
	ProjectionTransverseMerc  Projection = "TRANSVERSE_MERCATOR"
	ProjectionOrthographic    Projection = "ORTHOGRAPHIC"
	ProjectionStereographic   Projection = "STEREOGRAPHIC"
	ProjectionLambertAzimuth  Projection = "LAMBERT_AZIMUTHAL"
	ProjectionLambertConfConn Projection = "LAMBERT_CONFORMAL_CONIC"
	ProjectionUTM             Projection = "UTM"
	ProjectionPlateCarree     Projection = "PLATE_CARREE"
)

func (m Mode) String() string { return string(m) }

// GeoReferenced reports whether the mode reprojects onto a global grid.
func (m Mode) GeoReferenced() bool {
	return m != ModeNone && m != ModeGigapanNoProj
}

func ParseMode(value string) Mode {
	switch Mode(strings.Trim(strings.ToUpper(value), " ")) {
	case ModeNone:
		return ModeNone
	case ModeKML:
		return ModeKML
	case ModeTMS:
		return ModeTMS
	case ModeUniview:
		return ModeUniview
	case ModeGMap:
		return ModeGMap
	case ModeCelestia:
		return ModeCelestia
	case ModeGigapan:
		return ModeGigapan
	case ModeGigapanNoProj:
		return ModeGigapanNoProj
	}
	return ""
}

func ParseDatumOverride(value string) DatumOverride {
	switch DatumOverride(strings.Trim(strings.ToUpper(value), " ")) {
	case DatumNone, "":
		return DatumNone
	case DatumWGS84:
		return DatumWGS84
	case DatumLunar:
		return DatumLunar
	case DatumMars:
		return DatumMars
	case DatumSphere:
		return DatumSphere
	}
	return ""
}

func ParseProjection(value string) Projection {
	switch Projection(strings.Trim(strings.ToUpper(value), " ")) {
	case ProjectionNone, "":
		return ProjectionNone
	case ProjectionSinusoidal:
		return ProjectionSinusoidal
	case ProjectionMercator:
		return ProjectionMercator
	case ProjectionTransverseMerc:
		return ProjectionTransverseMerc
	case ProjectionOrthographic:
		return ProjectionOrthographic
	case ProjectionStereographic:
		return ProjectionStereographic
	case ProjectionLambertAzimuth:
		return ProjectionLambertAzimuth
	case ProjectionLambertConfConn:
		return ProjectionLambertConfConn
	case ProjectionUTM:
		return ProjectionUTM
	case ProjectionPlateCarree:
		return ProjectionPlateCarree
	}
	return ""
}

// ValidChannelType reports whether value names a supported output channel type.
func ValidChannelType(value string) bool {
	_, ok := raster.ParseChannelType(value)
	return ok
}

// ProjSettings are the parameters shared between the projection setters.
type ProjSettings struct {
	Lat     float64
	Lon     float64
	Scale   float64
	P1      float64 // first standard parallel (Lambert conformal conic)
	P2      float64 // second standard parallel
	UTMZone int     // signed: positive means northern hemisphere
}

// ManualBBox is the user supplied geographic extent of a single input.
type ManualBBox struct {
	North, South, East, West float64
	Set                      bool
}

// Contains the options needed for a pyramid build.
type TilerOptions struct {
	InputFiles     []string // one or more input rasters
	OutputName     string   // base output directory and sidecar prefix
	Mode           Mode
	FileType       string  // png, jpg or auto
	ChannelType    string  // UINT8, UINT16, INT16 or FLOAT; empty keeps the input type
	ModuleName     string  // Uniview/Celestia module to attach the dataset to
	Terrain        bool    // Uniview heightmap output
	JpegQuality    float64 // 0..1
	PNGCompression int     // 0..9
	TileSize       int

	// KML
	MaxLODPixels    int
	DrawOrderOffset int

	Multiband        bool // seam-hiding blend instead of draft painting
	AspectRatio      int
	GlobalResolution int // forces the computed resolution when > 0

	// Input preparation
	Datum       DatumOverride
	DatumRadius float64
	PixelScale  float64
	PixelOffset float64
	Normalize   bool
	Nodata      float64
	NodataSet   bool

	ManualBBox ManualBBox
	Global     bool
	Projection Projection
	Proj       ProjSettings
	NudgeX     float64
	NudgeY     float64

	Workers int // tile writer pool size
	Silent  bool
}

func (opt *TilerOptions) Copy() *TilerOptions {
	newOpt := *opt
	newOpt.InputFiles = append([]string(nil), opt.InputFiles...)
	return &newOpt
}
