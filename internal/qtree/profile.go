package qtree

import (
	"math"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// Sidecar is a metadata file emitted next to (or inside) the tile tree.
type Sidecar struct {
	Path string
	Data []byte
}

// Profile is the per-mode policy bundle: how resolution is computed, what
// the output grid looks like, where tiles land on disk, and which metadata
// files accompany them.
type Profile interface {
	Name() string

	// ComputeResolution returns the global pyramid width, in pixels, at
	// which one output pixel at the probed input pixel matches one input
	// pixel.
	ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error)

	// OutputGeoRef builds the georeference of the global output grid.
	// Profiles without georeferencing return nil.
	OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference

	// TilePath gives the tile file location relative to the output root,
	// without extension.
	TilePath(level, col, row int) string

	// NodeSidecars emits per-node metadata after a tile and all of its
	// children have been produced.
	NodeSidecars(g *Generator, rec TileRecord) []Sidecar

	// RootSidecars emits metadata after the whole tree is done.
	RootSidecars(g *Generator) []Sidecar
}

// degreeResolution is the resolution rule shared by every georeferenced
// profile. The probe transform maps input pixels onto a degree grid, so the
// step to the neighboring pixel measures degrees per input pixel. The
// answer is the power-of-two global width at which output pixels are at
// least that fine.
func degreeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	pos, err := tx.Forward(pixel)
	if err != nil {
		return 0, err
	}
	px, err := tx.Forward(geometry.Vector2{X: pixel.X + 1, Y: pixel.Y})
	if err != nil {
		return 0, err
	}
	py, err := tx.Forward(geometry.Vector2{X: pixel.X, Y: pixel.Y + 1})
	if err != nil {
		return 0, err
	}
	dx := px.Sub(pos).Norm()
	dy := py.Sub(pos).Norm()
	degreesPerPixel := math.Min(dx, dy)
	if !isNormal(degreesPerPixel) {
		return 0, errDegenerateProbe
	}
	resolution := 1
	for 360.0/float64(resolution) > degreesPerPixel {
		resolution *= 2
	}
	return resolution, nil
}

func isNormal(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// geographicGeoRef maps the global pixel grid onto a geographic square: the
// full longitude range spans xres pixels and, with a square aspect, 360
// degrees of latitude span yres pixels. Latitudes outside ±90 are never
// populated.
func geographicGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	ref := georef.NewGeoReference(datum)
	ref.SetGeographic()
	ref.SetTransform(geometry.NewAffine(
		360.0/float64(xres), -360.0/float64(yres), -180, 180))
	return ref
}

// mercatorGeoRef maps the global pixel grid onto the square spherical
// Mercator world [-πR, πR]².
func mercatorGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	sphere := datum.SphericalMercatorDatum()
	half := math.Pi * sphere.SemiMajor
	ref := georef.NewGeoReference(sphere)
	ref.SetMercator(0, 0, 1)
	ref.SetTransform(geometry.NewAffine(
		2*half/float64(xres), -2*half/float64(yres), -half, half))
	return ref
}
