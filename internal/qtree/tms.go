package qtree

import (
	"fmt"

	"github.com/paulmach/orb/maptile"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// TMSProfile lays tiles out as z/x/y with the TMS convention: row 0 at the
// bottom of the world.
type TMSProfile struct{}

func (TMSProfile) Name() string { return "tms" }

func (TMSProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (TMSProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return mercatorGeoRef(xres, yres, datum)
}

func (TMSProfile) TilePath(level, col, row int) string {
	t := maptile.New(uint32(col), uint32((1<<level)-1-row), maptile.Zoom(level))
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

func (TMSProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }
func (TMSProfile) RootSidecars(*Generator) []Sidecar             { return nil }

// GMapProfile is the Google Maps layout: same Mercator grid as TMS but
// with row 0 at the top.
type GMapProfile struct{}

func (GMapProfile) Name() string { return "gmap" }

func (GMapProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (GMapProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return mercatorGeoRef(xres, yres, datum)
}

func (GMapProfile) TilePath(level, col, row int) string {
	t := maptile.New(uint32(col), uint32(row), maptile.Zoom(level))
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

func (GMapProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }
func (GMapProfile) RootSidecars(*Generator) []Sidecar             { return nil }
