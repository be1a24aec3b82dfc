package qtree

import (
	"bytes"
	"fmt"
	"path"

	"github.com/paulmach/orb"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// GigapanProfile writes a Gigapan tree: TMS-style z/x/y tiles on a
// Mercator grid with a JSON manifest describing the panorama.
type GigapanProfile struct {
	LonLatBBox orb.Bound
}

func (p *GigapanProfile) Name() string { return "gigapan" }

func (p *GigapanProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (p *GigapanProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return mercatorGeoRef(xres, yres, datum)
}

func (p *GigapanProfile) TilePath(level, col, row int) string {
	return fmt.Sprintf("%d/%d/%d", level, col, row)
}

func (p *GigapanProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }

func (p *GigapanProfile) RootSidecars(g *Generator) []Sidecar {
	var b bytes.Buffer
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"name\": %q,\n", path.Base(g.RootName))
	fmt.Fprintf(&b, "  \"levels\": %d,\n", g.Levels())
	fmt.Fprintf(&b, "  \"tile_size\": %d,\n", g.TileSize)
	fmt.Fprintf(&b, "  \"tile_format\": %q,\n", g.FileType())
	fmt.Fprintf(&b, "  \"bounds\": {\"west\": %s, \"south\": %s, \"east\": %s, \"north\": %s}\n",
		deg(p.LonLatBBox.Left()), deg(p.LonLatBBox.Bottom()),
		deg(p.LonLatBBox.Right()), deg(p.LonLatBBox.Top()))
	b.WriteString("}\n")
	return []Sidecar{{Path: g.RootName + ".manifest", Data: b.Bytes()}}
}

// PlainProfile is a bare quadtree over the raw pixel grid, with no
// georeferencing at all. WithManifest turns on the Gigapan manifest for
// the unprojected Gigapan mode.
type PlainProfile struct {
	ProfileName  string
	WithManifest bool
}

func (p *PlainProfile) Name() string { return p.ProfileName }

func (p *PlainProfile) ComputeResolution(*georef.GeoTransform, geometry.Vector2) (int, error) {
	return 0, fmt.Errorf("qtree: %s profile has no resolution formula", p.ProfileName)
}

func (p *PlainProfile) OutputGeoRef(int, int, georef.Datum) *georef.GeoReference { return nil }

func (p *PlainProfile) TilePath(level, col, row int) string {
	return fmt.Sprintf("%d/%d/%d", level, col, row)
}

func (p *PlainProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }

func (p *PlainProfile) RootSidecars(g *Generator) []Sidecar {
	if !p.WithManifest {
		return nil
	}
	var b bytes.Buffer
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"name\": %q,\n", path.Base(g.RootName))
	fmt.Fprintf(&b, "  \"levels\": %d,\n", g.Levels())
	fmt.Fprintf(&b, "  \"tile_size\": %d,\n", g.TileSize)
	fmt.Fprintf(&b, "  \"tile_format\": %q\n", g.FileType())
	b.WriteString("}\n")
	return []Sidecar{{Path: g.RootName + ".manifest", Data: b.Bytes()}}
}
