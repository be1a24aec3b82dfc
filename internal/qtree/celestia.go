package qtree

import (
	"bytes"
	"fmt"
	"path"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// CelestiaProfile writes a Celestia virtual texture: level directories of
// tx_<col>_<row> tiles on a plate-carree grid, plus the .ctx virtual
// texture description and a .ssc alternate surface entry.
type CelestiaProfile struct {
	ModuleName string
}

func (p *CelestiaProfile) Name() string { return "celestia" }

func (p *CelestiaProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (p *CelestiaProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return geographicGeoRef(xres, yres, datum)
}

func (p *CelestiaProfile) TilePath(level, col, row int) string {
	return fmt.Sprintf("level%d/tx_%d_%d", level, col, row)
}

func (p *CelestiaProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }

func (p *CelestiaProfile) RootSidecars(g *Generator) []Sidecar {
	name := path.Base(g.RootName)

	var ctx bytes.Buffer
	ctx.WriteString("VirtualTexture\n{\n")
	fmt.Fprintf(&ctx, "        ImageDirectory \"%s\"\n", name)
	ctx.WriteString("        BaseSplit 0\n")
	fmt.Fprintf(&ctx, "        TileSize %d\n", g.TileSize>>1)
	fmt.Fprintf(&ctx, "        TileType \"%s\"\n", g.FileType())
	ctx.WriteString("}\n")

	var ssc bytes.Buffer
	fmt.Fprintf(&ssc, "AltSurface \"%s\" \"%s\"\n{\n", name, p.ModuleName)
	fmt.Fprintf(&ssc, "    Texture \"%s.ctx\"\n", name)
	ssc.WriteString("}\n")

	return []Sidecar{
		{Path: g.RootName + ".ctx", Data: ctx.Bytes()},
		{Path: g.RootName + ".ssc", Data: ssc.Bytes()},
	}
}
