package qtree

import (
	"bytes"
	"fmt"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// UniviewProfile produces a Uniview offline dataset: a TMS-layout tree
// plus the <output>.conf file the Uniview module loader reads. In terrain
// mode the conf describes a heightmap set instead of a texture set.
type UniviewProfile struct {
	ModuleName string
	Terrain    bool
}

func (p *UniviewProfile) Name() string { return "uniview" }

func (p *UniviewProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (p *UniviewProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return mercatorGeoRef(xres, yres, datum)
}

func (p *UniviewProfile) TilePath(level, col, row int) string {
	return TMSProfile{}.TilePath(level, col, row)
}

func (p *UniviewProfile) NodeSidecars(*Generator, TileRecord) []Sidecar { return nil }

func (p *UniviewProfile) RootSidecars(g *Generator) []Sidecar {
	var b bytes.Buffer
	if p.Terrain {
		b.WriteString("// Terrain\n")
		fmt.Fprintf(&b, "HeightmapCacheLocation=modules/%s/Offlinedatasets/%s/Terrain/\n",
			p.ModuleName, g.RootName)
		fmt.Fprintf(&b, "HeightmapCallstring=Generated by the image2qtree tool.\n")
		fmt.Fprintf(&b, "HeightmapFormat=%s\n", g.FileType())
		fmt.Fprintf(&b, "NrHeightmapLevels=%d\n", g.Levels()-1)
		b.WriteString("NrLevelsPerHeightmap=1\n")
	} else {
		b.WriteString("[Offlinedataset]\n")
		b.WriteString("NrRows=1\n")
		b.WriteString("NrColumns=2\n")
		b.WriteString("Bbox= -180 -90 180 90\n")
		fmt.Fprintf(&b, "DatasetTitle=%s\n", g.RootName)
		b.WriteString("Tessellation=19\n\n")

		b.WriteString("// Texture\n")
		fmt.Fprintf(&b, "TextureCacheLocation=modules/%s/Offlinedatasets/%s/Texture/\n",
			p.ModuleName, g.RootName)
		fmt.Fprintf(&b, "TextureCallstring=Generated by the image2qtree tool.\n")
		fmt.Fprintf(&b, "TextureFormat=%s\n", g.FileType())
		fmt.Fprintf(&b, "TextureLevels= %d\n", g.Levels()-1)
		fmt.Fprintf(&b, "TextureSize= %d\n\n", g.TileSize)
	}
	return []Sidecar{{Path: g.RootName + ".conf", Data: b.Bytes()}}
}
