package qtree

import (
	"bytes"
	"fmt"
	"path"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
)

// KMLProfile writes a Google Earth super-overlay: one image plus one kml
// per node, each kml pulling in the children as region-gated network links.
type KMLProfile struct {
	// OriginX/OriginY locate the generated region on the global pixel
	// grid; XRes/YRes are the global grid dimensions.
	OriginX, OriginY int
	XRes, YRes       int

	LonLatBBox      orb.Bound
	MaxLODPixels    int
	DrawOrderOffset int
}

func (p *KMLProfile) Name() string { return "kml" }

func (p *KMLProfile) ComputeResolution(tx *georef.GeoTransform, pixel geometry.Vector2) (int, error) {
	return degreeResolution(tx, pixel)
}

func (p *KMLProfile) OutputGeoRef(xres, yres int, datum georef.Datum) *georef.GeoReference {
	return geographicGeoRef(xres, yres, datum)
}

func (p *KMLProfile) TilePath(level, col, row int) string {
	return fmt.Sprintf("%d_%d_%d", level, col, row)
}

// tileBounds converts a tile's pixel region to geographic degrees on the
// global grid.
func (p *KMLProfile) tileBounds(g *Generator, level, col, row int) (north, south, east, west float64) {
	s := g.TileSize << (g.Levels() - 1 - level)
	gx0 := float64(p.OriginX + col*s)
	gy0 := float64(p.OriginY + row*s)
	gx1 := gx0 + float64(s)
	gy1 := gy0 + float64(s)
	west = -180 + 360*gx0/float64(p.XRes)
	east = -180 + 360*gx1/float64(p.XRes)
	north = 180 - 360*gy0/float64(p.YRes)
	south = 180 - 360*gy1/float64(p.YRes)
	return
}

// deg renders a coordinate with enough fixed precision for Earth work and
// no float noise.
func deg(v float64) string {
	return decimal.NewFromFloat(v).Round(10).String()
}

func (p *KMLProfile) NodeSidecars(g *Generator, rec TileRecord) []Sidecar {
	var b bytes.Buffer
	n, s, e, w := p.tileBounds(g, rec.Level, rec.Col, rec.Row)

	minLod := g.TileSize / 2
	if rec.Level == 0 {
		minLod = -1
	}
	maxLod := p.MaxLODPixels
	if rec.Level == g.Levels()-1 {
		maxLod = -1
	}

	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<kml xmlns=\"http://www.opengis.net/kml/2.2\" hint=\"target=earth\">\n")
	b.WriteString("<Folder>\n")
	writeRegion(&b, "  ", n, s, e, w, minLod, maxLod)
	fmt.Fprintf(&b, "  <GroundOverlay>\n")
	fmt.Fprintf(&b, "    <Icon><href>%s</href></Icon>\n", path.Base(rec.ImagePath))
	fmt.Fprintf(&b, "    <LatLonBox><north>%s</north><south>%s</south><east>%s</east><west>%s</west></LatLonBox>\n",
		deg(n), deg(s), deg(e), deg(w))
	fmt.Fprintf(&b, "    <drawOrder>%d</drawOrder>\n", p.DrawOrderOffset+rec.Level)
	fmt.Fprintf(&b, "  </GroundOverlay>\n")

	for j := 0; j < 2; j++ {
		for i := 0; i < 2; i++ {
			child, ok := g.Written(rec.Level+1, 2*rec.Col+i, 2*rec.Row+j)
			if !ok {
				continue
			}
			cn, cs, ce, cw := p.tileBounds(g, child.Level, child.Col, child.Row)
			b.WriteString("  <NetworkLink>\n")
			writeRegion(&b, "    ", cn, cs, ce, cw, g.TileSize/2, p.MaxLODPixels)
			fmt.Fprintf(&b, "    <Link><href>%d_%d_%d.kml</href><viewRefreshMode>onRegion</viewRefreshMode></Link>\n",
				child.Level, child.Col, child.Row)
			b.WriteString("  </NetworkLink>\n")
		}
	}
	b.WriteString("</Folder>\n</kml>\n")

	name := fmt.Sprintf("%d_%d_%d.kml", rec.Level, rec.Col, rec.Row)
	return []Sidecar{{Path: path.Join(g.RootName, name), Data: b.Bytes()}}
}

func writeRegion(b *bytes.Buffer, indent string, n, s, e, w float64, minLod, maxLod int) {
	fmt.Fprintf(b, "%s<Region>\n", indent)
	fmt.Fprintf(b, "%s  <LatLonAltBox><north>%s</north><south>%s</south><east>%s</east><west>%s</west></LatLonAltBox>\n",
		indent, deg(n), deg(s), deg(e), deg(w))
	fmt.Fprintf(b, "%s  <Lod><minLodPixels>%d</minLodPixels><maxLodPixels>%d</maxLodPixels></Lod>\n",
		indent, minLod, maxLod)
	fmt.Fprintf(b, "%s</Region>\n", indent)
}

// RootSidecars writes <output>.kml, the document a viewer actually opens.
func (p *KMLProfile) RootSidecars(g *Generator) []Sidecar {
	root, ok := g.Written(0, 0, 0)
	if !ok {
		return nil
	}
	var b bytes.Buffer
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<kml xmlns=\"http://www.opengis.net/kml/2.2\" hint=\"target=earth\">\n")
	b.WriteString("<Document>\n")
	fmt.Fprintf(&b, "  <name>%s</name>\n", path.Base(g.RootName))
	b.WriteString("  <NetworkLink>\n")
	writeRegion(&b, "    ", p.LonLatBBox.Top(), p.LonLatBBox.Bottom(),
		p.LonLatBBox.Right(), p.LonLatBBox.Left(), -1, -1)
	fmt.Fprintf(&b, "    <Link><href>%s/%d_%d_%d.kml</href><viewRefreshMode>onRegion</viewRefreshMode></Link>\n",
		path.Base(g.RootName), root.Level, root.Col, root.Row)
	b.WriteString("  </NetworkLink>\n")
	b.WriteString("</Document>\n</kml>\n")
	return []Sidecar{{Path: g.RootName + ".kml", Data: b.Bytes()}}
}
