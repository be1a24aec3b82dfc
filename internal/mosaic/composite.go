package mosaic

import (
	"fmt"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/raster"
)

// Composite overlays any number of views on a shared pixel grid. Later
// insertions paint over earlier ones. In draft mode overlaps are resolved
// with plain alpha-over; otherwise the sources are flattened once with
// multi-band pyramid blending and reads crop from the flattened buffer.
type Composite struct {
	entries  []compositeEntry
	bbox     geometry.BBox2i
	draft    bool
	prepared bool
	total    geometry.BBox2i

	flat     *raster.PixelBuffer
	flatBBox geometry.BBox2i
	flatErr  error
}

type compositeEntry struct {
	view   View
	dx, dy int
	bbox   geometry.BBox2i
}

func (c *Composite) SetDraftMode(draft bool) { c.draft = draft }

// Insert places a view so that its pixel (0,0) lands at (dx,dy) on the
// composite grid. The view's own coordinates may already be offset; bbox
// gives its footprint in view coordinates.
func (c *Composite) Insert(v View, dx, dy int, bbox geometry.BBox2i) {
	placed := bbox.Translate(dx, dy)
	c.entries = append(c.entries, compositeEntry{view: v, dx: dx, dy: dy, bbox: placed})
	c.bbox = c.bbox.Union(placed)
}

// BBox reports the union footprint of everything inserted so far.
func (c *Composite) BBox() geometry.BBox2i { return c.bbox }

func (c *Composite) Len() int { return len(c.entries) }

func (c *Composite) Bands() int {
	if len(c.entries) == 0 {
		return 0
	}
	return c.entries[0].view.Bands()
}

func (c *Composite) Cols() int {
	if c.prepared {
		return c.total.Width()
	}
	return c.bbox.MaxX
}

func (c *Composite) Rows() int {
	if c.prepared {
		return c.total.Height()
	}
	return c.bbox.MaxY
}

// Prepare freezes the placements and rebases the composite so that the
// corner of total becomes pixel (0,0). Reads afterwards are relative to
// total, and the composite reports total's dimensions.
func (c *Composite) Prepare(total geometry.BBox2i) {
	if c.prepared {
		return
	}
	for i := range c.entries {
		c.entries[i].dx -= total.MinX
		c.entries[i].dy -= total.MinY
		c.entries[i].bbox = c.entries[i].bbox.Translate(-total.MinX, -total.MinY)
	}
	c.bbox = c.bbox.Translate(-total.MinX, -total.MinY)
	c.total = total
	c.prepared = true

	if !c.draft && len(c.entries) > 0 {
		c.flatErr = c.flattenBlended()
	}
}

// Intersects reports whether any source touches the given region. Tile
// generation uses it to prune empty branches without reading pixels.
func (c *Composite) Intersects(bbox geometry.BBox2i) bool {
	for _, e := range c.entries {
		if e.bbox.Intersects(bbox) {
			return true
		}
	}
	return false
}

func (c *Composite) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("mosaic: composite has no sources")
	}
	if c.draft {
		return c.readDraft(bbox)
	}
	return c.readBlended(bbox)
}

func (c *Composite) readDraft(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	out := raster.NewPixelBuffer(bbox.Width(), bbox.Height(), c.Bands())
	for _, e := range c.entries {
		sub := e.bbox.Intersect(bbox)
		if sub.Empty() {
			continue
		}
		buf, err := e.view.Read(sub.Translate(-e.dx, -e.dy))
		if err != nil {
			return nil, err
		}
		out.BlendOver(buf, sub.MinX-bbox.MinX, sub.MinY-bbox.MinY)
	}
	return out, nil
}

// readBlended serves a crop of the flattened multi-band blend, building
// it on first use when Prepare has not run.
func (c *Composite) readBlended(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	if c.flat == nil && c.flatErr == nil {
		c.flatErr = c.flattenBlended()
	}
	if c.flatErr != nil {
		return nil, c.flatErr
	}
	return c.flat.Crop(bbox.Translate(-c.flatBBox.MinX, -c.flatBBox.MinY)), nil
}
