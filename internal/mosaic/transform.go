package mosaic

import (
	"math"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
	"github.com/stephenfox/image2qtree/internal/raster"
)

// EdgeExtension selects what a resampler sees beyond the source edges.
type EdgeExtension int

const (
	// ZeroEdge treats everything outside the source as transparent.
	ZeroEdge EdgeExtension = iota
	// CylindricalEdge wraps horizontally and clamps vertically. Global
	// geographic imagery uses it so the seam at the dateline disappears.
	CylindricalEdge
)

// TransformView resamples a source through a georeference pair, producing a
// view in the destination pixel grid. Sampling is bilinear with inverse
// mapping: each destination pixel is traced back to source coordinates.
type TransformView struct {
	Src   View
	Xform *georef.GeoTransform
	Edge  EdgeExtension

	cols, rows int
}

// NewTransformView computes the destination footprint of src and returns a
// view spanning it. The returned bbox locates the view on the destination
// grid; the view itself reads in destination coordinates.
func NewTransformView(src View, xform *georef.GeoTransform, edge EdgeExtension) (*TransformView, geometry.BBox2i) {
	footprint := xform.ForwardBBox(geometry.BBox2i{MaxX: src.Cols(), MaxY: src.Rows()})
	v := &TransformView{
		Src:   src,
		Xform: xform,
		Edge:  edge,
		cols:  footprint.MaxX,
		rows:  footprint.MaxY,
	}
	return v, footprint
}

func (v *TransformView) Cols() int  { return v.cols }
func (v *TransformView) Rows() int  { return v.rows }
func (v *TransformView) Bands() int { return v.Src.Bands() }

func (v *TransformView) Read(bbox geometry.BBox2i) (*raster.PixelBuffer, error) {
	out := raster.NewPixelBuffer(bbox.Width(), bbox.Height(), v.Src.Bands())

	// Trace the destination window back to find which source pixels are
	// needed, padded a pixel for the bilinear kernel.
	srcBox := geometry.NewEmptyBBox2()
	for _, p := range [][2]int{
		{bbox.MinX, bbox.MinY}, {bbox.MaxX, bbox.MinY},
		{bbox.MinX, bbox.MaxY}, {bbox.MaxX, bbox.MaxY},
		{(bbox.MinX + bbox.MaxX) / 2, bbox.MinY},
		{(bbox.MinX + bbox.MaxX) / 2, bbox.MaxY},
		{bbox.MinX, (bbox.MinY + bbox.MaxY) / 2},
		{bbox.MaxX, (bbox.MinY + bbox.MaxY) / 2},
	} {
		sp, err := v.Xform.Reverse(geometry.Vector2{X: float64(p[0]), Y: float64(p[1])})
		if err != nil || !sp.IsFinite() {
			continue
		}
		srcBox.GrowPoint(sp)
	}
	if srcBox.Empty() {
		return out, nil
	}
	need := srcBox.Rounded()
	need = geometry.BBox2i{
		MinX: need.MinX - 1, MinY: need.MinY - 1,
		MaxX: need.MaxX + 2, MaxY: need.MaxY + 2,
	}
	srcPixels, srcOrigin, err := v.readExtended(need)
	if err != nil {
		return nil, err
	}
	if srcPixels == nil {
		return out, nil
	}

	px := make([]float32, v.Src.Bands()+1)
	acc := make([]float32, v.Src.Bands()+1)
	for y := 0; y < out.Rows; y++ {
		for x := 0; x < out.Cols; x++ {
			dst := geometry.Vector2{
				X: float64(bbox.MinX+x) + 0.5,
				Y: float64(bbox.MinY+y) + 0.5,
			}
			sp, err := v.Xform.Reverse(dst)
			if err != nil || !sp.IsFinite() {
				continue
			}
			v.bilinear(srcPixels, srcOrigin, sp, px, acc)
			out.SetPixel(x, y, acc)
		}
	}
	return out, nil
}

// readExtended reads the requested source window, applying the edge
// extension for the parts that fall outside the source.
func (v *TransformView) readExtended(need geometry.BBox2i) (*raster.PixelBuffer, geometry.Vector2, error) {
	origin := geometry.Vector2{X: float64(need.MinX), Y: float64(need.MinY)}
	full := geometry.BBox2i{MaxX: v.Src.Cols(), MaxY: v.Src.Rows()}

	if v.Edge == ZeroEdge {
		inside := need.Intersect(full)
		if inside.Empty() {
			return nil, origin, nil
		}
		buf, err := v.Src.Read(inside)
		if err != nil {
			return nil, origin, err
		}
		out := raster.NewPixelBuffer(need.Width(), need.Height(), buf.Bands)
		out.Compose(buf, inside.MinX-need.MinX, inside.MinY-need.MinY)
		return out, origin, nil
	}

	// Cylindrical: assemble the window column range by column range, each
	// range wrapped into [0, cols).
	cols := v.Src.Cols()
	out := raster.NewPixelBuffer(need.Width(), need.Height(), v.Src.Bands())
	clampedY := geometry.BBox2i{
		MinY: clamp(need.MinY, 0, v.Src.Rows()-1),
		MaxY: clamp(need.MaxY, 1, v.Src.Rows()),
	}
	x := need.MinX
	for x < need.MaxX {
		wx := mod(x, cols)
		run := min(need.MaxX-x, cols-wx)
		sub := geometry.BBox2i{
			MinX: wx, MaxX: wx + run,
			MinY: clampedY.MinY, MaxY: clampedY.MaxY,
		}
		buf, err := v.Src.Read(sub)
		if err != nil {
			return nil, origin, err
		}
		// Vertical clamp replicates the first and last source rows.
		for dy := 0; dy < need.Height(); dy++ {
			sy := clamp(need.MinY+dy, clampedY.MinY, clampedY.MaxY-1) - clampedY.MinY
			for dx := 0; dx < run; dx++ {
				for c := 0; c <= buf.Bands; c++ {
					out.Set(x-need.MinX+dx, dy, c, buf.At(dx, sy, c))
				}
			}
		}
		x += run
	}
	return out, origin, nil
}

// bilinear samples the prefetched window at the source point sp.
func (v *TransformView) bilinear(win *raster.PixelBuffer, origin geometry.Vector2, sp geometry.Vector2, px, acc []float32) {
	fx := sp.X - origin.X - 0.5
	fy := sp.Y - origin.Y - 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	wx := float32(fx - float64(x0))
	wy := float32(fy - float64(y0))

	for c := range acc {
		acc[c] = 0
	}
	for dy := 0; dy <= 1; dy++ {
		for dx := 0; dx <= 1; dx++ {
			x, y := x0+dx, y0+dy
			if x < 0 || y < 0 || x >= win.Cols || y >= win.Rows {
				continue
			}
			w := (wx*float32(dx) + (1-wx)*float32(1-dx)) *
				(wy*float32(dy) + (1-wy)*float32(1-dy))
			if w == 0 {
				continue
			}
			win.Pixel(x, y, px)
			for c := range acc {
				acc[c] += w * px[c]
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}
