package georef

import (
	"github.com/stephenfox/image2qtree/internal/geometry"
)

// GeoTransform composes two georeferences, mapping pixels of the source
// image onto pixels of the destination grid through lonlat space.
type GeoTransform struct {
	src *GeoReference
	dst *GeoReference
}

func NewGeoTransform(src, dst *GeoReference) *GeoTransform {
	return &GeoTransform{src: src, dst: dst}
}

func (t *GeoTransform) Source() *GeoReference      { return t.src }
func (t *GeoTransform) Destination() *GeoReference { return t.dst }

// Forward maps a source pixel to a destination pixel.
func (t *GeoTransform) Forward(px geometry.Vector2) (geometry.Vector2, error) {
	ll, err := t.src.PixelToLonLat(px)
	if err != nil {
		return geometry.Vector2{}, err
	}
	return t.dst.LonLatToPixel(ll)
}

// Reverse maps a destination pixel back to a source pixel.
func (t *GeoTransform) Reverse(px geometry.Vector2) (geometry.Vector2, error) {
	ll, err := t.dst.PixelToLonLat(px)
	if err != nil {
		return geometry.Vector2{}, err
	}
	return t.src.LonLatToPixel(ll)
}

// edgeSamples is the number of sample points per bbox edge used by
// ForwardBBox. Corners alone under-estimate curved projections.
const edgeSamples = 8

// ForwardBBox estimates the destination-space envelope of a source-space
// bounding box by transforming its corners and sampled edge points. Samples
// that fail to transform or produce non-finite results are discarded; curved
// projections routinely push edge points outside their domain.
func (t *GeoTransform) ForwardBBox(bbox geometry.BBox2i) geometry.BBox2i {
	out := geometry.NewEmptyBBox2()
	grow := func(x, y float64) {
		fwd, err := t.Forward(geometry.Vector2{X: x, Y: y})
		if err != nil || !fwd.IsFinite() {
			return
		}
		out.GrowPoint(fwd)
	}

	minX, minY := float64(bbox.MinX), float64(bbox.MinY)
	maxX, maxY := float64(bbox.MaxX), float64(bbox.MaxY)
	for i := 0; i <= edgeSamples; i++ {
		f := float64(i) / float64(edgeSamples)
		x := minX + f*(maxX-minX)
		y := minY + f*(maxY-minY)
		grow(x, minY)
		grow(x, maxY)
		grow(minX, y)
		grow(maxX, y)
	}
	if out.Empty() {
		return geometry.BBox2i{}
	}
	return out.Rounded()
}

// ReverseBBox estimates the source-space envelope of a destination-space
// bounding box.
func (t *GeoTransform) ReverseBBox(bbox geometry.BBox2i) geometry.BBox2i {
	inv := &GeoTransform{src: t.dst, dst: t.src}
	return inv.ForwardBBox(bbox)
}
