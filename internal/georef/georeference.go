package georef

import (
	"fmt"
	"math"
	"strings"
	"sync"

	proj "github.com/xeonx/proj4"

	"github.com/stephenfox/image2qtree/internal/geometry"
)

// GeoReference ties a raster's pixel grid to a projected coordinate system:
// a datum, a proj4 projection definition and an invertible pixel-to-projected
// affine with bottom row (0,0,1).
//
// Projection forward/inverse goes through the proj.4 library. Handles are
// created lazily and shared; proj.4 contexts are not safe for concurrent use,
// so every conversion holds a mutex.
type GeoReference struct {
	datum     Datum
	projDef   string
	transform geometry.Matrix3
	inverse   geometry.Matrix3

	mu       sync.Mutex
	projPJ   *proj.Proj
	lonlatPJ *proj.Proj
}

// NewGeoReference returns a geographic (plate carree) georeference on the
// given datum with an identity pixel transform.
func NewGeoReference(datum Datum) *GeoReference {
	g := &GeoReference{datum: datum}
	g.SetGeographic()
	g.setTransform(geometry.IdentityMatrix3())
	return g
}

func (g *GeoReference) Datum() Datum { return g.datum }

// SetDatum replaces the datum while keeping the affine, per the datum
// override semantics.
func (g *GeoReference) SetDatum(datum Datum) {
	g.datum = datum
	g.dropHandles()
}

// ProjString returns the projection-only proj4 definition (no datum
// parameters).
func (g *GeoReference) ProjString() string { return g.projDef }

// Transform returns the pixel-to-projected affine.
func (g *GeoReference) Transform() geometry.Matrix3 { return g.transform }

// SetTransform replaces the pixel-to-projected affine.
func (g *GeoReference) SetTransform(m geometry.Matrix3) error {
	if !m.IsAffine() {
		return fmt.Errorf("georef: transform bottom row must be (0,0,1)")
	}
	return g.setTransform(m)
}

func (g *GeoReference) setTransform(m geometry.Matrix3) error {
	inv, err := m.Inverse()
	if err != nil {
		return err
	}
	g.transform = m
	g.inverse = inv
	return nil
}

// Nudge offsets the translation column of the affine by (dx, dy) projected
// units.
func (g *GeoReference) Nudge(dx, dy float64) {
	g.setTransform(g.transform.Translate(dx, dy))
}

func (g *GeoReference) setProjection(def string) {
	g.projDef = def
	g.dropHandles()
}

func (g *GeoReference) SetGeographic() {
	g.setProjection("+proj=longlat")
}

func (g *GeoReference) SetMercator(latTS, lon0, scale float64) {
	g.setProjection(fmt.Sprintf("+proj=merc +lat_ts=%g +lon_0=%g +k=%g", latTS, lon0, scale))
}

func (g *GeoReference) SetTransverseMercator(lat0, lon0, scale float64) {
	g.setProjection(fmt.Sprintf("+proj=tmerc +lat_0=%g +lon_0=%g +k=%g", lat0, lon0, scale))
}

func (g *GeoReference) SetOrthographic(lat0, lon0 float64) {
	g.setProjection(fmt.Sprintf("+proj=ortho +lat_0=%g +lon_0=%g", lat0, lon0))
}

func (g *GeoReference) SetStereographic(lat0, lon0, scale float64) {
	g.setProjection(fmt.Sprintf("+proj=stere +lat_0=%g +lon_0=%g +k=%g", lat0, lon0, scale))
}

func (g *GeoReference) SetLambertAzimuthal(lat0, lon0 float64) {
	g.setProjection(fmt.Sprintf("+proj=laea +lat_0=%g +lon_0=%g", lat0, lon0))
}

func (g *GeoReference) SetLambertConformal(p1, p2, lat0, lon0 float64) {
	g.setProjection(fmt.Sprintf("+proj=lcc +lat_1=%g +lat_2=%g +lat_0=%g +lon_0=%g", p1, p2, lat0, lon0))
}

func (g *GeoReference) SetSinusoidal(lon0 float64) {
	g.setProjection(fmt.Sprintf("+proj=sinu +lon_0=%g", lon0))
}

// SetUTM selects the given UTM zone; north selects the hemisphere.
func (g *GeoReference) SetUTM(zone int, north bool) {
	def := fmt.Sprintf("+proj=utm +zone=%d", zone)
	if !north {
		def += " +south"
	}
	g.setProjection(def)
}

// IsGeographic reports whether the projection is plain lonlat.
func (g *GeoReference) IsGeographic() bool {
	return strings.TrimSpace(g.projDef) == "+proj=longlat"
}

func (g *GeoReference) dropHandles() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.projPJ != nil {
		g.projPJ.Close()
		g.projPJ = nil
	}
	if g.lonlatPJ != nil {
		g.lonlatPJ.Close()
		g.lonlatPJ = nil
	}
}

// Close releases the underlying proj.4 handles.
func (g *GeoReference) Close() {
	g.dropHandles()
}

func (g *GeoReference) handles() (*proj.Proj, *proj.Proj, error) {
	if g.projPJ == nil {
		def := g.projDef + " " + g.datum.ProjFragment() + " +no_defs"
		pj, err := proj.InitPlus(def)
		if err != nil {
			return nil, nil, fmt.Errorf("georef: init projection %q: %w", def, err)
		}
		g.projPJ = pj
	}
	if g.lonlatPJ == nil {
		def := "+proj=longlat " + g.datum.ProjFragment() + " +no_defs"
		pj, err := proj.InitPlus(def)
		if err != nil {
			return nil, nil, fmt.Errorf("georef: init lonlat %q: %w", def, err)
		}
		g.lonlatPJ = pj
	}
	return g.projPJ, g.lonlatPJ, nil
}

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// projectedToLonLat converts projected coordinates to degrees lonlat.
func (g *GeoReference) projectedToLonLat(v geometry.Vector2) (geometry.Vector2, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pj, ll, err := g.handles()
	if err != nil {
		return geometry.Vector2{}, err
	}
	x := []float64{v.X}
	y := []float64{v.Y}
	z := []float64{0}
	if pj.IsLatLong() {
		x[0] *= degToRad
		y[0] *= degToRad
	}
	if err := proj.TransformRaw(pj, ll, x, y, z); err != nil {
		return geometry.Vector2{}, err
	}
	return geometry.Vector2{X: x[0] * radToDeg, Y: y[0] * radToDeg}, nil
}

// lonlatToProjected converts degrees lonlat to projected coordinates.
func (g *GeoReference) lonlatToProjected(ll geometry.Vector2) (geometry.Vector2, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pj, llpj, err := g.handles()
	if err != nil {
		return geometry.Vector2{}, err
	}
	x := []float64{ll.X * degToRad}
	y := []float64{ll.Y * degToRad}
	z := []float64{0}
	if err := proj.TransformRaw(llpj, pj, x, y, z); err != nil {
		return geometry.Vector2{}, err
	}
	out := geometry.Vector2{X: x[0], Y: y[0]}
	if pj.IsLatLong() {
		out.X *= radToDeg
		out.Y *= radToDeg
	}
	return out, nil
}

// PixelToLonLat maps a pixel location to degrees lonlat.
func (g *GeoReference) PixelToLonLat(px geometry.Vector2) (geometry.Vector2, error) {
	return g.projectedToLonLat(g.transform.Apply(px))
}

// LonLatToPixel maps degrees lonlat to a pixel location.
func (g *GeoReference) LonLatToPixel(ll geometry.Vector2) (geometry.Vector2, error) {
	projected, err := g.lonlatToProjected(ll)
	if err != nil {
		return geometry.Vector2{}, err
	}
	return g.inverse.Apply(projected), nil
}

// PixelToProjected maps a pixel location to projected coordinates.
func (g *GeoReference) PixelToProjected(px geometry.Vector2) geometry.Vector2 {
	return g.transform.Apply(px)
}

// ProjectedToPixel maps projected coordinates to a pixel location.
func (g *GeoReference) ProjectedToPixel(v geometry.Vector2) geometry.Vector2 {
	return g.inverse.Apply(v)
}

// IsGlobalGeographic reports whether the georeference is a full-globe
// cylindrical image of the given dimensions: the projection is plain lonlat
// and the four cardinal probes land within one pixel of the image edges.
// Such sources get cylindrical edge extension so the antimeridian seam
// samples consistently.
func (g *GeoReference) IsGlobalGeographic(cols, rows int) bool {
	if !g.IsGeographic() {
		return false
	}
	west, err := g.LonLatToPixel(geometry.Vector2{X: -180, Y: 0})
	if err != nil {
		return false
	}
	east, err := g.LonLatToPixel(geometry.Vector2{X: 180, Y: 0})
	if err != nil {
		return false
	}
	north, err := g.LonLatToPixel(geometry.Vector2{X: 0, Y: 90})
	if err != nil {
		return false
	}
	south, err := g.LonLatToPixel(geometry.Vector2{X: 0, Y: -90})
	if err != nil {
		return false
	}
	return math.Abs(west.X) < 1 &&
		math.Abs(east.X-float64(cols)) < 1 &&
		math.Abs(north.Y) < 1 &&
		math.Abs(south.Y-float64(rows)) < 1
}
