package mosaic

import (
	"testing"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
	"github.com/stephenfox/image2qtree/internal/raster"
)

func viewOf(buf *raster.PixelBuffer) SourceView {
	return SourceView{Src: &raster.MemorySource{Name: "mem", Buf: buf}}
}

// gridRef maps cols x rows pixels onto the full globe.
func gridRef(cols, rows int) *georef.GeoReference {
	g := georef.NewGeoReference(georef.WGS84Datum())
	g.SetTransform(geometry.NewAffine(
		360.0/float64(cols), -180.0/float64(rows), -180, 90))
	return g
}

func TestTransformViewIdentity(t *testing.T) {
	src := gridRef(4, 4)
	dst := gridRef(4, 4)
	defer src.Close()
	defer dst.Close()

	view, footprint := NewTransformView(memView(4, 4, 1, 0.5), georef.NewGeoTransform(src, dst), ZeroEdge)
	want := geometry.NewBBox2i(0, 0, 4, 4)
	if footprint != want {
		t.Fatalf("footprint = %+v, want %+v", footprint, want)
	}

	buf, err := view.Read(footprint)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := buf.At(x, y, 0); got != 0.5 {
				t.Fatalf("pixel (%d,%d) = %v, want 0.5", x, y, got)
			}
			if buf.Alpha(x, y) != 1 {
				t.Fatalf("pixel (%d,%d) lost alpha", x, y)
			}
		}
	}
}

func TestTransformViewUpsample(t *testing.T) {
	src := gridRef(2, 2)
	dst := gridRef(4, 4)
	defer src.Close()
	defer dst.Close()

	view, footprint := NewTransformView(memView(2, 2, 1, 0.25), georef.NewGeoTransform(src, dst), ZeroEdge)
	want := geometry.NewBBox2i(0, 0, 4, 4)
	if footprint != want {
		t.Fatalf("footprint = %+v, want %+v", footprint, want)
	}

	buf, err := view.Read(footprint)
	if err != nil {
		t.Fatal(err)
	}
	// The interior samples sit inside the solid source, so the bilinear
	// kernel reproduces the constant value.
	if got := buf.At(1, 1, 0); got != 0.25 {
		t.Fatalf("interior pixel = %v, want 0.25", got)
	}
	if got := buf.At(2, 2, 0); got != 0.25 {
		t.Fatalf("interior pixel = %v, want 0.25", got)
	}
}

func TestTransformViewReadOutsideFootprint(t *testing.T) {
	src := gridRef(4, 4)
	dst := gridRef(4, 4)
	defer src.Close()
	defer dst.Close()

	view, _ := NewTransformView(memView(4, 4, 1, 1), georef.NewGeoTransform(src, dst), ZeroEdge)
	buf, err := view.Read(geometry.NewBBox2i(100, 100, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	if !buf.IsTransparent() {
		t.Fatal("window past the source should come back transparent")
	}
}

func TestCylindricalEdgeWraps(t *testing.T) {
	// A 4 wide source with a bright west column. Sampling one pixel east of
	// the edge must wrap around and hit that column.
	marked := raster.NewPixelBuffer(4, 2, 1)
	for y := 0; y < 2; y++ {
		marked.SetPixel(0, y, []float32{1, 1})
		for x := 1; x < 4; x++ {
			marked.SetPixel(x, y, []float32{0, 1})
		}
	}
	src := gridRef(4, 2)
	dst := gridRef(4, 2)
	defer src.Close()
	defer dst.Close()

	view := &TransformView{
		Src:   viewOf(marked),
		Xform: georef.NewGeoTransform(src, dst),
		Edge:  CylindricalEdge,
	}
	win, _, err := view.readExtended(geometry.NewBBox2i(3, 0, 3, 2))
	if err != nil {
		t.Fatal(err)
	}
	// Columns 3, 0(wrapped), 1.
	if win.At(0, 0, 0) != 0 {
		t.Fatal("column 3 should be dark")
	}
	if win.At(1, 0, 0) != 1 {
		t.Fatal("wrapped column 0 should be bright")
	}
	if win.At(2, 0, 0) != 0 {
		t.Fatal("column 1 should be dark")
	}
}
