package mosaic

import (
	"math"
	"testing"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/raster"
)

func memView(cols, rows, bands int, fill float32) SourceView {
	buf := raster.NewPixelBuffer(cols, rows, bands)
	px := make([]float32, bands+1)
	for c := 0; c < bands; c++ {
		px[c] = fill
	}
	px[bands] = 1
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			buf.SetPixel(x, y, px)
		}
	}
	return SourceView{Src: &raster.MemorySource{Name: "mem", Buf: buf}}
}

func fullRead(t *testing.T, v View) *raster.PixelBuffer {
	t.Helper()
	buf, err := v.Read(geometry.BBox2i{MaxX: v.Cols(), MaxY: v.Rows()})
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestMaskedView(t *testing.T) {
	src := memView(2, 1, 1, 0.25)
	masked := MaskedView{Src: src, Nodata: 0.25}
	buf := fullRead(t, masked)
	if buf.Alpha(0, 0) != 0 || buf.At(0, 0, 0) != 0 {
		t.Fatal("nodata pixel should be knocked out")
	}

	// Pixels where only some bands match survive.
	rgb := raster.NewPixelBuffer(1, 1, 3)
	rgb.SetPixel(0, 0, []float32{0.25, 0.5, 0.25, 1})
	partial := MaskedView{Src: SourceView{Src: &raster.MemorySource{Name: "rgb", Buf: rgb}}, Nodata: 0.25}
	buf = fullRead(t, partial)
	if buf.Alpha(0, 0) != 1 {
		t.Fatal("partial nodata match should keep the pixel")
	}
}

func TestScaledView(t *testing.T) {
	v := ScaledView{Src: memView(1, 1, 1, 0.5), Scale: 2, Offset: 0.1}
	buf := fullRead(t, v)
	if got := buf.At(0, 0, 0); math.Abs(float64(got)-1.1) > 1e-6 {
		t.Fatalf("scaled value = %v, want 1.1", got)
	}
	if buf.Alpha(0, 0) != 1 {
		t.Fatal("scaling should leave alpha alone")
	}
}

func TestRescaledView(t *testing.T) {
	v := RescaledView{Src: memView(1, 1, 1, 0.5), Lo: 0.5, Hi: 1.5}
	buf := fullRead(t, v)
	if got := buf.At(0, 0, 0); math.Abs(float64(got)) > 1e-6 {
		t.Fatalf("low end should rescale to 0, got %v", got)
	}

	v = RescaledView{Src: memView(1, 1, 1, 1.5), Lo: 0.5, Hi: 1.5}
	buf = fullRead(t, v)
	if got := buf.At(0, 0, 0); math.Abs(float64(got)-1) > 1e-6 {
		t.Fatalf("high end should rescale to 1, got %v", got)
	}
}

func TestRGBView(t *testing.T) {
	v := RGBView{Src: memView(1, 1, 1, 0.75)}
	if v.Bands() != 3 {
		t.Fatal("widened view should report three bands")
	}
	buf := fullRead(t, v)
	if buf.Bands != 3 {
		t.Fatalf("read buffer has %d bands, want 3", buf.Bands)
	}
	for c := 0; c < 3; c++ {
		if buf.At(0, 0, c) != 0.75 {
			t.Fatalf("band %d = %v, want 0.75", c, buf.At(0, 0, c))
		}
	}
}

func TestValueRange(t *testing.T) {
	buf := raster.NewPixelBuffer(3, 1, 1)
	buf.SetPixel(0, 0, []float32{-2, 1})
	buf.SetPixel(1, 0, []float32{7, 1})
	// transparent pixel with a wild value must not count
	buf.Set(2, 0, 0, 1e9)

	lo, hi, err := ValueRange(&raster.MemorySource{Name: "m", Buf: buf})
	if err != nil {
		t.Fatal(err)
	}
	if lo != -2 || hi != 7 {
		t.Fatalf("range = [%g %g], want [-2 7]", lo, hi)
	}
}

func TestValueRangeEmpty(t *testing.T) {
	lo, hi, err := ValueRange(&raster.MemorySource{Name: "m", Buf: raster.NewPixelBuffer(2, 2, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0 || hi != 1 {
		t.Fatalf("empty range = [%g %g], want [0 1]", lo, hi)
	}
}

func TestValueRangeMasked(t *testing.T) {
	buf := raster.NewPixelBuffer(2, 1, 1)
	buf.SetPixel(0, 0, []float32{0, 1})
	buf.SetPixel(1, 0, []float32{0.5, 1})

	lo, hi, err := ValueRange(MaskedView{
		Src:    SourceView{Src: &raster.MemorySource{Name: "m", Buf: buf}},
		Nodata: 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0.5 || hi != 0.5 {
		t.Fatalf("masked range = [%g %g], want [0.5 0.5]", lo, hi)
	}
}
